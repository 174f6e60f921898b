package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/service"
)

const maxUploadSize = 50 * 1024 * 1024 // 50 MB

func isHTMX(r *http.Request) bool { return r.Header.Get("HX-Request") == "true" }

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.attachmentFailure(w, r, sess, &service.ValidationError{Field: "file", Message: "Por favor, seleccione un archivo"})
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		s.logger.Error("read upload failed", "session_id", sess.controller.SessionID(), "error", err)
		return
	}

	rec, err := s.wizard.AddAttachment(r.Context(), sess.controller, service.Upload{
		Name: header.Filename,
		Kind: domain.AttachmentKind(r.FormValue("kind")),
		Data: data,
	})
	if err != nil {
		s.attachmentFailure(w, r, sess, err)
		return
	}
	s.attachmentSuccess(w, r, sess, "Archivo agregado: "+rec.Name)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := s.wizard.RemoveAttachment(r.Context(), sess.controller, r.PathValue("id")); err != nil {
		s.attachmentFailure(w, r, sess, err)
		return
	}
	s.attachmentSuccess(w, r, sess, "Archivo removido")
}

// attachmentSuccess answers htmx requests with the refreshed list and plain
// form posts with a redirect.
func (s *Server) attachmentSuccess(w http.ResponseWriter, r *http.Request, sess *session, message string) {
	if !isHTMX(r) {
		s.finish(w, r, sess, nil, message)
		return
	}
	view := s.attachments(r.Context(), sess)
	view.Flash = flash{Kind: "success", Message: message}
	if err := s.renderPartial(w, "partials/attachments.html", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) attachmentFailure(w http.ResponseWriter, r *http.Request, sess *session, err error) {
	var verr *service.ValidationError
	if !isHTMX(r) || !errors.As(err, &verr) {
		s.renderFailure(w, r, sess, err)
		return
	}
	view := s.attachments(r.Context(), sess)
	view.Flash = flash{Kind: "error", Message: verr.Message}
	if err := s.renderPartial(w, "partials/attachments.html", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// handleGetAttachment serves content only for the areas the requesting
// session is working on; anything else is reported as not found.
func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	areaID := r.PathValue("area")
	if !s.wizard.CanAccessArea(r.Context(), sess.controller, areaID) {
		s.logger.Warn("attachment access denied", "session_id", sess.controller.SessionID(), "area_id", areaID)
		http.NotFound(w, r)
		return
	}
	rec, reader, err := s.wizard.AttachmentContent(r.Context(), areaID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrAttachmentNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to open attachment", http.StatusInternalServerError)
		s.logger.Error("open attachment failed", "area_id", r.PathValue("area"), "error", err)
		return
	}
	defer closeWithLog(reader, "attachment reader", s.logger)

	contentType := rec.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.Name}))
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write attachment failed", "area_id", rec.AreaID, "attachment_id", rec.ID, "error", err)
	}
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.wizard.AreaOverviews(r.Context())); err != nil {
		s.logger.Error("encode areas failed", "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
