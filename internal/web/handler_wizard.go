package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/flow"
	"github.com/vbonduro/areawizard/internal/service"
)

// step is one entry of the progress indicator.
type step struct {
	Label  string
	Active bool
	Done   bool
}

var stepLabels = map[flow.Screen]string{
	flow.ScreenLogin:            "Ingreso",
	flow.ScreenAreaSelection:    "Área",
	flow.ScreenProcessSelection: "Proceso",
	flow.ScreenDescription:      "Descripción",
	flow.ScreenResult:           "Resultado",
}

// pageData is the view model shared by every wizard page.
type pageData struct {
	Screen string
	Steps  []step
	Flash  flash
	User   string

	Areas        []domain.Area
	SelectedArea string

	ProcessAreas      []domain.Area
	Process           flow.ProcessSelectionPayload
	ProcessOptions    []service.Option
	SubprocessOptions []service.Option

	IsNewArea         bool
	AreaName          string
	Title             string
	Description       string
	Attachments       attachmentsView
	MaxDescriptionLen int

	Draft        flow.ResultPayload
	MaxResultLen int
	Summary      *service.Summary

	Username string
}

type attachmentsView struct {
	AreaID  string
	Items   []domain.Attachment
	Pending bool
	Min     int
	Flash   flash
}

func (s *Server) buildPage(ctx context.Context, sess *session, form url.Values, summary *service.Summary) pageData {
	c := sess.controller
	opts := s.wizard.Options()
	current := c.Current()

	data := pageData{
		Screen:            current.String(),
		Flash:             sess.takeFlash(),
		User:              c.CurrentUser(ctx),
		MaxDescriptionLen: opts.MaxDescriptionLen,
		MaxResultLen:      opts.MaxResultLen,
		Summary:           summary,
	}
	reached := true
	for _, sc := range flow.Screens {
		if sc == current {
			reached = false
			data.Steps = append(data.Steps, step{Label: stepLabels[sc], Active: true})
			continue
		}
		data.Steps = append(data.Steps, step{Label: stepLabels[sc], Done: reached})
	}

	record := func(screen flow.Screen) flow.Record { return c.ScreenData(ctx, screen) }
	str := func(rec flow.Record, key string) string {
		v, _ := rec[key].(string)
		return v
	}

	switch current {
	case flow.ScreenLogin:
		data.Username = str(record(flow.ScreenLogin), "username")
		if form.Has("username") {
			data.Username = form.Get("username")
		}

	case flow.ScreenAreaSelection:
		data.Areas = s.wizard.Areas(ctx)
		data.SelectedArea = str(record(flow.ScreenAreaSelection), "selectedArea")
		if form.Has("area") {
			data.SelectedArea = form.Get("area")
		}

	case flow.ScreenProcessSelection:
		data.ProcessAreas = s.wizard.ProcessAreas(ctx)
		p := s.wizard.ProcessDefaults(ctx, c)
		if form.Has("area") {
			p = flow.ProcessSelectionPayload{Area: form.Get("area"), Process: form.Get("process"), Subprocess: form.Get("subprocess")}
		}
		data.Process, data.ProcessOptions, data.SubprocessOptions = processFields(p)

	case flow.ScreenDescription:
		desc := record(flow.ScreenDescription)
		sel := record(flow.ScreenAreaSelection)
		data.IsNewArea, _ = sel["isNewArea"].(bool)
		data.AreaName = str(sel, "areaName")
		if !data.IsNewArea {
			if id := str(record(flow.ScreenProcessSelection), "area"); id != "" {
				data.AreaName = s.wizard.AreaName(ctx, id)
			}
		}
		data.Title = str(desc, "title")
		data.Description = str(desc, "description")
		if form.Has("description") {
			data.Title = form.Get("title")
			data.Description = form.Get("description")
		}
		data.Attachments = s.attachments(ctx, sess)

	case flow.ScreenResult:
		_, data.AreaName = s.wizard.ResultArea(ctx, c)
		data.Draft = s.wizard.ResultDraft(ctx, c)
		if form.Has("result") || form.Has("observation") {
			data.Draft = flow.ResultPayload{Result: form.Get("result"), Observation: form.Get("observation")}
		}
	}
	return data
}

func (s *Server) attachments(ctx context.Context, sess *session) attachmentsView {
	id, pending := s.wizard.WorkingArea(ctx, sess.controller)
	return attachmentsView{
		AreaID:  id,
		Items:   s.wizard.Attachments(ctx, sess.controller),
		Pending: pending,
		Min:     s.wizard.Options().MinNewAreaAttachments,
	}
}

// processFields narrows p to a consistent selection and returns the options
// for both dependent selects.
func processFields(p flow.ProcessSelectionPayload) (flow.ProcessSelectionPayload, []service.Option, []service.Option) {
	processes := service.ProcessOptions(p.Area)
	if !hasValue(processes, p.Process) && len(processes) > 0 {
		p.Process = processes[0].Value
	}
	subprocesses := service.SubprocessOptions(p.Process)
	if !hasValue(subprocesses, p.Subprocess) {
		p.Subprocess = ""
	}
	return p, processes, subprocesses
}

func hasValue(opts []service.Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func (s *Server) renderWizard(w http.ResponseWriter, r *http.Request, sess *session, status int, summary *service.Summary) {
	data := s.buildPage(r.Context(), sess, r.PostForm, summary)
	if err := s.renderPage(w, status, data,
		"base.html",
		"pages/"+data.Screen+".html",
		"partials/attachments.html",
		"partials/process_fields.html",
		"partials/summary.html",
	); err != nil {
		s.logger.Error("render page failed", "screen", data.Screen, "error", err)
	}
}

// finish redirects back to the wizard after a successful submit, or
// re-renders the current screen with the failure.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, sess *session, err error, success string) {
	if err != nil {
		s.renderFailure(w, r, sess, err)
		return
	}
	if success != "" {
		sess.setFlash("success", success)
	}
	http.Redirect(w, r, "/wizard", http.StatusSeeOther)
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, sess *session, err error) {
	var verr *service.ValidationError
	var serr *service.SubmitError
	switch {
	case errors.As(err, &verr):
		sess.setFlash("warning", verr.Message)
		s.renderWizard(w, r, sess, http.StatusUnprocessableEntity, nil)
	case errors.As(err, &serr):
		sess.setFlash("error", serr.Error())
		s.renderWizard(w, r, sess, http.StatusBadGateway, nil)
	case errors.Is(err, context.Canceled):
		s.logger.Info("request cancelled", "path", r.URL.Path)
	default:
		s.logger.Error("wizard request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleShowWizard(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	s.renderWizard(w, r, sess, http.StatusOK, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	err := s.wizard.Login(r.Context(), sess.controller, r.PostForm.Get("username"), r.PostForm.Get("password"))
	s.finish(w, r, sess, err, "Inicio de sesión exitoso")
}

func (s *Server) handleSelectArea(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	areaID := r.PostForm.Get("area")
	err := s.wizard.SelectArea(r.Context(), sess.controller, areaID)
	s.finish(w, r, sess, err, "Área seleccionada: "+s.wizard.AreaName(r.Context(), areaID))
}

// handleProcessFields re-renders the process and subprocess selects when the
// area or process changes.
func (s *Server) handleProcessFields(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var data pageData
	data.Process, data.ProcessOptions, data.SubprocessOptions = processFields(flow.ProcessSelectionPayload{
		Area:       q.Get("area"),
		Process:    q.Get("process"),
		Subprocess: q.Get("subprocess"),
	})
	if err := s.renderPartial(w, "partials/process_fields.html", data); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleSelectProcess(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	err := s.wizard.SelectProcess(r.Context(), sess.controller, service.ProcessInput{
		Area:       r.PostForm.Get("area"),
		Process:    r.PostForm.Get("process"),
		Subprocess: r.PostForm.Get("subprocess"),
	})
	s.finish(w, r, sess, err, "Proceso guardado exitosamente")
}

func (s *Server) handleSubmitDescription(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	err := s.wizard.SubmitDescription(r.Context(), sess.controller, service.DescriptionInput{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
	})
	s.finish(w, r, sess, err, "Descripción guardada exitosamente")
}

// handleSaveDraft is the result screen autosave.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if _, err := s.wizard.SaveDraft(r.Context(), sess.controller, service.ResultInput{
		Result:      r.PostForm.Get("result"),
		Observation: r.PostForm.Get("observation"),
	}); err != nil {
		s.logger.Error("save draft failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	summary, err := s.wizard.SubmitResult(r.Context(), sess.controller, service.ResultInput{
		Result:      r.PostForm.Get("result"),
		Observation: r.PostForm.Get("observation"),
	})
	if err != nil {
		s.renderFailure(w, r, sess, err)
		return
	}
	sess.setFlash("success", "Proceso completado exitosamente")
	s.renderWizard(w, r, sess, http.StatusOK, summary)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	sess.controller.Back(r.Context())
	http.Redirect(w, r, "/wizard", http.StatusSeeOther)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.forRequest(w, r)
	s.wizard.Restart(r.Context(), sess.controller)
	sess.setFlash("info", "Proceso reiniciado")
	http.Redirect(w, r, "/wizard", http.StatusSeeOther)
}
