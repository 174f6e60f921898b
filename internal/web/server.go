package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vbonduro/areawizard/internal/domain"
	"github.com/vbonduro/areawizard/internal/service"
)

type Server struct {
	wizard    *service.WizardService
	sessions  *Sessions
	templates embed.FS
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(wizard *service.WizardService, sessions *Sessions, tmpl embed.FS, logger *slog.Logger) *Server {
	s := &Server{
		wizard:    wizard,
		sessions:  sessions,
		templates: tmpl,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"areaIcon":  areaIcon,
			"kindIcon":  kindIcon,
			"humanSize": humanSize,
			"inc":       func(i int) int { return i + 1 },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/wizard", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /wizard", s.handleShowWizard)
	s.mux.HandleFunc("POST /wizard/login", s.handleLogin)
	s.mux.HandleFunc("POST /wizard/area", s.handleSelectArea)
	s.mux.HandleFunc("GET /wizard/process-fields", s.handleProcessFields)
	s.mux.HandleFunc("POST /wizard/process", s.handleSelectProcess)
	s.mux.HandleFunc("POST /wizard/attachments", s.handleUploadAttachment)
	s.mux.HandleFunc("POST /wizard/attachments/{id}/delete", s.handleDeleteAttachment)
	s.mux.HandleFunc("POST /wizard/description", s.handleSubmitDescription)
	s.mux.HandleFunc("POST /wizard/result/draft", s.handleSaveDraft)
	s.mux.HandleFunc("POST /wizard/result", s.handleSubmitResult)
	s.mux.HandleFunc("POST /wizard/back", s.handleBack)
	s.mux.HandleFunc("POST /wizard/restart", s.handleRestart)
	s.mux.HandleFunc("GET /attachments/{area}/{id}", s.handleGetAttachment)
	s.mux.HandleFunc("GET /api/areas", s.handleListAreas)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob:; "+
				"media-src 'self' blob:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// Handler returns a configured *http.Server for addr; the caller owns its
// lifecycle.
func (s *Server) Handler(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// ParseFS registers both the file-basename template and any {{define}} blocks.
	// Find the {{define}} template: it is the one whose name is neither "" nor
	// the file basename.
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// areaIcon returns an emoji for the area.
func areaIcon(a domain.Area) string {
	switch a.ID {
	case domain.AreaSmallMining:
		return "⛏️"
	case domain.AreaBlastingService:
		return "💥"
	case domain.AreaHauling:
		return "🚚"
	case domain.AreaNotAvailable:
		return "➕"
	}
	return "📍"
}

func kindIcon(k domain.AttachmentKind) string {
	switch k {
	case domain.KindPhoto:
		return "📷"
	case domain.KindImage:
		return "🖼️"
	case domain.KindAudio:
		return "🎤"
	default:
		return "📄"
	}
}

// humanSize formats a byte count as B, KB or MB.
func humanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
