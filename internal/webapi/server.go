package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ad-creative-studio/internal/artifact"
	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
	"ad-creative-studio/internal/session"
)

const defaultMaxUploadBytes = 25 << 20

type Options struct {
	Sessions       *session.Store
	Objects        *artifact.Store
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// Server exposes the studio over HTTP. It keeps no state of its own beyond
// the session and object stores it is given.
type Server struct {
	sessions       *session.Store
	objects        *artifact.Store
	logger         *slog.Logger
	requestTimeout time.Duration
	maxUploadBytes int64
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// Diagnostic is text the model returned instead of an artifact.
	Diagnostic string `json:"diagnostic,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	objects := opts.Objects
	if objects == nil {
		objects = artifact.NewStore(artifact.Options{})
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	return &Server{
		sessions:       sessions,
		objects:        objects,
		logger:         logger,
		requestTimeout: timeout,
		maxUploadBytes: maxUpload,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, s.withLogging)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/catalog", s.handleCatalog)
	r.Get(artifact.PathPrefix+"{name}", s.handleObject)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Patch("/config", s.handlePatchConfig)
			r.Post("/product", s.handleUpload(uploadProduct))
			r.Post("/logo", s.handleUpload(uploadLogo))
			r.Delete("/logo", s.handleRemoveLogo)
			r.Post("/generate", s.handleGenerate)
			r.Post("/refine", s.handleRefine)
			r.Post("/reset", s.handleReset)
			r.Post("/history/{index}", s.handleSelectHistory)
			r.Get("/preview", s.handlePreview)
			r.Get("/preview.html", s.handlePreviewHTML)
			r.Get("/download", s.handleDownload)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"themes":      creative.Themes(),
		"devices":     creative.Devices(),
		"outputTypes": creative.OutputTypes(),
		"ctaModes": []creative.NamedOption{
			{Key: string(creative.CTASite), Name: "Site"},
			{Key: string(creative.CTAWhatsApp), Name: "WhatsApp"},
		},
	})
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.objects.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: "objeto não encontrado"})
		return
	}
	w.Header().Set("content-type", obj.MIMEType)
	http.ServeContent(w, r, obj.Name, obj.CreatedAt, bytes.NewReader(obj.Data))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps generation error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := ""
	switch {
	case errors.Is(err, gemini.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, gemini.ErrBusy):
		status, kind = http.StatusConflict, "busy"
	case errors.Is(err, gemini.ErrMissingCredential):
		status, kind = http.StatusServiceUnavailable, "missing_credential"
	case errors.Is(err, gemini.ErrInvalidCredential):
		status, kind = http.StatusServiceUnavailable, "invalid_credential"
	case errors.Is(err, gemini.ErrGenerationEmpty):
		status, kind = http.StatusUnprocessableEntity, "generation_empty"
	case errors.Is(err, gemini.ErrTransport):
		status, kind = http.StatusBadGateway, "transport"
	}

	body := apiError{Error: gemini.UserMessage(err), Kind: kind}
	var gerr *gemini.Error
	if errors.As(err, &gerr) {
		body.Diagnostic = gerr.Diagnostic
	}
	writeJSON(w, status, body)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
