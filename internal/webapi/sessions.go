package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
	"ad-creative-studio/internal/preview"
	"ad-creative-studio/internal/session"
	"ad-creative-studio/internal/studio"
)

type sessionResponse struct {
	ID string `json:"id"`
	studio.Snapshot
}

// configPatch carries the fields a client wants to change; nil means keep.
type configPatch struct {
	Narrative      *string `json:"narrative"`
	Headline       *string `json:"headline"`
	CTAText        *string `json:"ctaText"`
	CTAMode        *string `json:"ctaMode"`
	SiteURL        *string `json:"siteUrl"`
	WhatsAppNumber *string `json:"whatsappNumber"`
	Theme          *string `json:"theme"`
	Device         *string `json:"device"`
	OutputType     *string `json:"outputType"`
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "sessão não encontrada"})
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "sessão não encontrada"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var patch configPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "payload inválido", Kind: "validation"})
		return
	}
	apply, err := patch.compile()
	if err != nil {
		writeError(w, err)
		return
	}

	snap := sess.Studio.Update(apply)
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: snap})
}

// compile validates every field before anything is applied, so a bad patch
// leaves the project untouched.
func (p configPatch) compile() (func(*creative.Model), error) {
	var steps []func(*creative.Model)

	if p.Theme != nil {
		theme, ok := creative.ParseTheme(*p.Theme)
		if !ok {
			return nil, gemini.Validation(fmt.Sprintf("Tema desconhecido: %q.", *p.Theme))
		}
		steps = append(steps, func(m *creative.Model) { m.SetTheme(theme) })
	}
	if p.Device != nil {
		device, ok := creative.ParseDevice(*p.Device)
		if !ok {
			return nil, gemini.Validation(fmt.Sprintf("Dispositivo desconhecido: %q.", *p.Device))
		}
		steps = append(steps, func(m *creative.Model) { m.SetDevice(device) })
	}
	if p.OutputType != nil {
		out, ok := creative.ParseOutputType(*p.OutputType)
		if !ok {
			return nil, gemini.Validation(fmt.Sprintf("Formato desconhecido: %q.", *p.OutputType))
		}
		steps = append(steps, func(m *creative.Model) { m.SetOutputType(out) })
	}
	var mode *creative.CTAMode
	if p.CTAMode != nil {
		parsed, ok := creative.ParseCTAMode(*p.CTAMode)
		if !ok {
			return nil, gemini.Validation(fmt.Sprintf("Tipo de botão desconhecido: %q.", *p.CTAMode))
		}
		mode = &parsed
	}

	if p.Narrative != nil {
		v := *p.Narrative
		steps = append(steps, func(m *creative.Model) { m.SetNarrative(v) })
	}
	if p.Headline != nil {
		v := *p.Headline
		steps = append(steps, func(m *creative.Model) { m.SetHeadline(v) })
	}
	if p.CTAText != nil {
		v := *p.CTAText
		steps = append(steps, func(m *creative.Model) { m.SetCTAText(v) })
	}
	if p.SiteURL != nil {
		v := *p.SiteURL
		steps = append(steps, func(m *creative.Model) { m.SetSiteURL(v) })
	}
	if p.WhatsAppNumber != nil {
		v := *p.WhatsAppNumber
		steps = append(steps, func(m *creative.Model) { m.SetWhatsAppNumber(v) })
	}
	// The mode goes last so it picks up link values set in the same patch.
	if mode != nil {
		v := *mode
		steps = append(steps, func(m *creative.Model) { m.SetCTAMode(v) })
	}

	return func(m *creative.Model) {
		for _, step := range steps {
			step(m)
		}
	}, nil
}

type uploadTarget int

const (
	uploadProduct uploadTarget = iota
	uploadLogo
)

func (s *Server) handleUpload(target uploadTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookup(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "formulário inválido", Kind: "validation"})
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "imagem ausente", Kind: "validation"})
			return
		}
		defer file.Close()

		if err := s.upload(r.Context(), sess.Studio, target, file); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
	}
}

func (s *Server) upload(ctx context.Context, st *studio.Session, target uploadTarget, file multipart.File) error {
	if target == uploadLogo {
		return st.UploadLogo(ctx, file)
	}
	return st.UploadProduct(ctx, file)
}

func (s *Server) handleRemoveLogo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Studio.RemoveLogo()
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	if _, err := sess.Studio.Generate(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "payload inválido", Kind: "validation"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	if _, err := sess.Studio.Refine(ctx, req.Instruction); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Studio.Reset()
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "índice inválido", Kind: "validation"})
		return
	}
	if _, err := sess.Studio.SelectHistory(index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Snapshot: sess.Studio.Snapshot()})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, preview.Render(sess.Studio.Config(), previewOptions(r)))
}

func (s *Server) handlePreviewHTML(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	if err := preview.WriteHTML(w, preview.Render(sess.Studio.Config(), previewOptions(r))); err != nil {
		s.logger.Error("preview render failed", "session", sess.ID, "err", err)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	dl, err := sess.Studio.Download()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("content-type", dl.MIMEType)
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
	w.Header().Set("content-length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

func previewOptions(r *http.Request) preview.Options {
	return preview.Options{ShowOriginal: parseBool(r.URL.Query().Get("original"))}
}

func parseBool(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}
