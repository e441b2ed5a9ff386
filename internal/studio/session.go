package studio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"ad-creative-studio/internal/artifact"
	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
)

const defaultMaxUploadBytes = 20 << 20

const (
	msgUploading  = "Enviando imagem..."
	msgGenerating = "A IA está criando seu anúncio..."
	msgRefining   = "Ajustando imagem com IA..."
	msgBusy       = "Já existe uma operação em andamento. Aguarde a conclusão."
)

// Generator produces artifacts. *gemini.Client satisfies it.
type Generator interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Artifact, error)
	GenerateVideo(ctx context.Context, req gemini.VideoRequest) (gemini.Artifact, error)
}

// Objects resolves and releases object URLs. *artifact.Store satisfies it.
type Objects interface {
	Lookup(url string) (artifact.Object, error)
	Revoke(url string)
}

type Options struct {
	Generator      Generator
	Objects        Objects
	Logger         *slog.Logger
	DownloadPrefix string
	MaxUploadBytes int64
	Now            func() time.Time
}

// Session is one user's studio: the ad model, its loading state and the
// generator bound to it. All methods are safe for concurrent use; state
// transitions happen under one lock so readers never see half an update.
type Session struct {
	mu      sync.Mutex
	model   *creative.Model
	state   creative.LoadingState
	lineage int

	gen      Generator
	objects  Objects
	logger   *slog.Logger
	prefix   string
	maxBytes int64
	now      func() time.Time
}

type Snapshot struct {
	Config         creative.AdConfig       `json:"config"`
	History        []creative.HistoryEntry `json:"history"`
	State          creative.LoadingState   `json:"state"`
	CTAMode        creative.CTAMode        `json:"ctaMode"`
	SiteURL        string                  `json:"siteUrl"`
	WhatsAppNumber string                  `json:"whatsappNumber"`
}

type Download struct {
	Name     string
	MIMEType string
	Data     []byte
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		model:    creative.NewModel(),
		state:    creative.LoadingState{Status: creative.StatusIdle},
		gen:      opts.Generator,
		objects:  opts.Objects,
		logger:   logger,
		prefix:   opts.DownloadPrefix,
		maxBytes: maxBytes,
		now:      now,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Config:         s.model.Config(),
		History:        s.model.History(),
		State:          s.state,
		CTAMode:        s.model.CTAMode(),
		SiteURL:        s.model.SiteURL(),
		WhatsAppNumber: s.model.WhatsAppNumber(),
	}
}

func (s *Session) Config() creative.AdConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Config()
}

func (s *Session) State() creative.LoadingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the model under the session lock.
func (s *Session) Update(fn func(m *creative.Model)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.model)
	return s.snapshotLocked()
}

// UploadProduct reads an image and makes it the product photo. Generated
// artifacts and the history of the previous product are discarded.
func (s *Session) UploadProduct(ctx context.Context, r io.Reader) error {
	uri, err := s.readUpload(ctx, r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	dropped := s.model.SetProductImage(uri)
	s.lineage++
	s.state = creative.LoadingState{Status: creative.StatusIdle}
	s.mu.Unlock()

	s.revoke(dropped)
	s.logger.Info("product image set", "bytes", len(uri), "dropped_history", len(dropped))
	return nil
}

func (s *Session) UploadLogo(ctx context.Context, r io.Reader) error {
	uri, err := s.readUpload(ctx, r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.model.SetLogoImage(uri)
	s.state = creative.LoadingState{Status: creative.StatusIdle}
	s.mu.Unlock()
	return nil
}

// Reset starts a fresh project. A generation still in flight is discarded
// when it returns.
func (s *Session) Reset() {
	s.mu.Lock()
	entries := s.artifactsLocked()
	s.model = creative.NewModel()
	s.lineage++
	s.state = creative.LoadingState{Status: creative.StatusIdle}
	s.mu.Unlock()

	s.revoke(entries)
}

func (s *Session) RemoveLogo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.SetLogoImage("")
}

func (s *Session) readUpload(ctx context.Context, r io.Reader) (string, error) {
	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return "", &gemini.Error{Kind: gemini.ErrBusy, Message: msgBusy}
	}
	s.state = creative.LoadingState{Status: creative.StatusUploading, Message: msgUploading}
	s.mu.Unlock()

	uri, err := encodeImage(ctx, r, s.maxBytes)

	if err != nil {
		s.fail(err)
		return "", err
	}
	return uri, nil
}

func encodeImage(ctx context.Context, r io.Reader, maxBytes int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", &gemini.Error{Kind: gemini.ErrValidation, Message: "Falha ao ler a imagem.", Err: err}
	}
	if len(data) == 0 {
		return "", gemini.Validation("A imagem enviada está vazia.")
	}
	if int64(len(data)) > maxBytes {
		return "", gemini.Validation(fmt.Sprintf("A imagem excede o limite de %d MB.", maxBytes>>20))
	}

	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", gemini.Validation("O arquivo enviado não é uma imagem.")
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Generate creates a new ad from the product photo using the configured
// output type, theme and device.
func (s *Session) Generate(ctx context.Context) (creative.HistoryEntry, error) {
	s.mu.Lock()
	cfg := s.model.Config()
	if cfg.ProductImage == "" {
		s.mu.Unlock()
		return creative.HistoryEntry{}, gemini.Validation("Por favor, envie uma foto do produto primeiro.")
	}
	if s.state.Busy() {
		s.mu.Unlock()
		return creative.HistoryEntry{}, &gemini.Error{Kind: gemini.ErrBusy, Message: msgBusy}
	}
	s.state = creative.LoadingState{Status: creative.StatusGenerating, Message: msgGenerating}
	lineage := s.lineage
	s.mu.Unlock()

	var (
		art gemini.Artifact
		err error
	)
	if cfg.OutputType == creative.OutputVideo {
		art, err = s.gen.GenerateVideo(ctx, gemini.VideoRequest{
			Source:      cfg.ProductImage,
			Instruction: cfg.Narrative,
			Theme:       cfg.Theme,
			AspectRatio: cfg.Device.AspectRatio(),
		})
	} else {
		art, err = s.gen.GenerateImage(ctx, gemini.ImageRequest{
			Source:      cfg.ProductImage,
			Instruction: cfg.Narrative,
			Theme:       cfg.Theme,
			Mode:        gemini.ModeGenerate,
			AspectRatio: cfg.Device.AspectRatio(),
		})
	}
	return s.finish(lineage, art, err)
}

// Refine edits the current generated image with a free-text instruction.
func (s *Session) Refine(ctx context.Context, instruction string) (creative.HistoryEntry, error) {
	instruction = strings.TrimSpace(instruction)

	s.mu.Lock()
	cfg := s.model.Config()
	switch {
	case cfg.GeneratedImage == "":
		s.mu.Unlock()
		return creative.HistoryEntry{}, gemini.Validation("Gere uma imagem antes de refinar.")
	case instruction == "":
		s.mu.Unlock()
		return creative.HistoryEntry{}, gemini.Validation("Digite o que deseja alterar na imagem.")
	case s.state.Busy():
		s.mu.Unlock()
		return creative.HistoryEntry{}, &gemini.Error{Kind: gemini.ErrBusy, Message: msgBusy}
	}
	s.state = creative.LoadingState{Status: creative.StatusGenerating, Message: msgRefining}
	lineage := s.lineage
	s.mu.Unlock()

	art, err := s.gen.GenerateImage(ctx, gemini.ImageRequest{
		Source:      cfg.GeneratedImage,
		Instruction: instruction,
		Theme:       cfg.Theme,
		Mode:        gemini.ModeEdit,
		AspectRatio: cfg.Device.AspectRatio(),
	})
	return s.finish(lineage, art, err)
}

func (s *Session) finish(lineage int, art gemini.Artifact, err error) (creative.HistoryEntry, error) {
	kind := art.Kind
	if kind == "" {
		kind = creative.OutputImage
	}
	entry := creative.HistoryEntry{URL: art.URL, Type: kind}

	s.mu.Lock()
	if lineage != s.lineage {
		// The project was replaced while generating; its state belongs to the new one.
		s.mu.Unlock()
		if err != nil {
			s.logger.Info("stale generation failed", "err", err)
			return creative.HistoryEntry{}, err
		}
		s.revoke([]creative.HistoryEntry{entry})
		return creative.HistoryEntry{}, gemini.Validation("O projeto mudou durante a geração. Gere novamente.")
	}
	if err != nil {
		s.state = creative.LoadingState{Status: creative.StatusError, Message: gemini.UserMessage(err)}
		s.mu.Unlock()
		s.logger.Warn("generation failed", "err", err)
		return creative.HistoryEntry{}, err
	}
	if art.Text != "" {
		s.logger.Debug("generation returned text alongside the artifact", "text", art.Text)
	}
	s.model.ApplyGenerationResult(entry.URL, entry.Type)
	s.state = creative.LoadingState{Status: creative.StatusSuccess}
	s.mu.Unlock()

	s.logger.Info("generation applied", "type", entry.Type)
	return entry, nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = creative.LoadingState{Status: creative.StatusError, Message: gemini.UserMessage(err)}
	s.mu.Unlock()
}

// SelectHistory makes history entry i the current result.
func (s *Session) SelectHistory(i int) (creative.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.model.SelectHistory(i)
	if !ok {
		return creative.HistoryEntry{}, gemini.Validation("Item do histórico não encontrado.")
	}
	return entry, nil
}

// Download returns the bytes of the current artifact and its file name.
func (s *Session) Download() (Download, error) {
	s.mu.Lock()
	entry, ok := s.model.CurrentArtifact()
	s.mu.Unlock()
	if !ok {
		return Download{}, gemini.Validation("Nada para baixar.")
	}

	data, mimeType, err := s.resolve(entry.URL)
	if err != nil {
		return Download{}, err
	}
	return Download{
		Name:     creative.DownloadName(s.prefix, entry.Type, s.now()),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

func (s *Session) resolve(url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		header, payload, ok := strings.Cut(url, ",")
		if !ok {
			return nil, "", gemini.Validation("Arquivo gerado inválido.")
		}
		mimeType := strings.TrimPrefix(header, "data:")
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", &gemini.Error{Kind: gemini.ErrValidation, Message: "Arquivo gerado inválido.", Err: err}
		}
		return data, mimeType, nil
	}

	if s.objects == nil {
		return nil, "", gemini.Validation("Arquivo gerado não está mais disponível.")
	}
	obj, err := s.objects.Lookup(url)
	if err != nil {
		return nil, "", &gemini.Error{Kind: gemini.ErrValidation, Message: "Arquivo gerado não está mais disponível.", Err: err}
	}
	return obj.Data, obj.MIMEType, nil
}

// Close releases every object URL the session still references.
func (s *Session) Close() {
	s.mu.Lock()
	entries := s.artifactsLocked()
	s.mu.Unlock()
	s.revoke(entries)
}

func (s *Session) artifactsLocked() []creative.HistoryEntry {
	entries := s.model.History()
	if cur, ok := s.model.CurrentArtifact(); ok {
		entries = append(entries, cur)
	}
	return entries
}

func (s *Session) revoke(entries []creative.HistoryEntry) {
	if s.objects == nil {
		return
	}
	for _, e := range entries {
		s.objects.Revoke(e.URL)
	}
}
