package studio

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ad-creative-studio/internal/artifact"
	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
)

// A minimal PNG header is enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type fakeGenerator struct {
	images []gemini.ImageRequest
	videos []gemini.VideoRequest
	art    gemini.Artifact
	err    error
	block  chan struct{}
	hook   func()
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Artifact, error) {
	f.images = append(f.images, req)
	return f.result()
}

func (f *fakeGenerator) GenerateVideo(ctx context.Context, req gemini.VideoRequest) (gemini.Artifact, error) {
	f.videos = append(f.videos, req)
	return f.result()
}

func (f *fakeGenerator) result() (gemini.Artifact, error) {
	if f.hook != nil {
		f.hook()
	}
	if f.block != nil {
		<-f.block
	}
	return f.art, f.err
}

func newSession(t *testing.T, gen *fakeGenerator, store *artifact.Store) *Session {
	t.Helper()
	opts := Options{
		Generator:      gen,
		DownloadPrefix: "anuncio",
		Now:            func() time.Time { return time.UnixMilli(1700000000000) },
	}
	if store != nil {
		opts.Objects = store
	}
	return New(opts)
}

func upload(t *testing.T, s *Session) {
	t.Helper()
	if err := s.UploadProduct(context.Background(), bytes.NewReader(pngBytes)); err != nil {
		t.Fatalf("UploadProduct: %v", err)
	}
}

func TestUploadProductEncodesDataURI(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	upload(t, s)

	snap := s.Snapshot()
	if !strings.HasPrefix(snap.Config.ProductImage, "data:image/png;base64,") {
		t.Fatalf("product image = %.40q", snap.Config.ProductImage)
	}
	if snap.State.Status != creative.StatusIdle {
		t.Fatalf("state = %+v", snap.State)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	err := s.UploadProduct(context.Background(), strings.NewReader("just some text"))
	if !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if s.Config().ProductImage != "" {
		t.Fatal("product should stay unset")
	}
	if st := s.State(); st.Status != creative.StatusError || st.Message == "" {
		t.Fatalf("state = %+v", st)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	s := New(Options{Generator: &fakeGenerator{}, MaxUploadBytes: 8})
	err := s.UploadProduct(context.Background(), bytes.NewReader(pngBytes))
	if !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestGenerateWithoutProductLeavesStateAlone(t *testing.T) {
	gen := &fakeGenerator{}
	s := newSession(t, gen, nil)

	_, err := s.Generate(context.Background())
	if !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if st := s.State(); st.Status != creative.StatusIdle {
		t.Fatalf("state = %+v, want idle", st)
	}
	if len(gen.images) != 0 {
		t.Fatal("generator should not be called")
	}
}

func TestGenerateImageAppliesResult(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QUJD", Kind: creative.OutputImage}}
	s := newSession(t, gen, nil)
	upload(t, s)
	s.Update(func(m *creative.Model) {
		m.SetNarrative("na praia")
		m.SetTheme(creative.ThemeSummer)
		m.SetDevice(creative.DeviceDesktop)
	})

	entry, err := s.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if entry.URL != gen.art.URL {
		t.Fatalf("entry = %+v", entry)
	}

	req := gen.images[0]
	if req.Mode != gemini.ModeGenerate || req.AspectRatio != "16:9" || req.Theme != creative.ThemeSummer || req.Instruction != "na praia" {
		t.Fatalf("request = %+v", req)
	}

	snap := s.Snapshot()
	if snap.Config.GeneratedImage != gen.art.URL || len(snap.History) != 1 || snap.State.Status != creative.StatusSuccess {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGenerateVideoUsesVideoPath(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "/objects/a.mp4", Kind: creative.OutputVideo}}
	s := newSession(t, gen, nil)
	upload(t, s)
	s.Update(func(m *creative.Model) { m.SetOutputType(creative.OutputVideo) })

	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(gen.videos) != 1 || len(gen.images) != 0 {
		t.Fatalf("calls: images=%d videos=%d", len(gen.images), len(gen.videos))
	}
	cfg := s.Config()
	if cfg.VideoURL != "/objects/a.mp4" || cfg.GeneratedImage != "" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestGenerateFailureKeepsConfigAndHistory(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QQ==", Kind: creative.OutputImage}}
	s := newSession(t, gen, nil)
	upload(t, s)
	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	before := s.Snapshot()

	gen.err = &gemini.Error{Kind: gemini.ErrTransport, Message: "Erro na IA: boom"}
	_, err := s.Generate(context.Background())
	if !errors.Is(err, gemini.ErrTransport) {
		t.Fatalf("err = %v", err)
	}

	after := s.Snapshot()
	if after.Config != before.Config || len(after.History) != len(before.History) {
		t.Fatalf("failure changed the project: %+v", after)
	}
	if after.State.Status != creative.StatusError || after.State.Message != "Erro na IA: boom" {
		t.Fatalf("state = %+v", after.State)
	}
}

func TestGenerateWhileBusy(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QQ==", Kind: creative.OutputImage}, block: make(chan struct{})}
	s := newSession(t, gen, nil)
	upload(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background())
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for s.State().Status != creative.StatusGenerating {
		select {
		case <-deadline:
			t.Fatal("session never entered generating")
		case <-time.After(time.Millisecond):
		}
	}
	if st := s.State(); st.Message == "" {
		t.Fatal("generating state should carry a message")
	}

	if _, err := s.Generate(context.Background()); !errors.Is(err, gemini.ErrBusy) {
		t.Fatalf("second Generate err = %v, want ErrBusy", err)
	}
	if err := s.UploadLogo(context.Background(), bytes.NewReader(pngBytes)); !errors.Is(err, gemini.ErrBusy) {
		t.Fatalf("upload while generating err = %v, want ErrBusy", err)
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestResultAfterResetIsDiscarded(t *testing.T) {
	store := artifact.NewStore(artifact.Options{})
	url, _ := store.Put([]byte("mp4"), "video/mp4")

	gen := &fakeGenerator{art: gemini.Artifact{URL: url, Kind: creative.OutputVideo}}
	s := newSession(t, gen, store)
	upload(t, s)
	gen.hook = s.Reset

	if _, err := s.Generate(context.Background()); !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	snap := s.Snapshot()
	if snap.Config.VideoURL != "" || snap.Config.ProductImage != "" || len(snap.History) != 0 {
		t.Fatalf("stale result applied: %+v", snap)
	}
	if snap.State.Status != creative.StatusIdle {
		t.Fatalf("state = %+v", snap.State)
	}
	if store.Len() != 0 {
		t.Fatal("stale object not revoked")
	}
}

func TestFailureAfterResetLeavesNewProjectIdle(t *testing.T) {
	gen := &fakeGenerator{err: &gemini.Error{Kind: gemini.ErrTransport, Message: "Erro na IA: boom"}}
	s := newSession(t, gen, nil)
	upload(t, s)
	gen.hook = s.Reset

	if _, err := s.Generate(context.Background()); !errors.Is(err, gemini.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if st := s.State(); st.Status != creative.StatusIdle || st.Message != "" {
		t.Fatalf("state = %+v, want idle", st)
	}
}

func TestGenerateLogsAccompanyingText(t *testing.T) {
	var logs bytes.Buffer
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QUJD", Kind: creative.OutputImage, Text: "Aqui está seu anúncio"}}
	s := New(Options{
		Generator: gen,
		Logger:    slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	upload(t, s)

	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(logs.String(), "Aqui está seu anúncio") {
		t.Fatalf("text not logged:\n%s", logs.String())
	}
}

func TestRefine(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,MQ==", Kind: creative.OutputImage}}
	s := newSession(t, gen, nil)
	upload(t, s)

	if _, err := s.Refine(context.Background(), "mais luz"); !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("refine before generate err = %v", err)
	}
	if _, err := s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := s.Refine(context.Background(), "   "); !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("blank refine err = %v", err)
	}

	gen.art = gemini.Artifact{URL: "data:image/png;base64,Mg==", Kind: creative.OutputImage}
	if _, err := s.Refine(context.Background(), "mais luz"); err != nil {
		t.Fatalf("Refine: %v", err)
	}

	req := gen.images[len(gen.images)-1]
	if req.Mode != gemini.ModeEdit || req.Source != "data:image/png;base64,MQ==" || req.Instruction != "mais luz" {
		t.Fatalf("refine request = %+v", req)
	}
	snap := s.Snapshot()
	if len(snap.History) != 2 || snap.History[0].URL != "data:image/png;base64,Mg==" {
		t.Fatalf("history = %+v", snap.History)
	}
}

func TestSelectHistoryAndDownload(t *testing.T) {
	gen := &fakeGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QUJD", Kind: creative.OutputImage}}
	s := newSession(t, gen, nil)

	if _, err := s.Download(); !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("empty download err = %v", err)
	}

	upload(t, s)
	s.Generate(context.Background())
	gen.art = gemini.Artifact{URL: "data:image/png;base64,REVG", Kind: creative.OutputImage}
	s.Generate(context.Background())

	if _, err := s.SelectHistory(5); !errors.Is(err, gemini.ErrValidation) {
		t.Fatalf("out of range err = %v", err)
	}
	entry, err := s.SelectHistory(1)
	if err != nil || entry.URL != "data:image/png;base64,QUJD" {
		t.Fatalf("SelectHistory = %+v, %v", entry, err)
	}

	dl, err := s.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(dl.Data) != "ABC" || dl.MIMEType != "image/png" || dl.Name != "anuncio-1700000000000.png" {
		t.Fatalf("download = %+v", dl)
	}
	if n := len(s.Snapshot().History); n != 2 {
		t.Fatalf("history len = %d", n)
	}
}

func TestDownloadVideoFromStore(t *testing.T) {
	store := artifact.NewStore(artifact.Options{})
	url, _ := store.Put([]byte("mp4-data"), "video/mp4")
	gen := &fakeGenerator{art: gemini.Artifact{URL: url, Kind: creative.OutputVideo}}
	s := newSession(t, gen, store)
	upload(t, s)
	s.Update(func(m *creative.Model) { m.SetOutputType(creative.OutputVideo) })
	s.Generate(context.Background())

	dl, err := s.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(dl.Data) != "mp4-data" || dl.Name != "anuncio-1700000000000.mp4" {
		t.Fatalf("download = %+v", dl)
	}

	// A new product drops the lineage and releases its objects.
	upload(t, s)
	if store.Len() != 0 {
		t.Fatalf("objects left after reset: %d", store.Len())
	}
}
