package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ad-creative-studio/internal/artifact"
	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
	"ad-creative-studio/internal/preview"
	"ad-creative-studio/internal/session"
	"ad-creative-studio/internal/studio"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type stubGenerator struct {
	art gemini.Artifact
	err error
}

func (g *stubGenerator) GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.Artifact, error) {
	return g.art, g.err
}

func (g *stubGenerator) GenerateVideo(ctx context.Context, req gemini.VideoRequest) (gemini.Artifact, error) {
	return g.art, g.err
}

type fixture struct {
	srv     *httptest.Server
	gen     *stubGenerator
	objects *artifact.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gen := &stubGenerator{art: gemini.Artifact{URL: "data:image/png;base64,QUJD", Kind: creative.OutputImage}}
	objects := artifact.NewStore(artifact.Options{})
	sessions := session.NewStore(session.Options{NewStudio: func() *studio.Session {
		return studio.New(studio.Options{Generator: gen, Objects: objects, DownloadPrefix: "anuncio"})
	}})
	srv := httptest.NewServer(New(Options{Sessions: sessions, Objects: objects}).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, gen: gen, objects: objects}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	return f.do(t, method, path, r, "application/json")
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	resp := f.doJSON(t, http.MethodPost, "/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var out sessionResponse
	decode(t, resp, &out)
	if out.ID == "" || out.Config.Headline != creative.DefaultHeadline {
		t.Fatalf("created = %+v", out)
	}
	return out.ID
}

func (f *fixture) uploadProduct(t *testing.T, id string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "produto.png")
	fw.Write(pngBytes)
	mw.Close()

	resp := f.do(t, http.MethodPost, "/api/sessions/"+id+"/product", &buf, mw.FormDataContentType())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthAndCatalog(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, http.MethodGet, "/healthz", nil, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}

	var catalog struct {
		Themes  []creative.NamedOption `json:"themes"`
		Devices []creative.NamedOption `json:"devices"`
	}
	decode(t, f.do(t, http.MethodGet, "/api/catalog", nil, ""), &catalog)
	if len(catalog.Themes) != 6 || len(catalog.Devices) != 3 {
		t.Fatalf("catalog = %+v", catalog)
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(t, http.MethodGet, "/api/sessions/nope", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGenerateFlow(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	resp := f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/generate", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("generate without product = %d", resp.StatusCode)
	}
	var apiErr apiError
	decode(t, resp, &apiErr)
	if apiErr.Kind != "validation" || apiErr.Error == "" {
		t.Fatalf("error body = %+v", apiErr)
	}

	f.uploadProduct(t, id)

	resp = f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/generate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate = %d", resp.StatusCode)
	}
	var out sessionResponse
	decode(t, resp, &out)
	if out.Config.GeneratedImage != "data:image/png;base64,QUJD" || len(out.History) != 1 || out.State.Status != creative.StatusSuccess {
		t.Fatalf("after generate = %+v", out)
	}

	var view preview.View
	decode(t, f.do(t, http.MethodGet, "/api/sessions/"+id+"/preview", nil, ""), &view)
	if view.Badge != preview.BadgeGenerated || view.Overlay == nil {
		t.Fatalf("preview = %+v", view)
	}
	decode(t, f.do(t, http.MethodGet, "/api/sessions/"+id+"/preview?original=1", nil, ""), &view)
	if view.Badge != preview.BadgeOriginal || view.Overlay != nil {
		t.Fatalf("original preview = %+v", view)
	}

	resp = f.do(t, http.MethodGet, "/api/sessions/"+id+"/preview.html", nil, "")
	html, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(html), preview.BadgeGenerated) {
		t.Fatalf("html preview missing badge")
	}

	resp = f.do(t, http.MethodGet, "/api/sessions/"+id+"/download", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "ABC" {
		t.Fatalf("download body = %q", data)
	}
	if cd := resp.Header.Get("content-disposition"); !strings.Contains(cd, "anuncio-") || !strings.Contains(cd, ".png") {
		t.Fatalf("content-disposition = %q", cd)
	}
}

func TestGenerateErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{&gemini.Error{Kind: gemini.ErrBusy, Message: "ocupado"}, http.StatusConflict, "busy"},
		{&gemini.Error{Kind: gemini.ErrMissingCredential, Message: "sem chave"}, http.StatusServiceUnavailable, "missing_credential"},
		{&gemini.Error{Kind: gemini.ErrInvalidCredential, Message: "API key not valid"}, http.StatusServiceUnavailable, "invalid_credential"},
		{&gemini.Error{Kind: gemini.ErrGenerationEmpty, Message: "vazio", Diagnostic: "no"}, http.StatusUnprocessableEntity, "generation_empty"},
		{&gemini.Error{Kind: gemini.ErrTransport, Message: "Erro na IA: x"}, http.StatusBadGateway, "transport"},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			f := newFixture(t)
			id := f.createSession(t)
			f.uploadProduct(t, id)
			f.gen.err = tc.err

			resp := f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/generate", nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			var body apiError
			decode(t, resp, &body)
			if body.Kind != tc.kind || body.Error != gemini.UserMessage(tc.err) {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

func TestPatchConfig(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	resp := f.doJSON(t, http.MethodPatch, "/api/sessions/"+id+"/config", map[string]any{
		"headline":       "Novo",
		"theme":          "luxury",
		"device":         "desktop",
		"whatsappNumber": "(11) 99999-8888",
		"ctaMode":        "whatsapp",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch = %d", resp.StatusCode)
	}
	var out sessionResponse
	decode(t, resp, &out)
	if out.Config.Headline != "Novo" || out.Config.Theme != creative.ThemeLuxury || out.Config.Device != creative.DeviceDesktop {
		t.Fatalf("config = %+v", out.Config)
	}
	if out.Config.CTALink != "https://wa.me/5511999998888" || out.CTAMode != creative.CTAWhatsApp {
		t.Fatalf("cta = %q mode %q", out.Config.CTALink, out.CTAMode)
	}

	resp = f.doJSON(t, http.MethodPatch, "/api/sessions/"+id+"/config", map[string]any{
		"headline": "Não aplicar",
		"theme":    "gotico",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad theme = %d", resp.StatusCode)
	}
	decode(t, f.do(t, http.MethodGet, "/api/sessions/"+id, nil, ""), &out)
	if out.Config.Headline != "Novo" {
		t.Fatalf("rejected patch was partially applied: %q", out.Config.Headline)
	}
}

func TestRefineAndHistory(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.uploadProduct(t, id)
	f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/generate", nil)

	f.gen.art = gemini.Artifact{URL: "data:image/png;base64,REVG", Kind: creative.OutputImage}
	resp := f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/refine", refineRequest{Instruction: "mais contraste"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refine = %d", resp.StatusCode)
	}

	resp = f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/history/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select = %d", resp.StatusCode)
	}
	var out sessionResponse
	decode(t, resp, &out)
	if out.Config.GeneratedImage != "data:image/png;base64,QUJD" || len(out.History) != 2 {
		t.Fatalf("after select = %+v", out)
	}

	if resp := f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/history/9", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out of range = %d", resp.StatusCode)
	}
	if resp := f.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/history/x", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad index = %d", resp.StatusCode)
	}
}

func TestObjectsAreServed(t *testing.T) {
	f := newFixture(t)
	url, _ := f.objects.Put([]byte("mp4-data"), "video/mp4")

	resp := f.do(t, http.MethodGet, url, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("object = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("content-type"); ct != "video/mp4" {
		t.Fatalf("content-type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "mp4-data" {
		t.Fatalf("body = %q", body)
	}

	if resp := f.do(t, http.MethodGet, artifact.PathPrefix+"missing.mp4", nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing object = %d", resp.StatusCode)
	}
}
