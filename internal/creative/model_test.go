package creative

import (
	"fmt"
	"testing"
	"time"
)

func TestSetProductImageResetsLineage(t *testing.T) {
	m := NewModel()
	m.SetProductImage("data:image/png;base64,AAAA")
	m.ApplyGenerationResult("data:image/png;base64,BBBB", OutputImage)
	m.ApplyGenerationResult("/objects/v1.mp4", OutputVideo)

	dropped := m.SetProductImage("data:image/png;base64,CCCC")

	cfg := m.Config()
	if cfg.GeneratedImage != "" || cfg.VideoURL != "" {
		t.Fatalf("artifacts not cleared: %+v", cfg)
	}
	if len(m.History()) != 0 {
		t.Fatalf("history len = %d, want 0", len(m.History()))
	}
	if cfg.ProductImage != "data:image/png;base64,CCCC" {
		t.Fatalf("product image = %q", cfg.ProductImage)
	}
	if len(dropped) != 2 || dropped[0].URL != "/objects/v1.mp4" {
		t.Fatalf("dropped = %+v", dropped)
	}
}

func TestSetProductImageOnFreshModel(t *testing.T) {
	m := NewModel()
	if dropped := m.SetProductImage("data:image/jpeg;base64,AAAA"); len(dropped) != 0 {
		t.Fatalf("fresh model dropped %d entries", len(dropped))
	}
	if cfg := m.Config(); cfg.GeneratedImage != "" || cfg.VideoURL != "" {
		t.Fatalf("unexpected artifacts: %+v", cfg)
	}
}

func TestCTAModeToggleRestoresSiteURL(t *testing.T) {
	for _, site := range []string{"", "https://minhaloja.com/x", "minhaloja.com/x", "  spaced  "} {
		m := NewModel()
		m.SetSiteURL(site)
		m.SetWhatsAppNumber("(11) 99999-8888")

		m.SetCTAMode(CTAWhatsApp)
		if got := m.Config().CTALink; got != "https://wa.me/5511999998888" {
			t.Fatalf("whatsapp link = %q", got)
		}

		m.SetCTAMode(CTASite)
		if got := m.Config().CTALink; got != site {
			t.Fatalf("site link = %q, want %q", got, site)
		}
	}
}

func TestCTAModeTogglePreservesPhone(t *testing.T) {
	m := NewModel()
	m.SetCTAMode(CTAWhatsApp)
	m.SetWhatsAppNumber("+55 (21) 3333-4444")
	m.SetCTAMode(CTASite)
	m.SetSiteURL("https://example.com")

	if m.WhatsAppNumber() != "+55 (21) 3333-4444" {
		t.Fatalf("phone changed: %q", m.WhatsAppNumber())
	}
	if m.Config().CTALink != "https://example.com" {
		t.Fatalf("site mode link = %q", m.Config().CTALink)
	}

	m.SetCTAMode(CTAWhatsApp)
	if got := m.Config().CTALink; got != "https://wa.me/55552133334444" {
		t.Fatalf("restored whatsapp link = %q", got)
	}
}

func TestSetWhatsAppNumberInSiteModeKeepsLink(t *testing.T) {
	m := NewModel()
	m.SetWhatsAppNumber("11 98888-7777")
	if m.Config().CTALink != DefaultSiteURL {
		t.Fatalf("site link overwritten: %q", m.Config().CTALink)
	}
}

func TestWhatsAppLink(t *testing.T) {
	if got := WhatsAppLink("(11) 99999-8888"); got != "https://wa.me/5511999998888" {
		t.Fatalf("link = %q", got)
	}
	if got := WhatsAppLink("sem número"); got != "" {
		t.Fatalf("link for no digits = %q", got)
	}
}

func TestApplyGenerationResultKeepsOneArtifact(t *testing.T) {
	m := NewModel()
	m.ApplyGenerationResult("data:image/png;base64,AAAA", OutputImage)
	m.ApplyGenerationResult("/objects/clip.mp4", OutputVideo)

	cfg := m.Config()
	if cfg.GeneratedImage != "" {
		t.Fatalf("image should be cleared by video result")
	}
	if cfg.VideoURL != "/objects/clip.mp4" || cfg.OutputType != OutputVideo {
		t.Fatalf("cfg = %+v", cfg)
	}
	current, ok := m.CurrentArtifact()
	if !ok || current.Type != OutputVideo {
		t.Fatalf("current = %+v, %v", current, ok)
	}
}

func TestApplyGenerationResultIgnoresBlank(t *testing.T) {
	m := NewModel()
	m.ApplyGenerationResult("  ", OutputImage)
	if len(m.History()) != 0 {
		t.Fatalf("blank artifact recorded")
	}
}

func TestSelectHistoryDoesNotMutateLog(t *testing.T) {
	m := NewModel()
	m.ApplyGenerationResult("img-1", OutputImage)
	m.ApplyGenerationResult("vid-2", OutputVideo)
	m.ApplyGenerationResult("img-3", OutputImage)
	before := m.History()

	entry, ok := m.SelectHistory(1)
	if !ok || entry.URL != "vid-2" {
		t.Fatalf("selected %+v, %v", entry, ok)
	}
	cfg := m.Config()
	if cfg.VideoURL != "vid-2" || cfg.GeneratedImage != "" || cfg.OutputType != OutputVideo {
		t.Fatalf("cfg after select = %+v", cfg)
	}

	after := m.History()
	if len(after) != len(before) {
		t.Fatalf("history length changed %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("history[%d] changed: %+v -> %+v", i, before[i], after[i])
		}
	}

	if _, ok := m.SelectHistory(7); ok {
		t.Fatalf("out of range select should fail")
	}
}

func TestHistoryAppendIsNewestFirst(t *testing.T) {
	var h History
	const n = 25
	for i := 0; i < n; i++ {
		h.Append(HistoryEntry{URL: fmt.Sprintf("a-%d", i), Type: OutputImage})
		first, _ := h.At(0)
		if first.URL != fmt.Sprintf("a-%d", i) {
			t.Fatalf("after append %d, head = %q", i, first.URL)
		}
	}
	if h.Len() != n {
		t.Fatalf("len = %d, want %d", h.Len(), n)
	}
	last, _ := h.At(n - 1)
	if last.URL != "a-0" {
		t.Fatalf("tail = %q, want a-0", last.URL)
	}

	entries := h.Entries()
	entries[0].URL = "mutated"
	if first, _ := h.At(0); first.URL == "mutated" {
		t.Fatalf("Entries must return a copy")
	}

	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("reset left %d entries", h.Len())
	}
}

func TestDeviceAspectRatio(t *testing.T) {
	cases := map[Device]string{
		DevicePhone:   "9:16",
		DeviceTablet:  "3:4",
		DeviceDesktop: "16:9",
		Device("tv"):  "9:16",
	}
	for d, want := range cases {
		if got := d.AspectRatio(); got != want {
			t.Fatalf("%s aspect = %q, want %q", d, got, want)
		}
	}
}

func TestDownloadName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	if got := DownloadName("anuncio-loja", OutputImage, at); got != "anuncio-loja-1700000000123.png" {
		t.Fatalf("image name = %q", got)
	}
	if got := DownloadName("Minha Loja!", OutputVideo, at); got != "Minha-Loja-1700000000123.mp4" {
		t.Fatalf("video name = %q", got)
	}
	if got := DownloadName("", OutputImage, at); got != "anuncio-1700000000123.png" {
		t.Fatalf("default name = %q", got)
	}
}

func TestParseHelpers(t *testing.T) {
	if th, ok := ParseTheme(" Luxury "); !ok || th != ThemeLuxury {
		t.Fatalf("ParseTheme = %q, %v", th, ok)
	}
	if _, ok := ParseTheme("baroque"); ok {
		t.Fatalf("unknown theme parsed")
	}
	if d, ok := ParseDevice("TABLET"); !ok || d != DeviceTablet {
		t.Fatalf("ParseDevice = %q, %v", d, ok)
	}
	if o, ok := ParseOutputType("video"); !ok || o != OutputVideo {
		t.Fatalf("ParseOutputType = %q, %v", o, ok)
	}
	if m, ok := ParseCTAMode("whatsapp"); !ok || m != CTAWhatsApp {
		t.Fatalf("ParseCTAMode = %q, %v", m, ok)
	}
}

func TestCatalogCoversThemes(t *testing.T) {
	themes := Themes()
	if len(themes) != len(themeNames) {
		t.Fatalf("catalog has %d themes, want %d", len(themes), len(themeNames))
	}
	for _, opt := range themes {
		if opt.Name == "" || opt.Name == opt.Key {
			t.Fatalf("theme %q has no display name", opt.Key)
		}
	}
}
