package preview

import (
	"regexp"
	"strconv"
	"strings"

	"ad-creative-studio/internal/creative"
)

const (
	PlaceholderNoPhoto  = "https://via.placeholder.com/800?text=Sem+Foto"
	PlaceholderAwaiting = "https://via.placeholder.com/800?text=Aguardando+IA"

	BadgeOriginal  = "Original"
	BadgeGenerated = "Gerada por IA"
	BadgePreview   = "Prévia"

	SponsoredLabel   = "Patrocinado"
	FallbackHeadline = "Sua Manchete Aqui"
	FallbackCTAText  = "Comprar"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type Media struct {
	Kind MediaKind `json:"kind"`
	Src  string    `json:"src"`
	// Placeholder is set when Src is a stand-in rather than user content.
	Placeholder bool `json:"placeholder,omitempty"`
}

type Chrome string

const (
	ChromePhone Chrome = "phone"
	ChromeBezel Chrome = "bezel"
)

type Frame struct {
	Device      creative.Device `json:"device"`
	AspectRatio string          `json:"aspectRatio"`
	// MaxWidth in CSS pixels; 0 means the full container width.
	MaxWidth int    `json:"maxWidth"`
	Chrome   Chrome `json:"chrome"`
}

// AspectW and AspectH split AspectRatio ("9:16") into its terms.
func (f Frame) AspectW() int {
	w, _ := splitRatio(f.AspectRatio)
	return w
}

func (f Frame) AspectH() int {
	_, h := splitRatio(f.AspectRatio)
	return h
}

func splitRatio(ratio string) (int, int) {
	ws, hs, ok := strings.Cut(ratio, ":")
	if !ok {
		return 1, 1
	}
	w, errW := strconv.Atoi(strings.TrimSpace(ws))
	h, errH := strconv.Atoi(strings.TrimSpace(hs))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 1, 1
	}
	return w, h
}

type CTAStyle string

const (
	CTAStyleWhatsApp CTAStyle = "whatsapp"
	CTAStyleShop     CTAStyle = "shop"
	CTAStyleDisabled CTAStyle = "disabled"
)

type CTA struct {
	Label   string   `json:"label"`
	Href    string   `json:"href,omitempty"`
	Style   CTAStyle `json:"style"`
	Icon    string   `json:"icon"`
	Enabled bool     `json:"enabled"`
	// Caption is the link without its scheme, shown under the button.
	Caption string `json:"caption,omitempty"`
}

type Overlay struct {
	Logo     string `json:"logo,omitempty"`
	Headline string `json:"headline"`
	CTA      CTA    `json:"cta"`
}

// View is everything needed to draw one framed ad card.
type View struct {
	Media      Media    `json:"media"`
	Badge      string   `json:"badge"`
	Sponsored  string   `json:"sponsored"`
	Frame      Frame    `json:"frame"`
	Expandable bool     `json:"expandable"`
	Overlay    *Overlay `json:"overlay,omitempty"`
}

type Options struct {
	ShowOriginal bool
}

// Render projects an AdConfig into a View. It has no side effects.
func Render(cfg creative.AdConfig, opts Options) View {
	v := View{
		Media:      selectMedia(cfg, opts.ShowOriginal),
		Badge:      badge(cfg, opts.ShowOriginal),
		Sponsored:  SponsoredLabel,
		Frame:      FrameFor(cfg.Device),
		Expandable: cfg.Current() != "" || cfg.ProductImage != "",
	}
	if opts.ShowOriginal {
		return v
	}

	headline := strings.TrimSpace(cfg.Headline)
	if headline == "" {
		headline = FallbackHeadline
	}
	v.Overlay = &Overlay{
		Logo:     cfg.LogoImage,
		Headline: headline,
		CTA:      buildCTA(cfg.CTAText, cfg.CTALink),
	}
	return v
}

func selectMedia(cfg creative.AdConfig, showOriginal bool) Media {
	if showOriginal {
		if cfg.ProductImage == "" {
			return Media{Kind: MediaImage, Src: PlaceholderNoPhoto, Placeholder: true}
		}
		return Media{Kind: MediaImage, Src: cfg.ProductImage}
	}

	if current := cfg.Current(); current != "" {
		if cfg.OutputType == creative.OutputVideo {
			return Media{Kind: MediaVideo, Src: current}
		}
		return Media{Kind: MediaImage, Src: current}
	}
	if cfg.ProductImage != "" {
		return Media{Kind: MediaImage, Src: cfg.ProductImage}
	}
	return Media{Kind: MediaImage, Src: PlaceholderAwaiting, Placeholder: true}
}

func badge(cfg creative.AdConfig, showOriginal bool) string {
	switch {
	case showOriginal:
		return BadgeOriginal
	case cfg.Current() != "":
		return BadgeGenerated
	default:
		return BadgePreview
	}
}

// FrameFor maps a device to its card geometry.
func FrameFor(d creative.Device) Frame {
	switch d {
	case creative.DeviceTablet:
		return Frame{Device: d, AspectRatio: d.AspectRatio(), MaxWidth: 500, Chrome: ChromeBezel}
	case creative.DeviceDesktop:
		return Frame{Device: d, AspectRatio: d.AspectRatio(), MaxWidth: 0, Chrome: ChromeBezel}
	default:
		return Frame{Device: creative.DevicePhone, AspectRatio: creative.DevicePhone.AspectRatio(), MaxWidth: 340, Chrome: ChromePhone}
	}
}

func buildCTA(text, link string) CTA {
	label := strings.TrimSpace(text)
	if label == "" {
		label = FallbackCTAText
	}

	link = strings.TrimSpace(link)
	if link == "" {
		return CTA{Label: label, Style: CTAStyleDisabled, Icon: "shopping-bag"}
	}

	cta := CTA{
		Label:   label,
		Href:    NormalizeLink(link),
		Style:   CTAStyleShop,
		Icon:    "shopping-bag",
		Enabled: true,
		Caption: schemeRegex.ReplaceAllString(link, ""),
	}
	if IsWhatsAppLink(link) {
		cta.Style = CTAStyleWhatsApp
		cta.Icon = "message-circle"
	}
	return cta
}

var schemeRegex = regexp.MustCompile(`^https?://`)

// NormalizeLink makes a typed link absolute. Links not starting with "http"
// get an https:// prefix; an empty link stays empty.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	return "https://" + link
}

func IsWhatsAppLink(link string) bool {
	return strings.Contains(link, "wa.me")
}
