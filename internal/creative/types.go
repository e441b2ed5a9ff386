package creative

import "strings"

type OutputType string

const (
	OutputImage OutputType = "image"
	OutputVideo OutputType = "video"
)

type Theme string

const (
	ThemeMinimal    Theme = "minimal"
	ThemeLuxury     Theme = "luxury"
	ThemeSummer     Theme = "summer"
	ThemeFashion    Theme = "fashion"
	ThemeRetro      Theme = "retro"
	ThemeFuturistic Theme = "futuristic"
)

type Device string

const (
	DevicePhone   Device = "phone"
	DeviceTablet  Device = "tablet"
	DeviceDesktop Device = "desktop"
)

// AspectRatio is the ratio requested from the generator and used by the preview frame.
func (d Device) AspectRatio() string {
	switch d {
	case DeviceDesktop:
		return "16:9"
	case DeviceTablet:
		return "3:4"
	default:
		return "9:16"
	}
}

type CTAMode string

const (
	CTASite     CTAMode = "site"
	CTAWhatsApp CTAMode = "whatsapp"
)

// AdConfig is one ad project. Empty strings mean "not set".
type AdConfig struct {
	ProductImage   string     `json:"productImage,omitempty"`
	GeneratedImage string     `json:"generatedImage,omitempty"`
	VideoURL       string     `json:"videoUrl,omitempty"`
	LogoImage      string     `json:"logoImage,omitempty"`
	OutputType     OutputType `json:"outputType"`
	Narrative      string     `json:"narrative"`
	Headline       string     `json:"headline"`
	CTAText        string     `json:"ctaText"`
	CTALink        string     `json:"ctaLink"`
	Theme          Theme      `json:"theme"`
	Device         Device     `json:"device"`
}

// Current returns the artifact that is authoritative for the output type.
func (c AdConfig) Current() string {
	if c.OutputType == OutputVideo {
		return c.VideoURL
	}
	return c.GeneratedImage
}

type HistoryEntry struct {
	URL  string     `json:"url"`
	Type OutputType `json:"type"`
}

type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

type LoadingState struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s LoadingState) Busy() bool {
	return s.Status == StatusUploading || s.Status == StatusGenerating
}

func ParseTheme(value string) (Theme, bool) {
	t := Theme(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := themeNames[t]; ok {
		return t, true
	}
	return "", false
}

func ParseDevice(value string) (Device, bool) {
	switch d := Device(strings.ToLower(strings.TrimSpace(value))); d {
	case DevicePhone, DeviceTablet, DeviceDesktop:
		return d, true
	}
	return "", false
}

func ParseOutputType(value string) (OutputType, bool) {
	switch o := OutputType(strings.ToLower(strings.TrimSpace(value))); o {
	case OutputImage, OutputVideo:
		return o, true
	}
	return "", false
}

func ParseCTAMode(value string) (CTAMode, bool) {
	switch m := CTAMode(strings.ToLower(strings.TrimSpace(value))); m {
	case CTASite, CTAWhatsApp:
		return m, true
	}
	return "", false
}
