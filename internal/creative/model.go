package creative

import "strings"

const (
	DefaultHeadline = "Sinta a diferença."
	DefaultCTAText  = "Comprar Agora"
	DefaultSiteURL  = "https://minhaloja.com/produto"
)

// Model owns one AdConfig together with its History and the values behind the
// CTA modes. It is not safe for concurrent use; callers serialize access.
type Model struct {
	cfg           AdConfig
	ctaMode       CTAMode
	siteURL       string
	whatsAppPhone string
	history       History
}

func DefaultConfig() AdConfig {
	return AdConfig{
		OutputType: OutputImage,
		Headline:   DefaultHeadline,
		CTAText:    DefaultCTAText,
		CTALink:    DefaultSiteURL,
		Theme:      ThemeMinimal,
		Device:     DevicePhone,
	}
}

func NewModel() *Model {
	return &Model{
		cfg:     DefaultConfig(),
		ctaMode: CTASite,
		siteURL: DefaultSiteURL,
	}
}

func (m *Model) Config() AdConfig {
	return m.cfg
}

func (m *Model) History() []HistoryEntry {
	return m.history.Entries()
}

func (m *Model) CTAMode() CTAMode {
	return m.ctaMode
}

func (m *Model) SiteURL() string {
	return m.siteURL
}

func (m *Model) WhatsAppNumber() string {
	return m.whatsAppPhone
}

// CurrentArtifact returns the artifact authoritative for the output type.
func (m *Model) CurrentArtifact() (HistoryEntry, bool) {
	url := m.cfg.Current()
	if url == "" {
		return HistoryEntry{}, false
	}
	return HistoryEntry{URL: url, Type: m.cfg.OutputType}, true
}

// SetProductImage starts a new creative lineage: generated artifacts and the
// history are dropped. The dropped entries are returned so their storage can be
// released.
func (m *Model) SetProductImage(image string) []HistoryEntry {
	dropped := m.history.Entries()
	m.cfg.ProductImage = image
	m.cfg.GeneratedImage = ""
	m.cfg.VideoURL = ""
	m.history.Reset()
	return dropped
}

func (m *Model) SetLogoImage(image string) {
	m.cfg.LogoImage = image
}

func (m *Model) SetNarrative(text string) {
	m.cfg.Narrative = text
}

func (m *Model) SetHeadline(text string) {
	m.cfg.Headline = text
}

func (m *Model) SetCTAText(text string) {
	m.cfg.CTAText = text
}

func (m *Model) SetTheme(t Theme) {
	m.cfg.Theme = t
}

func (m *Model) SetDevice(d Device) {
	m.cfg.Device = d
}

func (m *Model) SetOutputType(o OutputType) {
	m.cfg.OutputType = o
}

// SetSiteURL stores the site link; it becomes the CTA link only in site mode.
func (m *Model) SetSiteURL(url string) {
	m.siteURL = url
	if m.ctaMode == CTASite {
		m.cfg.CTALink = url
	}
}

// SetWhatsAppNumber stores the phone number; the derived link becomes the CTA
// link only in whatsapp mode.
func (m *Model) SetWhatsAppNumber(phone string) {
	m.whatsAppPhone = phone
	if m.ctaMode == CTAWhatsApp {
		m.cfg.CTALink = WhatsAppLink(phone)
	}
}

// SetCTAMode switches the CTA link source. The inactive value is kept verbatim.
func (m *Model) SetCTAMode(mode CTAMode) {
	m.ctaMode = mode
	if mode == CTAWhatsApp {
		m.cfg.CTALink = WhatsAppLink(m.whatsAppPhone)
		return
	}
	m.ctaMode = CTASite
	m.cfg.CTALink = m.siteURL
}

// ApplyGenerationResult stores a new artifact and records it in the history in
// one step. It is the only writer into the history.
func (m *Model) ApplyGenerationResult(artifact string, kind OutputType) {
	artifact = strings.TrimSpace(artifact)
	if artifact == "" {
		return
	}
	m.setCurrent(artifact, kind)
	m.history.Append(HistoryEntry{URL: artifact, Type: kind})
}

// SelectHistory restores entry i as the current result. History is unchanged.
func (m *Model) SelectHistory(i int) (HistoryEntry, bool) {
	entry, ok := m.history.At(i)
	if !ok {
		return HistoryEntry{}, false
	}
	m.setCurrent(entry.URL, entry.Type)
	return entry, true
}

func (m *Model) setCurrent(url string, kind OutputType) {
	if kind == OutputVideo {
		m.cfg.VideoURL = url
		m.cfg.GeneratedImage = ""
	} else {
		kind = OutputImage
		m.cfg.GeneratedImage = url
		m.cfg.VideoURL = ""
	}
	m.cfg.OutputType = kind
}
