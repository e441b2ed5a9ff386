package handlers

import (
	"fmt"
	"strings"

	"ad-creative-studio/internal/preview"
	"ad-creative-studio/internal/studio"
)

// sendCurrent posts the current result with the ad overlay as its caption.
func (h *Handler) sendCurrent(chatID int64, st *studio.Session) error {
	dl, err := st.Download()
	if err != nil {
		return h.sendError(chatID, err)
	}

	caption := previewCaption(preview.Render(st.Config(), preview.Options{}))
	if strings.HasPrefix(dl.MIMEType, "video/") {
		h.tg.SendUploading(chatID, true)
		return h.tg.SendVideoBytes(chatID, dl.Name, dl.Data, caption)
	}
	return h.tg.SendPhotoBytes(chatID, dl.Name, dl.Data, caption)
}

// sendDownload sends the current result as a file so Telegram keeps it uncompressed.
func (h *Handler) sendDownload(chatID int64, st *studio.Session) error {
	dl, err := st.Download()
	if err != nil {
		return h.sendError(chatID, err)
	}
	return h.tg.SendDocumentBytes(chatID, dl.Name, dl.Data, "⬇️ "+dl.Name)
}

func (h *Handler) sendOriginal(chatID int64, st *studio.Session) error {
	cfg := st.Config()
	if cfg.ProductImage == "" {
		return h.tg.SendText(chatID, "📸 Nenhuma foto enviada ainda.")
	}
	view := preview.Render(cfg, preview.Options{ShowOriginal: true})
	return h.tg.SendPhotoDataURL(chatID, cfg.ProductImage, view.Badge)
}

func previewCaption(view preview.View) string {
	var b strings.Builder
	b.WriteString(view.Badge)
	if view.Overlay == nil {
		return b.String()
	}

	fmt.Fprintf(&b, " · %s\n\n", view.Sponsored)
	b.WriteString(view.Overlay.Headline)
	b.WriteString("\n")

	cta := view.Overlay.CTA
	icon := "🛍"
	if cta.Style == preview.CTAStyleWhatsApp {
		icon = "💬"
	}
	if cta.Enabled {
		fmt.Fprintf(&b, "%s %s → %s", icon, cta.Label, cta.Href)
	} else {
		fmt.Fprintf(&b, "%s %s (sem link)", icon, cta.Label)
	}
	return b.String()
}
