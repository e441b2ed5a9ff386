package creative

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const whatsAppPrefix = "https://wa.me/55"

// WhatsAppLink builds the deep link for a phone number typed in any format.
// It returns "" when the input has no digits.
func WhatsAppLink(phone string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	return whatsAppPrefix + digits
}

func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DownloadName returns "<prefix>-<unix millis>.<ext>" for an artifact.
func DownloadName(prefix string, kind OutputType, at time.Time) string {
	prefix = sanitizePrefix(prefix)
	if prefix == "" {
		prefix = "anuncio"
	}
	ext := "png"
	if kind == OutputVideo {
		ext = "mp4"
	}
	return fmt.Sprintf("%s-%d.%s", prefix, at.UnixMilli(), ext)
}

func sanitizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '-'
		}
		return -1
	}, prefix)
}
