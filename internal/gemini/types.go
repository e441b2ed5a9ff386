package gemini

import "ad-creative-studio/internal/creative"

type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeEdit     Mode = "edit"
)

type ImageRequest struct {
	// Source is a data URI or raw base64 image.
	Source      string
	Instruction string
	Theme       creative.Theme
	Mode        Mode
	AspectRatio string
}

type VideoRequest struct {
	Source      string
	Instruction string
	Theme       creative.Theme
	AspectRatio string
}

// Artifact is a generation result ready for the preview: URL is a data URI
// for images and an object URL for videos.
type Artifact struct {
	URL      string
	MIMEType string
	Kind     creative.OutputType
	Text     string
}

// ObjectStore hands out URLs for payloads too large to inline.
type ObjectStore interface {
	Put(data []byte, mimeType string) (string, error)
}
