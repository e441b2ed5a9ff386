package preview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/card.html
var templateFS embed.FS

var cardTemplate = template.Must(
	template.New("card.html").
		Funcs(template.FuncMap{
			// Generated media arrive as data URIs, which html/template would
			// otherwise replace with "#ZgotmplZ".
			"mediaURL": func(src string) template.URL { return template.URL(src) },
		}).
		ParseFS(templateFS, "templates/card.html"),
)

// WriteHTML renders v as a standalone page.
func WriteHTML(w io.Writer, v View) error {
	if err := cardTemplate.Execute(w, v); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}
