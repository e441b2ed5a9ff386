package handlers

import "strings"

type textIntent int

const (
	intentNarrative textIntent = iota
	intentRefine
)

var refineKeywords = []string{
	"mude", "mudar", "troque", "trocar",
	"remova", "remover", "tire", "tirar",
	"adicione", "adicionar", "coloque", "colocar",
	"deixe", "deixar", "aumente", "diminua",
	"mais ", "menos ",
	"filtro", "preto e branco",
	"edit", "change", "remove", "add", "replace",
}

// classifyText decides whether free text edits the current result or
// describes a new scene. Edits only make sense once an image exists.
func classifyText(text string, hasGenerated bool) textIntent {
	if !hasGenerated {
		return intentNarrative
	}

	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return intentNarrative
	}
	for _, kw := range refineKeywords {
		if strings.HasPrefix(t, kw) || strings.Contains(t, " "+kw) {
			return intentRefine
		}
	}
	return intentNarrative
}
