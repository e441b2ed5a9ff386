package credential

import (
	"os"
	"strings"
)

// Source is a named place an API key may be exposed under.
type Source struct {
	Name string
	Kind string
}

// DefaultSources lists the accepted variables, highest priority first.
var DefaultSources = []Source{
	{Name: "VITE_API_KEY", Kind: "build-time public"},
	{Name: "PUBLIC_API_KEY", Kind: "generic public"},
	{Name: "GEMINI_API_KEY", Kind: "server"},
	{Name: "GOOGLE_API_KEY", Kind: "server"},
	{Name: "REACT_APP_API_KEY", Kind: "framework"},
	{Name: "API_KEY", Kind: "fallback"},
}

const googleKeyPrefix = "AIza"

type Key struct {
	Value  string
	Source string
}

func (k Key) IsZero() bool {
	return k.Value == ""
}

// LooksValid reports whether the key has the shape of a Google API key.
func (k Key) LooksValid() bool {
	return strings.HasPrefix(k.Value, googleKeyPrefix)
}

// Masked is safe to log.
func (k Key) Masked() string {
	if len(k.Value) <= 8 {
		return strings.Repeat("*", len(k.Value))
	}
	return k.Value[:4] + strings.Repeat("*", len(k.Value)-8) + k.Value[len(k.Value)-4:]
}

type Resolver struct {
	Lookup  func(string) (string, bool)
	Sources []Source
}

func NewResolver() *Resolver {
	return &Resolver{
		Lookup:  os.LookupEnv,
		Sources: DefaultSources,
	}
}

// Resolve returns the first non-blank key. ok is false when no source has one.
func (r *Resolver) Resolve() (Key, bool) {
	lookup := r.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	sources := r.Sources
	if len(sources) == 0 {
		sources = DefaultSources
	}

	for _, src := range sources {
		value, found := lookup(src.Name)
		if !found {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return Key{Value: value, Source: src.Name}, true
		}
	}
	return Key{}, false
}

// Remediation is shown to the user when no key could be resolved.
func Remediation() string {
	var b strings.Builder
	b.WriteString("A chave de API do Gemini não foi encontrada.\n\n")
	b.WriteString("Como corrigir:\n")
	b.WriteString("1. Defina a variável de ambiente GEMINI_API_KEY (ou uma destas: ")
	names := make([]string, 0, len(DefaultSources))
	for _, src := range DefaultSources {
		names = append(names, src.Name)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(").\n")
	b.WriteString("2. O valor deve começar com 'AIza' e não pode conter espaços ou prefixos.\n")
	b.WriteString("3. Reinicie o serviço para que a nova variável seja lida.")
	return b.String()
}

// MalformedRemediation is shown when a key was found but is not a Google key.
func MalformedRemediation(k Key) string {
	return "Chave de API inválida detectada em " + k.Source + ".\n" +
		"A chave deve começar com 'AIza'. Verifique se não há texto extra colado no valor."
}
