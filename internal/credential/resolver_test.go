package credential

import (
	"strings"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	r := &Resolver{Lookup: lookupFrom(map[string]string{
		"API_KEY":        "AIzaFallback",
		"GEMINI_API_KEY": "AIzaServer",
		"VITE_API_KEY":   "AIzaBuild",
	})}

	key, ok := r.Resolve()
	if !ok {
		t.Fatalf("expected key to resolve")
	}
	if key.Value != "AIzaBuild" || key.Source != "VITE_API_KEY" {
		t.Fatalf("resolved %+v, want VITE_API_KEY", key)
	}
}

func TestResolveSkipsBlankValues(t *testing.T) {
	r := &Resolver{Lookup: lookupFrom(map[string]string{
		"VITE_API_KEY":      "   ",
		"PUBLIC_API_KEY":    "",
		"REACT_APP_API_KEY": " AIzaReact ",
	})}

	key, ok := r.Resolve()
	if !ok {
		t.Fatalf("expected key to resolve")
	}
	if key.Value != "AIzaReact" {
		t.Fatalf("value = %q, want trimmed AIzaReact", key.Value)
	}
	if key.Source != "REACT_APP_API_KEY" {
		t.Fatalf("source = %q", key.Source)
	}
}

func TestResolveAbsent(t *testing.T) {
	r := &Resolver{Lookup: lookupFrom(nil)}
	key, ok := r.Resolve()
	if ok {
		t.Fatalf("expected absence, got %+v", key)
	}
	if !key.IsZero() {
		t.Fatalf("absent key should be zero")
	}
}

func TestResolveCustomSources(t *testing.T) {
	r := &Resolver{
		Lookup:  lookupFrom(map[string]string{"MY_KEY": "AIzaCustom", "API_KEY": "AIzaOther"}),
		Sources: []Source{{Name: "MY_KEY"}},
	}
	key, ok := r.Resolve()
	if !ok || key.Source != "MY_KEY" {
		t.Fatalf("resolved %+v, %v", key, ok)
	}
}

func TestKeyShape(t *testing.T) {
	if !(Key{Value: "AIzaSy123"}).LooksValid() {
		t.Fatalf("AIza key should look valid")
	}
	if (Key{Value: "lavoura:AIzaSy123"}).LooksValid() {
		t.Fatalf("prefixed key should not look valid")
	}
	masked := Key{Value: "AIzaSyABCDEFGH1234"}.Masked()
	if strings.Contains(masked, "ABCDEFGH") {
		t.Fatalf("masked key leaks secret: %s", masked)
	}
	if !strings.HasPrefix(masked, "AIza") || !strings.HasSuffix(masked, "1234") {
		t.Fatalf("masked = %q", masked)
	}
}

func TestRemediationListsSources(t *testing.T) {
	text := Remediation()
	for _, src := range DefaultSources {
		if !strings.Contains(text, src.Name) {
			t.Fatalf("remediation missing %s", src.Name)
		}
	}
}
