package handlers

import "testing"

func TestClassifyText(t *testing.T) {
	cases := []struct {
		text         string
		hasGenerated bool
		want         textIntent
	}{
		{"mulher segurando o perfume na praia", true, intentNarrative},
		{"remova o fundo", true, intentRefine},
		{"Deixe mais iluminado", true, intentRefine},
		{"por favor troque a cor", true, intentRefine},
		{"remova o fundo", false, intentNarrative},
		{"   ", true, intentNarrative},
	}
	for _, tc := range cases {
		if got := classifyText(tc.text, tc.hasGenerated); got != tc.want {
			t.Errorf("classifyText(%q, %v) = %v, want %v", tc.text, tc.hasGenerated, got, tc.want)
		}
	}
}
