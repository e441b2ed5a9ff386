package gemini

import (
	"fmt"
	"strings"

	"ad-creative-studio/internal/creative"
)

const (
	defaultStyleInstruction = "Professional studio lighting."
	DefaultNarrative        = "Crie um anúncio profissional"
)

var styleInstructions = map[creative.Theme]string{
	creative.ThemeMinimal:    "Clean, soft lighting, solid or subtle gradient background, modern shadows, ample whitespace, minimalistic studio.",
	creative.ThemeLuxury:     "Dark moody lighting, gold or marble accents, expensive textures, silk, high contrast, elegant atmosphere.",
	creative.ThemeSummer:     "Bright sunlight, beach or pool background, blue skies, palm trees, warm saturation, vacation vibes.",
	creative.ThemeFashion:    "Urban street photography style, dynamic angles, concrete textures, trendy outfit context, high fashion editorial.",
	creative.ThemeRetro:      "Vintage film grain, 90s pastel colors, polaroid aesthetic, flash photography look, nostalgic.",
	creative.ThemeFuturistic: "Neon lights, dark tech background, cyber aesthetics, glowing elements, sci-fi atmosphere.",
}

// StyleInstruction maps a theme to its fixed style paragraph. Unknown themes
// get the studio default.
func StyleInstruction(theme creative.Theme) string {
	if s, ok := styleInstructions[theme]; ok {
		return s
	}
	return defaultStyleInstruction
}

// BuildImageInstruction composes the text sent next to the source image.
func BuildImageInstruction(mode Mode, narrative string, theme creative.Theme) string {
	narrative = strings.TrimSpace(narrative)

	var b strings.Builder
	b.Grow(1024)

	if mode == ModeEdit {
		b.WriteString("Generate an edited image.\n")
		b.WriteString("You are an expert advertising photographer and image editor.\n")
		b.WriteString("Task: Edit the provided image based strictly on the user's instruction.\n\n")
		b.WriteString("The user may write in Portuguese. Follow the instruction precisely.\n")
		b.WriteString(fmt.Sprintf("User Instruction: %q\n\n", narrative))
		writeNumbered(&b, "Requirements", []string{
			"Maintain the quality and photorealism of the original image.",
			"Apply the requested change (filter, object removal, addition, lighting change) naturally.",
			"Do not add text to the image itself.",
			"If the user asks to remove something, fill the space naturally (inpainting).",
			"If the user asks for a filter (retro, black and white), apply it globally.",
		})
		return strings.TrimSpace(b.String())
	}

	if narrative == "" {
		narrative = DefaultNarrative
	}

	b.WriteString("Generate an image.\n")
	b.WriteString("You are an expert advertising photographer and editor.\n")
	b.WriteString("Task: Create a product advertisement using the provided product image.\n\n")
	b.WriteString("The user may write in Portuguese. Interpret it for the visual context.\n")
	b.WriteString(fmt.Sprintf("User Narrative/Request: %q\n", narrative))
	b.WriteString("Visual Style: " + StyleInstruction(theme) + "\n\n")
	writeNumbered(&b, "Instructions", []string{
		"Keep the main product from the input image clearly visible and central.",
		"CONTEXT: if the narrative implies a person or usage (\"woman holding it\"), generate a realistic model interacting with the product naturally.",
		"ENVIRONMENT: transform the background and lighting to match the Visual Style and the narrative.",
		"OUTPUT QUALITY: photorealistic output suitable for social media ads.",
		"Do not add text to the image itself.",
		"COMPOSITION: the product is the focal point.",
	})
	return strings.TrimSpace(b.String())
}

// BuildVideoInstruction composes the prompt for a short animated ad.
func BuildVideoInstruction(narrative string, theme creative.Theme) string {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		narrative = DefaultNarrative
	}

	var b strings.Builder
	b.WriteString("Create a short, smooth advertising video of the product in the reference image.\n")
	b.WriteString(fmt.Sprintf("User Narrative/Request: %q\n", narrative))
	b.WriteString("Visual Style: " + StyleInstruction(theme) + "\n\n")
	writeNumbered(&b, "Rules", []string{
		"The product stays recognizable and unchanged for the whole clip.",
		"Slow, cinematic camera motion; no hard cuts.",
		"No on-screen text, captions or watermarks.",
	})
	return strings.TrimSpace(b.String())
}

func writeNumbered(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for i, line := range lines {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, line))
	}
}
