package creative

type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

var themeNames = map[Theme]string{
	ThemeMinimal:    "Estúdio Minimalista",
	ThemeLuxury:     "Luxo & Elegância",
	ThemeSummer:     "Verão & Praia",
	ThemeFashion:    "Moda Streetwear",
	ThemeRetro:      "Vibe Retrô 90s",
	ThemeFuturistic: "Cyberpunk Neon",
}

var deviceNames = map[Device]string{
	DevicePhone:   "Celular",
	DeviceTablet:  "Tablet",
	DeviceDesktop: "Desktop",
}

func (t Theme) Name() string {
	if name, ok := themeNames[t]; ok {
		return name
	}
	return string(t)
}

func (d Device) Name() string {
	if name, ok := deviceNames[d]; ok {
		return name
	}
	return string(d)
}

func Themes() []NamedOption {
	order := []Theme{
		ThemeMinimal,
		ThemeLuxury,
		ThemeSummer,
		ThemeFashion,
		ThemeRetro,
		ThemeFuturistic,
	}

	out := make([]NamedOption, 0, len(order))
	for _, t := range order {
		out = append(out, NamedOption{Key: string(t), Name: t.Name()})
	}
	return out
}

func Devices() []NamedOption {
	order := []Device{DevicePhone, DeviceTablet, DeviceDesktop}

	out := make([]NamedOption, 0, len(order))
	for _, d := range order {
		out = append(out, NamedOption{Key: string(d), Name: d.Name()})
	}
	return out
}

func OutputTypes() []NamedOption {
	return []NamedOption{
		{Key: string(OutputImage), Name: "Imagem"},
		{Key: string(OutputVideo), Name: "Vídeo"},
	}
}
