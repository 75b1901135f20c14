package settings

import (
	"sort"
	"strings"
)

// Presets are the named themes offered by the theme picker.
var Presets = map[string]Theme{
	"classic": {
		Preset: "classic",
		Colors: ThemeColors{
			Primary:    "#8b2e16",
			Secondary:  "#2f3e46",
			Accent:     "#d4a373",
			Background: "#fffaf3",
			Text:       "#1f1f1f",
			Muted:      "#6b6b6b",
		},
		Fonts:        ThemeFonts{Heading: "playfair", Body: "lora"},
		BorderRadius: "medium",
		Spacing:      "normal",
		ContentWidth: "normal",
		ButtonStyle:  "rounded",
	},
	"modern": {
		Preset: "modern",
		Colors: ThemeColors{
			Primary:    "#111827",
			Secondary:  "#374151",
			Accent:     "#10b981",
			Background: "#ffffff",
			Text:       "#111827",
			Muted:      "#6b7280",
		},
		Fonts:        ThemeFonts{Heading: "montserrat", Body: "inter"},
		BorderRadius: "small",
		Spacing:      "relaxed",
		ContentWidth: "wide",
		ButtonStyle:  "square",
	},
	"rustic": {
		Preset: "rustic",
		Colors: ThemeColors{
			Primary:    "#6b4226",
			Secondary:  "#a3b18a",
			Accent:     "#dda15e",
			Background: "#fefae0",
			Text:       "#283618",
			Muted:      "#7f7f6a",
		},
		Fonts:        ThemeFonts{Heading: "lora", Body: "lora"},
		BorderRadius: "large",
		Spacing:      "normal",
		ContentWidth: "narrow",
		ButtonStyle:  "pill",
	},
	"elegant": {
		Preset: "elegant",
		Colors: ThemeColors{
			Primary:    "#1c1c1c",
			Secondary:  "#b08d57",
			Accent:     "#b08d57",
			Background: "#f8f5f0",
			Text:       "#1c1c1c",
			Muted:      "#8a8578",
		},
		Fonts:        ThemeFonts{Heading: "playfair", Body: "inter"},
		BorderRadius: "none",
		Spacing:      "relaxed",
		ContentWidth: "normal",
		ButtonStyle:  "square",
	},
}

// ApplyPreset returns the named preset, or t unchanged and false when the
// name is unknown.
func ApplyPreset(t Theme, name string) (Theme, bool) {
	p, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return t, false
	}
	return p, true
}

// Lookup tables and their fallbacks.  Unknown or empty values map to the
// fallback.
var (
	fontStacks = map[string]string{
		"playfair":   "'Playfair Display', Georgia, serif",
		"lora":       "Lora, Georgia, serif",
		"inter":      "Inter, 'Helvetica Neue', Arial, sans-serif",
		"montserrat": "Montserrat, 'Helvetica Neue', Arial, sans-serif",
		"system":     "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
	radii = map[string]string{
		"none":   "0",
		"small":  "0.25rem",
		"medium": "0.5rem",
		"large":  "1rem",
	}
	spacings = map[string]string{
		"compact": "0.75rem",
		"normal":  "1rem",
		"relaxed": "1.5rem",
	}
	widths = map[string]string{
		"narrow": "960px",
		"normal": "1200px",
		"wide":   "1400px",
		"full":   "100%",
	}
	buttonRadii = map[string]string{
		"square":  "0",
		"rounded": "0.375rem",
		"pill":    "9999px",
	}
)

const (
	fallbackFont        = "system"
	fallbackRadius      = "medium"
	fallbackSpacing     = "normal"
	fallbackWidth       = "normal"
	fallbackButtonStyle = "rounded"
)

func pick(table map[string]string, key, fallback string) string {
	if v, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return v
	}
	return table[fallback]
}

// ThemeVariables flattens s.Theme into CSS custom properties.  Empty
// colours take the classic palette.
func ThemeVariables(s Settings) map[string]string {
	t := s.Theme
	def := Presets["classic"].Colors
	color := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return map[string]string{
		"--color-primary":    color(t.Colors.Primary, def.Primary),
		"--color-secondary":  color(t.Colors.Secondary, def.Secondary),
		"--color-accent":     color(t.Colors.Accent, def.Accent),
		"--color-background": color(t.Colors.Background, def.Background),
		"--color-text":       color(t.Colors.Text, def.Text),
		"--color-muted":      color(t.Colors.Muted, def.Muted),
		"--font-heading":     pick(fontStacks, t.Fonts.Heading, fallbackFont),
		"--font-body":        pick(fontStacks, t.Fonts.Body, fallbackFont),
		"--border-radius":    pick(radii, t.BorderRadius, fallbackRadius),
		"--spacing-unit":     pick(spacings, t.Spacing, fallbackSpacing),
		"--content-width":    pick(widths, t.ContentWidth, fallbackWidth),
		"--button-radius":    pick(buttonRadii, t.ButtonStyle, fallbackButtonStyle),
	}
}

// CSS renders vars as a :root rule with keys in sorted order.
func CSS(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(vars[k])
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}
