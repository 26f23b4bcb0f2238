package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

type SurfaceMode string

const (
	SurfaceSolid       SurfaceMode = "solid"
	SurfaceTransparent SurfaceMode = "transparent"
)

type Palette string

const (
	PaletteDraculaSoft Palette = "dracula-soft"
	PaletteClassic     Palette = "classic"
)

// Theme is the set of colours the view draws with.
type Theme struct {
	Mode     ThemeMode
	Surfaces SurfaceMode

	Text      lipgloss.TerminalColor
	TextMuted lipgloss.TerminalColor
	TextDim   lipgloss.TerminalColor
	Surface   lipgloss.TerminalColor

	// Panel borders
	FocusBorder lipgloss.TerminalColor
	IdleBorder  lipgloss.TerminalColor

	// Job state foregrounds
	StateGreen   lipgloss.TerminalColor
	StateRed     lipgloss.TerminalColor
	StateOrange  lipgloss.TerminalColor
	StateNeutral lipgloss.TerminalColor

	Accent lipgloss.TerminalColor
	Danger lipgloss.TerminalColor

	SelectionBg lipgloss.TerminalColor
	SelectionFg lipgloss.TerminalColor
}

// LoadTheme builds the theme named by the ui.* configuration keys. Forcing
// dark or light also pins lipgloss' background detection.
func LoadTheme(cfg *Config) Theme {
	mode := parseThemeMode(cfg.Theme)
	surfaces := parseSurfaceMode(cfg.Surfaces)
	palette := parsePalette(cfg.Palette)

	switch mode {
	case ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	}

	return newTheme(mode, surfaces, palette)
}

func parseThemeMode(value string) ThemeMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return ThemeDark
	case "light":
		return ThemeLight
	default:
		return ThemeAuto
	}
}

func parseSurfaceMode(value string) SurfaceMode {
	if strings.ToLower(strings.TrimSpace(value)) == "solid" {
		return SurfaceSolid
	}
	return SurfaceTransparent
}

func parsePalette(value string) Palette {
	if strings.ToLower(strings.TrimSpace(value)) == "classic" {
		return PaletteClassic
	}
	return PaletteDraculaSoft
}

func newTheme(mode ThemeMode, surfaces SurfaceMode, palette Palette) Theme {
	t := Theme{
		Mode:     mode,
		Surfaces: surfaces,
		Text:     lipgloss.NoColor{},
	}

	switch palette {
	case PaletteClassic:
		// Plain ANSI colours so the dashboard matches the terminal's own scheme.
		t.TextMuted = lipgloss.Color("8")
		t.TextDim = lipgloss.Color("8")
		t.Surface = pickSurface(mode, surfaces, "15", "0")
		t.FocusBorder = lipgloss.Color("2")
		t.IdleBorder = pickColor(mode, "0", "7")
		t.StateGreen = lipgloss.Color("2")
		t.StateRed = lipgloss.Color("1")
		t.StateOrange = lipgloss.Color("3")
		t.StateNeutral = pickColor(mode, "0", "7")
		t.Accent = lipgloss.Color("4")
		t.Danger = lipgloss.Color("1")
		t.SelectionBg = pickColor(mode, "0", "7")
		t.SelectionFg = pickColor(mode, "15", "0")
	default:
		t.TextMuted = pickColor(mode, "#6B7394", "#B6B8C9")
		t.TextDim = pickColor(mode, "#8890A8", "#7D8297")
		t.Surface = pickSurface(mode, surfaces, "#F7F8FE", "#282A36")
		t.FocusBorder = pickColor(mode, "#1E9E4A", "#50FA7B")
		t.IdleBorder = pickColor(mode, "#44475A", "#F8F8F2")
		t.StateGreen = pickColor(mode, "#1E9E4A", "#50FA7B")
		t.StateRed = pickColor(mode, "#D62F3A", "#FF5555")
		t.StateOrange = pickColor(mode, "#C76B00", "#FFB86C")
		t.StateNeutral = pickColor(mode, "#282A36", "#F8F8F2")
		t.Accent = pickColor(mode, "#6C63FF", "#A78BFA")
		t.Danger = pickColor(mode, "#D62F3A", "#FF5555")
		t.SelectionBg = pickColor(mode, "#282A36", "#F8F8F2")
		t.SelectionFg = pickColor(mode, "#F8F8F2", "#282A36")
	}
	return t
}

func pickColor(mode ThemeMode, light, dark string) lipgloss.TerminalColor {
	switch mode {
	case ThemeDark:
		return lipgloss.Color(dark)
	case ThemeLight:
		return lipgloss.Color(light)
	default:
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}
}

func pickSurface(mode ThemeMode, surfaces SurfaceMode, light, dark string) lipgloss.TerminalColor {
	if surfaces == SurfaceTransparent {
		return lipgloss.NoColor{}
	}
	return pickColor(mode, light, dark)
}
