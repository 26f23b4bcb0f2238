package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestStateColors(t *testing.T) {
	theme := newTheme(ThemeDark, SurfaceTransparent, PaletteDraculaSoft)
	styles := NewStyles(theme)

	for code, want := range map[string]lipgloss.TerminalColor{
		"R":   theme.StateGreen,
		"CD":  theme.StateGreen,
		"TO":  theme.StateGreen,
		"F":   theme.StateRed,
		"PD":  theme.StateOrange,
		"CA":  theme.StateOrange,
		"PR":  theme.StateOrange,
		"NF":  theme.StateOrange,
		"RV":  theme.StateOrange,
		"S":   theme.StateOrange,
		"OOM": theme.StateNeutral,
		"CG":  theme.StateNeutral,
		"":    theme.StateNeutral,
	} {
		if got := styles.StateColor(code); got != want {
			t.Errorf("StateColor(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestBorderColors(t *testing.T) {
	theme := newTheme(ThemeDark, SurfaceTransparent, PaletteClassic)
	styles := NewStyles(theme)
	if styles.Border(true) != theme.FocusBorder || styles.Border(false) != theme.IdleBorder {
		t.Fatalf("unexpected border colours")
	}
	if theme.FocusBorder != lipgloss.Color("2") {
		t.Fatalf("expected a green focus border, got %v", theme.FocusBorder)
	}
}

func TestLoadThemeFromConfig(t *testing.T) {
	theme := LoadTheme(&Config{Theme: "LIGHT", Palette: "classic", Surfaces: "solid"})
	if theme.Mode != ThemeLight || theme.Surfaces != SurfaceSolid {
		t.Fatalf("unexpected theme %v/%v", theme.Mode, theme.Surfaces)
	}
	if _, ok := theme.Surface.(lipgloss.NoColor); ok {
		t.Fatalf("solid surfaces must have a colour")
	}

	theme = LoadTheme(&Config{Theme: "bogus", Palette: "bogus", Surfaces: ""})
	if theme.Mode != ThemeAuto || theme.Surfaces != SurfaceTransparent {
		t.Fatalf("unexpected fallback theme %v/%v", theme.Mode, theme.Surfaces)
	}
	if _, ok := theme.Surface.(lipgloss.NoColor); !ok {
		t.Fatalf("transparent surfaces must not have a colour")
	}
}

func TestStateStyleUsesPalette(t *testing.T) {
	theme := newTheme(ThemeDark, SurfaceTransparent, PaletteClassic)
	styles := NewStyles(theme)
	if got := styles.State("F").GetForeground(); got != theme.StateRed {
		t.Fatalf("unexpected foreground %v", got)
	}
	if got := styles.State("PD").Render("PD"); !strings.Contains(got, "PD") {
		t.Fatalf("state text lost: %q", got)
	}
}
