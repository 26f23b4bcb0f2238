package main

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	theme Theme

	Title       lipgloss.Style
	FocusTitle  lipgloss.Style
	Selected    lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Gutter      lipgloss.Style
	Placeholder lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	StatusAlert lipgloss.Style
	Notice      lipgloss.Style
	Modal       lipgloss.Style
	ModalText   lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		theme: t,

		Title: lipgloss.NewStyle().
			Foreground(t.IdleBorder).
			Bold(true),

		FocusTitle: lipgloss.NewStyle().
			Foreground(t.FocusBorder).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Foreground(t.SelectionFg).
			Background(t.SelectionBg),

		Label: lipgloss.NewStyle().
			Foreground(t.TextMuted).
			Bold(true),

		Value: lipgloss.NewStyle().
			Foreground(t.Text),

		Gutter: lipgloss.NewStyle().
			Foreground(t.TextDim),

		Placeholder: lipgloss.NewStyle().
			Foreground(t.TextMuted).
			Italic(true),

		StatusKey: lipgloss.NewStyle().
			Foreground(t.TextMuted),

		StatusValue: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),

		StatusAlert: lipgloss.NewStyle().
			Foreground(t.Danger).
			Bold(true),

		Notice: lipgloss.NewStyle().
			Foreground(t.StateGreen),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Danger).
			Background(t.Surface).
			Padding(0, 1).
			Align(lipgloss.Center, lipgloss.Center),

		ModalText: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),
	}
}

// Border returns the border colour of a panel.
func (s Styles) Border(focused bool) lipgloss.TerminalColor {
	if focused {
		return s.theme.FocusBorder
	}
	return s.theme.IdleBorder
}

// StateColor picks the foreground for a short state code.
func (s Styles) StateColor(code string) lipgloss.TerminalColor {
	switch code {
	case "R", "CD", "TO":
		return s.theme.StateGreen
	case "F":
		return s.theme.StateRed
	case "PD", "CA", "PR", "NF", "RV", "S":
		return s.theme.StateOrange
	default:
		return s.theme.StateNeutral
	}
}

// State styles text in the palette colour of a short state code.
func (s Styles) State(code string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.StateColor(code))
}
