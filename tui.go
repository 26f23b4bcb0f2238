package main

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"go.uber.org/zap"
)

const noticeDuration = 2 * time.Second

// KeyMap defines the keybindings
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Up        key.Binding
	Down      key.Binding
	FastUp    key.Binding
	FastDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Panel     key.Binding
	Filter    key.Binding
	Focus     key.Binding
	Cancel    key.Binding
	Requeue   key.Binding
	Confirm   key.Binding
	Dismiss   key.Binding
	Copy      key.Binding
	Pager     key.Binding
	Help      key.Binding
}

func newKeyMap(loc *Localizer) KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", loc.T("key_quit"))),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("^c", loc.T("key_quit"))),
		Up:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", loc.T("key_up"))),
		Down:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", loc.T("key_down"))),
		FastUp:    key.NewBinding(key.WithKeys("shift+up"), key.WithHelp("⇧↑", loc.T("key_fast_up"))),
		FastDown:  key.NewBinding(key.WithKeys("shift+down"), key.WithHelp("⇧↓", loc.T("key_fast_down"))),
		Top:       key.NewBinding(key.WithKeys("t", "home"), key.WithHelp("t", loc.T("key_top"))),
		Bottom:    key.NewBinding(key.WithKeys("b", "end"), key.WithHelp("b", loc.T("key_bottom"))),
		Panel:     key.NewBinding(key.WithKeys("j"), key.WithHelp("j", loc.T("key_panel"))),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", loc.T("key_filter"))),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", loc.T("key_focus"))),
		Cancel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", loc.T("key_cancel"))),
		Requeue:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", loc.T("key_requeue"))),
		Confirm:   key.NewBinding(key.WithKeys("enter", "y", "Y"), key.WithHelp("enter/y", loc.T("key_confirm"))),
		Dismiss:   key.NewBinding(key.WithKeys("esc", "n", "N"), key.WithHelp("esc/n", loc.T("key_dismiss"))),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", loc.T("key_copy"))),
		Pager:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", loc.T("key_pager"))),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", loc.T("key_help"))),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Up, k.Down, k.Panel, k.Focus, k.Filter, k.Cancel, k.Requeue, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.FastUp, k.FastDown, k.Top, k.Bottom},
		{k.Panel, k.Focus, k.Filter, k.Copy, k.Pager},
		{k.Cancel, k.Requeue, k.Confirm, k.Dismiss},
		{k.Help, k.Quit, k.ForceQuit},
	}
}

type tickMsg time.Time
type refreshMsg struct{}

// Dashboard is the Bubble Tea model. It translates messages into App
// transitions; the App does the work synchronously inside Update.
type Dashboard struct {
	app    *App
	styles Styles
	loc    *Localizer
	keys   KeyMap
	help   help.Model
	logger *zap.Logger

	tick         time.Duration
	refreshEvery int
	ticks        int

	width  int
	height int

	notice      string
	noticeUntil time.Time
}

func NewDashboard(app *App, cfg *Config, styles Styles, loc *Localizer, logger *zap.Logger) Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := help.New()
	return Dashboard{
		app:          app,
		styles:       styles,
		loc:          loc,
		keys:         newKeyMap(loc),
		help:         h,
		logger:       logger,
		tick:         cfg.Tick,
		refreshEvery: max(1, cfg.RefreshEvery),
	}
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return refreshMsg{} },
		d.tickCmd(),
		initialWindowSizeCmd(),
	)
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			d.width = msg.Width
		}
		if msg.Height > 0 {
			d.height = msg.Height
		}
		return d, nil

	case refreshMsg:
		d.app.Refresh()
		return d, nil

	case tickMsg:
		d.app.Tick()
		d.ticks++
		if d.ticks%d.refreshEvery == 0 {
			d.app.Refresh()
		}
		if d.notice != "" && time.Time(msg).After(d.noticeUntil) {
			d.notice = ""
		}
		return d, d.tickCmd()

	case copiedMsg:
		if msg.err != nil {
			d.logger.Warn("Copy to clipboard failed", zap.Error(msg.err))
			d.setNotice(d.loc.T("status_copy_failed"))
		} else {
			d.setNotice(d.loc.T("status_copied"))
		}
		return d, nil

	case pagerDoneMsg:
		if msg.err != nil {
			d.logger.Warn("Pager exited with error", zap.Error(msg.err))
			d.setNotice(d.loc.T("status_pager_failed"))
		}
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)
	}
	return d, nil
}

func (d Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, d.keys.ForceQuit) {
		d.app.Quit()
		return d, tea.Quit
	}

	// An open dialog captures the keyboard until it is confirmed or dismissed.
	if d.app.Modal() != ModalNone {
		switch {
		case key.Matches(msg, d.keys.Confirm):
			d.app.ConfirmModal()
		case key.Matches(msg, d.keys.Dismiss):
			d.app.CancelModal()
		}
		return d, nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, d.keys.Quit):
		d.app.Quit()
	case key.Matches(msg, d.keys.Up):
		d.app.MoveUp()
	case key.Matches(msg, d.keys.Down):
		d.app.MoveDown()
	case key.Matches(msg, d.keys.FastUp):
		d.app.MoveBy(-FastStep)
	case key.Matches(msg, d.keys.FastDown):
		d.app.MoveBy(FastStep)
	case key.Matches(msg, d.keys.Top):
		d.app.JumpTop()
	case key.Matches(msg, d.keys.Bottom):
		d.app.JumpBottom()
	case key.Matches(msg, d.keys.Panel):
		d.app.ToggleRightPanel()
	case key.Matches(msg, d.keys.Filter):
		d.app.ToggleFilter()
	case key.Matches(msg, d.keys.Focus):
		d.app.ToggleFocus()
	case key.Matches(msg, d.keys.Cancel):
		d.app.RequestCancel()
	case key.Matches(msg, d.keys.Requeue):
		d.app.RequestRequeue()
	case key.Matches(msg, d.keys.Copy):
		if text, ok := d.app.FocusedText(); ok {
			cmd = copyCmd(text)
		}
	case key.Matches(msg, d.keys.Pager):
		cmd = d.pagerCmd()
	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll
	}

	if !d.app.Running() {
		return d, tea.Quit
	}
	return d, cmd
}

// pagerCmd pages the output file of the selected job when it can be located,
// and the loaded buffer otherwise.
func (d Dashboard) pagerCmd() tea.Cmd {
	if _, ok := d.app.SelectedJob(); !ok {
		return nil
	}
	if d.app.RightPanel() == PanelOutput {
		if path, ok := d.app.OutputFile(); ok {
			return openPagerCmd(path)
		}
	}
	lines := d.app.Panel().Items()
	if len(lines) == 0 {
		return nil
	}
	return pageLinesCmd(lines)
}

func (d *Dashboard) setNotice(text string) {
	d.notice = text
	d.noticeUntil = time.Now().Add(noticeDuration)
}

func (d Dashboard) tickCmd() tea.Cmd {
	return tea.Tick(d.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialWindowSizeCmd() tea.Cmd {
	return func() tea.Msg {
		width, height := detectTerminalSize()
		return tea.WindowSizeMsg{Width: width, Height: height}
	}
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}
