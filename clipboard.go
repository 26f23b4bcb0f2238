package main

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	tea "github.com/charmbracelet/bubbletea"
)

type copiedMsg struct {
	err error
}

type pagerDoneMsg struct {
	err error
}

// copyCmd copies text to the system clipboard. Without a clipboard helper
// (headless login nodes, ssh sessions) the text is sent to the terminal as an
// OSC 52 sequence instead.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err == nil {
			return copiedMsg{}
		}
		_, err := osc52Sequence(text).WriteTo(os.Stdout)
		return copiedMsg{err: err}
	}
}

func osc52Sequence(text string) osc52.Sequence {
	seq := osc52.New(text).Limit(100 * 1024)

	term := strings.ToLower(os.Getenv("TERM"))
	if os.Getenv("TMUX") != "" || strings.HasPrefix(term, "tmux") {
		seq = seq.Tmux()
	} else if strings.HasPrefix(term, "screen") {
		seq = seq.Screen()
	}
	return seq
}

// pagerCommand builds the $PAGER invocation for path, defaulting to less.
func pagerCommand(path string) *exec.Cmd {
	fields := strings.Fields(os.Getenv("PAGER"))
	if len(fields) == 0 {
		fields = []string{"less"}
	}
	args := append(fields[1:len(fields):len(fields)], path)
	return exec.Command(fields[0], args...)
}

// openPagerCmd suspends the dashboard and pages an existing file.
func openPagerCmd(path string) tea.Cmd {
	return tea.ExecProcess(pagerCommand(path), func(err error) tea.Msg {
		return pagerDoneMsg{err: err}
	})
}

// pageLinesCmd writes lines to a temporary file and pages it. The file is
// removed once the pager exits.
func pageLinesCmd(lines []string) tea.Cmd {
	f, err := os.CreateTemp("", "sjobs-*.txt")
	if err != nil {
		return func() tea.Msg { return pagerDoneMsg{err: err} }
	}
	_, werr := io.WriteString(f, strings.Join(lines, "\n")+"\n")
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(f.Name())
		return func() tea.Msg { return pagerDoneMsg{err: werr} }
	}

	path := f.Name()
	return tea.ExecProcess(pagerCommand(path), func(err error) tea.Msg {
		_ = os.Remove(path)
		return pagerDoneMsg{err: err}
	})
}
