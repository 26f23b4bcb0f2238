package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

func newTestDashboard(t *testing.T, sched *fakeScheduler, locale string) Dashboard {
	t.Helper()
	loc, err := NewLocalizer(locale)
	if err != nil {
		t.Fatalf("localizer: %v", err)
	}
	cfg := &Config{Tick: time.Second, RefreshEvery: 1}
	app := NewApp(context.Background(), sched, "alice", 7, zap.NewNop())
	app.Refresh()
	styles := NewStyles(newTheme(ThemeDark, SurfaceTransparent, PaletteDraculaSoft))
	return NewDashboard(app, cfg, styles, loc, zap.NewNop())
}

func sampleScheduler() *fakeScheduler {
	output := make([]string, 0, 60)
	for i := 1; i <= 60; i++ {
		output = append(output, fmt.Sprintf("line %d\twith a tab and a fairly long tail that will not fit in narrow panels", i))
	}
	return &fakeScheduler{
		jobs: []Job{
			{ID: "101", State: "RUNNING", Name: "train", NodeList: "node001", WorkDir: "/work/train", Account: "acc",
				Submit: "2025-01-01T10:00:00", Start: "2025-01-01T10:00:05", Elapsed: "00:10:00", TimeLimit: "02:00:00"},
			{ID: "102", State: "PENDING", Name: "eval", NodeList: "None assigned", WorkDir: "/work/eval", Account: "acc"},
			{ID: "103", State: "FAILED", Name: "a-job-with-a-really-long-name-that-needs-truncating", WorkDir: "/work"},
		},
		output: map[string][]string{"101": output},
		script: map[string][]string{"101": {"#!/bin/bash", "#SBATCH --time=02:00:00", "srun python train.py"}},
	}
}

func sized(d Dashboard, w, h int) Dashboard {
	d.width, d.height = w, h
	return d
}

func TestViewFitsInWindow(t *testing.T) {
	sizes := []struct {
		w int
		h int
	}{
		{160, 50},
		{120, 40},
		{100, 30},
		{80, 24},
		{70, 20},
		{60, 18},
		{50, 16},
		{30, 10},
		{12, 4},
		{5, 2},
	}

	variants := map[string]func(*Dashboard){
		"plain": func(*Dashboard) {},
		"modal": func(d *Dashboard) { d.app.RequestCancel() },
		"full help": func(d *Dashboard) {
			d.help.ShowAll = true
		},
		"script focus": func(d *Dashboard) {
			d.app.ToggleRightPanel()
			d.app.ToggleFocus()
		},
	}

	for name, apply := range variants {
		model := newTestDashboard(t, sampleScheduler(), "en")
		apply(&model)

		for _, size := range sizes {
			view := sized(model, size.w, size.h).View()
			vw, vh := measureView(view)
			if vw > size.w {
				t.Fatalf("%s: view width %d exceeds window width %d (height %d)", name, vw, size.w, size.h)
			}
			if vh > size.h {
				t.Fatalf("%s: view height %d exceeds window height %d (width %d)", name, vh, size.h, size.w)
			}
		}
	}
}

func TestViewSurvivesShortTerminals(t *testing.T) {
	for _, focusOutput := range []bool{false, true} {
		model := newTestDashboard(t, sampleScheduler(), "en")
		model.app.JumpBottom()
		if focusOutput {
			model.app.JumpTop()
			model.app.ToggleFocus()
			model.app.JumpBottom()
		}
		for h := 1; h <= 8; h++ {
			for _, w := range []int{20, 40, 120} {
				view := sized(model, w, h).View()
				if _, vh := measureView(view); vh > h {
					t.Fatalf("%dx%d: view is %d rows tall", w, h, vh)
				}
			}
		}
	}
}

func TestViewFillsWindow(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "en")
	for _, size := range []struct{ w, h int }{{120, 40}, {80, 24}} {
		_, vh := measureView(sized(model, size.w, size.h).View())
		if vh != size.h {
			t.Fatalf("expected %d rows, got %d (width %d)", size.h, vh, size.w)
		}
	}
}

func TestViewRendersJobsDetailsAndStatus(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "en")
	view := ansi.Strip(sized(model, 140, 40).View())

	for _, want := range []string{
		"Jobs (3)",
		"101 | R  | train",
		"102 | PD | eval",
		"Details",
		"JOB ID",
		"ELAPSED/LIMIT",
		"00:10:00 / 02:00:00",
		"Output",
		"Filter: All",
		"Panel: Output",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "last action failed") {
		t.Fatalf("unexpected failure marker")
	}
	updated := "Updated: " + model.app.LastRefresh().Format("15:04:05")
	if !strings.Contains(view, updated) {
		t.Fatalf("view is missing %q:\n%s", updated, view)
	}
}

func TestViewEmptyJobList(t *testing.T) {
	model := newTestDashboard(t, &fakeScheduler{}, "en")
	view := ansi.Strip(sized(model, 100, 30).View())

	if !strings.Contains(view, "No jobs") {
		t.Fatalf("expected the empty placeholder:\n%s", view)
	}
	if strings.Contains(view, "JOB ID") {
		t.Fatalf("details should be empty without a selection:\n%s", view)
	}
}

func TestViewKeepsSelectedOutputLineVisible(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "en")
	model.app.ToggleFocus()
	model.app.JumpBottom()

	view := ansi.Strip(sized(model, 160, 40).View())
	if !strings.Contains(view, "60 line 60") {
		t.Fatalf("expected the last output line to be visible:\n%s", view)
	}
	if strings.Contains(view, " 1 line 1 ") {
		t.Fatalf("expected the window to have scrolled past the first line")
	}
}

func TestViewModalNamesTargetJob(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "en")
	model.app.MoveDown()
	model.app.RequestRequeue()

	view := ansi.Strip(sized(model, 120, 40).View())
	if !strings.Contains(view, "Requeue job 102?") {
		t.Fatalf("expected the modal message:\n%s", view)
	}
	if !strings.Contains(view, "enter/y confirm") {
		t.Fatalf("expected the modal hint:\n%s", view)
	}
}

func TestViewShowsScriptPanelAndFilter(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "en")
	model.app.ToggleRightPanel()
	model.app.ToggleFilter()

	view := ansi.Strip(sized(model, 140, 40).View())
	for _, want := range []string{"Job Script", "srun python train.py", "Filter: R/PD", "Panel: Script", "Jobs (2) R/PD"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}
}

func TestViewShowsFailureMarker(t *testing.T) {
	sched := sampleScheduler()
	sched.failErr = &ExitError{Command: "scancel", Code: 1}
	model := newTestDashboard(t, sched, "en")
	model.app.RequestCancel()
	model.app.ConfirmModal()

	view := ansi.Strip(sized(model, 140, 40).View())
	if !strings.Contains(view, "last action failed") {
		t.Fatalf("expected the failure marker:\n%s", view)
	}
}

func TestViewLocalized(t *testing.T) {
	model := newTestDashboard(t, sampleScheduler(), "zh")
	view := ansi.Strip(sized(model, 140, 40).View())
	for _, want := range []string{"作业 (3)", "详情", "输出"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}
	if w, _ := measureView(sized(model, 140, 40).View()); w > 140 {
		t.Fatalf("localized view is %d cells wide", w)
	}
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		sel  int
		ok   bool
		rows int
		want int
	}{
		{0, false, 10, 0},
		{5, true, 10, 0},
		{9, true, 10, 0},
		{10, true, 10, 1},
		{59, true, 10, 50},
		{3, true, 0, 0},
	}
	for _, tc := range tests {
		if got := windowStart(tc.sel, tc.ok, tc.rows); got != tc.want {
			t.Errorf("windowStart(%d, %v, %d) = %d, want %d", tc.sel, tc.ok, tc.rows, got, tc.want)
		}
	}
}

func TestFitLine(t *testing.T) {
	if got := fitLine("abc", 5); got != "abc  " {
		t.Fatalf("expected padding, got %q", got)
	}
	if got := fitLine("abcdef", 4); got != "abcd" {
		t.Fatalf("expected truncation, got %q", got)
	}
	styled := lipgloss.NewStyle().Bold(true).Render("abcdef")
	if w := lipgloss.Width(fitLine(styled, 3)); w != 3 {
		t.Fatalf("expected styled text to fit 3 cells, got %d", w)
	}
	if got := fitLine("abc", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func measureView(view string) (width int, height int) {
	clean := strings.ReplaceAll(view, "\r\n", "\n")
	lines := strings.Split(clean, "\n")
	height = len(lines)
	for _, line := range lines {
		w := lipgloss.Width(line)
		if w > width {
			width = w
		}
	}
	return
}
