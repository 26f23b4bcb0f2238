package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// Focus selects which list receives navigation keys.
type Focus int

const (
	FocusJobList Focus = iota
	FocusOutput
)

func (f Focus) String() string {
	switch f {
	case FocusOutput:
		return "output"
	default:
		return "jobs"
	}
}

// RightPanel selects which buffer the right pane shows.
type RightPanel int

const (
	PanelOutput RightPanel = iota
	PanelScript
)

func (p RightPanel) String() string {
	switch p {
	case PanelScript:
		return "script"
	default:
		return "output"
	}
}

// Modal is the confirmation dialog currently shown, if any.
type Modal int

const (
	ModalNone Modal = iota
	ModalConfirmCancel
	ModalConfirmRequeue
)

func (m Modal) String() string {
	switch m {
	case ModalConfirmCancel:
		return "confirm-cancel"
	case ModalConfirmRequeue:
		return "confirm-requeue"
	default:
		return "none"
	}
}

// FastStep is how far Shift+Up/Down move the selection.
const FastStep = 10

// App is the dashboard state. Every mutation goes through one of its
// transition methods; adapter calls inside a transition block until done.
type App struct {
	ctx       context.Context
	scheduler Scheduler
	logger    *zap.Logger

	user       string
	timePeriod int
	running    bool

	jobs   ListBuffer[Job]
	output ListBuffer[string]
	script ListBuffer[string]

	focus       Focus
	rightPanel  RightPanel
	runningOnly bool
	modal       Modal
	// Job the open modal acts on, pinned when the modal was requested.
	target Job

	lastErr     error
	lastRefresh time.Time
}

func NewApp(ctx context.Context, scheduler Scheduler, user string, timePeriod int, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		ctx:        ctx,
		scheduler:  scheduler,
		logger:     logger,
		user:       user,
		timePeriod: timePeriod,
		running:    true,
		jobs:       NewListBuffer[Job](nil),
		output:     NewListBuffer[string](nil),
		script:     NewListBuffer[string](nil),
		focus:      FocusJobList,
		rightPanel: PanelOutput,
		modal:      ModalNone,
	}
}

func (a *App) User() string { return a.user }
func (a *App) TimePeriod() int { return a.timePeriod }
func (a *App) Running() bool { return a.running }
func (a *App) Jobs() *ListBuffer[Job] { return &a.jobs }
func (a *App) Output() *ListBuffer[string] { return &a.output }
func (a *App) Script() *ListBuffer[string] { return &a.script }
func (a *App) Focus() Focus { return a.focus }
func (a *App) RightPanel() RightPanel { return a.rightPanel }
func (a *App) RunningOnly() bool { return a.runningOnly }
func (a *App) Modal() Modal { return a.modal }
func (a *App) ModalTarget() Job { return a.target }
func (a *App) LastError() error { return a.lastErr }
func (a *App) LastRefresh() time.Time { return a.lastRefresh }

// Panel returns the buffer shown in the right pane.
func (a *App) Panel() *ListBuffer[string] {
	if a.rightPanel == PanelScript {
		return &a.script
	}
	return &a.output
}

// SelectedJob returns the job under the job-list cursor.
func (a *App) SelectedJob() (Job, bool) {
	return a.jobs.SelectedItem()
}

// Tick is called on every timer tick.
func (a *App) Tick() {}

func (a *App) Quit() {
	a.running = false
}

// Refresh reloads the job list and the buffer of the selected job.
func (a *App) Refresh() {
	jobs := a.scheduler.ListJobs(a.ctx, a.user, a.timePeriod)
	if a.runningOnly {
		jobs = activeJobs(jobs)
	}

	a.jobs.Replace(jobs)
	if _, ok := a.jobs.Selected(); !ok && a.jobs.Len() > 0 {
		a.jobs.First()
	}
	a.lastRefresh = time.Now()

	a.logger.Debug("Job list refreshed",
		zap.Int("jobs", a.jobs.Len()),
		zap.Bool("running_only", a.runningOnly),
	)
	a.refreshOutputForSelection()
}

func activeJobs(jobs []Job) []Job {
	filtered := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.IsActive() {
			filtered = append(filtered, j)
		}
	}
	return filtered
}

// refreshOutputForSelection reloads the buffer shown in the right pane for
// the selected job and moves its cursor back to the first line.
func (a *App) refreshOutputForSelection() {
	job, ok := a.jobs.SelectedItem()
	if !ok {
		a.output.Clear()
		a.script.Clear()
		return
	}

	switch a.rightPanel {
	case PanelScript:
		a.script.Reset(a.scheduler.FetchScript(a.ctx, job.ID))
	default:
		a.output.Reset(a.scheduler.FetchOutput(a.ctx, job.ID))
	}
}

func (a *App) navigate(jobMove func(*ListBuffer[Job]), lineMove func(*ListBuffer[string])) {
	if a.modal != ModalNone {
		return
	}
	if a.focus == FocusJobList {
		jobMove(&a.jobs)
		a.refreshOutputForSelection()
		return
	}
	lineMove(a.Panel())
}

func (a *App) MoveUp() {
	a.navigate((*ListBuffer[Job]).Previous, (*ListBuffer[string]).Previous)
}

func (a *App) MoveDown() {
	a.navigate((*ListBuffer[Job]).Next, (*ListBuffer[string]).Next)
}

// MoveBy moves the focused selection by n with wrap-around.
func (a *App) MoveBy(n int) {
	a.navigate(
		func(l *ListBuffer[Job]) { l.Step(n) },
		func(l *ListBuffer[string]) { l.Step(n) },
	)
}

func (a *App) JumpTop() {
	a.navigate((*ListBuffer[Job]).First, (*ListBuffer[string]).First)
}

func (a *App) JumpBottom() {
	a.navigate((*ListBuffer[Job]).Last, (*ListBuffer[string]).Last)
}

func (a *App) ToggleRightPanel() {
	if a.modal != ModalNone {
		return
	}
	if a.rightPanel == PanelOutput {
		a.rightPanel = PanelScript
	} else {
		a.rightPanel = PanelOutput
	}
	a.refreshOutputForSelection()
}

func (a *App) ToggleFocus() {
	if a.modal != ModalNone {
		return
	}
	if a.focus == FocusJobList {
		a.focus = FocusOutput
	} else {
		a.focus = FocusJobList
	}
}

func (a *App) ToggleFilter() {
	if a.modal != ModalNone {
		return
	}
	a.runningOnly = !a.runningOnly
	a.Refresh()
}

func (a *App) RequestCancel() {
	a.requestModal(ModalConfirmCancel)
}

func (a *App) RequestRequeue() {
	a.requestModal(ModalConfirmRequeue)
}

func (a *App) requestModal(m Modal) {
	if a.modal != ModalNone {
		return
	}
	job, ok := a.jobs.SelectedItem()
	if !ok {
		return
	}
	a.target = job
	a.modal = m
}

// ConfirmModal runs the pending action, closes the dialog and refreshes.
// Failures are logged and kept for the status pane.
func (a *App) ConfirmModal() {
	if a.modal == ModalNone {
		return
	}
	modal, job := a.modal, a.target
	a.modal = ModalNone
	a.target = Job{}

	var err error
	switch modal {
	case ModalConfirmCancel:
		err = a.scheduler.Cancel(a.ctx, job.ID)
	case ModalConfirmRequeue:
		err = a.scheduler.Requeue(a.ctx, job.ID)
	}
	if err != nil {
		a.logger.Warn("Job action failed",
			zap.String("action", modal.String()),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	} else {
		a.logger.Info("Job action succeeded",
			zap.String("action", modal.String()),
			zap.String("job_id", job.ID),
		)
	}
	a.lastErr = err

	a.Refresh()
}

func (a *App) CancelModal() {
	a.modal = ModalNone
	a.target = Job{}
}

// FocusedText returns the text under the focused cursor: the job id in the job
// list, or the selected line of the right pane.
func (a *App) FocusedText() (string, bool) {
	if a.focus == FocusJobList {
		job, ok := a.jobs.SelectedItem()
		return job.ID, ok && job.ID != ""
	}
	return a.Panel().SelectedItem()
}

// outputLocator is implemented by schedulers that can point at a job's
// stdout file on disk.
type outputLocator interface {
	OutputPath(ctx context.Context, jobID string) (string, error)
}

// OutputFile returns the stdout file of the selected job when the scheduler
// can locate it and it exists.
func (a *App) OutputFile() (string, bool) {
	locator, ok := a.scheduler.(outputLocator)
	if !ok {
		return "", false
	}
	job, ok := a.jobs.SelectedItem()
	if !ok {
		return "", false
	}
	path, err := locator.OutputPath(a.ctx, job.ID)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}
