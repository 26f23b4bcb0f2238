package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const (
	statusBarHeight  = 3
	maxDetailsHeight = 11
	jobListPercent   = 25
	helpPercent      = 80
	modalWidthPct    = 30
	modalHeightPct   = 10
	minModalWidth    = 32
	minModalHeight   = 5
	tabWidth         = 4
)

// View renders the whole frame from the current model and window size.
func (d Dashboard) View() string {
	width, height := d.width, d.height
	if width <= 0 || height <= 0 {
		return ""
	}

	status := d.renderStatusBar(width, height)
	bodyHeight := height - lipgloss.Height(status)
	if bodyHeight <= 0 {
		return clampViewHeight(clampViewWidth(status, width), height)
	}

	body := d.renderBody(width, bodyHeight)
	if d.app.Modal() != ModalNone {
		body = d.overlayModal(body, width, bodyHeight)
	}

	view := lipgloss.JoinVertical(lipgloss.Left, body, status)
	return clampViewHeight(clampViewWidth(view, width), height)
}

func (d Dashboard) renderBody(width, height int) string {
	listWidth := width * jobListPercent / 100
	rightWidth := width - listWidth

	detailsHeight := min(maxDetailsHeight, height/2)
	panelHeight := height - detailsHeight

	jobs := d.renderPanel(d.jobsTitle(), d.jobLines(listWidth-2, height-2), listWidth, height, d.app.Focus() == FocusJobList)
	right := d.renderPanel(d.panelTitle(), d.panelLines(rightWidth-2, panelHeight-2), rightWidth, panelHeight, d.app.Focus() == FocusOutput)
	if detailsHeight > 0 {
		details := d.renderPanel(d.loc.T("panel_details"), d.detailLines(rightWidth-2), rightWidth, detailsHeight, false)
		right = lipgloss.JoinVertical(lipgloss.Left, details, right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, jobs, right)
}

func (d Dashboard) jobsTitle() string {
	title := fmt.Sprintf("%s (%d)", d.loc.T("panel_jobs"), d.app.Jobs().Len())
	if d.app.RunningOnly() {
		title += " " + d.loc.T("filter_active")
	}
	return title
}

func (d Dashboard) panelTitle() string {
	if d.app.RightPanel() == PanelScript {
		return d.loc.T("panel_script")
	}
	return d.loc.T("panel_output")
}

// jobLines renders the visible window of "id | state | name" rows.
func (d Dashboard) jobLines(width, rows int) []string {
	jobs := d.app.Jobs()
	if rows <= 0 {
		return nil
	}
	if jobs.Len() == 0 {
		return []string{d.styles.Placeholder.Render(d.loc.T("empty_jobs"))}
	}

	idWidth, codeWidth := 0, 0
	for _, job := range jobs.Items() {
		idWidth = max(idWidth, runewidth.StringWidth(job.ID))
		codeWidth = max(codeWidth, runewidth.StringWidth(job.Code()))
	}

	sel, ok := jobs.Selected()
	start := windowStart(sel, ok, rows)
	end := max(start, min(jobs.Len(), start+rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		job := jobs.Items()[i]
		id := runewidth.FillRight(job.ID, idWidth)
		code := runewidth.FillRight(job.Code(), codeWidth)

		if ok && i == sel {
			plain := id + " | " + code + " | " + job.Name
			lines = append(lines, d.styles.Selected.Render(fitLine(plain, width)))
			continue
		}
		state := d.styles.State(job.Code()).Render(code)
		lines = append(lines, id+" | "+state+" | "+job.Name)
	}
	return lines
}

func (d Dashboard) detailLines(width int) []string {
	job, ok := d.app.SelectedJob()
	if !ok {
		return nil
	}

	rows := []struct {
		label string
		value string
	}{
		{d.loc.T("detail_state"), d.styles.State(job.Code()).Render(job.State)},
		{d.loc.T("detail_job_id"), job.ID},
		{d.loc.T("detail_name"), job.Name},
		{d.loc.T("detail_node"), job.NodeList},
		{d.loc.T("detail_work_dir"), job.WorkDir},
		{d.loc.T("detail_account"), job.Account},
		{d.loc.T("detail_submit"), job.Submit},
		{d.loc.T("detail_start"), job.Start},
		{d.loc.T("detail_elapsed_limit"), job.Elapsed + " / " + job.TimeLimit},
	}

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r.label))
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := d.styles.Label.Render(runewidth.FillRight(r.label, labelWidth))
		lines = append(lines, fitLine(label+"  "+d.styles.Value.Render(r.value), width))
	}
	return lines
}

// panelLines renders the output or script buffer with a line-number gutter,
// windowed so the selected line stays visible.
func (d Dashboard) panelLines(width, rows int) []string {
	buf := d.app.Panel()
	if rows <= 0 {
		return nil
	}
	if buf.Len() == 0 {
		key := "empty_output"
		if d.app.RightPanel() == PanelScript {
			key = "empty_script"
		}
		if _, ok := d.app.SelectedJob(); !ok {
			return nil
		}
		return []string{d.styles.Placeholder.Render(d.loc.T(key))}
	}

	gutterWidth := len(strconv.Itoa(buf.Len()))
	sel, ok := buf.Selected()
	start := windowStart(sel, ok, rows)
	end := max(start, min(buf.Len(), start+rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		gutter := d.styles.Gutter.Render(fmt.Sprintf("%*d ", gutterWidth, i+1))
		text := expandTabs(buf.Items()[i])
		if ok && i == sel && d.app.Focus() == FocusOutput {
			textWidth := max(0, width-gutterWidth-1)
			text = d.styles.Selected.Render(fitLine(ansi.Strip(text), textWidth))
		}
		lines = append(lines, gutter+text)
	}
	return lines
}

func (d Dashboard) renderStatusBar(width, height int) string {
	helpWidth := width * helpPercent / 100
	statusWidth := width - helpWidth

	d.help.Width = helpWidth
	helpLines := strings.Split(d.help.View(d.keys), "\n")

	rows := max(statusBarHeight, len(helpLines))
	rows = min(rows, height)
	if rows <= 0 {
		return ""
	}

	statusLines := d.statusLines()
	sep := d.styles.Gutter.Render("│ ")
	innerStatus := max(0, statusWidth-2)

	lines := make([]string, rows)
	for i := range lines {
		var h, s string
		if i < len(helpLines) {
			h = helpLines[i]
		}
		if i < len(statusLines) {
			s = statusLines[i]
		}
		lines[i] = fitLine(h, helpWidth)
		if statusWidth >= 2 {
			lines[i] += sep + fitLine(s, innerStatus)
		}
	}
	return strings.Join(lines, "\n")
}

func (d Dashboard) statusLines() []string {
	filter := d.loc.T("filter_all")
	if d.app.RunningOnly() {
		filter = d.loc.T("filter_active")
	}
	panel := d.loc.T("panel_name_output")
	if d.app.RightPanel() == PanelScript {
		panel = d.loc.T("panel_name_script")
	}

	lines := []string{
		d.styles.StatusKey.Render(d.loc.T("status_filter")+": ") + d.styles.StatusValue.Render(filter),
		d.styles.StatusKey.Render(d.loc.T("status_panel")+": ") + d.styles.StatusValue.Render(panel),
	}

	switch {
	case d.app.LastError() != nil:
		lines = append(lines, d.styles.StatusAlert.Render(d.loc.T("status_action_failed")))
	case d.notice != "":
		lines = append(lines, d.styles.Notice.Render(d.notice))
	case !d.app.LastRefresh().IsZero():
		lines = append(lines, d.styles.StatusKey.Render(d.loc.T("status_updated")+": ")+
			d.styles.StatusValue.Render(d.app.LastRefresh().Format("15:04:05")))
	}
	return lines
}

// renderPanel draws a rounded box of exactly width x height cells with the
// title set into the top border.
func (d Dashboard) renderPanel(title string, lines []string, width, height int, focused bool) string {
	if width < 2 || height < 2 {
		return blankBlock(width, height)
	}

	border := lipgloss.RoundedBorder()
	borderStyle := lipgloss.NewStyle().Foreground(d.styles.Border(focused))
	titleStyle := d.styles.Title
	if focused {
		titleStyle = d.styles.FocusTitle
	}

	innerWidth := width - 2
	innerHeight := height - 2

	titleText := truncate.String(" "+title+" ", uint(max(0, innerWidth-1)))
	fill := innerWidth - lipgloss.Width(titleText)
	top := borderStyle.Render(border.TopLeft)
	if innerWidth > 0 {
		top += borderStyle.Render(border.Top) + titleStyle.Render(titleText)
		fill--
	}
	top += borderStyle.Render(strings.Repeat(border.Top, max(0, fill)) + border.TopRight)

	out := make([]string, 0, height)
	out = append(out, top)
	left := borderStyle.Render(border.Left)
	right := borderStyle.Render(border.Right)
	for i := 0; i < innerHeight; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		out = append(out, left+fitLine(line, innerWidth)+right)
	}
	out = append(out, borderStyle.Render(border.BottomLeft+strings.Repeat(border.Bottom, innerWidth)+border.BottomRight))
	return strings.Join(out, "\n")
}

// overlayModal splices the confirmation box into the centre of the body.
func (d Dashboard) overlayModal(body string, width, height int) string {
	boxWidth := min(width, max(minModalWidth, width*modalWidthPct/100))
	boxHeight := min(height, max(minModalHeight, height*modalHeightPct/100))
	if boxWidth < 4 || boxHeight < 3 {
		return body
	}

	box := d.renderModal(boxWidth, boxHeight)
	boxLines := strings.Split(box, "\n")
	bodyLines := strings.Split(body, "\n")

	x := (width - boxWidth) / 2
	y := (height - boxHeight) / 2
	for i, boxLine := range boxLines {
		row := y + i
		if row < 0 || row >= len(bodyLines) {
			continue
		}
		line := bodyLines[row]
		left := ansi.Truncate(line, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		rest := ansi.TruncateLeft(line, x+ansi.StringWidth(boxLine), "")
		bodyLines[row] = left + ansi.ResetStyle + boxLine + ansi.ResetStyle + rest
	}
	return strings.Join(bodyLines, "\n")
}

func (d Dashboard) renderModal(width, height int) string {
	job := d.app.ModalTarget()
	msgID := "modal_cancel"
	if d.app.Modal() == ModalConfirmRequeue {
		msgID = "modal_requeue"
	}

	// Border and horizontal padding take four columns.
	textWidth := max(1, width-4)
	message := wordwrap.String(d.loc.TF(msgID, map[string]interface{}{"JobID": job.ID}), textWidth)
	lines := strings.Split(message, "\n")
	lines = append(lines, d.styles.Gutter.Render(d.loc.T("modal_hint")))

	innerHeight := max(1, height-2)
	if len(lines) > innerHeight {
		lines = lines[:innerHeight]
	}
	for i := range lines {
		lines[i] = truncate.String(lines[i], uint(textWidth))
	}
	content := d.styles.ModalText.Render(strings.Join(lines, "\n"))

	return d.styles.Modal.
		Width(width - 2).
		Height(innerHeight).
		MaxWidth(width).
		MaxHeight(height).
		Render(content)
}

// windowStart returns the first visible row so that the selection stays on
// screen when the list is taller than the panel.
func windowStart(selected int, ok bool, rows int) int {
	if !ok || rows <= 0 || selected < rows {
		return 0
	}
	return selected - rows + 1
}

// fitLine truncates s to width cells and pads it with spaces to exactly width.
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > width {
		s = truncate.String(s, uint(width))
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func blankBlock(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	row := strings.Repeat(" ", width)
	lines := make([]string, height)
	for i := range lines {
		lines[i] = row
	}
	return strings.Join(lines, "\n")
}

func clampViewWidth(view string, width int) string {
	if width <= 0 {
		return view
	}
	lines := strings.Split(view, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}

func clampViewHeight(view string, height int) string {
	if height <= 0 {
		return view
	}
	lines := strings.Split(view, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
