package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Scheduler is the narrow surface the dashboard needs from the workload
// manager. Listing and fetching never fail: problems degrade to empty results.
type Scheduler interface {
	ListJobs(ctx context.Context, user string, days int) []Job
	FetchOutput(ctx context.Context, jobID string) []string
	FetchScript(ctx context.Context, jobID string) []string
	Cancel(ctx context.Context, jobID string) error
	Requeue(ctx context.Context, jobID string) error
}

// Job represents one Slurm allocation as reported by sacct
type Job struct {
	ID        string
	State     string
	Name      string
	NodeList  string
	WorkDir   string
	Account   string
	Submit    string
	Start     string
	Elapsed   string
	TimeLimit string
}

// Code returns the short state code (R, PD, etc.)
func (j Job) Code() string {
	return StateCode(j.State)
}

// IsActive reports whether the job is running or pending.
func (j Job) IsActive() bool {
	c := j.Code()
	return c == "R" || c == "PD"
}

var statusAliases = map[string]string{
	"RUNNING":       "R",
	"COMPLETING":    "CG",
	"CONFIGURING":   "CF",
	"PENDING":       "PD",
	"PREEMPTED":     "PR",
	"REQUEUED":      "RQ",
	"REQUEUE_HOLD":  "RH",
	"REQUEUE_FED":   "RF",
	"RESIZING":      "RS",
	"REVOKED":       "RV",
	"SUSPENDED":     "S",
	"STOPPED":       "ST",
	"COMPLETED":     "CD",
	"CANCELLED":     "CA",
	"FAILED":        "F",
	"TIMEOUT":       "TO",
	"NODE_FAIL":     "NF",
	"BOOT_FAIL":     "BF",
	"DEADLINE":      "DL",
	"OUT_OF_MEMORY": "OOM",
}

// StateCode converts a full state name to its short code. Short codes and
// unknown states pass through uppercased.
func StateCode(state string) string {
	text := strings.ToUpper(strings.TrimSpace(state))
	if text == "" {
		return ""
	}
	if parts := strings.Fields(text); len(parts) > 1 {
		text = parts[0]
	}
	text = strings.TrimRight(text, "*+")

	if alias, ok := statusAliases[text]; ok {
		return alias
	}
	return text
}

// normalizeState keeps the first token of an accounting state field,
// uppercased ("CANCELLED by 4840" -> "CANCELLED").
func normalizeState(field string) string {
	parts := strings.Fields(field)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToUpper(parts[0])
}

func CurrentUser() string {
	u, err := user.Current()
	if err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// SpawnError means the scheduler command could not be run to completion:
// missing binary, permission problem or an expired timeout.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError is a scheduler command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.Code, e.Stderr)
}

// ParseError describes an accounting row that could not be turned into a Job.
type ParseError struct {
	Row    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse accounting row %q: %s", e.Row, e.Reason)
}

// FileError wraps a failure to read a job's output file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Order matters: rows are parsed positionally.
var accountingFields = []string{
	"JobIDRaw",
	"State",
	"JobName",
	"NodeList",
	"WorkDir",
	"Account",
	"Submit",
	"Start",
	"Elapsed",
	"TimeLimit",
}

const accountingDelimiter = "|"

// SlurmCLI implements Scheduler by shelling out to sacct, scontrol and scancel.
type SlurmCLI struct {
	sacct    string
	scontrol string
	scancel  string

	timeout    time.Duration
	maxLines   int
	archiveDir string

	logger *zap.Logger
}

func NewSlurmCLI(cfg *Config, logger *zap.Logger) *SlurmCLI {
	return &SlurmCLI{
		sacct:      cfg.Commands.Sacct,
		scontrol:   cfg.Commands.Scontrol,
		scancel:    cfg.Commands.Scancel,
		timeout:    cfg.CommandTimeout,
		maxLines:   cfg.MaxOutputLines,
		archiveDir: cfg.ArchiveDir,
		logger:     logger,
	}
}

// run executes one scheduler command. Stdout is returned even when the command
// exits non-zero so callers can salvage partial output.
func (s *SlurmCLI) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	s.logger.Debug("Scheduler command finished",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Duration("took", time.Since(started)),
		zap.Error(err),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", &SpawnError{Command: name, Err: fmt.Errorf("timed out after %s", s.timeout)}
		}
		return "", &SpawnError{Command: name, Err: ctxErr}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{
				Command: name,
				Code:    exitErr.ExitCode(),
				Stderr:  strings.TrimSpace(stderr.String()),
			}
		}
		return "", &SpawnError{Command: name, Err: err}
	}
	return stdout.String(), nil
}

// ListJobs queries accounting for the user's allocations over the last days.
func (s *SlurmCLI) ListJobs(ctx context.Context, user string, days int) []Job {
	args := []string{
		"--user=" + user,
		fmt.Sprintf("--starttime=now-%ddays", days),
		"-X", "-n", "-P",
		"--format=" + strings.Join(accountingFields, ","),
	}

	out, err := s.run(ctx, s.sacct, args...)
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || strings.TrimSpace(out) == "" {
			s.logger.Warn("Job listing failed", zap.String("user", user), zap.Error(err))
			return nil
		}
		s.logger.Warn("Job listing exited non-zero, using partial output", zap.Error(err))
	}

	jobs, rejected := parseAccounting(out)
	for _, perr := range rejected {
		s.logger.Debug("Skipping accounting row", zap.Error(perr))
	}
	return jobs
}

// parseAccounting parses pipe-delimited sacct output. Rows that do not parse
// are returned as errors and left out of the job list.
func parseAccounting(output string) ([]Job, []error) {
	var jobs []Job
	var rejected []error
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		job, err := parseAccountingRow(line)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, rejected
}

func parseAccountingRow(row string) (Job, error) {
	if n := strings.Count(row, accountingDelimiter); n != len(accountingFields)-1 {
		return Job{}, &ParseError{
			Row:    row,
			Reason: fmt.Sprintf("expected %d delimiters, found %d", len(accountingFields)-1, n),
		}
	}

	parts := strings.Split(row, accountingDelimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if parts[0] == "" {
		return Job{}, &ParseError{Row: row, Reason: "empty job id"}
	}
	// Step records (12345.batch, 12345.extern) belong to their allocation.
	if strings.Contains(parts[0], ".") {
		return Job{}, &ParseError{Row: row, Reason: "job step record"}
	}

	return Job{
		ID:        parts[0],
		State:     normalizeState(parts[1]),
		Name:      parts[2],
		NodeList:  parts[3],
		WorkDir:   parts[4],
		Account:   parts[5],
		Submit:    parts[6],
		Start:     parts[7],
		Elapsed:   parts[8],
		TimeLimit: parts[9],
	}, nil
}

// FetchScript returns the batch script the job was submitted with.
func (s *SlurmCLI) FetchScript(ctx context.Context, jobID string) []string {
	out, err := s.run(ctx, s.scontrol, "write", "batch_script", jobID, "-")
	if err != nil {
		s.logger.Warn("Fetching batch script failed", zap.String("job_id", jobID), zap.Error(err))
		return nil
	}
	return splitLines(out)
}

// Cancel cancels a job
func (s *SlurmCLI) Cancel(ctx context.Context, jobID string) error {
	if _, err := s.run(ctx, s.scancel, jobID); err != nil {
		return fmt.Errorf("cancel %s: %w", jobID, err)
	}
	return nil
}

// Requeue puts a job back into the pending queue
func (s *SlurmCLI) Requeue(ctx context.Context, jobID string) error {
	if _, err := s.run(ctx, s.scontrol, "requeue", jobID); err != nil {
		return fmt.Errorf("requeue %s: %w", jobID, err)
	}
	return nil
}

// splitLines splits command output on line boundaries without keeping
// trailing newlines or carriage returns.
func splitLines(out string) []string {
	s := strings.TrimRight(out, "\r\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}
