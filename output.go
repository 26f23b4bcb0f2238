package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxOutputLines caps the number of output lines kept per job.
const DefaultMaxOutputLines = 5000

// FetchOutput returns the captured stdout of a job. Jobs that have not
// started yet, or whose file is gone, yield no lines.
func (s *SlurmCLI) FetchOutput(ctx context.Context, jobID string) []string {
	path, err := s.OutputPath(ctx, jobID)
	if err != nil {
		s.logger.Debug("No output path for job", zap.String("job_id", jobID), zap.Error(err))
		return nil
	}

	lines, err := readOutputLines(path, s.maxLines)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Reading job output failed", zap.String("job_id", jobID), zap.Error(err))
		}
		return nil
	}
	return lines
}

var stdoutFieldRe = regexp.MustCompile(`StdOut=(\S+)`)

// OutputPath finds the stdout file of a job.
// Jobs still known to slurmctld report it through scontrol. For finished jobs
// the path is rebuilt from sacct's WorkDir and SubmitLine, then from the
// #SBATCH directives of the submitted script, and finally from the archive
// convention directory.
func (s *SlurmCLI) OutputPath(ctx context.Context, jobID string) (string, error) {
	out, err := s.run(ctx, s.scontrol, "show", "job", jobID)
	if err == nil {
		if matches := stdoutFieldRe.FindStringSubmatch(out); len(matches) > 1 {
			return matches[1], nil
		}
	}

	outSacct, errSacct := s.run(ctx, s.sacct, "-j", jobID, "-o", "WorkDir,SubmitLine,JobName,User", "-X", "-n", "-P")
	if errSacct == nil {
		if path := stdoutFromSubmission(jobID, outSacct); path != "" {
			return path, nil
		}
	}

	if path, ok := archivedOutputPath(s.archiveDir, jobID); ok {
		return path, nil
	}

	return "", fmt.Errorf("could not resolve stdout for job %s (checked scontrol, sacct and %s)", jobID, s.archiveDir)
}

// stdoutFromSubmission rebuilds the stdout path from a
// "WorkDir|SubmitLine|JobName|User" accounting row.
func stdoutFromSubmission(jobID, output string) string {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 4)
		if len(parts) < 4 {
			continue
		}

		workDir := strings.TrimSpace(parts[0])
		if workDir == "" {
			continue
		}
		subst := logSubstitutions{jobID: jobID, jobName: strings.TrimSpace(parts[2]), user: strings.TrimSpace(parts[3])}

		sub := parseSubmitLine(parts[1])
		if sub.script != "" {
			_ = sub.applyScript(resolveLogPath(sub.script, workDir, subst))
		}

		baseDir := workDir
		if sub.chdir != "" {
			baseDir = sub.chdir
		}
		if sub.output == "" {
			sub.output = "slurm-%j.out"
		}
		return resolveLogPath(sub.output, baseDir, subst)
	}
	return ""
}

// submission collects the sbatch settings that decide where stdout goes.
type submission struct {
	output string
	chdir  string
	script string
}

// sbatchValueFlags are the sbatch options that take the next argument as
// their value when written without "=".
var sbatchValueFlags = map[string]bool{
	"-o": true, "--output": true, "-e": true, "--error": true, "-i": true, "--input": true,
	"-D": true, "--chdir": true, "-J": true, "--job-name": true, "-A": true, "--account": true,
	"-p": true, "--partition": true, "-t": true, "--time": true, "-N": true, "--nodes": true,
	"-n": true, "--ntasks": true, "-c": true, "--cpus-per-task": true, "-q": true, "--qos": true,
	"-a": true, "--array": true, "-d": true, "--dependency": true, "-w": true, "--nodelist": true,
	"-C": true, "--constraint": true, "-G": true, "--gpus": true, "--gres": true, "--mem": true,
	"--mail-type": true, "--mail-user": true, "--wrap": true,
}

func parseSubmitLine(line string) submission {
	args := strings.Fields(line)
	for i, arg := range args {
		if strings.HasSuffix(arg, "sbatch") {
			args = args[i+1:]
			break
		}
	}

	var sub submission
	sub.script = sub.applyArgs(args)
	return sub
}

// applyScript reads the #SBATCH lines of a batch script. Options already set
// on the command line win.
func (s *submission) applyScript(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[0] == "#SBATCH" {
			s.applyArgs(fields[1:])
		}
	}
	return nil
}

// applyArgs fills unset output and chdir settings from sbatch options and
// returns the first positional argument.
func (s *submission) applyArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return unquote(arg)
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if !hasValue && sbatchValueFlags[name] && i+1 < len(args) {
			i++
			value = args[i]
		}
		switch name {
		case "-o", "--output":
			if s.output == "" {
				s.output = unquote(value)
			}
		case "-D", "--chdir":
			if s.chdir == "" {
				s.chdir = unquote(value)
			}
		}
	}
	return ""
}

func unquote(value string) string {
	return strings.Trim(strings.TrimSpace(value), "\"'")
}

type logSubstitutions struct {
	jobID   string
	jobName string
	user    string
}

// resolveLogPath expands the filename patterns sbatch understands and anchors
// relative paths at baseDir.
func resolveLogPath(value, baseDir string, subst logSubstitutions) string {
	value = unquote(value)
	if value == "" {
		return ""
	}

	value = strings.ReplaceAll(value, "%j", subst.jobID)
	if subst.jobName != "" {
		value = strings.ReplaceAll(value, "%x", subst.jobName)
	}
	if subst.user != "" {
		value = strings.ReplaceAll(value, "%u", subst.user)
	}

	if !filepath.IsAbs(value) && baseDir != "" {
		value = filepath.Join(baseDir, value)
	}
	return value
}

func defaultArchiveDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".sjobs", "logs")
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// archivedOutputPath looks for a copy of the job's stdout under root, for jobs
// whose accounting record has been purged.
func archivedOutputPath(root, jobID string) (string, bool) {
	if root == "" || jobID == "" {
		return "", false
	}
	candidates := []string{
		filepath.Join(root, jobID+".out"),
		filepath.Join(root, "slurm-"+jobID+".out"),
		filepath.Join(root, jobID, "stdout.log"),
		filepath.Join(root, jobID, "out.log"),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// maxOutputLineBytes bounds a single line held in memory. Longer lines keep
// their head.
const maxOutputLineBytes = 1 << 20

// readOutputLines reads path line by line, keeping at most the last max lines.
// Carriage returns are resolved while reading, so a progress bar that never
// writes a newline stays one short line.
func readOutputLines(path string, max int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	var (
		lines []string
		line  []byte
	)
	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		chunk, err := reader.ReadSlice('\n')
		line = appendOverwriting(line, chunk)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == nil || len(line) > 0 {
			lines = append(lines, cleanLogLine(strings.TrimSuffix(string(line), "\n")))
			line = line[:0]
			if max > 0 && len(lines) >= 2*max {
				lines = append(lines[:0:0], lines[len(lines)-max:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FileError{Path: path, Err: err}
		}
	}

	if max > 0 && len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines, nil
}

// appendOverwriting appends chunk to line and drops everything before the
// last carriage return that has text after it.
func appendOverwriting(line, chunk []byte) []byte {
	line = append(line, chunk...)
	body := bytes.TrimSuffix(line, []byte("\n"))
	if len(body) > 1 {
		if idx := bytes.LastIndexByte(body[:len(body)-1], '\r'); idx != -1 {
			line = append(line[:0], line[idx+1:]...)
		}
	}
	if len(line) > maxOutputLineBytes {
		line = line[:maxOutputLineBytes]
	}
	return line
}

var ansiCursorRegexp = regexp.MustCompile(`\x1b\[[0-9;]*[A-KSTf]`)

// cleanLogLine drops ANSI cursor movement and keeps only what the last
// carriage return left visible, the way progress bars render in a terminal.
func cleanLogLine(line string) string {
	line = ansiCursorRegexp.ReplaceAllString(line, "")
	line = strings.TrimRight(line, "\r")
	if idx := strings.LastIndex(line, "\r"); idx != -1 {
		return line[idx+1:]
	}
	return line
}
