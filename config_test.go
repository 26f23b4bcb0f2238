package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("sjobs", pflag.ContinueOnError)
	flags.StringP("user", "u", "", "")
	flags.IntP("time-period", "d", defaultTimePeriod, "")
	flags.Duration("tick", defaultTick, "")
	flags.Int("refresh-every", defaultRefreshEvery, "")
	flags.Duration("timeout", defaultCommandTimeout, "")
	flags.StringP("locale", "l", "en", "")
	flags.String("log-level", "info", "")
	flags.String("log-file", "", "")
	return flags
}

// isolate keeps the developer's own config files out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("USER", "fallback-user")

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User == "" {
		t.Fatalf("expected the current user as default")
	}
	if cfg.TimePeriod != defaultTimePeriod {
		t.Errorf("time period = %d, want %d", cfg.TimePeriod, defaultTimePeriod)
	}
	if cfg.Tick != time.Second || cfg.RefreshEvery != 1 {
		t.Errorf("unexpected refresh settings %s / %d", cfg.Tick, cfg.RefreshEvery)
	}
	if cfg.CommandTimeout != defaultCommandTimeout {
		t.Errorf("timeout = %s", cfg.CommandTimeout)
	}
	if cfg.Commands.Sacct != "sacct" || cfg.Commands.Scontrol != "scontrol" || cfg.Commands.Scancel != "scancel" {
		t.Errorf("unexpected commands %+v", cfg.Commands)
	}
	if cfg.MaxOutputLines != DefaultMaxOutputLines {
		t.Errorf("max lines = %d", cfg.MaxOutputLines)
	}
	if cfg.Locale != "en" || cfg.LogLevel != "info" || cfg.LogFile == "" {
		t.Errorf("unexpected ui/logging defaults %q %q %q", cfg.Locale, cfg.LogLevel, cfg.LogFile)
	}
	if cfg.Theme != string(ThemeAuto) || cfg.Palette != string(PaletteDraculaSoft) {
		t.Errorf("unexpected theme defaults %q %q", cfg.Theme, cfg.Palette)
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	contents := `user: bob
time_period: 14
refresh:
  tick: 2s
  every: 5
scheduler:
  timeout: 10s
commands:
  sacct: /opt/slurm/bin/sacct
output:
  max_lines: 100
  archive_dir: /archive
ui:
  theme: dark
  locale: zh
logging:
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User != "bob" || cfg.TimePeriod != 14 {
		t.Errorf("unexpected user/period %q/%d", cfg.User, cfg.TimePeriod)
	}
	if cfg.Tick != 2*time.Second || cfg.RefreshEvery != 5 || cfg.CommandTimeout != 10*time.Second {
		t.Errorf("unexpected timings %s %d %s", cfg.Tick, cfg.RefreshEvery, cfg.CommandTimeout)
	}
	if cfg.Commands.Sacct != "/opt/slurm/bin/sacct" || cfg.Commands.Scancel != "scancel" {
		t.Errorf("unexpected commands %+v", cfg.Commands)
	}
	if cfg.MaxOutputLines != 100 || cfg.ArchiveDir != "/archive" {
		t.Errorf("unexpected output settings %d %q", cfg.MaxOutputLines, cfg.ArchiveDir)
	}
	if cfg.Theme != "dark" || cfg.Locale != "zh" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected ui settings %q %q %q", cfg.Theme, cfg.Locale, cfg.LogLevel)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}

func TestLoadConfigSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	if err := os.WriteFile("sjobs.yaml", []byte("time_period: 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TimePeriod != 3 {
		t.Fatalf("expected ./sjobs.yaml to be read, got period %d", cfg.TimePeriod)
	}
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	isolate(t)
	t.Setenv("SJOBS_USER", "env-user")
	t.Setenv("SJOBS_TIME_PERIOD", "30")
	t.Setenv("SJOBS_REFRESH_TICK", "500ms")
	t.Setenv("SJOBS_COMMANDS_SCANCEL", "/usr/local/bin/scancel")

	flags := testFlags()
	if err := flags.Parse([]string{"--time-period", "2", "--locale", "zh"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadConfig("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User != "env-user" {
		t.Errorf("expected the env user, got %q", cfg.User)
	}
	if cfg.TimePeriod != 2 {
		t.Errorf("expected the flag to win over env, got %d", cfg.TimePeriod)
	}
	if cfg.Tick != 500*time.Millisecond {
		t.Errorf("expected tick from env, got %s", cfg.Tick)
	}
	if cfg.Commands.Scancel != "/usr/local/bin/scancel" {
		t.Errorf("expected scancel from env, got %q", cfg.Commands.Scancel)
	}
	if cfg.Locale != "zh" {
		t.Errorf("expected locale from flag, got %q", cfg.Locale)
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := &Config{User: "carol", TimePeriod: -1, Tick: 0, RefreshEvery: 0, CommandTimeout: -time.Second, MaxOutputLines: -5}
	cfg.normalize()

	if cfg.User != "carol" {
		t.Errorf("user changed to %q", cfg.User)
	}
	if cfg.TimePeriod != defaultTimePeriod || cfg.Tick != defaultTick || cfg.RefreshEvery != defaultRefreshEvery {
		t.Errorf("unexpected normalized values %+v", cfg)
	}
	if cfg.CommandTimeout != defaultCommandTimeout || cfg.MaxOutputLines != DefaultMaxOutputLines {
		t.Errorf("unexpected normalized values %+v", cfg)
	}
	if cfg.Commands.Sacct != "sacct" || cfg.Locale != "en" || cfg.LogFile == "" {
		t.Errorf("unexpected normalized values %+v", cfg)
	}
}

func TestExpandHomePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := expandHomePath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := expandHomePath("~"); got != home {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := expandHomePath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed to %q", got)
	}
}
