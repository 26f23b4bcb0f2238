package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultTimePeriod     = 7
	defaultTick           = time.Second
	defaultRefreshEvery   = 1
	defaultCommandTimeout = 5 * time.Second
	envPrefix             = "SJOBS"
)

// CommandNames lets sites point the adapter at wrappers or non-standard paths.
type CommandNames struct {
	Sacct    string
	Scontrol string
	Scancel  string
}

// Config holds the launch-time configuration
type Config struct {
	User       string
	TimePeriod int

	// Refresh configuration
	Tick           time.Duration
	RefreshEvery   int
	CommandTimeout time.Duration

	Commands       CommandNames
	MaxOutputLines int
	ArchiveDir     string

	// UI configuration
	Theme    string
	Palette  string
	Surfaces string
	Locale   string

	// Logging configuration
	LogLevel string
	LogFile  string
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"user":          "user",
	"time-period":   "time_period",
	"tick":          "refresh.tick",
	"refresh-every": "refresh.every",
	"timeout":       "scheduler.timeout",
	"locale":        "ui.locale",
	"log-level":     "logging.level",
	"log-file":      "logging.file",
}

func defaultLogFile() string {
	return filepath.Join(os.TempDir(), "sjobs.log")
}

// LoadConfig layers defaults, an optional config file, SJOBS_* environment
// variables and explicitly set flags, in increasing priority.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("user", "")
	v.SetDefault("time_period", defaultTimePeriod)

	v.SetDefault("refresh.tick", defaultTick.String())
	v.SetDefault("refresh.every", defaultRefreshEvery)

	v.SetDefault("scheduler.timeout", defaultCommandTimeout.String())
	v.SetDefault("commands.sacct", "sacct")
	v.SetDefault("commands.scontrol", "scontrol")
	v.SetDefault("commands.scancel", "scancel")

	v.SetDefault("output.max_lines", DefaultMaxOutputLines)
	v.SetDefault("output.archive_dir", "")

	v.SetDefault("ui.theme", string(ThemeAuto))
	v.SetDefault("ui.palette", string(PaletteDraculaSoft))
	v.SetDefault("ui.surfaces", string(SurfaceTransparent))
	v.SetDefault("ui.locale", "en")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", defaultLogFile())

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sjobs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sjobs")
		v.AddConfigPath("/etc/sjobs")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		User:           strings.TrimSpace(v.GetString("user")),
		TimePeriod:     v.GetInt("time_period"),
		Tick:           v.GetDuration("refresh.tick"),
		RefreshEvery:   v.GetInt("refresh.every"),
		CommandTimeout: v.GetDuration("scheduler.timeout"),
		Commands: CommandNames{
			Sacct:    v.GetString("commands.sacct"),
			Scontrol: v.GetString("commands.scontrol"),
			Scancel:  v.GetString("commands.scancel"),
		},
		MaxOutputLines: v.GetInt("output.max_lines"),
		ArchiveDir:     expandHomePath(v.GetString("output.archive_dir")),
		Theme:          v.GetString("ui.theme"),
		Palette:        v.GetString("ui.palette"),
		Surfaces:       v.GetString("ui.surfaces"),
		Locale:         v.GetString("ui.locale"),
		LogLevel:       strings.ToLower(v.GetString("logging.level")),
		LogFile:        expandHomePath(v.GetString("logging.file")),
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces zero or nonsensical values with defaults.
func (c *Config) normalize() {
	if c.User == "" {
		c.User = CurrentUser()
	}
	if c.TimePeriod <= 0 {
		c.TimePeriod = defaultTimePeriod
	}
	if c.Tick <= 0 {
		c.Tick = defaultTick
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = defaultRefreshEvery
	}
	if c.CommandTimeout < 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.Commands.Sacct == "" {
		c.Commands.Sacct = "sacct"
	}
	if c.Commands.Scontrol == "" {
		c.Commands.Scontrol = "scontrol"
	}
	if c.Commands.Scancel == "" {
		c.Commands.Scancel = "scancel"
	}
	if c.MaxOutputLines <= 0 {
		c.MaxOutputLines = DefaultMaxOutputLines
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = defaultArchiveDir()
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile()
	}
}
