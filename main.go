package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK       = 0
	exitInit     = 1
	exitTerminal = 2
)

// exitError carries the process exit status out of the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

var configFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sjobs",
		Short: "Terminal dashboard for your Slurm jobs",
		Long: `sjobs lists your recent Slurm jobs, shows the details, output and batch
script of the selected job, and lets you cancel or requeue it.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDashboard,
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./sjobs.yaml, ~/.config/sjobs/sjobs.yaml)")
	flags.StringP("user", "u", "", "user whose jobs are shown (default: current user)")
	flags.IntP("time-period", "d", defaultTimePeriod, "days of accounting history to list")
	flags.Duration("tick", defaultTick, "interval between ticks")
	flags.Int("refresh-every", defaultRefreshEvery, "refresh the job list every N ticks")
	flags.Duration("timeout", defaultCommandTimeout, "timeout for each scheduler command")
	flags.StringP("locale", "l", "en", "interface language (en, zh)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", defaultLogFile(), "log file path")

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return &exitError{code: exitInit, err: fmt.Errorf("failed to load config: %w", err)}
	}

	logger, err := initLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return &exitError{code: exitInit, err: fmt.Errorf("failed to initialize logger: %w", err)}
	}
	defer func() { _ = logger.Sync() }()

	loc, err := NewLocalizer(cfg.Locale)
	if err != nil {
		logger.Error("Loading translations failed", zap.Error(err))
		return &exitError{code: exitInit, err: fmt.Errorf("failed to load translations: %w", err)}
	}

	if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
		logger.Error("No terminal attached")
		return &exitError{code: exitTerminal, err: errors.New("sjobs needs an interactive terminal")}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	logger.Info("Starting dashboard",
		zap.String("version", version),
		zap.String("user", cfg.User),
		zap.Int("time_period", cfg.TimePeriod),
		zap.Duration("tick", cfg.Tick),
		zap.Int("refresh_every", cfg.RefreshEvery),
		zap.String("locale", loc.Tag().String()),
	)

	scheduler := NewSlurmCLI(cfg, logger)
	app := NewApp(ctx, scheduler, cfg.User, cfg.TimePeriod, logger)
	model := NewDashboard(app, cfg, NewStyles(LoadTheme(cfg)), loc, logger)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		switch {
		case ctx.Err() != nil:
			logger.Info("Terminated by signal")
			return nil
		case errors.Is(err, tea.ErrProgramPanic):
			logger.Error("Dashboard panicked", zap.Error(err))
			return &exitError{code: exitInit, err: err}
		default:
			logger.Error("Dashboard failed", zap.Error(err))
			return &exitError{code: exitTerminal, err: fmt.Errorf("terminal error: %w", err)}
		}
	}

	logger.Info("Dashboard stopped")
	return nil
}

// run executes the root command and maps its outcome to an exit status.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Unrecovered panic", zap.Any("panic", r), zap.Stack("stack"))
			fmt.Fprintf(os.Stderr, "sjobs: panic: %v\n", r)
			code = exitInit
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sjobs: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitInit
	}
	return exitOK
}

func main() {
	os.Exit(run())
}
