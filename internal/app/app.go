// Package app wires configuration, the sampling monitor, and the output
// surfaces (plain watch loop, TUI dashboard, Prometheus endpoint) into a
// runnable application.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/agbru/perfmon"
	"github.com/agbru/perfmon/internal/config"
	apperrors "github.com/agbru/perfmon/internal/errors"
	"github.com/agbru/perfmon/internal/logging"
	"github.com/agbru/perfmon/internal/metrics"
	"github.com/agbru/perfmon/internal/tui"
	"github.com/agbru/perfmon/internal/ui"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Application represents the perfmon application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer

	logger logging.Logger
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger sets a custom logger for the application.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.logger = l }
}

// New creates a new Application instance by parsing command-line arguments.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}

	programName := "perfmon"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	cfg, err := config.ParseConfig(fs, cmdArgs)
	if err != nil {
		return nil, err
	}

	app.Config = cfg
	return app, nil
}

// Run executes the application based on the configured mode.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	a.configureLogging()
	ui.InitTheme(false)

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	if a.Config.Duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, a.Config.Duration)
		defer cancelTimeout()
	}

	monitor := perfmon.New(a.monitorOptions()...)
	if err := monitor.Start(); err != nil {
		a.logger.Error("failed to start sampling", err)
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorInit
	}
	defer monitor.Stop()

	// The metrics endpoint runs alongside whichever foreground mode is
	// active and shuts down when that mode returns.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	group, groupCtx := errgroup.WithContext(runCtx)
	if a.Config.ListenAddr != "" {
		exporter := metrics.NewExporter(monitor)
		group.Go(func() error {
			return metrics.Serve(groupCtx, a.Config.ListenAddr, exporter, a.logger)
		})
	}

	var exitCode int
	if a.Config.TUI {
		exitCode = tui.Run(groupCtx, monitor, a.Config.ProcessScope, Version)
	} else {
		exitCode = a.runWatch(groupCtx, out, monitor)
	}

	cancelRun()
	if err := group.Wait(); err != nil && !apperrors.IsContextError(err) {
		a.logger.Error("metrics endpoint failed", err)
		if exitCode == apperrors.ExitSuccess {
			exitCode = apperrors.ExitErrorGeneric
		}
	}
	return exitCode
}

// configureLogging sets the global log level from the configuration and
// installs a default logger when none was injected.
func (a *Application) configureLogging() {
	switch {
	case a.Config.Verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case a.Config.Quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if a.logger == nil {
		a.logger = logging.NewLogger(a.ErrWriter, "perfmon")
	}
}

// monitorOptions translates the application configuration into monitor options.
func (a *Application) monitorOptions() []perfmon.Option {
	opts := []perfmon.Option{
		perfmon.WithInterval(a.Config.Interval),
		perfmon.WithLogger(a.logger),
	}
	if a.Config.ProcessScope {
		opts = append(opts, perfmon.WithProcessScope())
	}
	return opts
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
