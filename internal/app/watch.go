package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/agbru/perfmon/internal/errors"
	"github.com/agbru/perfmon/internal/format"
	"github.com/agbru/perfmon/internal/sysmon"
	"github.com/agbru/perfmon/internal/ui"
	"github.com/briandowns/spinner"
)

const (
	// spinnerRefreshRate matches the redraw cadence of the warmup spinner.
	spinnerRefreshRate = 200 * time.Millisecond

	// warmupTimeout bounds how long the watch loop waits for the first
	// non-zero reading before printing summaries anyway. Rate counters
	// need two collection rounds before they produce a value.
	warmupTimeout = 2 * time.Second

	warmupPollInterval = 50 * time.Millisecond
)

// Thresholds for coloring utilization readings in the summary line.
const (
	loadWarningThreshold = 60.0
	loadErrorThreshold   = 85.0
)

// watchSource is the subset of monitor readings the watch loop consumes.
type watchSource interface {
	GlobalCPUUtilization() float64
	ProcessCPUUtilization() float64
	CPUCoreUtilization() []float64
	GPUEngineUtilization(key string) float64
	GPUDedicatedMemoryBytes() uint64
	GPUSharedMemoryBytes() uint64
}

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// It decouples the warmup display from a specific spinner implementation,
// which keeps the watch loop testable.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner wraps `spinner.Spinner` to implement the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Suffix = suffix
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], spinnerRefreshRate, options...)
	return &realSpinner{s}
}

// runWatch prints a periodic summary line until the context is done.
func (a *Application) runWatch(ctx context.Context, out io.Writer, src watchSource) int {
	if !a.Config.Quiet {
		a.warmUp(ctx, src)
	}

	ticker := time.NewTicker(summaryCadence(a.Config.Interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return watchExitCode(ctx)
		case <-ticker.C:
			if !a.Config.Quiet {
				fmt.Fprintln(out, a.summaryLine(src))
			}
		}
	}
}

// warmUp shows a spinner until the monitor produces its first non-zero CPU
// reading, bounded by warmupTimeout.
func (a *Application) warmUp(ctx context.Context, src watchSource) {
	sp := newSpinner(spinner.WithWriter(a.ErrWriter))
	sp.UpdateSuffix(" warming up counters...")
	sp.Start()
	defer sp.Stop()

	deadline := time.NewTimer(warmupTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(warmupPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-poll.C:
			if src.GlobalCPUUtilization() > 0 {
				return
			}
		}
	}
}

// summaryCadence keeps plain output to at most one line per second even when
// the sampling interval is shorter.
func summaryCadence(interval time.Duration) time.Duration {
	if interval < time.Second {
		return time.Second
	}
	return interval
}

// summaryLine renders one colored status line from the current readings.
func (a *Application) summaryLine(src watchSource) string {
	theme := ui.GetCurrentTheme()
	sys := sysmon.Sample()

	cpu := src.GlobalCPUUtilization()
	gpu := src.GPUEngineUtilization(a.Config.Engine)

	var b strings.Builder
	fmt.Fprintf(&b, "%sCPU%s %s%s%s",
		theme.Bold, theme.Reset,
		loadColor(theme, cpu), format.FormatPercent(cpu), theme.Reset)
	if a.Config.ProcessScope {
		proc := src.ProcessCPUUtilization()
		fmt.Fprintf(&b, " %sproc%s %s%s%s",
			theme.Bold, theme.Reset,
			loadColor(theme, proc), format.FormatPercent(proc), theme.Reset)
	}
	if cores := src.CPUCoreUtilization(); len(cores) > 0 {
		fmt.Fprintf(&b, " | %scores%s %s", theme.Bold, theme.Reset, coreSummary(cores))
	}
	fmt.Fprintf(&b, " | %sGPU %s%s %s%s%s",
		theme.Bold, a.Config.Engine, theme.Reset,
		loadColor(theme, gpu), format.FormatPercent(gpu), theme.Reset)
	fmt.Fprintf(&b, " | %sVRAM%s %s dedicated, %s shared",
		theme.Bold, theme.Reset,
		format.FormatBytes(src.GPUDedicatedMemoryBytes()),
		format.FormatBytes(src.GPUSharedMemoryBytes()))
	fmt.Fprintf(&b, " | %sMem%s %s",
		theme.Bold, theme.Reset, format.FormatPercent(sys.MemPercent))
	return b.String()
}

// coreSummary renders per-core utilization as a compact slash-separated list
// of whole percentages.
func coreSummary(cores []float64) string {
	parts := make([]string, len(cores))
	for i, v := range cores {
		parts[i] = fmt.Sprintf("%.0f", v)
	}
	return strings.Join(parts, "/")
}

// loadColor selects the theme color matching the severity of a reading.
func loadColor(theme ui.Theme, v float64) string {
	switch {
	case v >= loadErrorThreshold:
		return theme.Error
	case v >= loadWarningThreshold:
		return theme.Warning
	default:
		return theme.Success
	}
}

// watchExitCode maps the context termination cause to a process exit code.
// An expired -duration is a normal exit; an interrupt is not.
func watchExitCode(ctx context.Context) int {
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		return apperrors.ExitSuccess
	}
	return apperrors.ExitErrorCanceled
}
