// Package perfmon samples per-process and system-wide CPU and GPU
// utilization in a background goroutine and exposes the latest readings
// through cheap, thread-safe queries.
//
// The typical embedding uses the package-level default instance:
//
//	if err := perfmon.Initialize(); err != nil {
//		log.Fatal(err)
//	}
//	defer perfmon.Shutdown()
//
//	cpu := perfmon.CPUUtilization()
//	gpu := perfmon.GPUEngineUtilization("")
//
// Sampling runs on Windows performance counters; on other platforms Start
// reports an initialization error.
package perfmon

import (
	"sync"
	"time"

	"github.com/agbru/perfmon/internal/counter"
	"github.com/agbru/perfmon/internal/logging"
)

// Option configures a Monitor.
type Option func(*options)

type options struct {
	subsystem     counter.Subsystem
	log           logging.Logger
	interval      time.Duration
	processScoped bool
	coreCount     int
	pid           int64
	executable    string
}

// WithInterval sets the sampling period. Values at or below zero select the
// default of 100ms.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithProcessScope makes CPUUtilization report the calling process's share
// instead of the system-wide value. Both readings stay queryable either way.
func WithProcessScope() Option {
	return func(o *options) { o.processScoped = true }
}

// WithLogger routes the monitor's diagnostics to the given logger. The
// default discards them.
func WithLogger(log logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// withSubsystem substitutes the counter backend (tests).
func withSubsystem(s counter.Subsystem) Option {
	return func(o *options) { o.subsystem = s }
}

// withIdentity pins the monitored process identity (tests).
func withIdentity(pid int64, executable string, coreCount int) Option {
	return func(o *options) {
		o.pid = pid
		o.executable = executable
		o.coreCount = coreCount
	}
}

// Monitor owns one sampling engine. The zero value is not usable; create
// monitors with New. All methods are safe for concurrent use.
type Monitor struct {
	mu     sync.Mutex
	opts   options
	engine *counter.Engine
}

// New creates a monitor. Sampling does not begin until Start.
func New(opts ...Option) *Monitor {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Monitor{opts: o}
}

// Start begins background sampling. It is idempotent: starting a running
// monitor is a no-op returning nil. Readings published before the first
// completed round are zero.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		sub := m.opts.subsystem
		if sub == nil {
			var err error
			if sub, err = newDefaultSubsystem(); err != nil {
				return err
			}
		}
		m.engine = counter.New(sub, counter.Config{
			ProcessScoped: m.opts.processScoped,
			Interval:      m.opts.interval,
			CoreCount:     m.opts.coreCount,
			PID:           m.opts.pid,
			Executable:    m.opts.executable,
		}, m.opts.log)
	}
	return m.engine.Start()
}

// Stop halts sampling, releases the counter handles, and resets every
// reading to zero. Stopping a monitor that is not running is a no-op; the
// monitor may be started again afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	engine := m.engine
	m.mu.Unlock()
	if engine != nil {
		engine.Stop()
	}
}

// Running reports whether the sampling goroutine is active.
func (m *Monitor) Running() bool {
	if e := m.snapshotEngine(); e != nil {
		return e.Running()
	}
	return false
}

// CPUUtilization returns the primary CPU reading as a percentage in
// [0,100]: the process's share when the monitor is process-scoped, the
// system-wide value otherwise.
func (m *Monitor) CPUUtilization() float64 {
	if e := m.snapshotEngine(); e != nil {
		return e.CPUUtilization()
	}
	return 0
}

// GlobalCPUUtilization returns the system-wide CPU utilization regardless
// of scope.
func (m *Monitor) GlobalCPUUtilization() float64 {
	if e := m.snapshotEngine(); e != nil {
		return e.GlobalCPUUtilization()
	}
	return 0
}

// ProcessCPUUtilization returns the process-scoped CPU utilization
// regardless of scope.
func (m *Monitor) ProcessCPUUtilization() float64 {
	if e := m.snapshotEngine(); e != nil {
		return e.ProcessCPUUtilization()
	}
	return 0
}

// CPUCoreUtilization returns per-core utilization percentages indexed by
// logical core, each clamped to [0,100]. The slice is the caller's to keep.
func (m *Monitor) CPUCoreUtilization() []float64 {
	if e := m.snapshotEngine(); e != nil {
		return e.CoreUtilizations()
	}
	return nil
}

// GPUEngineUtilization returns the process's summed utilization of one GPU
// engine type, e.g. "3D", "Copy" or "VideoDecode". The empty key selects
// "3D". Unknown keys report zero.
func (m *Monitor) GPUEngineUtilization(key string) float64 {
	if e := m.snapshotEngine(); e != nil {
		return e.EngineUtilizationFor(key)
	}
	return 0
}

// GPUEngineNames returns the engine type keys observed in the latest
// sampling round, sorted.
func (m *Monitor) GPUEngineNames() []string {
	if e := m.snapshotEngine(); e != nil {
		return e.EngineNames()
	}
	return nil
}

// GPUDedicatedMemoryBytes returns the process's dedicated GPU memory usage.
func (m *Monitor) GPUDedicatedMemoryBytes() uint64 {
	if e := m.snapshotEngine(); e != nil {
		return e.DedicatedMemoryBytes()
	}
	return 0
}

// GPUSharedMemoryBytes returns the process's shared GPU memory usage.
func (m *Monitor) GPUSharedMemoryBytes() uint64 {
	if e := m.snapshotEngine(); e != nil {
		return e.SharedMemoryBytes()
	}
	return 0
}

// CoreCount returns the logical processor count the monitor samples
// against, zero before the first Start.
func (m *Monitor) CoreCount() int {
	if e := m.snapshotEngine(); e != nil {
		return e.CoreCount()
	}
	return 0
}

func (m *Monitor) snapshotEngine() *counter.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

// ─────────────────────────────────────────────────────────────────────────────
// Default instance
// ─────────────────────────────────────────────────────────────────────────────

var (
	defaultMu      sync.Mutex
	defaultMonitor *Monitor
)

// Initialize creates the package-level monitor and starts sampling. Calling
// Initialize while the default monitor runs is a no-op returning nil;
// options passed to the redundant call are ignored.
func Initialize(opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMonitor == nil {
		defaultMonitor = New(opts...)
	}
	return defaultMonitor.Start()
}

// Shutdown stops the package-level monitor. Safe to call without a prior
// Initialize.
func Shutdown() {
	defaultMu.Lock()
	m := defaultMonitor
	defaultMonitor = nil
	defaultMu.Unlock()
	if m != nil {
		m.Stop()
	}
}

func defaultInstance() *Monitor {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultMonitor
}

// CPUUtilization reads the default monitor's primary CPU utilization. Zero
// before Initialize.
func CPUUtilization() float64 {
	if m := defaultInstance(); m != nil {
		return m.CPUUtilization()
	}
	return 0
}

// CPUCoreUtilization reads the default monitor's per-core utilization.
func CPUCoreUtilization() []float64 {
	if m := defaultInstance(); m != nil {
		return m.CPUCoreUtilization()
	}
	return nil
}

// GPUEngineUtilization reads the default monitor's GPU engine utilization.
func GPUEngineUtilization(key string) float64 {
	if m := defaultInstance(); m != nil {
		return m.GPUEngineUtilization(key)
	}
	return 0
}

// GPUEngineNames reads the default monitor's observed engine types.
func GPUEngineNames() []string {
	if m := defaultInstance(); m != nil {
		return m.GPUEngineNames()
	}
	return nil
}

// GPUDedicatedMemoryBytes reads the default monitor's dedicated GPU memory
// usage.
func GPUDedicatedMemoryBytes() uint64 {
	if m := defaultInstance(); m != nil {
		return m.GPUDedicatedMemoryBytes()
	}
	return 0
}

// GPUSharedMemoryBytes reads the default monitor's shared GPU memory usage.
func GPUSharedMemoryBytes() uint64 {
	if m := defaultInstance(); m != nil {
		return m.GPUSharedMemoryBytes()
	}
	return 0
}
