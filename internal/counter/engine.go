package counter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/perfmon/internal/errors"
	"github.com/agbru/perfmon/internal/logging"
)

// DefaultInterval is the sampling period between collection rounds.
const DefaultInterval = 100 * time.Millisecond

// DefaultEngineKey is the GPU engine type reported when the caller does not
// name one.
const DefaultEngineKey = "3D"

// Config carries the engine's startup parameters. The zero value selects the
// current process, auto-detected core count, and the default interval.
type Config struct {
	// ProcessScoped selects per-process CPU measurement instead of the
	// system-wide value for the primary CPU reading.
	ProcessScoped bool
	// Interval is the sleep between collection rounds.
	Interval time.Duration
	// CoreCount overrides logical processor detection (tests).
	CoreCount int
	// PID overrides the monitored process id (tests).
	PID int64
	// Executable overrides the monitored executable base name (tests).
	Executable string
}

// Engine drives the sampling loop and owns every subsystem handle. One
// dedicated goroutine performs all session calls; readers only touch the
// published snapshot. Lifecycle transitions (Start/Stop) are serialized by
// an internal mutex and are idempotent.
type Engine struct {
	cfg       Config
	subsystem Subsystem
	log       logging.Logger
	tracer    trace.Tracer

	snap Snapshot

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// The fields below are owned by the sampling goroutine after Start.
	session      Session
	probe        Session
	cpuCounter   Counter
	gpuEngine    Counter
	gpuDedicated Counter
	gpuShared    Counter
	procCounter  Counter
	resolver     *Resolver
	coreCount    int
	pidTag       string
}

// New creates an engine over the given counter subsystem. log may be nil.
func New(subsystem Subsystem, cfg Config, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		cfg:       cfg,
		subsystem: subsystem,
		log:       log,
		tracer:    otel.Tracer("github.com/agbru/perfmon/internal/counter"),
	}
}

// Start opens the query contexts, subscribes the counters, and spawns the
// sampling goroutine. Only a missing query context or a failed mandatory CPU
// subscription is fatal; GPU counters degrade to absent and process identity
// resolution is retried every round. Calling Start on a running engine is a
// no-op returning nil.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	if e.cfg.Interval <= 0 {
		e.cfg.Interval = DefaultInterval
	}
	if e.cfg.PID == 0 {
		e.cfg.PID = int64(os.Getpid())
	}
	if e.cfg.CoreCount == 0 {
		e.cfg.CoreCount = detectCoreCount()
	}
	if e.cfg.Executable == "" {
		e.cfg.Executable = detectExecutable(e.cfg.PID)
	}
	e.coreCount = e.cfg.CoreCount
	e.pidTag = PidTag(int32(e.cfg.PID))

	session, err := e.subsystem.NewSession()
	if err != nil {
		return apperrors.InitError{Component: "query", Cause: err}
	}
	probe, err := e.subsystem.NewSession()
	if err != nil {
		session.Close()
		return apperrors.InitError{Component: "probe query", Cause: err}
	}
	e.session, e.probe = session, probe

	if e.cpuCounter, err = session.Add(cpuUtilityPath); err != nil {
		session.Close()
		probe.Close()
		e.session, e.probe = nil, nil
		return apperrors.InitError{Component: "cpu counter", Cause: err}
	}

	e.gpuEngine = e.addOptional(gpuEnginePath)
	e.gpuDedicated = e.addOptional(gpuDedicatedPath)
	e.gpuShared = e.addOptional(gpuSharedPath)

	e.resolver = NewResolver(e.subsystem, probe, e.cfg.PID, e.cfg.Executable, e.log)
	e.procCounter = nil
	if e.cfg.ProcessScoped {
		// Best-effort initial binding; the loop re-resolves on demand.
		if candidates, cerr := e.resolver.Candidates(); cerr == nil {
			if path, rerr := e.resolver.Resolve(candidates); rerr == nil {
				e.rebindProcessCounter(path)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	e.log.Info("sampling engine started",
		logging.Int("cores", e.coreCount),
		logging.String("interval", e.cfg.Interval.String()),
		logging.String("pid_tag", e.pidTag))

	go e.run(ctx)
	return nil
}

// Stop signals the sampling goroutine, waits for it to exit, then releases
// the session handles and resets the snapshot to zero defaults. Stopping an
// engine that is not running is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.cancel()
	<-e.done

	// The loop has exited; the handles are no longer in use.
	if err := e.session.Close(); err != nil {
		e.log.Debug("closing session", logging.Err(err))
	}
	if err := e.probe.Close(); err != nil {
		e.log.Debug("closing probe session", logging.Err(err))
	}
	e.session, e.probe = nil, nil
	e.cpuCounter, e.gpuEngine, e.gpuDedicated, e.gpuShared, e.procCounter = nil, nil, nil, nil, nil
	e.resolver = nil
	e.cancel = nil
	e.done = nil
	e.running = false

	e.snap.Reset()
	e.log.Info("sampling engine stopped")
}

// addOptional subscribes a counter whose absence is tolerated (e.g. GPU
// counters on a machine without a driver exposing them). Returns nil on
// failure; readers of a nil handle see empty results.
func (e *Engine) addOptional(path string) Counter {
	c, err := e.session.Add(path)
	if err != nil {
		uerr := apperrors.CounterUnavailableError{Path: path, Cause: err}
		e.log.Info("optional counter unavailable", logging.Err(uerr))
		return nil
	}
	return c
}

// run is the sampling loop. The cancellation flag is checked at the top of
// each cycle and again after the interval sleep.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e.cycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle performs one collection round: collect, aggregate, publish. A failed
// collect skips the round, leaving the previous published state visible.
func (e *Engine) cycle(ctx context.Context) {
	_, span := e.tracer.Start(ctx, "perfmon.sample")
	defer span.End()

	if err := e.session.Collect(); err != nil {
		cerr := apperrors.CollectionError{Cause: err}
		e.log.Debug("collection round failed", logging.Err(cerr))
		span.RecordError(cerr)
		return
	}

	engines := make(map[string]float64)
	if e.gpuEngine != nil {
		if items, err := e.gpuEngine.Values(FormatDouble); err == nil {
			engines = EngineUtilization(items, e.pidTag)
		}
	}
	var dedicated, shared uint64
	if e.gpuDedicated != nil {
		if items, err := e.gpuDedicated.Values(FormatLarge); err == nil {
			dedicated = ProcessMemoryBytes(items, e.pidTag)
		}
	}
	if e.gpuShared != nil {
		if items, err := e.gpuShared.Values(FormatLarge); err == nil {
			shared = ProcessMemoryBytes(items, e.pidTag)
		}
	}

	cores := e.snap.Cores()
	global := e.snap.CPUGlobal()
	if items, err := e.cpuCounter.Values(FormatDouble); err == nil {
		raw := CoreUtilization(items, e.coreCount)
		global = GlobalUtilization(raw)
		cores = make([]float64, len(raw))
		for i, c := range raw {
			cores[i] = Clamp100(c)
		}
	}

	procCPU := e.snap.CPUProcess()
	if e.cfg.ProcessScoped {
		procCPU = e.sampleProcessCPU(procCPU)
	}

	e.snap.Publish(State{
		CPUGlobal:         global,
		CPUProcess:        procCPU,
		Cores:             cores,
		GPUEngines:        engines,
		GPUDedicatedBytes: dedicated,
		GPUSharedBytes:    shared,
	})

	span.SetAttributes(
		attribute.Float64("cpu.global", global),
		attribute.Int("gpu.engines", len(engines)),
	)
}

// sampleProcessCPU produces the next process-scoped CPU value. While more
// than one \Process instance shares the executable name the identity is
// ambiguous: the counter path is re-derived and re-registered instead of
// read, because instance ordering is not stable across rounds. The newly
// bound counter yields data from the next collect; the previous value
// carries through the smoothing filter in the meantime.
func (e *Engine) sampleProcessCPU(prev float64) float64 {
	raw := prev

	candidates, err := e.resolver.Candidates()
	if err != nil {
		e.log.Debug("candidate enumeration failed", logging.Err(err))
		return Smooth(prev, raw)
	}

	switch StateFor(len(candidates)) {
	case StateAmbiguous:
		path, rerr := e.resolver.Resolve(candidates)
		if rerr != nil {
			e.log.Debug("identity resolution failed", logging.Err(rerr))
			break
		}
		e.rebindProcessCounter(path)
	default:
		if e.procCounter == nil && len(candidates) > 0 {
			if path, rerr := e.resolver.Resolve(candidates); rerr == nil {
				e.rebindProcessCounter(path)
			}
		}
		if e.procCounter != nil {
			if v, verr := e.procCounter.Value(FormatDoubleNoCap100); verr == nil {
				raw = v.Value / float64(e.coreCount)
			}
		}
	}

	return Smooth(prev, raw)
}

// rebindProcessCounter swaps the process CPU subscription for the given
// path, dropping any previous subscription first.
func (e *Engine) rebindProcessCounter(path string) {
	if e.procCounter != nil {
		if err := e.session.Remove(e.procCounter); err != nil {
			e.log.Debug("removing process counter", logging.Err(err))
		}
		e.procCounter = nil
	}
	c, err := e.session.Add(path)
	if err != nil {
		e.log.Debug("subscribing process counter", logging.String("path", path), logging.Err(err))
		return
	}
	e.procCounter = c
}

// CPUUtilization returns the configured primary CPU reading: process-scoped
// when ProcessScoped is set, system-wide otherwise.
func (e *Engine) CPUUtilization() float64 {
	if e.cfg.ProcessScoped {
		return e.snap.CPUProcess()
	}
	return e.snap.CPUGlobal()
}

// GlobalCPUUtilization returns the system-wide CPU utilization.
func (e *Engine) GlobalCPUUtilization() float64 { return e.snap.CPUGlobal() }

// ProcessCPUUtilization returns the process-scoped CPU utilization.
func (e *Engine) ProcessCPUUtilization() float64 { return e.snap.CPUProcess() }

// CoreUtilizations returns a copy of the per-core utilization vector.
func (e *Engine) CoreUtilizations() []float64 { return e.snap.Cores() }

// EngineUtilizationFor returns the summed utilization of one GPU engine
// type. An empty key selects the primary 3D engine.
func (e *Engine) EngineUtilizationFor(key string) float64 {
	if key == "" {
		key = DefaultEngineKey
	}
	return e.snap.Engine(key)
}

// EngineNames returns the GPU engine types seen in the latest round.
func (e *Engine) EngineNames() []string { return e.snap.EngineNames() }

// DedicatedMemoryBytes returns the process's dedicated GPU memory usage.
func (e *Engine) DedicatedMemoryBytes() uint64 { return e.snap.DedicatedBytes() }

// SharedMemoryBytes returns the process's shared GPU memory usage.
func (e *Engine) SharedMemoryBytes() uint64 { return e.snap.SharedBytes() }

// CoreCount returns the logical processor count the engine samples against.
func (e *Engine) CoreCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coreCount
}

// Running reports whether the sampling goroutine is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// detectCoreCount returns the logical processor count.
func detectCoreCount() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// detectExecutable returns the process image base name without extension.
func detectExecutable(pid int64) string {
	if proc, err := process.NewProcess(int32(pid)); err == nil {
		if name, nerr := proc.Name(); nerr == nil && name != "" {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	base := filepath.Base(os.Args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}
