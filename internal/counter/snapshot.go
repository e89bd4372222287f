package counter

import (
	"sort"
	"sync"
)

// State is the complete set of metrics produced by one sampling round. The
// sampling loop builds a fresh State every cycle and publishes it whole;
// readers never observe a partial mix of rounds.
type State struct {
	// CPUGlobal is the system-wide utilization: the clamped mean of the
	// per-core samples, in [0,100].
	CPUGlobal float64
	// CPUProcess is the smoothed, per-logical-core-normalized utilization
	// of the monitored process.
	CPUProcess float64
	// Cores holds per-logical-core utilization in [0,100], indexed by
	// core. Its length is fixed at the logical processor count.
	Cores []float64
	// GPUEngines maps engine type (3D, Copy, VideoDecode, ...) to summed
	// utilization for the monitored process. Rebuilt each round.
	GPUEngines map[string]float64
	// GPUDedicatedBytes and GPUSharedBytes are the process's GPU memory
	// usage summed across adapters.
	GPUDedicatedBytes uint64
	GPUSharedBytes    uint64
}

// Snapshot holds the latest published State under a mutex. Readers copy
// values out; no caller ever holds a reference into the engine's state past
// the accessor call. A Snapshot that has never been published (engine not
// started, or stopped) returns zero-valued defaults from every accessor.
type Snapshot struct {
	mu    sync.Mutex
	state State
}

// Publish replaces the entire state atomically.
func (s *Snapshot) Publish(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Reset discards the published state, returning all reads to zero defaults.
func (s *Snapshot) Reset() {
	s.Publish(State{})
}

// CPUGlobal returns the latest system-wide CPU utilization.
func (s *Snapshot) CPUGlobal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CPUGlobal
}

// CPUProcess returns the latest process-scoped CPU utilization.
func (s *Snapshot) CPUProcess() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CPUProcess
}

// Cores returns a copy of the per-core utilization vector.
func (s *Snapshot) Cores() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Cores) == 0 {
		return nil
	}
	out := make([]float64, len(s.state.Cores))
	copy(out, s.state.Cores)
	return out
}

// Engine returns the latest summed utilization for one GPU engine type, or 0
// if that engine type was absent from the last round.
func (s *Snapshot) Engine(key string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GPUEngines[key]
}

// EngineNames returns the engine types present in the latest round, sorted
// for stable output.
func (s *Snapshot) EngineNames() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.state.GPUEngines))
	for name := range s.state.GPUEngines {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

// DedicatedBytes returns the process's dedicated GPU memory usage.
func (s *Snapshot) DedicatedBytes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GPUDedicatedBytes
}

// SharedBytes returns the process's shared GPU memory usage.
func (s *Snapshot) SharedBytes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GPUSharedBytes
}
