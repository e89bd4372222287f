// Package counter implements the background sampling engine: counter
// session management, process identity resolution, metric aggregation, the
// sampling loop, and the shared snapshot read by caller threads.
//
// The package is written against the Subsystem/Session/Counter abstraction
// below; the Windows PDH implementation lives in internal/pdh. Tests use an
// in-memory fake.
package counter

// Format selects how the subsystem formats a counter's raw value.
type Format int

const (
	// FormatDouble formats the value as a floating point percentage,
	// clipped at 100.
	FormatDouble Format = iota
	// FormatDoubleNoCap100 formats the value as a floating point
	// percentage without the 100% clip. Frequency-normalized counters can
	// legitimately exceed 100 across cores.
	FormatDoubleNoCap100
	// FormatLarge formats the value as a 64-bit integer (byte counts).
	FormatLarge
	// FormatLong formats the value as a 32-bit integer (process ids).
	FormatLong
)

// InstanceValue is one instance's formatted value from a counter. For
// floating point formats Value carries the reading; for integer formats
// Large does and Value holds the same reading converted for convenience.
type InstanceValue struct {
	Name  string
	Value float64
	Large int64
}

// Counter is a single subscribed counter, valid until removed or until its
// session is closed. Values reflect the session's most recent Collect call.
type Counter interface {
	// Value returns the formatted value of a scalar counter.
	Value(f Format) (InstanceValue, error)
	// Values returns the formatted values of every instance of a wildcard
	// counter. The instance set is sized per collection round; instances
	// appear and disappear between rounds.
	Values(f Format) ([]InstanceValue, error)
}

// Session owns one query context in the OS counter subsystem. All calls on a
// Session and its Counters happen on the sampling goroutine; Sessions are not
// safe for concurrent use.
type Session interface {
	// Add subscribes a counter by hierarchical path.
	Add(path string) (Counter, error)
	// Remove unsubscribes a counter previously returned by Add.
	Remove(c Counter) error
	// Collect performs one synchronous refresh of every subscribed
	// counter. It must be called before reading any counter's value and
	// may block briefly on the OS.
	Collect() error
	// Close releases the query context and every remaining counter.
	Close() error
}

// Subsystem is the entry point to the OS counter facility.
type Subsystem interface {
	// NewSession opens a query context.
	NewSession() (Session, error)
	// ExpandWildcard expands a wildcard counter path pattern into the
	// concrete instance paths that currently exist.
	ExpandWildcard(pattern string) ([]string, error)
}

// Counter paths consumed by the engine, in the subsystem's English names.
const (
	gpuEnginePath    = `\GPU Engine(*)\Utilization Percentage`
	gpuDedicatedPath = `\GPU Process Memory(*)\Dedicated Usage`
	gpuSharedPath    = `\GPU Process Memory(*)\Shared Usage`
	cpuUtilityPath   = `\Processor Information(*)\% Processor Utility`

	processIDLeaf   = `\ID Process`
	processTimeLeaf = `\% Processor Time`
)
