// This file implements the per-round aggregation of raw multi-instance
// counter values into consumable summaries.

package counter

import (
	"fmt"
	"strconv"
	"strings"
)

// engineTypeMarker precedes the engine type token in GPU Engine instance
// names, e.g. "pid_4242_luid_0x00_0x01_phys_0_engtype_3D".
const engineTypeMarker = "_engtype_"

// PidTag returns the instance-name token identifying a process in the GPU
// counter namespaces.
func PidTag(pid int32) string {
	return fmt.Sprintf("pid_%d", pid)
}

// EngineUtilization groups raw GPU Engine instance values by engine type,
// keeping only instances belonging to the process identified by pidTag.
// A GPU exposes multiple sub-instances per engine type (one per context);
// their utilizations are summed, not averaged. The result is a fresh table
// each round: engine types absent from items simply do not appear.
func EngineUtilization(items []InstanceValue, pidTag string) map[string]float64 {
	engines := make(map[string]float64)
	for _, item := range items {
		if !strings.Contains(item.Name, pidTag) {
			continue
		}
		_, engineType, ok := strings.Cut(item.Name, engineTypeMarker)
		if !ok || engineType == "" {
			continue
		}
		engines[engineType] += item.Value
	}
	return engines
}

// ProcessMemoryBytes sums a GPU memory counter's per-instance byte counts
// across every instance belonging to the process identified by pidTag.
func ProcessMemoryBytes(items []InstanceValue, pidTag string) uint64 {
	var total uint64
	for _, item := range items {
		if !strings.Contains(item.Name, pidTag) {
			continue
		}
		if item.Large > 0 {
			total += uint64(item.Large)
		}
	}
	return total
}

// CoreUtilization places per-core utilization values into a vector of length
// coreCount, indexed by the core field of the "group,core" instance name.
// Unparseable instance names (such as the "_Total" aggregate) and
// out-of-range core indexes are dropped silently. Values are returned
// unclamped; callers clamp for publication.
func CoreUtilization(items []InstanceValue, coreCount int) []float64 {
	if coreCount <= 0 {
		return nil
	}
	cores := make([]float64, coreCount)
	for _, item := range items {
		group, core, ok := strings.Cut(item.Name, ",")
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(group); err != nil {
			continue
		}
		idx, err := strconv.Atoi(core)
		if err != nil || idx < 0 || idx >= coreCount {
			continue
		}
		cores[idx] = item.Value
	}
	return cores
}

// GlobalUtilization averages per-core samples and clamps the result to
// [0,100]. The mean is taken over the raw, unclamped values; only the final
// average is clipped, matching the platform task manager's display semantics.
func GlobalUtilization(cores []float64) float64 {
	if len(cores) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cores {
		sum += c
	}
	return Clamp100(sum / float64(len(cores)))
}

// Clamp100 clips a percentage to the [0,100] display range.
func Clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// smoothingFactor is the single-pole low-pass coefficient applied to the
// process-scoped CPU reading only; global and per-core values are published
// raw. Damps single-counter sampling jitter.
const smoothingFactor = 0.5

// Smooth blends the previous published process CPU value with a freshly
// collected one.
func Smooth(previous, raw float64) float64 {
	return (previous + raw) * smoothingFactor
}
