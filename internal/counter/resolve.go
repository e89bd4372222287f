// This file implements process identity resolution: mapping the current
// process onto the correct \Process(name#N) counter instance.

package counter

import (
	"fmt"
	"strings"

	apperrors "github.com/agbru/perfmon/internal/errors"
	"github.com/agbru/perfmon/internal/logging"
)

// ResolutionState describes the resolver's view of the process identity.
type ResolutionState int

const (
	// StateUnresolved means no counter path has been established yet.
	StateUnresolved ResolutionState = iota
	// StateResolved means exactly one candidate existed and its path can
	// be trusted until the candidate set changes.
	StateResolved
	// StateAmbiguous means several processes share the executable's base
	// name. Instance enumeration order is not stable under ambiguity, so
	// the path must be re-derived every sampling round while this state
	// persists.
	StateAmbiguous
)

// Resolver disambiguates \Process instances that share an executable base
// name by probing each candidate's ID Process sub-counter on a dedicated
// probe session, and derives the process-scoped processor time counter path
// from the match.
type Resolver struct {
	subsystem  Subsystem
	probe      Session
	pid        int64
	executable string
	log        logging.Logger
}

// NewResolver creates a resolver for the given process. executable is the
// process image base name with its extension stripped; probe is a session
// reserved for identity probing so that transient subscriptions never
// disturb the main query.
func NewResolver(subsystem Subsystem, probe Session, pid int64, executable string, log logging.Logger) *Resolver {
	return &Resolver{
		subsystem:  subsystem,
		probe:      probe,
		pid:        pid,
		executable: executable,
		log:        log,
	}
}

// Candidates lists every \Process instance path whose name is built from the
// executable's base name, via the subsystem's wildcard expansion. The result
// is the candidate set for one round; its size determines the resolution
// state.
func (r *Resolver) Candidates() ([]string, error) {
	pattern := fmt.Sprintf(`\Process(%s*)%s`, r.executable, processIDLeaf)
	paths, err := r.subsystem.ExpandWildcard(pattern)
	if err != nil {
		return nil, apperrors.WrapError(err, "expanding %q", pattern)
	}
	candidates := paths[:0:0]
	for _, p := range paths {
		if strings.Contains(p, r.executable) {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

// Resolve probes each candidate's ID Process counter and accepts the first
// whose reported identifier equals the target pid. Probe subscriptions are
// removed immediately, matched or not, to avoid handle leakage. On success
// it returns the process-scoped processor time path derived from the match.
func (r *Resolver) Resolve(candidates []string) (string, error) {
	for _, path := range candidates {
		c, err := r.probe.Add(path)
		if err != nil {
			r.log.Debug("probe subscribe failed", logging.String("path", path), logging.Err(err))
			continue
		}
		collectErr := r.probe.Collect()
		v, readErr := c.Value(FormatLong)
		if err := r.probe.Remove(c); err != nil {
			r.log.Debug("probe remove failed", logging.String("path", path), logging.Err(err))
		}
		if collectErr != nil || readErr != nil {
			continue
		}
		if v.Large == r.pid {
			return processorTimePath(path), nil
		}
	}
	return "", apperrors.ResolutionError{Executable: r.executable, Candidates: len(candidates)}
}

// StateFor classifies a candidate set size into a resolution state.
func StateFor(candidates int) ResolutionState {
	switch {
	case candidates == 0:
		return StateUnresolved
	case candidates == 1:
		return StateResolved
	default:
		return StateAmbiguous
	}
}

// processorTimePath replaces the ID Process leaf of a matched instance path
// with the processor time leaf.
func processorTimePath(idPath string) string {
	if i := strings.LastIndex(idPath, `\`); i >= 0 {
		return idPath[:i] + processTimeLeaf
	}
	return idPath + processTimeLeaf
}
