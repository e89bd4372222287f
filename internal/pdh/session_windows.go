//go:build windows

package pdh

import (
	"errors"

	"golang.org/x/sys/windows"

	"github.com/agbru/perfmon/internal/counter"
)

var errForeignCounter = errors.New("counter does not belong to a pdh session")

// Subsystem implements counter.Subsystem over pdh.dll.
type Subsystem struct{}

// New returns the process-wide PDH subsystem.
func New() Subsystem { return Subsystem{} }

// NewSession opens a PDH query.
func (Subsystem) NewSession() (counter.Session, error) {
	query, err := openQuery()
	if err != nil {
		return nil, err
	}
	return &session{query: query}, nil
}

// ExpandWildcard expands a wildcard counter path into concrete instance
// paths.
func (Subsystem) ExpandWildcard(pattern string) ([]string, error) {
	return expandWildcardPath(pattern)
}

// session wraps one PDH query handle. PDH queries are not thread safe; the
// engine confines each session to its sampling goroutine.
type session struct {
	query uintptr
}

func (s *session) Add(path string) (counter.Counter, error) {
	handle, err := addCounter(s.query, path)
	if err != nil {
		return nil, err
	}
	return &pdhCounter{handle: handle}, nil
}

func (s *session) Remove(c counter.Counter) error {
	pc, ok := c.(*pdhCounter)
	if !ok {
		return errForeignCounter
	}
	return removeCounter(pc.handle)
}

func (s *session) Collect() error {
	return collectQueryData(s.query)
}

// Close releases the query handle; PDH closes every counter still attached
// to it.
func (s *session) Close() error {
	return closeQuery(s.query)
}

type pdhCounter struct {
	handle uintptr
}

func (c *pdhCounter) Value(f counter.Format) (counter.InstanceValue, error) {
	v, err := getFormattedValue(c.handle, pdhFormat(f))
	if err != nil {
		return counter.InstanceValue{}, err
	}
	return decodeValue("", &v, f), nil
}

func (c *pdhCounter) Values(f counter.Format) ([]counter.InstanceValue, error) {
	items, buf, err := getFormattedArray(c.handle, pdhFormat(f))
	if err != nil {
		return nil, err
	}
	out := make([]counter.InstanceValue, 0, len(items))
	for i := range items {
		name := windows.UTF16PtrToString(items[i].SzName)
		out = append(out, decodeValue(name, &items[i].FmtValue, f))
	}
	// The name pointers above point into buf; it must stay alive until the
	// last decode.
	_ = buf
	return out, nil
}

// pdhFormat maps the engine's format selector onto PDH_FMT_* flags.
func pdhFormat(f counter.Format) uint32 {
	switch f {
	case counter.FormatDoubleNoCap100:
		return fmtDouble | fmtNoCap100
	case counter.FormatLarge:
		return fmtLarge
	case counter.FormatLong:
		return fmtLong
	default:
		return fmtDouble
	}
}

// decodeValue reads the union member selected by the format and mirrors it
// into both fields of InstanceValue.
func decodeValue(name string, v *fmtCounterValue, f counter.Format) counter.InstanceValue {
	iv := counter.InstanceValue{Name: name}
	switch f {
	case counter.FormatLarge:
		iv.Large = v.large()
		iv.Value = float64(iv.Large)
	case counter.FormatLong:
		iv.Large = int64(v.long())
		iv.Value = float64(iv.Large)
	default:
		iv.Value = v.double()
		iv.Large = int64(iv.Value)
	}
	return iv
}
