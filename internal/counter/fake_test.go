package counter

import (
	"errors"
	"sync"
)

var errNoSuchCounter = errors.New("no such counter")

// fakeSubsystem is an in-memory Subsystem. Scalar and multi-instance values
// are keyed by counter path and may be updated while an engine is sampling;
// a single mutex covers the subsystem and every session it opened.
type fakeSubsystem struct {
	mu          sync.Mutex
	scalars     map[string]InstanceValue
	multi       map[string][]InstanceValue
	wildcards   map[string][]string
	failAdd     map[string]error
	expandCalls []string
	sessions    []*fakeSession
}

func newFakeSubsystem() *fakeSubsystem {
	return &fakeSubsystem{
		scalars:   make(map[string]InstanceValue),
		multi:     make(map[string][]InstanceValue),
		wildcards: make(map[string][]string),
		failAdd:   make(map[string]error),
	}
}

func (f *fakeSubsystem) setScalar(path string, v InstanceValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scalars[path] = v
}

func (f *fakeSubsystem) setMulti(path string, items []InstanceValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multi[path] = items
}

func (f *fakeSubsystem) setWildcard(pattern string, paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wildcards[pattern] = paths
}

func (f *fakeSubsystem) NewSession() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSession{sub: f, open: make(map[*fakeCounter]bool)}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeSubsystem) ExpandWildcard(pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expandCalls = append(f.expandCalls, pattern)
	return append([]string(nil), f.wildcards[pattern]...), nil
}

type fakeSession struct {
	sub        *fakeSubsystem
	open       map[*fakeCounter]bool
	closed     bool
	collects   int
	collectErr error
}

func (s *fakeSession) Add(path string) (Counter, error) {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	if err := s.sub.failAdd[path]; err != nil {
		return nil, err
	}
	c := &fakeCounter{sess: s, path: path}
	s.open[c] = true
	return c, nil
}

func (s *fakeSession) Remove(c Counter) error {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	fc, ok := c.(*fakeCounter)
	if !ok || !s.open[fc] {
		return errNoSuchCounter
	}
	delete(s.open, fc)
	return nil
}

func (s *fakeSession) Collect() error {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	s.collects++
	return s.collectErr
}

func (s *fakeSession) Close() error {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	s.closed = true
	s.open = make(map[*fakeCounter]bool)
	return nil
}

func (s *fakeSession) openCount() int {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	return len(s.open)
}

func (s *fakeSession) collectCount() int {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	return s.collects
}

func (s *fakeSession) setCollectErr(err error) {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	s.collectErr = err
}

func (s *fakeSession) isClosed() bool {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	return s.closed
}

type fakeCounter struct {
	sess *fakeSession
	path string
}

func (c *fakeCounter) Value(_ Format) (InstanceValue, error) {
	c.sess.sub.mu.Lock()
	defer c.sess.sub.mu.Unlock()
	v, ok := c.sess.sub.scalars[c.path]
	if !ok {
		return InstanceValue{}, errNoSuchCounter
	}
	return v, nil
}

func (c *fakeCounter) Values(_ Format) ([]InstanceValue, error) {
	c.sess.sub.mu.Lock()
	defer c.sess.sub.mu.Unlock()
	return append([]InstanceValue(nil), c.sess.sub.multi[c.path]...), nil
}
