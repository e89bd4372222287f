package perfmon

import (
	"reflect"
	"testing"
	"time"

	"github.com/agbru/perfmon/internal/counter"
)

// staticSubsystem serves fixed counter data; enough to drive a monitor
// end to end without the platform counter facility.
type staticSubsystem struct {
	multi map[string][]counter.InstanceValue
}

func newStaticSubsystem() *staticSubsystem {
	return &staticSubsystem{multi: map[string][]counter.InstanceValue{
		`\Processor Information(*)\% Processor Utility`: {
			{Name: "0,0", Value: 40.0},
			{Name: "0,1", Value: 60.0},
		},
		`\GPU Engine(*)\Utilization Percentage`: {
			{Name: "pid_321_luid_0x00_0x01_phys_0_engtype_3D", Value: 12.0},
			{Name: "pid_321_luid_0x00_0x02_phys_0_engtype_Copy", Value: 4.0},
		},
		`\GPU Process Memory(*)\Dedicated Usage`: {
			{Name: "pid_321_luid_0x00_0x01_phys_0", Large: 2048},
		},
		`\GPU Process Memory(*)\Shared Usage`: {
			{Name: "pid_321_luid_0x00_0x01_phys_0", Large: 512},
		},
	}}
}

func (s *staticSubsystem) NewSession() (counter.Session, error) {
	return &staticSession{sub: s}, nil
}

func (s *staticSubsystem) ExpandWildcard(string) ([]string, error) {
	return nil, nil
}

type staticSession struct {
	sub *staticSubsystem
}

func (s *staticSession) Add(path string) (counter.Counter, error) {
	return &staticCounter{sub: s.sub, path: path}, nil
}

func (s *staticSession) Remove(counter.Counter) error { return nil }
func (s *staticSession) Collect() error               { return nil }
func (s *staticSession) Close() error                 { return nil }

type staticCounter struct {
	sub  *staticSubsystem
	path string
}

func (c *staticCounter) Value(counter.Format) (counter.InstanceValue, error) {
	return counter.InstanceValue{}, nil
}

func (c *staticCounter) Values(counter.Format) ([]counter.InstanceValue, error) {
	return c.sub.multi[c.path], nil
}

func testOptions() []Option {
	return []Option{
		withSubsystem(newStaticSubsystem()),
		withIdentity(321, "app", 2),
		WithInterval(time.Millisecond),
	}
}

func waitForReading(t *testing.T, read func() float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if read() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no reading published before deadline")
}

func TestMonitorLifecycle(t *testing.T) {
	m := New(testOptions()...)

	if m.Running() {
		t.Error("Running() = true before Start")
	}
	if got := m.CPUUtilization(); got != 0 {
		t.Errorf("CPUUtilization() before Start = %v, want 0", got)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("redundant Start() error: %v", err)
	}
	waitForReading(t, m.CPUUtilization)

	if got := m.CPUUtilization(); got != 50.0 {
		t.Errorf("CPUUtilization() = %v, want 50", got)
	}
	if got, want := m.CPUCoreUtilization(), []float64{40, 60}; !reflect.DeepEqual(got, want) {
		t.Errorf("CPUCoreUtilization() = %v, want %v", got, want)
	}
	if got := m.GPUEngineUtilization(""); got != 12.0 {
		t.Errorf("GPUEngineUtilization(\"\") = %v, want 12", got)
	}
	if got := m.GPUEngineUtilization("Copy"); got != 4.0 {
		t.Errorf("GPUEngineUtilization(Copy) = %v, want 4", got)
	}
	if got, want := m.GPUEngineNames(), []string{"3D", "Copy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("GPUEngineNames() = %v, want %v", got, want)
	}
	if got := m.GPUDedicatedMemoryBytes(); got != 2048 {
		t.Errorf("GPUDedicatedMemoryBytes() = %d, want 2048", got)
	}
	if got := m.GPUSharedMemoryBytes(); got != 512 {
		t.Errorf("GPUSharedMemoryBytes() = %d, want 512", got)
	}
	if got := m.CoreCount(); got != 2 {
		t.Errorf("CoreCount() = %d, want 2", got)
	}

	m.Stop()
	if m.Running() {
		t.Error("Running() = true after Stop")
	}
	if got := m.CPUUtilization(); got != 0 {
		t.Errorf("CPUUtilization() after Stop = %v, want 0", got)
	}

	// A stopped monitor can be started again.
	if err := m.Start(); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	waitForReading(t, m.CPUUtilization)
	m.Stop()
}

func TestDefaultInstance(t *testing.T) {
	// Reads before Initialize report zero values.
	Shutdown()
	if got := CPUUtilization(); got != 0 {
		t.Errorf("CPUUtilization() before Initialize = %v, want 0", got)
	}
	if got := GPUEngineNames(); got != nil {
		t.Errorf("GPUEngineNames() before Initialize = %v, want nil", got)
	}

	if err := Initialize(testOptions()...); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	defer Shutdown()
	if err := Initialize(); err != nil {
		t.Fatalf("redundant Initialize() error: %v", err)
	}

	waitForReading(t, CPUUtilization)
	if got := GPUEngineUtilization("3D"); got != 12.0 {
		t.Errorf("GPUEngineUtilization(3D) = %v, want 12", got)
	}
	if got, want := CPUCoreUtilization(), []float64{40, 60}; !reflect.DeepEqual(got, want) {
		t.Errorf("CPUCoreUtilization() = %v, want %v", got, want)
	}
	if got := GPUDedicatedMemoryBytes(); got != 2048 {
		t.Errorf("GPUDedicatedMemoryBytes() = %d, want 2048", got)
	}
	if got := GPUSharedMemoryBytes(); got != 512 {
		t.Errorf("GPUSharedMemoryBytes() = %d, want 512", got)
	}

	Shutdown()
	if got := CPUUtilization(); got != 0 {
		t.Errorf("CPUUtilization() after Shutdown = %v, want 0", got)
	}
	Shutdown() // second Shutdown is a no-op
}
