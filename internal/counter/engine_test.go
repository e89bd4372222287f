package counter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/agbru/perfmon/internal/logging"
)

const testInterval = time.Millisecond

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func systemFake() *fakeSubsystem {
	sub := newFakeSubsystem()
	sub.setMulti(`\Processor Information(*)\% Processor Utility`, []InstanceValue{
		{Name: "0,0", Value: 10.0},
		{Name: "0,1", Value: 20.0},
		{Name: "0,2", Value: 30.0},
		{Name: "0,3", Value: 140.0},
		{Name: "0,_Total", Value: 50.0},
	})
	sub.setMulti(`\GPU Engine(*)\Utilization Percentage`, []InstanceValue{
		{Name: "pid_4242_luid_0x00_0x01_phys_0_engtype_3D", Value: 10.0},
		{Name: "pid_4242_luid_0x00_0x02_phys_0_engtype_3D", Value: 5.0},
		{Name: "pid_4242_luid_0x00_0x03_phys_0_engtype_Copy", Value: 7.0},
		{Name: "pid_9999_luid_0x00_0x01_phys_0_engtype_3D", Value: 40.0},
	})
	sub.setMulti(`\GPU Process Memory(*)\Dedicated Usage`, []InstanceValue{
		{Name: "pid_4242_luid_0x00_0x01_phys_0", Large: 1 << 28},
		{Name: "pid_9999_luid_0x00_0x01_phys_0", Large: 1 << 30},
	})
	sub.setMulti(`\GPU Process Memory(*)\Shared Usage`, []InstanceValue{
		{Name: "pid_4242_luid_0x00_0x01_phys_0", Large: 1 << 16},
	})
	return sub
}

func TestEngineSamplesSystemMetrics(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	e := New(sub, Config{
		Interval:   testInterval,
		CoreCount:  4,
		PID:        4242,
		Executable: "app",
	}, logging.Nop())

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer e.Stop()

	waitFor(t, "first published round", func() bool {
		return e.GlobalCPUUtilization() > 0
	})

	if got, want := e.GlobalCPUUtilization(), 50.0; got != want {
		t.Errorf("GlobalCPUUtilization() = %v, want %v", got, want)
	}
	// Per-core values are clamped at publication even though the mean is not.
	if got, want := e.CoreUtilizations(), []float64{10, 20, 30, 100}; !reflect.DeepEqual(got, want) {
		t.Errorf("CoreUtilizations() = %v, want %v", got, want)
	}
	if got := e.EngineUtilizationFor(""); got != 15.0 {
		t.Errorf("EngineUtilizationFor(\"\") = %v, want 15", got)
	}
	if got := e.EngineUtilizationFor("Copy"); got != 7.0 {
		t.Errorf("EngineUtilizationFor(Copy) = %v, want 7", got)
	}
	if got, want := e.EngineNames(), []string{"3D", "Copy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EngineNames() = %v, want %v", got, want)
	}
	if got := e.DedicatedMemoryBytes(); got != 1<<28 {
		t.Errorf("DedicatedMemoryBytes() = %d, want %d", got, 1<<28)
	}
	if got := e.SharedMemoryBytes(); got != 1<<16 {
		t.Errorf("SharedMemoryBytes() = %d, want %d", got, 1<<16)
	}
	if e.CPUUtilization() != e.GlobalCPUUtilization() {
		t.Error("system-scoped CPUUtilization() should report the global value")
	}
}

func TestEngineStartIsIdempotent(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	e := New(sub, Config{Interval: testInterval, CoreCount: 4, PID: 4242, Executable: "app"}, logging.Nop())

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer e.Stop()
	if err := e.Start(); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}

	sub.mu.Lock()
	sessions := len(sub.sessions)
	sub.mu.Unlock()
	if sessions != 2 {
		t.Errorf("sessions opened = %d, want 2 (main and probe)", sessions)
	}
	if !e.Running() {
		t.Error("Running() = false after Start")
	}
}

func TestEngineStopReleasesAndResets(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	e := New(sub, Config{Interval: testInterval, CoreCount: 4, PID: 4242, Executable: "app"}, logging.Nop())

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, "first published round", func() bool {
		return e.GlobalCPUUtilization() > 0
	})

	e.Stop()
	e.Stop() // second Stop is a no-op

	if e.Running() {
		t.Error("Running() = true after Stop")
	}
	if got := e.GlobalCPUUtilization(); got != 0 {
		t.Errorf("GlobalCPUUtilization() after Stop = %v, want 0", got)
	}
	if got := e.CoreUtilizations(); len(got) != 0 {
		t.Errorf("CoreUtilizations() after Stop = %v, want empty", got)
	}
	if got := e.EngineNames(); len(got) != 0 {
		t.Errorf("EngineNames() after Stop = %v, want empty", got)
	}
	if got := e.DedicatedMemoryBytes(); got != 0 {
		t.Errorf("DedicatedMemoryBytes() after Stop = %d, want 0", got)
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	for i, s := range sub.sessions {
		if !s.closed {
			t.Errorf("session %d not closed after Stop", i)
		}
	}
}

func TestEngineStartFailsWithoutCPUCounter(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	sub.failAdd[`\Processor Information(*)\% Processor Utility`] = errors.New("counter set missing")
	e := New(sub, Config{Interval: testInterval, CoreCount: 4, PID: 4242, Executable: "app"}, logging.Nop())

	if err := e.Start(); err == nil {
		e.Stop()
		t.Fatal("Start() succeeded without the mandatory CPU counter")
	}
	if e.Running() {
		t.Error("Running() = true after failed Start")
	}
}

func TestEngineToleratesMissingGPUCounters(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	sub.failAdd[`\GPU Engine(*)\Utilization Percentage`] = errors.New("no gpu")
	sub.failAdd[`\GPU Process Memory(*)\Dedicated Usage`] = errors.New("no gpu")
	sub.failAdd[`\GPU Process Memory(*)\Shared Usage`] = errors.New("no gpu")
	e := New(sub, Config{Interval: testInterval, CoreCount: 4, PID: 4242, Executable: "app"}, logging.Nop())

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer e.Stop()

	waitFor(t, "first published round", func() bool {
		return e.GlobalCPUUtilization() > 0
	})
	if got := e.EngineNames(); len(got) != 0 {
		t.Errorf("EngineNames() = %v, want empty without GPU counters", got)
	}
	if got := e.EngineUtilizationFor(""); got != 0 {
		t.Errorf("EngineUtilizationFor(\"\") = %v, want 0", got)
	}
}

func TestEngineSkipsRoundOnCollectFailure(t *testing.T) {
	t.Parallel()

	sub := systemFake()
	e := New(sub, Config{Interval: testInterval, CoreCount: 4, PID: 4242, Executable: "app"}, logging.Nop())

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer e.Stop()

	sub.mu.Lock()
	main := sub.sessions[0]
	sub.mu.Unlock()
	main.setCollectErr(errors.New("transient refresh failure"))

	waitFor(t, "failed collection rounds", func() bool {
		return main.collectCount() > 3
	})
	if got := e.GlobalCPUUtilization(); got != 0 {
		t.Errorf("GlobalCPUUtilization() = %v during failed rounds, want 0", got)
	}

	main.setCollectErr(nil)
	waitFor(t, "recovery after collect failures", func() bool {
		return e.GlobalCPUUtilization() == 50.0
	})
}

func TestEngineProcessScope(t *testing.T) {
	t.Parallel()

	t.Run("single candidate converges on the raw reading", func(t *testing.T) {
		t.Parallel()

		sub := systemFake()
		sub.setWildcard(`\Process(app*)\ID Process`, []string{`\Process(app)\ID Process`})
		sub.setScalar(`\Process(app)\ID Process`, InstanceValue{Large: 4242})
		sub.setScalar(`\Process(app)\% Processor Time`, InstanceValue{Value: 50.0})

		e := New(sub, Config{
			ProcessScoped: true,
			Interval:      testInterval,
			CoreCount:     2,
			PID:           4242,
			Executable:    "app",
		}, logging.Nop())
		if err := e.Start(); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		defer e.Stop()

		// Raw reading is 50 over 2 cores; smoothing converges on 25.
		waitFor(t, "smoothed process reading", func() bool {
			return e.ProcessCPUUtilization() > 24.0
		})
		if e.CPUUtilization() != e.ProcessCPUUtilization() {
			t.Error("process-scoped CPUUtilization() should report the process value")
		}
	})

	t.Run("ambiguity rebinds instead of reading", func(t *testing.T) {
		t.Parallel()

		sub := systemFake()
		sub.setWildcard(`\Process(app*)\ID Process`, []string{
			`\Process(app)\ID Process`,
			`\Process(app#1)\ID Process`,
		})
		sub.setScalar(`\Process(app)\ID Process`, InstanceValue{Large: 12})
		sub.setScalar(`\Process(app#1)\ID Process`, InstanceValue{Large: 4242})
		sub.setScalar(`\Process(app#1)\% Processor Time`, InstanceValue{Value: 80.0})

		e := New(sub, Config{
			ProcessScoped: true,
			Interval:      testInterval,
			CoreCount:     2,
			PID:           4242,
			Executable:    "app",
		}, logging.Nop())
		if err := e.Start(); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		defer e.Stop()

		sub.mu.Lock()
		main, probe := sub.sessions[0], sub.sessions[1]
		sub.mu.Unlock()

		waitFor(t, "repeated identity probes", func() bool {
			return probe.collectCount() > 5
		})
		// Every round re-resolves and skips the fresh counter's first read,
		// so the published process value never moves off zero.
		if got := e.ProcessCPUUtilization(); got != 0 {
			t.Errorf("ProcessCPUUtilization() = %v under persistent ambiguity, want 0", got)
		}
		// Rebinding swaps the subscription rather than accumulating: the
		// main session holds at most cpu + 3 gpu + 1 process counter.
		if n := main.openCount(); n > 5 {
			t.Errorf("main session holds %d counters, want at most 5", n)
		}
		if n := probe.openCount(); n > 1 {
			t.Errorf("probe session holds %d counters mid-probe, want at most 1", n)
		}
	})
}
