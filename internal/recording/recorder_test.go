package recording

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/whispertype/whispertype/internal/audio"
	"github.com/whispertype/whispertype/internal/logger"
)

// fakeDriver implements audio.Driver without hardware. Chunks queued via
// feed are appended to the destination buffer when capture starts.
type fakeDriver struct {
	mu         sync.Mutex
	dst        *audio.Buffer
	startCount int
	stopCount  int
	startErr   error
	stopPanic  string
	pending    [][]float32
}

func (f *fakeDriver) ListDevices() ([]audio.Device, error) {
	return []audio.Device{{ID: 0, Name: "fake", IsDefault: true}}, nil
}

func (f *fakeDriver) Initialize(config audio.Config) error { return nil }

func (f *fakeDriver) Start(dst *audio.Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}

	f.startCount++
	f.dst = dst
	for _, chunk := range f.pending {
		dst.Append(chunk)
	}
	f.pending = nil
	return nil
}

func (f *fakeDriver) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCount++
	f.dst = nil
	if f.stopPanic != "" {
		panic(f.stopPanic)
	}
	return nil
}

func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) feed(chunk []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dst != nil {
		f.dst.Append(chunk)
		return
	}
	f.pending = append(f.pending, chunk)
}

func (f *fakeDriver) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCount
}

func testConfig() Config {
	return Config{
		MaxDuration:  time.Minute,
		PollInterval: 5 * time.Millisecond,
		JoinTimeout:  time.Second,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxDuration != 60*time.Second {
		t.Errorf("Expected MaxDuration 60s, got %v", config.MaxDuration)
	}
	if config.PollInterval != 100*time.Millisecond {
		t.Errorf("Expected PollInterval 100ms, got %v", config.PollInterval)
	}
	if config.JoinTimeout != 2*time.Second {
		t.Errorf("Expected JoinTimeout 2s, got %v", config.JoinTimeout)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Idle, "Idle"},
		{Recording, "Recording"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStopBeforeStart(t *testing.T) {
	r := New(&fakeDriver{}, testConfig(), logger.NewNop())

	samples, ok := r.Stop()
	if ok {
		t.Error("Stop before Start should report absent")
	}
	if samples != nil {
		t.Errorf("Stop before Start should return nil samples, got %v", samples)
	}
	if r.State() != Idle {
		t.Errorf("Expected Idle state, got %v", r.State())
	}
}

func TestStartStopDrains(t *testing.T) {
	driver := &fakeDriver{}
	r := New(driver, testConfig(), logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if r.State() != Recording {
		t.Errorf("Expected Recording state, got %v", r.State())
	}

	driver.feed([]float32{1, 2})
	driver.feed([]float32{3})

	samples, ok := r.Stop()
	if !ok {
		t.Fatal("Stop should report present samples")
	}

	want := []float32{1, 2, 3}
	if len(samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(samples))
	}
	for i, v := range want {
		if samples[i] != v {
			t.Errorf("Sample %d: expected %v, got %v", i, v, samples[i])
		}
	}

	if r.State() != Idle {
		t.Errorf("Expected Idle after Stop, got %v", r.State())
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	driver := &fakeDriver{}
	r := New(driver, testConfig(), logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("First Start failed: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Second Start should be a no-op, got error: %v", err)
	}

	if driver.starts() != 1 {
		t.Errorf("Expected 1 driver start, got %d", driver.starts())
	}

	r.Stop()
}

func TestStartResetsBuffer(t *testing.T) {
	driver := &fakeDriver{}
	r := New(driver, testConfig(), logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.feed([]float32{1})
	if _, ok := r.Stop(); !ok {
		t.Fatal("First Stop should report present")
	}

	// A second recording must not see samples from the first
	if err := r.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	driver.feed([]float32{7, 8})

	samples, ok := r.Stop()
	if !ok {
		t.Fatal("Second Stop should report present")
	}
	if len(samples) != 2 || samples[0] != 7 || samples[1] != 8 {
		t.Errorf("Second recording contaminated: got %v", samples)
	}
}

func TestStopWithNoAudio(t *testing.T) {
	driver := &fakeDriver{}
	r := New(driver, testConfig(), logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	samples, ok := r.Stop()
	if ok {
		t.Error("Stop with no captured audio should report absent")
	}
	if samples != nil {
		t.Errorf("Expected nil samples, got %v", samples)
	}
}

func TestStartDriverError(t *testing.T) {
	driver := &fakeDriver{startErr: fmt.Errorf("device gone")}
	r := New(driver, testConfig(), logger.NewNop())

	if err := r.Start(); err == nil {
		t.Error("Expected error when the driver fails to start")
	}
	if r.State() != Idle {
		t.Errorf("Expected Idle after failed start, got %v", r.State())
	}
}

func TestAutoStopDeliversData(t *testing.T) {
	driver := &fakeDriver{}
	cfg := testConfig()
	cfg.MaxDuration = 25 * time.Millisecond
	r := New(driver, cfg, logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.feed([]float32{1, 2, 3, 4})

	select {
	case samples := <-r.Data():
		if len(samples) != 4 {
			t.Errorf("Expected 4 samples from auto-stop, got %d", len(samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Auto-stop did not deliver samples")
	}

	if r.State() != Idle {
		t.Errorf("Expected Idle after auto-stop, got %v", r.State())
	}

	// Manual stop after auto-stop is a plain no-op
	if _, ok := r.Stop(); ok {
		t.Error("Stop after auto-stop should report absent")
	}
}

// A capture fault inside the poll loop must not take the process down. The
// recorder logs it, forces itself idle, and can record again afterwards.
func TestCaptureFaultForcesIdle(t *testing.T) {
	driver := &fakeDriver{stopPanic: "device wedged"}
	cfg := testConfig()
	cfg.MaxDuration = 20 * time.Millisecond
	r := New(driver, cfg, logger.NewNop())

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.feed([]float32{1, 2})

	deadline := time.Now().Add(2 * time.Second)
	for r.State() != Idle {
		if time.Now().After(deadline) {
			t.Fatal("Recorder did not return to Idle after the capture fault")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-r.Data():
		t.Error("Faulted recording should not deliver samples")
	default:
	}

	driver.mu.Lock()
	driver.stopPanic = ""
	driver.mu.Unlock()

	if err := r.Start(); err != nil {
		t.Fatalf("Restart after fault failed: %v", err)
	}
	driver.feed([]float32{3})
	if _, ok := r.Stop(); !ok {
		t.Error("Recording after the fault should deliver samples")
	}
}

func TestElapsed(t *testing.T) {
	driver := &fakeDriver{}
	r := New(driver, testConfig(), logger.NewNop())

	if r.Elapsed() != 0 {
		t.Error("Elapsed should be zero while idle")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if r.Elapsed() == 0 {
		t.Error("Elapsed should advance while recording")
	}

	r.Stop()
}
