package recording

import (
	"fmt"
	"sync"
	"time"

	"github.com/whispertype/whispertype/internal/audio"
	"github.com/whispertype/whispertype/internal/logger"
)

// State represents the current recorder state
type State int

const (
	// Idle means not recording
	Idle State = iota
	// Recording means the capture stream is live
	Recording
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	default:
		return "Unknown"
	}
}

// Config holds configuration for the recorder
type Config struct {
	MaxDuration  time.Duration // auto-stop after this long; 0 disables
	PollInterval time.Duration // capture loop poll period
	JoinTimeout  time.Duration // bounded wait for the loop to exit on Stop
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxDuration:  60 * time.Second,
		PollInterval: 100 * time.Millisecond,
		JoinTimeout:  2 * time.Second,
	}
}

// Recorder owns the capture lifecycle: it holds the chunk buffer, starts
// and stops the driver, and runs a background loop that enforces the
// maximum recording duration. The state enum and the buffer share no lock;
// the recorder's mutex guards the state, the buffer guards itself.
type Recorder struct {
	mu       sync.Mutex
	state    State
	driver   audio.Driver
	buf      *audio.Buffer
	cfg      Config
	log      *logger.Logger
	stopChan chan struct{}
	loopDone chan struct{}
	started  time.Time
	dataChan chan []float32
}

// New creates a recorder bound to an initialized audio driver
func New(driver audio.Driver, cfg Config, log *logger.Logger) *Recorder {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 2 * time.Second
	}

	return &Recorder{
		state:    Idle,
		driver:   driver,
		buf:      audio.NewBuffer(),
		cfg:      cfg,
		log:      log.Named("recorder"),
		dataChan: make(chan []float32, 1),
	}
}

// Start begins recording. A Start while already recording is a no-op.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		r.log.Debug("start ignored, already recording")
		return nil
	}

	r.buf.Reset()

	if err := r.driver.Start(r.buf); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	r.state = Recording
	r.started = time.Now()
	r.stopChan = make(chan struct{})
	r.loopDone = make(chan struct{})

	go r.loop(r.stopChan, r.loopDone, r.started)

	r.log.Info("recording started")
	return nil
}

// Stop ends recording and drains the buffer. When the recorder is idle it
// returns (nil, false) and does nothing.
func (r *Recorder) Stop() ([]float32, bool) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return nil, false
	}
	r.state = Idle
	stop := r.stopChan
	done := r.loopDone
	r.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(r.cfg.JoinTimeout):
		r.log.Warn("capture loop did not exit within join timeout")
	}

	if err := r.driver.Stop(); err != nil {
		r.log.Error("failed to stop capture", logger.Error(err))
	}

	samples, ok := r.buf.Drain()
	if !ok {
		r.log.Warn("recording stopped with no captured audio")
		return nil, false
	}

	r.log.Info("recording stopped", logger.Int("samples", len(samples)))
	return samples, true
}

// State returns the current recorder state
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns how long the current recording has been running
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		return 0
	}
	return time.Since(r.started)
}

// Data returns the channel that delivers auto-stopped recordings
func (r *Recorder) Data() <-chan []float32 {
	return r.dataChan
}

// Close stops any in-flight recording and discards its samples
func (r *Recorder) Close() error {
	if _, ok := r.Stop(); ok {
		r.log.Warn("recording discarded on close")
	}
	return nil
}

// loop polls in short increments while the recording flag holds. Its only
// jobs are enforcing MaxDuration and containing capture faults: any panic
// is logged and forces the recorder idle rather than killing the process.
func (r *Recorder) loop(stop <-chan struct{}, done chan<- struct{}, started time.Time) {
	defer close(done)
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("capture loop failure", logger.Any("panic", p))
			r.forceIdle()
		}
	}()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.cfg.MaxDuration > 0 && time.Since(started) >= r.cfg.MaxDuration {
				r.log.Warn("max recording duration reached, auto-stopping",
					logger.Duration("max_duration", r.cfg.MaxDuration))
				r.autoStop()
				return
			}
		}
	}
}

// autoStop ends the recording from inside the loop and hands the samples
// to the data channel. Loses the race against a concurrent Stop cleanly:
// whoever flips the state first owns the drain.
func (r *Recorder) autoStop() {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return
	}
	r.state = Idle
	r.mu.Unlock()

	if err := r.driver.Stop(); err != nil {
		r.log.Error("failed to stop capture", logger.Error(err))
	}

	samples, ok := r.buf.Drain()
	if !ok {
		return
	}

	select {
	case r.dataChan <- samples:
	default:
		r.log.Warn("data channel full, dropping auto-stopped recording")
	}
}

// forceIdle flips the state to Idle after a capture fault
func (r *Recorder) forceIdle() {
	r.mu.Lock()
	wasRecording := r.state == Recording
	r.state = Idle
	r.mu.Unlock()

	if wasRecording {
		if err := r.driver.Stop(); err != nil {
			r.log.Error("failed to stop capture after fault", logger.Error(err))
		}
	}
}
