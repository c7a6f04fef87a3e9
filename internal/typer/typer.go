package typer

import (
	"math/rand"
	"strings"
	"time"

	"github.com/whispertype/whispertype/internal/logger"
)

// Sink receives one character at a time. Implementations inject keystrokes
// into the focused window.
type Sink interface {
	TypeChar(r rune) error
}

// sentenceEnders trigger the longer post-punctuation pause
const sentenceEnders = ".!?"

// Config holds typing engine configuration
type Config struct {
	WPM int // target words per minute, at the usual 5 chars per word
}

// DefaultConfig returns the default typing configuration
func DefaultConfig() Config {
	return Config{WPM: 40}
}

// Engine emits text character by character at a human-plausible cadence:
// a WPM-derived base delay with per-character jitter, a longer pause after
// sentence-ending punctuation, and a short breather at randomized
// character intervals. Cancellation and focus are polled before every
// character, so cancellation latency is bounded by one character's delay.
//
// An Engine runs one TypeText at a time; the caller serializes.
type Engine struct {
	wpm   int
	sink  Sink
	log   *logger.Logger
	sleep func(time.Duration)
	rng   *rand.Rand
}

// New creates a typing engine bound to a keystroke sink
func New(cfg Config, sink Sink, log *logger.Logger) *Engine {
	wpm := cfg.WPM
	if wpm <= 0 {
		wpm = DefaultConfig().WPM
	}

	return &Engine{
		wpm:   wpm,
		sink:  sink,
		log:   log.Named("typer"),
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CharDelay returns the base inter-character delay for the configured WPM
func (e *Engine) CharDelay() time.Duration {
	// 60 / (wpm * 5) seconds per character
	return time.Minute / time.Duration(e.wpm*5)
}

// TypeText emits text one character at a time and returns the number of
// characters emitted. Before each character it checks stop (a closed
// channel cancels) and checkFocus (false aborts); either exits early with
// the remainder untyped. Sink errors are logged per character and the
// sequence continues. Empty input is a no-op.
func (e *Engine) TypeText(text string, stop <-chan struct{}, checkFocus func() bool) int {
	if text == "" {
		return 0
	}

	base := e.CharDelay()
	nextBreather := e.intBetween(12, 28)
	sinceBreather := 0
	emitted := 0

	e.log.Info("typing started",
		logger.Int("chars", len([]rune(text))),
		logger.Duration("char_delay", base))

	for _, r := range text {
		if stopped(stop) {
			e.log.Info("typing cancelled", logger.Int("emitted", emitted))
			return emitted
		}

		if checkFocus != nil && !checkFocus() {
			e.log.Warn("target window lost focus, typing aborted",
				logger.Int("emitted", emitted))
			return emitted
		}

		if err := e.sink.TypeChar(r); err != nil {
			e.log.Error("keystroke failed, continuing",
				logger.String("char", string(r)), logger.Error(err))
		} else {
			emitted++
		}

		e.sleep(e.jittered(base))

		if strings.ContainsRune(sentenceEnders, r) {
			e.sleep(e.durationBetween(350*time.Millisecond, 700*time.Millisecond))
		}

		sinceBreather++
		if sinceBreather >= nextBreather {
			e.sleep(e.durationBetween(200*time.Millisecond, 500*time.Millisecond))
			sinceBreather = 0
			nextBreather = e.intBetween(12, 28)
		}
	}

	e.log.Info("typing finished", logger.Int("emitted", emitted))
	return emitted
}

// jittered applies ±30% jitter to the base delay
func (e *Engine) jittered(base time.Duration) time.Duration {
	factor := 0.7 + e.rng.Float64()*0.6
	return time.Duration(float64(base) * factor)
}

func (e *Engine) durationBetween(lo, hi time.Duration) time.Duration {
	return lo + time.Duration(e.rng.Int63n(int64(hi-lo)))
}

func (e *Engine) intBetween(lo, hi int) int {
	return lo + e.rng.Intn(hi-lo+1)
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
