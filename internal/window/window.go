package window

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/whispertype/whispertype/internal/logger"
)

// FocusChecker remembers which window had focus when recording started and
// reports whether the same window still has it. Typing into whatever window
// happens to be focused later is worse than typing nothing.
//
// Capture runs on the hotkey path while StillFocused is polled from the
// typing goroutine, so target is mutex-guarded.
type FocusChecker struct {
	mu      sync.Mutex
	log     *logger.Logger
	titleFn func() string
	target  string
}

// New creates a focus checker backed by the OS window system
func New(log *logger.Logger) *FocusChecker {
	return &FocusChecker{
		log:     log.Named("window"),
		titleFn: func() string { return robotgo.GetTitle() },
	}
}

// Capture records the currently focused window as the typing target
func (f *FocusChecker) Capture() {
	title := f.titleFn()

	f.mu.Lock()
	f.target = title
	f.mu.Unlock()

	f.log.Debug("captured target window", logger.String("title", title))
}

// Target returns the captured window title, empty when none was captured
func (f *FocusChecker) Target() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

// StillFocused reports whether the captured window still has focus. With no
// captured target it always reports true, so focus checking is opt-in.
func (f *FocusChecker) StillFocused() bool {
	f.mu.Lock()
	target := f.target
	f.mu.Unlock()

	if target == "" {
		return true
	}

	current := f.titleFn()
	if current != target {
		f.log.Warn("focus moved away from target window",
			logger.String("target", target),
			logger.String("current", current))
		return false
	}
	return true
}

// Reset forgets the captured target
func (f *FocusChecker) Reset() {
	f.mu.Lock()
	f.target = ""
	f.mu.Unlock()
}
