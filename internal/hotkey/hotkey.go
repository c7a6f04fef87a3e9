package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/whispertype/whispertype/internal/logger"
)

// Mode defines how a hotkey drives its action
type Mode int

const (
	// Toggle mode: first press starts, second press stops
	Toggle Mode = iota
	// PressToHold mode: active while the key is held down
	PressToHold
)

// EventType represents the type of hotkey event
type EventType int

const (
	// Pressed indicates the action should start (or fire)
	Pressed EventType = iota
	// Released indicates the action should stop
	Released
)

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Config holds a single hotkey binding
type Config struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
	Mode      Mode
}

// DefaultRecordConfig returns the default recording hotkey (F8, toggle)
func DefaultRecordConfig() Config {
	return Config{Key: hotkey.KeyF8, Mode: Toggle}
}

// DefaultTypeConfig returns the default type-confirm hotkey (F9)
func DefaultTypeConfig() Config {
	return Config{Key: hotkey.KeyF9, Mode: Toggle}
}

// Manager registers one global hotkey and translates key events into
// Pressed/Released events according to the configured mode
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	log       *logger.Logger
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates an unregistered hotkey manager
func New(config Config, log *logger.Logger) *Manager {
	return &Manager{
		config:    config,
		log:       log.Named("hotkey"),
		eventChan: make(chan Event, 10),
		stopChan:  make(chan struct{}),
	}
}

// Register registers the hotkey with the system and starts listening
func (m *Manager) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkey is already registered, call Close() first")
	}

	// Recreate channels (they may have been closed by a previous Close())
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 10)

	hk := hotkey.New(m.config.Modifiers, m.config.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w",
			Format(m.config.Modifiers, m.config.Key), err)
	}

	m.hk = hk
	m.running = true

	m.wg.Add(1)
	go m.listen()

	m.log.Info("hotkey registered",
		logger.String("binding", Format(m.config.Modifiers, m.config.Key)))
	return nil
}

// listen converts raw keydown/keyup into mode-appropriate events
func (m *Manager) listen() {
	defer m.wg.Done()

	toggled := false

	for {
		select {
		case <-m.hk.Keydown():
			switch m.config.Mode {
			case PressToHold:
				m.eventChan <- Event{Type: Pressed}
			case Toggle:
				if !toggled {
					m.eventChan <- Event{Type: Pressed}
					toggled = true
				} else {
					m.eventChan <- Event{Type: Released}
					toggled = false
				}
			}

		case <-m.hk.Keyup():
			if m.config.Mode == PressToHold {
				m.eventChan <- Event{Type: Released}
			}

		case <-m.stopChan:
			return
		}
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	return m.eventChan
}

// Config returns a copy of the binding, with the modifier slice duplicated
// so callers cannot mutate the Manager's state
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.config
	if m.config.Modifiers != nil {
		cfg.Modifiers = make([]hotkey.Modifier, len(m.config.Modifiers))
		copy(cfg.Modifiers, m.config.Modifiers)
	}
	return cfg
}

// Close unregisters the hotkey and stops listening
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	var unregisterErr error

	close(m.stopChan)
	m.wg.Wait()

	// Continue cleanup even when unregistration fails, so a later
	// Register() stays possible
	if m.hk != nil {
		if err := m.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
	}

	if m.eventChan != nil {
		close(m.eventChan)
		m.eventChan = nil
	}

	m.running = false
	return unregisterErr
}

// IsRunning returns whether the hotkey is currently registered
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
