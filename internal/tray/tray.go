package tray

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/getlantern/systray"

	"github.com/whispertype/whispertype/internal/logger"
)

// State represents the current dictation state shown in the tray
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StatePending // transcript ready, waiting for the type-confirm hotkey
)

// String returns the state name for logs and tooltips
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Manager manages the system tray icon and menu
type Manager struct {
	stateMutex      sync.RWMutex
	state           State
	log             *logger.Logger
	onReadyCallback func()
	onSettings      func()
	onRecordTest    func()
	onDeviceChange  func(deviceID int)
	onQuit          func()

	menuSettings      *systray.MenuItem
	menuDevices       *systray.MenuItem
	menuRecordTest    *systray.MenuItem
	menuQuit          *systray.MenuItem
	deviceMenuItems   []*systray.MenuItem
	deviceCancelFuncs []context.CancelFunc

	// Icon cache
	iconIdle       []byte
	iconRecording  []byte
	iconProcessing []byte
	iconPending    []byte
}

// Config holds tray manager configuration
type Config struct {
	OnReady        func() // Called once the systray loop is up
	OnSettings     func()
	OnRecordTest   func()
	OnDeviceChange func(deviceID int)
	OnQuit         func()
}

// NewManager creates a new tray manager
func NewManager(config Config, log *logger.Logger) *Manager {
	m := &Manager{
		state:           StateIdle,
		log:             log.Named("tray"),
		onReadyCallback: config.OnReady,
		onSettings:      config.OnSettings,
		onRecordTest:    config.OnRecordTest,
		onDeviceChange:  config.OnDeviceChange,
		onQuit:          config.OnQuit,
	}

	// Load icons once at initialization
	m.iconIdle = m.loadIconData("mic_idle.png", idleFallback())
	m.iconRecording = m.loadIconData("mic_recording.png", recordingFallback())
	m.iconProcessing = m.loadIconData("mic_processing.png", processingFallback())
	m.iconPending = m.loadIconData("mic_pending.png", m.iconProcessing)

	return m
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

func (m *Manager) onReady() {
	m.updateIcon()
	systray.SetTooltip("whispertype")

	m.menuSettings = systray.AddMenuItem("Open Settings...", "Open the settings page")
	m.menuDevices = systray.AddMenuItem("Input Device", "Select the capture device")
	m.menuRecordTest = systray.AddMenuItem("Record Test", "Run a short recording test")

	systray.AddSeparator()

	m.menuQuit = systray.AddMenuItem("Quit", "Quit whispertype")

	go m.handleMenuEvents()

	if m.onReadyCallback != nil {
		m.onReadyCallback()
	}
}

func (m *Manager) onExit() {
	for _, cancel := range m.deviceCancelFuncs {
		if cancel != nil {
			cancel()
		}
	}
}

func (m *Manager) handleMenuEvents() {
	for {
		select {
		case <-m.menuSettings.ClickedCh:
			if m.onSettings != nil {
				m.onSettings()
			}
		case <-m.menuRecordTest.ClickedCh:
			if m.onRecordTest != nil {
				m.onRecordTest()
			}
		case <-m.menuQuit.ClickedCh:
			if m.onQuit != nil {
				m.onQuit()
			}
			systray.Quit()
			return
		}
	}
}

// SetState updates the tray icon and tooltip for the given state
func (m *Manager) SetState(state State) {
	m.stateMutex.Lock()
	defer m.stateMutex.Unlock()
	m.state = state
	m.updateIcon()
}

// GetState returns the currently displayed state
func (m *Manager) GetState() State {
	m.stateMutex.RLock()
	defer m.stateMutex.RUnlock()
	return m.state
}

func (m *Manager) updateIcon() {
	switch m.state {
	case StateIdle:
		systray.SetIcon(m.iconIdle)
		systray.SetTooltip("whispertype: idle")
	case StateRecording:
		systray.SetIcon(m.iconRecording)
		systray.SetTooltip("whispertype: recording")
	case StateProcessing:
		systray.SetIcon(m.iconProcessing)
		systray.SetTooltip("whispertype: transcribing")
	case StatePending:
		systray.SetIcon(m.iconPending)
		systray.SetTooltip("whispertype: press the type hotkey to insert")
	}
}

// Device represents an audio device for the menu
type Device struct {
	ID        int
	Name      string
	IsDefault bool
	IsCurrent bool
}

// UpdateDeviceMenu replaces the device submenu with the given devices
func (m *Manager) UpdateDeviceMenu(devices []Device) {
	for _, cancel := range m.deviceCancelFuncs {
		if cancel != nil {
			cancel()
		}
	}
	m.deviceCancelFuncs = nil

	// systray cannot remove submenu items, only hide them
	for _, item := range m.deviceMenuItems {
		item.Hide()
	}
	m.deviceMenuItems = nil

	for _, device := range devices {
		prefix := ""
		if device.IsCurrent {
			prefix = "✓ "
		}
		tooltip := ""
		if device.IsDefault {
			tooltip = "System default device"
		}

		menuItem := m.menuDevices.AddSubMenuItem(prefix+device.Name, tooltip)
		m.deviceMenuItems = append(m.deviceMenuItems, menuItem)

		ctx, cancel := context.WithCancel(context.Background())
		m.deviceCancelFuncs = append(m.deviceCancelFuncs, cancel)

		go func(id int, item *systray.MenuItem, ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-item.ClickedCh:
					if m.onDeviceChange != nil {
						m.onDeviceChange(id)
					}
				}
			}
		}(device.ID, menuItem, ctx)
	}
}

// Quit quits the system tray
func (m *Manager) Quit() {
	systray.Quit()
}

// loadIconData loads an icon from assets/icon/ next to the executable,
// falling back to an embedded placeholder
func (m *Manager) loadIconData(filename string, fallback []byte) []byte {
	exe, err := os.Executable()
	if err != nil {
		m.log.Warn("could not resolve executable path", logger.Error(err))
		return fallback
	}

	iconPath := filepath.Join(filepath.Dir(exe), "assets", "icon", filename)
	data, err := os.ReadFile(iconPath)
	if err != nil {
		m.log.Debug("icon file not found, using fallback",
			logger.String("path", iconPath))
		return fallback
	}
	return data
}

// idleFallback returns a minimal placeholder PNG for the idle state
func idleFallback() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff,
		0x61, 0x00, 0x00, 0x00, 0x18, 0x49, 0x44, 0x41,
		0x54, 0x78, 0xda, 0x62, 0xfc, 0xff, 0xff, 0x3f,
		0x03, 0x00, 0x00, 0x00, 0xff, 0xff, 0x03, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
		0xae, 0x42, 0x60, 0x82,
	}
}

// recordingFallback returns a minimal placeholder PNG for the recording state
func recordingFallback() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff,
		0x61, 0x00, 0x00, 0x00, 0x20, 0x49, 0x44, 0x41,
		0x54, 0x78, 0xda, 0x62, 0xfc, 0xcf, 0xc0, 0xc0,
		0xc0, 0xf0, 0x9f, 0x81, 0x81, 0x81, 0x81, 0xff,
		0x19, 0x18, 0x18, 0x18, 0x00, 0x00, 0x00, 0x00,
		0xff, 0xff, 0x03, 0x00, 0x0c, 0x10, 0x02, 0x01,
		0x8b, 0xd5, 0xf8, 0x23, 0x00, 0x00, 0x00, 0x00,
		0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}
}

// processingFallback returns a minimal placeholder PNG for the processing state
func processingFallback() []byte {
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff,
		0x61, 0x00, 0x00, 0x00, 0x20, 0x49, 0x44, 0x41,
		0x54, 0x78, 0xda, 0x62, 0xfc, 0xcf, 0xf0, 0x9f,
		0xc1, 0xc8, 0xc0, 0xc0, 0xc0, 0xff, 0x0c, 0x0c,
		0x0c, 0xfc, 0xcf, 0xc0, 0xc0, 0xc0, 0x00, 0x00,
		0x00, 0x00, 0xff, 0xff, 0x03, 0x00, 0x0c, 0x50,
		0x02, 0x01, 0x3e, 0x0a, 0xe4, 0x5b, 0x00, 0x00,
		0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42,
		0x60, 0x82,
	}
}
