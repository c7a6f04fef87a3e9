package audio

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Config holds audio capture configuration
type Config struct {
	DeviceID   int
	SampleRate int
	Channels   int
	Latency    LatencyMode
}

// DefaultConfig returns the default audio configuration
// Sample rate: 16kHz (what speech models expect)
// Channels: 1 (mono)
func DefaultConfig() Config {
	return Config{
		DeviceID:   -1, // -1 means use default device
		SampleRate: 16000,
		Channels:   1,
		Latency:    HighStability,
	}
}

// Driver is the interface for audio input. The capture callback appends one
// immutable chunk per invocation to the Buffer handed to Start.
type Driver interface {
	// ListDevices returns a list of available audio input devices
	ListDevices() ([]Device, error)

	// Initialize opens the capture stream for the given configuration
	Initialize(config Config) error

	// Start begins capture, appending chunks to dst until Stop
	Start(dst *Buffer) error

	// Stop halts capture; buffered chunks stay in the Buffer
	Stop() error

	// Close releases all resources
	Close() error
}
