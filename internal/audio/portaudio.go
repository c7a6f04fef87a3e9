package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDriver implements Driver using PortAudio
type PortAudioDriver struct {
	config      Config
	stream      *portaudio.Stream
	dst         *Buffer
	mu          sync.Mutex
	capturing   bool
	initialized bool
}

// NewPortAudioDriver creates a new PortAudio driver
func NewPortAudioDriver() (*PortAudioDriver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PortAudioDriver{}, nil
}

// ListDevices returns a list of available audio input devices
func (d *PortAudioDriver) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		// No default available, continue without marking one
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		if dev.MaxInputChannels > 0 {
			isDefault := defaultInput != nil && dev.Name == defaultInput.Name
			result = append(result, Device{
				ID:        i,
				Name:      dev.Name,
				IsDefault: isDefault,
			})
		}
	}

	return result, nil
}

// Initialize opens the capture stream for the given configuration
func (d *PortAudioDriver) Initialize(config Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capturing {
		return fmt.Errorf("cannot initialize while capturing")
	}

	// Close existing stream if any
	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			return fmt.Errorf("failed to close existing stream: %w", err)
		}
		d.stream = nil
	}

	device, err := d.selectDevice(config.DeviceID)
	if err != nil {
		return err
	}

	if device.MaxInputChannels <= 0 {
		return fmt.Errorf("selected device %q (ID: %d) has no input channels",
			device.Name, config.DeviceID)
	}

	var latency time.Duration
	switch config.Latency {
	case LowLatency:
		latency = device.DefaultLowInputLatency
	default:
		latency = device.DefaultHighInputLatency
	}

	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: config.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(config.SampleRate),
		FramesPerBuffer: 1024,
	}

	stream, err := portaudio.OpenStream(streamParams, d.callback)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	d.stream = stream
	d.config = config
	d.initialized = true

	return nil
}

// selectDevice resolves a device ID to a PortAudio device. ID -1 means the
// system default input.
func (d *PortAudioDriver) selectDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == -1 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}

	return devices[deviceID], nil
}

// callback is invoked by PortAudio once per audio block
func (d *PortAudioDriver) callback(in []float32) {
	d.mu.Lock()
	dst := d.dst
	capturing := d.capturing
	d.mu.Unlock()

	if capturing && dst != nil {
		dst.Append(in)
	}
}

// Start begins capture, appending chunks to dst until Stop
func (d *PortAudioDriver) Start(dst *Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("driver not initialized")
	}

	if d.capturing {
		return fmt.Errorf("already capturing")
	}

	if dst == nil {
		return fmt.Errorf("nil destination buffer")
	}

	d.dst = dst

	if err := d.stream.Start(); err != nil {
		d.dst = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}

	d.capturing = true
	return nil
}

// Stop halts capture; buffered chunks stay in the Buffer
func (d *PortAudioDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.capturing {
		return fmt.Errorf("not capturing")
	}

	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}

	d.capturing = false
	d.dst = nil

	return nil
}

// Close releases all resources
func (d *PortAudioDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capturing {
		if err := d.stream.Stop(); err != nil {
			return fmt.Errorf("failed to stop stream: %w", err)
		}
		d.capturing = false
		d.dst = nil
	}

	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			return fmt.Errorf("failed to close stream: %w", err)
		}
		d.stream = nil
	}

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}

	d.initialized = false
	return nil
}
