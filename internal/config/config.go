package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration
type Config struct {
	Hotkeys       HotkeysConfig       `toml:"hotkeys" json:"hotkeys"`
	Audio         AudioConfig         `toml:"audio" json:"audio"`
	Transcription TranscriptionConfig `toml:"transcription" json:"transcription"`
	Typing        TypingConfig        `toml:"typing" json:"typing"`
	History       HistoryConfig       `toml:"history" json:"history"`
	Notifications NotificationsConfig `toml:"notifications" json:"notifications"`
	Server        ServerConfig        `toml:"server" json:"server"`
	Log           LogConfig           `toml:"log" json:"log"`

	mu sync.RWMutex `toml:"-" json:"-"`
}

// Binding describes one hotkey combination
type Binding struct {
	Ctrl  bool   `toml:"ctrl" json:"ctrl"`
	Shift bool   `toml:"shift" json:"shift"`
	Alt   bool   `toml:"alt" json:"alt"`
	Cmd   bool   `toml:"cmd" json:"cmd"`
	Key   string `toml:"key" json:"key"`
}

// HotkeysConfig holds the two global bindings: Record toggles capture,
// Type confirms insertion of the pending transcript
type HotkeysConfig struct {
	Record Binding `toml:"record" json:"record"`
	Type   Binding `toml:"type" json:"type"`
}

// AudioConfig holds capture configuration
type AudioConfig struct {
	DeviceID         int `toml:"device_id" json:"device_id"` // -1 for system default
	SampleRate       int `toml:"sample_rate" json:"sample_rate"`
	Channels         int `toml:"channels" json:"channels"`
	MaxRecordSeconds int `toml:"max_record_seconds" json:"max_record_seconds"`
}

// TranscriptionConfig holds speech-to-text provider configuration
type TranscriptionConfig struct {
	APIKey         string `toml:"api_key" json:"api_key"`
	Model          string `toml:"model" json:"model"`
	Language       string `toml:"language" json:"language"` // empty for auto-detect
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

// TypingConfig holds keystroke pacing configuration
type TypingConfig struct {
	WPM int `toml:"wpm" json:"wpm"`
}

// HistoryConfig holds transcript history configuration
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
	Keep    int    `toml:"keep" json:"keep"`
}

// NotificationsConfig holds desktop notification configuration
type NotificationsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

// ServerConfig holds the local settings server configuration
type ServerConfig struct {
	Port int `toml:"port" json:"port"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Dir   string `toml:"dir" json:"dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			Record: Binding{Key: "F8"},
			Type:   Binding{Key: "F9"},
		},
		Audio: AudioConfig{
			DeviceID:         -1,
			SampleRate:       16000,
			Channels:         1,
			MaxRecordSeconds: 60,
		},
		Transcription: TranscriptionConfig{
			Model:          "whisper-1",
			Language:       "",
			TimeoutSeconds: 30,
		},
		Typing: TypingConfig{
			WPM: 40,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "~/.whispertype/history.db",
			Keep:    200,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Port: 8765,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default configuration file path
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".whispertype", "config.toml")
}

// Load loads configuration from the given path. A missing file yields the
// defaults so first run works without setup.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path, creating the parent
// directory as needed
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Hotkeys.Record.Key == "" {
		return fmt.Errorf("hotkeys.record.key cannot be empty")
	}
	if c.Hotkeys.Type.Key == "" {
		return fmt.Errorf("hotkeys.type.key cannot be empty")
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid audio.sample_rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("invalid audio.channels: %d (must be 1 or 2)", c.Audio.Channels)
	}
	if c.Audio.MaxRecordSeconds <= 0 || c.Audio.MaxRecordSeconds > 300 {
		return fmt.Errorf("invalid audio.max_record_seconds: %d (must be between 1 and 300)", c.Audio.MaxRecordSeconds)
	}

	if c.Transcription.Model == "" {
		return fmt.Errorf("transcription.model cannot be empty")
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid transcription.timeout_seconds: %d", c.Transcription.TimeoutSeconds)
	}

	if c.Typing.WPM <= 0 || c.Typing.WPM > 600 {
		return fmt.Errorf("invalid typing.wpm: %d (must be between 1 and 600)", c.Typing.WPM)
	}

	if c.History.Enabled && c.History.Keep <= 0 {
		return fmt.Errorf("invalid history.keep: %d", c.History.Keep)
	}

	if c.Server.Port < 1024 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be between 1024 and 65535)", c.Server.Port)
	}

	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Hotkeys:       c.Hotkeys,
		Audio:         c.Audio,
		Transcription: c.Transcription,
		Typing:        c.Typing,
		History:       c.History,
		Notifications: c.Notifications,
		Server:        c.Server,
		Log:           c.Log,
	}
}

// HistoryPath returns the expanded history database path
func (c *Config) HistoryPath() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandPath(c.History.Path)
}

// ExpandPath expands a leading ~ to the home directory and makes the path
// absolute
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}
