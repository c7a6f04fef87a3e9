package transcription

import (
	"context"
)

// Transcriber converts a recorded WAV file to text
type Transcriber interface {
	// Transcribe sends the WAV file at wavPath and returns the recognized
	// text with whitespace normalized
	Transcribe(ctx context.Context, wavPath string) (string, error)

	// Name identifies the provider for logs and history entries
	Name() string

	// Close releases provider resources
	Close() error
}
