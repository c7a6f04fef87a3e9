package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// WriteTempWAV encodes float32 samples as a 16-bit PCM WAV file in the
// system temp directory and returns its path. The caller owns the file.
func WriteTempWAV(samples []float32, sampleRate, channels int) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("no samples to encode")
	}

	path := tempWAVPath()

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create wav file: %w", err)
	}

	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)

	intData := make([]int, len(samples))
	for i, s := range samples {
		// Clamp before scaling so clipped input stays within int16 range
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		intData[i] = int(s * 32767)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           intData,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to encode wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to finalize wav: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close wav file: %w", err)
	}

	return path, nil
}

// SamplesDuration returns the play time of a sample slice.
func SamplesDuration(samples []float32, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := len(samples) / channels
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

func tempWAVPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	name := fmt.Sprintf("whispertype_%s_%s.wav", time.Now().Format("20060102_150405"), id)
	return filepath.Join(os.TempDir(), name)
}
