package audio

import (
	"os"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func TestWriteTempWAVEmpty(t *testing.T) {
	if _, err := WriteTempWAV(nil, 16000, 1); err == nil {
		t.Error("Expected error for empty sample slice")
	}
}

func TestWriteTempWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1, 2, -2}

	path, err := WriteTempWAV(samples, 16000, 1)
	if err != nil {
		t.Fatalf("WriteTempWAV failed: %v", err)
	}
	defer os.Remove(path)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open wav: %v", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("Failed to decode wav: %v", err)
	}

	if buf.Format.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", buf.Format.SampleRate)
	}
	if buf.Format.NumChannels != 1 {
		t.Errorf("Expected 1 channel, got %d", buf.Format.NumChannels)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(buf.Data))
	}

	if buf.Data[0] != 0 {
		t.Errorf("Expected first sample 0, got %d", buf.Data[0])
	}

	// Out-of-range input must clamp, not wrap
	if buf.Data[5] != 32767 {
		t.Errorf("Expected clamped max 32767, got %d", buf.Data[5])
	}
	if buf.Data[6] != -32767 {
		t.Errorf("Expected clamped min -32767, got %d", buf.Data[6])
	}
}

func TestSamplesDuration(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		sampleRate int
		channels   int
		want       time.Duration
	}{
		{"one second mono", 16000, 16000, 1, time.Second},
		{"half second mono", 8000, 16000, 1, 500 * time.Millisecond},
		{"one second stereo", 32000, 16000, 2, time.Second},
		{"zero rate", 16000, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SamplesDuration(make([]float32, tt.samples), tt.sampleRate, tt.channels)
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
