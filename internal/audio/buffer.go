package audio

import (
	"sync"
)

// Buffer accumulates capture chunks from the audio callback. Append runs on
// the callback goroutine, Drain on the recorder's goroutine; the mutex is
// the only guard between them.
type Buffer struct {
	mu      sync.Mutex
	chunks  [][]float32
	samples int
}

// NewBuffer creates an empty chunk buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append copies chunk into the buffer. The copy matters: PortAudio reuses
// its callback slices, so the stored chunk must be immutable after append.
func (b *Buffer) Append(chunk []float32) {
	if len(chunk) == 0 {
		return
	}

	c := make([]float32, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.samples += len(c)
	b.mu.Unlock()
}

// Drain concatenates all chunks in append order, consumes the buffer, and
// returns the samples. ok is false when nothing was buffered; an empty
// buffer never yields an empty-but-present slice.
func (b *Buffer) Drain() ([]float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.samples == 0 {
		return nil, false
	}

	out := make([]float32, 0, b.samples)
	for _, c := range b.chunks {
		out = append(out, c...)
	}

	b.chunks = nil
	b.samples = 0

	return out, true
}

// Reset discards all buffered chunks.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.samples = 0
	b.mu.Unlock()
}

// Len returns the total number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples
}

// Chunks returns the number of buffered chunks.
func (b *Buffer) Chunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}
