package audio

import (
	"sync"
	"testing"
)

func TestDrainEmpty(t *testing.T) {
	buf := NewBuffer()

	data, ok := buf.Drain()
	if ok {
		t.Error("Drain on empty buffer should report absent")
	}
	if data != nil {
		t.Errorf("Drain on empty buffer should return nil, got %v", data)
	}
}

func TestAppendDrainOrder(t *testing.T) {
	buf := NewBuffer()

	buf.Append([]float32{1, 2})
	buf.Append([]float32{3})
	buf.Append([]float32{4, 5, 6})

	if buf.Chunks() != 3 {
		t.Errorf("Expected 3 chunks, got %d", buf.Chunks())
	}
	if buf.Len() != 6 {
		t.Errorf("Expected 6 samples, got %d", buf.Len())
	}

	data, ok := buf.Drain()
	if !ok {
		t.Fatal("Drain should report present")
	}

	want := []float32{1, 2, 3, 4, 5, 6}
	if len(data) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(data))
	}
	for i, v := range want {
		if data[i] != v {
			t.Errorf("Sample %d: expected %v, got %v", i, v, data[i])
		}
	}
}

func TestDrainConsumes(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]float32{1, 2, 3})

	if _, ok := buf.Drain(); !ok {
		t.Fatal("First drain should report present")
	}

	if _, ok := buf.Drain(); ok {
		t.Error("Second drain should report absent")
	}
	if buf.Len() != 0 {
		t.Errorf("Expected 0 samples after drain, got %d", buf.Len())
	}
}

func TestAppendCopiesChunk(t *testing.T) {
	buf := NewBuffer()

	chunk := []float32{1, 1, 1}
	buf.Append(chunk)

	// The callback reuses its slice; mutation must not reach the buffer.
	chunk[0] = 9

	data, _ := buf.Drain()
	if data[0] != 1 {
		t.Errorf("Buffer aliased the callback slice: got %v", data[0])
	}
}

func TestAppendEmptyChunk(t *testing.T) {
	buf := NewBuffer()
	buf.Append(nil)
	buf.Append([]float32{})

	if _, ok := buf.Drain(); ok {
		t.Error("Empty chunks should not make the buffer present")
	}
}

func TestReset(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]float32{1, 2, 3})
	buf.Reset()

	if _, ok := buf.Drain(); ok {
		t.Error("Drain after Reset should report absent")
	}
}

func TestConcurrentAppend(t *testing.T) {
	buf := NewBuffer()

	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunk := []float32{0.5, -0.5}
			for j := 0; j < perWriter; j++ {
				buf.Append(chunk)
				_ = buf.Len()
			}
		}()
	}
	wg.Wait()

	data, ok := buf.Drain()
	if !ok {
		t.Fatal("Expected buffered samples after concurrent appends")
	}

	if len(data) != writers*perWriter*2 {
		t.Errorf("Expected %d samples, got %d", writers*perWriter*2, len(data))
	}
}
