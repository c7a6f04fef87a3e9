package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/whispertype/whispertype/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndRecent(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Insert("first transcript", 1200*time.Millisecond, "whisper-1")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	id2, err := s.Insert("second transcript", 3*time.Second, "whisper-1")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("Expected increasing IDs, got %d then %d", id1, id2)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	// Newest first
	if entries[0].Text != "second transcript" {
		t.Errorf("Expected newest entry first, got %q", entries[0].Text)
	}
	if entries[0].DurationMs != 3000 {
		t.Errorf("Expected 3000ms duration, got %d", entries[0].DurationMs)
	}
	if entries[1].Model != "whisper-1" {
		t.Errorf("Expected model whisper-1, got %q", entries[1].Model)
	}
}

func TestRecentEmpty(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestRecentLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Insert("entry", time.Second, "whisper-1"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	entries, err := s.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Insert("entry", time.Second, "whisper-1"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	removed, err := s.Prune(2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 entries removed, got %d", removed)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries after prune, got %d", len(entries))
	}
}

func TestPruneNothingToRemove(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Insert("entry", time.Second, "whisper-1"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	removed, err := s.Prune(10)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected 0 entries removed, got %d", removed)
	}
}
