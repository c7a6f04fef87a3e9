package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/whispertype/whispertype/internal/logger"
)

func writeTestWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav data"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestNewOpenAIClientRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{}, logger.NewNop())
	if err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	c, err := NewOpenAIClient(Config{APIKey: "sk-test"}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if c.cfg.Model != "whisper-1" {
		t.Errorf("Expected default model whisper-1, got %q", c.cfg.Model)
	}
	if c.cfg.BaseURL != defaultBaseURL {
		t.Errorf("Expected default base URL, got %q", c.cfg.BaseURL)
	}
	if c.Name() != "whisper-1" {
		t.Errorf("Expected provider name whisper-1, got %q", c.Name())
	}
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotLanguage string
	var gotFile bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		_, _, err := r.FormFile("file")
		gotFile = err == nil

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  hello\n  world  "}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(Config{
		APIKey:   "sk-test",
		Language: "en",
		BaseURL:  server.URL,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	text, err := c.Transcribe(context.Background(), writeTestWAV(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if text != "hello world" {
		t.Errorf("Expected normalized text %q, got %q", "hello world", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("Expected model whisper-1, got %q", gotModel)
	}
	if gotLanguage != "en" {
		t.Errorf("Expected language en, got %q", gotLanguage)
	}
	if !gotFile {
		t.Error("Expected a file part in the upload")
	}
}

func TestTranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(Config{APIKey: "sk-bad", BaseURL: server.URL}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), writeTestWAV(t)); err == nil {
		t.Error("Expected error for 401 response")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	c, err := NewOpenAIClient(Config{APIKey: "sk-test"}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), "/nonexistent/audio.wav"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "too late"}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: server.URL}, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Transcribe(ctx, writeTestWAV(t)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello world"},
		{"  hello   world  ", "hello world"},
		{"hello\nworld", "hello world"},
		{"\t hello \n\n world \t", "hello world"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := normalizeWhitespace(tt.input); got != tt.expected {
			t.Errorf("normalizeWhitespace(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
