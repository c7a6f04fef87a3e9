package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/whispertype/whispertype/internal/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = 0 // random free port
	s := New(cfg, logger.NewNop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestStartServesSettingsPage(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL() + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "whispertype settings") {
		t.Error("Settings page does not contain the expected title")
	}
}

func TestStartTwiceFails(t *testing.T) {
	s := newTestServer(t)

	if err := s.Start(); err == nil {
		t.Error("Expected error starting an already running server")
	}
}

func TestStopIdempotent(t *testing.T) {
	s := newTestServer(t)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Second Stop returned error: %v", err)
	}
	if s.IsRunning() {
		t.Error("Expected server to not be running after Stop")
	}
}

func TestRouterMountsBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	s := New(cfg, logger.NewNop())
	s.Router().Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pong")
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	resp, err := http.Get(s.URL() + "/api/ping")
	if err != nil {
		t.Fatalf("GET /api/ping failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("Expected pong, got %q", string(body))
	}
}

func TestCORSLocalhostOnly(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, s.URL()+"/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected localhost origin allowed, got %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, s.URL()+"/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected remote origin rejected, got %q", got)
	}
}
