package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/whispertype/whispertype/internal/logger"
)

// Server serves the local settings page and the JSON API. It binds to the
// loopback interface only; nothing here should be reachable from the
// network.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	listener   net.Listener
	log        *logger.Logger
	port       int
	mu         sync.Mutex
	running    bool
}

// Config holds server configuration
type Config struct {
	Port            int // 0 picks a random free port
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Port:            8765,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// New creates the server and its router. Mount API routes on Router()
// before calling Start.
func New(config Config, log *logger.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	s := &Server{
		router: r,
		log:    log.Named("server"),
		port:   config.Port,
	}
	s.httpServer = &http.Server{
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	r.Get("/", s.handleIndex)
	return s
}

// Router returns the router for mounting API handlers
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening on the loopback interface
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		s.log.Info("settings server listening",
			logger.String("url", fmt.Sprintf("http://127.0.0.1:%d", s.port)))
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("settings server failed", logger.Error(err))
		}
	}()

	s.running = true
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.running = false
	return nil
}

// Port returns the port the server is listening on
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the settings page URL
func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port())
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// corsMiddleware allows browser access from localhost origins only
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// indexHTML is a minimal settings page that talks to the JSON API. It is
// inlined so the binary stays a single file.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>whispertype settings</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; }
h1 { font-size: 1.4rem; }
label { display: block; margin-top: 0.8rem; }
input, select { margin-top: 0.2rem; padding: 0.3rem; width: 100%; box-sizing: border-box; }
button { margin-top: 1.2rem; padding: 0.5rem 1.5rem; }
#status { margin-top: 0.8rem; color: #2a7; }
#history { margin-top: 2rem; }
#history li { margin: 0.3rem 0; font-size: 0.9rem; }
</style>
</head>
<body>
<h1>whispertype settings</h1>
<form id="form">
<label>API key <input type="password" id="api_key"></label>
<label>Model <input type="text" id="model"></label>
<label>Language (empty = auto) <input type="text" id="language"></label>
<label>Typing speed (WPM) <input type="number" id="wpm" min="1" max="600"></label>
<label>Input device <select id="device"></select></label>
<button type="submit">Save</button>
</form>
<p id="status"></p>
<div id="history"><h2>Recent transcripts</h2><ul id="entries"></ul></div>
<script>
async function load() {
  const cfg = await (await fetch('/api/config')).json();
  api_key.value = cfg.transcription.api_key;
  model.value = cfg.transcription.model;
  language.value = cfg.transcription.language;
  wpm.value = cfg.typing.wpm;
  const devices = await (await fetch('/api/devices')).json();
  device.innerHTML = '<option value="-1">System default</option>';
  for (const d of devices) {
    const opt = document.createElement('option');
    opt.value = d.id;
    opt.textContent = d.name + (d.is_default ? ' (default)' : '');
    if (d.id === cfg.audio.device_id) opt.selected = true;
    device.appendChild(opt);
  }
  const entries = await (await fetch('/api/history')).json();
  for (const e of entries) {
    const li = document.createElement('li');
    li.textContent = e.text;
    document.getElementById('entries').appendChild(li);
  }
  window._cfg = cfg;
}
form.addEventListener('submit', async (ev) => {
  ev.preventDefault();
  const cfg = window._cfg;
  cfg.transcription.api_key = api_key.value;
  cfg.transcription.model = model.value;
  cfg.transcription.language = language.value;
  cfg.typing.wpm = parseInt(wpm.value, 10);
  cfg.audio.device_id = parseInt(device.value, 10);
  const resp = await fetch('/api/config', {
    method: 'PUT',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(cfg)
  });
  status.textContent = resp.ok ? 'Saved.' : 'Save failed: ' + (await resp.text());
});
load();
</script>
</body>
</html>`
