package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/whispertype/whispertype/internal/audio"
	"github.com/whispertype/whispertype/internal/config"
	"github.com/whispertype/whispertype/internal/history"
	"github.com/whispertype/whispertype/internal/logger"
)

// DeviceLister enumerates capture devices for the settings page
type DeviceLister interface {
	ListDevices() ([]audio.Device, error)
}

// HistoryReader serves stored transcripts
type HistoryReader interface {
	Recent(n int) ([]history.Entry, error)
}

// Handler serves the settings JSON API. The app owns the config; the handler
// reads it through the getter so tray-side changes show up immediately.
type Handler struct {
	config     func() *config.Config
	configPath string
	devices    DeviceLister
	store      HistoryReader // nil when history is disabled
	status     func() string
	reload     func(*config.Config) error
	log        *logger.Logger
}

// Options wires the handler's collaborators
type Options struct {
	// Config returns a copy of the current config on every call
	Config     func() *config.Config
	ConfigPath string
	Devices    DeviceLister
	Store      HistoryReader
	Status     func() string
	// Reload is called with the new config after a successful save so the
	// running app can pick up changed settings
	Reload func(*config.Config) error
}

// New creates the API handler
func New(opts Options, log *logger.Logger) *Handler {
	return &Handler{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		devices:    opts.Devices,
		store:      opts.Store,
		status:     opts.Status,
		reload:     opts.Reload,
		log:        log.Named("api"),
	}
}

// Mount registers all API routes on the router
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.handleGetConfig)
		r.Put("/config", h.handlePutConfig)
		r.Get("/devices", h.handleGetDevices)
		r.Get("/history", h.handleGetHistory)
		r.Get("/status", h.handleGetStatus)
	})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.config())
}

func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	// Full-config replace: decode onto a copy of the current config so
	// omitted fields keep their values
	updated := h.config()

	if err := json.NewDecoder(r.Body).Decode(updated); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid config JSON: %v", err))
		return
	}

	if err := updated.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := updated.Save(h.configPath); err != nil {
		h.log.Error("failed to save config", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	if h.reload != nil {
		if err := h.reload(updated.Clone()); err != nil {
			h.log.Error("config reload failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError,
				fmt.Sprintf("config saved but reload failed: %v", err))
			return
		}
	}

	h.log.Info("config updated", logger.String("path", h.configPath))
	respondJSON(w, http.StatusOK, updated)
}

type deviceResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func (h *Handler) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	if h.devices == nil {
		respondJSON(w, http.StatusOK, []deviceResponse{})
		return
	}

	devices, err := h.devices.ListDevices()
	if err != nil {
		h.log.Error("failed to list devices", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list audio devices")
		return
	}

	resp := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, deviceResponse{ID: d.ID, Name: d.Name, IsDefault: d.IsDefault})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondJSON(w, http.StatusOK, []history.Entry{})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := h.store.Recent(limit)
	if err != nil {
		h.log.Error("failed to read history", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	if h.status != nil {
		state = h.status()
	}
	respondJSON(w, http.StatusOK, map[string]string{"state": state})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
