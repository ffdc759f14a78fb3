package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config  *config.Config
	storage string
}

// NewConfigHandler creates a new config handler. storage names the active
// backend ("postgres", "mysql" or "memory").
func NewConfigHandler(cfg *config.Config, storage string) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		storage: storage,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Providers      []ProviderInfo `json:"providers"`
	ActiveProvider string         `json:"active_provider"`
	Storage        string         `json:"storage"`
	EventsEnabled  bool           `json:"events_enabled"`
	GatesReady     bool           `json:"gates_ready"`
}

// ProviderInfo represents information about a recognition provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      "gemini",
			Model:     h.config.Gemini.Model,
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      "openai",
			Model:     h.config.OpenAI.Model,
			Available: h.config.OpenAI.Token != "",
		},
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Providers:      providers,
		ActiveProvider: h.config.Recognition.Provider,
		Storage:        h.storage,
		EventsEnabled:  h.config.Redis.Addr != "",
		GatesReady:     h.config.Auth.GatesConfigured(),
	})
}
