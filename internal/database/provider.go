package database

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Opener connects a backend for the given database config.
type Opener func(cfg *config.DatabaseConfig) (Backend, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a backend constructor for a URL scheme ("postgres", "mysql").
// This is called from cmd to avoid import cycles between database and its implementations.
func RegisterBackend(scheme string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[scheme] = open
}

// IsRegistered returns whether a backend is registered for the scheme.
func IsRegistered(scheme string) bool {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	_, ok := backends[scheme]
	return ok
}

// Scheme extracts the backend scheme from a database URL.
// "postgresql" is treated as an alias of "postgres".
func Scheme(url string) string {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return ""
	}
	scheme = strings.ToLower(scheme)
	if scheme == "postgresql" {
		return "postgres"
	}
	return scheme
}

// Open connects the backend registered for the scheme of cfg.URL.
func Open(cfg *config.DatabaseConfig) (Backend, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	scheme := Scheme(cfg.URL)

	backendsMu.RLock()
	open, ok := backends[scheme]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no database backend registered for scheme %q", scheme)
	}

	backend, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", scheme, err)
	}
	return backend, nil
}
