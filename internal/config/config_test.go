package config

import (
	"testing"
	"time"
)

func TestGetModelPricing_GeminiModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gemini-2.5-flash")

	if pricing.Standard.Input != 0.30 {
		t.Errorf("expected gemini standard input 0.30, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 2.50 {
		t.Errorf("expected gemini standard output 2.50, got %f", pricing.Standard.Output)
	}
}

func TestGetModelPricing_KnownOpenAIModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gpt-4.1-mini")

	if pricing.Standard.Input != 0.40 {
		t.Errorf("expected standard input price 0.40, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 1.60 {
		t.Errorf("expected standard output price 1.60, got %f", pricing.Standard.Output)
	}
}

func TestGetModelPricing_UnknownModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("unknown-model-xyz")

	// Unknown model should return zero pricing
	if pricing.Standard.Input != 0 || pricing.Standard.Output != 0 {
		t.Errorf("expected zero pricing for unknown model, got input=%f output=%f",
			pricing.Standard.Input, pricing.Standard.Output)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"RECOGNITION_PROVIDER", "RECOGNITION_TIMEOUT", "RECOGNITION_MAX_IMAGE_SIZE",
		"GEMINI_MODEL", "STRICTNESS_EVENTS", "STRICTNESS_IDENTITIES", "REDIS_EVENTS_KEY",
		"DATABASE_MAX_OPEN_CONNS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Recognition.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got '%s'", cfg.Recognition.Provider)
	}
	if cfg.Recognition.Timeout != 60*time.Second {
		t.Errorf("expected timeout 60s, got %s", cfg.Recognition.Timeout)
	}
	if cfg.Recognition.MaxImageSize != 800 {
		t.Errorf("expected max image size 800, got %d", cfg.Recognition.MaxImageSize)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("expected gemini model 'gemini-2.5-flash', got '%s'", cfg.Gemini.Model)
	}
	if cfg.Strictness.Events != PolicyBestEffort {
		t.Errorf("expected events policy %q, got %q", PolicyBestEffort, cfg.Strictness.Events)
	}
	if cfg.Strictness.Identities != PolicyFatal {
		t.Errorf("expected identities policy %q, got %q", PolicyFatal, cfg.Strictness.Identities)
	}
	if cfg.Redis.Key != "attendance:events" {
		t.Errorf("expected redis key 'attendance:events', got '%s'", cfg.Redis.Key)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_RecognitionOverrides(t *testing.T) {
	t.Setenv("RECOGNITION_PROVIDER", "OpenAI")
	t.Setenv("RECOGNITION_TIMEOUT", "15s")
	t.Setenv("RECOGNITION_MAX_IMAGE_SIZE", "0")

	cfg := Load()

	if cfg.Recognition.Provider != "openai" {
		t.Errorf("expected provider to be lowercased to 'openai', got '%s'", cfg.Recognition.Provider)
	}
	if cfg.Recognition.Timeout != 15*time.Second {
		t.Errorf("expected timeout 15s, got %s", cfg.Recognition.Timeout)
	}
	if cfg.Recognition.MaxImageSize != 0 {
		t.Errorf("expected resizing disabled (0), got %d", cfg.Recognition.MaxImageSize)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{"invalid timeout", "RECOGNITION_TIMEOUT", "soon", func(c *Config) bool { return c.Recognition.Timeout == 60*time.Second }},
		{"negative timeout", "RECOGNITION_TIMEOUT", "-5s", func(c *Config) bool { return c.Recognition.Timeout == 60*time.Second }},
		{"invalid image size", "RECOGNITION_MAX_IMAGE_SIZE", "big", func(c *Config) bool { return c.Recognition.MaxImageSize == 800 }},
		{"negative image size", "RECOGNITION_MAX_IMAGE_SIZE", "-1", func(c *Config) bool { return c.Recognition.MaxImageSize == 800 }},
		{"unknown events policy", "STRICTNESS_EVENTS", "sometimes", func(c *Config) bool { return c.Strictness.Events == PolicyBestEffort }},
		{"unknown identities policy", "STRICTNESS_IDENTITIES", "maybe", func(c *Config) bool { return c.Strictness.Identities == PolicyFatal }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(Load()) {
				t.Errorf("expected fallback for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_StrictnessOverrides(t *testing.T) {
	t.Setenv("STRICTNESS_EVENTS", "FATAL")
	t.Setenv("STRICTNESS_IDENTITIES", " best-effort ")

	cfg := Load()

	if cfg.Strictness.Events != PolicyFatal {
		t.Errorf("expected events policy fatal, got %q", cfg.Strictness.Events)
	}
	if cfg.Strictness.Identities != PolicyBestEffort {
		t.Errorf("expected identities policy best-effort, got %q", cfg.Strictness.Identities)
	}
}

func TestLoad_AuthConfig(t *testing.T) {
	t.Setenv("AUTH_EMAIL", "teacher@school.edu")
	t.Setenv("AUTH_PASSWORD", "s3cret")
	t.Setenv("ADMIN_SECRET", "FACE")

	cfg := Load()

	if cfg.Auth.Email != "teacher@school.edu" {
		t.Errorf("expected email 'teacher@school.edu', got '%s'", cfg.Auth.Email)
	}
	if cfg.Auth.Password != "s3cret" {
		t.Errorf("expected password 's3cret', got '%s'", cfg.Auth.Password)
	}
	if !cfg.Auth.GatesConfigured() {
		t.Error("expected gates to be configured")
	}
}

func TestAuthConfig_GatesConfigured_Missing(t *testing.T) {
	tests := []struct {
		name string
		auth AuthConfig
	}{
		{"missing email", AuthConfig{Password: "p", AdminSecret: "s"}},
		{"missing password", AuthConfig{Email: "e", AdminSecret: "s"}},
		{"missing admin secret", AuthConfig{Email: "e", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.auth.GatesConfigured() {
				t.Error("expected gates not to be configured")
			}
		})
	}
}

func TestLoad_PricesLoaded(t *testing.T) {
	cfg := Load()

	for _, model := range []string{"gpt-4.1-mini", "gemini-2.5-flash"} {
		if _, ok := cfg.Prices.Models[model]; !ok {
			t.Errorf("expected model '%s' to be in prices", model)
		}
	}
}
