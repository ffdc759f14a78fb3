package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

// Persistence policies applied by the store guard.
const (
	PolicyBestEffort = "best-effort"
	PolicyFatal      = "fatal"
)

type Config struct {
	Auth        AuthConfig
	Gemini      GeminiConfig
	OpenAI      OpenAIConfig
	Recognition RecognitionConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Strictness  StrictnessConfig
	Prices      PricesConfig
}

// AuthConfig holds the static gate credentials. There is no hashing and no expiry
// beyond the web session lifetime.
type AuthConfig struct {
	Email       string
	Password    string
	AdminSecret string
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
}

type OpenAIConfig struct {
	Token string
	Model string // defaults to gpt-4.1-mini
}

type RecognitionConfig struct {
	Provider     string        // "gemini" (default) or "openai"
	Timeout      time.Duration // upper bound for a single verification call
	MaxImageSize int           // max width/height sent to the provider, 0 disables resizing
}

type DatabaseConfig struct {
	URL          string // postgres://... or mysql://...
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RedisConfig struct {
	Addr string // empty disables event publishing
	Key  string // list key for recorded attendance events
}

// StrictnessConfig decides whether a failed write is surfaced (fatal) or
// logged and swallowed (best-effort), per entity.
type StrictnessConfig struct {
	Events     string
	Identities string
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("45s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envPolicy accepts only the two known policies; anything else falls back.
func envPolicy(key, defaultVal string) string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case PolicyBestEffort:
		return PolicyBestEffort
	case PolicyFatal:
		return PolicyFatal
	default:
		return defaultVal
	}
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		Auth: AuthConfig{
			Email:       os.Getenv("AUTH_EMAIL"),
			Password:    os.Getenv("AUTH_PASSWORD"),
			AdminSecret: os.Getenv("ADMIN_SECRET"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
			Model: envString("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Recognition: RecognitionConfig{
			Provider:     strings.ToLower(envString("RECOGNITION_PROVIDER", "gemini")),
			Timeout:      envDuration("RECOGNITION_TIMEOUT", 60*time.Second),
			MaxImageSize: envInt("RECOGNITION_MAX_IMAGE_SIZE", 800),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
			Key:  envString("REDIS_EVENTS_KEY", "attendance:events"),
		},
		Strictness: StrictnessConfig{
			Events:     envPolicy("STRICTNESS_EVENTS", PolicyBestEffort),
			Identities: envPolicy("STRICTNESS_IDENTITIES", PolicyFatal),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}

// GatesConfigured reports whether both the login pair and the admin secret are set.
// Without them nobody can pass the gates.
func (a *AuthConfig) GatesConfigured() bool {
	return a.Email != "" && a.Password != "" && a.AdminSecret != ""
}
