package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/kozaktomas/face-attendance/internal/verification"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func init() {
	database.RegisterBackend("postgres", postgres.Open)
	database.RegisterBackend("mysql", mariadb.Open)
}

// storage is an opened backend plus what the web server needs to know about it.
type storage struct {
	backend  database.Backend
	name     string
	sessions middleware.SessionRepository
}

// openStorage connects the backend named by DATABASE_URL, or an in-memory
// store when memory is set.
func openStorage(cfg *config.Config, memory bool) (*storage, error) {
	if memory {
		fmt.Println("Using in-memory storage (data is lost on exit)")
		return &storage{backend: mock.NewMockStore(), name: "memory"}, nil
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required (or use --memory)")
	}

	scheme := database.Scheme(cfg.Database.URL)
	fmt.Printf("Connecting to %s database...\n", scheme)
	backend, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &storage{backend: backend, name: scheme}
	if pg, ok := backend.(*postgres.Backend); ok {
		s.sessions = pg.Sessions()
		fmt.Println("Session persistence enabled (PostgreSQL)")
	}
	return s, nil
}

// newNotifier returns nil when REDIS_ADDR is unset.
func newNotifier(cfg *config.Config) *notify.Redis {
	if cfg.Redis.Addr == "" {
		return nil
	}
	fmt.Printf("Publishing attendance events to redis %s (%s)\n", cfg.Redis.Addr, cfg.Redis.Key)
	return notify.NewRedis(cfg.Redis.Addr, cfg.Redis.Key)
}

// loadState wraps the backend in the configured persistence policy and
// performs the initial roster and log load.
func loadState(ctx context.Context, cfg *config.Config, backend database.Backend, notifier *notify.Redis) (*session.State, error) {
	guarded := database.NewGuarded(backend, backend, database.StrictnessFromConfig(cfg.Strictness))

	var state *session.State
	if notifier != nil {
		state = session.New(guarded, notifier)
	} else {
		state = session.New(guarded, nil)
	}

	if err := state.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading roster and logs: %w", err)
	}
	return state, nil
}

// newRecognizer builds the provider selected by RECOGNITION_PROVIDER.
func newRecognizer(ctx context.Context, cfg *config.Config) (ai.Recognizer, error) {
	switch cfg.Recognition.Provider {
	case "gemini", "":
		pricing := cfg.GetModelPricing(cfg.Gemini.Model).Standard
		return ai.NewGeminiRecognizer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Recognition.MaxImageSize,
			ai.RequestPricing{Input: pricing.Input, Output: pricing.Output})
	case "openai":
		pricing := cfg.GetModelPricing(cfg.OpenAI.Model).Standard
		return ai.NewOpenAIRecognizer(cfg.OpenAI.Token, cfg.OpenAI.Model, cfg.Recognition.MaxImageSize,
			ai.RequestPricing{Input: pricing.Input, Output: pricing.Output})
	default:
		return nil, fmt.Errorf("unknown recognition provider %q (use gemini or openai)", cfg.Recognition.Provider)
	}
}

// newVerifier builds the verification client around the configured provider.
func newVerifier(ctx context.Context, cfg *config.Config) (*verification.Client, ai.Recognizer, error) {
	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	return verification.NewClient(recognizer, cfg.Recognition.Timeout), recognizer, nil
}
