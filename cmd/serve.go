package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.
The server hosts the capture kiosk, the sign-in and admin gates, the roster
and log screens, CSV export and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to random)")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.Auth.GatesConfigured() {
		fmt.Println("Warning: AUTH_EMAIL, AUTH_PASSWORD and ADMIN_SECRET are not all set; nobody can pass the gates")
	}

	store, err := openStorage(cfg, mustGetBool(cmd, "memory"))
	if err != nil {
		return err
	}
	defer store.backend.Close()

	notifier := newNotifier(cfg)
	if notifier != nil {
		defer notifier.Close()
	}

	state, err := loadState(ctx, cfg, store.backend, notifier)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d students and %d attendance records\n", len(state.Students()), len(state.Logs()))

	verifier, recognizer, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Recognition provider: %s (timeout %s)\n", recognizer.Name(), cfg.Recognition.Timeout)

	deps := web.Dependencies{
		State:    state,
		Verifier: verifier,
		Sessions: store.sessions,
		Storage:  store.name,
	}
	if notifier != nil {
		deps.Events = notifier
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, deps, port, host, sessionSecret)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
