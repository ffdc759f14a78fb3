package web

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	adminHandler := handlers.NewAdminHandler(s.config, sessionManager)
	captureHandler := handlers.NewCaptureHandler(s.deps.Verifier, s.deps.State)
	studentsHandler := handlers.NewStudentsHandler(s.deps.State)
	logsHandler := handlers.NewLogsHandler(s.deps.State)
	dashboardHandler := handlers.NewDashboardHandler(s.deps.State)
	configHandler := handlers.NewConfigHandler(s.config, s.deps.Storage)
	healthHandler := handlers.NewHealthHandler(s.deps.Events)

	// A signed out browser starts its next attempt from scratch
	authHandler.OnLogout(captureHandler.Release)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", healthHandler.Get)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Everything else requires a signed-in browser
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			r.Get("/config", configHandler.Get)

			r.Post("/admin/login", adminHandler.Login)
			r.Post("/admin/logout", adminHandler.Logout)

			// Attendance portal
			r.Get("/capture", captureHandler.Get)
			r.Put("/capture/subject", captureHandler.SetSubject)
			r.Post("/capture/start", captureHandler.Start)
			r.Post("/capture/cancel", captureHandler.Cancel)
			r.Post("/capture/frame", captureHandler.Frame)
			r.Post("/capture/retake", captureHandler.Retake)
			r.Post("/capture/confirm", captureHandler.Confirm)
			r.Post("/capture/retry", captureHandler.Retry)
			r.Post("/capture/reset", captureHandler.Reset)

			// Admin area
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/dashboard", dashboardHandler.Get)
				r.Post("/dashboard/reload", dashboardHandler.Reload)

				r.Get("/students", studentsHandler.List)
				r.Post("/students", studentsHandler.Create)
				r.Get("/students/{id}", studentsHandler.Get)
				r.Delete("/students/{id}", studentsHandler.Delete)

				r.Get("/logs", logsHandler.List)
				r.Get("/logs/export", logsHandler.Export)
			})
		})
	})

	// Serve the embedded kiosk
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the embedded kiosk, falling back to index.html for
// client-side routes.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if !static.HasIndex() {
		http.NotFound(w, r)
		return
	}

	fs := static.GetFileSystem()
	name := r.URL.Path
	if name == "/" {
		name = "/index.html"
	}

	if f, err := fs.Open(name); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType := mime.TypeByExtension(path.Ext(name))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)

			// Add cache headers for static assets
			if strings.HasPrefix(name, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}

			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// Unknown assets are real 404s; anything else is a client-side route
	if strings.HasPrefix(name, "/assets/") {
		http.NotFound(w, r)
		return
	}

	index, err := fs.Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer index.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, index)
}
