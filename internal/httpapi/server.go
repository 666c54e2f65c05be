// Package httpapi exposes the dashboard, auth, and settings endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/waveafterwave69/weather-app/internal/auth"
	"github.com/waveafterwave69/weather-app/internal/dashboard"
	"github.com/waveafterwave69/weather-app/internal/email"
	"github.com/waveafterwave69/weather-app/internal/realtime"
	"github.com/waveafterwave69/weather-app/internal/settings"
	"github.com/waveafterwave69/weather-app/internal/users"
	apperrors "github.com/waveafterwave69/weather-app/pkg/errors"
)

type Options struct {
	DefaultCity    string
	SearchDebounce time.Duration
}

type Server struct {
	logger   *slog.Logger
	users    *users.Repo
	auth     *auth.Service
	email    *email.Sender
	settings *settings.Store
	weather  dashboard.WeatherClient
	resolver dashboard.LocationResolver
	registry *dashboard.Registry
	hub      *realtime.Hub
	opts     Options
}

func NewServer(
	logger *slog.Logger,
	userRepo *users.Repo,
	authSvc *auth.Service,
	emailSender *email.Sender,
	settingsStore *settings.Store,
	weather dashboard.WeatherClient,
	resolver dashboard.LocationResolver,
	registry *dashboard.Registry,
	hub *realtime.Hub,
	opts Options,
) *Server {
	return &Server{
		logger:   logger,
		users:    userRepo,
		auth:     authSvc,
		email:    emailSender,
		settings: settingsStore,
		weather:  weather,
		resolver: resolver,
		registry: registry,
		hub:      hub,
		opts:     opts,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/verify-email", s.handleVerifyEmail)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.With(auth.Middleware(s.auth.PublicKey())).Get("/me", s.handleMe)
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Use(auth.Middleware(s.auth.PublicKey()))
		r.Get("/theme", s.handleGetTheme)
		r.Put("/theme", s.handleSetTheme)
	})

	r.Route("/api/weather/sessions", func(r chi.Router) {
		r.Use(auth.Middleware(s.auth.PublicKey()))
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/search", s.handleSearch)
			r.Post("/search/submit", s.handleSubmit)
			r.Post("/location/retry", s.handleRetryLocation)
			r.Get("/ws", s.handleSessionWS)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		apperrors.WriteError(w, appErr)
		return
	}
	s.logger.Error("request failed", "error", err)
	apperrors.WriteError(w, apperrors.InternalServerError("internal server error", err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return nil
}

// clientIP prefers the address rewritten by the RealIP middleware and
// falls back to the connection's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
