package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/waveafterwave69/weather-app/internal/auth"
	"github.com/waveafterwave69/weather-app/internal/config"
	"github.com/waveafterwave69/weather-app/internal/dashboard"
	"github.com/waveafterwave69/weather-app/internal/email"
	"github.com/waveafterwave69/weather-app/internal/geoloc"
	"github.com/waveafterwave69/weather-app/internal/httpapi"
	"github.com/waveafterwave69/weather-app/internal/models"
	"github.com/waveafterwave69/weather-app/internal/observability"
	"github.com/waveafterwave69/weather-app/internal/owm"
	"github.com/waveafterwave69/weather-app/internal/realtime"
	"github.com/waveafterwave69/weather-app/internal/settings"
	"github.com/waveafterwave69/weather-app/internal/users"
)

const serviceName = "weather-app"

func main() {
	configPath := flag.String("config", "", "path to yaml config (optional, env vars always apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	shutdownObs, promHandler, tracer := observability.SetupObservability(serviceName)
	defer shutdownObs()

	privateKey, err := auth.LoadRSAPrivateKey(cfg.JWTPrivateKeyPath)
	if err != nil {
		slog.Error("failed to load jwt private key", "path", cfg.JWTPrivateKeyPath, "error", err)
		os.Exit(1)
	}

	db, err := users.OpenPostgres(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresSSLMode)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	userRepo, err := users.New(db)
	if err != nil {
		slog.Error("failed to migrate user schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	authSvc := auth.NewService(redisClient, auth.Options{
		PrivateKey:      privateKey,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		EmailVerifyTTL:  cfg.EmailVerifyTTL,
		LoginMaxFails:   cfg.LoginMaxFailures,
		LoginLockout:    cfg.LoginLockout,
	})

	var emailSender *email.Sender
	if cfg.SMTPHost != "" {
		emailSender, err = email.NewSender(email.Config{
			SMTPHost:     cfg.SMTPHost,
			SMTPPort:     cfg.SMTPPort,
			SMTPUsername: cfg.SMTPUsername,
			SMTPPassword: cfg.SMTPPassword,
			FromName:     cfg.FromName,
			FromEmail:    cfg.FromEmail,
		})
		if err != nil {
			slog.Error("failed to set up email sender", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("smtp not configured, verification emails disabled")
	}

	owmClient := owm.New(cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey, cfg.OpenWeatherLang)
	resolver := geoloc.NewResolver(geoloc.NewIPProvider(cfg.GeoIPBaseURL), cfg.GeoIPTimeout, cfg.GeoIPMaxAge)
	registry := dashboard.NewRegistry()
	hub := realtime.NewHub()

	srv := httpapi.NewServer(
		logger,
		userRepo,
		authSvc,
		emailSender,
		settings.NewStore(redisClient),
		observedWeather{owmClient},
		resolver,
		registry,
		hub,
		httpapi.Options{
			DefaultCity:    cfg.DefaultCity,
			SearchDebounce: cfg.SearchDebounce,
		},
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(observability.MetricsAndTracingMiddleware(tracer, serviceName))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promHandler)
	srv.RegisterRoutes(r)

	// Reap dashboard sessions whose owners went away.
	reaper := cron.New()
	if _, err := reaper.AddFunc("@every 5m", func() {
		if n := registry.CloseIdle(cfg.SessionIdleTTL); n > 0 {
			slog.Info("closed idle sessions", "count", n)
		}
	}); err != nil {
		slog.Error("failed to schedule session reaper", "error", err)
		os.Exit(1)
	}
	reaper.Start()
	defer reaper.Stop()

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("weather-app started", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// observedWeather counts every provider call in prometheus, labeled by
// operation and outcome.
type observedWeather struct {
	client *owm.Client
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch owm.KindOf(err) {
	case owm.KindNotFound:
		return "not_found"
	case owm.KindUnauthorized:
		return "unauthorized"
	case owm.KindRateLimited:
		return "rate_limited"
	case owm.KindBadRequest:
		return "bad_request"
	default:
		return "network"
	}
}

func (o observedWeather) CurrentByCity(ctx context.Context, city string) (models.CurrentWeather, error) {
	res, err := o.client.CurrentByCity(ctx, city)
	observability.RecordUpstream("current_by_city", outcome(err))
	return res, err
}

func (o observedWeather) CurrentByCoords(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	res, err := o.client.CurrentByCoords(ctx, lat, lon)
	observability.RecordUpstream("current_by_coords", outcome(err))
	return res, err
}

func (o observedWeather) ForecastByCity(ctx context.Context, city string) (models.WeeklyForecast, error) {
	res, err := o.client.ForecastByCity(ctx, city)
	observability.RecordUpstream("forecast_by_city", outcome(err))
	return res, err
}

func (o observedWeather) ForecastByCoords(ctx context.Context, lat, lon float64) (models.WeeklyForecast, error) {
	res, err := o.client.ForecastByCoords(ctx, lat, lon)
	observability.RecordUpstream("forecast_by_coords", outcome(err))
	return res, err
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
