package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DefaultCity != "Moscow" {
		t.Errorf("DefaultCity = %q, want Moscow", cfg.DefaultCity)
	}
	if cfg.SearchDebounce != 500*time.Millisecond {
		t.Errorf("SearchDebounce = %v, want 500ms", cfg.SearchDebounce)
	}
	if cfg.GeoIPTimeout != 5*time.Second {
		t.Errorf("GeoIPTimeout = %v, want 5s", cfg.GeoIPTimeout)
	}
}

// Keys without a yaml file must still be fillable from the environment
// alone, the secrets included.
func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "env-key")
	t.Setenv("POSTGRES_PASSWORD", "env-pass")
	t.Setenv("REDIS_PASSWORD", "env-redis")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "mailer")
	t.Setenv("SMTP_PASSWORD", "env-smtp")
	t.Setenv("FROM_EMAIL", "noreply@example.com")
	t.Setenv("DEFAULT_CITY", "Paris")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenWeatherAPIKey != "env-key" {
		t.Errorf("OpenWeatherAPIKey = %q, want env-key", cfg.OpenWeatherAPIKey)
	}
	if cfg.PostgresPassword != "env-pass" {
		t.Errorf("PostgresPassword = %q, want env-pass", cfg.PostgresPassword)
	}
	if cfg.RedisPassword != "env-redis" {
		t.Errorf("RedisPassword = %q, want env-redis", cfg.RedisPassword)
	}
	if cfg.SMTPHost != "smtp.example.com" {
		t.Errorf("SMTPHost = %q, want smtp.example.com", cfg.SMTPHost)
	}
	if cfg.SMTPUsername != "mailer" {
		t.Errorf("SMTPUsername = %q, want mailer", cfg.SMTPUsername)
	}
	if cfg.SMTPPassword != "env-smtp" {
		t.Errorf("SMTPPassword = %q, want env-smtp", cfg.SMTPPassword)
	}
	if cfg.FromEmail != "noreply@example.com" {
		t.Errorf("FromEmail = %q, want noreply@example.com", cfg.FromEmail)
	}
	if cfg.DefaultCity != "Paris" {
		t.Errorf("DefaultCity = %q, want env override Paris", cfg.DefaultCity)
	}
}
