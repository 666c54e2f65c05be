package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`

	OpenWeatherBaseURL string `mapstructure:"openweather_base_url"`
	OpenWeatherAPIKey  string `mapstructure:"openweather_api_key"`
	OpenWeatherLang    string `mapstructure:"openweather_lang"`

	GeoIPBaseURL   string        `mapstructure:"geoip_base_url"`
	GeoIPTimeout   time.Duration `mapstructure:"geoip_timeout"`
	GeoIPMaxAge    time.Duration `mapstructure:"geoip_max_age"`
	DefaultCity    string        `mapstructure:"default_city"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`

	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`

	JWTPrivateKeyPath string        `mapstructure:"jwt_private_key_path"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `mapstructure:"refresh_token_ttl"`
	EmailVerifyTTL    time.Duration `mapstructure:"email_verify_ttl"`
	LoginMaxFailures  int           `mapstructure:"login_max_failures"`
	LoginLockout      time.Duration `mapstructure:"login_lockout"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromName     string `mapstructure:"from_name"`
	FromEmail    string `mapstructure:"from_email"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Load reads an optional yaml file and environment variables. Every key can
// be overridden via env, e.g. listen_addr -> LISTEN_ADDR.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("openweather_base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("openweather_lang", "en")
	v.SetDefault("geoip_base_url", "http://ip-api.com/json")
	v.SetDefault("geoip_timeout", 5*time.Second)
	v.SetDefault("geoip_max_age", 5*time.Minute)
	v.SetDefault("default_city", "Moscow")
	v.SetDefault("search_debounce", 500*time.Millisecond)
	v.SetDefault("session_idle_ttl", 30*time.Minute)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "weather")
	v.SetDefault("postgres_db", "weather")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("jwt_private_key_path", "keys/jwt_private.pem")
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 30*24*time.Hour)
	v.SetDefault("email_verify_ttl", 24*time.Hour)
	v.SetDefault("login_max_failures", 5)
	v.SetDefault("login_lockout", 15*time.Minute)
	v.SetDefault("smtp_port", 587)
	v.SetDefault("from_name", "Weather App")
	v.SetDefault("cors_allowed_origins", []string{"*"})

	// AutomaticEnv only resolves keys viper already knows about, so the
	// keys without a real default are registered empty; without this,
	// env-only configuration drops them.
	v.SetDefault("openweather_api_key", "")
	v.SetDefault("postgres_password", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("from_email", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
