package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ClientConfig captures all tunable parameters for the terminal client.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ClientConfig struct {
	BackendURL  string
	SessionFile string
	HTTPTimeout time.Duration

	// RequestPollInterval paces the waiting screen, TripPollInterval the
	// active-trip screen, MapPollInterval the driver position reporting.
	RequestPollInterval time.Duration
	TripPollInterval    time.Duration
	MapPollInterval     time.Duration

	SearchRadiusKm float64

	// UseStream prefers the websocket subscription over polling when the
	// backend supports it; polling remains the fallback transport.
	UseStream bool

	LogLevel  string
	LogFormat string
}

func defaultClientConfig() ClientConfig {
	home, _ := os.UserHomeDir()
	return ClientConfig{
		BackendURL:          "http://localhost:8080",
		SessionFile:         filepath.Join(home, ".mototaxi", "session.json"),
		HTTPTimeout:         10 * time.Second,
		RequestPollInterval: 3 * time.Second,
		TripPollInterval:    3 * time.Second,
		MapPollInterval:     8 * time.Second,
		SearchRadiusKm:      5,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

func LoadClientConfig() (ClientConfig, error) {
	cfg := defaultClientConfig()
	var errs []error

	setStringFromEnv(&cfg.BackendURL, "MOTOTAXI_BACKEND_URL")
	setStringFromEnv(&cfg.SessionFile, "MOTOTAXI_SESSION_FILE")
	setDurationFromEnv(&cfg.HTTPTimeout, "MOTOTAXI_HTTP_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.RequestPollInterval, "MOTOTAXI_REQUEST_POLL_INTERVAL", &errs)
	setDurationFromEnv(&cfg.TripPollInterval, "MOTOTAXI_TRIP_POLL_INTERVAL", &errs)
	setDurationFromEnv(&cfg.MapPollInterval, "MOTOTAXI_MAP_POLL_INTERVAL", &errs)
	setFloatFromEnv(&cfg.SearchRadiusKm, "MOTOTAXI_SEARCH_RADIUS_KM", &errs)
	cfg.UseStream = strings.EqualFold(os.Getenv("MOTOTAXI_USE_STREAM"), "true")
	setStringFromEnv(&cfg.LogLevel, "MOTOTAXI_LOG_LEVEL")
	setStringFromEnv(&cfg.LogFormat, "MOTOTAXI_LOG_FORMAT")

	if cfg.RequestPollInterval <= 0 || cfg.TripPollInterval <= 0 || cfg.MapPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll intervals must be > 0"))
	}
	if cfg.SearchRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("MOTOTAXI_SEARCH_RADIUS_KM must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

// SandboxConfig configures the in-memory authoritative backend.
type SandboxConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr      string
	RedisPassword  string
	DriversGeoKey  string
	RequestsGeoKey string

	PGDSN string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RequestTTL is the default expiry window applied to requests created
	// without an explicit deadline.
	RequestTTL    time.Duration
	SweepInterval time.Duration

	// DefaultSpeedKmh feeds the straight-line ETA estimate.
	DefaultSpeedKmh float64

	LogLevel string
}

func defaultSandboxConfig() SandboxConfig {
	return SandboxConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		DriversGeoKey:   "drivers_geo",
		RequestsGeoKey:  "requests_geo",
		KafkaTopic:      "driver-locations",
		JWTSecret:       "sandbox-secret",
		AccessTTL:       time.Hour,
		RefreshTTL:      24 * time.Hour,
		RequestTTL:      10 * time.Minute,
		SweepInterval:   30 * time.Second,
		DefaultSpeedKmh: 30,
		LogLevel:        "info",
	}
}

func LoadSandboxConfig() (SandboxConfig, error) {
	cfg := defaultSandboxConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.DriversGeoKey, "REDIS_DRIVERS_GEO_KEY")
	setStringFromEnv(&cfg.RequestsGeoKey, "REDIS_REQUESTS_GEO_KEY")

	cfg.PGDSN = os.Getenv("PG_DSN")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	setDurationFromEnv(&cfg.AccessTTL, "JWT_ACCESS_TTL", &errs)
	setDurationFromEnv(&cfg.RefreshTTL, "JWT_REFRESH_TTL", &errs)

	setDurationFromEnv(&cfg.RequestTTL, "REQUEST_TTL", &errs)
	setDurationFromEnv(&cfg.SweepInterval, "REQUEST_SWEEP_INTERVAL", &errs)
	setFloatFromEnv(&cfg.DefaultSpeedKmh, "DEFAULT_SPEED_KMH", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.RequestTTL <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TTL must be > 0"))
	}
	if cfg.DefaultSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_SPEED_KMH must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
