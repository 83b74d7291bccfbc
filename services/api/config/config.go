package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxHistoryLimit caps the number of history rows a single read returns.
const MaxHistoryLimit = 20

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL     string
	Port            int
	BearerToken     string
	OpenWeatherKey  string
	OpenWeatherURL  string
	SoilGridsURL    string
	MLServiceURL    string
	MLTimeout       time.Duration
	UpstreamTimeout time.Duration
	PersistTimeout  time.Duration
	HistoryLimit    int
	RedisURL        string
	CacheTTL        time.Duration
	LogLevel        slog.Level
}

// fileConfig mirrors Config for the optional YAML file. Durations are Go
// duration strings.
type fileConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Port        int    `yaml:"port"`
	BearerToken string `yaml:"bearer_token"`
	OpenWeather struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openweather"`
	SoilGridsURL string `yaml:"soilgrids_url"`
	ML           struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"ml_service"`
	UpstreamTimeout string `yaml:"upstream_timeout"`
	PersistTimeout  string `yaml:"persist_timeout"`
	HistoryLimit    int    `yaml:"history_limit"`
	Redis           struct {
		URL      string `yaml:"url"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"redis"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// environment variables (optionally .env), which take precedence.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            8080,
		MLServiceURL:    "http://localhost:8001/predict",
		MLTimeout:       10 * time.Second,
		UpstreamTimeout: 10 * time.Second,
		PersistTimeout:  5 * time.Second,
		HistoryLimit:    MaxHistoryLimit,
		CacheTTL:        10 * time.Minute,
		LogLevel:        slog.LevelInfo,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if cfg.HistoryLimit > MaxHistoryLimit {
		cfg.HistoryLimit = MaxHistoryLimit
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.BearerToken, f.BearerToken)
	setString(&c.OpenWeatherKey, f.OpenWeather.APIKey)
	setString(&c.OpenWeatherURL, f.OpenWeather.BaseURL)
	setString(&c.SoilGridsURL, f.SoilGridsURL)
	setString(&c.MLServiceURL, f.ML.URL)
	setString(&c.RedisURL, f.Redis.URL)
	if f.Port > 0 {
		c.Port = f.Port
	}
	if f.HistoryLimit > 0 {
		c.HistoryLimit = f.HistoryLimit
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"ml_service.timeout", f.ML.Timeout, &c.MLTimeout},
		{"upstream_timeout", f.UpstreamTimeout, &c.UpstreamTimeout},
		{"persist_timeout", f.PersistTimeout, &c.PersistTimeout},
		{"redis.cache_ttl", f.Redis.CacheTTL, &c.CacheTTL},
	} {
		if err := setDuration(d.dst, d.name, d.raw); err != nil {
			return err
		}
	}

	if f.LogLevel != "" {
		lvl, err := parseLevel(f.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level: %s", f.LogLevel)
		}
		c.LogLevel = lvl
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			c.Port = port
		} else {
			return fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			c.Port = port
		} else {
			return fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	setString(&c.BearerToken, os.Getenv("API_BEARER_TOKEN"))
	setString(&c.OpenWeatherKey, os.Getenv("OPENWEATHER_API_KEY"))
	setString(&c.OpenWeatherURL, os.Getenv("OPENWEATHER_BASE_URL"))
	setString(&c.SoilGridsURL, os.Getenv("SOILGRIDS_URL"))
	setString(&c.MLServiceURL, os.Getenv("ML_SERVICE_URL"))
	setString(&c.RedisURL, os.Getenv("REDIS_URL"))

	for _, d := range []struct {
		name string
		dst  *time.Duration
	}{
		{"ML_TIMEOUT", &c.MLTimeout},
		{"UPSTREAM_TIMEOUT", &c.UpstreamTimeout},
		{"PERSIST_TIMEOUT", &c.PersistTimeout},
		{"CACHE_TTL", &c.CacheTTL},
	} {
		if err := setDuration(d.dst, d.name, os.Getenv(d.name)); err != nil {
			return err
		}
	}

	if limitStr := os.Getenv("HISTORY_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			c.HistoryLimit = limit
		} else {
			return fmt.Errorf("invalid HISTORY_LIMIT: %s", limitStr)
		}
	}

	if lvlStr := os.Getenv("LOG_LEVEL"); lvlStr != "" {
		lvl, err := parseLevel(lvlStr)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL: %s", lvlStr)
		}
		c.LogLevel = lvl
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s: %s", name, raw)
	}
	*dst = d
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(strings.TrimSpace(s)))
	return lvl, err
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
