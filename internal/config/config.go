package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the dashboard service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Filters  FiltersConfig  `yaml:"filters"`
	Survival SurvivalConfig `yaml:"survival"`
	Render   RenderConfig   `yaml:"render"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// DataConfig points the loader at the CSV directory.
type DataConfig struct {
	Dir     string   `yaml:"dir"`
	Preload []string `yaml:"preload"`
}

// FiltersConfig locates the denylist policy pack. Non-zero year bounds
// override the years the pack declares.
type FiltersConfig struct {
	MinYear    int    `yaml:"minYear"`
	MaxYear    int    `yaml:"maxYear"`
	PolicyPath string `yaml:"policyPath"`
}

// SurvivalConfig tunes the Kaplan-Meier confidence band.
type SurvivalConfig struct {
	Alpha    float64 `yaml:"alpha"`
	CIMethod string  `yaml:"ciMethod"`
}

// RenderConfig sizes server-rendered PNG charts.
type RenderConfig struct {
	PNGWidth  int `yaml:"pngWidth"`
	PNGHeight int `yaml:"pngHeight"`
}

// SessionsConfig controls navigation session retention.
type SessionsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of rendered pages.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Backend      string        `yaml:"backend"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ViewTTL      time.Duration `yaml:"viewTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BCINSIGHTS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Filters.MinYear != 0 && c.Filters.MaxYear != 0 && c.Filters.MinYear > c.Filters.MaxYear {
		return fmt.Errorf("filters: minYear %d is after maxYear %d", c.Filters.MinYear, c.Filters.MaxYear)
	}
	if c.Survival.Alpha <= 0 || c.Survival.Alpha >= 1 {
		return fmt.Errorf("survival: alpha must be in (0, 1), got %v", c.Survival.Alpha)
	}
	switch c.Survival.CIMethod {
	case "loglog", "linear":
	default:
		return fmt.Errorf("survival: unknown ciMethod %q", c.Survival.CIMethod)
	}
	switch c.Cache.Backend {
	case "memory", "valkey":
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir: "data",
			Preload: []string{
				"patients by year and age",
				"laterality vs tumor site alluvial",
				"age vs site radar data",
				"genome_cluster",
				"survival df",
			},
		},
		Filters:  FiltersConfig{PolicyPath: "configs/filters/default.yaml"},
		Survival: SurvivalConfig{Alpha: 0.05, CIMethod: "loglog"},
		Render:   RenderConfig{PNGWidth: 900, PNGHeight: 500},
		Sessions: SessionsConfig{TTL: 30 * time.Minute},
		Logging:  LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			Backend:      "memory",
			ViewTTL:      5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BCINSIGHTS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("BCINSIGHTS_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("BCINSIGHTS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("BCINSIGHTS_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("BCINSIGHTS_DATA_PRELOAD"); v != "" {
		cfg.Data.Preload = splitList(v)
	}
	if v := os.Getenv("BCINSIGHTS_FILTERS_POLICY_PATH"); v != "" {
		cfg.Filters.PolicyPath = v
	}
	if v := os.Getenv("BCINSIGHTS_FILTERS_MIN_YEAR"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			cfg.Filters.MinYear = year
		}
	}
	if v := os.Getenv("BCINSIGHTS_FILTERS_MAX_YEAR"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			cfg.Filters.MaxYear = year
		}
	}
	if v := os.Getenv("BCINSIGHTS_SURVIVAL_ALPHA"); v != "" {
		if alpha, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Survival.Alpha = alpha
		}
	}
	if v := os.Getenv("BCINSIGHTS_SURVIVAL_CI_METHOD"); v != "" {
		cfg.Survival.CIMethod = strings.ToLower(v)
	}
	if v := os.Getenv("BCINSIGHTS_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.TTL = d
		}
	}
	if v := os.Getenv("BCINSIGHTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BCINSIGHTS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = truthy(v)
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_TLS"); truthy(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("BCINSIGHTS_CACHE_VIEW_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ViewTTL = d
		}
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
