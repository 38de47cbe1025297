// Package config loads engine and server settings from defaults, an optional
// YAML file, an optional .env file and SAFEROUTE_* environment variables,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SAFEROUTE_"

type Config struct {
	GraphPath string `yaml:"graph_path"`
	StorePath string `yaml:"store_path"`
	Area      string `yaml:"area"`

	Risk     RiskConfig     `yaml:"risk"`
	Routing  RoutingConfig  `yaml:"routing"`
	Server   ServerConfig   `yaml:"server"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Log      LogConfig      `yaml:"log"`
}

type RiskConfig struct {
	AccidentRadiusM float64 `yaml:"accident_radius_m" validate:"gt=0"`
	SampleSpacingM  float64 `yaml:"sample_spacing_m" validate:"gte=0"`
	Workers         int     `yaml:"workers" validate:"gte=0"`
}

type RoutingConfig struct {
	RiskWeightFactor float64 `yaml:"risk_weight_factor" validate:"gte=0"`
	DefaultTolerance float64 `yaml:"default_tolerance" validate:"gte=0,lte=1"`
	OverlayCacheSize int     `yaml:"overlay_cache_size" validate:"gte=0"`
}

type ServerConfig struct {
	Address        string        `yaml:"address" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	AllowOrigins   []string      `yaml:"allow_origins"`
	WatchGraph     bool          `yaml:"watch_graph"`
}

type GeocoderConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Environment string `yaml:"environment" validate:"oneof=development production"`
}

func Default() *Config {
	return &Config{
		Risk: RiskConfig{
			AccidentRadiusM: 100,
		},
		Routing: RoutingConfig{
			RiskWeightFactor: 1000,
			DefaultTolerance: 0.5,
			OverlayCacheSize: 16,
		},
		Server: ServerConfig{
			Address:        ":8080",
			RequestTimeout: 10 * time.Second,
			AllowOrigins:   []string{"*"},
			WatchGraph:     true,
		},
		Geocoder: GeocoderConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "saferoute",
			Timeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.GraphPath = getEnv("GRAPH_PATH", c.GraphPath)
	c.StorePath = getEnv("STORE_PATH", c.StorePath)
	c.Area = getEnv("AREA", c.Area)

	var err error
	if c.Risk.AccidentRadiusM, err = getEnvFloat("ACCIDENT_RADIUS_M", c.Risk.AccidentRadiusM); err != nil {
		return err
	}
	if c.Risk.SampleSpacingM, err = getEnvFloat("SAMPLE_SPACING_M", c.Risk.SampleSpacingM); err != nil {
		return err
	}
	if c.Risk.Workers, err = getEnvInt("WORKERS", c.Risk.Workers); err != nil {
		return err
	}
	if c.Routing.RiskWeightFactor, err = getEnvFloat("RISK_WEIGHT_FACTOR", c.Routing.RiskWeightFactor); err != nil {
		return err
	}
	if c.Routing.DefaultTolerance, err = getEnvFloat("DEFAULT_TOLERANCE", c.Routing.DefaultTolerance); err != nil {
		return err
	}
	if c.Routing.OverlayCacheSize, err = getEnvInt("OVERLAY_CACHE_SIZE", c.Routing.OverlayCacheSize); err != nil {
		return err
	}

	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	if c.Server.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout); err != nil {
		return err
	}
	if v := getEnv("ALLOW_ORIGINS", ""); v != "" {
		c.Server.AllowOrigins = splitList(v)
	}
	if c.Server.WatchGraph, err = getEnvBool("WATCH_GRAPH", c.Server.WatchGraph); err != nil {
		return err
	}

	c.Geocoder.BaseURL = getEnv("GEOCODER_URL", c.Geocoder.BaseURL)
	c.Geocoder.UserAgent = getEnv("GEOCODER_USER_AGENT", c.Geocoder.UserAgent)
	if c.Geocoder.Timeout, err = getEnvDuration("GEOCODER_TIMEOUT", c.Geocoder.Timeout); err != nil {
		return err
	}

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Environment = strings.ToLower(getEnv("ENVIRONMENT", c.Log.Environment))
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(EnvPrefix + key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
