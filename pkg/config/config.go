// Package config resolves flowlibre settings from defaults, an optional YAML
// file and FLOWLIBRE_* environment variables, later sources winning.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FLOWLIBRE_"

// Config holds all plugin settings.
type Config struct {
	BaseURL        string        `env:"BASE_URL"         envDefault:"https://translate.argosopentech.com" yaml:"base_url"`
	APIKey         string        `env:"API_KEY"                                                           yaml:"api_key"`
	Debounce       time.Duration `env:"DEBOUNCE"         envDefault:"150ms"                               yaml:"debounce"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT"     envDefault:"10s"                                 yaml:"http_timeout"`
	ActionKeyword  string        `env:"ACTION_KEYWORD"   envDefault:"lt"                                  yaml:"action_keyword"`
	IconPath       string        `env:"ICON_PATH"        envDefault:"Images/translate.png"                yaml:"icon_path"`
	LogLevel       string        `env:"LOG_LEVEL"        envDefault:"info"                                yaml:"log_level"`
	MetricsAddr    string        `env:"METRICS_ADDR"                                                      yaml:"metrics_addr"`
	GRPCHealthAddr string        `env:"GRPC_HEALTH_ADDR"                                                  yaml:"grpc_health_addr"`
}

// Load builds a Config. path may be empty, in which case only defaults and the
// environment are used. A key set both in the file and the environment takes
// the environment's value.
func Load(path string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	fileCfg := cfg
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	var present map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay(&cfg, fileCfg, present)
	return cfg, nil
}

// overlay copies into dst the fields of src whose yaml key is present in the
// file and whose environment variable is unset.
func overlay(dst *Config, src Config, present map[string]any) {
	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src)
	t := dv.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if _, ok := present[key]; !ok {
			continue
		}
		if _, ok := os.LookupEnv(EnvPrefix + field.Tag.Get("env")); ok {
			continue
		}
		dv.Field(i).Set(sv.Field(i))
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		errs = append(errs, errors.New("base_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	case (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL))
	}

	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %s", c.Debounce))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}

// NewLogger creates a logger writing to stderr at the configured level.
// Stdout is left alone because the stdio bridge owns it.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
