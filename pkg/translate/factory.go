package translate

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	// BaseURL is the base URL of the LibreTranslate API.
	// Defaults to DefaultLibreTranslateURL if not specified.
	BaseURL string
	// APIKey is sent as the api_key form field. Empty is allowed.
	APIKey string
	// Timeout bounds each HTTP exchange. Defaults to DefaultLibreTranslateTimeout.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewTranslator creates the process-wide Translator.
// The returned value is safe for concurrent use and is never reconfigured.
func NewTranslator(cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLibreTranslateURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLibreTranslateTimeout
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme %q", cfg.BaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", cfg.BaseURL)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"base_url":    cfg.BaseURL,
		"timeout":     cfg.Timeout.String(),
		"has_api_key": cfg.APIKey != "",
	}).Info("Creating translator instance")

	httpClient := &http.Client{Timeout: cfg.Timeout}
	return NewLibreTranslateClient(cfg.BaseURL, cfg.APIKey, httpClient, cfg.Logger), nil
}
