package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLibreTranslateURL is the public LibreTranslate instance the plugin talks to
	// when nothing else is configured.
	DefaultLibreTranslateURL = "https://translate.argosopentech.com"
	// DefaultLibreTranslateTimeout bounds a single HTTP exchange with the provider.
	// Queries are interactive, so this stays short.
	DefaultLibreTranslateTimeout = 10 * time.Second

	languagesPath = "/languages"
	translatePath = "/translate"

	// maxErrorBody caps how much of a failed response is kept for the error message.
	maxErrorBody = 4 << 10
)

// LibreTranslateClient implements the Translator interface using LibreTranslate.
// A single client is shared by every query; it holds no per-request state.
type LibreTranslateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *MetricsCollector
}

// NewLibreTranslateClient creates a new LibreTranslate client.
// An empty baseURL falls back to DefaultLibreTranslateURL and a nil httpClient
// to one using DefaultLibreTranslateTimeout.
func NewLibreTranslateClient(baseURL, apiKey string, httpClient *http.Client, logger *logrus.Logger) *LibreTranslateClient {
	if baseURL == "" {
		baseURL = DefaultLibreTranslateURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultLibreTranslateTimeout,
		}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LibreTranslateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		metrics:    NewMetricsCollector(),
	}
}

// translateResponse represents a LibreTranslate API response.
// TranslatedText is a pointer so a missing field can be told apart from an empty translation.
type translateResponse struct {
	TranslatedText *string `json:"translatedText"`
}

// errorResponse is what LibreTranslate sends back with 4xx/5xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// Translate translates text from source language to target language.
// The request body is form-urlencoded with the fields q, source, target and api_key;
// api_key is sent even when empty.
func (c *LibreTranslateClient) Translate(ctx context.Context, req Request) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"source_lang": req.SourceLang,
		"target_lang": req.TargetLang,
		"text_length": len(req.Text),
	}).Debug("Translating text with LibreTranslate")

	form := url.Values{}
	form.Set("q", req.Text)
	form.Set("source", req.SourceLang)
	form.Set("target", req.TargetLang)
	form.Set("api_key", c.apiKey)

	endpoint := c.baseURL + translatePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.WithError(err).Error("Failed to create translation request")
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	startTime := time.Now()
	body, err := c.do(ctx, httpReq)
	duration := time.Since(startTime)
	if err != nil {
		c.metrics.RecordRequest(translatePath, duration, err)
		return "", err
	}

	var ltResp translateResponse
	if err := json.Unmarshal(body, &ltResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode translation response")
		err = fmt.Errorf("%w: decode translation: %v", ErrMalformedResponse, err)
		c.metrics.RecordRequest(translatePath, duration, err)
		return "", err
	}
	if ltResp.TranslatedText == nil {
		c.logger.WithField("response", string(body)).Error("Translation response has no translatedText")
		err = fmt.Errorf("%w: translatedText missing", ErrMalformedResponse)
		c.metrics.RecordRequest(translatePath, duration, err)
		return "", err
	}

	c.metrics.RecordRequest(translatePath, duration, nil)
	c.metrics.RecordTranslationSize(len(req.Text), len(*ltResp.TranslatedText))

	c.logger.WithFields(logrus.Fields{
		"source_lang": req.SourceLang,
		"target_lang": req.TargetLang,
		"duration_ms": duration.Milliseconds(),
	}).Info("Translation completed successfully")

	return *ltResp.TranslatedText, nil
}

// CheckHealth verifies that LibreTranslate is ready and operational.
func (c *LibreTranslateClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking LibreTranslate health")

	// The language list doubles as the health probe
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+languagesPath, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}

	if _, err := c.do(ctx, req); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	c.logger.Debug("LibreTranslate health check passed")
	return nil
}

// SupportedLanguages returns the languages supported by LibreTranslate in the order
// the provider lists them.
func (c *LibreTranslateClient) SupportedLanguages(ctx context.Context) ([]Language, error) {
	c.logger.Debug("Fetching supported languages from LibreTranslate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+languagesPath, nil)
	if err != nil {
		c.logger.WithError(err).Error("Failed to create languages request")
		return nil, fmt.Errorf("create languages request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	body, err := c.do(ctx, req)
	duration := time.Since(startTime)
	if err != nil {
		c.metrics.RecordRequest(languagesPath, duration, err)
		return nil, err
	}

	var languages []Language
	if err := json.Unmarshal(body, &languages); err != nil {
		c.logger.WithError(err).Error("Failed to decode languages response")
		err = fmt.Errorf("%w: decode languages: %v", ErrMalformedResponse, err)
		c.metrics.RecordRequest(languagesPath, duration, err)
		return nil, err
	}

	c.metrics.RecordRequest(languagesPath, duration, nil)
	c.logger.WithFields(logrus.Fields{
		"count":       len(languages),
		"duration_ms": duration.Milliseconds(),
	}).Debug("Fetched supported languages")

	return languages, nil
}

// do executes req and returns the body of a 2xx response.
// Context errors are returned unwrapped by ErrTransport so callers can tell a
// cancelled request apart from a failed one.
func (c *LibreTranslateClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request aborted: %w", ctxErr)
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url": req.URL.String(),
		}).Error("Request to LibreTranslate failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"path":        req.URL.Path,
		"status_code": resp.StatusCode,
	}).Debug("LibreTranslate request completed")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := strings.TrimSpace(string(bodyBytes))
		var errResp errorResponse
		if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		c.logger.WithFields(logrus.Fields{
			"path":        req.URL.Path,
			"status_code": resp.StatusCode,
			"response":    message,
		}).Error("LibreTranslate returned non-success status")
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrTransport, resp.StatusCode, message)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("read aborted: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return body, nil
}
