package translate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTranslateSendsFormBody(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		_, _ = io.WriteString(w, `{"translatedText":"hola mundo"}`)
	}))
	defer srv.Close()

	client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
	before := testutil.ToFloat64(providerRequestsTotal.WithLabelValues(translatePath, statusSuccess))

	out, err := client.Translate(context.Background(), Request{Text: "hello world", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", out)

	assert.Equal(t, "hello world", got.Get("q"))
	assert.Equal(t, "en", got.Get("source"))
	assert.Equal(t, "es", got.Get("target"))
	_, hasKey := got["api_key"]
	assert.True(t, hasKey, "api_key must be sent even when empty")
	assert.Equal(t, "", got.Get("api_key"))

	after := testutil.ToFloat64(providerRequestsTotal.WithLabelValues(translatePath, statusSuccess))
	assert.Equal(t, before+1, after)
}

func TestTranslateSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("api_key"))
		_, _ = io.WriteString(w, `{"translatedText":"bonjour"}`)
	}))
	defer srv.Close()

	client := NewLibreTranslateClient(srv.URL+"/", "secret", nil, quietLogger())
	out, err := client.Translate(context.Background(), Request{Text: "hello", SourceLang: "en", TargetLang: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", out)
}

func TestTranslateErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantMessage string
	}{
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			body:        "boom",
			wantErr:     ErrTransport,
			wantMessage: "unexpected status 500: boom",
		},
		{
			name:        "provider error body",
			status:      http.StatusBadRequest,
			body:        `{"error":"Invalid request: missing q parameter"}`,
			wantErr:     ErrTransport,
			wantMessage: "Invalid request: missing q parameter",
		},
		{
			name:    "missing translatedText",
			status:  http.StatusOK,
			body:    `{"detectedLanguage":"en"}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "translatedText not a string",
			status:  http.StatusOK,
			body:    `{"translatedText":42}`,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
			_, err := client.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "es"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrTransport)
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestTranslateEmptyTranslationIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"translatedText":""}`)
	}))
	defer srv.Close()

	client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
	out, err := client.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestTranslateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := NewLibreTranslateClient(addr, "", nil, quietLogger())
	_, err := client.Translate(context.Background(), Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestTranslateCancelledInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
	_, err := client.Translate(ctx, Request{Text: "x", SourceLang: "en", TargetLang: "es"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTransport), "cancellation must not look like a transport failure")
}

func TestSupportedLanguagesPreservesOrder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/languages", r.URL.Path)
		_, _ = io.WriteString(w, `[{"code":"en","name":"English"},{"code":"es","name":"Spanish"},{"code":"fr","name":"French","targets":["en"]}]`)
	}))
	defer srv.Close()

	client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
	langs, err := client.SupportedLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Language{
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
	}, langs)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSupportedLanguagesErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewLibreTranslateClient(srv.URL, "", nil, quietLogger()).SupportedLanguages(context.Background())
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"code":"en"}`)
		}))
		defer srv.Close()

		_, err := NewLibreTranslateClient(srv.URL, "", nil, quietLogger()).SupportedLanguages(context.Background())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestCheckHealth(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unhealthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := NewLibreTranslateClient(srv.URL, "", nil, quietLogger())
	require.NoError(t, client.CheckHealth(context.Background()))

	unhealthy.Store(true)
	assert.ErrorIs(t, client.CheckHealth(context.Background()), ErrTransport)
}

func TestNewTranslator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "custom url", cfg: Config{BaseURL: "http://localhost:5000", Timeout: time.Second}},
		{name: "bad scheme", cfg: Config{BaseURL: "ftp://example.com"}, wantErr: true},
		{name: "no host", cfg: Config{BaseURL: "http://"}, wantErr: true},
		{name: "unparsable", cfg: Config{BaseURL: "http://[::1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = quietLogger()
			tr, err := NewTranslator(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &LibreTranslateClient{}, tr)
		})
	}
}
