package catalog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasmlab/flowlibre/pkg/translate"
)

type stubSource struct {
	languages []translate.Language
	err       error
	calls     int
}

func (s *stubSource) SupportedLanguages(context.Context) ([]translate.Language, error) {
	s.calls++
	return s.languages, s.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoad(t *testing.T) {
	src := &stubSource{languages: []translate.Language{
		{Code: "fr", Name: "French"},
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
	}}

	c, err := Load(context.Background(), src, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []LanguageEntry{
		{Code: "fr", Name: "French"},
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
	}, c.Entries())

	es, ok := c.Lookup("es")
	require.True(t, ok)
	assert.Equal(t, "Spanish", es.Name)

	_, ok = c.Lookup("ES")
	assert.False(t, ok, "codes are case-sensitive")
	assert.True(t, c.Has("en"))
	assert.False(t, c.Has("xx"))
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		src  *stubSource
	}{
		{
			name: "fetch error",
			src:  &stubSource{err: translate.ErrTransport},
		},
		{
			name: "duplicate code",
			src: &stubSource{languages: []translate.Language{
				{Code: "en", Name: "English"},
				{Code: "en", Name: "English (US)"},
			}},
		},
		{
			name: "empty code",
			src:  &stubSource{languages: []translate.Language{{Name: "Nameless"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(context.Background(), tt.src, quietLogger())
			assert.Nil(t, c)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLoad)
		})
	}
}

func TestLoadKeepsCause(t *testing.T) {
	_, err := Load(context.Background(), &stubSource{err: translate.ErrMalformedResponse}, quietLogger())
	assert.True(t, errors.Is(err, translate.ErrMalformedResponse))
}

func TestEntriesIsACopy(t *testing.T) {
	c, err := New([]LanguageEntry{{Code: "en", Name: "English"}})
	require.NoError(t, err)

	entries := c.Entries()
	entries[0].Name = "changed"
	assert.Equal(t, "English", c.Entries()[0].Name)
}

func TestEmptyCatalog(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Entries())
}
