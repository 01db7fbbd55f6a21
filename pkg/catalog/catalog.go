// Package catalog holds the provider's list of supported languages.
//
// A Catalog is loaded once at startup and never changes afterwards, so it can
// be shared between concurrent queries without locking.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/flowlibre/pkg/translate"
)

// ErrLoad wraps every failure to fetch or decode the language list.
var ErrLoad = errors.New("load language catalog")

var catalogLanguages = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "flowlibre_catalog_languages",
	Help: "Number of languages in the loaded catalog",
})

// LanguageEntry is one supported language.
type LanguageEntry struct {
	Code string
	Name string
}

// Source fetches the raw language list. translate.Translator satisfies it.
type Source interface {
	SupportedLanguages(ctx context.Context) ([]translate.Language, error)
}

// Catalog is an immutable, ordered list of languages with unique codes.
type Catalog struct {
	entries []LanguageEntry
	byCode  map[string]int
}

// New builds a catalog from entries, keeping their order.
// Duplicate codes are rejected; codes are compared case-sensitively.
func New(entries []LanguageEntry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]LanguageEntry, 0, len(entries)),
		byCode:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("language %q has an empty code", e.Name)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate language code %q", e.Code)
		}
		c.byCode[e.Code] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Load fetches the language list from src and builds the catalog.
// It makes exactly one call to src and does not retry.
func Load(ctx context.Context, src Source, logger *logrus.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logrus.New()
	}

	languages, err := src.SupportedLanguages(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch language catalog")
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	entries := make([]LanguageEntry, 0, len(languages))
	for _, l := range languages {
		entries = append(entries, LanguageEntry{Code: l.Code, Name: l.Name})
	}

	c, err := New(entries)
	if err != nil {
		logger.WithError(err).Error("Invalid language catalog")
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	catalogLanguages.Set(float64(c.Len()))
	logger.WithFields(logrus.Fields{
		"count": c.Len(),
	}).Info("Language catalog loaded")

	return c, nil
}

// Len returns the number of languages.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the languages in catalog order.
func (c *Catalog) Entries() []LanguageEntry {
	out := make([]LanguageEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds the language with exactly the given code.
func (c *Catalog) Lookup(code string) (LanguageEntry, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return LanguageEntry{}, false
	}
	return c.entries[i], true
}

// Has reports whether code is a known language code.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}
