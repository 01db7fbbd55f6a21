// Package plugin adapts the query interpreter to a launcher host: a one-time
// initializer followed by any number of concurrent queries.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/flowlibre/pkg/catalog"
	"github.com/dasmlab/flowlibre/pkg/fuzzy"
	"github.com/dasmlab/flowlibre/pkg/query"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

var (
	// ErrNotInitialized is returned by Query before Initialize has succeeded.
	ErrNotInitialized = errors.New("plugin not initialized")
	// ErrAlreadyInitialized is returned by a second successful-path call to Initialize.
	ErrAlreadyInitialized = errors.New("plugin already initialized")
)

// Plugin is what a launcher host drives.
type Plugin interface {
	// Initialize is called once before any query.
	Initialize(ctx context.Context, meta Metadata) error
	// Query answers one raw query. It must honour ctx cancellation.
	Query(ctx context.Context, search string) ([]query.Result, error)
}

// Host is the part of the launcher the plugin calls back into.
type Host interface {
	// ChangeQuery replaces the live query text. With requery the host re-runs
	// the query even if the text did not change.
	ChangeQuery(ctx context.Context, text string, requery bool) error
}

// Metadata is what the host tells the plugin about itself at startup.
type Metadata struct {
	// ActionKeyword routes queries to this plugin. Empty keeps the configured one.
	ActionKeyword string
}

// Config holds the settings of a Translator plugin.
type Config struct {
	query.Config
}

// Translator is the LibreTranslate launcher plugin.
type Translator struct {
	translator translate.Translator
	host       Host
	cfg        Config
	logger     *logrus.Logger

	initMu      sync.Mutex
	interpreter atomic.Pointer[query.Interpreter]
	ready       chan struct{}
}

// New creates the plugin. Nothing touches the network until Initialize.
func New(translator translate.Translator, host Host, cfg Config) *Translator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = fuzzy.NewSubsequenceMatcher()
	}

	return &Translator{
		translator: translator,
		host:       host,
		cfg:        cfg,
		logger:     cfg.Logger,
		ready:      make(chan struct{}),
	}
}

// Initialize loads the language catalog. A failure leaves the plugin unable to
// serve queries; the call may be retried by the host.
func (p *Translator) Initialize(ctx context.Context, meta Metadata) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.interpreter.Load() != nil {
		return ErrAlreadyInitialized
	}

	cat, err := catalog.Load(ctx, p.translator, p.logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	cfg := p.cfg.Config
	if meta.ActionKeyword != "" {
		cfg.ActionKeyword = meta.ActionKeyword
	}

	p.interpreter.Store(query.NewInterpreter(cat, p.translator, cfg))
	close(p.ready)

	p.logger.WithFields(logrus.Fields{
		"languages":      cat.Len(),
		"action_keyword": cfg.ActionKeyword,
		"debounce":       cfg.Debounce.String(),
	}).Info("Plugin initialized")

	return nil
}

// Query implements Plugin.
func (p *Translator) Query(ctx context.Context, search string) ([]query.Result, error) {
	in := p.interpreter.Load()
	if in == nil {
		return nil, ErrNotInitialized
	}
	return in.Query(ctx, search)
}

// Accept runs a result's action. It reports whether the host should hide its
// window, which is never the case for a query rewrite.
func (p *Translator) Accept(ctx context.Context, action query.Action) (bool, error) {
	if p.host == nil {
		return false, errors.New("accept: no host attached")
	}

	p.logger.WithFields(logrus.Fields{
		"query": action.Query,
	}).Debug("Rewriting launcher query")

	if err := p.host.ChangeQuery(ctx, action.Query, false); err != nil {
		return false, fmt.Errorf("change query: %w", err)
	}
	return false, nil
}

// Ready is closed once Initialize has succeeded.
func (p *Translator) Ready() <-chan struct{} {
	return p.ready
}

// SetHost attaches the host. It must be called before the first Accept.
func (p *Translator) SetHost(host Host) {
	p.host = host
}
