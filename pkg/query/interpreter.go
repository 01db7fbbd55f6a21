package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/flowlibre/pkg/catalog"
	"github.com/dasmlab/flowlibre/pkg/fuzzy"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

// DefaultDebounce is how long a translation waits before hitting the network,
// so that keystrokes arriving in quick succession cancel it first.
const DefaultDebounce = 150 * time.Millisecond

// ErrUnknownLanguage means the source or target token is not a catalog code.
// Interpreter.Query reports it as a result, never as an error.
var ErrUnknownLanguage = errors.New("one of the language codes does not exist")

// Config holds the knobs of an Interpreter.
type Config struct {
	// Debounce is waited before each translation request. Zero sends immediately.
	Debounce time.Duration
	// ActionKeyword prefixes rewritten queries so the host keeps routing them here.
	ActionKeyword string
	// IconPath is attached to every result.
	IconPath string
	// Matcher scores suggestions. Defaults to fuzzy.NewSubsequenceMatcher().
	Matcher fuzzy.Matcher
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// Interpreter answers launcher queries against a fixed catalog.
// It keeps no per-query state and is safe for concurrent use.
type Interpreter struct {
	catalog    *catalog.Catalog
	translator translate.Translator
	cfg        Config
	logger     *logrus.Logger
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(cat *catalog.Catalog, translator translate.Translator, cfg Config) *Interpreter {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = fuzzy.NewSubsequenceMatcher()
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}

	return &Interpreter{
		catalog:    cat,
		translator: translator,
		cfg:        cfg,
		logger:     cfg.Logger,
	}
}

// Query answers one raw query.
//
// An empty, non-nil slice means there is nothing to show yet. If ctx is
// cancelled while waiting for the debounce or the provider, the returned error
// satisfies IsCancelled and no result is produced.
func (i *Interpreter) Query(ctx context.Context, raw string) ([]Result, error) {
	state := Classify(raw, i.catalog)

	i.logger.WithFields(logrus.Fields{
		"mode":           state.Mode.String(),
		"tokens":         len(state.Tokens),
		"semi_completed": state.SemiCompleted,
	}).Debug("Classified query")

	switch state.Mode {
	case ModeIdle:
		recordOutcome(outcomeIdle)
		return []Result{}, nil
	case ModeSuggest:
		recordOutcome(outcomeSuggest)
		return Suggest(state, i.catalog, i.cfg.Matcher, i.cfg.ActionKeyword, i.cfg.IconPath), nil
	default:
		return i.translate(ctx, state)
	}
}

// translate resolves both codes, waits out the debounce and sends one request.
func (i *Interpreter) translate(ctx context.Context, state State) ([]Result, error) {
	source, okSource := i.catalog.Lookup(state.SourceCode)
	target, okTarget := i.catalog.Lookup(state.TargetCode)
	if !okSource || !okTarget {
		recordOutcome(outcomeUnknownLanguage)
		return []Result{i.unknownLanguageResult(state, okSource, okTarget)}, nil
	}

	if err := i.debounce(ctx); err != nil {
		recordOutcome(outcomeCancelled)
		return nil, err
	}

	translated, err := i.translator.Translate(ctx, translate.Request{
		Text:       state.FreeText,
		SourceLang: source.Code,
		TargetLang: target.Code,
	})
	if err != nil {
		if IsCancelled(err) {
			recordOutcome(outcomeCancelled)
			return nil, err
		}
		recordOutcome(outcomeError)
		return nil, fmt.Errorf("translate %s to %s: %w", source.Code, target.Code, err)
	}

	recordOutcome(outcomeTranslated)
	return []Result{{
		Title:    "Translated Text: " + translated,
		SubTitle: fmt.Sprintf("%s: From %s to %s", state.FreeText, source.Name, target.Name),
		IcoPath:  i.cfg.IconPath,
		Score:    MaxScore,
	}}, nil
}

// debounce waits for the configured delay, returning early with ctx's error if
// the query is abandoned first.
func (i *Interpreter) debounce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if i.cfg.Debounce == 0 {
		return nil
	}

	timer := time.NewTimer(i.cfg.Debounce)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		i.logger.Debug("Query cancelled during debounce")
		return ctx.Err()
	case <-timer.C:
	}

	return ctx.Err()
}

func (i *Interpreter) unknownLanguageResult(state State, okSource, okTarget bool) Result {
	var unknown []string
	if !okSource {
		unknown = append(unknown, state.SourceCode)
	}
	if !okTarget && state.TargetCode != state.SourceCode {
		unknown = append(unknown, state.TargetCode)
	}

	i.logger.WithError(ErrUnknownLanguage).WithFields(logrus.Fields{
		"source_lang": state.SourceCode,
		"target_lang": state.TargetCode,
	}).Debug("Query references unknown language code")

	return Result{
		Title:    "One of the language codes does not exist",
		SubTitle: fmt.Sprintf("Unknown code: %s", joinQuoted(unknown)),
		IcoPath:  i.cfg.IconPath,
	}
}

func joinQuoted(codes []string) string {
	quoted := make([]string, len(codes))
	for n, c := range codes {
		quoted[n] = strconv.Quote(c)
	}
	return strings.Join(quoted, ", ")
}
