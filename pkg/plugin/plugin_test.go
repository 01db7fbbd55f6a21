package plugin

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dasmlab/flowlibre/pkg/catalog"
	"github.com/dasmlab/flowlibre/pkg/query"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

type stubTranslator struct {
	languages    []translate.Language
	languagesErr error
	languageHits int
	translated   string
}

func (s *stubTranslator) Translate(context.Context, translate.Request) (string, error) {
	return s.translated, nil
}

func (s *stubTranslator) CheckHealth(context.Context) error { return nil }

func (s *stubTranslator) SupportedLanguages(context.Context) ([]translate.Language, error) {
	s.languageHits++
	return s.languages, s.languagesErr
}

type recordingHost struct {
	queries []string
	err     error
}

func (h *recordingHost) ChangeQuery(_ context.Context, text string, requery bool) error {
	h.queries = append(h.queries, text)
	return h.err
}

func newTestPlugin(tr translate.Translator, host Host, keyword string) *Translator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(tr, host, Config{Config: query.Config{
		ActionKeyword: keyword,
		IconPath:      "Images/translate.png",
		Logger:        logger,
	}})
}

func languages() []translate.Language {
	return []translate.Language{
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
	}
}

func TestQueryBeforeInitialize(t *testing.T) {
	p := newTestPlugin(&stubTranslator{languages: languages()}, nil, "lt")

	_, err := p.Query(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotInitialized)

	select {
	case <-p.Ready():
		t.Fatal("plugin must not be ready before Initialize")
	default:
	}
}

func TestInitializeAndQuery(t *testing.T) {
	tr := &stubTranslator{languages: languages(), translated: "hola mundo"}
	p := newTestPlugin(tr, nil, "lt")

	require.NoError(t, p.Initialize(context.Background(), Metadata{}))
	assert.Equal(t, 1, tr.languageHits)
	<-p.Ready()

	results, err := p.Query(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = p.Query(context.Background(), "en es hello world")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Translated Text: hola mundo", results[0].Title)
	assert.Equal(t, "hello world: From English to Spanish", results[0].SubTitle)
}

func TestInitializeOnlyOnce(t *testing.T) {
	tr := &stubTranslator{languages: languages()}
	p := newTestPlugin(tr, nil, "lt")

	require.NoError(t, p.Initialize(context.Background(), Metadata{}))
	assert.ErrorIs(t, p.Initialize(context.Background(), Metadata{}), ErrAlreadyInitialized)
	assert.Equal(t, 1, tr.languageHits, "the catalog is fetched once")
}

func TestInitializeFailure(t *testing.T) {
	tr := &stubTranslator{languagesErr: translate.ErrTransport}
	p := newTestPlugin(tr, nil, "lt")

	err := p.Initialize(context.Background(), Metadata{})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrLoad)

	_, err = p.Query(context.Background(), "en es hi")
	assert.ErrorIs(t, err, ErrNotInitialized)

	// The host may try again once the provider is back
	tr.languagesErr = nil
	tr.languages = languages()
	require.NoError(t, p.Initialize(context.Background(), Metadata{}))
	_, err = p.Query(context.Background(), "en")
	assert.NoError(t, err)
}

func TestMetadataKeywordOverridesConfig(t *testing.T) {
	p := newTestPlugin(&stubTranslator{languages: languages()}, nil, "lt")
	require.NoError(t, p.Initialize(context.Background(), Metadata{ActionKeyword: "tr"}))

	results, err := p.Query(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "tr en ", results[0].Action.Query)
}

func TestAcceptRewritesQuery(t *testing.T) {
	host := &recordingHost{}
	p := newTestPlugin(&stubTranslator{languages: languages()}, host, "lt")
	require.NoError(t, p.Initialize(context.Background(), Metadata{}))

	results, err := p.Query(context.Background(), "en")
	require.NoError(t, err)
	require.Len(t, results, 3)

	hide, err := p.Accept(context.Background(), *results[1].Action)
	require.NoError(t, err)
	assert.False(t, hide, "accepting a suggestion keeps the launcher open")
	assert.Equal(t, []string{"lt en es "}, host.queries)
}

func TestAcceptErrors(t *testing.T) {
	p := newTestPlugin(&stubTranslator{}, nil, "lt")
	_, err := p.Accept(context.Background(), query.Action{Query: "lt en "})
	assert.Error(t, err)

	hostErr := errors.New("pipe closed")
	p.SetHost(&recordingHost{err: hostErr})
	_, err = p.Accept(context.Background(), query.Action{Query: "lt en "})
	assert.ErrorIs(t, err, hostErr)
}
