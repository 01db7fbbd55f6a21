package query

import (
	"sort"
	"strings"

	"github.com/dasmlab/flowlibre/pkg/catalog"
	"github.com/dasmlab/flowlibre/pkg/fuzzy"
)

// Suggest lists the catalog languages the user can pick next.
//
// When state is semi-completed every language is offered with MaxScore in
// catalog order. Otherwise the last token is fuzzy-matched against language
// names and only positive scores are kept, best first; ties keep catalog order.
//
// Accepting a suggestion rewrites the query to the already picked tokens, the
// chosen code and a trailing space, prefixed by keyword when it is not empty.
func Suggest(state State, cat *catalog.Catalog, matcher fuzzy.Matcher, keyword, iconPath string) []Result {
	prior := state.Tokens
	if !state.SemiCompleted {
		// The last token is a partial name that the chosen code replaces
		prior = state.Tokens[:len(state.Tokens)-1]
	}
	pattern := state.LastToken()

	entries := cat.Entries()
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		score := MaxScore
		if !state.SemiCompleted {
			score = matcher.Score(pattern, entry.Name)
			if score <= 0 {
				continue
			}
		}

		results = append(results, Result{
			Title:    entry.Name,
			SubTitle: entry.Code,
			IcoPath:  iconPath,
			Score:    score,
			Action:   &Action{Query: rewriteQuery(keyword, prior, entry.Code)},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

func rewriteQuery(keyword string, prior []string, code string) string {
	var b strings.Builder
	if keyword != "" {
		b.WriteString(keyword)
		b.WriteByte(' ')
	}
	for _, tok := range prior {
		b.WriteString(tok)
		b.WriteByte(' ')
	}
	b.WriteString(code)
	b.WriteByte(' ')
	return b.String()
}
