// Package query turns a raw launcher query into language suggestions or a
// translation result.
//
// A query is read token by token: "<source> <target> <text...>". While fewer
// than three tokens are present the user is still picking languages and gets
// suggestions; from the third token on the rest of the line is the text to
// translate.
package query

import (
	"strings"

	"github.com/dasmlab/flowlibre/pkg/catalog"
)

// Mode is what the interpreter should do with a query.
type Mode int

const (
	// ModeSuggest lists languages the user can pick next.
	ModeSuggest Mode = iota
	// ModeIdle shows nothing: both codes are picked but no text was typed yet.
	ModeIdle
	// ModeTranslate sends the text to the provider.
	ModeTranslate
)

func (m Mode) String() string {
	switch m {
	case ModeSuggest:
		return "suggest"
	case ModeIdle:
		return "idle"
	case ModeTranslate:
		return "translate"
	default:
		return "unknown"
	}
}

// State is the parsed form of one raw query. It is recomputed on every query.
type State struct {
	Tokens []string
	// SemiCompleted is true when there are no tokens or the last token is a
	// known language code, i.e. the user just finished picking a language.
	SemiCompleted bool
	Mode          Mode

	// Only set in ModeTranslate.
	SourceCode string
	TargetCode string
	FreeText   string
}

// LastToken returns the token being typed, or "" for an empty query.
func (s State) LastToken() string {
	if len(s.Tokens) == 0 {
		return ""
	}
	return s.Tokens[len(s.Tokens)-1]
}

// Classify parses raw against cat. It is pure: the same input always yields
// the same State.
func Classify(raw string, cat *catalog.Catalog) State {
	tokens := strings.Fields(raw)
	state := State{
		Tokens:        tokens,
		SemiCompleted: len(tokens) == 0 || cat.Has(tokens[len(tokens)-1]),
	}

	switch {
	case len(tokens) >= 3:
		state.Mode = ModeTranslate
		state.SourceCode = tokens[0]
		state.TargetCode = tokens[1]
		state.FreeText = strings.Join(tokens[2:], " ")
	case len(tokens) == 2 && state.SemiCompleted:
		state.Mode = ModeIdle
	default:
		state.Mode = ModeSuggest
	}

	return state
}
