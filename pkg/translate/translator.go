package translate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the provider cannot be reached or answers
	// with a non-success status.
	ErrTransport = errors.New("translation transport error")

	// ErrMalformedResponse is returned when the provider answers successfully but
	// the body cannot be decoded or lacks the expected fields.
	// It wraps ErrTransport so callers can treat both the same way.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrTransport)
)

// Language is a single entry of the provider's language list.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Request holds the fields sent to the provider's translate endpoint.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Translator defines the interface for the remote translation API.
type Translator interface {
	// Translate translates req.Text from req.SourceLang to req.TargetLang.
	// Codes are passed through as-is; they must already be valid provider codes.
	Translate(ctx context.Context, req Request) (string, error)

	// CheckHealth verifies that the translation backend is reachable.
	CheckHealth(ctx context.Context) error

	// SupportedLanguages returns the provider's language list in feed order.
	SupportedLanguages(ctx context.Context) ([]Language, error)
}
