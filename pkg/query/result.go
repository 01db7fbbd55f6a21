package query

import (
	"context"
	"errors"
)

// MaxScore is given to every suggestion when nothing is being filtered, and to
// the translation result.
const MaxScore = 100

// Result is one item shown by the launcher.
type Result struct {
	Title    string
	SubTitle string
	IcoPath  string
	Score    int
	// Action runs when the user accepts the result. Nil means nothing happens.
	Action *Action
}

// Action asks the host to replace the live query with Query.
// Accepting it never closes the launcher window.
type Action struct {
	Query string
}

// IsCancelled reports whether err is the normal outcome of a query the host
// abandoned, rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
