// Package tokeniter navigates the tokens of a document held in a token
// cache.
//
// It maps document positions to token indices and to the partition of a
// line's tokens around a cursor, iterates tokens forward from a position or
// within a selection (optionally advancing a lexer state as tokens are
// consumed), flattens those per-line iterators into a single Source, and
// walks tokens in both directions with a Runner.
//
// All iterators are single-pass and pull-based. Tokens are fetched from the
// cache one line at a time, so no full-document token list is built.
package tokeniter

import (
	"errors"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// ErrNoCurrentToken is returned when a Runner is asked for its token before
// it has stepped onto one.
var ErrNoCurrentToken = errors.New("runner is not on a token")

// Cache provides the tokens of a document's lines.
// *tokencache.Cache implements it.
type Cache interface {
	// Document returns the document the tokens belong to.
	Document() *document.Document

	// Tokens returns the tokens of line. The slice must not be modified.
	Tokens(line *document.Line) []token.Token

	// StateAtStart returns a copy of the lexer state at the start of line.
	StateAtStart(line *document.Line) token.State
}
