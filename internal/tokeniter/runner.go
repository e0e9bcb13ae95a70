package tokeniter

import (
	"iter"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// Runner is a bidirectional cursor over the tokens of a document.
//
// It holds the tokens of one line and an index into them: -1 before the
// first token and len(tokens) after the last. Stepping past a line's edge
// loads the neighbouring line from the cache. Walking past the start or
// end of the document stops the walk; the Runner stays on the edge line.
type Runner struct {
	cache  Cache
	line   *document.Line
	tokens []token.Token
	index  int
}

// NewRunner returns a Runner before the first token of line.
func NewRunner(c Cache, line *document.Line) *Runner {
	r := &Runner{cache: c}
	r.reset(line, false)
	return r
}

// NewRunnerAtEnd returns a Runner after the last token of line.
func NewRunnerAtEnd(c Cache, line *document.Line) *Runner {
	r := &Runner{cache: c}
	r.reset(line, true)
	return r
}

// NewRunnerAt returns a Runner on the token at or before pos, so that Token
// returns the token under a cursor at pos. At the end of a line it is on the
// line's last token; before a line's first token it is before the line.
func NewRunnerAt(c Cache, pos document.ByteOffset) (*Runner, error) {
	line, i, err := IndexAt(c, pos)
	if err != nil {
		return nil, err
	}
	r := NewRunner(c, line)
	r.index = min(i, len(r.tokens)-1)
	return r, nil
}

func (r *Runner) reset(line *document.Line, atEnd bool) {
	r.line = line
	r.tokens = r.cache.Tokens(line)
	if atEnd {
		r.index = len(r.tokens)
	} else {
		r.index = -1
	}
}

// NextOnLine steps to the next token on the current line.
func (r *Runner) NextOnLine() (token.Token, bool) {
	if r.index+1 >= len(r.tokens) {
		return token.Token{}, false
	}
	r.index++
	return r.tokens[r.index], true
}

// PrevOnLine steps to the previous token on the current line.
func (r *Runner) PrevOnLine() (token.Token, bool) {
	if r.index <= 0 {
		return token.Token{}, false
	}
	r.index--
	return r.tokens[r.index], true
}

// Next steps to the next token, moving down to following lines as needed.
func (r *Runner) Next() (token.Token, bool) {
	for {
		if t, ok := r.NextOnLine(); ok {
			return t, true
		}
		next := r.line.Next()
		if next == nil {
			return token.Token{}, false
		}
		r.reset(next, false)
	}
}

// Prev steps to the previous token, moving up to preceding lines as needed.
func (r *Runner) Prev() (token.Token, bool) {
	for {
		if t, ok := r.PrevOnLine(); ok {
			return t, true
		}
		prev := r.line.Previous()
		if prev == nil {
			return token.Token{}, false
		}
		r.reset(prev, true)
	}
}

// ForwardLine returns an iterator stepping forward on the current line.
func (r *Runner) ForwardLine() iter.Seq[token.Token] {
	return r.steps(r.NextOnLine)
}

// Forward returns an iterator stepping forward through the document.
func (r *Runner) Forward() iter.Seq[token.Token] {
	return r.steps(r.Next)
}

// BackwardLine returns an iterator stepping backward on the current line.
func (r *Runner) BackwardLine() iter.Seq[token.Token] {
	return r.steps(r.PrevOnLine)
}

// Backward returns an iterator stepping backward through the document.
func (r *Runner) Backward() iter.Seq[token.Token] {
	return r.steps(r.Prev)
}

func (r *Runner) steps(step func() (token.Token, bool)) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for {
			t, ok := step()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// AtLineStart reports whether no token precedes the current one on the line.
func (r *Runner) AtLineStart() bool {
	return r.index <= 0
}

// AtLineEnd reports whether no token follows the current one on the line.
func (r *Runner) AtLineEnd() bool {
	return r.index >= len(r.tokens)-1
}

// Line returns the current line.
func (r *Runner) Line() *document.Line {
	return r.line
}

// Index returns the index of the current token on the line.
func (r *Runner) Index() int {
	return r.index
}

// Token returns the current token. It fails with ErrNoCurrentToken when the
// Runner is before the first or after the last token of its line.
func (r *Runner) Token() (token.Token, error) {
	if r.index < 0 || r.index >= len(r.tokens) {
		return token.Token{}, ErrNoCurrentToken
	}
	return r.tokens[r.index], nil
}

// Cursor returns the selection covering bytes [start, end) of the current
// token; a negative end means the end of the token.
func (r *Runner) Cursor(start, end int) (document.Selection, error) {
	tok, err := r.Token()
	if err != nil {
		return document.Selection{}, err
	}
	return CursorSlice(r.line, tok, start, end), nil
}

// Copy returns an independent Runner at the same position. The copy shares
// the current line's tokens.
func (r *Runner) Copy() *Runner {
	cp := *r
	return &cp
}

// AllTokens returns an iterator over every token of the document with the
// line it belongs to.
func AllTokens(c Cache) iter.Seq2[*document.Line, token.Token] {
	return func(yield func(*document.Line, token.Token) bool) {
		for line := range c.Document().Lines() {
			for _, t := range c.Tokens(line) {
				if !yield(line, t) {
					return
				}
			}
		}
	}
}
