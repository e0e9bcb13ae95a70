package tokeniter

import (
	"iter"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// Source flattens a token window into one forward sequence.
//
// The current line's remaining tokens are exposed as a LineTokens that
// shares the walk with Source itself: tokens taken from one are not seen
// by the other.
type Source struct {
	lines *Lines
	cur   *LineTokens
	line  *document.Line
}

// NewSource wraps lines, moving onto the first line immediately.
func NewSource(lines *Lines) *Source {
	s := &Source{lines: lines}
	s.advance()
	return s
}

// SourceFromPosition returns a Source over the tokens from pos to the end
// of the document. With withState set, the lexer state is tracked and
// available from State.
func SourceFromPosition(c Cache, pos document.ByteOffset, withState bool, b Boundary) (*Source, error) {
	var tracker token.State
	if withState {
		line, _, err := locate(c.Document(), pos)
		if err != nil {
			return nil, err
		}
		tracker = c.StateAtStart(line)
	}
	lines, err := FromPosition(c, pos, tracker, b)
	if err != nil {
		return nil, err
	}
	return NewSource(lines), nil
}

// SourceSelection returns a Source over the tokens within sel.
func SourceSelection(c Cache, sel document.Selection, withState bool, partial bool) (*Source, error) {
	var tracker token.State
	if withState {
		line, _, err := locate(c.Document(), sel.Start())
		if err != nil {
			return nil, err
		}
		tracker = c.StateAtStart(line)
	}
	lines, err := SelectionTokens(c, sel, tracker, partial)
	if err != nil {
		return nil, err
	}
	return NewSource(lines), nil
}

func (s *Source) advance() bool {
	lt, ok := s.lines.Next()
	if !ok {
		s.cur = nil
		return false
	}
	s.cur = lt
	s.line = lt.Line()
	return true
}

// Next returns the next token, moving to following lines as needed.
func (s *Source) Next() (token.Token, bool) {
	for s.cur != nil {
		if t, ok := s.cur.Next(); ok {
			return t, true
		}
		s.advance()
	}
	return token.Token{}, false
}

// All returns an iterator over the remaining tokens.
func (s *Source) All() iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for {
			t, ok := s.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// Line returns the current line. After the source is exhausted it is the
// last line visited.
func (s *Source) Line() *document.Line {
	return s.line
}

// Tokens returns the remaining tokens of the current line, or nil once the
// source is exhausted.
func (s *Source) Tokens() *LineTokens {
	return s.cur
}

// State returns the tracked lexer state, or nil without tracking.
func (s *Source) State() token.State {
	return s.lines.Tracker()
}

// Cursor returns the selection covering bytes [start, end) of tok on the
// current line; a negative end means the end of the token.
func (s *Source) Cursor(tok token.Token, start, end int) document.Selection {
	return CursorSlice(s.line, tok, start, end)
}
