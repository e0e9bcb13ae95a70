package tokeniter

import (
	"fmt"
	"iter"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// Boundary selects which tokens on the first line FromPosition yields.
type Boundary uint8

const (
	// StartAfter yields tokens starting at or after the position.
	StartAfter Boundary = iota

	// StartOverlapping also yields the token that straddles the position,
	// i.e. every token ending after it. A token ending exactly at the
	// position is skipped.
	StartOverlapping

	// StartTouching also yields a token ending exactly at the position.
	StartTouching
)

// String implements fmt.Stringer.
func (b Boundary) String() string {
	switch b {
	case StartAfter:
		return "after"
	case StartOverlapping:
		return "overlapping"
	case StartTouching:
		return "touching"
	default:
		return fmt.Sprintf("Boundary(%d)", b)
	}
}

// skipper returns the predicate for first-line tokens to skip before col.
func (b Boundary) skipper(col uint32) func(token.Token) bool {
	switch b {
	case StartOverlapping:
		return func(t token.Token) bool { return t.EndCol <= col }
	case StartTouching:
		return func(t token.Token) bool { return t.EndCol < col }
	default:
		return func(t token.Token) bool { return t.StartCol < col }
	}
}

// Lines iterates the lines of a token window, yielding each line's tokens
// as a LineTokens.
//
// When a tracker state is given, every token the window consumes is fed to
// it: yielded tokens as they are pulled, and tokens skipped at the start of
// the window. Moving to the next line first feeds the unconsumed tokens of
// the previous line, so the tracker always holds the state before the next
// token pulled.
type Lines struct {
	cache   Cache
	tracker token.State

	next *document.Line
	last *document.Line

	// skip filters the start of the first line; stop ends the last line.
	skip func(token.Token) bool
	stop func(token.Token) bool

	cur *LineTokens
}

// FromPosition returns the tokens from pos to the end of the document.
// The boundary selects which tokens around pos are included. A non-nil
// tracker must hold the lexer state at the start of pos's line.
func FromPosition(c Cache, pos document.ByteOffset, tracker token.State, b Boundary) (*Lines, error) {
	line, col, err := locate(c.Document(), pos)
	if err != nil {
		return nil, fmt.Errorf("tokens from %d: %w", pos, err)
	}
	return &Lines{
		cache:   c,
		tracker: tracker,
		next:    line,
		skip:    b.skipper(col),
	}, nil
}

// SelectionTokens returns the tokens within sel.
//
// With partial set, tokens overlapping either end of the selection are
// included; otherwise only tokens lying entirely inside it are. Tokens
// excluded at the start are still fed to a non-nil tracker, which must hold
// the lexer state at the start of the selection's first line.
func SelectionTokens(c Cache, sel document.Selection, tracker token.State, partial bool) (*Lines, error) {
	doc := c.Document()
	r := sel.Range()
	first, startCol, err := locate(doc, r.Start)
	if err != nil {
		return nil, fmt.Errorf("selection %s: %w", sel, err)
	}
	last, endCol, err := locate(doc, r.End)
	if err != nil {
		return nil, fmt.Errorf("selection %s: %w", sel, err)
	}

	l := &Lines{
		cache:   c,
		tracker: tracker,
		next:    first,
		last:    last,
	}
	if partial {
		l.skip = func(t token.Token) bool { return t.EndCol <= startCol }
		l.stop = func(t token.Token) bool { return t.StartCol >= endCol }
	} else {
		l.skip = func(t token.Token) bool { return t.StartCol < startCol }
		l.stop = func(t token.Token) bool { return t.EndCol > endCol }
	}
	return l, nil
}

// Tracker returns the tracked state, or nil.
func (l *Lines) Tracker() token.State {
	return l.tracker
}

// Next advances to the next line of the window.
func (l *Lines) Next() (*LineTokens, bool) {
	if l.cur != nil {
		l.cur.drain()
	}
	line := l.next
	if line == nil {
		l.cur = nil
		return nil, false
	}

	lt := &LineTokens{owner: l, line: line, tokens: l.cache.Tokens(line)}
	if l.skip != nil {
		for lt.i < len(lt.tokens) && l.skip(lt.tokens[lt.i]) {
			l.follow(lt.tokens[lt.i])
			lt.i++
		}
		l.skip = nil
	}
	if line == l.last {
		lt.stop = l.stop
		l.next = nil
	} else {
		l.next = line.Next()
	}

	l.cur = lt
	return lt, true
}

// All returns an iterator over the remaining lines.
func (l *Lines) All() iter.Seq[*LineTokens] {
	return func(yield func(*LineTokens) bool) {
		for {
			lt, ok := l.Next()
			if !ok || !yield(lt) {
				return
			}
		}
	}
}

func (l *Lines) follow(t token.Token) {
	if l.tracker != nil {
		l.tracker.Follow(t)
	}
}

// LineTokens iterates the window's tokens on one line.
type LineTokens struct {
	owner  *Lines
	line   *document.Line
	tokens []token.Token
	i      int
	stop   func(token.Token) bool
	done   bool
}

// Line returns the line the tokens belong to.
func (lt *LineTokens) Line() *document.Line {
	return lt.line
}

// Next returns the next token on the line.
func (lt *LineTokens) Next() (token.Token, bool) {
	if lt.done || lt.i >= len(lt.tokens) {
		lt.done = true
		return token.Token{}, false
	}
	t := lt.tokens[lt.i]
	if lt.stop != nil && lt.stop(t) {
		lt.done = true
		return token.Token{}, false
	}
	lt.i++
	lt.owner.follow(t)
	return t, true
}

// All returns an iterator over the remaining tokens on the line.
func (lt *LineTokens) All() iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		for {
			t, ok := lt.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}

// drain consumes the remaining tokens so the tracker passes them.
func (lt *LineTokens) drain() {
	for {
		if _, ok := lt.Next(); !ok {
			return
		}
	}
}
