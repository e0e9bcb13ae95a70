// Package tokencache keeps the tokens and lexer states of a document's
// lines and recomputes them lazily.
//
// A line is lexed starting from the end state of the line above it, so the
// cache resolves missing predecessors first: it walks up to the nearest
// line with a fresh entry (or the document start) and lexes downward from
// there. The walk is iterative and never re-lexes a line whose entry is
// still fresh.
//
// A Cache is attached to one document and follows its edits. Like the
// document, it must be confined to one goroutine.
package tokencache

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/logging"
	"github.com/dshills/tokeniter/internal/token"
)

// ErrNoDocument is returned when a cache is created without a document.
var ErrNoDocument = errors.New("no document")

// entry is the cached lexer result for one line.
type entry struct {
	tokens []token.Token

	// start is the state the line was lexed from; end is the state after it.
	start token.State
	end   token.State

	// valid is false once the line's text changed.
	valid bool

	// suspect is set when a line above changed; the start state must be
	// compared before the entry is used again.
	suspect bool

	access uint64
}

func (e *entry) fresh() bool {
	return e != nil && e.valid && !e.suspect
}

// Cache is the per-line token cache of a document.
type Cache struct {
	doc   *document.Document
	lexer lexer.Lexer
	cfg   Config
	log   *logging.Logger

	entries map[*document.Line]*entry
	clock   uint64

	unsubscribe func()

	hits       atomic.Uint64
	misses     atomic.Uint64
	lexed      atomic.Uint64
	reverified atomic.Uint64
	evictions  atomic.Uint64
}

// New creates a cache for doc using lx and attaches it to doc's edits.
// A nil lexer is a configuration error and returns lexer.ErrNoLexer.
func New(doc *document.Document, lx lexer.Lexer, opts ...Option) (*Cache, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	if lx == nil {
		return nil, fmt.Errorf("token cache for document %s: %w", doc.ID(), lexer.ErrNoLexer)
	}

	c := &Cache{
		doc:     doc,
		lexer:   lx,
		cfg:     DefaultConfig(),
		log:     logging.Discard(),
		entries: make(map[*document.Line]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.EvictionBatchSize <= 0 {
		c.cfg.EvictionBatchSize = DefaultConfig().EvictionBatchSize
	}
	c.log = c.log.WithComponent("tokencache").WithFields(map[string]any{
		"doc":   doc.ID(),
		"lexer": lx.Language(),
	})

	c.Attach()
	return c, nil
}

// Document returns the cached document.
func (c *Cache) Document() *document.Document {
	return c.doc
}

// Lexer returns the lexer used by the cache.
func (c *Cache) Lexer() lexer.Lexer {
	return c.lexer
}

// Policy returns the edit propagation policy.
func (c *Cache) Policy() Propagation {
	return c.cfg.Propagation
}

// Attach subscribes the cache to document edits. It is called by New and
// only needs to be called again after Close.
func (c *Cache) Attach() {
	if c.unsubscribe != nil {
		return
	}
	c.unsubscribe = c.doc.OnChange(c.onChange)
}

// Close unsubscribes the cache from document edits. Cached entries are kept
// but no longer follow the document.
func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Tokens returns the tokens of line, lexing it and any unresolved lines
// above it first. The returned slice must not be modified.
func (c *Cache) Tokens(line *document.Line) []token.Token {
	return c.ensure(line).tokens
}

// StateAtStart returns the lexer state at the start of line: the lexer's
// initial state for the first line, otherwise the end state of the line
// above. The result is a copy the caller may advance.
func (c *Cache) StateAtStart(line *document.Line) token.State {
	c.check(line)
	prev := line.Previous()
	if prev == nil {
		return c.lexer.InitialState()
	}
	return c.ensure(prev).end.Clone()
}

// EndState returns a copy of the lexer state at the end of line.
func (c *Cache) EndState(line *document.Line) token.State {
	return c.ensure(line).end.Clone()
}

// Has reports whether line has a fresh entry, i.e. whether reading its
// tokens would not need the lexer.
func (c *Cache) Has(line *document.Line) bool {
	return c.entries[line].fresh()
}

// Invalidate drops the tokens of line. Lines below are not affected;
// propagation is applied by the edit handler or by Refresh.
func (c *Cache) Invalidate(line *document.Line) {
	if e, ok := c.entries[line]; ok {
		e.valid = false
		e.tokens = nil
	}
}

// Update invalidates line and re-tokenizes it immediately.
func (c *Cache) Update(line *document.Line) []token.Token {
	c.Invalidate(line)
	return c.Tokens(line)
}

// Refresh re-tokenizes from line downward until the state stabilizes: it
// stops at the first valid line whose cached start state equals the newly
// computed one, or once no cached lines remain below. It returns the number
// of lines lexed.
func (c *Cache) Refresh(from *document.Line) int {
	state := c.StateAtStart(from)

	// Cached lines at or below from; past them nothing can be stale.
	remaining := 0
	for l := range c.entries {
		if l.Index() >= from.Index() {
			remaining++
		}
	}

	lexed := 0
	for l := from; l != nil; l = l.Next() {
		e := c.entries[l]
		if e != nil {
			remaining--
			if e.valid && token.SameState(e.start, state) {
				e.suspect = false
				break
			}
		} else if remaining == 0 && l != from {
			break
		}
		state = c.lex(l, state)
		lexed++
	}

	c.log.Debug("refreshed %d lines from line %d", lexed, from.Index())
	c.evictIfNeeded(from)
	return lexed
}

// ensure returns a fresh entry for line, computing it if needed.
func (c *Cache) ensure(line *document.Line) *entry {
	c.check(line)
	c.clock++

	if e := c.entries[line]; e.fresh() {
		c.hits.Add(1)
		e.access = c.clock
		return e
	}
	c.misses.Add(1)

	// Walk up to the nearest fresh line, then resolve downward.
	var pending []*document.Line
	cur := line
	for cur != nil && !c.entries[cur].fresh() {
		pending = append(pending, cur)
		cur = cur.Previous()
	}

	var state token.State
	if cur == nil {
		state = c.lexer.InitialState()
	} else {
		state = c.entries[cur].end
	}
	for i := len(pending) - 1; i >= 0; i-- {
		state = c.resolve(pending[i], state)
	}

	e := c.entries[line]
	c.evictIfNeeded(line, line.Previous())
	return e
}

// resolve makes the entry of line fresh given its start state and returns
// its end state. A suspect entry lexed from an equal state is reused.
func (c *Cache) resolve(line *document.Line, start token.State) token.State {
	if e := c.entries[line]; e != nil && e.valid && e.suspect && token.SameState(e.start, start) {
		e.suspect = false
		e.access = c.clock
		c.reverified.Add(1)
		return e.end
	}
	return c.lex(line, start)
}

// lex runs the lexer on line and stores the result.
func (c *Cache) lex(line *document.Line, start token.State) token.State {
	text := line.Text()
	tokens, end := c.lexer.Tokenize(text, start)
	c.lexed.Add(1)

	if c.cfg.Strict {
		c.verify(line, text, start, tokens, end)
	}

	c.entries[line] = &entry{
		tokens: tokens,
		start:  start.Clone(),
		end:    end,
		valid:  true,
		access: c.clock,
	}
	return end
}

// verify panics when the lexer broke its contract.
func (c *Cache) verify(line *document.Line, text string, start token.State, tokens []token.Token, end token.State) {
	if err := lexer.Validate(tokens, len(text)); err != nil {
		panic(fmt.Sprintf("tokencache: lexer %s, line %d: %v", c.lexer.Language(), line.Index(), err))
	}
	if followed := token.FollowAll(start.Clone(), tokens); !token.SameState(followed, end) {
		panic(fmt.Sprintf("tokencache: lexer %s, line %d: end state %s, tokens lead to %s",
			c.lexer.Language(), line.Index(), end.Key(), followed.Key()))
	}
}

// check panics when line is not part of the cached document.
func (c *Cache) check(line *document.Line) {
	if line == nil || line.Document() != c.doc {
		panic("tokencache: line is not part of the cached document")
	}
}

// onChange applies an edit to the cache.
func (c *Cache) onChange(ch document.Change) {
	for _, l := range ch.Removed {
		delete(c.entries, l)
	}
	c.Invalidate(ch.First)
	for _, l := range ch.Added {
		c.Invalidate(l)
	}

	c.log.Debug("edit r%d at line %d: %d removed, %d added, %s propagation",
		ch.Revision, ch.First.Index(), len(ch.Removed), len(ch.Added), c.cfg.Propagation)

	switch c.cfg.Propagation {
	case PropagateLazy:
		c.markSuspectBelow(ch.Last())
	case PropagateEager:
		c.Refresh(ch.First)
	case PropagateNone:
	}
}

// markSuspectBelow marks every cached line below last as suspect.
func (c *Cache) markSuspectBelow(last *document.Line) {
	idx := last.Index()
	for l, e := range c.entries {
		if l.Index() > idx {
			e.suspect = true
		}
	}
}

// evictIfNeeded drops the least recently used entries when the cache is
// over its bound. The batch is capped at half the bound, and the keep lines
// are never evicted so the next line down can be resolved from them.
func (c *Cache) evictIfNeeded(keep ...*document.Line) {
	if c.cfg.MaxLines <= 0 || len(c.entries) <= c.cfg.MaxLines {
		return
	}

	type entryInfo struct {
		line   *document.Line
		access uint64
	}
	infos := make([]entryInfo, 0, len(c.entries))
	for l, e := range c.entries {
		if !slices.Contains(keep, l) {
			infos = append(infos, entryInfo{l, e.access})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].access < infos[j].access
	})

	batch := min(c.cfg.EvictionBatchSize, c.cfg.MaxLines/2)
	toEvict := min(len(c.entries)-c.cfg.MaxLines+batch, len(infos))
	for _, info := range infos[:toEvict] {
		delete(c.entries, info.line)
	}
	c.evictions.Add(uint64(toEvict))
	c.log.Debug("evicted %d lines", toEvict)
}

// Stats holds cache statistics.
type Stats struct {
	Lines      int
	MaxLines   int
	Hits       uint64
	Misses     uint64
	Lexed      uint64
	Reverified uint64
	Evictions  uint64
	HitRate    float64
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Lines:      len(c.entries),
		MaxLines:   c.cfg.MaxLines,
		Hits:       hits,
		Misses:     misses,
		Lexed:      c.lexed.Load(),
		Reverified: c.reverified.Load(),
		Evictions:  c.evictions.Load(),
		HitRate:    hitRate,
	}
}
