package lexer

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dshills/tokeniter/internal/token"
)

// DefaultMemoTTL is how long memoized results are kept when no TTL is given.
const DefaultMemoTTL = 10 * time.Minute

// memoResult is one cached Tokenize result.
type memoResult struct {
	tokens []token.Token
	end    token.State
}

// MemoLexer wraps a Lexer and reuses results for identical (start state,
// line text) inputs. The wrapped lexer must be deterministic.
type MemoLexer struct {
	Lexer
	cache  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Memoize wraps l with a result cache whose entries expire after ttl.
func Memoize(l Lexer, ttl time.Duration) *MemoLexer {
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	return &MemoLexer{
		Lexer: l,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Tokenize returns the cached result for (line, start) or lexes the line.
// The returned token slice is shared between callers and must not be
// modified; the returned state is always a private copy.
func (m *MemoLexer) Tokenize(line string, start token.State) ([]token.Token, token.State) {
	key := memoKey(start, line)
	if v, ok := m.cache.Get(key); ok {
		if r, ok := v.(memoResult); ok {
			m.hits.Add(1)
			return r.tokens, r.end.Clone()
		}
	}
	m.misses.Add(1)

	tokens, end := m.Lexer.Tokenize(line, start)
	m.cache.Set(key, memoResult{tokens: tokens, end: end.Clone()}, gocache.DefaultExpiration)
	return tokens, end
}

// Unwrap returns the wrapped lexer.
func (m *MemoLexer) Unwrap() Lexer {
	return m.Lexer
}

// Stats returns the number of cache hits and misses.
func (m *MemoLexer) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

// Flush drops every memoized result.
func (m *MemoLexer) Flush() {
	m.cache.Flush()
}

func memoKey(start token.State, line string) string {
	var state string
	if start != nil {
		state = start.Key()
	}
	return state + "\x00" + line
}
