package tokencache

import (
	"fmt"
	"strings"

	"github.com/dshills/tokeniter/internal/logging"
)

// Propagation selects how an edit affects cached lines below it.
type Propagation uint8

const (
	// PropagateLazy marks cached lines below an edit as suspect. A suspect
	// line is re-verified when it is next read: if its start state is
	// unchanged its tokens are reused without calling the lexer.
	PropagateLazy Propagation = iota

	// PropagateNone invalidates only the edited lines. Keeping lines below
	// consistent is left to the caller.
	PropagateNone

	// PropagateEager re-tokenizes from the edit downward until a cached
	// line's start state is unchanged.
	PropagateEager
)

var propagationNames = [...]string{
	PropagateLazy:  "lazy",
	PropagateNone:  "none",
	PropagateEager: "eager",
}

// String returns the configuration name of p.
func (p Propagation) String() string {
	if int(p) < len(propagationNames) {
		return propagationNames[p]
	}
	return fmt.Sprintf("Propagation(%d)", p)
}

// ParsePropagation parses "none", "lazy" or "eager".
func ParsePropagation(s string) (Propagation, error) {
	for p, name := range propagationNames {
		if strings.EqualFold(s, name) {
			return Propagation(p), nil
		}
	}
	return PropagateLazy, fmt.Errorf("unknown propagation policy %q", s)
}

// Config configures a Cache.
type Config struct {
	// MaxLines bounds the number of cached lines. Zero means unbounded.
	// The line last read and the line above it are always kept.
	MaxLines int

	// EvictionBatchSize is the number of extra entries evicted when the
	// cache overflows, at most MaxLines/2.
	EvictionBatchSize int

	// Propagation is the policy applied on document edits.
	Propagation Propagation

	// Strict checks every lexer result and panics on a violation.
	Strict bool
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxLines:          0,
		EvictionBatchSize: 64,
		Propagation:       PropagateLazy,
	}
}

// Option configures a Cache.
type Option func(*Cache)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Cache) {
		c.cfg = cfg
	}
}

// WithPropagation sets the edit propagation policy.
func WithPropagation(p Propagation) Option {
	return func(c *Cache) {
		c.cfg.Propagation = p
	}
}

// WithMaxLines bounds the number of cached lines.
func WithMaxLines(n int) Option {
	return func(c *Cache) {
		c.cfg.MaxLines = n
	}
}

// WithStrict enables lexer result checking.
func WithStrict(strict bool) Option {
	return func(c *Cache) {
		c.cfg.Strict = strict
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}
