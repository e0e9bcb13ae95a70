// Package lexer defines the line lexer contract the token cache depends on,
// a registry of lexers by language and file extension, and a deterministic
// rule-based lexer with built-in languages.
package lexer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/tokeniter/internal/token"
)

// Errors returned by lexer lookup and validation.
var (
	// ErrNoLexer indicates that no lexer is configured for a document.
	// It is a configuration error and is not retried.
	ErrNoLexer = errors.New("no lexer configured")

	// ErrInvalidTokens indicates a lexer produced tokens that overlap, are
	// out of order, or fall outside the line.
	ErrInvalidTokens = errors.New("invalid token sequence")
)

// Lexer turns the text of one line into tokens, given the state at the
// start of the line.
//
// Implementations must be deterministic: the same (line, start) always
// yields identical output. Tokenize must not mutate start; the returned end
// state must equal start followed by every returned token.
type Lexer interface {
	// Language returns the language this lexer supports.
	Language() string

	// FileExtensions returns the file extensions this lexer handles.
	FileExtensions() []string

	// InitialState returns the state at the start of a document.
	InitialState() token.State

	// Tokenize lexes a single line without its line separator.
	Tokenize(line string, start token.State) ([]token.Token, token.State)
}

// Validate checks that tokens are ordered, non-empty, non-overlapping and
// within a line of lineLen bytes.
func Validate(tokens []token.Token, lineLen int) error {
	var prevEnd uint32
	for i, tok := range tokens {
		switch {
		case tok.StartCol >= tok.EndCol:
			return fmt.Errorf("token %d [%d:%d) is empty: %w", i, tok.StartCol, tok.EndCol, ErrInvalidTokens)
		case tok.StartCol < prevEnd:
			return fmt.Errorf("token %d starts at %d before previous end %d: %w", i, tok.StartCol, prevEnd, ErrInvalidTokens)
		case int(tok.EndCol) > lineLen:
			return fmt.Errorf("token %d ends at %d past line length %d: %w", i, tok.EndCol, lineLen, ErrInvalidTokens)
		}
		prevEnd = tok.EndCol
	}
	return nil
}

// Registry manages available lexers.
type Registry struct {
	mu sync.RWMutex

	// byLanguage maps language names to lexers
	byLanguage map[string]Lexer

	// byExtension maps file extensions to lexers
	byExtension map[string]Lexer
}

// NewRegistry creates a new, empty lexer registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:  make(map[string]Lexer),
		byExtension: make(map[string]Lexer),
	}
}

// DefaultRegistry returns a registry with the built-in lexers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, l := range Builtins() {
		r.Register(l)
	}
	return r
}

// Register adds a lexer to the registry, replacing any lexer previously
// registered for the same language or extensions.
func (r *Registry) Register(l Lexer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[l.Language()] = l
	for _, ext := range l.FileExtensions() {
		r.byExtension[normalizeExt(ext)] = l
	}
}

// GetByLanguage returns the lexer for the given language.
func (r *Registry) GetByLanguage(language string) (Lexer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byLanguage[language]
	return l, ok
}

// GetByExtension returns the lexer for the given file extension.
func (r *Registry) GetByExtension(ext string) (Lexer, bool) {
	if ext == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byExtension[normalizeExt(ext)]
	return l, ok
}

// Lookup resolves a lexer by explicit language, falling back to the
// extension of path. It returns ErrNoLexer when neither matches.
func (r *Registry) Lookup(language, path string) (Lexer, error) {
	if language != "" {
		if l, ok := r.GetByLanguage(language); ok {
			return l, nil
		}
		return nil, fmt.Errorf("language %q: %w", language, ErrNoLexer)
	}
	if l, ok := r.GetByExtension(filepath.Ext(path)); ok {
		return l, nil
	}
	return nil, fmt.Errorf("file %q: %w", path, ErrNoLexer)
}

// Languages returns all registered language names, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// normalizeExt lowercases ext and ensures it starts with a dot.
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
