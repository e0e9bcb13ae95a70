package lexer

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/dshills/tokeniter/internal/token"
)

// Rule is one pattern of a RuleLexer mode.
type Rule struct {
	// Pattern matches at the current position only.
	Pattern *regexp.Regexp

	// Type is the type assigned to matches.
	Type token.Type

	// Pop is the number of modes the match leaves.
	Pop uint8

	// Push is the mode the match enters after popping.
	Push string
}

// mode is a named set of rules.
// Text no rule matches becomes a token of type body, or is skipped when
// body is token.None.
type mode struct {
	name  string
	body  token.Type
	rules []Rule
}

// RuleLexer is a regex-based lexer driven by a token.ModeStack.
//
// Each mode holds an ordered rule list; at every position the first rule
// whose pattern matches a non-empty prefix wins. Matches carry their mode
// transitions in the token, so a ModeStack following the tokens reproduces
// the lexer's end state exactly.
type RuleLexer struct {
	language   string
	extensions []string
	modes      map[string]*mode
	keywords   map[string]token.Type
	initial    []string
}

// NewRuleLexer creates a lexer with an empty root mode.
func NewRuleLexer(language string, extensions ...string) *RuleLexer {
	return &RuleLexer{
		language:   language,
		extensions: extensions,
		modes: map[string]*mode{
			token.RootMode: {name: token.RootMode},
		},
		keywords: make(map[string]token.Type),
	}
}

// Mode declares a mode whose unmatched text is emitted as body tokens.
func (l *RuleLexer) Mode(name string, body token.Type) *RuleLexer {
	l.mode(name).body = body
	return l
}

func (l *RuleLexer) mode(name string) *mode {
	m, ok := l.modes[name]
	if !ok {
		m = &mode{name: name}
		l.modes[name] = m
	}
	return m
}

// AddTransition adds a rule to mode that pops and pushes modes.
// The pattern is anchored at the current position.
func (l *RuleLexer) AddTransition(modeName, pattern string, typ token.Type, pop uint8, push string) *RuleLexer {
	m := l.mode(modeName)
	m.rules = append(m.rules, Rule{
		Pattern: regexp.MustCompile(`^(?:` + pattern + `)`),
		Type:    typ,
		Pop:     pop,
		Push:    push,
	})
	return l
}

// AddRule adds a rule that does not change modes.
func (l *RuleLexer) AddRule(modeName, pattern string, typ token.Type) *RuleLexer {
	return l.AddTransition(modeName, pattern, typ, 0, "")
}

// AddEnter adds a rule that enters a nested mode.
func (l *RuleLexer) AddEnter(modeName, pattern string, typ token.Type, push string) *RuleLexer {
	return l.AddTransition(modeName, pattern, typ, 0, push)
}

// AddLeave adds a rule that returns to the enclosing mode.
func (l *RuleLexer) AddLeave(modeName, pattern string, typ token.Type) *RuleLexer {
	return l.AddTransition(modeName, pattern, typ, 1, "")
}

// Include appends the rules of mode from to mode into.
func (l *RuleLexer) Include(into, from string) *RuleLexer {
	dst := l.mode(into)
	dst.rules = append(dst.rules, l.mode(from).rules...)
	return l
}

// AddKeywords retypes identifier matches equal to one of words.
func (l *RuleLexer) AddKeywords(typ token.Type, words ...string) *RuleLexer {
	for _, w := range words {
		l.keywords[w] = typ
	}
	return l
}

// StartIn sets the modes the document starts in, innermost last.
func (l *RuleLexer) StartIn(modes ...string) *RuleLexer {
	l.initial = modes
	return l
}

// Check verifies that every pushed mode is declared.
func (l *RuleLexer) Check() error {
	for _, m := range l.modes {
		for _, r := range m.rules {
			if r.Push == "" {
				continue
			}
			if _, ok := l.modes[r.Push]; !ok {
				return fmt.Errorf("%s: mode %q pushes undeclared mode %q", l.language, m.name, r.Push)
			}
		}
	}
	for _, name := range l.initial {
		if _, ok := l.modes[name]; !ok {
			return fmt.Errorf("%s: initial mode %q is undeclared", l.language, name)
		}
	}
	return nil
}

// Language returns the language name.
func (l *RuleLexer) Language() string {
	return l.language
}

// FileExtensions returns the supported file extensions.
func (l *RuleLexer) FileExtensions() []string {
	return l.extensions
}

// InitialState returns the mode stack at the start of a document.
func (l *RuleLexer) InitialState() token.State {
	return token.NewModeStack(l.initial...)
}

// Tokenize lexes a single line.
func (l *RuleLexer) Tokenize(line string, start token.State) ([]token.Token, token.State) {
	state, ok := start.(*token.ModeStack)
	if ok {
		state = state.Copy()
	} else {
		state = token.NewModeStack(l.initial...)
	}

	tokens := make([]token.Token, 0, 8)
	bodyStart := -1
	var bodyType token.Type

	flush := func(end int) {
		if bodyStart < 0 {
			return
		}
		tokens = append(tokens, token.Token{
			Type:     bodyType,
			StartCol: token.Col(bodyStart),
			EndCol:   token.Col(end),
			Text:     line[bodyStart:end],
		})
		bodyStart = -1
	}

	pos := 0
	for pos < len(line) {
		m := l.modeFor(state.Top())
		tok, ok := l.match(m, line, pos)
		if !ok {
			if m.body != token.None && bodyStart < 0 {
				bodyStart = pos
				bodyType = m.body
			}
			_, size := utf8.DecodeRuneInString(line[pos:])
			pos += size
			continue
		}
		flush(pos)
		tokens = append(tokens, tok)
		state.Follow(tok)
		pos = int(tok.EndCol)
	}
	flush(len(line))

	return tokens, state
}

// modeFor returns the named mode, falling back to root for unknown names.
func (l *RuleLexer) modeFor(name string) *mode {
	if m, ok := l.modes[name]; ok {
		return m
	}
	return l.modes[token.RootMode]
}

// match tries the rules of m at pos.
func (l *RuleLexer) match(m *mode, line string, pos int) (token.Token, bool) {
	rest := line[pos:]
	for _, r := range m.rules {
		loc := r.Pattern.FindStringIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		text := rest[:loc[1]]
		typ := r.Type
		if typ == token.Identifier {
			if kw, ok := l.keywords[text]; ok {
				typ = kw
			}
		}
		return token.Token{
			Type:     typ,
			StartCol: token.Col(pos),
			EndCol:   token.Col(pos + loc[1]),
			Text:     text,
			Pop:      r.Pop,
			Push:     r.Push,
		}, true
	}
	return token.Token{}, false
}
