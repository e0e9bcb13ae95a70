// Package lua loads line lexers written in Lua.
//
// A script defines the globals
//
//	language   = "ini"                 -- required
//	extensions = { ".ini", ".cfg" }    -- optional
//	initial    = { "section" }         -- optional start modes, innermost last
//
//	function tokenize(line, modes)     -- required
//	  return { { start = 1, stop = 3, type = "keyword", push = "x", pop = 0 } }
//	end
//
// modes lists the open modes above the root, innermost last. start and stop
// are 1-based inclusive byte positions, as returned by string.find. type is
// a dotted scope name such as "comment.block". push and pop are optional.
//
// Scripts run in a state with only the base, table, string and math
// libraries; file loading and module functions are removed.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/logging"
	"github.com/dshills/tokeniter/internal/token"
)

// DefaultTimeout bounds a single script call.
const DefaultTimeout = time.Second

// Lexer is a lexer.Lexer backed by a Lua script.
//
// gopher-lua states are not goroutine-safe; calls are serialized by a mutex.
type Lexer struct {
	mu sync.Mutex

	L        *lua.LState
	script   string
	tokenize *lua.LFunction

	language   string
	extensions []string
	initial    []string

	timeout time.Duration
	log     *logging.Logger

	lastErr  error
	failures uint64
	closed   bool
}

var _ lexer.Lexer = (*Lexer)(nil)

// Option configures a Lexer.
type Option func(*Lexer)

// WithTimeout sets the time limit for loading the script and for each
// tokenize call.
func WithTimeout(d time.Duration) Option {
	return func(l *Lexer) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger that receives script runtime errors.
func WithLogger(log *logging.Logger) Option {
	return func(l *Lexer) {
		if log != nil {
			l.log = log
		}
	}
}

// Load reads and runs the script at path.
func Load(path string, opts ...Option) (*Lexer, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScriptError{Script: path, Op: "read", Err: err}
	}
	return LoadString(filepath.Base(path), string(src), opts...)
}

// LoadString runs the script source and checks the globals it defines.
// The name is used in errors and logs.
func LoadString(name, src string, opts ...Option) (*Lexer, error) {
	l := &Lexer{
		script:  name,
		timeout: DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("lua").WithField("script", name)

	l.L = newSandbox()
	if err := l.load(src); err != nil {
		l.L.Close()
		return nil, err
	}
	return l, nil
}

// newSandbox creates a Lua state with only safe libraries.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "module", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func (l *Lexer) load(src string) error {
	err := l.withDeadline(func() error {
		return l.L.DoString(src)
	})
	if err != nil {
		return &ScriptError{Script: l.script, Op: "load", Err: err}
	}

	lang, ok := l.L.GetGlobal("language").(lua.LString)
	if !ok || lang == "" {
		return &ScriptError{Script: l.script, Op: "load", Err: ErrMissingLanguage}
	}
	l.language = string(lang)

	fn, ok := l.L.GetGlobal("tokenize").(*lua.LFunction)
	if !ok {
		return &ScriptError{Script: l.script, Op: "load", Err: ErrMissingTokenize}
	}
	l.tokenize = fn

	l.extensions = stringList(l.L.GetGlobal("extensions"))
	l.initial = stringList(l.L.GetGlobal("initial"))
	return nil
}

// withDeadline runs fn with the call timeout installed on the state.
func (l *Lexer) withDeadline(fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	l.L.SetContext(ctx)
	defer l.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// stringList converts a Lua array of strings, skipping other values.
func stringList(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.Len(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// Language returns the language declared by the script.
func (l *Lexer) Language() string {
	return l.language
}

// FileExtensions returns the extensions declared by the script.
func (l *Lexer) FileExtensions() []string {
	return l.extensions
}

// InitialState returns the modes declared by the script's initial global.
func (l *Lexer) InitialState() token.State {
	return token.NewModeStack(l.initial...)
}

// Tokenize calls the script's tokenize function.
//
// A script error or a malformed result yields no tokens and leaves the
// state unchanged; the error is logged and kept for Err.
func (l *Lexer) Tokenize(line string, start token.State) ([]token.Token, token.State) {
	state, ok := start.(*token.ModeStack)
	if ok {
		state = state.Copy()
	} else {
		state = token.NewModeStack(l.initial...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.fail(ErrClosed)
		return nil, state
	}

	tokens, err := l.call(line, state)
	if err == nil {
		err = lexer.Validate(tokens, len(line))
	}
	if err != nil {
		l.fail(&ScriptError{Script: l.script, Op: "tokenize", Err: err})
		return nil, state
	}

	for _, tok := range tokens {
		state.Follow(tok)
	}
	return tokens, state
}

func (l *Lexer) call(line string, state *token.ModeStack) ([]token.Token, error) {
	modes := l.L.NewTable()
	for _, m := range state.Modes() {
		modes.Append(lua.LString(m))
	}

	var result lua.LValue
	err := l.withDeadline(func() error {
		if err := l.L.CallByParam(lua.P{
			Fn:      l.tokenize,
			NRet:    1,
			Protect: true,
		}, lua.LString(line), modes); err != nil {
			return err
		}
		result = l.L.Get(-1)
		l.L.Pop(1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch v := result.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		return convertTokens(line, v)
	default:
		return nil, fmt.Errorf("tokenize returned %s: %w", result.Type(), ErrBadResult)
	}
}

// convertTokens turns the script's token tables into tokens.
func convertTokens(line string, tbl *lua.LTable) ([]token.Token, error) {
	n := tbl.Len()
	tokens := make([]token.Token, 0, n)
	for i := 1; i <= n; i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("token %d is not a table: %w", i, ErrBadResult)
		}

		start, okStart := entry.RawGetString("start").(lua.LNumber)
		stop, okStop := entry.RawGetString("stop").(lua.LNumber)
		if !okStart || !okStop {
			return nil, fmt.Errorf("token %d needs numeric start and stop: %w", i, ErrBadResult)
		}
		first, last := int(start), int(stop)
		if first < 1 || last < first || last > len(line) {
			return nil, fmt.Errorf("token %d range %d..%d outside line of %d bytes: %w",
				i, first, last, len(line), ErrBadResult)
		}

		tok := token.Token{
			Type:     token.Text,
			StartCol: token.Col(first - 1),
			EndCol:   token.Col(last),
			Text:     line[first-1 : last],
		}
		if s, ok := entry.RawGetString("type").(lua.LString); ok {
			tok.Type = token.TypeFromString(string(s))
		}
		if s, ok := entry.RawGetString("push").(lua.LString); ok {
			tok.Push = string(s)
		}
		if p, ok := entry.RawGetString("pop").(lua.LNumber); ok {
			pop, err := safecast.Conv[uint8](int(p))
			if err != nil {
				return nil, fmt.Errorf("token %d pop: %v: %w", i, err, ErrBadResult)
			}
			tok.Pop = pop
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (l *Lexer) fail(err error) {
	l.lastErr = err
	l.failures++
	l.log.Warn("tokenize failed: %v", err)
}

// Err returns the most recent tokenize error, or nil.
func (l *Lexer) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Failures returns how many tokenize calls have failed.
func (l *Lexer) Failures() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Close releases the Lua state. Later Tokenize calls fail with ErrClosed.
func (l *Lexer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.L.Close()
	l.closed = true
	return nil
}
