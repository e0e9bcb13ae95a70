package lua

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/token"
)

func loadINI(t *testing.T) *Lexer {
	t.Helper()
	l, err := Load("testdata/ini.lua")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLoadDeclarations(t *testing.T) {
	l := loadINI(t)

	assert.Equal(t, "ini", l.Language())
	assert.Equal(t, []string{".ini", ".cfg"}, l.FileExtensions())
	assert.Equal(t, token.RootMode, l.InitialState().Key())
}

func TestTokenizeINI(t *testing.T) {
	l := loadINI(t)
	root := l.InitialState()

	tests := []struct {
		name  string
		line  string
		types []token.Type
		spans [][2]uint32
	}{
		{"section", "[core]", []token.Type{token.MarkupHeading}, [][2]uint32{{0, 6}}},
		{"comment", "  ; note", []token.Type{token.CommentLine}, [][2]uint32{{2, 8}}},
		{
			"pair", "  name = value",
			[]token.Type{token.Variable, token.Operator, token.String},
			[][2]uint32{{2, 6}, {7, 8}, {9, 14}},
		},
		{"key only", "flag", []token.Type{token.Variable}, [][2]uint32{{0, 4}}},
		{"empty", "", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, end := l.Tokenize(tt.line, root)
			require.NoError(t, l.Err())
			require.Len(t, tokens, len(tt.types))
			for i, tok := range tokens {
				assert.Equal(t, tt.types[i], tok.Type, "token %d type", i)
				assert.Equal(t, tt.spans[i], [2]uint32{tok.StartCol, tok.EndCol}, "token %d span", i)
				assert.Equal(t, tt.line[tok.StartCol:tok.EndCol], tok.Text)
			}
			assert.Equal(t, token.RootMode, end.Key())
		})
	}
}

func TestTokenizeContinuationState(t *testing.T) {
	l := loadINI(t)

	tokens, state := l.Tokenize(`path = /usr/\`, l.InitialState())
	require.Len(t, tokens, 3)
	assert.Equal(t, "continued", tokens[2].Push)
	require.Equal(t, "root/continued", state.Key())

	tokens, state = l.Tokenize(`local/\`, state)
	require.Len(t, tokens, 1)
	assert.Equal(t, token.String, tokens[0].Type)
	require.Equal(t, "root/continued", state.Key())

	_, state = l.Tokenize("bin", state)
	assert.Equal(t, token.RootMode, state.Key())
}

func TestModesArgument(t *testing.T) {
	l, err := LoadString("depth.lua", `
language = "depth"
initial = { "outer", "inner" }
function tokenize(line, modes)
  return { { start = 1, stop = #line, type = "text", push = modes[#modes] .. tostring(#modes) } }
end
`)
	require.NoError(t, err)
	defer l.Close()

	start := l.InitialState()
	require.Equal(t, "root/outer/inner", start.Key())

	tokens, end := l.Tokenize("x", start)
	require.Len(t, tokens, 1)
	assert.Equal(t, "inner2", tokens[0].Push)
	assert.Equal(t, "root/outer/inner/inner2", end.Key())
	assert.Equal(t, "root/outer/inner", start.Key())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"no tokenize", `language = "x"`, ErrMissingTokenize},
		{"no language", `function tokenize(line) return {} end`, ErrMissingLanguage},
		{"syntax", `language = `, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.name, tt.src)
			require.Error(t, err)

			var se *ScriptError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "load", se.Op)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	_, err := Load("testdata/missing.lua")
	assert.Error(t, err)
}

func TestSandbox(t *testing.T) {
	l, err := LoadString("sandbox.lua", `
assert(io == nil, "io")
assert(os == nil, "os")
assert(require == nil, "require")
assert(dofile == nil, "dofile")
assert(loadstring == nil, "loadstring")
assert(string.upper("a") == "A")
language = "sandbox"
function tokenize(line) return {} end
`)
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}

func TestRuntimeErrorKeepsState(t *testing.T) {
	l, err := LoadString("boom.lua", `
language = "boom"
function tokenize(line)
  if line == "bad" then error("boom") end
  return { { start = 1, stop = #line, type = "text" } }
end
`)
	require.NoError(t, err)
	defer l.Close()

	start := token.NewModeStack("m")
	tokens, end := l.Tokenize("bad", start)
	assert.Empty(t, tokens)
	assert.Equal(t, "root/m", end.Key())

	var se *ScriptError
	require.True(t, errors.As(l.Err(), &se))
	assert.Equal(t, "tokenize", se.Op)
	assert.Equal(t, uint64(1), l.Failures())

	tokens, _ = l.Tokenize("good", start)
	assert.Len(t, tokens, 1)
}

func TestMalformedResults(t *testing.T) {
	tests := []struct {
		name string
		ret  string
		want error
	}{
		{"not a table", `return 5`, ErrBadResult},
		{"entry not a table", `return { 1 }`, ErrBadResult},
		{"missing stop", `return { { start = 1 } }`, ErrBadResult},
		{"past end", `return { { start = 1, stop = 99 } }`, ErrBadResult},
		{"bad pop", `return { { start = 1, stop = 1, pop = 300 } }`, ErrBadResult},
		{"overlap", `return { { start = 1, stop = 2 }, { start = 2, stop = 3 } }`, lexer.ErrInvalidTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := LoadString(tt.name, `language = "x"
function tokenize(line) `+tt.ret+` end`)
			require.NoError(t, err)
			defer l.Close()

			tokens, _ := l.Tokenize("abcdef", l.InitialState())
			assert.Empty(t, tokens)
			assert.ErrorIs(t, l.Err(), tt.want)
		})
	}
}

func TestNilResultIsEmpty(t *testing.T) {
	l, err := LoadString("nil.lua", `language = "x"
function tokenize(line) return nil end`)
	require.NoError(t, err)
	defer l.Close()

	tokens, _ := l.Tokenize("abc", l.InitialState())
	assert.Empty(t, tokens)
	assert.NoError(t, l.Err())
}

func TestTimeout(t *testing.T) {
	l, err := LoadString("loop.lua", `language = "loop"
function tokenize(line) while true do end end`, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer l.Close()

	tokens, _ := l.Tokenize("x", l.InitialState())
	assert.Empty(t, tokens)
	assert.Error(t, l.Err())
}

func TestClosed(t *testing.T) {
	l := loadINI(t)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	tokens, _ := l.Tokenize("[x]", l.InitialState())
	assert.Empty(t, tokens)
	assert.ErrorIs(t, l.Err(), ErrClosed)
}

func TestRegistersWithRegistry(t *testing.T) {
	l := loadINI(t)
	r := lexer.DefaultRegistry()
	r.Register(l)

	got, err := r.Lookup("", "settings.cfg")
	require.NoError(t, err)
	assert.Equal(t, "ini", got.Language())
}
