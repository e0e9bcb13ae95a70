package tokeniter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/lexer"
	"github.com/dshills/tokeniter/internal/token"
	"github.com/dshills/tokeniter/internal/tokencache"
)

// blockLexer lexes words, nested { } blocks and begin/end blocks.
func blockLexer() *lexer.RuleLexer {
	l := lexer.NewRuleLexer("blocks", ".blk")
	l.Mode("block", token.None)
	for _, mode := range []string{token.RootMode, "block"} {
		l.AddEnter(mode, `\{`, token.PunctuationBracketOpen, "block")
		l.AddEnter(mode, `begin\b`, token.KeywordDeclaration, "block")
	}
	l.AddLeave("block", `\}`, token.PunctuationBracketClose)
	l.AddLeave("block", `end\b`, token.KeywordDeclaration)
	l.AddRule(token.RootMode, `\}|end\b`, token.Invalid)
	l.Include("block", token.RootMode)
	l.AddRule(token.RootMode, `\w+`, token.Text)
	l.AddRule("block", `\w+`, token.Text)
	return l
}

func newCache(t testing.TB, text string) *tokencache.Cache {
	t.Helper()
	c, err := tokencache.New(document.New(text), blockLexer(), tokencache.WithStrict(true))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func texts(tokens []token.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func collect(lines *Lines) [][]string {
	var out [][]string
	for lt := range lines.All() {
		var line []string
		for t := range lt.All() {
			line = append(line, t.Text)
		}
		out = append(out, line)
	}
	return out
}

func TestIndexAt(t *testing.T) {
	c := newCache(t, "a { b } c\n  x")
	require.Equal(t, []string{"a", "{", "b", "}", "c"}, texts(c.Tokens(c.Document().Line(0))))

	tests := []struct {
		pos  document.ByteOffset
		line int
		want int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 1}, // exactly at "{"
		{3, 0, 1},
		{4, 0, 2},
		{8, 0, 4},
		{9, 0, 5}, // end of line
		{10, 1, -1},
		{12, 1, 0},
		{13, 1, 1},
	}
	for _, tt := range tests {
		line, got, err := IndexAt(c, tt.pos)
		require.NoError(t, err)
		assert.Equal(t, tt.line, line.Index(), "line at %d", tt.pos)
		assert.Equal(t, tt.want, got, "index at %d", tt.pos)
	}

	_, _, err := IndexAt(c, 99)
	assert.True(t, errors.Is(err, document.ErrOffsetOutOfRange))
}

func TestIndexEmpty(t *testing.T) {
	assert.Equal(t, 0, Index(nil, 0, 0))
	assert.Equal(t, -1, Index(nil, 0, 3))
}

func TestPartitionAt(t *testing.T) {
	c := newCache(t, "a { b } c\nabc def\n")

	tests := []struct {
		name   string
		pos    document.ByteOffset
		left   []string
		middle string
		right  []string
	}{
		{"at token start", 4, []string{"a", "{"}, "", []string{"b", "}", "c"}},
		{"between tokens", 3, []string{"a", "{"}, "", []string{"b", "}", "c"}},
		{"line start", 0, []string{}, "", []string{"a", "{", "b", "}", "c"}},
		{"line end", 9, []string{"a", "{", "b", "}", "c"}, "", []string{}},
		{"straddle", 11, []string{}, "abc", []string{"def"}},
		{"token end", 13, []string{"abc"}, "", []string{"def"}},
		{"empty line", 18, []string{}, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, p, err := PartitionAt(c, tt.pos)
			require.NoError(t, err)

			assert.Equal(t, tt.left, texts(p.Left))
			assert.Equal(t, tt.right, texts(p.Right))
			if tt.middle == "" {
				assert.Nil(t, p.Middle)
			} else {
				require.NotNil(t, p.Middle)
				assert.Equal(t, tt.middle, p.Middle.Text)
			}
			assert.Equal(t, c.Tokens(line), p.Tokens())
		})
	}
}

func TestPartitionSlicesDoNotAlias(t *testing.T) {
	c := newCache(t, "a b c")
	_, p, err := PartitionAt(c, 2)
	require.NoError(t, err)

	_ = append(p.Left, token.Token{Text: "x"})
	assert.Equal(t, []string{"a", "b", "c"}, texts(c.Tokens(c.Document().Line(0))))
}

func TestCursorFor(t *testing.T) {
	c := newCache(t, "zz\nab cdef")
	line := c.Document().Line(1)
	tok := c.Tokens(line)[1]
	require.Equal(t, "cdef", tok.Text)

	sel := CursorFor(line, tok)
	assert.Equal(t, document.ByteOffset(6), sel.Start())
	assert.Equal(t, document.ByteOffset(10), sel.End())

	sel = CursorSlice(line, tok, 1, 3)
	assert.Equal(t, document.NewSelection(7, 9), sel)

	sel = CursorSlice(line, tok, 2, -1)
	assert.Equal(t, document.NewSelection(8, 10), sel)

	sel = CursorSlice(line, tok, 9, 99)
	assert.Equal(t, document.Caret(10), sel)
}

func TestFromPositionBoundaries(t *testing.T) {
	c := newCache(t, "ab cd ef\ngh")

	tests := []struct {
		pos  document.ByteOffset
		b    Boundary
		want []string
	}{
		{4, StartAfter, []string{"ef"}},
		{4, StartOverlapping, []string{"cd", "ef"}},
		{4, StartTouching, []string{"cd", "ef"}},
		{5, StartAfter, []string{"ef"}},
		{5, StartOverlapping, []string{"ef"}},
		{5, StartTouching, []string{"cd", "ef"}},
		{3, StartAfter, []string{"cd", "ef"}},
		{3, StartOverlapping, []string{"cd", "ef"}},
		{3, StartTouching, []string{"cd", "ef"}},
		{8, StartTouching, []string{"ef"}},
		{8, StartAfter, nil},
	}
	for _, tt := range tests {
		t.Run(tt.b.String(), func(t *testing.T) {
			lines, err := FromPosition(c, tt.pos, nil, tt.b)
			require.NoError(t, err)

			got := collect(lines)
			require.Len(t, got, 2)
			assert.Equal(t, tt.want, got[0], "from %d", tt.pos)
			assert.Equal(t, []string{"gh"}, got[1])
		})
	}

	_, err := FromPosition(c, -1, nil, StartAfter)
	assert.True(t, errors.Is(err, document.ErrOffsetOutOfRange))
}

func TestFromPositionTracksState(t *testing.T) {
	c := newCache(t, "a { b\nc } d")
	doc := c.Document()

	tracker := c.StateAtStart(doc.Line(0))
	lines, err := FromPosition(c, 4, tracker, StartAfter)
	require.NoError(t, err)

	lt, ok := lines.Next()
	require.True(t, ok)
	assert.Equal(t, "root/block", tracker.Key(), "skipped tokens are followed")

	tok, ok := lt.Next()
	require.True(t, ok)
	assert.Equal(t, "b", tok.Text)

	lt, ok = lines.Next()
	require.True(t, ok)
	tok, ok = lt.Next()
	require.True(t, ok)
	assert.Equal(t, "c", tok.Text)
	assert.Equal(t, "root/block", tracker.Key())

	// Leaving the line unfinished still feeds "}" and "d" to the tracker.
	_, ok = lines.Next()
	assert.False(t, ok)
	assert.Equal(t, token.RootMode, tracker.Key())
	assert.Same(t, tracker, lines.Tracker())
}

func TestSelectionTokens(t *testing.T) {
	c := newCache(t, "begin x end y\nw z")

	tests := []struct {
		name    string
		sel     document.Selection
		partial bool
		want    [][]string
		state   string
	}{
		{"strict skips straddling start", document.NewSelection(2, 10), false, [][]string{{"x"}}, "root/block"},
		{"partial keeps boundary tokens", document.NewSelection(2, 10), true, [][]string{{"begin", "x", "end"}}, token.RootMode},
		{"strict inclusive end", document.NewSelection(6, 11), false, [][]string{{"x", "end"}}, token.RootMode},
		{"reversed anchor", document.NewSelection(10, 2), false, [][]string{{"x"}}, "root/block"},
		{"across lines", document.NewSelection(12, 15), true, [][]string{{"y"}, {"w"}}, token.RootMode},
		{"caret inside token", document.Caret(9), true, [][]string{{"end"}}, token.RootMode},
		{"caret strict", document.Caret(9), false, [][]string{nil}, token.RootMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := c.Document().FindLine(tt.sel.Start())
			require.NoError(t, err)
			tracker := c.StateAtStart(first)

			lines, err := SelectionTokens(c, tt.sel, tracker, tt.partial)
			require.NoError(t, err)
			assert.Equal(t, tt.want, collect(lines))
			assert.Equal(t, tt.state, tracker.Key())
		})
	}
}

func TestSource(t *testing.T) {
	c := newCache(t, "a { b\n\nc } d")
	doc := c.Document()

	src, err := SourceFromPosition(c, 0, true, StartAfter)
	require.NoError(t, err)
	assert.Same(t, doc.Line(0), src.Line(), "attached to the first line before iterating")

	tok, ok := src.Next()
	require.True(t, ok)
	assert.Equal(t, "a", tok.Text)

	// The line view and the source share one walk.
	tok, ok = src.Tokens().Next()
	require.True(t, ok)
	assert.Equal(t, "{", tok.Text)
	assert.Equal(t, "root/block", src.State().Key())

	tok, _ = src.Next()
	assert.Equal(t, "b", tok.Text)

	tok, _ = src.Next()
	assert.Equal(t, "c", tok.Text)
	assert.Same(t, doc.Line(2), src.Line())
	assert.Equal(t, document.NewSelection(7, 8), src.Cursor(tok, 0, -1))

	var rest []string
	for tok := range src.Tokens().All() {
		rest = append(rest, tok.Text)
	}
	assert.Equal(t, []string{"}", "d"}, rest)

	_, ok = src.Next()
	assert.False(t, ok)
	assert.Nil(t, src.Tokens())
	assert.Same(t, doc.Line(2), src.Line())
	assert.Equal(t, token.RootMode, src.State().Key())
}

func TestSourceSelection(t *testing.T) {
	c := newCache(t, "one two\nthree four")

	src, err := SourceSelection(c, document.NewSelection(4, 13), false, true)
	require.NoError(t, err)
	assert.Nil(t, src.State())

	var got []string
	for tok := range src.All() {
		got = append(got, tok.Text)
	}
	assert.Equal(t, []string{"two", "three"}, got)
}

func TestSourceEmptyDocument(t *testing.T) {
	c := newCache(t, "")
	src, err := SourceFromPosition(c, 0, false, StartAfter)
	require.NoError(t, err)

	_, ok := src.Next()
	assert.False(t, ok)
	assert.Same(t, c.Document().Line(0), src.Line())
}

func TestRunnerAcrossEmptyLine(t *testing.T) {
	c := newCache(t, "a b\n\nc")
	doc := c.Document()

	r, err := NewRunnerAt(c, 2)
	require.NoError(t, err)
	tok, err := r.Token()
	require.NoError(t, err)
	assert.Equal(t, "b", tok.Text)
	assert.True(t, r.AtLineEnd())

	tok, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "c", tok.Text)
	assert.Same(t, doc.Line(2), r.Line())

	empty := NewRunner(c, doc.Line(1))
	assert.True(t, empty.AtLineStart())
	assert.True(t, empty.AtLineEnd())
	_, err = empty.Token()
	assert.ErrorIs(t, err, ErrNoCurrentToken)
	_, ok = empty.NextOnLine()
	assert.False(t, ok)
	_, ok = empty.PrevOnLine()
	assert.False(t, ok)
}

func TestRunnerWalks(t *testing.T) {
	c := newCache(t, "a b\n\nc d")
	doc := c.Document()

	var forward []string
	for tok := range NewRunner(c, doc.First()).Forward() {
		forward = append(forward, tok.Text)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, forward)

	r := NewRunnerAtEnd(c, doc.Last())
	var backward []string
	for tok := range r.Backward() {
		backward = append(backward, tok.Text)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, backward)

	// Past the document start the runner stays on the first token.
	assert.Same(t, doc.First(), r.Line())
	tok, err := r.Token()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.Text)
	assert.True(t, r.AtLineStart())
}

func TestRunnerLineSteps(t *testing.T) {
	c := newCache(t, "a b c\nd")
	line := c.Document().First()

	r := NewRunner(c, line)
	_, err := r.Token()
	assert.ErrorIs(t, err, ErrNoCurrentToken, "no token before the first step")

	var got []string
	for tok := range r.ForwardLine() {
		got = append(got, tok.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 2, r.Index())

	_, ok := r.NextOnLine()
	assert.False(t, ok, "exhausted on this line")

	got = got[:0]
	for tok := range r.BackwardLine() {
		got = append(got, tok.Text)
	}
	assert.Equal(t, []string{"b", "a"}, got)

	sel, err := r.Cursor(0, -1)
	require.NoError(t, err)
	assert.Equal(t, document.NewSelection(0, 1), sel)
}

func TestRunnerCopy(t *testing.T) {
	c := newCache(t, "a b\nc")
	r := NewRunner(c, c.Document().First())
	r.Next()

	cp := r.Copy()
	cp.Next()
	cp.Next()

	tok, _ := r.Token()
	assert.Equal(t, "a", tok.Text)
	tok, _ = cp.Token()
	assert.Equal(t, "c", tok.Text)
}

func TestNewRunnerAtBounds(t *testing.T) {
	c := newCache(t, "  x y")

	r, err := NewRunnerAt(c, 0)
	require.NoError(t, err)
	_, err = r.Token()
	assert.ErrorIs(t, err, ErrNoCurrentToken)
	tok, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "x", tok.Text)

	r, err = NewRunnerAt(c, 5)
	require.NoError(t, err)
	tok, err = r.Token()
	require.NoError(t, err)
	assert.Equal(t, "y", tok.Text)

	_, err = NewRunnerAt(c, 6)
	assert.Error(t, err)
}

func TestAllTokens(t *testing.T) {
	c := newCache(t, "a b\n\nc")

	var got []string
	lines := map[int]bool{}
	for line, tok := range AllTokens(c) {
		got = append(got, tok.Text)
		lines[line.Index()] = true
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, map[int]bool{0: true, 2: true}, lines)

	for _, tok := range AllTokens(c) {
		assert.Equal(t, "a", tok.Text)
		break
	}
}
