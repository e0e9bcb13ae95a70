package lexer

import "github.com/dshills/tokeniter/internal/token"

// Builtins returns fresh instances of every built-in lexer.
func Builtins() []Lexer {
	return []Lexer{
		GoLexer(),
		PythonLexer(),
		LilyPondLexer(),
	}
}

// Shared single-line patterns.
const (
	patDoubleQuoted = `"(?:[^"\\]|\\.)*"`
	patSingleQuoted = `'(?:[^'\\]|\\.)*'`
	patIdentifier   = `[A-Za-z_][A-Za-z0-9_]*`
	patFloat        = `\d[\d_]*\.\d*(?:[eE][+-]?\d+)?|\d[\d_]*[eE][+-]?\d+`
	patInteger      = `\d[\d_]*`
)

// GoLexer returns a lexer for Go.
func GoLexer() *RuleLexer {
	l := NewRuleLexer("go", ".go")

	l.Mode("comment", token.CommentBlock)
	l.AddLeave("comment", `\*/`, token.CommentBlock)

	l.Mode("raw", token.StringRaw)
	l.AddLeave("raw", "`", token.StringRaw)

	l.AddRule(token.RootMode, `//.*`, token.CommentLine)
	l.AddEnter(token.RootMode, `/\*`, token.CommentBlock, "comment")
	l.AddEnter(token.RootMode, "`", token.StringRaw, "raw")
	l.AddRule(token.RootMode, patDoubleQuoted, token.StringQuoted)
	l.AddRule(token.RootMode, patSingleQuoted, token.String)
	l.AddRule(token.RootMode, `0[xX][0-9a-fA-F_]+`, token.NumberHex)
	l.AddRule(token.RootMode, `0[oO][0-7_]+`, token.NumberOctal)
	l.AddRule(token.RootMode, `0[bB][01_]+`, token.NumberBinary)
	l.AddRule(token.RootMode, patFloat, token.NumberFloat)
	l.AddRule(token.RootMode, patInteger, token.NumberInteger)
	l.AddRule(token.RootMode, patIdentifier, token.Identifier)
	l.AddRule(token.RootMode, `[{(\[]`, token.PunctuationBracketOpen)
	l.AddRule(token.RootMode, `[})\]]`, token.PunctuationBracketClose)
	l.AddRule(token.RootMode, `[;,.:]`, token.PunctuationDelimiter)
	l.AddRule(token.RootMode, `[-+*/%&|^<>=!~]+`, token.Operator)

	l.AddKeywords(token.KeywordControl,
		"if", "else", "for", "range", "switch", "case", "default",
		"break", "continue", "return", "goto", "fallthrough", "select")
	l.AddKeywords(token.KeywordDeclaration,
		"func", "var", "const", "type", "struct", "interface", "map", "chan")
	l.AddKeywords(token.KeywordOther,
		"package", "import", "defer", "go")
	l.AddKeywords(token.ConstantLanguage,
		"true", "false", "nil", "iota")
	l.AddKeywords(token.TypeBuiltin,
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"float32", "float64", "complex64", "complex128",
		"bool", "byte", "rune", "string", "error", "any")
	l.AddKeywords(token.FunctionBuiltin,
		"append", "cap", "clear", "close", "copy", "delete", "len",
		"make", "max", "min", "new", "panic", "print", "println", "recover")

	return l
}

// PythonLexer returns a lexer for Python.
func PythonLexer() *RuleLexer {
	l := NewRuleLexer("python", ".py", ".pyw")

	l.Mode("dq3", token.StringQuoted)
	l.AddRule("dq3", `\\.`, token.StringEscape)
	l.AddLeave("dq3", `"""`, token.StringQuoted)

	l.Mode("sq3", token.StringQuoted)
	l.AddRule("sq3", `\\.`, token.StringEscape)
	l.AddLeave("sq3", `'''`, token.StringQuoted)

	l.AddRule(token.RootMode, `#.*`, token.CommentLine)
	l.AddEnter(token.RootMode, `[rRbBuUfF]{0,2}"""`, token.StringQuoted, "dq3")
	l.AddEnter(token.RootMode, `[rRbBuUfF]{0,2}'''`, token.StringQuoted, "sq3")
	l.AddRule(token.RootMode, `[rRbBuUfF]{0,2}`+patDoubleQuoted, token.StringQuoted)
	l.AddRule(token.RootMode, `[rRbBuUfF]{0,2}`+patSingleQuoted, token.StringQuoted)
	l.AddRule(token.RootMode, `0[xX][0-9a-fA-F_]+`, token.NumberHex)
	l.AddRule(token.RootMode, `0[oO][0-7_]+`, token.NumberOctal)
	l.AddRule(token.RootMode, `0[bB][01_]+`, token.NumberBinary)
	l.AddRule(token.RootMode, patFloat, token.NumberFloat)
	l.AddRule(token.RootMode, patInteger, token.NumberInteger)
	l.AddRule(token.RootMode, `@`+patIdentifier, token.Meta)
	l.AddRule(token.RootMode, patIdentifier, token.Identifier)
	l.AddRule(token.RootMode, `[{(\[]`, token.PunctuationBracketOpen)
	l.AddRule(token.RootMode, `[})\]]`, token.PunctuationBracketClose)
	l.AddRule(token.RootMode, `[;,.:]`, token.PunctuationDelimiter)
	l.AddRule(token.RootMode, `[-+*/%&|^<>=!~]+`, token.Operator)

	l.AddKeywords(token.KeywordControl,
		"if", "elif", "else", "for", "while", "break", "continue", "return",
		"try", "except", "finally", "raise", "with", "yield", "pass", "match", "case")
	l.AddKeywords(token.KeywordDeclaration, "def", "class", "lambda", "global", "nonlocal")
	l.AddKeywords(token.KeywordOther, "import", "from", "as", "del", "assert", "async", "await")
	l.AddKeywords(token.KeywordOperator, "and", "or", "not", "in", "is")
	l.AddKeywords(token.ConstantLanguage, "True", "False", "None")
	l.AddKeywords(token.FunctionBuiltin,
		"print", "len", "range", "enumerate", "zip", "map", "filter",
		"open", "isinstance", "super", "sorted", "reversed", "iter", "next")

	return l
}

// LilyPondLexer returns a lexer for LilyPond music notation.
//
// Braces and << >> nest as modes, so the state at the end of a line records
// how deeply the next line sits inside music expressions.
func LilyPondLexer() *RuleLexer {
	l := NewRuleLexer("lilypond", ".ly", ".ily")

	l.Mode("comment", token.CommentBlock)
	l.AddLeave("comment", `%\}`, token.CommentBlock)

	music := func(mode string) {
		l.AddEnter(mode, `%\{`, token.CommentBlock, "comment")
		l.AddRule(mode, `%.*`, token.CommentLine)
		l.AddEnter(mode, `\{`, token.PunctuationBracketOpen, "music")
		l.AddEnter(mode, `<<`, token.PunctuationBracketOpen, "simultaneous")
		l.AddRule(mode, patDoubleQuoted, token.StringQuoted)
		l.AddRule(mode, `\\[A-Za-z]+`, token.MarkupCommand)
		l.AddRule(mode, `[a-g](?:isis|eses|is|es|s)?(?:\d+)?\b`, token.MarkupNote)
		l.AddRule(mode, `[rRs](?:\d+)?\b`, token.MarkupNote)
		l.AddRule(mode, `\d+`, token.NumberInteger)
		l.AddRule(mode, `[A-Za-z]+`, token.Text)
		l.AddRule(mode, `[',.~()\[\]|=-]`, token.Punctuation)
	}

	l.Mode("music", token.None)
	l.AddLeave("music", `\}`, token.PunctuationBracketClose)
	music("music")

	l.Mode("simultaneous", token.None)
	l.AddLeave("simultaneous", `>>`, token.PunctuationBracketClose)
	music("simultaneous")

	music(token.RootMode)
	l.AddRule(token.RootMode, `\}|>>`, token.Invalid)

	return l
}
