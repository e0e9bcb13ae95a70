// Package token defines the lexical units produced by lexers and the opaque
// lexer state that is threaded from one line to the next.
package token

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Type represents the lexical category of a token.
type Type uint16

// Token types.
// These follow TextMate/VS Code scope naming conventions at a high level;
// the dotted suffix of a scope name is the token's sub-kind.
const (
	None Type = iota

	// Plain text that is not part of any other construct
	Text

	// Comments
	Comment
	CommentLine
	CommentBlock
	CommentDoc

	// Strings
	String
	StringQuoted
	StringRaw
	StringEscape

	// Numbers
	Number
	NumberInteger
	NumberFloat
	NumberHex
	NumberOctal
	NumberBinary

	// Keywords
	Keyword
	KeywordControl     // if, else, for, while, switch, case, return
	KeywordOperator    // new, delete, typeof, instanceof
	KeywordOther       // package, import, export, from
	KeywordDeclaration // var, let, const, func, type

	// Operators and punctuation
	Operator
	Punctuation
	PunctuationBracket
	PunctuationBracketOpen
	PunctuationBracketClose
	PunctuationDelimiter

	// Identifiers
	Identifier
	Variable
	Constant
	ConstantLanguage // true, false, nil, None

	// Functions and types
	Function
	FunctionBuiltin
	TypeName
	TypeBuiltin

	// Markup and notation
	Markup
	MarkupHeading
	MarkupCommand
	MarkupNote

	// Invalid/Error
	Invalid

	// Special
	Meta
	Whitespace

	// Sentinel for iteration
	typeCount
)

// String returns the scope name of a token type.
func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "unknown"
}

// Base returns the top-level kind of t, dropping any sub-kind.
// For example the base of CommentBlock is Comment.
func (t Type) Base() Type {
	name := t.String()
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return TypeFromString(name[:i])
	}
	return t
}

// IsComment returns true if this is a comment token.
func (t Type) IsComment() bool {
	return t >= Comment && t <= CommentDoc
}

// IsString returns true if this is a string token.
func (t Type) IsString() bool {
	return t >= String && t <= StringEscape
}

// IsNumber returns true if this is a number token.
func (t Type) IsNumber() bool {
	return t >= Number && t <= NumberBinary
}

// IsKeyword returns true if this is a keyword token.
func (t Type) IsKeyword() bool {
	return t >= Keyword && t <= KeywordDeclaration
}

// IsPunctuation returns true if this is an operator or punctuation token.
func (t Type) IsPunctuation() bool {
	return t >= Operator && t <= PunctuationDelimiter
}

// Token is a lexical unit scoped to one line.
// Tokens are immutable once a lexer has produced them.
type Token struct {
	// Type is the lexical category of the token.
	Type Type

	// StartCol is the starting column (0-indexed, bytes within the line).
	StartCol uint32

	// EndCol is the ending column (exclusive).
	EndCol uint32

	// Text is the text the token covers.
	Text string

	// Pop is the number of lexer modes this token leaves.
	Pop uint8

	// Push is the lexer mode this token enters after popping, if any.
	Push string
}

// Len returns the length of the token.
func (t Token) Len() uint32 {
	return t.EndCol - t.StartCol
}

// Contains returns true if the column is within the token.
func (t Token) Contains(col uint32) bool {
	return col >= t.StartCol && col < t.EndCol
}

// ChangesMode reports whether following the token alters a mode stack.
func (t Token) ChangesMode() bool {
	return t.Pop > 0 || t.Push != ""
}

// TypeFromString converts a scope string to a Type.
// Supports hierarchical scope names like "comment.line" and falls back to
// the longest known prefix, so "comment.line.double-slash" maps to CommentLine.
func TypeFromString(scope string) Type {
	for len(scope) > 0 {
		if t, ok := scopeToType[scope]; ok {
			return t
		}
		i := strings.LastIndexByte(scope, '.')
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	return None
}

// Types returns every known token type except None.
func Types() []Type {
	types := make([]Type, 0, typeCount-1)
	for t := None + 1; t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

// typeNames maps token types to their scope names.
var typeNames = []string{
	None: "none",
	Text: "text",

	Comment:      "comment",
	CommentLine:  "comment.line",
	CommentBlock: "comment.block",
	CommentDoc:   "comment.block.documentation",

	String:       "string",
	StringQuoted: "string.quoted",
	StringRaw:    "string.raw",
	StringEscape: "string.escape",

	Number:        "number",
	NumberInteger: "number.integer",
	NumberFloat:   "number.float",
	NumberHex:     "number.hex",
	NumberOctal:   "number.octal",
	NumberBinary:  "number.binary",

	Keyword:            "keyword",
	KeywordControl:     "keyword.control",
	KeywordOperator:    "keyword.operator",
	KeywordOther:       "keyword.other",
	KeywordDeclaration: "keyword.declaration",

	Operator:                "operator",
	Punctuation:             "punctuation",
	PunctuationBracket:      "punctuation.bracket",
	PunctuationBracketOpen:  "punctuation.bracket.open",
	PunctuationBracketClose: "punctuation.bracket.close",
	PunctuationDelimiter:    "punctuation.delimiter",

	Identifier:       "identifier",
	Variable:         "variable",
	Constant:         "constant",
	ConstantLanguage: "constant.language",

	Function:        "function",
	FunctionBuiltin: "function.builtin",
	TypeName:        "type",
	TypeBuiltin:     "type.builtin",

	Markup:        "markup",
	MarkupHeading: "markup.heading",
	MarkupCommand: "markup.command",
	MarkupNote:    "markup.note",

	Invalid: "invalid",

	Meta:       "meta",
	Whitespace: "whitespace",
}

// scopeToType maps scope strings to token types.
var scopeToType = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for i, name := range typeNames {
		if name != "" {
			m[name] = Type(i)
		}
	}
	return m
}()

// Col converts a byte index within a line to a column.
// It panics if i is negative or does not fit in a column, which no line of
// an in-memory document can reach.
func Col(i int) uint32 {
	c, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Sprintf("token: column %d: %v", i, err))
	}
	return c
}
