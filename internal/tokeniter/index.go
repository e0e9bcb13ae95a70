package tokeniter

import (
	"sort"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// Index returns the index of the last token starting at or before col, in a
// line of lineLen bytes.
//
// It returns -1 when col is before the first token, and len(tokens) when col
// is at or past the end of the line. A col exactly at a token's start
// returns that token's index.
func Index(tokens []token.Token, col, lineLen uint32) int {
	if col >= lineLen {
		return len(tokens)
	}
	i := sort.Search(len(tokens), func(i int) bool {
		return tokens[i].StartCol > col
	})
	return i - 1
}

// IndexAt returns the line containing pos and the Index of pos within it.
func IndexAt(c Cache, pos document.ByteOffset) (*document.Line, int, error) {
	line, col, err := locate(c.Document(), pos)
	if err != nil {
		return nil, 0, err
	}
	return line, Index(c.Tokens(line), col, token.Col(line.Len())), nil
}

// locate returns the line containing pos and the column of pos in it.
func locate(doc *document.Document, pos document.ByteOffset) (*document.Line, uint32, error) {
	line, err := doc.FindLine(pos)
	if err != nil {
		return nil, 0, err
	}
	return line, token.Col(int(pos - line.Position())), nil
}

// Partition splits a line's tokens around a cursor column.
// The slices share memory with the cache and must not be modified.
type Partition struct {
	// Left holds the tokens that end at or before the cursor.
	Left []token.Token

	// Middle is the token that starts before the cursor and ends after it.
	Middle *token.Token

	// Right holds the tokens that start at or after the cursor.
	Right []token.Token
}

// Tokens returns Left, Middle and Right joined back together.
func (p Partition) Tokens() []token.Token {
	out := make([]token.Token, 0, len(p.Left)+len(p.Right)+1)
	out = append(out, p.Left...)
	if p.Middle != nil {
		out = append(out, *p.Middle)
	}
	return append(out, p.Right...)
}

// Split partitions tokens around col in a line of lineLen bytes.
func Split(tokens []token.Token, col, lineLen uint32) Partition {
	i := Index(tokens, col, lineLen)
	n := len(tokens)

	switch {
	case i >= n:
		return Partition{Left: tokens[:n:n]}
	case i < 0:
		return Partition{Right: tokens}
	case tokens[i].StartCol == col:
		return Partition{Left: tokens[:i:i], Right: tokens[i:]}
	case col < tokens[i].EndCol:
		middle := tokens[i]
		return Partition{Left: tokens[:i:i], Middle: &middle, Right: tokens[i+1:]}
	default:
		return Partition{Left: tokens[: i+1 : i+1], Right: tokens[i+1:]}
	}
}

// PartitionAt returns the line containing pos and its tokens split
// around pos.
func PartitionAt(c Cache, pos document.ByteOffset) (*document.Line, Partition, error) {
	line, col, err := locate(c.Document(), pos)
	if err != nil {
		return nil, Partition{}, err
	}
	return line, Split(c.Tokens(line), col, token.Col(line.Len())), nil
}
