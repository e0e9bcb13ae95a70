package tokeniter

import (
	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/token"
)

// CursorFor returns the selection covering tok, a token of line.
func CursorFor(line *document.Line, tok token.Token) document.Selection {
	return CursorSlice(line, tok, 0, -1)
}

// CursorSlice returns the selection covering bytes [start, end) of tok, a
// token of line. A negative end means the end of the token; both bounds
// are clamped to the token.
func CursorSlice(line *document.Line, tok token.Token, start, end int) document.Selection {
	n := int(tok.Len())
	if end < 0 || end > n {
		end = n
	}
	start = max(0, min(start, end))

	base := line.Position() + document.ByteOffset(tok.StartCol)
	return document.NewSelection(base+document.ByteOffset(start), base+document.ByteOffset(end))
}
