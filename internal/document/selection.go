package document

import "fmt"

// ByteOffset represents a byte position in the document.
type ByteOffset = int64

// Range represents a byte range in the document.
// Start is inclusive, End is exclusive: [Start, End).
type Range struct {
	Start ByteOffset
	End   ByteOffset
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty returns true if the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Selection represents a caret or a range of selected text.
// Anchor is where the selection started; Head is the current cursor position.
// When Anchor == Head, this represents a caret with no selection.
// Selection is an immutable value type.
type Selection struct {
	Anchor ByteOffset
	Head   ByteOffset
}

// NewSelection creates a selection from anchor to head.
func NewSelection(anchor, head ByteOffset) Selection {
	return Selection{Anchor: anchor, Head: head}
}

// Caret creates a selection representing just a cursor (no extent).
func Caret(offset ByteOffset) Selection {
	return Selection{Anchor: offset, Head: offset}
}

// IsEmpty returns true if the selection has no extent.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Start returns the lower bound of the selection.
func (s Selection) Start() ByteOffset {
	return min(s.Anchor, s.Head)
}

// End returns the upper bound of the selection.
func (s Selection) End() ByteOffset {
	return max(s.Anchor, s.Head)
}

// Range returns the selection as a range (always Start <= End).
func (s Selection) Range() Range {
	return Range{Start: s.Start(), End: s.End()}
}

// String returns a human-readable representation of the selection.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("caret(%d)", s.Head)
	}
	return fmt.Sprintf("sel(%d->%d)", s.Anchor, s.Head)
}
