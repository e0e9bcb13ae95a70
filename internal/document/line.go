package document

// Line is one line of a Document, without its line separator.
//
// A *Line is a stable identity: it stays the same object for as long as the
// line is part of the document, even when edits above or below it shift its
// index and position. A line removed by an edit is detached and reports
// Valid() == false.
type Line struct {
	doc      *Document
	index    int
	position ByteOffset
	text     string
}

// Text returns the text of the line.
func (l *Line) Text() string {
	return l.text
}

// Len returns the length of the line in bytes.
func (l *Line) Len() int {
	return len(l.text)
}

// Position returns the absolute offset of the start of the line.
func (l *Line) Position() ByteOffset {
	return l.position
}

// End returns the absolute offset of the end of the line.
func (l *Line) End() ByteOffset {
	return l.position + ByteOffset(len(l.text))
}

// Index returns the 0-based line number.
func (l *Line) Index() int {
	return l.index
}

// Valid reports whether the line is still part of a document.
func (l *Line) Valid() bool {
	return l != nil && l.doc != nil
}

// Document returns the document the line belongs to, or nil when detached.
func (l *Line) Document() *Document {
	return l.doc
}

// Next returns the following line, or nil at the end of the document.
func (l *Line) Next() *Line {
	if !l.Valid() {
		return nil
	}
	return l.doc.Line(l.index + 1)
}

// Previous returns the preceding line, or nil at the start of the document.
func (l *Line) Previous() *Line {
	if !l.Valid() {
		return nil
	}
	return l.doc.Line(l.index - 1)
}
