package document

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Change describes one edit of a document.
type Change struct {
	// First is the first line touched by the edit. It keeps its identity but
	// its text has changed.
	First *Line

	// Removed are the lines the edit deleted. They are detached.
	Removed []*Line

	// Added are the lines the edit inserted, directly after First.
	Added []*Line

	// Revision is the document revision after the edit.
	Revision uint64
}

// Last returns the last line whose text the edit changed or created.
func (c Change) Last() *Line {
	if len(c.Added) > 0 {
		return c.Added[len(c.Added)-1]
	}
	return c.First
}

type listener struct {
	id int
	fn func(Change)
}

// Document is an ordered sequence of lines with absolute positions.
type Document struct {
	id        uuid.UUID
	lines     []*Line
	length    ByteOffset
	revision  uint64
	listeners []listener
	nextID    int
}

// New creates a document holding text.
// CRLF and lone CR line endings are normalized to LF.
func New(text string) *Document {
	d := &Document{id: uuid.New()}
	d.setText(text)
	return d
}

// NewFromLines creates a document from lines without separators.
func NewFromLines(lines []string) *Document {
	return New(strings.Join(lines, "\n"))
}

func normalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (d *Document) setText(text string) {
	text = normalizeLineEndings(text)
	parts := strings.Split(text, "\n")
	d.lines = make([]*Line, len(parts))
	for i, p := range parts {
		d.lines[i] = &Line{doc: d, text: p}
	}
	d.length = ByteOffset(len(text))
	d.renumber(0)
}

// renumber recomputes index and position of every line from index from on.
func (d *Document) renumber(from int) {
	var pos ByteOffset
	if from > 0 {
		prev := d.lines[from-1]
		pos = prev.End() + 1
	}
	for i := from; i < len(d.lines); i++ {
		l := d.lines[i]
		l.index = i
		l.position = pos
		pos += ByteOffset(len(l.text)) + 1
	}
}

// ID returns the document's unique identity.
func (d *Document) ID() uuid.UUID {
	return d.id
}

// Revision returns a counter incremented by every edit.
func (d *Document) Revision() uint64 {
	return d.revision
}

// LineCount returns the number of lines. A document always has at least one.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns line i, or nil if i is out of range.
func (d *Document) Line(i int) *Line {
	if i < 0 || i >= len(d.lines) {
		return nil
	}
	return d.lines[i]
}

// First returns the first line.
func (d *Document) First() *Line {
	return d.lines[0]
}

// Last returns the last line.
func (d *Document) Last() *Line {
	return d.lines[len(d.lines)-1]
}

// Lines iterates over all lines in order.
func (d *Document) Lines() iter.Seq[*Line] {
	return func(yield func(*Line) bool) {
		for _, l := range d.lines {
			if !yield(l) {
				return
			}
		}
	}
}

// Len returns the length of the document in bytes.
func (d *Document) Len() ByteOffset {
	return d.length
}

// Text returns the full text of the document.
func (d *Document) Text() string {
	var b strings.Builder
	b.Grow(int(d.length))
	for i, l := range d.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.text)
	}
	return b.String()
}

// FindLine returns the line containing the absolute position pos.
// The position of a line separator belongs to the line it ends, and the
// position equal to Len() belongs to the last line.
func (d *Document) FindLine(pos ByteOffset) (*Line, error) {
	if pos < 0 || pos > d.length {
		return nil, fmt.Errorf("find line at %d (length %d): %w", pos, d.length, ErrOffsetOutOfRange)
	}
	i := sort.Search(len(d.lines), func(i int) bool {
		return d.lines[i].position > pos
	})
	return d.lines[i-1], nil
}

// Replace replaces the text in [start, end) with text.
func (d *Document) Replace(start, end ByteOffset, text string) error {
	if start > end {
		return fmt.Errorf("replace [%d:%d): %w", start, end, ErrRangeInvalid)
	}
	if start < 0 || end > d.length {
		return fmt.Errorf("replace [%d:%d) (length %d): %w", start, end, d.length, ErrOffsetOutOfRange)
	}
	text = normalizeLineEndings(text)

	first, _ := d.FindLine(start)
	last, _ := d.FindLine(end)
	head := first.text[:start-first.position]
	tail := last.text[end-last.position:]
	parts := strings.Split(head+text+tail, "\n")

	removed := make([]*Line, last.index-first.index)
	copy(removed, d.lines[first.index+1:last.index+1])
	for _, l := range removed {
		l.doc = nil
	}

	first.text = parts[0]
	added := make([]*Line, len(parts)-1)
	for i, p := range parts[1:] {
		added[i] = &Line{doc: d, text: p}
	}

	lines := make([]*Line, 0, len(d.lines)-len(removed)+len(added))
	lines = append(lines, d.lines[:first.index+1]...)
	lines = append(lines, added...)
	lines = append(lines, d.lines[last.index+1:]...)
	d.lines = lines
	d.renumber(first.index)

	d.length += ByteOffset(len(text)) - (end - start)
	d.revision++

	d.notify(Change{
		First:    first,
		Removed:  removed,
		Added:    added,
		Revision: d.revision,
	})
	return nil
}

// Insert inserts text at pos.
func (d *Document) Insert(pos ByteOffset, text string) error {
	return d.Replace(pos, pos, text)
}

// Delete removes the text in [start, end).
func (d *Document) Delete(start, end ByteOffset) error {
	return d.Replace(start, end, "")
}

// OnChange registers fn to be called after every edit.
// It returns a function that removes the registration.
func (d *Document) OnChange(fn func(Change)) func() {
	id := d.nextID
	d.nextID++
	d.listeners = append(d.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) notify(ch Change) {
	// Listeners may unsubscribe while being notified
	listeners := make([]listener, len(d.listeners))
	copy(listeners, d.listeners)
	for _, l := range listeners {
		l.fn(ch)
	}
}
