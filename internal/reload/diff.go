// Package reload keeps a document in step with the file it was read from.
//
// A changed file is diffed against the document line by line and only the
// changed hunks are replaced, so unchanged lines keep their identity and
// their cached tokens.
package reload

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/tokeniter/internal/document"
)

// Edit replaces a byte range of the old text with Text.
type Edit struct {
	Range document.Range
	Text  string
}

func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("insert %q at %d", e.Text, e.Range.Start)
	}
	return fmt.Sprintf("replace %s with %q", e.Range, e.Text)
}

// Diff returns the line-aligned edits turning oldText into newText, in
// ascending order of position. Offsets refer to oldText. Line endings of
// newText are normalised first.
func Diff(oldText, newText string) []Edit {
	newText = normalize(newText)
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var edits []Edit
	var oldPos, newPos int
	hunkOld, hunkNew, inHunk := 0, 0, false
	flush := func() {
		if inHunk {
			edits = append(edits, hunkEdit(oldText, hunkOld, oldPos, newText[hunkNew:newPos]))
			inHunk = false
		}
	}
	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldPos += n
			newPos += n
		case diffmatchpatch.DiffDelete:
			if !inHunk {
				inHunk, hunkOld, hunkNew = true, oldPos, newPos
			}
			oldPos += n
		case diffmatchpatch.DiffInsert:
			if !inHunk {
				inHunk, hunkOld, hunkNew = true, oldPos, newPos
			}
			newPos += n
		}
	}
	flush()
	return edits
}

// hunkEdit converts whole replaced lines old[start:end] -> text into an
// edit that leaves the neighbouring lines untouched. The line after the
// hunk is never part of the replaced range, and a pure insertion or
// deletion is anchored on the separator of the line before it.
func hunkEdit(old string, start, end int, text string) Edit {
	oldNL := strings.HasSuffix(old[start:end], "\n")
	newNL := strings.HasSuffix(text, "\n")

	switch {
	case start == end && newNL && start > 0:
		return edit(start-1, start-1, "\n"+text[:len(text)-1])
	case text == "" && oldNL && start > 0:
		return edit(start-1, end-1, "")
	case oldNL && newNL:
		return edit(start, end-1, text[:len(text)-1])
	default:
		return edit(start, end, text)
	}
}

func edit(start, end int, text string) Edit {
	return Edit{
		Range: document.Range{Start: document.ByteOffset(start), End: document.ByteOffset(end)},
		Text:  text,
	}
}

// Apply applies edits, as returned by Diff against doc's text, to doc. It
// works from the last edit backwards so earlier offsets stay valid.
func Apply(doc *document.Document, edits []Edit) error {
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		if err := doc.Replace(e.Range.Start, e.Range.End, e.Text); err != nil {
			return fmt.Errorf("apply edit %d: %w", i, err)
		}
	}
	return nil
}

func normalize(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
