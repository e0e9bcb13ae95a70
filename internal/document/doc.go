// Package document provides the line-oriented text document the token engine
// works on.
//
// A Document is an ordered sequence of Lines. Each Line is a stable handle:
// an edit keeps the identity of the first line it touches (its text changes
// in place), detaches the lines it removes and creates new Lines for inserted
// text. Lines outside the edited region keep their identity, so per-line
// caches keyed by *Line survive edits elsewhere in the document.
//
// Basic usage:
//
//	doc := document.New("a { b } c\nd")
//
//	line, _ := doc.FindLine(4)     // line 0
//	line.Position()                // 0
//	line.Next().Text()             // "d"
//
//	unsubscribe := doc.OnChange(func(ch document.Change) {
//	    // invalidate caches for ch.First and ch.Added, forget ch.Removed
//	})
//	defer unsubscribe()
//
//	doc.Insert(2, "x ")
//
// Positions:
//
// Absolute positions are ByteOffsets from the start of the document. Line i
// covers the offsets [Position, Position+Len]; the offset equal to
// Position+Len is the end of the line (where the line separator sits).
//
// Thread Safety:
//
// A Document is confined to one goroutine. It performs no locking, and
// neither do the caches attached to it.
package document
