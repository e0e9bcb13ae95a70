package reload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/tokeniter/internal/document"
	"github.com/dshills/tokeniter/internal/logging"
)

// DefaultDelay is how long a burst of file events is coalesced before the
// file is read.
const DefaultDelay = 50 * time.Millisecond

// ErrWatcherClosed is returned by Watch when the file system watcher stops
// delivering events.
var ErrWatcherClosed = errors.New("file watcher closed")

// Result describes one reload.
type Result struct {
	// Edits is the number of hunks applied; 0 means the file was unchanged.
	Edits int
	// Removed and Inserted count the bytes replaced by the edits.
	Removed  int64
	Inserted int64
	// Revision is the document revision after the reload.
	Revision uint64
}

// Reloader reads a file into a document whenever it changes on disk.
type Reloader struct {
	doc   *document.Document
	path  string
	delay time.Duration
	log   *logging.Logger
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithDelay sets the event coalescing delay.
func WithDelay(d time.Duration) Option {
	return func(r *Reloader) {
		if d > 0 {
			r.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(r *Reloader) {
		if log != nil {
			r.log = log
		}
	}
}

// New returns a Reloader keeping doc in step with the file at path.
func New(doc *document.Document, path string, opts ...Option) (*Reloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		doc:   doc,
		path:  abs,
		delay: DefaultDelay,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithComponent("reload").WithField("path", abs)
	return r, nil
}

// Path returns the absolute path of the watched file.
func (r *Reloader) Path() string {
	return r.path
}

// Reload reads the file and applies its differences to the document.
func (r *Reloader) Reload() (Result, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return Result{}, fmt.Errorf("reload %s: %w", r.path, err)
	}
	edits := Diff(r.doc.Text(), string(data))
	if err := Apply(r.doc, edits); err != nil {
		return Result{}, fmt.Errorf("reload %s: %w", r.path, err)
	}
	res := Result{Edits: len(edits), Revision: r.doc.Revision()}
	for _, e := range edits {
		res.Removed += e.Range.Len()
		res.Inserted += int64(len(e.Text))
		r.log.Debug("%s", e)
	}
	if res.Edits > 0 {
		r.log.Debug("applied %d edits, revision %d", res.Edits, res.Revision)
	}
	return res, nil
}

// Watch reloads the document each time the file changes, calling onReload
// after every reload that changed it. It blocks until ctx is done; the
// document is only modified on the calling goroutine.
//
// The containing directory is watched rather than the file, so editors that
// save by renaming a new file over the old one are seen. Reload errors are
// logged and do not end the watch.
func (r *Reloader) Watch(ctx context.Context, onReload func(Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}
	r.log.Info("watching")

	timer := time.NewTimer(r.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if filepath.Clean(ev.Name) != r.path || !relevant(ev.Op) {
				continue
			}
			timer.Reset(r.delay)

		case err, ok := <-w.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			r.log.Warn("watch error: %v", err)

		case <-timer.C:
			res, err := r.Reload()
			if err != nil {
				// The file may be mid-replace; the next event retries.
				r.log.Warn("%v", err)
				continue
			}
			if res.Edits > 0 && onReload != nil {
				onReload(res)
			}
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
