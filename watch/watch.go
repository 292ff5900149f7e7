// Package watch re-indexes articles when their files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/sift/core"
	"github.com/poiesic/sift/ingestion"
)

// DefaultDebounce is how long changes must settle before re-indexing.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrLocatorRequired is returned when no path locator is provided.
	ErrLocatorRequired = errors.New("locator required")

	// ErrIndexerRequired is returned when no indexer is provided.
	ErrIndexerRequired = errors.New("indexer required")
)

// Locator maps a changed path to the article it belongs to.
type Locator interface {
	Locate(path string) (core.DocumentRef, bool)
}

// Indexer runs scoped indexing.
type Indexer interface {
	Run(ctx context.Context, scope core.IndexScope, opts *ingestion.RunOptions) (*core.IndexingResult, error)
}

// Watcher watches a content tree and re-indexes changed articles one slug
// at a time. Deleted articles are removed by the slug-scoped run.
type Watcher struct {
	root     string
	locator  Locator
	indexer  Indexer
	debounce time.Duration
	notify   func(*core.IndexingResult, error)
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle time before re-indexing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithNotify registers a callback invoked after every re-index.
func WithNotify(fn func(*core.IndexingResult, error)) Option {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher and subscribes to every directory under root.
// Caller must call Close when done.
func New(root string, locator Locator, indexer Indexer, opts ...Option) (*Watcher, error) {
	if locator == nil {
		return nil, ErrLocatorRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		locator:  locator,
		indexer:  indexer,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher")

	if _, err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	pending := map[core.DocumentRef]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	w.logger.Info("watching content", "root", w.root, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			refs := w.handle(event)
			if len(refs) == 0 {
				continue
			}
			for _, ref := range refs {
				pending[ref] = true
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

// handle returns the articles touched by an event, subscribing to new
// directories as they appear.
func (w *Watcher) handle(event fsnotify.Event) []core.DocumentRef {
	if event.Op == fsnotify.Chmod {
		return nil
	}
	var refs []core.DocumentRef
	if ref, ok := w.locator.Locate(event.Name); ok {
		refs = append(refs, ref)
	}
	if event.Has(fsnotify.Create) {
		added, err := w.addTree(event.Name)
		if err != nil {
			w.logger.Warn("failed to watch new directory", "path", event.Name, "err", err)
		}
		for _, dir := range added {
			if ref, ok := w.locator.Locate(dir); ok && !slices.Contains(refs, ref) {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// flush re-indexes every pending article.
func (w *Watcher) flush(ctx context.Context, pending map[core.DocumentRef]bool) {
	refs := make([]core.DocumentRef, 0, len(pending))
	for ref := range pending {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b core.DocumentRef) int {
		return strings.Compare(a.ID(), b.ID())
	})

	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		scope := core.IndexScope{Category: ref.Category, Slug: ref.Slug}
		result, err := w.indexer.Run(ctx, scope, nil)
		if err != nil {
			w.logger.Error("re-index failed", "document", ref.ID(), "err", err)
		} else {
			w.logger.Info("re-indexed", "document", ref.ID(), "status", result.Status,
				"processed", result.DocumentsProcessed, "removed", result.DocumentsRemoved)
		}
		if w.notify != nil {
			w.notify(result, err)
		}
	}
}

// addTree subscribes to path and every directory below it, skipping hidden
// directories. A path that is not a directory is ignored.
func (w *Watcher) addTree(path string) ([]string, error) {
	var added []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return err
		}
		added = append(added, p)
		return nil
	})
	return added, err
}
