package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/voicerag/voicerag/internal/collection"
	"github.com/voicerag/voicerag/internal/converter"
)

// DefaultDebounce is the quiet period before pending changes are applied
const DefaultDebounce = 500 * time.Millisecond

// maxRetryDelay caps the backoff between attempts to apply changes that failed
const maxRetryDelay = 30 * time.Second

// Action is what a change does to the collection
type Action int

const (
	ActionAdd    Action = iota // Create or write: (re)index the file
	ActionRemove               // Remove or rename: drop the file's chunks
)

func (a Action) String() string {
	if a == ActionRemove {
		return "remove"
	}
	return "add"
}

// Change is one pending collection update
type Change struct {
	Path   string
	Action Action
}

// Target receives the debounced changes. retrieval.Service satisfies it.
type Target interface {
	Add(ctx context.Context, paths ...string) (*collection.AddResult, error)
	Remove(ctx context.Context, paths ...string) (int, error)
}

// FlushResult reports one application of pending changes
type FlushResult struct {
	Added         []string
	Removed       []string
	ChunksAdded   int
	ChunksRemoved int
	Err           error
}

// Options tunes a Watcher
type Options struct {
	Debounce time.Duration           // Defaults to DefaultDebounce
	Logger   *slog.Logger            // Defaults to slog.Default()
	OnFlush  func(result FlushResult) // Called after every flush, from the watcher goroutine
}

// Watcher mirrors one folder into a collection. Events are debounced and
// applied from the single goroutine running Run, so the collection sees one
// writer.
type Watcher struct {
	dir      string
	target   Target
	debounce time.Duration
	logger   *slog.Logger
	onFlush  func(FlushResult)
	fsw      *fsnotify.Watcher
	pending  map[string]Action
}

// New starts watching dir. Subdirectories are not watched, matching how
// collections are initialized from a folder.
func New(dir string, target Target, opts Options) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("target cannot be nil")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		target:   target,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		onFlush:  opts.OnFlush,
		fsw:      fsw,
		pending:  make(map[string]Action),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("dir", dir)
	return w, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
// Changes still pending at cancellation are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	retry := w.debounce

	w.logger.Info("watching folder", "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			if n := len(w.pending); n > 0 {
				w.logger.Warn("watcher stopped with pending changes", "pending", n)
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			change, ok := classify(ev)
			if !ok {
				continue
			}
			w.logger.Debug("file change", "path", change.Path, "action", change.Action.String())
			w.pending[change.Path] = change.Action
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if err := w.flush(ctx); err != nil && ctx.Err() == nil {
				retry = min(retry*2, maxRetryDelay)
				timer.Reset(retry)
				continue
			}
			retry = w.debounce
		}
	}
}

// Close stops watching. Run returns once the event channels drain.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// flush applies pending changes: removals first, then additions. Changes
// that were not applied go back into pending and the error is returned.
func (w *Watcher) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	var result FlushResult
	for path, action := range w.pending {
		if action == ActionRemove {
			result.Removed = append(result.Removed, path)
		} else {
			result.Added = append(result.Added, path)
		}
	}
	clear(w.pending)
	sort.Strings(result.Added)
	sort.Strings(result.Removed)

	if len(result.Removed) > 0 {
		n, err := w.target.Remove(ctx, result.Removed...)
		if err != nil {
			result.Err = err
			w.requeue(result.Removed, ActionRemove)
			w.requeue(result.Added, ActionAdd)
		}
		result.ChunksRemoved = n
	}
	if len(result.Added) > 0 && result.Err == nil {
		res, err := w.target.Add(ctx, result.Added...)
		if err != nil {
			result.Err = err
			w.requeue(result.Added, ActionAdd)
		} else {
			result.ChunksAdded = res.Chunks
			for _, f := range res.Failures {
				w.logger.Warn("file could not be indexed", "path", f.Path, "error", f.Err)
			}
		}
	}

	if result.Err != nil {
		w.logger.Error("applying changes failed, will retry",
			"added", len(result.Added), "removed", len(result.Removed), "pending", len(w.pending), "error", result.Err)
	} else {
		w.logger.Info("changes applied",
			"added", len(result.Added), "removed", len(result.Removed),
			"chunks_added", result.ChunksAdded, "chunks_removed", result.ChunksRemoved)
	}
	if w.onFlush != nil {
		w.onFlush(result)
	}
	return result.Err
}

// requeue puts unapplied changes back, keeping any newer action for a path
func (w *Watcher) requeue(paths []string, action Action) {
	for _, p := range paths {
		if _, ok := w.pending[p]; !ok {
			w.pending[p] = action
		}
	}
}

// classify maps an fsnotify event to a collection change. Hidden files,
// directories, unsupported formats and chmod-only events are ignored.
func classify(ev fsnotify.Event) (Change, bool) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !converter.Supported(ev.Name) {
		return Change{}, false
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Change{Path: ev.Name, Action: ActionRemove}, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || !info.Mode().IsRegular() {
			return Change{}, false
		}
		return Change{Path: ev.Name, Action: ActionAdd}, true
	}
	return Change{}, false
}
