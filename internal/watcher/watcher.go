package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"telex/internal/config"
	"telex/internal/logging"
	"telex/internal/queue"
	"telex/internal/services"
	"telex/internal/stage"
)

const (
	claimCacheSize = 4096
	claimTTL       = 30 * time.Minute
)

// Watcher observes the storage directory and pushes matching documents onto
// the path queue.
type Watcher struct {
	root      string
	patterns  []string
	recursive bool
	settle    time.Duration
	out       *queue.PathQueue
	logger    *slog.Logger
	tracker   *stage.Tracker
	newID     func() string

	newNotifier func() (*fsnotify.Watcher, error)

	mu      sync.Mutex
	claimed *expirable.LRU[string, time.Time]

	ready     chan struct{}
	readyOnce sync.Once
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithIDGenerator overrides the correlation ID source.
func WithIDGenerator(fn func() string) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// New constructs a watcher for the configured storage directory.
func New(cfg *config.Config, out *queue.PathQueue, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		root:        cfg.Paths.StorageDir,
		patterns:    append([]string(nil), cfg.Watch.Patterns...),
		recursive:   cfg.Watch.Recursive,
		settle:      cfg.SettleDelay(),
		out:         out,
		logger:      logging.NewComponentLogger(logger, "watcher"),
		tracker:     stage.NewTracker("watcher"),
		newID:       uuid.NewString,
		newNotifier: fsnotify.NewWatcher,
		claimed:     expirable.NewLRU[string, time.Time](claimCacheSize, nil, claimTTL),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tracker exposes the worker state.
func (w *Watcher) Tracker() *stage.Tracker { return w.tracker }

// Ready is closed once live notifications are registered and the startup scan
// has finished.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run registers notifications, scans existing files, then forwards create
// events until ctx is cancelled. An unusable storage directory or
// notification backend is a configuration error.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.tracker.Stop()

	info, err := os.Stat(w.root)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "stat storage dir", "storage directory unavailable", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "watch", "stat storage dir",
			fmt.Sprintf("%s is not a directory", w.root), nil)
	}

	notifier, err := w.newNotifier()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "create notifier", "filesystem notifications unavailable", err)
	}
	defer notifier.Close()

	if err := w.addWatches(notifier, w.root); err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "register", "cannot watch storage directory", err)
	}

	w.logger.Info("watching storage directory",
		logging.String(logging.FieldPath, w.root),
		logging.Strings("patterns", w.patterns),
		logging.Bool("recursive", w.recursive),
		logging.String(logging.FieldEventType, "watch_started"),
	)

	w.scan(ctx, w.root)
	w.readyOnce.Do(func() { close(w.ready) })

	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher stopping", logging.QueueDepth(w.out.Len()))
			return nil
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, notifier, event, &pending)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logWatchError("notification error", services.Wrap(services.ErrWatch, "watch", "notify", "", err), "")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, notifier *fsnotify.Watcher, event fsnotify.Event, pending *sync.WaitGroup) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(event.Name)
		return
	}
	if !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logWatchError("stat created entry", services.Wrap(services.ErrWatch, "watch", "stat", "", err), event.Name)
		}
		return
	}
	if info.IsDir() {
		if !w.recursive {
			return
		}
		if err := w.addWatches(notifier, event.Name); err != nil {
			w.logWatchError("watch new directory", services.Wrap(services.ErrWatch, "watch", "register", "", err), event.Name)
			return
		}
		w.scan(ctx, event.Name)
		return
	}
	if !Matches(w.patterns, event.Name) {
		return
	}

	w.logger.Debug("create event", logging.String(logging.FieldPath, event.Name))
	path := event.Name
	pending.Add(1)
	go func() {
		defer pending.Done()
		if w.settle > 0 {
			timer := time.NewTimer(w.settle)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		w.offer(path)
	}()
}

// offer stats path and enqueues it unless it vanished.
func (w *Watcher) offer(path string) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("document vanished before queueing", logging.String(logging.FieldPath, path))
			return
		}
		w.logWatchError("stat document", services.Wrap(services.ErrWatch, "watch", "stat", "", err), path)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	w.enqueue(path, info.ModTime())
}

func (w *Watcher) enqueue(path string, modTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A claim absorbs exactly one repeat sighting: the startup scan and a
	// live create event racing for the same file.
	if prev, ok := w.claimed.Get(path); ok {
		w.claimed.Remove(path)
		if prev.Equal(modTime) {
			w.logger.Debug("document already queued", logging.String(logging.FieldPath, path))
			return
		}
	}

	w.tracker.Begin()
	doc := queue.Document{ID: w.newID(), Path: path, DetectedAt: time.Now()}
	if err := w.out.Push(doc); err != nil {
		w.tracker.Done(true)
		w.logger.Warn("path queue closed; document not queued",
			logging.String(logging.FieldPath, path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "enqueue_rejected"),
			logging.String(logging.FieldErrorHint, "the file stays on disk and is picked up on next start"),
		)
		return
	}
	w.claimed.Add(path, modTime)
	w.tracker.Done(false)

	w.logger.Info("document queued",
		logging.String(logging.FieldItemID, doc.ID),
		logging.String(logging.FieldPath, path),
		logging.QueueDepth(w.out.Len()),
		logging.String(logging.FieldEventType, "document_queued"),
	)
}

// forget drops the claim for a path that left the directory, so the next
// create event for the same name is queued again.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.claimed.Remove(path)
}

func (w *Watcher) logWatchError(msg string, err error, path string) {
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorHint, "entry skipped; re-create the file to retry"),
	}
	if path != "" {
		attrs = append(attrs, logging.String(logging.FieldPath, path))
	}
	logging.ErrorWithContext(w.logger, msg, "watch_error", err, attrs...)
}

func (w *Watcher) addWatches(notifier *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return notifier.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logWatchError("walk directory", services.Wrap(services.ErrWatch, "watch", "walk", "", err), path)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := notifier.Add(path); err != nil {
			if path == dir {
				return err
			}
			w.logWatchError("watch directory", services.Wrap(services.ErrWatch, "watch", "register", "", err), path)
		}
		return nil
	})
}
