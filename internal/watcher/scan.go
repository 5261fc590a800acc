package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"telex/internal/logging"
	"telex/internal/services"
)

// scan enqueues every matching regular file below dir. Entries that cannot be
// read are logged and skipped.
func (w *Watcher) scan(ctx context.Context, dir string) {
	found := 0
	visit := func(path string, entry fs.DirEntry) {
		if entry.IsDir() || !Matches(w.patterns, path) {
			return
		}
		info, err := entry.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				w.logWatchError("scan entry", services.Wrap(services.ErrWatch, "watch", "scan", "", err), path)
			}
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		found++
		w.enqueue(path, info.ModTime())
	}

	if w.recursive {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if err != nil {
				w.logWatchError("scan entry", services.Wrap(services.ErrWatch, "watch", "scan", "", err), path)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			visit(path, d)
			return nil
		})
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			w.logWatchError("scan directory", services.Wrap(services.ErrWatch, "watch", "scan", "", err), dir)
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				break
			}
			visit(filepath.Join(dir, entry.Name()), entry)
		}
	}

	w.logger.Info("directory scan complete",
		logging.String(logging.FieldPath, dir),
		logging.Int("found", found),
		logging.String(logging.FieldEventType, "scan_complete"),
	)
}
