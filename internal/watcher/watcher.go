// Package watcher monitors directories for new or changed documents and
// forwards their text to the ingestion API. Supported formats are markdown,
// plain text and PDF (via pdftotext).
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
)

// Watcher tails a set of directory trees and ingests files as they appear
// or change. A modification-time cache keeps already-ingested files from
// being resent; the server's content dedup catches anything that slips
// through.
type Watcher struct {
	ingester Ingester
	runner   CommandRunner
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a Watcher that sends documents through the given ingester.
func New(ingester Ingester, runner CommandRunner, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Watcher{
		ingester: ingester,
		runner:   runner,
		logger:   logger,
		seen:     make(map[string]time.Time),
	}
}

// Run watches the given directories until ctx is cancelled. Each directory
// is scanned once at startup so files created while the watcher was down
// are still picked up.
func (w *Watcher) Run(ctx context.Context, dirs []string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range dirs {
		if err := w.addTree(ctx, fw, dir); err != nil {
			return err
		}
	}

	w.logger.Info("watching directories", "count", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// addTree registers dir and all its subdirectories with the fsnotify
// watcher, ingesting any supported files already present.
func (w *Watcher) addTree(ctx context.Context, fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		w.processFile(ctx, path)
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Editors often create and remove temp files faster than we
		// can stat them.
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(ctx, fw, event.Name); err != nil {
				w.logger.Error("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
		return
	}

	w.processFile(ctx, event.Name)
}

// processFile extracts and ingests a single file, skipping files whose
// modification time has not advanced since the last successful ingest.
func (w *Watcher) processFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if w.alreadySeen(path, info.ModTime()) {
		return
	}

	doc, err := Extract(ctx, w.runner, path)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFile) || errors.Is(err, ErrEmptyFile) {
			w.logger.Debug("skipping file", "path", path, "reason", err)
			return
		}
		w.logger.Error("extraction failed", "path", path, "error", err)
		return
	}

	if err := w.ingester.IngestFile(ctx, doc); err != nil {
		w.logger.Error("ingest failed", "path", path, "error", err)
		return
	}

	w.markSeen(path, info.ModTime())
	w.logger.Info("ingested file", "path", path, "title", doc.Title)
}

func (w *Watcher) alreadySeen(path string, modTime time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.seen[path]
	return ok && !modTime.After(last)
}

func (w *Watcher) markSeen(path string, modTime time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen[path] = modTime
}
