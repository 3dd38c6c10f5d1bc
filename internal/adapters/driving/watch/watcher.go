// Package watch ingests PDFs as they appear in a folder.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driving"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Watcher ingests PDFs created or rewritten directly inside a folder.
// Events for one path are coalesced until the file has been quiet for the
// settle duration, so a file being copied is ingested once.
type Watcher struct {
	folder string
	ingest driving.IngestService
	settle time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a watcher for folder.
func New(folder string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		folder:  folder,
		ingest:  ingest,
		settle:  DefaultSettle,
		pending: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns a channel of ingestion results. The
// channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan domain.IngestResult, error) {
	if err := security.ValidateFolderPath(w.folder); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(w.folder); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.folder, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	results := make(chan domain.IngestResult)
	go w.loop(ctx, fsw, results)
	return results, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, results chan<- domain.IngestResult) {
	defer close(results)
	defer fsw.Close()

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.mu.Lock()
				w.pending[path] = time.Now()
				w.mu.Unlock()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.folder, err)
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				logger.Info("watch: ingesting %s", path)
				result := w.ingest.IngestDocument(ctx, path)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// settled removes and returns the pending paths quiet since now-settle.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

// handleFsEvent reports the path to ingest for event, if any. Only creates
// and writes of visible .pdf files directly inside the folder count.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if isHidden(name) || !security.IsPDFName(name) || !security.IsSafeFilename(name) {
		return "", false
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.folder) {
		return "", false
	}
	if err := security.ValidateFilePath(event.Name); err != nil {
		return "", false
	}
	return event.Name, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}
	if err := fsw.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
