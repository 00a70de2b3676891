package flow

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// CatalogWatcher hot-reloads the question file when it changes, so question
// wording can be iterated without restarting the engine. Sessions already in
// progress keep the set they were bound at role selection.
type CatalogWatcher struct {
	catalog *Catalog
	path    string
	log     zerolog.Logger

	watcher *fsnotify.Watcher

	// Debounce: editors produce rapid Write bursts on save.
	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewCatalogWatcher creates a watcher for the given question file.
func NewCatalogWatcher(catalog *Catalog, path string, log zerolog.Logger) *CatalogWatcher {
	return &CatalogWatcher{
		catalog: catalog,
		path:    path,
		log:     log.With().Str("component", "question_watcher").Logger(),
	}
}

// Start performs the initial load and begins watching the file's directory.
// Watching the directory rather than the file survives editors that replace
// the file on save.
func (cw *CatalogWatcher) Start(ctx context.Context) error {
	if err := cw.catalog.LoadFile(cw.path); err != nil {
		return err
	}
	cw.log.Info().Str("path", cw.path).Msg("question file loaded")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(cw.path)); err != nil {
		w.Close()
		return err
	}
	cw.watcher = w

	go cw.watchLoop(ctx)
	return nil
}

// Stop closes the fsnotify watcher.
func (cw *CatalogWatcher) Stop() {
	if cw.watcher != nil {
		cw.watcher.Close()
	}
}

func (cw *CatalogWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(cw.path) {
				continue
			}
			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleReload debounces reloads by 500ms so the file is fully written
// before it is read back.
func (cw *CatalogWatcher) scheduleReload() {
	cw.debounceMu.Lock()
	defer cw.debounceMu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Reset(500 * time.Millisecond)
		return
	}
	cw.debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
		cw.debounceMu.Lock()
		cw.debounceTimer = nil
		cw.debounceMu.Unlock()

		if err := cw.catalog.LoadFile(cw.path); err != nil {
			// Keep serving the previous sets on a bad edit.
			cw.log.Warn().Err(err).Str("path", cw.path).Msg("question file reload failed, keeping previous sets")
			return
		}
		cw.log.Info().Str("path", cw.path).Msg("question file reloaded")
	})
}
