package server

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkforge/handbook"
)

// watcher reloads the store when a snapshot file changes on disk outside
// this process (file storage backend only).
type watcher struct {
	fw    *fsnotify.Watcher
	store *handbook.Store
	dir   string
}

func newWatcher(dir string, store *handbook.Store) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &watcher{fw: fw, store: store, dir: dir}, nil
}

func (w *watcher) run(ctx context.Context) {
	defer w.fw.Close()

	// Editor keystrokes produce bursts of write events; a short settle
	// delay loads each burst once.
	var pending *time.Timer
	reload := func(path string) {
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(200*time.Millisecond, func() { w.reload(path) })
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload(event.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("[server] watch %s: %v", w.dir, err)
		}
	}
}

func (w *watcher) reload(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[server] reload %s: %v", filepath.Base(path), err)
		return
	}
	var h handbook.Handbook
	if err := json.Unmarshal(data, &h); err != nil {
		log.Printf("[server] reload %s: %v", filepath.Base(path), err)
		return
	}
	// Ignore our own debounced writes: only pick up snapshots strictly
	// newer than what is already in memory.
	current := w.store.Snapshot()
	if h.ID == current.ID && !h.UpdatedAt.After(current.UpdatedAt) {
		return
	}
	if err := w.store.LoadHandbook(&h); err != nil {
		log.Printf("[server] reload %s: %v", filepath.Base(path), err)
		return
	}
	log.Printf("[server] reloaded handbook %s from disk", h.ID)
}
