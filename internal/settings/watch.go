package settings

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"huddle/internal/config"
)

// WatchConfig reloads the config file when it changes on disk and pushes
// the new display name into the store. Editors often replace the file
// (rename + create) instead of writing in place, so the watch is on the
// parent directory. Runs until ctx is cancelled.
func (s *Store) WatchConfig(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		// Debounce: editors fire multiple events per save.
		var pending *time.Timer
		reload := func() {
			cfg, err := config.Load(path)
			if err != nil {
				log.Printf("SETTINGS: config reload failed: %v", err)
				return
			}
			s.SetDisplayName(cfg.Profile.Name)
			log.Printf("SETTINGS: config reloaded from %s", path)
		}

		for {
			select {
			case <-ctx.Done():
				if pending != nil {
					pending.Stop()
				}
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(path) {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("SETTINGS: config watch error: %v", err)
			}
		}
	}()

	return nil
}
