package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// debounce window for editors that write a config file in several events.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the configuration whenever the file changes and hands the
// fresh copy to onChange. Reload failures are logged and the previous
// configuration stays in effect. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	resolved, err := expandUserPath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if errClose := watcher.Close(); errClose != nil {
			log.Warnf("config watch: close watcher: %v", errClose)
		}
	}()

	// Watch the directory: editors often replace the file, which drops a
	// watch registered on the file itself.
	if err = watcher.Add(filepath.Dir(resolved)); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != resolved {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, errLoad := Load(resolved)
			if errLoad != nil {
				log.Warnf("config watch: reload failed, keeping previous config: %v", errLoad)
				continue
			}
			log.WithField("path", resolved).Info("configuration reloaded")
			onChange(cfg)
		case errWatch, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("config watch: %v", errWatch)
		}
	}
}
