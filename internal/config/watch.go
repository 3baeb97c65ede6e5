package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDebounce coalesces the burst of events editors emit on save.
var reloadDebounce = 500 * time.Millisecond

// Watch reloads the config file whenever it changes and hands the new value
// to onChange. Invalid edits are logged and skipped. Watch blocks until ctx
// is done.
//
// The parent directory is watched rather than the file, since editors and
// config-map mounts replace the file instead of writing it.
func Watch(ctx context.Context, path string, onChange func(*Config), logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	target := filepath.Clean(path)
	reload := func() {
		cfg, err := LoadConfig(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logger.Info().Str("path", path).Msg("Configuration reloaded")
		onChange(cfg)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, reload)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Config watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}
