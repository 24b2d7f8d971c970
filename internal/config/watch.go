// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce coalesces the burst of events an editor save produces.
const WatchDebounce = 200 * time.Millisecond

// Watch calls fn with the reloaded config each time the file at path
// changes, until ctx is done. The parent directory is watched so that
// editors that replace the file by rename are seen. fn runs on the
// watcher's goroutine.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	go func() {
		defer w.Close()

		timer := time.NewTimer(WatchDebounce)
		if !timer.Stop() {
			<-timer.C
		}
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(WatchDebounce)

			case <-timer.C:
				cfg, err := LoadFromPath(path)
				fn(cfg, err)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				fn(nil, fmt.Errorf("config watcher: %w", err))
			}
		}
	}()
	return nil
}
