package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watch reloads the config whenever the file changes and hands every valid
// result to onChange. Invalid edits are logged and skipped. It returns once
// the watcher is running; watching stops when ctx is done.
func (l *Loader) Watch(ctx context.Context, path string, onChange func(domain.Config)) error {
	if path == "" {
		return ErrNoConfigPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return err
	}
	go l.runWatcher(ctx, watcher, abs, onChange)
	return nil
}

func (l *Loader) runWatcher(ctx context.Context, watcher *fsnotify.Watcher, path string, onChange func(domain.Config)) {
	defer watcher.Close()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("config watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultReloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(defaultReloadDebounce)
		case <-timerChan(timer):
			timer = nil
			cfg, err := l.Load(ctx, path)
			if err != nil {
				l.logger.Warn("config reload failed", telemetry.EventField(telemetry.EventConfigReload), zap.Error(err))
				continue
			}
			l.logger.Info("config reloaded", telemetry.EventField(telemetry.EventConfigReload), zap.String("path", path))
			onChange(cfg)
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
