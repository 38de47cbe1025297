package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/metrics"
)

const reloadDebounce = 250 * time.Millisecond

// WatchGraph reloads the snapshot at path whenever the file is rewritten.
// The directory is watched rather than the file, because snapshots are
// replaced by rename. It returns once the watch is set up; the watch stops
// when ctx is cancelled.
func (s *Server) WatchGraph(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve graph path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s.logger.Info("watching graph snapshot", zap.String("path", abs))
	go s.watchLoop(ctx, watcher, abs)
	return nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

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
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("graph snapshot changed", zap.String("operation", event.Op.String()))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				s.reloadFile(path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) reloadFile(path string) {
	err := s.Reload(FileSource(path))
	metrics.RecordSnapshotLoad("reload", err)
	if err != nil {
		s.logger.Error("graph reload failed, keeping previous snapshot", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Info("graph snapshot reloaded", zap.String("path", path))
}
