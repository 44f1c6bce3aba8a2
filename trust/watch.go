package trust

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/keystore"
)

// WatchIntermediate drops the cached intermediate of v whenever the intermediate record of s
// changes on disk, so a replaced key is used before the cache TTL runs out. The watch stops
// when ctx is done.
func WatchIntermediate(ctx context.Context, s *keystore.FileStore, v *Verifier) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create key directory watcher: %w", err)
	}

	// records are replaced by rename, so the directory is watched rather than the file
	if err := watcher.Add(s.Dir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch key directory %s: %w", s.Dir(), err)
	}

	target := filepath.Clean(s.Path(keystore.IntermediateName))

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := v.Invalidate(ctx); err != nil {
					log.WithContext(ctx).Warnf("failed dropping cached intermediate key: %v", err)
					continue
				}
				log.WithContext(ctx).Infof("intermediate key record changed (%s), cached key dropped", event.Op)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithContext(ctx).Warnf("key directory watcher error: %v", err)
			}
		}
	}()

	return nil
}
