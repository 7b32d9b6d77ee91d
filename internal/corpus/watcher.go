package corpus

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFile resets the indexer whenever the corpus file is written, created or
// renamed into place. The directory is watched so editors that replace the
// file atomically are handled. Returns when ctx is done.
func WatchFile(ctx context.Context, path string, ix *Indexer, log *zap.SugaredLogger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close()
	}()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	log.Infow("Watching corpus file", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				log.Infow("Corpus file changed", "op", ev.Op.String())
				ix.Reset()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("Corpus watcher error", "error", err)
		}
	}
}
