package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates cached documents whose files change on disk, so hand
// edits and restores from backup are picked up without a restart. It
// blocks until ctx is cancelled.
func (d *Dir) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the files: documents are replaced by rename.
	if err := watcher.Add(d.path); err != nil {
		return fmt.Errorf("watch %s: %w", d.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			d.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("document watcher error", "error", err)
		}
	}
}

func (d *Dir) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".json") {
		return
	}
	doc, ok := d.lookup(strings.TrimSuffix(base, ".json"))
	if !ok {
		return
	}
	doc.Invalidate()
	d.logger.Debug("document changed on disk", "file", base, "op", event.Op.String())
}
