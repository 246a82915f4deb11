package emu

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"rawrsgdb/emu/log"
)

// reloadDelay coalesces the burst of events produced by a single rebuild.
const reloadDelay = 100 * time.Millisecond

// WatchBinary calls reload with the new content of the ELF file at path
// every time it changes on disk, until ctx is cancelled.
func WatchBinary(ctx context.Context, path string, reload func(*Binary)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	// Watch the directory: linkers and editors often replace the file
	// rather than writing it in place.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.ModEmu.WarnZ("binary watcher error").Error("err", err).End()
		case <-timer.C:
			bin, err := LoadBinary(path)
			if err != nil {
				log.ModEmu.WarnZ("failed to reload binary").String("path", path).Error("err", err).End()
				continue
			}
			log.ModEmu.InfoZ("binary changed, reloading").String("path", path).End()
			reload(bin)
		}
	}
}
