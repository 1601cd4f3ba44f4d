// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package docacheconfig

import (
	"io"
	"path/filepath"

	"github.com/aristanetworks/fsnotify"

	"github.com/docache/docache/logger"
)

// watcher implements io.Closer for Watch, grounded on the teacher's own
// fsnotify watch-loop idiom in netns/nslistener.go: watch the
// containing directory rather than the file itself, since editors
// commonly replace a file rather than write it in place, and a
// directory watch survives that replacement.
type watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// Watch loads path on every write/create event affecting it and
// invokes onChange with the freshly parsed Config. A failure to parse
// after a change is logged and otherwise ignored; hot-reload is a
// convenience, not a correctness requirement (SPEC_FULL.md §4.9).
func Watch(path string, log logger.Logger, onChange func(*Config)) (io.Closer, error) {
	log = logger.OrNop(log)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	watched := &watcher{w: w, done: make(chan struct{})}
	go watched.loop(path, log, onChange)
	return watched, nil
}

func (watched *watcher) loop(path string, log logger.Logger, onChange func(*Config)) {
	for {
		select {
		case <-watched.done:
			go func() {
				for range watched.w.Events {
				}
			}()
			watched.w.Close()
			return
		case ev, ok := <-watched.w.Events:
			if !ok {
				return
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&fsnotify.Write != fsnotify.Write && ev.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Errorf("docacheconfig: reload of %s failed: %v", path, err)
				continue
			}
			onChange(cfg)
		case err, ok := <-watched.w.Errors:
			if !ok {
				return
			}
			log.Errorf("docacheconfig: watch error: %v", err)
		}
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (watched *watcher) Close() error {
	close(watched.done)
	return nil
}
