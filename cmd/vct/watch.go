package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"vct-renderer/core"
)

// sceneWatcher reports edits to one file. It watches the parent directory
// because editors often save by renaming a new file over the old one.
type sceneWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	changed chan struct{}
	done    chan struct{}
}

func newSceneWatcher(path string, log core.Logger) (*sceneWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	sw := &sceneWatcher{
		watcher: w,
		path:    abs,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go sw.run(log)
	return sw, nil
}

func (sw *sceneWatcher) run(log core.Logger) {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				// a pending notification already covers this edit
				select {
				case sw.changed <- struct{}{}:
				default:
				}
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("scene watcher: %v", err)
		}
	}
}

// Changed fires at most once per burst of edits between reads.
func (sw *sceneWatcher) Changed() <-chan struct{} { return sw.changed }

func (sw *sceneWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
