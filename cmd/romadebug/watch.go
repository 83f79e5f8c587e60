// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
)

// logWatcher re-triggers analysis each time the watched log file is
// written to, filtering out fsnotify noise from unrelated files in the
// same directory.
type logWatcher struct {
	fsw    *fsnotify.Watcher
	path   string
	events chan struct{}
	errors chan error
	done   chan struct{}
	sig    chan os.Signal
}

func newLogWatcher(path string) (*logWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &logWatcher{
		fsw:    fsw,
		path:   abs,
		events: make(chan struct{}, 1),
		errors: make(chan error),
		done:   make(chan struct{}),
		sig:    make(chan os.Signal, 1),
	}
	signal.Notify(w.sig, syscall.SIGINT, syscall.SIGTERM)

	go w.run()
	return w, nil
}

func (w *logWatcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				close(w.done)
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				close(w.done)
				return
			}
			w.errors <- err
		case <-w.sig:
			close(w.done)
			return
		}
	}
}

func (w *logWatcher) Events() <-chan struct{} { return w.events }
func (w *logWatcher) Errors() <-chan error    { return w.errors }
func (w *logWatcher) Done() <-chan struct{}   { return w.done }

func (w *logWatcher) Close() error {
	signal.Stop(w.sig)
	return w.fsw.Close()
}
