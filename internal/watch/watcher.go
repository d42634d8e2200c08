// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tombee/commentary/internal/log"
)

// Event operation names. fsnotify reports a rename on the old path and
// a create on the new one, so OpRenamed means the path went away.
const (
	OpCreated  = "created"
	OpModified = "modified"
	OpDeleted  = "deleted"
	OpRenamed  = "renamed"
)

// opNames maps fsnotify operations to event names. Chmod is absent on
// purpose: permission-only changes never alter a file's anchors.
var opNames = map[fsnotify.Op]string{
	fsnotify.Create: OpCreated,
	fsnotify.Write:  OpModified,
	fsnotify.Remove: OpDeleted,
	fsnotify.Rename: OpRenamed,
}

// Event is one filesystem change observed under the watched root.
type Event struct {
	// Path is the absolute path the event refers to.
	Path string

	// Op is one of created, modified, deleted, renamed.
	Op string

	// Size is the file size at event time. Zero for deleted and
	// renamed paths, which can no longer be stated.
	Size int64

	// IsDir marks directory events. Always false for deleted and
	// renamed paths, for the same reason.
	IsDir bool
}

// Watcher wraps fsnotify and converts raw notifications into Events.
// fsnotify watches single directories only, so callers add each
// subdirectory they care about via Add.
type Watcher struct {
	root    string
	ops     map[string]bool
	fsw     *fsnotify.Watcher
	eventCh chan Event
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher rooted at root. ops selects which event
// kinds are delivered; empty means all four. The root directory itself
// is watched immediately.
func NewWatcher(root string, ops []string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	enabled := make(map[string]bool, 4)
	if len(ops) == 0 {
		for _, name := range opNames {
			enabled[name] = true
		}
	} else {
		for _, op := range ops {
			enabled[op] = true
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		root:    absRoot,
		ops:     enabled,
		fsw:     fsw,
		eventCh: make(chan Event, 100),
		logger:  log.WithComponent(logger, "watch").With(slog.String("root", absRoot)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if err := fsw.Add(absRoot); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", absRoot, err)
	}
	return w, nil
}

// Add registers another directory with the watcher. Needed for every
// subdirectory, including ones created while watching.
func (w *Watcher) Add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Start begins delivering events. Stop (or cancelling ctx) ends
// delivery and closes the Events channel.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
	w.logger.Debug("watcher started")
}

// Stop halts the watcher and releases the underlying fsnotify handle.
// The Events channel is closed once the event loop has drained.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}

// Events returns the channel of observed filesystem events.
func (w *Watcher) Events() <-chan Event {
	return w.eventCh
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.eventCh)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher stopped", slog.String("reason", "context cancelled"))
			return
		case <-w.stopCh:
			w.logger.Debug("watcher stopped")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify event channel closed")
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify error channel closed")
				return
			}
			w.logger.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(raw fsnotify.Event) {
	op, ok := opNames[raw.Op]
	if !ok {
		w.logger.Debug("ignoring unmapped event", slog.String("op", raw.Op.String()), slog.String("path", raw.Name))
		return
	}
	if !w.ops[op] {
		return
	}

	// Deleted and renamed paths cannot be stated anymore.
	var size int64
	var isDir bool
	if op == OpCreated || op == OpModified {
		if info, err := os.Stat(raw.Name); err == nil {
			size = info.Size()
			isDir = info.IsDir()
		} else {
			// The path may be gone again already; let the event
			// through and let the consumer sort it out.
			w.logger.Debug("stat after event failed", slog.String("path", raw.Name), slog.Any("error", err))
		}
	}

	ev := Event{Path: raw.Name, Op: op, Size: size, IsDir: isDir}
	select {
	case w.eventCh <- ev:
		w.logger.Debug("file event", slog.String("op", op), slog.String("path", raw.Name))
	default:
		w.logger.Warn("event channel full, dropping event", slog.String("op", op), slog.String("path", raw.Name))
	}
}
