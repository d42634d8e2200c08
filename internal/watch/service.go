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

// Package watch keeps an anchor index synchronized with a changing
// working tree. Filesystem events are debounced per path, filtered
// through the same eligibility rules full scans use, rate limited, and
// applied to the index as single-file rescans or removals.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tombee/commentary/internal/log"
	"github.com/tombee/commentary/pkg/anchor"
)

// Config configures a watch session over a scan root.
type Config struct {
	// Root is the directory to watch, recursively. Made absolute at
	// construction.
	Root string

	// Ops selects which event kinds trigger updates; empty means all
	// of created, modified, deleted, renamed.
	Ops []string

	// Debounce is the per-path settle window. Zero disables
	// debouncing and applies every event as it arrives.
	Debounce time.Duration

	// MaxEventsPerSecond paces index updates. Unlike a drop-on-limit
	// scheme this delays bursts instead of losing them, so the index
	// stays accurate through a branch switch. Zero means unpaced.
	MaxEventsPerSecond float64

	// Walker carries the extension allow-list, ignore globs, and size
	// cap, identical to the options the full scan ran with.
	Walker anchor.WalkerOptions

	Logger *slog.Logger
}

// Change is one index update made in response to filesystem events.
type Change struct {
	// Path is relative to the watch root, slash-separated.
	Path string

	// Op is the event kind that caused the update.
	Op string

	// Anchors is how many anchors the path holds after a rescan.
	Anchors int

	// Removed marks that the path, or a directory subtree, was
	// dropped from the index.
	Removed bool

	// Err is set when a rescan failed; the index keeps the previous
	// entries for the path in that case.
	Err error
}

// Service drives a watch session. Events flow from the watcher through
// the debouncer into a single worker that applies them in order, so
// index updates never interleave.
type Service struct {
	root    string
	cfg     Config
	coord   *anchor.Coordinator
	watcher *Watcher
	matcher *Matcher
	deb     *Debouncer
	limiter *rate.Limiter
	work    chan Event
	changes chan Change
	logger  *slog.Logger
	mw      *log.OpMiddleware

	ctx      context.Context
	cancel   context.CancelFunc
	pumpDone chan struct{}
	workDone chan struct{}
	stopOnce sync.Once
}

// NewService creates a watch session publishing into the coordinator's
// index. The session does not run an initial scan; callers scan first
// and then start watching.
func NewService(coord *anchor.Coordinator, cfg Config) (*Service, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}

	matcher, err := NewMatcher(cfg.Walker)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := NewWatcher(root, cfg.Ops, logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		root:     root,
		cfg:      cfg,
		coord:    coord,
		watcher:  watcher,
		matcher:  matcher,
		work:     make(chan Event, 256),
		changes:  make(chan Change, 64),
		logger:   log.WithComponent(logger, "watch"),
		pumpDone: make(chan struct{}),
		workDone: make(chan struct{}),
	}
	s.mw = log.NewOpMiddleware(s.logger)
	if cfg.MaxEventsPerSecond > 0 {
		burst := int(cfg.MaxEventsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxEventsPerSecond), burst)
	}
	return s, nil
}

// Root returns the absolute directory being watched.
func (s *Service) Root() string { return s.root }

// Start registers the directory tree and begins applying events. The
// Changes channel reports every index update until Stop.
func (s *Service) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.Debounce > 0 {
		s.deb = NewDebouncer(s.cfg.Debounce, false, func(events []Event) {
			for _, ev := range events {
				s.enqueue(ev)
			}
		})
	}

	s.extend(s.root, false)
	s.watcher.Start(s.ctx)
	go s.pump()
	go s.worker()

	s.logger.Info("watch session started",
		slog.String("root", s.root),
		slog.Duration("debounce", s.cfg.Debounce),
		slog.Float64("max_events_per_second", s.cfg.MaxEventsPerSecond))
}

// Stop ends the session and closes the Changes channel. Pending
// debounced events are discarded; a session being stopped has no
// consumer left to act on them.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		err = s.watcher.Stop()
		<-s.pumpDone
		if s.deb != nil {
			s.deb.Stop()
		}
		close(s.work)
		<-s.workDone
		close(s.changes)
		s.logger.Info("watch session stopped", slog.String("root", s.root))
	})
	return err
}

// Changes returns the stream of index updates. The channel closes when
// the session stops.
func (s *Service) Changes() <-chan Change {
	return s.changes
}

// pump routes watcher events toward the worker until the watcher's
// channel closes.
func (s *Service) pump() {
	defer close(s.pumpDone)
	for ev := range s.watcher.Events() {
		s.route(ev)
	}
}

func (s *Service) route(ev Event) {
	rel, ok := s.rel(ev.Path)
	if !ok {
		return
	}

	if ev.IsDir {
		// New directories extend the watch; files moved in with them
		// never fire their own create events.
		if ev.Op == OpCreated && !s.matcher.PruneDir(rel) {
			s.extend(ev.Path, true)
		}
		return
	}

	switch ev.Op {
	case OpCreated, OpModified:
		if !s.matcher.Match(rel) || s.matcher.TooLarge(ev.Size) {
			return
		}
	case OpDeleted, OpRenamed:
		// A removal may be a whole directory, which carries no
		// extension and cannot be stated. Screen out editor noise
		// here and let the worker consult the index for the rest.
		if s.matcher.Noise(rel) {
			return
		}
	}

	if s.deb != nil {
		s.deb.Add(ev)
		return
	}
	s.enqueue(ev)
}

// extend adds watches for dir and every subdirectory below it, pruning
// ignored trees. With announce set, eligible files found along the way
// are fed through as created events.
func (s *Service) extend(dir string, announce bool) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable trees are skipped, as in full scans.
			return nil
		}
		if d.IsDir() {
			if rel, ok := s.rel(path); ok && s.matcher.PruneDir(rel) {
				return fs.SkipDir
			}
			if path != s.root {
				if addErr := s.watcher.Add(path); addErr != nil {
					s.logger.Warn("cannot watch directory", slog.String("path", path), slog.Any("error", addErr))
				}
			}
			return nil
		}
		if !announce || !d.Type().IsRegular() {
			return nil
		}
		rel, ok := s.rel(path)
		if !ok || !s.matcher.Match(rel) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || s.matcher.TooLarge(info.Size()) {
			return nil
		}
		ev := Event{Path: path, Op: OpCreated, Size: info.Size()}
		if s.deb != nil {
			s.deb.Add(ev)
		} else {
			s.enqueue(ev)
		}
		return nil
	})
	if walkErr != nil {
		s.logger.Warn("watch registration walk failed", slog.String("dir", dir), slog.Any("error", walkErr))
	}
}

func (s *Service) enqueue(ev Event) {
	select {
	case s.work <- ev:
	case <-s.ctx.Done():
	}
}

// worker applies queued events one at a time.
func (s *Service) worker() {
	defer close(s.workDone)
	for ev := range s.work {
		s.apply(ev)
	}
}

func (s *Service) apply(ev Event) {
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return
		}
	}
	rel, ok := s.rel(ev.Path)
	if !ok {
		return
	}
	switch ev.Op {
	case OpDeleted, OpRenamed:
		s.remove(ev, rel)
	default:
		s.rescan(ev, rel)
	}
}

func (s *Service) rescan(ev Event, rel string) {
	var items []anchor.Item
	_, err := s.mw.RunWithMetadata(&log.Op{Name: "file_rescan", Path: rel}, func() (map[string]interface{}, error) {
		var scanErr error
		items, scanErr = s.coord.ScanFile(ev.Path, anchor.ProjectLabel(s.root, ev.Path))
		if scanErr != nil {
			return nil, scanErr
		}
		return map[string]interface{}{"anchors": len(items)}, nil
	})
	if err != nil {
		s.emit(Change{Path: rel, Op: ev.Op, Err: err})
		return
	}
	s.emit(Change{Path: rel, Op: ev.Op, Anchors: len(items)})
}

// remove drops the path from the index. When the path was a directory,
// every indexed file beneath it goes too; a directory removal fires a
// single event for the directory itself. Removals of paths the index
// never held stay silent.
func (s *Service) remove(ev Event, rel string) {
	idx := s.coord.Index()
	removed := len(idx.AnchorsForFile(ev.Path)) > 0
	idx.RemoveFile(ev.Path)

	prefix := strings.ToLower(ev.Path + string(filepath.Separator))
	for path := range idx.Snapshot() {
		if strings.HasPrefix(strings.ToLower(path), prefix) {
			idx.RemoveFile(path)
			removed = true
		}
	}

	if !removed {
		return
	}
	s.logger.Debug("removed from index", slog.String("path", rel), slog.String("op", ev.Op))
	s.emit(Change{Path: rel, Op: ev.Op, Removed: true})
}

func (s *Service) emit(c Change) {
	select {
	case s.changes <- c:
	case <-s.ctx.Done():
	}
}

func (s *Service) rel(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
