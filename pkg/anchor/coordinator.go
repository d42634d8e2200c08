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

package anchor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultProgressInterval throttles progress callbacks during a scan.
const DefaultProgressInterval = 200 * time.Millisecond

// Status reports how a solution scan ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a finished solution scan.
type Result struct {
	ScanID       string
	Status       Status
	FilesScanned int
	FilesSkipped int
	AnchorsFound int
	Duration     time.Duration
	Err          error
}

// Progress is a point-in-time view of a running scan.
type Progress struct {
	ScanID       string
	Processed    int
	Total        int
	AnchorsFound int
}

// CoordinatorOptions configure scan execution. The zero value is
// usable: defaults fill in workers, file reading, and throttling.
type CoordinatorOptions struct {
	// Workers caps concurrent file scans. Zero means one fewer than
	// the CPU count, minimum one, leaving headroom for the caller.
	Workers int

	// ScanConfig selects the tags and prefixes to recognize.
	ScanConfig ScanConfig

	// ReadFile loads file contents; defaults to os.ReadFile. Tests
	// inject failures here.
	ReadFile func(path string) ([]byte, error)

	// OnProgress receives throttled updates during a scan plus one
	// final update when it ends.
	OnProgress func(Progress)

	// OnComplete receives the result of every solution scan.
	OnComplete func(Result)

	// ProgressInterval is the minimum gap between progress callbacks.
	// Zero means DefaultProgressInterval.
	ProgressInterval time.Duration

	Logger *slog.Logger
}

// Coordinator runs solution scans against an index. At most one
// solution scan is active at a time: starting a new one cancels the
// previous scan and waits for it to drain before scanning, so index
// writes from two scans never interleave.
type Coordinator struct {
	enum     Enumerator
	index    *Index
	scanner  *Scanner
	opts     CoordinatorOptions
	workers  int
	interval time.Duration
	readFile func(string) ([]byte, error)
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	busy   bool
}

// NewCoordinator returns a coordinator that scans files yielded by
// enum and publishes results into index.
func NewCoordinator(enum Enumerator, index *Index, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		enum:     enum,
		index:    index,
		scanner:  NewScanner(opts.ScanConfig),
		opts:     opts,
		workers:  opts.Workers,
		interval: opts.ProgressInterval,
		readFile: opts.ReadFile,
		log:      opts.Logger,
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU() - 1
		if c.workers < 1 {
			c.workers = 1
		}
	}
	if c.interval <= 0 {
		c.interval = DefaultProgressInterval
	}
	if c.readFile == nil {
		c.readFile = os.ReadFile
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Index returns the index this coordinator publishes into.
func (c *Coordinator) Index() *Index { return c.index }

// ScanSolution starts a full scan and returns its id immediately. Any
// scan already running is cancelled first; the new scan begins once
// the old one has drained. Completion is reported via OnComplete.
func (c *Coordinator) ScanSolution(ctx context.Context) string {
	scanID := uuid.NewString()
	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	prevCancel, prevDone := c.cancel, c.done
	c.cancel, c.done, c.busy = cancel, done, true
	c.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
	}

	go func() {
		defer close(done)
		if prevDone != nil {
			<-prevDone
		}
		res := c.run(scanCtx, scanID)
		cancel()

		c.mu.Lock()
		if c.done == done {
			c.busy = false
		}
		c.mu.Unlock()

		if c.opts.OnComplete != nil {
			c.opts.OnComplete(res)
		}
	}()
	return scanID
}

// CancelScan cancels the scan in flight, if any. Safe to call at any
// time, repeatedly.
func (c *Coordinator) CancelScan() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the most recently started scan has finished.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Busy reports whether a solution scan is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// ScanFile scans a single file synchronously and updates the index.
// A file that no longer exists is removed from the index and is not
// an error, so watchers can feed deletes through the same path.
func (c *Coordinator) ScanFile(path, project string) ([]Item, error) {
	data, err := c.readFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.index.RemoveFile(path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	items := c.scanner.Scan(string(data), path, project)
	c.index.AddOrUpdateFile(path, items)
	return items, nil
}

func (c *Coordinator) run(ctx context.Context, scanID string) Result {
	start := time.Now()
	log := c.log.With("scan_id", scanID)

	type target struct {
		path    string
		project string
	}
	var targets []target
	err := c.enum.Enumerate(ctx, func(path, project string) error {
		targets = append(targets, target{path: path, project: project})
		return nil
	})
	if err != nil {
		res := Result{ScanID: scanID, Duration: time.Since(start)}
		if errors.Is(err, context.Canceled) {
			res.Status = StatusCancelled
		} else {
			res.Status = StatusFailed
			res.Err = err
			log.Error("scan enumeration failed", "error", err)
		}
		return res
	}

	total := len(targets)
	log.Debug("scan started", "files", total, "workers", c.workers)

	var processed, skipped, found atomic.Int64
	limiter := rate.NewLimiter(rate.Every(c.interval), 1)
	report := func() {
		if c.opts.OnProgress == nil {
			return
		}
		c.opts.OnProgress(Progress{
			ScanID:       scanID,
			Processed:    int(processed.Load()),
			Total:        total,
			AnchorsFound: int(found.Load()),
		})
	}

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
queue:
	for _, t := range targets {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break queue
		}
		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			data, err := c.readFile(t.path)
			if err != nil {
				skipped.Add(1)
				log.Warn("skipping unreadable file", "path", t.path, "error", err)
				return
			}
			items := c.scanner.Scan(string(data), t.path, t.project)
			c.index.AddOrUpdateFile(t.path, items)
			processed.Add(1)
			found.Add(int64(len(items)))
			if limiter.Allow() {
				report()
			}
		}(t)
	}
	wg.Wait()

	status := StatusCompleted
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	report()

	res := Result{
		ScanID:       scanID,
		Status:       status,
		FilesScanned: int(processed.Load()),
		FilesSkipped: int(skipped.Load()),
		AnchorsFound: int(found.Load()),
		Duration:     time.Since(start),
	}
	log.Info("scan finished",
		"status", status.String(),
		"files", res.FilesScanned,
		"skipped", res.FilesSkipped,
		"anchors", res.AnchorsFound,
		"duration", res.Duration)
	return res
}
