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
	"sync"
	"time"
)

// Debouncer holds per-path timers so a burst of events on one file
// (editors often write, truncate, and write again) collapses into a
// single delivery once the path has been quiet for the window.
//
// In batch mode every event seen during the window is delivered
// together; otherwise only the latest event per path survives. Rescans
// only need the latest state, so the service runs in latest mode.
type Debouncer struct {
	mu        sync.Mutex
	window    time.Duration
	batch     bool
	pending   map[string]*pendingPath
	onFlush   func([]Event)
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

type pendingPath struct {
	timer  *time.Timer
	events []Event
}

// NewDebouncer creates a debouncer with the given settle window. The
// onFlush callback receives events once their path has gone quiet; it
// runs on a timer goroutine, never under the debouncer's lock.
func NewDebouncer(window time.Duration, batch bool, onFlush func([]Event)) *Debouncer {
	return &Debouncer{
		window:    window,
		batch:     batch,
		pending:   make(map[string]*pendingPath),
		onFlush:   onFlush,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Add records an event, resetting the settle timer for its path.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	pp, exists := d.pending[ev.Path]
	if exists {
		pp.timer.Stop()
		if d.batch {
			pp.events = append(pp.events, ev)
		} else {
			pp.events = []Event{ev}
		}
	} else {
		pp = &pendingPath{events: []Event{ev}}
		d.pending[ev.Path] = pp
	}

	path := ev.Path
	pp.timer = time.AfterFunc(d.window, func() {
		d.flush(path)
	})
}

func (d *Debouncer) flush(path string) {
	d.mu.Lock()
	pp, exists := d.pending[path]
	if !exists {
		d.mu.Unlock()
		return
	}
	events := pp.events
	delete(d.pending, path)
	d.mu.Unlock()

	// Outside the lock: onFlush may call back into Add.
	if d.onFlush != nil && len(events) > 0 {
		d.onFlush(events)
	}
}

// Stop cancels all timers and flushes whatever is still pending. Safe
// to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()

	select {
	case <-d.stopCh:
		d.mu.Unlock()
		return
	default:
		close(d.stopCh)
	}

	var remaining []Event
	for path, pp := range d.pending {
		pp.timer.Stop()
		if d.batch {
			remaining = append(remaining, pp.events...)
		} else if len(pp.events) > 0 {
			remaining = append(remaining, pp.events[len(pp.events)-1])
		}
		delete(d.pending, path)
	}
	d.mu.Unlock()

	if d.onFlush != nil && len(remaining) > 0 {
		d.onFlush(remaining)
	}
	close(d.stoppedCh)
}

// Wait blocks until Stop has completed.
func (d *Debouncer) Wait() {
	<-d.stoppedCh
}

// Pending returns how many paths currently have a live timer.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
