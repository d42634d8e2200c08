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

package shared

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Progress renders a single-line scan meter on stderr. The meter is
// rewritten in place with carriage returns, so it must only be enabled
// when stderr is a terminal; callers gate on TTY, --quiet, and --json.
// A disabled meter is a no-op, which keeps command code free of
// conditionals. Safe for concurrent use: scan workers report from
// multiple goroutines.
type Progress struct {
	mu      sync.Mutex
	enabled bool
	active  bool
}

// NewProgress returns a meter that renders only when enabled.
func NewProgress(enabled bool) *Progress {
	return &Progress{enabled: enabled}
}

// Update redraws the meter with the latest counts.
func (p *Progress) Update(processed, total, anchors int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	fmt.Fprintf(os.Stderr, "\r\033[K  scanning %d/%d files, %d anchors", processed, total, anchors)
}

// Done clears the meter line. Calling Done on a meter that never drew
// anything is a no-op, so deferred cleanup is always safe.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		fmt.Fprint(os.Stderr, "\r\033[K")
		p.active = false
	}
}

// FormatDuration formats a duration for command summaries: sub-minute
// values as seconds with one decimal, longer values as minutes and
// whole seconds.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := d.Seconds() - float64(minutes*60)
	return fmt.Sprintf("%dm %.0fs", minutes, seconds)
}
