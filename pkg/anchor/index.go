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
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Index is the concurrent anchor store, mapping file paths to the
// anchors found in each file. Paths are case-insensitive keys; the
// casing first seen is kept for display. Every file's list is replaced
// atomically as a whole, so readers never observe a partial update.
// All methods are safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	order   []string
	version atomic.Int64
	changed chan struct{}
}

type fileEntry struct {
	path  string
	items []Item
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		files:   make(map[string]*fileEntry),
		changed: make(chan struct{}, 1),
	}
}

// AddOrUpdateFile replaces the file's anchor list. An empty list
// removes the entry instead, keeping FileCount meaningful. The version
// always advances and subscribers are signalled.
func (idx *Index) AddOrUpdateFile(path string, items []Item) {
	key := strings.ToLower(path)

	idx.mu.Lock()
	if len(items) == 0 {
		idx.removeLocked(key)
	} else if entry, ok := idx.files[key]; ok {
		idx.files[key] = &fileEntry{path: entry.path, items: append([]Item(nil), items...)}
	} else {
		idx.files[key] = &fileEntry{path: path, items: append([]Item(nil), items...)}
		idx.order = append(idx.order, key)
	}
	idx.mu.Unlock()

	idx.bump()
}

// RemoveFile drops the file's entry. Removing an absent file is a
// no-op and does not advance the version.
func (idx *Index) RemoveFile(path string) {
	key := strings.ToLower(path)

	idx.mu.Lock()
	_, existed := idx.files[key]
	if existed {
		idx.removeLocked(key)
	}
	idx.mu.Unlock()

	if existed {
		idx.bump()
	}
}

func (idx *Index) removeLocked(key string) {
	if _, ok := idx.files[key]; !ok {
		return
	}
	delete(idx.files, key)
	for i, k := range idx.order {
		if k == key {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
}

// AnchorsForFile returns a copy of the file's anchors, empty if the
// file is not indexed.
func (idx *Index) AnchorsForFile(path string) []Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.files[strings.ToLower(path)]
	if !ok {
		return nil
	}
	return append([]Item(nil), entry.items...)
}

// AllAnchors flattens every file's anchors into one list: files in
// insertion order, anchors in document order within each file. During
// an active scan the aggregate is eventually consistent; re-read after
// a completion signal for a settled view.
func (idx *Index) AllAnchors() []Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, key := range idx.order {
		total += len(idx.files[key].items)
	}
	all := make([]Item, 0, total)
	for _, key := range idx.order {
		all = append(all, idx.files[key].items...)
	}
	return all
}

// DistinctTypeNames returns the sorted set of type names present in
// the index, for building filter lists.
func (idx *Index) DistinctTypeNames() []string {
	idx.mu.RLock()
	seen := make(map[string]bool)
	for _, entry := range idx.files {
		for _, it := range entry.items {
			seen[it.TypeName()] = true
		}
	}
	idx.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear empties the index. Clearing an already-empty index does not
// advance the version.
func (idx *Index) Clear() {
	idx.mu.Lock()
	hadFiles := len(idx.files) > 0
	if hadFiles {
		idx.files = make(map[string]*fileEntry)
		idx.order = nil
	}
	idx.mu.Unlock()

	if hadFiles {
		idx.bump()
	}
}

// Snapshot returns an independent copy of the whole index, keyed by
// each file's original path, suitable for serialization.
func (idx *Index) Snapshot() map[string][]Item {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	snap := make(map[string][]Item, len(idx.files))
	for _, entry := range idx.files {
		snap[entry.path] = append([]Item(nil), entry.items...)
	}
	return snap
}

// LoadFrom replaces the index contents with the given map, inserting
// files in sorted path order. Empty lists are dropped.
func (idx *Index) LoadFrom(data map[string][]Item) {
	paths := make([]string, 0, len(data))
	for path := range data {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	idx.mu.Lock()
	idx.files = make(map[string]*fileEntry, len(data))
	idx.order = nil
	for _, path := range paths {
		items := data[path]
		if len(items) == 0 {
			continue
		}
		key := strings.ToLower(path)
		if _, dup := idx.files[key]; !dup {
			idx.order = append(idx.order, key)
		}
		idx.files[key] = &fileEntry{path: path, items: append([]Item(nil), items...)}
	}
	idx.mu.Unlock()

	idx.bump()
}

// FileCount returns the number of files with at least one anchor.
func (idx *Index) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

// TotalCount returns the number of anchors across all files.
func (idx *Index) TotalCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, entry := range idx.files {
		total += len(entry.items)
	}
	return total
}

// Version returns a counter that advances on every mutation. Consumers
// compare versions to detect change.
func (idx *Index) Version() int64 { return idx.version.Load() }

// Changed returns a channel that receives after mutations. Signals
// coalesce: a pending notification absorbs further ones, so consumers
// re-read state rather than counting signals.
func (idx *Index) Changed() <-chan struct{} { return idx.changed }

func (idx *Index) bump() {
	idx.version.Add(1)
	select {
	case idx.changed <- struct{}{}:
	default:
	}
}
