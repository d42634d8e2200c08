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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// cacheVersion is bumped whenever the on-disk shape changes; older
// files are treated as a miss and rebuilt by the next scan.
const cacheVersion = 1

// DefaultCacheName is the cache file created at the workspace root.
const DefaultCacheName = ".commentary.cache.json"

// cacheFile is the on-disk format: a version marker and a compact
// per-file item list. Field names are single letters to keep large
// solutions cheap to read and write.
type cacheFile struct {
	Version int                    `json:"v"`
	Files   map[string][]cacheItem `json:"f"`
}

type cacheItem struct {
	Type     int    `json:"t"`
	Line     int    `json:"l"`
	Column   int    `json:"c"`
	Message  string `json:"m,omitempty"`
	Owner    string `json:"o,omitempty"`
	IssueRef string `json:"i,omitempty"`
	AnchorID string `json:"a,omitempty"`
	Metadata string `json:"r,omitempty"`
	Custom   string `json:"y,omitempty"`
	Project  string `json:"p,omitempty"`
}

// Cache persists index snapshots between sessions so the UI can show
// last-known anchors while a fresh scan runs.
type Cache struct {
	path string
}

// NewCache returns a cache backed by the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// DefaultCachePath returns the conventional cache location for a
// workspace root.
func DefaultCachePath(root string) string {
	return filepath.Join(root, DefaultCacheName)
}

// Path returns the backing file path.
func (c *Cache) Path() string { return c.path }

// Save writes the snapshot atomically: a temp file in the same
// directory is renamed over the target so readers never see a partial
// cache.
func (c *Cache) Save(snapshot map[string][]Item) error {
	out := cacheFile{
		Version: cacheVersion,
		Files:   make(map[string][]cacheItem, len(snapshot)),
	}
	for path, items := range snapshot {
		list := make([]cacheItem, len(items))
		for i, it := range items {
			list[i] = cacheItem{
				Type:     int(it.Type),
				Line:     it.Line,
				Column:   it.Column,
				Message:  it.Message,
				Owner:    it.Owner,
				IssueRef: it.IssueRef,
				AnchorID: it.AnchorID,
				Metadata: it.RawMetadata,
				Custom:   it.CustomName,
				Project:  it.Project,
			}
		}
		out.Files[path] = list
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode anchor cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".commentary-cache-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load reads the cache. A missing file, an unreadable JSON body, or a
// version mismatch all return (nil, nil): stale or damaged caches are
// a miss, never an error, because the next scan rebuilds them. Real
// I/O failures are returned.
func (c *Cache) Load() (map[string][]Item, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read anchor cache: %w", err)
	}

	var in cacheFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, nil
	}
	if in.Version != cacheVersion || in.Files == nil {
		return nil, nil
	}

	snap := make(map[string][]Item, len(in.Files))
	for path, list := range in.Files {
		if len(list) == 0 {
			continue
		}
		items := make([]Item, len(list))
		for i, ci := range list {
			items[i] = Item{
				Type:        Type(ci.Type),
				CustomName:  ci.Custom,
				FilePath:    path,
				Line:        ci.Line,
				Column:      ci.Column,
				Project:     ci.Project,
				Message:     ci.Message,
				RawMetadata: ci.Metadata,
				Owner:       ci.Owner,
				IssueRef:    ci.IssueRef,
				AnchorID:    ci.AnchorID,
			}
		}
		snap[path] = items
	}
	return snap, nil
}

// Clear removes the cache file. A missing file is not an error.
func (c *Cache) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove anchor cache: %w", err)
	}
	return nil
}

// CacheInfo describes the cache file on disk.
type CacheInfo struct {
	Path    string
	Exists  bool
	Size    int64
	ModTime time.Time
	Files   int
	Anchors int
}

// Info stats the cache and, when present and readable, counts its
// contents.
func (c *Cache) Info() (CacheInfo, error) {
	info := CacheInfo{Path: c.path}
	st, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("stat anchor cache: %w", err)
	}
	info.Exists = true
	info.Size = st.Size()
	info.ModTime = st.ModTime()

	snap, err := c.Load()
	if err != nil {
		return info, err
	}
	info.Files = len(snap)
	for _, items := range snap {
		info.Anchors += len(items)
	}
	return info, nil
}
