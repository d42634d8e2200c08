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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/commentary/pkg/anchor"
)

// NoisePatterns are editor scratch and system files that only exist
// while a session is live. Full scans never see them; watchers do, on
// every save.
func NoisePatterns() []string {
	return []string{
		// Vim
		"*.swp",
		"*.swo",
		"*.swn",
		".*.sw?",
		// Emacs
		"*~",
		"#*#",
		".#*",
		// System files
		".DS_Store",
		"Thumbs.db",
		"*.tmp",
		"*.temp",
	}
}

// Matcher decides which changed files are worth rescanning. It applies
// the same extension allow-list, ignore globs, and size cap the
// solution walker uses, so the index never diverges between a full
// scan and a watch session, plus the editor noise patterns above.
type Matcher struct {
	exts    map[string]bool
	ignores []string
	noise   []string
	maxSize int64
}

// NewMatcher builds a matcher from the walker options that also drive
// full scans. Invalid ignore globs are rejected here so a watch
// session fails at startup instead of silently matching nothing.
func NewMatcher(opts anchor.WalkerOptions) (*Matcher, error) {
	m := &Matcher{
		ignores: opts.IgnoreGlobs,
		noise:   NoisePatterns(),
		maxSize: opts.MaxFileSize,
	}
	if m.ignores == nil {
		m.ignores = anchor.DefaultIgnoreGlobs
	}
	if m.maxSize == 0 {
		m.maxSize = anchor.DefaultMaxFileSize
	}
	if len(opts.Extensions) > 0 {
		m.exts = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			m.exts[strings.ToLower(ext)] = true
		}
	}

	for _, pattern := range m.ignores {
		if _, err := doublestar.Match(pattern, "probe"); err != nil {
			return nil, fmt.Errorf("invalid ignore glob %q: %w", pattern, err)
		}
	}
	return m, nil
}

// Match reports whether the file at rel (slash-separated, relative to
// the watch root) is eligible for scanning.
func (m *Matcher) Match(rel string) bool {
	if rel == "" {
		return false
	}
	if m.exts != nil && !m.exts[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	if m.Noise(rel) {
		return false
	}

	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, pattern := range m.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return false
		}
	}
	return true
}

// Noise reports whether rel looks like an editor scratch file. Noise
// is filtered before any index lookups, so a vim swap file churning
// next to a source file costs nothing.
func (m *Matcher) Noise(rel string) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, pattern := range m.noise {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// PruneDir reports whether a directory at rel can be skipped outright
// because a dir/** glob excludes everything inside it. Used when
// extending the watch to new subdirectories; missing a prune costs
// watch handles, not correctness.
func (m *Matcher) PruneDir(rel string) bool {
	for _, pattern := range m.ignores {
		trimmed, found := strings.CutSuffix(pattern, "/**")
		if !found {
			continue
		}
		if ok, _ := doublestar.Match(trimmed, rel); ok {
			return true
		}
	}
	return false
}

// TooLarge reports whether a file of the given size exceeds the scan
// cap. Deleted paths have no size; callers skip this check for them.
func (m *Matcher) TooLarge(size int64) bool {
	return m.maxSize > 0 && size > m.maxSize
}
