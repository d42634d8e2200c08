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
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the largest file the walker yields for
// scanning. Oversized files are almost always generated or minified
// and would dominate scan time for no useful anchors.
const DefaultMaxFileSize int64 = 1 << 20

// DefaultIgnoreGlobs excludes build output and dependency trees that
// never carry actionable anchors.
var DefaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/.vs/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/bin/**",
	"**/obj/**",
	"**/dist/**",
}

// Enumerator yields candidate files for scanning. Implementations must
// stop promptly when the context is cancelled or fn returns an error.
type Enumerator interface {
	Enumerate(ctx context.Context, fn func(path, project string) error) error
}

// WalkerOptions control which files a Walker yields.
type WalkerOptions struct {
	// Extensions is the allow-list of file extensions, dots included
	// (".cs", ".vb"). Empty allows every file.
	Extensions []string

	// IgnoreGlobs are doublestar patterns matched against the
	// slash-separated path relative to the root. Nil means
	// DefaultIgnoreGlobs; an explicit empty slice disables ignoring.
	IgnoreGlobs []string

	// MaxFileSize skips files larger than this many bytes. Zero means
	// DefaultMaxFileSize; negative disables the limit.
	MaxFileSize int64
}

// Walker enumerates files under a root directory in deterministic
// lexical order.
type Walker struct {
	root    string
	ignores []string
	exts    map[string]bool
	maxSize int64
}

// NewWalker returns a walker over root with the given options.
func NewWalker(root string, opts WalkerOptions) *Walker {
	w := &Walker{
		root:    root,
		ignores: opts.IgnoreGlobs,
		maxSize: opts.MaxFileSize,
	}
	if w.ignores == nil {
		w.ignores = DefaultIgnoreGlobs
	}
	if w.maxSize == 0 {
		w.maxSize = DefaultMaxFileSize
	}
	if len(opts.Extensions) > 0 {
		w.exts = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			w.exts[strings.ToLower(ext)] = true
		}
	}
	return w
}

// Enumerate walks the root and calls fn once per eligible file with
// its absolute path and project label. The label is the first path
// segment below the root, or "." for files directly in the root.
func (w *Walker) Enumerate(ctx context.Context, fn func(path, project string) error) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.dirIgnored(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.exts != nil && !w.exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if w.ignored(rel) {
			return nil
		}
		if w.maxSize > 0 {
			info, infoErr := d.Info()
			if infoErr != nil || info.Size() > w.maxSize {
				return nil
			}
		}
		return fn(path, projectLabel(rel))
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("walk %s: %w", w.root, err)
	}
	return nil
}

func (w *Walker) ignored(rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range w.ignores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// dirIgnored prunes directories whose contents a "dir/**" pattern
// would exclude anyway. File-level matching stays authoritative, so
// missing a prune here costs time, not correctness.
func (w *Walker) dirIgnored(rel string) bool {
	for _, pattern := range w.ignores {
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

// ProjectLabel returns the project grouping for path under root,
// following the same rule Enumerate applies: the first directory below
// the root, or "." for files at the top. Paths outside root get ".".
func ProjectLabel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "."
	}
	return projectLabel(filepath.ToSlash(rel))
}

func projectLabel(rel string) string {
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return "."
}
