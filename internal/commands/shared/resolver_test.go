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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/pkg/anchor"
)

func writeAnchorTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "app", "main.cs")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "// TODO: first\nclass C {}\n// HACK: second\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return root
}

func TestResolveAnchorSet_FreshScan(t *testing.T) {
	root := writeAnchorTree(t)
	cfg := config.Default()

	idx, source, err := ResolveAnchorSet(context.Background(), root, cfg, false)
	if err != nil {
		t.Fatalf("ResolveAnchorSet: %v", err)
	}
	if source != SourceScan {
		t.Errorf("expected source %q, got %q", SourceScan, source)
	}
	if idx.TotalCount() != 2 {
		t.Errorf("expected 2 anchors, got %d", idx.TotalCount())
	}
}

func TestResolveAnchorSet_FromCache(t *testing.T) {
	// Empty tree plus a populated cache: cache hits must not scan.
	root := t.TempDir()
	cfg := config.Default()

	snap := map[string][]anchor.Item{
		filepath.Join(root, "cached.cs"): {
			{Type: anchor.TypeTodo, FilePath: filepath.Join(root, "cached.cs"), Line: 1, Message: "from the cache"},
		},
	}
	if err := anchor.NewCache(cfg.CachePath(root)).Save(snap); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	idx, source, err := ResolveAnchorSet(context.Background(), root, cfg, false)
	if err != nil {
		t.Fatalf("ResolveAnchorSet: %v", err)
	}
	if source != SourceCache {
		t.Errorf("expected source %q, got %q", SourceCache, source)
	}
	items := idx.AllAnchors()
	if len(items) != 1 || items[0].Message != "from the cache" {
		t.Errorf("unexpected items from cache: %+v", items)
	}
}

func TestResolveAnchorSet_RefreshBypassesCache(t *testing.T) {
	root := writeAnchorTree(t)
	cfg := config.Default()

	stale := map[string][]anchor.Item{
		filepath.Join(root, "gone.cs"): {
			{Type: anchor.TypeBug, FilePath: filepath.Join(root, "gone.cs"), Line: 9, Message: "stale"},
		},
	}
	if err := anchor.NewCache(cfg.CachePath(root)).Save(stale); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	idx, source, err := ResolveAnchorSet(context.Background(), root, cfg, true)
	if err != nil {
		t.Fatalf("ResolveAnchorSet: %v", err)
	}
	if source != SourceScan {
		t.Errorf("expected source %q, got %q", SourceScan, source)
	}
	if idx.TotalCount() != 2 {
		t.Errorf("expected 2 anchors from the fresh scan, got %d", idx.TotalCount())
	}
	for _, it := range idx.AllAnchors() {
		if it.Message == "stale" {
			t.Error("refresh returned stale cache items")
		}
	}
}

func TestResolveAnchorSet_CacheDisabled(t *testing.T) {
	root := writeAnchorTree(t)
	cfg := config.Default()
	cfg.Cache.Enabled = false

	if err := anchor.NewCache(anchor.DefaultCachePath(root)).Save(map[string][]anchor.Item{
		filepath.Join(root, "gone.cs"): {
			{Type: anchor.TypeBug, FilePath: filepath.Join(root, "gone.cs"), Line: 1, Message: "stale"},
		},
	}); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	idx, source, err := ResolveAnchorSet(context.Background(), root, cfg, false)
	if err != nil {
		t.Fatalf("ResolveAnchorSet: %v", err)
	}
	if source != SourceScan {
		t.Errorf("expected source %q, got %q", SourceScan, source)
	}
	if idx.TotalCount() != 2 {
		t.Errorf("expected 2 anchors, got %d", idx.TotalCount())
	}
}
