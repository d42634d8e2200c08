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

	pkgerrors "github.com/tombee/commentary/pkg/errors"

	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/fileio"
	"github.com/tombee/commentary/pkg/anchor"
)

// AnchorSource says where a resolved anchor set came from.
type AnchorSource string

const (
	// SourceCache marks anchors loaded from the on-disk cache.
	SourceCache AnchorSource = "cache"

	// SourceScan marks anchors produced by a fresh scan.
	SourceScan AnchorSource = "scan"
)

// ResolveAnchorSet returns the anchor index for root.
// Resolution order:
//  1. The on-disk cache, when caching is enabled and refresh is false.
//     Stale or damaged caches read as a miss, never an error.
//  2. A synchronous full scan of root.
//
// Commands that only read anchors (list, export) share this path so
// they answer from the cache when 'scan' has run and degrade to a
// fresh scan when it has not.
func ResolveAnchorSet(ctx context.Context, root string, cfg *config.Config, refresh bool) (*anchor.Index, AnchorSource, error) {
	idx := anchor.NewIndex()

	if cfg.Cache.Enabled && !refresh {
		snap, err := anchor.NewCache(cfg.CachePath(root)).Load()
		if err == nil && snap != nil {
			idx.LoadFrom(snap)
			return idx, SourceCache, nil
		}
		// Unreadable caches degrade to a scan; the scan result is
		// authoritative either way.
	}

	walker := anchor.NewWalker(root, cfg.WalkerOptions())
	resultCh := make(chan anchor.Result, 1)
	coord := anchor.NewCoordinator(walker, idx, anchor.CoordinatorOptions{
		Workers:    cfg.Scan.Workers,
		ScanConfig: cfg.AnchorScanConfig(),
		ReadFile:   fileio.ReadText,
		OnComplete: func(r anchor.Result) { resultCh <- r },
	})
	coord.ScanSolution(ctx)
	res := <-resultCh

	switch res.Status {
	case anchor.StatusFailed:
		return nil, SourceScan, &pkgerrors.ScanError{Path: root, Op: "scan", Cause: res.Err}
	case anchor.StatusCancelled:
		return nil, SourceScan, ctx.Err()
	}
	return idx, SourceScan, nil
}
