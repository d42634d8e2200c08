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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/fileio"
	"github.com/tombee/commentary/internal/log"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/internal/watch"
	"github.com/tombee/commentary/pkg/anchor"
)

// NewCommand creates the watch command.
func NewCommand() *cobra.Command {
	var (
		debounce time.Duration
		rate     float64
		ops      []string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a tree and keep the anchor index live",
		Annotations: map[string]string{
			"group": "anchors",
		},
		Long: `Watch scans the tree once, then follows filesystem events and applies
them to the index as single-file rescans or removals. Each update is
reported as a status line; with --json every update is one JSON object
per line instead, which tails cleanly into jq.

Events are debounced per path and rate limited, so editor save bursts
and branch switches settle into a consistent index instead of a scan
storm. Press Ctrl-C to stop; when caching is enabled the cache file is
rewritten on exit so the next 'commentary list' starts warm.`,
		Example: `  # Watch the current tree
  commentary watch

  # Deletions and renames only, as a JSON stream
  commentary watch --ops deleted,renamed --json

  # Calmer updates for slow filesystems
  commentary watch --debounce 2s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runWatch(cmd, root, debounce, rate, ops, workers)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Settle window per path before rescanning (overrides config)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Maximum index updates per second (overrides config)")
	cmd.Flags().StringSliceVar(&ops, "ops", nil, "Event kinds to react to: created, modified, deleted, renamed")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent scan workers for the initial scan")

	return cmd
}

func runWatch(cmd *cobra.Command, root string, debounce time.Duration, rate float64, ops []string, workers int) error {
	useJSON := shared.GetJSON()
	color := term.IsTTY() && !shared.GetNoColor()
	out := cmd.OutOrStdout()

	if err := validateOps(ops); err != nil {
		if useJSON {
			output.EmitJSONError("watch", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidInput,
					Message:    err.Error(),
					Suggestion: "Valid kinds are created, modified, deleted, renamed",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid --ops value", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s is not a directory", root)
		if useJSON {
			output.EmitJSONError("watch", []output.JSONError{
				{Code: shared.ErrorCodeFileNotFound, Message: msg},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError(msg, err)
	}

	cfg, _, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError("watch", []output.JSONError{
				{Code: shared.ErrorCodeConfigError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	logger := log.WithComponent(slog.Default(), "watch")

	workerCount := cfg.Scan.Workers
	if workers > 0 {
		workerCount = workers
	}

	meter := shared.NewProgress(term.IsTTY() && !shared.GetQuiet() && !useJSON)
	defer meter.Done()

	idx := anchor.NewIndex()
	walker := anchor.NewWalker(absRoot, cfg.WalkerOptions())
	resultCh := make(chan anchor.Result, 1)
	coord := anchor.NewCoordinator(walker, idx, anchor.CoordinatorOptions{
		Workers:    workerCount,
		ScanConfig: cfg.AnchorScanConfig(),
		ReadFile:   fileio.ReadText,
		OnProgress: func(p anchor.Progress) {
			meter.Update(p.Processed, p.Total, p.AnchorsFound)
		},
		OnComplete: func(r anchor.Result) {
			resultCh <- r
		},
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	coord.ScanSolution(ctx)

	var res anchor.Result
	select {
	case res = <-resultCh:
	case sig := <-sigCh:
		meter.Done()
		fmt.Fprintf(cmd.ErrOrStderr(), "Received signal %v, cancelling scan...\n", sig)
		coord.CancelScan()
		res = <-resultCh
	}
	meter.Done()

	switch res.Status {
	case anchor.StatusFailed:
		if useJSON {
			output.EmitJSONError("watch", []output.JSONError{
				{Code: shared.ErrorCodeScanFailed, Message: res.Err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("initial scan failed", res.Err)
	case anchor.StatusCancelled:
		return shared.NewFailureError("watch cancelled", nil)
	}

	enc := json.NewEncoder(out)
	if useJSON {
		enc.Encode(streamRecord{
			Event:   "scan",
			Files:   res.FilesScanned,
			Anchors: res.AnchorsFound,
		})
	} else {
		fmt.Fprintln(out, term.OK(fmt.Sprintf("Scanned %d files, %d anchors in %s",
			res.FilesScanned, res.AnchorsFound, shared.FormatDuration(res.Duration)), color))
	}

	writeCache := func() {
		if !cfg.Cache.Enabled {
			return
		}
		cache := anchor.NewCache(cfg.CachePath(absRoot))
		if err := cache.Save(idx.Snapshot()); err != nil {
			logger.Warn("cache write failed", slog.String("path", cache.Path()), slog.Any("error", err))
		}
	}
	writeCache()

	debounceVal := cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounceVal = debounce
	}
	rateVal := cfg.Watch.MaxEventsPerSecond
	if cmd.Flags().Changed("rate") {
		rateVal = rate
	}

	svc, err := watch.NewService(coord, watch.Config{
		Root:               absRoot,
		Ops:                ops,
		Debounce:           debounceVal,
		MaxEventsPerSecond: rateVal,
		Walker:             cfg.WalkerOptions(),
		Logger:             logger,
	})
	if err != nil {
		if useJSON {
			output.EmitJSONError("watch", []output.JSONError{
				{Code: shared.ErrorCodeInternal, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("starting watcher", err)
	}

	svc.Start(ctx)
	if !useJSON {
		fmt.Fprintln(out, term.Dim(fmt.Sprintf("Watching %s (Ctrl-C to stop)", displayRoot(root, absRoot)), color))
	}

	running := true
	for running {
		select {
		case c, ok := <-svc.Changes():
			if !ok {
				running = false
				break
			}
			emitChange(out, enc, c, useJSON, color)
		case <-sigCh:
			running = false
		}
	}

	if err := svc.Stop(); err != nil {
		logger.Warn("watcher shutdown", slog.Any("error", err))
	}
	for c := range svc.Changes() {
		emitChange(out, enc, c, useJSON, color)
	}

	writeCache()

	if useJSON {
		enc.Encode(streamRecord{
			Event:   "stop",
			Files:   idx.FileCount(),
			Anchors: idx.TotalCount(),
		})
	} else {
		fmt.Fprintln(out, term.OK(fmt.Sprintf("Watch stopped; index holds %d anchors in %d files",
			idx.TotalCount(), idx.FileCount()), color))
	}
	return nil
}

// streamRecord is one line of the --json event stream.
type streamRecord struct {
	Event   string `json:"event"`
	Path    string `json:"path,omitempty"`
	Op      string `json:"op,omitempty"`
	Files   int    `json:"files,omitempty"`
	Anchors int    `json:"anchors"`
	Removed bool   `json:"removed,omitempty"`
	Error   string `json:"error,omitempty"`
}

func emitChange(out io.Writer, enc *json.Encoder, c watch.Change, useJSON, color bool) {
	if useJSON {
		rec := streamRecord{
			Event:   "change",
			Path:    c.Path,
			Op:      c.Op,
			Anchors: c.Anchors,
			Removed: c.Removed,
		}
		if c.Err != nil {
			rec.Error = c.Err.Error()
		}
		enc.Encode(rec)
		return
	}
	fmt.Fprintln(out, formatChange(c, color))
}

// formatChange renders one index update as a status line.
func formatChange(c watch.Change, color bool) string {
	switch {
	case c.Err != nil:
		return term.Fail(fmt.Sprintf("%s %s: %v", c.Op, c.Path, c.Err), color)
	case c.Removed:
		return term.Dim(fmt.Sprintf("%s %s: dropped from index", c.Op, c.Path), color)
	default:
		return term.OK(fmt.Sprintf("%s %s: %d anchors", c.Op, c.Path, c.Anchors), color)
	}
}

// validateOps rejects unknown event kind names before the watcher is
// built; an unknown name would otherwise silently match nothing.
func validateOps(ops []string) error {
	valid := map[string]bool{
		watch.OpCreated:  true,
		watch.OpModified: true,
		watch.OpDeleted:  true,
		watch.OpRenamed:  true,
	}
	for _, op := range ops {
		if !valid[op] {
			return fmt.Errorf("unknown event kind %q", op)
		}
	}
	return nil
}

// displayRoot prefers the path as the user typed it.
func displayRoot(given, abs string) string {
	if given == "." || given == "" {
		return abs
	}
	return given
}
