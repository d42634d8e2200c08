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

package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/fileio"
	"github.com/tombee/commentary/internal/log"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/anchor"
)

// NewCommand creates the scan command.
func NewCommand() *cobra.Command {
	var (
		forceCache bool
		noCache    bool
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory tree for comment anchors",
		Annotations: map[string]string{
			"group": "anchors",
		},
		Long: `Scan walks a directory tree, extracts comment anchors (TODO, HACK,
NOTE, and friends) from source files, and prints a summary.

Files are grouped into projects by their first directory below the
scan root. The result is written to the anchor cache so that 'list'
and 'export' can answer from it without rescanning; pass --no-cache
to skip the write.

Extensions, ignore patterns, and custom tags come from the nearest
.commentary.yaml; see 'commentary config show' for the resolved
values.`,
		Example: `  # Scan the current directory
  commentary scan

  # Scan a specific tree without touching the cache
  commentary scan ./src --no-cache

  # Machine-readable summary
  commentary scan --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runScan(cmd, root, forceCache, noCache, workers)
		},
	}

	cmd.Flags().BoolVar(&forceCache, "cache", false, "Write the anchor cache even when config disables it")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip writing the anchor cache after the scan")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent file scanners (default: CPU count - 1)")

	return cmd
}

func runScan(cmd *cobra.Command, root string, forceCache, noCache bool, workers int) error {
	useJSON := shared.GetJSON()
	quiet := shared.GetQuiet()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if useJSON {
			output.EmitJSONError("scan", []output.JSONError{
				{
					Code:       shared.ErrorCodeFileNotFound,
					Message:    fmt.Sprintf("cannot scan %s: %v", root, err),
					Suggestion: "Check that the directory exists and is readable",
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError(fmt.Sprintf("cannot scan %s", root), err)
	}
	if !info.IsDir() {
		msg := fmt.Sprintf("scan root %s is not a directory", root)
		if useJSON {
			output.EmitJSONError("scan", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidInput,
					Message:    msg,
					Suggestion: "Pass a directory to scan, or use 'commentary render' for a single file",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError(msg, nil)
	}

	cfg, _, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError("scan", []output.JSONError{
				{
					Code:       shared.ErrorCodeConfigError,
					Message:    err.Error(),
					Suggestion: "Run 'commentary config show' to inspect the configuration",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	logger := log.WithComponent(slog.Default(), "scan")

	workerCount := cfg.Scan.Workers
	if workers > 0 {
		workerCount = workers
	}

	meter := shared.NewProgress(term.IsTTY() && !quiet && !useJSON)
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
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling scan...\n", sig)
		coord.CancelScan()
		res = <-resultCh
	}
	meter.Done()

	switch res.Status {
	case anchor.StatusFailed:
		if useJSON {
			output.EmitJSONError("scan", []output.JSONError{
				{
					Code:    shared.ErrorCodeScanFailed,
					Message: fmt.Sprintf("scan failed: %v", res.Err),
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("scan failed", res.Err)
	case anchor.StatusCancelled:
		if useJSON {
			output.EmitJSONError("scan", []output.JSONError{
				{
					Code:    shared.ErrorCodeScanFailed,
					Message: "scan cancelled",
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return &shared.ExitError{Code: shared.ExitFailure, Message: "scan cancelled"}
	}

	cachePath := ""
	if (cfg.Cache.Enabled || forceCache) && !noCache {
		c := anchor.NewCache(cfg.CachePath(absRoot))
		if err := c.Save(idx.Snapshot()); err != nil {
			// A failed cache write degrades later commands to a fresh
			// scan; the scan itself still succeeded.
			logger.Warn("cache write failed", "path", c.Path(), "error", err)
		} else {
			cachePath = c.Path()
		}
	}

	if useJSON {
		return emitJSONSummary(absRoot, res, idx, cachePath)
	}
	if quiet {
		return nil
	}
	printSummary(cmd, res, idx, cachePath)
	return nil
}

func emitJSONSummary(root string, res anchor.Result, idx *anchor.Index, cachePath string) error {
	type summary struct {
		output.JSONResponse
		Root         string         `json:"root"`
		FilesScanned int            `json:"files_scanned"`
		FilesSkipped int            `json:"files_skipped"`
		Files        int            `json:"files_with_anchors"`
		Anchors      int            `json:"anchors"`
		ByType       map[string]int `json:"by_type,omitempty"`
		DurationMS   int64          `json:"duration_ms"`
		Cache        string         `json:"cache,omitempty"`
	}
	return output.EmitJSON(summary{
		JSONResponse: output.NewResponse("scan"),
		Root:         root,
		FilesScanned: res.FilesScanned,
		FilesSkipped: res.FilesSkipped,
		Files:        idx.FileCount(),
		Anchors:      idx.TotalCount(),
		ByType:       countByType(idx),
		DurationMS:   res.Duration.Milliseconds(),
		Cache:        cachePath,
	})
}

func printSummary(cmd *cobra.Command, res anchor.Result, idx *anchor.Index, cachePath string) {
	out := cmd.OutOrStdout()
	color := term.IsTTY() && !shared.GetNoColor()

	headline := fmt.Sprintf("Scanned %d files in %s", res.FilesScanned, shared.FormatDuration(res.Duration))
	fmt.Fprintln(out, term.OK(headline, color))
	if res.FilesSkipped > 0 {
		fmt.Fprintln(out, term.Dim(fmt.Sprintf("  %d files skipped (unreadable)", res.FilesSkipped), color))
	}

	if idx.TotalCount() == 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No anchors found.")
		return
	}

	counts := countByType(idx)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOUNT")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d anchors in %d files\n", idx.TotalCount(), idx.FileCount())
	if cachePath != "" {
		fmt.Fprintln(out, term.Dim("Cache written to "+cachePath, color))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'commentary list' to browse anchors.")
}

func countByType(idx *anchor.Index) map[string]int {
	counts := make(map[string]int)
	for _, it := range idx.AllAnchors() {
		counts[it.TypeName()]++
	}
	return counts
}
