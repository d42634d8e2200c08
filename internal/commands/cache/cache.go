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

package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/cli/prompt"
	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/anchor"
)

// NewCommand creates the cache management command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "cache",
		Annotations: map[string]string{
			"group": "anchors",
		},
		Short: "Inspect and clear the anchor cache",
		Long: `Manage the anchor cache written by 'commentary scan'.

The cache lets 'commentary list' and 'commentary export' answer without
rescanning the tree. It is safe to clear at any time; the next scan
rebuilds it.

See also: commentary scan, commentary list`,
	}

	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newClearCommand())

	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show cache location, size, and contents",
		Example: `  # Example 1: Cache for the current tree
  commentary cache status

  # Example 2: Cache size as JSON
  commentary cache status --json | jq '.size'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runStatus(cmd, root)
		},
	}
	return cmd
}

func newClearCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Delete the anchor cache file",
		Example: `  # Example 1: Clear with confirmation
  commentary cache clear

  # Example 2: Clear without prompting (CI)
  commentary cache clear --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runClear(cmd, root, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

// resolveCache locates the cache file for a tree using the same config
// resolution scans use.
func resolveCache(command, root string) (*anchor.Cache, error) {
	useJSON := shared.GetJSON()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s is not a directory", root)
		if useJSON {
			output.EmitJSONError(command, []output.JSONError{
				{Code: shared.ErrorCodeFileNotFound, Message: msg},
			})
			return nil, &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return nil, shared.NewFailureError(msg, err)
	}

	cfg, _, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError(command, []output.JSONError{
				{Code: shared.ErrorCodeConfigError, Message: err.Error()},
			})
			return nil, &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return nil, shared.NewInvalidInputError("invalid configuration", err)
	}

	return anchor.NewCache(cfg.CachePath(absRoot)), nil
}

func runStatus(cmd *cobra.Command, root string) error {
	useJSON := shared.GetJSON()
	out := cmd.OutOrStdout()

	cache, err := resolveCache("cache status", root)
	if err != nil {
		return err
	}

	info, err := cache.Info()
	if err != nil {
		if useJSON {
			output.EmitJSONError("cache status", []output.JSONError{
				{Code: shared.ErrorCodeCacheError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("reading cache", err)
	}

	if useJSON {
		type statusResponse struct {
			output.JSONResponse
			Path    string `json:"path"`
			Exists  bool   `json:"exists"`
			Size    int64  `json:"size"`
			ModTime string `json:"mod_time,omitempty"`
			Files   int    `json:"files"`
			Anchors int    `json:"anchors"`
		}
		resp := statusResponse{
			JSONResponse: output.NewResponse("cache status"),
			Path:         info.Path,
			Exists:       info.Exists,
			Size:         info.Size,
			Files:        info.Files,
			Anchors:      info.Anchors,
		}
		if info.Exists {
			resp.ModTime = info.ModTime.Format(time.RFC3339)
		}
		return output.EmitJSON(resp)
	}

	if !info.Exists {
		fmt.Fprintf(out, "No cache at %s\n", info.Path)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'commentary scan' to create one.")
		return nil
	}

	fmt.Fprintf(out, "Cache: %s\n", info.Path)
	fmt.Fprintf(out, "  size:     %s\n", formatBytes(info.Size))
	fmt.Fprintf(out, "  modified: %s\n", info.ModTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  files:    %d\n", info.Files)
	fmt.Fprintf(out, "  anchors:  %d\n", info.Anchors)
	return nil
}

func runClear(cmd *cobra.Command, root string, force bool) error {
	useJSON := shared.GetJSON()
	color := term.IsTTY() && !shared.GetNoColor()
	out := cmd.OutOrStdout()

	cache, err := resolveCache("cache clear", root)
	if err != nil {
		return err
	}

	info, err := cache.Info()
	if err != nil {
		if useJSON {
			output.EmitJSONError("cache clear", []output.JSONError{
				{Code: shared.ErrorCodeCacheError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("reading cache", err)
	}
	if !info.Exists {
		if useJSON {
			return emitClearResponse(info.Path, false)
		}
		fmt.Fprintln(out, "No cache to clear.")
		return nil
	}

	if !force {
		if useJSON {
			output.EmitJSONError("cache clear", []output.JSONError{
				{Code: shared.ErrorCodeInvalidInput, Message: "cache clear needs confirmation; pass --force", Suggestion: "Pass --force to clear without prompting"},
			})
			return &shared.ExitError{Code: shared.ExitNonInteractive, Message: ""}
		}
		confirmer := prompt.NewSurveyConfirmer(!shared.IsNonInteractive())
		if !confirmer.IsInteractive() {
			return shared.NewNonInteractiveError("cache clear needs confirmation; pass --force")
		}
		ok, err := confirmer.Confirm(fmt.Sprintf("Clear the anchor cache at %s?", info.Path), false)
		if err != nil {
			return shared.NewFailureError("confirmation failed", err)
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := cache.Clear(); err != nil {
		if useJSON {
			output.EmitJSONError("cache clear", []output.JSONError{
				{Code: shared.ErrorCodeCacheError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("clearing cache", err)
	}

	if useJSON {
		return emitClearResponse(info.Path, true)
	}
	fmt.Fprintln(out, term.OK("Cache cleared.", color))
	return nil
}

func emitClearResponse(path string, cleared bool) error {
	type clearResponse struct {
		output.JSONResponse
		Path    string `json:"path"`
		Cleared bool   `json:"cleared"`
	}
	return output.EmitJSON(clearResponse{
		JSONResponse: output.NewResponse("cache clear"),
		Path:         path,
		Cleared:      cleared,
	})
}

func formatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1fGB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}
