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

package list

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/commands/completion"
	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/export"
	"github.com/tombee/commentary/internal/filter"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/anchor"
)

// NewCommand creates the list command.
func NewCommand() *cobra.Command {
	var (
		filterExpr string
		typeName   string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:     "list [path]",
		Aliases: []string{"ls"},
		Short:   "List anchors from the cache or a fresh scan",
		Annotations: map[string]string{
			"group": "anchors",
		},
		Long: `List prints the anchors known for a directory tree, grouped by file.

Anchors come from the cache written by 'commentary scan' when one
exists; otherwise the tree is scanned on the fly. Use --no-cache to
force a fresh scan.

Filters use expr syntax over the fields type, file, line, column,
project, message, metadata, owner, issue, and anchorId:

  commentary list --filter 'type == "TODO" && owner != ""'
  commentary list --filter 'message matches "retry|backoff"'

--type is a shortcut for the common case of a single keyword and
matches case-insensitively.`,
		Example: `  # All anchors under the current directory
  commentary list

  # Only TODOs, freshly scanned
  commentary list --type todo --no-cache

  # Anchors with an issue reference, as JSON
  commentary list --filter 'issue != ""' --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runList(cmd, root, filterExpr, typeName, noCache)
		},
	}

	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "Filter expression (expr syntax)")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Only show anchors of this type")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore the cache and scan fresh")
	cmd.RegisterFlagCompletionFunc("type", completion.CompleteAnchorTypes)

	return cmd
}

func runList(cmd *cobra.Command, root, filterExpr, typeName string, noCache bool) error {
	useJSON := shared.GetJSON()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s is not a directory", root)
		if useJSON {
			output.EmitJSONError("list", []output.JSONError{
				{
					Code:       shared.ErrorCodeFileNotFound,
					Message:    msg,
					Suggestion: "Pass the root of a scanned tree",
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError(msg, err)
	}

	cfg, _, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError("list", []output.JSONError{
				{Code: shared.ErrorCodeConfigError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	// Compile the filter before resolving anchors so a bad expression
	// fails fast instead of after a full scan.
	f, err := filter.Compile(filterExpr)
	if err != nil {
		if useJSON {
			output.EmitJSONError("list", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidFilter,
					Message:    err.Error(),
					Suggestion: "Fields are type, file, line, column, project, message, metadata, owner, issue, anchorId",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid filter expression", err)
	}

	idx, source, err := shared.ResolveAnchorSet(cmd.Context(), absRoot, cfg, noCache)
	if err != nil {
		if useJSON {
			output.EmitJSONError("list", []output.JSONError{
				{Code: shared.CodeForError(err), Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("resolving anchors", err)
	}

	items := idx.AllAnchors()
	items, err = f.Apply(items)
	if err != nil {
		if useJSON {
			output.EmitJSONError("list", []output.JSONError{
				{Code: shared.ErrorCodeInvalidFilter, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("filter evaluation failed", err)
	}
	if typeName != "" {
		kept := items[:0]
		for _, it := range items {
			if strings.EqualFold(it.TypeName(), typeName) {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	if useJSON {
		return emitJSONList(absRoot, source, items)
	}
	printList(cmd, absRoot, source, items, filterExpr != "" || typeName != "")
	return nil
}

func emitJSONList(root string, source shared.AnchorSource, items []anchor.Item) error {
	type listResponse struct {
		output.JSONResponse
		Root    string      `json:"root"`
		Source  string      `json:"source"`
		Count   int         `json:"count"`
		Anchors interface{} `json:"anchors"`
	}
	v, err := export.JSONValue(items)
	if err != nil {
		return shared.NewFailureError("encoding anchors", err)
	}
	return output.EmitJSON(listResponse{
		JSONResponse: output.NewResponse("list"),
		Root:         root,
		Source:       string(source),
		Count:        len(items),
		Anchors:      v,
	})
}

func printList(cmd *cobra.Command, root string, source shared.AnchorSource, items []anchor.Item, filtered bool) {
	out := cmd.OutOrStdout()
	color := term.IsTTY() && !shared.GetNoColor()

	if len(items) == 0 {
		if filtered {
			fmt.Fprintln(out, "No anchors match.")
		} else {
			fmt.Fprintln(out, "No anchors found.")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'commentary scan' to index the tree.")
		}
		return
	}

	files := 0
	lastFile := ""
	for _, it := range items {
		if it.FilePath != lastFile {
			if lastFile != "" {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, displayPath(root, it.FilePath))
			lastFile = it.FilePath
			files++
		}
		pos := fmt.Sprintf("%d:%d", it.Line, it.Column)
		line := fmt.Sprintf("  %s  %s", term.Dim(pos, color), term.RenderTag(it, color))
		if it.Message != "" {
			line += "  " + it.Message
		}
		if meta := metaSuffix(it); meta != "" {
			line += "  " + term.Dim(meta, color)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "\n%d anchors in %d files\n", len(items), files)
	if source == shared.SourceCache {
		fmt.Fprintln(out, term.Dim("From cache; run 'commentary scan' to refresh.", color))
	}
}

// displayPath shows a file relative to the listing root when possible.
func displayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// metaSuffix summarizes parsed metadata for the human view.
func metaSuffix(it anchor.Item) string {
	var parts []string
	if it.Owner != "" {
		parts = append(parts, "@"+it.Owner)
	}
	if it.IssueRef != "" {
		parts = append(parts, it.IssueRef)
	}
	if it.AnchorID != "" {
		parts = append(parts, "id:"+it.AnchorID)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}
