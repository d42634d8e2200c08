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

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

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

// NewCommand creates the export command.
func NewCommand() *cobra.Command {
	var (
		formatName string
		outPath    string
		queryExpr  string
		filterExpr string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export anchors as TSV, CSV, Markdown, or JSON",
		Annotations: map[string]string{
			"group": "anchors",
		},
		Long: `Export writes the anchors for a directory tree in a machine-readable
format. Anchors come from the cache written by 'commentary scan' when
one exists; use --no-cache to force a fresh scan.

Columns are type, message, file, line, column, project, owner, issue,
anchorId, and metadata. TSV is the default and pipes cleanly into cut
and awk; markdown produces a table ready for an issue or PR body.

--query runs a jq expression over the JSON form of the anchors and
implies JSON output. --filter narrows the set before exporting, using
the same expr syntax as 'commentary list'.`,
		Example: `  # TSV to stdout
  commentary export

  # A markdown table of TODOs for a PR description
  commentary export --format markdown --filter 'type == "TODO"'

  # Count anchors per owner with jq
  commentary export --query 'group_by(.owner) | map({(.[0].owner): length}) | add'

  # Write a CSV report
  commentary export ./src --format csv --output anchors.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runExport(cmd, root, formatName, outPath, queryExpr, filterExpr, noCache)
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "tsv", "Output format: tsv, csv, markdown, json")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVarP(&queryExpr, "query", "q", "", "jq expression applied to the JSON form")
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "Filter expression (expr syntax)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Ignore the cache and scan fresh")
	cmd.RegisterFlagCompletionFunc("format", completion.CompleteExportFormats)

	return cmd
}

func runExport(cmd *cobra.Command, root, formatName, outPath, queryExpr, filterExpr string, noCache bool) error {
	useJSON := shared.GetJSON()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s is not a directory", root)
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
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

	format, err := export.ParseFormat(formatName)
	if err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidFormat,
					Message:    err.Error(),
					Suggestion: "Valid formats are tsv, csv, markdown, json",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid export format", err)
	}
	if queryExpr != "" && cmd.Flags().Changed("format") && format != export.FormatJSON {
		msg := "--query produces JSON output and cannot be combined with --format " + formatName
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidInput,
					Message:    msg,
					Suggestion: "Drop --format or use --format json",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError(msg, nil)
	}

	// Reject bad expressions before resolving anchors so the failure is
	// immediate rather than after a full scan.
	executor := export.NewQueryExecutor(0, 0)
	if err := executor.Validate(queryExpr); err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidQuery,
					Message:    err.Error(),
					Suggestion: "Check the jq expression syntax",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid query expression", err)
	}
	f, err := filter.Compile(filterExpr)
	if err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
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

	cfg, _, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
				{Code: shared.ErrorCodeConfigError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	idx, _, err := shared.ResolveAnchorSet(cmd.Context(), absRoot, cfg, noCache)
	if err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
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
			output.EmitJSONError("export", []output.JSONError{
				{Code: shared.ErrorCodeInvalidFilter, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("filter evaluation failed", err)
	}

	if len(items) == 0 {
		// Nothing to write; keep stdout clean for pipelines.
		fmt.Fprintln(cmd.ErrOrStderr(), "No anchors to export.")
		return nil
	}

	var w io.Writer = cmd.OutOrStdout()
	var file *os.File
	if outPath != "" {
		file, err = os.Create(outPath)
		if err != nil {
			if useJSON {
				output.EmitJSONError("export", []output.JSONError{
					{Code: shared.ErrorCodeWriteFailed, Message: err.Error()},
				})
				return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
			}
			return shared.NewFailureError(fmt.Sprintf("creating %s", outPath), err)
		}
		w = file
	}

	if queryExpr != "" {
		err = writeQueried(cmd, w, executor, queryExpr, items)
	} else {
		err = export.Write(w, format, items)
	}
	if file != nil {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		if useJSON {
			output.EmitJSONError("export", []output.JSONError{
				{Code: shared.CodeForError(err), Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("export failed", err)
	}

	if file != nil && !shared.GetQuiet() && !useJSON {
		color := term.IsTTY() && !shared.GetNoColor()
		fmt.Fprintln(cmd.OutOrStdout(), term.OK(fmt.Sprintf("Exported %d anchors to %s", len(items), outPath), color))
	}
	return nil
}

// writeQueried runs the jq expression over the JSON form of the anchors
// and writes the resulting value.
func writeQueried(cmd *cobra.Command, w io.Writer, executor *export.QueryExecutor, queryExpr string, items []anchor.Item) error {
	v, err := export.JSONValue(items)
	if err != nil {
		return err
	}
	v, err = executor.Execute(cmd.Context(), queryExpr, v)
	if err != nil {
		return err
	}
	return export.WriteValue(w, v)
}
