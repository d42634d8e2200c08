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

package fmt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/cli/prompt"
	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/fileio"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/comment"
)

// NewCommand creates the fmt command.
func NewCommand() *cobra.Command {
	var (
		check         bool
		diffMode      bool
		write         bool
		yes           bool
		width         int
		compact       bool
		preserveBlank bool
	)

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Reflow doc comments to the column limit",
		Annotations: map[string]string{
			"group": "comments",
		},
		Long: `Fmt rewraps documentation comments (///, ''') to the configured
column limit and rewrites the files in place. Code outside comments is
never touched, and a second run never changes anything further.

The column limit, compact-summary, and blank-line behavior come from
the nearest .commentary.yaml of each file; --width, --compact, and
--preserve-blank override it for this run. Files without a known doc
comment style are skipped with a warning.

--check reports files that would change and exits with code 1 instead
of writing. --diff prints unified diffs instead of writing.`,
		Example: `  # Rewrap one file in place
  commentary fmt src/Parser.cs

  # CI gate: fail when comments need rewrapping
  commentary fmt --check src/*.cs

  # Preview the rewrite
  commentary fmt --diff --width 80 src/Parser.cs`,
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			exts := comment.DocExtensions()
			bare := make([]string, 0, len(exts))
			for _, ext := range exts {
				bare = append(bare, strings.TrimPrefix(ext, "."))
			}
			return bare, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, check, diffMode, write, yes)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Report files needing reflow and exit 1 when any do")
	cmd.Flags().BoolVar(&diffMode, "diff", false, "Print unified diffs instead of rewriting")
	cmd.Flags().BoolVar(&write, "write", true, "Rewrite files in place (--write=false for a dry run)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the rewrite confirmation")
	cmd.Flags().IntVar(&width, "width", 0, "Column limit for reflowed lines (overrides config)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Collapse summary-only comments to one line (overrides config)")
	cmd.Flags().BoolVar(&preserveBlank, "preserve-blank", false, "Keep blank comment lines as paragraph breaks (overrides config)")

	return cmd
}

// fileResult tracks one file through read, reflow, and writeback.
type fileResult struct {
	path      string // as given on the command line
	abs       string
	text      string
	formatted string
	enc       fileio.Encoding
	perm      fs.FileMode
	changed   bool
	written   bool
	skipped   string
	diff      string
	err       error
}

func runFmt(cmd *cobra.Command, paths []string, check, diffMode, write, yes bool) error {
	useJSON := shared.GetJSON()
	color := term.IsTTY() && !shared.GetNoColor()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	results := make([]*fileResult, 0, len(paths))
	cfgs := map[string]*config.Config{}
	failed := 0
	changed := 0

	for _, path := range paths {
		r := &fileResult{path: path}
		results = append(results, r)

		abs, err := filepath.Abs(path)
		if err != nil {
			r.err = err
			failed++
			continue
		}
		r.abs = abs

		info, err := os.Stat(abs)
		if err != nil {
			r.err = err
			failed++
			continue
		}
		if info.IsDir() {
			r.err = fmt.Errorf("%s is a directory; fmt takes files", path)
			failed++
			continue
		}
		r.perm = info.Mode().Perm()

		ext := filepath.Ext(abs)
		styles, ok := comment.StylesForExtension(ext)
		if !ok {
			r.skipped = fmt.Sprintf("no doc comment style for %q files", ext)
			continue
		}

		text, enc, err := fileio.ReadFile(abs)
		if err != nil {
			r.err = err
			failed++
			continue
		}
		r.text, r.enc = string(text), enc

		dir := filepath.Dir(abs)
		cfg, ok := cfgs[dir]
		if !ok {
			cfg, _, err = config.Resolve(dir, shared.GetConfigPath())
			if err != nil {
				if useJSON {
					output.EmitJSONError("fmt", []output.JSONError{
						{Code: shared.ErrorCodeConfigError, Message: err.Error()},
					})
					return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
				}
				return shared.NewInvalidInputError("invalid configuration", err)
			}
			cfgs[dir] = cfg
		}

		opts := cfg.ReflowOptions()
		flags := cmd.Flags()
		if flags.Changed("width") {
			opts.MaxLineLength, _ = flags.GetInt("width")
		}
		if flags.Changed("compact") {
			opts.CompactSummaries, _ = flags.GetBool("compact")
		}
		if flags.Changed("preserve-blank") {
			opts.PreserveBlankLines, _ = flags.GetBool("preserve-blank")
		}

		r.formatted = reflowSource(r.text, styles, opts)
		r.changed = r.formatted != r.text
		if r.changed {
			changed++
		}
	}

	// Report skips and read failures before any mode output.
	if !useJSON {
		for _, r := range results {
			if r.skipped != "" {
				fmt.Fprintln(errOut, term.Warn(fmt.Sprintf("skipping %s: %s", r.path, r.skipped), color))
			}
			if r.err != nil {
				fmt.Fprintln(errOut, term.Fail(fmt.Sprintf("%s: %v", r.path, r.err), color))
			}
		}
	}

	switch {
	case diffMode:
		for _, r := range results {
			if !r.changed {
				continue
			}
			text, err := unifiedDiff(r.path, r.text, r.formatted)
			if err != nil {
				r.err = err
				failed++
				continue
			}
			r.diff = text
			if !useJSON {
				fmt.Fprint(out, text)
			}
		}
	case check:
		if !useJSON {
			for _, r := range results {
				if r.changed {
					fmt.Fprintln(out, r.path)
				}
			}
		}
	case write:
		if changed > 0 && !yes && !useJSON {
			confirmer := prompt.NewSurveyConfirmer(!shared.IsNonInteractive())
			if confirmer.IsInteractive() {
				ok, err := confirmer.Confirm(fmt.Sprintf("Rewrite %d file(s) in place?", changed), true)
				if err != nil {
					return shared.NewFailureError("confirmation failed", err)
				}
				if !ok {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}
		}
		for _, r := range results {
			if !r.changed || r.err != nil {
				continue
			}
			if err := fileio.WriteFile(r.abs, []byte(r.formatted), r.enc, r.perm); err != nil {
				r.err = err
				failed++
				if !useJSON {
					fmt.Fprintln(errOut, term.Fail(fmt.Sprintf("%s: %v", r.path, err), color))
				}
				continue
			}
			r.written = true
			if !useJSON && !shared.GetQuiet() {
				fmt.Fprintln(out, r.path)
			}
		}
		if !useJSON && changed == 0 && failed == 0 {
			fmt.Fprintln(out, "All comments already reflowed.")
		}
	default:
		// --write=false dry run: name the files without touching them.
		if !useJSON {
			for _, r := range results {
				if r.changed {
					fmt.Fprintf(out, "would reflow %s\n", r.path)
				}
			}
		}
	}

	if useJSON {
		if err := emitJSONReport(results, changed, failed); err != nil {
			return err
		}
		if failed > 0 {
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		if check && changed > 0 {
			return &shared.ExitError{Code: shared.ExitChangesNeeded, Message: ""}
		}
		return nil
	}

	if failed > 0 {
		return shared.NewFailureError(fmt.Sprintf("%d file(s) failed", failed), nil)
	}
	if check && changed > 0 {
		return shared.NewChangesNeededError(fmt.Sprintf("%d file(s) need reflow", changed))
	}
	return nil
}

// reflowSource applies each style's reflow replacements from the bottom of
// the file up so earlier spans stay valid.
func reflowSource(text string, styles []comment.Style, opts comment.ReflowOptions) string {
	for _, style := range styles {
		blocks := comment.FindAllBlocks(text, style)
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			repl, changed := comment.Reflow(b, opts)
			if !changed {
				continue
			}
			text = text[:b.Span.Start] + repl + text[b.Span.End:]
		}
	}
	return text
}

func unifiedDiff(path, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: "a/" + filepath.ToSlash(path),
		ToFile:   "b/" + filepath.ToSlash(path),
		Context:  3,
	})
}

// splitLines keeps the newline on each element, which renders cleaner
// hunks than difflib's own splitter for files without a trailing newline.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

func emitJSONReport(results []*fileResult, changed, failed int) error {
	type fileReport struct {
		Path    string `json:"path"`
		Changed bool   `json:"changed"`
		Written bool   `json:"written,omitempty"`
		Skipped string `json:"skipped,omitempty"`
		Diff    string `json:"diff,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	type fmtResponse struct {
		output.JSONResponse
		Files   []fileReport `json:"files"`
		Changed int          `json:"changed"`
		Failed  int          `json:"failed"`
	}

	files := make([]fileReport, 0, len(results))
	for _, r := range results {
		fr := fileReport{
			Path:    r.path,
			Changed: r.changed,
			Written: r.written,
			Skipped: r.skipped,
			Diff:    r.diff,
		}
		if r.err != nil {
			fr.Error = r.err.Error()
		}
		files = append(files, fr)
	}

	resp := fmtResponse{
		JSONResponse: output.NewResponse("fmt"),
		Files:        files,
		Changed:      changed,
		Failed:       failed,
	}
	resp.Success = failed == 0
	return output.EmitJSON(resp)
}
