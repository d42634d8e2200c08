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

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/fileio"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/comment"
	pkgerrors "github.com/tombee/commentary/pkg/errors"
)

// NewCommand creates the render command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a file's doc comments as section trees",
		Annotations: map[string]string{
			"group": "comments",
		},
		Long: `Render parses every documentation comment in a file and prints each
one as its section tree: summary prose first, then parameters, returns,
exceptions, and the other sections under title lines.

Malformed markup degrades to plain text; render never fails on content.
With --json the structured section tree is emitted instead, which is
what editor integrations consume.`,
		Example: `  # Inspect the doc comments of one file
  commentary render src/Parser.cs

  # Section tree as JSON
  commentary render src/Parser.cs --json`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			exts := comment.DocExtensions()
			bare := make([]string, 0, len(exts))
			for _, ext := range exts {
				bare = append(bare, strings.TrimPrefix(ext, "."))
			}
			return bare, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0])
		},
	}

	return cmd
}

func runRender(cmd *cobra.Command, path string) error {
	useJSON := shared.GetJSON()

	abs, err := filepath.Abs(path)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", path), err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		msg := fmt.Sprintf("cannot read %s", path)
		if useJSON {
			output.EmitJSONError("render", []output.JSONError{
				{
					Code:     shared.ErrorCodeFileNotFound,
					Message:  msg,
					Location: &output.JSONLocation{File: path},
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		if os.IsNotExist(err) {
			return shared.NewFailureError("", &pkgerrors.NotFoundError{Resource: "file", ID: path})
		}
		return shared.NewFailureError(msg, err)
	}
	if info.IsDir() {
		msg := fmt.Sprintf("%s is a directory; render takes a single file", path)
		if useJSON {
			output.EmitJSONError("render", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidInput,
					Message:    msg,
					Suggestion: "Use 'commentary scan' for directory trees",
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError(msg, nil)
	}

	ext := filepath.Ext(abs)
	styles, ok := comment.StylesForExtension(ext)
	if !ok {
		msg := fmt.Sprintf("no doc comment style for %q files", ext)
		if useJSON {
			output.EmitJSONError("render", []output.JSONError{
				{
					Code:       shared.ErrorCodeInvalidInput,
					Message:    msg,
					Suggestion: "Known extensions: " + strings.Join(comment.DocExtensions(), ", "),
				},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError(msg, nil)
	}

	data, _, err := fileio.ReadFile(abs)
	if err != nil {
		if useJSON {
			output.EmitJSONError("render", []output.JSONError{
				{
					Code:     shared.ErrorCodeFileNotFound,
					Message:  err.Error(),
					Location: &output.JSONLocation{File: path},
				},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError(fmt.Sprintf("reading %s", path), err)
	}
	text := string(data)

	var blocks []comment.Block
	for _, style := range styles {
		blocks = append(blocks, comment.FindAllBlocks(text, style)...)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Span.Start < blocks[j].Span.Start })

	if useJSON {
		return emitJSONTree(path, blocks)
	}
	printBlocks(cmd, path, blocks)
	return nil
}

func emitJSONTree(path string, blocks []comment.Block) error {
	type renderedBlock struct {
		Line     int              `json:"line"`
		EndLine  int              `json:"endLine"`
		Style    string           `json:"style"`
		Sections comment.Rendered `json:"sections"`
	}
	type renderResponse struct {
		output.JSONResponse
		File     string          `json:"file"`
		Count    int             `json:"count"`
		Comments []renderedBlock `json:"comments"`
	}

	comments := make([]renderedBlock, 0, len(blocks))
	for _, b := range blocks {
		comments = append(comments, renderedBlock{
			Line:     b.StartLine + 1,
			EndLine:  b.EndLine + 1,
			Style:    b.Style.Name,
			Sections: comment.Render(b),
		})
	}
	return output.EmitJSON(renderResponse{
		JSONResponse: output.NewResponse("render"),
		File:         path,
		Count:        len(comments),
		Comments:     comments,
	})
}

func printBlocks(cmd *cobra.Command, path string, blocks []comment.Block) {
	out := cmd.OutOrStdout()
	color := term.IsTTY() && !shared.GetNoColor()

	if len(blocks) == 0 {
		fmt.Fprintln(out, "No doc comments found.")
		return
	}

	renderer := term.NewRenderer(color)
	for i, b := range blocks {
		if i > 0 {
			fmt.Fprintln(out)
		}
		header := fmt.Sprintf("%s:%d (%s)", path, b.StartLine+1, b.Style.Name)
		fmt.Fprintln(out, term.Dim(header, color))
		if body := renderer.Comment(comment.Render(b)); body != "" {
			fmt.Fprint(out, body)
		}
	}
}
