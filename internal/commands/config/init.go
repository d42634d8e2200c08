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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
)

func newInitCommand() *cobra.Command {
	var (
		useDefaults bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a project configuration file",
		Long: `Create a .commentary.yaml in a project tree.

Without flags this runs a short interactive form covering the settings
most projects change: comment line length, summary compaction, custom
anchor tags, and caching. The generated file spells out every setting,
so it doubles as a reference for hand editing.

With --defaults the built-in defaults are written without prompting,
which suits scripted setup.`,
		Example: `  # Example 1: Interactive setup for the current tree
  commentary config init

  # Example 2: Write defaults without prompting (CI)
  commentary config init --defaults

  # Example 3: Replace an existing file
  commentary config init --defaults --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runInit(cmd, root, useDefaults, force)
		},
	}

	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Write the default configuration without prompting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, root string, useDefaults, force bool) error {
	useJSON := shared.GetJSON()
	quiet := shared.GetQuiet()
	color := term.IsTTY() && !shared.GetNoColor()
	out := cmd.OutOrStdout()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s is not a directory", root)
		if useJSON {
			output.EmitJSONError("config init", []output.JSONError{
				{Code: shared.ErrorCodeFileNotFound, Message: msg},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError(msg, err)
	}

	path := filepath.Join(absRoot, config.ProjectConfigName)
	if _, err := os.Stat(path); err == nil && !force {
		msg := fmt.Sprintf("%s already exists", path)
		if useJSON {
			output.EmitJSONError("config init", []output.JSONError{
				{Code: shared.ErrorCodeInvalidInput, Message: msg, Suggestion: "Pass --force to overwrite it"},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError(msg+"; pass --force to overwrite it", nil)
	}

	cfg := config.Default()
	if !useDefaults {
		if useJSON || shared.IsNonInteractive() {
			return shared.NewNonInteractiveError("config init needs a terminal; pass --defaults to write the default configuration")
		}
		if err := runWizard(cfg, path); err != nil {
			return shared.NewFailureError("configuration form failed", err)
		}
	}

	if err := config.WriteProjectConfig(path, cfg); err != nil {
		if useJSON {
			output.EmitJSONError("config init", []output.JSONError{
				{Code: shared.ErrorCodeWriteFailed, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitFailure, Message: ""}
		}
		return shared.NewFailureError("writing configuration", err)
	}

	if useJSON {
		type initResponse struct {
			output.JSONResponse
			Path string `json:"path"`
		}
		return output.EmitJSON(initResponse{
			JSONResponse: output.NewResponse("config init"),
			Path:         path,
		})
	}
	if !quiet {
		fmt.Fprintln(out, term.OK(fmt.Sprintf("Wrote %s", path), color))
		fmt.Fprintln(out, term.Dim("Run 'commentary scan' to index the tree.", color))
	}
	return nil
}

// runWizard collects the settings most projects change and applies the
// answers to cfg.
func runWizard(cfg *config.Config, path string) error {
	lineLength := strconv.Itoa(cfg.Reflow.MaxLineLength)
	compact := cfg.Reflow.CompactSummaries
	preserveBlank := cfg.Reflow.PreserveBlankLines
	cacheEnabled := cfg.Cache.Enabled
	var customTags string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("commentary configuration").
				Description(fmt.Sprintf("Answers are written to %s", path)),
			huh.NewInput().
				Title("Comment line length").
				Description("Column limit for reflowed doc comment lines").
				Validate(validateLineLength).
				Value(&lineLength),
			huh.NewConfirm().
				Title("Compact short summaries onto one line?").
				Value(&compact),
			huh.NewConfirm().
				Title("Preserve blank comment lines as paragraph breaks?").
				Value(&preserveBlank),
			huh.NewInput().
				Title("Custom anchor tags").
				Description("Extra keywords to index, comma separated (empty for none)").
				Value(&customTags),
			huh.NewConfirm().
				Title("Cache scan results on disk?").
				Value(&cacheEnabled),
		),
	)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			os.Exit(130) // Standard exit code for SIGINT
		}
		return err
	}

	if n, err := strconv.Atoi(strings.TrimSpace(lineLength)); err == nil {
		cfg.Reflow.MaxLineLength = n
	}
	cfg.Reflow.CompactSummaries = compact
	cfg.Reflow.PreserveBlankLines = preserveBlank
	cfg.Tags.CustomTags = parseTagList(customTags)
	cfg.Cache.Enabled = cacheEnabled
	return nil
}

func validateLineLength(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a positive whole number")
	}
	return nil
}

// parseTagList splits a comma separated tag list, dropping empty parts.
func parseTagList(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
