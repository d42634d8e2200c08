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
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/output"
	"github.com/tombee/commentary/internal/term"
	"github.com/tombee/commentary/pkg/anchor"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate configuration files",
		Long: `Validate the configuration that would apply to a tree.

Checks performed:
  - YAML syntax of the settings and project files
  - Values are in range (line length, log level, debounce)
  - Tag keywords name built-in tags; custom tags are well formed
  - Scan extensions carry their leading dot

With --strict, warnings are treated as errors.`,
		Example: `  # Example 1: Validate the current tree's configuration
  commentary config validate

  # Example 2: Gate CI on warnings too
  commentary config validate --strict

  # Example 3: Result as JSON
  commentary config validate --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runValidate(cmd, root, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, root string, strict bool) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}

	result := validateTree(absRoot, shared.GetConfigPath())
	return reportValidation(cmd, result, strict)
}

// validateTree resolves the configuration layers for a tree and collects
// errors and warnings instead of failing on the first problem.
func validateTree(absRoot, explicitPath string) ValidationResult {
	cfg, res, err := config.Resolve(absRoot, explicitPath)
	if err != nil {
		return ValidationResult{Valid: false, Errors: errorChain(err)}
	}

	var warnings []string
	warnings = append(warnings, projectFileWarnings(res.ProjectPath)...)
	warnings = append(warnings, configWarnings(cfg)...)

	return ValidationResult{Valid: true, Warnings: warnings}
}

// errorChain flattens a wrapped error into its distinct messages. The
// config error types keep detail in their causes rather than repeating
// it at every layer.
func errorChain(err error) []string {
	msgs := []string{err.Error()}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		if !strings.Contains(msgs[len(msgs)-1], cause.Error()) {
			msgs = append(msgs, cause.Error())
		}
	}
	return msgs
}

// projectFileWarnings inspects the raw project file for problems that
// resolution papers over, such as a missing version field.
func projectFileWarnings(path string) []string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var warnings []string
	switch v := raw["version"].(type) {
	case nil:
		warnings = append(warnings, fmt.Sprintf("%s has no version field; consider setting 'version: 1'", path))
	case int:
		if v != 1 {
			warnings = append(warnings, fmt.Sprintf("%s has unknown version %d; expected 1", path, v))
		}
	}
	return warnings
}

// configWarnings reports settings that are valid but probably not what
// the author meant.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if cfg.Reflow.MaxLineLength < 40 {
		warnings = append(warnings, fmt.Sprintf("reflow.max_line_length %d is unusually narrow", cfg.Reflow.MaxLineLength))
	}

	for _, ext := range cfg.Scan.Extensions {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			warnings = append(warnings, fmt.Sprintf("scan.extensions entry %q should include the leading dot", ext))
		}
	}

	builtins := make(map[string]bool, len(anchor.DefaultTags))
	for _, tag := range anchor.DefaultTags {
		builtins[strings.ToUpper(tag)] = true
	}
	seen := make(map[string]bool)
	for _, tag := range cfg.Tags.CustomTags {
		upper := strings.ToUpper(tag)
		if builtins[upper] {
			warnings = append(warnings, fmt.Sprintf("tags.custom_tags %q duplicates a built-in keyword", tag))
		}
		if seen[upper] {
			warnings = append(warnings, fmt.Sprintf("tags.custom_tags lists %q more than once", tag))
		}
		seen[upper] = true
	}

	return warnings
}

// reportValidation prints the result and maps it onto an exit code.
func reportValidation(cmd *cobra.Command, result ValidationResult, strict bool) error {
	useJSON := shared.GetJSON()
	failed := !result.Valid || (strict && len(result.Warnings) > 0)

	if useJSON {
		type validateResponse struct {
			output.JSONResponse
			ValidationResult
			Strict bool `json:"strict,omitempty"`
		}
		resp := validateResponse{
			JSONResponse:     output.NewResponse("config validate"),
			ValidationResult: result,
			Strict:           strict,
		}
		resp.Success = !failed
		if err := output.EmitJSON(resp); err != nil {
			return err
		}
		if failed {
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return nil
	}

	color := term.IsTTY() && !shared.GetNoColor()
	out := cmd.OutOrStdout()

	if result.Valid {
		fmt.Fprintln(out, term.OK("Configuration is valid", color))
	} else {
		fmt.Fprintln(out, term.Fail("Configuration validation failed", color))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Errors:")
		for _, msg := range result.Errors {
			fmt.Fprintf(out, "  %s\n", term.Fail(msg, color))
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Warnings:")
		for _, msg := range result.Warnings {
			fmt.Fprintf(out, "  %s\n", term.Warn(msg, color))
		}
	}
	if strict && result.Valid && len(result.Warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Validation failed (strict mode: warnings treated as errors)")
	}

	if failed {
		return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
	}
	return nil
}
