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
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
	"github.com/tombee/commentary/internal/output"
)

// NewCommand creates the config command with its subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "config",
		Annotations: map[string]string{
			"group": "utilities",
		},
		Short: "View and manage configuration",
		Long: `View and manage commentary configuration.

Settings are resolved in layers, lowest precedence first: built-in
defaults, the user settings file, the project .commentary.yaml found by
walking upward from the working tree, then environment variables.

See also: commentary scan, commentary fmt`,
	}

	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())

	// Bare 'commentary config' behaves like 'config show'.
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runShow(cmd, ".")
	}

	return cmd
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Display the resolved configuration",
		Long: `Display the effective configuration for a tree, after all layers
have been applied. The contributing files are listed as YAML comments,
so the output itself is a valid configuration file.`,
		Example: `  # Example 1: Configuration for the current tree
  commentary config show

  # Example 2: Line length currently in effect
  commentary config show --json | jq '.config.reflow.max_line_length'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runShow(cmd, root)
		},
	}
	return cmd
}

func newPathCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path [path]",
		Short: "Show configuration file locations",
		Long: `Display where commentary reads configuration from: the user
settings file and the project .commentary.yaml discovered for a tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runPath(cmd, root)
		},
	}
	return cmd
}

func runShow(cmd *cobra.Command, root string) error {
	useJSON := shared.GetJSON()
	out := cmd.OutOrStdout()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}

	cfg, res, err := config.Resolve(absRoot, shared.GetConfigPath())
	if err != nil {
		if useJSON {
			output.EmitJSONError("config show", []output.JSONError{
				{Code: shared.ErrorCodeConfigError, Message: err.Error()},
			})
			return &shared.ExitError{Code: shared.ExitInvalidInput, Message: ""}
		}
		return shared.NewInvalidInputError("invalid configuration", err)
	}

	sources := resolvedSources(res)

	if useJSON {
		asMap, err := configAsMap(cfg)
		if err != nil {
			return shared.NewFailureError("encoding configuration", err)
		}
		type showResponse struct {
			output.JSONResponse
			Root    string                 `json:"root"`
			Sources []string               `json:"sources"`
			Config  map[string]interface{} `json:"config"`
		}
		return output.EmitJSON(showResponse{
			JSONResponse: output.NewResponse("config show"),
			Root:         absRoot,
			Sources:      sources,
			Config:       asMap,
		})
	}

	// Sources as comments keep the dump pasteable into .commentary.yaml.
	fmt.Fprintln(out, "# Resolved configuration, sources lowest precedence first:")
	for _, src := range sources {
		fmt.Fprintf(out, "#   %s\n", src)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return shared.NewFailureError("encoding configuration", err)
	}
	return enc.Close()
}

func runPath(cmd *cobra.Command, root string) error {
	useJSON := shared.GetJSON()
	out := cmd.OutOrStdout()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return shared.NewInvalidInputError(fmt.Sprintf("invalid path %q", root), err)
	}

	settingsPath, err := config.SettingsPath()
	if err != nil {
		return shared.NewFailureError("locating user settings", err)
	}

	projectPath := shared.GetConfigPath()
	if projectPath == "" {
		projectPath, _ = config.FindProjectConfig(absRoot)
	}

	if useJSON {
		type pathResponse struct {
			output.JSONResponse
			Settings string `json:"settings"`
			Project  string `json:"project,omitempty"`
		}
		return output.EmitJSON(pathResponse{
			JSONResponse: output.NewResponse("config path"),
			Settings:     settingsPath,
			Project:      projectPath,
		})
	}

	fmt.Fprintf(out, "settings: %s\n", settingsPath)
	if projectPath == "" {
		fmt.Fprintf(out, "project:  (no %s found)\n", config.ProjectConfigName)
	} else {
		fmt.Fprintf(out, "project:  %s\n", projectPath)
	}
	return nil
}

// resolvedSources lists the configuration layers that contributed to a
// resolution, lowest precedence first.
func resolvedSources(res *config.Resolution) []string {
	sources := []string{"defaults"}
	if res.SettingsPath != "" {
		sources = append(sources, res.SettingsPath)
	}
	if res.ProjectPath != "" {
		sources = append(sources, res.ProjectPath)
	}
	sources = append(sources, "environment")
	return sources
}

// configAsMap round-trips the config through YAML so JSON output uses
// the same keys as the file format.
func configAsMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
