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

package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/log"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for Commentary
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commentary",
		Short: "Commentary - code comment scanning and formatting",
		Long: `Commentary is a command-line toolkit for structured code comments.
It scans source trees for anchor comments like TODO and HACK, keeps a
versioned index of the results, and renders or rewraps documentation
comment blocks.

Run 'commentary scan' to index a working tree.
Run 'commentary list' to browse the anchors it found.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// --verbose raises the default logger to debug; env config
			// (COMMENTARY_LOG_LEVEL et al.) is applied in main before
			// flags parse, so the flag wins.
			if shared.GetVerbose() {
				cfg := log.FromEnv()
				cfg.Level = "debug"
				slog.SetDefault(log.New(cfg))
			}
		},
	}

	// Get flag pointers from shared package
	verbose, quiet, json, noColor, config := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVar(noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: nearest .commentary.yaml)")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
