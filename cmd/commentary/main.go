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

package main

import (
	"log/slog"

	"github.com/tombee/commentary/internal/cli"
	"github.com/tombee/commentary/internal/commands/cache"
	"github.com/tombee/commentary/internal/commands/completion"
	"github.com/tombee/commentary/internal/commands/config"
	"github.com/tombee/commentary/internal/commands/export"
	fmtcmd "github.com/tombee/commentary/internal/commands/fmt"
	"github.com/tombee/commentary/internal/commands/list"
	"github.com/tombee/commentary/internal/commands/render"
	"github.com/tombee/commentary/internal/commands/scan"
	versioncmd "github.com/tombee/commentary/internal/commands/version"
	"github.com/tombee/commentary/internal/commands/watch"
	"github.com/tombee/commentary/internal/log"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Logs go to stderr so stdout stays clean for command output.
	slog.SetDefault(log.New(log.FromEnv()))

	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	// Create root command and add subcommands
	rootCmd := cli.NewRootCommand()

	// Anchor commands
	rootCmd.AddCommand(scan.NewCommand())
	rootCmd.AddCommand(list.NewCommand())
	rootCmd.AddCommand(export.NewCommand())
	rootCmd.AddCommand(watch.NewCommand())
	rootCmd.AddCommand(cache.NewCommand())

	// Comment commands
	rootCmd.AddCommand(fmtcmd.NewCommand())
	rootCmd.AddCommand(render.NewCommand())

	// Configuration and utilities
	rootCmd.AddCommand(config.NewCommand())
	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
