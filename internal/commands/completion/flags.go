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

package completion

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tombee/commentary/internal/commands/shared"
	"github.com/tombee/commentary/internal/config"
)

// CompleteAnchorTypes provides completion for --type flag values.
// Custom tags from the resolved configuration follow the built-ins.
func CompleteAnchorTypes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		types := []string{
			"todo\tWork that still needs doing",
			"hack\tWorkaround that should be revisited",
			"note\tExplanatory remark",
			"bug\tKnown defect",
			"fixme\tBroken code that needs fixing",
			"undone\tReverted or unfinished change",
			"review\tNeeds a reviewer's attention",
			"anchor\tNamed reference point",
		}

		if cfg, _, err := config.Resolve(".", shared.GetConfigPath()); err == nil {
			for _, tag := range cfg.Tags.CustomTags {
				types = append(types, strings.ToLower(tag)+"\tCustom tag")
			}
		}

		return types, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteExportFormats provides completion for --format flag values.
func CompleteExportFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		formats := []string{
			"tsv\tTab-separated values",
			"csv\tComma-separated values",
			"markdown\tMarkdown table",
			"json\tJSON array",
		}
		return formats, cobra.ShellCompDirectiveNoFileComp
	})
}

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	// Set defaults for panic recovery
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			// Panic recovery - return empty completion (already set above)
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	// Execute the completion function
	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}
