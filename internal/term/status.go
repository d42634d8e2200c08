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

package term

import "github.com/charmbracelet/lipgloss"

// Status indicator styles
var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
)

// Status symbols
const (
	symbolOK   = "✓"
	symbolWarn = "⚠"
	symbolFail = "✗"
)

// OK prefixes msg with a checkmark, green when color is on.
func OK(msg string, color bool) string {
	if !color {
		return symbolOK + " " + msg
	}
	return okStyle.Render(symbolOK) + " " + msg
}

// Warn prefixes msg with a warning sign, orange when color is on.
func Warn(msg string, color bool) string {
	if !color {
		return symbolWarn + " " + msg
	}
	return warnStyle.Render(symbolWarn) + " " + msg
}

// Fail prefixes msg with a cross, red when color is on.
func Fail(msg string, color bool) string {
	if !color {
		return symbolFail + " " + msg
	}
	return failStyle.Render(symbolFail) + " " + msg
}

// Dim renders secondary text in gray when color is on.
func Dim(msg string, color bool) string {
	if !color {
		return msg
	}
	return mutedStyle.Render(msg)
}
