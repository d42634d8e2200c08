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

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/commentary/pkg/anchor"
)

// Anchor tag colors, one per built-in type
var (
	tagTodo   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // blue
	tagHack   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	tagNote   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	tagBug    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	tagFixme  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")) // salmon
	tagUndone = lipgloss.NewStyle().Foreground(lipgloss.Color("135")) // purple
	tagReview = lipgloss.NewStyle().Foreground(lipgloss.Color("177")) // violet
	tagAnchor = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))  // cyan
	tagCustom = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
)

// Styles for rendered documentation segments
var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	italicStyle  = lipgloss.NewStyle().Italic(true)
	strikeStyle  = lipgloss.NewStyle().Strikethrough(true)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	refStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("86"))
	linkStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// TagStyle returns the display style for an anchor type.
func TagStyle(t anchor.Type) lipgloss.Style {
	switch t {
	case anchor.TypeTodo:
		return tagTodo
	case anchor.TypeHack:
		return tagHack
	case anchor.TypeNote:
		return tagNote
	case anchor.TypeBug:
		return tagBug
	case anchor.TypeFixme:
		return tagFixme
	case anchor.TypeUndone:
		return tagUndone
	case anchor.TypeReview:
		return tagReview
	case anchor.TypeAnchor:
		return tagAnchor
	}
	return tagCustom
}

// RenderTag renders an anchor's keyword in its tag color. Plain text when
// color is off.
func RenderTag(it anchor.Item, color bool) string {
	name := it.TypeName()
	if !color {
		return name
	}
	return TagStyle(it.Type).Render(name)
}
