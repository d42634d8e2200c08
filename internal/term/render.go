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

// Package term renders comment section trees and anchor listings for the
// terminal, with lipgloss styling when stdout is a TTY.
package term

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tombee/commentary/pkg/comment"
)

// Renderer turns rendered comment trees into terminal text. Line structure
// follows the comment source; wrapping stays the formatter's job.
type Renderer struct {
	color bool
}

// NewRenderer creates a renderer. With color false every style degrades to
// plain text, the form used when output is piped.
func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color}
}

// Comment renders a full section tree: summary prose first, then each
// additional section under a title line with its content indented.
func (r *Renderer) Comment(rc comment.Rendered) string {
	var b strings.Builder

	if rc.Summary != nil && !rc.Summary.IsEmpty() {
		for _, line := range rc.Summary.Lines {
			if line.Blank {
				b.WriteByte('\n')
				continue
			}
			b.WriteString(r.Line(line))
			b.WriteByte('\n')
		}
	}

	for _, sec := range rc.AdditionalSections {
		if sec.IsEmpty() && sec.Name == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		r.writeSection(&b, sec)
	}

	return b.String()
}

func (r *Renderer) writeSection(b *strings.Builder, sec comment.RenderedSection) {
	b.WriteString(r.style(sectionStyle, SectionTitle(sec.Kind, sec.Name)))
	b.WriteByte('\n')

	for _, line := range sec.Lines {
		if line.Blank {
			b.WriteByte('\n')
			continue
		}
		b.WriteString("  ")
		b.WriteString(r.Line(line))
		b.WriteByte('\n')
	}
}

// SectionTitle returns the display title for a section, including its name
// when the kind carries one.
func SectionTitle(kind comment.SectionKind, name string) string {
	var title string
	switch kind {
	case comment.SectionSummary:
		title = "Summary"
	case comment.SectionTypeParam:
		title = "Type parameter"
	case comment.SectionParam:
		title = "Parameter"
	case comment.SectionReturns:
		title = "Returns"
	case comment.SectionValue:
		title = "Value"
	case comment.SectionException:
		title = "Exception"
	case comment.SectionExample:
		title = "Example"
	case comment.SectionRemarks:
		title = "Remarks"
	case comment.SectionSeeAlso:
		title = "See also"
	default:
		title = "Remarks"
	}
	if name != "" {
		title += " " + name
	}
	return title
}

// Line renders one line's segments in order.
func (r *Renderer) Line(l comment.Line) string {
	var b strings.Builder
	for _, seg := range l.Segments {
		b.WriteString(r.segment(seg))
	}
	return b.String()
}

func (r *Renderer) segment(seg comment.Segment) string {
	switch seg.Kind {
	case comment.SegmentBold:
		return r.style(boldStyle, seg.Text)
	case comment.SegmentItalic:
		return r.style(italicStyle, seg.Text)
	case comment.SegmentStrikethrough:
		return r.style(strikeStyle, seg.Text)
	case comment.SegmentCode:
		return r.style(codeStyle, seg.Text)
	case comment.SegmentParamRef, comment.SegmentTypeParamRef:
		return r.style(refStyle, seg.Text)
	case comment.SegmentHeading:
		return r.style(headingStyle, seg.Text)
	case comment.SegmentLink:
		out := r.style(linkStyle, seg.Text)
		if seg.Target != "" && seg.Target != seg.Text {
			out += r.style(mutedStyle, " ("+seg.Target+")")
		}
		return out
	}
	return seg.Text
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}
