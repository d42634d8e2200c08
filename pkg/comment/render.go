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

package comment

import (
	"encoding/json"
	"strings"
)

// SegmentKind identifies the styling of one segment of rendered text.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentBold
	SegmentItalic
	SegmentCode
	SegmentStrikethrough
	SegmentLink
	SegmentParamRef
	SegmentTypeParamRef
	SegmentHeading
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentText:
		return "text"
	case SegmentBold:
		return "bold"
	case SegmentItalic:
		return "italic"
	case SegmentCode:
		return "code"
	case SegmentStrikethrough:
		return "strikethrough"
	case SegmentLink:
		return "link"
	case SegmentParamRef:
		return "paramref"
	case SegmentTypeParamRef:
		return "typeparamref"
	case SegmentHeading:
		return "heading"
	}
	return "text"
}

func (k SegmentKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k SectionKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Segment is the smallest styled unit of rendered text. Segments never
// span a line break; joining the texts of a line's segments in order
// reproduces the line's visible content with markup removed.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
	// Target is the link destination: a URL or a bare reference.
	Target string `json:"target,omitempty"`
	// Level is the heading level, 1 to 6.
	Level int `json:"level,omitempty"`
}

// Line is one rendered output line. A blank line marks a paragraph
// break and carries no segments.
type Line struct {
	Blank    bool      `json:"blank,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// Text returns the line's visible text.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// RenderedSection is one rendered documentation section.
type RenderedSection struct {
	Kind  SectionKind `json:"kind"`
	Name  string      `json:"name,omitempty"`
	Lines []Line      `json:"lines,omitempty"`
	// ListStart is the index of the first line holding bulleted or
	// numbered content, or -1 when the section has none. Used to pick
	// compact versus expanded display.
	ListStart int `json:"listStart"`
}

// IsEmpty reports whether the section has no non-blank lines.
func (s RenderedSection) IsEmpty() bool {
	for _, l := range s.Lines {
		if !l.Blank && strings.TrimSpace(l.Text()) != "" {
			return false
		}
	}
	return true
}

// Flatten joins the section's visible text into a single line,
// separating source lines with spaces and skipping paragraph breaks.
func (s RenderedSection) Flatten() string {
	var parts []string
	for _, l := range s.Lines {
		if l.Blank {
			continue
		}
		if t := strings.TrimSpace(l.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Rendered is the displayable form of one comment block.
type Rendered struct {
	Summary *RenderedSection `json:"summary,omitempty"`
	// AdditionalSections holds every non-summary section. Type
	// parameters and parameters come first; the rest keep document
	// order.
	AdditionalSections []RenderedSection `json:"additionalSections,omitempty"`
}

// HasAdditionalSections reports whether the comment carries content
// beyond a plain summary, including list content inside the summary.
func (r Rendered) HasAdditionalSections() bool {
	return len(r.AdditionalSections) > 0 || (r.Summary != nil && r.Summary.ListStart >= 0)
}

// Render converts a block into its displayable section tree. Rendering
// is a pure function of the block's content: identical content always
// yields structurally identical output, so results may be cached.
// Malformed markup degrades to plain text and never fails.
func Render(block Block) Rendered {
	return RenderDocument(ParseBlock(block))
}

// RenderDocument renders an already-parsed document.
func RenderDocument(doc Document) Rendered {
	var r Rendered
	var params, others []RenderedSection
	for _, sec := range doc.Sections {
		rs := renderSection(sec)
		switch {
		case sec.Kind == SectionSummary && r.Summary == nil:
			r.Summary = &rs
		case sec.Kind == SectionParam || sec.Kind == SectionTypeParam:
			params = append(params, rs)
		default:
			others = append(others, rs)
		}
	}
	r.AdditionalSections = append(params, others...)
	return r
}

func renderSection(s Section) RenderedSection {
	rs := RenderedSection{Kind: s.Kind, Name: s.Name, ListStart: -1}
	for _, line := range s.Lines {
		if strings.TrimSpace(line) == "" {
			rs.Lines = append(rs.Lines, Line{Blank: true})
			continue
		}
		if rs.ListStart < 0 && isListLine(line) {
			rs.ListStart = len(rs.Lines)
		}
		rs.Lines = append(rs.Lines, Line{Segments: parseInlineLine(line)})
	}
	return rs
}

// isListLine reports whether the trimmed line begins bulleted or
// numbered list content.
func isListLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	switch t[0] {
	case '-', '*', '+':
		return len(t) > 1 && t[1] == ' '
	}
	if strings.HasPrefix(t, "• ") {
		return true
	}
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(t[i:], ". ")
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. Rendering never truncates; this serves single-line
// previews built by callers.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

var entities = [...][2]string{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
	{"&quot;", `"`},
	{"&apos;", "'"},
}

// parseInlineLine splits one line of section text into styled segments.
// The scan is flat: the outermost delimiter wins and its interior is
// kept verbatim. Anything unclosed or unrecognized stays literal text.
func parseInlineLine(line string) []Segment {
	if seg, ok := headingSegment(line); ok {
		return []Segment{seg}
	}

	var segs []Segment
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			segs = append(segs, Segment{Kind: SegmentText, Text: plain.String()})
			plain.Reset()
		}
	}
	emit := func(seg Segment) {
		flush()
		segs = append(segs, seg)
	}

	i := 0
	for i < len(line) {
		switch line[i] {
		case '<':
			if seg, next, ok := parseInlineTag(line, i); ok {
				flush()
				if seg != nil {
					segs = append(segs, *seg)
				}
				i = next
				continue
			}
		case '*':
			if strings.HasPrefix(line[i:], "**") {
				if inner, next, ok := spanUntil(line, i+2, "**"); ok && inner != "" {
					emit(Segment{Kind: SegmentBold, Text: inner})
					i = next
					continue
				}
			} else if i+1 < len(line) && line[i+1] != ' ' {
				if inner, next, ok := italicSpan(line, i+1); ok {
					emit(Segment{Kind: SegmentItalic, Text: inner})
					i = next
					continue
				}
			}
		case '`':
			if inner, next, ok := spanUntil(line, i+1, "`"); ok && inner != "" {
				emit(Segment{Kind: SegmentCode, Text: inner})
				i = next
				continue
			}
		case '~':
			if strings.HasPrefix(line[i:], "~~") {
				if inner, next, ok := spanUntil(line, i+2, "~~"); ok && inner != "" {
					emit(Segment{Kind: SegmentStrikethrough, Text: inner})
					i = next
					continue
				}
			}
		case '[':
			if text, target, next, ok := markdownLink(line, i); ok {
				emit(Segment{Kind: SegmentLink, Text: text, Target: target})
				i = next
				continue
			}
		case '&':
			if decoded, next, ok := decodeEntity(line, i); ok {
				plain.WriteString(decoded)
				i = next
				continue
			}
		}
		plain.WriteByte(line[i])
		i++
	}
	flush()
	return segs
}

// headingSegment matches a whole-line markdown heading: one to six '#'
// characters followed by a space.
func headingSegment(line string) (Segment, bool) {
	t := strings.TrimSpace(line)
	n := 0
	for n < len(t) && t[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(t) || t[n] != ' ' {
		return Segment{}, false
	}
	text := strings.TrimSpace(t[n:])
	if text == "" {
		return Segment{}, false
	}
	return Segment{Kind: SegmentHeading, Text: text, Level: n}, true
}

// parseInlineTag renders one markup tag starting at line[i]. A nil
// segment with ok true means the tag is consumed without output, as
// for paragraph markers. ok false leaves the text literal.
func parseInlineTag(line string, i int) (*Segment, int, bool) {
	tag, next, ok := scanXMLTag(line, i)
	if !ok {
		return nil, 0, false
	}

	switch tag.name {
	case "para", "br":
		return nil, next, true

	case "see", "a":
		if tag.closing {
			return nil, 0, false
		}
		target := tag.attrs["cref"]
		if target == "" {
			target = tag.attrs["href"]
		}
		if target == "" {
			return nil, 0, false
		}
		text := target
		if !tag.selfClosing {
			if inner, after, found := innerUntilClose(line, next, tag.name); found {
				if t := strings.TrimSpace(inner); t != "" {
					text = t
				}
				next = after
			}
		}
		return &Segment{Kind: SegmentLink, Text: text, Target: target}, next, true

	case "paramref", "typeparamref":
		if tag.closing {
			return nil, 0, false
		}
		text := tag.attrs["name"]
		if text == "" {
			return nil, 0, false
		}
		if !tag.selfClosing {
			if inner, after, found := innerUntilClose(line, next, tag.name); found {
				if t := strings.TrimSpace(inner); t != "" {
					text = t
				}
				next = after
			}
		}
		kind := SegmentParamRef
		if tag.name == "typeparamref" {
			kind = SegmentTypeParamRef
		}
		return &Segment{Kind: kind, Text: text}, next, true

	case "c", "code", "b", "strong", "i", "em":
		if tag.closing || tag.selfClosing {
			return nil, 0, false
		}
		inner, after, found := innerUntilClose(line, next, tag.name)
		if !found {
			return nil, 0, false
		}
		var kind SegmentKind
		switch tag.name {
		case "c", "code":
			kind = SegmentCode
		case "b", "strong":
			kind = SegmentBold
		default:
			kind = SegmentItalic
		}
		return &Segment{Kind: kind, Text: inner}, after, true
	}
	return nil, 0, false
}

// innerUntilClose returns the text between from and the close tag for
// name on the same line, with the offset past the close tag.
func innerUntilClose(line string, from int, name string) (string, int, bool) {
	closing := "</" + name + ">"
	idx := indexFold(line[from:], closing)
	if idx < 0 {
		return "", 0, false
	}
	return line[from : from+idx], from + idx + len(closing), true
}

func spanUntil(line string, from int, delim string) (string, int, bool) {
	idx := strings.Index(line[from:], delim)
	if idx < 0 {
		return "", 0, false
	}
	return line[from : from+idx], from + idx + len(delim), true
}

// italicSpan finds the closing '*' of an italic run: the next star
// whose preceding character is not a space.
func italicSpan(line string, from int) (string, int, bool) {
	for j := from; j < len(line); j++ {
		if line[j] == '*' && j > from && line[j-1] != ' ' {
			return line[from:j], j + 1, true
		}
	}
	return "", 0, false
}

func markdownLink(line string, i int) (text, target string, next int, ok bool) {
	cb := strings.IndexByte(line[i+1:], ']')
	if cb < 0 {
		return "", "", 0, false
	}
	tEnd := i + 1 + cb
	if tEnd+1 >= len(line) || line[tEnd+1] != '(' {
		return "", "", 0, false
	}
	pb := strings.IndexByte(line[tEnd+2:], ')')
	if pb < 0 {
		return "", "", 0, false
	}
	text = line[i+1 : tEnd]
	target = line[tEnd+2 : tEnd+2+pb]
	if text == "" || target == "" {
		return "", "", 0, false
	}
	return text, target, tEnd + 2 + pb + 1, true
}

func decodeEntity(line string, i int) (string, int, bool) {
	for _, e := range entities {
		if strings.HasPrefix(line[i:], e[0]) {
			return e[1], i + len(e[0]), true
		}
	}
	return "", 0, false
}
