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

import "strings"

// SectionKind identifies one kind of documentation section.
type SectionKind int

const (
	SectionSummary SectionKind = iota
	SectionTypeParam
	SectionParam
	SectionReturns
	SectionValue
	SectionException
	SectionExample
	SectionRemarks
	SectionSeeAlso
)

var sectionKinds = map[string]SectionKind{
	"summary":   SectionSummary,
	"typeparam": SectionTypeParam,
	"param":     SectionParam,
	"returns":   SectionReturns,
	"value":     SectionValue,
	"exception": SectionException,
	"example":   SectionExample,
	"remarks":   SectionRemarks,
	"seealso":   SectionSeeAlso,
}

// inlineTags are markup tags that never open a section of their own;
// lines carrying them are ordinary prose.
var inlineTags = map[string]bool{
	"see": true, "c": true, "code": true, "paramref": true,
	"typeparamref": true, "b": true, "i": true, "u": true,
	"em": true, "strong": true, "a": true, "br": true, "para": true,
	"inheritdoc": true, "list": true, "item": true, "description": true,
	"term": true, "listheader": true,
}

// TagName returns the markup tag name for the kind.
func (k SectionKind) TagName() string {
	switch k {
	case SectionSummary:
		return "summary"
	case SectionTypeParam:
		return "typeparam"
	case SectionParam:
		return "param"
	case SectionReturns:
		return "returns"
	case SectionValue:
		return "value"
	case SectionException:
		return "exception"
	case SectionExample:
		return "example"
	case SectionRemarks:
		return "remarks"
	case SectionSeeAlso:
		return "seealso"
	}
	return "unknown"
}

func (k SectionKind) String() string { return k.TagName() }

// attrName returns the attribute carrying the section name, or "" for
// kinds without one.
func (k SectionKind) attrName() string {
	switch k {
	case SectionParam, SectionTypeParam:
		return "name"
	case SectionException, SectionSeeAlso:
		return "cref"
	}
	return ""
}

// Section is one logical documentation section extracted from a block's
// content: a summary, one parameter, the returns text, and so on.
type Section struct {
	Kind SectionKind
	// Name is the parameter or type-parameter name, or the exception or
	// see-also reference. Empty for kinds without a name.
	Name string
	// Lines is the section's content with tag markup removed, one
	// element per source line. An empty element is a paragraph break.
	Lines []string
	// Tagged records whether the section appeared with explicit tags
	// rather than as bare prose.
	Tagged bool
	// Compact records whether the section occupied a single source line
	// (open tag, content, and close tag together).
	Compact bool
	// BlankBefore records whether a blank line separated this section
	// from the preceding content.
	BlankBefore bool
}

// Text returns the section content joined with newlines.
func (s Section) Text() string { return strings.Join(s.Lines, "\n") }

// IsEmpty reports whether the section has no non-blank content.
func (s Section) IsEmpty() bool {
	for _, line := range s.Lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// openTag returns the section's opening markup tag, including the name
// attribute when the kind carries one.
func (s Section) openTag() string {
	if a := s.Kind.attrName(); a != "" && s.Name != "" {
		return "<" + s.Kind.TagName() + " " + a + `="` + s.Name + `">`
	}
	return "<" + s.Kind.TagName() + ">"
}

func (s Section) closeTag() string { return "</" + s.Kind.TagName() + ">" }

// selfClosingTag returns the single-tag form used for empty named
// sections such as see-also references.
func (s Section) selfClosingTag() string {
	if a := s.Kind.attrName(); a != "" && s.Name != "" {
		return "<" + s.Kind.TagName() + " " + a + `="` + s.Name + `"/>`
	}
	return "<" + s.Kind.TagName() + "/>"
}

// Document is the ordered sequence of sections parsed from one block.
type Document struct {
	Sections []Section
}

// Summary returns the document's summary section, if present.
func (d Document) Summary() (Section, bool) { return d.First(SectionSummary) }

// First returns the first section of the given kind.
func (d Document) First(kind SectionKind) (Section, bool) {
	for _, s := range d.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// Of returns every section of the given kind, in document order.
func (d Document) Of(kind SectionKind) []Section {
	var out []Section
	for _, s := range d.Sections {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// SummaryOnly reports whether the document consists of exactly one
// summary section.
func (d Document) SummaryOnly() bool {
	return len(d.Sections) == 1 && d.Sections[0].Kind == SectionSummary
}

// IsEmpty reports whether the document has no non-blank content.
func (d Document) IsEmpty() bool {
	for _, s := range d.Sections {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// ParseBlock parses the block's content into sections.
func ParseBlock(b Block) Document { return ParseSections(b.RawContent) }

// ParseSections parses token-stripped content lines into a Document.
//
// Prose before the first tag forms an untagged summary. Recognized tags
// open sections that run to their closing tag; a tag opened, filled,
// and closed on a single line yields a compact section. Single-valued
// kinds (summary, returns, value, example, remarks) merge repeated
// occurrences; exceptions merge per distinct reference; parameters and
// type parameters are kept per occurrence. Prose or unrecognized tags
// appearing outside any section after the summary fold into remarks.
// Parsing never fails: anything unrecognizable is kept as literal text.
func ParseSections(lines []string) Document {
	p := &sectionParser{}
	for _, line := range lines {
		p.feed(line)
	}
	p.finish()
	return Document{Sections: p.sections}
}

type sectionParser struct {
	sections    []Section
	open        *Section
	blankBefore bool
}

func (p *sectionParser) feed(line string) {
	trimmed := strings.TrimSpace(line)

	if p.open != nil && p.open.Tagged {
		closing := p.open.closeTag()
		if idx := indexFold(line, closing); idx >= 0 {
			before := strings.TrimRight(line[:idx], " \t")
			if strings.TrimSpace(before) != "" {
				p.open.Lines = append(p.open.Lines, before)
			}
			after := strings.TrimSpace(line[idx+len(closing):])
			p.closeOpen()
			if after != "" {
				p.feed(after)
			}
			return
		}
		// Interior lines keep leading whitespace so code keeps its shape.
		p.open.Lines = append(p.open.Lines, strings.TrimRight(line, " \t"))
		return
	}

	if trimmed == "" {
		if p.open != nil {
			p.open.Lines = append(p.open.Lines, "")
		} else if len(p.sections) > 0 {
			p.blankBefore = true
		}
		return
	}

	if tag, rest, ok := sectionTagLine(trimmed); ok {
		p.closeOpen()
		p.openSection(tag, rest)
		return
	}

	if p.open != nil {
		p.open.Lines = append(p.open.Lines, trimmed)
		return
	}

	kind := SectionSummary
	if len(p.sections) > 0 || startsWithUnknownTag(trimmed) {
		kind = SectionRemarks
	}
	p.open = &Section{
		Kind:        kind,
		Lines:       []string{trimmed},
		BlankBefore: p.takeBlank(),
	}
}

func (p *sectionParser) finish() { p.closeOpen() }

func (p *sectionParser) takeBlank() bool {
	b := p.blankBefore
	p.blankBefore = false
	return b
}

// openSection starts the section for an opening tag, handling the
// self-closing and single-line forms inline.
func (p *sectionParser) openSection(tag xmlTag, rest string) {
	kind := sectionKinds[tag.name]
	name := tag.attrs["name"]
	if kind == SectionException || kind == SectionSeeAlso {
		name = tag.attrs["cref"]
		if name == "" {
			name = tag.attrs["href"]
		}
	}

	sec := Section{
		Kind:        kind,
		Name:        name,
		Tagged:      true,
		BlankBefore: p.takeBlank(),
	}

	if tag.selfClosing {
		sec.Compact = true
		p.add(sec)
		return
	}

	if idx := indexFold(rest, sec.closeTag()); idx >= 0 {
		if content := strings.TrimSpace(rest[:idx]); content != "" {
			sec.Lines = []string{content}
		}
		sec.Compact = true
		p.add(sec)
		if after := strings.TrimSpace(rest[idx+len(sec.closeTag()):]); after != "" {
			p.feed(after)
		}
		return
	}

	if rest = strings.TrimSpace(rest); rest != "" {
		sec.Lines = []string{rest}
	}
	p.open = &sec
}

func (p *sectionParser) closeOpen() {
	if p.open == nil {
		return
	}
	s := *p.open
	p.open = nil

	trailing := 0
	for len(s.Lines) > 0 && s.Lines[len(s.Lines)-1] == "" {
		s.Lines = s.Lines[:len(s.Lines)-1]
		trailing++
	}
	for len(s.Lines) > 0 && s.Lines[0] == "" {
		s.Lines = s.Lines[1:]
	}

	p.add(s)
	if !s.Tagged && trailing > 0 {
		p.blankBefore = true
	}
}

// add appends the section, merging into an earlier occurrence for
// single-valued kinds and for exceptions sharing a reference.
func (p *sectionParser) add(s Section) {
	if i, ok := p.mergeTarget(s); ok {
		t := &p.sections[i]
		t.Lines = append(t.Lines, s.Lines...)
		t.Tagged = t.Tagged || s.Tagged
		t.Compact = t.Compact && s.Compact && len(t.Lines) <= 1
		return
	}
	p.sections = append(p.sections, s)
}

func (p *sectionParser) mergeTarget(s Section) (int, bool) {
	switch s.Kind {
	case SectionSummary, SectionReturns, SectionValue, SectionExample, SectionRemarks:
		for i := range p.sections {
			if p.sections[i].Kind == s.Kind {
				return i, true
			}
		}
	case SectionException:
		for i := range p.sections {
			if p.sections[i].Kind == SectionException && strings.EqualFold(p.sections[i].Name, s.Name) {
				return i, true
			}
		}
	}
	return 0, false
}

// sectionTagLine reports whether the line opens a known section tag,
// returning the tag and the text following it.
func sectionTagLine(line string) (xmlTag, string, bool) {
	tag, next, ok := scanXMLTag(line, 0)
	if !ok || tag.closing {
		return xmlTag{}, "", false
	}
	if _, known := sectionKinds[tag.name]; !known {
		return xmlTag{}, "", false
	}
	return tag, line[next:], true
}

// startsWithUnknownTag reports whether the line opens a tag that is
// neither a section tag nor known inline markup.
func startsWithUnknownTag(line string) bool {
	tag, _, ok := scanXMLTag(line, 0)
	if !ok || tag.closing {
		return false
	}
	if _, known := sectionKinds[tag.name]; known {
		return false
	}
	return !inlineTags[tag.name]
}

// xmlTag is one markup tag as written, attributes lowercased by key.
type xmlTag struct {
	name        string
	attrs       map[string]string
	closing     bool
	selfClosing bool
}

// scanXMLTag parses the tag beginning at s[start], which must be '<'.
// It returns the tag and the offset just past the closing '>'.
func scanXMLTag(s string, start int) (xmlTag, int, bool) {
	i := start
	if i >= len(s) || s[i] != '<' {
		return xmlTag{}, 0, false
	}
	i++
	var t xmlTag
	if i < len(s) && s[i] == '/' {
		t.closing = true
		i++
	}
	ns := i
	for i < len(s) && isTagNameChar(s[i]) {
		i++
	}
	if i == ns {
		return xmlTag{}, 0, false
	}
	t.name = strings.ToLower(s[ns:i])

	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			return xmlTag{}, 0, false
		}
		if s[i] == '>' {
			return t, i + 1, true
		}
		if s[i] == '/' && i+1 < len(s) && s[i+1] == '>' {
			t.selfClosing = true
			return t, i + 2, true
		}

		as := i
		for i < len(s) && isTagNameChar(s[i]) {
			i++
		}
		if i == as {
			return xmlTag{}, 0, false
		}
		attr := strings.ToLower(s[as:i])
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		val := ""
		if i < len(s) && s[i] == '=' {
			i++
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			if i < len(s) && (s[i] == '"' || s[i] == '\'') {
				q := s[i]
				i++
				vs := i
				for i < len(s) && s[i] != q {
					i++
				}
				if i >= len(s) {
					return xmlTag{}, 0, false
				}
				val = s[vs:i]
				i++
			} else {
				vs := i
				for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '>' && s[i] != '/' {
					i++
				}
				val = s[vs:i]
			}
		}
		if t.attrs == nil {
			t.attrs = map[string]string{}
		}
		t.attrs[attr] = val
	}
}

func isTagNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '-' || c == ':' || c == '_'
}

// indexFold returns the index of the first case-insensitive occurrence
// of substr in s, or -1.
func indexFold(s, substr string) int {
	if substr == "" {
		return 0
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}
