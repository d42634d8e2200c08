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

package anchor

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	ownerPattern = regexp.MustCompile(`@([\w.-]+)`)
	issuePattern = regexp.MustCompile(`#(\d+)`)
)

// Scanner finds anchor keywords in source text. It is line-based and
// not lexically aware of the host language: a keyword after a comment
// introducer inside a string literal still matches. Build one with
// NewScanner and reuse it across files; it is safe for concurrent use.
type Scanner struct {
	re        *regexp.Regexp
	lowerTags []string
	types     map[string]Type
	canonical map[string]string
}

// NewScanner compiles a scanner for the config's keyword set. A
// keyword matches only directly after a comment introducer (//, /* or
// a quote run), optionally separated by whitespace and one prefix
// character, as a whole word. Optional parenthesized or bracketed
// metadata and a colon may follow before the message.
func NewScanner(cfg ScanConfig) *Scanner {
	tags := cfg.Tags
	if len(tags) == 0 {
		tags = DefaultTags
	}

	s := &Scanner{
		types:     make(map[string]Type),
		canonical: make(map[string]string),
	}
	var keep []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := s.types[key]; dup {
			continue
		}
		if bt, ok := builtinTypes[strings.ToUpper(tag)]; ok {
			s.types[key] = bt
		} else {
			s.types[key] = TypeCustom
			s.canonical[key] = tag
		}
		s.lowerTags = append(s.lowerTags, key)
		keep = append(keep, tag)
	}
	if len(keep) == 0 {
		return NewScanner(ScanConfig{Prefixes: cfg.Prefixes})
	}

	// Longest first so overlapping keywords resolve to the longer one.
	sort.Slice(keep, func(i, j int) bool {
		if len(keep[i]) != len(keep[j]) {
			return len(keep[i]) > len(keep[j])
		}
		return keep[i] < keep[j]
	})
	quoted := make([]string, len(keep))
	for i, tag := range keep {
		quoted[i] = regexp.QuoteMeta(tag)
	}

	prefix := ""
	if cfg.Prefixes != "" {
		prefix = "(?:[" + classEscape(cfg.Prefixes) + "])?"
	}
	s.re = regexp.MustCompile(
		`(?i)(//+|/\*+|'+)[ \t]*` + prefix +
			`(` + strings.Join(quoted, "|") + `)\b` +
			`(?:\(([^)\n]*)\)|\[([^\]\n]*)\])?` +
			`[ \t]*:?[ \t]*(.*)`,
	)
	return s
}

// Scan returns the anchors found in text, in document order. The file
// path and project label are carried onto each item verbatim. Scanning
// identical text yields identical results.
func (s *Scanner) Scan(text, filePath, project string) []Item {
	if !s.containsAnyTag(text) {
		return nil
	}
	matches := s.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	lineStarts := buildLineStarts(text)
	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		kwStart, kwEnd := m[4], m[5]
		typ, ok := s.types[strings.ToLower(text[kwStart:kwEnd])]
		if !ok {
			continue
		}
		lineIdx := sort.SearchInts(lineStarts, kwStart+1) - 1

		it := Item{
			Type:     typ,
			FilePath: filePath,
			Project:  project,
			Line:     lineIdx + 1,
			Column:   utf8.RuneCountInString(text[lineStarts[lineIdx]:kwStart]),
		}
		if typ == TypeCustom {
			it.CustomName = s.canonical[strings.ToLower(text[kwStart:kwEnd])]
		}

		meta, hasMeta := "", false
		if m[6] >= 0 {
			meta, hasMeta = text[m[6]:m[7]], true
		} else if m[8] >= 0 {
			meta, hasMeta = text[m[8]:m[9]], true
		}
		if hasMeta {
			it.RawMetadata = meta
			if om := ownerPattern.FindStringSubmatch(meta); om != nil {
				it.Owner = om[1]
			}
			if im := issuePattern.FindStringSubmatch(meta); im != nil {
				it.IssueRef = "#" + im[1]
			}
			if typ == TypeAnchor && it.Owner == "" && it.IssueRef == "" {
				it.AnchorID = strings.TrimSpace(meta)
			}
		}

		msg := strings.TrimSpace(text[m[10]:m[11]])
		msg = strings.TrimSpace(strings.TrimSuffix(msg, "*/"))
		it.Message = msg

		items = append(items, it)
	}
	return items
}

// Scan finds anchors with a one-off scanner built from cfg. Callers
// scanning many files should build a Scanner once instead.
func Scan(text, filePath, project string, cfg ScanConfig) []Item {
	return NewScanner(cfg).Scan(text, filePath, project)
}

// containsAnyTag is the cheap pre-check that skips the regex entirely
// for the common case of a file with no keywords at all.
func (s *Scanner) containsAnyTag(text string) bool {
	lower := strings.ToLower(text)
	for _, tag := range s.lowerTags {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func buildLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// classEscape escapes characters that are special inside a regexp
// character class.
func classEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`]^-\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
