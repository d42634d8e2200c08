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
	"strings"
	"unicode/utf8"
)

// DefaultMaxLineLength is the column limit used when ReflowOptions
// leaves MaxLineLength unset.
const DefaultMaxLineLength = 120

// ReflowOptions configures Reflow.
type ReflowOptions struct {
	// MaxLineLength is the column limit for output lines, counting
	// indentation and the comment token. Zero means
	// DefaultMaxLineLength; values below one are clamped to one.
	MaxLineLength int
	// CompactSummaries emits a comment consisting of just a short
	// tagged summary as a single open-text-close line.
	CompactSummaries bool
	// PreserveBlankLines keeps blank lines as paragraph breaks instead
	// of packing paragraphs together.
	PreserveBlankLines bool
}

// Reflow rewraps a line-style block's prose to the configured column
// limit and returns the replacement text, without a trailing newline,
// along with whether it differs from the block's source. Unchanged
// blocks, block-style comments, and empty blocks return ("", false).
//
// Words never split: a single word longer than the limit sits alone on
// its own line. Reflowing already-reflowed text at the same options is
// a fixed point. Sections keep document order; tagged summaries use
// open and close tags on their own lines, other tagged sections stay
// on one line when they fit and otherwise carry the tags inline with
// the first and last content lines. Bare prose stays bare.
func Reflow(block Block, opts ReflowOptions) (string, bool) {
	if !block.Style.IsLine() {
		return "", false
	}
	doc := ParseBlock(block)
	if len(doc.Sections) == 0 || doc.IsEmpty() {
		return "", false
	}

	limit := opts.MaxLineLength
	if limit == 0 {
		limit = DefaultMaxLineLength
	}
	if limit < 1 {
		limit = 1
	}

	e := &emitter{
		prefix: block.Indentation + block.Style.Token,
		limit:  limit,
		opts:   opts,
	}
	summaryOnly := doc.SummaryOnly()
	for _, sec := range doc.Sections {
		e.section(sec, summaryOnly)
	}

	out := strings.Join(e.lines, "\n")
	if out == block.Source {
		return "", false
	}
	return out, true
}

type emitter struct {
	prefix string
	limit  int
	opts   ReflowOptions
	lines  []string
}

func (e *emitter) bare() { e.lines = append(e.lines, e.prefix) }

func (e *emitter) content(s string) { e.lines = append(e.lines, e.prefix+" "+s) }

// budget is the rune count available to content after the prefix and
// its trailing space.
func (e *emitter) budget() int {
	b := e.limit - utf8.RuneCountInString(e.prefix) - 1
	if b < 1 {
		b = 1
	}
	return b
}

func (e *emitter) fits(content string) bool {
	return utf8.RuneCountInString(e.prefix)+1+utf8.RuneCountInString(content) <= e.limit
}

func (e *emitter) section(sec Section, summaryOnly bool) {
	if e.opts.PreserveBlankLines && sec.BlankBefore && len(e.lines) > 0 {
		e.bare()
	}
	paras := paragraphs(sec.Lines, e.opts.PreserveBlankLines)

	switch {
	case !sec.Tagged:
		e.prose(paras)
	case sec.Kind == SectionSummary:
		e.summary(sec, paras, summaryOnly)
	default:
		e.tagged(sec, paras)
	}
}

// prose wraps untagged paragraphs with no tag overhead.
func (e *emitter) prose(paras []paragraph) {
	for _, p := range paras {
		for n := 0; n < p.blanks; n++ {
			e.bare()
		}
		for _, line := range wrap(p.words, e.budget()) {
			e.content(line)
		}
	}
}

// summary emits a tagged summary with the open and close tags on their
// own lines, or as a single compact line when the whole comment is one
// short summary and compaction is on.
func (e *emitter) summary(sec Section, paras []paragraph, summaryOnly bool) {
	open, closing := sec.openTag(), sec.closeTag()
	if len(paras) == 0 {
		e.content(open + closing)
		return
	}
	if e.opts.CompactSummaries && summaryOnly && len(paras) == 1 {
		joined := strings.Join(paras[0].words, " ")
		if e.fits(open + joined + closing) {
			e.content(open + joined + closing)
			return
		}
	}
	e.content(open)
	e.prose(paras)
	e.content(closing)
}

// tagged emits a non-summary tagged section: a single line when it
// fits, otherwise the open tag rides the first content line and the
// close tag the last.
func (e *emitter) tagged(sec Section, paras []paragraph) {
	open, closing := sec.openTag(), sec.closeTag()
	if len(paras) == 0 {
		if sec.Kind == SectionSeeAlso {
			e.content(sec.selfClosingTag())
			return
		}
		e.content(open + closing)
		return
	}

	if len(paras) == 1 {
		joined := strings.Join(paras[0].words, " ")
		if e.fits(open + joined + closing) {
			e.content(open + joined + closing)
			return
		}
	}

	budget := e.budget()
	openLen := utf8.RuneCountInString(open)
	var all []string
	for pi, p := range paras {
		for n := 0; n < p.blanks; n++ {
			all = append(all, "")
		}
		first := budget
		if pi == 0 {
			first = max(1, budget-openLen)
		}
		all = append(all, wrapFirst(p.words, first, budget)...)
	}

	all[0] = open + all[0]
	last := len(all) - 1
	if utf8.RuneCountInString(all[last])+utf8.RuneCountInString(closing) <= budget {
		all[last] += closing
	} else {
		all = append(all, closing)
	}

	for _, line := range all {
		if line == "" {
			e.bare()
		} else {
			e.content(line)
		}
	}
}

// paragraph is one run of words to pack, preceded by a number of blank
// lines.
type paragraph struct {
	words  []string
	blanks int
}

// paragraphs splits section lines into word runs. When preserve is
// false, blank lines are dropped and everything merges into a single
// paragraph.
func paragraphs(lines []string, preserve bool) []paragraph {
	var out []paragraph
	blanks := 0
	var words []string
	flush := func() {
		if len(words) > 0 {
			out = append(out, paragraph{words: words, blanks: blanks})
			words = nil
			blanks = 0
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if preserve {
				flush()
				blanks++
			}
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	flush()
	return out
}

func wrap(words []string, budget int) []string {
	return wrapFirst(words, budget, budget)
}

// wrapFirst greedily packs words into lines, giving the first line its
// own budget. A word longer than its line's budget sits alone and is
// never split.
func wrapFirst(words []string, first, rest int) []string {
	if first < 1 {
		first = 1
	}
	if rest < 1 {
		rest = 1
	}
	var lines []string
	var cur strings.Builder
	curLen := 0
	budget := first
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if curLen > 0 && curLen+1+wl > budget {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
			budget = rest
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
