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

// Span marks a half-open byte range [Start, End) within source text.
type Span struct {
	// Start is the byte offset where the block begins: the first
	// character of its first line (indentation included) for line
	// styles, or the start delimiter for block styles.
	Start int `json:"start"`

	// End is the byte offset one past the last character of the block:
	// the end of the last content line (trailing newline excluded) for
	// line styles, or one past the end delimiter for block styles.
	End int `json:"end"`
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Overlaps reports whether the span intersects the half-open range
// [start, end).
func (s Span) Overlaps(start, end int) bool {
	return s.Start < end && s.End > start
}

// Block is a single documentation comment extracted from source text.
// Replacing the text covered by Span with a rewritten rendition of
// RawContent (tokens and indentation restored) edits the comment in place.
type Block struct {
	// Style is the comment style the block was parsed with.
	Style Style `json:"style"`

	// StartLine and EndLine are 0-based inclusive line numbers.
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`

	// Span covers the block's full extent in the original text.
	Span Span `json:"span"`

	// Indentation is the exact leading whitespace shared by every line
	// of the block.
	Indentation string `json:"indentation"`

	// RawContent is the markup source with comment tokens and
	// indentation stripped, one element per physical line. A token line
	// with nothing after it contributes an empty element.
	RawContent []string `json:"rawContent"`

	// Source is the verbatim text covered by Span. Formatters compare
	// their output against it to decide whether anything changed.
	Source string `json:"-"`
}

// IsZero reports whether the block is the zero value.
func (b Block) IsZero() bool {
	return b.Style == Style{} && b.RawContent == nil
}

// LineCount returns the number of physical lines in the block.
func (b Block) LineCount() int {
	return b.EndLine - b.StartLine + 1
}

// Text returns the markup source as a single newline-joined string.
func (b Block) Text() string {
	return strings.Join(b.RawContent, "\n")
}
