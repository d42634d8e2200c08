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

// FindAllBlocks scans text in a single pass and returns every
// documentation comment block of the given style, in document order.
//
// For line styles a block is a maximal run of consecutive lines whose
// first non-whitespace content is the style token, all sharing identical
// indentation. A blank line, a non-token line, or a change of indentation
// terminates the block. A token immediately followed by another copy of
// its final character (for example "////" for the "///" token) is treated
// as an ordinary comment, not a documentation line.
//
// For block styles the first occurrence of the start delimiter wins,
// nesting is not recognized, and an unterminated trailing delimiter
// yields no block.
//
// The scanner has no string-literal awareness: tokens inside literals
// are matched. An invalid style yields no blocks.
func FindAllBlocks(text string, style Style) []Block {
	if style.Validate() != nil {
		return nil
	}
	if style.IsLine() {
		return findLineBlocks(text, style)
	}
	return findBlockBlocks(text, style)
}

// BlockAt returns the block containing the given byte offset, if any.
func BlockAt(text string, offset int, style Style) (Block, bool) {
	for _, b := range FindAllBlocks(text, style) {
		if b.Span.Contains(offset) {
			return b, true
		}
		if b.Span.Start > offset {
			break
		}
	}
	return Block{}, false
}

// BlocksInRange returns the blocks overlapping the half-open byte range
// [start, end), in document order.
func BlocksInRange(text string, start, end int, style Style) []Block {
	var blocks []Block
	for _, b := range FindAllBlocks(text, style) {
		if b.Span.Start >= end {
			break
		}
		if b.Span.Overlaps(start, end) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func findLineBlocks(text string, style Style) []Block {
	var blocks []Block
	var cur *Block

	flush := func() {
		if cur != nil {
			cur.Source = text[cur.Span.Start:cur.Span.End]
			blocks = append(blocks, *cur)
			cur = nil
		}
	}

	token := style.Token
	repeat := token[len(token)-1]

	off := 0
	lineNo := 0
	for off <= len(text) {
		lineEnd := len(text)
		next := len(text) + 1
		if nl := strings.IndexByte(text[off:], '\n'); nl >= 0 {
			lineEnd = off + nl
			next = lineEnd + 1
		}

		line := strings.TrimSuffix(text[off:lineEnd], "\r")
		indent := leadingWhitespace(line)
		rest := line[len(indent):]

		switch {
		case isTokenLine(rest, token, repeat):
			raw := strings.TrimPrefix(rest[len(token):], " ")
			if cur != nil && indent == cur.Indentation {
				cur.EndLine = lineNo
				cur.Span.End = lineEnd
				cur.RawContent = append(cur.RawContent, raw)
			} else {
				flush()
				cur = &Block{
					Style:       style,
					StartLine:   lineNo,
					EndLine:     lineNo,
					Span:        Span{Start: off, End: lineEnd},
					Indentation: indent,
					RawContent:  []string{raw},
				}
			}
		default:
			flush()
		}

		off = next
		lineNo++
	}
	flush()
	return blocks
}

// isTokenLine reports whether a line (leading whitespace removed) is a
// documentation line for the token. Repeating the token's final
// character disqualifies the line.
func isTokenLine(rest, token string, repeat byte) bool {
	if !strings.HasPrefix(rest, token) {
		return false
	}
	return len(rest) == len(token) || rest[len(token)] != repeat
}

func findBlockBlocks(text string, style Style) []Block {
	var blocks []Block

	consumed := 0
	lineNo := 0
	searchFrom := 0
	for {
		i := strings.Index(text[searchFrom:], style.BlockStart)
		if i < 0 {
			break
		}
		start := searchFrom + i
		contentStart := start + len(style.BlockStart)

		j := strings.Index(text[contentStart:], style.BlockEnd)
		if j < 0 {
			// Unterminated tail: nothing more to extract.
			break
		}
		end := contentStart + j + len(style.BlockEnd)

		lineNo += strings.Count(text[consumed:start], "\n")
		consumed = start
		startLine := lineNo
		endLine := startLine + strings.Count(text[start:end], "\n")

		blocks = append(blocks, Block{
			Style:       style,
			StartLine:   startLine,
			EndLine:     endLine,
			Span:        Span{Start: start, End: end},
			Indentation: blockIndentation(text, start),
			RawContent:  stripBlockGutter(text[contentStart : contentStart+j]),
			Source:      text[start:end],
		})

		searchFrom = end
	}
	return blocks
}

// blockIndentation returns the leading whitespace of the line holding the
// start delimiter, or "" when the delimiter follows other content.
func blockIndentation(text string, start int) string {
	lineStart := start
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	prefix := text[lineStart:start]
	if leadingWhitespace(prefix) == prefix {
		return prefix
	}
	return ""
}

// stripBlockGutter removes per-line indentation, the conventional "*"
// gutter, and trailing whitespace from the interior of a block comment.
func stripBlockGutter(inner string) []string {
	lines := strings.Split(inner, "\n")
	content := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		line = line[len(leadingWhitespace(line)):]
		if strings.HasPrefix(line, "*") {
			line = strings.TrimPrefix(line[1:], " ")
		}
		content = append(content, strings.TrimRight(line, " \t"))
	}
	if len(content) > 1 && content[0] == "" {
		content = content[1:]
	}
	if len(content) > 1 && content[len(content)-1] == "" {
		content = content[:len(content)-1]
	}
	if len(content) == 0 {
		content = []string{""}
	}
	return content
}

func leadingWhitespace(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[:i]
		}
	}
	return s
}
