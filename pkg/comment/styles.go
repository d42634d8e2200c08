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
	"fmt"
	"sort"
	"strings"
)

// Style describes how documentation comments are written in a source
// language. A style is either line-based (a fixed token repeated on every
// line, such as "///") or block-based (a start and end delimiter pair,
// such as "/**" and "*/"). Exactly one of the two families applies.
type Style struct {
	// Name identifies the style for logs and configuration.
	Name string

	// Token is the line-comment token, including any doc marker
	// (e.g. "///" or "'''"). Empty for block styles.
	Token string

	// BlockStart opens a block-style comment (e.g. "/**").
	// Empty for line styles.
	BlockStart string

	// BlockEnd closes a block-style comment (e.g. "*/").
	// Empty for line styles.
	BlockEnd string
}

// Built-in comment styles.
var (
	// StyleTripleSlash matches C-family documentation comments ("/// ...").
	StyleTripleSlash = Style{Name: "triple-slash", Token: "///"}

	// StyleTripleQuote matches Basic-family documentation comments ("''' ...").
	StyleTripleQuote = Style{Name: "triple-quote", Token: "'''"}

	// StyleBlockDoc matches block documentation comments ("/** ... */").
	StyleBlockDoc = Style{Name: "block-doc", BlockStart: "/**", BlockEnd: "*/"}
)

// IsLine reports whether the style is line-based.
func (s Style) IsLine() bool {
	return s.Token != ""
}

// IsBlock reports whether the style is block-based.
func (s Style) IsBlock() bool {
	return s.BlockStart != "" && s.BlockEnd != ""
}

// Validate checks that the style belongs to exactly one family and that
// its delimiters are usable.
func (s Style) Validate() error {
	switch {
	case s.IsLine() && s.IsBlock():
		return fmt.Errorf("style %q: token and block delimiters are mutually exclusive", s.Name)
	case !s.IsLine() && !s.IsBlock():
		return fmt.Errorf("style %q: either a token or block delimiters are required", s.Name)
	case s.IsLine() && strings.TrimSpace(s.Token) != s.Token:
		return fmt.Errorf("style %q: token must not contain surrounding whitespace", s.Name)
	case s.IsBlock() && strings.Contains(s.BlockStart, s.BlockEnd):
		return fmt.Errorf("style %q: block start must not contain the end delimiter", s.Name)
	}
	return nil
}

// extensionStyles maps lowercased file extensions to the styles that apply
// to files of that type, in scan precedence order.
var extensionStyles = map[string][]Style{
	".cs":   {StyleTripleSlash, StyleBlockDoc},
	".fs":   {StyleTripleSlash},
	".c":    {StyleTripleSlash, StyleBlockDoc},
	".h":    {StyleTripleSlash, StyleBlockDoc},
	".cc":   {StyleTripleSlash, StyleBlockDoc},
	".cpp":  {StyleTripleSlash, StyleBlockDoc},
	".hpp":  {StyleTripleSlash, StyleBlockDoc},
	".go":   {StyleTripleSlash},
	".java": {StyleBlockDoc, StyleTripleSlash},
	".js":   {StyleTripleSlash, StyleBlockDoc},
	".jsx":  {StyleTripleSlash, StyleBlockDoc},
	".ts":   {StyleTripleSlash, StyleBlockDoc},
	".tsx":  {StyleTripleSlash, StyleBlockDoc},
	".rs":   {StyleTripleSlash},
	".vb":   {StyleTripleQuote},
	".bas":  {StyleTripleQuote},
}

// StylesForExtension returns the comment styles that apply to files with
// the given extension (including the leading dot, matched
// case-insensitively). The bool result is false for unknown extensions.
func StylesForExtension(ext string) ([]Style, bool) {
	styles, ok := extensionStyles[strings.ToLower(ext)]
	return styles, ok
}

// Styles returns every built-in style.
func Styles() []Style {
	return []Style{StyleTripleSlash, StyleTripleQuote, StyleBlockDoc}
}

// DocExtensions returns the file extensions with built-in comment styles,
// sorted alphabetically.
func DocExtensions() []string {
	exts := make([]string, 0, len(extensionStyles))
	for ext := range extensionStyles {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
