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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_OwnerMetadata(t *testing.T) {
	items := Scan("// TODO(@mads): fix this", "main.cs", "App", ScanConfig{})

	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, TypeTodo, it.Type)
	assert.Equal(t, "TODO", it.TypeName())
	assert.Equal(t, "mads", it.Owner)
	assert.Equal(t, "@mads", it.RawMetadata)
	assert.Equal(t, "fix this", it.Message)
	assert.Empty(t, it.IssueRef)
	assert.Empty(t, it.AnchorID)
	assert.Equal(t, 1, it.Line)
	assert.Equal(t, 3, it.Column)
	assert.Equal(t, "main.cs", it.FilePath)
	assert.Equal(t, "App", it.Project)
}

func TestScanner_IssueMetadata(t *testing.T) {
	items := Scan("// FIXME[#482] handle null", "repo.cs", "Core", ScanConfig{})

	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, TypeFixme, it.Type)
	assert.Equal(t, "#482", it.IssueRef)
	assert.Equal(t, "#482", it.RawMetadata)
	assert.Equal(t, "handle null", it.Message)
	assert.Empty(t, it.Owner)
}

func TestScanner_AnchorID(t *testing.T) {
	items := Scan("// ANCHOR(login-flow)", "auth.cs", "Web", ScanConfig{})

	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, TypeAnchor, it.Type)
	assert.Equal(t, "login-flow", it.AnchorID)
	assert.Empty(t, it.Message)
	assert.Empty(t, it.Owner)
	assert.Empty(t, it.IssueRef)
}

func TestScanner_AnchorIDOnlyWithoutOwnerOrIssue(t *testing.T) {
	// An issue reference inside ANCHOR metadata wins over the id reading.
	items := Scan("// ANCHOR[#9] tracked", "a.cs", "App", ScanConfig{})
	require.Len(t, items, 1)
	assert.Equal(t, "#9", items[0].IssueRef)
	assert.Empty(t, items[0].AnchorID)

	// Non-ANCHOR types never produce an anchor id.
	items = Scan("// TODO(login-flow): x", "a.cs", "App", ScanConfig{})
	require.Len(t, items, 1)
	assert.Empty(t, items[0].AnchorID)
	assert.Equal(t, "login-flow", items[0].RawMetadata)
}

func TestScanner_CombinedMetadata(t *testing.T) {
	items := Scan("// TODO(@bob #12): both", "a.cs", "App", ScanConfig{})

	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].Owner)
	assert.Equal(t, "#12", items[0].IssueRef)
	assert.Equal(t, "@bob #12", items[0].RawMetadata)
	assert.Equal(t, "both", items[0].Message)
}

func TestScanner_DocumentOrder(t *testing.T) {
	text := strings.Join([]string{
		"using System;",
		"",
		"// TODO: first item",
		"int x = 1; // HACK(@ann): second",
		"/* BUG[#7] third */",
	}, "\n")

	items := Scan(text, "program.cs", "App", ScanConfig{})

	require.Len(t, items, 3)
	assert.Equal(t, TypeTodo, items[0].Type)
	assert.Equal(t, 3, items[0].Line)
	assert.Equal(t, 3, items[0].Column)
	assert.Equal(t, "first item", items[0].Message)

	assert.Equal(t, TypeHack, items[1].Type)
	assert.Equal(t, 4, items[1].Line)
	assert.Equal(t, 14, items[1].Column)
	assert.Equal(t, "ann", items[1].Owner)
	assert.Equal(t, "second", items[1].Message)

	assert.Equal(t, TypeBug, items[2].Type)
	assert.Equal(t, 5, items[2].Line)
	assert.Equal(t, "#7", items[2].IssueRef)
	assert.Equal(t, "third", items[2].Message)
}

func TestScanner_KeywordMustFollowCommentToken(t *testing.T) {
	assert.Empty(t, Scan("// see TODO later in the file", "a.cs", "App", ScanConfig{}))

	items := Scan("//TODO x", "a.cs", "App", ScanConfig{})
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Column)
	assert.Equal(t, "x", items[0].Message)
}

func TestScanner_WordBoundary(t *testing.T) {
	assert.Empty(t, Scan("// TODOS pile up here", "a.cs", "App", ScanConfig{}))
	assert.Empty(t, Scan("// NOTEBOOK export", "a.cs", "App", ScanConfig{}))
}

func TestScanner_CaseInsensitiveKeyword(t *testing.T) {
	items := Scan("// todo: lower case", "a.cs", "App", ScanConfig{})

	require.Len(t, items, 1)
	assert.Equal(t, TypeTodo, items[0].Type)
	assert.Equal(t, "TODO", items[0].TypeName())
	assert.Equal(t, "lower case", items[0].Message)
}

func TestScanner_BlockCommentStripsTerminator(t *testing.T) {
	items := Scan("/* HACK: tidy this up */", "a.cs", "App", ScanConfig{})

	require.Len(t, items, 1)
	assert.Equal(t, TypeHack, items[0].Type)
	assert.Equal(t, "tidy this up", items[0].Message)
}

func TestScanner_BlockInteriorLineHasNoToken(t *testing.T) {
	// The scanner is line-oriented: an anchor inside a multi-line block
	// comment is only found on lines that carry a comment token.
	text := "/*\n TODO: inside\n*/"
	assert.Empty(t, Scan(text, "a.cs", "App", ScanConfig{}))
}

func TestScanner_SingleQuoteComment(t *testing.T) {
	items := Scan("' NOTE check the form", "form.vb", "Forms", ScanConfig{})

	require.Len(t, items, 1)
	assert.Equal(t, TypeNote, items[0].Type)
	assert.Equal(t, "check the form", items[0].Message)
	assert.Equal(t, 2, items[0].Column)
}

func TestScanner_CustomTags(t *testing.T) {
	cfg := ScanConfig{Tags: []string{"TODO", "Wip"}}
	text := "// wip: polish animation\n// HACK: not configured"

	items := Scan(text, "ui.cs", "App", cfg)

	require.Len(t, items, 1)
	assert.Equal(t, TypeCustom, items[0].Type)
	assert.Equal(t, "Wip", items[0].CustomName)
	assert.Equal(t, "Wip", items[0].TypeName())
	assert.Equal(t, "polish animation", items[0].Message)
}

func TestScanner_Prefixes(t *testing.T) {
	cfg := ScanConfig{Prefixes: "@!"}

	items := Scan("// @TODO: at-prefixed", "a.cs", "App", cfg)
	require.Len(t, items, 1)
	assert.Equal(t, TypeTodo, items[0].Type)
	assert.Equal(t, 4, items[0].Column)
	assert.Equal(t, "at-prefixed", items[0].Message)

	items = Scan("// !FIXME broken", "a.cs", "App", cfg)
	require.Len(t, items, 1)
	assert.Equal(t, TypeFixme, items[0].Type)

	// Without configured prefixes the same line is not an anchor.
	assert.Empty(t, Scan("// @TODO: at-prefixed", "a.cs", "App", ScanConfig{}))
}

func TestScanner_ColonIsOptional(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"no colon", "// TODO fix", "fix"},
		{"colon space", "// TODO: fix", "fix"},
		{"colon tight", "// TODO:fix", "fix"},
		{"bare keyword", "// TODO", ""},
		{"bare colon", "// TODO:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Scan(tt.line, "a.cs", "App", ScanConfig{})
			require.Len(t, items, 1)
			assert.Equal(t, tt.want, items[0].Message)
		})
	}
}

func TestScanner_ColumnCountsRunes(t *testing.T) {
	items := Scan("var π = 3 // TODO: greek", "math.cs", "App", ScanConfig{})

	require.Len(t, items, 1)
	assert.Equal(t, 13, items[0].Column)
}

func TestScanner_CRLF(t *testing.T) {
	items := Scan("// TODO: one\r\n// HACK: two\r\n", "a.cs", "App", ScanConfig{})

	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Message)
	assert.Equal(t, 1, items[0].Line)
	assert.Equal(t, "two", items[1].Message)
	assert.Equal(t, 2, items[1].Line)
}

func TestScanner_NoTagText(t *testing.T) {
	assert.Empty(t, Scan("func main() {}\n", "main.go", "app", ScanConfig{}))
}

func TestScanner_Deterministic(t *testing.T) {
	s := NewScanner(ScanConfig{})
	text := "// TODO: a\n// BUG(@kim): b\n// ANCHOR(here)\n"

	first := s.Scan(text, "a.cs", "App")
	second := s.Scan(text, "a.cs", "App")

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
}

func TestItem_Fields(t *testing.T) {
	items := Scan("// TODO(@mads): fix this", "main.cs", "App", ScanConfig{})
	require.Len(t, items, 1)

	fields := items[0].Fields()
	assert.Equal(t, "TODO", fields["type"])
	assert.Equal(t, "main.cs", fields["file"])
	assert.Equal(t, 1, fields["line"])
	assert.Equal(t, "mads", fields["owner"])
	assert.Equal(t, "fix this", fields["message"])
	assert.Equal(t, "App", fields["project"])
}
