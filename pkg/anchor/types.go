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

// Type identifies a recognized anchor keyword. Values are stable: the
// on-disk cache stores them numerically.
type Type int

const (
	TypeTodo   Type = 0
	TypeHack   Type = 1
	TypeNote   Type = 2
	TypeBug    Type = 3
	TypeFixme  Type = 4
	TypeUndone Type = 5
	TypeReview Type = 6
	TypeAnchor Type = 7
	TypeCustom Type = 8
)

func (t Type) String() string {
	switch t {
	case TypeTodo:
		return "TODO"
	case TypeHack:
		return "HACK"
	case TypeNote:
		return "NOTE"
	case TypeBug:
		return "BUG"
	case TypeFixme:
		return "FIXME"
	case TypeUndone:
		return "UNDONE"
	case TypeReview:
		return "REVIEW"
	case TypeAnchor:
		return "ANCHOR"
	}
	return "CUSTOM"
}

var builtinTypes = map[string]Type{
	"TODO":   TypeTodo,
	"HACK":   TypeHack,
	"NOTE":   TypeNote,
	"BUG":    TypeBug,
	"FIXME":  TypeFixme,
	"UNDONE": TypeUndone,
	"REVIEW": TypeReview,
	"ANCHOR": TypeAnchor,
}

// DefaultTags is the built-in keyword set used when a scan config lists
// no tags.
var DefaultTags = []string{"TODO", "HACK", "NOTE", "BUG", "FIXME", "UNDONE", "REVIEW", "ANCHOR"}

// Item is one discovered anchor occurrence. Metadata parsing is
// best-effort: absent fields stay empty, never an error.
type Item struct {
	Type Type `json:"type"`
	// CustomName is the configured keyword for TypeCustom anchors.
	CustomName string `json:"customName,omitempty"`
	FilePath   string `json:"filePath"`
	// Line is 1-based.
	Line int `json:"line"`
	// Column is the 0-based rune offset of the keyword within its line.
	Column int `json:"column"`
	// Project is an optional display label for the file's project.
	Project string `json:"project,omitempty"`
	// Message is the free text following the keyword.
	Message string `json:"message,omitempty"`
	// RawMetadata is the literal text inside the parenthesized or
	// bracketed annotation, when present.
	RawMetadata string `json:"rawMetadata,omitempty"`
	// Owner is the @name parsed from metadata, without the @.
	Owner string `json:"owner,omitempty"`
	// IssueRef is the #digits reference parsed from metadata, with the #.
	IssueRef string `json:"issueRef,omitempty"`
	// AnchorID is the free-form identifier of an ANCHOR tag whose
	// metadata carries no owner or issue reference.
	AnchorID string `json:"anchorId,omitempty"`
}

// TypeName returns the display keyword: the canonical built-in name, or
// the configured custom tag for TypeCustom.
func (i Item) TypeName() string {
	if i.Type == TypeCustom && i.CustomName != "" {
		return i.CustomName
	}
	return i.Type.String()
}

// Fields returns the item as a flat map keyed for filter expressions
// and export columns.
func (i Item) Fields() map[string]any {
	return map[string]any{
		"type":     i.TypeName(),
		"file":     i.FilePath,
		"line":     i.Line,
		"column":   i.Column,
		"project":  i.Project,
		"message":  i.Message,
		"metadata": i.RawMetadata,
		"owner":    i.Owner,
		"issue":    i.IssueRef,
		"anchorId": i.AnchorID,
	}
}

// ScanConfig controls which keywords a scan recognizes. The zero value
// scans for DefaultTags with no prefixes.
type ScanConfig struct {
	// Tags is the active keyword list, built-in names and custom tags
	// alike. Matching is case-insensitive; custom tags are reported
	// under the casing configured here. Empty means DefaultTags.
	Tags []string
	// Prefixes lists characters tolerated immediately before a keyword,
	// such as "@" to accept @TODO as TODO.
	Prefixes string
}
