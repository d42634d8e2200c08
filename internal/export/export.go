// Package export turns anchor listings into interchange formats: TSV and
// CSV for spreadsheets, Markdown tables for docs, and JSON for tooling,
// with optional jq transforms over the JSON form.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tombee/commentary/pkg/anchor"
)

// Format selects an export output format.
type Format string

const (
	FormatTSV      Format = "tsv"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat resolves a user-supplied format name. "md" is accepted as an
// alias for markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tsv":
		return FormatTSV, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (use tsv, csv, markdown, or json)", name)
}

// Columns is the tabular column order. Names match the keys of
// anchor.Item.Fields so filter expressions and export headers agree.
var Columns = []string{
	"type", "message", "file", "line", "column",
	"project", "owner", "issue", "anchorId", "metadata",
}

// Row flattens one item into column values in Columns order.
func Row(it anchor.Item) []string {
	return []string{
		it.TypeName(),
		it.Message,
		it.FilePath,
		strconv.Itoa(it.Line),
		strconv.Itoa(it.Column),
		it.Project,
		it.Owner,
		it.IssueRef,
		it.AnchorID,
		it.RawMetadata,
	}
}

// Write renders items to w in the given format. Tabular formats always emit
// the header row, so an empty listing still produces a well-formed document.
func Write(w io.Writer, format Format, items []anchor.Item) error {
	switch format {
	case FormatTSV:
		return writeSeparated(w, items, '\t')
	case FormatCSV:
		return writeSeparated(w, items, ',')
	case FormatMarkdown:
		return writeMarkdown(w, items)
	case FormatJSON:
		return writeJSON(w, items)
	}
	return fmt.Errorf("unknown export format %q", string(format))
}

func writeSeparated(w io.Writer, items []anchor.Item, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write(Row(it)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, items []anchor.Item) error {
	var b strings.Builder

	b.WriteString("| ")
	b.WriteString(strings.Join(Columns, " | "))
	b.WriteString(" |\n|")
	for range Columns {
		b.WriteString(" --- |")
	}
	b.WriteByte('\n')

	for _, it := range items {
		cells := Row(it)
		for i, cell := range cells {
			cells[i] = escapeMarkdownCell(cell)
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// escapeMarkdownCell keeps cell content on one table row: pipes are escaped
// and line breaks become spaces.
func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return s
}

// jsonItem is the export wire form of an anchor: display type name and the
// same keys tabular headers and filter expressions use. The compact numeric
// form stays private to the scan cache.
type jsonItem struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Project  string `json:"project,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Issue    string `json:"issue,omitempty"`
	AnchorID string `json:"anchorId,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

func toJSONItems(items []anchor.Item) []jsonItem {
	out := make([]jsonItem, 0, len(items))
	for _, it := range items {
		out = append(out, jsonItem{
			Type:     it.TypeName(),
			Message:  it.Message,
			File:     it.FilePath,
			Line:     it.Line,
			Column:   it.Column,
			Project:  it.Project,
			Owner:    it.Owner,
			Issue:    it.IssueRef,
			AnchorID: it.AnchorID,
			Metadata: it.RawMetadata,
		})
	}
	return out
}

func writeJSON(w io.Writer, items []anchor.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSONItems(items))
}

// JSONValue returns the items as generic JSON data in export wire form, the
// input jq transforms operate on.
func JSONValue(items []anchor.Item) (interface{}, error) {
	data, err := json.Marshal(toJSONItems(items))
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// WriteValue renders an arbitrary JSON value, as produced by a query
// transform, as indented JSON.
func WriteValue(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
