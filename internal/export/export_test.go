package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tombee/commentary/pkg/anchor"
)

func exportFixture() []anchor.Item {
	return []anchor.Item{
		{
			Type:        anchor.TypeTodo,
			FilePath:    "src/Services/OrderService.cs",
			Line:        41,
			Column:      8,
			Project:     "Services",
			Message:     "retry on transient failures",
			RawMetadata: "@mads, #482",
			Owner:       "mads",
			IssueRef:    "#482",
		},
		{
			Type:       anchor.TypeCustom,
			CustomName: "WIP",
			FilePath:   "lib/util.ts",
			Line:       7,
			Column:     3,
			Project:    "lib",
			Message:    "split a|b cases\nacross helpers",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "tsv", input: "tsv", want: FormatTSV},
		{name: "uppercase csv", input: "CSV", want: FormatCSV},
		{name: "markdown", input: "markdown", want: FormatMarkdown},
		{name: "md alias", input: "md", want: FormatMarkdown},
		{name: "json with spaces", input: " json ", want: FormatJSON},
		{name: "unknown", input: "xml", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRow_ColumnOrder(t *testing.T) {
	row := Row(exportFixture()[0])
	if len(row) != len(Columns) {
		t.Fatalf("row has %d cells, want %d", len(row), len(Columns))
	}

	want := map[string]string{
		"type":    "TODO",
		"message": "retry on transient failures",
		"file":    "src/Services/OrderService.cs",
		"line":    "41",
		"column":  "8",
		"owner":   "mads",
		"issue":   "#482",
	}
	for i, col := range Columns {
		if expected, ok := want[col]; ok && row[i] != expected {
			t.Errorf("column %q = %q, want %q", col, row[i], expected)
		}
	}
}

func TestRow_CustomTypeName(t *testing.T) {
	row := Row(exportFixture()[1])
	if row[0] != "WIP" {
		t.Errorf("custom anchor type cell = %q, want %q", row[0], "WIP")
	}
}

func TestWrite_TSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTSV, exportFixture()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows)", len(lines))
	}

	header := strings.Split(lines[0], "\t")
	if len(header) != len(Columns) {
		t.Fatalf("header has %d columns, want %d", len(header), len(Columns))
	}
	if header[0] != "type" || header[2] != "file" {
		t.Errorf("header = %v, want columns order %v", header, Columns)
	}

	first := strings.Split(lines[1], "\t")
	if first[0] != "TODO" {
		t.Errorf("first row type = %q, want TODO", first[0])
	}
	if first[3] != "41" {
		t.Errorf("first row line = %q, want 41", first[3])
	}
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, exportFixture()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0][0] != "type" {
		t.Errorf("header[0] = %q, want type", records[0][0])
	}
	// Embedded newline survives CSV quoting.
	if !strings.Contains(records[2][1], "\n") {
		t.Errorf("multiline message lost in CSV round-trip: %q", records[2][1])
	}
}

func TestWrite_Markdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatMarkdown, exportFixture()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4 (header + separator + 2 rows)", len(lines))
	}

	if !strings.HasPrefix(lines[0], "| type | message |") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("separator = %q, want --- cells", lines[1])
	}
	// Pipes inside cells must be escaped, newlines flattened.
	if !strings.Contains(out, `split a\|b cases across helpers`) {
		t.Errorf("markdown cell not escaped: %q", lines[3])
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, exportFixture()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d items, want 2", len(decoded))
	}
	if decoded[0]["type"] != "TODO" {
		t.Errorf("type = %v, want TODO", decoded[0]["type"])
	}
	if decoded[0]["owner"] != "mads" {
		t.Errorf("owner = %v, want mads", decoded[0]["owner"])
	}
	// Custom anchors export under their configured keyword.
	if decoded[1]["type"] != "WIP" {
		t.Errorf("type = %v, want WIP", decoded[1]["type"])
	}
	// Empty optional fields are omitted from the wire form.
	if _, ok := decoded[1]["owner"]; ok {
		t.Error("empty owner should be omitted")
	}
}

func TestWrite_EmptyListing(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTSV, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("empty listing: got %d lines, want header only", len(lines))
	}

	buf.Reset()
	if err := Write(&buf, FormatJSON, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON export = %q, want []", strings.TrimSpace(buf.String()))
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Format("xml"), exportFixture()); err == nil {
		t.Fatal("Write with unknown format should fail")
	}
}

func TestJSONValue_QueryPipeline(t *testing.T) {
	v, err := JSONValue(exportFixture())
	if err != nil {
		t.Fatalf("JSONValue failed: %v", err)
	}

	executor := NewQueryExecutor(0, 0)
	got, err := executor.Execute(context.Background(), `[.[] | select(.type == "TODO")] | length`, v)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	switch n := got.(type) {
	case int:
		if n != 1 {
			t.Errorf("query result = %d, want 1", n)
		}
	case float64:
		if n != 1 {
			t.Errorf("query result = %v, want 1", n)
		}
	default:
		t.Fatalf("unexpected result type %T", got)
	}
}

func TestWriteValue(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteValue(&buf, []interface{}{"TODO", "HACK"}); err != nil {
		t.Fatalf("WriteValue failed: %v", err)
	}

	var decoded []string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != "TODO" {
		t.Errorf("decoded = %v", decoded)
	}
}
