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

package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/commentary/internal/commands/shared"
)

const tsvHeader = "type\tmessage\tfile\tline\tcolumn\tproject\towner\tissue\tanchorId\tmetadata"

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app/main.cs": "// TODO: wire up logging\nclass Main {\n}\n// HACK(@ana #42): retry loop is temporary\n",
		"app/util.cs": "// NOTE: columns are rune offsets\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func executeExport(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	if cmd.Use != "export [path]" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"format", "output", "query", "filter", "no-cache"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing --%s flag", name)
		}
	}
}

func TestExportTSVDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != tsvHeader {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "TODO\twire up logging\t") {
		t.Errorf("missing TODO row in:\n%s", out)
	}
	if !strings.Contains(out, "\tana\t#42\t") {
		t.Errorf("missing owner and issue columns in:\n%s", out)
	}
}

func TestExportCSV(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache", "--format", "csv")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != "type,message,file,line,column,project,owner,issue,anchorId,metadata" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Errorf("expected header plus 3 rows, got %d lines", len(lines))
	}
}

func TestExportMarkdown(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache", "--format", "markdown")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.HasPrefix(out, "| type | message | file |") {
		t.Errorf("missing table header in:\n%s", out)
	}
	if !strings.Contains(out, "| --- |") {
		t.Errorf("missing separator row in:\n%s", out)
	}
	if !strings.Contains(out, "| TODO | wire up logging |") {
		t.Errorf("missing TODO row in:\n%s", out)
	}
}

func TestExportJSONFormat(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache", "--format", "json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var items []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	types := map[string]bool{}
	for _, it := range items {
		types[it["type"].(string)] = true
	}
	for _, want := range []string{"TODO", "HACK", "NOTE"} {
		if !types[want] {
			t.Errorf("missing type %s in %v", want, types)
		}
	}
}

func TestExportQuery(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache", "--query", "length")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "3" {
		t.Errorf("length query = %q, want 3", got)
	}

	out, _, err = executeExport(t, root, "--no-cache",
		"--query", `map(select(.type == "HACK")) | .[0].owner`)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != `"ana"` {
		t.Errorf("owner query = %q", got)
	}
}

func TestExportQueryRejectsTabularFormat(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	_, _, err := executeExport(t, root, "--query", ".", "--format", "csv")
	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitInvalidInput {
		t.Fatalf("expected invalid input exit, got %v", err)
	}
}

func TestExportInvalidFormat(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, _, err := executeExport(t, t.TempDir(), "--format", "xml")
	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitInvalidInput {
		t.Fatalf("expected invalid input exit, got %v", err)
	}
}

func TestExportInvalidQuery(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, _, err := executeExport(t, t.TempDir(), "--query", "((")
	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitInvalidInput {
		t.Fatalf("expected invalid input exit, got %v", err)
	}
}

func TestExportFilter(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)

	out, _, err := executeExport(t, root, "--no-cache", "--filter", `type == "NOTE"`)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "NOTE") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportEmptyTree(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, errOut, err := executeExport(t, t.TempDir())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should stay clean, got %q", out)
	}
	if !strings.Contains(errOut, "No anchors to export.") {
		t.Errorf("missing empty message, got %q", errOut)
	}
}

func TestExportToFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := writeTree(t)
	dest := filepath.Join(t.TempDir(), "anchors.tsv")

	out, _, err := executeExport(t, root, "--no-cache", "--output", dest)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), tsvHeader) {
		t.Errorf("file content = %q", data)
	}
	if !strings.Contains(out, "Exported 3 anchors to") {
		t.Errorf("missing confirmation, got %q", out)
	}
}
