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

package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/commentary/internal/commands/shared"
	pkgerrors "github.com/tombee/commentary/pkg/errors"
)

const docSource = "/// <summary>\n" +
	"/// Parses the thing.\n" +
	"/// </summary>\n" +
	"/// <param name=\"text\">Input text.</param>\n" +
	"class Parser {\n" +
	"}\n"

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func executeRender(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	if cmd.Use != "render <file>" {
		t.Errorf("Use = %q", cmd.Use)
	}
}

func TestRenderSectionTree(t *testing.T) {
	path := writeSource(t, "parser.cs", docSource)

	out, err := executeRender(t, path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{
		"parser.cs:1 (triple-slash)",
		"Parses the thing.",
		"Parameter text",
		"  Input text.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBlockComment(t *testing.T) {
	path := writeSource(t, "widget.java", "/**\n * Builds widgets.\n */\nclass Widget {\n}\n")

	out, err := executeRender(t, path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "Builds widgets.") {
		t.Errorf("block comment not rendered:\n%s", out)
	}
	if !strings.Contains(out, "block-doc") {
		t.Errorf("style name missing:\n%s", out)
	}
}

func TestRenderNoComments(t *testing.T) {
	path := writeSource(t, "bare.cs", "class Bare {\n}\n")

	out, err := executeRender(t, path)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, "No doc comments found.") {
		t.Errorf("missing empty state, got %q", out)
	}
}

func TestRenderUnknownExtension(t *testing.T) {
	path := writeSource(t, "notes.txt", "hello\n")

	_, err := executeRender(t, path)

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitInvalidInput {
		t.Fatalf("expected invalid input exit, got %v", err)
	}
}

func TestRenderMissingFile(t *testing.T) {
	_, err := executeRender(t, filepath.Join(t.TempDir(), "absent.cs"))

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitFailure {
		t.Fatalf("expected failure exit, got %v", err)
	}
	var notFound *pkgerrors.NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "file" {
		t.Fatalf("expected a file not-found cause, got %v", err)
	}
}

func TestRenderDirectory(t *testing.T) {
	_, err := executeRender(t, t.TempDir())

	var exitErr *shared.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != shared.ExitInvalidInput {
		t.Fatalf("expected invalid input exit, got %v", err)
	}
}

func TestRenderJSONTree(t *testing.T) {
	path := writeSource(t, "parser.cs", docSource)

	_, _, jsonPtr, _, _ := shared.RegisterFlagPointers()
	*jsonPtr = true
	defer func() { *jsonPtr = false }()

	// JSON envelopes go to os.Stdout, not the command writer.
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	cmd := NewCommand()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{path})
	execErr := cmd.Execute()

	w.Close()
	os.Stdout = oldStdout
	var buf bytes.Buffer
	io.Copy(&buf, r)

	if execErr != nil {
		t.Fatalf("render failed: %v", execErr)
	}

	var resp struct {
		Command  string `json:"command"`
		Count    int    `json:"count"`
		Comments []struct {
			Line     int    `json:"line"`
			Style    string `json:"style"`
			Sections struct {
				Summary *struct {
					Kind int `json:"kind"`
				} `json:"summary"`
			} `json:"sections"`
		} `json:"comments"`
	}
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if resp.Command != "render" || resp.Count != 1 {
		t.Fatalf("envelope = %+v", resp)
	}
	c := resp.Comments[0]
	if c.Line != 1 || c.Style != "triple-slash" || c.Sections.Summary == nil {
		t.Errorf("comment = %+v", c)
	}
}
