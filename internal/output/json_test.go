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

package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"
)

func captureStdout(t *testing.T, fn func() error) []byte {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)

	if fnErr != nil {
		t.Fatalf("emit failed: %v", fnErr)
	}
	return buf.Bytes()
}

// TestNewResponse verifies the success envelope structure.
func TestNewResponse(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{name: "scan command", command: "scan"},
		{name: "fmt command", command: "fmt"},
		{name: "export command", command: "export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(tt.command)

			if resp.Version != SchemaVersion {
				t.Errorf("version = %q, want %q", resp.Version, SchemaVersion)
			}
			if resp.Command != tt.command {
				t.Errorf("command = %q, want %q", resp.Command, tt.command)
			}
			if !resp.Success {
				t.Error("success should be true for NewResponse")
			}

			data, err := json.Marshal(resp)
			if err != nil {
				t.Fatalf("failed to marshal JSONResponse: %v", err)
			}

			// Envelope keys must be present under their wire names.
			var raw map[string]interface{}
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("failed to unmarshal to map: %v", err)
			}
			for _, field := range []string{"@version", "command", "success"} {
				if _, ok := raw[field]; !ok {
					t.Errorf("required field %q missing from JSON output", field)
				}
			}
		})
	}
}

// TestEmitJSON verifies a command response round-trips through stdout.
func TestEmitJSON(t *testing.T) {
	type scanResponse struct {
		JSONResponse
		Files   int `json:"files"`
		Anchors int `json:"anchors"`
	}

	data := scanResponse{
		JSONResponse: NewResponse("scan"),
		Files:        12,
		Anchors:      34,
	}

	out := captureStdout(t, func() error {
		return EmitJSON(data)
	})

	var decoded scanResponse
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("failed to unmarshal emitted JSON: %v", err)
	}

	if decoded.Version != SchemaVersion {
		t.Errorf("version = %q, want %q", decoded.Version, SchemaVersion)
	}
	if decoded.Command != "scan" {
		t.Errorf("command = %q, want %q", decoded.Command, "scan")
	}
	if !decoded.Success {
		t.Error("success = false, want true")
	}
	if decoded.Files != 12 {
		t.Errorf("files = %d, want 12", decoded.Files)
	}
	if decoded.Anchors != 34 {
		t.Errorf("anchors = %d, want 34", decoded.Anchors)
	}
}

// TestEmitJSONError verifies the error envelope structure.
func TestEmitJSONError(t *testing.T) {
	tests := []struct {
		name    string
		command string
		errors  []JSONError
	}{
		{
			name:    "single error without location",
			command: "scan",
			errors: []JSONError{
				{
					Code:       "file_not_found",
					Message:    "failed to read directory: no such file or directory",
					Suggestion: "Check that the path is correct and the directory exists",
				},
			},
		},
		{
			name:    "error with file location",
			command: "fmt",
			errors: []JSONError{
				{
					Code:    "parse_error",
					Message: "unterminated block comment",
					Location: &JSONLocation{
						File:   "src/Models/Order.cs",
						Line:   42,
						Column: 5,
					},
					Suggestion: "Close the comment with */",
				},
			},
		},
		{
			name:    "multiple errors",
			command: "export",
			errors: []JSONError{
				{
					Code:       "invalid_query",
					Message:    "jq query compile failed",
					Suggestion: "Check the query syntax",
				},
				{
					Code:       "invalid_format",
					Message:    "unknown export format \"xml\"",
					Suggestion: "Use one of: tsv, csv, markdown, json",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t, func() error {
				return EmitJSONError(tt.command, tt.errors)
			})

			var response struct {
				JSONResponse
				Errors []JSONError `json:"errors"`
			}
			if err := json.Unmarshal(out, &response); err != nil {
				t.Fatalf("failed to unmarshal error response: %v", err)
			}

			if response.Version != SchemaVersion {
				t.Errorf("version = %q, want %q", response.Version, SchemaVersion)
			}
			if response.Command != tt.command {
				t.Errorf("command = %q, want %q", response.Command, tt.command)
			}
			if response.Success {
				t.Error("success should be false for error response")
			}

			if len(response.Errors) != len(tt.errors) {
				t.Fatalf("errors count = %d, want %d", len(response.Errors), len(tt.errors))
			}
			for i, err := range response.Errors {
				if err.Code != tt.errors[i].Code {
					t.Errorf("error[%d].code = %q, want %q", i, err.Code, tt.errors[i].Code)
				}
				if err.Message != tt.errors[i].Message {
					t.Errorf("error[%d].message = %q, want %q", i, err.Message, tt.errors[i].Message)
				}
				if err.Suggestion != tt.errors[i].Suggestion {
					t.Errorf("error[%d].suggestion = %q, want %q", i, err.Suggestion, tt.errors[i].Suggestion)
				}
			}
		})
	}
}

// TestJSONLocationOptional verifies Location field is optional.
func TestJSONLocationOptional(t *testing.T) {
	err1 := JSONError{
		Code:    "scan_error",
		Message: "file skipped",
	}

	data, marshalErr := json.Marshal(err1)
	if marshalErr != nil {
		t.Fatalf("failed to marshal error without location: %v", marshalErr)
	}
	if bytes.Contains(data, []byte("location")) {
		t.Error("location key should be omitted when nil")
	}

	var decoded JSONError
	if unmarshalErr := json.Unmarshal(data, &decoded); unmarshalErr != nil {
		t.Fatalf("failed to unmarshal error without location: %v", unmarshalErr)
	}
	if decoded.Location != nil {
		t.Error("location should be nil for error without location")
	}

	err2 := JSONError{
		Code:    "parse_error",
		Message: "bad comment block",
		Location: &JSONLocation{
			File:   "lib/util.ts",
			Line:   10,
			Column: 5,
		},
	}

	data2, marshalErr2 := json.Marshal(err2)
	if marshalErr2 != nil {
		t.Fatalf("failed to marshal error with location: %v", marshalErr2)
	}

	var decoded2 JSONError
	if unmarshalErr2 := json.Unmarshal(data2, &decoded2); unmarshalErr2 != nil {
		t.Fatalf("failed to unmarshal error with location: %v", unmarshalErr2)
	}

	if decoded2.Location == nil {
		t.Fatal("location should not be nil for error with location")
	}
	if decoded2.Location.File != "lib/util.ts" {
		t.Errorf("location.file = %q, want %q", decoded2.Location.File, "lib/util.ts")
	}
	if decoded2.Location.Line != 10 {
		t.Errorf("location.line = %d, want 10", decoded2.Location.Line)
	}
	if decoded2.Location.Column != 5 {
		t.Errorf("location.column = %d, want 5", decoded2.Location.Column)
	}
}
