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

package shared

import (
	"errors"

	pkgerrors "github.com/tombee/commentary/pkg/errors"
)

// Error codes for structured JSON output
const (
	// Input errors
	ErrorCodeInvalidInput  = "invalid_input"  // Invalid flag or argument value
	ErrorCodeInvalidFilter = "invalid_filter" // Filter expression did not compile
	ErrorCodeInvalidQuery  = "invalid_query"  // Export query did not compile
	ErrorCodeInvalidFormat = "invalid_format" // Unknown export format

	// Resource errors
	ErrorCodeFileNotFound = "file_not_found" // Requested file does not exist
	ErrorCodeNotFound     = "not_found"      // Other resource does not exist

	// Operation errors
	ErrorCodeParseError  = "parse_error"  // Comment block could not be parsed
	ErrorCodeScanFailed  = "scan_failed"  // Scan could not complete
	ErrorCodeCacheError  = "cache_error"  // Cache read or write failed
	ErrorCodeWriteFailed = "write_failed" // File rewrite failed
	ErrorCodeConfigError = "config_error" // Configuration problem
	ErrorCodeTimeout     = "timeout"      // Operation exceeded its deadline
	ErrorCodeInternal    = "internal"     // Unclassified failure
)

// CodeForError maps an error to a JSON error code by its category.
// Errors that do not classify themselves map to ErrorCodeInternal.
func CodeForError(err error) string {
	var classifier pkgerrors.Classifier
	if !errors.As(err, &classifier) {
		return ErrorCodeInternal
	}

	switch classifier.ErrorType() {
	case "validation":
		return ErrorCodeInvalidInput
	case "not_found":
		return ErrorCodeNotFound
	case "scan":
		return ErrorCodeScanFailed
	case "config":
		return ErrorCodeConfigError
	case "timeout":
		return ErrorCodeTimeout
	default:
		return ErrorCodeInternal
	}
}
