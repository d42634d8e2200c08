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

package errors

// Classifier defines errors that can name their own category.
// The CLI uses the category to pick machine-readable error codes for
// JSON output without switching on concrete types at every call site.
//
// All error types in this package implement Classifier.
type Classifier interface {
	error

	// ErrorType returns a stable identifier for the error category.
	// Examples: "validation", "not_found", "scan", "config", "timeout"
	ErrorType() string
}

// Suggester defines errors that carry actionable guidance alongside
// the failure itself. The CLI prints the suggestion below the error
// message when one is available.
type Suggester interface {
	error

	// UserSuggestion returns guidance for resolving the error.
	// Returns empty string if no suggestion is available.
	UserSuggestion() string
}

// Interface conformance checks.
var (
	_ Classifier = (*ValidationError)(nil)
	_ Classifier = (*NotFoundError)(nil)
	_ Classifier = (*ScanError)(nil)
	_ Classifier = (*ConfigError)(nil)
	_ Classifier = (*TimeoutError)(nil)

	_ Suggester = (*ValidationError)(nil)
)
