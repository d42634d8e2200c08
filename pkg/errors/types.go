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

import (
	"fmt"
	"time"
)

// ValidationError represents user input validation failures.
// Use this for invalid flags, malformed comment styles, or constraint violations.
type ValidationError struct {
	// Field identifies which input failed validation (e.g., "max-line-length")
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements Classifier.
func (e *ValidationError) ErrorType() string {
	return "validation"
}

// UserSuggestion implements Suggester.
func (e *ValidationError) UserSuggestion() string {
	return e.Suggestion
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "file", "anchor", "cache")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements Classifier.
func (e *NotFoundError) ErrorType() string {
	return "not_found"
}

// ScanError represents a failure while reading or scanning a source file.
// Use this for errors surfaced by solution scans and single-file scans.
type ScanError struct {
	// Path is the file the failure occurred on
	Path string

	// Op names the failing step (e.g., "read", "decode", "walk")
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	op := e.Op
	if op == "" {
		op = "scan"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", op, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s %s failed", op, e.Path)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// ErrorType implements Classifier.
func (e *ScanError) ErrorType() string {
	return "scan"
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "reflow.max_line_length")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements Classifier.
func (e *ConfigError) ErrorType() string {
	return "config"
}

// TimeoutError represents operation timeouts.
// Use this when an operation exceeds its configured timeout.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "export query", "solution scan")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements Classifier.
func (e *TimeoutError) ErrorType() string {
	return "timeout"
}
