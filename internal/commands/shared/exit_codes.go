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
	"fmt"
	"os"

	pkgerrors "github.com/tombee/commentary/pkg/errors"
)

// Exit codes for commentary commands
const (
	ExitSuccess        = 0
	ExitChangesNeeded  = 1  // fmt --check found comments that need rewrapping
	ExitFailure        = 2  // Runtime failure (scan error, I/O error, timeout)
	ExitInvalidInput   = 3  // Invalid flags, filter expressions, or config values
	ExitNonInteractive = 70 // Confirmation required in non-interactive mode (EX_SOFTWARE from sysexits.h)
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewFailureError creates an error for runtime command failures
func NewFailureError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an error for invalid flags or arguments
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewChangesNeededError creates the error fmt --check returns when
// files would be rewritten
func NewChangesNeededError(msg string) *ExitError {
	return &ExitError{
		Code:    ExitChangesNeeded,
		Message: msg,
	}
}

// NewNonInteractiveError creates an error for confirmations that cannot
// be answered in a non-interactive session
func NewNonInteractiveError(msg string) *ExitError {
	return &ExitError{
		Code:    ExitNonInteractive,
		Message: msg,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the
// appropriate code. An ExitError with an empty message and no cause
// exits silently; commands use that after emitting a structured JSON
// error themselves.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		printSuggestion(err)
		os.Exit(exitErr.Code)
	}

	// Default to generic failure
	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)
	os.Exit(ExitFailure)
}

// printSuggestion walks the error chain for a Suggester and prints its
// guidance when one is present.
func printSuggestion(err error) {
	var suggester pkgerrors.Suggester
	if !errors.As(err, &suggester) {
		return
	}
	if suggestion := suggester.UserSuggestion(); suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", suggestion)
	}
}
