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

// Package prompt asks the user for confirmation before commands modify
// or delete files. The survey-backed implementation prompts on the
// terminal; the mock implementation scripts answers for tests.
package prompt

// Confirmer asks the user a yes/no question before a destructive step.
type Confirmer interface {
	// Confirm asks the question and returns the user's answer.
	// Non-interactive sessions return an error instead of assuming one.
	Confirm(question string, def bool) (bool, error)

	// IsInteractive returns whether the confirmer can display prompts.
	IsInteractive() bool
}
