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

package prompt

import "fmt"

// MockConfirmer implements Confirmer with scripted answers for testing.
// It allows tests to simulate user input without an interactive terminal.
type MockConfirmer struct {
	answers      []bool
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockConfirmer creates a new mock confirmer with pre-scripted answers.
func NewMockConfirmer(interactive bool, answers ...bool) *MockConfirmer {
	return &MockConfirmer{
		answers:     answers,
		interactive: interactive,
		callLog:     make([]string, 0),
	}
}

// Confirm returns the next scripted answer, or the default once the
// script runs out.
func (mc *MockConfirmer) Confirm(question string, def bool) (bool, error) {
	mc.callLog = append(mc.callLog, question)

	if !mc.interactive {
		return false, fmt.Errorf("cannot prompt in non-interactive mode")
	}

	if mc.currentIndex >= len(mc.answers) {
		return def, nil
	}

	answer := mc.answers[mc.currentIndex]
	mc.currentIndex++
	return answer, nil
}

// IsInteractive returns the configured interactive state.
func (mc *MockConfirmer) IsInteractive() bool {
	return mc.interactive
}

// GetCallLog returns the questions asked so far.
func (mc *MockConfirmer) GetCallLog() []string {
	return mc.callLog
}

// Reset clears the call log and rewinds the scripted answers.
func (mc *MockConfirmer) Reset() {
	mc.currentIndex = 0
	mc.callLog = make([]string, 0)
}
