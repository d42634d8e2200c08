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

import (
	"strings"
	"testing"
)

func TestMockConfirmer_ScriptedAnswers(t *testing.T) {
	mc := NewMockConfirmer(true, true, false)

	got, err := mc.Confirm("Rewrite src/a.cs?", false)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !got {
		t.Error("first answer should be true")
	}

	got, err = mc.Confirm("Rewrite src/b.cs?", true)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if got {
		t.Error("second answer should be false")
	}
}

func TestMockConfirmer_DefaultWhenExhausted(t *testing.T) {
	mc := NewMockConfirmer(true, true)

	if _, err := mc.Confirm("first?", false); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	got, err := mc.Confirm("second?", true)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !got {
		t.Error("exhausted script should fall back to the default")
	}
}

func TestMockConfirmer_NonInteractive(t *testing.T) {
	mc := NewMockConfirmer(false, true)

	_, err := mc.Confirm("Clear the cache?", false)
	if err == nil {
		t.Error("Confirm() in non-interactive mode should return error")
	}
	if !strings.Contains(err.Error(), "non-interactive") {
		t.Errorf("error should mention non-interactive mode, got: %v", err)
	}
	if mc.IsInteractive() {
		t.Error("IsInteractive() should be false")
	}
}

func TestMockConfirmer_CallLogAndReset(t *testing.T) {
	mc := NewMockConfirmer(true, true, true)

	mc.Confirm("Rewrite src/a.cs?", false)
	mc.Confirm("Clear the cache?", false)

	log := mc.GetCallLog()
	if len(log) != 2 {
		t.Fatalf("expected 2 logged calls, got %d", len(log))
	}
	if log[0] != "Rewrite src/a.cs?" {
		t.Errorf("first logged question = %q", log[0])
	}

	mc.Reset()
	if len(mc.GetCallLog()) != 0 {
		t.Error("Reset() should clear the call log")
	}

	// After reset the script plays from the start again
	got, err := mc.Confirm("Rewrite src/a.cs?", false)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !got {
		t.Error("Reset() should rewind the scripted answers")
	}
}
