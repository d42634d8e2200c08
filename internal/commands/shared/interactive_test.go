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
	"os"
	"testing"
)

// clearSessionEnv unsets every variable IsNonInteractive consults and
// restores the original values when the test finishes.
func clearSessionEnv(t *testing.T) {
	t.Helper()
	vars := append([]string{"COMMENTARY_NON_INTERACTIVE"}, ciEnvVars...)
	for _, key := range vars {
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, value) })
			os.Unsetenv(key)
		}
	}
}

func TestIsNonInteractive(t *testing.T) {
	// Only env-driven cases: the fully interactive outcome depends on
	// stdin being a real TTY, which test runners rarely provide.
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name: "COMMENTARY_NON_INTERACTIVE=true",
			envVars: map[string]string{
				"COMMENTARY_NON_INTERACTIVE": "true",
			},
		},
		{
			name: "CI=true",
			envVars: map[string]string{
				"CI": "true",
			},
		},
		{
			name: "CI=1",
			envVars: map[string]string{
				"CI": "1",
			},
		},
		{
			name: "GITHUB_ACTIONS=true",
			envVars: map[string]string{
				"GITHUB_ACTIONS": "true",
			},
		},
		{
			name: "JENKINS_HOME set to path",
			envVars: map[string]string{
				"JENKINS_HOME": "/var/jenkins",
			},
		},
		{
			name: "multiple CI vars set",
			envVars: map[string]string{
				"CI":             "true",
				"GITHUB_ACTIONS": "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSessionEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			if !IsNonInteractive() {
				t.Error("IsNonInteractive() = false, expected true")
			}
		})
	}
}

func TestIsCIEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected bool
	}{
		{
			name:     "no CI vars",
			envVars:  map[string]string{},
			expected: false,
		},
		{
			name: "CI=true",
			envVars: map[string]string{
				"CI": "true",
			},
			expected: true,
		},
		{
			name: "CI=1",
			envVars: map[string]string{
				"CI": "1",
			},
			expected: true,
		},
		{
			name: "CI=false",
			envVars: map[string]string{
				"CI": "false",
			},
			expected: false,
		},
		{
			name: "GITLAB_CI=true",
			envVars: map[string]string{
				"GITLAB_CI": "true",
			},
			expected: true,
		},
		{
			name: "CIRCLECI=true",
			envVars: map[string]string{
				"CIRCLECI": "true",
			},
			expected: true,
		},
		{
			name: "JENKINS_HOME set",
			envVars: map[string]string{
				"JENKINS_HOME": "/var/jenkins",
			},
			expected: true,
		},
		{
			name: "JENKINS_HOME empty",
			envVars: map[string]string{
				"JENKINS_HOME": "",
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSessionEnv(t)
			for key, value := range tt.envVars {
				if value == "" {
					continue
				}
				t.Setenv(key, value)
			}

			if got := isCIEnvironment(); got != tt.expected {
				t.Errorf("isCIEnvironment() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
