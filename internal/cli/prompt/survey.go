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
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// SurveyConfirmer implements Confirmer using the survey library.
type SurveyConfirmer struct {
	interactive bool
}

// NewSurveyConfirmer creates a new survey-based confirmer.
func NewSurveyConfirmer(interactive bool) *SurveyConfirmer {
	return &SurveyConfirmer{
		interactive: interactive,
	}
}

// Confirm asks a yes/no question using survey.Confirm.
func (sc *SurveyConfirmer) Confirm(question string, def bool) (bool, error) {
	if !sc.interactive {
		return false, fmt.Errorf("cannot prompt in non-interactive mode")
	}

	var result bool
	prompt := &survey.Confirm{
		Message: question,
		Default: def,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// IsInteractive returns whether the confirmer can display prompts.
func (sc *SurveyConfirmer) IsInteractive() bool {
	return sc.interactive
}
