// Copyright 2026 The Sequential Execution Pipeline Authors.
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

package cli

import "testing"

func TestIsKnownVerbRecognizesRegisteredCommands(t *testing.T) {
	for _, verb := range []string{"submit", "queue-start", "queue-status", "run"} {
		if !isKnownVerb(verb) {
			t.Errorf("expected %q to be a known verb", verb)
		}
	}
}

func TestIsKnownVerbRejectsArbitraryCommandNames(t *testing.T) {
	for _, verb := range []string{"pytest", "npm", "ruff", "make"} {
		if isKnownVerb(verb) {
			t.Errorf("expected %q to be treated as a submission vector, not a verb", verb)
		}
	}
}
