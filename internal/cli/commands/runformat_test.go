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

package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talismancer/seqexec/internal/recorder"
)

func TestCIStatusMapping(t *testing.T) {
	cases := []struct {
		run                recorder.Run
		status, conclusion string
	}{
		{recorder.Run{Status: recorder.RunRunning}, "in_progress", ""},
		{recorder.Run{Status: recorder.RunCompleted, ExitCode: 0}, "completed", "success"},
		{recorder.Run{Status: recorder.RunCompleted, ExitCode: 1}, "completed", "failure"},
		{recorder.Run{Status: recorder.RunStopped}, "completed", "cancelled"},
	}
	for _, c := range cases {
		status, conclusion := ciStatus(c.run)
		assert.Equal(t, c.status, status)
		assert.Equal(t, c.conclusion, conclusion)
	}
}

func TestToCIRunMapsFieldNames(t *testing.T) {
	run := recorder.Run{
		RunID:    "run-1",
		Status:   recorder.RunCompleted,
		ExitCode: 0,
		Branch:   "main",
		Commit:   "abc123",
		User:     "ada",
		Event:    "manual",
		Workflow: "sep",
	}
	ci := toCIRun(run)
	assert.Equal(t, "run-1", ci.DatabaseID)
	assert.Equal(t, "main", ci.HeadBranch)
	assert.Equal(t, "abc123", ci.HeadSHA)
	assert.Equal(t, "ada", ci.Actor.Login)
	assert.Equal(t, "success", ci.Conclusion)
}

func TestDotPathResolvesNestedField(t *testing.T) {
	rec := map[string]any{
		"status": "completed",
		"actor":  map[string]any{"login": "ada"},
	}
	val, ok := dotPath(rec, ".actor.login")
	assert.True(t, ok)
	assert.Equal(t, "ada", val)

	_, ok = dotPath(rec, ".missing.field")
	assert.False(t, ok)
}

func TestToFieldMapFiltersRequestedKeys(t *testing.T) {
	m, err := toFieldMap(toCIRun(recorder.Run{RunID: "run-2", Branch: "dev"}), "databaseId,headBranch")
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"databaseId": "run-2", "headBranch": "dev"}, m)
}
