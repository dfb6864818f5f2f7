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

package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJobLifecycle(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	runID, err := r.StartRun(Context{ProjectRoot: "/proj", Branch: "main", User: "ci"}, now)
	require.NoError(t, err)

	jobID, err := r.StartJob(runID, []string{"ruff", "check", "a.py"}, now.Add(time.Second))
	require.NoError(t, err)

	require.NoError(t, r.FinishJob(runID, jobID, 0, filepath.Join(t.TempDir(), "nonexistent.log"), now.Add(2*time.Second)))
	require.NoError(t, r.FinishRun(runID, 0, RunCompleted, now.Add(3*time.Second)))

	run, jobs, err := r.ViewRun(runID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 0, run.ExitCode)
	assert.Equal(t, int64(3), run.Duration())
	require.Len(t, jobs, 1)
	assert.Equal(t, JobCompleted, jobs[0].Status)
	assert.Equal(t, []string{"ruff", "check", "a.py"}, jobs[0].Vector)
}

func TestPytestSummaryExtraction(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Unix(1_700_000_100, 0)
	runID, err := r.StartRun(Context{}, now)
	require.NoError(t, err)
	jobID, err := r.StartJob(runID, []string{"uv", "run", "pytest", "t.py"}, now)
	require.NoError(t, err)

	logPath := filepath.Join(t.TempDir(), "job.log")
	require.NoError(t, os.WriteFile(logPath, []byte("FAILED t.py::test_two\n===== 1 failed, 1 passed in 0.02s =====\n"), 0644))

	require.NoError(t, r.FinishJob(runID, jobID, 1, logPath, now.Add(time.Second)))

	job, err := r.ViewJob(runID, jobID)
	require.NoError(t, err)
	require.NotNil(t, job.Pytest)
	assert.Equal(t, 1, job.Pytest.Failed)
	assert.Equal(t, 1, job.Pytest.Passed)
	assert.Equal(t, []string{"t.py::test_two"}, job.Pytest.FailedTests)
}

func TestListFiltersAndOrdersDescending(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	base := time.Unix(1_700_001_000, 0)
	idOld, err := r.StartRun(Context{Branch: "main"}, base)
	require.NoError(t, err)
	require.NoError(t, r.FinishRun(idOld, 0, RunCompleted, base.Add(time.Second)))

	idNew, err := r.StartRun(Context{Branch: "feature"}, base.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.FinishRun(idNew, 1, RunCompleted, base.Add(time.Hour+time.Second)))

	all, err := r.List(Filter{All: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, idNew, all[0].RunID, "list must be most-recent-first")

	filtered, err := r.List(Filter{Branch: "main"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, idOld, filtered[0].RunID)
}

func TestListFiltersByCreatedDate(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	day1 := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)

	idDay1, err := r.StartRun(Context{Branch: "main"}, day1)
	require.NoError(t, err)
	require.NoError(t, r.FinishRun(idDay1, 0, RunCompleted, day1.Add(time.Second)))

	idDay2, err := r.StartRun(Context{Branch: "main"}, day2)
	require.NoError(t, err)
	require.NoError(t, r.FinishRun(idDay2, 0, RunCompleted, day2.Add(time.Second)))

	exact, err := r.List(Filter{Created: "2026-07-01"})
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, idDay1, exact[0].RunID)

	after, err := r.List(Filter{Created: ">2026-07-10"})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, idDay2, after[0].RunID)

	ranged, err := r.List(Filter{Created: "2026-07-01..2026-07-15"})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	none, err := r.List(Filter{Created: "2026-06-01"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListDeepCopyDoesNotLeakMutation(t *testing.T) {
	r, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Unix(1_700_002_000, 0)
	runID, err := r.StartRun(Context{Branch: "main"}, now)
	require.NoError(t, err)
	require.NoError(t, r.FinishRun(runID, 0, RunCompleted, now.Add(time.Second)))

	runs, err := r.List(Filter{All: true})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	runs[0].Branch = "corrupted"

	again, err := r.List(Filter{All: true})
	require.NoError(t, err)
	assert.Equal(t, "main", again[0].Branch)
}
