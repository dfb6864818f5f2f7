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
	"strings"
	"time"
)

// Filter narrows List's results (spec.md §4.7 "read-model functions
// (list, view, watch) are pure functions over the Recorder's directory
// tree").
type Filter struct {
	Limit    int
	Status   RunStatus
	Branch   string
	Workflow string
	User     string
	Commit   string
	Event    string
	Created  string // run list --created DATE, see matchesCreated
	All      bool   // include every run regardless of other filters
}

// List returns runs most-recent-first, matching filter (spec.md §4.7
// "list(filters)"). It never acquires execution locks: it only reads
// already-written metadata files, tolerating a concurrently-running run
// whose metadata is mid-update (spec.md §4.6 "Atomicity").
func (r *Recorder) List(filter Filter) ([]Run, error) {
	if err := r.index.refresh(); err != nil {
		return nil, err
	}
	var out []Run
	for _, runID := range r.index.runIDsDescending() {
		run, err := r.readRun(runID)
		if err != nil {
			continue
		}
		if !filter.All && !matchesFilter(run, filter) {
			continue
		}
		out = append(out, deepCopyRun(run))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matchesFilter(run Run, f Filter) bool {
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	if f.Branch != "" && run.Branch != f.Branch {
		return false
	}
	if f.Workflow != "" && run.Workflow != f.Workflow {
		return false
	}
	if f.User != "" && run.User != f.User {
		return false
	}
	if f.Commit != "" && run.Commit != f.Commit {
		return false
	}
	if f.Event != "" && run.Event != f.Event {
		return false
	}
	if f.Created != "" && !matchesCreated(run.CreatedAt, f.Created) {
		return false
	}
	return true
}

// matchesCreated implements run list --created DATE (spec.md §6), using
// the same date-qualifier syntax CI tooling's own --created flag accepts:
// an exact day ("2026-07-01"), a comparison (">2026-07-01", ">=...",
// "<...", "<="), or a closed range ("2026-07-01..2026-07-15"). Comparisons
// are evaluated at UTC day granularity against the run's CreatedAt.
func matchesCreated(createdAt int64, expr string) bool {
	if createdAt == 0 {
		return false
	}
	day := time.Unix(createdAt, 0).UTC().Truncate(24 * time.Hour)
	switch {
	case strings.Contains(expr, ".."):
		parts := strings.SplitN(expr, "..", 2)
		start, ok1 := parseFilterDay(parts[0])
		end, ok2 := parseFilterDay(parts[1])
		return ok1 && ok2 && !day.Before(start) && !day.After(end)
	case strings.HasPrefix(expr, ">="):
		d, ok := parseFilterDay(expr[2:])
		return ok && !day.Before(d)
	case strings.HasPrefix(expr, "<="):
		d, ok := parseFilterDay(expr[2:])
		return ok && !day.After(d)
	case strings.HasPrefix(expr, ">"):
		d, ok := parseFilterDay(expr[1:])
		return ok && day.After(d)
	case strings.HasPrefix(expr, "<"):
		d, ok := parseFilterDay(expr[1:])
		return ok && day.Before(d)
	default:
		d, ok := parseFilterDay(expr)
		return ok && day.Equal(d)
	}
}

func parseFilterDay(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ViewRun returns one run and all its jobs (spec.md §4.7 "view(run_id |
// job_id, options)").
func (r *Recorder) ViewRun(runID string) (Run, []Job, error) {
	run, err := r.readRun(runID)
	if err != nil {
		return Run{}, nil, err
	}
	jobs := make([]Job, 0, len(run.Jobs))
	for _, jobID := range run.Jobs {
		job, err := r.readJob(runID, jobID)
		if err != nil {
			continue
		}
		jobs = append(jobs, deepCopyJob(job))
	}
	return deepCopyRun(run), jobs, nil
}

// ViewJob returns a single job by ID, searching the owning run's jobs
// directory directly (spec.md §4.7 "view(... job_id ...)").
func (r *Recorder) ViewJob(runID, jobID string) (Job, error) {
	job, err := r.readJob(runID, jobID)
	if err != nil {
		return Job{}, err
	}
	return deepCopyJob(job), nil
}

func (r *Recorder) readRun(runID string) (Run, error) {
	k, err := readKVFile(r.metadataPath(runID))
	if err != nil {
		return Run{}, err
	}
	run := Run{
		RunID:       runID,
		Status:      RunStatus(k.get("STATUS")),
		StartedAt:   k.getInt64("START_TIME"),
		EndedAt:     k.getInt64("END_TIME"),
		ExitCode:    k.getInt("EXIT_CODE"),
		ProjectRoot: k.get("PROJECT"),
		Branch:      k.get("BRANCH"),
		Commit:      k.get("COMMIT"),
		User:        k.get("USER"),
		Event:       k.get("EVENT"),
		Workflow:    k.get("WORKFLOW"),
		CreatedAt:   k.getInt64("CREATED"),
	}
	run.Jobs, _ = r.listJobIDs(runID)
	return run, nil
}

// listJobIDs returns a run's job IDs ordered by file mtime, the closest
// available proxy for "append order during running" since job files
// carry no sequence number of their own (spec.md §3 "a run's job list is
// append-only during running").
func (r *Recorder) listJobIDs(runID string) ([]string, error) {
	entries, err := os.ReadDir(r.jobsDir(runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	type named struct {
		id    string
		mtime int64
	}
	var items []named
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, named{id: strings.TrimSuffix(e.Name(), ".txt"), mtime: info.ModTime().UnixNano()})
	}
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].mtime < items[j-1].mtime; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	ids := make([]string, len(items))
	for i, n := range items {
		ids[i] = n.id
	}
	return ids, nil
}

func (r *Recorder) readJob(runID, jobID string) (Job, error) {
	k, err := readKVFile(r.jobPath(runID, jobID))
	if err != nil {
		return Job{}, err
	}
	job := Job{
		JobID:     jobID,
		RunID:     runID,
		Vector:    strings.Fields(k.get("COMMAND")),
		Status:    JobStatus(k.get("STATUS")),
		StartedAt: k.getInt64("START_TIME"),
		EndedAt:   k.getInt64("END_TIME"),
		ExitCode:  k.getInt("EXIT_CODE"),
		LogPath:   k.get("LOG_FILE"),
	}
	if k.get("TESTS_TOTAL") != "" {
		job.Pytest = &PytestSummary{
			Passed: k.getInt("TESTS_PASSED"),
			Failed: k.getInt("TESTS_FAILED"),
			Total:  k.getInt("TESTS_TOTAL"),
		}
		if raw := k.get("PYTEST_RESULTS"); raw != "" {
			job.Pytest.FailedTests = strings.Split(raw, ",")
		}
	}
	return job, nil
}
