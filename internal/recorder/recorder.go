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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
)

// Context is the run-level provenance carried from Config into start_run
// (spec.md §3 "Run" context fields).
type Context struct {
	ProjectRoot string
	Branch      string
	Commit      string
	User        string
	Event       string
	Workflow    string
}

// Recorder persists run and job metadata under root (typically
// Config.RunsDir()) and serves the read model from the same tree (spec.md
// §4.6).
type Recorder struct {
	root  string
	index *readIndex
}

// New opens the recorder rooted at dir, creating it if absent.
func New(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("recorder: create runs dir: %w", err)
	}
	return &Recorder{root: dir, index: newReadIndex(dir)}, nil
}

func (r *Recorder) runDir(runID string) string  { return filepath.Join(r.root, runID) }
func (r *Recorder) jobsDir(runID string) string { return filepath.Join(r.runDir(runID), "jobs") }
func (r *Recorder) metadataPath(runID string) string {
	return filepath.Join(r.runDir(runID), "metadata.txt")
}
func (r *Recorder) jobPath(runID, jobID string) string {
	return filepath.Join(r.jobsDir(runID), jobID+".txt")
}

// StartRun creates a new run directory and returns its generated ID
// (spec.md §4.6 "start_run(context) -> run_id"). IDs are
// timestamp-derived and human-monotonic (spec.md §3 "Run": "human-monotonic
// string (timestamp-derived)").
func (r *Recorder) StartRun(ctx Context, now time.Time) (string, error) {
	runID := fmt.Sprintf("%s-%d", now.UTC().Format("20060102T150405"), now.UnixNano()%1000)
	if err := os.MkdirAll(r.jobsDir(runID), 0755); err != nil {
		return "", fmt.Errorf("recorder: create run dir: %w", err)
	}
	k := newKV()
	k.set("RUN_ID", runID)
	k.set("START_TIME", strconv.FormatInt(now.Unix(), 10))
	k.set("STATUS", string(RunRunning))
	k.set("PROJECT", ctx.ProjectRoot)
	k.set("BRANCH", ctx.Branch)
	k.set("COMMIT", ctx.Commit)
	k.set("USER", ctx.User)
	k.set("EVENT", ctx.Event)
	k.set("WORKFLOW", ctx.Workflow)
	k.set("CREATED", strconv.FormatInt(now.Unix(), 10))
	if err := writeKVFile(r.metadataPath(runID), k); err != nil {
		return "", err
	}
	return runID, nil
}

// StartJob creates a new job record under runID (spec.md §4.6
// "start_job(run_id, vector) -> job_id").
func (r *Recorder) StartJob(runID string, vector []string, now time.Time) (string, error) {
	jobID := fmt.Sprintf("%s-%d", runID, now.UnixNano())
	k := newKV()
	k.set("JOB_ID", jobID)
	k.set("RUN_ID", runID)
	k.set("START_TIME", strconv.FormatInt(now.Unix(), 10))
	k.set("STATUS", string(JobRunning))
	k.set("COMMAND", strings.Join(vector, " "))
	if err := writeKVFile(r.jobPath(runID, jobID), k); err != nil {
		return "", err
	}
	return jobID, nil
}

// FinishJob records a job's completion, including best-effort pytest
// summary extraction from logPath when the command's first non-launcher
// token looks like pytest (spec.md §4.6 "Pytest summary extraction").
func (r *Recorder) FinishJob(runID, jobID string, exitCode int, logPath string, now time.Time) error {
	path := r.jobPath(runID, jobID)
	k, err := readKVFile(path)
	if err != nil {
		return err
	}
	k.set("END_TIME", strconv.FormatInt(now.Unix(), 10))
	k.set("STATUS", string(JobCompleted))
	k.set("EXIT_CODE", strconv.Itoa(exitCode))
	k.set("LOG_FILE", logPath)

	if isPytestCommand(k.get("COMMAND")) {
		if summary := extractPytestSummary(logPath); summary != nil {
			k.set("TESTS_PASSED", strconv.Itoa(summary.Passed))
			k.set("TESTS_FAILED", strconv.Itoa(summary.Failed))
			k.set("TESTS_TOTAL", strconv.Itoa(summary.Total))
			k.set("PYTEST_RESULTS", strings.Join(summary.FailedTests, ","))
		}
	}
	return writeKVFile(path, k)
}

// FinishRun records a run's completion (spec.md §4.6
// "finish_run(run_id, aggregate_exit, reason)"). The status parameter
// plays the role of reason: it distinguishes a normal drain from an
// operator stop.
func (r *Recorder) FinishRun(runID string, aggregateExit int, status RunStatus, now time.Time) error {
	k, err := readKVFile(r.metadataPath(runID))
	if err != nil {
		return err
	}
	start := k.getInt64("START_TIME")
	k.set("END_TIME", strconv.FormatInt(now.Unix(), 10))
	k.set("STATUS", string(status))
	k.set("EXIT_CODE", strconv.Itoa(aggregateExit))
	if start > 0 {
		k.set("DURATION", strconv.FormatInt(now.Unix()-start, 10))
	}
	return writeKVFile(r.metadataPath(runID), k)
}

// deepCopyRun returns a defensive copy of r so a caller's mutation of the
// returned value cannot corrupt the read index's cached entry.
func deepCopyRun(run Run) Run {
	return deepcopy.Copy(run).(Run)
}

func deepCopyJob(job Job) Job {
	return deepcopy.Copy(job).(Job)
}
