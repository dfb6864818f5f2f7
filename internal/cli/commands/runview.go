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
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/recorder"
)

// runView implements "run view [RUN_ID]" (spec.md §6 "view(run_id |
// job_id, options)"). With -job it narrows to a single job; -log and
// -log-failed print the job's captured output; -exit-status makes the
// command's own exit code mirror the run's (or job's) exit code instead
// of always succeeding, the way `gh run view --exit-status` does.
func (c *Run) runView(runID string) subcommands.ExitStatus {
	if runID == "" {
		runs, err := c.A.Rec.List(recorder.Filter{Limit: 1})
		if err != nil || len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "[sep] no runs recorded yet")
			return subcommands.ExitFailure
		}
		runID = runs[0].RunID
	}

	if c.job != "" {
		return c.viewJob(runID, c.job)
	}

	run, jobs, err := c.A.Rec.ViewRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return subcommands.ExitFailure
	}

	status, conclusion := ciStatus(run)
	fmt.Printf("run %s\nstatus: %s %s\nbranch: %s\nworkflow: %s\ncommit: %s\nuser: %s\nduration: %ds\n",
		run.RunID, status, conclusion, run.Branch, run.Workflow, run.Commit, run.User, run.Duration())
	fmt.Printf("jobs: %d\n", len(jobs))
	for _, job := range jobs {
		glyph := "✓"
		if job.ExitCode != 0 {
			glyph = "X"
		}
		if job.Status == recorder.JobRunning {
			glyph = "*"
		}
		fmt.Printf("  %s %s %v (exit %d)\n", glyph, job.JobID, job.Vector, job.ExitCode)
		if c.verbose && job.Pytest != nil {
			fmt.Printf("      pytest: %d passed, %d failed, %d skipped, %d errors\n",
				job.Pytest.Passed, job.Pytest.Failed, job.Pytest.Skipped, job.Pytest.Errors)
		}
		if c.showLog || (c.logFailed && job.ExitCode != 0) {
			printJobLog(job, c.attempt)
		}
	}

	if c.exitStatus {
		return subcommands.ExitStatus(run.ExitCode)
	}
	return subcommands.ExitSuccess
}

func (c *Run) viewJob(runID, jobID string) subcommands.ExitStatus {
	job, err := c.A.Rec.ViewJob(runID, jobID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("job %s (run %s)\ncommand: %v\nstatus: %s\nexit: %d\n", job.JobID, job.RunID, job.Vector, job.Status, job.ExitCode)
	if job.Pytest != nil {
		fmt.Printf("pytest: %d passed, %d failed, %d skipped, %d errors\n",
			job.Pytest.Passed, job.Pytest.Failed, job.Pytest.Skipped, job.Pytest.Errors)
		for _, name := range job.Pytest.FailedTests {
			fmt.Printf("  FAILED %s\n", name)
		}
	}
	if c.showLog || (c.logFailed && job.ExitCode != 0) {
		printJobLog(job, c.attempt)
	}
	if c.exitStatus {
		return subcommands.ExitStatus(job.ExitCode)
	}
	return subcommands.ExitSuccess
}

// printJobLog prints a job's captured log (internal/supervisor/log.go's
// attemptLog). With attempt > 0 it narrows to that 1-indexed "=== ATTEMPT
// ... ===" section instead of the whole file (spec.md §6 "run view" "-a
// ATTEMPT").
func printJobLog(job recorder.Job, attempt int) {
	if job.LogPath == "" {
		return
	}
	data, err := os.ReadFile(job.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] could not read log %s: %v\n", job.LogPath, err)
		return
	}
	if attempt <= 0 {
		fmt.Println("--- log:", job.LogPath, "---")
		os.Stdout.Write(data)
		return
	}
	section, ok := attemptLogSection(string(data), attempt)
	if !ok {
		fmt.Fprintf(os.Stderr, "[sep] no attempt %d recorded in %s\n", attempt, job.LogPath)
		return
	}
	fmt.Println("--- log:", job.LogPath, "attempt", attempt, "---")
	fmt.Print(section)
}

// attemptLogSection returns the nth (1-indexed) "=== ATTEMPT ... ==="
// delimited section of a Process Supervisor log.
func attemptLogSection(log string, n int) (string, bool) {
	const marker = "=== ATTEMPT "
	var starts []int
	for searched := 0; ; {
		idx := strings.Index(log[searched:], marker)
		if idx == -1 {
			break
		}
		starts = append(starts, searched+idx)
		searched += idx + len(marker)
	}
	if n < 1 || n > len(starts) {
		return "", false
	}
	end := len(log)
	if n < len(starts) {
		end = starts[n]
	}
	return log[starts[n-1]:end], true
}
