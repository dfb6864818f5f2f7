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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/recorder"
)

// runWatch implements "run watch [RUN_ID]" (spec.md §6 "watch(run_id,
// interval)"): poll the read model at -i seconds until the run leaves
// the running state, reprinting its job table each tick. -compact
// suppresses the per-job lines and prints one status line per tick.
func (c *Run) runWatch(ctx context.Context, runID string) subcommands.ExitStatus {
	if runID == "" {
		runs, err := c.A.Rec.List(recorder.Filter{Limit: 1})
		if err != nil || len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "[sep] no runs recorded yet")
			return subcommands.ExitFailure
		}
		runID = runs[0].RunID
	}

	interval := time.Duration(c.interval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, jobs, err := c.A.Rec.ViewRun(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
			return subcommands.ExitFailure
		}

		status, conclusion := ciStatus(run)
		if c.compact {
			fmt.Printf("%s %s %s (%d jobs)\n", run.RunID, status, conclusion, len(jobs))
		} else {
			fmt.Printf("run %s: %s %s, %d/%d jobs recorded\n", run.RunID, status, conclusion, len(jobs), len(run.Jobs))
			for _, job := range jobs {
				fmt.Printf("  %s %v exit=%d\n", job.JobID, job.Vector, job.ExitCode)
			}
		}

		if run.Status != recorder.RunRunning {
			if c.exitStatus {
				return subcommands.ExitStatus(run.ExitCode)
			}
			return subcommands.ExitSuccess
		}

		select {
		case <-ctx.Done():
			return subcommands.ExitStatus(130)
		case <-ticker.C:
		}
	}
}
