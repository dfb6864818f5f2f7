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
	"time"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/recorder"
)

// ciRun is the CI-compatible JSON shape for one run (spec.md §6 "--json
// [FIELDS]"), field names chosen to match what `gh run list --json` emits
// so scripts built against that convention work unmodified against this
// one.
type ciRun struct {
	DatabaseID   string `json:"databaseId"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Conclusion   string `json:"conclusion"`
	WorkflowName string `json:"workflowName"`
	HeadBranch   string `json:"headBranch"`
	HeadSHA      string `json:"headSha"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	StartedAt    string `json:"startedAt"`
	Actor        struct {
		Login string `json:"login"`
	} `json:"actor"`
	Event string `json:"event"`
	URL   string `json:"url"`
}

// ciStatus maps a Run's internal status/exit code onto the two-part
// status/conclusion split CI services use (spec.md §6 status mapping:
// "running -> in_progress", "completed, exit 0 -> success", "completed,
// exit != 0 -> failure", "stopped -> cancelled").
func ciStatus(run recorder.Run) (status, conclusion string) {
	switch run.Status {
	case recorder.RunRunning:
		return "in_progress", ""
	case recorder.RunStopped:
		return "completed", "cancelled"
	case recorder.RunCompleted:
		if run.ExitCode == 0 {
			return "completed", "success"
		}
		return "completed", "failure"
	default:
		return string(run.Status), ""
	}
}

func toCIRun(run recorder.Run) ciRun {
	status, conclusion := ciStatus(run)
	var c ciRun
	c.DatabaseID = run.RunID
	c.Name = run.Workflow
	c.Status = status
	c.Conclusion = conclusion
	c.WorkflowName = run.Workflow
	c.HeadBranch = run.Branch
	c.HeadSHA = run.Commit
	c.CreatedAt = unixToRFC3339(run.CreatedAt)
	c.UpdatedAt = unixToRFC3339(run.EndedAt)
	c.StartedAt = unixToRFC3339(run.StartedAt)
	c.Actor.Login = run.User
	c.Event = run.Event
	c.URL = "sep://" + run.ProjectRoot + "/runs/" + run.RunID
	return c
}

func unixToRFC3339(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func (c *Run) runList() subcommands.ExitStatus {
	filter := recorder.Filter{
		Limit:    c.limit,
		Status:   recorder.RunStatus(c.status),
		Branch:   c.branch,
		Workflow: c.workflow,
		User:     c.user,
		Commit:   c.commit,
		Event:    c.event,
		Created:  c.created,
		All:      c.all,
	}
	runs, err := c.A.Rec.List(filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return subcommands.ExitFailure
	}

	if c.jsonField != "" || c.jqExpr != "" || c.template != "" {
		return emitStructured(runs, c.jsonField, c.jqExpr, c.template)
	}

	for _, run := range runs {
		status, conclusion := ciStatus(run)
		glyph := statusGlyph(status, conclusion)
		fmt.Printf("%s\t%s\t%s\t%s\t%s\t%d jobs\t%ds\n",
			glyph, run.RunID, status, run.Branch, run.Workflow, len(run.Jobs), run.Duration())
	}
	return subcommands.ExitSuccess
}

func statusGlyph(status, conclusion string) string {
	switch {
	case status == "in_progress":
		return "*"
	case conclusion == "success":
		return "✓"
	case conclusion == "failure":
		return "X"
	case conclusion == "cancelled":
		return "-"
	default:
		return "?"
	}
}
