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
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/cli/app"
)

// Run implements the "run" command group (spec.md §6 "read model
// (CI-compatible names): run list, run view [RUN_ID], run watch
// [RUN_ID]"). Its first positional argument selects the sub-verb, the way
// `gh run list` nests under a single top-level noun.
type Run struct {
	A *app.App

	// run list flags.
	limit     int
	status    string
	branch    string
	workflow  string
	user      string
	commit    string
	event     string
	created   string
	all       bool
	jsonField string
	jqExpr    string
	template  string

	// run view / watch flags.
	job        string
	showLog    bool
	logFailed  bool
	verbose    bool
	exitStatus bool
	attempt    int
	interval   int
	compact    bool
}

func (*Run) Name() string     { return "run" }
func (*Run) Synopsis() string { return "list, view, or watch runs, in the style of a CI service" }
func (*Run) Usage() string {
	return "run <list|view|watch> [RUN_ID] [flags] - read the run/job history store\n"
}

func (c *Run) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "L", 20, "maximum number of runs to list")
	f.StringVar(&c.status, "s", "", "filter by status (running, completed, stopped)")
	f.StringVar(&c.branch, "b", "", "filter by branch")
	f.StringVar(&c.workflow, "w", "", "filter by workflow label")
	f.StringVar(&c.user, "u", "", "filter by user")
	f.StringVar(&c.commit, "c", "", "filter by commit sha")
	f.StringVar(&c.event, "e", "", "filter by event")
	f.StringVar(&c.created, "created", "", "filter by creation date: YYYY-MM-DD, >/>=/</<=YYYY-MM-DD, or a..b range")
	f.BoolVar(&c.all, "a", false, "include all runs regardless of other filters")
	f.StringVar(&c.jsonField, "json", "", "emit a JSON array with the given comma-separated CI-style fields")
	f.StringVar(&c.jqExpr, "q", "", "a dotted field path evaluated against each JSON record (e.g. .status)")
	f.StringVar(&c.template, "t", "", "a text/template string evaluated against each JSON record")

	f.StringVar(&c.job, "job", "", "show a single job instead of the whole run")
	f.BoolVar(&c.showLog, "log", false, "print the full job log")
	f.BoolVar(&c.logFailed, "log-failed", false, "print only failed jobs' logs")
	f.BoolVar(&c.verbose, "v", false, "verbose view output")
	f.BoolVar(&c.exitStatus, "exit-status", false, "exit with the run/job's own exit code")
	// Named "attempt" rather than spec.md's bare "-a": run list's "-a"
	// (all) and run view's "-a" (attempt) share this one FlagSet, since
	// both sub-verbs hang off the same registered "run" command.
	f.IntVar(&c.attempt, "attempt", 0, "select a specific 1-indexed attempt's log section (with -log/-log-failed)")
	f.IntVar(&c.interval, "i", 2, "poll interval in seconds for watch")
	f.BoolVar(&c.compact, "compact", false, "compact watch output")
}

func (c *Run) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: run <list|view|watch> [RUN_ID]")
		return subcommands.ExitUsageError
	}
	verb := f.Arg(0)
	rest := f.Args()[1:]

	switch verb {
	case "list":
		return c.runList()
	case "view":
		var runID string
		if len(rest) > 0 {
			runID = rest[0]
		}
		return c.runView(runID)
	case "watch":
		var runID string
		if len(rest) > 0 {
			runID = rest[0]
		}
		return c.runWatch(ctx, runID)
	default:
		fmt.Fprintf(os.Stderr, "unknown run sub-command %q\n", verb)
		return subcommands.ExitUsageError
	}
}
