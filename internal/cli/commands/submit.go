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

// Package commands implements one subcommands.Command per sep verb
// (spec.md §6 "Client command surface"), each a thin adapter over
// internal/queue, internal/recorder, and internal/engine.
package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/atomify"
	"github.com/talismancer/seqexec/internal/cli/app"
	"github.com/talismancer/seqexec/internal/errs"
	"github.com/talismancer/seqexec/internal/queue"
	"github.com/talismancer/seqexec/internal/runner"
)

// Submit implements submission (spec.md §6 "submission: -- <vector>
// (default action) — append after Runner Enforcement and
// Atomification").
type Submit struct {
	A *app.App
}

func (*Submit) Name() string     { return "submit" }
func (*Submit) Synopsis() string { return "enforce, atomify, and enqueue a command vector" }
func (*Submit) Usage() string {
	return "submit -- <command> [args...] - append a command to the project queue\n"
}
func (*Submit) SetFlags(*flag.FlagSet) {}

func (c *Submit) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	vector := f.Args()
	status, err := SubmitVector(c.A, vector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errs.Tag(err), err)
		return subcommands.ExitStatus(errs.ExitCode(err))
	}
	if status != runner.StatusUnchanged && status != runner.StatusRewritten {
		fmt.Fprintf(os.Stderr, "[RUNNER-ENFORCER] warning: %v\n", status)
	}
	return subcommands.ExitSuccess
}

// SubmitVector runs Runner Enforcement then Atomification on vector and
// appends the resulting batch to the queue in one lock acquisition
// (spec.md §6 data flow: "client vector -> C3 -> C4 -> C5 (append)").
// It is exported so Main can invoke the default "-- <vector>" action
// without going through subcommands dispatch.
func SubmitVector(a *app.App, vector []string) (runner.Status, error) {
	if len(vector) == 0 {
		return 0, fmt.Errorf("%w: submit requires a command vector", errs.ErrUsage)
	}

	outcome, err := runner.Enforce(vector, runner.Options{
		Enabled:      a.Cfg.EnforceRunners,
		OnlyVerified: a.Cfg.OnlyVerified,
		ProjectRoot:  a.Cfg.ProjectRoot,
	})
	// StatusRejected is not a usage error (spec.md §4.3 outcome (c), E5):
	// an unsupported launcher is queued as-is with a warning, not refused.
	// StatusSkipped (only-verified, unrecognized tool) is the one Enforce
	// outcome that must actually stop submission.
	if err != nil && outcome.Status != runner.StatusRejected {
		return outcome.Status, err
	}
	if outcome.Status == runner.StatusRejected {
		fmt.Fprintf(os.Stderr, "[RUNNER-ENFORCER] unsupported launcher, queuing as-is: %v\n", outcome.Vector)
	}

	batches, err := atomify.Atomify(outcome.Vector, atomify.Options{
		Enabled:          a.Cfg.Atomify,
		EnableSecondTier: a.Cfg.EnableSecondTier,
		ProjectRoot:      a.Cfg.ProjectRoot,
	})
	if err != nil {
		return outcome.Status, err
	}

	submitterID := uint64(os.Getpid())
	entries := make([]queue.Entry, len(batches))
	for i, v := range batches {
		entries[i] = queue.NewEntry(submitterID, v)
	}
	return outcome.Status, a.Store.SubmitBatch(entries)
}
