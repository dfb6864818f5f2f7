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
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/cli/app"
	"github.com/talismancer/seqexec/internal/engine"
	"github.com/talismancer/seqexec/internal/errs"
	"github.com/talismancer/seqexec/internal/recorder"
)

// QueueStart implements "sep --queue-start": drive the Queue Engine's
// control loop until the queue is closed and drained, stop() is observed,
// the pipeline timeout elapses, or the process receives an interrupt. An
// open, empty queue keeps the loop waiting for new submissions (spec.md
// §4.7, §6 "control: ... --queue-start ...").
type QueueStart struct {
	A *app.App
}

func (*QueueStart) Name() string     { return "queue-start" }
func (*QueueStart) Synopsis() string { return "run the engine's control loop for this project" }
func (*QueueStart) Usage() string {
	return "queue-start - pop, lock, run, and record jobs until the queue is closed and empty, or is stopped\n"
}
func (*QueueStart) SetFlags(*flag.FlagSet) {}

func (c *QueueStart) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	runCtx := recorder.Context{
		ProjectRoot: c.A.Cfg.ProjectRoot,
		Branch:      c.A.Cfg.Branch,
		Commit:      c.A.Cfg.Commit,
		User:        c.A.Cfg.User,
		Event:       c.A.Cfg.Event,
		Workflow:    c.A.Cfg.Workflow,
	}

	runCtxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	defer signal.Stop(sigCh)

	eng := engine.New(c.A.Cfg, c.A.Store, c.A.Rec, c.A.Log)
	runID, err := eng.Run(runCtxCancel, runCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errs.Tag(err), err)
		return subcommands.ExitFailure
	}

	run, _, err := c.A.Rec.ViewRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[SEQ-QUEUE] run %s finished but could not be read back: %v\n", runID, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("run %s finished: status=%s exit=%d\n", run.RunID, run.Status, run.ExitCode)

	if run.Status == recorder.RunStopped {
		return subcommands.ExitStatus(130)
	}
	return subcommands.ExitStatus(run.ExitCode)
}
