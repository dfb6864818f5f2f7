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

// queueOp is a single no-argument queue control verb (spec.md §6
// "control: --queue-start|--queue-status|--queue-pause|--queue-resume|
// --queue-stop|--clear-queue|--close-queue|--reopen-queue"). Each verb's
// shape is identical — no flags, act on the Store, print a line — so one
// generic command type covers all but queue-start, which additionally
// runs the engine loop.
type queueOp struct {
	A        *app.App
	name     string
	synopsis string
	run      func(a *app.App) error
}

func (q *queueOp) Name() string           { return q.name }
func (q *queueOp) Synopsis() string       { return q.synopsis }
func (q *queueOp) Usage() string          { return q.name + " - " + q.synopsis + "\n" }
func (q *queueOp) SetFlags(*flag.FlagSet) {}

func (q *queueOp) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	if err := q.run(q.A); err != nil {
		fmt.Fprintf(os.Stderr, "[SEQ-QUEUE] %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// NewQueuePause, NewQueueResume, etc. build the fixed-shape queue control
// commands; queue-start is handled separately (QueueStart) since it drives
// the engine loop rather than flipping one flag.

func NewQueuePause(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "queue-pause", synopsis: "pause the queue between jobs", run: func(a *app.App) error { return a.Store.Pause() }}
}

func NewQueueResume(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "queue-resume", synopsis: "resume a paused queue", run: func(a *app.App) error { return a.Store.Resume() }}
}

func NewQueueStop(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "queue-stop", synopsis: "cancel the current job and halt the control loop", run: func(a *app.App) error { return a.Store.Stop() }}
}

func NewClearQueue(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "clear-queue", synopsis: "empty the queue without touching pause/close flags", run: func(a *app.App) error { return a.Store.Clear() }}
}

func NewCloseQueue(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "close-queue", synopsis: "reject further submissions until reopened", run: func(a *app.App) error { return a.Store.Close() }}
}

func NewReopenQueue(a *app.App) subcommands.Command {
	return &queueOp{A: a, name: "reopen-queue", synopsis: "accept submissions again", run: func(a *app.App) error { return a.Store.Reopen() }}
}

// QueueStatus prints the queue's current flags and depth.
type QueueStatus struct{ A *app.App }

func (*QueueStatus) Name() string           { return "queue-status" }
func (*QueueStatus) Synopsis() string       { return "print paused/closed/running flags and queue depth" }
func (*QueueStatus) Usage() string          { return "queue-status - print the queue's current state\n" }
func (*QueueStatus) SetFlags(*flag.FlagSet) {}

func (c *QueueStatus) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	st, err := c.A.Store.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[SEQ-QUEUE] %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("paused=%t closed=%t running=%t depth=%d\n", st.Paused, st.Closed, st.Running, st.Depth)
	return subcommands.ExitSuccess
}
