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
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talismancer/seqexec/internal/cli/app"
	"github.com/talismancer/seqexec/internal/config"
	"github.com/talismancer/seqexec/internal/queue"
	"github.com/talismancer/seqexec/internal/recorder"
	"github.com/talismancer/seqexec/internal/runner"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	store, err := queue.New(dir)
	require.NoError(t, err)
	rec, err := recorder.New(dir)
	require.NoError(t, err)
	return &app.App{
		Cfg: &config.Config{
			ProjectRoot:    dir,
			Atomify:        false,
			EnforceRunners: false,
			Event:          "manual",
			Workflow:       "sep",
		},
		Store: store,
		Rec:   rec,
	}
}

func TestQueueOpsFlipExpectedFlags(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	status := NewQueuePause(a).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitSuccess, status)
	st, err := a.Store.Status()
	require.NoError(t, err)
	assert.True(t, st.Paused)

	status = NewQueueResume(a).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitSuccess, status)
	st, err = a.Store.Status()
	require.NoError(t, err)
	assert.False(t, st.Paused)

	status = NewCloseQueue(a).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitSuccess, status)
	st, err = a.Store.Status()
	require.NoError(t, err)
	assert.True(t, st.Closed)

	status = NewReopenQueue(a).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitSuccess, status)
	st, err = a.Store.Status()
	require.NoError(t, err)
	assert.False(t, st.Closed)
}

func TestSubmitVectorEnqueuesOneEntryWhenAtomifyDisabled(t *testing.T) {
	a := newTestApp(t)
	a.Cfg.Atomify = false

	_, err := SubmitVector(a, []string{"echo", "hello"})
	require.NoError(t, err)

	st, err := a.Store.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Depth)
}

func TestSubmitVectorQueuesUnsupportedLauncherAsIsWithWarning(t *testing.T) {
	a := newTestApp(t)
	a.Cfg.EnforceRunners = true

	status, err := SubmitVector(a, []string{"poetry", "run", "pytest"})
	require.NoError(t, err)
	assert.Equal(t, runner.StatusRejected, status)

	st, err := a.Store.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Depth)
}

func TestSubmitVectorRejectsEmpty(t *testing.T) {
	a := newTestApp(t)
	_, err := SubmitVector(a, nil)
	assert.Error(t, err)
}

func TestQueueStatusPrintsWithoutError(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	status := (&QueueStatus{A: a}).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitSuccess, status)
}

func TestQueueStartRunsQueuedEntriesToCompletion(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Store.Submit(queue.NewEntry(1, []string{"true"})))
	require.NoError(t, a.Store.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	status := (&QueueStart{A: a}).Execute(ctx, fs)
	assert.Equal(t, subcommands.ExitStatus(0), status)

	runs, err := a.Rec.List(recorder.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.RunCompleted, runs[0].Status)
}
