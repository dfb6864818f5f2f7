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

	"github.com/talismancer/seqexec/internal/queue"
	"github.com/talismancer/seqexec/internal/recorder"
)

func TestRunListFindsACompletedRun(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Store.Submit(queue.NewEntry(1, []string{"true"})))
	require.NoError(t, a.Store.Close())

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	status := (&QueueStart{A: a}).Execute(startCtx, fs)
	require.Equal(t, subcommands.ExitStatus(0), status)

	r := &Run{A: a, limit: 20}
	listStatus := r.runList()
	assert.Equal(t, subcommands.ExitSuccess, listStatus)

	runs, err := a.Rec.List(recorder.Filter{Limit: 20})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.RunCompleted, runs[0].Status)
	assert.Len(t, runs[0].Jobs, 1)
}

func TestRunListCreatedFlagNarrowsResults(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Store.Submit(queue.NewEntry(1, []string{"true"})))
	require.NoError(t, a.Store.Close())

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	require.Equal(t, subcommands.ExitStatus(0), (&QueueStart{A: a}).Execute(startCtx, fs))

	r := &Run{A: a, limit: 20, created: "1999-01-01"}
	status := r.runList()
	assert.Equal(t, subcommands.ExitSuccess, status)

	runs, err := a.Rec.List(recorder.Filter{Limit: 20, Created: "1999-01-01"})
	require.NoError(t, err)
	assert.Empty(t, runs, "a run created today must not match a 1999 filter")
}

func TestAttemptLogSectionSelectsOneAttempt(t *testing.T) {
	log := "=== ATTEMPT 2026-07-01T00:00:00Z ===\nVECTOR: true\nEXIT_CODE: 1\n" +
		"=== ATTEMPT 2026-07-01T00:00:01Z ===\nVECTOR: true\nEXIT_CODE: 0\n"

	first, ok := attemptLogSection(log, 1)
	require.True(t, ok)
	assert.Contains(t, first, "EXIT_CODE: 1")
	assert.NotContains(t, first, "EXIT_CODE: 0")

	second, ok := attemptLogSection(log, 2)
	require.True(t, ok)
	assert.Contains(t, second, "EXIT_CODE: 0")

	_, ok = attemptLogSection(log, 3)
	assert.False(t, ok)
}

func TestRunViewPrintsSpecificRun(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Store.Submit(queue.NewEntry(1, []string{"true"})))
	require.NoError(t, a.Store.Close())

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	require.Equal(t, subcommands.ExitStatus(0), (&QueueStart{A: a}).Execute(startCtx, fs))

	runs, err := a.Rec.List(recorder.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := &Run{A: a}
	status := r.runView(runs[0].RunID)
	assert.Equal(t, subcommands.ExitSuccess, status)
}
