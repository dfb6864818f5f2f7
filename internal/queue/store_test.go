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

package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talismancer/seqexec/internal/errs"
)

func TestSubmitAndPopNextFIFO(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Submit(NewEntry(1, []string{"ruff", "check", "."})))
	require.NoError(t, s.Submit(NewEntry(1, []string{"pytest", "t.py"})))

	first, ok, err := s.PopNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"ruff", "check", "."}, first.Vector)

	second, ok, err := s.PopNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"pytest", "t.py"}, second.Vector)

	_, ok, err = s.PopNext()
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestQueueClosedBoundary covers the close -> submit -> reopen -> submit
// sequence (spec.md §4.5 "close()/reopen()").
func TestQueueClosedBoundary(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	err = s.Submit(NewEntry(1, []string{"go", "test", "./..."}))
	assert.ErrorIs(t, err, errs.ErrQueueClosed)

	require.NoError(t, s.Reopen())
	require.NoError(t, s.Submit(NewEntry(1, []string{"go", "test", "./..."})))

	_, ok, err := s.PopNext()
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestConcurrentSubmittersNoInterleave is spec.md §8 scenario E6: many
// submitters append simultaneously and every entry survives, in full, with
// none interleaved mid-line.
func TestConcurrentSubmittersNoInterleave(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Submit(NewEntry(uint64(i), []string{"tool", "arg" + strconv.Itoa(i)}))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for {
		e, ok, err := s.PopNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.Len(t, e.Vector, 2)
		seen[e.Vector[1]] = true
	}
	assert.Len(t, seen, n)
}

func TestPauseResumeFlags(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	st, err := s.Status()
	require.NoError(t, err)
	assert.False(t, st.Paused)

	require.NoError(t, s.Pause())
	st, err = s.Status()
	require.NoError(t, err)
	assert.True(t, st.Paused)

	require.NoError(t, s.Resume())
	st, err = s.Status()
	require.NoError(t, err)
	assert.False(t, st.Paused)
}

func TestClearEmptiesQueueNotFlags(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Submit(NewEntry(1, []string{"a"})))
	require.NoError(t, s.Pause())
	require.NoError(t, s.Clear())

	st, err := s.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Depth)
	assert.True(t, st.Paused)
}

// TestSidecarLockReclaimsDeadHolder covers spec.md §4.5 "Crash safety"
// for the sidecar lock itself: a stale mkdir-based lock directory left
// behind by a dead holder must not wedge every future submitter.
func TestSidecarLockReclaimsDeadHolder(t *testing.T) {
	dir := t.TempDir()
	lock := newSidecarLock(filepath.Join(dir, "executor.lock"))

	require.NoError(t, os.Mkdir(lock.dir, 0755))
	require.NoError(t, os.WriteFile(lock.holderPath(), []byte("999999"), 0644))

	var ran bool
	err := lock.withLock(func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran, "a dead holder's lock must be reclaimed, not waited out")

	_, err = os.Stat(lock.dir)
	assert.True(t, os.IsNotExist(err), "withLock must release the lock directory afterward")
}

func TestCurrentPIDLockReclaimsDeadHolder(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	// Simulate a crashed prior holder: a PID almost certainly not alive.
	require.NoError(t, os.WriteFile(s.path("current.pid"), []byte("999999"), 0644))

	ok, err := s.CurrentPIDLock().Acquire()
	require.NoError(t, err)
	assert.True(t, ok, "dead holder must be reclaimed")

	holder, found := s.CurrentPIDLock().Holder()
	require.True(t, found)
	assert.Equal(t, os.Getpid(), holder)
}

func TestCurrentPIDLockRefusesLiveHolder(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.path("current.pid"), []byte(fmt.Sprint(os.Getpid())), 0644))

	ok, err := s.CurrentPIDLock().Acquire()
	require.NoError(t, err)
	assert.False(t, ok, "live holder must not be preempted")
}
