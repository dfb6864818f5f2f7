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

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccessNoRetry(t *testing.T) {
	dir := t.TempDir()
	sup := New(nil)
	res, err := sup.Run(context.Background(), Options{
		Vector:  []string{"true"},
		LogPath: filepath.Join(dir, "job.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, 1, res.AttemptsUsed)
}

func TestRunRetriesOnFailure(t *testing.T) {
	dir := t.TempDir()
	sup := New(nil)
	res, err := sup.Run(context.Background(), Options{
		Vector:  []string{"false"},
		Retries: 2,
		LogPath: filepath.Join(dir, "job.log"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.Equal(t, 3, res.AttemptsUsed)
}

func TestRunTimeoutSentinelExitCode(t *testing.T) {
	dir := t.TempDir()
	sup := New(nil)
	res, err := sup.Run(context.Background(), Options{
		Vector:  []string{"sleep", "30"},
		Timeout: 300 * time.Millisecond,
		LogPath: filepath.Join(dir, "job.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, timeoutExitCode, res.ExitCode)
	assert.True(t, res.TimedOut)

	data, _ := os.ReadFile(filepath.Join(dir, "job.log"))
	assert.Contains(t, string(data), "TIMEOUT: 0s")
}

func TestRunZeroTimeoutDisablesIt(t *testing.T) {
	dir := t.TempDir()
	sup := New(nil)
	start := time.Now()
	res, err := sup.Run(context.Background(), Options{
		Vector:  []string{"sleep", "1"},
		Timeout: 0,
		LogPath: filepath.Join(dir, "job.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.GreaterOrEqual(t, time.Since(start), 1*time.Second)
}

func TestRunCancelledContextUsesInterruptedExitCode(t *testing.T) {
	dir := t.TempDir()
	sup := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	res, err := sup.Run(ctx, Options{
		Vector:  []string{"sleep", "30"},
		LogPath: filepath.Join(dir, "job.log"),
	})
	require.NoError(t, err)
	assert.Equal(t, cancelledExitCode, res.ExitCode)
	assert.True(t, res.Cancelled)
}

func TestExcludedSelfAndParent(t *testing.T) {
	self := os.Getpid()
	parent := os.Getppid()
	assert.True(t, excluded(self, self, parent))
	assert.True(t, excluded(parent, self, parent))
	assert.False(t, excluded(self+999999, self, parent))
}
