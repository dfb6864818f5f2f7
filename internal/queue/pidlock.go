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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// currentPIDLock is the single mutual-exclusion primitive guaranteeing
// "at most one running job per project" (spec.md §5 "Shared-resource
// policy"). It is a plain file holding the holder's PID; staleness is
// detected by liveness-checking that PID, not by a kernel-level flock, so
// the recovery heuristic in spec.md §4.5 ("the next engine start detects
// a dead holder, clears the lock, and proceeds") can be expressed
// directly.
type currentPIDLock struct {
	path string
}

func newCurrentPIDLock(lockDir string) *currentPIDLock {
	return &currentPIDLock{path: filepath.Join(lockDir, "current.pid")}
}

// Acquire claims the lock for the calling process, self-healing a dead
// holder (spec.md §4.5 "Crash safety"). Returns false if a live holder
// already owns it.
func (c *currentPIDLock) Acquire() (bool, error) {
	if holder, ok := c.read(); ok {
		if isAlivePID(holder) {
			return false, nil
		}
		// InternalInvariantViolation: dead holder with the lock file
		// still present. Self-heal by clearing and proceeding (spec.md
		// §4.5, §7 "InternalInvariantViolation").
	}
	return true, os.WriteFile(c.path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// Release clears the lock, but only if this process still owns it.
func (c *currentPIDLock) Release() error {
	if holder, ok := c.read(); ok && holder != os.Getpid() {
		return nil
	}
	return os.Remove(c.path)
}

// Holder returns the PID currently recorded in the lock file, if any.
func (c *currentPIDLock) Holder() (int, bool) {
	return c.read()
}

func (c *currentPIDLock) read() (int, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

func isAlivePID(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
