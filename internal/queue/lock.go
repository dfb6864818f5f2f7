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
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/talismancer/seqexec/internal/errs"
)

// sidecarLock is the short-lived, non-execution lock guarding queue-file
// mutations (spec.md GLOSSARY "Sidecar lock", §4.5 "Concurrency"). It is
// mkdir-based rather than a kernel flock: `mkdir` is atomic and portable to
// POSIX hosts with no file-locking API at all (spec.md §4.5: "mkdir-based,
// because it must be portable to POSIX hosts without file-locking APIs").
// The holder's PID is recorded inside the directory so a submitter that
// crashes mid-hold can be detected and reclaimed (spec.md §4.5 "Crash
// safety"). Acquisition is bounded retry with small backoff; on exhaustion
// it returns errs.ErrLockBusy, never a silent drop.
type sidecarLock struct {
	dir string
}

func newSidecarLock(dir string) *sidecarLock {
	return &sidecarLock{dir: dir}
}

// withLock runs fn while holding the sidecar lock, retrying acquisition
// with exponential backoff bounded at ~1s total (spec.md "bounded retry
// with small backoff").
func (s *sidecarLock) withLock(fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 1 * time.Second

	acquire := func() error {
		if s.tryAcquire() {
			return nil
		}
		return fmt.Errorf("lock held")
	}
	if err := backoff.Retry(acquire, b); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrLockBusy, err)
	}
	defer s.release()

	return fn()
}

// tryAcquire claims the lock via an atomic mkdir. If the directory already
// exists, it checks the recorded holder's liveness and reclaims a dead
// holder's lock rather than waiting out the rest of the backoff budget
// (spec.md §4.5 "Crash safety": "the next acquirer verifies the holder PID
// is alive and reclaims the lock if not").
func (s *sidecarLock) tryAcquire() bool {
	if err := os.Mkdir(s.dir, 0755); err == nil {
		s.writeHolder()
		return true
	} else if !os.IsExist(err) {
		return false
	}

	holder, ok := s.readHolder()
	if ok && isAlivePID(holder) {
		return false
	}
	// Dead or unreadable holder: reclaim unconditionally rather than
	// leaving other submitters to retry against a stale directory.
	if err := os.RemoveAll(s.dir); err != nil {
		return false
	}
	if err := os.Mkdir(s.dir, 0755); err != nil {
		return false
	}
	s.writeHolder()
	return true
}

func (s *sidecarLock) release() {
	os.RemoveAll(s.dir)
}

func (s *sidecarLock) holderPath() string { return filepath.Join(s.dir, "holder.pid") }

func (s *sidecarLock) writeHolder() {
	os.WriteFile(s.holderPath(), []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (s *sidecarLock) readHolder() (int, bool) {
	data, err := os.ReadFile(s.holderPath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}
