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
	"strings"

	"github.com/talismancer/seqexec/internal/errs"
)

// Status reports the queue's flag state and depth (spec.md §4.5
// "status() -> {paused, closed, running, depth}").
type Status struct {
	Paused  bool
	Closed  bool
	Running bool
	Depth   int
}

// Store is the on-disk, project-scoped command queue (C5, spec.md §4.5).
// All mutation goes through the sidecar lock so concurrent submitters never
// interleave a partial append or a read-modify-write of queue.txt (spec.md
// §8 property "no two submitters' entries interleave mid-line").
type Store struct {
	dir     string
	queue   *sidecarLock
	pidLock *currentPIDLock
}

// New opens (without creating contents) the queue rooted at dir, typically
// Config.LockDir(baseLocksDir). The directory itself is created if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("queue: create lock dir: %w", err)
	}
	return &Store{
		dir:     dir,
		queue:   newSidecarLock(filepath.Join(dir, "executor.lock")),
		pidLock: newCurrentPIDLock(dir),
	}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// Submit appends one entry to the queue file, rejecting the call with
// errs.ErrQueueClosed if the closed flag is set (spec.md §4.5 "submit(v) ->
// Ok | QueueClosed").
func (s *Store) Submit(e Entry) error {
	return s.SubmitBatch([]Entry{e})
}

// SubmitBatch appends multiple entries atomically with respect to other
// submitters: the whole batch is written under a single lock acquisition,
// so a concurrent Submit can never land between two entries of the batch
// (spec.md §4.5 "submit_batch").
func (s *Store) SubmitBatch(entries []Entry) error {
	return s.queue.withLock(func() error {
		if s.flagSet("closed") {
			return errs.ErrQueueClosed
		}
		f, err := os.OpenFile(s.path("queue.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("queue: open queue file: %w", err)
		}
		defer f.Close()
		for _, e := range entries {
			if _, err := fmt.Fprintln(f, e.encode()); err != nil {
				return fmt.Errorf("queue: append: %w", err)
			}
		}
		return nil
	})
}

// PopNext removes and returns the head of the queue, or ok=false if the
// queue is empty. The entry is only removed once the caller has it in
// hand: the read-then-rewrite happens under one lock acquisition so a
// PopNext racing a Submit never loses an entry (spec.md §4.5 "pop_next()
// -> Entry | Empty").
func (s *Store) PopNext() (Entry, bool, error) {
	var (
		head Entry
		ok   bool
	)
	err := s.queue.withLock(func() error {
		lines, err := s.readLines()
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		var decodeErr error
		head, decodeErr = decodeEntry(lines[0])
		if decodeErr != nil {
			// A malformed line can never be executed; drop it and surface
			// the invariant violation so the engine logs it, rather than
			// wedging the queue behind a line nothing can parse.
			if err := s.writeLines(lines[1:]); err != nil {
				return err
			}
			return fmt.Errorf("%w: %v", errs.ErrInternalInvariant, decodeErr)
		}
		ok = true
		return s.writeLines(lines[1:])
	})
	if err != nil {
		return Entry{}, false, err
	}
	return head, ok, nil
}

// Clear empties the queue file without touching the paused/closed/running
// flags (spec.md §4.5 "clear()").
func (s *Store) Clear() error {
	return s.queue.withLock(func() error {
		return s.writeLines(nil)
	})
}

// Pause sets the paused flag. The engine's control loop checks this flag
// between jobs, never mid-job (spec.md §4.5 "pause()/resume()").
func (s *Store) Pause() error { return s.setFlag("paused", true) }

// Resume clears the paused flag.
func (s *Store) Resume() error { return s.setFlag("paused", false) }

// Close sets the closed flag, after which Submit/SubmitBatch fail with
// errs.ErrQueueClosed until Reopen (spec.md §4.5 "close()/reopen()").
func (s *Store) Close() error { return s.setFlag("closed", true) }

// Reopen clears the closed flag.
func (s *Store) Reopen() error { return s.setFlag("closed", false) }

// Stop sets a distinct stop-request flag the engine polls. A job running
// when the engine sees the flag is cancelled (its process tree is
// killed), and the control loop then exits with the run marked stopped.
// Stop does not close or clear the queue.
func (s *Store) Stop() error { return s.setFlag("stop_requested", true) }

// StopRequested reports whether Stop has been called since the last
// ClearStopRequest.
func (s *Store) StopRequested() bool { return s.flagSet("stop_requested") }

// ClearStopRequest clears the stop-requested flag; the engine calls this
// once it has honored a stop, so the next run starts clean.
func (s *Store) ClearStopRequest() error { return s.setFlag("stop_requested", false) }

// SetRunning marks whether a job is currently executing, for Status()'s
// benefit and for external tooling that wants to know without parsing
// logs.
func (s *Store) SetRunning(v bool) error { return s.setFlag("running", v) }

// CurrentPIDLock exposes the mutual-exclusion lock so the engine (C7) can
// acquire it around job execution, including the dead-holder reclaim path.
func (s *Store) CurrentPIDLock() *currentPIDLock { return s.pidLock }

// Status reports the queue's current flags and depth.
func (s *Store) Status() (Status, error) {
	var st Status
	err := s.queue.withLock(func() error {
		lines, err := s.readLines()
		if err != nil {
			return err
		}
		st = Status{
			Paused:  s.flagSet("paused"),
			Closed:  s.flagSet("closed"),
			Running: s.flagSet("running"),
			Depth:   len(lines),
		}
		return nil
	})
	return st, err
}

func (s *Store) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path("queue.txt"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: read queue file: %w", err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

func (s *Store) writeLines(lines []string) error {
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	tmp := s.path("queue.txt.tmp")
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("queue: write queue file: %w", err)
	}
	return os.Rename(tmp, s.path("queue.txt"))
}

func (s *Store) flagSet(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *Store) setFlag(name string, v bool) error {
	if v {
		return os.WriteFile(s.path(name), nil, 0644)
	}
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
