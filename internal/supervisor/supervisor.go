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

// Package supervisor implements the Process Supervisor (C1) and Memory
// Monitor (C2) from spec.md §4.1-§4.2: launch one command in a new
// process group, sample memory, enforce timeout and memory cap, kill the
// entire descendant tree, and produce a structured result record.
package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/talismancer/seqexec/internal/errs"
	"github.com/talismancer/seqexec/internal/logging"
)

const (
	// sampleInterval is the descendant/memory sampling tick (spec.md
	// §4.1 "Sampling is essential").
	sampleInterval = 50 * time.Millisecond

	// killGrace is the fixed grace period between the configured signal
	// and a forced individual kill of stragglers (spec.md §4.1 "Timeout").
	killGrace = 100 * time.Millisecond

	// settleDeadline bounds how long Reaped waits for the descendant set
	// to empty before broadcasting SIGKILL (spec.md §4.1 state machine).
	settleDeadline = 2500 * time.Millisecond

	// timeoutExitCode is the sentinel exit code for a timed-out attempt.
	timeoutExitCode = 124

	// cancelledExitCode is the sentinel exit code for a context-cancelled
	// attempt (spec.md §6 "Exit codes": "130 interrupted/stopped").
	cancelledExitCode = 130
)

// Options configures one Run call.
type Options struct {
	Vector     []string
	Timeout    time.Duration // 0 disables the timeout
	KillSignal unix.Signal
	Retries    int
	WantJSON   bool
	LogPath    string
	MemoryCapMB int // 0 disables the cap; passed through to a Memory Monitor sibling
}

// Result is the supervisor's result envelope (spec.md §4.1 "Result
// envelope").
type Result struct {
	Stdout       []byte
	Stderr       []byte
	ExitCode     int
	Peaks        map[int]int64 // pid -> peak RSS, KiB
	TimedOut     bool
	Cancelled    bool
	MemoryKilled bool
	AttemptsUsed int
}

// Supervisor runs Options.Retries+1 attempts of a command vector, each in
// its own process group, enforcing the configured timeout and memory cap.
type Supervisor struct {
	log *logging.Logger
}

// New builds a Supervisor logging through log.
func New(log *logging.Logger) *Supervisor {
	if log == nil {
		log = logging.Default("supervisor")
	}
	return &Supervisor{log: log}
}

// Run executes opts.Vector, retrying on non-zero exit up to
// opts.Retries+1 total attempts (spec.md §4.1 "Retry"). A zero exit stops
// the loop immediately.
func (s *Supervisor) Run(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty command vector", errs.ErrUsage)
	}
	sig := opts.KillSignal
	if sig == 0 {
		sig = unix.SIGTERM
	}

	attemptLogger := newAttemptLog(opts.LogPath)

	var last *Result
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		res, err := s.runOnce(ctx, opts, sig, attemptLogger)
		if err != nil {
			return nil, err
		}
		res.AttemptsUsed = attempt + 1
		last = res
		if res.ExitCode == 0 || res.Cancelled {
			break
		}
	}
	return last, nil
}

// runOnce is one Spawned -> Running -> {Exited|TimedOut->Terminating} ->
// Reaped attempt (spec.md §4.1 state machine).
func (s *Supervisor) runOnce(ctx context.Context, opts Options, sig unix.Signal, alog *attemptLog) (*Result, error) {
	start := time.Now()

	cmd := exec.Command(opts.Vector[0], opts.Vector[1:]...)
	cmd.SysProcAttr = newSysProcAttr()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", strings.Join(opts.Vector, " "), err)
	}
	rootPID := cmd.Process.Pid
	selfPID := os.Getpid()
	parentPID := os.Getppid()

	peaks := make(map[int]int64)
	known := map[int]struct{}{rootPID: {}}

	var memMon *exec.Cmd
	if opts.MemoryCapMB > 0 {
		var err error
		memMon, err = StartMemoryMonitor(rootPID, opts.MemoryCapMB, sampleInterval, opts.LogPath)
		if err != nil {
			s.log.With("pid", rootPID).Warnf("could not start memory monitor: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	var timedOut, cancelled bool
	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

loop:
	for {
		select {
		case err := <-done:
			s.sample(rootPID, known, peaks)
			exitCode := exitCodeOf(err)
			s.waitForEmpty(known, rootPID, selfPID, parentPID, sig)
			if memMon != nil {
				memMon.Process.Kill()
				memMon.Wait()
			}
			result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exitCode, Peaks: peaks}
			alog.recordAttempt(opts.Vector, peaks, exitCode, false, 0, result.Stdout, result.Stderr, start)
			return result, nil

		case <-deadline:
			timedOut = true
			s.killTree(known, rootPID, selfPID, parentPID, sig)
			time.Sleep(killGrace)
			s.sample(rootPID, known, peaks)
			s.forceKillStragglers(known, selfPID, parentPID)
			break loop

		case <-ctx.Done():
			cancelled = true
			s.killTree(known, rootPID, selfPID, parentPID, unix.SIGKILL)
			break loop

		case <-ticker.C:
			s.sample(rootPID, known, peaks)
		}
	}

	// Timed out or cancelled: wait for the process to actually exit so we
	// don't leak the goroutine, then settle the descendant set.
	<-done
	s.waitForEmpty(known, rootPID, selfPID, parentPID, unix.SIGKILL)
	if memMon != nil {
		memMon.Process.Kill()
		memMon.Wait()
	}

	exitCode := timeoutExitCode
	if cancelled {
		exitCode = cancelledExitCode
	}
	result := &Result{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		ExitCode:  exitCode,
		Peaks:     peaks,
		TimedOut:  timedOut,
		Cancelled: cancelled,
	}
	alog.recordAttempt(opts.Vector, peaks, result.ExitCode, timedOut, int(opts.Timeout/time.Second), result.Stdout, result.Stderr, start)
	return result, nil
}

// sample enumerates root's current descendants, unions them into known
// (spec.md §4.1 "known-descendants set"), and records each live PID's
// current RSS if it's a new peak.
func (s *Supervisor) sample(root int, known map[int]struct{}, peaks map[int]int64) {
	desc, err := descendantsOf(root)
	if err != nil {
		return
	}
	desc[root] = struct{}{}
	for pid := range desc {
		known[pid] = struct{}{}
		if kb, ok := rssKB(pid); ok {
			if kb > peaks[pid] {
				peaks[pid] = kb
			}
		}
	}
}

// killTree signals the process group, excluding the supervisor's own PID,
// its parent, and its own group leader (spec.md §4.1 "Self-exclusion").
func (s *Supervisor) killTree(known map[int]struct{}, rootPID, selfPID, parentPID int, sig unix.Signal) {
	if !excluded(rootPID, selfPID, parentPID) {
		// Negative PID signals the whole process group in one call.
		unix.Kill(-rootPID, sig)
	}
}

// forceKillStragglers signals any still-live descendant individually,
// used when the group signal doesn't reach everyone (spec.md §4.1
// "Descendant tracking": "cleanup can signal them individually if the
// group signal fails").
func (s *Supervisor) forceKillStragglers(known map[int]struct{}, selfPID, parentPID int) {
	for pid := range known {
		if excluded(pid, selfPID, parentPID) {
			continue
		}
		if isAlive(pid) {
			unix.Kill(pid, unix.SIGKILL)
		}
	}
}

// waitForEmpty blocks (bounded by settleDeadline) until no PID in known is
// alive, broadcasting SIGKILL to any straggler past the deadline (spec.md
// §4.1 "Reaped transitions only when the descendant set is empty").
func (s *Supervisor) waitForEmpty(known map[int]struct{}, rootPID, selfPID, parentPID int, sig unix.Signal) {
	deadline := time.Now().Add(settleDeadline)
	for time.Now().Before(deadline) {
		anyAlive := false
		for pid := range known {
			if excluded(pid, selfPID, parentPID) {
				continue
			}
			if isAlive(pid) {
				anyAlive = true
			}
		}
		if !anyAlive {
			return
		}
		time.Sleep(sampleInterval)
	}
	s.forceKillStragglers(known, selfPID, parentPID)
}

// excluded implements spec.md §4.1 "Self-exclusion": the supervisor never
// signals its own PID, its parent PID, or its own process-group leader.
func excluded(pid, selfPID, parentPID int) bool {
	if pid == selfPID || pid == parentPID {
		return true
	}
	if pgid, err := unix.Getpgid(selfPID); err == nil && pid == pgid {
		return true
	}
	return false
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
