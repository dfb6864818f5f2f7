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

// Package engine implements the Queue Engine (C7, spec.md §4.7): the
// control loop that dequeues, acquires the current-pid lock, invokes the
// Process Supervisor, and records results. The read model (list, view,
// watch) is served by internal/recorder directly, not by this package.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/talismancer/seqexec/internal/config"
	"github.com/talismancer/seqexec/internal/logging"
	"github.com/talismancer/seqexec/internal/queue"
	"github.com/talismancer/seqexec/internal/recorder"
	"github.com/talismancer/seqexec/internal/supervisor"
)

// pollInterval is how often the control loop re-checks paused/empty state
// (spec.md §5 "Suspension points": "polling sleeps in the queue engine").
const pollInterval = 100 * time.Millisecond

// Engine drives the single-threaded control loop described in spec.md
// §4.7. One Engine is constructed per `--queue-start` invocation.
type Engine struct {
	cfg   *config.Config
	store *queue.Store
	rec   *recorder.Recorder
	sup   *supervisor.Supervisor
	log   *logging.Logger
}

// New builds an Engine over store and rec, using cfg for timeouts and
// signal policy.
func New(cfg *config.Config, store *queue.Store, rec *recorder.Recorder, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default("engine")
	}
	return &Engine{cfg: cfg, store: store, rec: rec, sup: supervisor.New(log.With("source", "supervisor")), log: log}
}

// Run executes the control loop until the queue is closed and drained,
// ctx is cancelled, Stop is observed, or the pipeline timeout elapses
// (spec.md §4.7 "Control loop"). It returns the finished run's ID.
func (e *Engine) Run(ctx context.Context, runCtx recorder.Context) (string, error) {
	pipelineTimeout := e.cfg.PipelineTimeout
	if pipelineTimeout <= 0 {
		pipelineTimeout = config.DefaultPipelineTimeout
	}
	deadline := time.Now().Add(pipelineTimeout)

	runID, err := e.rec.StartRun(runCtx, time.Now())
	if err != nil {
		return "", fmt.Errorf("engine: start run: %w", err)
	}
	if err := e.store.SetRunning(false); err != nil {
		e.log.Warnf("could not clear running flag: %v", err)
	}

	aggregateExit := 0
	status := recorder.RunCompleted

loop:
	for {
		select {
		case <-ctx.Done():
			status = recorder.RunStopped
			break loop
		default:
		}

		if time.Now().After(deadline) {
			e.log.Warn("pipeline timeout elapsed; draining queue")
			if err := e.store.Clear(); err != nil {
				e.log.Warnf("could not drain queue on pipeline timeout: %v", err)
			}
			status = recorder.RunStopped
			break loop
		}

		st, err := e.store.Status()
		if err != nil {
			return runID, fmt.Errorf("engine: status: %w", err)
		}
		if st.Paused {
			time.Sleep(pollInterval)
			continue
		}
		if e.store.StopRequested() {
			status = recorder.RunStopped
			_ = e.store.ClearStopRequest()
			break loop
		}

		entry, ok, err := e.store.PopNext()
		if err != nil {
			e.log.Errorf("pop_next: %v", err)
			time.Sleep(pollInterval)
			continue
		}
		if !ok {
			if st.Closed {
				// Closed and drained: nothing more can be submitted.
				break loop
			}
			time.Sleep(pollInterval)
			continue
		}

		exitCode, err := e.runJob(ctx, runID, entry)
		if err != nil {
			e.log.Errorf("job failed: %v", err)
		}
		if exitCode != 0 {
			aggregateExit = exitCode
		}
	}

	if err := e.rec.FinishRun(runID, aggregateExit, status, time.Now()); err != nil {
		return runID, fmt.Errorf("engine: finish run: %w", err)
	}
	return runID, nil
}

// runJob executes one dequeued entry: acquire the current-pid lock
// (recovering from a dead holder), start_job, invoke the Supervisor,
// finish_job, release the lock (spec.md §4.7 steps 3-7).
func (e *Engine) runJob(ctx context.Context, runID string, entry queue.Entry) (int, error) {
	acquired, err := e.store.CurrentPIDLock().Acquire()
	if err != nil {
		return 0, fmt.Errorf("acquire current-pid lock: %w", err)
	}
	if !acquired {
		// Another job is genuinely running (live holder): this should
		// not happen inside a single-threaded control loop, but if it
		// does, requeue the entry rather than executing concurrently
		// (spec.md §5 "Shared-resource policy").
		_ = e.store.Submit(entry)
		return 0, fmt.Errorf("current-pid lock held by a live process; requeued entry")
	}
	defer func() {
		if err := e.store.CurrentPIDLock().Release(); err != nil {
			e.log.Warnf("could not release current-pid lock: %v", err)
		}
	}()

	if err := e.store.SetRunning(true); err != nil {
		e.log.Warnf("could not set running flag: %v", err)
	}
	defer func() {
		if err := e.store.SetRunning(false); err != nil {
			e.log.Warnf("could not clear running flag: %v", err)
		}
	}()

	now := time.Now()
	jobID, err := e.rec.StartJob(runID, entry.Vector, now)
	if err != nil {
		return 0, fmt.Errorf("start_job: %w", err)
	}

	sig := unix.SIGTERM
	if e.cfg.KillSignal != "" {
		if parsed, err := supervisor.ParseSignal(e.cfg.KillSignal); err == nil {
			sig = parsed
		}
	}
	logPath := e.jobLogPath(jobID)

	// Watch for a concurrent stop() request (issued by a separate CLI
	// invocation against the same on-disk queue) and cancel the job's
	// context so the Supervisor signals its tree immediately, rather than
	// waiting for the job to finish on its own (spec.md §4.7
	// "Cancellation": "stop() signals the current job's supervisor
	// tree").
	jobCtx, cancel := context.WithCancel(ctx)
	stopWatch := make(chan struct{})
	go func() {
		defer close(stopWatch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				if e.store.StopRequested() {
					cancel()
					return
				}
			}
		}
	}()
	defer func() { cancel(); <-stopWatch }()

	result, err := e.sup.Run(jobCtx, supervisor.Options{
		Vector:      entry.Vector,
		Timeout:     e.cfg.Timeout,
		KillSignal:  sig,
		Retries:     e.cfg.Retries,
		LogPath:     logPath,
		MemoryCapMB: e.cfg.MemoryLimitMB,
	})
	if err != nil {
		return 0, fmt.Errorf("supervisor run: %w", err)
	}

	if ferr := e.rec.FinishJob(runID, jobID, result.ExitCode, logPath, time.Now()); ferr != nil {
		e.log.Errorf("finish_job: %v", ferr)
	}
	return result.ExitCode, nil
}

func (e *Engine) jobLogPath(jobID string) string {
	return filepath.Join(e.cfg.LogDir, "sep_"+jobID+".log")
}

// Stop requests that the control loop halt (spec.md §4.7 "Cancellation"):
// the in-flight job, if any, is cancelled rather than waited for, and the
// loop exits with the run marked stopped. It does not close or clear the
// queue itself; callers that want a full drain should also call
// Store.Clear.
func (e *Engine) Stop() error {
	return e.store.Stop()
}
