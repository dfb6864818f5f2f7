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

// Package errs defines the sentinel error taxonomy shared across SEP's
// components, so the CLI boundary can map any failure to the right exit
// code and [TAG]-prefixed diagnostic line without string matching.
package errs

import "errors"

// Sentinel errors. Raise sites wrap these with fmt.Errorf("...: %w", Err...)
// and callers unwrap with errors.Is.
var (
	// ErrUsage covers malformed flags and unknown subcommands.
	ErrUsage = errors.New("usage error")

	// ErrQueueClosed is returned when a submission is attempted while the
	// queue's closed flag is set.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrLockBusy means the sidecar lock could not be acquired within the
	// retry budget. Retryable.
	ErrLockBusy = errors.New("lock busy")

	// ErrUnsupportedLauncher means the vector leads with a launcher not in
	// the approved set.
	ErrUnsupportedLauncher = errors.New("unsupported launcher")

	// ErrUnrecognizedTool means the first token isn't in the catalog and
	// only-verified mode is set.
	ErrUnrecognizedTool = errors.New("unrecognized tool")

	// ErrTimeout corresponds to supervisor exit 124.
	ErrTimeout = errors.New("command timed out")

	// ErrMemoryCap means the memory monitor killed a subtree.
	ErrMemoryCap = errors.New("memory cap exceeded")

	// ErrInternalInvariant marks a self-healed invariant violation, e.g. a
	// dead lock holder found with a running-job record still present.
	ErrInternalInvariant = errors.New("internal invariant violation")
)

// Tag returns the component diagnostic prefix for err, or "" if err does
// not match any known sentinel. Mirrors spec.md §7's
// "[SEQ-QUEUE]"/"[wait_all]"/"[MEMORY-MONITOR]" style component tags.
func Tag(err error) string {
	switch {
	case errors.Is(err, ErrQueueClosed), errors.Is(err, ErrLockBusy):
		return "[SEQ-QUEUE]"
	case errors.Is(err, ErrUnsupportedLauncher), errors.Is(err, ErrUnrecognizedTool):
		return "[RUNNER-ENFORCER]"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrMemoryCap):
		return "[wait_all]"
	case errors.Is(err, ErrInternalInvariant):
		return "[SEQ-QUEUE]"
	case errors.Is(err, ErrUsage):
		return "[sep]"
	default:
		return "[sep]"
	}
}

// ExitCode maps a sentinel error to the client exit code from spec.md §6.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 1
	case errors.Is(err, ErrQueueClosed), errors.Is(err, ErrLockBusy):
		return 1
	case errors.Is(err, ErrTimeout):
		return 124
	default:
		return 1
	}
}
