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

// Package queue implements the Queue Store (C5, spec.md §4.5): an
// on-disk, project-scoped, append-only queue of command vectors, plus
// pause/closed/running flags and per-command lock acquisition.
package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entry is one queue record (spec.md §3 "Queue entry"). Entries are
// immutable once appended.
type Entry struct {
	SubmitterID uint64
	SubmittedAt int64
	Vector      []string
}

// encode renders e in the on-disk line format from spec.md §6 "Queue file
// format": "<submitter_id>:<epoch_seconds>:<command string>". The command
// string is the space-joined vector; because the core never re-parses it
// for execution (only for storage), this lossy join is acceptable so long
// as vectors are re-validated at pop time.
func (e Entry) encode() string {
	return fmt.Sprintf("%d:%d:%s", e.SubmitterID, e.SubmittedAt, strings.Join(e.Vector, " "))
}

// decodeEntry parses one queue line, rejecting embedded control
// characters (spec.md §6 "re-validated at pop time by rejecting entries
// with embedded control characters").
func decodeEntry(line string) (Entry, error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("malformed queue line: %q", line)
	}
	submitterID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed submitter id: %w", err)
	}
	submittedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed timestamp: %w", err)
	}
	if containsControl(parts[2]) {
		return Entry{}, fmt.Errorf("command string contains control characters")
	}
	vector := strings.Fields(parts[2])
	if len(vector) == 0 {
		return Entry{}, fmt.Errorf("empty command vector")
	}
	return Entry{SubmitterID: submitterID, SubmittedAt: submittedAt, Vector: vector}, nil
}

func containsControl(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\t' {
			return true
		}
	}
	return false
}

// NewEntry builds an Entry stamped with the current time.
func NewEntry(submitterID uint64, vector []string) Entry {
	return Entry{SubmitterID: submitterID, SubmittedAt: time.Now().Unix(), Vector: vector}
}
