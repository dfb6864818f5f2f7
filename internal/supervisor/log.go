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
	"fmt"
	"os"
	"strings"
	"time"
)

// attemptLog accumulates one §4.1 "Log record" section: UTC timestamp,
// rewritten vector, per-PID peak RSS, captured streams, and the exit. It
// holds no system-wide memory snapshot. This log is the sole source of
// truth the Recorder's pytest parser (spec.md §4.6) reads from.
type attemptLog struct {
	path string
}

func newAttemptLog(path string) *attemptLog {
	return &attemptLog{path: path}
}

func (a *attemptLog) append(section string) {
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(section)
}

func (a *attemptLog) recordAttempt(vector []string, peaks map[int]int64, exitCode int, timedOut bool, timeoutS int, stdout, stderr []byte, start time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "=== ATTEMPT %s ===\n", start.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "VECTOR: %s\n", strings.Join(vector, " "))
	for pid, kb := range peaks {
		fmt.Fprintf(&b, "PEAK_RSS pid=%d kb=%d\n", pid, kb)
	}
	if timedOut {
		fmt.Fprintf(&b, "TIMEOUT: %ds\n", timeoutS)
	}
	fmt.Fprintf(&b, "EXIT_CODE: %d\n", exitCode)
	if len(stdout) > 0 {
		fmt.Fprintf(&b, "--- stdout ---\n%s\n", stdout)
	}
	if len(stderr) > 0 {
		fmt.Fprintf(&b, "--- stderr ---\n%s\n", stderr)
	}
	a.append(b.String())
}
