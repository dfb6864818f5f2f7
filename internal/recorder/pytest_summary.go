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

package recorder

import (
	"os"
	"regexp"
	"strconv"
)

// The four counters below match pytest's trailing summary line, e.g.
// "3 failed, 7 passed, 1 skipped, 2 errors in 4.21s" (any subset of the
// categories may be absent). Extraction is best-effort: a log that never
// produced this line simply yields no summary (spec.md §4.6 "Extraction
// failure is non-fatal").
var (
	failedCountRe  = regexp.MustCompile(`(\d+) failed`)
	passedCountRe  = regexp.MustCompile(`(\d+) passed`)
	skippedCountRe = regexp.MustCompile(`(\d+) skipped`)
	errorCountRe   = regexp.MustCompile(`(\d+) error`)
	failedTestRe   = regexp.MustCompile(`(?m)^FAILED (\S+)`)
)

// extractPytestSummary scans a supervisor log file for pytest's summary
// line and FAILED entries (spec.md §4.6 "Pytest summary extraction").
// Returns nil, non-fatal, if the log can't be read or no summary line is
// found.
func extractPytestSummary(logPath string) *PytestSummary {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return nil
	}
	text := string(data)

	var s PytestSummary
	found := false
	if m := failedCountRe.FindStringSubmatch(text); m != nil {
		s.Failed, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := passedCountRe.FindStringSubmatch(text); m != nil {
		s.Passed, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := skippedCountRe.FindStringSubmatch(text); m != nil {
		s.Skipped, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := errorCountRe.FindStringSubmatch(text); m != nil {
		s.Errors, _ = strconv.Atoi(m[1])
		found = true
	}
	if !found {
		return nil
	}
	s.Total = s.Passed + s.Failed + s.Skipped + s.Errors

	for _, m := range failedTestRe.FindAllStringSubmatch(text, -1) {
		s.FailedTests = append(s.FailedTests, m[1])
	}
	return &s
}
