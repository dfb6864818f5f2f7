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

package atomify

import (
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/talismancer/seqexec/internal/runner"
)

// collectTestIDs runs the collection step and returns the ordered test
// identifiers ("test_func" or "Class::test_method") pytest would run for
// file. It is a package variable so tests can substitute a fake collector
// without shelling out to a real interpreter.
//
// DESIGN Open Question #3: the collection step always uses the same
// post-enforcement launcher prefix the real invocation will use, so
// collection and execution never disagree on interpreter/launcher.
var collectTestIDs = defaultCollectTestIDs

var collectLineRe = regexp.MustCompile(`^(?:\S+::)*(\S+)$`)

func defaultCollectTestIDs(launcherPrefix []string, file string) ([]string, error) {
	args := append(append([]string{}, launcherPrefix[1:]...), file, "--collect-only", "-q")
	cmd := exec.Command(launcherPrefix[0], args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "=") || strings.Contains(line, "error") {
			continue
		}
		if !strings.Contains(line, "::") {
			continue
		}
		// Drop the leading "<file>::" so the id is relative to file.
		ids = append(ids, line[strings.Index(line, "::")+2:])
	}
	return ids, nil
}

// snapshotCallRe is the static detector for snapshot-comparison calls
// (spec.md §4.4 "Snapshot tests"): "presence of snapshot comparison calls".
var snapshotCallRe = regexp.MustCompile(`\bsnapshot\b|assert_match\(|\.assert_match\b`)

func atomizePytest(vector []string, idx int, entry runner.ToolEntry, opts Options) ([][]string, error) {
	rest := vector[idx+1:]

	snapshotUpdate := false
	var files, flags []string
	for _, a := range rest {
		switch {
		case a == "--snapshot-update":
			snapshotUpdate = true
		case a == "-k" || strings.HasPrefix(a, "-k="):
			// A -k selector collapses to a single non-atomized vector
			// (spec.md §4.4 "Inputs containing any of the following
			// collapse to a single non-atomized vector: a -k selector...").
			return [][]string{vector}, nil
		case strings.Contains(a, "::"):
			// Already atomized.
			return [][]string{vector}, nil
		case strings.HasPrefix(a, "-"):
			// other flags pass through untouched below
			flags = append(flags, a)
		default:
			files = append(files, a)
		}
	}

	expanded, err := expandFileArgs(files, entry.Extensions, entry.IgnoreFiles, opts.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if len(expanded) == 0 {
		return [][]string{vector}, nil
	}

	launcherPrefix := append([]string{}, vector[:idx+1]...)

	var ordered [][2]string // [file, testID]
	for _, f := range expanded {
		ids, err := collectTestIDs(launcherPrefix, f)
		if err != nil || len(ids) == 0 {
			// "an inability to enumerate tests" collapses to non-atomized
			// (spec.md §4.4).
			return [][]string{vector}, nil
		}
		for _, id := range ids {
			ordered = append(ordered, [2]string{f, id})
		}
	}

	if !snapshotUpdate {
		out := make([][]string, 0, len(ordered))
		for _, fid := range ordered {
			v := append(append([]string{}, launcherPrefix...), fid[0]+"::"+fid[1])
			out = append(out, append(v, flags...))
		}
		return out, nil
	}

	var snapshotUsing, regular [][2]string
	for _, fid := range ordered {
		if isSnapshotUsing(fid[0], fid[1]) {
			snapshotUsing = append(snapshotUsing, fid)
		} else {
			regular = append(regular, fid)
		}
	}

	var out [][]string
	// Snapshot-using tests are paired (two identifiers per vector),
	// retaining --snapshot-update, to amortize snapshot-library startup
	// cost (spec.md §4.4 "Pairing amortizes snapshot-library startup").
	for i := 0; i < len(snapshotUsing); i += 2 {
		v := append(append([]string{}, launcherPrefix...), snapshotUsing[i][0]+"::"+snapshotUsing[i][1])
		if i+1 < len(snapshotUsing) {
			v = append(v, snapshotUsing[i+1][0]+"::"+snapshotUsing[i+1][1])
		}
		v = append(v, flags...)
		v = append(v, "--snapshot-update")
		out = append(out, v)
	}
	// Regular tests run individually with --snapshot-update stripped, to
	// prevent accidental snapshot churn (spec.md §4.4).
	for _, fid := range regular {
		v := append(append([]string{}, launcherPrefix...), fid[0]+"::"+fid[1])
		out = append(out, append(v, flags...))
	}
	return out, nil
}

// isSnapshotUsing statically detects whether the named test function's
// body contains a snapshot-comparison call.
func isSnapshotUsing(file, testID string) bool {
	data, err := os.ReadFile(file)
	if err != nil {
		return false
	}
	funcName := testID
	if i := strings.LastIndex(testID, "::"); i >= 0 {
		funcName = testID[i+2:]
	}
	body, ok := extractFunctionBody(string(data), funcName)
	if !ok {
		return false
	}
	return snapshotCallRe.MatchString(body)
}

// extractFunctionBody returns the source text of "def <name>(...):" up to
// the next top-level "def " at the same or lesser indentation, a
// deliberately simple heuristic (no Python parser appears anywhere in the
// example corpus to ground a real one on).
func extractFunctionBody(source, name string) (string, bool) {
	marker := "def " + name + "("
	start := strings.Index(source, marker)
	if start < 0 {
		return "", false
	}
	rest := source[start:]
	next := strings.Index(rest[len(marker):], "\ndef ")
	if next < 0 {
		return rest, true
	}
	return rest[:len(marker)+next], true
}
