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
	"regexp"
	"strings"

	"github.com/talismancer/seqexec/internal/runner"
)

var (
	classRe  = regexp.MustCompile(`(?m)^class\s+(\w+)\s*\(`)
	methodRe = regexp.MustCompile(`(?m)^(\s+)def\s+(test_\w+)\s*\(`)
)

// atomizeUnittest extracts "TestClass.test_method" identifiers by static
// analysis of each file (spec.md §4.4 "Unittest atomization (tier-2,
// gated)"), emitting one vector per identifier in "module.Class.method"
// dotted form. On extraction failure it falls back to the unsplit vector,
// per component, never per call: any file that fails to extract collapses
// the *entire* result to the original vector, since spec.md requires the
// atomifier to never widen or otherwise partially apply the caller's
// intent.
func atomizeUnittest(vector []string, idx int, entry runner.ToolEntry, opts Options) ([][]string, error) {
	prefix, rawArgs := fileArgs(vector, idx, entry)
	if len(rawArgs) == 0 {
		return [][]string{vector}, nil
	}
	files, err := expandFileArgs(rawArgs, entry.Extensions, entry.IgnoreFiles, opts.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return [][]string{vector}, nil
	}

	var ids []string
	for _, f := range files {
		fileIDs, ok := extractUnittestIDs(f)
		if !ok {
			return [][]string{vector}, nil
		}
		ids = append(ids, fileIDs...)
	}

	out := make([][]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, append(append([]string{}, prefix...), id))
	}
	return out, nil
}

// extractUnittestIDs returns "module.Class.method" identifiers for every
// class declared with a parenthesized base list (e.g. "(unittest.TestCase)")
// whose test_ methods are indented under it in file. A class declared
// without a base list is not matched.
func extractUnittestIDs(file string) ([]string, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}
	module := moduleNameOf(file)
	source := string(data)

	classMatches := classRe.FindAllStringSubmatchIndex(source, -1)
	if len(classMatches) == 0 {
		return nil, false
	}

	var ids []string
	for ci, m := range classMatches {
		className := source[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(source)
		if ci+1 < len(classMatches) {
			bodyEnd = classMatches[ci+1][0]
		}
		body := source[bodyStart:bodyEnd]
		for _, mm := range methodRe.FindAllStringSubmatch(body, -1) {
			ids = append(ids, module+"."+className+"."+mm[2])
		}
	}
	if len(ids) == 0 {
		return nil, false
	}
	return ids, true
}

func moduleNameOf(file string) string {
	base := file
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".py")
}
