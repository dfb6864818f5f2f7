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

// Package atomify implements the Tool Atomifier (C4, spec.md §4.4): given
// a command vector, return an ordered list of atomic (one-file or
// one-test) command vectors that together are a valid replacement for the
// input under the tool's semantics. It must never widen the caller's
// intent: for unknown tools, or tools flagged no-atomize, the result is
// exactly the input vector.
package atomify

import (
	"strings"

	"github.com/talismancer/seqexec/internal/runner"
)

// Options configures one Atomify call.
type Options struct {
	Enabled          bool // --atomify / $ATOMIFY
	EnableSecondTier bool // --enable-second-tier / $ENABLE_SECOND_TIER
	ProjectRoot      string
}

// Atomify returns the ordered list of atomic vectors that replace vector.
// A single-element result means "do not split" (spec.md §4.4 "For unknown
// tools, or known tools flagged no-atomize, the list is exactly the input
// vector").
func Atomify(vector []string, opts Options) ([][]string, error) {
	if len(vector) == 0 || !opts.Enabled {
		return [][]string{vector}, nil
	}

	idx, entry, ok := locateTool(vector)
	if !ok {
		return [][]string{vector}, nil
	}
	if entry.Tier == runner.Tier2 && !opts.EnableSecondTier {
		// Safety principle (spec.md §4.3): when uncertain, do not atomize.
		return [][]string{vector}, nil
	}

	switch entry.AtomizationRule {
	case runner.RuleNone:
		return [][]string{vector}, nil

	case runner.RulePerFile:
		return atomizePerFile(vector, idx, entry, opts, false)

	case runner.RulePerDirectory:
		return atomizePerFile(vector, idx, entry, opts, true)

	case runner.RulePerTest:
		return atomizePytest(vector, idx, entry, opts)

	case runner.RulePerTestMethod:
		return atomizeUnittest(vector, idx, entry, opts)

	default:
		return [][]string{vector}, nil
	}
}

// locateTool finds the catalog entry governing vector, looking first at
// vector[0] (covers bare tools and launchers that are themselves tools,
// e.g. "go"), then skipping up to three leading launcher/"run" tokens
// (covers post-Enforcer forms like "uv run pytest ..."), per spec.md
// §4.4 "after-tool: for uv run <tool> …, scan after the tool name".
func locateTool(vector []string) (int, runner.ToolEntry, bool) {
	if entry, ok := runner.Catalog[vector[0]]; ok {
		return 0, entry, true
	}
	i := 0
	for i < len(vector) && i < 3 && (runner.ApprovedLaunchers[vector[i]] || vector[i] == "run") {
		i++
	}
	if i < len(vector) {
		if entry, ok := runner.Catalog[vector[i]]; ok {
			return i, entry, true
		}
	}
	return 0, runner.ToolEntry{}, false
}

// fileArgs discovers vector's file arguments per entry.FileArgPosition
// (spec.md §4.4 "File-argument discovery"), excluding option-bearing
// tokens and the tool's declared subcommands.
func fileArgs(vector []string, idx int, entry runner.ToolEntry) (prefix, args []string) {
	rest := vector[idx+1:]

	start := 0
	for start < len(rest) && containsStr(entry.KnownSubcommands, rest[start]) {
		start++
	}
	prefix = append(append([]string{}, vector[:idx+1]...), rest[:start]...)
	rest = rest[start:]

	if entry.FileArgPosition == runner.PosAfterFilesFlag {
		filesIdx := indexOfStr(rest, "--files")
		if filesIdx == -1 {
			return prefix, nil
		}
		var files []string
		for _, a := range rest[filesIdx+1:] {
			if strings.HasPrefix(a, "-") {
				break
			}
			files = append(files, a)
		}
		// Keep everything up to and including "--files" itself in the
		// prefix, so each split-out invocation still carries the flag
		// (spec.md §4.4 "after-files-flag": "pre-commit run --files …").
		prefix = append(append([]string{}, prefix...), rest[:filesIdx+1]...)
		return prefix, files
	}

	var files []string
	for _, a := range rest {
		if strings.HasPrefix(a, "-") {
			continue
		}
		files = append(files, a)
	}
	return prefix, files
}

func atomizePerFile(vector []string, idx int, entry runner.ToolEntry, opts Options, byDirectory bool) ([][]string, error) {
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

	if !byDirectory {
		out := make([][]string, 0, len(files))
		for _, f := range files {
			out = append(out, append(append([]string{}, prefix...), f))
		}
		return out, nil
	}

	groups := map[string][]string{}
	var order []string
	for _, f := range files {
		dir := dirOf(f)
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], f)
	}
	out := make([][]string, 0, len(order))
	for _, dir := range order {
		out = append(out, append(append([]string{}, prefix...), groups[dir]...))
	}
	return out, nil
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func indexOfStr(list []string, s string) int {
	for i, x := range list {
		if x == s {
			return i
		}
	}
	return -1
}
