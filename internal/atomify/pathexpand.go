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
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// universalExclusions is the cache/build directory set every expansion
// subtracts, regardless of tool (spec.md §4.4 "Path expansion").
var universalExclusions = map[string]bool{
	".git":            true,
	"__pycache__":     true,
	".venv":           true,
	"venv":            true,
	"env":             true,
	"node_modules":    true,
	"build":           true,
	"dist":            true,
	".mypy_cache":     true,
	".pytest_cache":   true,
	".ruff_cache":     true,
	".tox":            true,
}

// expandFileArgs classifies and expands each raw file argument
// (regular file / directory / glob), in parallel across arguments via
// errgroup (SPEC_FULL.md §4.4 "Parallel path expansion"), then re-sorts
// lexicographically so the ordering invariant (spec.md §4.4 "Ordering")
// holds regardless of goroutine completion order. Results are filtered
// through the universal exclusion set and the tool's ignore files.
func expandFileArgs(args []string, extensions []string, ignoreFiles []string, projectRoot string) ([]string, error) {
	perArg := make([][]string, len(args))
	g := new(errgroup.Group)
	for i, arg := range args {
		i, arg := i, arg
		g.Go(func() error {
			files, err := expandOne(arg, extensions)
			if err != nil {
				return err
			}
			perArg[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ignored := loadIgnorePatterns(projectRoot, ignoreFiles)

	seen := make(map[string]bool)
	var out []string
	for _, files := range perArg {
		for _, f := range files {
			if seen[f] || matchesIgnore(f, ignored) {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, nil
}

// expandOne classifies a single raw argument.
func expandOne(arg string, extensions []string) ([]string, error) {
	if strings.ContainsAny(arg, "*?[") {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, m := range matches {
			if excludedPath(m) {
				continue
			}
			out = append(out, m)
		}
		return out, nil
	}

	info, err := os.Stat(arg)
	if err != nil {
		// Not a file on disk (e.g. a test-id-bearing argument); pass
		// through unexpanded rather than failing atomization outright.
		return []string{arg}, nil
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	var out []string
	err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if excludedPath(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExtension(path, extensions) {
			return nil
		}
		if excludedPath(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func excludedPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if universalExclusions[part] {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads the first ignore file (in priority order) that
// exists under root, falling back to .gitignore (spec.md §4.4 "the
// tool's ignore file ... fallback to .gitignore").
func loadIgnorePatterns(root string, ignoreFiles []string) []string {
	for _, name := range ignoreFiles {
		path := filepath.Join(root, name)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		var patterns []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		return patterns
	}
	return nil
}

// matchesIgnore is a pragmatic subset of gitignore matching: exact
// basename match or glob match against the path or its basename. It does
// not implement full gitignore semantics (negation, directory-only
// anchors), which no library in the example corpus provides either.
func matchesIgnore(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
		if strings.Contains(path, "/"+strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
