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

//go:build linux
// +build linux

package supervisor

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// descendantsOf walks /proc to find every live descendant of root,
// transitively. Sampling ticks call this repeatedly (spec.md §4.1
// "Descendant tracking") so short-lived grandchildren are caught at least
// once even if they exit between ticks.
func descendantsOf(root int) (map[int]struct{}, error) {
	parentOf, err := readProcParents()
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int, len(parentOf))
	for pid, ppid := range parentOf {
		children[ppid] = append(children[ppid], pid)
	}

	seen := make(map[int]struct{})
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return seen, nil
}

// readProcParents returns pid -> ppid for every process currently visible
// in /proc.
func readProcParents() (map[int]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid, ok := readStatPPID(pid)
		if !ok {
			continue
		}
		out[pid] = ppid
	}
	return out, nil
}

// readStatPPID parses field 4 (ppid) of /proc/<pid>/stat. The comm field
// (field 2) is parenthesized and may itself contain spaces or parens, so
// parsing starts after the last ')'.
func readStatPPID(pid int) (int, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, false
	}
	s := string(data)
	close := strings.LastIndexByte(s, ')')
	if close < 0 || close+2 >= len(s) {
		return 0, false
	}
	fields := strings.Fields(s[close+2:])
	// fields[0] is state; fields[1] is ppid.
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}

// isAlive reports whether pid refers to a live process, via signal 0.
func isAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// rssKB reads VmRSS, in KiB, from /proc/<pid>/status. It is the Memory
// Monitor's only accounting source; no cgroup is consulted (SPEC_FULL.md §4.2).
func rssKB(pid int) (int64, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb, true
	}
	return 0, false
}
