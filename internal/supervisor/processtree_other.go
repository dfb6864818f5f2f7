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

//go:build !linux
// +build !linux

package supervisor

import (
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// descendantsOf falls back to "ps -o pid,ppid -ax" on non-Linux POSIX
// systems, since there is no /proc to walk (spec.md §4.1 "On systems where
// this is not possible, the supervisor must still track the full
// descendant tree").
func descendantsOf(root int) (map[int]struct{}, error) {
	out, err := exec.Command("ps", "-o", "pid,ppid", "-ax").Output()
	if err != nil {
		return nil, err
	}
	children := make(map[int][]int)
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
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

func isAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

func rssKB(pid int) (int64, bool) {
	return 0, false
}
