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
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/talismancer/seqexec/internal/logging"
)

// MemoryMonitorSubcommand is the hidden argv[1] used to re-exec the
// current binary as the Memory Monitor's own OS process (spec.md §5
// "The Memory Monitor runs as a sibling OS process of the supervised
// subtree; it does not share address space with the engine").
const MemoryMonitorSubcommand = "__sep-memory-monitor__"

// StartMemoryMonitor launches the current binary re-invoked with
// MemoryMonitorSubcommand, watching targetPID as a sibling OS process.
// The returned *exec.Cmd is owned by the caller, who must Wait() it.
func StartMemoryMonitor(targetPID, capMB int, interval time.Duration, logPath string) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(self,
		MemoryMonitorSubcommand,
		strconv.Itoa(targetPID),
		strconv.Itoa(capMB),
		interval.String(),
		logPath,
	)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// RunMemoryMonitorMain is the entrypoint executed when the binary is
// invoked as MemoryMonitorSubcommand (internal/cli wires this up before
// subcommand dispatch). It implements the Memory Monitor (C2) contract
// from spec.md §4.2: every interval, compute the RSS of target and each
// descendant; if any single process exceeds capMB, signal the target's
// whole tracked tree (see Watch).
func RunMemoryMonitorMain(args []string) int {
	if len(args) != 4 {
		fmt.Fprintln(os.Stderr, "[MEMORY-MONITOR] usage: <pid> <cap_mb> <interval> <log_path>")
		return 1
	}
	pid, err1 := strconv.Atoi(args[0])
	capMB, err2 := strconv.Atoi(args[1])
	interval, err3 := time.ParseDuration(args[2])
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Fprintln(os.Stderr, "[MEMORY-MONITOR] invalid arguments")
		return 1
	}
	logPath := args[3]
	log := logging.Default("memory-monitor")
	mon := &MemoryMonitor{log: log, logPath: logPath}
	mon.Watch(pid, capMB, interval)
	return 0
}

// MemoryMonitor implements C2: periodic per-process memory cap
// enforcement over a target PID's descendant tree.
type MemoryMonitor struct {
	log     *logging.Logger
	logPath string
}

// Watch runs until targetPID is no longer alive (spec.md §4.2
// "Lifecycle"), checking every interval. As soon as any single process's
// RSS exceeds capMB it kills (SIGTERM, then SIGKILL after 2s) the target's
// process group and every tracked descendant, not only the offender's own
// subtree, and then returns. The cap
// is per-process, not per-tree (spec.md §4.2 "Policy" and DESIGN.md Open
// Question #2): a tree whose individual processes each stay under the cap
// is permitted even if their sum is large.
func (m *MemoryMonitor) Watch(targetPID, capMB int, interval time.Duration) {
	if interval <= 0 {
		interval = sampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if !isAlive(targetPID) {
			return
		}
		desc, err := descendantsOf(targetPID)
		if err != nil {
			m.logLine(fmt.Sprintf("CHECK pid=%d status=enum_error err=%v", targetPID, err))
			continue
		}
		desc[targetPID] = struct{}{}

		var offender int
		var offenderKB int64
		for pid := range desc {
			kb, ok := rssKB(pid)
			if !ok {
				continue
			}
			if capMB > 0 && kb > int64(capMB)*1024 {
				offender = pid
				offenderKB = kb
				break
			}
		}
		if offender == 0 {
			m.logLine(fmt.Sprintf("CHECK pid=%d status=ok", targetPID))
			continue
		}

		m.logLine(fmt.Sprintf("KILL pid=%d offender=%d rss_kb=%d cap_mb=%d", targetPID, offender, offenderKB, capMB))
		unix.Kill(-targetPID, unix.SIGTERM)
		for pid := range desc {
			unix.Kill(pid, unix.SIGTERM)
		}
		time.Sleep(2 * time.Second)
		for pid := range desc {
			if isAlive(pid) {
				unix.Kill(pid, unix.SIGKILL)
			}
		}
		return
	}
}

func (m *MemoryMonitor) logLine(line string) {
	if m.logPath == "" {
		m.log.Debug(line)
		return
	}
	f, err := os.OpenFile(m.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "[MEMORY-MONITOR] %s %s\n", time.Now().UTC().Format(time.RFC3339), line)
}
