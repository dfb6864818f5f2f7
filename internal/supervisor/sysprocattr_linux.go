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
	"syscall"

	"golang.org/x/sys/unix"
)

// newSysProcAttr places the child in its own session/process group before
// exec (spec.md §4.1 "Process group isolation") and arranges for the
// kernel to kill it if the supervisor itself dies, generalizing the
// teacher's "kill sandbox if parent process exits in attached mode"
// (runsc/sandbox/sandbox.go: cmd.SysProcAttr.Pdeathsig = unix.SIGKILL).
func newSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}
