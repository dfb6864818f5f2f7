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
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// namedSignals is the portable signal set SEP accepts by name, replacing
// the source's ad-hoc signal-name matching (spec.md §9).
var namedSignals = map[string]unix.Signal{
	"HUP":  unix.SIGHUP,
	"INT":  unix.SIGINT,
	"QUIT": unix.SIGQUIT,
	"ABRT": unix.SIGABRT,
	"KILL": unix.SIGKILL,
	"USR1": unix.SIGUSR1,
	"USR2": unix.SIGUSR2,
	"TERM": unix.SIGTERM,
	"CONT": unix.SIGCONT,
	"STOP": unix.SIGSTOP,
}

// ParseSignal accepts "TERM", "SIGTERM", or a bare signal number, and
// returns the corresponding unix.Signal.
func ParseSignal(s string) (unix.Signal, error) {
	trimmed := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "SIG")
	if sig, ok := namedSignals[trimmed]; ok {
		return sig, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return unix.Signal(n), nil
	}
	return 0, fmt.Errorf("invalid signal %q", s)
}
