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

package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/talismancer/seqexec/internal/errs"
)

// Status is the outcome tag for one Enforce call (spec.md §4.3
// "Contract").
type Status int

const (
	// StatusUnchanged: launcher already canonical, or tool unknown with
	// enforcement disabled or permissive.
	StatusUnchanged Status = iota
	// StatusRewritten: an approved launcher was prefixed.
	StatusRewritten
	// StatusRejected: vector begins with a launcher not in the approved set.
	StatusRejected
	// StatusSkipped: first token unrecognized and only-verified is set.
	StatusSkipped
)

// Outcome is the Enforcer's result for one vector.
type Outcome struct {
	Vector []string
	Status Status
}

func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusRewritten:
		return "rewritten"
	case StatusRejected:
		return "rejected (unsupported launcher)"
	case StatusSkipped:
		return "skipped (unrecognized tool)"
	default:
		return "unknown"
	}
}

// recognizedUnsupportedLaunchers are launcher-shaped first tokens that
// Enforce knows about but does not trust to be serial-safe (spec.md §4.3
// outcome (c), E5 "poetry run pytest").
// npm is deliberately absent here: it is rewritten to pnpm below, not
// rejected (spec.md §4.3 rewrite rule "npm run X -> pnpm run X").
var recognizedUnsupportedLaunchers = map[string]bool{
	"poetry": true,
	"pipenv": true,
	"conda":  true,
	"yarn":   true,
	"rye":    true,
	"hatch":  true,
}

// Options configures one Enforce call.
type Options struct {
	Enabled      bool // --enforce-runners / $ENFORCE_RUNNERS
	OnlyVerified bool // --only-verified / $ONLY_VERIFIED
	ProjectRoot  string
}

// Enforce implements the Runner Enforcer contract (spec.md §4.3): rewrite
// bare invocations to their canonical launcher, or reject/skip per the
// static catalog. Enforce(Enforce(v)) == Enforce(v) for all v (spec.md §8
// property 4), because every rewrite rule below produces a vector whose
// first token is already an approved launcher, which short-circuits on
// the second pass.
func Enforce(vector []string, opts Options) (Outcome, error) {
	if len(vector) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty command vector", errs.ErrUsage)
	}
	if !opts.Enabled {
		return Outcome{Vector: vector, Status: StatusUnchanged}, nil
	}

	first := vector[0]

	if ApprovedLaunchers[first] {
		return Outcome{Vector: vector, Status: StatusUnchanged}, nil
	}

	if recognizedUnsupportedLaunchers[first] {
		return Outcome{Vector: vector, Status: StatusRejected}, fmt.Errorf("%w: %q", errs.ErrUnsupportedLauncher, first)
	}

	if entry, ok := Catalog[first]; ok {
		// Launcher rewriting applies to tier-1 and tier-2 tools alike;
		// tier gating only affects whether the Atomifier (C4) is allowed
		// to split the resulting vector.
		rewritten := append([]string{entry.PreferredLauncher, "run", first}, vector[1:]...)
		return Outcome{Vector: rewritten, Status: StatusRewritten}, nil
	}

	if first == "python" && len(vector) >= 3 && vector[1] == "-m" && vector[2] == "pip" {
		rewritten := append([]string{"uv", "pip"}, vector[3:]...)
		return Outcome{Vector: rewritten, Status: StatusRewritten}, nil
	}

	if strings.HasSuffix(first, ".py") {
		rewritten := append([]string{"uv", "run"}, vector...)
		return Outcome{Vector: rewritten, Status: StatusRewritten}, nil
	}

	if first == "npm" && len(vector) >= 2 && vector[1] == "run" {
		rewritten := append([]string{"pnpm"}, vector[1:]...)
		return Outcome{Vector: rewritten, Status: StatusRewritten}, nil
	}

	if opts.ProjectRoot != "" && hasPackageScript(opts.ProjectRoot, first) {
		rewritten := append([]string{"pnpm", "run", first}, vector[1:]...)
		return Outcome{Vector: rewritten, Status: StatusRewritten}, nil
	}

	if opts.OnlyVerified {
		return Outcome{Vector: vector, Status: StatusSkipped}, fmt.Errorf("%w: %q", errs.ErrUnrecognizedTool, first)
	}
	return Outcome{Vector: vector, Status: StatusUnchanged}, nil
}

// hasPackageScript reports whether root/package.json declares a script
// named name, for the bare-script-name rewrite rule (spec.md §4.3).
func hasPackageScript(root, name string) bool {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	_, ok := pkg.Scripts[name]
	return ok
}
