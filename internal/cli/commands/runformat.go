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

package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/recorder"
)

// emitStructured renders runs as --json, filtered through -q (a dotted
// field path) or -t (a text/template), matching the three output modes a
// CI client's `--json`/`--jq`/`--template` flags offer (spec.md §6).
// There is no jq implementation anywhere in the retrieved dependency pack
// to reuse, so -q is deliberately narrower than real jq: one dotted path
// per invocation rather than a full filter expression (documented in
// DESIGN.md).
func emitStructured(runs []recorder.Run, fields, jqExpr, tmplText string) subcommands.ExitStatus {
	records := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		rec, err := toFieldMap(toCIRun(run), fields)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
			return subcommands.ExitFailure
		}
		records = append(records, rec)
	}

	switch {
	case tmplText != "":
		tmpl, err := template.New("run").Parse(tmplText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[sep] bad template: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, rec := range records {
			if err := tmpl.Execute(os.Stdout, rec); err != nil {
				fmt.Fprintf(os.Stderr, "[sep] template execution failed: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess

	case jqExpr != "":
		for _, rec := range records {
			val, ok := dotPath(rec, jqExpr)
			if !ok {
				continue
			}
			fmt.Println(formatScalar(val))
		}
		return subcommands.ExitSuccess

	default:
		out, err := json.Marshal(records)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Println(string(out))
		return subcommands.ExitSuccess
	}
}

// toFieldMap round-trips v through JSON and, if fields is non-empty,
// keeps only the requested comma-separated keys (spec.md §6 "--json
// [FIELDS]" — an empty FIELDS list means every field).
func toFieldMap(v any, fields string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, err
	}
	if fields == "" {
		return full, nil
	}
	want := strings.Split(fields, ",")
	out := make(map[string]any, len(want))
	for _, k := range want {
		k = strings.TrimSpace(k)
		if val, ok := full[k]; ok {
			out[k] = val
		}
	}
	return out, nil
}

// dotPath evaluates a jq-style leading-dot field path (".status",
// ".actor.login") against rec, the narrow subset of jq this build
// supports (see emitStructured's doc comment).
func dotPath(rec map[string]any, expr string) (any, bool) {
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return rec, true
	}
	var cur any = rec
	for _, part := range strings.Split(expr, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
