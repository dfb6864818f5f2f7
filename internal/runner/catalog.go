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

// Package runner implements the Runner Enforcer (C3, spec.md §4.3): given
// a command vector, rewrite bare tool invocations to their canonical
// launcher, or reject/skip per the catalog.
package runner

// Tier distinguishes trusted-to-atomify tools from ones that require
// explicit opt-in (spec.md GLOSSARY "Tier-1 / Tier-2 tool").
type Tier int

const (
	Tier1 Tier = iota
	Tier2
)

// AtomizationRule names one of the rule tags from spec.md §4.4.
type AtomizationRule string

const (
	RuleNone          AtomizationRule = "none"
	RulePerFile       AtomizationRule = "per-file"
	RulePerDirectory  AtomizationRule = "per-directory"
	RulePerTest       AtomizationRule = "per-test"
	RulePerTestMethod AtomizationRule = "per-test-method"
)

// FileArgPosition names one of the file-argument discovery strategies
// from spec.md §4.4.
type FileArgPosition string

const (
	PosEnd            FileArgPosition = "end"
	PosAfterTool      FileArgPosition = "after-tool"
	PosAfterFilesFlag FileArgPosition = "after-files-flag"
)

// ToolEntry is one static row of the tool catalog (spec.md §4.3 "Tool
// catalog", §9 "String-heavy tool catalog" re-architecture note).
type ToolEntry struct {
	Tier              Tier
	PreferredLauncher string
	LanguageFamily    string
	AtomizationRule   AtomizationRule
	Extensions        []string // glob suffixes, e.g. ".py"
	IgnoreFiles       []string // e.g. ".ruffignore", fallback ".gitignore"
	FileArgPosition   FileArgPosition
	KnownSubcommands  []string // excluded from file-argument discovery
}

// ApprovedLaunchers is the fixed closed set of five identifiers spec.md
// §4.3 trusts to be serial-safe (spec.md "Approved launcher set").
var ApprovedLaunchers = map[string]bool{
	"uv":   true,
	"pipx": true,
	"pnpm": true,
	"go":   true,
	"npx":  true,
}

// Catalog is the static tool -> policy table.
var Catalog = map[string]ToolEntry{
	"pytest": {
		Tier: Tier1, PreferredLauncher: "uv", LanguageFamily: "python",
		AtomizationRule: RulePerTest, Extensions: []string{".py"},
		IgnoreFiles: []string{".gitignore"}, FileArgPosition: PosEnd,
	},
	"ruff": {
		Tier: Tier1, PreferredLauncher: "uv", LanguageFamily: "python",
		AtomizationRule: RulePerFile, Extensions: []string{".py"},
		IgnoreFiles: []string{".ruffignore", ".gitignore"}, FileArgPosition: PosEnd,
		KnownSubcommands: []string{"check", "format"},
	},
	"mypy": {
		Tier: Tier1, PreferredLauncher: "uv", LanguageFamily: "python",
		AtomizationRule: RulePerFile, Extensions: []string{".py"},
		IgnoreFiles: []string{".gitignore"}, FileArgPosition: PosEnd,
	},
	"black": {
		Tier: Tier1, PreferredLauncher: "uv", LanguageFamily: "python",
		AtomizationRule: RulePerFile, Extensions: []string{".py"},
		IgnoreFiles: []string{".gitignore"}, FileArgPosition: PosEnd,
	},
	"unittest": {
		Tier: Tier2, PreferredLauncher: "uv", LanguageFamily: "python",
		AtomizationRule: RulePerTestMethod, Extensions: []string{".py"},
		IgnoreFiles: []string{".gitignore"}, FileArgPosition: PosEnd,
	},
	"eslint": {
		Tier: Tier1, PreferredLauncher: "pnpm", LanguageFamily: "node",
		AtomizationRule: RulePerFile, Extensions: []string{".js", ".jsx", ".ts", ".tsx"},
		IgnoreFiles: []string{".eslintignore", ".gitignore"}, FileArgPosition: PosEnd,
	},
	"prettier": {
		Tier: Tier1, PreferredLauncher: "pnpm", LanguageFamily: "node",
		AtomizationRule: RulePerFile, Extensions: []string{".js", ".ts", ".json", ".md"},
		IgnoreFiles: []string{".prettierignore", ".gitignore"}, FileArgPosition: PosEnd,
	},
	"pre-commit": {
		Tier: Tier1, PreferredLauncher: "pipx", LanguageFamily: "python",
		AtomizationRule: RulePerFile, IgnoreFiles: []string{".gitignore"},
		FileArgPosition: PosAfterFilesFlag, KnownSubcommands: []string{"run"},
	},
	"go": {
		Tier: Tier1, PreferredLauncher: "go", LanguageFamily: "go",
		AtomizationRule: RuleNone, Extensions: []string{".go"}, FileArgPosition: PosEnd,
		KnownSubcommands: []string{"test", "build", "vet", "run"},
	},
}
