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

// Package config owns SEP's Config value: the one explicit object threaded
// into every component constructor, replacing the shell script's global
// mutable environment variables (spec.md §9, "Global mutable state").
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"
)

// Default values, overridable by toml, env, then flags (highest wins).
const (
	DefaultPipelineTimeout = 24 * time.Hour
	DefaultMemoryLimitMB   = 0 // 0 disables the cap
	DefaultKillSignal      = "SIGTERM"
	DefaultEvent           = "manual"
)

// Config is the fully resolved runtime configuration for one SEP
// invocation. It is built once by RegisterFlags+Resolve and passed by pointer
// to every component; nothing in SEP reads os.Getenv directly outside of
// this package.
type Config struct {
	ProjectRoot string

	// Per-job limits (Process Supervisor, spec.md §4.1).
	Timeout         time.Duration
	KillSignal      string
	Retries         int
	MemoryLimitMB   int
	PipelineTimeout time.Duration

	// Paths (External Interfaces, spec.md §6).
	LogDir string

	// Behavior switches.
	Verbose          bool
	Atomify          bool
	EnforceRunners   bool
	OnlyVerified     bool
	EnableSecondTier bool

	// Run context (spec.md §3 "Run").
	Branch   string
	Commit   string
	User     string
	Event    string
	Workflow string

	// postParse finishes resolving fields that depend on flag.Parse having
	// run (duration conversions, negating aliases). Set by RegisterFlags,
	// invoked by Resolve.
	postParse func()
}

// LockDir returns the per-project lock directory path: a content hash of
// the project root under baseLocksDir, so multiple projects on one host
// never collide (spec.md §4.5 "State").
func (c *Config) LockDir(baseLocksDir string) string {
	sum := sha256.Sum256([]byte(c.ProjectRoot))
	return filepath.Join(baseLocksDir, hex.EncodeToString(sum[:])[:16])
}

// RunsDir returns the directory the Recorder (C6) writes per-run
// subdirectories under.
func (c *Config) RunsDir() string {
	return filepath.Join(c.LogDir, "runs")
}
