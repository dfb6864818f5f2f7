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

package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// RegisterFlags registers SEP's global flags on fs and returns the Config
// they populate once fs.Parse has run. Flag defaults are pre-seeded from
// (in ascending precedence) compiled-in defaults, sep.toml, then the
// process environment (which by this point already reflects
// .env.development, see LoadDotEnv) — so an explicit CLI flag is the only
// thing that can still override what RegisterFlags computed as the
// default, matching SPEC_FULL.md's "Config precedence" section.
//
// Mirrors the teacher's flat, grouped RegisterFlags(flagSet) in
// runsc/config/flags.go, rewritten against SEP's own flag set rather than
// gVisor's ~80 OCI/sandbox flags.
func RegisterFlags(fs *flag.FlagSet, projectRoot string) (*Config, error) {
	fc, err := loadTOML(projectRoot)
	if err != nil {
		return nil, err
	}

	c := &Config{ProjectRoot: projectRoot}

	timeoutDefault := envDuration(EnvTimeout, fileInt64(fc.Timeout), 0)
	pipelineDefault := envDuration(EnvPipelineTimeout, fileInt64(fc.PipelineTimeout), int64(DefaultPipelineTimeout/time.Second))
	memDefault := envInt(EnvMemoryLimitMB, fileInt(fc.MemoryLimitMB), DefaultMemoryLimitMB)
	logDirDefault := envString(EnvLogDir, fileString(fc.LogDir), ".sequential-locks/logs")
	verboseDefault := envBool(EnvVerbose, fileBool(fc.Verbose), false)
	atomifyDefault := envBool(EnvAtomify, fileBool(fc.Atomify), true)
	enforceDefault := envBool(EnvEnforceRunners, fileBool(fc.EnforceRunners), true)
	onlyVerifiedDefault := envBool(EnvOnlyVerified, fileBool(fc.OnlyVerified), false)
	secondTierDefault := envBool(EnvEnableSecondTier, fileBool(fc.EnableSecondTier), false)

	var timeoutSecs, pipelineSecs int64
	fs.Int64Var(&timeoutSecs, "timeout", timeoutDefault, "per-command timeout in seconds; 0 disables it")
	fs.Int64Var(&pipelineSecs, "pipeline-timeout", pipelineDefault, "outer wall-clock bound for the whole run, in seconds")
	fs.IntVar(&c.MemoryLimitMB, "memory-limit", memDefault, "per-process memory cap in MiB; 0 disables it")
	fs.StringVar(&c.LogDir, "log-dir", logDirDefault, "directory for job logs and the run/job history store")
	fs.BoolVar(&c.Verbose, "verbose", verboseDefault, "enable debug logging")
	fs.BoolVar(&c.Atomify, "atomify", atomifyDefault, "split multi-file/multi-test invocations into atomic commands")
	fs.BoolVar(&c.EnforceRunners, "enforce-runners", enforceDefault, "rewrite bare tool invocations to their canonical launcher")
	fs.BoolVar(&c.OnlyVerified, "only-verified", onlyVerifiedDefault, "reject tools absent from the static catalog")
	fs.BoolVar(&c.EnableSecondTier, "enable-second-tier", secondTierDefault, "allow tier-2 (opt-in) atomization rules")
	fs.StringVar(&c.KillSignal, "kill-signal", DefaultKillSignal, `signal used to terminate a timed-out or cancelled job, e.g. "SIGTERM" or "15"`)
	fs.IntVar(&c.Retries, "retries", 0, "number of retries after a non-zero exit, before giving up")
	fs.StringVar(&c.Branch, "branch", "", "branch name recorded on the run (defaults to git detection)")
	fs.StringVar(&c.Commit, "commit", "", "commit sha recorded on the run (defaults to git detection)")
	fs.StringVar(&c.User, "user", os.Getenv("USER"), "user recorded on the run")
	fs.StringVar(&c.Event, "event", DefaultEvent, "event label recorded on the run")
	fs.StringVar(&c.Workflow, "workflow", stringOr(fileString(fc.Workflow), "sep"), "workflow label recorded on the run")

	// Two explicit negating aliases from spec.md §6, kept as separate flags
	// rather than folded into -atomify/-enforce-runners so CLI usage text
	// matches the spec literally.
	var noAtomify, dontEnforceRunners bool
	fs.BoolVar(&noAtomify, "no-atomify", false, "shorthand for -atomify=false")
	fs.BoolVar(&dontEnforceRunners, "dont_enforce_runners", false, "shorthand for -enforce-runners=false")

	// defer applying the negating aliases and int64->time.Duration
	// conversion until after fs.Parse has run; RegisterFlags returns
	// before Parse is called by the caller, so wrap that in Resolve.
	c.postParse = func() {
		c.Timeout = time.Duration(timeoutSecs) * time.Second
		c.PipelineTimeout = time.Duration(pipelineSecs) * time.Second
		if noAtomify {
			c.Atomify = false
		}
		if dontEnforceRunners {
			c.EnforceRunners = false
		}
	}
	return c, nil
}

// Resolve finishes building c after fs.Parse has been called. Call order
// must be RegisterFlags -> fs.Parse -> Resolve.
func (c *Config) Resolve() { c.postParse() }

func envDuration(key string, fileVal *int64, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func envInt(key string, fileVal *int, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func envString(key string, fileVal *string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func envBool(key string, fileVal *bool, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func fileInt64(p *int64) *int64 { return p }
func fileInt(p *int) *int       { return p }
func fileString(p *string) *string { return p }
func fileBool(p *bool) *bool     { return p }

func stringOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}
