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
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// envKeys are the environment variables SEP recognizes (spec.md §6
// "Environment").
const (
	EnvLogDir           = "LOG_DIR"
	EnvPipelineTimeout  = "PIPELINE_TIMEOUT"
	EnvMemoryLimitMB    = "MEMORY_LIMIT_MB"
	EnvTimeout          = "TIMEOUT"
	EnvVerbose          = "VERBOSE"
	EnvAtomify          = "ATOMIFY"
	EnvEnableSecondTier = "ENABLE_SECOND_TIER"
	EnvEnforceRunners   = "ENFORCE_RUNNERS"
	EnvOnlyVerified     = "ONLY_VERIFIED"
)

// LoadDotEnv sources a ".env.development" file at projectRoot, if present,
// into the process environment. Existing environment variables are never
// overwritten, matching spec.md §6's stated precedence (env above
// .env.development).
func LoadDotEnv(projectRoot string) error {
	path := filepath.Join(projectRoot, ".env.development")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, already := os.LookupEnv(key); already {
			continue
		}
		os.Setenv(key, value)
	}
	return scanner.Err()
}

// fileConfig mirrors the subset of Config that an optional sep.toml
// project file may override, below env vars but above compiled defaults.
type fileConfig struct {
	Timeout          *int64  `toml:"timeout_s"`
	PipelineTimeout  *int64  `toml:"pipeline_timeout_s"`
	MemoryLimitMB    *int    `toml:"memory_limit_mb"`
	LogDir           *string `toml:"log_dir"`
	Verbose          *bool   `toml:"verbose"`
	Atomify          *bool   `toml:"atomify"`
	EnforceRunners   *bool   `toml:"enforce_runners"`
	OnlyVerified     *bool   `toml:"only_verified"`
	EnableSecondTier *bool   `toml:"enable_second_tier"`
	Workflow         *string `toml:"workflow"`
}

// loadTOML reads "sep.toml" at projectRoot, if present. A missing file is
// not an error; a malformed one is.
func loadTOML(projectRoot string) (*fileConfig, error) {
	path := filepath.Join(projectRoot, "sep.toml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, err
	}
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}
