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

// Package app bundles the resolved Config with the Queue Store and
// Recorder every subcommand needs, breaking the import cycle between
// internal/cli (which registers commands) and internal/cli/commands
// (which needs the bundle's type).
package app

import (
	"os"
	"path/filepath"

	"github.com/talismancer/seqexec/internal/config"
	"github.com/talismancer/seqexec/internal/logging"
	"github.com/talismancer/seqexec/internal/queue"
	"github.com/talismancer/seqexec/internal/recorder"
)

// baseLocksDirName is the project-relative directory housing every
// project's hashed lock subdirectory (spec.md §6 "Persisted state
// layout": "<locks>/<hash>/...").
const baseLocksDirName = ".sequential-locks"

// App is passed to subcommands.Execute as args[0], mirroring how runsc
// passes its *config.Config.
type App struct {
	Cfg   *config.Config
	Store *queue.Store
	Rec   *recorder.Recorder
	Log   *logging.Logger
}

// New resolves cfg into an opened Queue Store and Recorder.
func New(cfg *config.Config) (*App, error) {
	lockDir := cfg.LockDir(filepath.Join(cfg.ProjectRoot, baseLocksDirName))
	store, err := queue.New(lockDir)
	if err != nil {
		return nil, err
	}
	rec, err := recorder.New(cfg.RunsDir())
	if err != nil {
		return nil, err
	}
	return &App{
		Cfg:   cfg,
		Store: store,
		Rec:   rec,
		Log:   logging.New("sep", os.Stderr, cfg.Verbose),
	}, nil
}
