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

// Package cli wires Config, the Queue Store, and the Recorder into the
// subcommands.Command set cmd/sep dispatches, mirroring the shape of
// runsc/cli/main.go: resolve flags, register every verb, hand off to
// subcommands.Execute.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/talismancer/seqexec/internal/cli/app"
	"github.com/talismancer/seqexec/internal/cli/commands"
	"github.com/talismancer/seqexec/internal/config"
	"github.com/talismancer/seqexec/internal/errs"
	"github.com/talismancer/seqexec/internal/supervisor"
)

// Main is cmd/sep's entire body. It returns the process exit code rather
// than calling os.Exit itself, so tests can invoke it without killing the
// test binary.
func Main(argv []string) int {
	// The memory monitor re-execs this same binary with a hidden argv[1];
	// intercept it before any normal flag parsing so it never collides
	// with a real subcommand name (spec.md §4.1 "Memory Monitor").
	if len(argv) > 1 && argv[1] == supervisor.MemoryMonitorSubcommand {
		return supervisor.RunMemoryMonitorMain(argv[2:])
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return 1
	}

	if err := config.LoadDotEnv(projectRoot); err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return 1
	}

	cfg, err := config.RegisterFlags(flag.CommandLine, projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return 1
	}

	a, dispatchArgs, bail := parseArgs(flag.CommandLine, cfg, argv[1:])
	if bail >= 0 {
		return bail
	}

	// The bare `sep -- <command> [args...]` form is the default action
	// (spec.md §6 "submission: -- <vector> (default action)"). Go's flag
	// package already strips the leading "--" terminator during Parse, so
	// what's left to distinguish is simply: does the first remaining
	// token name a registered verb, or is the whole remainder a command
	// vector to submit?
	if len(dispatchArgs) > 0 && !isKnownVerb(dispatchArgs[0]) {
		status, err := commands.SubmitVector(a, dispatchArgs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errs.Tag(err), err)
			return errs.ExitCode(err)
		}
		_ = status
		return 0
	}

	return runSubcommands(a)
}

// knownVerbs are the registered subcommand names; anything else in
// argument position is treated as a command vector to submit.
var knownVerbs = map[string]bool{
	"submit":       true,
	"queue-start":  true,
	"queue-status": true,
	"queue-pause":  true,
	"queue-resume": true,
	"queue-stop":   true,
	"clear-queue":  true,
	"close-queue":  true,
	"reopen-queue": true,
	"run":          true,
	"help":         true,
	"flags":        true,
	"commands":     true,
}

func isKnownVerb(token string) bool { return knownVerbs[token] }

// parseArgs runs fs.Parse, resolves cfg, and builds the App. bail is -1 to
// continue, or a process exit code to return immediately (flag errors,
// App construction failures).
func parseArgs(fs *flag.FlagSet, cfg *config.Config, rest []string) (*app.App, []string, int) {
	if err := fs.Parse(rest); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, 0
		}
		return nil, nil, int(subcommands.ExitUsageError)
	}
	cfg.Resolve()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[sep] %v\n", err)
		return nil, nil, 1
	}
	return a, fs.Args(), -1
}

// runSubcommands registers every verb on the package-level default
// commander, mirroring runsc/cli/main.go's subcommands.Register(...)
// sequence, then dispatches on flag.CommandLine's already-parsed
// arguments.
func runSubcommands(a *app.App) int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	const queueGroup = "queue"
	subcommands.Register(&commands.Submit{A: a}, queueGroup)
	subcommands.Register(&commands.QueueStart{A: a}, queueGroup)
	subcommands.Register(&commands.QueueStatus{A: a}, queueGroup)
	subcommands.Register(commands.NewQueuePause(a), queueGroup)
	subcommands.Register(commands.NewQueueResume(a), queueGroup)
	subcommands.Register(commands.NewQueueStop(a), queueGroup)
	subcommands.Register(commands.NewClearQueue(a), queueGroup)
	subcommands.Register(commands.NewCloseQueue(a), queueGroup)
	subcommands.Register(commands.NewReopenQueue(a), queueGroup)

	const readGroup = "read"
	subcommands.Register(&commands.Run{A: a}, readGroup)

	return int(subcommands.Execute(context.Background()))
}
