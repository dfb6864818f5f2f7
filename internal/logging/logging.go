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

// Package logging provides the structured logger shared by every SEP
// component. It is a thin wrapper over logrus so call sites can log with
// component-tagged fields the way the CLI's diagnostics are tagged
// (spec.md §7).
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the handle every component receives at construction time.
type Logger struct {
	*logrus.Entry
}

// New builds a Logger writing to w (stderr by default), tagged with
// component. verbose switches the level from Info to Debug.
func New(component string, w io.Writer, verbose bool) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if verbose {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
	return &Logger{Entry: base.WithField("component", component)}
}

// Default returns a stderr-backed, non-verbose logger for component.
func Default(component string) *Logger {
	return New(component, os.Stderr, false)
}

// With returns a derived logger with an additional field, used to attach
// e.g. job_id or run_id to a chain of log lines.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}
