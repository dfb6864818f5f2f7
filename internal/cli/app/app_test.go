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

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talismancer/seqexec/internal/config"
)

func TestNewOpensStoreAndRecorderUnderProjectRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{ProjectRoot: dir, LogDir: dir}

	a, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Rec)
	assert.NotNil(t, a.Log)

	st, err := a.Store.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Depth)
}

func TestNewIsStableAcrossRepeatedCallsForSameProject(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{ProjectRoot: dir, LogDir: dir}

	a1, err := New(cfg)
	require.NoError(t, err)
	a2, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, a1.Cfg.LockDir(cfg.ProjectRoot+"/.sequential-locks"), a2.Cfg.LockDir(cfg.ProjectRoot+"/.sequential-locks"))
}
