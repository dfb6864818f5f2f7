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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talismancer/seqexec/internal/errs"
)

func TestEnforcePipRewrite(t *testing.T) {
	out, err := Enforce([]string{"python", "-m", "pip", "install", "rich"}, Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, StatusRewritten, out.Status)
	assert.Equal(t, []string{"uv", "pip", "install", "rich"}, out.Vector)
}

func TestEnforcePytestRewrite(t *testing.T) {
	out, err := Enforce([]string{"pytest", "tests/t.py"}, Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"uv", "run", "pytest", "tests/t.py"}, out.Vector)
}

func TestEnforceUnsupportedLauncherRejected(t *testing.T) {
	out, err := Enforce([]string{"poetry", "run", "pytest"}, Options{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnsupportedLauncher))
	assert.Equal(t, StatusRejected, out.Status)
	assert.Equal(t, []string{"poetry", "run", "pytest"}, out.Vector)
}

func TestEnforceUnrecognizedToolSkippedWhenOnlyVerified(t *testing.T) {
	out, err := Enforce([]string{"some-random-tool", "x"}, Options{Enabled: true, OnlyVerified: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnrecognizedTool))
	assert.Equal(t, StatusSkipped, out.Status)
}

func TestEnforceUnrecognizedToolPassesThroughWhenNotOnlyVerified(t *testing.T) {
	out, err := Enforce([]string{"some-random-tool", "x"}, Options{Enabled: true, OnlyVerified: false})
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, out.Status)
}

func TestEnforceDisabledIsNoop(t *testing.T) {
	out, err := Enforce([]string{"poetry", "run", "pytest"}, Options{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, out.Status)
}

// TestEnforceIdempotent is spec.md §8 property 4: enforce(enforce(v)) ==
// enforce(v).
func TestEnforceIdempotent(t *testing.T) {
	vectors := [][]string{
		{"pytest", "tests/t.py"},
		{"python", "-m", "pip", "install", "rich"},
		{"script.py", "--flag"},
		{"npm", "run", "build"},
		{"go", "test", "./..."},
	}
	for _, v := range vectors {
		first, _ := Enforce(v, Options{Enabled: true})
		second, _ := Enforce(first.Vector, Options{Enabled: true})
		assert.Equal(t, first.Vector, second.Vector, "%v", v)
	}
}
