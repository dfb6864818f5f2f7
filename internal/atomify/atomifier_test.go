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

package atomify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAtomifyPerFileE1 is spec.md §8 scenario E1.
func TestAtomifyPerFileE1(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("y = 2\n"), 0644))

	out, err := Atomify([]string{"uv", "run", "ruff", "check", dir}, Options{Enabled: true, ProjectRoot: dir})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"uv", "run", "ruff", "check", filepath.Join(dir, "a.py")}, out[0])
	assert.Equal(t, []string{"uv", "run", "ruff", "check", filepath.Join(dir, "b.py")}, out[1])
}

// TestAtomifyPytestE2 is spec.md §8 scenario E2 (collection step only;
// E2's pass/fail split is exercised in the recorder package).
func TestAtomifyPytestE2(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "t.py")
	require.NoError(t, os.WriteFile(testFile, []byte("def test_one():\n    pass\n\ndef test_two():\n    assert False\n"), 0644))

	orig := collectTestIDs
	defer func() { collectTestIDs = orig }()
	collectTestIDs = func(prefix []string, file string) ([]string, error) {
		return []string{"test_one", "test_two"}, nil
	}

	out, err := Atomify([]string{"uv", "run", "pytest", testFile}, Options{Enabled: true, ProjectRoot: dir})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"uv", "run", "pytest", testFile + "::test_one"}, out[0])
	assert.Equal(t, []string{"uv", "run", "pytest", testFile + "::test_two"}, out[1])
}

func TestAtomifyPytestKSelectorCollapses(t *testing.T) {
	out, err := Atomify([]string{"uv", "run", "pytest", "-k", "foo", "t.py"}, Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uv", "run", "pytest", "-k", "foo", "t.py"}}, out)
}

func TestAtomifySnapshotPairing(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "t.py")
	src := `
def test_snap_one():
    assert_match(result)

def test_snap_two():
    snapshot.assert_match(result)

def test_plain():
    assert True
`
	require.NoError(t, os.WriteFile(testFile, []byte(src), 0644))

	orig := collectTestIDs
	defer func() { collectTestIDs = orig }()
	collectTestIDs = func(prefix []string, file string) ([]string, error) {
		return []string{"test_snap_one", "test_snap_two", "test_plain"}, nil
	}

	out, err := Atomify([]string{"uv", "run", "pytest", testFile, "--snapshot-update"}, Options{Enabled: true, ProjectRoot: dir})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"uv", "run", "pytest", testFile + "::test_snap_one", testFile + "::test_snap_two", "--snapshot-update"}, out[0])
	assert.Equal(t, []string{"uv", "run", "pytest", testFile + "::test_plain"}, out[1])
}

// TestAtomifyPreCommitPerFileAfterFilesFlag is spec.md §4.4's own
// after-files-flag example: "pre-commit run --files …" split one file per
// invocation, keeping "--files" on each split-out vector.
func TestAtomifyPreCommitPerFileAfterFilesFlag(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")
	require.NoError(t, os.WriteFile(a, []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("y = 2\n"), 0644))

	out, err := Atomify([]string{"pre-commit", "run", "--files", a, b}, Options{Enabled: true, ProjectRoot: dir})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"pre-commit", "run", "--files", a}, out[0])
	assert.Equal(t, []string{"pre-commit", "run", "--files", b}, out[1])
}

func TestAtomifyUnknownToolPassthrough(t *testing.T) {
	out, err := Atomify([]string{"some-tool", "a", "b"}, Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"some-tool", "a", "b"}}, out)
}

func TestAtomifyDisabled(t *testing.T) {
	out, err := Atomify([]string{"uv", "run", "ruff", "check", "."}, Options{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uv", "run", "ruff", "check", "."}}, out)
}

// TestAtomifyIdempotence is spec.md §8 property 3: for v where
// atomify(v) = [v], atomify(atomify(v)[0]) = [v].
func TestAtomifyIdempotence(t *testing.T) {
	v := []string{"unknown-tool", "--flag", "x"}
	first, err := Atomify(v, Options{Enabled: true})
	require.NoError(t, err)
	require.Len(t, first, 1)
	second, err := Atomify(first[0], Options{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAtomizeUnittestGatedByTier(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "t.py")
	src := "import unittest\n\nclass FooTest(unittest.TestCase):\n    def test_a(self):\n        pass\n    def test_b(self):\n        pass\n"
	require.NoError(t, os.WriteFile(testFile, []byte(src), 0644))

	out, err := Atomify([]string{"uv", "run", "unittest", testFile}, Options{Enabled: true, EnableSecondTier: false, ProjectRoot: dir})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uv", "run", "unittest", testFile}}, out, "tier-2 must not atomize without EnableSecondTier")

	out, err = Atomify([]string{"uv", "run", "unittest", testFile}, Options{Enabled: true, EnableSecondTier: true, ProjectRoot: dir})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"uv", "run", "unittest", "t.FooTest.test_a"}, out[0])
	assert.Equal(t, []string{"uv", "run", "unittest", "t.FooTest.test_b"}, out[1])
}
