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

package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/talismancer/seqexec/internal/runner"
)

// runItem is the btree.Item keyed by (started_at, run_id), giving the
// read index a sorted-iteration structure instead of a full re-sort on
// every list() call (spec.md §4.6 "In-memory read index").
type runItem struct {
	startedAt int64
	runID     string
}

func (a runItem) Less(than btree.Item) bool {
	b := than.(runItem)
	if a.startedAt != b.startedAt {
		return a.startedAt < b.startedAt
	}
	return a.runID < b.runID
}

// readIndex is a lazily-refreshed cache over the on-disk <runs>/ tree.
// Each refresh is incremental: only runs whose metadata.txt mtime changed
// since the previous refresh are re-read and re-inserted.
type readIndex struct {
	mu   sync.Mutex
	root string
	tree *btree.BTree
	mod  map[string]int64 // run_id -> directory mtime at last refresh
}

func newReadIndex(root string) *readIndex {
	return &readIndex{root: root, tree: btree.New(32), mod: map[string]int64{}}
}

// refresh rescans root, adding or re-inserting any run directory whose
// metadata.txt mtime has changed since the last refresh.
func (idx *readIndex) refresh() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries, err := os.ReadDir(idx.root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		runID := e.Name()
		metaPath := filepath.Join(idx.root, runID, "metadata.txt")
		info, err := os.Stat(metaPath)
		if err != nil {
			continue
		}
		mtime := info.ModTime().Unix()
		if idx.mod[runID] == mtime {
			continue
		}
		k, err := readKVFile(metaPath)
		if err != nil {
			continue
		}
		idx.tree.ReplaceOrInsert(runItem{startedAt: k.getInt64("START_TIME"), runID: runID})
		idx.mod[runID] = mtime
	}
	return nil
}

// runIDsDescending returns all indexed run IDs, most-recently-started
// first (the order run list -L N wants).
func (idx *readIndex) runIDsDescending() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	ids := make([]string, 0, idx.tree.Len())
	idx.tree.Ascend(func(item btree.Item) bool {
		ids = append(ids, item.(runItem).runID)
		return true
	})
	for l, r := 0, len(ids)-1; l < r; l, r = l+1, r-1 {
		ids[l], ids[r] = ids[r], ids[l]
	}
	return ids
}

// isPytestCommand reports whether command's first token after any approved
// launcher and "run" tokens is pytest.
func isPytestCommand(command string) bool {
	for _, tok := range strings.Fields(command) {
		if runner.ApprovedLaunchers[tok] || tok == "run" {
			continue
		}
		return tok == "pytest"
	}
	return false
}
