// Copyright 2025 Tom Barlow
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

package anchor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnum struct {
	entries []walkEntry
	err     error
}

func (f *fakeEnum) Enumerate(ctx context.Context, fn func(path, project string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e.path, e.project); err != nil {
			return err
		}
	}
	return nil
}

func mapReader(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fs.ErrNotExist
		}
		return []byte(content), nil
	}
}

var quietLogger = slog.New(slog.DiscardHandler)

func TestCoordinator_ScanSolution(t *testing.T) {
	files := map[string]string{
		"a.cs": "// TODO: one\n",
		"b.cs": "// HACK(@ann): two\n// BUG[#3] three\n",
		"c.cs": "no anchors here\n",
	}
	enum := &fakeEnum{entries: []walkEntry{
		{"a.cs", "App"}, {"b.cs", "App"}, {"c.cs", "Lib"},
	}}

	idx := NewIndex()
	resCh := make(chan Result, 1)
	c := NewCoordinator(enum, idx, CoordinatorOptions{
		Workers:    2,
		ReadFile:   mapReader(files),
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	scanID := c.ScanSolution(context.Background())
	require.NotEmpty(t, scanID)
	c.Wait()

	res := <-resCh
	assert.Equal(t, scanID, res.ScanID)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 3, res.FilesScanned)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 3, res.AnchorsFound)
	assert.NoError(t, res.Err)
	assert.Positive(t, res.Duration)

	assert.False(t, c.Busy())
	assert.Equal(t, 2, idx.FileCount())
	assert.Equal(t, 3, idx.TotalCount())

	got := idx.AnchorsForFile("b.cs")
	require.Len(t, got, 2)
	assert.Equal(t, "ann", got[0].Owner)
	assert.Equal(t, "#3", got[1].IssueRef)
	assert.Equal(t, "App", got[1].Project)
}

func TestCoordinator_ReadErrorsSkipFile(t *testing.T) {
	files := map[string]string{
		"a.cs": "// TODO: one\n",
		"c.cs": "// FIXME: two\n",
	}
	enum := &fakeEnum{entries: []walkEntry{
		{"a.cs", "App"}, {"broken.cs", "App"}, {"c.cs", "App"},
	}}

	idx := NewIndex()
	resCh := make(chan Result, 1)
	c := NewCoordinator(enum, idx, CoordinatorOptions{
		Workers:    1,
		ReadFile:   mapReader(files),
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	c.ScanSolution(context.Background())
	c.Wait()

	res := <-resCh
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 2, res.FilesScanned)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 2, res.AnchorsFound)
	assert.Empty(t, idx.AnchorsForFile("broken.cs"))
}

func TestCoordinator_CancelScan(t *testing.T) {
	const total = 5
	var entries []walkEntry
	for i := 0; i < total; i++ {
		entries = append(entries, walkEntry{string(rune('a'+i)) + ".cs", "App"})
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var reads atomic.Int64
	readFile := func(string) ([]byte, error) {
		reads.Add(1)
		once.Do(func() { close(started) })
		<-release
		return []byte("// TODO: x\n"), nil
	}

	resCh := make(chan Result, 1)
	c := NewCoordinator(&fakeEnum{entries: entries}, NewIndex(), CoordinatorOptions{
		Workers:    1,
		ReadFile:   readFile,
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	c.ScanSolution(context.Background())
	<-started
	assert.True(t, c.Busy())

	c.CancelScan()
	c.CancelScan() // repeat is harmless
	close(release)
	c.Wait()

	res := <-resCh
	assert.Equal(t, StatusCancelled, res.Status)
	assert.Less(t, res.FilesScanned, total)
	assert.Less(t, int(reads.Load()), total)
	assert.False(t, c.Busy())
}

func TestCoordinator_NewScanCancelsPrevious(t *testing.T) {
	files := map[string]string{
		"a.cs": "// TODO: one\n",
		"b.cs": "// TODO: two\n",
	}
	entries := []walkEntry{{"a.cs", "App"}, {"b.cs", "App"}}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	blockingRead := func(path string) ([]byte, error) {
		once.Do(func() { close(started) })
		<-release
		return mapReader(files)(path)
	}

	resCh := make(chan Result, 2)
	c := NewCoordinator(&fakeEnum{entries: entries}, NewIndex(), CoordinatorOptions{
		Workers:    1,
		ReadFile:   blockingRead,
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	first := c.ScanSolution(context.Background())
	<-started
	second := c.ScanSolution(context.Background())
	close(release)
	c.Wait()

	// The superseded scan reports first, then the winner.
	res1 := <-resCh
	assert.Equal(t, first, res1.ScanID)
	assert.Equal(t, StatusCancelled, res1.Status)

	res2 := <-resCh
	assert.Equal(t, second, res2.ScanID)
	assert.Equal(t, StatusCompleted, res2.Status)
	assert.Equal(t, 2, res2.FilesScanned)

	assert.Equal(t, 2, c.Index().TotalCount())
}

func TestCoordinator_EnumerationFailure(t *testing.T) {
	boom := errors.New("walk exploded")
	resCh := make(chan Result, 1)
	c := NewCoordinator(&fakeEnum{err: boom}, NewIndex(), CoordinatorOptions{
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	c.ScanSolution(context.Background())
	c.Wait()

	res := <-resCh
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, res.FilesScanned)
}

func TestCoordinator_ProgressReporting(t *testing.T) {
	files := map[string]string{
		"a.cs": "// TODO: one\n",
		"b.cs": "// TODO: two\n",
		"c.cs": "// TODO: three\n",
	}
	enum := &fakeEnum{entries: []walkEntry{
		{"a.cs", "App"}, {"b.cs", "App"}, {"c.cs", "App"},
	}}

	var mu sync.Mutex
	var updates []Progress
	resCh := make(chan Result, 1)
	c := NewCoordinator(enum, NewIndex(), CoordinatorOptions{
		Workers:          1,
		ReadFile:         mapReader(files),
		ProgressInterval: time.Nanosecond,
		OnProgress: func(p Progress) {
			mu.Lock()
			updates = append(updates, p)
			mu.Unlock()
		},
		OnComplete: func(r Result) { resCh <- r },
		Logger:     quietLogger,
	})

	scanID := c.ScanSolution(context.Background())
	c.Wait()
	res := <-resCh

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates)
	final := updates[len(updates)-1]
	assert.Equal(t, scanID, final.ScanID)
	assert.Equal(t, 3, final.Processed)
	assert.Equal(t, 3, final.Total)
	assert.Equal(t, res.AnchorsFound, final.AnchorsFound)
}

func TestCoordinator_ScanFile(t *testing.T) {
	files := map[string]string{"a.cs": "// TODO(@kim): sync\n"}
	idx := NewIndex()
	c := NewCoordinator(&fakeEnum{}, idx, CoordinatorOptions{
		ReadFile: mapReader(files),
		Logger:   quietLogger,
	})

	items, err := c.ScanFile("a.cs", "App")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "kim", items[0].Owner)
	assert.Equal(t, 1, idx.TotalCount())

	// A vanished file is removed from the index, not an error.
	delete(files, "a.cs")
	items, err = c.ScanFile("a.cs", "App")
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Zero(t, idx.TotalCount())
}

func TestCoordinator_ScanFileReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	c := NewCoordinator(&fakeEnum{}, NewIndex(), CoordinatorOptions{
		ReadFile: func(string) ([]byte, error) { return nil, boom },
		Logger:   quietLogger,
	})

	_, err := c.ScanFile("a.cs", "App")

	assert.ErrorIs(t, err, boom)
}

func TestCoordinator_WaitWithoutScan(t *testing.T) {
	c := NewCoordinator(&fakeEnum{}, NewIndex(), CoordinatorOptions{Logger: quietLogger})

	c.Wait() // returns immediately
	assert.False(t, c.Busy())
}
