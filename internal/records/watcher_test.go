package records

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuiet = 100 * time.Millisecond

type watchRun struct {
	calls atomic.Int32
	done  chan error
}

// startWatch registers the watch before returning so writes made by the caller are seen.
func startWatch(t *testing.T, path string) *watchRun {
	t.Helper()
	dw, err := newDatasetWatcher(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	run := &watchRun{done: make(chan error, 1)}
	go func() {
		run.done <- dw.run(ctx, testQuiet, func(context.Context) { run.calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-run.done)
	})
	return run
}

func writeDataset(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatch_DebouncesRapidWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	run := startWatch(t, path)

	for i := 0; i < 5; i++ {
		writeDataset(t, path, `{"applications": []}`)
		time.Sleep(testQuiet / 10)
	}

	assert.Eventually(t, func() bool { return run.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(3 * testQuiet)
	assert.Equal(t, int32(1), run.calls.Load())
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	run := startWatch(t, filepath.Join(dir, "dataset.json"))

	writeDataset(t, filepath.Join(dir, "other.json"), `{}`)
	writeDataset(t, filepath.Join(dir, "dataset.json.bak"), `{}`)

	assert.Never(t, func() bool { return run.calls.Load() > 0 }, 4*testQuiet, 10*time.Millisecond)
}

func TestWatch_RenameIntoPlaceTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	writeDataset(t, path, `{"applications": []}`)
	run := startWatch(t, path)

	tmp := filepath.Join(dir, ".dataset.json.tmp")
	writeDataset(t, tmp, `{"applications": [{"user_id": "A", "target_user_id": "B"}]}`)
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool { return run.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_ReturnsNilOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, testQuiet, nil, func(context.Context) {})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
