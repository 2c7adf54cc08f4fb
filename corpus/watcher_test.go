package corpus

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

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "incidents.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte(`{}`), 0644))

	var reloads atomic.Int32
	w, err := NewWatcher([]string{watched, ""}, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	assert.Never(t, func() bool { return reloads.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte(`{"incidents": []}`), 0644))
	}
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_InvalidDebounce(t *testing.T) {
	_, err := NewWatcher(nil, func(context.Context) error { return nil }, WithDebounce(0))
	assert.Error(t, err)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "x.json")}, func(context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
