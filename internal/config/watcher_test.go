package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcherStartStop(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "provider_keys.json")
	require.NoError(t, os.WriteFile(f, []byte("{}"), 0o600))

	w := NewFileWatcher([]string{f}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	err := w.Start(ctx)
	assert.ErrorContains(t, err, "already running")

	w.Stop()
	w.Stop() // idempotent
}

func TestFileWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "provider_keys.json")
	require.NoError(t, os.WriteFile(f, []byte("{}"), 0o600))

	w := NewFileWatcher([]string{f}, nil)
	w.debounceDelay = 10 * time.Millisecond

	var mu sync.Mutex
	var changed []string
	w.OnChange(func(path string) {
		mu.Lock()
		changed = append(changed, path)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	// Advance the mtime past what the watcher recorded at Start.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(f, future, future))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, f, changed[0])
}

func TestFileWatcherMissingFileIsNotAnError(t *testing.T) {
	w := NewFileWatcher([]string{"/nonexistent/provider_keys.json"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	w.Stop()
}
