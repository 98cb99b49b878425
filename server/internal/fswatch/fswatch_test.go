package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_NoDirs(t *testing.T) {
	err := Watch(context.Background(), "test", nil, func(fsnotify.Event) {})
	require.Error(t, err)
}

func TestWatch_MissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	err := Watch(context.Background(), "test", []string{missing}, func(fsnotify.Event) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")
}

func TestWatch_SeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(target, []byte("1"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan fsnotify.Event, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, "test", []string{dir}, func(ev fsnotify.Event) {
			select {
			case events <- ev:
			default:
			}
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// Two rename-over saves in a row: the second must still be seen.
	for i := range 2 {
		tmp := filepath.Join(dir, "doc.json.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte{byte('2' + i)}, 0o600))
		require.NoError(t, os.Rename(tmp, target))

		timeout := time.After(3 * time.Second)
	wait:
		for {
			select {
			case ev := <-events:
				if filepath.Clean(ev.Name) == target && Modified(ev) {
					break wait
				}
			case <-timeout:
				t.Fatalf("save %d: no event for %s", i+1, target)
			}
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestModified(t *testing.T) {
	assert.True(t, Modified(fsnotify.Event{Op: fsnotify.Write}))
	assert.True(t, Modified(fsnotify.Event{Op: fsnotify.Create}))
	assert.False(t, Modified(fsnotify.Event{Op: fsnotify.Remove}))
	assert.False(t, Modified(fsnotify.Event{Op: fsnotify.Chmod}))
}
