package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startWatcher(t *testing.T, path string) (<-chan *Config, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()
	t.Cleanup(cancel)
	return got, cancel, done
}

func TestWatcher_DeliversReloadedConfig(t *testing.T) {
	path := writeConfig(t, "check_interval: 45m\n")
	got, _, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("check_interval: 10m\n"), 0644))

	// A truncating write may surface an intermediate reload first.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.CheckInterval == 10*time.Minute {
				return
			}
		case <-deadline:
			t.Fatal("reloaded config was not delivered")
		}
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeConfig(t, "check_interval: 45m\n")
	got, _, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0644))

	select {
	case c := <-got:
		t.Fatalf("unexpected reload: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	path := writeConfig(t, "check_interval: 45m\n")
	got, cancel, done := startWatcher(t, path)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	require.NoError(t, os.WriteFile(path, []byte("check_interval: 10m\n"), 0644))
	select {
	case c := <-got:
		t.Fatalf("reload after stop: %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "cttrack.yaml"), zap.NewNop())
	assert.Error(t, err)
}
