package serializer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTool creates a shell script that behaves like the serializer: it
// writes a sidecar next to the asset path it receives.
func writeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExec_RunsToolWithArgs(t *testing.T) {
	tool := writeTool(t, `echo "$1" > "${2%.uasset}.json"`)
	asset := filepath.Join(t.TempDir(), "Foo.uasset")

	err := NewExec(tool, []string{"serialize"}, nil).Serialize(context.Background(), asset)
	require.NoError(t, err)

	data, err := os.ReadFile(strings.TrimSuffix(asset, ".uasset") + ".json")
	require.NoError(t, err)
	assert.Equal(t, "serialize\n", string(data))
}

func TestExec_NonZeroExitIsNotAnError(t *testing.T) {
	tool := writeTool(t, "exit 3")

	err := NewExec(tool, []string{"serialize"}, nil).Serialize(context.Background(), "/nowhere/Foo.uasset")
	assert.NoError(t, err)
}

func TestExec_MissingTool(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-tool")

	err := NewExec(missing, nil, nil).Serialize(context.Background(), "/nowhere/Foo.uasset")
	assert.Error(t, err)
}

func TestExec_ContextCancelled(t *testing.T) {
	tool := writeTool(t, "sleep 5")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewExec(tool, nil, nil).Serialize(ctx, "/nowhere/Foo.uasset")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocked_SharesInFlightRun(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	inner := Func(func(ctx context.Context, assetPath string) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil
	})
	l := NewLocked(inner, "", nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, l.Serialize(context.Background(), "/root/Foo.uasset"))
	}()
	<-started

	const joiners = 4
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Serialize(context.Background(), "/root/Foo.uasset"))
		}()
	}
	// Give joiners time to attach to the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestLocked_JoinerOutlivesCancelledStarter(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	inner := Func(func(ctx context.Context, assetPath string) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	l := NewLocked(inner, "", nil)
	const asset = "/root/Foo.uasset"

	starterCtx, cancelStarter := context.WithCancel(context.Background())
	defer cancelStarter()
	starterErr := make(chan error, 1)
	go func() { starterErr <- l.Serialize(starterCtx, asset) }()
	<-started

	joinerErr := make(chan error, 1)
	go func() { joinerErr <- l.Serialize(context.Background(), asset) }()
	require.Eventually(t, func() bool { return l.waiters(asset) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancelStarter()
	require.ErrorIs(t, <-starterErr, context.Canceled)

	close(release)
	require.NoError(t, <-joinerErr)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, l.waiters(asset))
}

func TestLocked_LastCallerCancelStopsRun(t *testing.T) {
	stopped := make(chan error, 1)
	started := make(chan struct{})
	inner := Func(func(ctx context.Context, assetPath string) error {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return ctx.Err()
	})
	l := NewLocked(inner, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Serialize(ctx, "/root/Foo.uasset") }()
	<-started
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled after its only caller left")
	}
}

func TestLocked_DistinctPathsRunIndependently(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(ctx context.Context, assetPath string) error {
		calls.Add(1)
		return nil
	})
	l := NewLocked(inner, "", nil)

	require.NoError(t, l.Serialize(context.Background(), "/root/A.uasset"))
	require.NoError(t, l.Serialize(context.Background(), "/root/B.uasset"))
	require.NoError(t, l.Serialize(context.Background(), "/root/A.uasset"))

	assert.Equal(t, int32(3), calls.Load())
}

func TestLocked_FileLock(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")
	var seen string
	inner := Func(func(ctx context.Context, assetPath string) error {
		entries, err := os.ReadDir(lockDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		seen = entries[0].Name()
		return nil
	})

	require.NoError(t, NewLocked(inner, lockDir, nil).Serialize(context.Background(), "/root/Foo.uasset"))
	assert.Equal(t, lockName("/root/Foo.uasset"), seen)
}
