package asset

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	mfs "github.com/CageChen/assethub/internal/fs"
)

// fakeSerializer records invocations and writes the next queued sidecar
// body for each one. An empty queue writes nothing.
type fakeSerializer struct {
	mu      sync.Mutex
	calls   []string
	outputs []string
}

func (s *fakeSerializer) Serialize(_ context.Context, assetPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, assetPath)
	if len(s.outputs) == 0 {
		return nil
	}
	body := s.outputs[0]
	s.outputs = s.outputs[1:]
	return os.WriteFile(strings.TrimSuffix(assetPath, ".uasset")+".json", []byte(body), 0o644)
}

func (s *fakeSerializer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// countingFS wraps a FileSystem and counts reads.
type countingFS struct {
	mfs.FileSystem
	mu    sync.Mutex
	reads int
	stats int
}

func (c *countingFS) ReadFile(path string) ([]byte, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.FileSystem.ReadFile(path)
}

func (c *countingFS) Stat(path string) (mfs.FileInfo, error) {
	c.mu.Lock()
	c.stats++
	c.mu.Unlock()
	return c.FileSystem.Stat(path)
}

func (c *countingFS) counts() (reads, stats int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.stats
}

type fixture struct {
	root string
	ser  *fakeSerializer
	fs   *countingFS
	repo *Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	fx := &fixture{
		root: resolved,
		ser:  &fakeSerializer{},
		fs:   &countingFS{FileSystem: mfs.NewLocalFS(resolved)},
	}
	fx.repo, err = Open(resolved, fx.ser, WithFileSystem(fx.fs))
	require.NoError(t, err)
	return fx
}

// write creates a file below the root, creating parent directories.
func (fx *fixture) write(t *testing.T, rel, body string) {
	t.Helper()
	p := filepath.Join(fx.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func (fx *fixture) mkdir(t *testing.T, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(fx.root, filepath.FromSlash(rel)), 0o755))
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func displayPaths[T Node](nodes []T) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.String()
	}
	return out
}
