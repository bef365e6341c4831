package fs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"
)

func setupTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Game", "Missions"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Game", "Missions", "Mission_A.uasset"), []byte("bin"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLocalFS_Stat_Root(t *testing.T) {
	l := NewLocalFS(setupTree(t))

	info, err := l.Stat("")
	if err != nil {
		t.Fatalf("Stat('') failed: %v", err)
	}
	if !info.IsDir {
		t.Error("expected root to be a directory")
	}
}

func TestLocalFS_ReadDir(t *testing.T) {
	l := NewLocalFS(setupTree(t))

	entries, err := l.ReadDir("Game/Missions")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Mission_A.uasset" || entries[0].IsDir {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}

func TestLocalFS_ReadDir_FollowsSymlinkedDirs(t *testing.T) {
	dir := setupTree(t)
	if err := os.Symlink(filepath.Join(dir, "Game", "Missions"), filepath.Join(dir, "Game", "Linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	l := NewLocalFS(dir)

	entries, err := l.ReadDir("Game")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir {
			t.Errorf("expected %s to be reported as a directory", e.Name)
		}
	}
}

func TestLocalFS_ReadFile_NotExist(t *testing.T) {
	l := NewLocalFS(setupTree(t))

	_, err := l.ReadFile("Game/missing.json")
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLocalFS_Sub(t *testing.T) {
	l := NewLocalFS(setupTree(t))

	data, err := iofs.ReadFile(l.Sub("Game"), "Missions/Mission_A.uasset")
	if err != nil {
		t.Fatalf("ReadFile through Sub failed: %v", err)
	}
	if string(data) != "bin" {
		t.Errorf("unexpected content %q", data)
	}
}
