package handler

import (
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/metrics"
	"github.com/CageChen/assethub/internal/watcher"
)

// FileCache keeps loaded files alive between requests so their data is
// only materialized once. A nil lru disables caching.
type FileCache struct {
	repo *asset.Repository
	lru  *lru.Cache[asset.CanonicalPath, *asset.File]
}

// NewFileCache creates a cache holding up to size files. A size of zero
// disables caching.
func NewFileCache(repo *asset.Repository, size int) (*FileCache, error) {
	c := &FileCache{repo: repo}
	if size > 0 {
		l, err := lru.New[asset.CanonicalPath, *asset.File](size)
		if err != nil {
			return nil, err
		}
		c.lru = l
	}
	return c, nil
}

// File returns the cached file for path, creating it on first use.
func (c *FileCache) File(path string) *asset.File {
	file := c.repo.File(path)
	if c.lru == nil {
		return file
	}
	key := file.Path()
	if cached, ok := c.lru.Get(key); ok {
		return cached
	}
	if prev, ok, _ := c.lru.PeekOrAdd(key, file); ok {
		return prev
	}
	metrics.SetCachedFiles(c.lru.Len())
	return file
}

// Len returns the number of cached files.
func (c *FileCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// OnFileChange drops the files touched by a watcher event. Directory
// events purge everything since any number of files may have moved.
func (c *FileCache) OnFileChange(event watcher.Event) {
	if c.lru == nil {
		return
	}
	if event.Target == watcher.TargetDir {
		if event.Type != watcher.EventCreate {
			c.lru.Purge()
		}
	} else if rel, ok := relativePath(c.repo, event.Path); ok {
		c.lru.Remove(c.repo.File(rel).Path())
	}
	metrics.SetCachedFiles(c.lru.Len())
}

// relativePath converts an absolute path below the repository root into a
// root-relative, slash-separated one. The root is symlink-free, so a path
// reached through a link is retried with its parent directory resolved;
// the entry itself may already be gone.
func relativePath(repo *asset.Repository, abs string) (string, bool) {
	if rel, ok := relativeTo(repo.Root().Abs(), abs); ok {
		return rel, true
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", false
	}
	return relativeTo(repo.Root().Abs(), filepath.Join(dir, filepath.Base(abs)))
}

func relativeTo(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
