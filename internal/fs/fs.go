// Package fs provides the filesystem abstraction the asset repository reads through.
package fs

import (
	iofs "io/fs"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem abstracts read access to the asset tree. Paths are
// slash-separated and relative to the tree root; "" and "." name the root.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
	// Sub returns an io/fs view rooted at path, used for pattern matching.
	Sub(path string) iofs.FS
}
