package asset

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// CacheState tracks whether a File has materialized its data.
type CacheState int

// Cache states.
const (
	StateUnloaded CacheState = iota
	StateLoaded
)

func (s CacheState) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "unloaded"
}

// File is a binary asset identified by its extensionless stem. Its data is
// read from the sidecar on first use and kept for the life of the value;
// distinct File values never share loaded data.
type File struct {
	repo *Repository
	path CanonicalPath

	mu    sync.Mutex
	state CacheState
	data  []Export
}

// Kind returns KindFile.
func (f *File) Kind() Kind { return KindFile }

// Path returns the stem's canonical path.
func (f *File) Path() CanonicalPath { return f.path }

// String returns the file-style display path.
func (f *File) String() string { return f.path.FileString() }

// Name returns the file name without extension.
func (f *File) Name() string { return f.path.stem() }

// Equal reports whether other has the same canonical path.
func (f *File) Equal(other Node) bool { return samePath(f.path, other) }

// Parent returns the folder containing the file.
func (f *File) Parent() Folder {
	return f.repo.folderAt(f.path.parent())
}

// AsFolder returns the folder sharing this file's stem.
func (f *File) AsFolder() Folder {
	return f.repo.folderAt(f.path)
}

// BinaryPath returns the absolute path of the binary asset.
func (f *File) BinaryPath() string {
	abs, _ := f.path.withExt(f.repo.layout.AssetExt)
	return abs
}

// SidecarPath returns the absolute path of the JSON sidecar.
func (f *File) SidecarPath() string {
	abs, _ := f.path.withExt(f.repo.layout.CacheExt)
	return abs
}

// Exists reports whether the binary asset exists. The sidecar does not count.
// A file that collapsed onto the root never exists.
func (f *File) Exists() bool {
	if f.path.IsRoot() {
		return false
	}
	_, rel := f.path.withExt(f.repo.layout.AssetExt)
	info, err := f.repo.fsys.Stat(rel)
	return err == nil && !info.IsDir
}

// State reports whether the file's data has been loaded.
func (f *File) State() CacheState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Data returns the file's exports, producing them through the serializer
// when the sidecar is missing or stale. The first successful result is kept
// and returned by later calls without touching the disk.
func (f *File) Data(ctx context.Context) ([]Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateLoaded {
		return f.data, nil
	}
	data, err := f.materialize(ctx)
	if err != nil {
		return nil, err
	}
	f.data = data
	f.state = StateLoaded
	return data, nil
}

// ExportsOfTypes returns the exports whose type is one of types, in file order.
func (f *File) ExportsOfTypes(ctx context.Context, types ...string) (iter.Seq[Export], error) {
	data, err := f.Data(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	key := f.repo.layout.TypeKey
	return func(yield func(Export) bool) {
		for _, e := range data {
			if _, ok := want[e.typeOf(key)]; !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}

// SingleExportOfTypes returns the only export whose type is one of types.
func (f *File) SingleExportOfTypes(ctx context.Context, types ...string) (Export, error) {
	seq, err := f.ExportsOfTypes(ctx, types...)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull(seq)
	defer stop()

	first, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no exports of types %s", ErrNoMatch, f, quoteTypes(types))
	}
	if _, ok := next(); ok {
		return nil, fmt.Errorf("%w: %s has several exports of types %s", ErrAmbiguousMatch, f, quoteTypes(types))
	}
	return first, nil
}

func quoteTypes(types []string) string {
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = "'" + t + "'"
	}
	return strings.Join(quoted, ", ")
}
