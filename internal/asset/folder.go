package asset

import (
	"fmt"
	"iter"
	"path"
	"strings"
)

// Folder is a directory in the repository, or the place one could be.
type Folder struct {
	repo *Repository
	path CanonicalPath
}

// Kind returns KindFolder.
func (f Folder) Kind() Kind { return KindFolder }

// Path returns the folder's canonical path.
func (f Folder) Path() CanonicalPath { return f.path }

// String returns the folder-style display path.
func (f Folder) String() string { return f.path.FolderString() }

// Name returns the folder name without extension.
func (f Folder) Name() string { return f.path.stem() }

// Equal reports whether other has the same canonical path.
func (f Folder) Equal(other Node) bool { return samePath(f.path, other) }

// Exists reports whether the directory exists on disk.
func (f Folder) Exists() bool {
	info, err := f.repo.fsys.Stat(f.path.rel)
	return err == nil && info.IsDir
}

// Parent returns the enclosing folder; the root is its own parent.
func (f Folder) Parent() Folder {
	return f.repo.folderAt(f.path.parent())
}

// AsFile returns the file asset whose stem is this folder's path.
func (f Folder) AsFile() *File {
	return f.repo.fileAt(f.path)
}

// Child returns the folder at rel below f.
func (f Folder) Child(rel string) Folder {
	return f.repo.folderAt(f.repo.ResolveUnder(f.path, rel))
}

// Join appends operand to the folder path. The operand may be a string, a
// CanonicalPath or a Node; paths and nodes contribute their root-relative
// path. A result outside the root collapses to the root.
func (f Folder) Join(operand any) (Folder, error) {
	switch v := operand.(type) {
	case string:
		return f.Child(v), nil
	case CanonicalPath:
		return f.Child(v.rel), nil
	case *File:
		if v == nil {
			return Folder{}, fmt.Errorf("%w: nil file", ErrInvalidComposition)
		}
		return f.Child(v.path.rel), nil
	case Node:
		return f.Child(v.Path().rel), nil
	default:
		return Folder{}, fmt.Errorf("%w: cannot append %T to %s", ErrInvalidComposition, operand, f)
	}
}

// ChildFiles yields the asset files directly inside the folder.
func (f Folder) ChildFiles() iter.Seq2[*File, error] {
	return func(yield func(*File, error) bool) {
		entries, err := f.repo.fsys.ReadDir(f.path.rel)
		if err != nil {
			yield(nil, fmt.Errorf("%w: folder %s: %w", ErrNotFound, f, err))
			return
		}
		for _, e := range entries {
			if e.IsDir || !f.repo.isAssetName(e.Name) {
				continue
			}
			if !yield(f.repo.fileAt(f.repo.ResolveUnder(f.path, e.Name)), nil) {
				return
			}
		}
	}
}

// ChildFolders yields the directories directly inside the folder.
func (f Folder) ChildFolders() iter.Seq2[Folder, error] {
	return func(yield func(Folder, error) bool) {
		entries, err := f.repo.fsys.ReadDir(f.path.rel)
		if err != nil {
			yield(Folder{}, fmt.Errorf("%w: folder %s: %w", ErrNotFound, f, err))
			return
		}
		for _, e := range entries {
			if !e.IsDir {
				continue
			}
			if !yield(f.Child(e.Name), nil) {
				return
			}
		}
	}
}

// SearchFiles yields every asset file below the folder whose name starts
// with prefix, ignoring case. Each directory's files are yielded before
// its subdirectories are entered. The disk is walked anew on every range.
func (f Folder) SearchFiles(prefix string) iter.Seq2[*File, error] {
	prefix = strings.ToLower(prefix)
	return func(yield func(*File, error) bool) {
		if !f.Exists() {
			yield(nil, fmt.Errorf("%w: folder %s", ErrNotFound, f))
			return
		}
		visited := make(map[CanonicalPath]bool)
		f.search(prefix, visited, yield)
	}
}

func (f Folder) search(prefix string, visited map[CanonicalPath]bool, yield func(*File, error) bool) bool {
	if visited[f.path] {
		return true
	}
	visited[f.path] = true

	entries, err := f.repo.fsys.ReadDir(f.path.rel)
	if err != nil {
		return yield(nil, fmt.Errorf("read folder %s: %w", f, err))
	}

	var subdirs []Folder
	for _, e := range entries {
		if e.IsDir {
			child := f.Child(e.Name)
			// Links that leave the root collapse onto it; never re-enter.
			if !child.path.IsRoot() {
				subdirs = append(subdirs, child)
			}
			continue
		}
		if !f.repo.isAssetName(e.Name) {
			continue
		}
		stem := strings.TrimSuffix(e.Name, path.Ext(e.Name))
		if !strings.HasPrefix(strings.ToLower(stem), prefix) {
			continue
		}
		if !yield(f.repo.fileAt(f.repo.ResolveUnder(f.path, e.Name)), nil) {
			return false
		}
	}

	for _, sub := range subdirs {
		if !sub.search(prefix, visited, yield) {
			return false
		}
	}
	return true
}

func (r *Repository) isAssetName(name string) bool {
	return path.Ext(name) == r.layout.AssetExt
}
