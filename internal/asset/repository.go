// Package asset models a read-only tree of binary assets and their
// serializer-generated JSON sidecars.
//
// Every path handed to a Repository is confined to its root: inputs that
// would resolve outside of it collapse to the root itself rather than
// failing, so callers that care must compare against Root or check Exists.
package asset

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/config"
	mfs "github.com/CageChen/assethub/internal/fs"
	"github.com/CageChen/assethub/internal/logging"
	"github.com/CageChen/assethub/internal/serializer"
)

// Layout describes how assets and sidecars are named and versioned.
type Layout struct {
	AssetExt    string
	CacheExt    string
	DataVersion int64
	VersionKey  string
	TypeKey     string
}

// DefaultLayout returns the layout used when none is configured.
func DefaultLayout() Layout {
	return Layout{
		AssetExt:    ".uasset",
		CacheExt:    ".json",
		DataVersion: 21,
		VersionKey:  "_apoc_data_ver",
		TypeKey:     "export_type",
	}
}

// LayoutFromConfig extracts the layout settings from cfg.
func LayoutFromConfig(cfg *config.Config) Layout {
	return Layout{
		AssetExt:    cfg.AssetExt,
		CacheExt:    cfg.CacheExt,
		DataVersion: cfg.DataVersion,
		VersionKey:  cfg.VersionKey,
		TypeKey:     cfg.TypeKey,
	}
}

// Repository is the root context every asset is resolved against.
type Repository struct {
	root       string
	layout     Layout
	fsys       mfs.FileSystem
	serializer serializer.Serializer
	logger     *zap.Logger
}

// Option customizes a Repository.
type Option func(*Repository)

// WithLayout overrides the default layout.
func WithLayout(layout Layout) Option {
	return func(r *Repository) { r.layout = layout }
}

// WithFileSystem overrides the filesystem assets are read through. It must
// be rooted at the repository root.
func WithFileSystem(fsys mfs.FileSystem) Option {
	return func(r *Repository) { r.fsys = fsys }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) { r.logger = logging.OrNop(logger) }
}

// Open creates a repository rooted at root. The root must be an existing
// directory; symlinks in it are resolved once here.
func Open(root string, ser serializer.Serializer, opts ...Option) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: root %s", ErrNotFound, abs)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", ErrNotFound, resolved)
	}

	r := &Repository{
		root:       resolved,
		layout:     DefaultLayout(),
		serializer: ser,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fsys == nil {
		r.fsys = mfs.NewLocalFS(resolved)
	}
	return r, nil
}

// Root returns the canonical path of the repository root.
func (r *Repository) Root() CanonicalPath {
	return CanonicalPath{abs: r.root}
}

// Layout returns the repository's naming and versioning settings.
func (r *Repository) Layout() Layout {
	return r.layout
}

// Folder returns the folder at the given root-relative path.
func (r *Repository) Folder(path string) Folder {
	return r.folderAt(r.Resolve(path))
}

// File returns the file asset at the given root-relative path. Any
// extension on the final segment is dropped.
func (r *Repository) File(path string) *File {
	return r.fileAt(r.Resolve(path))
}

// Glob matches pattern against the whole repository. See Folder.Glob.
func (r *Repository) Glob(pattern string) iter.Seq2[Node, error] {
	return r.folderAt(r.Root()).Glob(pattern)
}

func (r *Repository) folderAt(p CanonicalPath) Folder {
	return Folder{repo: r, path: p}
}

func (r *Repository) fileAt(p CanonicalPath) *File {
	return &File{repo: r, path: p.withoutExt()}
}
