package asset

import (
	"path"
	"path/filepath"
	"strings"
)

// CanonicalPath is an absolute, cleaned, symlink-resolved location inside a
// repository root. It is comparable and can be used as a map key.
type CanonicalPath struct {
	abs string
	rel string
}

// Abs returns the absolute OS path.
func (p CanonicalPath) Abs() string {
	return p.abs
}

// Rel returns the slash-separated path relative to the root; "" for the root.
func (p CanonicalPath) Rel() string {
	return p.rel
}

// IsRoot reports whether p is the repository root.
func (p CanonicalPath) IsRoot() bool {
	return p.rel == ""
}

// Segments returns the path segments below the root.
func (p CanonicalPath) Segments() []string {
	if p.rel == "" {
		return nil
	}
	return strings.Split(p.rel, "/")
}

// FolderString renders p folder-style: "/" for the root, "/A/B/" otherwise.
func (p CanonicalPath) FolderString() string {
	if p.rel == "" {
		return "/"
	}
	return "/" + p.rel + "/"
}

// FileString renders p file-style, without the trailing slash.
func (p CanonicalPath) FileString() string {
	if p.rel == "" {
		return "/"
	}
	return "/" + p.rel
}

// stem returns the final segment without its extension.
func (p CanonicalPath) stem() string {
	base := filepath.Base(p.abs)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parent returns the path one segment up; the root is its own parent.
func (p CanonicalPath) parent() CanonicalPath {
	if p.rel == "" {
		return p
	}
	rel := path.Dir(p.rel)
	if rel == "." {
		rel = ""
	}
	return CanonicalPath{abs: filepath.Dir(p.abs), rel: rel}
}

// withoutExt drops the extension of the final segment. The root is unchanged.
func (p CanonicalPath) withoutExt() CanonicalPath {
	if p.rel == "" {
		return p
	}
	ext := path.Ext(p.rel)
	if ext == "" {
		return p
	}
	return CanonicalPath{
		abs: strings.TrimSuffix(p.abs, ext),
		rel: strings.TrimSuffix(p.rel, ext),
	}
}

// withExt appends ext to the final segment. The root has no final segment,
// so it gets a bare ext entry inside itself.
func (p CanonicalPath) withExt(ext string) (abs, rel string) {
	if p.rel == "" {
		return filepath.Join(p.abs, ext), ext
	}
	return p.abs + ext, p.rel + ext
}

// Resolve maps a root-relative input to a canonical path. A leading
// separator is optional. Results outside the root collapse to the root.
func (r *Repository) Resolve(input string) CanonicalPath {
	return r.ResolveUnder(r.Root(), input)
}

// ResolveUnder resolves rel against base, with the same confinement rules
// as Resolve.
func (r *Repository) ResolveUnder(base CanonicalPath, rel string) CanonicalPath {
	rel = strings.TrimLeft(filepath.FromSlash(rel), string(filepath.Separator))
	return r.canonical(filepath.Join(base.abs, rel))
}

// canonical resolves symlinks in abs and confines the result to the root.
func (r *Repository) canonical(abs string) CanonicalPath {
	resolved := evalExisting(filepath.Clean(abs))
	rel, err := filepath.Rel(r.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return r.Root()
	}
	if rel == "." {
		return r.Root()
	}
	return CanonicalPath{abs: resolved, rel: filepath.ToSlash(rel)}
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// appends the remaining, not yet existing, segments unchanged.
func evalExisting(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	dir := filepath.Dir(p)
	if dir == p {
		return p
	}
	return filepath.Join(evalExisting(dir), filepath.Base(p))
}
