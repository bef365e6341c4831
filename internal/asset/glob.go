package asset

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"iter"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var errStopGlob = errors.New("stop glob")

// Glob yields the nodes below the folder matching pattern. The pattern is
// relative to the folder, a leading "/" is ignored and "**" matches any
// number of directories.
//
// An asset usually exists under several names (the binary, its sidecar, a
// folder of the same stem), so results are de-duplicated by stem: at most one
// node is yielded per extensionless path, and a matching directory wins over
// files.
func (f Folder) Glob(pattern string) iter.Seq2[Node, error] {
	pattern = strings.TrimLeft(pattern, "/")
	return func(yield func(Node, error) bool) {
		if !doublestar.ValidatePattern(pattern) {
			yield(nil, fmt.Errorf("glob %q: %w", pattern, doublestar.ErrBadPattern))
			return
		}

		g := &globber{folder: f, pattern: pattern, dirs: make(map[string][]string)}
		seen := make(map[CanonicalPath]bool)
		walk := func(match string, _ iofs.DirEntry) error {
			node, ok := g.node(match)
			if !ok {
				return nil
			}
			key := node.Path().withoutExt()
			if seen[key] {
				return nil
			}
			seen[key] = true
			if !yield(node, nil) {
				return errStopGlob
			}
			return nil
		}

		err := doublestar.GlobWalk(f.repo.fsys.Sub(f.path.rel), pattern, walk)
		if err != nil && !errors.Is(err, errStopGlob) {
			yield(nil, fmt.Errorf("glob %q in %s: %w", pattern, f, err))
		}
	}
}

// globber turns matches of one Glob call into nodes.
type globber struct {
	folder  Folder
	pattern string
	// dirs caches the sorted subdirectory names of each matched parent.
	dirs map[string][]string
}

// node wraps a match into a node. A file match is replaced by a directory
// of the same stem when that directory matches the pattern too.
func (g *globber) node(match string) (Node, bool) {
	repo := g.folder.repo
	resolved := repo.ResolveUnder(g.folder.path, match)
	info, err := repo.fsys.Stat(resolved.rel)
	if err != nil {
		return nil, false
	}
	if info.IsDir {
		return repo.folderAt(resolved), true
	}

	file := repo.fileAt(resolved)
	if dir, ok := g.stemDir(match); ok {
		return repo.folderAt(repo.ResolveUnder(g.folder.path, dir)), true
	}
	return file, true
}

// stemDir finds a sibling directory of the file match whose extensionless
// name equals the file's stem and which matches the pattern.
func (g *globber) stemDir(match string) (string, bool) {
	parent, base := path.Split(match)
	parent = strings.TrimSuffix(parent, "/")
	stem := strings.TrimSuffix(base, path.Ext(base))

	for _, name := range g.subdirs(parent) {
		if strings.TrimSuffix(name, path.Ext(name)) != stem {
			continue
		}
		candidate := name
		if parent != "" {
			candidate = parent + "/" + name
		}
		if ok, _ := doublestar.Match(g.pattern, candidate); ok {
			return candidate, true
		}
	}
	return "", false
}

func (g *globber) subdirs(parent string) []string {
	if names, ok := g.dirs[parent]; ok {
		return names
	}
	var names []string
	dir := g.folder.repo.ResolveUnder(g.folder.path, parent)
	if entries, err := g.folder.repo.fsys.ReadDir(dir.rel); err == nil {
		for _, e := range entries {
			if e.IsDir {
				names = append(names, e.Name)
			}
		}
	}
	g.dirs[parent] = names
	return names
}
