package handler

import (
	"fmt"
	"iter"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/assethub/internal/asset"
)

// TreeNode represents a file or directory in the tree
type TreeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Path     string      `json:"path"`
	Children []*TreeNode `json:"children,omitempty"`
}

func newTreeNode(n asset.Node) *TreeNode {
	node := &TreeNode{Path: n.String(), Type: "file"}
	switch v := n.(type) {
	case asset.Folder:
		node.Name = v.Name()
		node.Type = "directory"
	case *asset.File:
		node.Name = v.Name()
	}
	return node
}

// TreeHandler handles directory listing, search and glob requests
type TreeHandler struct {
	repo *asset.Repository
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(repo *asset.Repository) *TreeHandler {
	return &TreeHandler{repo: repo}
}

// GetTree lists the direct children of the folder named by ?path=
func (h *TreeHandler) GetTree(c *gin.Context) {
	folder := h.repo.Folder(c.Query("path"))
	if !folder.Exists() {
		abortWithError(c, fmt.Errorf("%w: folder %s", asset.ErrNotFound, folder))
		return
	}

	node := newTreeNode(folder)
	for child, err := range folder.ChildFolders() {
		if err != nil {
			abortWithError(c, err)
			return
		}
		node.Children = append(node.Children, newTreeNode(child))
	}
	for child, err := range folder.ChildFiles() {
		if err != nil {
			abortWithError(c, err)
			return
		}
		node.Children = append(node.Children, newTreeNode(child))
	}

	// Sort: directories first, then files, both alphabetically
	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Type != b.Type {
			return a.Type == "directory"
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	c.JSON(http.StatusOK, node)
}

// Search returns the asset files below ?path= whose name starts with ?prefix=.
// An optional ?limit= caps the number of results.
func (h *TreeHandler) Search(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	folder := h.repo.Folder(c.Query("path"))
	h.respondNodes(c, nodes(folder.SearchFiles(c.Query("prefix"))), limit)
}

// Glob returns the nodes below ?path= matching ?pattern=.
func (h *TreeHandler) Glob(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "pattern is required",
		})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	folder := h.repo.Folder(c.Query("path"))
	h.respondNodes(c, folder.Glob(pattern), limit)
}

func (h *TreeHandler) respondNodes(c *gin.Context, seq iter.Seq2[asset.Node, error], limit int) {
	results := []*TreeNode{}
	for n, err := range seq {
		if err != nil {
			abortWithError(c, err)
			return
		}
		results = append(results, newTreeNode(n))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid limit",
		})
		return 0, false
	}
	return limit, true
}

// nodes widens a sequence of files to a sequence of nodes.
func nodes(seq iter.Seq2[*asset.File, error]) iter.Seq2[asset.Node, error] {
	return func(yield func(asset.Node, error) bool) {
		for f, err := range seq {
			var n asset.Node
			if f != nil {
				n = f
			}
			if !yield(n, err) {
				return
			}
		}
	}
}
