// Package handler provides HTTP handlers for the AssetHub REST API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/markdown"
)

// FileResponse represents the response for a file request
type FileResponse struct {
	Path    string         `json:"path"`
	Name    string         `json:"name"`
	State   string         `json:"state"`
	Count   int            `json:"count"`
	Exports []asset.Export `json:"exports"`
}

// ViewResponse is an HTML rendering of exports or a report.
type ViewResponse struct {
	Path  string             `json:"path"`
	Title string             `json:"title"`
	HTML  string             `json:"html"`
	TOC   []markdown.TOCItem `json:"toc"`
}

// FileHandler handles asset data requests
type FileHandler struct {
	repo   *asset.Repository
	cache  *FileCache
	parser *markdown.Parser
}

// NewFileHandler creates a new file handler
func NewFileHandler(repo *asset.Repository, cache *FileCache) *FileHandler {
	return &FileHandler{
		repo:   repo,
		cache:  cache,
		parser: markdown.NewParser(),
	}
}

// exportQuery is the export selection shared by GetFile and View.
type exportQuery struct {
	Types  []string
	Single bool
}

func parseExportQuery(c *gin.Context) (exportQuery, error) {
	q := exportQuery{Types: c.QueryArray("type")}
	if raw := c.Query("single"); raw != "" {
		single, err := strconv.ParseBool(raw)
		if err != nil {
			return q, errors.New("single must be a boolean")
		}
		q.Single = single
	}
	if q.Single && len(q.Types) == 0 {
		return q, errors.New("single requires at least one type")
	}
	return q, nil
}

// selectExports returns the exports of file chosen by q.
func selectExports(ctx context.Context, file *asset.File, q exportQuery) ([]asset.Export, error) {
	switch {
	case q.Single:
		e, err := file.SingleExportOfTypes(ctx, q.Types...)
		if err != nil {
			return nil, err
		}
		return []asset.Export{e}, nil
	case len(q.Types) > 0:
		seq, err := file.ExportsOfTypes(ctx, q.Types...)
		if err != nil {
			return nil, err
		}
		exports := []asset.Export{}
		for e := range seq {
			exports = append(exports, e)
		}
		return exports, nil
	default:
		return file.Data(ctx)
	}
}

func (h *FileHandler) load(c *gin.Context) (*asset.File, []asset.Export, bool) {
	q, err := parseExportQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return nil, nil, false
	}

	file := h.cache.File(c.Param("path"))
	exports, err := selectExports(c.Request.Context(), file, q)
	if err != nil {
		abortWithError(c, err)
		return nil, nil, false
	}
	return file, exports, true
}

// GetFile returns the exports of the asset at the path parameter
func (h *FileHandler) GetFile(c *gin.Context) {
	file, exports, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, FileResponse{
		Path:    file.String(),
		Name:    file.Name(),
		State:   file.State().String(),
		Count:   len(exports),
		Exports: exports,
	})
}

// View returns the exports of the asset rendered as highlighted HTML
func (h *FileHandler) View(c *gin.Context) {
	file, exports, ok := h.load(c)
	if !ok {
		return
	}

	typeKey := h.repo.Layout().TypeKey
	records := make([]markdown.Record, len(exports))
	for i, e := range exports {
		heading := strconv.Itoa(i)
		if t, ok := e.StringAt(typeKey); ok && t != "" {
			heading += " " + t
		}
		records[i] = markdown.Record{Heading: heading, Value: e}
	}

	result, err := h.parser.RenderRecords(file.String(), records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to render exports: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ViewResponse{
		Path:  file.String(),
		Title: result.Title,
		HTML:  result.HTML,
		TOC:   result.TOC,
	})
}
