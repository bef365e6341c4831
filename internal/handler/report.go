package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/markdown"
	"github.com/CageChen/assethub/internal/report"
)

// MissionsResponse carries the missions report as data and as HTML.
type MissionsResponse struct {
	ViewResponse
	Repeatable []string `json:"repeatable"`
	Unknown    []string `json:"unknown"`
}

// ReportHandler serves the analysis reports
type ReportHandler struct {
	repo   *asset.Repository
	parser *markdown.Parser
}

// NewReportHandler creates a new report handler
func NewReportHandler(repo *asset.Repository) *ReportHandler {
	return &ReportHandler{
		repo:   repo,
		parser: markdown.NewParser(),
	}
}

// Missions reports the repeatable missions below ?path=
func (h *ReportHandler) Missions(c *gin.Context) {
	folder := h.repo.Folder(c.Query("path"))
	rep, err := report.RepeatableMissions(c.Request.Context(), folder)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.parser.Parse(rep.Markdown())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to render report: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, MissionsResponse{
		ViewResponse: ViewResponse{
			Path:  folder.String(),
			Title: result.Title,
			HTML:  result.HTML,
			TOC:   result.TOC,
		},
		Repeatable: rep.Repeatable,
		Unknown:    rep.Unknown,
	})
}
