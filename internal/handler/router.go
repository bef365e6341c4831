package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/logging"
	"github.com/CageChen/assethub/internal/metrics"
)

// Handlers bundles the handlers served by the router.
type Handlers struct {
	Tree   *TreeHandler
	File   *FileHandler
	Report *ReportHandler
	WS     *WSHandler
	Cache  *FileCache
}

// NewHandlers wires every handler to repo. cacheSize bounds the number of
// files kept loaded between requests.
func NewHandlers(repo *asset.Repository, cacheSize int, logger *zap.Logger) (*Handlers, error) {
	cache, err := NewFileCache(repo, cacheSize)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		Tree:   NewTreeHandler(repo),
		File:   NewFileHandler(repo, cache),
		Report: NewReportHandler(repo),
		WS:     NewWSHandler(repo, logger),
		Cache:  cache,
	}, nil
}

// NewRouter builds the gin engine serving the API and metrics.
func NewRouter(h *Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logging.OrNop(logger)))
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/tree", h.Tree.GetTree)
		api.GET("/search", h.Tree.Search)
		api.GET("/glob", h.Tree.Glob)
		api.GET("/files/*path", h.File.GetFile)
		api.GET("/view/*path", h.File.View)
		api.GET("/reports/missions", h.Report.Missions)
		api.GET("/ws", h.WS.HandleWS)
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordHTTPRequest(c.Request.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("error", errs.String()))
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
		} else {
			logger.Debug("request", fields...)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
