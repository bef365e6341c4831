package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gin-gonic/gin"

	"github.com/CageChen/assethub/internal/asset"
)

// statusFor maps repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, asset.ErrNotFound), errors.Is(err, asset.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, asset.ErrAmbiguousMatch):
		return http.StatusConflict
	case errors.Is(err, asset.ErrSerializationFailure):
		return http.StatusBadGateway
	case errors.Is(err, asset.ErrInvalidComposition), errors.Is(err, doublestar.ErrBadPattern):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error": err.Error(),
	})
}
