package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/dsatow/lexilocal/internal/ai"
	apperr "github.com/dsatow/lexilocal/internal/pkg/errors"
	"github.com/dsatow/lexilocal/internal/pkg/errcode"
	"github.com/dsatow/lexilocal/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, apperr.ErrIndexNotBuilt):
		response.Error(c, errcode.ErrIndexNotBuilt, "no documents have been indexed")
	case errors.Is(err, apperr.ErrCorruptIndex):
		response.Error(c, errcode.ErrCorruptIndex, "stored index is corrupt")
	case errors.Is(err, apperr.ErrEmbedding):
		response.Error(c, errcode.ErrEmbeddingFailed, "embedding failed")
	case errors.Is(err, apperr.ErrGeneration):
		response.Error(c, errcode.ErrGenerationFailed, "generation failed")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
