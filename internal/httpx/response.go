package httpx

import (
	"net/http"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func OK(c *gin.Context, v any) {
	c.JSON(200, v)
}

func Created(c *gin.Context, v any) {
	c.JSON(http.StatusCreated, v)
}

func Err(c *gin.Context, code int, msg any) {
	c.JSON(code, gin.H{"error": msg})
}

// Fail renders a domain error with a status matching its kind. Storage and
// unclassified errors are logged and hidden behind a generic message.
func Fail(c *gin.Context, log *zap.Logger, err error) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kind.String()})
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": kind.String()})
	case domain.KindPermissionDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "kind": kind.String()})
	case domain.KindExpired:
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "kind": kind.String()})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": domain.KindStorage.String()})
	}
}
