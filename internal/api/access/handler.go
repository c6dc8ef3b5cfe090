package access

import (
	"net/http"

	"tontine-app/internal/app/http/middleware"
	"tontine-app/internal/domain/access"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type checkRequest struct {
	Path string `json:"path" binding:"required"`
}

type checkResponse struct {
	Status access.Outcome `json:"status"`
	Target string         `json:"target,omitempty"`
}

// Check answers whether the caller may open a dashboard path. Runs behind OptionalAuth.
func Check(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		d, err := access.AuthorizePath(middleware.SessionFromContext(c), req.Path)
		if err != nil {
			log.Error("access configuration error", zap.String("path", req.Path), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Access configuration error"})
			return
		}
		c.JSON(http.StatusOK, checkResponse{Status: d.Outcome, Target: d.Target})
	}
}
