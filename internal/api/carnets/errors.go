package carnets

import (
	"errors"
	"net/http"

	"tontine-app/internal/app/ledger"
	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/carnets"
	"tontine-app/internal/infra/persistence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps ledger and persistence errors to the API error payload.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	if te, ok := persistence.AsTransportError(err); ok {
		writeTransportError(c, log, te)
		return
	}
	if ve, ok := carnets.AsValidationError(err); ok {
		status := http.StatusBadRequest
		if ve.Code == carnets.CodeReversalNotExplicit {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error":   ve.Message,
			"details": gin.H{"code": ve.Code, "field": ve.Field},
		})
		return
	}

	switch {
	case errors.Is(err, carnets.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Carnet not found"})
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case access.IsConfigurationError(err):
		log.Error("access configuration error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Access configuration error"})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// Upstream 4xx answers are passed through; anything else is a bad gateway.
func writeTransportError(c *gin.Context, log *zap.Logger, te *persistence.TransportError) {
	log.Warn("carnet backend failed",
		zap.String("op", te.Op),
		zap.Int("status", te.StatusCode),
		zap.Error(te),
	)

	status := http.StatusBadGateway
	if te.StatusCode >= 400 && te.StatusCode < 500 {
		status = te.StatusCode
	}

	body := gin.H{"error": "Carnet backend unavailable"}
	if te.Payload != nil {
		if te.Payload.Error != "" {
			body["error"] = te.Payload.Error
		}
		if len(te.Payload.Details) > 0 {
			body["details"] = te.Payload.Details
		}
	}
	c.JSON(status, body)
}
