package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

// respondError maps lookup failures onto http statuses. The body carries a
// fixed message only.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, core.ErrConfigNotFound):
		status, message = http.StatusNotFound, "Configuration not found"
	case errors.Is(err, core.ErrNoRecordsFound):
		status, message = http.StatusNotFound, "No records found"
	case errors.Is(err, core.ErrRemoteUnavailable):
		status, message = http.StatusBadGateway, "Downstream service unavailable"
	case errors.Is(err, core.ErrMalformedResponse):
		status, message = http.StatusBadGateway, "Malformed downstream response"
	}

	fields := []zap.Field{
		zap.String("tenant_id", c.GetString("tenant_id")),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Lookup failed", fields...)
	} else {
		h.logger.Info("Lookup found nothing", fields...)
	}

	c.JSON(status, gin.H{"error": message})
}
