package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRolloutDashboard lists the last snapshot for villages of the tenant's state.
func (h *Handler) GetRolloutDashboard(c *gin.Context) {
	rows, err := h.snapshots.ListRolloutSnapshot(c.Request.Context(), tenantOf(c).StateLevel())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"villages": rows,
		"total":    len(rows),
	})
}
