package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

func tenantOf(c *gin.Context) core.TenantID {
	return core.TenantID(c.GetString("tenant_id"))
}

// requestInfo forwards the caller's token to downstream services.
func requestInfo(c *gin.Context) core.RequestInfo {
	info := core.RequestInfo{
		APIID:     "ws-calculator",
		Ts:        time.Now().UnixMilli(),
		Action:    "_search",
		MsgID:     uuid.New().String(),
		AuthToken: c.GetString("auth_token"),
	}
	if id := c.GetString("user_id"); id != "" {
		info.UserInfo = &core.UserInfo{UUID: id, TenantID: tenantOf(c)}
	}
	return info
}

func (h *Handler) GetProperty(c *gin.Context) {
	property, err := h.lookups.GetProperty(c.Request.Context(), requestInfo(c), tenantOf(c), c.Param("propertyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	// A successful search that matched nothing is null, not an error
	c.JSON(http.StatusOK, property)
}

func (h *Handler) GetConnectionHistory(c *gin.Context) {
	connectionNo := c.Query("connectionNumber")
	if connectionNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "connectionNumber is required"})
		return
	}

	history, err := h.lookups.GetConnectionHistory(c.Request.Context(), requestInfo(c), tenantOf(c), connectionNo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if history == nil {
		history = []core.ConnectionRecord{}
	}

	c.JSON(http.StatusOK, core.ConnectionResponse{WaterConnection: history})
}

func (h *Handler) GetActiveConnection(c *gin.Context) {
	connectionNo := c.Query("connectionNumber")
	if connectionNo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "connectionNumber is required"})
		return
	}

	active, err := h.lookups.GetActiveConnection(c.Request.Context(), requestInfo(c), tenantOf(c), connectionNo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if active == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Connection not found"})
		return
	}

	c.JSON(http.StatusOK, active)
}

func (h *Handler) GetConnectionByApplication(c *gin.Context) {
	var criteria core.SearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if criteria.ApplicationNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "applicationNumber is required"})
		return
	}

	rec, err := h.lookups.GetConnectionByApplicationNo(c.Request.Context(), requestInfo(c), criteria)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetProcessInstances(c *gin.Context) {
	businessIDs := c.Query("businessIds")
	if businessIDs == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "businessIds is required"})
		return
	}

	instances, err := h.lookups.GetProcessInstances(c.Request.Context(), requestInfo(c), tenantOf(c), businessIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, core.ProcessInstanceResponse{ProcessInstances: instances})
}

func (h *Handler) GetBillingFrequency(c *gin.Context) {
	period, err := h.lookups.LoadBillingFrequency(c.Request.Context(), requestInfo(c), tenantOf(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func (h *Handler) GetAllowedPayment(c *gin.Context) {
	cfg, err := h.lookups.GetAllowedPayment(c.Request.Context(), requestInfo(c), tenantOf(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) GetFinancialYears(c *gin.Context) {
	years := c.QueryArray("years")
	if len(years) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "years is required"})
		return
	}

	out, err := h.lookups.GetFinancialYears(c.Request.Context(), requestInfo(c), tenantOf(c), years)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"FinancialYear": out})
}

func (h *Handler) GetFetchBillURL(c *gin.Context) {
	consumerCode := c.Query("consumerCode")
	if consumerCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consumerCode is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.lookups.FetchBillURL(tenantOf(c), consumerCode)})
}
