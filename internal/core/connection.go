package core

import (
	"encoding/json"
	"strings"
)

type ApplicationType string

const (
	ApplicationNewConnection    ApplicationType = "NEW_WATER_CONNECTION"
	ApplicationModifyConnection ApplicationType = "MODIFY_WATER_CONNECTION"
	ApplicationDisconnection    ApplicationType = "DISCONNECT_WATER_CONNECTION"
)

// IsModify compares case-insensitively, the registry is not consistent about casing.
func (a ApplicationType) IsModify() bool {
	return strings.EqualFold(string(a), string(ApplicationModifyConnection))
}

type AuditDetails struct {
	CreatedBy        string `json:"createdBy,omitempty"`
	LastModifiedBy   string `json:"lastModifiedBy,omitempty"`
	CreatedTime      int64  `json:"createdTime,omitempty"`
	LastModifiedTime int64  `json:"lastModifiedTime,omitempty"`
}

// ConnectionRecord is one version of a water connection. Times are epoch milliseconds
// as delivered by the connection registry.
type ConnectionRecord struct {
	ID                 string          `json:"id"`
	TenantID           TenantID        `json:"tenantId"`
	PropertyID         string          `json:"propertyId,omitempty"`
	ApplicationNo      string          `json:"applicationNo,omitempty"`
	ApplicationStatus  string          `json:"applicationStatus,omitempty"`
	ApplicationType    ApplicationType `json:"applicationType"`
	Status             string          `json:"status,omitempty"`
	ConnectionNo       string          `json:"connectionNo,omitempty"`
	ConnectionType     string          `json:"connectionType,omitempty"`
	ConnectionCategory string          `json:"connectionCategory,omitempty"`
	DateEffectiveFrom  int64           `json:"dateEffectiveFrom,omitempty"`
	AuditDetails       AuditDetails    `json:"auditDetails"`

	// Passed through untouched to the calculation engine.
	AdditionalDetails json.RawMessage `json:"additionalDetails,omitempty"`
}

func (c ConnectionRecord) LastModifiedTime() int64 {
	return c.AuditDetails.LastModifiedTime
}

type ConnectionResponse struct {
	WaterConnection []ConnectionRecord `json:"WaterConnection"`
}

// SearchCriteria selects connections in the registry. Empty fields are left out
// of the search url.
type SearchCriteria struct {
	TenantID          TenantID `json:"tenantId" form:"tenantId" binding:"required"`
	ConnectionNumber  string   `json:"connectionNumber,omitempty" form:"connectionNumber"`
	ApplicationNumber string   `json:"applicationNumber,omitempty" form:"applicationNumber"`
}
