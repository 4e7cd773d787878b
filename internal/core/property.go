package core

import "encoding/json"

type Property struct {
	ID                string          `json:"id,omitempty"`
	PropertyID        string          `json:"propertyId"`
	TenantID          TenantID        `json:"tenantId"`
	Status            string          `json:"status,omitempty"`
	UsageCategory     string          `json:"usageCategory,omitempty"`
	PropertyType      string          `json:"propertyType,omitempty"`
	LandArea          float64         `json:"landArea,omitempty"`
	SuperBuiltUpArea  float64         `json:"superBuiltUpArea,omitempty"`
	NoOfFloors        int             `json:"noOfFloors,omitempty"`
	Address           json.RawMessage `json:"address,omitempty"`
	AdditionalDetails json.RawMessage `json:"additionalDetails,omitempty"`
	AuditDetails      AuditDetails    `json:"auditDetails"`
}

type PropertyResponse struct {
	Properties []Property `json:"Properties"`
}
