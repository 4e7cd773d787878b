package core

import "time"

// BillingJob asks the demand generator to bill one tenant for one billing period.
type BillingJob struct {
	ID             string                 `json:"id"`
	TenantID       TenantID               `json:"tenant_id"`
	ConnectionType string                 `json:"connection_type"`
	BillingCycle   string                 `json:"billing_cycle"`
	BillingPeriod  map[string]interface{} `json:"billing_period"`
	Priority       int                    `json:"priority"`
	CreatedAt      time.Time              `json:"created_at"`
}
