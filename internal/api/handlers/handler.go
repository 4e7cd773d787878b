package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

// Lookups is the lookup surface served over http. lookup.Service implements it.
type Lookups interface {
	GetProperty(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, propertyID string) (*core.Property, error)
	GetConnectionHistory(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, connectionNo string) ([]core.ConnectionRecord, error)
	GetActiveConnection(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, connectionNo string) (*core.ConnectionRecord, error)
	GetConnectionByApplicationNo(ctx context.Context, info core.RequestInfo, c core.SearchCriteria) (*core.ConnectionRecord, error)
	GetProcessInstances(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, businessIDs string) ([]core.ProcessInstance, error)
	LoadBillingFrequency(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (map[string]interface{}, error)
	GetAllowedPayment(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (map[string]interface{}, error)
	GetFinancialYears(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, assessmentYears []string) ([]map[string]interface{}, error)
	FetchBillURL(tenantID core.TenantID, consumerCode string) string
}

// Snapshots reads the rollout dashboard. postgres.DB implements it.
type Snapshots interface {
	ListRolloutSnapshot(ctx context.Context, stateTenant core.TenantID) ([]core.RolloutStats, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	lookups   Lookups
	snapshots Snapshots
	checks    map[string]Pinger
	logger    *zap.Logger
}

// NewHandler wires the handlers. checks are the dependencies pinged by Ready.
func NewHandler(lookups Lookups, snapshots Snapshots, checks map[string]Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		lookups:   lookups,
		snapshots: snapshots,
		checks:    checks,
		logger:    logger,
	}
}
