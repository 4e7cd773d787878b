package lookup

import (
	"context"
	"fmt"

	"github.com/leozw/ws-billing-resolver/internal/connection"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
	"github.com/leozw/ws-billing-resolver/internal/remote"
	"go.uber.org/zap"
)

// Recorder receives lookup outcomes. metrics.Collector implements it.
type Recorder interface {
	RecordLookup(tenantID core.TenantID, useCase, result string)
	RecordActiveSelection(tenantID core.TenantID, outcome string)
}

const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"

	SelectionLatest  = "latest"
	SelectionPending = "pending_modification_skipped"
)

type Config struct {
	URLs      *URLBuilder
	Fetcher   remote.Fetcher
	Extractor remote.Extractor
	Masters   *mdms.Resolver
	Versions  *connection.Resolver
	Recorder  Recorder
	Logger    *zap.Logger
}

// Service serves the lookups a water charge calculation needs.
type Service struct {
	urls      *URLBuilder
	fetcher   remote.Fetcher
	extractor remote.Extractor
	masters   *mdms.Resolver
	versions  *connection.Resolver
	recorder  Recorder
	logger    *zap.Logger
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		urls:      cfg.URLs,
		fetcher:   cfg.Fetcher,
		extractor: cfg.Extractor,
		masters:   cfg.Masters,
		versions:  cfg.Versions,
		recorder:  cfg.Recorder,
		logger:    logger,
	}
}

// FetchBillURL addresses the bill of a water consumer in the billing service.
func (s *Service) FetchBillURL(tenantID core.TenantID, consumerCode string) string {
	return s.urls.FetchBill(tenantID, consumerCode)
}

func (s *Service) record(tenantID core.TenantID, useCase string, found bool, err error) {
	if s.recorder == nil {
		return
	}
	result := ResultFound
	switch {
	case err != nil:
		result = ResultError
	case !found:
		result = ResultNotFound
	}
	s.recorder.RecordLookup(tenantID, useCase, result)
}

func wrapper(info core.RequestInfo) core.RequestInfoWrapper {
	return core.RequestInfoWrapper{RequestInfo: info}
}

// GetProperty returns nil when the registry has no such property.
func (s *Service) GetProperty(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, propertyID string) (p *core.Property, err error) {
	defer func() { s.record(tenantID, "property", p != nil, err) }()

	payload, err := s.fetcher.Fetch(ctx, s.urls.PropertySearch(tenantID, propertyID), wrapper(info))
	if err != nil {
		return nil, fmt.Errorf("property search: %w", err)
	}
	if payload.Empty() {
		return nil, nil
	}

	resp, err := remote.Decode[core.PropertyResponse](payload)
	if err != nil {
		s.logger.Error("Error while parsing response of property search", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("property search: %w", err)
	}
	if len(resp.Properties) == 0 {
		return nil, nil
	}

	return &resp.Properties[0], nil
}

// SearchConnections returns the history matching c ordered by last modified time,
// or nil when there is none.
func (s *Service) SearchConnections(ctx context.Context, info core.RequestInfo, c core.SearchCriteria) ([]core.ConnectionRecord, error) {
	payload, err := s.fetcher.Fetch(ctx, s.urls.ConnectionSearch(c), wrapper(info))
	if err != nil {
		return nil, fmt.Errorf("water connection search: %w", err)
	}
	if payload.Empty() {
		return nil, nil
	}

	resp, err := remote.Decode[core.ConnectionResponse](payload)
	if err != nil {
		s.logger.Error("Error while parsing response of water connection search", zap.String("tenant_id", c.TenantID.String()), zap.Error(err))
		return nil, fmt.Errorf("water connection search: %w", err)
	}
	if len(resp.WaterConnection) == 0 {
		return nil, nil
	}

	return connection.SortByLastModified(resp.WaterConnection), nil
}

func (s *Service) GetConnectionHistory(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, connectionNo string) (history []core.ConnectionRecord, err error) {
	defer func() { s.record(tenantID, "connection_history", len(history) > 0, err) }()

	return s.SearchConnections(ctx, info, core.SearchCriteria{TenantID: tenantID, ConnectionNumber: connectionNo})
}

// GetActiveConnection resolves the version of connectionNo currently in effect.
// It returns nil when the registry knows no version of the connection.
func (s *Service) GetActiveConnection(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, connectionNo string) (active *core.ConnectionRecord, err error) {
	defer func() { s.record(tenantID, "active_connection", active != nil, err) }()

	history, err := s.SearchConnections(ctx, info, core.SearchCriteria{TenantID: tenantID, ConnectionNumber: connectionNo})
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	sel, err := s.versions.Select(history)
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		outcome := SelectionLatest
		if sel.SkippedPending {
			outcome = SelectionPending
		}
		s.recorder.RecordActiveSelection(tenantID, outcome)
	}

	return &sel.Record, nil
}

// GetConnectionByApplicationNo returns the first connection of the application.
func (s *Service) GetConnectionByApplicationNo(ctx context.Context, info core.RequestInfo, c core.SearchCriteria) (rec *core.ConnectionRecord, err error) {
	defer func() { s.record(c.TenantID, "connection_by_application", rec != nil, err) }()

	payload, err := s.fetcher.Fetch(ctx, s.urls.ConnectionSearch(c), wrapper(info))
	if err != nil {
		return nil, fmt.Errorf("water connection search: %w", err)
	}
	if payload.Empty() {
		return nil, nil
	}

	resp, err := remote.Decode[core.ConnectionResponse](payload)
	if err != nil {
		return nil, fmt.Errorf("water connection search: %w", err)
	}
	if len(resp.WaterConnection) == 0 {
		return nil, nil
	}

	return &resp.WaterConnection[0], nil
}

// GetProcessInstances never returns nil on success, an unknown business id yields an empty list.
func (s *Service) GetProcessInstances(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, businessIDs string) (out []core.ProcessInstance, err error) {
	defer func() { s.record(tenantID, "process_instances", len(out) > 0, err) }()

	payload, err := s.fetcher.Fetch(ctx, s.urls.WorkflowProcessSearch(tenantID, businessIDs), wrapper(info))
	if err != nil {
		return nil, fmt.Errorf("process instance search: %w", err)
	}
	if payload.Empty() {
		return []core.ProcessInstance{}, nil
	}

	resp, err := remote.Decode[core.ProcessInstanceResponse](payload)
	if err != nil {
		return nil, fmt.Errorf("process instance search: %w", err)
	}
	if len(resp.ProcessInstances) == 0 {
		return []core.ProcessInstance{}, nil
	}

	return resp.ProcessInstances, nil
}

// SearchMasterData posts q to the master-data service.
func (s *Service) SearchMasterData(ctx context.Context, info core.RequestInfo, q mdms.Query) (remote.Payload, error) {
	payload, err := s.fetcher.Fetch(ctx, s.urls.MdmsSearch(), q.Request(info))
	if err != nil {
		return nil, fmt.Errorf("mdms search for %s: %w", q.TenantID(), err)
	}
	return payload, nil
}

func (s *Service) searchFunc(info core.RequestInfo) mdms.SearchFunc {
	return func(ctx context.Context, q mdms.Query) (remote.Payload, error) {
		return s.SearchMasterData(ctx, info, q)
	}
}

// ResolveMasterData runs q for tenantID with state level fallback.
func (s *Service) ResolveMasterData(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, q mdms.Query) (*mdms.Result, error) {
	return s.masters.ResolveTenantScopedConfig(ctx, tenantID, q, s.searchFunc(info))
}

// LoadBillingFrequency returns the first active non metered billing period of the
// tenant, or nil when the master lists none.
func (s *Service) LoadBillingFrequency(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (period map[string]interface{}, err error) {
	defer func() { s.record(tenantID, "billing_frequency", period != nil, err) }()

	payload, err := s.SearchMasterData(ctx, info, mdms.SchedulerBillingFrequencyQuery(tenantID))
	if err != nil {
		return nil, err
	}
	if payload.Empty() {
		return nil, fmt.Errorf("%w: error in fetching the billing frequency for tenant %s", core.ErrConfigNotFound, tenantID)
	}

	if !remote.Has(payload, mdms.PathMdmsRes) {
		return nil, fmt.Errorf("%w: billing frequency response has no %s", core.ErrMalformedResponse, mdms.PathMdmsRes)
	}
	if !remote.Has(payload, mdms.PathBillingPeriod) {
		return nil, nil
	}

	periods, err := remote.Extract[[]map[string]interface{}](s.extractor, payload, mdms.PathBillingPeriod)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}

	return periods[0], nil
}

// GetAllowedPayment returns the allowed payment configuration of the water
// business service, falling back to the state level tenant when the local
// tenant has none.
func (s *Service) GetAllowedPayment(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (cfg map[string]interface{}, err error) {
	defer func() { s.record(tenantID, "allowed_payment", cfg != nil, err) }()

	res, err := s.ResolveMasterData(ctx, info, tenantID, mdms.AllowedPaymentQuery(tenantID))
	if err != nil {
		return nil, err
	}

	list, err := remote.Extract[[]map[string]interface{}](s.extractor, res.Payload, mdms.PathAllowedPayment)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: allowed payment for tenant %s", core.ErrConfigNotFound, tenantID)
	}

	return list[0], nil
}

// GetFinancialYears returns the water service financial years matching assessmentYears.
func (s *Service) GetFinancialYears(ctx context.Context, info core.RequestInfo, tenantID core.TenantID, assessmentYears []string) ([]map[string]interface{}, error) {
	res, err := s.ResolveMasterData(ctx, info, tenantID, mdms.BuildFinancialYearQuery(assessmentYears, tenantID))
	if err != nil {
		return nil, err
	}

	path := mdms.ModulePath(mdms.ModuleFinancial) + "." + mdms.MasterFinancialYear
	if !remote.Has(res.Payload, path) {
		return []map[string]interface{}{}, nil
	}

	return remote.Extract[[]map[string]interface{}](s.extractor, res.Payload, path)
}

// CountBillingSlabs counts the billing slab masters configured for tenantID. No fallback applies.
func (s *Service) CountBillingSlabs(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (int, error) {
	payload, err := s.SearchMasterData(ctx, info, mdms.BillingSlabQuery(tenantID))
	if err != nil {
		return 0, err
	}
	if payload.Empty() || !remote.Has(payload, mdms.PathBillingSlab) {
		return 0, nil
	}

	slabs, err := remote.Extract[[]map[string]interface{}](s.extractor, payload, mdms.PathBillingSlab)
	if err != nil {
		return 0, err
	}
	return len(slabs), nil
}
