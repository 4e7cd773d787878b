package mdms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/remote"
	"go.uber.org/zap"
)

// SearchFunc issues one master-data search.
type SearchFunc func(ctx context.Context, q Query) (remote.Payload, error)

// FallbackRecorder is notified when a lookup falls back to the state level tenant.
type FallbackRecorder interface {
	RecordTenantFallback(module string, from, to core.TenantID)
}

// Result is the master-data response a lookup settled on.
type Result struct {
	Payload  remote.Payload
	TenantID core.TenantID
	FellBack bool
}

type Resolver struct {
	extractor remote.Extractor
	recorder  FallbackRecorder
	logger    *zap.Logger
}

func NewResolver(extractor remote.Extractor, recorder FallbackRecorder, logger *zap.Logger) *Resolver {
	return &Resolver{
		extractor: extractor,
		recorder:  recorder,
		logger:    logger,
	}
}

// DeriveStateTenant returns the tenant segment before the first dot.
func DeriveStateTenant(tenantID core.TenantID) core.TenantID {
	return tenantID.StateLevel()
}

// ResolveTenantScopedConfig scopes q to tenantID and searches. When the result
// is empty it searches once more at the state level tenant. Intermediate tiers
// are never consulted. A tenant that is already state level is not searched a
// second time; an empty result fails with core.ErrConfigNotFound at once.
func (r *Resolver) ResolveTenantScopedConfig(ctx context.Context, tenantID core.TenantID, q Query, search SearchFunc) (*Result, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}

	local := q.WithTenant(tenantID)
	payload, err := search(ctx, local)
	if err != nil {
		return nil, err
	}
	if payload.Empty() {
		return nil, fmt.Errorf("%w: master data search returned nothing for tenant %s", core.ErrConfigNotFound, tenantID)
	}

	empty, err := r.isEmpty(payload, local.PrimaryModule())
	if err != nil {
		return nil, err
	}
	if !empty {
		return &Result{Payload: payload, TenantID: tenantID}, nil
	}

	state := DeriveStateTenant(tenantID)
	if state == "" || state == tenantID {
		return nil, fmt.Errorf("%w: module %s for tenant %s", core.ErrConfigNotFound, local.PrimaryModule(), tenantID)
	}

	r.logger.Info("No master data for tenant, falling back to state level",
		zap.String("tenant_id", tenantID.String()),
		zap.String("state_tenant_id", state.String()),
		zap.String("module", local.PrimaryModule()),
	)
	if r.recorder != nil {
		r.recorder.RecordTenantFallback(local.PrimaryModule(), tenantID, state)
	}

	fallback := q.WithTenant(state)
	payload, err = search(ctx, fallback)
	if err != nil {
		return nil, err
	}
	if payload.Empty() {
		return nil, fmt.Errorf("%w: master data search returned nothing for tenant %s", core.ErrConfigNotFound, state)
	}

	empty, err = r.isEmpty(payload, fallback.PrimaryModule())
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, fmt.Errorf("%w: module %s for tenant %s or %s", core.ErrConfigNotFound, fallback.PrimaryModule(), tenantID, state)
	}

	return &Result{Payload: payload, TenantID: state, FellBack: true}, nil
}

// isEmpty reports whether either MdmsRes or the module sub-result carries no masters.
// A missing MdmsRes is a malformed response, a missing module is empty.
func (r *Resolver) isEmpty(payload remote.Payload, module string) (bool, error) {
	res, err := remote.Extract[map[string]json.RawMessage](r.extractor, payload, PathMdmsRes)
	if err != nil {
		return false, err
	}
	if len(res) == 0 {
		return true, nil
	}

	raw, ok := res[module]
	if !ok {
		return true, nil
	}

	var masters map[string]json.RawMessage
	if err := json.Unmarshal(raw, &masters); err != nil {
		return false, fmt.Errorf("%w: module %s is not an object: %v", core.ErrMalformedResponse, module, err)
	}

	return len(masters) == 0, nil
}
