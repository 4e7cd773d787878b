package mdms

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	emptyMdms          = `{"MdmsRes": {}}`
	emptyBillingModule = `{"MdmsRes": {"BillingService": {}}}`
	allowedPaymentMdms = `{"MdmsRes": {"BillingService": {"BusinessService": [{"code": "WS", "isAdvanceAllowed": true}]}}}`
)

type fakeSearch struct {
	responses map[core.TenantID]remote.Payload
	errs      map[core.TenantID]error
	calls     []core.TenantID
}

func (f *fakeSearch) search(_ context.Context, q Query) (remote.Payload, error) {
	f.calls = append(f.calls, q.TenantID())
	if err := f.errs[q.TenantID()]; err != nil {
		return nil, err
	}
	return f.responses[q.TenantID()], nil
}

type fallbackCounter struct {
	from, to []core.TenantID
}

func (c *fallbackCounter) RecordTenantFallback(_ string, from, to core.TenantID) {
	c.from = append(c.from, from)
	c.to = append(c.to, to)
}

func newTestResolver(rec FallbackRecorder) *Resolver {
	return NewResolver(remote.NewExtractor(), rec, zap.NewNop())
}

func TestDeriveStateTenant(t *testing.T) {
	assert.Equal(t, core.TenantID("pb"), DeriveStateTenant("pb.amritsar"))
	assert.Equal(t, core.TenantID("pb"), DeriveStateTenant("pb"))
	assert.Equal(t, core.TenantID("pb"), DeriveStateTenant("pb.district.village"))
}

func TestResolveTenantScopedConfig_LocalHit(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{
		"pb.amritsar": remote.Payload(allowedPaymentMdms),
	}}

	res, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("ignored"), f.search)

	require.NoError(t, err)
	assert.Equal(t, core.TenantID("pb.amritsar"), res.TenantID)
	assert.False(t, res.FellBack)
	assert.Equal(t, []core.TenantID{"pb.amritsar"}, f.calls)
}

func TestResolveTenantScopedConfig_FallsBackOnce(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{
		"pb.amritsar": remote.Payload(emptyBillingModule),
		"pb":          remote.Payload(allowedPaymentMdms),
	}}
	rec := &fallbackCounter{}

	res, err := newTestResolver(rec).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("pb.amritsar"), f.search)

	require.NoError(t, err)
	assert.Equal(t, core.TenantID("pb"), res.TenantID)
	assert.True(t, res.FellBack)
	assert.Equal(t, []core.TenantID{"pb.amritsar", "pb"}, f.calls)
	assert.Equal(t, []core.TenantID{"pb.amritsar"}, rec.from)
	assert.Equal(t, []core.TenantID{"pb"}, rec.to)
}

func TestResolveTenantScopedConfig_EmptyAfterFallback(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{
		"pb.amritsar": remote.Payload(emptyMdms),
		"pb":          remote.Payload(emptyMdms),
	}}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("pb.amritsar"), f.search)

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
	assert.Equal(t, []core.TenantID{"pb.amritsar", "pb"}, f.calls)
}

func TestResolveTenantScopedConfig_SkipsIntermediateTiers(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{
		"pb.district.village": remote.Payload(emptyMdms),
		"pb.district":         remote.Payload(allowedPaymentMdms),
		"pb":                  remote.Payload(emptyMdms),
	}}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.district.village", AllowedPaymentQuery("x"), f.search)

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
	assert.Equal(t, []core.TenantID{"pb.district.village", "pb"}, f.calls)
}

func TestResolveTenantScopedConfig_StateTenantDoesNotRetry(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{"pb": remote.Payload(emptyMdms)}}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb", AllowedPaymentQuery("pb"), f.search)

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
	assert.Equal(t, []core.TenantID{"pb"}, f.calls)
}

func TestResolveTenantScopedConfig_NothingReturned(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{}}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("pb.amritsar"), f.search)

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
	assert.Equal(t, []core.TenantID{"pb.amritsar"}, f.calls)
}

func TestResolveTenantScopedConfig_RemoteFailureSurfaces(t *testing.T) {
	f := &fakeSearch{
		responses: map[core.TenantID]remote.Payload{"pb.amritsar": remote.Payload(emptyMdms)},
		errs:      map[core.TenantID]error{"pb": fmt.Errorf("%w: boom", core.ErrRemoteUnavailable)},
	}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("pb.amritsar"), f.search)

	assert.True(t, errors.Is(err, core.ErrRemoteUnavailable))
}

func TestResolveTenantScopedConfig_MalformedSurfaces(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{"pb.amritsar": remote.Payload(`{"Errors": []}`)}}

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", AllowedPaymentQuery("pb.amritsar"), f.search)

	assert.True(t, errors.Is(err, core.ErrMalformedResponse))
	assert.Equal(t, []core.TenantID{"pb.amritsar"}, f.calls)
}

func TestResolveTenantScopedConfig_QueryLeftUntouched(t *testing.T) {
	f := &fakeSearch{responses: map[core.TenantID]remote.Payload{
		"pb.amritsar": remote.Payload(emptyMdms),
		"pb":          remote.Payload(allowedPaymentMdms),
	}}
	q := AllowedPaymentQuery("pb.amritsar")

	_, err := newTestResolver(nil).ResolveTenantScopedConfig(context.Background(), "pb.amritsar", q, f.search)

	require.NoError(t, err)
	assert.Equal(t, core.TenantID("pb.amritsar"), q.TenantID())
}
