package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/connection"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
	"github.com/leozw/ws-billing-resolver/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testServices = config.ServicesConfig{
	MdmsHost:                "http://mdms",
	MdmsEndpoint:            "/egov-mdms-service/v1/_search",
	WaterConnectionHost:     "http://ws",
	WaterConnectionEndpoint: "/ws-services/wc/_search",
	PropertyHost:            "http://pt",
	PropertySearchEndpoint:  "/property-services/property/_search",
	WorkflowHost:            "http://wf",
	WorkflowProcessEndpoint: "/egov-workflow-v2/egov-wf/process/_search",
	BillingServiceHost:      "http://billing",
	FetchBillEndpoint:       "/billing-service/bill/v2/_fetchbill",
}

var now = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

type call struct {
	url      string
	envelope interface{}
}

// fakeFetcher answers by url for plain searches and by tenant for mdms searches.
type fakeFetcher struct {
	byURL    map[string]string
	byTenant map[core.TenantID]string
	err      error
	calls    []call
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, envelope interface{}) (remote.Payload, error) {
	f.calls = append(f.calls, call{url: url, envelope: envelope})
	if f.err != nil {
		return nil, f.err
	}
	if req, ok := envelope.(mdms.CriteriaRequest); ok {
		body, found := f.byTenant[req.MdmsCriteria.TenantID]
		if !found {
			return nil, nil
		}
		return remote.Payload(body), nil
	}
	body, found := f.byURL[url]
	if !found {
		return nil, nil
	}
	return remote.Payload(body), nil
}

type recorder struct {
	lookups    []string
	selections []string
	fallbacks  int
}

func (r *recorder) RecordLookup(_ core.TenantID, useCase, result string) {
	r.lookups = append(r.lookups, useCase+":"+result)
}

func (r *recorder) RecordActiveSelection(_ core.TenantID, outcome string) {
	r.selections = append(r.selections, outcome)
}

func (r *recorder) RecordTenantFallback(string, core.TenantID, core.TenantID) {
	r.fallbacks++
}

func newTestService(f remote.Fetcher, rec *recorder) *Service {
	x := remote.NewExtractor()
	return NewService(Config{
		URLs:      NewURLBuilder(testServices),
		Fetcher:   f,
		Extractor: x,
		Masters:   mdms.NewResolver(x, rec, zap.NewNop()),
		Versions:  connection.NewResolver(clock.NewFakeClock(now)),
		Recorder:  rec,
		Logger:    zap.NewNop(),
	})
}

var info = core.RequestInfo{APIID: "Rainmaker", AuthToken: "token"}

func TestURLBuilder(t *testing.T) {
	u := NewURLBuilder(testServices)

	assert.Equal(t, "http://pt/property-services/property/_search?tenantId=pb.amritsar&propertyIds=PT-1",
		u.PropertySearch("pb.amritsar", "PT-1"))
	assert.Equal(t, "http://ws/ws-services/wc/_search?tenantId=pb.amritsar&connectionNumber=WS%2F107%2F1",
		u.ConnectionSearch(core.SearchCriteria{TenantID: "pb.amritsar", ConnectionNumber: "WS/107/1"}))
	assert.Equal(t, "http://ws/ws-services/wc/_search?tenantId=pb.amritsar&applicationNumber=APP-1",
		u.ConnectionSearch(core.SearchCriteria{TenantID: "pb.amritsar", ApplicationNumber: "APP-1"}))
	assert.Equal(t, "http://ws/ws-services/wc/_search?tenantId=pb",
		u.ConnectionSearch(core.SearchCriteria{TenantID: "pb"}))
	assert.Equal(t, "http://wf/egov-workflow-v2/egov-wf/process/_search?tenantId=pb.amritsar&businessIds=APP-1%2CAPP-2",
		u.WorkflowProcessSearch("pb.amritsar", "APP-1,APP-2"))
	assert.Equal(t, "http://billing/billing-service/bill/v2/_fetchbill?tenantId=pb.amritsar&consumerCode=WS-1&businessService=WS",
		u.FetchBill("pb.amritsar", "WS-1"))
	assert.Equal(t, "http://mdms/egov-mdms-service/v1/_search", u.MdmsSearch())
}

func TestURLBuilder_Deterministic(t *testing.T) {
	u := NewURLBuilder(testServices)
	c := core.SearchCriteria{TenantID: "pb.amritsar", ConnectionNumber: "WS-1", ApplicationNumber: "APP-1"}

	assert.Equal(t, u.ConnectionSearch(c), u.ConnectionSearch(c))
}

func TestGetProperty(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.PropertySearch("pb.amritsar", "PT-1"): `{"Properties": [{"propertyId": "PT-1", "tenantId": "pb.amritsar"}]}`,
	}}
	rec := &recorder{}

	p, err := newTestService(f, rec).GetProperty(context.Background(), info, "pb.amritsar", "PT-1")

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "PT-1", p.PropertyID)
	assert.Equal(t, []string{"property:found"}, rec.lookups)

	env, ok := f.calls[0].envelope.(core.RequestInfoWrapper)
	require.True(t, ok)
	assert.Equal(t, "token", env.RequestInfo.AuthToken)
}

func TestGetProperty_NoneWhenEmpty(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.PropertySearch("pb.amritsar", "PT-1"): `{"Properties": []}`,
	}}
	rec := &recorder{}

	p, err := newTestService(f, rec).GetProperty(context.Background(), info, "pb.amritsar", "PT-1")
	require.NoError(t, err)
	assert.Nil(t, p)

	// No content at all is also none.
	p, err = newTestService(&fakeFetcher{}, rec).GetProperty(context.Background(), info, "pb.amritsar", "PT-1")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, []string{"property:not_found", "property:not_found"}, rec.lookups)
}

func TestGetProperty_RemoteUnavailable(t *testing.T) {
	f := &fakeFetcher{err: core.ErrRemoteUnavailable}
	rec := &recorder{}

	_, err := newTestService(f, rec).GetProperty(context.Background(), info, "pb.amritsar", "PT-1")

	assert.True(t, errors.Is(err, core.ErrRemoteUnavailable))
	assert.Equal(t, []string{"property:error"}, rec.lookups)
}

func TestGetProperty_Malformed(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.PropertySearch("pb.amritsar", "PT-1"): `{"Properties": "nope"}`,
	}}

	_, err := newTestService(f, &recorder{}).GetProperty(context.Background(), info, "pb.amritsar", "PT-1")

	assert.True(t, errors.Is(err, core.ErrMalformedResponse))
}

func connectionsBody(records ...core.ConnectionRecord) string {
	b, _ := json.Marshal(core.ConnectionResponse{WaterConnection: records})
	return string(b)
}

func conn(id string, lastModified int64, appType core.ApplicationType, effectiveFrom int64) core.ConnectionRecord {
	return core.ConnectionRecord{
		ID:                id,
		TenantID:          "pb.amritsar",
		ConnectionNo:      "WS-1",
		ApplicationType:   appType,
		DateEffectiveFrom: effectiveFrom,
		AuditDetails:      core.AuditDetails{LastModifiedTime: lastModified},
	}
}

func TestGetConnectionHistory_Sorted(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.ConnectionSearch(core.SearchCriteria{TenantID: "pb.amritsar", ConnectionNumber: "WS-1"}): connectionsBody(
			conn("c", 300, core.ApplicationNewConnection, 0),
			conn("a", 100, core.ApplicationNewConnection, 0),
			conn("b", 200, core.ApplicationModifyConnection, 0),
		),
	}}

	history, err := newTestService(f, &recorder{}).GetConnectionHistory(context.Background(), info, "pb.amritsar", "WS-1")

	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, "b", history[1].ID)
	assert.Equal(t, "c", history[2].ID)
}

func TestGetActiveConnection_SkipsPendingModification(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.ConnectionSearch(core.SearchCriteria{TenantID: "pb.amritsar", ConnectionNumber: "WS-1"}): connectionsBody(
			conn("mod", 100, core.ApplicationModifyConnection, now.Add(48*time.Hour).UnixMilli()),
			conn("new", 50, core.ApplicationNewConnection, 0),
		),
	}}
	rec := &recorder{}

	active, err := newTestService(f, rec).GetActiveConnection(context.Background(), info, "pb.amritsar", "WS-1")

	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "new", active.ID)
	assert.Equal(t, []string{SelectionPending}, rec.selections)
	assert.Equal(t, []string{"active_connection:found"}, rec.lookups)
}

func TestGetActiveConnection_NoneWhenNoHistory(t *testing.T) {
	rec := &recorder{}

	active, err := newTestService(&fakeFetcher{}, rec).GetActiveConnection(context.Background(), info, "pb.amritsar", "WS-1")

	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Empty(t, rec.selections)
}

func TestGetConnectionByApplicationNo_First(t *testing.T) {
	u := NewURLBuilder(testServices)
	c := core.SearchCriteria{TenantID: "pb.amritsar", ApplicationNumber: "APP-1"}
	f := &fakeFetcher{byURL: map[string]string{
		u.ConnectionSearch(c): connectionsBody(
			conn("second-by-time", 300, core.ApplicationNewConnection, 0),
			conn("first-by-time", 100, core.ApplicationNewConnection, 0),
		),
	}}

	rec, err := newTestService(f, &recorder{}).GetConnectionByApplicationNo(context.Background(), info, c)

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "second-by-time", rec.ID)
}

func TestGetProcessInstances_EmptyList(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.WorkflowProcessSearch("pb.amritsar", "APP-2"): `{"ProcessInstances": []}`,
	}}
	svc := newTestService(f, &recorder{})

	out, err := svc.GetProcessInstances(context.Background(), info, "pb.amritsar", "APP-2")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out, err = svc.GetProcessInstances(context.Background(), info, "pb.amritsar", "APP-3")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestGetProcessInstances(t *testing.T) {
	u := NewURLBuilder(testServices)
	f := &fakeFetcher{byURL: map[string]string{
		u.WorkflowProcessSearch("pb.amritsar", "APP-1"): `{"ProcessInstances": [{"businessId": "APP-1", "action": "APPROVE", "state": {"state": "APPROVED"}}]}`,
	}}

	out, err := newTestService(f, &recorder{}).GetProcessInstances(context.Background(), info, "pb.amritsar", "APP-1")

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "APP-1", out[0].BusinessID)
}

func TestLoadBillingFrequency(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.amritsar": `{"MdmsRes": {"ws-services-masters": {"billingPeriod": [{"billingCycle": "monthly", "active": true, "connectionType": "Non Metered"}]}}}`,
	}}

	period, err := newTestService(f, &recorder{}).LoadBillingFrequency(context.Background(), info, "pb.amritsar")

	require.NoError(t, err)
	assert.Equal(t, "monthly", period["billingCycle"])

	req, ok := f.calls[0].envelope.(mdms.CriteriaRequest)
	require.True(t, ok)
	filter := req.MdmsCriteria.ModuleDetails[0].MasterDetails[0].Filter
	assert.Contains(t, filter, "Non Metered")
	assert.True(t, strings.HasPrefix(f.calls[0].url, "http://mdms"))
}

func TestLoadBillingFrequency_EmptyAndMissing(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.amritsar":  `{"MdmsRes": {"ws-services-masters": {"billingPeriod": []}}}`,
		"pb.jalandhar": `{"MdmsRes": {}}`,
	}}
	svc := newTestService(f, &recorder{})

	period, err := svc.LoadBillingFrequency(context.Background(), info, "pb.amritsar")
	require.NoError(t, err)
	assert.Nil(t, period)

	period, err = svc.LoadBillingFrequency(context.Background(), info, "pb.jalandhar")
	require.NoError(t, err)
	assert.Nil(t, period)

	_, err = svc.LoadBillingFrequency(context.Background(), info, "pb.unknown")
	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
}

func TestGetAllowedPayment_FallsBackToState(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.amritsar": `{"MdmsRes": {"BillingService": {}}}`,
		"pb":          `{"MdmsRes": {"BillingService": {"BusinessService": [{"code": "WS", "isAdvanceAllowed": false}]}}}`,
	}}
	rec := &recorder{}

	cfg, err := newTestService(f, rec).GetAllowedPayment(context.Background(), info, "pb.amritsar")

	require.NoError(t, err)
	assert.Equal(t, "WS", cfg["code"])
	assert.Equal(t, 1, rec.fallbacks)
	assert.Len(t, f.calls, 2)
}

func TestGetAllowedPayment_ConfigNotFound(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.amritsar": `{"MdmsRes": {}}`,
		"pb":          `{"MdmsRes": {}}`,
	}}

	_, err := newTestService(f, &recorder{}).GetAllowedPayment(context.Background(), info, "pb.amritsar")

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
	assert.Len(t, f.calls, 2)
}

func TestGetAllowedPayment_EmptyList(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb": `{"MdmsRes": {"BillingService": {"BusinessService": []}}}`,
	}}

	_, err := newTestService(f, &recorder{}).GetAllowedPayment(context.Background(), info, "pb")

	assert.True(t, errors.Is(err, core.ErrConfigNotFound))
}

func TestGetFinancialYears(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.amritsar": `{"MdmsRes": {"egf-master": {}}}`,
		"pb":          `{"MdmsRes": {"egf-master": {"FinancialYear": [{"finYearRange": "2023-24", "module": "WS", "startingDate": 1680307200000}]}}}`,
	}}

	years, err := newTestService(f, &recorder{}).GetFinancialYears(context.Background(), info, "pb.amritsar", []string{"2023-24"})

	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, "2023-24", years[0]["finYearRange"])
}

func TestGetFinancialYears_NoMatchingMaster(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb": `{"MdmsRes": {"egf-master": {"Scheme": [{"code": "S1"}]}}}`,
	}}

	years, err := newTestService(f, &recorder{}).GetFinancialYears(context.Background(), info, "pb", []string{"2023-24"})

	require.NoError(t, err)
	assert.NotNil(t, years)
	assert.Empty(t, years)
}

func TestCountBillingSlabs(t *testing.T) {
	f := &fakeFetcher{byTenant: map[core.TenantID]string{
		"pb.village": `{"MdmsRes": {"ws-services-calculation": {"WCBillingSlab": [{"id": "1"}, {"id": "2"}]}}}`,
		"pb.empty":   `{"MdmsRes": {}}`,
	}}
	svc := newTestService(f, &recorder{})

	n, err := svc.CountBillingSlabs(context.Background(), info, "pb.village")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.CountBillingSlabs(context.Background(), info, "pb.empty")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
