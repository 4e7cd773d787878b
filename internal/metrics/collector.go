package metrics

import (
	"time"

	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	config *config.MimirConfig

	// Remote calls
	remoteFetchDuration *prometheus.HistogramVec
	remoteFetchTotal    *prometheus.CounterVec

	// Resolution
	tenantFallbacks  *prometheus.CounterVec
	activeSelections *prometheus.CounterVec
	lookupsTotal     *prometheus.CounterVec

	// Scheduler
	billingJobsQueued *prometheus.CounterVec
	lastScheduleRun   *prometheus.GaugeVec

	// Rollout dashboard
	rolloutConsumers   *prometheus.GaugeVec
	rolloutBillingSlab *prometheus.GaugeVec
}

// NewCollector registers the service metrics on reg.
func NewCollector(cfg config.MimirConfig, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		config: &cfg,

		remoteFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ws_remote_fetch_duration_seconds",
				Help:    "Duration of calls to downstream services in seconds",
				Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "outcome"},
		),

		remoteFetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_remote_fetch_total",
				Help: "Total number of calls to downstream services",
			},
			[]string{"endpoint", "outcome"},
		),

		tenantFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_mdms_tenant_fallback_total",
				Help: "Master data lookups answered by the state level tenant",
			},
			[]string{"tenant_id", "from_tenant", "module"},
		),

		activeSelections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_active_connection_selection_total",
				Help: "Active connection selections by outcome",
			},
			[]string{"tenant_id", "outcome"},
		),

		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_lookup_total",
				Help: "Lookups served by use case and result",
			},
			[]string{"tenant_id", "use_case", "result"},
		),

		billingJobsQueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ws_billing_jobs_queued_total",
				Help: "Billing jobs pushed to the demand queue",
			},
			[]string{"tenant_id", "billing_cycle"},
		),

		lastScheduleRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ws_billing_schedule_last_run_timestamp",
				Help: "Unix time of the last scheduler pass per tenant",
			},
			[]string{"tenant_id"},
		),

		rolloutConsumers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ws_rollout_consumers",
				Help: "Active connections per village tenant at the last rollout snapshot",
			},
			[]string{"tenant_id", "village"},
		),

		rolloutBillingSlab: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ws_rollout_billing_slabs",
				Help: "Billing slab masters per village tenant at the last rollout snapshot",
			},
			[]string{"tenant_id", "village"},
		),
	}
}

func (c *Collector) ObserveRemoteFetch(endpoint, outcome string, duration time.Duration) {
	c.remoteFetchDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
	c.remoteFetchTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (c *Collector) RecordTenantFallback(module string, from, to core.TenantID) {
	c.tenantFallbacks.WithLabelValues(to.String(), from.String(), module).Inc()
}

func (c *Collector) RecordActiveSelection(tenantID core.TenantID, outcome string) {
	c.activeSelections.WithLabelValues(tenantID.StateLevel().String(), outcome).Inc()
}

func (c *Collector) RecordLookup(tenantID core.TenantID, useCase, result string) {
	c.lookupsTotal.WithLabelValues(tenantID.StateLevel().String(), useCase, result).Inc()
}

func (c *Collector) RecordBillingJob(tenantID core.TenantID, billingCycle string) {
	c.billingJobsQueued.WithLabelValues(tenantID.StateLevel().String(), billingCycle).Inc()
	c.lastScheduleRun.WithLabelValues(tenantID.StateLevel().String()).SetToCurrentTime()
}

func (c *Collector) RecordRollout(tenantID core.TenantID, consumers, billingSlabs int) {
	state := tenantID.StateLevel().String()
	c.rolloutConsumers.WithLabelValues(state, tenantID.String()).Set(float64(consumers))
	c.rolloutBillingSlab.WithLabelValues(state, tenantID.String()).Set(float64(billingSlabs))
}
