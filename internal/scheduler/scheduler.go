package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
)

// FrequencySource resolves the billing period of a tenant. lookup.Service implements it.
type FrequencySource interface {
	LoadBillingFrequency(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (map[string]interface{}, error)
}

type Pusher interface {
	Push(ctx context.Context, job *core.BillingJob) error
}

type Recorder interface {
	RecordBillingJob(tenantID core.TenantID, billingCycle string)
}

// Scheduler queues one demand generation job per tenant and pass.
type Scheduler struct {
	source   FrequencySource
	queue    Pusher
	recorder Recorder
	clock    clock.Clock
	config   config.SchedulerConfig
	logger   *zap.Logger
}

func NewScheduler(cfg config.SchedulerConfig, source FrequencySource, queue Pusher, recorder Recorder, c clock.Clock, logger *zap.Logger) *Scheduler {
	if c == nil {
		c = clock.System()
	}
	return &Scheduler{
		source:   source,
		queue:    queue,
		recorder: recorder,
		clock:    c,
		config:   cfg,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	interval := s.config.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.logger.Info("Starting billing scheduler",
		zap.Duration("interval", interval),
		zap.Strings("tenants", s.config.Tenants),
	)

	s.ScheduleOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping billing scheduler")
			return
		case <-ticker.C:
			s.ScheduleOnce(ctx)
		}
	}
}

// ScheduleOnce queues a job for every configured tenant with a billing period
// and returns how many were queued.
func (s *Scheduler) ScheduleOnce(ctx context.Context) int {
	queued := 0
	for _, tenant := range s.config.Tenants {
		tenantID := core.TenantID(tenant)

		job, err := s.jobFor(ctx, tenantID)
		if err != nil {
			if errors.Is(err, core.ErrConfigNotFound) {
				s.logger.Warn("No billing frequency for tenant", zap.String("tenant_id", tenant), zap.Error(err))
			} else {
				s.logger.Error("Failed to load billing frequency", zap.String("tenant_id", tenant), zap.Error(err))
			}
			continue
		}

		if err := s.queue.Push(ctx, job); err != nil {
			s.logger.Error("Failed to queue billing job", zap.String("tenant_id", tenant), zap.Error(err))
			continue
		}

		if s.recorder != nil {
			s.recorder.RecordBillingJob(tenantID, job.BillingCycle)
		}
		queued++

		s.logger.Debug("Scheduled billing job",
			zap.String("job_id", job.ID),
			zap.String("tenant_id", tenant),
			zap.String("billing_cycle", job.BillingCycle),
		)
	}

	s.logger.Info("Scheduled billing jobs", zap.Int("queued", queued), zap.Int("tenants", len(s.config.Tenants)))
	return queued
}

func (s *Scheduler) jobFor(ctx context.Context, tenantID core.TenantID) (*core.BillingJob, error) {
	now := s.clock.Now()
	info := core.RequestInfo{
		APIID:  "ws-calculator",
		Ts:     now.UnixMilli(),
		Action: "_search",
		MsgID:  uuid.New().String(),
	}

	period, err := s.source.LoadBillingFrequency(ctx, info, tenantID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, fmt.Errorf("%w: no active non metered billing period for %s", core.ErrConfigNotFound, tenantID)
	}

	cycle, _ := period["billingCycle"].(string)

	return &core.BillingJob{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		ConnectionType: mdms.NonMeteredConnection,
		BillingCycle:   cycle,
		BillingPeriod:  period,
		CreatedAt:      now,
	}, nil
}
