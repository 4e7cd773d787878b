package rollout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"github.com/leozw/ws-billing-resolver/internal/mdms"
	"github.com/leozw/ws-billing-resolver/internal/remote"
)

// MasterSource is the master-data side of the dashboard. lookup.Service implements it.
type MasterSource interface {
	SearchMasterData(ctx context.Context, info core.RequestInfo, q mdms.Query) (remote.Payload, error)
	CountBillingSlabs(ctx context.Context, info core.RequestInfo, tenantID core.TenantID) (int, error)
}

// Store reads village activity and keeps the snapshot. postgres.DB implements it.
type Store interface {
	CountActiveConsumers(ctx context.Context, tenantID core.TenantID) (int, error)
	LastDemandDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error)
	CollectionTillDate(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error)
	OnlineCollectionTillDate(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error)
	LastCollectionDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error)
	CountDemands(ctx context.Context, tenantID core.TenantID) (int, error)
	CountExpenses(ctx context.Context, tenantID core.TenantID) (int, error)
	LastExpenseDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error)
	CountPaidExpenses(ctx context.Context, tenantID core.TenantID) (int, error)
	CountRatings(ctx context.Context, tenantID core.TenantID) (int, error)
	LastRatingDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error)
	CountActiveUsers(ctx context.Context, tenantID core.TenantID) (int, error)
	TotalAdvance(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error)
	TotalPenalty(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error)
	ReplaceRolloutSnapshot(ctx context.Context, rows []core.RolloutStats) error
}

type Recorder interface {
	RecordRollout(tenantID core.TenantID, consumers, billingSlabs int)
}

type Service struct {
	masters   MasterSource
	store     Store
	extractor remote.Extractor
	recorder  Recorder
	clock     clock.Clock
	config    config.RolloutConfig
	logger    *zap.Logger
}

func NewService(cfg config.RolloutConfig, masters MasterSource, store Store, extractor remote.Extractor, recorder Recorder, c clock.Clock, logger *zap.Logger) *Service {
	if c == nil {
		c = clock.System()
	}
	return &Service{
		masters:   masters,
		store:     store,
		extractor: extractor,
		recorder:  recorder,
		clock:     c,
		config:    cfg,
		logger:    logger,
	}
}

func (s *Service) requestInfo() core.RequestInfo {
	return core.RequestInfo{
		APIID:  "mgramseva-common",
		Ver:    "0.01",
		Ts:     s.clock.Now().UnixMilli(),
		Action: "_search",
		DID:    "1",
		MsgID:  uuid.New().String(),
	}
}

// Villages lists the village tenants of the configured root tenant hierarchy.
func (s *Service) Villages(ctx context.Context) ([]core.Village, error) {
	root := core.TenantID(s.config.RootTenant)

	payload, err := s.masters.SearchMasterData(ctx, s.requestInfo(), mdms.TenantHierarchyQuery(root))
	if err != nil {
		return nil, err
	}
	if payload.Empty() {
		return nil, fmt.Errorf("%w: no project hierarchy for %s", core.ErrConfigNotFound, root)
	}

	zones, err := remote.Extract[[]zone](s.extractor, payload, mdms.PathProjectModule)
	if err != nil {
		return nil, err
	}

	prefix := s.config.StatePrefix
	if prefix == "" {
		prefix = root.StateLevel().String()
	}

	villages := flatten(zones, prefix)
	if len(villages) == 0 {
		return nil, fmt.Errorf("%w: project hierarchy of %s lists no villages", core.ErrConfigNotFound, root)
	}
	return villages, nil
}

// Collect gathers the statistics of one village. A failing statistic is left at
// its zero value and reported in the returned error.
func (s *Service) Collect(ctx context.Context, v core.Village) (core.RolloutStats, error) {
	stats := core.RolloutStats{Village: v, CreatedTime: s.clock.Now().UTC()}
	tenant := v.TenantID

	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	stats.ConsumerCount, err = s.store.CountActiveConsumers(ctx, tenant)
	keep(err)
	if stats.BillingSlabCount, err = s.masters.CountBillingSlabs(ctx, s.requestInfo(), tenant); err != nil {
		keep(fmt.Errorf("count billing slabs of %s: %w", tenant, err))
	}
	stats.LastDemandDate, err = s.store.LastDemandDate(ctx, tenant)
	keep(err)
	stats.DemandCount, err = s.store.CountDemands(ctx, tenant)
	keep(err)

	stats.Collection, err = s.store.CollectionTillDate(ctx, tenant)
	keep(err)
	stats.OnlineCollection, err = s.store.OnlineCollectionTillDate(ctx, tenant)
	keep(err)
	stats.LastCollectionDate, err = s.store.LastCollectionDate(ctx, tenant)
	keep(err)

	stats.ExpenseCount, err = s.store.CountExpenses(ctx, tenant)
	keep(err)
	stats.LastExpenseDate, err = s.store.LastExpenseDate(ctx, tenant)
	keep(err)
	stats.PaidExpenseCount, err = s.store.CountPaidExpenses(ctx, tenant)
	keep(err)

	stats.RatingCount, err = s.store.CountRatings(ctx, tenant)
	keep(err)
	stats.LastRatingDate, err = s.store.LastRatingDate(ctx, tenant)
	keep(err)
	stats.ActiveUserCount, err = s.store.CountActiveUsers(ctx, tenant)
	keep(err)

	stats.TotalAdvance, err = s.store.TotalAdvance(ctx, tenant)
	keep(err)
	stats.TotalPenalty, err = s.store.TotalPenalty(ctx, tenant)
	keep(err)

	return stats, errors.Join(errs...)
}

// Run rebuilds the dashboard snapshot and returns the number of villages written.
// The previous snapshot is kept when the hierarchy cannot be read.
func (s *Service) Run(ctx context.Context) (int, error) {
	start := s.clock.Now()

	villages, err := s.Villages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read village hierarchy: %w", err)
	}

	s.logger.Info("Collecting rollout statistics", zap.Int("villages", len(villages)))

	workers := s.config.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int)
	rows := make([]core.RolloutStats, len(villages))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := s.logger.With(zap.Int("worker_id", id))
			for idx := range jobs {
				v := villages[idx]
				stats, err := s.Collect(ctx, v)
				if err != nil {
					logger.Warn("Incomplete rollout statistics",
						zap.String("tenant_id", v.TenantID.String()),
						zap.Error(err),
					)
				}
				rows[idx] = stats
			}
		}(i)
	}

	for i := range villages {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return 0, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := s.store.ReplaceRolloutSnapshot(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to write rollout snapshot: %w", err)
	}

	if s.recorder != nil {
		for _, row := range rows {
			s.recorder.RecordRollout(row.TenantID, row.ConsumerCount, row.BillingSlabCount)
		}
	}

	s.logger.Info("Rollout snapshot written",
		zap.Int("villages", len(rows)),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)
	return len(rows), nil
}
