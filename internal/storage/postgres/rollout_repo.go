package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leozw/ws-billing-resolver/internal/core"
)

const (
	taxHeadAdvance = "WS_ADVANCE_CARRYFORWARD"
	taxHeadPenalty = "WS_TIME_PENALTY"
)

func (db *DB) CountActiveConsumers(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `SELECT COUNT(*) FROM eg_ws_connection WHERE status = 'Active' AND tenantid = $1`
	return db.count(ctx, "consumers", query, tenantID)
}

func (db *DB) LastDemandDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error) {
	query := `
        SELECT createdtime FROM egbs_demand_v1
        WHERE tenantid = $1
        ORDER BY createdtime DESC
        LIMIT 1`

	return db.lastEpochMillis(ctx, query, tenantID)
}

func (db *DB) CountDemands(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `
        SELECT COUNT(*) FROM egbs_demand_v1
        WHERE businessservice = 'WS' AND status = 'ACTIVE' AND tenantid = $1`

	return db.count(ctx, "demands", query, tenantID)
}

func (db *DB) CollectionTillDate(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(amountpaid), 0) FROM egcl_paymentdetail
        WHERE businessservice = 'WS' AND tenantid = $1`

	return db.sum(ctx, "collections", query, tenantID)
}

func (db *DB) OnlineCollectionTillDate(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(pd.amountpaid), 0)
        FROM egcl_payment p
        JOIN egcl_paymentdetail pd ON p.id = pd.paymentid
        WHERE pd.businessservice = 'WS' AND p.tenantid = $1 AND p.paymentmode = 'ONLINE'`

	return db.sum(ctx, "online collections", query, tenantID)
}

func (db *DB) LastCollectionDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error) {
	query := `
        SELECT createdtime FROM egcl_paymentdetail
        WHERE businessservice = 'WS' AND tenantid = $1
        ORDER BY createdtime DESC
        LIMIT 1`

	return db.lastEpochMillis(ctx, query, tenantID)
}

func (db *DB) CountExpenses(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `SELECT COUNT(*) FROM eg_echallan WHERE tenantid = $1`
	return db.count(ctx, "expenses", query, tenantID)
}

func (db *DB) LastExpenseDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error) {
	query := `
        SELECT createdtime FROM eg_echallan
        WHERE tenantid = $1
        ORDER BY createdtime DESC
        LIMIT 1`

	return db.lastEpochMillis(ctx, query, tenantID)
}

func (db *DB) CountPaidExpenses(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `SELECT COUNT(*) FROM eg_echallan WHERE tenantid = $1 AND applicationstatus = 'PAID'`
	return db.count(ctx, "paid expenses", query, tenantID)
}

func (db *DB) CountRatings(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `SELECT COUNT(*) FROM eg_ws_feedback WHERE tenantid = $1`
	return db.count(ctx, "ratings", query, tenantID)
}

func (db *DB) LastRatingDate(ctx context.Context, tenantID core.TenantID) (*time.Time, error) {
	query := `
        SELECT createdtime FROM eg_ws_feedback
        WHERE tenantid = $1
        ORDER BY createdtime DESC
        LIMIT 1`

	return db.lastEpochMillis(ctx, query, tenantID)
}

// CountActiveUsers counts active employees holding the EMPLOYEE role in tenantID.
func (db *DB) CountActiveUsers(ctx context.Context, tenantID core.TenantID) (int, error) {
	query := `
        SELECT COUNT(*) FROM eg_user u
        JOIN eg_userrole_v1 ur ON u.id = ur.user_id
        WHERE u.active = TRUE AND u.type = 'EMPLOYEE'
          AND ur.role_code = 'EMPLOYEE' AND ur.role_tenantid = $1`

	return db.count(ctx, "active users", query, tenantID)
}

func (db *DB) TotalAdvance(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error) {
	return db.sumTaxHead(ctx, tenantID, taxHeadAdvance)
}

func (db *DB) TotalPenalty(ctx context.Context, tenantID core.TenantID) (decimal.Decimal, error) {
	return db.sumTaxHead(ctx, tenantID, taxHeadPenalty)
}

// sumTaxHead sums a tax head over the active demands of tenantID.
func (db *DB) sumTaxHead(ctx context.Context, tenantID core.TenantID, taxHead string) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(dd.taxamount), 0)
        FROM egbs_demanddetail_v1 dd
        JOIN egbs_demand_v1 d ON dd.demandid = d.id
        WHERE d.status = 'ACTIVE' AND dd.taxheadcode = $2 AND dd.tenantid = $1`

	var sum decimal.Decimal
	if err := db.GetContext(ctx, &sum, query, tenantID.String(), taxHead); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s of %s: %w", taxHead, tenantID, err)
	}
	return sum, nil
}

func (db *DB) count(ctx context.Context, what, query string, tenantID core.TenantID) (int, error) {
	var count int
	if err := db.GetContext(ctx, &count, query, tenantID.String()); err != nil {
		return 0, fmt.Errorf("count %s of %s: %w", what, tenantID, err)
	}
	return count, nil
}

func (db *DB) sum(ctx context.Context, what, query string, tenantID core.TenantID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := db.GetContext(ctx, &sum, query, tenantID.String()); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s of %s: %w", what, tenantID, err)
	}
	return sum, nil
}

// lastEpochMillis reads a single epoch millisecond column, nil when there are no rows.
func (db *DB) lastEpochMillis(ctx context.Context, query string, tenantID core.TenantID) (*time.Time, error) {
	var millis int64
	err := db.GetContext(ctx, &millis, query, tenantID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last date of %s: %w", tenantID, err)
	}

	t := time.UnixMilli(millis).UTC()
	return &t, nil
}

const rolloutColumns = `tenantid, projectcode, zone, circle, division, subdivision, section,
            consumer_created_count, billing_slab_count, last_demand_gen_date,
            collection_till_date, collection_till_date_online, last_collection_date,
            expense_count, last_expense_txn_date, paid_status_expense_bill_count,
            demands_till_date_count, ratings_count, last_rating_date, active_users_count,
            total_advance, total_penalty, createdtime`

// ReplaceRolloutSnapshot swaps the dashboard contents for rows in one transaction.
func (db *DB) ReplaceRolloutSnapshot(ctx context.Context, rows []core.RolloutStats) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM roll_out_dashboard`); err != nil {
		return fmt.Errorf("clear rollout snapshot: %w", err)
	}

	query := `
        INSERT INTO roll_out_dashboard (` + rolloutColumns + `) VALUES (
            :tenantid, :projectcode, :zone, :circle, :division, :subdivision, :section,
            :consumer_created_count, :billing_slab_count, :last_demand_gen_date,
            :collection_till_date, :collection_till_date_online, :last_collection_date,
            :expense_count, :last_expense_txn_date, :paid_status_expense_bill_count,
            :demands_till_date_count, :ratings_count, :last_rating_date, :active_users_count,
            :total_advance, :total_penalty, :createdtime
        )`

	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert rollout row for %s: %w", row.TenantID, err)
		}
	}

	return tx.Commit()
}

// ListRolloutSnapshot returns the dashboard rows of villages under stateTenant.
func (db *DB) ListRolloutSnapshot(ctx context.Context, stateTenant core.TenantID) ([]core.RolloutStats, error) {
	rows := []core.RolloutStats{}
	query := `
        SELECT ` + rolloutColumns + `
        FROM roll_out_dashboard
        WHERE tenantid LIKE $1
        ORDER BY tenantid`

	if err := db.SelectContext(ctx, &rows, query, stateTenant.String()+".%"); err != nil {
		return nil, fmt.Errorf("list rollout snapshot: %w", err)
	}
	return rows, nil
}
