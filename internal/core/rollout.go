package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Village is a village water scheme tenant with its place in the project hierarchy.
type Village struct {
	TenantID    TenantID `json:"tenantId" db:"tenantid"`
	ProjectCode string   `json:"projectCode" db:"projectcode"`
	Zone        string   `json:"zone" db:"zone"`
	Circle      string   `json:"circle" db:"circle"`
	Division    string   `json:"division" db:"division"`
	SubDivision string   `json:"subDivision" db:"subdivision"`
	Section     string   `json:"section" db:"section"`
}

// RolloutStats is one row of the rollout dashboard snapshot.
type RolloutStats struct {
	Village
	ConsumerCount      int             `json:"consumerCount" db:"consumer_created_count"`
	BillingSlabCount   int             `json:"billingSlabCount" db:"billing_slab_count"`
	LastDemandDate     *time.Time      `json:"lastDemandDate,omitempty" db:"last_demand_gen_date"`
	Collection         decimal.Decimal `json:"collection" db:"collection_till_date"`
	OnlineCollection   decimal.Decimal `json:"onlineCollection" db:"collection_till_date_online"`
	LastCollectionDate *time.Time      `json:"lastCollectionDate,omitempty" db:"last_collection_date"`

	ExpenseCount     int             `json:"expenseCount" db:"expense_count"`
	LastExpenseDate  *time.Time      `json:"lastExpenseDate,omitempty" db:"last_expense_txn_date"`
	PaidExpenseCount int             `json:"paidExpenseCount" db:"paid_status_expense_bill_count"`
	DemandCount      int             `json:"demandCount" db:"demands_till_date_count"`
	RatingCount      int             `json:"ratingCount" db:"ratings_count"`
	LastRatingDate   *time.Time      `json:"lastRatingDate,omitempty" db:"last_rating_date"`
	ActiveUserCount  int             `json:"activeUserCount" db:"active_users_count"`
	TotalAdvance     decimal.Decimal `json:"totalAdvance" db:"total_advance"`
	TotalPenalty     decimal.Decimal `json:"totalPenalty" db:"total_penalty"`
	CreatedTime      time.Time       `json:"createdTime" db:"createdtime"`
}
