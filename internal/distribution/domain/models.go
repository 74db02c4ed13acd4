// Package domain contains the distribution ledger: the persisted record of
// how one billing period's total was split across owners and fields.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/allocation"
	"gorm.io/gorm"
)

// Distribution is one owner's computed share of a billing period, broken
// down by field. DebtID links the row to the debt covering the owner's
// aggregate share; rows belonging to the bill issuer carry no debt.
// The unique index makes a double calculation of the same period fail at
// the database even when two writers race past the pre-write count.
type Distribution struct {
	ID                  snowflake.ID  `gorm:"primaryKey"`
	WellBillingPeriodID snowflake.ID  `gorm:"not null;uniqueIndex:ux_distributions_period_owner_field"`
	OwnerID             snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_distributions_period_owner_field"`
	FieldID             snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_distributions_period_owner_field"`
	DebtID              *snowflake.ID `gorm:"index"`
	BasisDuration       float64       `gorm:"not null"` // weighted minutes
	SharePercentage     float64       `gorm:"not null"`
	Amount              int64         `gorm:"not null"`
	Currency            string        `gorm:"type:text;not null"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Distribution) TableName() string { return "well_bill_distributions" }

// WriteInput carries everything the ledger needs to materialize one
// period's allocation.
type WriteInput struct {
	PeriodID    snowflake.ID
	IssuerID    snowflake.ID
	TotalAmount int64
	Currency    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Shares      []allocation.Share
}

// Ledger persists distribution rows and their linked debts. Write and Clear
// run inside the caller's transaction so the period update commits with them.
type Ledger interface {
	Write(ctx context.Context, tx *gorm.DB, input WriteInput) ([]Distribution, error)
	// Clear deletes a period's distributions and their directly-linked,
	// still-PENDING debts. Refuses with ErrLinkedDebtTouched when any linked
	// debt has payment history or left PENDING.
	Clear(ctx context.Context, tx *gorm.DB, periodID snowflake.ID) error
	ListForPeriod(ctx context.Context, periodID snowflake.ID) ([]Distribution, error)
	CountForPeriod(ctx context.Context, periodID snowflake.ID) (int64, error)
}

var (
	// ErrSumMismatch means the allocation does not reconcile to the period
	// total. It indicates a bug in the allocation math, so the write fails
	// closed instead of auto-correcting.
	ErrSumMismatch       = errors.New("distribution_sum_mismatch")
	ErrNothingToWrite    = errors.New("no_distributions_to_write")
	ErrLinkedDebtTouched = errors.New("linked_debt_touched")
)
