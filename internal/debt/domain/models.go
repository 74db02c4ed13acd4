// Package domain contains persistence models and contracts for inter-owner
// debts and their payment history.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DebtStatus is the settlement state of one debt.
type DebtStatus string

const (
	DebtStatusPending       DebtStatus = "PENDING"
	DebtStatusPartiallyPaid DebtStatus = "PARTIALLY_PAID"
	DebtStatusPaid          DebtStatus = "PAID"
	DebtStatusOverdue       DebtStatus = "OVERDUE"
	DebtStatusCancelled     DebtStatus = "CANCELLED"
)

// DebtReason is a closed enum so settlement reversal can match exhaustively
// instead of comparing ad hoc strings.
type DebtReason string

const (
	// DebtReasonBillDistribution marks debts created by writing a period's
	// distribution ledger: owner owes the bill issuer.
	DebtReasonBillDistribution DebtReason = "BILL_DISTRIBUTION"
	// DebtReasonPeriodSettlement marks reciprocal debts created when one
	// owner fronts a period's bill for the others.
	DebtReasonPeriodSettlement DebtReason = "PERIOD_SETTLEMENT"
	// DebtReasonManual marks operator-entered debts.
	DebtReasonManual DebtReason = "MANUAL"
)

// Debt is money owed from DebtorID to CreditorID. PeriodID links debts the
// billing engine created back to their source period.
type Debt struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	CreditorID     snowflake.ID  `gorm:"not null;index"`
	DebtorID       snowflake.ID  `gorm:"not null;index"`
	PeriodID       *snowflake.ID `gorm:"index"`
	Amount         int64         `gorm:"not null"`
	Currency       string        `gorm:"type:text;not null"`
	DueDate        time.Time     `gorm:"not null"`
	Status         DebtStatus    `gorm:"type:text;not null;default:'PENDING';index"`
	Reason         DebtReason    `gorm:"type:text;not null"`
	Description    string        `gorm:"type:text"`
	PaymentDate    *time.Time    `gorm:""`
	ReminderSentAt *time.Time    `gorm:""`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Debt) TableName() string { return "debts" }

// PaymentHistory is an append-only record of money moving against a debt,
// or of a bulk period settlement (DebtID nil). Rows are never mutated or
// deleted, even when the debt is later cancelled.
type PaymentHistory struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	DebtID      *snowflake.ID `gorm:"index"`
	PeriodID    *snowflake.ID `gorm:"index"`
	PayerID     snowflake.ID  `gorm:"not null;index"`
	ReceiverID  snowflake.ID  `gorm:"not null;index"`
	Amount      int64         `gorm:"not null"`
	Currency    string        `gorm:"type:text;not null"`
	PaymentDate time.Time     `gorm:"not null"`
	Method      string        `gorm:"type:text;not null"`
	Notes       string        `gorm:"type:text"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PaymentHistory) TableName() string { return "payment_histories" }
