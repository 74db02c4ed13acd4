// Package domain contains persistence models and contracts for well billing
// periods.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingPeriodStatus is the settlement state of a period. PENDING flips to
// PAID only through the settlement processor, and back only through reversal.
type BillingPeriodStatus string

const (
	BillingPeriodStatusPending BillingPeriodStatus = "PENDING"
	BillingPeriodStatusPaid    BillingPeriodStatus = "PAID"
)

// BillingPeriod is one invoice cycle for one well. TotalAmount is in the
// smallest currency unit; TotalUsageMinutes is derived by calculation.
// IssuerID is the party the bill is payable to, the creditor of the
// distribution debts.
type BillingPeriod struct {
	ID                snowflake.ID        `gorm:"primaryKey"`
	WellID            snowflake.ID        `gorm:"not null;index"`
	IssuerID          snowflake.ID        `gorm:"not null"`
	StartDate         time.Time           `gorm:"not null;index"`
	EndDate           time.Time           `gorm:"not null"`
	TotalAmount       int64               `gorm:"not null"`
	Currency          string              `gorm:"type:text;not null"`
	TotalUsageMinutes float64             `gorm:"not null;default:0"`
	Status            BillingPeriodStatus `gorm:"type:text;not null;default:'PENDING';index"`
	InvoiceNumber     string              `gorm:"type:text"`
	PaidAt            *time.Time          `gorm:""`
	CreatedAt         time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingPeriod) TableName() string { return "well_billing_periods" }
