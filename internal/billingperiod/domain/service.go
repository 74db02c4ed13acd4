package domain

import (
	"context"
	"errors"
	"time"

	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	"github.com/fieldworks/wellbill/pkg/db/pagination"
)

type CreateRequest struct {
	WellID        string    `json:"well_id"`
	IssuerID      string    `json:"issuer_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalAmount   int64     `json:"total_amount"`
	InvoiceNumber string    `json:"invoice_number"`
}

type ListRequest struct {
	pagination.Pagination

	WellID string     `form:"well_id"`
	Status string     `form:"status"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}

type ListResponse struct {
	pagination.PageInfo
	Periods []BillingPeriod `json:"billing_periods"`
}

// DistributionRow is a distribution joined with owner and field names for
// presentation.
type DistributionRow struct {
	distributiondomain.Distribution
	OwnerName string `json:"owner_name"`
	FieldName string `json:"field_name"`
}

type PeriodDetail struct {
	BillingPeriod
	Distributions []DistributionRow `json:"distributions"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BillingPeriod, error)
	Get(ctx context.Context, id string) (*PeriodDetail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Delete cascades to the period's distributions and their untouched
	// linked debts. Refuses when any linked debt has payment history.
	Delete(ctx context.Context, id string) error
	// Calculate aggregates the period's usage, allocates the total and
	// writes the distribution ledger. Refuses when distributions already
	// exist; the caller must ClearDistributions first.
	Calculate(ctx context.Context, id string) ([]distributiondomain.Distribution, error)
	ClearDistributions(ctx context.Context, id string) error
}

var (
	ErrPeriodNotFound    = errors.New("billing_period_not_found")
	ErrInvalidPeriod     = errors.New("invalid_billing_period")
	ErrWellNotFound      = errors.New("well_not_found")
	ErrIssuerNotFound    = errors.New("issuer_not_found")
	ErrAlreadyCalculated = errors.New("distributions_already_exist")
	ErrPeriodSettled     = errors.New("billing_period_settled")
)
