package domain

import (
	"context"
	"errors"
	"time"

	"github.com/fieldworks/wellbill/pkg/db/pagination"
)

type CreateRequest struct {
	CreditorID  string    `json:"creditor_id"`
	DebtorID    string    `json:"debtor_id"`
	Amount      int64     `json:"amount"`
	DueDate     time.Time `json:"due_date"`
	Description string    `json:"description"`
}

type ListRequest struct {
	pagination.Pagination

	CreditorID string `form:"creditor_id"`
	DebtorID   string `form:"debtor_id"`
	Status     string `form:"status"`
	Reason     string `form:"reason"`
}

type ListResponse struct {
	pagination.PageInfo
	Debts []Debt `json:"debts"`
}

// PayRequest records a payment against one debt. Amount zero means the full
// remaining balance.
type PayRequest struct {
	DebtID      string    `json:"-"`
	Amount      int64     `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	Method      string    `json:"payment_method"`
	Notes       string    `json:"notes"`
}

// PayResult reports the outcome of a payment. Remainder is non-nil when a
// partial payment split the debt.
type PayResult struct {
	Debt      *Debt           `json:"debt"`
	Remainder *Debt           `json:"remainder,omitempty"`
	Payment   *PaymentHistory `json:"payment"`
}

type DebtDetail struct {
	Debt
	Payments []PaymentHistory `json:"payments"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Debt, error)
	Get(ctx context.Context, id string) (*DebtDetail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Delete removes a debt; legal only for PENDING debts with no payment
	// history.
	Delete(ctx context.Context, id string) error
	// Pay settles a debt fully or partially. A partial payment splits the
	// debt: the original row is reduced to the total paid and marked PAID,
	// a new PENDING row carries the remainder between the same parties.
	Pay(ctx context.Context, req PayRequest) (*PayResult, error)
	Cancel(ctx context.Context, id string) (*Debt, error)
	// MarkOverdue flips PENDING debts past their due date (plus grace) to
	// OVERDUE and returns how many rows changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

var (
	ErrDebtNotFound     = errors.New("debt_not_found")
	ErrInvalidDebt      = errors.New("invalid_debt")
	ErrInvalidAmount    = errors.New("invalid_payment_amount")
	ErrExceedsRemaining = errors.New("payment_exceeds_remaining")
	ErrDebtCancelled    = errors.New("debt_cancelled")
	ErrDebtAlreadyPaid  = errors.New("debt_already_paid")
	ErrDebtHasHistory   = errors.New("debt_has_payment_history")
	ErrDebtNotPending   = errors.New("debt_not_pending")
)
