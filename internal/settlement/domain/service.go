// Package domain defines the settlement contract: one owner fronting a
// period's bill, and the inverse transaction undoing it.
package domain

import (
	"context"
	"errors"
	"time"
)

// RecordPaymentRequest settles one billing period in full. PayerID is the
// owner (or admin) fronting the money; ReceiverID is the party the money
// was actually paid to and defaults to the period's issuer when empty.
type RecordPaymentRequest struct {
	PeriodID    string    `json:"-"`
	PayerID     string    `json:"payer_id"`
	ReceiverID  string    `json:"receiver_id"`
	Amount      int64     `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	Method      string    `json:"payment_method"`
	Description string    `json:"description"`
}

type Service interface {
	// RecordPayment transitions the period from PENDING to PAID, marks the
	// distribution debts paid, and creates reciprocal PENDING debts from
	// every non-payer owner to the payer. Rejected with ErrAlreadyPaid when
	// the period is already settled.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) error
	// ReversePayment is the inverse: deletes the still-PENDING reciprocal
	// debts RecordPayment created and flips the period back to PENDING.
	// The original bill-distribution debts are left untouched. Payment
	// history is never deleted; a compensating row is appended instead.
	ReversePayment(ctx context.Context, periodID string) error
}

var (
	ErrPeriodNotFound = errors.New("settlement_period_not_found")
	ErrAlreadyPaid    = errors.New("period_already_paid")
	ErrNotPaid        = errors.New("period_not_paid")
	ErrInvalidPayment = errors.New("invalid_settlement_payment")
)
