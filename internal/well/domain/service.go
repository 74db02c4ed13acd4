package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	Name     string         `json:"name"`
	Location string         `json:"location"`
	Capacity float64        `json:"capacity"`
	Metadata map[string]any `json:"metadata"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Well, error)
	Get(ctx context.Context, id string) (*Well, error)
	List(ctx context.Context) ([]Well, error)
	// Delete refuses while billing periods reference the well.
	Delete(ctx context.Context, id string) error
}

var (
	ErrWellNotFound   = errors.New("well_not_found")
	ErrInvalidWell    = errors.New("invalid_well")
	ErrWellHasPeriods = errors.New("well_has_billing_periods")
)
