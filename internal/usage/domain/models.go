// Package domain defines the per-owner usage totals produced by clipping
// irrigation runs to a billing window.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FieldMinutes is one field's weighted minutes within an owner's total.
type FieldMinutes struct {
	FieldID snowflake.ID
	Minutes float64
}

// OwnerUsage is one owner's clipped, percentage-weighted usage for a window.
type OwnerUsage struct {
	OwnerID      snowflake.ID
	TotalMinutes float64
	Fields       []FieldMinutes // sorted by FieldID
}

// PeriodUsage is the aggregate usage for one well over one window.
type PeriodUsage struct {
	TotalMinutes float64
	Owners       []OwnerUsage // sorted by OwnerID
}

// Aggregator reconstructs per-owner usage from raw irrigation runs. Runs
// straddling a window boundary are clipped, never dropped or fully counted.
type Aggregator interface {
	AggregateUsage(ctx context.Context, wellID snowflake.ID, from, to time.Time) (*PeriodUsage, error)
}

var (
	ErrInvalidWindow = errors.New("invalid_usage_window")
	ErrNoUsage       = errors.New("no_usage_in_window")
)
