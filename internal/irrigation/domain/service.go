package domain

import (
	"context"
	"errors"
	"time"
)

// FieldUsageInput is one field's share of a run being recorded.
type FieldUsageInput struct {
	FieldID    string  `json:"field_id"`
	Percentage float64 `json:"percentage"`
}

type CreateLogRequest struct {
	WellID          string            `json:"well_id"`
	StartDateTime   time.Time         `json:"start_date_time"`
	DurationMinutes float64           `json:"duration_minutes"`
	FieldUsages     []FieldUsageInput `json:"field_usages"`
	Metadata        map[string]any    `json:"metadata"`
}

type ListLogsRequest struct {
	WellID string     `form:"well_id"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}

type Service interface {
	CreateLog(ctx context.Context, req CreateLogRequest) (*IrrigationLog, error)
	ListLogs(ctx context.Context, req ListLogsRequest) ([]IrrigationLog, error)
	// DeleteLog is for correcting bad intake. Billing reads usage live, so
	// periods calculated before the correction must be cleared and
	// recalculated by the operator.
	DeleteLog(ctx context.Context, id string) error
}

var (
	ErrLogNotFound = errors.New("irrigation_log_not_found")
	ErrInvalidLog  = errors.New("invalid_irrigation_log")
)
