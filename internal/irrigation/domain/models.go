// Package domain contains persistence models for irrigation runs, the raw
// usage events consumed by billing. Rows are written by the irrigation
// logging collaborator and are immutable here.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// IrrigationLog is one run of a well pump. EndDateTime is denormalized from
// StartDateTime+DurationMinutes so period overlap can be filtered in SQL.
type IrrigationLog struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	WellID          snowflake.ID      `gorm:"not null;index:ix_irrigation_logs_well_window,priority:1"`
	StartDateTime   time.Time         `gorm:"not null;index:ix_irrigation_logs_well_window,priority:2"`
	EndDateTime     time.Time         `gorm:"not null;index:ix_irrigation_logs_well_window,priority:3"`
	DurationMinutes float64           `gorm:"not null"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`

	FieldUsages []IrrigationFieldUsage `gorm:"foreignKey:IrrigationLogID"`
}

// TableName sets the database table name.
func (IrrigationLog) TableName() string { return "irrigation_logs" }

// IrrigationFieldUsage splits one run across the fields it watered.
// Percentage is this field's share of the run.
type IrrigationFieldUsage struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	IrrigationLogID snowflake.ID `gorm:"not null;index"`
	FieldID         snowflake.ID `gorm:"not null;index"`
	Percentage      float64      `gorm:"not null"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (IrrigationFieldUsage) TableName() string { return "irrigation_field_usages" }

// UsageSource lists irrigation runs overlapping a window. Runs entirely
// outside [from, to) are excluded by the query, not post-filtered.
type UsageSource interface {
	ListUsageEvents(ctx context.Context, wellID snowflake.ID, from, to time.Time) ([]IrrigationLog, error)
}
