// Package domain contains persistence models for fields and their ownership splits.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Field is an irrigated plot. Ownership percentages over one field sum to 100.
type Field struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Size      float64      `gorm:"not null"` // decares
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Field) TableName() string { return "fields" }

// FieldOwnership is one owner's percentage stake in a field.
type FieldOwnership struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	FieldID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_field_ownerships_field_owner,priority:1"`
	OwnerID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_field_ownerships_field_owner,priority:2"`
	Percentage float64      `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FieldOwnership) TableName() string { return "field_ownerships" }

// OwnershipSource resolves the ownership split of a field. The billing
// engine consumes it read-only.
type OwnershipSource interface {
	GetFieldOwnership(ctx context.Context, fieldID snowflake.ID) ([]FieldOwnership, error)
}

var (
	ErrFieldNotFound      = errors.New("field_not_found")
	ErrInvalidField       = errors.New("invalid_field")
	ErrInvalidOwnership   = errors.New("invalid_ownership")
	ErrPercentageMismatch = errors.New("ownership_percentage_mismatch")
)
