// Package domain contains persistence models for shared wells.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Well is a shared metered resource whose running cost is split among the
// owners of the fields it irrigates.
type Well struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	Name      string            `gorm:"type:text;not null"`
	Location  string            `gorm:"type:text"`
	Capacity  float64           `gorm:""`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Well) TableName() string { return "wells" }
