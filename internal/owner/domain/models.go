// Package domain contains persistence models for field owners.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Owner is a party that can hold field shares, owe and be owed money.
type Owner struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Email     string       `gorm:"type:text"`
	Phone     string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Owner) TableName() string { return "owners" }
