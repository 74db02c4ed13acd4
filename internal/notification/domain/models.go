// Package domain contains the notification sink consumed by the billing
// engine. Delivery transport is out of scope; rows are read by other
// subsystems.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type NotificationType string

const (
	NotificationTypeDebt    NotificationType = "DEBT"
	NotificationTypeBilling NotificationType = "BILLING"
)

type Notification struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	Title      string           `gorm:"type:text;not null"`
	Message    string           `gorm:"type:text;not null"`
	Type       NotificationType `gorm:"type:text;not null"`
	ReceiverID snowflake.ID     `gorm:"not null;index"`
	SenderID   *snowflake.ID    `gorm:""`
	ReadAt     *time.Time       `gorm:""`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// Notifier is fire-and-forget: implementations must never propagate
// failures into the financial write that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
