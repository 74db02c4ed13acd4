package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type usageSource struct {
	db *gorm.DB
}

type Param struct {
	fx.In

	DB *gorm.DB
}

func NewUsageSource(p Param) irrigationdomain.UsageSource {
	return &usageSource{db: p.DB}
}

// ListUsageEvents returns runs whose [start, end) interval intersects
// [from, to), with their field usage split preloaded.
func (s *usageSource) ListUsageEvents(ctx context.Context, wellID snowflake.ID, from, to time.Time) ([]irrigationdomain.IrrigationLog, error) {
	var logs []irrigationdomain.IrrigationLog
	err := s.db.WithContext(ctx).
		Preload("FieldUsages").
		Where("well_id = ? AND start_date_time < ? AND end_date_time > ?", wellID, to, from).
		Order("start_date_time ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
