package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ownershipSource struct {
	db *gorm.DB
}

type Param struct {
	fx.In

	DB *gorm.DB
}

func NewOwnershipSource(p Param) fielddomain.OwnershipSource {
	return &ownershipSource{db: p.DB}
}

func (s *ownershipSource) GetFieldOwnership(ctx context.Context, fieldID snowflake.ID) ([]fielddomain.FieldOwnership, error) {
	var ownerships []fielddomain.FieldOwnership
	err := s.db.WithContext(ctx).
		Where("field_id = ?", fieldID).
		Order("owner_id ASC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}
