package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	"github.com/fieldworks/wellbill/pkg/db"
	"github.com/fieldworks/wellbill/pkg/db/option"
	"github.com/fieldworks/wellbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const percentageTolerance = 0.01

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	fieldRepo     repository.Repository[fielddomain.Field]
	ownershipRepo repository.Repository[fielddomain.FieldOwnership]
	ownerRepo     repository.Repository[ownerdomain.Owner]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) fielddomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("field.service"),
		genID:         p.GenID,
		fieldRepo:     repository.ProvideStore[fielddomain.Field](p.DB),
		ownershipRepo: repository.ProvideStore[fielddomain.FieldOwnership](p.DB),
		ownerRepo:     repository.ProvideStore[ownerdomain.Owner](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req fielddomain.CreateRequest) (*fielddomain.Field, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Size <= 0 {
		return nil, fielddomain.ErrInvalidField
	}

	now := time.Now().UTC()
	field := fielddomain.Field{
		ID:        s.genID.Generate(),
		Name:      name,
		Size:      req.Size,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.fieldRepo.Create(ctx, &field); err != nil {
		return nil, err
	}
	return &field, nil
}

func (s *Service) Get(ctx context.Context, id string) (*fielddomain.FieldDetail, error) {
	field, err := s.findField(ctx, id)
	if err != nil {
		return nil, err
	}

	ownerships, err := s.ownershipRepo.Find(ctx,
		&fielddomain.FieldOwnership{FieldID: field.ID},
		option.OrderBy("owner_id ASC"))
	if err != nil {
		return nil, err
	}

	detail := fielddomain.FieldDetail{Field: *field}
	detail.Ownerships = make([]fielddomain.FieldOwnership, 0, len(ownerships))
	for _, o := range ownerships {
		detail.Ownerships = append(detail.Ownerships, *o)
	}
	return &detail, nil
}

func (s *Service) List(ctx context.Context) ([]fielddomain.Field, error) {
	rows, err := s.fieldRepo.Find(ctx, &fielddomain.Field{}, option.OrderBy("name ASC"))
	if err != nil {
		return nil, err
	}
	fields := make([]fielddomain.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, *row)
	}
	return fields, nil
}

func (s *Service) SetOwnership(ctx context.Context, fieldID string, shares []fielddomain.OwnershipShare) ([]fielddomain.FieldOwnership, error) {
	field, err := s.findField(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, fielddomain.ErrInvalidOwnership
	}

	total := 0.0
	ownerIDs := make([]snowflake.ID, 0, len(shares))
	seen := make(map[snowflake.ID]struct{}, len(shares))
	for _, share := range shares {
		ownerID, err := snowflake.ParseString(share.OwnerID)
		if err != nil || share.Percentage <= 0 {
			return nil, fielddomain.ErrInvalidOwnership
		}
		if _, dup := seen[ownerID]; dup {
			return nil, fielddomain.ErrInvalidOwnership
		}
		seen[ownerID] = struct{}{}
		ownerIDs = append(ownerIDs, ownerID)
		total += share.Percentage
	}
	if math.Abs(total-100) > percentageTolerance {
		return nil, fielddomain.ErrPercentageMismatch
	}

	var ownerCount int64
	if err := s.db.WithContext(ctx).Model(&ownerdomain.Owner{}).
		Where("id IN ?", ownerIDs).
		Count(&ownerCount).Error; err != nil {
		return nil, err
	}
	if int(ownerCount) != len(ownerIDs) {
		return nil, fielddomain.ErrInvalidOwnership
	}

	now := time.Now().UTC()
	rows := make([]*fielddomain.FieldOwnership, 0, len(shares))
	for i, share := range shares {
		rows = append(rows, &fielddomain.FieldOwnership{
			ID:         s.genID.Generate(),
			FieldID:    field.ID,
			OwnerID:    ownerIDs[i],
			Percentage: share.Percentage,
			CreatedAt:  now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("field_id = ?", field.ID).
			Delete(&fielddomain.FieldOwnership{}).Error; err != nil {
			return err
		}
		return s.ownershipRepo.WithTrx(tx).BatchCreate(ctx, rows)
	})
	if err != nil {
		// A concurrent SetOwnership can race the delete and hit the unique
		// (field_id, owner_id) index.
		if db.IsDuplicateKeyErr(err) {
			return nil, fielddomain.ErrInvalidOwnership
		}
		return nil, err
	}

	result := make([]fielddomain.FieldOwnership, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	s.log.Info("field ownership replaced",
		zap.String("field_id", field.ID.String()),
		zap.Int("owners", len(result)))
	return result, nil
}

func (s *Service) findField(ctx context.Context, id string) (*fielddomain.Field, error) {
	fieldID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, fielddomain.ErrFieldNotFound
	}
	field, err := s.fieldRepo.FindOne(ctx, &fielddomain.Field{ID: fieldID})
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, fielddomain.ErrFieldNotFound
	}
	return field, nil
}
