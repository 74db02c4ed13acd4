package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"github.com/fieldworks/wellbill/pkg/db/option"
	"github.com/fieldworks/wellbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	logRepo   repository.Repository[irrigationdomain.IrrigationLog]
	usageRepo repository.Repository[irrigationdomain.IrrigationFieldUsage]
	wellRepo  repository.Repository[welldomain.Well]
	fieldRepo repository.Repository[fielddomain.Field]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) irrigationdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("irrigation.service"),
		genID:     p.GenID,
		logRepo:   repository.ProvideStore[irrigationdomain.IrrigationLog](p.DB),
		usageRepo: repository.ProvideStore[irrigationdomain.IrrigationFieldUsage](p.DB),
		wellRepo:  repository.ProvideStore[welldomain.Well](p.DB),
		fieldRepo: repository.ProvideStore[fielddomain.Field](p.DB),
	}
}

// CreateLog records one pump run. EndDateTime is stored alongside the
// duration so billing windows can filter overlap in SQL.
func (s *Service) CreateLog(ctx context.Context, req irrigationdomain.CreateLogRequest) (*irrigationdomain.IrrigationLog, error) {
	wellID, err := snowflake.ParseString(req.WellID)
	if err != nil {
		return nil, irrigationdomain.ErrInvalidLog
	}
	if req.StartDateTime.IsZero() || req.DurationMinutes <= 0 || len(req.FieldUsages) == 0 {
		return nil, irrigationdomain.ErrInvalidLog
	}

	well, err := s.wellRepo.FindOne(ctx, &welldomain.Well{ID: wellID})
	if err != nil {
		return nil, err
	}
	if well == nil {
		return nil, welldomain.ErrWellNotFound
	}

	fieldIDs := make([]snowflake.ID, 0, len(req.FieldUsages))
	for _, usage := range req.FieldUsages {
		fieldID, err := snowflake.ParseString(usage.FieldID)
		if err != nil || usage.Percentage <= 0 {
			return nil, irrigationdomain.ErrInvalidLog
		}
		fieldIDs = append(fieldIDs, fieldID)
	}
	var fieldCount int64
	if err := s.db.WithContext(ctx).Model(&fielddomain.Field{}).
		Where("id IN ?", fieldIDs).
		Count(&fieldCount).Error; err != nil {
		return nil, err
	}
	if int(fieldCount) != len(fieldIDs) {
		return nil, fielddomain.ErrFieldNotFound
	}

	now := time.Now().UTC()
	start := req.StartDateTime.UTC()
	entry := irrigationdomain.IrrigationLog{
		ID:              s.genID.Generate(),
		WellID:          wellID,
		StartDateTime:   start,
		EndDateTime:     start.Add(time.Duration(req.DurationMinutes * float64(time.Minute))),
		DurationMinutes: req.DurationMinutes,
		Metadata:        datatypes.JSONMap(req.Metadata),
		CreatedAt:       now,
	}
	usages := make([]*irrigationdomain.IrrigationFieldUsage, 0, len(req.FieldUsages))
	for i, usage := range req.FieldUsages {
		usages = append(usages, &irrigationdomain.IrrigationFieldUsage{
			ID:              s.genID.Generate(),
			IrrigationLogID: entry.ID,
			FieldID:         fieldIDs[i],
			Percentage:      usage.Percentage,
			CreatedAt:       now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.logRepo.WithTrx(tx).Create(ctx, &entry); err != nil {
			return err
		}
		return s.usageRepo.WithTrx(tx).BatchCreate(ctx, usages)
	})
	if err != nil {
		return nil, err
	}

	entry.FieldUsages = make([]irrigationdomain.IrrigationFieldUsage, 0, len(usages))
	for _, usage := range usages {
		entry.FieldUsages = append(entry.FieldUsages, *usage)
	}
	return &entry, nil
}

func (s *Service) ListLogs(ctx context.Context, req irrigationdomain.ListLogsRequest) ([]irrigationdomain.IrrigationLog, error) {
	opts := []option.QueryOption{
		option.Preload("FieldUsages"),
		option.OrderBy("start_date_time ASC"),
	}
	filter := irrigationdomain.IrrigationLog{}
	if req.WellID != "" {
		wellID, err := snowflake.ParseString(req.WellID)
		if err != nil {
			return nil, irrigationdomain.ErrInvalidLog
		}
		filter.WellID = wellID
	}
	if req.From != nil {
		opts = append(opts, option.Where("end_date_time > ?", req.From.UTC()))
	}
	if req.To != nil {
		opts = append(opts, option.Where("start_date_time < ?", req.To.UTC()))
	}

	rows, err := s.logRepo.Find(ctx, &filter, opts...)
	if err != nil {
		return nil, err
	}
	logs := make([]irrigationdomain.IrrigationLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, *row)
	}
	return logs, nil
}

func (s *Service) DeleteLog(ctx context.Context, id string) error {
	logID, err := snowflake.ParseString(id)
	if err != nil {
		return irrigationdomain.ErrLogNotFound
	}
	entry, err := s.logRepo.FindOne(ctx, &irrigationdomain.IrrigationLog{ID: logID})
	if err != nil {
		return err
	}
	if entry == nil {
		return irrigationdomain.ErrLogNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("irrigation_log_id = ?", logID).
			Delete(&irrigationdomain.IrrigationFieldUsage{}).Error; err != nil {
			return err
		}
		return s.logRepo.WithTrx(tx).Delete(ctx, logID.String())
	})
}
