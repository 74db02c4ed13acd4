package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"github.com/fieldworks/wellbill/pkg/db/option"
	"github.com/fieldworks/wellbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	wellRepo   repository.Repository[welldomain.Well]
	periodRepo repository.Repository[billingdomain.BillingPeriod]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) welldomain.Service {
	return &Service{
		log:        p.Log.Named("well.service"),
		genID:      p.GenID,
		wellRepo:   repository.ProvideStore[welldomain.Well](p.DB),
		periodRepo: repository.ProvideStore[billingdomain.BillingPeriod](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req welldomain.CreateRequest) (*welldomain.Well, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Capacity < 0 {
		return nil, welldomain.ErrInvalidWell
	}

	now := time.Now().UTC()
	well := welldomain.Well{
		ID:        s.genID.Generate(),
		Name:      name,
		Location:  strings.TrimSpace(req.Location),
		Capacity:  req.Capacity,
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wellRepo.Create(ctx, &well); err != nil {
		return nil, err
	}
	return &well, nil
}

func (s *Service) Get(ctx context.Context, id string) (*welldomain.Well, error) {
	wellID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, welldomain.ErrWellNotFound
	}
	well, err := s.wellRepo.FindOne(ctx, &welldomain.Well{ID: wellID})
	if err != nil {
		return nil, err
	}
	if well == nil {
		return nil, welldomain.ErrWellNotFound
	}
	return well, nil
}

func (s *Service) List(ctx context.Context) ([]welldomain.Well, error) {
	rows, err := s.wellRepo.Find(ctx, &welldomain.Well{}, option.OrderBy("name ASC"))
	if err != nil {
		return nil, err
	}
	wells := make([]welldomain.Well, 0, len(rows))
	for _, row := range rows {
		wells = append(wells, *row)
	}
	return wells, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	well, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.periodRepo.Count(ctx, &billingdomain.BillingPeriod{WellID: well.ID})
	if err != nil {
		return err
	}
	if count > 0 {
		return welldomain.ErrWellHasPeriods
	}

	return s.wellRepo.Delete(ctx, well.ID.String())
}
