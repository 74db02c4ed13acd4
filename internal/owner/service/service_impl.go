package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	"github.com/fieldworks/wellbill/pkg/db/option"
	"github.com/fieldworks/wellbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	ownerRepo repository.Repository[ownerdomain.Owner]
	debtRepo  repository.Repository[debtdomain.Debt]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ownerdomain.Service {
	return &Service{
		log:       p.Log.Named("owner.service"),
		genID:     p.GenID,
		ownerRepo: repository.ProvideStore[ownerdomain.Owner](p.DB),
		debtRepo:  repository.ProvideStore[debtdomain.Debt](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req ownerdomain.CreateRequest) (*ownerdomain.Owner, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ownerdomain.ErrInvalidOwner
	}

	now := time.Now().UTC()
	owner := ownerdomain.Owner{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ownerRepo.Create(ctx, &owner); err != nil {
		return nil, err
	}
	return &owner, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ownerdomain.Owner, error) {
	ownerID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, ownerdomain.ErrOwnerNotFound
	}
	owner, err := s.ownerRepo.FindOne(ctx, &ownerdomain.Owner{ID: ownerID})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ownerdomain.ErrOwnerNotFound
	}
	return owner, nil
}

func (s *Service) List(ctx context.Context) ([]ownerdomain.Owner, error) {
	rows, err := s.ownerRepo.Find(ctx, &ownerdomain.Owner{}, option.OrderBy("name ASC"))
	if err != nil {
		return nil, err
	}
	owners := make([]ownerdomain.Owner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, *row)
	}
	return owners, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	owner, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	open, err := s.debtRepo.Find(ctx, &debtdomain.Debt{},
		option.Where("(creditor_id = ? OR debtor_id = ?) AND status IN ?",
			owner.ID, owner.ID,
			[]debtdomain.DebtStatus{debtdomain.DebtStatusPending, debtdomain.DebtStatusPartiallyPaid, debtdomain.DebtStatusOverdue}),
		option.Limit(1))
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return ownerdomain.ErrOwnerHasDebts
	}

	return s.ownerRepo.Delete(ctx, owner.ID.String())
}
