package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/allocation"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	billingCfg *config.BillingConfigHolder
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	BillingCfg *config.BillingConfigHolder
}

func NewService(p ServiceParam) distributiondomain.Ledger {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("distribution.ledger"),
		genID:      p.GenID,
		billingCfg: p.BillingCfg,
	}
}

// Write materializes one period's allocation inside the caller's
// transaction: one distribution row per (owner, field) share and one PENDING
// debt per owner other than the bill issuer. The write fails closed when the
// shares do not reconcile to the period total.
func (s *Service) Write(ctx context.Context, tx *gorm.DB, input distributiondomain.WriteInput) ([]distributiondomain.Distribution, error) {
	if len(input.Shares) == 0 {
		return nil, distributiondomain.ErrNothingToWrite
	}

	var sum int64
	for _, share := range input.Shares {
		sum += share.Amount
	}
	cfg := s.billingCfg.Get()
	if diff := sum - input.TotalAmount; diff > cfg.SumToleranceUnits || diff < -cfg.SumToleranceUnits {
		s.log.Error("allocation does not reconcile to period total",
			zap.String("period_id", input.PeriodID.String()),
			zap.Int64("total", input.TotalAmount),
			zap.Int64("allocated", sum))
		return nil, distributiondomain.ErrSumMismatch
	}

	now := time.Now().UTC()
	dueDate := now.AddDate(0, 0, cfg.DebtDueDays)

	debtByOwner := make(map[snowflake.ID]snowflake.ID)
	for _, total := range allocation.OwnerTotals(input.Shares) {
		if total.OwnerID == input.IssuerID || total.Amount <= 0 {
			continue
		}
		periodID := input.PeriodID
		debt := debtdomain.Debt{
			ID:          s.genID.Generate(),
			CreditorID:  input.IssuerID,
			DebtorID:    total.OwnerID,
			PeriodID:    &periodID,
			Amount:      total.Amount,
			Currency:    input.Currency,
			DueDate:     dueDate,
			Status:      debtdomain.DebtStatusPending,
			Reason:      debtdomain.DebtReasonBillDistribution,
			Description: fmt.Sprintf("Well bill share for %s - %s", input.PeriodStart.Format("2006-01-02"), input.PeriodEnd.Format("2006-01-02")),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&debt).Error; err != nil {
			return nil, err
		}
		debtByOwner[total.OwnerID] = debt.ID
	}

	rows := make([]distributiondomain.Distribution, 0, len(input.Shares))
	for _, share := range input.Shares {
		row := distributiondomain.Distribution{
			ID:                  s.genID.Generate(),
			WellBillingPeriodID: input.PeriodID,
			OwnerID:             share.OwnerID,
			FieldID:             share.FieldID,
			BasisDuration:       share.BasisMinutes,
			SharePercentage:     share.SharePercentage,
			Amount:              share.Amount,
			Currency:            input.Currency,
			CreatedAt:           now,
		}
		if debtID, ok := debtByOwner[share.OwnerID]; ok {
			id := debtID
			row.DebtID = &id
		}
		rows = append(rows, row)
	}
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// Clear deletes a period's distribution rows and their directly-linked
// debts. Any linked debt that has payment history or left the PENDING state
// blocks the clear; the caller sees a conflict, not a partial delete.
func (s *Service) Clear(ctx context.Context, tx *gorm.DB, periodID snowflake.ID) error {
	var rows []distributiondomain.Distribution
	if err := tx.WithContext(ctx).Where("well_billing_period_id = ?", periodID).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	debtIDs := make([]snowflake.ID, 0, len(rows))
	seen := make(map[snowflake.ID]struct{})
	for _, row := range rows {
		if row.DebtID == nil {
			continue
		}
		if _, ok := seen[*row.DebtID]; ok {
			continue
		}
		seen[*row.DebtID] = struct{}{}
		debtIDs = append(debtIDs, *row.DebtID)
	}

	if len(debtIDs) > 0 {
		var touched int64
		if err := tx.WithContext(ctx).Model(&debtdomain.Debt{}).
			Where("id IN ? AND status <> ?", debtIDs, debtdomain.DebtStatusPending).
			Count(&touched).Error; err != nil {
			return err
		}
		if touched > 0 {
			return distributiondomain.ErrLinkedDebtTouched
		}
		if err := tx.WithContext(ctx).Model(&debtdomain.PaymentHistory{}).
			Where("debt_id IN ?", debtIDs).
			Count(&touched).Error; err != nil {
			return err
		}
		if touched > 0 {
			return distributiondomain.ErrLinkedDebtTouched
		}
	}

	if err := tx.WithContext(ctx).
		Where("well_billing_period_id = ?", periodID).
		Delete(&distributiondomain.Distribution{}).Error; err != nil {
		return err
	}
	if len(debtIDs) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", debtIDs).Delete(&debtdomain.Debt{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListForPeriod(ctx context.Context, periodID snowflake.ID) ([]distributiondomain.Distribution, error) {
	var rows []distributiondomain.Distribution
	err := s.db.WithContext(ctx).
		Where("well_billing_period_id = ?", periodID).
		Order("owner_id ASC, field_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) CountForPeriod(ctx context.Context, periodID snowflake.ID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&distributiondomain.Distribution{}).
		Where("well_billing_period_id = ?", periodID).
		Count(&count).Error
	return count, err
}
