package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	"github.com/fieldworks/wellbill/internal/observability/metrics"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	"github.com/fieldworks/wellbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const txTimeout = 30 * time.Second

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	billingCfg *config.BillingConfigHolder
	notifier   notificationdomain.Notifier
	metrics    *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	BillingCfg *config.BillingConfigHolder
	Notifier   notificationdomain.Notifier
	Metrics    *metrics.Metrics `optional:"true"`
}

func NewService(p ServiceParam) debtdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("debt.service"),
		genID:      p.GenID,
		billingCfg: p.BillingCfg,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req debtdomain.CreateRequest) (*debtdomain.Debt, error) {
	creditorID, err := snowflake.ParseString(req.CreditorID)
	if err != nil {
		return nil, debtdomain.ErrInvalidDebt
	}
	debtorID, err := snowflake.ParseString(req.DebtorID)
	if err != nil {
		return nil, debtdomain.ErrInvalidDebt
	}
	if creditorID == debtorID || req.Amount <= 0 {
		return nil, debtdomain.ErrInvalidDebt
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&ownerdomain.Owner{}).
		Where("id IN ?", []snowflake.ID{creditorID, debtorID}).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count != 2 {
		return nil, debtdomain.ErrInvalidDebt
	}

	cfg := s.billingCfg.Get()
	now := time.Now().UTC()
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = now.AddDate(0, 0, cfg.DebtDueDays)
	}

	debt := debtdomain.Debt{
		ID:          s.genID.Generate(),
		CreditorID:  creditorID,
		DebtorID:    debtorID,
		Amount:      req.Amount,
		Currency:    cfg.Currency,
		DueDate:     dueDate,
		Status:      debtdomain.DebtStatusPending,
		Reason:      debtdomain.DebtReasonManual,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&debt).Error; err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notificationdomain.Notification{
		Title:      "New debt recorded",
		Message:    "A debt of " + formatAmount(debt.Amount, debt.Currency) + " was recorded against you.",
		Type:       notificationdomain.NotificationTypeDebt,
		ReceiverID: debtorID,
		SenderID:   &creditorID,
	})
	return &debt, nil
}

func (s *Service) Get(ctx context.Context, id string) (*debtdomain.DebtDetail, error) {
	debt, err := s.findDebt(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	var payments []debtdomain.PaymentHistory
	if err := s.db.WithContext(ctx).
		Where("debt_id = ?", debt.ID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return &debtdomain.DebtDetail{Debt: *debt, Payments: payments}, nil
}

func (s *Service) List(ctx context.Context, req debtdomain.ListRequest) (debtdomain.ListResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	query := s.db.WithContext(ctx).Model(&debtdomain.Debt{})
	if req.CreditorID != "" {
		id, err := snowflake.ParseString(req.CreditorID)
		if err != nil {
			return debtdomain.ListResponse{}, debtdomain.ErrInvalidDebt
		}
		query = query.Where("creditor_id = ?", id)
	}
	if req.DebtorID != "" {
		id, err := snowflake.ParseString(req.DebtorID)
		if err != nil {
			return debtdomain.ListResponse{}, debtdomain.ErrInvalidDebt
		}
		query = query.Where("debtor_id = ?", id)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Reason != "" {
		query = query.Where("reason = ?", req.Reason)
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return debtdomain.ListResponse{}, debtdomain.ErrInvalidDebt
		}
		query = query.Where("id < ?", cursor.ID)
	}

	var debts []*debtdomain.Debt
	if err := query.Order("id DESC").Limit(limit + 1).Find(&debts).Error; err != nil {
		return debtdomain.ListResponse{}, err
	}

	pageInfo, debts := pagination.BuildCursorPageInfo(debts, limit, func(d *debtdomain.Debt) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: d.ID.String()})
		return token
	})

	resp := debtdomain.ListResponse{PageInfo: *pageInfo}
	resp.Debts = make([]debtdomain.Debt, 0, len(debts))
	for _, d := range debts {
		resp.Debts = append(resp.Debts, *d)
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debt, err := s.findDebt(ctx, tx, id)
		if err != nil {
			return err
		}
		if debt.Status != debtdomain.DebtStatusPending {
			return debtdomain.ErrDebtNotPending
		}
		var count int64
		if err := tx.WithContext(ctx).Model(&debtdomain.PaymentHistory{}).
			Where("debt_id = ?", debt.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return debtdomain.ErrDebtHasHistory
		}
		return tx.WithContext(ctx).Delete(&debtdomain.Debt{}, "id = ?", debt.ID).Error
	})
}

// Pay settles a debt fully or partially. A partial payment splits the debt
// so the paid portion and the open remainder are separate rows, each with a
// single terminal amount. The running-balance alternative was rejected
// because every report would need to re-derive balances from history.
func (s *Service) Pay(ctx context.Context, req debtdomain.PayRequest) (*debtdomain.PayResult, error) {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var result debtdomain.PayResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debt, err := s.findDebt(ctx, tx, req.DebtID)
		if err != nil {
			return err
		}
		switch debt.Status {
		case debtdomain.DebtStatusCancelled:
			return debtdomain.ErrDebtCancelled
		case debtdomain.DebtStatusPaid:
			return debtdomain.ErrDebtAlreadyPaid
		}

		amount := req.Amount
		if amount == 0 {
			amount = debt.Amount
		}
		if amount < 0 {
			return debtdomain.ErrInvalidAmount
		}
		if amount > debt.Amount {
			return debtdomain.ErrExceedsRemaining
		}

		now := time.Now().UTC()
		paymentDate := req.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = now
		}

		updates := map[string]any{
			"status":       debtdomain.DebtStatusPaid,
			"payment_date": paymentDate,
			"updated_at":   now,
		}
		if amount < debt.Amount {
			updates["amount"] = amount
		}
		guard := tx.WithContext(ctx).Model(&debtdomain.Debt{}).
			Where("id = ? AND status = ?", debt.ID, debt.Status).
			Updates(updates)
		if guard.Error != nil {
			return guard.Error
		}
		if guard.RowsAffected == 0 {
			return debtdomain.ErrDebtNotPending
		}

		if amount < debt.Amount {
			remainder := debtdomain.Debt{
				ID:          s.genID.Generate(),
				CreditorID:  debt.CreditorID,
				DebtorID:    debt.DebtorID,
				PeriodID:    debt.PeriodID,
				Amount:      debt.Amount - amount,
				Currency:    debt.Currency,
				DueDate:     debt.DueDate,
				Status:      debtdomain.DebtStatusPending,
				Reason:      debt.Reason,
				Description: debt.Description,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&remainder).Error; err != nil {
				return err
			}
			result.Remainder = &remainder
		}

		payment := debtdomain.PaymentHistory{
			ID:          s.genID.Generate(),
			DebtID:      &debt.ID,
			PeriodID:    debt.PeriodID,
			PayerID:     debt.DebtorID,
			ReceiverID:  debt.CreditorID,
			Amount:      amount,
			Currency:    debt.Currency,
			PaymentDate: paymentDate,
			Method:      req.Method,
			Notes:       req.Notes,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}

		debt.Amount = amount
		debt.Status = debtdomain.DebtStatusPaid
		debt.PaymentDate = &paymentDate
		debt.UpdatedAt = now
		result.Debt = debt
		result.Payment = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		kind := "full"
		if result.Remainder != nil {
			kind = "partial"
		}
		s.metrics.RecordDebtPayment(kind)
	}

	s.notifier.Notify(ctx, notificationdomain.Notification{
		Title:      "Debt payment received",
		Message:    "A payment of " + formatAmount(result.Payment.Amount, result.Payment.Currency) + " was recorded.",
		Type:       notificationdomain.NotificationTypeDebt,
		ReceiverID: result.Debt.CreditorID,
		SenderID:   &result.Debt.DebtorID,
	})
	return &result, nil
}

// Cancel voids an open debt. Existing payment history stays on record.
func (s *Service) Cancel(ctx context.Context, id string) (*debtdomain.Debt, error) {
	debt, err := s.findDebt(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	switch debt.Status {
	case debtdomain.DebtStatusCancelled:
		return nil, debtdomain.ErrDebtCancelled
	case debtdomain.DebtStatusPaid:
		return nil, debtdomain.ErrDebtAlreadyPaid
	}

	now := time.Now().UTC()
	guard := s.db.WithContext(ctx).Model(&debtdomain.Debt{}).
		Where("id = ? AND status = ?", debt.ID, debt.Status).
		Updates(map[string]any{
			"status":     debtdomain.DebtStatusCancelled,
			"updated_at": now,
		})
	if guard.Error != nil {
		return nil, guard.Error
	}
	if guard.RowsAffected == 0 {
		return nil, debtdomain.ErrDebtNotPending
	}

	debt.Status = debtdomain.DebtStatusCancelled
	debt.UpdatedAt = now
	return debt, nil
}

// MarkOverdue is the periodic sweep turning past-due PENDING debts OVERDUE.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	cfg := s.billingCfg.Get()
	cutoff := asOf.UTC().AddDate(0, 0, -cfg.OverdueGraceDays)

	result := s.db.WithContext(ctx).Model(&debtdomain.Debt{}).
		Where("status = ? AND due_date < ?", debtdomain.DebtStatusPending, cutoff).
		Updates(map[string]any{
			"status":     debtdomain.DebtStatusOverdue,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}

	if s.metrics != nil {
		var open int64
		if err := s.db.WithContext(ctx).Model(&debtdomain.Debt{}).
			Where("status IN ?", []debtdomain.DebtStatus{debtdomain.DebtStatusPending, debtdomain.DebtStatusOverdue}).
			Count(&open).Error; err == nil {
			s.metrics.SetDebtsOutstanding(open)
		}
	}
	if result.RowsAffected > 0 {
		s.log.Info("debts marked overdue", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func formatAmount(amount int64, currency string) string {
	return strconv.FormatInt(amount, 10) + " " + currency
}

func (s *Service) findDebt(ctx context.Context, db *gorm.DB, id string) (*debtdomain.Debt, error) {
	debtID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, debtdomain.ErrDebtNotFound
	}
	var debt debtdomain.Debt
	if err := db.WithContext(ctx).First(&debt, "id = ?", debtID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, debtdomain.ErrDebtNotFound
		}
		return nil, err
	}
	return &debt, nil
}
