package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	"github.com/fieldworks/wellbill/internal/observability/metrics"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	settlementdomain "github.com/fieldworks/wellbill/internal/settlement/domain"
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

func NewService(p ServiceParam) settlementdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("settlement.service"),
		genID:      p.GenID,
		billingCfg: p.BillingCfg,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
	}
}

// RecordPayment settles a period that one owner fronted in full. Inside one
// transaction it flips the period to PAID, marks the period's open
// distribution debts paid, records the aggregate payment and creates a
// reciprocal PENDING debt from every other owner with a share to the payer.
func (s *Service) RecordPayment(ctx context.Context, req settlementdomain.RecordPaymentRequest) error {
	periodID, err := snowflake.ParseString(req.PeriodID)
	if err != nil {
		return settlementdomain.ErrPeriodNotFound
	}
	payerID, err := snowflake.ParseString(req.PayerID)
	if err != nil {
		return settlementdomain.ErrInvalidPayment
	}
	if req.Amount < 0 {
		return settlementdomain.ErrInvalidPayment
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var reciprocal []debtdomain.Debt
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period billingdomain.BillingPeriod
		if err := tx.WithContext(ctx).First(&period, "id = ?", periodID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return settlementdomain.ErrPeriodNotFound
			}
			return err
		}

		receiverID := period.IssuerID
		if req.ReceiverID != "" {
			receiverID, err = snowflake.ParseString(req.ReceiverID)
			if err != nil {
				return settlementdomain.ErrInvalidPayment
			}
		}
		amount := req.Amount
		if amount == 0 {
			amount = period.TotalAmount
		}
		if amount != period.TotalAmount {
			return settlementdomain.ErrInvalidPayment
		}

		var rows []distributiondomain.Distribution
		if err := tx.WithContext(ctx).
			Where("well_billing_period_id = ?", periodID).
			Order("owner_id ASC, field_id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return settlementdomain.ErrInvalidPayment
		}

		now := time.Now().UTC()
		paymentDate := req.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = now
		}

		// The only PENDING -> PAID transition. A concurrent settlement loses
		// the conditional update and surfaces as a conflict.
		result := tx.WithContext(ctx).Model(&billingdomain.BillingPeriod{}).
			Where("id = ? AND status = ?", periodID, billingdomain.BillingPeriodStatusPending).
			Updates(map[string]any{
				"status":     billingdomain.BillingPeriodStatusPaid,
				"paid_at":    paymentDate,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return settlementdomain.ErrAlreadyPaid
		}

		if err := tx.WithContext(ctx).Model(&debtdomain.Debt{}).
			Where("period_id = ? AND reason = ? AND status IN ?",
				periodID, debtdomain.DebtReasonBillDistribution,
				[]debtdomain.DebtStatus{debtdomain.DebtStatusPending, debtdomain.DebtStatusOverdue, debtdomain.DebtStatusPartiallyPaid}).
			Updates(map[string]any{
				"status":       debtdomain.DebtStatusPaid,
				"payment_date": paymentDate,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}

		payment := debtdomain.PaymentHistory{
			ID:          s.genID.Generate(),
			PeriodID:    &period.ID,
			PayerID:     payerID,
			ReceiverID:  receiverID,
			Amount:      amount,
			Currency:    period.Currency,
			PaymentDate: paymentDate,
			Method:      req.Method,
			Notes:       req.Description,
			CreatedAt:   now,
		}
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}

		// Debtors read this description on their statement, so name the
		// payer and the period. A missing owner row degrades to the ID.
		payerName := payerID.String()
		var payer ownerdomain.Owner
		if err := tx.WithContext(ctx).First(&payer, "id = ?", payerID).Error; err == nil {
			payerName = payer.Name
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
		window := fmt.Sprintf("%s - %s",
			period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"))

		dueDate := now.AddDate(0, 0, s.billingCfg.Get().DebtDueDays)
		totals := ownerTotals(rows)
		reciprocal = reciprocal[:0]
		for _, total := range totals {
			if total.ownerID == payerID || total.amount <= 0 {
				continue
			}
			pid := period.ID
			debt := debtdomain.Debt{
				ID:          s.genID.Generate(),
				CreditorID:  payerID,
				DebtorID:    total.ownerID,
				PeriodID:    &pid,
				Amount:      total.amount,
				Currency:    period.Currency,
				DueDate:     dueDate,
				Status:      debtdomain.DebtStatusPending,
				Reason:      debtdomain.DebtReasonPeriodSettlement,
				Description: fmt.Sprintf("Share of well bill for %s fronted by %s", window, payerName),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&debt).Error; err != nil {
				return err
			}
			reciprocal = append(reciprocal, debt)
		}
		return nil
	})
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
			if err == settlementdomain.ErrAlreadyPaid {
				outcome = "conflict"
			}
		}
		s.metrics.RecordSettlement(outcome)
	}
	if err != nil {
		return err
	}

	for _, debt := range reciprocal {
		s.notifier.Notify(ctx, notificationdomain.Notification{
			Title:      "Well bill settled on your behalf",
			Message:    fmt.Sprintf("Your share of %d %s is now owed to the paying owner.", debt.Amount, debt.Currency),
			Type:       notificationdomain.NotificationTypeDebt,
			ReceiverID: debt.DebtorID,
			SenderID:   &payerID,
		})
	}

	s.log.Info("period settled",
		zap.String("period_id", periodID.String()),
		zap.String("payer_id", payerID.String()),
		zap.Int("reciprocal_debts", len(reciprocal)))
	return nil
}

// ReversePayment undoes RecordPayment: the period flips back to PENDING and
// only the still-PENDING reciprocal debts it created are deleted. Reciprocal
// debts the debtors already paid stay in place; that money really moved and
// is not this period's to claw back. The original bill-distribution debts are
// left untouched. The original payment row is kept and a compensating row
// with payer and receiver swapped is appended.
func (s *Service) ReversePayment(ctx context.Context, periodID string) error {
	id, err := snowflake.ParseString(periodID)
	if err != nil {
		return settlementdomain.ErrPeriodNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var fronted *debtdomain.PaymentHistory
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period billingdomain.BillingPeriod
		if err := tx.WithContext(ctx).First(&period, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return settlementdomain.ErrPeriodNotFound
			}
			return err
		}

		now := time.Now().UTC()
		result := tx.WithContext(ctx).Model(&billingdomain.BillingPeriod{}).
			Where("id = ? AND status = ?", id, billingdomain.BillingPeriodStatusPaid).
			Updates(map[string]any{
				"status":     billingdomain.BillingPeriodStatusPending,
				"paid_at":    nil,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return settlementdomain.ErrNotPaid
		}

		if err := tx.WithContext(ctx).
			Where("period_id = ? AND reason = ? AND status = ?",
				id, debtdomain.DebtReasonPeriodSettlement, debtdomain.DebtStatusPending).
			Delete(&debtdomain.Debt{}).Error; err != nil {
			return err
		}

		var payment debtdomain.PaymentHistory
		if err := tx.WithContext(ctx).
			Where("period_id = ? AND debt_id IS NULL", id).
			Order("created_at DESC").
			First(&payment).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			return nil
		}
		fronted = &payment
		compensation := debtdomain.PaymentHistory{
			ID:          s.genID.Generate(),
			PeriodID:    &period.ID,
			PayerID:     payment.ReceiverID,
			ReceiverID:  payment.PayerID,
			Amount:      payment.Amount,
			Currency:    payment.Currency,
			PaymentDate: now,
			Method:      "REVERSAL",
			Notes:       "Settlement reversed",
			CreatedAt:   now,
		}
		return tx.WithContext(ctx).Create(&compensation).Error
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordReversal()
	}
	if fronted != nil {
		s.notifier.Notify(ctx, notificationdomain.Notification{
			Title:      "Period settlement reversed",
			Message:    fmt.Sprintf("The settlement of %d %s you fronted was reversed.", fronted.Amount, fronted.Currency),
			Type:       notificationdomain.NotificationTypeBilling,
			ReceiverID: fronted.PayerID,
		})
	}
	s.log.Info("settlement reversed", zap.String("period_id", id.String()))
	return nil
}

type ownerTotal struct {
	ownerID snowflake.ID
	amount  int64
}

func ownerTotals(rows []distributiondomain.Distribution) []ownerTotal {
	index := make(map[snowflake.ID]int)
	totals := make([]ownerTotal, 0)
	for _, row := range rows {
		i, ok := index[row.OwnerID]
		if !ok {
			i = len(totals)
			index[row.OwnerID] = i
			totals = append(totals, ownerTotal{ownerID: row.OwnerID})
		}
		totals[i].amount += row.Amount
	}
	return totals
}
