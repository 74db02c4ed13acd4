package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	settlementdomain "github.com/fieldworks/wellbill/internal/settlement/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureNotifier struct {
	sent []notificationdomain.Notification
}

func (n *captureNotifier) Notify(_ context.Context, note notificationdomain.Notification) {
	n.sent = append(n.sent, note)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownerdomain.Owner{},
		&billingdomain.BillingPeriod{},
		&distributiondomain.Distribution{},
		&debtdomain.Debt{},
		&debtdomain.PaymentHistory{},
	))
	return db
}

func newSettlementService(t *testing.T, db *gorm.DB) (settlementdomain.Service, *snowflake.Node, *captureNotifier) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	notifier := &captureNotifier{}
	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Notifier:   notifier,
	})
	return svc, node, notifier
}

type settlementFixture struct {
	alice    snowflake.ID
	bob      snowflake.ID
	period   snowflake.ID
	bobDebt  snowflake.ID
	total    int64
	bobShare int64
}

// seedCalculatedPeriod stands in for a period that went through calculation:
// Alice issued a 1000 bill, her share is 600, Bob owes 400 with a PENDING
// distribution debt.
func seedCalculatedPeriod(t *testing.T, db *gorm.DB, node *snowflake.Node) settlementFixture {
	t.Helper()

	fx := settlementFixture{
		alice:    node.Generate(),
		bob:      node.Generate(),
		period:   node.Generate(),
		bobDebt:  node.Generate(),
		total:    1000,
		bobShare: 400,
	}
	now := time.Now().UTC()
	require.NoError(t, db.Create(&[]ownerdomain.Owner{
		{ID: fx.alice, Name: "Alice"},
		{ID: fx.bob, Name: "Bob"},
	}).Error)
	require.NoError(t, db.Create(&billingdomain.BillingPeriod{
		ID:          fx.period,
		WellID:      node.Generate(),
		IssuerID:    fx.alice,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: fx.total,
		Currency:    "TRY",
		Status:      billingdomain.BillingPeriodStatusPending,
	}).Error)

	periodID := fx.period
	require.NoError(t, db.Create(&debtdomain.Debt{
		ID:         fx.bobDebt,
		CreditorID: fx.alice,
		DebtorID:   fx.bob,
		PeriodID:   &periodID,
		Amount:     fx.bobShare,
		Currency:   "TRY",
		DueDate:    now.AddDate(0, 0, 30),
		Status:     debtdomain.DebtStatusPending,
		Reason:     debtdomain.DebtReasonBillDistribution,
	}).Error)

	bobDebtID := fx.bobDebt
	require.NoError(t, db.Create(&[]distributiondomain.Distribution{
		{
			ID:                  node.Generate(),
			WellBillingPeriodID: fx.period,
			OwnerID:             fx.alice,
			FieldID:             node.Generate(),
			BasisDuration:       60,
			SharePercentage:     60,
			Amount:              600,
			Currency:            "TRY",
		},
		{
			ID:                  node.Generate(),
			WellBillingPeriodID: fx.period,
			OwnerID:             fx.bob,
			FieldID:             node.Generate(),
			DebtID:              &bobDebtID,
			BasisDuration:       40,
			SharePercentage:     40,
			Amount:              400,
			Currency:            "TRY",
		},
	}).Error)
	return fx
}

func TestRecordPayment_SettlesPeriodAndCreatesReciprocalDebt(t *testing.T) {
	db := newTestDB(t)
	svc, node, notifier := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	err := svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.alice.String(),
		Method:   "BANK_TRANSFER",
	})
	require.NoError(t, err)

	var period billingdomain.BillingPeriod
	require.NoError(t, db.First(&period, "id = ?", fx.period).Error)
	assert.Equal(t, billingdomain.BillingPeriodStatusPaid, period.Status)
	require.NotNil(t, period.PaidAt)

	var bobDebt debtdomain.Debt
	require.NoError(t, db.First(&bobDebt, "id = ?", fx.bobDebt).Error)
	assert.Equal(t, debtdomain.DebtStatusPaid, bobDebt.Status)
	require.NotNil(t, bobDebt.PaymentDate)

	// One aggregate payment row for the period, no per-debt row.
	var payments []debtdomain.PaymentHistory
	require.NoError(t, db.Where("period_id = ?", fx.period).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Nil(t, payments[0].DebtID)
	assert.Equal(t, fx.alice, payments[0].PayerID)
	assert.Equal(t, fx.total, payments[0].Amount)
	assert.Equal(t, "BANK_TRANSFER", payments[0].Method)

	var reciprocal []debtdomain.Debt
	require.NoError(t, db.Where("period_id = ? AND reason = ?",
		fx.period, debtdomain.DebtReasonPeriodSettlement).Find(&reciprocal).Error)
	require.Len(t, reciprocal, 1)
	assert.Equal(t, fx.alice, reciprocal[0].CreditorID)
	assert.Equal(t, fx.bob, reciprocal[0].DebtorID)
	assert.Equal(t, fx.bobShare, reciprocal[0].Amount)
	assert.Equal(t, debtdomain.DebtStatusPending, reciprocal[0].Status)
	assert.Equal(t, "Share of well bill for 2025-06-01 - 2025-07-01 fronted by Alice",
		reciprocal[0].Description)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, fx.bob, notifier.sent[0].ReceiverID)
}

func TestRecordPayment_NonIssuerPayerIsOwedByEveryoneElse(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	err := svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.bob.String(),
	})
	require.NoError(t, err)

	// Bob fronted Alice's bill, so Alice now owes Bob her 600 share.
	var reciprocal []debtdomain.Debt
	require.NoError(t, db.Where("period_id = ? AND reason = ?",
		fx.period, debtdomain.DebtReasonPeriodSettlement).Find(&reciprocal).Error)
	require.Len(t, reciprocal, 1)
	assert.Equal(t, fx.bob, reciprocal[0].CreditorID)
	assert.Equal(t, fx.alice, reciprocal[0].DebtorID)
	assert.Equal(t, int64(600), reciprocal[0].Amount)
}

func TestRecordPayment_SecondAttemptConflicts(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	req := settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.alice.String(),
	}
	require.NoError(t, svc.RecordPayment(context.Background(), req))

	err := svc.RecordPayment(context.Background(), req)
	assert.ErrorIs(t, err, settlementdomain.ErrAlreadyPaid)
}

func TestRecordPayment_RejectsPartialAmount(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	err := svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.alice.String(),
		Amount:   fx.total - 1,
	})
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidPayment)
}

func TestRecordPayment_RequiresDistributions(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)

	periodID := node.Generate()
	require.NoError(t, db.Create(&billingdomain.BillingPeriod{
		ID:          periodID,
		WellID:      node.Generate(),
		IssuerID:    node.Generate(),
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount: 1000,
		Currency:    "TRY",
		Status:      billingdomain.BillingPeriodStatusPending,
	}).Error)

	err := svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: periodID.String(),
		PayerID:  node.Generate().String(),
	})
	assert.ErrorIs(t, err, settlementdomain.ErrInvalidPayment)
}

func TestReversePayment_ReopensPeriodKeepsDistributionDebts(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	require.NoError(t, svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.alice.String(),
	}))
	require.NoError(t, svc.ReversePayment(context.Background(), fx.period.String()))

	var period billingdomain.BillingPeriod
	require.NoError(t, db.First(&period, "id = ?", fx.period).Error)
	assert.Equal(t, billingdomain.BillingPeriodStatusPending, period.Status)
	assert.Nil(t, period.PaidAt)

	// The reciprocal debt is gone; the original distribution debt is not
	// reverted and stays settled.
	var count int64
	require.NoError(t, db.Model(&debtdomain.Debt{}).
		Where("period_id = ? AND reason = ?", fx.period, debtdomain.DebtReasonPeriodSettlement).
		Count(&count).Error)
	assert.Zero(t, count)

	var bobDebt debtdomain.Debt
	require.NoError(t, db.First(&bobDebt, "id = ?", fx.bobDebt).Error)
	assert.Equal(t, debtdomain.DebtStatusPaid, bobDebt.Status)
	require.NotNil(t, bobDebt.PaymentDate)

	// History is append-only: the original row stays, a compensating row
	// with payer and receiver swapped joins it.
	var payments []debtdomain.PaymentHistory
	require.NoError(t, db.Where("period_id = ?", fx.period).
		Order("created_at ASC, id ASC").Find(&payments).Error)
	require.Len(t, payments, 2)
	assert.Equal(t, fx.alice, payments[0].PayerID)
	assert.Equal(t, "REVERSAL", payments[1].Method)
	assert.Equal(t, payments[0].PayerID, payments[1].ReceiverID)
	assert.Equal(t, payments[0].ReceiverID, payments[1].PayerID)
	assert.Equal(t, payments[0].Amount, payments[1].Amount)
}

func TestReversePayment_KeepsDebtorPaidReciprocalDebt(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	require.NoError(t, svc.RecordPayment(context.Background(), settlementdomain.RecordPaymentRequest{
		PeriodID: fx.period.String(),
		PayerID:  fx.alice.String(),
	}))

	// Bob pays his reciprocal debt before the reversal comes in.
	var reciprocal debtdomain.Debt
	require.NoError(t, db.First(&reciprocal, "period_id = ? AND reason = ?",
		fx.period, debtdomain.DebtReasonPeriodSettlement).Error)
	now := time.Now().UTC()
	require.NoError(t, db.Model(&debtdomain.Debt{}).
		Where("id = ?", reciprocal.ID).
		Updates(map[string]any{"status": debtdomain.DebtStatusPaid, "payment_date": now}).Error)
	reciprocalID := reciprocal.ID
	require.NoError(t, db.Create(&debtdomain.PaymentHistory{
		ID:          node.Generate(),
		DebtID:      &reciprocalID,
		PayerID:     fx.bob,
		ReceiverID:  fx.alice,
		Amount:      reciprocal.Amount,
		Currency:    "TRY",
		PaymentDate: now,
		Method:      "CASH",
	}).Error)

	require.NoError(t, svc.ReversePayment(context.Background(), fx.period.String()))

	// That money really moved; the paid reciprocal debt survives reversal.
	var kept debtdomain.Debt
	require.NoError(t, db.First(&kept, "id = ?", reciprocal.ID).Error)
	assert.Equal(t, debtdomain.DebtStatusPaid, kept.Status)
}

func TestReversePayment_RequiresPaidPeriod(t *testing.T) {
	db := newTestDB(t)
	svc, node, _ := newSettlementService(t, db)
	fx := seedCalculatedPeriod(t, db, node)

	err := svc.ReversePayment(context.Background(), fx.period.String())
	assert.ErrorIs(t, err, settlementdomain.ErrNotPaid)
}
