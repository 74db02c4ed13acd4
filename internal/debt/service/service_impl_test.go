package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	notificationdomain "github.com/fieldworks/wellbill/internal/notification/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notificationdomain.Notification) {}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ownerdomain.Owner{},
		&debtdomain.Debt{},
		&debtdomain.PaymentHistory{},
	))
	return db
}

func newDebtService(t *testing.T, db *gorm.DB) (debtdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Notifier:   nopNotifier{},
	})
	return svc, node
}

func seedOwners(t *testing.T, db *gorm.DB, node *snowflake.Node) (snowflake.ID, snowflake.ID) {
	t.Helper()

	creditor := node.Generate()
	debtor := node.Generate()
	require.NoError(t, db.Create(&ownerdomain.Owner{ID: creditor, Name: "Alice"}).Error)
	require.NoError(t, db.Create(&ownerdomain.Owner{ID: debtor, Name: "Bob"}).Error)
	return creditor, debtor
}

func createDebt(t *testing.T, svc debtdomain.Service, creditor, debtor snowflake.ID, amount int64) *debtdomain.Debt {
	t.Helper()

	debt, err := svc.Create(context.Background(), debtdomain.CreateRequest{
		CreditorID: creditor.String(),
		DebtorID:   debtor.String(),
		Amount:     amount,
	})
	require.NoError(t, err)
	return debt
}

func TestCreate_DefaultsDueDateAndCurrency(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)

	debt := createDebt(t, svc, creditor, debtor, 500)

	cfg := config.DefaultBillingConfig()
	assert.Equal(t, cfg.Currency, debt.Currency)
	assert.Equal(t, debtdomain.DebtStatusPending, debt.Status)
	assert.Equal(t, debtdomain.DebtReasonManual, debt.Reason)
	expectedDue := time.Now().UTC().AddDate(0, 0, cfg.DebtDueDays)
	assert.WithinDuration(t, expectedDue, debt.DueDate, time.Minute)
}

func TestCreate_RejectsSelfDebtAndUnknownOwner(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)

	_, err := svc.Create(context.Background(), debtdomain.CreateRequest{
		CreditorID: creditor.String(),
		DebtorID:   creditor.String(),
		Amount:     100,
	})
	assert.ErrorIs(t, err, debtdomain.ErrInvalidDebt)

	_, err = svc.Create(context.Background(), debtdomain.CreateRequest{
		CreditorID: creditor.String(),
		DebtorID:   node.Generate().String(),
		Amount:     100,
	})
	assert.ErrorIs(t, err, debtdomain.ErrInvalidDebt)

	_, err = svc.Create(context.Background(), debtdomain.CreateRequest{
		CreditorID: creditor.String(),
		DebtorID:   debtor.String(),
		Amount:     0,
	})
	assert.ErrorIs(t, err, debtdomain.ErrInvalidDebt)
}

func TestPay_FullPaymentClosesDebt(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	debt := createDebt(t, svc, creditor, debtor, 500)

	result, err := svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: debt.ID.String(),
		Method: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, debtdomain.DebtStatusPaid, result.Debt.Status)
	assert.Nil(t, result.Remainder)
	require.NotNil(t, result.Payment)
	assert.Equal(t, int64(500), result.Payment.Amount)
	assert.Equal(t, debtor, result.Payment.PayerID)
	assert.Equal(t, creditor, result.Payment.ReceiverID)
}

func TestPay_PartialPaymentSplitsDebt(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	debt := createDebt(t, svc, creditor, debtor, 100)

	result, err := svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: debt.ID.String(),
		Amount: 30,
	})
	require.NoError(t, err)

	// The original row now carries only what was paid.
	var paid debtdomain.Debt
	require.NoError(t, db.First(&paid, "id = ?", debt.ID).Error)
	assert.Equal(t, int64(30), paid.Amount)
	assert.Equal(t, debtdomain.DebtStatusPaid, paid.Status)

	require.NotNil(t, result.Remainder)
	var remainder debtdomain.Debt
	require.NoError(t, db.First(&remainder, "id = ?", result.Remainder.ID).Error)
	assert.Equal(t, int64(70), remainder.Amount)
	assert.Equal(t, debtdomain.DebtStatusPending, remainder.Status)
	assert.Equal(t, creditor, remainder.CreditorID)
	assert.Equal(t, debtor, remainder.DebtorID)
	assert.Equal(t, debt.DueDate.Unix(), remainder.DueDate.Unix())
}

func TestPay_RejectsOverpaymentAndTerminalStates(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	debt := createDebt(t, svc, creditor, debtor, 100)

	_, err := svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: debt.ID.String(),
		Amount: 101,
	})
	assert.ErrorIs(t, err, debtdomain.ErrExceedsRemaining)

	_, err = svc.Pay(context.Background(), debtdomain.PayRequest{DebtID: debt.ID.String()})
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), debtdomain.PayRequest{DebtID: debt.ID.String()})
	assert.ErrorIs(t, err, debtdomain.ErrDebtAlreadyPaid)

	cancelled := createDebt(t, svc, creditor, debtor, 100)
	_, err = svc.Cancel(context.Background(), cancelled.ID.String())
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), debtdomain.PayRequest{DebtID: cancelled.ID.String()})
	assert.ErrorIs(t, err, debtdomain.ErrDebtCancelled)
}

func TestGet_ReturnsPaymentsInOrder(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	debt := createDebt(t, svc, creditor, debtor, 100)

	first, err := svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: debt.ID.String(),
		Amount: 40,
	})
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: first.Remainder.ID.String(),
	})
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), debt.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Payments, 1)
	assert.Equal(t, int64(40), detail.Payments[0].Amount)
}

func TestDelete_OnlyPendingWithoutHistory(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)

	deletable := createDebt(t, svc, creditor, debtor, 100)
	require.NoError(t, svc.Delete(context.Background(), deletable.ID.String()))
	_, err := svc.Get(context.Background(), deletable.ID.String())
	assert.ErrorIs(t, err, debtdomain.ErrDebtNotFound)

	paid := createDebt(t, svc, creditor, debtor, 100)
	_, err = svc.Pay(context.Background(), debtdomain.PayRequest{DebtID: paid.ID.String()})
	require.NoError(t, err)
	err = svc.Delete(context.Background(), paid.ID.String())
	assert.ErrorIs(t, err, debtdomain.ErrDebtNotPending)
}

func TestCancel_PreservesPaymentHistory(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	debt := createDebt(t, svc, creditor, debtor, 100)

	result, err := svc.Pay(context.Background(), debtdomain.PayRequest{
		DebtID: debt.ID.String(),
		Amount: 25,
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), result.Remainder.ID.String())
	require.NoError(t, err)
	assert.Equal(t, debtdomain.DebtStatusCancelled, cancelled.Status)

	var count int64
	require.NoError(t, db.Model(&debtdomain.PaymentHistory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkOverdue_SweepsPastDuePendingDebts(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)

	now := time.Now().UTC()
	overdue, err := svc.Create(context.Background(), debtdomain.CreateRequest{
		CreditorID: creditor.String(),
		DebtorID:   debtor.String(),
		Amount:     100,
		DueDate:    now.AddDate(0, 0, -5),
	})
	require.NoError(t, err)
	current := createDebt(t, svc, creditor, debtor, 100)

	marked, err := svc.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	var swept debtdomain.Debt
	require.NoError(t, db.First(&swept, "id = ?", overdue.ID).Error)
	assert.Equal(t, debtdomain.DebtStatusOverdue, swept.Status)

	var untouched debtdomain.Debt
	require.NoError(t, db.First(&untouched, "id = ?", current.ID).Error)
	assert.Equal(t, debtdomain.DebtStatusPending, untouched.Status)

	// The sweep is idempotent.
	marked, err = svc.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestList_FiltersByDebtorAndStatus(t *testing.T) {
	db := newTestDB(t)
	svc, node := newDebtService(t, db)
	creditor, debtor := seedOwners(t, db, node)
	other := node.Generate()
	require.NoError(t, db.Create(&ownerdomain.Owner{ID: other, Name: "Carol"}).Error)

	createDebt(t, svc, creditor, debtor, 100)
	paid := createDebt(t, svc, creditor, debtor, 200)
	createDebt(t, svc, creditor, other, 300)
	_, err := svc.Pay(context.Background(), debtdomain.PayRequest{DebtID: paid.ID.String()})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), debtdomain.ListRequest{
		DebtorID: debtor.String(),
		Status:   string(debtdomain.DebtStatusPending),
	})
	require.NoError(t, err)
	require.Len(t, resp.Debts, 1)
	assert.Equal(t, int64(100), resp.Debts[0].Amount)
}
