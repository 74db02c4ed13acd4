package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/allocation"
	"github.com/fieldworks/wellbill/internal/config"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	pkgdb "github.com/fieldworks/wellbill/pkg/db"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&distributiondomain.Distribution{},
		&debtdomain.Debt{},
		&debtdomain.PaymentHistory{},
	))
	return db
}

func newLedger(t *testing.T, db *gorm.DB) (distributiondomain.Ledger, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ledger := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
	return ledger, node
}

func writeInput(node *snowflake.Node, issuer snowflake.ID, shares []allocation.Share) distributiondomain.WriteInput {
	var total int64
	for _, share := range shares {
		total += share.Amount
	}
	return distributiondomain.WriteInput{
		PeriodID:    node.Generate(),
		IssuerID:    issuer,
		TotalAmount: total,
		Currency:    "TRY",
		PeriodStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Shares:      shares,
	}
}

func TestWrite_CreatesRowsAndDebtsPerNonIssuerOwner(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: issuer, FieldID: node.Generate(), BasisMinutes: 60, SharePercentage: 60, Amount: 600},
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 25, SharePercentage: 25, Amount: 250},
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 15, SharePercentage: 15, Amount: 150},
	})

	rows, err := ledger.Write(context.Background(), db, input)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// One debt covering the non-issuer owner's aggregate share.
	var debts []debtdomain.Debt
	require.NoError(t, db.Find(&debts).Error)
	require.Len(t, debts, 1)
	assert.Equal(t, issuer, debts[0].CreditorID)
	assert.Equal(t, other, debts[0].DebtorID)
	assert.Equal(t, int64(400), debts[0].Amount)
	assert.Equal(t, debtdomain.DebtReasonBillDistribution, debts[0].Reason)

	for _, row := range rows {
		if row.OwnerID == issuer {
			assert.Nil(t, row.DebtID)
			continue
		}
		require.NotNil(t, row.DebtID)
		assert.Equal(t, debts[0].ID, *row.DebtID)
	}
}

func TestWrite_FailsClosedOnSumMismatch(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 990},
	})
	// Drift beyond the configured tolerance.
	input.TotalAmount = 1000

	_, err := ledger.Write(context.Background(), db, input)
	assert.ErrorIs(t, err, distributiondomain.ErrSumMismatch)

	var count int64
	require.NoError(t, db.Model(&distributiondomain.Distribution{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWrite_ToleratesOneUnitOfRoundingDrift(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 999},
	})
	input.TotalAmount = 1000

	_, err := ledger.Write(context.Background(), db, input)
	assert.NoError(t, err)
}

func TestWrite_SecondWriteForSamePeriodTripsUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 1000},
	})
	_, err := ledger.Write(context.Background(), db, input)
	require.NoError(t, err)

	// A racing writer that slipped past the pre-write count lands here.
	_, err = ledger.Write(context.Background(), db, input)
	require.Error(t, err)
	assert.True(t, pkgdb.IsDuplicateKeyErr(err))

	var count int64
	require.NoError(t, db.Model(&distributiondomain.Distribution{}).
		Where("well_billing_period_id = ?", input.PeriodID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWrite_RejectsEmptyShares(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)

	input := writeInput(node, node.Generate(), nil)
	input.TotalAmount = 1000

	_, err := ledger.Write(context.Background(), db, input)
	assert.ErrorIs(t, err, distributiondomain.ErrNothingToWrite)
}

func TestClear_DeletesRowsAndPendingDebts(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 1000},
	})
	_, err := ledger.Write(context.Background(), db, input)
	require.NoError(t, err)

	require.NoError(t, ledger.Clear(context.Background(), db, input.PeriodID))

	var count int64
	require.NoError(t, db.Model(&distributiondomain.Distribution{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&debtdomain.Debt{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClear_RefusesWhenLinkedDebtLeftPending(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 1000},
	})
	_, err := ledger.Write(context.Background(), db, input)
	require.NoError(t, err)

	require.NoError(t, db.Model(&debtdomain.Debt{}).
		Where("debtor_id = ?", other).
		Update("status", debtdomain.DebtStatusPaid).Error)

	err = ledger.Clear(context.Background(), db, input.PeriodID)
	assert.ErrorIs(t, err, distributiondomain.ErrLinkedDebtTouched)

	var count int64
	require.NoError(t, db.Model(&distributiondomain.Distribution{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestClear_RefusesWhenLinkedDebtHasHistory(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)
	issuer := node.Generate()
	other := node.Generate()

	input := writeInput(node, issuer, []allocation.Share{
		{OwnerID: other, FieldID: node.Generate(), BasisMinutes: 100, SharePercentage: 100, Amount: 1000},
	})
	_, err := ledger.Write(context.Background(), db, input)
	require.NoError(t, err)

	var debt debtdomain.Debt
	require.NoError(t, db.First(&debt).Error)
	debtID := debt.ID
	require.NoError(t, db.Create(&debtdomain.PaymentHistory{
		ID:          node.Generate(),
		DebtID:      &debtID,
		PayerID:     other,
		ReceiverID:  issuer,
		Amount:      250,
		Currency:    "TRY",
		PaymentDate: time.Now().UTC(),
		Method:      "CASH",
	}).Error)

	err = ledger.Clear(context.Background(), db, input.PeriodID)
	assert.ErrorIs(t, err, distributiondomain.ErrLinkedDebtTouched)
}

func TestClear_NoRowsIsANoOp(t *testing.T) {
	db := newTestDB(t)
	ledger, node := newLedger(t, db)

	assert.NoError(t, ledger.Clear(context.Background(), db, node.Generate()))
}
