package projector_test

import (
	"context"
	"testing"
	"time"

	"github.com/budgee/family/infra/repository/memory"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/budgee/family/pkg/service/projector"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = schedule.Date(2024, time.June, 10)

func subscription(start time.Time, amount string) *source.Source {
	s := &source.Source{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      source.KindSubscription,
		Name:      "Netflix",
		Amount:    decimal.RequireFromString(amount),
		Currency:  "EUR",
		Cycle:     schedule.Monthly,
		StartDate: start,
		IsActive:  true,
		Category:  "Streaming",
	}
	s.Normalize()
	return s
}

func txRepo(t *testing.T) repository.TransactionRepository {
	t.Helper()
	txs, err := memory.NewUoW(memory.NewStore()).TransactionRepository()
	require.NoError(t, err)
	return txs
}

func TestHorizonEnd(t *testing.T) {
	assert.Equal(t, schedule.Date(2025, time.June, 30), projector.HorizonEnd(today, 12))
	assert.Equal(t, schedule.Date(2025, time.June, 30), projector.HorizonEnd(today, 0))
	assert.Equal(t, schedule.Date(2024, time.September, 30), projector.HorizonEnd(today, 3))
}

func TestProject_MonthlySubscription(t *testing.T) {
	ctx := context.Background()
	txs := txRepo(t)
	src := subscription(schedule.Date(2024, time.March, 15), "9.99")

	rows, err := projector.Project(ctx, txs, src, projector.Options{HorizonMonths: 12, IncludePast: true, Today: today})
	require.NoError(t, err)
	require.Len(t, rows, 16)

	for i, d := range []time.Time{
		schedule.Date(2024, time.March, 15), schedule.Date(2024, time.April, 15), schedule.Date(2024, time.May, 15),
	} {
		assert.Equal(t, d, rows[i].TransactionDate)
		assert.Equal(t, ledger.StatusCompleted, rows[i].Status)
	}
	pending := 0
	for _, r := range rows[3:] {
		assert.Equal(t, ledger.StatusPending, r.Status)
		assert.False(t, r.IsPositive)
		assert.Equal(t, "Streaming", r.CategorySnapshot)
		pending++
	}
	assert.Equal(t, 13, pending)
	assert.Equal(t, schedule.Date(2025, time.June, 15), rows[15].TransactionDate)
}

func TestProject_Idempotent(t *testing.T) {
	ctx := context.Background()
	txs := txRepo(t)
	src := subscription(schedule.Date(2024, time.March, 15), "9.99")
	opts := projector.Options{HorizonMonths: 12, IncludePast: true, Today: today}

	first, err := projector.Project(ctx, txs, src, opts)
	require.NoError(t, err)
	second, err := projector.Project(ctx, txs, src, opts)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	n, err := txs.CountActiveForSource(ctx, src.Kind, src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(16), n)
}

func TestProject_EndOfMonthRollover(t *testing.T) {
	ctx := context.Background()
	txs := txRepo(t)
	src := subscription(schedule.Date(2024, time.January, 31), "5")
	end := schedule.Date(2024, time.June, 30)
	src.EndDate = &end

	rows, err := projector.Project(ctx, txs, src, projector.Options{IncludePast: true, Today: today})
	require.NoError(t, err)

	var dates []time.Time
	for _, r := range rows {
		dates = append(dates, r.TransactionDate)
	}
	assert.Equal(t, []time.Time{
		schedule.Date(2024, time.January, 31),
		schedule.Date(2024, time.February, 29),
		schedule.Date(2024, time.March, 31),
		schedule.Date(2024, time.April, 30),
		schedule.Date(2024, time.May, 31),
		schedule.Date(2024, time.June, 30),
	}, dates)
}

func TestProject_FromNextDueDate(t *testing.T) {
	ctx := context.Background()
	txs := txRepo(t)
	src := subscription(schedule.Date(2024, time.March, 15), "9.99")
	src.NextDueDate = schedule.Date(2024, time.June, 15)

	rows, err := projector.Project(ctx, txs, src, projector.Options{HorizonMonths: 3, Today: today})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, schedule.Date(2024, time.June, 15), rows[0].TransactionDate)
	assert.Equal(t, schedule.Date(2024, time.September, 15), rows[3].TransactionDate)
}

func TestProject_InstallmentCap(t *testing.T) {
	ctx := context.Background()
	txs := txRepo(t)
	src := &source.Source{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      source.KindInstallment,
		Name:      "Oven",
		Currency:  "EUR",
		StartDate: schedule.Date(2024, time.May, 1),
		IsActive:  true,
		Installment: &source.Installment{
			TotalAmount:          decimal.NewFromInt(600),
			NumberOfInstallments: 3,
			InstallmentsPaid:     1,
		},
	}
	src.Normalize()
	src.NextDueDate = schedule.Date(2024, time.June, 1)

	rows, err := projector.Project(ctx, txs, src, projector.Options{HorizonMonths: 12, Today: today})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "200.00", rows[0].Amount.StringFixed(2))
	assert.Equal(t, ledger.StatusCompleted, rows[0].Status)
	assert.Equal(t, ledger.StatusPending, rows[1].Status)
	assert.Equal(t, "Paiement échelonné", rows[1].CategorySnapshot)
}

func TestProject_RejectsOneOffKinds(t *testing.T) {
	src := &source.Source{Kind: source.KindCheck}
	_, err := projector.Project(context.Background(), txRepo(t), src, projector.Options{Today: today})
	assert.Error(t, err)
}
