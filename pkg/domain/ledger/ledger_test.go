package ledger_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = schedule.Date(2024, time.June, 10)

func row(date time.Time, amount string, positive bool, status ledger.Status) *ledger.Transaction {
	return &ledger.Transaction{
		ID:              uuid.New(),
		TransactionDate: date,
		SourceType:      source.KindSubscription,
		SourceID:        uuid.New(),
		Amount:          decimal.RequireFromString(amount),
		IsPositive:      positive,
		Status:          status,
	}
}

func TestReconcile_FutureRowTracksSource(t *testing.T) {
	existing := row(schedule.Date(2024, time.June, 15), "9.99", false, ledger.StatusCancelled)
	existing.Name = "Netflix"

	changed := ledger.Reconcile(existing, ledger.Fields{
		Name:             "Netflix Premium",
		Amount:           decimal.RequireFromString("12.99"),
		Currency:         "EUR",
		CategorySnapshot: "Streaming",
		Status:           ledger.StatusPending,
	}, today)

	assert.True(t, changed)
	assert.Equal(t, "Netflix Premium", existing.Name)
	assert.Equal(t, "12.99", existing.Amount.StringFixed(2))
	assert.Equal(t, ledger.StatusPending, existing.Status)
}

func TestReconcile_TodayCountsAsFuture(t *testing.T) {
	existing := row(today, "9.99", false, ledger.StatusPending)
	changed := ledger.Reconcile(existing, ledger.Fields{
		Amount: decimal.RequireFromString("12.99"),
		Status: ledger.StatusCompleted,
	}, today)
	assert.True(t, changed)
	assert.Equal(t, "12.99", existing.Amount.StringFixed(2))
	assert.Equal(t, ledger.StatusCompleted, existing.Status)
}

func TestReconcile_PastRowKeepsHistory(t *testing.T) {
	existing := row(schedule.Date(2024, time.May, 15), "9.99", false, ledger.StatusCompleted)
	existing.Name = "Netflix"
	existing.CategorySnapshot = "Streaming"

	changed := ledger.Reconcile(existing, ledger.Fields{
		Name:             "Renamed",
		Amount:           decimal.RequireFromString("12.99"),
		CategorySnapshot: "Other",
		Status:           ledger.StatusCompleted,
	}, today)
	assert.False(t, changed)
	assert.Equal(t, "Netflix", existing.Name)
	assert.Equal(t, "9.99", existing.Amount.StringFixed(2))
	assert.Equal(t, "Streaming", existing.CategorySnapshot)

	existing.Status = ledger.StatusCancelled
	changed = ledger.Reconcile(existing, ledger.Fields{Amount: decimal.NewFromInt(1), Status: ledger.StatusCompleted}, today)
	assert.True(t, changed)
	assert.Equal(t, ledger.StatusCompleted, existing.Status)
	assert.Equal(t, "9.99", existing.Amount.StringFixed(2))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, ledger.StatusCompleted, ledger.StatusFor(schedule.Date(2024, time.June, 9), today))
	assert.Equal(t, ledger.StatusPending, ledger.StatusFor(today, today))
	assert.Equal(t, ledger.StatusPending, ledger.StatusFor(schedule.Date(2024, time.June, 11), today))
}

func TestCheckStatusChange(t *testing.T) {
	past := row(schedule.Date(2024, time.June, 1), "1", false, ledger.StatusCompleted)
	future := row(schedule.Date(2024, time.June, 20), "1", false, ledger.StatusPending)
	current := row(today, "1", false, ledger.StatusPending)

	assert.NoError(t, ledger.CheckStatusChange(past, ledger.StatusCompleted, today))
	assert.True(t, errors.Is(ledger.CheckStatusChange(past, ledger.StatusPending, today), domain.ErrInvalidStatusTransition))
	assert.NoError(t, ledger.CheckStatusChange(future, ledger.StatusPending, today))
	assert.True(t, errors.Is(ledger.CheckStatusChange(future, ledger.StatusCompleted, today), domain.ErrValidation))
	assert.NoError(t, ledger.CheckStatusChange(current, ledger.StatusCompleted, today))
	assert.NoError(t, ledger.CheckStatusChange(current, ledger.StatusPending, today))
}

func TestNewWindow_RunningBalance(t *testing.T) {
	first, last := schedule.MonthBounds(2024, time.June)
	salary := row(schedule.Date(2024, time.June, 1), "2000", true, ledger.StatusCompleted)
	netflix := row(schedule.Date(2024, time.June, 15), "9.99", false, ledger.StatusPending)
	check := row(schedule.Date(2024, time.June, 20), "50", false, ledger.StatusPending)
	cancelled := row(schedule.Date(2024, time.June, 18), "400", false, ledger.StatusCancelled)

	w := ledger.NewWindow(first, last, ledger.FilterAll, []*ledger.Transaction{netflix, cancelled, check, salary})

	require.Len(t, w.Rows, 3)
	assert.Equal(t, check.ID, w.Rows[0].ID)
	assert.Equal(t, "1940.01", w.Rows[0].Balance.StringFixed(2))
	assert.Equal(t, netflix.ID, w.Rows[1].ID)
	assert.Equal(t, "1990.01", w.Rows[1].Balance.StringFixed(2))
	assert.Equal(t, salary.ID, w.Rows[2].ID)
	assert.Equal(t, "2000.00", w.Rows[2].Balance.StringFixed(2))

	assert.Equal(t, "2000.00", w.TotalIn.StringFixed(2))
	assert.Equal(t, "59.99", w.TotalOut.StringFixed(2))
	assert.Equal(t, "1940.01", w.Net.StringFixed(2))
}

func TestNewWindow_OrderIndependent(t *testing.T) {
	first, last := schedule.MonthBounds(2024, time.June)
	var txs []*ledger.Transaction
	sum := decimal.Zero
	for d := 1; d <= 30; d++ {
		positive := d%4 == 0
		tx := row(schedule.Date(2024, time.June, d), decimal.NewFromInt(int64(d*3)).String()+".25", positive, ledger.StatusCompleted)
		txs = append(txs, tx)
		sum = sum.Add(tx.SignedAmount())
	}
	want := ledger.NewWindow(first, last, ledger.FilterAll, txs)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]*ledger.Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := ledger.NewWindow(first, last, ledger.FilterAll, shuffled)
		require.Len(t, got.Rows, len(want.Rows))
		for j := range want.Rows {
			assert.Equal(t, want.Rows[j].ID, got.Rows[j].ID)
			assert.True(t, want.Rows[j].Balance.Equal(got.Rows[j].Balance))
		}
		assert.True(t, sum.Equal(got.Rows[0].Balance))
		assert.True(t, sum.Equal(got.Net))
	}
}

func TestParsers(t *testing.T) {
	f, err := ledger.ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, ledger.FilterAll, f)
	assert.Equal(t, []ledger.Status{ledger.StatusPending}, ledger.FilterPending.Statuses())

	_, err = ledger.ParseStatusFilter("cancelled")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	m, err := ledger.ParseCancelMode("")
	require.NoError(t, err)
	assert.Equal(t, ledger.CancelSingle, m)
	_, err = ledger.ParseCancelMode("some")
	assert.True(t, errors.Is(err, domain.ErrInvalidCancelMode))

	s, err := ledger.ParseStatus("Completed")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, s)
}

func TestCancelModeRange(t *testing.T) {
	target := schedule.Date(2024, time.June, 15)
	from, to := ledger.CancelPast.Range(target)
	assert.Nil(t, from)
	assert.Equal(t, target, *to)
	from, to = ledger.CancelAll.Range(target)
	assert.Nil(t, from)
	assert.Nil(t, to)
}
