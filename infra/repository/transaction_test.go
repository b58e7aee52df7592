package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionColumns = []string{
	"id", "user_id", "transaction_date", "source_type", "source_id", "name", "description",
	"amount", "currency", "is_positive", "category_snapshot", "is_pointed", "status", "notes",
	"created_at", "updated_at",
}

func ledgerRow(rows *sqlmock.Rows, key ledger.Key, userID uuid.UUID, amount string, status ledger.Status) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(uuid.New().String(), userID.String(), key.Date, string(key.SourceType), key.SourceID.String(),
		"Netflix", "", amount, "EUR", false, "Streaming", false, string(status), "", now, now)
}

func netflixFields(userID uuid.UUID, amount string) ledger.Fields {
	return ledger.Fields{
		UserID:           userID,
		Name:             "Netflix",
		Amount:           decimal.RequireFromString(amount),
		Currency:         "EUR",
		CategorySnapshot: "Streaming",
		Status:           ledger.StatusPending,
	}
}

func TestTransactionRepository_UpsertInsertsMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	today := schedule.Date(2024, time.June, 10)
	key := ledger.Key{SourceType: source.KindSubscription, SourceID: uuid.New(), Date: schedule.Date(2024, time.June, 15)}
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows(transactionColumns))
	mock.ExpectExec(`INSERT INTO "transactions" (.+) ON CONFLICT (.+) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.Upsert(context.Background(), key, netflixFields(userID, "9.99"), today)
	require.NoError(t, err)
	assert.Equal(t, key, tx.Key())
	assert.Equal(t, ledger.StatusPending, tx.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_UpsertReconcilesAfterLostInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	today := schedule.Date(2024, time.June, 10)
	key := ledger.Key{SourceType: source.KindSubscription, SourceID: uuid.New(), Date: schedule.Date(2024, time.June, 15)}
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows(transactionColumns))
	mock.ExpectExec(`INSERT INTO "transactions" (.+) ON CONFLICT (.+) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)`).
		WillReturnRows(ledgerRow(sqlmock.NewRows(transactionColumns), key, userID, "9.99", ledger.StatusPending))
	mock.ExpectExec(`UPDATE "transactions" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.Upsert(context.Background(), key, netflixFields(userID, "12.99"), today)
	require.NoError(t, err)
	assert.Equal(t, "12.99", tx.Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_UpsertGivesUpAfterSecondLostInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	today := schedule.Date(2024, time.June, 10)
	key := ledger.Key{SourceType: source.KindSubscription, SourceID: uuid.New(), Date: today}

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)`).
			WillReturnRows(sqlmock.NewRows(transactionColumns))
		mock.ExpectExec(`INSERT INTO "transactions" (.+)`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	_, err := repo.Upsert(context.Background(), key, netflixFields(uuid.New(), "9.99"), today)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_UpsertLeavesPastRowAlone(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	today := schedule.Date(2024, time.June, 10)
	key := ledger.Key{SourceType: source.KindSubscription, SourceID: uuid.New(), Date: schedule.Date(2024, time.May, 15)}
	userID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)`).
		WillReturnRows(ledgerRow(sqlmock.NewRows(transactionColumns), key, userID, "9.99", ledger.StatusCompleted))

	f := netflixFields(userID, "12.99")
	f.Status = ledger.StatusCompleted
	tx, err := repo.Upsert(context.Background(), key, f, today)
	require.NoError(t, err)
	assert.Equal(t, "9.99", tx.Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CancelWhere(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	from := schedule.Date(2024, time.June, 10)

	mock.ExpectExec(`UPDATE "transactions" SET (.+) WHERE (.+)transaction_date >= (.+)status = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CancelWhere(context.Background(), repository.Scope{
		SourceType:  source.KindSubscription,
		SourceID:    uuid.New(),
		From:        &from,
		OnlyPending: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CompleteOverdue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectExec(`UPDATE "transactions" SET (.+) WHERE status = (.+) AND transaction_date < (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.CompleteOverdue(context.Background(), schedule.Date(2024, time.June, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_SetStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectExec(`UPDATE "transactions" SET (.+)`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), uuid.New(), ledger.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRepository_ListForWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	userID := uuid.New()
	first, last := schedule.MonthBounds(2024, time.June)
	key := ledger.Key{SourceType: source.KindSubscription, SourceID: uuid.New(), Date: schedule.Date(2024, time.June, 15)}

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE (.+)status IN \(\$4\)(.+)ORDER BY transaction_date DESC`).
		WillReturnRows(ledgerRow(sqlmock.NewRows(transactionColumns), key, userID, "9.99", ledger.StatusPending))

	txs, err := repo.ListForWindow(context.Background(), repository.WindowQuery{
		UserID: userID, First: first, Last: last, Filter: ledger.FilterPending,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, key.SourceID, txs[0].SourceID)
	assert.Equal(t, "9.99", txs[0].Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_CountPendingAfter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "transactions" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountPendingAfter(context.Background(), source.KindRevenue, uuid.New(), schedule.Date(2024, time.September, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
