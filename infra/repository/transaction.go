package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ledgerKey targets the partial unique index on the ledger key.
var ledgerKey = clause.OnConflict{
	Columns: []clause.Column{{Name: "source_type"}, {Name: "source_id"}, {Name: "transaction_date"}},
	TargetWhere: clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "status <> 'cancelled'"},
	}},
	DoNothing: true,
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository returns the ledger store backed by the transactions table.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var m Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

// Find prefers a live row over a cancelled one for the same key.
func (r *transactionRepository) Find(ctx context.Context, key ledger.Key) (*ledger.Transaction, error) {
	var rows []Transaction
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ? AND transaction_date = ?", string(key.SourceType), key.SourceID, key.Date).
		Order("status = 'cancelled', created_at").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (r *transactionRepository) Upsert(ctx context.Context, key ledger.Key, f ledger.Fields, today time.Time) (*ledger.Transaction, error) {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.Find(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if ledger.Reconcile(existing, f, today) {
				if err := r.save(ctx, existing); err != nil {
					return nil, err
				}
			}
			return existing, nil
		}

		t := ledger.New(key, f)
		m := transactionModel(t)
		res := r.db.WithContext(ctx).Clauses(ledgerKey).Create(m)
		if res.Error != nil {
			return nil, MapGormErrorToDomain(res.Error)
		}
		if res.RowsAffected == 1 {
			t.CreatedAt, t.UpdatedAt = m.CreatedAt, m.UpdatedAt
			return t, nil
		}
		// A concurrent writer inserted the key first; reconcile against its row.
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrConflict, key)
}

func (r *transactionRepository) save(ctx context.Context, t *ledger.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", t.ID).Updates(map[string]any{
		"name":              t.Name,
		"description":       t.Description,
		"amount":            t.Amount,
		"currency":          t.Currency,
		"is_positive":       t.IsPositive,
		"category_snapshot": t.CategorySnapshot,
		"status":            string(t.Status),
		"updated_at":        t.UpdatedAt,
	})
	return notFoundUnless(res, "update transaction")
}

func (r *transactionRepository) Create(ctx context.Context, t *ledger.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m := transactionModel(t)
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	}); err != nil {
		return err
	}
	t.CreatedAt, t.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *transactionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.SetStatus(ctx, id, ledger.StatusCancelled)
}

func (r *transactionRepository) SetStatus(ctx context.Context, id uuid.UUID, status ledger.Status) error {
	res := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id).Updates(map[string]any{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
	return notFoundUnless(res, "set transaction status")
}

func (r *transactionRepository) SetPointed(ctx context.Context, id uuid.UUID, pointed bool) error {
	res := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", id).Updates(map[string]any{
		"is_pointed": pointed,
		"updated_at": time.Now().UTC(),
	})
	return notFoundUnless(res, "point transaction")
}

func (r *transactionRepository) CancelWhere(ctx context.Context, scope repository.Scope) (int64, error) {
	q := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("source_type = ? AND source_id = ? AND status <> ?",
			string(scope.SourceType), scope.SourceID, string(ledger.StatusCancelled))
	if scope.From != nil {
		q = q.Where("transaction_date >= ?", *scope.From)
	}
	if scope.To != nil {
		q = q.Where("transaction_date <= ?", *scope.To)
	}
	if scope.OnlyPending {
		q = q.Where("status = ?", string(ledger.StatusPending))
	}
	res := q.Updates(map[string]any{
		"status":     string(ledger.StatusCancelled),
		"updated_at": time.Now().UTC(),
	})
	return res.RowsAffected, MapGormErrorToDomain(res.Error)
}

func (r *transactionRepository) ListForSource(ctx context.Context, kind source.Kind, id uuid.UUID) ([]*ledger.Transaction, error) {
	return r.list(r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", string(kind), id).
		Order("transaction_date, created_at"))
}

func (r *transactionRepository) ListForWindow(ctx context.Context, q repository.WindowQuery) ([]*ledger.Transaction, error) {
	return r.list(r.window(ctx, q).Order("transaction_date DESC, created_at DESC, id DESC"))
}

func (r *transactionRepository) SetPointedForWindow(ctx context.Context, q repository.WindowQuery, pointed bool) (int64, error) {
	res := r.window(ctx, q).
		Where("is_pointed <> ?", pointed).
		Updates(map[string]any{"is_pointed": pointed, "updated_at": time.Now().UTC()})
	return res.RowsAffected, MapGormErrorToDomain(res.Error)
}

func (r *transactionRepository) window(ctx context.Context, q repository.WindowQuery) *gorm.DB {
	statuses := make([]string, 0, 2)
	for _, s := range q.Filter.Statuses() {
		statuses = append(statuses, string(s))
	}
	return r.db.WithContext(ctx).Model(&Transaction{}).
		Where("user_id = ? AND transaction_date BETWEEN ? AND ? AND status IN ?", q.UserID, q.First, q.Last, statuses)
}

func (r *transactionRepository) DeleteAllForSource(ctx context.Context, kind source.Kind, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", string(kind), id).
		Delete(&Transaction{})
	return res.RowsAffected, MapGormErrorToDomain(res.Error)
}

func (r *transactionRepository) CompleteOverdue(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("status = ? AND transaction_date < ?", string(ledger.StatusPending), before).
		Updates(map[string]any{"status": string(ledger.StatusCompleted), "updated_at": time.Now().UTC()})
	return res.RowsAffected, MapGormErrorToDomain(res.Error)
}

func (r *transactionRepository) CountPendingAfter(ctx context.Context, kind source.Kind, id uuid.UUID, after time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("source_type = ? AND source_id = ? AND status = ? AND transaction_date > ?",
			string(kind), id, string(ledger.StatusPending), after).
		Count(&n).Error
	return n, MapGormErrorToDomain(err)
}

func (r *transactionRepository) CountActiveForSource(ctx context.Context, kind source.Kind, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Transaction{}).
		Where("source_type = ? AND source_id = ? AND status <> ?",
			string(kind), id, string(ledger.StatusCancelled)).
		Count(&n).Error
	return n, MapGormErrorToDomain(err)
}

func (r *transactionRepository) ListUpcoming(ctx context.Context, userID uuid.UUID, kind source.Kind, from time.Time, limit int) ([]*ledger.Transaction, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND transaction_date >= ?", userID, string(ledger.StatusPending), from)
	if kind != "" {
		q = q.Where("source_type = ?", string(kind))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(q.Order("transaction_date, created_at"))
}

func (r *transactionRepository) list(q *gorm.DB) ([]*ledger.Transaction, error) {
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*ledger.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
