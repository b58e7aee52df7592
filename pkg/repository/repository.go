package repository

import (
	"context"
	"time"

	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
)

// SourceRepository stores the four recurring source variants. Implementations may keep
// one table per variant; callers only see the tagged source.Source.
type SourceRepository interface {
	Create(ctx context.Context, s *source.Source) error
	Update(ctx context.Context, s *source.Source) error
	// Get returns domain.ErrNotFound when no source of that kind has the id.
	Get(ctx context.Context, kind source.Kind, id uuid.UUID) (*source.Source, error)
	Delete(ctx context.Context, kind source.Kind, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, kind source.Kind) ([]*source.Source, error)
	// ListDue returns active sources whose next due date is on or before today.
	ListDue(ctx context.Context, today time.Time) ([]*source.Source, error)
	ListActive(ctx context.Context) ([]*source.Source, error)
}

// Scope selects the rows of one source for bulk status changes. Nil bounds are open;
// both bounds are inclusive.
type Scope struct {
	SourceType  source.Kind
	SourceID    uuid.UUID
	From        *time.Time
	To          *time.Time
	OnlyPending bool
}

// WindowQuery selects the non-cancelled rows of a user over a date range.
type WindowQuery struct {
	UserID uuid.UUID
	First  time.Time
	Last   time.Time
	Filter ledger.StatusFilter
}

// TransactionRepository is the ledger store.
type TransactionRepository interface {
	// Get returns domain.ErrNotFound when the row does not exist.
	Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	// Find returns nil, nil when no row has the key.
	Find(ctx context.Context, key ledger.Key) (*ledger.Transaction, error)
	// Upsert inserts the row for key, or reconciles the existing one with ledger.Reconcile.
	// A competing insert on the same key is retried once before domain.ErrConflict.
	Upsert(ctx context.Context, key ledger.Key, fields ledger.Fields, today time.Time) (*ledger.Transaction, error)
	Create(ctx context.Context, tx *ledger.Transaction) error
	Cancel(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status ledger.Status) error
	SetPointed(ctx context.Context, id uuid.UUID, pointed bool) error
	// CancelWhere marks the rows in scope as cancelled and returns how many changed.
	CancelWhere(ctx context.Context, scope Scope) (int64, error)
	ListForSource(ctx context.Context, kind source.Kind, id uuid.UUID) ([]*ledger.Transaction, error)
	// ListForWindow returns rows ordered by transaction date, newest first.
	ListForWindow(ctx context.Context, q WindowQuery) ([]*ledger.Transaction, error)
	SetPointedForWindow(ctx context.Context, q WindowQuery, pointed bool) (int64, error)
	DeleteAllForSource(ctx context.Context, kind source.Kind, id uuid.UUID) (int64, error)
	// CompleteOverdue marks every pending row dated strictly before the given day completed.
	CompleteOverdue(ctx context.Context, before time.Time) (int64, error)
	// CountPendingAfter counts pending rows of a source dated strictly after the given day.
	CountPendingAfter(ctx context.Context, kind source.Kind, id uuid.UUID, after time.Time) (int64, error)
	// CountActiveForSource counts the non-cancelled rows of a source.
	CountActiveForSource(ctx context.Context, kind source.Kind, id uuid.UUID) (int64, error)
	// ListUpcoming returns pending rows dated on or after from, soonest first.
	// An empty kind matches every source type.
	ListUpcoming(ctx context.Context, userID uuid.UUID, kind source.Kind, from time.Time, limit int) ([]*ledger.Transaction, error)
}

// CheckRepository stores checks.
type CheckRepository interface {
	Create(ctx context.Context, c *source.Check) error
	Update(ctx context.Context, c *source.Check) error
	Get(ctx context.Context, id uuid.UUID) (*source.Check, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*source.Check, error)
}

// CardPurchaseRepository stores card purchases.
type CardPurchaseRepository interface {
	Create(ctx context.Context, p *source.CardPurchase) error
	Get(ctx context.Context, id uuid.UUID) (*source.CardPurchase, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*source.CardPurchase, error)
}
