// Package ledger defines the Transaction ledger row and the rules every store
// implementation shares: the upsert reconciliation contract that keeps past
// history immutable, and the running balance of a window.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a ledger row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts user input to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, s)
}

// StatusFilter narrows window queries. The zero value selects every non-cancelled row.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// ParseStatusFilter converts user input to a StatusFilter; empty input means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("%w: filter %q", domain.ErrInvalidStatus, s)
}

// Statuses returns the statuses selected by f. Cancelled rows are never selected.
func (f StatusFilter) Statuses() []Status {
	switch f {
	case FilterPending:
		return []Status{StatusPending}
	case FilterCompleted:
		return []Status{StatusCompleted}
	}
	return []Status{StatusPending, StatusCompleted}
}

// Key identifies the single ledger row of a source occurrence.
type Key struct {
	SourceType source.Kind
	SourceID   uuid.UUID
	Date       time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.SourceType, k.SourceID, k.Date.Format(time.DateOnly))
}

// Transaction is a dated, signed, status-tracked ledger row.
type Transaction struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	TransactionDate  time.Time
	SourceType       source.Kind
	SourceID         uuid.UUID
	Name             string
	Description      string
	Amount           decimal.Decimal
	Currency         string
	IsPositive       bool
	CategorySnapshot string
	IsPointed        bool
	Status           Status
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Key returns the ledger key of the row.
func (t *Transaction) Key() Key {
	return Key{SourceType: t.SourceType, SourceID: t.SourceID, Date: t.TransactionDate}
}

// SignedAmount returns the amount with the row's sign applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.IsPositive {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Fields is the snapshot written by an upsert.
type Fields struct {
	UserID           uuid.UUID
	Name             string
	Description      string
	Amount           decimal.Decimal
	Currency         string
	IsPositive       bool
	CategorySnapshot string
	Status           Status
}

// SnapshotOf returns the fields a recurring source writes for one occurrence.
func SnapshotOf(s *source.Source, status Status) Fields {
	return Fields{
		UserID:           s.UserID,
		Name:             s.Name,
		Description:      s.Description,
		Amount:           s.PeriodAmount(),
		Currency:         s.Currency,
		IsPositive:       s.IsPositive(),
		CategorySnapshot: s.CategorySnapshot(),
		Status:           status,
	}
}

// StatusFor returns the status a projected occurrence on d should carry:
// completed before today, pending from today on.
func StatusFor(d, today time.Time) Status {
	if d.Before(today) {
		return StatusCompleted
	}
	return StatusPending
}

// New builds the row inserted for key when none exists.
func New(key Key, f Fields) *Transaction {
	return &Transaction{
		ID:               uuid.New(),
		UserID:           f.UserID,
		TransactionDate:  key.Date,
		SourceType:       key.SourceType,
		SourceID:         key.SourceID,
		Name:             f.Name,
		Description:      f.Description,
		Amount:           f.Amount,
		Currency:         f.Currency,
		IsPositive:       f.IsPositive,
		CategorySnapshot: f.CategorySnapshot,
		Status:           f.Status,
	}
}

// Reconcile applies an upsert onto an existing row and reports whether anything changed.
//
// Rows dated today or later track the source: the snapshot fields and the status are
// overwritten. Rows dated before today are history: only the status moves, and only
// when it differs.
func Reconcile(existing *Transaction, f Fields, today time.Time) bool {
	if existing.TransactionDate.Before(today) {
		if existing.Status == f.Status {
			return false
		}
		existing.Status = f.Status
		return true
	}
	changed := existing.Name != f.Name ||
		existing.Description != f.Description ||
		!existing.Amount.Equal(f.Amount) ||
		existing.Currency != f.Currency ||
		existing.IsPositive != f.IsPositive ||
		existing.CategorySnapshot != f.CategorySnapshot ||
		existing.Status != f.Status
	existing.Name = f.Name
	existing.Description = f.Description
	existing.Amount = f.Amount
	existing.Currency = f.Currency
	existing.IsPositive = f.IsPositive
	existing.CategorySnapshot = f.CategorySnapshot
	existing.Status = f.Status
	return changed
}

// CheckStatusChange enforces the date/status pairing when a user sets a status by hand:
// completed needs a date on or before today, pending a date on or after today.
func CheckStatusChange(t *Transaction, to Status, today time.Time) error {
	switch to {
	case StatusCompleted:
		if t.TransactionDate.After(today) {
			return domain.ErrInvalidStatusTransition
		}
	case StatusPending:
		if t.TransactionDate.Before(today) {
			return domain.ErrInvalidStatusTransition
		}
	case StatusCancelled:
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, to)
	}
	return nil
}
