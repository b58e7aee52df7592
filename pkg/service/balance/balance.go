// Package balance answers the monthly ledger view with its running balance and the
// pointing and status shortcuts offered next to it.
package balance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/google/uuid"
)

// Service provides the balance query and its side operations.
type Service struct {
	uow           repository.UnitOfWork
	ops           *lifecycle.Service
	logger        *slog.Logger
	upcomingLimit int
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := deps.LedgerConfig().UpcomingDefaultLimit
	if limit <= 0 {
		limit = 5
	}
	return &Service{
		uow:           deps.Uow,
		ops:           lifecycle.NewService(deps),
		logger:        logger,
		upcomingLimit: limit,
	}
}

func window(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d", domain.ErrInvalidMonth, month)
	}
	first, last := schedule.MonthBounds(year, time.Month(month))
	return first, last, nil
}

// Balance returns the user's non-cancelled rows of the month, newest first, each
// with the cumulative balance as of itself, and the month totals.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID, year, month int, filter ledger.StatusFilter) (*ledger.Window, error) {
	first, last, err := window(year, month)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		filter = ledger.FilterAll
	}
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	rows, err := txs.ListForWindow(ctx, repository.WindowQuery{UserID: userID, First: first, Last: last, Filter: filter})
	if err != nil {
		s.logger.Error("Balance failed", "user_id", userID, "error", err)
		return nil, err
	}
	return ledger.NewWindow(first, last, filter, rows), nil
}

// TogglePointed flips the pointed flag of a row and returns the new value.
func (s *Service) TogglePointed(ctx context.Context, userID, txID uuid.UUID) (pointed bool, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		t, err := txs.Get(ctx, txID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return domain.ErrNotFound
		}
		pointed = !t.IsPointed
		return txs.SetPointed(ctx, t.ID, pointed)
	})
	if err != nil {
		s.logger.Error("TogglePointed failed", "user_id", userID, "transaction_id", txID, "error", err)
	}
	return pointed, err
}

// BulkPoint sets the pointed flag on every row of the month matching filter and
// returns how many rows changed.
func (s *Service) BulkPoint(ctx context.Context, userID uuid.UUID, year, month int, filter ledger.StatusFilter, desired bool) (int64, error) {
	first, last, err := window(year, month)
	if err != nil {
		return 0, err
	}
	if filter == "" {
		filter = ledger.FilterAll
	}
	var n int64
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		n, err = txs.SetPointedForWindow(ctx, repository.WindowQuery{UserID: userID, First: first, Last: last, Filter: filter}, desired)
		return err
	})
	if err != nil {
		s.logger.Error("BulkPoint failed", "user_id", userID, "error", err)
		return 0, err
	}
	return n, nil
}

// MarkCompleted marks a row dated on or before today as completed.
func (s *Service) MarkCompleted(ctx context.Context, userID, txID uuid.UUID) error {
	return s.ops.SetTransactionStatus(ctx, userID, txID, ledger.StatusCompleted)
}

// MarkPending marks a row dated on or after today as pending.
func (s *Service) MarkPending(ctx context.Context, userID, txID uuid.UUID) error {
	return s.ops.SetTransactionStatus(ctx, userID, txID, ledger.StatusPending)
}

// Cancel cancels a single row.
func (s *Service) Cancel(ctx context.Context, userID, txID uuid.UUID) error {
	_, err := s.ops.CancelTransaction(ctx, userID, txID, ledger.CancelSingle)
	return err
}

// ListUpcoming returns the next pending rows from today on, soonest first. An empty
// kind means every kind; a non-positive limit uses the configured default.
func (s *Service) ListUpcoming(ctx context.Context, userID uuid.UUID, kind source.Kind, limit int) ([]*ledger.Transaction, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	if limit <= 0 {
		limit = s.upcomingLimit
	}
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return txs.ListUpcoming(ctx, userID, kind, s.ops.Today(), limit)
}
