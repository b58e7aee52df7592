// Package lifecycle keeps the ledger consistent with the sources a user creates,
// edits, toggles and deletes. Every public operation commits once or not at all.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/budgee/family/pkg/service/projector"
	"github.com/google/uuid"
)

// Service coordinates source mutations with their ledger effects.
type Service struct {
	uow     repository.UnitOfWork
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
	horizon int
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	cfg := deps.LedgerConfig()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:     deps.Uow,
		logger:  logger,
		now:     deps.Clock(),
		loc:     cfg.Location(),
		horizon: cfg.HorizonMonths,
	}
}

// Today returns the calendar date the service currently works with.
func (s *Service) Today() time.Time {
	return schedule.Today(s.now(), s.loc)
}

// CreateSource persists a new source and projects it from its start date.
func (s *Service) CreateSource(ctx context.Context, userID uuid.UUID, in SourceInput) (*source.Source, error) {
	logger := s.logger.With("context", "CreateSource", "user_id", userID, "kind", in.Kind)
	logger.Info("CreateSource started")

	src := in.newSource(userID)
	if err := src.Validate(); err != nil {
		logger.Error("CreateSource failed: validation error", "error", err)
		return nil, err
	}
	today := s.Today()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sources, err := uow.SourceRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if err := sources.Create(ctx, src); err != nil {
			return err
		}
		_, err = projector.Project(ctx, txs, src, projector.Options{
			HorizonMonths: s.horizon,
			IncludePast:   true,
			Today:         today,
		})
		return err
	})
	if err != nil {
		logger.Error("CreateSource failed: transaction error", "error", err)
		return nil, err
	}
	logger.Info("CreateSource successful", "source_id", src.ID)
	return src, nil
}

// EditSource replaces the editable fields of a source. Pending rows from the resume
// point on are cancelled and re-projected; rows before it keep their snapshot.
func (s *Service) EditSource(ctx context.Context, userID uuid.UUID, kind source.Kind, id uuid.UUID, in SourceInput) (*source.Source, error) {
	logger := s.logger.With("context", "EditSource", "user_id", userID, "source_id", id)
	logger.Info("EditSource started")

	today := s.Today()
	var src *source.Source
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sources, err := uow.SourceRepository()
		if err != nil {
			return err
		}
		if src, err = ownedSource(ctx, sources, userID, kind, id); err != nil {
			return err
		}
		prev := src.NextDueDate
		in.applyTo(src)
		if err := src.Validate(); err != nil {
			return err
		}
		var sweep time.Time
		src.NextDueDate, sweep = resumePoint(src, prev, today)
		if err := sources.Update(ctx, src); err != nil {
			return err
		}
		return s.updateFuture(ctx, uow, src, sweep, today)
	})
	if err != nil {
		logger.Error("EditSource failed", "error", err)
		return nil, err
	}
	logger.Info("EditSource successful")
	return src, nil
}

// resumePoint returns the next due date of an edited source and the first date
// whose pending rows must be swept. A period on or before today that the daily
// job has not realised yet is never skipped. Installments resume at their first
// unpaid installment.
func resumePoint(src *source.Source, prev, today time.Time) (next, sweep time.Time) {
	series := src.Series()
	sweep = today.AddDate(0, 0, 1)
	if !prev.After(today) {
		sweep = prev
	}
	next = series.From(sweep)
	if src.Kind == source.KindInstallment {
		next = series.At(src.Installment.InstallmentsPaid)
		if next.Before(sweep) {
			sweep = next
		}
	}
	return next, sweep
}

func (s *Service) updateFuture(ctx context.Context, uow repository.UnitOfWork, src *source.Source, sweep, today time.Time) error {
	txs, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	if _, err := txs.CancelWhere(ctx, repository.Scope{
		SourceType:  src.Kind,
		SourceID:    src.ID,
		From:        &sweep,
		OnlyPending: true,
	}); err != nil {
		return err
	}
	if src.Kind == source.KindInstallment {
		live, err := txs.CountActiveForSource(ctx, src.Kind, src.ID)
		if err != nil {
			return err
		}
		if live > int64(src.Installment.NumberOfInstallments) {
			return domain.ErrInstallmentsBelowRecorded
		}
	}
	if !src.IsActive {
		return nil
	}
	_, err = projector.Project(ctx, txs, src, projector.Options{HorizonMonths: s.horizon, Today: today})
	return err
}

// ToggleSource activates or deactivates a source. Deactivation cancels pending rows
// from today on; activation restarts from the next future occurrence and revives
// those rows in place. An installment restarts at its first unpaid installment.
// Activating a source that is already active only re-projects it.
func (s *Service) ToggleSource(ctx context.Context, userID uuid.UUID, kind source.Kind, id uuid.UUID, active bool) error {
	logger := s.logger.With("context", "ToggleSource", "user_id", userID, "source_id", id, "active", active)
	logger.Info("ToggleSource started")

	today := s.Today()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sources, err := uow.SourceRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		src, err := ownedSource(ctx, sources, userID, kind, id)
		if err != nil {
			return err
		}
		if active && src.IsActive {
			next, sweep := resumePoint(src, src.NextDueDate, today)
			src.NextDueDate = next
			if err := sources.Update(ctx, src); err != nil {
				return err
			}
			return s.updateFuture(ctx, uow, src, sweep, today)
		}
		src.IsActive = active
		if !active {
			if err := sources.Update(ctx, src); err != nil {
				return err
			}
			_, err := txs.CancelWhere(ctx, repository.Scope{
				SourceType:  src.Kind,
				SourceID:    src.ID,
				From:        &today,
				OnlyPending: true,
			})
			return err
		}
		src.NextDueDate = schedule.FirstFuture(src.StartDate, src.Cycle, today)
		if src.Kind == source.KindInstallment {
			src.NextDueDate = src.Series().At(src.Installment.InstallmentsPaid)
		}
		if err := sources.Update(ctx, src); err != nil {
			return err
		}
		_, err = projector.Project(ctx, txs, src, projector.Options{HorizonMonths: s.horizon, Today: today})
		return err
	})
	if err != nil {
		logger.Error("ToggleSource failed", "error", err)
		return err
	}
	logger.Info("ToggleSource successful")
	return nil
}

// DeleteSource hard-deletes a source and every ledger row it produced.
func (s *Service) DeleteSource(ctx context.Context, userID uuid.UUID, kind source.Kind, id uuid.UUID) error {
	logger := s.logger.With("context", "DeleteSource", "user_id", userID, "source_id", id)
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sources, err := uow.SourceRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if _, err := ownedSource(ctx, sources, userID, kind, id); err != nil {
			return err
		}
		n, err := txs.DeleteAllForSource(ctx, kind, id)
		if err != nil {
			return err
		}
		logger.Debug("ledger rows deleted", "count", n)
		return sources.Delete(ctx, kind, id)
	})
	if err != nil {
		logger.Error("DeleteSource failed", "error", err)
		return err
	}
	logger.Info("DeleteSource successful")
	return nil
}

// CancelTransaction cancels the target row and, depending on mode, the rows of the
// same source dated before it, after it, or all of them. It returns the number of
// rows it cancelled.
func (s *Service) CancelTransaction(ctx context.Context, userID uuid.UUID, txID uuid.UUID, mode ledger.CancelMode) (int64, error) {
	logger := s.logger.With("context", "CancelTransaction", "user_id", userID, "transaction_id", txID, "mode", mode)
	var n int64
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		t, err := ownedTransaction(ctx, txs, userID, txID)
		if err != nil {
			return err
		}
		switch mode {
		case ledger.CancelSingle:
			if t.Status == ledger.StatusCancelled {
				return nil
			}
			n = 1
			return txs.Cancel(ctx, t.ID)
		case ledger.CancelPast, ledger.CancelFuture, ledger.CancelAll:
			from, to := mode.Range(t.TransactionDate)
			n, err = txs.CancelWhere(ctx, repository.Scope{
				SourceType: t.SourceType,
				SourceID:   t.SourceID,
				From:       from,
				To:         to,
			})
			return err
		}
		return fmt.Errorf("%w: %q", domain.ErrInvalidCancelMode, mode)
	})
	if err != nil {
		logger.Error("CancelTransaction failed", "error", err)
		return 0, err
	}
	logger.Info("CancelTransaction successful", "cancelled", n)
	return n, nil
}

// SetTransactionStatus moves a row to completed or pending. Completed needs a date
// on or before today and pending a date on or after today. A cancelled row can only
// be reopened while no other live row holds its key.
func (s *Service) SetTransactionStatus(ctx context.Context, userID uuid.UUID, txID uuid.UUID, status ledger.Status) error {
	logger := s.logger.With("context", "SetTransactionStatus", "user_id", userID, "transaction_id", txID, "status", status)
	if status != ledger.StatusCompleted && status != ledger.StatusPending {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	today := s.Today()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		t, err := ownedTransaction(ctx, txs, userID, txID)
		if err != nil {
			return err
		}
		if err := ledger.CheckStatusChange(t, status, today); err != nil {
			return err
		}
		if t.Status == ledger.StatusCancelled {
			live, err := txs.Find(ctx, t.Key())
			if err != nil {
				return err
			}
			if live != nil && live.ID != t.ID && live.Status != ledger.StatusCancelled {
				return fmt.Errorf("%w: %s", domain.ErrConflict, t.Key())
			}
			if err := s.checkReopen(ctx, uow, txs, t); err != nil {
				return err
			}
		}
		return txs.SetStatus(ctx, t.ID, status)
	})
	if err != nil {
		logger.Error("SetTransactionStatus failed", "error", err)
		return err
	}
	logger.Info("SetTransactionStatus successful")
	return nil
}

// checkReopen refuses to reopen an installment row once the installment already
// holds all its live rows.
func (s *Service) checkReopen(ctx context.Context, uow repository.UnitOfWork, txs repository.TransactionRepository, t *ledger.Transaction) error {
	if t.SourceType != source.KindInstallment {
		return nil
	}
	sources, err := uow.SourceRepository()
	if err != nil {
		return err
	}
	src, err := sources.Get(ctx, t.SourceType, t.SourceID)
	if err != nil {
		return err
	}
	ok, err := projector.Admit(ctx, txs, src, t.Key())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInstallmentCapReached
	}
	return nil
}

// ProjectReport summarises a bulk projection.
type ProjectReport struct {
	Users   int
	Sources int
	Failed  int
	Rows    int
}

// ProjectAll projects every active source from its start date, one commit per user.
// A source that fails is rolled back, logged and skipped.
func (s *Service) ProjectAll(ctx context.Context, months int) (ProjectReport, error) {
	logger := s.logger.With("context", "ProjectAll", "months", months)
	logger.Info("ProjectAll started")
	if months <= 0 {
		months = s.horizon
	}
	today := s.Today()

	sources, err := s.uow.SourceRepository()
	if err != nil {
		return ProjectReport{}, err
	}
	active, err := sources.ListActive(ctx)
	if err != nil {
		logger.Error("ProjectAll failed: list sources", "error", err)
		return ProjectReport{}, err
	}

	var report ProjectReport
	for _, group := range groupByUser(active) {
		report.Users++
		err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			for _, src := range group {
				var rows []*ledger.Transaction
				perr := uow.Do(ctx, func(uow repository.UnitOfWork) error {
					if err := src.Validate(); err != nil {
						return err
					}
					txs, err := uow.TransactionRepository()
					if err != nil {
						return err
					}
					rows, err = projector.Project(ctx, txs, src, projector.Options{
						HorizonMonths: months,
						IncludePast:   true,
						Today:         today,
					})
					return err
				})
				if perr != nil {
					if errors.Is(perr, context.Canceled) || errors.Is(perr, context.DeadlineExceeded) {
						return perr
					}
					report.Failed++
					logger.Error("ProjectAll: source skipped", "source_id", src.ID, "kind", src.Kind, "error", perr)
					continue
				}
				report.Sources++
				report.Rows += len(rows)
			}
			return nil
		})
		if err != nil {
			logger.Error("ProjectAll failed", "error", err)
			return report, err
		}
	}
	logger.Info("ProjectAll successful", "users", report.Users, "sources", report.Sources, "failed", report.Failed)
	return report, nil
}

func ownedSource(ctx context.Context, sources repository.SourceRepository, userID uuid.UUID, kind source.Kind, id uuid.UUID) (*source.Source, error) {
	src, err := sources.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if src.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return src, nil
}

func ownedTransaction(ctx context.Context, txs repository.TransactionRepository, userID uuid.UUID, id uuid.UUID) (*ledger.Transaction, error) {
	t, err := txs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// groupByUser keeps the order of first appearance.
func groupByUser(sources []*source.Source) [][]*source.Source {
	index := map[uuid.UUID]int{}
	var groups [][]*source.Source
	for _, src := range sources {
		i, ok := index[src.UserID]
		if !ok {
			i = len(groups)
			index[src.UserID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], src)
	}
	return groups
}
