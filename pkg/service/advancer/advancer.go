// Package advancer implements the daily job that realises due occurrences, moves
// next due dates forward, tops up the projection horizon and notifies users.
package advancer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain/events"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/eventbus"
	"github.com/budgee/family/pkg/repository"
	"github.com/budgee/family/pkg/service/projector"
	"github.com/google/uuid"
)

// Report summarises one run.
type Report struct {
	RunDate               time.Time
	Users                 int
	UsersFailed           int
	SourcesProcessed      int
	SourcesFailed         int
	RowsCompleted         int
	InstallmentsCompleted int
	CreditsTerminated     int
	ToppedUp              int
	OverdueCompleted      int
	Notified              int
}

func (r *Report) add(o outcome) {
	r.SourcesProcessed++
	r.RowsCompleted += o.rows
	if o.item.Completed {
		r.InstallmentsCompleted++
	}
	if o.creditTerminated {
		r.CreditsTerminated++
	}
	if o.toppedUp {
		r.ToppedUp++
	}
}

type outcome struct {
	item             events.PaymentDateItem
	rows             int
	creditTerminated bool
	toppedUp         bool
}

func (o outcome) changed() bool {
	return len(o.item.Realised) > 0 || o.item.Completed || o.item.Terminated
}

// Service runs the daily job.
type Service struct {
	uow       repository.UnitOfWork
	bus       eventbus.Bus
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
	horizon   int
	minMonths int
	instMin   int
}

// NewService creates a new Service with the provided dependencies.
func NewService(deps config.Deps) *Service {
	cfg := deps.LedgerConfig()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:       deps.Uow,
		bus:       deps.EventBus,
		logger:    logger,
		now:       deps.Clock(),
		loc:       cfg.Location(),
		horizon:   cfg.HorizonMonths,
		minMonths: cfg.MinMonths,
		instMin:   cfg.InstallmentMinMonths,
	}
}

// Run processes every active source due on or before today. Each user is committed
// on its own and each source is isolated inside it, so a failing source is rolled
// back, logged and skipped. Pending rows left dated before today are then
// completed. Re-running on the same day changes nothing.
func (s *Service) Run(ctx context.Context) (Report, error) {
	today := schedule.Today(s.now(), s.loc)
	logger := s.logger.With("context", "UpdatePaymentDates", "run_date", today.Format(time.DateOnly))
	logger.Info("UpdatePaymentDates started")
	report := Report{RunDate: today}

	sources, err := s.uow.SourceRepository()
	if err != nil {
		return report, err
	}
	due, err := sources.ListDue(ctx, today)
	if err != nil {
		logger.Error("UpdatePaymentDates failed: list due sources", "error", err)
		return report, err
	}

	for _, group := range groupByUser(due) {
		userID := group[0].UserID
		report.Users++
		var items []events.PaymentDateItem
		var outcomes []outcome
		err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			items, outcomes = nil, nil
			for _, src := range group {
				var o outcome
				serr := uow.Do(ctx, func(uow repository.UnitOfWork) error {
					var err error
					o, err = s.advance(ctx, uow, src, today)
					return err
				})
				if serr != nil {
					if isCancellation(serr) {
						return serr
					}
					report.SourcesFailed++
					logger.Error("UpdatePaymentDates: source skipped",
						"user_id", userID, "source_id", src.ID, "kind", src.Kind, "error", serr)
					continue
				}
				outcomes = append(outcomes, o)
				if o.changed() {
					items = append(items, o.item)
				}
			}
			return nil
		})
		if err != nil {
			if isCancellation(err) {
				logger.Error("UpdatePaymentDates interrupted", "error", err)
				return report, err
			}
			report.UsersFailed++
			logger.Error("UpdatePaymentDates: user commit failed", "user_id", userID, "error", err)
			continue
		}
		for _, o := range outcomes {
			report.add(o)
		}
		if len(items) > 0 && s.bus != nil {
			if err := s.bus.Emit(ctx, events.NewPaymentDatesUpdated(userID, today, items)); err != nil {
				logger.Error("UpdatePaymentDates: notification failed", "user_id", userID, "error", err)
			} else {
				report.Notified++
			}
		}
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		n, err := txs.CompleteOverdue(ctx, today)
		report.OverdueCompleted = int(n)
		return err
	})
	if err != nil {
		logger.Error("UpdatePaymentDates failed: complete overdue rows", "error", err)
		return report, err
	}

	logger.Info("UpdatePaymentDates successful",
		"users", report.Users,
		"sources", report.SourcesProcessed,
		"failed", report.SourcesFailed,
		"rows_completed", report.RowsCompleted,
		"overdue_completed", report.OverdueCompleted,
	)
	return report, nil
}

func (s *Service) advance(ctx context.Context, uow repository.UnitOfWork, src *source.Source, today time.Time) (outcome, error) {
	o := outcome{item: events.PaymentDateItem{
		SourceType: src.Kind.String(),
		SourceID:   src.ID,
		Name:       src.Name,
		Amount:     src.PeriodAmount(),
		Currency:   src.Currency,
		IsPositive: src.IsPositive(),
	}}
	if err := src.Validate(); err != nil {
		return o, err
	}
	sources, err := uow.SourceRepository()
	if err != nil {
		return o, err
	}
	txs, err := uow.TransactionRepository()
	if err != nil {
		return o, err
	}

	series := src.Series()
	for src.IsActive && !src.NextDueDate.After(today) {
		if src.Ended(src.NextDueDate) {
			o.terminate(src)
			break
		}
		if src.Kind == source.KindInstallment && src.Installment.Remaining() == 0 {
			o.completeInstallment(src)
			break
		}
		key := ledger.Key{SourceType: src.Kind, SourceID: src.ID, Date: src.NextDueDate}
		ok, err := projector.Admit(ctx, txs, src, key)
		if err != nil {
			return o, err
		}
		if ok {
			if _, err := txs.Upsert(ctx, key, ledger.SnapshotOf(src, ledger.StatusCompleted), today); err != nil {
				return o, err
			}
			o.rows++
			o.item.Realised = append(o.item.Realised, key.Date)
		}

		src.NextDueDate = series.After(src.NextDueDate)
		if src.Kind == source.KindInstallment {
			src.Installment.InstallmentsPaid++
			if src.Installment.Remaining() == 0 {
				o.completeInstallment(src)
			}
		}
		if src.IsActive && src.Ended(src.NextDueDate) {
			o.terminate(src)
		}
	}
	o.item.NextDueDate = src.NextDueDate

	if src.IsActive {
		if o.toppedUp, err = s.topUp(ctx, txs, src, today); err != nil {
			return o, err
		}
	}
	return o, sources.Update(ctx, src)
}

func (o *outcome) completeInstallment(src *source.Source) {
	src.Installment.IsCompleted = true
	src.IsActive = false
	o.item.Completed = true
}

func (o *outcome) terminate(src *source.Source) {
	src.IsActive = false
	o.item.Terminated = true
	if src.Kind == source.KindCredit && src.Credit != nil {
		src.Credit.IsTerminated = true
		o.creditTerminated = true
	}
}

// topUp re-projects src when fewer than the minimum number of pending rows lie
// beyond today plus that many months.
func (s *Service) topUp(ctx context.Context, txs repository.TransactionRepository, src *source.Source, today time.Time) (bool, error) {
	minMonths := s.minMonths
	if src.Kind == source.KindInstallment {
		minMonths = s.instMin
	}
	if minMonths <= 0 {
		return false, nil
	}
	n, err := txs.CountPendingAfter(ctx, src.Kind, src.ID, schedule.AddMonths(today, minMonths))
	if err != nil {
		return false, err
	}
	if n >= int64(minMonths) {
		return false, nil
	}
	_, err = projector.Project(ctx, txs, src, projector.Options{HorizonMonths: s.horizon, Today: today})
	return err == nil, err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

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
