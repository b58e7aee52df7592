// Package projector materializes the occurrences of a recurring source into ledger rows.
package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
)

// DefaultHorizonMonths is the forward window kept materialized.
const DefaultHorizonMonths = 12

// Options controls a projection.
type Options struct {
	HorizonMonths int
	// IncludePast starts from the start date instead of the next due date.
	IncludePast bool
	Today       time.Time
}

// HorizonEnd returns the last date a projection from today reaches: the end of the
// month horizon months ahead.
func HorizonEnd(today time.Time, months int) time.Time {
	if months <= 0 {
		months = DefaultHorizonMonths
	}
	d := schedule.AddMonths(today, months)
	_, last := schedule.MonthBounds(d.Year(), d.Month())
	return last
}

// Project upserts one row per occurrence of src between its cursor and the horizon
// end and returns the rows it wrote. Rows dated before today are completed, the rest
// pending. Installments skip the periods already paid and never hold more live rows
// than their number of installments. Every source stops at its end date.
func Project(ctx context.Context, txs repository.TransactionRepository, src *source.Source, opts Options) ([]*ledger.Transaction, error) {
	if !src.Kind.Recurring() {
		return nil, fmt.Errorf("project %s: not a recurring source", src.Kind)
	}
	today := schedule.Normalize(opts.Today)
	end := HorizonEnd(today, opts.HorizonMonths)
	if src.EndDate != nil && src.EndDate.Before(end) {
		end = *src.EndDate
	}

	series := src.Series()
	n := 0
	switch {
	case !opts.IncludePast:
		n = series.Index(src.NextDueDate)
	case src.Kind == source.KindInstallment:
		n = src.Installment.InstallmentsPaid
	}

	var written []*ledger.Transaction
	for cursor := series.At(n); !cursor.After(end); cursor = series.At(n) {
		if src.Kind == source.KindInstallment && n >= src.Installment.NumberOfInstallments {
			break
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		key := ledger.Key{SourceType: src.Kind, SourceID: src.ID, Date: cursor}
		ok, err := Admit(ctx, txs, src, key)
		if err != nil {
			return written, fmt.Errorf("project %s: %w", key, err)
		}
		if !ok {
			break
		}
		tx, err := txs.Upsert(ctx, key, ledger.SnapshotOf(src, ledger.StatusFor(cursor, today)), today)
		if err != nil {
			return written, fmt.Errorf("project %s: %w", key, err)
		}
		written = append(written, tx)
		n++
	}
	return written, nil
}

// Admit reports whether a write under key keeps src within its installment cap.
// A key that already holds a live row is always admitted, and so is every key of
// a source that is not an installment.
func Admit(ctx context.Context, txs repository.TransactionRepository, src *source.Source, key ledger.Key) (bool, error) {
	if src.Kind != source.KindInstallment {
		return true, nil
	}
	existing, err := txs.Find(ctx, key)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Status != ledger.StatusCancelled {
		return true, nil
	}
	live, err := txs.CountActiveForSource(ctx, src.Kind, src.ID)
	if err != nil {
		return false, err
	}
	return live < int64(src.Installment.NumberOfInstallments), nil
}
