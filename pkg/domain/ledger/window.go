package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/shopspring/decimal"
)

// Row is a ledger row with the cumulative balance as of that row.
type Row struct {
	*Transaction
	Balance decimal.Decimal
}

// Window is the ledger of one user over one month.
type Window struct {
	First    time.Time
	Last     time.Time
	Filter   StatusFilter
	Rows     []Row
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
	Net      decimal.Decimal
}

// NewWindow computes the running balance of txs over [first, last].
//
// Cancelled rows are ignored. The balance accumulates oldest to newest (date, then
// creation time, then id) and Rows is returned newest first, each row carrying the
// cumulative value as of itself. The result does not depend on the order of txs.
func NewWindow(first, last time.Time, filter StatusFilter, txs []*Transaction) *Window {
	kept := make([]*Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Status == StatusCancelled {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool { return chronological(kept[i], kept[j]) })

	w := &Window{
		First:    first,
		Last:     last,
		Filter:   filter,
		Rows:     make([]Row, len(kept)),
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
	}
	running := decimal.Zero
	for i, t := range kept {
		running = running.Add(t.SignedAmount())
		if t.IsPositive {
			w.TotalIn = w.TotalIn.Add(t.Amount)
		} else {
			w.TotalOut = w.TotalOut.Add(t.Amount)
		}
		w.Rows[len(kept)-1-i] = Row{Transaction: t, Balance: running}
	}
	w.Net = w.TotalIn.Sub(w.TotalOut)
	return w
}

func chronological(a, b *Transaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.Before(b.TransactionDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// CancelMode selects which rows of a source a cancellation touches, relative to a target row.
type CancelMode string

const (
	CancelSingle CancelMode = "single"
	CancelPast   CancelMode = "past"
	CancelFuture CancelMode = "future"
	CancelAll    CancelMode = "all"
)

// ParseCancelMode converts user input to a CancelMode; empty input means single.
func ParseCancelMode(s string) (CancelMode, error) {
	switch m := CancelMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return CancelSingle, nil
	case CancelSingle, CancelPast, CancelFuture, CancelAll:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidCancelMode, s)
}

// Range returns the inclusive date bounds a mode covers around target.
// A nil bound is open.
func (m CancelMode) Range(target time.Time) (from, to *time.Time) {
	switch m {
	case CancelSingle:
		return &target, &target
	case CancelPast:
		return nil, &target
	case CancelFuture:
		return &target, nil
	}
	return nil, nil
}
