package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceRef struct {
	kind source.Kind
	id   uuid.UUID
}

// sequence drives random mutations against one fixture.
type sequence struct {
	f    *fixture
	r    *rand.Rand
	refs []sourceRef
}

var (
	recurringKinds = []source.Kind{source.KindRevenue, source.KindSubscription, source.KindCredit, source.KindInstallment}
	cancelModes    = []ledger.CancelMode{ledger.CancelSingle, ledger.CancelPast, ledger.CancelFuture, ledger.CancelAll}
)

func TestRandomMutations_KeepLedgerInvariants(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			seq := &sequence{f: newFixture(t), r: rand.New(rand.NewSource(seed))}
			first := schedule.Date(2024, time.January, 20)
			for day := first; day.Before(first.AddDate(0, 0, 60)); day = day.AddDate(0, 0, 1) {
				seq.f.now = day.Add(time.Hour)
				for i := seq.r.Intn(4); i > 0; i-- {
					if err := seq.mutate(t, day); err != nil {
						assert.True(t, errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict),
							"unexpected error on %s: %v", day.Format(time.DateOnly), err)
					}
					seq.checkKeys(t)
				}
				seq.f.runDaily(t, day)
				seq.checkKeys(t)
				seq.checkStatuses(t, day)
			}
		})
	}
}

func (s *sequence) mutate(t *testing.T, day time.Time) error {
	t.Helper()
	ctx := context.Background()
	user := s.f.user
	if len(s.refs) == 0 || s.r.Intn(6) == 0 {
		kind := recurringKinds[s.r.Intn(len(recurringKinds))]
		src, err := s.f.svc.CreateSource(ctx, user, s.input(kind, day))
		if err == nil {
			s.refs = append(s.refs, sourceRef{kind: src.Kind, id: src.ID})
		}
		return err
	}

	i := s.r.Intn(len(s.refs))
	ref := s.refs[i]
	switch s.r.Intn(6) {
	case 0:
		_, err := s.f.svc.EditSource(ctx, user, ref.kind, ref.id, s.input(ref.kind, day))
		return err
	case 1:
		return s.f.svc.ToggleSource(ctx, user, ref.kind, ref.id, s.r.Intn(2) == 0)
	case 2:
		rows := s.f.rows(t, ref.kind, ref.id)
		if len(rows) == 0 {
			return nil
		}
		row := rows[s.r.Intn(len(rows))]
		_, err := s.f.svc.CancelTransaction(ctx, user, row.ID, cancelModes[s.r.Intn(len(cancelModes))])
		return err
	case 3, 4:
		rows := s.f.rows(t, ref.kind, ref.id)
		if len(rows) == 0 {
			return nil
		}
		status := ledger.StatusCompleted
		if s.r.Intn(2) == 0 {
			status = ledger.StatusPending
		}
		return s.f.svc.SetTransactionStatus(ctx, user, rows[s.r.Intn(len(rows))].ID, status)
	default:
		if err := s.f.svc.DeleteSource(ctx, user, ref.kind, ref.id); err != nil {
			return err
		}
		s.refs = append(s.refs[:i], s.refs[i+1:]...)
		return nil
	}
}

func (s *sequence) input(kind source.Kind, day time.Time) lifecycle.SourceInput {
	start := day.AddDate(0, 0, s.r.Intn(150)-120)
	in := lifecycle.SourceInput{
		Kind:      kind,
		Name:      fmt.Sprintf("%s %d", kind, s.r.Intn(100)),
		Amount:    decimal.NewFromInt(int64(1 + s.r.Intn(500))),
		Currency:  "EUR",
		Cycle:     schedule.Cycles[s.r.Intn(len(schedule.Cycles))],
		StartDate: start,
		Category:  "Misc",
	}
	switch kind {
	case source.KindRevenue:
		in.EmployerName = "ACME"
	case source.KindCredit:
		in.Lender = "Bank"
		if s.r.Intn(2) == 0 {
			end := start.AddDate(0, 1+s.r.Intn(8), 0)
			in.EndDate = &end
		}
	case source.KindInstallment:
		n := 1 + s.r.Intn(6)
		in.NumberOfInstallments = n
		in.TotalAmount = decimal.NewFromInt(int64(100 * n))
	}
	return in
}

// checkKeys asserts that no key holds two live rows and that installments stay
// within their number of installments.
func (s *sequence) checkKeys(t *testing.T) {
	t.Helper()
	sources, err := s.f.uow.SourceRepository()
	require.NoError(t, err)
	for _, ref := range s.refs {
		live := s.f.live(t, ref.kind, ref.id)
		seen := map[time.Time]bool{}
		for _, r := range live {
			assert.False(t, seen[r.TransactionDate], "duplicate live row %s", r.Key())
			seen[r.TransactionDate] = true
		}
		if ref.kind != source.KindInstallment {
			continue
		}
		src, err := sources.Get(context.Background(), ref.kind, ref.id)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(live), src.Installment.NumberOfInstallments, "installment %s", ref.id)
	}
}

// checkStatuses asserts the date/status pairing once the daily job has run.
func (s *sequence) checkStatuses(t *testing.T, today time.Time) {
	t.Helper()
	for _, ref := range s.refs {
		for _, r := range s.f.rows(t, ref.kind, ref.id) {
			if r.TransactionDate.Before(today) {
				assert.NotEqual(t, ledger.StatusPending, r.Status, "pending row in the past %s", r.Key())
			}
			if r.TransactionDate.After(today) {
				assert.NotEqual(t, ledger.StatusCompleted, r.Status, "completed row in the future %s", r.Key())
			}
		}
	}
}
