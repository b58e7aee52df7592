package advancer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	infraeventbus "github.com/budgee/family/infra/eventbus"
	"github.com/budgee/family/infra/repository/memory"
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain/events"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/eventbus"
	"github.com/budgee/family/pkg/repository"
	"github.com/budgee/family/pkg/service/advancer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBus struct {
	mock.Mock
}

func (m *MockBus) Emit(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	m.Called(eventType, handler)
}

type fixture struct {
	store *memory.Store
	uow   repository.UnitOfWork
	bus   *infraeventbus.MemoryEventBus
}

func newFixture() *fixture {
	store := memory.NewStore()
	return &fixture{store: store, uow: memory.NewUoW(store), bus: infraeventbus.NewWithMemory(nil)}
}

func (f *fixture) service(bus eventbus.Bus, day time.Time) *advancer.Service {
	return advancer.NewService(config.Deps{
		Uow:      f.uow,
		EventBus: bus,
		Now:      func() time.Time { return day.Add(9 * time.Hour) },
	})
}

func (f *fixture) create(t *testing.T, src *source.Source) *source.Source {
	t.Helper()
	src.Normalize()
	sources, err := f.uow.SourceRepository()
	require.NoError(t, err)
	require.NoError(t, sources.Create(context.Background(), src))
	return src
}

func (f *fixture) get(t *testing.T, src *source.Source) *source.Source {
	t.Helper()
	sources, _ := f.uow.SourceRepository()
	got, err := sources.Get(context.Background(), src.Kind, src.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) live(t *testing.T, src *source.Source) []*ledger.Transaction {
	t.Helper()
	txs, _ := f.uow.TransactionRepository()
	rows, err := txs.ListForSource(context.Background(), src.Kind, src.ID)
	require.NoError(t, err)
	var out []*ledger.Transaction
	for _, r := range rows {
		if r.Status != ledger.StatusCancelled {
			out = append(out, r)
		}
	}
	return out
}

func oven(userID uuid.UUID) *source.Source {
	return &source.Source{
		UserID:    userID,
		Kind:      source.KindInstallment,
		Name:      "Oven",
		Currency:  "EUR",
		StartDate: schedule.Date(2024, time.April, 1),
		IsActive:  true,
		Installment: &source.Installment{
			TotalAmount:          decimal.NewFromInt(600),
			InstallmentAmount:    decimal.NewFromInt(200),
			NumberOfInstallments: 3,
		},
	}
}

func subscription(userID uuid.UUID, start time.Time) *source.Source {
	return &source.Source{
		UserID:    userID,
		Kind:      source.KindSubscription,
		Name:      "Gym",
		Amount:    decimal.NewFromInt(30),
		Currency:  "EUR",
		Cycle:     schedule.Monthly,
		StartDate: start,
		IsActive:  true,
		Category:  "Sport",
	}
}

func TestRun_InstallmentCompletion(t *testing.T) {
	f := newFixture()
	src := f.create(t, oven(uuid.New()))

	report, err := f.service(f.bus, schedule.Date(2024, time.July, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.RowsCompleted)
	assert.Equal(t, 1, report.InstallmentsCompleted)

	got := f.get(t, src)
	assert.Equal(t, 3, got.Installment.InstallmentsPaid)
	assert.True(t, got.Installment.IsCompleted)
	assert.False(t, got.IsActive)

	rows := f.live(t, src)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, ledger.StatusCompleted, r.Status)
		assert.Equal(t, "200.00", r.Amount.StringFixed(2))
	}
	assert.Equal(t, schedule.Date(2024, time.June, 1), rows[2].TransactionDate)
}

func TestRun_IdempotentSameDay(t *testing.T) {
	f := newFixture()
	src := f.create(t, subscription(uuid.New(), schedule.Date(2024, time.March, 15)))
	svc := f.service(f.bus, schedule.Date(2024, time.June, 10))

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.RowsCompleted)
	assert.Equal(t, 1, first.ToppedUp)
	rows := f.live(t, src)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Users)
	assert.Equal(t, rows, f.live(t, src))
	assert.Len(t, f.bus.Published(), 1)
}

func TestRun_AdvancesAndTopsUp(t *testing.T) {
	f := newFixture()
	today := schedule.Date(2024, time.June, 10)
	src := f.create(t, subscription(uuid.New(), today))

	report, err := f.service(f.bus, today).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowsCompleted)
	assert.Equal(t, 1, report.ToppedUp)

	got := f.get(t, src)
	assert.Equal(t, schedule.Date(2024, time.July, 10), got.NextDueDate)

	rows := f.live(t, src)
	require.Len(t, rows, 13)
	assert.Equal(t, ledger.StatusCompleted, rows[0].Status)
	assert.Equal(t, today, rows[0].TransactionDate)
	assert.Equal(t, ledger.StatusPending, rows[1].Status)
	assert.Equal(t, schedule.Date(2025, time.June, 10), rows[12].TransactionDate)
}

func TestRun_CreditTerminates(t *testing.T) {
	f := newFixture()
	end := schedule.Date(2024, time.May, 20)
	credit := &source.Source{
		UserID:    uuid.New(),
		Kind:      source.KindCredit,
		Name:      "Car loan",
		Amount:    decimal.NewFromInt(250),
		Currency:  "EUR",
		Cycle:     schedule.Monthly,
		StartDate: schedule.Date(2024, time.March, 5),
		EndDate:   &end,
		IsActive:  true,
		Credit:    &source.Credit{Lender: "Bank"},
	}
	src := f.create(t, credit)

	report, err := f.service(f.bus, schedule.Date(2024, time.June, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.RowsCompleted)
	assert.Equal(t, 1, report.CreditsTerminated)

	got := f.get(t, src)
	assert.False(t, got.IsActive)
	assert.True(t, got.Credit.IsTerminated)
	assert.Len(t, f.live(t, src), 3)
}

func TestRun_IsolatesFailingSource(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	healthy := f.create(t, subscription(userID, schedule.Date(2024, time.May, 1)))
	broken := f.create(t, subscription(userID, schedule.Date(2024, time.May, 2)))
	f.store.FailWritesFor(broken.ID, errors.New("disk full"))

	report, err := f.service(f.bus, schedule.Date(2024, time.June, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SourcesProcessed)
	assert.Equal(t, 1, report.SourcesFailed)

	assert.Equal(t, schedule.Date(2024, time.July, 1), f.get(t, healthy).NextDueDate)
	assert.Equal(t, schedule.Date(2024, time.May, 2), f.get(t, broken).NextDueDate)
	assert.Empty(t, f.live(t, broken))

	published := f.bus.Published()
	require.Len(t, published, 1)
	evt := published[0].(*events.PaymentDatesUpdated)
	assert.Equal(t, userID, evt.UserID)
	require.Len(t, evt.Items, 1)
	assert.Equal(t, healthy.ID, evt.Items[0].SourceID)
	assert.Equal(t, []time.Time{schedule.Date(2024, time.May, 1), schedule.Date(2024, time.June, 1)}, evt.Items[0].Realised)

	f.store.FailWritesFor(broken.ID, nil)
	_, err = f.service(f.bus, schedule.Date(2024, time.June, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schedule.Date(2024, time.July, 2), f.get(t, broken).NextDueDate)
}

func TestRun_OneNotificationPerUser(t *testing.T) {
	f := newFixture()
	alice, bob := uuid.New(), uuid.New()
	f.create(t, subscription(alice, schedule.Date(2024, time.June, 1)))
	f.create(t, oven(alice))
	f.create(t, subscription(bob, schedule.Date(2024, time.June, 5)))

	bus := &MockBus{}
	bus.On("Emit", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		evt, ok := e.(*events.PaymentDatesUpdated)
		return ok && evt.UserID == alice && len(evt.Items) == 2
	})).Return(nil).Once()
	bus.On("Emit", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		evt, ok := e.(*events.PaymentDatesUpdated)
		return ok && evt.UserID == bob && len(evt.Items) == 1
	})).Return(errors.New("mailer down")).Once()

	report, err := f.service(bus, schedule.Date(2024, time.June, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Notified)
	bus.AssertExpectations(t)
}

func TestRun_CompletesOverdueRows(t *testing.T) {
	f := newFixture()
	src := f.create(t, subscription(uuid.New(), schedule.Date(2024, time.March, 15)))
	src.IsActive = false
	sources, _ := f.uow.SourceRepository()
	require.NoError(t, sources.Update(context.Background(), src))

	txs, _ := f.uow.TransactionRepository()
	stale := ledger.Key{SourceType: src.Kind, SourceID: src.ID, Date: schedule.Date(2024, time.June, 8)}
	_, err := txs.Upsert(context.Background(), stale, ledger.SnapshotOf(src, ledger.StatusPending), stale.Date)
	require.NoError(t, err)
	current := ledger.Key{SourceType: src.Kind, SourceID: src.ID, Date: schedule.Date(2024, time.June, 10)}
	_, err = txs.Upsert(context.Background(), current, ledger.SnapshotOf(src, ledger.StatusPending), current.Date)
	require.NoError(t, err)

	report, err := f.service(f.bus, schedule.Date(2024, time.June, 10)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OverdueCompleted)

	got, err := txs.Find(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, got.Status)
	got, err = txs.Find(context.Background(), current)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, got.Status)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	f := newFixture()
	f.create(t, subscription(uuid.New(), schedule.Date(2024, time.June, 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service(f.bus, schedule.Date(2024, time.June, 10)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
