// Package memory is an in-process implementation of the repository ports. It keeps
// the transactional contract of the SQL store: work inside Do is rolled back when the
// function fails, and a nested Do rolls back only its own work.
package memory

import (
	"context"
	"reflect"
	"sync"

	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
)

type state struct {
	sources   map[uuid.UUID]*source.Source
	txs       map[uuid.UUID]*ledger.Transaction
	checks    map[uuid.UUID]*source.Check
	purchases map[uuid.UUID]*source.CardPurchase
}

func newState() *state {
	return &state{
		sources:   map[uuid.UUID]*source.Source{},
		txs:       map[uuid.UUID]*ledger.Transaction{},
		checks:    map[uuid.UUID]*source.Check{},
		purchases: map[uuid.UUID]*source.CardPurchase{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, v := range s.sources {
		c.sources[id] = cloneSource(v)
	}
	for id, v := range s.txs {
		c.txs[id] = cloneTransaction(v)
	}
	for id, v := range s.checks {
		c.checks[id] = cloneCheck(v)
	}
	for id, v := range s.purchases {
		p := *v
		c.purchases[id] = &p
	}
	return c
}

// Store holds the data shared by every UoW it hands out.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state

	faultMu sync.RWMutex
	faults  map[uuid.UUID]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), faults: map[uuid.UUID]error{}}
}

// FailWritesFor makes every ledger write for the given source return err until
// cleared with a nil err.
func (s *Store) FailWritesFor(sourceID uuid.UUID, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if err == nil {
		delete(s.faults, sourceID)
		return
	}
	s.faults[sourceID] = err
}

func (s *Store) fault(sourceID uuid.UUID) error {
	s.faultMu.RLock()
	defer s.faultMu.RUnlock()
	return s.faults[sourceID]
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) restore(snap *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}

// UoW implements repository.UnitOfWork over a Store.
type UoW struct {
	store *Store
	inTx  bool
}

// NewUoW returns a UnitOfWork backed by store.
func NewUoW(store *Store) *UoW {
	return &UoW{store: store}
}

// Do serializes top-level units of work and restores the previous state when fn fails.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !u.inTx {
		u.store.txMu.Lock()
		defer u.store.txMu.Unlock()
	}
	snap := u.store.snapshot()
	if err := fn(&UoW{store: u.store, inTx: true}); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	switch repoType {
	case repository.SourceRepositoryType:
		return &sourceRepository{store: u.store}, nil
	case repository.TransactionRepositoryType:
		return &transactionRepository{store: u.store}, nil
	case repository.CheckRepositoryType:
		return &checkRepository{store: u.store}, nil
	case repository.CardPurchaseRepositoryType:
		return &cardPurchaseRepository{store: u.store}, nil
	}
	return nil, &repository.UnsupportedRepositoryError{Type: repoType}
}

func (u *UoW) SourceRepository() (repository.SourceRepository, error) {
	return repository.Typed[repository.SourceRepository](u, repository.SourceRepositoryType)
}

func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	return repository.Typed[repository.TransactionRepository](u, repository.TransactionRepositoryType)
}

func (u *UoW) CheckRepository() (repository.CheckRepository, error) {
	return repository.Typed[repository.CheckRepository](u, repository.CheckRepositoryType)
}

func (u *UoW) CardPurchaseRepository() (repository.CardPurchaseRepository, error) {
	return repository.Typed[repository.CardPurchaseRepository](u, repository.CardPurchaseRepositoryType)
}

func cloneSource(s *source.Source) *source.Source {
	c := *s
	if s.EndDate != nil {
		end := *s.EndDate
		c.EndDate = &end
	}
	if s.Revenue != nil {
		r := *s.Revenue
		c.Revenue = &r
	}
	if s.Credit != nil {
		cr := *s.Credit
		c.Credit = &cr
	}
	if s.Installment != nil {
		i := *s.Installment
		c.Installment = &i
	}
	return &c
}

func cloneTransaction(t *ledger.Transaction) *ledger.Transaction {
	c := *t
	return &c
}

func cloneCheck(ch *source.Check) *source.Check {
	c := *ch
	if ch.CheckDate != nil {
		d := *ch.CheckDate
		c.CheckDate = &d
	}
	return &c
}
