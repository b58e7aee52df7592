package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
)

type sourceRepository struct {
	store *Store
}

func (r *sourceRepository) Create(_ context.Context, s *source.Source) error {
	if !s.Kind.Recurring() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, s.Kind)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.sources[s.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.store.data.sources[s.ID] = cloneSource(s)
	return nil
}

func (r *sourceRepository) Update(_ context.Context, s *source.Source) error {
	s.UpdatedAt = time.Now().UTC()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cur, ok := r.store.data.sources[s.ID]; !ok || cur.Kind != s.Kind {
		return domain.ErrNotFound
	}
	r.store.data.sources[s.ID] = cloneSource(s)
	return nil
}

func (r *sourceRepository) Get(_ context.Context, kind source.Kind, id uuid.UUID) (*source.Source, error) {
	if !kind.Recurring() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.data.sources[id]
	if !ok || s.Kind != kind {
		return nil, domain.ErrNotFound
	}
	return cloneSource(s), nil
}

func (r *sourceRepository) Delete(_ context.Context, kind source.Kind, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.data.sources[id]
	if !ok || s.Kind != kind {
		return domain.ErrNotFound
	}
	delete(r.store.data.sources, id)
	return nil
}

func (r *sourceRepository) ListByUser(_ context.Context, userID uuid.UUID, kind source.Kind) ([]*source.Source, error) {
	return r.filter(func(s *source.Source) bool {
		return s.UserID == userID && (kind == "" || s.Kind == kind)
	}), nil
}

func (r *sourceRepository) ListDue(_ context.Context, today time.Time) ([]*source.Source, error) {
	return r.filter(func(s *source.Source) bool {
		return s.IsActive && !s.NextDueDate.After(today)
	}), nil
}

func (r *sourceRepository) ListActive(_ context.Context) ([]*source.Source, error) {
	return r.filter(func(s *source.Source) bool { return s.IsActive }), nil
}

func (r *sourceRepository) filter(keep func(*source.Source) bool) []*source.Source {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*source.Source
	for _, s := range r.store.data.sources {
		if keep(s) {
			out = append(out, cloneSource(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) Get(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.data.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTransaction(t), nil
}

func (r *transactionRepository) Find(_ context.Context, key ledger.Key) (*ledger.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if t := r.find(key); t != nil {
		return cloneTransaction(t), nil
	}
	return nil, nil
}

// find prefers a live row over a cancelled one. Callers hold mu.
func (r *transactionRepository) find(key ledger.Key) *ledger.Transaction {
	var found *ledger.Transaction
	for _, t := range r.store.data.txs {
		if t.SourceType != key.SourceType || t.SourceID != key.SourceID || !t.TransactionDate.Equal(key.Date) {
			continue
		}
		if t.Status != ledger.StatusCancelled {
			return t
		}
		found = t
	}
	return found
}

func (r *transactionRepository) Upsert(_ context.Context, key ledger.Key, f ledger.Fields, today time.Time) (*ledger.Transaction, error) {
	if err := r.store.fault(key.SourceID); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing := r.find(key); existing != nil {
		if ledger.Reconcile(existing, f, today) {
			existing.UpdatedAt = time.Now().UTC()
		}
		return cloneTransaction(existing), nil
	}
	t := ledger.New(key, f)
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.store.data.txs[t.ID] = t
	return cloneTransaction(t), nil
}

func (r *transactionRepository) Create(_ context.Context, t *ledger.Transaction) error {
	if err := r.store.fault(t.SourceID); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.txs[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if existing := r.find(t.Key()); existing != nil && existing.Status != ledger.StatusCancelled && t.Status != ledger.StatusCancelled {
		return domain.ErrAlreadyExists
	}
	r.store.data.txs[t.ID] = cloneTransaction(t)
	return nil
}

func (r *transactionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.SetStatus(ctx, id, ledger.StatusCancelled)
}

func (r *transactionRepository) SetStatus(_ context.Context, id uuid.UUID, status ledger.Status) error {
	return r.update(id, func(t *ledger.Transaction) { t.Status = status })
}

func (r *transactionRepository) SetPointed(_ context.Context, id uuid.UUID, pointed bool) error {
	return r.update(id, func(t *ledger.Transaction) { t.IsPointed = pointed })
}

func (r *transactionRepository) update(id uuid.UUID, apply func(*ledger.Transaction)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.data.txs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := r.store.fault(t.SourceID); err != nil {
		return err
	}
	apply(t)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepository) CancelWhere(_ context.Context, scope repository.Scope) (int64, error) {
	if err := r.store.fault(scope.SourceID); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, t := range r.store.data.txs {
		if t.SourceType != scope.SourceType || t.SourceID != scope.SourceID || t.Status == ledger.StatusCancelled {
			continue
		}
		if scope.From != nil && t.TransactionDate.Before(*scope.From) {
			continue
		}
		if scope.To != nil && t.TransactionDate.After(*scope.To) {
			continue
		}
		if scope.OnlyPending && t.Status != ledger.StatusPending {
			continue
		}
		t.Status = ledger.StatusCancelled
		t.UpdatedAt = now
		n++
	}
	return n, nil
}

func (r *transactionRepository) ListForSource(_ context.Context, kind source.Kind, id uuid.UUID) ([]*ledger.Transaction, error) {
	out := r.filter(func(t *ledger.Transaction) bool {
		return t.SourceType == kind && t.SourceID == id
	})
	sort.Slice(out, func(i, j int) bool { return oldestFirst(out[i], out[j]) })
	return out, nil
}

func (r *transactionRepository) ListForWindow(_ context.Context, q repository.WindowQuery) ([]*ledger.Transaction, error) {
	out := r.filter(inWindow(q))
	sort.Slice(out, func(i, j int) bool { return oldestFirst(out[j], out[i]) })
	return out, nil
}

func (r *transactionRepository) SetPointedForWindow(_ context.Context, q repository.WindowQuery, pointed bool) (int64, error) {
	match := inWindow(q)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, t := range r.store.data.txs {
		if match(t) && t.IsPointed != pointed {
			t.IsPointed = pointed
			t.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *transactionRepository) DeleteAllForSource(_ context.Context, kind source.Kind, id uuid.UUID) (int64, error) {
	if err := r.store.fault(id); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for txID, t := range r.store.data.txs {
		if t.SourceType == kind && t.SourceID == id {
			delete(r.store.data.txs, txID)
			n++
		}
	}
	return n, nil
}

func (r *transactionRepository) CompleteOverdue(_ context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, t := range r.store.data.txs {
		if t.Status == ledger.StatusPending && t.TransactionDate.Before(before) {
			t.Status = ledger.StatusCompleted
			t.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *transactionRepository) CountPendingAfter(_ context.Context, kind source.Kind, id uuid.UUID, after time.Time) (int64, error) {
	return int64(len(r.filter(func(t *ledger.Transaction) bool {
		return t.SourceType == kind && t.SourceID == id &&
			t.Status == ledger.StatusPending && t.TransactionDate.After(after)
	}))), nil
}

func (r *transactionRepository) CountActiveForSource(_ context.Context, kind source.Kind, id uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(t *ledger.Transaction) bool {
		return t.SourceType == kind && t.SourceID == id && t.Status != ledger.StatusCancelled
	}))), nil
}

func (r *transactionRepository) ListUpcoming(_ context.Context, userID uuid.UUID, kind source.Kind, from time.Time, limit int) ([]*ledger.Transaction, error) {
	out := r.filter(func(t *ledger.Transaction) bool {
		return t.UserID == userID && t.Status == ledger.StatusPending &&
			!t.TransactionDate.Before(from) && (kind == "" || t.SourceType == kind)
	})
	sort.Slice(out, func(i, j int) bool { return oldestFirst(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *transactionRepository) filter(keep func(*ledger.Transaction) bool) []*ledger.Transaction {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*ledger.Transaction
	for _, t := range r.store.data.txs {
		if keep(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out
}

func inWindow(q repository.WindowQuery) func(*ledger.Transaction) bool {
	statuses := q.Filter.Statuses()
	return func(t *ledger.Transaction) bool {
		if t.UserID != q.UserID || t.TransactionDate.Before(q.First) || t.TransactionDate.After(q.Last) {
			return false
		}
		for _, s := range statuses {
			if t.Status == s {
				return true
			}
		}
		return false
	}
}

func oldestFirst(a, b *ledger.Transaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.Before(b.TransactionDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

type checkRepository struct {
	store *Store
}

func (r *checkRepository) Create(_ context.Context, c *source.Check) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.checks[c.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.store.data.checks[c.ID] = cloneCheck(c)
	return nil
}

func (r *checkRepository) Update(_ context.Context, c *source.Check) error {
	c.UpdatedAt = time.Now().UTC()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.checks[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.data.checks[c.ID] = cloneCheck(c)
	return nil
}

func (r *checkRepository) Get(_ context.Context, id uuid.UUID) (*source.Check, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.data.checks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCheck(c), nil
}

func (r *checkRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*source.Check, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*source.Check
	for _, c := range r.store.data.checks {
		if c.UserID == userID {
			out = append(out, cloneCheck(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

type cardPurchaseRepository struct {
	store *Store
}

func (r *cardPurchaseRepository) Create(_ context.Context, p *source.CardPurchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.purchases[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.store.data.purchases[p.ID] = &cp
	return nil
}

func (r *cardPurchaseRepository) Get(_ context.Context, id uuid.UUID) (*source.CardPurchase, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.data.purchases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *cardPurchaseRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.data.purchases[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.data.purchases, id)
	return nil
}

func (r *cardPurchaseRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*source.CardPurchase, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*source.CardPurchase
	for _, p := range r.store.data.purchases {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out, nil
}
