package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sourceRow is implemented by the pointer types of the four sources_* models.
type sourceRow[M any] interface {
	*M
	TableName() string
	toDomain() *source.Source
}

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository returns a SourceRepository over the four sources_* tables.
func NewSourceRepository(db *gorm.DB) repository.SourceRepository {
	return &sourceRepository{db: db}
}

func unknownKind(k source.Kind) error {
	return fmt.Errorf("%w: %q", domain.ErrUnknownKind, k)
}

func (r *sourceRepository) Create(ctx context.Context, s *source.Source) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m, err := sourceModel(s)
	if err != nil {
		return err
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	})
}

func (r *sourceRepository) Update(ctx context.Context, s *source.Source) error {
	s.UpdatedAt = time.Now().UTC()
	m, err := sourceModel(s)
	if err != nil {
		return err
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Save(m).Error
	})
}

func (r *sourceRepository) Get(ctx context.Context, kind source.Kind, id uuid.UUID) (*source.Source, error) {
	switch kind {
	case source.KindRevenue:
		return getSource[Revenue](ctx, r.db, id)
	case source.KindSubscription:
		return getSource[Subscription](ctx, r.db, id)
	case source.KindCredit:
		return getSource[Credit](ctx, r.db, id)
	case source.KindInstallment:
		return getSource[Installment](ctx, r.db, id)
	}
	return nil, unknownKind(kind)
}

func (r *sourceRepository) Delete(ctx context.Context, kind source.Kind, id uuid.UUID) error {
	var m any
	switch kind {
	case source.KindRevenue:
		m = &Revenue{}
	case source.KindSubscription:
		m = &Subscription{}
	case source.KindCredit:
		m = &Credit{}
	case source.KindInstallment:
		m = &Installment{}
	default:
		return unknownKind(kind)
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(m)
	return notFoundUnless(res, "delete "+string(kind))
}

func (r *sourceRepository) ListByUser(ctx context.Context, userID uuid.UUID, kind source.Kind) ([]*source.Source, error) {
	kinds := source.RecurringKinds
	if kind != "" {
		kinds = []source.Kind{kind}
	}
	return r.listKinds(ctx, kinds, "user_id = ?", userID)
}

func (r *sourceRepository) ListDue(ctx context.Context, today time.Time) ([]*source.Source, error) {
	return r.listKinds(ctx, source.RecurringKinds, "is_active = ? AND next_due_date <= ?", true, today)
}

func (r *sourceRepository) ListActive(ctx context.Context) ([]*source.Source, error) {
	return r.listKinds(ctx, source.RecurringKinds, "is_active = ?", true)
}

func (r *sourceRepository) listKinds(ctx context.Context, kinds []source.Kind, query string, args ...any) ([]*source.Source, error) {
	var out []*source.Source
	for _, k := range kinds {
		var (
			found []*source.Source
			err   error
		)
		switch k {
		case source.KindRevenue:
			found, err = findSources[Revenue](ctx, r.db, query, args...)
		case source.KindSubscription:
			found, err = findSources[Subscription](ctx, r.db, query, args...)
		case source.KindCredit:
			found, err = findSources[Credit](ctx, r.db, query, args...)
		case source.KindInstallment:
			found, err = findSources[Installment](ctx, r.db, query, args...)
		default:
			return nil, unknownKind(k)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func getSource[M any, PM sourceRow[M]](ctx context.Context, db *gorm.DB, id uuid.UUID) (*source.Source, error) {
	var m M
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return PM(&m).toDomain(), nil
}

func findSources[M any, PM sourceRow[M]](ctx context.Context, db *gorm.DB, query string, args ...any) ([]*source.Source, error) {
	var rows []M
	if err := db.WithContext(ctx).Where(query, args...).Order("next_due_date, id").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*source.Source, 0, len(rows))
	for i := range rows {
		out = append(out, PM(&rows[i]).toDomain())
	}
	return out, nil
}
