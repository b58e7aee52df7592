package repository

import (
	"context"
	"time"

	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type checkRepository struct {
	db *gorm.DB
}

// NewCheckRepository returns a CheckRepository backed by the checks table.
func NewCheckRepository(db *gorm.DB) repository.CheckRepository {
	return &checkRepository{db: db}
}

func (r *checkRepository) Create(ctx context.Context, c *source.Check) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m := checkModel(c)
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	}); err != nil {
		return err
	}
	c.CreatedAt, c.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *checkRepository) Update(ctx context.Context, c *source.Check) error {
	c.UpdatedAt = time.Now().UTC()
	return WrapError(func() error {
		return r.db.WithContext(ctx).Save(checkModel(c)).Error
	})
}

func (r *checkRepository) Get(ctx context.Context, id uuid.UUID) (*source.Check, error) {
	var m Check
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *checkRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*source.Check, error) {
	var rows []Check
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("number").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*source.Check, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

type cardPurchaseRepository struct {
	db *gorm.DB
}

// NewCardPurchaseRepository returns a CardPurchaseRepository backed by the card_purchases table.
func NewCardPurchaseRepository(db *gorm.DB) repository.CardPurchaseRepository {
	return &cardPurchaseRepository{db: db}
}

func (r *cardPurchaseRepository) Create(ctx context.Context, p *source.CardPurchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m := cardPurchaseModel(p)
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(m).Error
	}); err != nil {
		return err
	}
	p.CreatedAt = m.CreatedAt
	return nil
}

func (r *cardPurchaseRepository) Get(ctx context.Context, id uuid.UUID) (*source.CardPurchase, error) {
	var m CardPurchase
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return m.toDomain(), nil
}

func (r *cardPurchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&CardPurchase{})
	return notFoundUnless(res, "delete card purchase")
}

func (r *cardPurchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*source.CardPurchase, error) {
	var rows []CardPurchase
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("purchase_date DESC").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*source.CardPurchase, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
