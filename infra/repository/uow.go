package repository

import (
	"context"
	"reflect"

	"github.com/budgee/family/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides the transaction boundary and repository access in one abstraction.
// Repositories returned by GetRepository are bound to the UoW's session, so every
// write made inside Do commits or rolls back together.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			repository.SourceRepositoryType:       func(db *gorm.DB) any { return NewSourceRepository(db) },
			repository.TransactionRepositoryType:  func(db *gorm.DB) any { return NewTransactionRepository(db) },
			repository.CheckRepositoryType:        func(db *gorm.DB) any { return NewCheckRepository(db) },
			repository.CardPurchaseRepositoryType: func(db *gorm.DB) any { return NewCardPurchaseRepository(db) },
		},
	}
}

// Do runs fn in a database transaction. Called on a UoW that is already inside a
// transaction, it opens a savepoint instead, and an error from fn rolls back to it.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.session().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry})
	})
}

// GetRepository returns a repository of the requested type bound to the current session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, &repository.UnsupportedRepositoryError{Type: repoType}
	}
	return constructor(u.session()), nil
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
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
