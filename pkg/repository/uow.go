package repository

import (
	"context"
	"reflect"
)

// UnitOfWork defines the contract for transactional work and type-safe repository access.
//
// GetRepository is part of UnitOfWork so that every repository used inside Do shares
// the same DB session, which is what makes a ledger mutation commit or roll back as
// a whole.
//
// Do runs the given function in a transaction boundary. Calling Do on the UnitOfWork
// handed to fn opens a nested boundary (a savepoint in SQL stores): an error returned
// from the nested function rolls back only the nested work.
//
//	repoAny, err := uow.GetRepository(reflect.TypeOf((*TransactionRepository)(nil)).Elem())
//	repo := repoAny.(TransactionRepository)
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested type, bound to the current transaction/session.
	GetRepository(repoType reflect.Type) (any, error)

	SourceRepository() (SourceRepository, error)
	TransactionRepository() (TransactionRepository, error)
	CheckRepository() (CheckRepository, error)
	CardPurchaseRepository() (CardPurchaseRepository, error)
}

// Repository types accepted by GetRepository.
var (
	SourceRepositoryType       = reflect.TypeOf((*SourceRepository)(nil)).Elem()
	TransactionRepositoryType  = reflect.TypeOf((*TransactionRepository)(nil)).Elem()
	CheckRepositoryType        = reflect.TypeOf((*CheckRepository)(nil)).Elem()
	CardPurchaseRepositoryType = reflect.TypeOf((*CardPurchaseRepository)(nil)).Elem()
)

// Typed resolves a repository of type T from uow.
func Typed[T any](uow UnitOfWork, repoType reflect.Type) (T, error) {
	var zero T
	repoAny, err := uow.GetRepository(repoType)
	if err != nil {
		return zero, err
	}
	repo, ok := repoAny.(T)
	if !ok {
		return zero, &UnsupportedRepositoryError{Type: repoType}
	}
	return repo, nil
}

// UnsupportedRepositoryError is returned when a UnitOfWork cannot build the requested repository.
type UnsupportedRepositoryError struct {
	Type reflect.Type
}

func (e *UnsupportedRepositoryError) Error() string {
	return "unsupported repository type: " + e.Type.String()
}
