package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	// or lies outside the caller's ownership scope.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrConflict is returned when a ledger upsert keeps colliding with a competing row.
	ErrConflict = errors.New("conflicting ledger row")
	// ErrUnauthorized is returned when a user is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
)

// Validation errors. Each wraps ErrValidation.
var (
	ErrUnknownCycle                 = Invalid("unknown billing cycle")
	ErrUnknownKind                  = Invalid("unknown source kind")
	ErrAmountMustBePositive         = Invalid("amount must be positive")
	ErrInstallmentsPaidExceedsTotal = Invalid("installments paid exceeds number of installments")
	ErrInvalidInstallmentCount      = Invalid("number of installments must be positive")
	ErrInstallmentsBelowRecorded    = Invalid("number of installments is below the installments already recorded")
	ErrInstallmentCapReached        = Invalid("installment already holds all its installments")
	ErrMissingName                  = Invalid("name is required")
	ErrMissingCurrency              = Invalid("currency is required")
	ErrMissingStartDate             = Invalid("start date is required")
	ErrEndBeforeStart               = Invalid("end date is before start date")
	ErrInvalidStatus                = Invalid("invalid transaction status")
	ErrInvalidStatusTransition      = Invalid("status not allowed for transaction date")
	ErrInvalidCancelMode            = Invalid("invalid cancellation mode")
	ErrInvalidMonth                 = Invalid("month must be between 1 and 12")
	ErrCheckNotAvailable            = Invalid("check is not available")
	ErrCheckNotUsed                 = Invalid("check is not used")
)

// Invalid builds an error that satisfies errors.Is(err, ErrValidation).
func Invalid(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return ErrValidation.Error() + ": " + e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }
