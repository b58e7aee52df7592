// Package source describes the financial sources that feed the ledger: four
// recurring variants (revenue, subscription, credit, installment) and two one-off
// events (check, card purchase).
package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the discriminator stored in the ledger's source_type column.
// Values are stable and case-sensitive.
type Kind string

const (
	KindRevenue      Kind = "revenue"
	KindSubscription Kind = "subscription"
	KindCredit       Kind = "credit"
	KindInstallment  Kind = "installment"

	KindCheck        Kind = "check"
	KindCardPurchase Kind = "card_purchase"
)

// RecurringKinds lists the kinds handled by the projector and the daily advancer.
var RecurringKinds = []Kind{KindRevenue, KindSubscription, KindCredit, KindInstallment}

// Recurring reports whether k is one of the four recurring variants.
func (k Kind) Recurring() bool {
	switch k {
	case KindRevenue, KindSubscription, KindCredit, KindInstallment:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k.Recurring() || k == KindCheck || k == KindCardPurchase
}

func (k Kind) String() string { return string(k) }

// ParseKind converts user input to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownKind, s)
	}
	return k, nil
}

// Category snapshots used when the source carries no category of its own.
const (
	DefaultRevenueCategory     = "Autres revenus"
	CreditCategory             = "Crédit"
	DefaultInstallmentCategory = "Paiement échelonné"
	CheckCategory              = "Chèque"
)

// Source is a recurring financial source. Exactly one of the variant payloads is
// set for revenue, credit and installment kinds; subscriptions have none.
type Source struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Kind        Kind
	Name        string
	Description string
	Amount      decimal.Decimal
	Currency    string
	Cycle       schedule.Cycle
	StartDate   time.Time
	NextDueDate time.Time
	EndDate     *time.Time
	IsActive    bool
	Category    string

	Revenue     *Revenue
	Credit      *Credit
	Installment *Installment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revenue holds revenue-specific fields.
type Revenue struct {
	EmployerName string
}

// Credit holds credit-specific fields.
type Credit struct {
	Lender       string
	IsTerminated bool
}

// Installment holds fields of a purchase paid in N monthly installments.
type Installment struct {
	TotalAmount          decimal.Decimal
	InstallmentAmount    decimal.Decimal
	NumberOfInstallments int
	InstallmentsPaid     int
	ProductCategory      string
	IsCompleted          bool
}

// Remaining returns the number of installments still to be realised.
func (i *Installment) Remaining() int {
	if i == nil {
		return 0
	}
	if r := i.NumberOfInstallments - i.InstallmentsPaid; r > 0 {
		return r
	}
	return 0
}

// IsPositive reports the ledger sign of the source: revenues add, everything else subtracts.
func (s *Source) IsPositive() bool {
	return s.Kind == KindRevenue
}

// PeriodAmount is the amount realised at each occurrence.
func (s *Source) PeriodAmount() decimal.Decimal {
	if s.Kind == KindInstallment && s.Installment != nil {
		return s.Installment.InstallmentAmount
	}
	return s.Amount
}

// CategorySnapshot is the category label frozen onto ledger rows.
func (s *Source) CategorySnapshot() string {
	switch s.Kind {
	case KindRevenue:
		if s.Revenue != nil && s.Revenue.EmployerName != "" {
			return s.Revenue.EmployerName
		}
		return DefaultRevenueCategory
	case KindCredit:
		return CreditCategory
	case KindInstallment:
		if s.Installment != nil && s.Installment.ProductCategory != "" {
			return s.Installment.ProductCategory
		}
		return DefaultInstallmentCategory
	}
	return s.Category
}

// Series returns the occurrence schedule of the source.
func (s *Source) Series() schedule.Series {
	return schedule.Series{Start: s.StartDate, Cycle: s.Cycle}
}

// Ended reports whether d lies after the source's end date.
func (s *Source) Ended(d time.Time) bool {
	return s.EndDate != nil && d.After(*s.EndDate)
}

// Normalize coerces derived fields: dates lose their clock part, installments are
// monthly, and variant payloads exist for their kinds.
func (s *Source) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	s.StartDate = schedule.Normalize(s.StartDate)
	s.NextDueDate = schedule.Normalize(s.NextDueDate)
	if s.EndDate != nil {
		end := schedule.Normalize(*s.EndDate)
		s.EndDate = &end
	}
	switch s.Kind {
	case KindRevenue:
		if s.Revenue == nil {
			s.Revenue = &Revenue{}
		}
	case KindCredit:
		if s.Credit == nil {
			s.Credit = &Credit{}
		}
	case KindInstallment:
		s.Cycle = schedule.Monthly
		if s.Installment == nil {
			s.Installment = &Installment{}
		}
		if s.Installment.InstallmentAmount.IsZero() && s.Installment.NumberOfInstallments > 0 {
			s.Installment.InstallmentAmount = s.Installment.TotalAmount.
				DivRound(decimal.NewFromInt(int64(s.Installment.NumberOfInstallments)), 2)
		}
		if s.Amount.IsZero() {
			s.Amount = s.Installment.TotalAmount
		}
	}
	if s.NextDueDate.IsZero() {
		s.NextDueDate = s.StartDate
	}
}

// Validate checks the invariants a source must satisfy before it reaches the ledger.
func (s *Source) Validate() error {
	if !s.Kind.Recurring() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, s.Kind)
	}
	if s.Name == "" {
		return domain.ErrMissingName
	}
	if s.Currency == "" {
		return domain.ErrMissingCurrency
	}
	if !s.Cycle.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCycle, s.Cycle)
	}
	if s.StartDate.IsZero() {
		return domain.ErrMissingStartDate
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return domain.ErrEndBeforeStart
	}
	if !s.Amount.IsPositive() {
		return domain.ErrAmountMustBePositive
	}
	if s.Kind == KindInstallment {
		i := s.Installment
		if i == nil || i.NumberOfInstallments <= 0 {
			return domain.ErrInvalidInstallmentCount
		}
		if i.InstallmentsPaid < 0 || i.InstallmentsPaid > i.NumberOfInstallments {
			return domain.ErrInstallmentsPaidExceedsTotal
		}
		if !i.InstallmentAmount.IsPositive() {
			return domain.ErrAmountMustBePositive
		}
	}
	return nil
}
