package lifecycle

import (
	"time"

	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceInput carries the user-editable fields of a recurring source. Variant fields
// are ignored for kinds that do not use them.
type SourceInput struct {
	Kind        source.Kind
	Name        string
	Description string
	Amount      decimal.Decimal
	Currency    string
	Cycle       schedule.Cycle
	StartDate   time.Time
	NextDueDate *time.Time
	EndDate     *time.Time
	Category    string

	EmployerName string
	Lender       string

	TotalAmount          decimal.Decimal
	InstallmentAmount    decimal.Decimal
	NumberOfInstallments int
	InstallmentsPaid     int
	ProductCategory      string
}

func (in SourceInput) newSource(userID uuid.UUID) *source.Source {
	s := &source.Source{
		UserID:   userID,
		Kind:     in.Kind,
		IsActive: true,
	}
	in.applyTo(s)
	if s.Kind == source.KindInstallment {
		s.Installment.InstallmentsPaid = in.InstallmentsPaid
		s.NextDueDate = s.Series().At(in.InstallmentsPaid)
	}
	if in.NextDueDate != nil {
		s.NextDueDate = *in.NextDueDate
	}
	s.Normalize()
	return s
}

// applyTo copies the editable fields onto s. The kind and the installment counter
// are not editable.
func (in SourceInput) applyTo(s *source.Source) {
	s.Name = in.Name
	s.Description = in.Description
	s.Amount = in.Amount
	s.Currency = in.Currency
	s.Cycle = in.Cycle
	s.StartDate = in.StartDate
	s.EndDate = in.EndDate
	s.Category = in.Category
	switch s.Kind {
	case source.KindRevenue:
		s.Revenue = &source.Revenue{EmployerName: in.EmployerName}
	case source.KindCredit:
		terminated := s.Credit != nil && s.Credit.IsTerminated
		s.Credit = &source.Credit{Lender: in.Lender, IsTerminated: terminated}
	case source.KindInstallment:
		prev := s.Installment
		s.Installment = &source.Installment{
			TotalAmount:          in.TotalAmount,
			InstallmentAmount:    in.InstallmentAmount,
			NumberOfInstallments: in.NumberOfInstallments,
			ProductCategory:      in.ProductCategory,
		}
		if prev != nil {
			s.Installment.InstallmentsPaid = prev.InstallmentsPaid
			s.Installment.IsCompleted = prev.IsCompleted
		}
		s.Amount = in.TotalAmount
	}
	s.Normalize()
}

// CheckUse describes a check written to a payee.
type CheckUse struct {
	Payee       string
	Amount      decimal.Decimal
	Currency    string
	Date        time.Time
	Description string
}

// CardPurchaseInput describes a one-off card payment.
type CardPurchaseInput struct {
	PurchaseDate time.Time
	Amount       decimal.Decimal
	Currency     string
	MerchantName string
	Category     string
	Description  string
}
