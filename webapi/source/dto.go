package source

import (
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/budgee/family/webapi/common"
	"github.com/shopspring/decimal"
)

// SourceRequest is the body of create and edit. Variant fields are ignored for
// kinds that do not use them.
type SourceRequest struct {
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description" validate:"max=1000"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	BillingCycle string          `json:"billing_cycle" validate:"omitempty,oneof=weekly monthly quarterly yearly"`
	StartDate    string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	NextDueDate  string          `json:"next_due_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Category     string          `json:"category" validate:"max=100"`

	EmployerName string `json:"employer_name" validate:"max=255"`
	Lender       string `json:"lender" validate:"max=255"`

	TotalAmount          decimal.Decimal `json:"total_amount"`
	InstallmentAmount    decimal.Decimal `json:"installment_amount"`
	NumberOfInstallments int             `json:"number_of_installments" validate:"gte=0"`
	InstallmentsPaid     int             `json:"installments_paid" validate:"gte=0"`
	ProductCategory      string          `json:"product_category" validate:"max=100"`
}

// ToggleRequest switches a source on or off.
type ToggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (r *SourceRequest) toInput(kind source.Kind) (lifecycle.SourceInput, error) {
	start, err := common.ParseDate(r.StartDate)
	if err != nil {
		return lifecycle.SourceInput{}, err
	}
	next, err := common.ParseDate(r.NextDueDate)
	if err != nil {
		return lifecycle.SourceInput{}, err
	}
	end, err := common.ParseDate(r.EndDate)
	if err != nil {
		return lifecycle.SourceInput{}, err
	}
	cycle := schedule.Monthly
	if r.BillingCycle != "" {
		if cycle, err = schedule.ParseCycle(r.BillingCycle); err != nil {
			return lifecycle.SourceInput{}, err
		}
	}
	in := lifecycle.SourceInput{
		Kind:                 kind,
		Name:                 r.Name,
		Description:          r.Description,
		Amount:               r.Amount,
		Currency:             r.Currency,
		Cycle:                cycle,
		NextDueDate:          next,
		EndDate:              end,
		Category:             r.Category,
		EmployerName:         r.EmployerName,
		Lender:               r.Lender,
		TotalAmount:          r.TotalAmount,
		InstallmentAmount:    r.InstallmentAmount,
		NumberOfInstallments: r.NumberOfInstallments,
		InstallmentsPaid:     r.InstallmentsPaid,
		ProductCategory:      r.ProductCategory,
	}
	if start != nil {
		in.StartDate = *start
	}
	return in, nil
}

// SourceResponse is the wire view of a recurring source.
type SourceResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	BillingCycle string `json:"billing_cycle"`
	StartDate    string `json:"start_date"`
	NextDueDate  string `json:"next_due_date"`
	EndDate      string `json:"end_date,omitempty"`
	IsActive     bool   `json:"is_active"`
	Category     string `json:"category"`

	EmployerName string `json:"employer_name,omitempty"`
	Lender       string `json:"lender,omitempty"`
	IsTerminated bool   `json:"is_terminated,omitempty"`

	InstallmentAmount    string `json:"installment_amount,omitempty"`
	NumberOfInstallments int    `json:"number_of_installments,omitempty"`
	InstallmentsPaid     int    `json:"installments_paid,omitempty"`
	IsCompleted          bool   `json:"is_completed,omitempty"`
}

// ToSourceResponse maps a domain source to its wire view.
func ToSourceResponse(s *source.Source) SourceResponse {
	resp := SourceResponse{
		ID:           s.ID.String(),
		Kind:         s.Kind.String(),
		Name:         s.Name,
		Description:  s.Description,
		Amount:       s.Amount.StringFixed(2),
		Currency:     s.Currency,
		BillingCycle: s.Cycle.String(),
		StartDate:    common.FormatDate(&s.StartDate),
		NextDueDate:  common.FormatDate(&s.NextDueDate),
		EndDate:      common.FormatDate(s.EndDate),
		IsActive:     s.IsActive,
		Category:     s.CategorySnapshot(),
	}
	if s.Revenue != nil {
		resp.EmployerName = s.Revenue.EmployerName
	}
	if s.Credit != nil {
		resp.Lender = s.Credit.Lender
		resp.IsTerminated = s.Credit.IsTerminated
	}
	if i := s.Installment; i != nil {
		resp.InstallmentAmount = i.InstallmentAmount.StringFixed(2)
		resp.NumberOfInstallments = i.NumberOfInstallments
		resp.InstallmentsPaid = i.InstallmentsPaid
		resp.IsCompleted = i.IsCompleted
	}
	return resp
}
