package oneoff

import (
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/webapi/common"
	"github.com/shopspring/decimal"
)

// IssueCheckRequest adds a check to the checkbook.
type IssueCheckRequest struct {
	Number string `json:"number" validate:"required,max=50"`
}

// UseCheckRequest records a check written to a payee.
type UseCheckRequest struct {
	Payee       string          `json:"payee" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"max=1000"`
}

// CardPurchaseRequest records a one-off card payment.
type CardPurchaseRequest struct {
	PurchaseDate string          `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	MerchantName string          `json:"merchant_name" validate:"required,max=255"`
	Category     string          `json:"category" validate:"max=100"`
	Description  string          `json:"description" validate:"max=1000"`
}

// CheckResponse is the wire view of a check.
type CheckResponse struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Status      string `json:"status"`
	CheckDate   string `json:"check_date,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Payee       string `json:"payee,omitempty"`
	Description string `json:"description,omitempty"`
}

// ToCheckResponse maps a check to its wire view.
func ToCheckResponse(c *source.Check) CheckResponse {
	resp := CheckResponse{
		ID:          c.ID.String(),
		Number:      c.Number,
		Status:      string(c.Status),
		CheckDate:   common.FormatDate(c.CheckDate),
		Currency:    c.Currency,
		Payee:       c.Payee,
		Description: c.Description,
	}
	if !c.Amount.IsZero() {
		resp.Amount = c.Amount.StringFixed(2)
	}
	return resp
}

// CardPurchaseResponse is the wire view of a card purchase.
type CardPurchaseResponse struct {
	ID           string `json:"id"`
	PurchaseDate string `json:"purchase_date"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	MerchantName string `json:"merchant_name"`
	Category     string `json:"category,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ToCardPurchaseResponse maps a card purchase to its wire view.
func ToCardPurchaseResponse(p *source.CardPurchase) CardPurchaseResponse {
	return CardPurchaseResponse{
		ID:           p.ID.String(),
		PurchaseDate: common.FormatDate(&p.PurchaseDate),
		Amount:       p.Amount.StringFixed(2),
		Currency:     p.Currency,
		MerchantName: p.MerchantName,
		Category:     p.Category,
		Description:  p.Description,
	}
}
