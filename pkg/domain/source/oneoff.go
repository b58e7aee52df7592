package source

import (
	"strings"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckStatus is the lifecycle state of a check.
type CheckStatus string

const (
	CheckAvailable CheckStatus = "available"
	CheckUsed      CheckStatus = "used"
	CheckCancelled CheckStatus = "cancelled"
)

// Check is a paper check. Only a used check produces a ledger row.
type Check struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Number      string
	Status      CheckStatus
	CheckDate   *time.Time
	Amount      decimal.Decimal
	Currency    string
	Payee       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Use marks the check as written to payee.
func (c *Check) Use(payee string, amount decimal.Decimal, currency string, date time.Time, description string) error {
	if c.Status != CheckAvailable {
		return domain.ErrCheckNotAvailable
	}
	if !amount.IsPositive() {
		return domain.ErrAmountMustBePositive
	}
	payee = strings.TrimSpace(payee)
	if payee == "" {
		return domain.ErrMissingName
	}
	if currency = strings.ToUpper(strings.TrimSpace(currency)); currency == "" {
		return domain.ErrMissingCurrency
	}
	d := schedule.Normalize(date)
	c.Status = CheckUsed
	c.Payee = payee
	c.Amount = amount
	c.Currency = currency
	c.CheckDate = &d
	c.Description = description
	return nil
}

// Reset returns a used or cancelled check to the available pool.
func (c *Check) Reset() {
	c.Status = CheckAvailable
	c.Payee = ""
	c.Amount = decimal.Zero
	c.CheckDate = nil
	c.Description = ""
}

// CardPurchase is a one-off card payment. It always realises one completed ledger row.
type CardPurchase struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PurchaseDate time.Time
	Amount       decimal.Decimal
	Currency     string
	MerchantName string
	Category     string
	Description  string
	CreatedAt    time.Time
}

// Validate checks the purchase before it is recorded.
func (p *CardPurchase) Validate() error {
	if !p.Amount.IsPositive() {
		return domain.ErrAmountMustBePositive
	}
	if strings.TrimSpace(p.MerchantName) == "" {
		return domain.ErrMissingName
	}
	if strings.TrimSpace(p.Currency) == "" {
		return domain.ErrMissingCurrency
	}
	if p.PurchaseDate.IsZero() {
		return domain.ErrMissingStartDate
	}
	return nil
}
