package source_test

import (
	"errors"
	"testing"
	"time"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscription() *source.Source {
	return &source.Source{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Kind:      source.KindSubscription,
		Name:      " Netflix ",
		Amount:    decimal.RequireFromString("9.99"),
		Currency:  "eur",
		Cycle:     schedule.Monthly,
		StartDate: time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC),
		Category:  "Streaming",
		IsActive:  true,
	}
}

func TestNormalize(t *testing.T) {
	s := newSubscription()
	s.Normalize()
	assert.Equal(t, "Netflix", s.Name)
	assert.Equal(t, "EUR", s.Currency)
	assert.Equal(t, schedule.Date(2024, time.March, 15), s.StartDate)
	assert.Equal(t, s.StartDate, s.NextDueDate)
	require.NoError(t, s.Validate())
}

func TestNormalize_InstallmentForcesMonthly(t *testing.T) {
	s := &source.Source{
		Kind:      source.KindInstallment,
		Name:      "Oven",
		Currency:  "EUR",
		Cycle:     schedule.Weekly,
		StartDate: schedule.Date(2024, time.April, 1),
		Installment: &source.Installment{
			TotalAmount:          decimal.NewFromInt(600),
			NumberOfInstallments: 3,
		},
	}
	s.Normalize()
	assert.Equal(t, schedule.Monthly, s.Cycle)
	assert.True(t, decimal.NewFromInt(200).Equal(s.Installment.InstallmentAmount))
	assert.True(t, decimal.NewFromInt(600).Equal(s.Amount))
	assert.True(t, decimal.NewFromInt(200).Equal(s.PeriodAmount()))
	assert.Equal(t, 3, s.Installment.Remaining())
	require.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*source.Source)
		want   error
	}{
		{"unknown cycle", func(s *source.Source) { s.Cycle = "daily" }, domain.ErrUnknownCycle},
		{"negative amount", func(s *source.Source) { s.Amount = decimal.NewFromInt(-5) }, domain.ErrAmountMustBePositive},
		{"missing name", func(s *source.Source) { s.Name = "" }, domain.ErrMissingName},
		{"missing currency", func(s *source.Source) { s.Currency = "" }, domain.ErrMissingCurrency},
		{"one-off kind", func(s *source.Source) { s.Kind = source.KindCheck }, domain.ErrUnknownKind},
		{"end before start", func(s *source.Source) {
			end := schedule.Date(2024, time.January, 1)
			s.EndDate = &end
		}, domain.ErrEndBeforeStart},
		{"installments paid exceeds total", func(s *source.Source) {
			s.Kind = source.KindInstallment
			s.Installment = &source.Installment{
				InstallmentAmount:    decimal.NewFromInt(10),
				NumberOfInstallments: 2,
				InstallmentsPaid:     3,
			}
		}, domain.ErrInstallmentsPaidExceedsTotal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newSubscription()
			s.Normalize()
			tc.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestSignAndCategory(t *testing.T) {
	rev := &source.Source{Kind: source.KindRevenue}
	rev.Normalize()
	assert.True(t, rev.IsPositive())
	assert.Equal(t, source.DefaultRevenueCategory, rev.CategorySnapshot())
	rev.Revenue.EmployerName = "ACME"
	assert.Equal(t, "ACME", rev.CategorySnapshot())

	credit := &source.Source{Kind: source.KindCredit}
	assert.False(t, credit.IsPositive())
	assert.Equal(t, source.CreditCategory, credit.CategorySnapshot())

	sub := newSubscription()
	assert.False(t, sub.IsPositive())
	assert.Equal(t, "Streaming", sub.CategorySnapshot())
}

func TestParseKind(t *testing.T) {
	k, err := source.ParseKind("Installment")
	require.NoError(t, err)
	assert.Equal(t, source.KindInstallment, k)
	assert.True(t, k.Recurring())

	k, err = source.ParseKind("card_purchase")
	require.NoError(t, err)
	assert.False(t, k.Recurring())

	_, err = source.ParseKind("loan")
	assert.True(t, errors.Is(err, domain.ErrUnknownKind))
}

func TestCheckLifecycle(t *testing.T) {
	c := &source.Check{Number: "0001", Status: source.CheckAvailable}
	err := c.Use("Plumber", decimal.NewFromInt(50), "eur", time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.Equal(t, source.CheckUsed, c.Status)
	assert.Equal(t, "EUR", c.Currency)
	assert.Equal(t, schedule.Date(2024, time.June, 20), *c.CheckDate)

	err = c.Use("Someone", decimal.NewFromInt(10), "EUR", time.Now(), "")
	assert.True(t, errors.Is(err, domain.ErrCheckNotAvailable))

	c.Reset()
	assert.Equal(t, source.CheckAvailable, c.Status)
	assert.Nil(t, c.CheckDate)
}

func TestCardPurchaseValidate(t *testing.T) {
	p := &source.CardPurchase{
		PurchaseDate: time.Now(),
		Amount:       decimal.RequireFromString("12.50"),
		Currency:     "EUR",
		MerchantName: "Bakery",
	}
	require.NoError(t, p.Validate())
	p.Amount = decimal.Zero
	assert.True(t, errors.Is(p.Validate(), domain.ErrAmountMustBePositive))
}
