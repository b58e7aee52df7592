package repository

import (
	"time"

	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceColumns are the columns shared by the four sources_* tables.
type SourceColumns struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"size:255;not null"`
	Description  string          `gorm:"type:text"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	BillingCycle string          `gorm:"type:varchar(16);not null"`
	StartDate    time.Time       `gorm:"type:date;not null"`
	NextDueDate  time.Time       `gorm:"type:date;not null;index"`
	EndDate      *time.Time      `gorm:"type:date"`
	IsActive     bool            `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Revenue is a row of sources_revenues.
type Revenue struct {
	SourceColumns
	EmployerName string `gorm:"size:255"`
}

func (Revenue) TableName() string { return "sources_revenues" }

// Subscription is a row of sources_subscriptions.
type Subscription struct {
	SourceColumns
	Category string `gorm:"size:128"`
}

func (Subscription) TableName() string { return "sources_subscriptions" }

// Credit is a row of sources_credits.
type Credit struct {
	SourceColumns
	Lender       string `gorm:"size:255"`
	IsTerminated bool   `gorm:"not null"`
}

func (Credit) TableName() string { return "sources_credits" }

// Installment is a row of sources_installments.
type Installment struct {
	SourceColumns
	TotalAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	InstallmentAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	NumberOfInstallments int             `gorm:"not null"`
	InstallmentsPaid     int             `gorm:"not null"`
	ProductCategory      string          `gorm:"size:128"`
	IsCompleted          bool            `gorm:"not null"`
}

func (Installment) TableName() string { return "sources_installments" }

// Transaction is a row of the ledger.
type Transaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user_date,priority:1"`
	TransactionDate  time.Time       `gorm:"type:date;not null;index:idx_transactions_user_date,priority:2"`
	SourceType       string          `gorm:"type:varchar(32);not null"`
	SourceID         uuid.UUID       `gorm:"type:uuid;not null"`
	Name             string          `gorm:"size:255;not null"`
	Description      string          `gorm:"type:text"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	IsPositive       bool            `gorm:"not null"`
	CategorySnapshot string          `gorm:"size:128"`
	IsPointed        bool            `gorm:"not null"`
	Status           string          `gorm:"type:varchar(16);not null"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Transaction) TableName() string { return "transactions" }

// Check is a row of checks.
type Check struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Number      string          `gorm:"size:32;not null"`
	Status      string          `gorm:"type:varchar(16);not null"`
	CheckDate   *time.Time      `gorm:"type:date"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency    string          `gorm:"type:varchar(3)"`
	Payee       string          `gorm:"size:255"`
	Description string          `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Check) TableName() string { return "checks" }

// CardPurchase is a row of card_purchases.
type CardPurchase struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PurchaseDate time.Time       `gorm:"type:date;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	MerchantName string          `gorm:"size:255;not null"`
	Category     string          `gorm:"size:128"`
	Description  string          `gorm:"type:text"`
	CreatedAt    time.Time
}

func (CardPurchase) TableName() string { return "card_purchases" }

// --- Mappers ---

func columnsOf(s *source.Source) SourceColumns {
	return SourceColumns{
		ID:           s.ID,
		UserID:       s.UserID,
		Name:         s.Name,
		Description:  s.Description,
		Amount:       s.Amount,
		Currency:     s.Currency,
		BillingCycle: string(s.Cycle),
		StartDate:    s.StartDate,
		NextDueDate:  s.NextDueDate,
		EndDate:      s.EndDate,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (c *SourceColumns) toDomain(kind source.Kind) *source.Source {
	s := &source.Source{
		ID:          c.ID,
		UserID:      c.UserID,
		Kind:        kind,
		Name:        c.Name,
		Description: c.Description,
		Amount:      c.Amount,
		Currency:    c.Currency,
		Cycle:       schedule.Cycle(c.BillingCycle),
		StartDate:   schedule.Normalize(c.StartDate),
		NextDueDate: schedule.Normalize(c.NextDueDate),
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.EndDate != nil {
		end := schedule.Normalize(*c.EndDate)
		s.EndDate = &end
	}
	return s
}

func (m *Revenue) toDomain() *source.Source {
	s := m.SourceColumns.toDomain(source.KindRevenue)
	s.Revenue = &source.Revenue{EmployerName: m.EmployerName}
	return s
}

func (m *Subscription) toDomain() *source.Source {
	s := m.SourceColumns.toDomain(source.KindSubscription)
	s.Category = m.Category
	return s
}

func (m *Credit) toDomain() *source.Source {
	s := m.SourceColumns.toDomain(source.KindCredit)
	s.Credit = &source.Credit{Lender: m.Lender, IsTerminated: m.IsTerminated}
	return s
}

func (m *Installment) toDomain() *source.Source {
	s := m.SourceColumns.toDomain(source.KindInstallment)
	s.Installment = &source.Installment{
		TotalAmount:          m.TotalAmount,
		InstallmentAmount:    m.InstallmentAmount,
		NumberOfInstallments: m.NumberOfInstallments,
		InstallmentsPaid:     m.InstallmentsPaid,
		ProductCategory:      m.ProductCategory,
		IsCompleted:          m.IsCompleted,
	}
	return s
}

// sourceModel returns the table row for s.
func sourceModel(s *source.Source) (any, error) {
	cols := columnsOf(s)
	switch s.Kind {
	case source.KindRevenue:
		m := &Revenue{SourceColumns: cols}
		if s.Revenue != nil {
			m.EmployerName = s.Revenue.EmployerName
		}
		return m, nil
	case source.KindSubscription:
		return &Subscription{SourceColumns: cols, Category: s.Category}, nil
	case source.KindCredit:
		m := &Credit{SourceColumns: cols}
		if s.Credit != nil {
			m.Lender = s.Credit.Lender
			m.IsTerminated = s.Credit.IsTerminated
		}
		return m, nil
	case source.KindInstallment:
		m := &Installment{SourceColumns: cols}
		if i := s.Installment; i != nil {
			m.TotalAmount = i.TotalAmount
			m.InstallmentAmount = i.InstallmentAmount
			m.NumberOfInstallments = i.NumberOfInstallments
			m.InstallmentsPaid = i.InstallmentsPaid
			m.ProductCategory = i.ProductCategory
			m.IsCompleted = i.IsCompleted
		}
		return m, nil
	}
	return nil, unknownKind(s.Kind)
}

func transactionModel(t *ledger.Transaction) *Transaction {
	return &Transaction{
		ID:               t.ID,
		UserID:           t.UserID,
		TransactionDate:  t.TransactionDate,
		SourceType:       string(t.SourceType),
		SourceID:         t.SourceID,
		Name:             t.Name,
		Description:      t.Description,
		Amount:           t.Amount,
		Currency:         t.Currency,
		IsPositive:       t.IsPositive,
		CategorySnapshot: t.CategorySnapshot,
		IsPointed:        t.IsPointed,
		Status:           string(t.Status),
		Notes:            t.Notes,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func (m *Transaction) toDomain() *ledger.Transaction {
	return &ledger.Transaction{
		ID:               m.ID,
		UserID:           m.UserID,
		TransactionDate:  schedule.Normalize(m.TransactionDate),
		SourceType:       source.Kind(m.SourceType),
		SourceID:         m.SourceID,
		Name:             m.Name,
		Description:      m.Description,
		Amount:           m.Amount,
		Currency:         m.Currency,
		IsPositive:       m.IsPositive,
		CategorySnapshot: m.CategorySnapshot,
		IsPointed:        m.IsPointed,
		Status:           ledger.Status(m.Status),
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func checkModel(c *source.Check) *Check {
	return &Check{
		ID:          c.ID,
		UserID:      c.UserID,
		Number:      c.Number,
		Status:      string(c.Status),
		CheckDate:   c.CheckDate,
		Amount:      c.Amount,
		Currency:    c.Currency,
		Payee:       c.Payee,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m *Check) toDomain() *source.Check {
	c := &source.Check{
		ID:          m.ID,
		UserID:      m.UserID,
		Number:      m.Number,
		Status:      source.CheckStatus(m.Status),
		Amount:      m.Amount,
		Currency:    m.Currency,
		Payee:       m.Payee,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.CheckDate != nil {
		d := schedule.Normalize(*m.CheckDate)
		c.CheckDate = &d
	}
	return c
}

func cardPurchaseModel(p *source.CardPurchase) *CardPurchase {
	return &CardPurchase{
		ID:           p.ID,
		UserID:       p.UserID,
		PurchaseDate: p.PurchaseDate,
		Amount:       p.Amount,
		Currency:     p.Currency,
		MerchantName: p.MerchantName,
		Category:     p.Category,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
	}
}

func (m *CardPurchase) toDomain() *source.CardPurchase {
	return &source.CardPurchase{
		ID:           m.ID,
		UserID:       m.UserID,
		PurchaseDate: schedule.Normalize(m.PurchaseDate),
		Amount:       m.Amount,
		Currency:     m.Currency,
		MerchantName: m.MerchantName,
		Category:     m.Category,
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
	}
}
