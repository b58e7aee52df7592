package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDatesUpdated summarises what the daily job changed for one user. It is
// handed to the external mailer.
type PaymentDatesUpdated struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	RunDate    time.Time         `json:"run_date"`
	Items      []PaymentDateItem `json:"items"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// PaymentDateItem describes one source touched by the run.
type PaymentDateItem struct {
	SourceType  string          `json:"source_type"`
	SourceID    uuid.UUID       `json:"source_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IsPositive  bool            `json:"is_positive"`
	Realised    []time.Time     `json:"realised"`
	NextDueDate time.Time       `json:"next_due_date"`
	// Completed is set when the last installment was realised.
	Completed bool `json:"completed,omitempty"`
	// Terminated is set when the source passed its end date.
	Terminated bool `json:"terminated,omitempty"`
}

func (e PaymentDatesUpdated) Type() string { return EventTypePaymentDatesUpdated.String() }

// NewPaymentDatesUpdated builds the event for userID.
func NewPaymentDatesUpdated(userID uuid.UUID, runDate time.Time, items []PaymentDateItem) *PaymentDatesUpdated {
	return &PaymentDatesUpdated{
		ID:         uuid.New(),
		UserID:     userID,
		RunDate:    runDate,
		Items:      items,
		OccurredAt: time.Now().UTC(),
	}
}
