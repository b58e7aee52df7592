package ledger

import (
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/webapi/common"
)

// StatusRequest sets the status of one row.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed"`
}

// BulkPointRequest points or unpoints every row of a month matching a filter.
type BulkPointRequest struct {
	Year    int    `json:"year" validate:"required,gte=1970,lte=9999"`
	Month   int    `json:"month" validate:"required,gte=1,lte=12"`
	Status  string `json:"status" validate:"omitempty,oneof=all pending completed"`
	Pointed *bool  `json:"pointed" validate:"required"`
}

// TransactionResponse is the wire view of a ledger row.
type TransactionResponse struct {
	ID               string `json:"id"`
	TransactionDate  string `json:"transaction_date"`
	SourceType       string `json:"source_type"`
	SourceID         string `json:"source_id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	IsPositive       bool   `json:"is_positive"`
	CategorySnapshot string `json:"category_snapshot"`
	IsPointed        bool   `json:"is_pointed"`
	Status           string `json:"status"`
	Balance          string `json:"balance,omitempty"`
}

// ToTransactionResponse maps a ledger row to its wire view.
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID.String(),
		TransactionDate:  common.FormatDate(&t.TransactionDate),
		SourceType:       t.SourceType.String(),
		SourceID:         t.SourceID.String(),
		Name:             t.Name,
		Description:      t.Description,
		Amount:           t.Amount.StringFixed(2),
		Currency:         t.Currency,
		IsPositive:       t.IsPositive,
		CategorySnapshot: t.CategorySnapshot,
		IsPointed:        t.IsPointed,
		Status:           string(t.Status),
	}
}

// BalanceResponse is the wire view of a monthly window.
type BalanceResponse struct {
	From         string                `json:"from"`
	To           string                `json:"to"`
	Status       string                `json:"status"`
	TotalIn      string                `json:"total_in"`
	TotalOut     string                `json:"total_out"`
	Net          string                `json:"net"`
	Transactions []TransactionResponse `json:"transactions"`
}

// ToBalanceResponse maps a window, rows newest first with their running balance.
func ToBalanceResponse(w *ledger.Window) BalanceResponse {
	resp := BalanceResponse{
		From:         common.FormatDate(&w.First),
		To:           common.FormatDate(&w.Last),
		Status:       string(w.Filter),
		TotalIn:      w.TotalIn.StringFixed(2),
		TotalOut:     w.TotalOut.StringFixed(2),
		Net:          w.Net.StringFixed(2),
		Transactions: make([]TransactionResponse, 0, len(w.Rows)),
	}
	for _, r := range w.Rows {
		tr := ToTransactionResponse(r.Transaction)
		tr.Balance = r.Balance.StringFixed(2)
		resp.Transactions = append(resp.Transactions, tr)
	}
	return resp
}
