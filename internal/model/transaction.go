package model

import "time"

// TransactionType distinguishes ledger entries in the synthesized history.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction is a synthesized ledger entry. There is no transactions table;
// entries are derived from completed orders and generation records.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      int               `json:"amount"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	Details     map[string]string `json:"details,omitempty"`
}
