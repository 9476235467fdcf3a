package dto

import "time"

// TransactionDTO is one entry of the synthesized token ledger.
type TransactionDTO struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Amount      int               `json:"amount"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	Details     map[string]string `json:"details,omitempty"`
}

// PaginationDTO describes the page of a list response.
type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// CreditSummaryDTO carries lifetime ledger totals alongside a history page.
type CreditSummaryDTO struct {
	TotalCreditsAdded int `json:"total_credits_added"`
	TotalCreditsUsed  int `json:"total_credits_used"`
	CurrentBalance    int `json:"current_balance"`
}

// CreditHistoryResponseDTO is the paginated ledger response.
type CreditHistoryResponseDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Pagination   PaginationDTO    `json:"pagination"`
	Summary      CreditSummaryDTO `json:"summary"`
}

// ProviderCreditsResponseDTO reports remaining provider-side credits.
type ProviderCreditsResponseDTO struct {
	Credits int `json:"credits"`
}
