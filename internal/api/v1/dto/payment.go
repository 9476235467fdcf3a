package dto

import "time"

// CreateOrderDTO is used for incoming order creation requests. Pricing is
// intentionally absent: the amount always comes from the catalog.
type CreateOrderDTO struct {
	PackageID string `json:"package_id" validate:"required"`
}

// CreateOrderResponseDTO is returned after an order and its payment link are
// created.
type CreateOrderResponseDTO struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Amount     int    `json:"amount"`
	Currency   string `json:"currency"`
	PlanName   string `json:"plan_name"`
}

// VerifyOrderDTO is used for incoming payment verification requests.
type VerifyOrderDTO struct {
	OrderID string `json:"order_id" validate:"required"`
}

// VerifyOrderResponseDTO reports the settlement outcome. AlreadyProcessed is
// set when a previous attempt settled the order; Retryable when the gateway
// could not be consulted and the order was left pending.
type VerifyOrderResponseDTO struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
	Message          string `json:"message"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	TokensAdded      int    `json:"tokens_added"`
	Balance          int    `json:"balance"`
}

// PaymentResponseDTO is one row of the payment history.
type PaymentResponseDTO struct {
	OrderID       string     `json:"order_id"`
	PlanName      string     `json:"plan_name"`
	Amount        int        `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	PaymentTime   *time.Time `json:"payment_time,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
