package model

import "time"

// PaymentStatus is the closed set of settlement outcomes.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is the settlement record for an order. At most one exists per
// external order id: the unique constraint on OrderID is the idempotency
// gate that guarantees tokens are credited exactly once.
type Payment struct {
	ID              string        `db:"id" json:"id"`
	OrderID         string        `db:"order_id" json:"order_id"`
	OrderInternalID string        `db:"order_internal_id" json:"-"`
	Amount          int           `db:"amount" json:"amount"`
	Currency        string        `db:"currency" json:"currency"`
	Status          PaymentStatus `db:"status" json:"status"`
	PaymentMethod   *string       `db:"payment_method" json:"payment_method,omitempty"`
	PaymentTime     *time.Time    `db:"payment_time" json:"payment_time,omitempty"`
	FailureReason   *string       `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// PaymentWithPlan joins a payment with its order's plan name for history views.
type PaymentWithPlan struct {
	Payment
	PlanName string `db:"plan_name" json:"plan_name"`
}
