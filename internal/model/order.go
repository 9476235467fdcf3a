package model

import "time"

// OrderStatus is the closed set of order states. Orders are created pending
// and move to exactly one terminal state; there is no re-entry.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderFailed
}

// CanTransition reports whether moving from s to next is an allowed edge.
// The only edges are pending to completed and pending to failed.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	return s == OrderPending && (next == OrderCompleted || next == OrderFailed)
}

// Order is a purchase intent tied to an external payment-gateway transaction.
// OrderID is the gateway-facing identifier and the natural key for settlement;
// Amount and Currency are copied from the catalog at creation time and only
// serve display and tamper checks, never crediting.
type Order struct {
	ID        string      `db:"id" json:"id"`
	OrderID   string      `db:"order_id" json:"order_id"`
	UserID    string      `db:"user_id" json:"user_id"`
	PackageID string      `db:"package_id" json:"package_id"`
	PlanName  string      `db:"plan_name" json:"plan_name"`
	Amount    int         `db:"amount" json:"amount"`
	Currency  string      `db:"currency" json:"currency"`
	Status    OrderStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderWithTokens joins an order with its package's token amount for the
// credit history view.
type OrderWithTokens struct {
	Order
	Tokens int `db:"tokens" json:"tokens"`
}
