package model

import "time"

// TokenPackage is a purchasable credit bundle from the catalog. Packages are
// seeded by an administrator process and immutable from the request path; any
// amount flowing through an Order must equal some package's Price at
// validation time (server re-fetch, never a client echo).
type TokenPackage struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Tokens      int       `db:"tokens" json:"tokens"`
	Price       int       `db:"price" json:"price"`
	Currency    string    `db:"currency" json:"currency"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
