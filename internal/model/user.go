package model

import "time"

// User represents a user in the system. Tokens is the prepaid credit balance;
// it is only ever mutated through the settlement credit and generation debit
// paths, both of which run inside a database transaction.
type User struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Tokens        int       `db:"tokens" json:"tokens"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	Role          string    `db:"role" json:"role"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
