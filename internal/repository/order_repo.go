package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"
)

// ErrOrderFinalized is returned when a status transition is attempted on an
// order that is no longer in the expected source state. Terminal states are
// final; attempting to leave one is a programming error upstream.
var ErrOrderFinalized = errors.New("order already finalized")

// OrderRepository persists purchase intents.
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	// GetByOrderID looks up an order by its external, gateway-facing id.
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	// ReplaceOrderID swaps the external id for the gateway's canonical link id.
	ReplaceOrderID(ctx context.Context, id, newOrderID string) error
	// Transition moves an order from one status to another. The WHERE clause
	// on the source status makes the transition conditional at commit time.
	Transition(ctx context.Context, id string, from, to model.OrderStatus) error
	// ListCompletedByUserID returns completed orders joined with the live
	// package token amount, newest first, for the credit history view.
	ListCompletedByUserID(ctx context.Context, userID string) ([]model.OrderWithTokens, error)
}

type orderRepo struct {
	db *sql.DB
}

// NewOrderRepo creates a new OrderRepository.
func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `
		INSERT INTO orders (order_id, user_id, package_id, plan_name, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, q, o.OrderID, o.UserID, o.PackageID, o.PlanName, o.Amount, o.Currency, o.Status).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	const q = `
		SELECT id, order_id, user_id, package_id, plan_name, amount, currency, status, created_at, updated_at
		FROM orders
		WHERE order_id = $1
	`
	var o model.Order
	row := r.db.QueryRowContext(ctx, q, orderID)
	if err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &o.PackageID, &o.PlanName, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order %s: %w", orderID, err)
	}
	return &o, nil
}

func (r *orderRepo) ReplaceOrderID(ctx context.Context, id, newOrderID string) error {
	const q = `UPDATE orders SET order_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id, newOrderID); err != nil {
		return fmt.Errorf("replace order id for %s: %w", id, err)
	}
	return nil
}

func (r *orderRepo) Transition(ctx context.Context, id string, from, to model.OrderStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal order transition %s to %s", from, to)
	}
	const q = `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q, id, from, to)
	if err != nil {
		return fmt.Errorf("transition order %s to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderFinalized
	}
	return nil
}

func (r *orderRepo) ListCompletedByUserID(ctx context.Context, userID string) ([]model.OrderWithTokens, error) {
	const q = `
		SELECT o.id, o.order_id, o.user_id, o.package_id, o.plan_name, o.amount, o.currency, o.status,
		       o.created_at, o.updated_at, COALESCE(p.tokens, 0)
		FROM orders o
		LEFT JOIN token_packages p ON p.id = o.package_id
		WHERE o.user_id = $1 AND o.status = 'completed'
		ORDER BY o.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var orders []model.OrderWithTokens
	for rows.Next() {
		var o model.OrderWithTokens
		if err := rows.Scan(&o.ID, &o.OrderID, &o.UserID, &o.PackageID, &o.PlanName, &o.Amount, &o.Currency, &o.Status,
			&o.CreatedAt, &o.UpdatedAt, &o.Tokens); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
