package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrAlreadySettled is returned when a payment row already exists for the
// order id. The unique constraint on payments.order_id is the idempotency
// gate: the loser of a concurrent settlement race sees this error, fetches
// the existing row and reports "already processed". It must never retry
// the credit.
var ErrAlreadySettled = errors.New("payment already recorded for order")

// SettleParams describes one settlement attempt.
type SettleParams struct {
	Order         *model.Order
	Status        model.PaymentStatus
	PaymentMethod *string
	FailureReason *string
	// Tokens is the authoritative credit amount, re-fetched from the catalog
	// by the caller. Ignored unless Status is success.
	Tokens int
}

// PaymentRepository persists settlement records and performs the settlement
// transaction itself: payment insert, order transition and token credit are
// one atomic unit.
type PaymentRepository interface {
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	ListByUserID(ctx context.Context, userID string) ([]model.PaymentWithPlan, error)
	Settle(ctx context.Context, p SettleParams) (*model.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo creates a new PaymentRepository.
func NewPaymentRepo(db *sql.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	const q = `
		SELECT id, order_id, order_internal_id, amount, currency, status, payment_method, payment_time, failure_reason, created_at
		FROM payments
		WHERE order_id = $1
	`
	var p model.Payment
	row := r.db.QueryRowContext(ctx, q, orderID)
	if err := row.Scan(&p.ID, &p.OrderID, &p.OrderInternalID, &p.Amount, &p.Currency, &p.Status,
		&p.PaymentMethod, &p.PaymentTime, &p.FailureReason, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment %s: %w", orderID, err)
	}
	return &p, nil
}

func (r *paymentRepo) ListByUserID(ctx context.Context, userID string) ([]model.PaymentWithPlan, error) {
	const q = `
		SELECT p.id, p.order_id, p.order_internal_id, p.amount, p.currency, p.status,
		       p.payment_method, p.payment_time, p.failure_reason, p.created_at, o.plan_name
		FROM payments p
		JOIN orders o ON o.id = p.order_internal_id
		WHERE o.user_id = $1
		ORDER BY p.payment_time DESC NULLS LAST, p.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []model.PaymentWithPlan
	for rows.Next() {
		var p model.PaymentWithPlan
		if err := rows.Scan(&p.ID, &p.OrderID, &p.OrderInternalID, &p.Amount, &p.Currency, &p.Status,
			&p.PaymentMethod, &p.PaymentTime, &p.FailureReason, &p.CreatedAt, &p.PlanName); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return []model.PaymentWithPlan{}, nil
	}
	return payments, nil
}

// Settle writes the settlement as one transaction: insert the payment row,
// move the order out of pending, and (on success) credit the user's tokens.
// A unique violation on payments.order_id means a concurrent caller settled
// first; the transaction is rolled back and ErrAlreadySettled returned.
func (r *paymentRepo) Settle(ctx context.Context, p SettleParams) (*model.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var paymentTime *time.Time
	if p.Status == model.PaymentSuccess {
		now := time.Now()
		paymentTime = &now
	}

	const insertQ = `
		INSERT INTO payments (order_id, order_internal_id, amount, currency, status, payment_method, payment_time, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	payment := &model.Payment{
		OrderID:         p.Order.OrderID,
		OrderInternalID: p.Order.ID,
		Amount:          p.Order.Amount,
		Currency:        p.Order.Currency,
		Status:          p.Status,
		PaymentMethod:   p.PaymentMethod,
		PaymentTime:     paymentTime,
		FailureReason:   p.FailureReason,
	}
	err = tx.QueryRowContext(ctx, insertQ,
		payment.OrderID, payment.OrderInternalID, payment.Amount, payment.Currency,
		payment.Status, payment.PaymentMethod, payment.PaymentTime, payment.FailureReason,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("insert payment for order %s: %w", p.Order.OrderID, err)
	}

	target := model.OrderFailed
	if p.Status == model.PaymentSuccess {
		target = model.OrderCompleted
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		p.Order.ID, target)
	if err != nil {
		return nil, fmt.Errorf("transition order %s: %w", p.Order.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrOrderFinalized
	}

	if p.Status == model.PaymentSuccess {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET tokens = tokens + $2, updated_at = NOW() WHERE id = $1`,
			p.Order.UserID, p.Tokens); err != nil {
			return nil, fmt.Errorf("credit %d tokens to user %s: %w", p.Tokens, p.Order.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("commit settlement for order %s: %w", p.Order.OrderID, err)
	}
	return payment, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
