package service

import (
	"context"
	"errors"
	"fmt"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/util"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPackage is returned when an order references a package that
	// does not exist or is inactive.
	ErrInvalidPackage = errors.New("invalid or inactive package")
	// ErrOrderNotFound is returned when settlement is attempted for an
	// unknown order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrTamperDetected is returned when a pending order's stored amount no
	// longer matches the live catalog price. The order is failed and flagged;
	// tokens are never credited from a mismatched order.
	ErrTamperDetected = errors.New("order amount does not match catalog price")
)

// Verdict is an externally supplied payment outcome, typically parsed from a
// gateway webhook. A nil Verdict makes the settlement engine ask the gateway
// directly.
type Verdict struct {
	Success       bool
	PaymentMethod *string
	FailureReason *string
}

// SettlementResult is what a settlement attempt reports back to the caller.
// AlreadyProcessed means a previous attempt won; Indeterminate means the
// gateway could not be consulted and the order was left pending for a retry.
type SettlementResult struct {
	Success          bool
	AlreadyProcessed bool
	Indeterminate    bool
	Order            *model.Order
	Payment          *model.Payment
	TokensAdded      int
	Balance          int
}

// CreateOrderResult pairs a freshly created order with its hosted payment URL.
type CreateOrderResult struct {
	Order      *model.Order
	PaymentURL string
}

// CallbackParams is the normalized shape of a gateway callback after the
// transport-level parsing is done.
type CallbackParams struct {
	OrderID       string
	Status        string
	PaymentMethod string
	FailureReason string
}

// PaymentService owns the order lifecycle: creation against the catalog,
// settlement (exactly-once token crediting) and history reads.
type PaymentService interface {
	CreateOrder(ctx context.Context, userID, packageID string) (*CreateOrderResult, error)
	// Verify settles an order by asking the gateway for the authoritative
	// payment status. Safe to call any number of times.
	Verify(ctx context.Context, orderID string) (*SettlementResult, error)
	// Callback settles an order from a webhook-supplied verdict. When the
	// webhook carries no usable status the gateway is queried instead.
	Callback(ctx context.Context, cb CallbackParams) (*SettlementResult, error)
	ListPayments(ctx context.Context, userID string) ([]model.PaymentWithPlan, error)
}

type paymentService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	packages PackageService
	users    repository.UserRepository
	gateway  PaymentGateway
	baseURL  string
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	packages PackageService,
	users repository.UserRepository,
	gateway PaymentGateway,
	cfg *config.Config,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orders:   orders,
		payments: payments,
		packages: packages,
		users:    users,
		gateway:  gateway,
		baseURL:  cfg.AppBaseURL,
		logger:   logger.With().Str("service", "PaymentService").Logger(),
	}
}

// CreateOrder validates the package against the catalog, persists a pending
// order priced from the catalog (never from the client) and creates the
// gateway payment link. A link-creation failure fails the order immediately.
func (s *paymentService) CreateOrder(ctx context.Context, userID, packageID string) (*CreateOrderResult, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrInvalidPackage
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	orderID, err := util.NewOrderID()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}
	order := &model.Order{
		OrderID:   orderID,
		UserID:    userID,
		PackageID: pkg.ID,
		PlanName:  pkg.Name,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		Status:    model.OrderPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	link, err := s.gateway.CreatePaymentLink(ctx, PaymentLinkRequest{
		OrderID:       order.OrderID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Purpose:       fmt.Sprintf("Purchase of %s (%d tokens)", pkg.Name, pkg.Tokens),
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		ReturnURL:     s.baseURL + "/payment/success?order_id=" + order.OrderID,
		NotifyURL:     s.baseURL + "/api/payment/callback",
	})
	if err != nil {
		if ferr := s.orders.Transition(ctx, order.ID, model.OrderPending, model.OrderFailed); ferr != nil {
			s.logger.Error().Err(ferr).Str("order_id", order.OrderID).Msg("Failed to fail order after link creation error")
		}
		return nil, fmt.Errorf("create payment link for order %s: %w", order.OrderID, err)
	}

	// The gateway may assign its own link id; it becomes the settlement key
	// since webhooks and status queries reference it. An order stuck under the
	// stale id could never be settled, so adoption failure fails the order.
	if link.LinkID != "" && link.LinkID != order.OrderID {
		if err := s.orders.ReplaceOrderID(ctx, order.ID, link.LinkID); err != nil {
			if ferr := s.orders.Transition(ctx, order.ID, model.OrderPending, model.OrderFailed); ferr != nil {
				s.logger.Error().Err(ferr).Str("order_id", order.OrderID).Msg("Failed to fail order after link id adoption error")
			}
			return nil, fmt.Errorf("adopt gateway link id for order %s: %w", order.OrderID, err)
		}
		order.OrderID = link.LinkID
	}

	s.logger.Info().Str("order_id", order.OrderID).Str("user_id", userID).
		Str("package_id", pkg.ID).Int("amount", order.Amount).Msg("Order created")
	return &CreateOrderResult{Order: order, PaymentURL: link.PaymentURL}, nil
}

func (s *paymentService) Verify(ctx context.Context, orderID string) (*SettlementResult, error) {
	return s.settle(ctx, orderID, nil)
}

func (s *paymentService) Callback(ctx context.Context, cb CallbackParams) (*SettlementResult, error) {
	var verdict *Verdict
	switch cb.Status {
	case "success", "paid":
		verdict = &Verdict{Success: true}
		if cb.PaymentMethod != "" {
			verdict.PaymentMethod = &cb.PaymentMethod
		}
	case "failed", "failure", "cancelled", "expired":
		reason := cb.FailureReason
		if reason == "" {
			reason = "payment " + cb.Status
		}
		verdict = &Verdict{Success: false, FailureReason: &reason}
	default:
		// No usable status in the webhook: fall through to a gateway query.
		verdict = nil
	}
	return s.settle(ctx, cb.OrderID, verdict)
}

func (s *paymentService) ListPayments(ctx context.Context, userID string) ([]model.PaymentWithPlan, error) {
	return s.payments.ListByUserID(ctx, userID)
}

// settle drives one settlement attempt. Every path that credits tokens goes
// through PaymentRepository.Settle, whose unique constraint on the order id
// guarantees at most one credit regardless of how many webhooks, verify
// calls or concurrent retries arrive.
func (s *paymentService) settle(ctx context.Context, orderID string, verdict *Verdict) (*SettlementResult, error) {
	order, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	// Terminal orders short-circuit before any catalog check: a later price
	// change must not re-classify an already settled order.
	if order.Status.Terminal() {
		return s.alreadyProcessed(ctx, order)
	}

	pkg, err := s.packages.GetByID(ctx, order.PackageID)
	if err != nil {
		return nil, err
	}
	valid, err := s.packages.ValidateAmount(ctx, order.PackageID, order.Amount)
	if err != nil {
		return nil, err
	}
	if !valid || pkg == nil {
		stored := -1
		if pkg != nil {
			stored = pkg.Price
		}
		s.logger.Warn().Str("order_id", order.OrderID).Str("package_id", order.PackageID).
			Int("order_amount", order.Amount).Int("catalog_price", stored).
			Msg("Order amount mismatch with live catalog; failing order and flagging for audit")
		if ferr := s.orders.Transition(ctx, order.ID, model.OrderPending, model.OrderFailed); ferr != nil && !errors.Is(ferr, repository.ErrOrderFinalized) {
			return nil, ferr
		}
		return nil, ErrTamperDetected
	}

	if verdict == nil {
		status := s.gateway.QueryStatus(ctx, order.OrderID)
		if !status.Known {
			// The gateway could not be consulted. The order stays pending and
			// no payment row is written so a later attempt can settle it.
			balance, _ := s.users.GetTokenBalance(ctx, order.UserID)
			return &SettlementResult{Indeterminate: true, Order: order, Balance: balance}, nil
		}
		verdict = &Verdict{Success: status.Paid, PaymentMethod: status.PaymentMethod}
		if !status.Paid {
			reason := "payment not completed: " + status.RawStatus
			verdict.FailureReason = &reason
		}
	}

	paymentStatus := model.PaymentFailed
	if verdict.Success {
		paymentStatus = model.PaymentSuccess
	}
	payment, err := s.payments.Settle(ctx, repository.SettleParams{
		Order:         order,
		Status:        paymentStatus,
		PaymentMethod: verdict.PaymentMethod,
		FailureReason: verdict.FailureReason,
		Tokens:        pkg.Tokens,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadySettled) || errors.Is(err, repository.ErrOrderFinalized) {
			// A concurrent attempt won the race; report its outcome.
			fresh, ferr := s.orders.GetByOrderID(ctx, order.OrderID)
			if ferr != nil || fresh == nil {
				fresh = order
			}
			return s.alreadyProcessed(ctx, fresh)
		}
		return nil, err
	}

	order.Status = model.OrderFailed
	tokensAdded := 0
	if verdict.Success {
		order.Status = model.OrderCompleted
		tokensAdded = pkg.Tokens
		s.logger.Info().Str("order_id", order.OrderID).Str("user_id", order.UserID).
			Int("tokens", pkg.Tokens).Msg("Payment settled; tokens credited")
	} else {
		s.logger.Info().Str("order_id", order.OrderID).Str("user_id", order.UserID).
			Msg("Payment settled as failed")
	}

	balance, err := s.users.GetTokenBalance(ctx, order.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", order.UserID).Msg("Could not read balance after settlement")
	}
	return &SettlementResult{
		Success:     verdict.Success,
		Order:       order,
		Payment:     payment,
		TokensAdded: tokensAdded,
		Balance:     balance,
	}, nil
}

// alreadyProcessed builds the idempotent response for an order settled by an
// earlier attempt.
func (s *paymentService) alreadyProcessed(ctx context.Context, order *model.Order) (*SettlementResult, error) {
	payment, err := s.payments.GetByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	balance, err := s.users.GetTokenBalance(ctx, order.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", order.UserID).Msg("Could not read balance for settled order")
	}
	return &SettlementResult{
		Success:          order.Status == model.OrderCompleted,
		AlreadyProcessed: true,
		Order:            order,
		Payment:          payment,
		Balance:          balance,
	}, nil
}
