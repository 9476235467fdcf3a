package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// PaymentHandler handles order creation, settlement and payment history.
type PaymentHandler struct {
	paymentService service.PaymentService
	validate       *validator.Validate
	logger         zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService service.PaymentService, validate *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, validate: validate, logger: logger}
}

// RegisterRoutes mounts payment routes. The callback is deliberately
// unauthenticated: the gateway calls it, not the user.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/payment", authMw(http.HandlerFunc(h.history)))
	mux.Handle("/payment/create-order", authMw(http.HandlerFunc(h.createOrder)))
	mux.Handle("/payment/verify", authMw(http.HandlerFunc(h.verify)))
	mux.Handle("/payment/callback", http.HandlerFunc(h.callback))
}

func (h *PaymentHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.CreateOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.paymentService.CreateOrder(r.Context(), userID, req.PackageID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPackage) {
			http.Error(w, "Invalid or inactive package", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Order creation failed")
		http.Error(w, "Failed to create order", http.StatusInternalServerError)
		return
	}

	resp := dto.CreateOrderResponseDTO{
		OrderID:    result.Order.OrderID,
		PaymentURL: result.PaymentURL,
		Amount:     result.Order.Amount,
		Currency:   result.Order.Currency,
		PlanName:   result.Order.PlanName,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	var req dto.VerifyOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.paymentService.Verify(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, service.ErrTamperDetected):
			h.logger.Warn().Str("order_id", req.OrderID).Str("user_id", userID).Msg("Verification rejected: amount mismatch")
			http.Error(w, "Order verification failed: amount mismatch", http.StatusBadRequest)
		default:
			h.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("Verification failed")
			http.Error(w, "Failed to verify payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyResponse(result))
}

// callback settles an order from a gateway webhook. The gateway only wants a
// redirect back, so every outcome including errors ends in a 302 to the
// pricing page; failures are logged, never surfaced.
func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	cb := normalizeCallback(r)
	if cb.OrderID == "" {
		h.logger.Warn().Msg("Payment callback without order id")
		http.Redirect(w, r, "/pricing?payment=error", http.StatusFound)
		return
	}

	redirect := url.Values{"order_id": {cb.OrderID}}
	result, err := h.paymentService.Callback(r.Context(), cb)
	switch {
	case err != nil:
		h.logger.Error().Err(err).Str("order_id", cb.OrderID).Msg("Callback settlement failed")
		redirect.Set("payment", "error")
	case result.Success:
		redirect.Set("payment", "success")
	case result.Indeterminate:
		redirect.Set("payment", "pending")
	default:
		redirect.Set("payment", "failed")
	}
	if err == nil {
		h.logger.Info().Str("order_id", cb.OrderID).Bool("success", result.Success).
			Bool("already_processed", result.AlreadyProcessed).Msg("Callback processed")
	}
	http.Redirect(w, r, "/pricing?"+redirect.Encode(), http.StatusFound)
}

func (h *PaymentHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	payments, err := h.paymentService.ListPayments(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Payment history failed")
		http.Error(w, "Failed to retrieve payment history", http.StatusInternalServerError)
		return
	}

	resp := make([]dto.PaymentResponseDTO, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.PaymentResponseDTO{
			OrderID:       p.OrderID,
			PlanName:      p.PlanName,
			Amount:        p.Amount,
			Currency:      p.Currency,
			Status:        string(p.Status),
			PaymentMethod: p.PaymentMethod,
			PaymentTime:   p.PaymentTime,
			FailureReason: p.FailureReason,
			CreatedAt:     p.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func verifyResponse(result *service.SettlementResult) dto.VerifyOrderResponseDTO {
	resp := dto.VerifyOrderResponseDTO{
		Success:          result.Success,
		AlreadyProcessed: result.AlreadyProcessed,
		OrderID:          result.Order.OrderID,
		Status:           string(result.Order.Status),
		TokensAdded:      result.TokensAdded,
		Balance:          result.Balance,
	}
	switch {
	case result.Indeterminate:
		resp.Retryable = true
		resp.Message = "Could not determine payment status; please try again"
		resp.Status = string(model.OrderPending)
	case result.AlreadyProcessed:
		resp.Message = "Payment already processed"
	case result.Success:
		resp.Message = "Payment verified and tokens credited"
	default:
		resp.Message = "Payment failed"
	}
	return resp
}
