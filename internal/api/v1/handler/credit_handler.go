package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// CreditHandler serves the synthesized token ledger and provider credits.
type CreditHandler struct {
	creditService service.CreditService
	videoService  service.VideoService
	logger        zerolog.Logger
}

// NewCreditHandler creates a new CreditHandler.
func NewCreditHandler(creditService service.CreditService, videoService service.VideoService, logger zerolog.Logger) *CreditHandler {
	return &CreditHandler{creditService: creditService, videoService: videoService, logger: logger}
}

// RegisterRoutes mounts credit routes.
func (h *CreditHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/credits", authMw(http.HandlerFunc(h.providerCredits)))
	mux.Handle("/credits/history", authMw(http.HandlerFunc(h.history)))
}

// providerCredits reports the remaining video-provider account credits, used
// to warn before starting generations that would fail upstream.
func (h *CreditHandler) providerCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	credits, err := h.videoService.ProviderCredits(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Provider credit lookup failed")
		http.Error(w, "Failed to retrieve credits", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ProviderCreditsResponseDTO{Credits: credits})
}

func (h *CreditHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := h.creditService.History(r.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Credit history failed")
		http.Error(w, "Failed to retrieve credit history", http.StatusInternalServerError)
		return
	}

	transactions := make([]dto.TransactionDTO, 0, len(history.Transactions))
	for _, t := range history.Transactions {
		transactions = append(transactions, dto.TransactionDTO{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
			Details:     t.Details,
		})
	}
	resp := dto.CreditHistoryResponseDTO{
		Transactions: transactions,
		Pagination: dto.PaginationDTO{
			Page:       history.Page,
			Limit:      history.Limit,
			Total:      history.Total,
			TotalPages: history.TotalPages,
		},
		Summary: dto.CreditSummaryDTO{
			TotalCreditsAdded: history.TotalCreditsAdded,
			TotalCreditsUsed:  history.TotalCreditsUsed,
			CurrentBalance:    history.CurrentBalance,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
