package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// CreditHistory is one page of the synthesized token ledger plus lifetime
// totals. Totals always cover the full history, not just the page.
type CreditHistory struct {
	Transactions      []model.Transaction
	Page              int
	Limit             int
	Total             int
	TotalPages        int
	TotalCreditsAdded int
	TotalCreditsUsed  int
	CurrentBalance    int
}

// CreditService derives the user's token ledger. There is no transactions
// table: credits come from completed orders, debits from generation records.
type CreditService interface {
	History(ctx context.Context, userID string, page, limit int) (*CreditHistory, error)
}

type creditService struct {
	orders repository.OrderRepository
	videos repository.VideoRepository
	images repository.ImageRepository
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewCreditService creates a new CreditService.
func NewCreditService(
	orders repository.OrderRepository,
	videos repository.VideoRepository,
	images repository.ImageRepository,
	users repository.UserRepository,
	logger zerolog.Logger,
) CreditService {
	return &creditService{
		orders: orders,
		videos: videos,
		images: images,
		users:  users,
		logger: logger.With().Str("service", "CreditService").Logger(),
	}
}

func (s *creditService) History(ctx context.Context, userID string, page, limit int) (*CreditHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	orders, err := s.orders.ListCompletedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for ledger: %w", err)
	}
	videos, err := s.videos.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list videos for ledger: %w", err)
	}
	images, err := s.images.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list images for ledger: %w", err)
	}

	transactions := make([]model.Transaction, 0, len(orders)+len(videos)+len(images))
	added, used := 0, 0

	for _, o := range orders {
		transactions = append(transactions, model.Transaction{
			ID:          "order-" + o.ID,
			Type:        model.TransactionCredit,
			Amount:      o.Tokens,
			Description: fmt.Sprintf("Purchased %s", o.PlanName),
			CreatedAt:   o.CreatedAt,
			Details: map[string]string{
				"order_id": o.OrderID,
				"amount":   strconv.Itoa(o.Amount),
				"currency": o.Currency,
			},
		})
		added += o.Tokens
	}
	for _, v := range videos {
		transactions = append(transactions, model.Transaction{
			ID:          "video-" + v.ID,
			Type:        model.TransactionDebit,
			Amount:      v.TokensUsed,
			Description: "Video generation",
			CreatedAt:   v.CreatedAt,
			Details: map[string]string{
				"task_id": v.VideoID,
				"status":  string(v.Status),
			},
		})
		used += v.TokensUsed
	}
	for _, img := range images {
		transactions = append(transactions, model.Transaction{
			ID:          "image-" + img.ID,
			Type:        model.TransactionDebit,
			Amount:      img.TokensUsed,
			Description: "Image generation",
			CreatedAt:   img.CreatedAt,
			Details: map[string]string{
				"image_id": img.ImageID,
			},
		})
		used += img.TokensUsed
	}

	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})

	total := len(transactions)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	balance, err := s.users.GetTokenBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance for ledger: %w", err)
	}

	return &CreditHistory{
		Transactions:      transactions[start:end],
		Page:              page,
		Limit:             limit,
		Total:             total,
		TotalPages:        totalPages,
		TotalCreditsAdded: added,
		TotalCreditsUsed:  used,
		CurrentBalance:    balance,
	}, nil
}
