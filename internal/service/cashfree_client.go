package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/config"

	"github.com/rs/zerolog"
)

// PaymentLinkRequest describes a hosted payment link to create for an order.
// Amount and currency always come from the catalog-validated order, never
// from client input.
type PaymentLinkRequest struct {
	OrderID       string
	Amount        int
	Currency      string
	Purpose       string
	CustomerName  string
	CustomerEmail string
	ReturnURL     string
	NotifyURL     string
}

// PaymentLinkResult is the gateway's answer to link creation. LinkID is the
// gateway's canonical identifier; when it differs from the submitted order id
// it replaces it as the settlement lookup key.
type PaymentLinkResult struct {
	PaymentURL string
	LinkID     string
}

// GatewayStatus is the adapter's normalized view of a payment's state.
// Known=false means the gateway could not be consulted (network error,
// non-2xx, malformed body); the settlement engine decides what that means.
type GatewayStatus struct {
	Known         bool
	Paid          bool
	RawStatus     string
	PaymentMethod *string
}

// PaymentGateway is the boundary to the external payment provider. QueryStatus
// never propagates transport failures: a degraded result is reported through
// Known=false so settlement logic never has to catch remote errors.
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, link PaymentLinkRequest) (*PaymentLinkResult, error)
	QueryStatus(ctx context.Context, orderID string) GatewayStatus
}

// CashfreeClient talks to the Cashfree payment-links API.
type CashfreeClient struct {
	appID     string
	secretKey string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

// NewCashfreeClient builds the gateway adapter from config, selecting the
// sandbox or production host.
func NewCashfreeClient(cfg *config.Config, logger zerolog.Logger) *CashfreeClient {
	baseURL := "https://sandbox.cashfree.com"
	if cfg.CashfreeEnvironment == "production" {
		baseURL = "https://api.cashfree.com"
	}
	return &CashfreeClient{
		appID:     cfg.CashfreeAppID,
		secretKey: cfg.CashfreeSecretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger.With().Str("service", "CashfreeClient").Logger(),
	}
}

type cashfreeLinkResponse struct {
	LinkID     string `json:"link_id"`
	LinkURL    string `json:"link_url"`
	LinkStatus string `json:"link_status"`
}

func (c *CashfreeClient) setHeaders(req *http.Request, apiVersion string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)
}

// CreatePaymentLink creates a hosted payment link for the order. Errors are
// returned to the caller: a failed link creation fails the order.
func (c *CashfreeClient) CreatePaymentLink(ctx context.Context, link PaymentLinkRequest) (*PaymentLinkResult, error) {
	payload := map[string]any{
		"link_id":       link.OrderID,
		"link_amount":   link.Amount,
		"link_currency": link.Currency,
		"link_purpose":  link.Purpose,
		"customer_details": map[string]any{
			"customer_name":  link.CustomerName,
			"customer_email": link.CustomerEmail,
			// Cashfree requires a phone number on links; we do not collect one.
			"customer_phone": "9999999999",
		},
		"link_meta": map[string]any{
			"return_url": link.ReturnURL,
			"notify_url": link.NotifyURL,
		},
		"link_notify": map[string]any{
			"send_email": true,
			"send_sms":   false,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal link payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pg/links", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build link request: %w", err)
	}
	c.setHeaders(req, "2025-01-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Str("order_id", link.OrderID).
			Str("body", string(raw)).Msg("Payment link creation failed")
		return nil, fmt.Errorf("gateway rejected link creation: status %d", resp.StatusCode)
	}

	var parsed cashfreeLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode link response: %w", err)
	}
	if parsed.LinkURL == "" {
		return nil, fmt.Errorf("gateway returned no payment url for order %s", link.OrderID)
	}
	return &PaymentLinkResult{PaymentURL: parsed.LinkURL, LinkID: parsed.LinkID}, nil
}

// QueryStatus fetches the current link status. Every failure mode collapses
// to Known=false; the caller must treat that as "could not determine".
func (c *CashfreeClient) QueryStatus(ctx context.Context, orderID string) GatewayStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pg/links/"+orderID, nil)
	if err != nil {
		return GatewayStatus{}
	}
	c.setHeaders(req, "2023-08-01")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("order_id", orderID).Msg("Gateway status query failed; treating as unknown")
		return GatewayStatus{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("order_id", orderID).
			Msg("Gateway status query returned non-2xx; treating as unknown")
		return GatewayStatus{}
	}

	var parsed cashfreeLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn().Err(err).Str("order_id", orderID).Msg("Malformed gateway status body; treating as unknown")
		return GatewayStatus{}
	}
	if parsed.LinkStatus == "" {
		return GatewayStatus{}
	}

	status := GatewayStatus{
		Known:     true,
		Paid:      parsed.LinkStatus == "PAID",
		RawStatus: parsed.LinkStatus,
	}
	if status.Paid {
		status.PaymentMethod = c.fetchPaymentMethod(ctx, orderID)
	}
	return status
}

// fetchPaymentMethod is best-effort detail enrichment for paid orders.
func (c *CashfreeClient) fetchPaymentMethod(ctx context.Context, orderID string) *string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pg/orders/"+orderID+"/payments", nil)
	if err != nil {
		return nil
	}
	c.setHeaders(req, "2023-08-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var payments []struct {
		PaymentMethod json.RawMessage `json:"payment_method"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payments); err != nil || len(payments) == 0 {
		return nil
	}
	raw := payments[0].PaymentMethod
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// The gateway sometimes reports the method as a structured object.
		s = string(raw)
	}
	return &s
}
