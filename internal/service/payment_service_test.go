package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"app/internal/config"
	"app/internal/model"

	"github.com/rs/zerolog"
)

func newTestPaymentService(t *testing.T, gateway *fakeGateway) (PaymentService, *fakeUserRepo, *fakeOrderRepo, *fakePaymentRepo, *fakePackageRepo) {
	t.Helper()
	users := newFakeUserRepo(&model.User{ID: "user-1", Name: "Test User", Email: "test@example.com", Tokens: 5})
	orders := newFakeOrderRepo()
	payments := newFakePaymentRepo(orders, users)
	packages := newFakePackageRepo(
		&model.TokenPackage{ID: "starter", Name: "Starter", Tokens: 150, Price: 10, Currency: "INR", IsActive: true},
		&model.TokenPackage{ID: "growth", Name: "Growth", Tokens: 650, Price: 50, Currency: "INR", IsActive: true},
	)
	cfg := &config.Config{AppBaseURL: "https://app.example.com"}
	svc := NewPaymentService(orders, payments, NewPackageService(packages, zerolog.Nop()), users, gateway, cfg, zerolog.Nop())
	return svc, users, orders, payments, packages
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	gateway := &fakeGateway{}
	svc, _, orders, _, _ := newTestPaymentService(t, gateway)

	result, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if result.Order.Amount != 10 || result.Order.Currency != "INR" {
		t.Fatalf("expected catalog price 10 INR, got %d %s", result.Order.Amount, result.Order.Currency)
	}
	if result.Order.Status != model.OrderPending {
		t.Fatalf("expected pending order, got %s", result.Order.Status)
	}
	if result.PaymentURL == "" {
		t.Fatal("expected a payment URL")
	}

	stored, err := orders.GetByOrderID(context.Background(), result.Order.OrderID)
	if err != nil || stored == nil {
		t.Fatalf("order not persisted: %v", err)
	}
}

func TestCreateOrderInvalidPackage(t *testing.T) {
	svc, _, _, _, _ := newTestPaymentService(t, &fakeGateway{})

	if _, err := svc.CreateOrder(context.Background(), "user-1", "nope"); !errors.Is(err, ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
}

func TestCreateOrderLinkFailureFailsOrder(t *testing.T) {
	gateway := &fakeGateway{createErr: errors.New("gateway down")}
	svc, _, orders, _, _ := newTestPaymentService(t, gateway)

	if _, err := svc.CreateOrder(context.Background(), "user-1", "starter"); err == nil {
		t.Fatal("expected error when link creation fails")
	}
	// The pending order must have been failed, not left dangling.
	orders.mu.Lock()
	defer orders.mu.Unlock()
	if len(orders.orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders.orders))
	}
	for _, o := range orders.orders {
		if o.Status != model.OrderFailed {
			t.Fatalf("expected failed order, got %s", o.Status)
		}
	}
}

func TestCreateOrderAdoptsGatewayLinkID(t *testing.T) {
	gateway := &fakeGateway{link: PaymentLinkResult{LinkID: "cf-link-42", PaymentURL: "https://pay.example.com/cf-link-42"}}
	svc, _, orders, _, _ := newTestPaymentService(t, gateway)

	result, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if result.Order.OrderID != "cf-link-42" {
		t.Fatalf("expected gateway link id to become the order id, got %s", result.Order.OrderID)
	}
	stored, _ := orders.GetByOrderID(context.Background(), "cf-link-42")
	if stored == nil {
		t.Fatal("order not findable under the gateway link id")
	}
}

func TestCreateOrderLinkIDAdoptionFailureFailsOrder(t *testing.T) {
	gateway := &fakeGateway{link: PaymentLinkResult{LinkID: "cf-link-7", PaymentURL: "https://pay.example.com/cf-link-7"}}
	svc, _, orders, _, _ := newTestPaymentService(t, gateway)
	orders.replaceErr = errors.New("write conflict")

	if _, err := svc.CreateOrder(context.Background(), "user-1", "starter"); err == nil {
		t.Fatal("expected error when the gateway link id cannot be adopted")
	}
	// Webhooks carry the gateway id, so an order stuck under the stale id
	// could never settle; it must be failed, not left pending.
	orders.mu.Lock()
	defer orders.mu.Unlock()
	if len(orders.orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders.orders))
	}
	for _, o := range orders.orders {
		if o.Status != model.OrderFailed {
			t.Fatalf("expected failed order, got %s", o.Status)
		}
	}
}

func TestVerifyCreditsTokensOnce(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}}
	svc, users, _, _, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	first, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !first.Success || first.AlreadyProcessed {
		t.Fatalf("expected fresh successful settlement, got %+v", first)
	}
	if first.TokensAdded != 150 {
		t.Fatalf("expected 150 tokens added, got %d", first.TokensAdded)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 155 {
		t.Fatalf("expected balance 155, got %d", balance)
	}

	// Second verify must be a no-op on the balance.
	second, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("second Verify returned error: %v", err)
	}
	if !second.AlreadyProcessed || !second.Success {
		t.Fatalf("expected already-processed success, got %+v", second)
	}
	if second.TokensAdded != 0 {
		t.Fatalf("repeat verify must not re-credit, got %d", second.TokensAdded)
	}
	balance, _ = users.GetTokenBalance(context.Background(), "user-1")
	if balance != 155 {
		t.Fatalf("balance changed on repeat verify: %d", balance)
	}
}

func TestConcurrentSettlementCreditsOnce(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}}
	svc, users, _, payments, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "growth")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	const attempts = 20
	var wg sync.WaitGroup
	results := make([]*SettlementResult, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Mix webhook-style and verify-style settlement attempts.
			var r *SettlementResult
			var err error
			if i%2 == 0 {
				r, err = svc.Verify(context.Background(), created.Order.OrderID)
			} else {
				r, err = svc.Callback(context.Background(), CallbackParams{OrderID: created.Order.OrderID, Status: "success"})
			}
			if err != nil {
				t.Errorf("settlement attempt %d: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 655 {
		t.Fatalf("expected exactly one credit (balance 655), got %d", balance)
	}

	fresh := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if !r.Success {
			t.Fatalf("every attempt should report success, got %+v", r)
		}
		if !r.AlreadyProcessed {
			fresh++
		}
	}
	if fresh != 1 {
		t.Fatalf("expected exactly one fresh settlement, got %d", fresh)
	}

	payments.mu.Lock()
	defer payments.mu.Unlock()
	if len(payments.payments) != 1 {
		t.Fatalf("expected exactly one payment row, got %d", len(payments.payments))
	}
}

func TestVerifyFailedPayment(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: false, RawStatus: "EXPIRED"}}
	svc, users, _, payments, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	result, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed settlement")
	}
	if result.Order.Status != model.OrderFailed {
		t.Fatalf("expected failed order, got %s", result.Order.Status)
	}

	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 5 {
		t.Fatalf("failed payment must not credit tokens, balance %d", balance)
	}

	// The failure is recorded so later webhooks are recognized as duplicates.
	p, _ := payments.GetByOrderID(context.Background(), created.Order.OrderID)
	if p == nil || p.Status != model.PaymentFailed {
		t.Fatalf("expected recorded failed payment, got %+v", p)
	}
	if p.FailureReason == nil || *p.FailureReason == "" {
		t.Fatal("expected a failure reason")
	}
}

func TestVerifyUnknownOrder(t *testing.T) {
	svc, _, _, _, _ := newTestPaymentService(t, &fakeGateway{})

	if _, err := svc.Verify(context.Background(), "order_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestVerifyIndeterminateLeavesOrderPending(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{}} // Known=false
	svc, users, orders, payments, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	result, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !result.Indeterminate || result.Success {
		t.Fatalf("expected indeterminate result, got %+v", result)
	}

	// The order stays pending with no payment row so a retry can settle it.
	stored, _ := orders.GetByOrderID(context.Background(), created.Order.OrderID)
	if stored.Status != model.OrderPending {
		t.Fatalf("expected order left pending, got %s", stored.Status)
	}
	p, _ := payments.GetByOrderID(context.Background(), created.Order.OrderID)
	if p != nil {
		t.Fatalf("indeterminate settlement must not write a payment row, got %+v", p)
	}

	// Once the gateway recovers, the same order settles normally.
	gateway.mu.Lock()
	gateway.status = GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}
	gateway.mu.Unlock()

	retry, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("retry Verify returned error: %v", err)
	}
	if !retry.Success || retry.AlreadyProcessed {
		t.Fatalf("expected fresh settlement on retry, got %+v", retry)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 155 {
		t.Fatalf("expected balance 155 after retry, got %d", balance)
	}
}

func TestVerifyTamperedAmountFailsOrder(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}}
	svc, users, orders, _, packages := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	// Simulate a stored amount that no longer matches the catalog.
	packages.packages["starter"].Price = 9999

	if _, err := svc.Verify(context.Background(), created.Order.OrderID); !errors.Is(err, ErrTamperDetected) {
		t.Fatalf("expected ErrTamperDetected, got %v", err)
	}

	stored, _ := orders.GetByOrderID(context.Background(), created.Order.OrderID)
	if stored.Status != model.OrderFailed {
		t.Fatalf("tampered order must be failed, got %s", stored.Status)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 5 {
		t.Fatalf("tampered order must not credit tokens, balance %d", balance)
	}
}

func TestVerifyAfterPriceChangeOnSettledOrder(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}}
	svc, _, _, _, packages := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if _, err := svc.Verify(context.Background(), created.Order.OrderID); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	// A price change after settlement must not re-classify the order.
	packages.packages["starter"].Price = 9999

	result, err := svc.Verify(context.Background(), created.Order.OrderID)
	if err != nil {
		t.Fatalf("expected idempotent response after price change, got %v", err)
	}
	if !result.AlreadyProcessed || !result.Success {
		t.Fatalf("expected already-processed success, got %+v", result)
	}
}

func TestCallbackWithFailedVerdictSkipsGateway(t *testing.T) {
	gateway := &fakeGateway{}
	svc, _, orders, payments, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	result, err := svc.Callback(context.Background(), CallbackParams{
		OrderID: created.Order.OrderID,
		Status:  "failed",
	})
	if err != nil {
		t.Fatalf("Callback returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed settlement")
	}
	if gateway.queryCalls != 0 {
		t.Fatalf("explicit verdict must not trigger a gateway query, got %d calls", gateway.queryCalls)
	}

	stored, _ := orders.GetByOrderID(context.Background(), created.Order.OrderID)
	if stored.Status != model.OrderFailed {
		t.Fatalf("expected failed order, got %s", stored.Status)
	}
	p, _ := payments.GetByOrderID(context.Background(), created.Order.OrderID)
	if p == nil || p.Status != model.PaymentFailed {
		t.Fatalf("expected recorded failed payment, got %+v", p)
	}
}

func TestCallbackWithoutStatusQueriesGateway(t *testing.T) {
	gateway := &fakeGateway{status: GatewayStatus{Known: true, Paid: true, RawStatus: "PAID"}}
	svc, users, _, _, _ := newTestPaymentService(t, gateway)

	created, err := svc.CreateOrder(context.Background(), "user-1", "starter")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	result, err := svc.Callback(context.Background(), CallbackParams{OrderID: created.Order.OrderID})
	if err != nil {
		t.Fatalf("Callback returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success via gateway query, got %+v", result)
	}
	if gateway.queryCalls != 1 {
		t.Fatalf("expected one gateway query, got %d", gateway.queryCalls)
	}
	balance, _ := users.GetTokenBalance(context.Background(), "user-1")
	if balance != 155 {
		t.Fatalf("expected balance 155, got %d", balance)
	}
}
