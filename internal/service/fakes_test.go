package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/repository"
)

// In-memory fakes for the repository and client interfaces. The payment fake
// reproduces the storage-level settlement guarantees (unique payment per
// order, conditional order transition, credit inside the same critical
// section) so the service-level race tests are meaningful.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetTokenBalance(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s not found", id)
	}
	return u.Tokens, nil
}

func (r *fakeUserRepo) credit(id string, amount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Tokens += amount
	}
}

// debit mirrors the conditional decrement: it fails without changing the
// balance when it would go negative.
func (r *fakeUserRepo) debit(id string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Tokens < amount {
		return repository.ErrInsufficientTokens
	}
	u.Tokens -= amount
	return nil
}

type fakePackageRepo struct {
	packages map[string]*model.TokenPackage
}

func newFakePackageRepo(packages ...*model.TokenPackage) *fakePackageRepo {
	r := &fakePackageRepo{packages: map[string]*model.TokenPackage{}}
	for _, p := range packages {
		r.packages[p.ID] = p
	}
	return r
}

func (r *fakePackageRepo) GetByID(_ context.Context, id string) (*model.TokenPackage, error) {
	p, ok := r.packages[id]
	if !ok || !p.IsActive {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePackageRepo) ListActive(_ context.Context) ([]model.TokenPackage, error) {
	var out []model.TokenPackage
	for _, p := range r.packages {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu  sync.Mutex
	seq int
	// orders is keyed by internal id; packageTokens backs the catalog join
	// in ListCompletedByUserID.
	orders        map[string]*model.Order
	packageTokens map[string]int
	replaceErr    error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*model.Order{}, packageTokens: map[string]int{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = fmt.Sprintf("internal-%d", r.seq)
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	copied := *o
	r.orders[o.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) GetByOrderID(_ context.Context, orderID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderID == orderID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) ReplaceOrderID(_ context.Context, id, newOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	o.OrderID = newOrderID
	return nil
}

func (r *fakeOrderRepo) Transition(_ context.Context, id string, from, to model.OrderStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("illegal order transition %s to %s", from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	if o.Status != from {
		return repository.ErrOrderFinalized
	}
	o.Status = to
	return nil
}

func (r *fakeOrderRepo) ListCompletedByUserID(_ context.Context, userID string) ([]model.OrderWithTokens, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.OrderWithTokens
	for _, o := range r.orders {
		if o.UserID == userID && o.Status == model.OrderCompleted {
			out = append(out, model.OrderWithTokens{Order: *o, Tokens: r.packageTokens[o.PackageID]})
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	seq      int
	payments map[string]*model.Payment // keyed by external order id
	orders   *fakeOrderRepo
	users    *fakeUserRepo
}

func newFakePaymentRepo(orders *fakeOrderRepo, users *fakeUserRepo) *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*model.Payment{}, orders: orders, users: users}
}

func (r *fakePaymentRepo) GetByOrderID(_ context.Context, orderID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[orderID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) ListByUserID(_ context.Context, userID string) ([]model.PaymentWithPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PaymentWithPlan
	for _, p := range r.payments {
		order, _ := r.orders.GetByOrderID(context.Background(), p.OrderID)
		if order != nil && order.UserID == userID {
			out = append(out, model.PaymentWithPlan{Payment: *p, PlanName: order.PlanName})
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Settle(_ context.Context, p repository.SettleParams) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.Order.OrderID]; exists {
		return nil, repository.ErrAlreadySettled
	}

	target := model.OrderFailed
	if p.Status == model.PaymentSuccess {
		target = model.OrderCompleted
	}
	if err := r.orders.Transition(context.Background(), p.Order.ID, model.OrderPending, target); err != nil {
		return nil, err
	}

	var paymentTime *time.Time
	if p.Status == model.PaymentSuccess {
		now := time.Now()
		paymentTime = &now
		r.users.credit(p.Order.UserID, p.Tokens)
	}

	r.seq++
	payment := &model.Payment{
		ID:              fmt.Sprintf("payment-%d", r.seq),
		OrderID:         p.Order.OrderID,
		OrderInternalID: p.Order.ID,
		Amount:          p.Order.Amount,
		Currency:        p.Order.Currency,
		Status:          p.Status,
		PaymentMethod:   p.PaymentMethod,
		PaymentTime:     paymentTime,
		FailureReason:   p.FailureReason,
		CreatedAt:       time.Now(),
	}
	r.payments[p.Order.OrderID] = payment
	copied := *payment
	return &copied, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	status     GatewayStatus
	link       PaymentLinkResult
	createErr  error
	queryCalls int
}

func (g *fakeGateway) CreatePaymentLink(_ context.Context, link PaymentLinkRequest) (*PaymentLinkResult, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	result := g.link
	if result.PaymentURL == "" {
		result.PaymentURL = "https://payments.example.com/" + link.OrderID
	}
	return &result, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) GatewayStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	return g.status
}

type fakeImageRepo struct {
	mu     sync.Mutex
	seq    int
	images []model.Image
	users  *fakeUserRepo
}

func newFakeImageRepo(users *fakeUserRepo) *fakeImageRepo {
	return &fakeImageRepo{users: users}
}

func (r *fakeImageRepo) CreateWithDebit(_ context.Context, img *model.Image, tariff int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.users.debit(img.UserID, tariff); err != nil {
		return err
	}
	r.seq++
	img.ID = fmt.Sprintf("image-%d", r.seq)
	img.TokensUsed = tariff
	img.CreatedAt = time.Now()
	r.images = append(r.images, *img)
	return nil
}

func (r *fakeImageRepo) ListByUserID(_ context.Context, userID string) ([]model.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Image
	for _, img := range r.images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	return out, nil
}

type fakeVideoRepo struct {
	mu     sync.Mutex
	seq    int
	videos map[string]*model.Video // keyed by task id
	users  *fakeUserRepo
}

func newFakeVideoRepo(users *fakeUserRepo) *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[string]*model.Video{}, users: users}
}

func (r *fakeVideoRepo) CreateWithDebit(_ context.Context, v *model.Video, tariff int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.users.debit(v.UserID, tariff); err != nil {
		return err
	}
	r.seq++
	v.ID = fmt.Sprintf("video-%d", r.seq)
	v.TokensUsed = tariff
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	copied := *v
	r.videos[v.VideoID] = &copied
	return nil
}

func (r *fakeVideoRepo) GetByTaskID(_ context.Context, taskID string) (*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[taskID]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (r *fakeVideoRepo) ListByUserID(_ context.Context, userID string) ([]model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Video
	for _, v := range r.videos {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVideoRepo) UpdateStatusByTaskID(_ context.Context, taskID string, status model.VideoStatus, videoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[taskID]
	if !ok {
		return fmt.Errorf("video %s not found", taskID)
	}
	v.Status = status
	if videoURL != "" {
		v.VideoURL = videoURL
	}
	v.UpdatedAt = time.Now()
	return nil
}

type fakeImageGenerator struct {
	url string
	err error
}

func (g *fakeImageGenerator) Generate(_ context.Context, _ ImageGenerationRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.url, nil
}

type fakeVideoGenerator struct {
	mu      sync.Mutex
	taskID  string
	seq     int
	credits int
	details *VideoTaskDetails
	genErr  error
	calls   int
}

// Generate returns the fixed taskID when one is configured, otherwise a
// unique generated id per call.
func (g *fakeVideoGenerator) Generate(_ context.Context, _ VideoGenerationRequest) (string, error) {
	if g.genErr != nil {
		return "", g.genErr
	}
	if g.taskID != "" {
		return g.taskID, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("task-%d", g.seq), nil
}

func (g *fakeVideoGenerator) TaskDetails(_ context.Context, taskID string) (*VideoTaskDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.details == nil {
		return &VideoTaskDetails{TaskID: taskID, Status: "processing"}, nil
	}
	return g.details, nil
}

func (g *fakeVideoGenerator) RemainingCredits(_ context.Context) (int, error) {
	return g.credits, nil
}
