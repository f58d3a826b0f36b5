//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/domain/ports/repository"
	red "kids-content-billing/internal/infra/redis"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the callback immediately without a real transaction unless a
// custom WithTxFunc is assigned.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order // keyed by id

	SaveFunc                 func(ctx context.Context, tx repository.Tx, o *model.Order) error
	FindByIDFunc             func(ctx context.Context, tx repository.Tx, id string) (*model.Order, error)
	FindByPaymentOrderIDFunc func(ctx context.Context, tx repository.Tx, paymentOrderID string) (*model.Order, error)
	ListByUserFunc           func(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Order, error)
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: map[string]*model.Order{}}
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) FindByPaymentOrderID(ctx context.Context, tx repository.Tx, paymentOrderID string) (*model.Order, error) {
	if m.FindByPaymentOrderIDFunc != nil {
		return m.FindByPaymentOrderIDFunc(ctx, tx, paymentOrderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentOrderID == paymentOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Order, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, tx, userID, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	SaveFunc                        func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	FindByIDFunc                    func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	FindByPaymentSubscriptionIDFunc func(ctx context.Context, tx repository.Tx, paymentSubscriptionID string) (*model.Subscription, error)
	FindCurrentByUserFunc           func(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error)
	ListByUserFunc                  func(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error)
	HasEverTrialedFunc              func(ctx context.Context, tx repository.Tx, userID string) (bool, error)
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindByPaymentSubscriptionID(ctx context.Context, tx repository.Tx, paymentSubscriptionID string) (*model.Subscription, error) {
	if m.FindByPaymentSubscriptionIDFunc != nil {
		return m.FindByPaymentSubscriptionIDFunc(ctx, tx, paymentSubscriptionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.PaymentSubscriptionID == paymentSubscriptionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	if m.FindCurrentByUserFunc != nil {
		return m.FindCurrentByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.Status.GrantsPremium() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) HasEverTrialed(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	if m.HasEverTrialedFunc != nil {
		return m.HasEverTrialedFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.PlanType == model.PlanTypeTrial {
			return true, nil
		}
	}
	return false, nil
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	SaveFunc     func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: map[string]*model.User{}}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock ProcessedEventRepository ----

type MockProcessedEventRepo struct {
	mu      sync.Mutex
	markers map[string]*model.ProcessedEvent

	RecordFunc func(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error
	FindFunc   func(ctx context.Context, tx repository.Tx, eventType model.EventType, entityID, deliveryID string) (*model.ProcessedEvent, error)
}

func NewMockProcessedEventRepo() *MockProcessedEventRepo {
	return &MockProcessedEventRepo{markers: map[string]*model.ProcessedEvent{}}
}

var _ repository.ProcessedEventRepository = (*MockProcessedEventRepo)(nil)

func markerKey(eventType model.EventType, entityID, deliveryID string) string {
	return string(eventType) + "|" + entityID + "|" + deliveryID
}

func (m *MockProcessedEventRepo) Record(ctx context.Context, tx repository.Tx, ev *model.ProcessedEvent) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, tx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := markerKey(ev.EventType, ev.EntityID, ev.DeliveryID)
	if _, ok := m.markers[key]; ok {
		return domain.ErrDuplicateEvent
	}
	cp := *ev
	m.markers[key] = &cp
	return nil
}

func (m *MockProcessedEventRepo) Find(ctx context.Context, tx repository.Tx, eventType model.EventType, entityID, deliveryID string) (*model.ProcessedEvent, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, tx, eventType, entityID, deliveryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.markers[markerKey(eventType, entityID, deliveryID)]; ok {
		cp := *ev
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockProcessedEventRepo) PurgeOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, ev := range m.markers {
		if ev.ProcessedAt.Before(cutoff) {
			delete(m.markers, key)
			n++
		}
	}
	return n, nil
}

// ---- Mock PaymentService ----

type MockPaymentService struct {
	CreateOrderFunc        func(ctx context.Context, userID string, amount int64, currency, orderType string, pc map[string]any) (*adapter.CreateOrderResult, error)
	CreateSubscriptionFunc func(ctx context.Context, userID, remotePlanID string, trial bool, totalCycles int) (*adapter.CreateSubscriptionResult, error)
	ListOrdersFunc         func(ctx context.Context, userID string) ([]adapter.RemoteOrder, error)
	ListSubscriptionsFunc  func(ctx context.Context, userID string) ([]adapter.RemoteSubscription, error)
	VerifySuccessFunc      func(ctx context.Context, req adapter.VerifyRequest) (string, error)
	TrialEligibleFunc      func(ctx context.Context, userID string) (bool, error)
}

func NewMockPaymentService() *MockPaymentService { return &MockPaymentService{} }

var _ adapter.PaymentService = (*MockPaymentService)(nil)

func (m *MockPaymentService) CreateOrder(ctx context.Context, userID string, amount int64, currency, orderType string, pc map[string]any) (*adapter.CreateOrderResult, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, userID, amount, currency, orderType, pc)
	}
	return &adapter.CreateOrderResult{PaymentOrderID: "pay_ord_1", GatewayOrderID: "gw_ord_1"}, nil
}

func (m *MockPaymentService) CreateSubscription(ctx context.Context, userID, remotePlanID string, trial bool, totalCycles int) (*adapter.CreateSubscriptionResult, error) {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, userID, remotePlanID, trial, totalCycles)
	}
	return &adapter.CreateSubscriptionResult{
		PaymentSubscriptionID: "pay_sub_1",
		GatewaySubscriptionID: "gw_sub_1",
		AuthorizationURL:      "https://gateway.example/authorize/pay_sub_1",
	}, nil
}

func (m *MockPaymentService) ListOrders(ctx context.Context, userID string) ([]adapter.RemoteOrder, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockPaymentService) ListSubscriptions(ctx context.Context, userID string) ([]adapter.RemoteSubscription, error) {
	if m.ListSubscriptionsFunc != nil {
		return m.ListSubscriptionsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockPaymentService) VerifySuccess(ctx context.Context, req adapter.VerifyRequest) (string, error) {
	if m.VerifySuccessFunc != nil {
		return m.VerifySuccessFunc(ctx, req)
	}
	return "pay_ord_1", nil
}

func (m *MockPaymentService) TrialEligible(ctx context.Context, userID string) (bool, error) {
	if m.TrialEligibleFunc != nil {
		return m.TrialEligibleFunc(ctx, userID)
	}
	return true, nil
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

var _ red.Locker = (*MockLocker)(nil)

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.TryLockFunc != nil {
		return l.TryLockFunc(ctx, key, ttl)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrConflict
	}
	token := "tok-" + key
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// testCatalog is the shared plan catalog for usecase tests.
func testCatalog() *model.PlanCatalog {
	catalog, _ := model.NewPlanCatalog(model.RemotePlanIDs{Monthly: "rp_m", Yearly: "rp_y"}, 19900, 199900, "INR")
	return catalog
}
