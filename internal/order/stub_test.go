package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
)

type stubBackend struct {
	mu    sync.Mutex
	calls []string

	orders    []model.Order
	listErr   error
	statusErr error
	assignErr error
	deleteErr error
	createErr error
	created   *model.Order

	branchCouriers []model.Courier
	branchErr      error
	regionCouriers []model.Courier
	regionErr      error

	createdOrders []model.Order

	editOrder     *model.Order
	editErr       error
	updateErr     error
	updatedOrders []model.Order
}

func (s *stubBackend) record(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *stubBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

func (s *stubBackend) ListOrders(ctx context.Context) ([]model.Order, error) {
	s.record("ListOrders")
	return s.snapshot(), s.listErr
}

func (s *stubBackend) ListOrdersByMerchant(ctx context.Context, merchantID string) ([]model.Order, error) {
	s.record("ListOrdersByMerchant(%s)", merchantID)
	return s.snapshot(), s.listErr
}

func (s *stubBackend) ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error) {
	s.record("ListOrdersByCourier(%s)", courierID)
	return s.snapshot(), s.listErr
}

func (s *stubBackend) snapshot() []model.Order {
	if s.listErr != nil {
		return nil
	}
	return append([]model.Order{}, s.orders...)
}

func (s *stubBackend) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	s.record("UpdateOrderStatus(%d,%s)", orderID, status)
	return s.statusErr
}

func (s *stubBackend) AssignOrderToCourier(ctx context.Context, orderID int64, courierID string) error {
	s.record("AssignOrderToCourier(%d,%s)", orderID, courierID)
	return s.assignErr
}

func (s *stubBackend) DeleteOrder(ctx context.Context, orderID int64) error {
	s.record("DeleteOrder(%d)", orderID)
	return s.deleteErr
}

func (s *stubBackend) CreateOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	s.record("CreateOrder")
	s.mu.Lock()
	s.createdOrders = append(s.createdOrders, order)
	s.mu.Unlock()
	return s.created, s.createErr
}

func (s *stubBackend) GetOrderForEdit(ctx context.Context, orderID int64) (*model.Order, error) {
	s.record("GetOrderForEdit(%d)", orderID)
	if s.editErr != nil || s.editOrder == nil {
		return nil, s.editErr
	}
	o := *s.editOrder
	o.Products = append([]model.Product{}, s.editOrder.Products...)
	return &o, nil
}

func (s *stubBackend) UpdateOrder(ctx context.Context, orderID int64, order model.Order) error {
	s.record("UpdateOrder(%d)", orderID)
	s.mu.Lock()
	s.updatedOrders = append(s.updatedOrders, order)
	s.mu.Unlock()
	return s.updateErr
}

func (s *stubBackend) ListCouriersByBranch(ctx context.Context, branchID int64) ([]model.Courier, error) {
	s.record("ListCouriersByBranch(%d)", branchID)
	return s.branchCouriers, s.branchErr
}

func (s *stubBackend) ListCouriersByRegion(ctx context.Context, regionID int64) ([]model.Courier, error) {
	s.record("ListCouriersByRegion(%d)", regionID)
	return s.regionCouriers, s.regionErr
}

type recordingPublisher struct {
	events []audit.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

type countingObserver struct {
	outcomes map[string]int
}

func (o *countingObserver) ObserveOrderOperation(operation, outcome string) {
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[operation+"/"+outcome]++
}

func makeOrders(n int) []model.Order {
	res := make([]model.Order, n)
	for i := range res {
		res[i] = model.Order{ID: int64(i + 1), Status: model.StatusPending}
	}
	return res
}

func statusPtr(s model.OrderStatus) *model.OrderStatus { return &s }
