// Package order реализует контроллер жизненного цикла заказов консоли:
// загрузку списка по роли, фильтрацию и постраничный вывод, смену статуса,
// назначение курьера, удаление и создание заказа.
//
// Состояние экрана хранится на сервере, по одному контроллеру на сеанс.
package order

import (
	"context"
	"errors"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

// Repository описывает операции бэкенда над заказами, доступные контроллеру.
type Repository interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListOrdersByMerchant(ctx context.Context, merchantID string) ([]model.Order, error)
	ListOrdersByCourier(ctx context.Context, courierID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	AssignOrderToCourier(ctx context.Context, orderID int64, courierID string) error
	DeleteOrder(ctx context.Context, orderID int64) error
	CreateOrder(ctx context.Context, order model.Order) (*model.Order, error)
	GetOrderForEdit(ctx context.Context, orderID int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, order model.Order) error
}

// CourierDirectory ищет курьеров, которым можно передать заказ.
type CourierDirectory interface {
	ListCouriersByBranch(ctx context.Context, branchID int64) ([]model.Courier, error)
	ListCouriersByRegion(ctx context.Context, regionID int64) ([]model.Courier, error)
}

// Backend объединяет все зависимости контроллера от бэкенда.
type Backend interface {
	Repository
	CourierDirectory
}

// Observer получает результат каждой операции контроллера, например для метрик.
type Observer interface {
	ObserveOrderOperation(operation, outcome string)
}

// Исходы операций для Observer.
const (
	OutcomeSuccess  = "success"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomePartial  = "partial"
)

var (
	// ErrUnknownRole возвращается при загрузке списка для роли без запроса.
	ErrUnknownRole = errors.New("unknown user role")
	// ErrOrderNotFound возвращается, если заказа нет в загруженном списке.
	ErrOrderNotFound = errors.New("order not found in the loaded list")
	// ErrNoStatusSelected возвращается, если новый статус не выбран.
	ErrNoStatusSelected = errors.New("no status selected")
	// ErrEditorClosed возвращается при выборе статуса без открытого редактора.
	ErrEditorClosed = errors.New("status editor is not open")
	// ErrNotAssignable возвращается, если заказу нельзя назначить курьера.
	ErrNotAssignable = errors.New("order is not assignable")
	// ErrNoCourierSelected возвращается, если курьер не выбран.
	ErrNoCourierSelected = errors.New("no courier selected")
	// ErrPickerClosed возвращается при выборе курьера без открытого списка курьеров.
	ErrPickerClosed = errors.New("courier picker is not open")
	// ErrPartialAssignment возвращается, когда курьер назначен, а статус заказа не изменился.
	// Назначение при этом не откатывается.
	ErrPartialAssignment = errors.New("courier assigned but status not updated")
	// ErrNoPendingDelete возвращается при подтверждении без открытого запроса на удаление.
	ErrNoPendingDelete = errors.New("no order pending deletion")
	// ErrInvalidOrder возвращается, если форма заказа не прошла проверку.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrFormClosed возвращается при изменении позиций без открытой формы редактирования.
	ErrFormClosed = errors.New("order form is not open")
)

// Сообщения пользователю.
const (
	msgUnknownRole      = "unknown user role"
	msgLoadFailed       = "failed to load orders"
	msgOrderNotFound    = "order not found"
	msgChooseStatus     = "choose a new status"
	msgStatusUnchanged  = "status was not changed"
	msgStatusUpdated    = "order status updated"
	msgStatusFailed     = "failed to update order status"
	msgChooseCourier    = "choose a courier"
	msgNotAssignable    = "a courier can only be assigned to a pending order without a courier"
	msgAssigned         = "courier assigned and order status updated"
	msgAssignFailed     = "failed to assign courier"
	msgAssignPartial    = "courier assigned, but the order status was not updated: "
	msgBranchEmpty      = "no couriers available in the branch, loading region couriers"
	msgBranchFailed     = "failed to load branch couriers"
	msgTryRegion        = "trying region couriers"
	msgRegionEmpty      = "no couriers available in the region either"
	msgRegionFailed     = "failed to load region couriers"
	msgNoPendingDelete  = "no order selected for deletion"
	msgDeleted          = "order deleted"
	msgDeleteFailed     = "failed to delete order"
	msgOrderCreated     = "order created"
	msgOrderCreateError = "failed to create order"
	msgOrderLoadFailed  = "failed to load order"
	msgOrderUpdated     = "order updated"
	msgOrderUpdateError = "failed to update order"
)

// CanAssignCourier сообщает, можно ли назначить курьера заказу.
// Это единственное правило переходов, которое проверяется на стороне консоли:
// остальные переходы проверяет бэкенд.
func CanAssignCourier(o *model.Order) bool {
	return o != nil && o.Status == model.StatusPending && o.CourierID == ""
}
