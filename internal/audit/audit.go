// Package audit публикует события жизненного цикла заказов для внешних потребителей.
package audit

import (
	"context"
	"time"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

// EventType описывает вид события.
type EventType string

const (
	EventOrderCreated    EventType = "order.created"
	EventOrderUpdated    EventType = "order.updated"
	EventStatusUpdated   EventType = "order.status_updated"
	EventCourierAssigned EventType = "order.courier_assigned"
	EventOrderDeleted    EventType = "order.deleted"
)

// Event описывает изменение заказа, выполненное из консоли.
type Event struct {
	Type      EventType          `json:"type"`
	OrderID   int64              `json:"orderId"`
	ActorID   string             `json:"actorId"`
	Role      model.Role         `json:"role"`
	Status    *model.OrderStatus `json:"status,omitempty"`
	CourierID string             `json:"courierId,omitempty"`
	// Partial выставляется, когда курьер назначен, а статус не изменился.
	Partial bool      `json:"partial,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher отправляет события.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop отбрасывает события. Используется, когда брокер не настроен.
type Nop struct{}

// Publish ничего не делает.
func (Nop) Publish(context.Context, Event) error { return nil }
