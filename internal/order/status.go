package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
)

// StatusEditor описывает открытый редактор статуса заказа.
type StatusEditor struct {
	OrderID  int64              `json:"orderId"`
	Current  model.OrderStatus  `json:"current"`
	Selected *model.OrderStatus `json:"selected"`
}

func (e *StatusEditor) clone() StatusEditor {
	res := *e
	if e.Selected != nil {
		s := *e.Selected
		res.Selected = &s
	}
	return res
}

// OpenStatusEditor открывает редактор статуса для заказа из загруженного списка.
// Список курьеров при этом закрывается.
func (c *Controller) OpenStatusEditor(orderID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.findLocked(orderID)
	if o == nil {
		c.feed.Notify(notify.LevelError, msgOrderNotFound)
		return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	current := o.Status
	c.editor = &StatusEditor{OrderID: orderID, Current: current, Selected: &current}
	c.picker = nil
	return nil
}

// SelectStatus выбирает новый статус в открытом редакторе. Текущий статус выбрать нельзя.
func (c *Controller) SelectStatus(status model.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editor == nil {
		return ErrEditorClosed
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrNoStatusSelected, int(status))
	}
	if status != c.editor.Current {
		c.editor.Selected = &status
	}
	return nil
}

// CloseStatusEditor закрывает редактор статуса без изменений.
func (c *Controller) CloseStatusEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = nil
}

// UpdateStatus переводит заказ в новый статус.
//
// Если newStatus равен nil, берётся статус, выбранный в открытом редакторе этого заказа.
// Совпадение с текущим статусом не считается ошибкой: бэкенд не вызывается,
// пользователь получает информационное сообщение, редактор закрывается.
// При успехе статус заказа обновляется в памяти, редактор закрывается и список перезагружается.
func (c *Controller) UpdateStatus(ctx context.Context, orderID int64, newStatus *model.OrderStatus) error {
	c.mu.Lock()

	if newStatus == nil && c.editor != nil && c.editor.OrderID == orderID {
		newStatus = c.editor.Selected
	}
	if newStatus == nil || !newStatus.Valid() {
		c.feed.Notify(notify.LevelError, msgChooseStatus)
		c.observe("update_status", OutcomeRejected)
		c.mu.Unlock()
		return ErrNoStatusSelected
	}

	o := c.findLocked(orderID)
	if o == nil {
		c.feed.Notify(notify.LevelError, msgOrderNotFound)
		c.observe("update_status", OutcomeRejected)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	target := *newStatus
	if o.Status == target {
		c.feed.Notify(notify.LevelInfo, msgStatusUnchanged)
		c.editor = nil
		c.observe("update_status", OutcomeNoop)
		c.mu.Unlock()
		return nil
	}

	c.pending++
	c.mu.Unlock()

	err := c.backend.UpdateOrderStatus(ctx, orderID, target)

	c.mu.Lock()
	c.pending--
	if err != nil {
		c.logger.Error("failed to update order status",
			zap.Int64("order", orderID),
			zap.Stringer("status", target),
			zap.Error(err),
		)
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgStatusFailed))
		c.observe("update_status", OutcomeFailed)
		c.mu.Unlock()
		return fmt.Errorf("update status of order %d: %w", orderID, err)
	}

	if o := c.findLocked(orderID); o != nil {
		o.Status = target
	}
	c.editor = nil
	c.feed.Notify(notify.LevelSuccess, msgStatusUpdated)
	c.observe("update_status", OutcomeSuccess)
	c.mu.Unlock()

	c.publish(ctx, audit.Event{Type: audit.EventStatusUpdated, OrderID: orderID, Status: &target})

	_ = c.Reload(ctx)
	return nil
}
