package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/notify"
)

// RequestDelete открывает подтверждение удаления заказа.
func (c *Controller) RequestDelete(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletingID = &orderID
}

// CancelDelete закрывает подтверждение удаления без обращения к бэкенду.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletingID = nil
}

// DeletingOrderID возвращает заказ, ожидающий подтверждения удаления.
func (c *Controller) DeletingOrderID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deletingID == nil {
		return 0, false
	}
	return *c.deletingID, true
}

// ConfirmDelete удаляет заказ, ожидающий подтверждения.
// Подтверждение закрывается при любом исходе; при успехе список перезагружается.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.deletingID == nil {
		c.feed.Notify(notify.LevelWarning, msgNoPendingDelete)
		c.mu.Unlock()
		return ErrNoPendingDelete
	}
	orderID := *c.deletingID
	c.pending++
	c.mu.Unlock()

	err := c.backend.DeleteOrder(ctx, orderID)

	c.mu.Lock()
	c.pending--
	c.deletingID = nil
	if err != nil {
		c.logger.Error("failed to delete order", zap.Int64("order", orderID), zap.Error(err))
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgDeleteFailed))
		c.observe("delete", OutcomeFailed)
		c.mu.Unlock()
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	c.feed.Notify(notify.LevelSuccess, msgDeleted)
	c.observe("delete", OutcomeSuccess)
	c.mu.Unlock()

	c.publish(ctx, audit.Event{Type: audit.EventOrderDeleted, OrderID: orderID})

	_ = c.Reload(ctx)
	return nil
}
