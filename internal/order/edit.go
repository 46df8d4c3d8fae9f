package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
)

// OrderForm описывает открытую форму редактирования заказа.
type OrderForm struct {
	OrderID int64       `json:"orderId"`
	Order   model.Order `json:"order"`

	draft *Draft
}

func (f *OrderForm) clone() OrderForm {
	return OrderForm{OrderID: f.OrderID, Order: f.draft.Order()}
}

// OpenOrderForm загружает заказ с бэкенда и открывает форму его редактирования.
func (c *Controller) OpenOrderForm(ctx context.Context, orderID int64) (*model.Order, error) {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	o, err := c.backend.GetOrderForEdit(ctx, orderID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--

	if err != nil {
		c.logger.Error("failed to load order for edit", zap.Int64("order", orderID), zap.Error(err))
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgOrderLoadFailed))
		c.observe("edit_open", OutcomeFailed)
		return nil, fmt.Errorf("get order for edit: %w", err)
	}
	if o == nil {
		c.feed.Notify(notify.LevelError, msgOrderNotFound)
		c.observe("edit_open", OutcomeRejected)
		return nil, ErrOrderNotFound
	}

	loaded := *o
	loaded.ID = orderID
	c.form = &OrderForm{OrderID: orderID, draft: NewDraft(loaded)}
	c.observe("edit_open", OutcomeSuccess)

	res := c.form.draft.Order()
	return &res, nil
}

// CloseOrderForm закрывает форму редактирования без сохранения.
func (c *Controller) CloseOrderForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = nil
}

// AddFormProduct добавляет позицию в открытую форму.
func (c *Controller) AddFormProduct(p model.Product) error {
	return c.withForm(func(d *Draft) error {
		d.AddProduct(p)
		return nil
	})
}

// UpdateFormProduct заменяет позицию открытой формы.
func (c *Controller) UpdateFormProduct(i int, p model.Product) error {
	return c.withForm(func(d *Draft) error { return d.UpdateProduct(i, p) })
}

// RemoveFormProduct удаляет позицию из открытой формы.
func (c *Controller) RemoveFormProduct(i int) error {
	return c.withForm(func(d *Draft) error { return d.RemoveProduct(i) })
}

func (c *Controller) withForm(fn func(d *Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.form == nil {
		return ErrFormClosed
	}
	return fn(c.form.draft)
}

// EditOrder сохраняет изменения заказа. Если d равен nil, сохраняется открытая форма этого заказа.
// Итоги пересчитываются по позициям, продавец не может сменить владельца заказа.
func (c *Controller) EditOrder(ctx context.Context, orderID int64, d *Draft) (*model.Order, error) {
	if d == nil {
		c.mu.Lock()
		if c.form == nil || c.form.OrderID != orderID {
			c.mu.Unlock()
			return nil, ErrFormClosed
		}
		d = NewDraft(c.form.draft.Order())
		c.mu.Unlock()
	}

	o := d.Order()
	o.ID = orderID
	if c.actor.Role == model.RoleMerchant {
		o.MerchantID = c.actor.ID
	}
	o.Recalculate()

	if err := c.validateOrder(o, "edit"); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	err := c.backend.UpdateOrder(ctx, orderID, o)

	c.mu.Lock()
	c.pending--
	if err == nil && c.form != nil && c.form.OrderID == orderID {
		c.form = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("failed to update order", zap.Int64("order", orderID), zap.Error(err))
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgOrderUpdateError))
		c.observe("edit", OutcomeFailed)
		return nil, fmt.Errorf("update order: %w", err)
	}

	c.feed.Notify(notify.LevelSuccess, msgOrderUpdated)
	c.observe("edit", OutcomeSuccess)
	c.publish(ctx, audit.Event{Type: audit.EventOrderUpdated, OrderID: orderID})

	_ = c.Reload(ctx)
	return &o, nil
}
