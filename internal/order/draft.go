package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
	"github.com/mmeshcher/shipping-admin/internal/validation"
)

// ErrProductIndex возвращается при обращении к несуществующей позиции черновика.
var ErrProductIndex = errors.New("product index out of range")

// Draft хранит форму заказа. Итоги пересчитываются после каждого изменения позиций
// и никогда не берутся из присланных клиентом значений.
type Draft struct {
	order model.Order
}

// NewDraft создаёт черновик на основе заполненной формы.
func NewDraft(o model.Order) *Draft {
	o.Products = append([]model.Product{}, o.Products...)
	d := &Draft{order: o}
	d.order.Recalculate()
	return d
}

// AddProduct добавляет позицию.
func (d *Draft) AddProduct(p model.Product) {
	d.order.Products = append(d.order.Products, p)
	d.order.Recalculate()
}

// RemoveProduct удаляет позицию с индексом i.
func (d *Draft) RemoveProduct(i int) error {
	if i < 0 || i >= len(d.order.Products) {
		return fmt.Errorf("%w: %d", ErrProductIndex, i)
	}
	d.order.Products = append(d.order.Products[:i], d.order.Products[i+1:]...)
	d.order.Recalculate()
	return nil
}

// UpdateProduct заменяет позицию с индексом i.
func (d *Draft) UpdateProduct(i int, p model.Product) error {
	if i < 0 || i >= len(d.order.Products) {
		return fmt.Errorf("%w: %d", ErrProductIndex, i)
	}
	d.order.Products[i] = p
	d.order.Recalculate()
	return nil
}

// Products возвращает копию позиций.
func (d *Draft) Products() []model.Product {
	return append([]model.Product{}, d.order.Products...)
}

// Totals возвращает текущие суммарный вес и стоимость.
func (d *Draft) Totals() (weight, cost float64) {
	return d.order.TotalWeight, d.order.OrderCost
}

// Order возвращает копию заказа из черновика.
func (d *Draft) Order() model.Order {
	o := d.order
	o.Products = d.Products()
	return o
}

// CreateOrder проверяет черновик и создаёт заказ.
// Для продавца идентификатор продавца всегда подставляется из сеанса.
func (c *Controller) CreateOrder(ctx context.Context, d *Draft) (*model.Order, error) {
	o := d.Order()
	o.ID = 0
	o.Status = model.StatusPending
	o.CourierID = ""
	if c.actor.Role == model.RoleMerchant {
		o.MerchantID = c.actor.ID
	}
	o.Recalculate()

	if err := c.validateOrder(o, "create"); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	created, err := c.backend.CreateOrder(ctx, o)

	c.mu.Lock()
	c.pending--
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("failed to create order", zap.String("merchant", o.MerchantID), zap.Error(err))
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgOrderCreateError))
		c.observe("create", OutcomeFailed)
		return nil, fmt.Errorf("create order: %w", err)
	}
	if created == nil {
		created = &o
	}

	c.feed.Notify(notify.LevelSuccess, msgOrderCreated)
	c.observe("create", OutcomeSuccess)
	c.publish(ctx, audit.Event{Type: audit.EventOrderCreated, OrderID: created.ID})

	_ = c.Reload(ctx)
	return created, nil
}

func (c *Controller) validateOrder(o model.Order, operation string) error {
	if err := validation.Struct(o); err != nil {
		msgs := validation.Messages(err)
		c.feed.Notify(notify.LevelError, strings.Join(msgs, ", "))
		c.observe(operation, OutcomeRejected)
		return fmt.Errorf("%w: %s", ErrInvalidOrder, strings.Join(msgs, "; "))
	}
	return nil
}
