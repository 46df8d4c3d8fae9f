package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
)

// CourierScope показывает, откуда взят список курьеров.
type CourierScope string

const (
	ScopeNone   CourierScope = ""
	ScopeBranch CourierScope = "branch"
	ScopeRegion CourierScope = "region"
)

// CourierPicker описывает открытый список курьеров для назначения заказа.
type CourierPicker struct {
	OrderID           int64           `json:"orderId"`
	Couriers          []model.Courier `json:"couriers"`
	Scope             CourierScope    `json:"scope"`
	SelectedCourierID string          `json:"selectedCourierId,omitempty"`
	Loading           bool            `json:"loading"`
}

func (p *CourierPicker) clone() CourierPicker {
	res := *p
	res.Couriers = append([]model.Courier{}, p.Couriers...)
	return res
}

// AssignOutcome описывает, какие шаги назначения курьера выполнены.
type AssignOutcome struct {
	Assigned     bool `json:"assigned"`
	Transitioned bool `json:"transitioned"`
}

// Partial сообщает о частичном результате: курьер назначен, статус не изменился.
func (o AssignOutcome) Partial() bool {
	return o.Assigned && !o.Transitioned
}

// OpenCourierPicker открывает список курьеров для заказа.
//
// Сначала запрашиваются курьеры филиала заказа. Если их нет или запрос не удался,
// запрашиваются курьеры региона. Пустой список региона не считается ошибкой:
// пользователь получает предупреждение и пустой список.
func (c *Controller) OpenCourierPicker(ctx context.Context, orderID int64) error {
	c.mu.Lock()
	o := c.findLocked(orderID)
	if o == nil {
		c.feed.Notify(notify.LevelError, msgOrderNotFound)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if !CanAssignCourier(o) {
		c.feed.Notify(notify.LevelError, msgNotAssignable)
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotAssignable, orderID)
	}

	branchID, regionID := o.Branch.ID, o.Region.ID
	c.editor = nil
	c.picker = &CourierPicker{OrderID: orderID, Couriers: []model.Courier{}, Loading: true}
	c.pending++
	c.mu.Unlock()

	couriers, scope := c.resolveCouriers(ctx, orderID, branchID, regionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.picker != nil && c.picker.OrderID == orderID {
		c.picker.Couriers = couriers
		c.picker.Scope = scope
		c.picker.Loading = false
	}
	return nil
}

func (c *Controller) resolveCouriers(ctx context.Context, orderID, branchID, regionID int64) ([]model.Courier, CourierScope) {
	log := c.logger.With(zap.Int64("order", orderID))

	if branchID != 0 {
		couriers, err := c.backend.ListCouriersByBranch(ctx, branchID)
		switch {
		case err != nil:
			log.Warn("failed to load branch couriers", zap.Int64("branch", branchID), zap.Error(err))
			c.feed.Notify(notify.LevelError, msgBranchFailed)
			c.feed.Notify(notify.LevelInfo, msgTryRegion)
		case len(couriers) > 0:
			return couriers, ScopeBranch
		default:
			c.feed.Notify(notify.LevelInfo, msgBranchEmpty)
		}
	} else {
		c.feed.Notify(notify.LevelInfo, msgBranchEmpty)
	}

	if regionID == 0 {
		c.feed.Notify(notify.LevelWarning, msgRegionEmpty)
		return []model.Courier{}, ScopeRegion
	}

	couriers, err := c.backend.ListCouriersByRegion(ctx, regionID)
	if err != nil {
		log.Warn("failed to load region couriers", zap.Int64("region", regionID), zap.Error(err))
		c.feed.Notify(notify.LevelError, msgRegionFailed)
		return []model.Courier{}, ScopeNone
	}
	if len(couriers) == 0 {
		c.feed.Notify(notify.LevelWarning, msgRegionEmpty)
		return []model.Courier{}, ScopeRegion
	}
	return couriers, ScopeRegion
}

// SelectCourier выбирает курьера в открытом списке.
func (c *Controller) SelectCourier(courierID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.picker == nil {
		return ErrPickerClosed
	}
	c.picker.SelectedCourierID = courierID
	return nil
}

// CloseCourierPicker закрывает список курьеров.
func (c *Controller) CloseCourierPicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker = nil
}

// AssignCourier назначает заказу курьера и переводит заказ в статус DeliveredToCourier.
//
// Шаги выполняются строго последовательно: смена статуса запрашивается только после
// успешного назначения. Если назначение прошло, а смена статуса нет, назначение
// не откатывается: возвращается ErrPartialAssignment, пользователь получает предупреждение.
// Пустой courierID означает курьера, выбранного в открытом списке этого заказа.
func (c *Controller) AssignCourier(ctx context.Context, orderID int64, courierID string) (AssignOutcome, error) {
	var outcome AssignOutcome

	c.mu.Lock()
	if courierID == "" && c.picker != nil && c.picker.OrderID == orderID {
		courierID = c.picker.SelectedCourierID
	}
	if courierID == "" {
		c.feed.Notify(notify.LevelError, msgChooseCourier)
		c.observe("assign_courier", OutcomeRejected)
		c.mu.Unlock()
		return outcome, ErrNoCourierSelected
	}

	o := c.findLocked(orderID)
	if o == nil {
		c.feed.Notify(notify.LevelError, msgOrderNotFound)
		c.observe("assign_courier", OutcomeRejected)
		c.mu.Unlock()
		return outcome, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	if !CanAssignCourier(o) {
		c.feed.Notify(notify.LevelError, msgNotAssignable)
		c.observe("assign_courier", OutcomeRejected)
		c.mu.Unlock()
		return outcome, fmt.Errorf("%w: %d", ErrNotAssignable, orderID)
	}
	courierName := c.courierNameLocked(orderID, courierID)
	c.pending++
	c.mu.Unlock()

	assignment := model.CourierAssignment{OrderID: orderID, CourierID: courierID}
	outcome, err := c.runAssignment(ctx, assignment)

	c.mu.Lock()
	c.pending--
	switch {
	case !outcome.Assigned:
		c.logger.Error("failed to assign courier",
			zap.Int64("order", orderID),
			zap.String("courier", courierID),
			zap.Error(err),
		)
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgAssignFailed))
		c.observe("assign_courier", OutcomeFailed)
		c.mu.Unlock()
		return outcome, fmt.Errorf("assign courier to order %d: %w", orderID, err)

	case outcome.Partial():
		c.logger.Warn("courier assigned but status not updated",
			zap.Int64("order", orderID),
			zap.String("courier", courierID),
			zap.Error(err),
		)
		c.patchCourierLocked(orderID, courierID, courierName, nil)
		c.picker = nil
		c.feed.Notify(notify.LevelWarning, msgAssignPartial+notify.Describe(err, msgStatusFailed))
		c.observe("assign_courier", OutcomePartial)
		c.mu.Unlock()

		c.publish(ctx, audit.Event{Type: audit.EventCourierAssigned, OrderID: orderID, CourierID: courierID, Partial: true})
		_ = c.Reload(ctx)
		return outcome, fmt.Errorf("%w: order %d: %w", ErrPartialAssignment, orderID, err)
	}

	status := model.StatusDeliveredToCourier
	c.patchCourierLocked(orderID, courierID, courierName, &status)
	c.picker = nil
	c.feed.Notify(notify.LevelSuccess, msgAssigned)
	c.observe("assign_courier", OutcomeSuccess)
	c.mu.Unlock()

	c.publish(ctx, audit.Event{Type: audit.EventCourierAssigned, OrderID: orderID, CourierID: courierID, Status: &status})
	_ = c.Reload(ctx)
	return outcome, nil
}

// runAssignment выполняет два шага назначения. Второй шаг не запускается, если первый не удался.
func (c *Controller) runAssignment(ctx context.Context, a model.CourierAssignment) (AssignOutcome, error) {
	var outcome AssignOutcome

	if err := c.backend.AssignOrderToCourier(ctx, a.OrderID, a.CourierID); err != nil {
		return outcome, err
	}
	outcome.Assigned = true

	if err := c.backend.UpdateOrderStatus(ctx, a.OrderID, model.StatusDeliveredToCourier); err != nil {
		return outcome, err
	}
	outcome.Transitioned = true

	return outcome, nil
}

func (c *Controller) courierNameLocked(orderID int64, courierID string) string {
	if c.picker == nil || c.picker.OrderID != orderID {
		return ""
	}
	for _, cr := range c.picker.Couriers {
		if cr.ID == courierID {
			return cr.FullName
		}
	}
	return ""
}

func (c *Controller) patchCourierLocked(orderID int64, courierID, courierName string, status *model.OrderStatus) {
	o := c.findLocked(orderID)
	if o == nil {
		return
	}
	o.CourierID = courierID
	if courierName != "" {
		o.CourierName = courierName
	}
	if status != nil {
		o.Status = *status
	}
}

// IsPartialAssignment сообщает, что ошибка описывает частично выполненное назначение.
func IsPartialAssignment(err error) bool {
	return errors.Is(err, ErrPartialAssignment)
}
