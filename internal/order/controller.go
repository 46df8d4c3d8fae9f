package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/audit"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
	"github.com/mmeshcher/shipping-admin/internal/pagination"
)

const pageWindow = 5

// Controller хранит состояние экрана заказов одного сеанса и выполняет операции над ним.
//
// Мьютекс защищает только состояние экрана и отпускается на время вызовов бэкенда,
// поэтому запросы того же сеанса не блокируются, пока ждут ответа.
type Controller struct {
	backend   Backend
	actor     model.Actor
	feed      *notify.Feed
	logger    *zap.Logger
	publisher audit.Publisher
	observer  Observer
	now       func() time.Time

	mu         sync.Mutex
	all        []model.Order
	loaded     bool
	pending    int
	filter     *model.OrderStatus
	pager      pagination.Pager
	editor     *StatusEditor
	picker     *CourierPicker
	deletingID *int64
	form       *OrderForm
}

// Option настраивает контроллер.
type Option func(*Controller)

// WithLogger задаёт журнал контроллера.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPublisher задаёт получателя событий об изменении заказов.
func WithPublisher(p audit.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithObserver задаёт наблюдателя за исходами операций.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithPageSize задаёт начальный размер страницы.
func WithPageSize(n int) Option {
	return func(c *Controller) { c.pager = pagination.NewPager(n) }
}

// NewController создаёт контроллер для пользователя actor.
func NewController(backend Backend, actor model.Actor, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		actor:     actor,
		logger:    zap.NewNop(),
		publisher: audit.Nop{},
		now:       time.Now,
		pager:     pagination.NewPager(pagination.DefaultPageSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("user", actor.ID), zap.String("role", string(actor.Role)))
	c.feed = notify.NewFeed(c.logger)
	return c
}

// Actor возвращает пользователя, для которого создан контроллер.
func (c *Controller) Actor() model.Actor { return c.actor }

// Notifications забирает накопленные уведомления.
func (c *Controller) Notifications() []notify.Notification {
	return c.feed.Drain()
}

// Load загружает заказы, доступные роли пользователя, и заменяет ими текущий список целиком.
// После загрузки текущий фильтр применяется заново с первой страницы.
func (c *Controller) Load(ctx context.Context, actor model.Actor) error {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	orders, err := c.fetch(ctx, actor)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--

	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			c.feed.Notify(notify.LevelError, msgUnknownRole)
			c.observe("load", OutcomeRejected)
			return err
		}
		c.logger.Error("failed to load orders", zap.Error(err))
		c.feed.Notify(notify.LevelError, notify.Describe(err, msgLoadFailed))
		c.observe("load", OutcomeFailed)
		return fmt.Errorf("load orders: %w", err)
	}

	if orders == nil {
		orders = []model.Order{}
	}
	c.all = orders
	c.loaded = true
	c.pager.SetNumber(1)
	c.observe("load", OutcomeSuccess)
	return nil
}

// Reload повторяет загрузку для владельца контроллера.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Load(ctx, c.actor)
}

func (c *Controller) fetch(ctx context.Context, actor model.Actor) ([]model.Order, error) {
	switch actor.Role {
	case model.RoleEmployee:
		return c.backend.ListOrders(ctx)
	case model.RoleMerchant:
		return c.backend.ListOrdersByMerchant(ctx, actor.ID)
	case model.RoleCourier:
		return c.backend.ListOrdersByCourier(ctx, actor.ID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, actor.Role)
	}
}

// FilterByStatus фильтрует загруженный список по статусу; nil означает все статусы.
// Смена фильтра всегда возвращает на первую страницу, иначе открывается страница page.
func (c *Controller) FilterByStatus(status *model.OrderStatus, page int) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !sameFilter(c.filter, status) {
		page = 1
	}
	if status != nil {
		s := *status
		c.filter = &s
	} else {
		c.filter = nil
	}
	c.pager.SetNumber(page)
	return c.viewLocked()
}

func sameFilter(a, b *model.OrderStatus) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// NextPage переходит на следующую страницу, если она есть.
func (c *Controller) NextPage() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := pagination.TotalPages(len(c.filteredLocked()), c.pager.Size())
	if c.pager.Number() < total {
		c.pager.SetNumber(c.pager.Number() + 1)
	}
	return c.viewLocked()
}

// PrevPage переходит на предыдущую страницу, если она есть.
func (c *Controller) PrevPage() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pager.Number() > 1 {
		c.pager.SetNumber(c.pager.Number() - 1)
	}
	return c.viewLocked()
}

// GoToPage открывает страницу page, если она существует.
func (c *Controller) GoToPage(page int) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := pagination.TotalPages(len(c.filteredLocked()), c.pager.Size())
	if page >= 1 && page <= total {
		c.pager.SetNumber(page)
	}
	return c.viewLocked()
}

// SetPageSize меняет размер страницы и возвращает на первую страницу.
func (c *Controller) SetPageSize(size int) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > 0 && size != c.pager.Size() {
		c.pager.SetSize(size)
	}
	return c.viewLocked()
}

// Row описывает строку списка заказов вместе с признаком доступности назначения курьера.
type Row struct {
	model.Order
	CanAssignCourier bool `json:"canAssignCourier"`
}

// View содержит снимок состояния экрана заказов.
type View struct {
	Role            model.Role           `json:"role"`
	Loaded          bool                 `json:"loaded"`
	Loading         bool                 `json:"loading"`
	StatusFilter    *model.OrderStatus   `json:"statusFilter"`
	Orders          pagination.Page[Row] `json:"orders"`
	Pages           []int                `json:"pages"`
	StatusEditor    *StatusEditor        `json:"statusEditor,omitempty"`
	CourierPicker   *CourierPicker       `json:"courierPicker,omitempty"`
	DeletingOrderID *int64               `json:"deletingOrderId"`
	OrderForm       *OrderForm           `json:"orderForm,omitempty"`
	Statuses        []model.OrderStatus  `json:"statuses"`
}

// View возвращает текущий снимок состояния экрана.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	filtered := c.filteredLocked()
	rows := make([]Row, len(filtered))
	for i := range filtered {
		rows[i] = Row{Order: filtered[i], CanAssignCourier: CanAssignCourier(&filtered[i])}
	}
	page := pagination.Paginate(rows, c.pager.Number(), c.pager.Size())

	v := View{
		Role:     c.actor.Role,
		Loaded:   c.loaded,
		Loading:  c.pending > 0,
		Orders:   page,
		Pages:    pagination.Window(page.Number, page.TotalPages, pageWindow),
		Statuses: model.Statuses(),
	}
	if c.filter != nil {
		s := *c.filter
		v.StatusFilter = &s
	}
	if c.editor != nil {
		e := c.editor.clone()
		v.StatusEditor = &e
	}
	if c.picker != nil {
		p := c.picker.clone()
		v.CourierPicker = &p
	}
	if c.deletingID != nil {
		id := *c.deletingID
		v.DeletingOrderID = &id
	}
	if c.form != nil {
		f := c.form.clone()
		v.OrderForm = &f
	}
	return v
}

func (c *Controller) filteredLocked() []model.Order {
	if c.filter == nil {
		return c.all
	}
	res := make([]model.Order, 0, len(c.all))
	for _, o := range c.all {
		if o.Status == *c.filter {
			res = append(res, o)
		}
	}
	return res
}

func (c *Controller) findLocked(orderID int64) *model.Order {
	for i := range c.all {
		if c.all[i].ID == orderID {
			return &c.all[i]
		}
	}
	return nil
}

func (c *Controller) observe(operation, outcome string) {
	if c.observer != nil {
		c.observer.ObserveOrderOperation(operation, outcome)
	}
}

func (c *Controller) publish(ctx context.Context, e audit.Event) {
	e.ActorID = c.actor.ID
	e.Role = c.actor.Role
	e.At = c.now()
	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Warn("failed to publish order event",
			zap.String("type", string(e.Type)),
			zap.Int64("order", e.OrderID),
			zap.Error(err),
		)
	}
}
