package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/middleware"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/notify"
	"github.com/mmeshcher/shipping-admin/internal/order"
)

// ordersResponse описывает ответ всех операций над заказами: состояние экрана и накопленные уведомления.
type ordersResponse struct {
	View          order.View            `json:"view"`
	Notifications []notify.Notification `json:"notifications"`
	Order         *model.Order          `json:"order,omitempty"`
	Assignment    *order.AssignOutcome  `json:"assignment,omitempty"`
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*order.Controller, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	return h.service.Orders(r.Context(), sess), true
}

func (h *Handler) respond(w http.ResponseWriter, c *order.Controller, err error, resp ordersResponse) {
	status := http.StatusOK
	if err != nil {
		status = operationStatus(err)
		if status == http.StatusFailedDependency {
			h.logger.Warn("order operation failed", zap.String("user", c.Actor().ID), zap.Error(err))
		}
	}
	resp.View = c.View()
	resp.Notifications = c.Notifications()
	writeJSON(w, status, resp)
}

// operationStatus выбирает код ответа по ошибке операции.
// Отказ бэкенда не превращается в 5xx: подробности уже есть в уведомлениях.
func operationStatus(err error) int {
	switch {
	case errors.Is(err, order.ErrPartialAssignment):
		return http.StatusOK
	case errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrNoStatusSelected),
		errors.Is(err, order.ErrNoCourierSelected),
		errors.Is(err, order.ErrEditorClosed),
		errors.Is(err, order.ErrPickerClosed),
		errors.Is(err, order.ErrFormClosed),
		errors.Is(err, order.ErrProductIndex):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrNotAssignable),
		errors.Is(err, order.ErrNoPendingDelete):
		return http.StatusConflict
	case errors.Is(err, order.ErrUnknownRole):
		return http.StatusForbidden
	default:
		return http.StatusFailedDependency
	}
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, messageResponse{Message: message})
}

// GetOrders возвращает экран заказов. Параметры status, page и pageSize меняют фильтр и страницу.
// Значение status "all" или пустое снимает фильтр.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			badRequest(w, "pageSize must be a positive number")
			return
		}
		c.SetPageSize(size)
	}

	page := 1
	rawPage := q.Get("page")
	if rawPage != "" {
		p, err := strconv.Atoi(rawPage)
		if err != nil || p < 1 {
			badRequest(w, "page must be a positive number")
			return
		}
		page = p
	}

	if _, hasStatus := q["status"]; hasStatus {
		var filter *model.OrderStatus
		if raw := strings.TrimSpace(q.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
			s, err := model.ParseOrderStatus(raw)
			if err != nil {
				badRequest(w, "unknown order status")
				return
			}
			filter = &s
		}
		c.FilterByStatus(filter, page)
	} else if rawPage != "" {
		c.GoToPage(page)
	}

	h.respond(w, c, nil, ordersResponse{})
}

// NextPage переходит на следующую страницу списка.
func (h *Handler) NextPage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.NextPage()
	h.respond(w, c, nil, ordersResponse{})
}

// PrevPage переходит на предыдущую страницу списка.
func (h *Handler) PrevPage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.PrevPage()
	h.respond(w, c, nil, ordersResponse{})
}

// ReloadOrders заново загружает список заказов.
func (h *Handler) ReloadOrders(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	err := c.Reload(r.Context())
	h.respond(w, c, err, ordersResponse{})
}

// CreateOrder создаёт заказ из формы.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var form model.Order
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	created, err := c.CreateOrder(r.Context(), order.NewDraft(form))
	if err != nil {
		h.respond(w, c, err, ordersResponse{})
		return
	}

	resp := ordersResponse{Order: created, View: c.View(), Notifications: c.Notifications()}
	writeJSON(w, http.StatusCreated, resp)
}

// GetOrderForEdit загружает заказ и открывает форму его редактирования.
func (h *Handler) GetOrderForEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	loaded, err := c.OpenOrderForm(r.Context(), id)
	h.respond(w, c, err, ordersResponse{Order: loaded})
}

// UpdateOrder сохраняет заказ. Без тела сохраняется открытая форма редактирования.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var draft *order.Draft
	if r.ContentLength != 0 {
		var form model.Order
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		draft = order.NewDraft(form)
	}

	saved, err := c.EditOrder(r.Context(), id, draft)
	h.respond(w, c, err, ordersResponse{Order: saved})
}

func productIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// AddFormProduct добавляет позицию в форму редактирования.
func (h *Handler) AddFormProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.AddFormProduct(p)
	h.respond(w, c, err, ordersResponse{})
}

// UpdateFormProduct заменяет позицию формы редактирования.
func (h *Handler) UpdateFormProduct(w http.ResponseWriter, r *http.Request) {
	i, ok := productIndex(r)
	if !ok {
		badRequest(w, "invalid product index")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.UpdateFormProduct(i, p)
	h.respond(w, c, err, ordersResponse{})
}

// RemoveFormProduct удаляет позицию из формы редактирования.
func (h *Handler) RemoveFormProduct(w http.ResponseWriter, r *http.Request) {
	i, ok := productIndex(r)
	if !ok {
		badRequest(w, "invalid product index")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	err := c.RemoveFormProduct(i)
	h.respond(w, c, err, ordersResponse{})
}

// CloseOrderForm закрывает форму редактирования без сохранения.
func (h *Handler) CloseOrderForm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.CloseOrderForm()
	h.respond(w, c, nil, ordersResponse{})
}

type statusRequest struct {
	Status *model.OrderStatus `json:"status"`
}

// UpdateStatus меняет статус заказа. Без статуса в теле используется выбор в открытом редакторе.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	err := c.UpdateStatus(r.Context(), id, req.Status)
	h.respond(w, c, err, ordersResponse{})
}

// OpenStatusEditor открывает редактор статуса заказа.
func (h *Handler) OpenStatusEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	err := c.OpenStatusEditor(id)
	h.respond(w, c, err, ordersResponse{})
}

// SelectStatus выбирает статус в открытом редакторе.
func (h *Handler) SelectStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == nil {
		badRequest(w, "status is required")
		return
	}
	err := c.SelectStatus(*req.Status)
	h.respond(w, c, err, ordersResponse{})
}

// CloseStatusEditor закрывает редактор статуса.
func (h *Handler) CloseStatusEditor(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.CloseStatusEditor()
	h.respond(w, c, nil, ordersResponse{})
}

// OpenCourierPicker загружает курьеров, которым можно передать заказ.
func (h *Handler) OpenCourierPicker(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	err := c.OpenCourierPicker(r.Context(), id)
	h.respond(w, c, err, ordersResponse{})
}

type courierRequest struct {
	CourierID string `json:"courierId"`
}

// SelectCourier выбирает курьера в открытом списке.
func (h *Handler) SelectCourier(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req courierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	err := c.SelectCourier(req.CourierID)
	h.respond(w, c, err, ordersResponse{})
}

// CloseCourierPicker закрывает список курьеров.
func (h *Handler) CloseCourierPicker(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.CloseCourierPicker()
	h.respond(w, c, nil, ordersResponse{})
}

// AssignCourier назначает курьера и переводит заказ в статус DeliveredToCourier.
func (h *Handler) AssignCourier(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req courierRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	outcome, err := c.AssignCourier(r.Context(), id, req.CourierID)
	h.respond(w, c, err, ordersResponse{Assignment: &outcome})
}

// RequestDelete открывает подтверждение удаления заказа.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.RequestDelete(id)
	h.respond(w, c, nil, ordersResponse{})
}

// CancelDelete закрывает подтверждение удаления.
func (h *Handler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.CancelDelete()
	h.respond(w, c, nil, ordersResponse{})
}

// ConfirmDelete удаляет заказ, ожидающий подтверждения.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	err := c.ConfirmDelete(r.Context())
	h.respond(w, c, err, ordersResponse{})
}

// Notifications отдаёт и очищает накопленные уведомления.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Notifications())
}
