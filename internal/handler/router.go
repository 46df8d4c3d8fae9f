package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/shipping-admin/internal/middleware"
	"github.com/mmeshcher/shipping-admin/internal/permission"
)

// SetupRouter настраивает HTTP-маршруты и middleware консоли.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Get(custommiddleware.LoginPath, h.LoginPage)
	r.Get(custommiddleware.UnauthorizedPath, h.Unauthorized)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.With(h.auth.RequirePermission(permission.DashboardView)).Get(DashboardPath, h.Session)
		r.Get("/api/session", h.Session)

		r.Route("/api/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequirePermission(permission.OrdersView))

				r.Get("/", h.GetOrders)
				r.Post("/reload", h.ReloadOrders)
				r.Post("/page/next", h.NextPage)
				r.Post("/page/prev", h.PrevPage)
			})

			r.With(h.auth.RequirePermission(permission.OrdersAdd)).Post("/", h.CreateOrder)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequirePermission(permission.OrdersUpdate))

				r.Post("/{id}/status", h.UpdateStatus)
				r.Post("/{id}/status/open", h.OpenStatusEditor)
				r.Post("/status/select", h.SelectStatus)
				r.Post("/status/close", h.CloseStatusEditor)

				r.Get("/{id}/couriers", h.OpenCourierPicker)
				r.Post("/couriers/select", h.SelectCourier)
				r.Post("/couriers/close", h.CloseCourierPicker)
				r.Post("/{id}/courier", h.AssignCourier)

				r.Get("/{id}", h.GetOrderForEdit)
				r.Put("/{id}", h.UpdateOrder)
				r.Post("/form/products", h.AddFormProduct)
				r.Put("/form/products/{index}", h.UpdateFormProduct)
				r.Delete("/form/products/{index}", h.RemoveFormProduct)
				r.Post("/form/close", h.CloseOrderForm)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequirePermission(permission.OrdersDelete))

				r.Post("/{id}/delete", h.RequestDelete)
				r.Post("/delete/confirm", h.ConfirmDelete)
			})

			r.Post("/delete/cancel", h.CancelDelete)
		})

		r.Get("/api/notifications", h.Notifications)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
