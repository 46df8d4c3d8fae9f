// Package handler содержит HTTP-обработчики API консоли управления доставкой.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/middleware"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/order"
	"github.com/mmeshcher/shipping-admin/internal/service"
	"github.com/mmeshcher/shipping-admin/internal/session"
)

// DashboardPath задаёт страницу, на которую попадает пользователь с действующим сеансом.
const DashboardPath = "/dashboard"

// Service определяет контракт сценариев консоли, используемых HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Resolve(ctx context.Context, sessionID string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string)
	Orders(ctx context.Context, sess *model.Session) *order.Controller
}

// Handler реализует HTTP-обработчики API консоли.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.SessionAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.SessionAuth) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string     `json:"userId"`
	FullName    string     `json:"fullName,omitempty"`
	Email       string     `json:"email,omitempty"`
	Role        model.Role `json:"role"`
	Permissions []string   `json:"permissions"`
	TokenExpiry time.Time  `json:"tokenExpiry"`
}

func newSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{
		UserID:      s.UserID,
		FullName:    s.FullName,
		Email:       s.Email,
		Role:        s.Role,
		Permissions: s.Permissions.Strings(),
		TokenExpiry: s.TokenExpiry,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login выполняет вход через бэкенд и выдаёт cookie сеанса.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCredentials):
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, session.ErrTokenExpired),
			errors.Is(err, session.ErrMalformedToken):
			h.logger.Info("login rejected", zap.String("email", req.Email), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid email or password"})
		default:
			h.logger.Error("login error", zap.String("email", req.Email), zap.Error(err))
			writeJSON(w, http.StatusBadGateway, messageResponse{Message: "login is temporarily unavailable"})
		}
		return
	}

	// Повторный вход закрывает прежний сеанс этого браузера.
	if oldID, ok := h.auth.SessionID(r); ok && oldID != sess.ID {
		h.service.Logout(r.Context(), oldID)
	}

	h.auth.SetSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// LoginPage проверяет сеанс при открытии страницы входа.
// С действующим сеансом перенаправляет на главную, иначе удаляет cookie.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.auth.SessionID(r); ok {
		if _, err := h.service.Resolve(r.Context(), id); err == nil {
			http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
			return
		}
	}

	if _, err := r.Cookie(middleware.SessionCookieName); err == nil {
		h.auth.ClearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
}

// Logout закрывает сеанс и перенаправляет на страницу входа.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.auth.SessionID(r); ok {
		h.service.Logout(r.Context(), id)
	}
	h.auth.ClearSessionCookie(w)
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

// Unauthorized сообщает об отказе в доступе.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusForbidden, messageResponse{Message: "you do not have permission to perform this action"})
}

// Session возвращает сведения о текущем сеансе.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
