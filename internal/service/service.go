// Package service связывает вход пользователя, сеансы и контроллеры заказов консоли.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/backend"
	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/order"
	"github.com/mmeshcher/shipping-admin/internal/session"
)

var (
	// ErrEmptyCredentials возвращается, если не указан email или пароль.
	ErrEmptyCredentials = errors.New("email and password are required")
	// ErrInvalidCredentials возвращается, если бэкенд отклонил вход.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator выполняет вход пользователя на бэкенде.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
}

// Sessions описывает операции над сеансами, используемые сервисом.
type Sessions interface {
	Login(ctx context.Context, token string, profile session.Profile) (*model.Session, error)
	Resolve(ctx context.Context, sessionID string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string)
}

// Service содержит сценарии консоли поверх бэкенда и хранилища сеансов.
type Service struct {
	auth     Authenticator
	sessions Sessions
	orders   *order.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewService создаёт сервис консоли.
func NewService(auth Authenticator, sessions Sessions, orders *order.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		auth:     auth,
		sessions: sessions,
		orders:   orders,
		logger:   logger,
		now:      time.Now,
	}
}

// Login проверяет учётные данные на бэкенде и открывает новый сеанс консоли.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("backend login: %w", err)
	}

	profile := session.Profile{
		UserID:   res.ID,
		Email:    res.Email,
		FullName: res.FullName,
	}
	if res.ExpiresIn > 0 {
		profile.ExpiresAt = s.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}
	if profile.FullName == "" {
		profile.FullName = res.MerchantName
	}

	sess, err := s.sessions.Login(ctx, res.Token, profile)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve возвращает действующий сеанс.
func (s *Service) Resolve(ctx context.Context, sessionID string) (*model.Session, error) {
	return s.sessions.Resolve(ctx, sessionID)
}

// Logout закрывает сеанс. Состояние экрана заказов удаляется через обработчик уничтожения сеанса.
func (s *Service) Logout(ctx context.Context, sessionID string) {
	s.sessions.Logout(ctx, sessionID)
}

// Orders возвращает контроллер заказов сеанса. При первом обращении список загружается.
func (s *Service) Orders(ctx context.Context, sess *model.Session) *order.Controller {
	c := s.orders.Get(sess)
	if !c.View().Loaded {
		if err := c.Reload(ctx); err != nil {
			s.logger.Debug("initial orders load failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}
	return c
}

// DropOrders удаляет состояние экрана заказов сеанса.
func (s *Service) DropOrders(sessionID string) {
	s.orders.Drop(sessionID)
}
