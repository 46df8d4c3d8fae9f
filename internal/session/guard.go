package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/permission"
	"github.com/mmeshcher/shipping-admin/internal/repository"
)

var (
	// ErrNoSession возвращается, когда действующего сеанса нет.
	ErrNoSession = errors.New("no active session")
	// ErrTokenExpired возвращается при входе с просроченным токеном.
	ErrTokenExpired = errors.New("token expired")
)

// Store описывает хранилище сеансов.
type Store interface {
	Save(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// PermissionSource возвращает ключи доступа текущего пользователя.
type PermissionSource interface {
	GetCurrentUserPermissions(ctx context.Context) ([]string, error)
}

// PermissionSourceFunc возвращает источник прав для токена пользователя.
type PermissionSourceFunc func(token string) PermissionSource

// Profile содержит сведения о пользователе из ответа на вход.
type Profile struct {
	UserID   string
	Email    string
	FullName string
	// ExpiresAt используется, только если в токене нет exp.
	ExpiresAt time.Time
}

// Guard создаёт, разрешает и уничтожает сеансы и проверяет права.
type Guard struct {
	store  Store
	perms  PermissionSourceFunc
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	onDestroy []func(sessionID string)
	watched   []func() []string
}

// NewGuard создаёт Guard поверх хранилища сеансов.
func NewGuard(store Store, perms PermissionSourceFunc, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:  store,
		perms:  perms,
		logger: logger,
		now:    time.Now,
	}
}

// OnDestroy регистрирует обработчик, вызываемый при уничтожении сеанса.
func (g *Guard) OnDestroy(fn func(sessionID string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDestroy = append(g.onDestroy, fn)
}

// Login создаёт новый сеанс по токену, выданному бэкендом.
// Роль вычисляется один раз здесь и больше не меняется.
func (g *Guard) Login(ctx context.Context, token string, profile Profile) (*model.Session, error) {
	claims, err := Decode(token)
	if err != nil {
		return nil, err
	}

	expiry := claims.ExpiresAt
	if expiry.IsZero() {
		expiry = profile.ExpiresAt
	}
	if expiry.IsZero() {
		return nil, fmt.Errorf("%w: no expiry", ErrMalformedToken)
	}

	now := g.now()
	if !now.Before(expiry) {
		return nil, ErrTokenExpired
	}

	userID := profile.UserID
	if userID == "" {
		userID = claims.Subject
	}

	s := &model.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		FullName:    profile.FullName,
		Email:       profile.Email,
		Role:        DeriveRole(claims.Roles),
		Permissions: g.resolvePermissions(ctx, token, claims.Permissions),
		Token:       token,
		TokenExpiry: expiry,
		CreatedAt:   now,
	}

	if err := g.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	g.logger.Info("session created",
		zap.String("session", s.ID),
		zap.String("user", s.UserID),
		zap.String("role", string(s.Role)),
		zap.Int("permissions", len(s.Permissions)),
	)

	return s, nil
}

// resolvePermissions берёт права из токена, а если их там нет, один раз запрашивает у бэкенда.
func (g *Guard) resolvePermissions(ctx context.Context, token string, fromToken []string) permission.Set {
	values := fromToken
	if len(values) == 0 && g.perms != nil {
		fetched, err := g.perms(token).GetCurrentUserPermissions(ctx)
		if err != nil {
			g.logger.Error("failed to load permissions", zap.Error(err))
		} else {
			values = fetched
		}
	}

	set, unknown := permission.ParseSet(values)
	if len(unknown) > 0 {
		g.logger.Debug("ignoring unknown permission keys", zap.Strings("keys", unknown))
	}
	return set
}

// Resolve возвращает действующий сеанс. Любая ошибка трактуется как отсутствие сеанса.
// Просроченный сеанс уничтожается.
func (g *Guard) Resolve(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	s, err := g.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Запись могла истечь в хранилище сама (TTL в Redis): связанные данные всё равно удаляются.
			g.notifyDestroyed(sessionID)
		} else {
			g.logger.Error("session lookup failed", zap.String("session", sessionID), zap.Error(err))
		}
		return nil, ErrNoSession
	}

	if _, err := Decode(s.Token); err != nil {
		g.logger.Warn("stored token is malformed", zap.String("session", sessionID), zap.Error(err))
		g.destroy(ctx, sessionID)
		return nil, ErrNoSession
	}

	if s.Expired(g.now()) {
		g.logger.Info("session expired", zap.String("session", sessionID), zap.String("user", s.UserID))
		g.destroy(ctx, sessionID)
		return nil, ErrNoSession
	}

	return s, nil
}

// HasPermission проверяет точное вхождение ключа в права сеанса.
func (g *Guard) HasPermission(s *model.Session, key permission.Key) bool {
	if s == nil {
		return false
	}
	return s.Permissions.Has(key)
}

// Logout безусловно уничтожает сеанс и все связанные с ним данные.
func (g *Guard) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	g.destroy(ctx, sessionID)
	g.logger.Info("session closed", zap.String("session", sessionID))
}

func (g *Guard) destroy(ctx context.Context, sessionID string) {
	if err := g.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		g.logger.Error("failed to delete session", zap.String("session", sessionID), zap.Error(err))
	}
	g.notifyDestroyed(sessionID)
}

func (g *Guard) notifyDestroyed(sessionIDs ...string) {
	g.mu.RLock()
	hooks := append([]func(string){}, g.onDestroy...)
	g.mu.RUnlock()

	for _, id := range sessionIDs {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// Watch регистрирует источник идентификаторов сеансов, для которых другие компоненты
// хранят состояние. Очистка проверяет их по хранилищу и уничтожает исчезнувшие.
func (g *Guard) Watch(ids func() []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.watched = append(g.watched, ids)
}

// Sweeper удаляет из хранилища просроченные сеансы.
type Sweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) ([]string, error)
}

// StartJanitor периодически удаляет просроченные сеансы и состояние сеансов,
// исчезнувших из хранилища.
func (g *Guard) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	sweeper, canSweep := g.store.(Sweeper)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if canSweep {
					g.sweep(ctx, sweeper)
				}
				g.sweepWatched(ctx)
			}
		}
	}()
}

func (g *Guard) sweep(ctx context.Context, sweeper Sweeper) {
	ids, err := sweeper.DeleteExpired(ctx, g.now())
	if err != nil {
		g.logger.Error("session sweep failed", zap.Error(err))
		return
	}

	g.notifyDestroyed(ids...)
	if len(ids) > 0 {
		g.logger.Info("expired sessions removed", zap.Int("count", len(ids)))
	}
}

func (g *Guard) sweepWatched(ctx context.Context) {
	g.mu.RLock()
	sources := append([]func() []string{}, g.watched...)
	g.mu.RUnlock()

	removed := 0
	for _, ids := range sources {
		for _, id := range ids() {
			s, err := g.store.Get(ctx, id)
			switch {
			case errors.Is(err, repository.ErrSessionNotFound):
				g.notifyDestroyed(id)
				removed++
			case err != nil:
				g.logger.Error("session lookup failed", zap.String("session", id), zap.Error(err))
			case s.Expired(g.now()):
				g.destroy(ctx, id)
				removed++
			}
		}
	}
	if removed > 0 {
		g.logger.Info("stale session state removed", zap.Int("count", removed))
	}
}
