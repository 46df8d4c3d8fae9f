// Package middleware содержит HTTP middleware консоли управления доставкой.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/permission"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookieName задаёт имя cookie с подписанным идентификатором сеанса.
const SessionCookieName = "console_session"

// Пути, на которые перенаправляет защита маршрутов.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Authorizer разрешает сеанс по идентификатору и проверяет права.
type Authorizer interface {
	Resolve(ctx context.Context, sessionID string) (*model.Session, error)
	HasPermission(s *model.Session, key permission.Key) bool
}

// SessionAuth проверяет подписанный cookie сеанса и права пользователя.
type SessionAuth struct {
	secretKey []byte
	auth      Authorizer
	secure    bool
	logger    *zap.Logger
}

// NewSessionAuth создаёт SessionAuth. Пустой секрет заменяется случайным ключом,
// и после перезапуска процесса все cookie становятся недействительными.
func NewSessionAuth(secret string, auth Authorizer, secure bool, logger *zap.Logger) *SessionAuth {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
		logger.Warn("cookie secret is not configured, using a random key")
	}

	return &SessionAuth{
		secretKey: key,
		auth:      auth,
		secure:    secure,
		logger:    logger,
	}
}

// Middleware пропускает запрос только с действующим сеансом и кладёт сеанс в контекст.
// Без сеанса cookie удаляется, а клиент перенаправляется на страницу входа.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.SessionID(r)
		if !ok {
			a.ClearSessionCookie(w)
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		s, err := a.auth.Resolve(r.Context(), id)
		if err != nil {
			a.ClearSessionCookie(w)
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequirePermission пропускает запрос, только если у сеанса есть ключ доступа key.
// Иначе клиент перенаправляется на страницу отказа в доступе.
func (a *SessionAuth) RequirePermission(key permission.Key) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			if !a.auth.HasPermission(s, key) {
				a.logger.Info("permission denied",
					zap.String("user", s.UserID),
					zap.Stringer("permission", key),
					zap.String("path", r.URL.Path),
				)
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie выдаёт cookie сеанса, который живёт не дольше токена.
func (a *SessionAuth) SetSessionCookie(w http.ResponseWriter, s *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    a.sign(s.ID),
		Path:     "/",
		Expires:  s.TokenExpiry,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет cookie сеанса.
func (a *SessionAuth) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID возвращает идентификатор сеанса из cookie, если подпись верна.
func (a *SessionAuth) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return a.parse(cookie.Value)
}

func (a *SessionAuth) sign(id string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *SessionAuth) parse(value string) (string, bool) {
	i := strings.LastIndex(value, ".")
	if i <= 0 {
		return "", false
	}

	id, signature := value[:i], value[i+1:]
	expected := a.sign(id)[len(id)+1:]
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}
	return id, true
}

// WithSession кладёт сеанс в контекст.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext извлекает сеанс из контекста запроса.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}
