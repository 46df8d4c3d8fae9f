// Package session разрешает сеанс пользователя консоли и проверяет его права.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

// ErrMalformedToken возвращается, если токен не удалось разобрать.
var ErrMalformedToken = errors.New("malformed token")

// Claims содержит утверждения токена, нужные консоли.
type Claims struct {
	Subject     string
	Roles       []string
	Permissions []string
	ExpiresAt   time.Time
}

var (
	subjectKeys    = []string{"sub", "nameid", "id", "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"}
	roleKeys       = []string{"roles", "role", "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"}
	permissionKeys = []string{"permissions", "permission"}
)

// Decode разбирает полезную нагрузку токена без проверки подписи и без обращения к серверу.
// Подпись проверяет бэкенд при каждом запросе с этим токеном.
func Decode(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	c := &Claims{
		Subject:     firstString(mc, subjectKeys),
		Roles:       collectStrings(mc, roleKeys),
		Permissions: collectStrings(mc, permissionKeys),
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}

	return c, nil
}

func firstString(mc jwt.MapClaims, keys []string) string {
	for _, k := range keys {
		if v, ok := mc[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// collectStrings объединяет значения утверждений: каждое может быть строкой или массивом строк.
func collectStrings(mc jwt.MapClaims, keys []string) []string {
	var res []string
	for _, k := range keys {
		switch v := mc[k].(type) {
		case string:
			if v != "" {
				res = append(res, v)
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					res = append(res, s)
				}
			}
		}
	}
	return res
}

// DeriveRole определяет роль по утверждениям токена.
// Приоритет фиксирован: Merchant, затем Courier, иначе Employee.
func DeriveRole(roles []string) model.Role {
	has := func(role model.Role) bool {
		for _, r := range roles {
			if r == string(role) {
				return true
			}
		}
		return false
	}

	switch {
	case has(model.RoleMerchant):
		return model.RoleMerchant
	case has(model.RoleCourier):
		return model.RoleCourier
	default:
		return model.RoleEmployee
	}
}
