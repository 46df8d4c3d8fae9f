package notify

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mmeshcher/shipping-admin/internal/backend"
)

// Сообщения по классу ответа сервера.
const (
	MessageBadRequest = "invalid data submitted"
	MessageNotFound   = "order not found"
	MessageServer     = "server error"
	MessageUnexpected = "unexpected error"
)

// Describe превращает ошибку вызова бэкенда в сообщение для пользователя.
// Порядок: сообщения валидации полей, затем сообщение сервера, затем текст по коду ответа.
// Для ошибок без ответа сервера используется fallback, а если он пуст, общее сообщение.
func Describe(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		if fallback != "" {
			return fallback
		}
		return MessageUnexpected
	}

	if len(apiErr.FieldErrors) > 0 {
		return strings.Join(apiErr.FieldErrors, ", ")
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}

	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		return MessageBadRequest
	case http.StatusNotFound:
		return MessageNotFound
	case http.StatusInternalServerError:
		return MessageServer
	}
	if fallback != "" {
		return fallback
	}
	return MessageUnexpected
}
