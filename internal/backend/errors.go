package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// APIError описывает ответ бэкенда с кодом ошибки.
type APIError struct {
	StatusCode int
	// Message содержит сообщение сервера, если оно было в теле ответа.
	Message string
	// FieldErrors содержит сообщения валидации полей в порядке имён полей.
	FieldErrors []string
}

func (e *APIError) Error() string {
	switch {
	case len(e.FieldErrors) > 0:
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, strings.Join(e.FieldErrors, ", "))
	case e.Message != "":
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("backend status %d", e.StatusCode)
	}
}

type errorBody struct {
	Message string          `json:"message"`
	Title   string          `json:"title"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		// Текстовый ответ сервера тоже считается его сообщением.
		if text := strings.TrimSpace(string(data)); !strings.HasPrefix(text, "<") {
			apiErr.Message = text
		}
		return apiErr
	}

	apiErr.Message = body.Message
	if apiErr.Message == "" && len(body.Errors) == 0 {
		apiErr.Message = body.Title
	}
	apiErr.FieldErrors = flattenFieldErrors(body.Errors)
	return apiErr
}

func flattenFieldErrors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		var res []string
		for _, f := range fields {
			res = append(res, decodeMessages(byField[f])...)
		}
		return res
	}

	return decodeMessages(raw)
}

func decodeMessages(raw json.RawMessage) []string {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}
