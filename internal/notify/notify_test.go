package notify

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/shipping-admin/internal/backend"
)

func TestDescribePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{
			name: "field errors win",
			err: &backend.APIError{
				StatusCode:  http.StatusBadRequest,
				Message:     "ignored",
				FieldErrors: []string{"name is required", "phone is invalid"},
			},
			want: "name is required, phone is invalid",
		},
		{
			name: "server message",
			err:  &backend.APIError{StatusCode: http.StatusConflict, Message: "order is locked"},
			want: "order is locked",
		},
		{
			name: "bad request",
			err:  &backend.APIError{StatusCode: http.StatusBadRequest},
			want: MessageBadRequest,
		},
		{
			name: "not found",
			err:  fmt.Errorf("wrapped: %w", &backend.APIError{StatusCode: http.StatusNotFound}),
			want: MessageNotFound,
		},
		{
			name: "server error",
			err:  &backend.APIError{StatusCode: http.StatusInternalServerError},
			want: MessageServer,
		},
		{
			name: "other status",
			err:  &backend.APIError{StatusCode: http.StatusBadGateway},
			want: MessageUnexpected,
		},
		{
			name:     "other status with fallback",
			err:      &backend.APIError{StatusCode: http.StatusForbidden},
			fallback: "failed to delete order",
			want:     "failed to delete order",
		},
		{
			name:     "transport error",
			err:      context.DeadlineExceeded,
			fallback: "failed to load orders",
			want:     "failed to load orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err, tt.fallback))
		})
	}
}

func TestFeedDrain(t *testing.T) {
	f := NewFeed(nil)
	f.Notify(LevelInfo, "status unchanged")
	f.Notify(LevelError, "server error")

	last, ok := f.Last()
	require.True(t, ok)
	assert.Equal(t, LevelError, last.Level)

	items := f.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "status unchanged", items[0].Message)

	assert.Empty(t, f.Drain())
}

func TestFeedDropsOldest(t *testing.T) {
	f := NewFeed(nil)
	for i := 0; i < defaultFeedCapacity+5; i++ {
		f.Notify(LevelInfo, fmt.Sprint(i))
	}

	items := f.Drain()
	require.Len(t, items, defaultFeedCapacity)
	assert.Equal(t, "5", items[0].Message)
}
