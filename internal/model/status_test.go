package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusOrdinals(t *testing.T) {
	assert.Equal(t, 0, int(StatusPending))
	assert.Equal(t, 1, int(StatusWaitingForConfirmation))
	assert.Equal(t, 4, int(StatusDeliveredToCourier))
	assert.Equal(t, 5, int(StatusDeclined))
	assert.Equal(t, 10, int(StatusDeclinedWithFullPayment))
	assert.Len(t, Statuses(), 11)
}

func TestOrderStatusUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OrderStatus
		wantErr bool
	}{
		{name: "ordinal", input: `4`, want: StatusDeliveredToCourier},
		{name: "name", input: `"PartialDelivery"`, want: StatusPartialDelivery},
		{name: "unknown name falls back to pending", input: `"Lost"`, want: StatusPending},
		{name: "null", input: `null`, want: StatusPending},
		{name: "out of range ordinal", input: `11`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s OrderStatus
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("3")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, s)

	s, err = ParseOrderStatus("Declined")
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, s)

	_, err = ParseOrderStatus("-1")
	assert.Error(t, err)

	_, err = ParseOrderStatus("nope")
	assert.Error(t, err)
}
