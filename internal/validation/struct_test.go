package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name  string   `json:"customerName" validate:"required,min=3"`
	Phone string   `json:"customerPhone1" validate:"required,egphone"`
	Email string   `json:"customerEmail,omitempty" validate:"omitempty,email"`
	Items []string `json:"items" validate:"required,min=1"`
}

func TestStructValid(t *testing.T) {
	err := Struct(contact{Name: "Mona", Phone: "01012345678", Items: []string{"box"}})
	assert.NoError(t, err)
}

func TestStructMessagesUseJSONNames(t *testing.T) {
	err := Struct(contact{Name: "Al", Phone: "0991", Email: "nope", Items: []string{}})
	require.Error(t, err)

	msgs := Messages(err)
	assert.Contains(t, msgs, "customerName: must be at least 3 characters")
	assert.Contains(t, msgs, "customerPhone1: must match 01[0125]XXXXXXXX")
	assert.Contains(t, msgs, "customerEmail: must be a valid email")
	assert.Contains(t, msgs, "items: must have at least 1 item(s)")
}

func TestMessagesNil(t *testing.T) {
	assert.Nil(t, Messages(nil))
}
