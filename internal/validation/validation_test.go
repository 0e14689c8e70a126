package validation_test

import (
	"testing"

	"github.com/geocoder89/authhub/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=5"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	fields, err := validation.Struct(signup{Email: "nope", Password: "short", Name: "too long"})
	require.NoError(t, err)

	found := map[string]validation.FieldError{}
	for _, f := range fields {
		found[f.Field] = f
	}

	require.Len(t, found, 3)
	assert.Equal(t, "email", found["email"].Rule)
	assert.Equal(t, "min", found["password"].Rule)
	assert.Equal(t, "8", found["password"].Param)
	assert.Equal(t, "must be at least 8", found["password"].Message)
	assert.Equal(t, "max", found["name"].Rule)
}

func TestStruct_Valid(t *testing.T) {
	fields, err := validation.Struct(signup{Email: "a@x.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "is required", validation.Message("required", ""))
	assert.Equal(t, "must be one of a, b", validation.Message("oneof", "a b"))
	assert.Equal(t, "failed url validation", validation.Message("url", ""))
	assert.Equal(t, "failed gte validation (3)", validation.Message("gte", "3"))
}
