package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"SecurePass123!", true},
		{"Aa1@aaaa", true},
		{"Aa1@aaa", false},        // too short
		{"securepass123!", false}, // no uppercase
		{"SECUREPASS123!", false}, // no lowercase
		{"SecurePass!!!", false},  // no digit
		{"SecurePass123", false},  // no special
		{"Secure Pass123!", false},
		{"SecurePass123#", false}, // '#' is outside the allowed set
		{"Sécurepass123!", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrongPassword(tt.password))
		})
	}
}

func TestRegisteredRules(t *testing.T) {
	v := validator.New()
	Register(v)

	type payload struct {
		Message  string `validate:"notblank"`
		Password string `validate:"strongpassword"`
	}

	assert.NoError(t, v.Struct(payload{Message: "hi", Password: "SecurePass123!"}))

	err := v.Struct(payload{Message: "   \t", Password: "weak"})
	require.Error(t, err)
	verrs := err.(validator.ValidationErrors)
	require.Len(t, verrs, 2)
	assert.Equal(t, "notblank", verrs[0].Tag())
	assert.Equal(t, "strongpassword", verrs[1].Tag())
}

func TestRegisterBindingValidatorsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterBindingValidators()
		RegisterBindingValidators()
	})
}

func TestOpenAPIValidatorLoadsSchema(t *testing.T) {
	v, err := NewOpenAPIValidator(filepath.Join("..", "..", "api", "openapi.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, v.Operations())
}

func TestOpenAPIValidatorRejectsBrokenSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.3\ninfo: {}\npaths: {}\n"), 0o600))

	_, err := NewOpenAPIValidator(path)
	assert.Error(t, err)
}
