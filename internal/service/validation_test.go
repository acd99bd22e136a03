package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

func TestCheckPasswordStrength(t *testing.T) {
	cases := map[string]string{
		"Sh0rt!":    "Password must be at least 8 characters long",
		"passw0rd!": "Password must contain at least one uppercase letter",
		"Password!": "Password must contain at least one number",
		"Passw0rdx": "Password must contain at least one special character",
	}
	for password, want := range cases {
		err := CheckPasswordStrength(password)
		require.Error(t, err, password)
		assert.Contains(t, err.Error(), want)
	}
	assert.NoError(t, CheckPasswordStrength("Passw0rd!"))
}

func TestValidationErrorMessages(t *testing.T) {
	v := NewValidator()

	err := validationError(v.Struct(models.SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "password"}))
	assert.ErrorIs(t, err, appErrors.ErrWeakPassword)
	assert.Equal(t, "Password must contain at least one uppercase letter", err.Message)

	err = validationError(v.Struct(models.SignupRequest{Name: "Ana", Email: "nope", Password: "Passw0rd!"}))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 400, err.Status)
	assert.Equal(t, "email must be a valid email address", err.Message)
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("8d3e4c52-6a5e-4a0b-9a43-6c1f0d7e8b21"))
	assert.False(t, IsValidID("507f1f77bcf86cd79943901"))
	assert.False(t, IsValidID(""))
}
