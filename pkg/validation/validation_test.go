package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Password string `json:"password" validate:"required,min=6,max_bytes=72"`
	Level    string `json:"level" validate:"omitempty,oneof=Technical 'Soft Skills'"`
	Score    *int   `json:"score" validate:"omitempty,min=0,max=4"`
}

func TestCustomValidators(t *testing.T) {
	v := New()

	tests := []struct {
		name  string
		input signup
		ok    bool
	}{
		{"ascii password at the byte limit", signup{Password: strings.Repeat("a", 72)}, true},
		{"ascii password over the byte limit", signup{Password: strings.Repeat("a", 73)}, false},
		{"multibyte password under the rune limit but over the byte limit", signup{Password: strings.Repeat("пароль", 7)}, false},
		{"multibyte password within the byte limit", signup{Password: strings.Repeat("пароль", 6)}, true},
		{"quoted oneof value", signup{Password: "secret1", Level: "Soft Skills"}, true},
		{"unknown oneof value", signup{Password: "secret1", Level: "Soft"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	v := New()
	score := 7

	err := v.Struct(signup{Password: strings.Repeat("ü", 40), Level: "x", Score: &score})
	require.Error(t, err)

	msgs := FormatValidationErrors(err)
	assert.Equal(t, []string{
		"password: must be at most 72 bytes",
		"level: must be one of: Technical, Soft Skills",
		"score: must be at most 4",
	}, msgs)

	err = v.Struct(signup{})
	require.Error(t, err)
	assert.Equal(t, []string{"password: is required"}, FormatValidationErrors(err))
}

func TestFormatValidationErrorsPassThrough(t *testing.T) {
	msgs := FormatValidationErrors(errors.New("unexpected EOF"))
	assert.Equal(t, []string{"unexpected EOF"}, msgs)
}
