package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret", false},
		{"Exactly Max Length", strings.Repeat("a", 72), false},
		{"Too Short", "short", true},
		{"Too Long", strings.Repeat("a", 73), true},
		{"Blank", "        ", true},
		{"Unicode Characters", "Ångström", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "a@x.com", false},
		{"Subdomain", "writer@mail.example.org", false},
		{"Missing At", "ax.com", true},
		{"Missing TLD", "a@x", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		phone   string
		wantErr bool
	}{
		{"+1", false},
		{"+1 555-0100", false},
		{"5550100", false},
		{"", true},
		{"+", true},
		{"phone", true},
		{"+1" + strings.Repeat("0", 20), true},
	}

	for _, tt := range tests {
		err := ValidatePhone(tt.phone)
		if tt.wantErr {
			assert.Error(t, err, tt.phone)
		} else {
			assert.NoError(t, err, tt.phone)
		}
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateName("Ada"))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("n", 81)))
}

func TestLooksLikeEmail(t *testing.T) {
	t.Parallel()
	assert.True(t, LooksLikeEmail("a@x.com"))
	assert.False(t, LooksLikeEmail("+1"))
}
