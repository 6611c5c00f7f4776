package ident_test

import (
	"errors"
	"testing"

	"github.com/querydojo/querydojo/internal/ident"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "orders", true},
		{"with digits and underscores", "user_42", true},
		{"minimum length", "abc", true},
		{"64 chars", string(make63()) + "x", false},
		{"63 chars", string(make63()), true},
		{"starts with digit", "1abc", false},
		{"uppercase", "AB", false},
		{"too short", "ab", false},
		{"empty", "", false},
		{"embedded quote", "users'; drop table users;--", false},
		{"whitespace", "my table", false},
		{"qualified name", "public.orders", false},
		{"hyphen", "my-table", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ident.Validate(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ident.ErrInvalidIdentifier))
			}
		})
	}
}

// make63 returns a 63-character valid identifier.
func make63() []byte {
	b := make([]byte, 63)
	b[0] = 'a'
	for i := 1; i < len(b); i++ {
		b[i] = 'x'
	}
	return b
}
