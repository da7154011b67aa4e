package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaccine-scheduler/internal/model"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret#123")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "Secret#123"))
	assert.False(t, CheckPassword(hash, "secret#123"))
	assert.False(t, CheckPassword("not-a-hash", "Secret#123"))
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name       string
		pw         string
		numFailing int
	}{
		{"all rules met", "Abcdef1!", 0},
		{"too short", "Ab1!", 1},
		{"no uppercase", "abcdef1!", 1},
		{"no digit", "Abcdefg!", 1},
		{"no special", "Abcdefg1", 1},
		{"dollar counts as special", "Abcdef1$", 0},
		{"everything wrong", "abc", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failed := CheckPasswordStrength(tt.pw)
			assert.Len(t, failed, tt.numFailing)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ident := model.Identity{Role: model.RolePatient, Username: "pat"}

	tok, err := MakeToken(ident, "secret", time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, ident, got)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tok, err := MakeToken(model.Identity{Role: model.RoleCaregiver, Username: "alice"}, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, "other-secret")
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	tok, err := MakeToken(model.Identity{Role: model.RolePatient, Username: "pat"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, "secret")
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", "secret")
	assert.Error(t, err)
}
