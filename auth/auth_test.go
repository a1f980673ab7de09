package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "s3cret-enough"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	req := require.New(t)
	_, err := ComparePassword("whatever", "not-an-argon2-hash")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "hunter22", "Alice"}, false},
		{"Underscores allowed", RegisterRequest{"bob_42", "hunter22", "Bob_42"}, false},
		{"Login too short", RegisterRequest{"ab", "hunter22", "Alice"}, true},
		{"Username too short", RegisterRequest{"alice", "hunter22", "Al"}, true},
		{"Password too short", RegisterRequest{"alice", "pw", "Alice"}, true},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a", 73), "Alice"}, true},
		{"Login with spaces", RegisterRequest{"bad login", "hunter22", "Alice"}, true},
		{"Username with punctuation", RegisterRequest{"alice", "hunter22", "Al!ce"}, true},
		{"Missing username", RegisterRequest{"alice", "hunter22", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateUsername("Alice_2"))
	req.Error(ValidateUsername("no"))
	req.Error(ValidateUsername("has space"))
	req.Error(ValidateUsername(strings.Repeat("x", 33)))
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("a-reasonably-long-password")
	}
}
