package auth

import (
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"

	"chatline/errors"
)

var validate = validator.New()

// RegisterRequest carries the raw /register arguments before any account
// is created or any password is hashed.
type RegisterRequest struct {
	Login    string `validate:"required,min=3,max=32"`
	Password string `validate:"required,min=6,max=72"`
	Username string `validate:"required,min=3,max=32"`
}

// ValidateRegister checks length constraints first, then the identifier
// alphabet. Validation runs before any expensive cryptographic operation.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}
	if !isIdentifier(req.Login) || !isIdentifier(req.Username) {
		return errors.ErrInvalidIdentifier
	}
	return nil
}

// ValidateUsername applies the same constraints /register enforces on
// usernames; used when an admin renames an existing account.
func ValidateUsername(username string) error {
	if err := validate.Var(username, "required,min=3,max=32"); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}
	if !isIdentifier(username) {
		return errors.ErrInvalidIdentifier
	}
	return nil
}

// isIdentifier restricts logins and usernames to letters, digits and
// underscores so they stay unambiguous in the space-separated command
// grammar.
func isIdentifier(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
