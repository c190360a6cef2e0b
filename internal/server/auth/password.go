package auth

import (
	"errors"
	"fmt"

	"github.com/tkbstudios/tinet/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of plain. Passwords longer than
// bcrypt's 72 byte limit are a validation error.
func HashPassword(plain string, cost int) (string, error) {
	pw := []byte(plain)
	defer common.WipeByteArray(pw)

	hash, err := bcrypt.GenerateFromPassword(pw, cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password too long", common.ErrorValidation)
		}
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	pw := []byte(plain)
	defer common.WipeByteArray(pw)

	return bcrypt.CompareHashAndPassword([]byte(hash), pw) == nil
}
