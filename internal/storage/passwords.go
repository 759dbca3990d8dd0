package storage

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const errorMessageHashPassword = "storage: hash password"

// ErrEmptyPassword indicates an attempt to hash an empty password.
var ErrEmptyPassword = errors.New("storage: empty password")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageHashPassword, hashErr)
	}
	return string(hash), nil
}

// PasswordMatches reports whether password hashes to hash.
func PasswordMatches(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
