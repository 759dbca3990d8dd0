package storage

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

const errorMessageCreateAccount = "storage: create account"

var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("storage: invalid credentials")
	// ErrDuplicateEmail indicates an account with the email already exists.
	ErrDuplicateEmail = errors.New("storage: email already registered")
)

// CreateAccount hashes the password and stores a new user.
func CreateAccount(database *gorm.DB, account Account) (model.User, error) {
	if strings.TrimSpace(account.Password) == "" {
		return model.User{}, fmt.Errorf("%s: %s: %w", errorMessageCreateAccount, account.Email, ErrEmptyPassword)
	}
	hash, hashErr := HashPassword(account.Password)
	if hashErr != nil {
		return model.User{}, hashErr
	}
	user, userErr := model.NewUser(model.UserInput{
		Email:        account.Email,
		Username:     account.Username,
		PasswordHash: hash,
		Role:         account.Role,
	})
	if userErr != nil {
		return model.User{}, fmt.Errorf("%s: %s: %w", errorMessageCreateAccount, account.Email, userErr)
	}

	var existing int64
	if countErr := database.Model(&model.User{}).Where("email = ?", user.Email).Count(&existing).Error; countErr != nil {
		return model.User{}, fmt.Errorf("%s: %w", errorMessageCreateAccount, countErr)
	}
	if existing > 0 {
		return model.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
	}

	if createErr := database.Create(&user).Error; createErr != nil {
		return model.User{}, fmt.Errorf("%s: %s: %w", errorMessageCreateAccount, user.Email, createErr)
	}
	return user, nil
}

// Authenticate returns the user whose email and password match.
func Authenticate(database *gorm.DB, email string, password string) (model.User, error) {
	var user model.User
	lookupErr := database.First(&user, "email = ?", model.NormalizeEmail(email)).Error
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, lookupErr
	}
	if !PasswordMatches(user.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}
