package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleMasterAdmin     = "master_admin"
	RoleCollectionAgent = "collection_agent"
	RoleStaff           = "staff"

	userEmailMaxLength    = 320
	userUsernameMaxLength = 150
)

var (
	ErrInvalidUserEmail    = errors.New("invalid_user_email")
	ErrInvalidUserUsername = errors.New("invalid_user_username")
	ErrInvalidUserRole     = errors.New("invalid_user_role")
	ErrMissingPasswordHash = errors.New("missing_password_hash")
)

// User is a portal account. Email is the login identifier.
type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;not null;size:320"`
	Username     string    `gorm:"not null;size:150"`
	PasswordHash string    `gorm:"not null;size:100"`
	Role         string    `gorm:"not null;size:32;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// UserInput holds the raw values used to construct a User.
type UserInput struct {
	Email        string
	Username     string
	PasswordHash string
	Role         string
}

// KnownRoles lists the roles an account may hold, in display order.
func KnownRoles() []string {
	return []string{RoleMasterAdmin, RoleCollectionAgent, RoleStaff}
}

// IsKnownRole reports whether role is one of KnownRoles.
func IsKnownRole(role string) bool {
	for _, knownRole := range KnownRoles() {
		if knownRole == role {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser constructs a User with validated, normalized fields.
func NewUser(input UserInput) (User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || len(email) > userEmailMaxLength {
		return User{}, ErrInvalidUserEmail
	}
	if _, parseErr := mail.ParseAddress(email); parseErr != nil {
		return User{}, ErrInvalidUserEmail
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if len(username) > userUsernameMaxLength {
		return User{}, ErrInvalidUserUsername
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = RoleStaff
	}
	if !IsKnownRole(role) {
		return User{}, ErrInvalidUserRole
	}

	if strings.TrimSpace(input.PasswordHash) == "" {
		return User{}, ErrMissingPasswordHash
	}

	return User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: input.PasswordHash,
		Role:         role,
	}, nil
}

// HomePath returns the dashboard route a user with role lands on after login.
func HomePath(role string) string {
	switch role {
	case RoleMasterAdmin:
		return "/admin/dashboard"
	case RoleCollectionAgent:
		return "/agent/dashboard"
	default:
		return "/staff/dashboard"
	}
}
