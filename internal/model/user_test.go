package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testUserEmail        = "  Agent@Example.com "
	testUserPasswordHash = "$2a$10$hash"
)

func TestNewUserValidatesAndNormalizes(t *testing.T) {
	user, err := NewUser(UserInput{
		Email:        testUserEmail,
		PasswordHash: testUserPasswordHash,
		Role:         RoleCollectionAgent,
	})
	require.NoError(t, err)

	require.NotEmpty(t, user.ID)
	require.Equal(t, "agent@example.com", user.Email)
	require.Equal(t, "agent", user.Username)
	require.Equal(t, RoleCollectionAgent, user.Role)
}

func TestNewUserDefaultsRoleToStaff(t *testing.T) {
	user, err := NewUser(UserInput{Email: "staff@example.com", Username: "staffer", PasswordHash: testUserPasswordHash})
	require.NoError(t, err)
	require.Equal(t, RoleStaff, user.Role)
	require.Equal(t, "staffer", user.Username)
}

func TestNewUserRejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name        string
		input       UserInput
		expectedErr error
	}{
		{name: "missing email", input: UserInput{PasswordHash: testUserPasswordHash}, expectedErr: ErrInvalidUserEmail},
		{name: "malformed email", input: UserInput{Email: "not-an-email", PasswordHash: testUserPasswordHash}, expectedErr: ErrInvalidUserEmail},
		{name: "unknown role", input: UserInput{Email: "a@example.com", Role: "owner", PasswordHash: testUserPasswordHash}, expectedErr: ErrInvalidUserRole},
		{name: "missing hash", input: UserInput{Email: "a@example.com"}, expectedErr: ErrMissingPasswordHash},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			_, err := NewUser(testCase.input)
			require.ErrorIs(testingT, err, testCase.expectedErr)
		})
	}
}

func TestHomePathFollowsRole(t *testing.T) {
	require.Equal(t, "/admin/dashboard", HomePath(RoleMasterAdmin))
	require.Equal(t, "/agent/dashboard", HomePath(RoleCollectionAgent))
	require.Equal(t, "/staff/dashboard", HomePath(RoleStaff))
	require.Equal(t, "/staff/dashboard", HomePath("unknown"))
}
