package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	messageInvalidCredentials = "Invalid email or password"
	messagePasswordMismatch   = "Passwords do not match!"
	messageRoleRequired       = "Please select a role!"
	messageUsernameRequired   = "Please enter a username!"
	messageEmailTaken         = "Email already registered"
	messageSignupFailed       = "Signup failed. Please try again."
	messageSessionFailed      = "Server error. Please try again later."
	logEventLoginSucceeded    = "portal_login"
	logEventLoginRejected     = "portal_login_rejected"
	logEventSignup            = "portal_signup"
	logEventSignupRejected    = "portal_signup_rejected"
	logFieldEmail             = "email"
	logFieldRole              = "role"
)

// SessionHandlers serves the sign-in, sign-up, and sign-out pages.
type SessionHandlers struct {
	database    *gorm.DB
	logger      *zap.Logger
	authManager *AuthManager
	renderer    *pageRenderer
}

type loginView struct {
	Email string
}

type roleOption struct {
	Value    string
	Label    string
	Selected bool
}

type signupView struct {
	Username string
	Email    string
	Roles    []roleOption
}

func newSessionHandlers(database *gorm.DB, logger *zap.Logger, authManager *AuthManager, renderer *pageRenderer) *SessionHandlers {
	return &SessionHandlers{database: database, logger: logger, authManager: authManager, renderer: renderer}
}

// Root sends signed-in users to their dashboard and everyone else to the login page.
func (handlers *SessionHandlers) Root(context *gin.Context) {
	if currentUser, ok := handlers.authManager.ensureUser(context); ok {
		context.Redirect(http.StatusFound, currentUser.HomePath())
		return
	}
	context.Redirect(http.StatusFound, RouteLogin)
}

func (handlers *SessionHandlers) RenderLogin(context *gin.Context) {
	handlers.renderer.render(context, http.StatusOK, pageView{Name: pageLogin, Content: loginView{}})
}

func (handlers *SessionHandlers) SubmitLogin(context *gin.Context) {
	email := strings.TrimSpace(context.PostForm(formFieldEmail))
	password := context.PostForm(formFieldPassword)

	user, authErr := storage.Authenticate(handlers.database, email, password)
	if authErr != nil {
		if !errors.Is(authErr, storage.ErrInvalidCredentials) {
			handlers.logger.Error(logEventLoginRejected, zap.String(logFieldEmail, email), zap.Error(authErr))
		} else {
			handlers.logger.Info(logEventLoginRejected, zap.String(logFieldEmail, email))
		}
		handlers.renderer.render(context, http.StatusUnauthorized, pageView{
			Name:         pageLogin,
			Content:      loginView{Email: email},
			ErrorMessage: messageInvalidCredentials,
		})
		return
	}

	if sessionErr := handlers.authManager.startSession(context, user); sessionErr != nil {
		handlers.renderer.render(context, http.StatusInternalServerError, pageView{
			Name:         pageLogin,
			Content:      loginView{Email: email},
			ErrorMessage: messageSessionFailed,
		})
		return
	}

	recordAudit(handlers.database, handlers.logger, user.Email, auditActionLogin, "")
	handlers.logger.Info(logEventLoginSucceeded, zap.String(logFieldEmail, user.Email), zap.String(logFieldRole, user.Role))
	context.Redirect(http.StatusSeeOther, model.HomePath(user.Role))
}

func (handlers *SessionHandlers) RenderSignup(context *gin.Context) {
	handlers.renderer.render(context, http.StatusOK, pageView{Name: pageSignup, Content: newSignupView("", "", "")})
}

func (handlers *SessionHandlers) SubmitSignup(context *gin.Context) {
	request := signupRequest{
		Username:        context.PostForm(formFieldUsername),
		Email:           context.PostForm(formFieldEmail),
		Password:        context.PostForm(formFieldPassword),
		ConfirmPassword: context.PostForm(formFieldConfirmPassword),
		Role:            context.PostForm(formFieldRole),
	}
	view := newSignupView(request.Username, request.Email, request.Role)

	if validationMessage := request.validate(true); validationMessage != "" {
		handlers.logger.Info(logEventSignupRejected, zap.String(logFieldEmail, request.Email))
		handlers.renderer.render(context, http.StatusBadRequest, pageView{Name: pageSignup, Content: view, ErrorMessage: validationMessage})
		return
	}

	user, createErr := request.create(handlers.database)
	if createErr != nil {
		status, message := signupFailure(createErr)
		handlers.logger.Info(logEventSignupRejected, zap.String(logFieldEmail, request.Email), zap.Error(createErr))
		handlers.renderer.render(context, status, pageView{Name: pageSignup, Content: view, ErrorMessage: message})
		return
	}

	recordAudit(handlers.database, handlers.logger, user.Email, auditActionSignup, humanize(user.Role))
	handlers.logger.Info(logEventSignup, zap.String(logFieldEmail, user.Email), zap.String(logFieldRole, user.Role))
	handlers.renderer.render(context, http.StatusOK, pageView{Name: pageSignupComplete})
}

func (handlers *SessionHandlers) Logout(context *gin.Context) {
	if currentUser, ok := handlers.authManager.ensureUser(context); ok {
		recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionLogout, "")
	}
	handlers.authManager.endSession(context)
	context.Redirect(http.StatusSeeOther, RouteLogin)
}

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// validate returns the message shown for the first invalid field, or "".
func (request signupRequest) validate(requireConfirmation bool) string {
	if strings.TrimSpace(request.Username) == "" {
		return messageUsernameRequired
	}
	if requireConfirmation && request.Password != request.ConfirmPassword {
		return messagePasswordMismatch
	}
	role := strings.ToLower(strings.TrimSpace(request.Role))
	if role == "" || !model.IsKnownRole(role) {
		return messageRoleRequired
	}
	return ""
}

func (request signupRequest) create(database *gorm.DB) (model.User, error) {
	return storage.CreateAccount(database, storage.Account{
		Email:    request.Email,
		Username: strings.TrimSpace(request.Username),
		Password: request.Password,
		Role:     strings.ToLower(strings.TrimSpace(request.Role)),
	})
}

func signupFailure(createErr error) (int, string) {
	switch {
	case errors.Is(createErr, storage.ErrDuplicateEmail):
		return http.StatusConflict, messageEmailTaken
	case errors.Is(createErr, model.ErrInvalidUserEmail), errors.Is(createErr, storage.ErrEmptyPassword):
		return http.StatusBadRequest, messageSignupFailed
	default:
		return http.StatusInternalServerError, messageSignupFailed
	}
}

func newSignupView(username string, email string, selectedRole string) signupView {
	roles := model.KnownRoles()
	options := make([]roleOption, 0, len(roles))
	for _, role := range roles {
		options = append(options, roleOption{Value: role, Label: humanize(role), Selected: role == selectedRole})
	}
	return signupView{Username: username, Email: email, Roles: options}
}
