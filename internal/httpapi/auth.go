package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

const (
	contextKeyCurrentUser = "httpapi_current_user"
	sessionName           = "velan_portal_session"
	sessionKeyUserID      = "user_id"
	sessionKeyUserEmail   = "user_email"
	sessionKeyUsername    = "user_name"
	sessionKeyUserRole    = "user_role"
	sessionMaxAgeSeconds  = 8 * 60 * 60
	flashKindSuccess      = "success"
	flashKindError        = "error"
	flashSeparator        = ":"
	authErrorUnauthorized = "unauthorized"
	logEventLoadSession   = "load_session"
	logEventSaveSession   = "save_session"
	messageAccessDenied   = "You do not have access to that page"
)

// CurrentUser is the account bound to the request session.
type CurrentUser struct {
	ID       string
	Email    string
	Username string
	Role     string
}

// HomePath returns the dashboard route for the user's role.
func (currentUser *CurrentUser) HomePath() string {
	return model.HomePath(currentUser.Role)
}

// RoleLabel returns a display name for the user's role.
func (currentUser *CurrentUser) RoleLabel() string {
	return humanize(currentUser.Role)
}

// AuthManager keeps the signed-in user in a cookie session.
type AuthManager struct {
	logger       *zap.Logger
	sessionStore *sessions.CookieStore
}

// NewAuthManager builds an AuthManager whose cookies are signed with secret.
func NewAuthManager(logger *zap.Logger, secret []byte, secureCookies bool) *AuthManager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     RouteRoot,
		MaxAge:   sessionMaxAgeSeconds,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &AuthManager{
		logger:       logger,
		sessionStore: store,
	}
}

// RequireRoleWeb redirects anonymous visitors to the login page and users
// without one of roles to their own dashboard.
func (authManager *AuthManager) RequireRoleWeb(roles ...string) gin.HandlerFunc {
	return func(context *gin.Context) {
		currentUser, ok := authManager.ensureUser(context)
		if !ok {
			context.Redirect(http.StatusFound, RouteLogin)
			context.Abort()
			return
		}
		if !roleAllowed(currentUser.Role, roles) {
			authManager.addFlash(context, flashKindError, messageAccessDenied)
			context.Redirect(http.StatusFound, currentUser.HomePath())
			context.Abort()
			return
		}
		context.Next()
	}
}

// RequireAuthenticatedJSON rejects requests without a session or API token.
func (authManager *AuthManager) RequireAuthenticatedJSON(tokens TokenResolver) gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, ok := authManager.ensureUser(context); ok {
			context.Next()
			return
		}
		if tokens != nil {
			if currentUser, ok := tokens.ResolveToken(context); ok {
				context.Set(contextKeyCurrentUser, currentUser)
				context.Next()
				return
			}
		}
		context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized})
	}
}

// CurrentUserFromContext returns the user resolved by an auth middleware.
func CurrentUserFromContext(context *gin.Context) (*CurrentUser, bool) {
	value, exists := context.Get(contextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	currentUser, ok := value.(*CurrentUser)
	return currentUser, ok
}

func (authManager *AuthManager) ensureUser(context *gin.Context) (*CurrentUser, bool) {
	if currentUser, exists := CurrentUserFromContext(context); exists {
		return currentUser, true
	}

	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, sessionName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
		return nil, false
	}

	email := extractString(sessionInstance.Values[sessionKeyUserEmail])
	if email == "" {
		return nil, false
	}

	currentUser := &CurrentUser{
		ID:       extractString(sessionInstance.Values[sessionKeyUserID]),
		Email:    email,
		Username: extractString(sessionInstance.Values[sessionKeyUsername]),
		Role:     extractString(sessionInstance.Values[sessionKeyUserRole]),
	}

	context.Set(contextKeyCurrentUser, currentUser)
	return currentUser, true
}

func (authManager *AuthManager) startSession(context *gin.Context, user model.User) error {
	sessionInstance, _ := authManager.sessionStore.Get(context.Request, sessionName)
	sessionInstance.Values[sessionKeyUserID] = user.ID
	sessionInstance.Values[sessionKeyUserEmail] = user.Email
	sessionInstance.Values[sessionKeyUsername] = user.Username
	sessionInstance.Values[sessionKeyUserRole] = user.Role
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Error(logEventSaveSession, zap.Error(saveErr))
		return saveErr
	}
	return nil
}

func (authManager *AuthManager) endSession(context *gin.Context) {
	sessionInstance, _ := authManager.sessionStore.Get(context.Request, sessionName)
	for key := range sessionInstance.Values {
		delete(sessionInstance.Values, key)
	}
	sessionInstance.Options.MaxAge = -1
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}
}

// addFlash queues a one-shot message shown by the next rendered page.
func (authManager *AuthManager) addFlash(context *gin.Context, kind string, message string) {
	sessionInstance, _ := authManager.sessionStore.Get(context.Request, sessionName)
	sessionInstance.AddFlash(kind + flashSeparator + message)
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}
}

func (authManager *AuthManager) popFlashes(context *gin.Context) (notice string, errorMessage string) {
	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, sessionName)
	if sessionErr != nil {
		return "", ""
	}
	flashes := sessionInstance.Flashes()
	if len(flashes) == 0 {
		return "", ""
	}
	if saveErr := sessionInstance.Save(context.Request, context.Writer); saveErr != nil {
		authManager.logger.Warn(logEventSaveSession, zap.Error(saveErr))
	}
	for _, flash := range flashes {
		kind, message, found := strings.Cut(extractString(flash), flashSeparator)
		if !found {
			continue
		}
		switch kind {
		case flashKindSuccess:
			notice = message
		case flashKindError:
			errorMessage = message
		}
	}
	return notice, errorMessage
}

func roleAllowed(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, allowedRole := range roles {
		if allowedRole == role {
			return true
		}
	}
	return false
}

func extractString(value interface{}) string {
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
