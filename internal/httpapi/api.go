package httpapi

import (
	"crypto/rand"
	"encoding/hex"
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
	headerAuthorization       = "Authorization"
	authorizationSchemeToken  = "Token "
	tokenByteLength           = 20
	apiErrorInvalidJSON       = "invalid json"
	apiErrorInvalidCreds      = "Invalid credentials"
	apiErrorTokenIssue        = "could not issue token"
	logEventIssueToken        = "issue_api_token"
	logEventResolveToken      = "resolve_api_token"
	jsonKeyID                 = "id"
	jsonKeyUsername           = "username"
	jsonKeyEmail              = "email"
	jsonKeyRole               = "role"
	jsonKeyMessage            = "message"
	apiMessageSignupCompleted = "Signup successful"
)

// TokenResolver maps a request's API credential to a user.
type TokenResolver interface {
	ResolveToken(context *gin.Context) (*CurrentUser, bool)
}

// DatabaseTokenResolver resolves "Authorization: Token <value>" headers
// against issued access tokens.
type DatabaseTokenResolver struct {
	database *gorm.DB
	logger   *zap.Logger
}

func NewDatabaseTokenResolver(database *gorm.DB, logger *zap.Logger) *DatabaseTokenResolver {
	return &DatabaseTokenResolver{database: database, logger: logger}
}

func (resolver *DatabaseTokenResolver) ResolveToken(context *gin.Context) (*CurrentUser, bool) {
	header := strings.TrimSpace(context.GetHeader(headerAuthorization))
	if !strings.HasPrefix(header, authorizationSchemeToken) {
		return nil, false
	}
	tokenValue := strings.TrimSpace(strings.TrimPrefix(header, authorizationSchemeToken))
	if tokenValue == "" {
		return nil, false
	}

	var accessToken model.AccessToken
	lookupErr := resolver.database.Preload("User").First(&accessToken, "token = ?", tokenValue).Error
	if lookupErr != nil {
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			resolver.logger.Warn(logEventResolveToken, zap.Error(lookupErr))
		}
		return nil, false
	}
	return currentUserFromModel(accessToken.User), true
}

// APIHandlers serves the JSON authentication endpoints.
type APIHandlers struct {
	database *gorm.DB
	logger   *zap.Logger
}

func NewAPIHandlers(database *gorm.DB, logger *zap.Logger) *APIHandlers {
	return &APIHandlers{database: database, logger: logger}
}

type apiLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (handlers *APIHandlers) Login(context *gin.Context) {
	var request apiLoginRequest
	if bindErr := context.ShouldBindJSON(&request); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: apiErrorInvalidJSON})
		return
	}

	user, authErr := storage.Authenticate(handlers.database, request.Email, request.Password)
	if authErr != nil {
		if !errors.Is(authErr, storage.ErrInvalidCredentials) {
			handlers.logger.Error(logEventLoginRejected, zap.Error(authErr))
		}
		context.JSON(http.StatusUnauthorized, gin.H{jsonKeyError: apiErrorInvalidCreds})
		return
	}

	tokenValue, tokenErr := handlers.issueToken(user)
	if tokenErr != nil {
		handlers.logger.Error(logEventIssueToken, zap.String(logFieldEmail, user.Email), zap.Error(tokenErr))
		context.JSON(http.StatusInternalServerError, gin.H{jsonKeyError: apiErrorTokenIssue})
		return
	}

	recordAudit(handlers.database, handlers.logger, user.Email, auditActionLogin, "api")
	context.JSON(http.StatusOK, gin.H{
		jsonKeyToken: tokenValue,
		jsonKeyUser:  userPayload(currentUserFromModel(user)),
	})
}

func (handlers *APIHandlers) Signup(context *gin.Context) {
	var request signupRequest
	if bindErr := context.ShouldBindJSON(&request); bindErr != nil {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: apiErrorInvalidJSON})
		return
	}
	requireConfirmation := request.ConfirmPassword != ""
	if validationMessage := request.validate(requireConfirmation); validationMessage != "" {
		context.JSON(http.StatusBadRequest, gin.H{jsonKeyError: validationMessage})
		return
	}

	user, createErr := request.create(handlers.database)
	if createErr != nil {
		status, message := signupFailure(createErr)
		context.JSON(status, gin.H{jsonKeyError: message})
		return
	}

	recordAudit(handlers.database, handlers.logger, user.Email, auditActionSignup, humanize(user.Role))
	context.JSON(http.StatusCreated, gin.H{
		jsonKeyMessage: apiMessageSignupCompleted,
		jsonKeyUser:    userPayload(currentUserFromModel(user)),
	})
}

func (handlers *APIHandlers) Me(context *gin.Context) {
	currentUser, ok := CurrentUserFromContext(context)
	if !ok {
		context.JSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized})
		return
	}
	context.JSON(http.StatusOK, userPayload(currentUser))
}

func (handlers *APIHandlers) issueToken(user model.User) (string, error) {
	buffer := make([]byte, tokenByteLength)
	if _, readErr := rand.Read(buffer); readErr != nil {
		return "", readErr
	}
	accessToken := model.AccessToken{Token: hex.EncodeToString(buffer), UserID: user.ID}
	if createErr := handlers.database.Create(&accessToken).Error; createErr != nil {
		return "", createErr
	}
	return accessToken.Token, nil
}

func currentUserFromModel(user model.User) *CurrentUser {
	return &CurrentUser{ID: user.ID, Email: user.Email, Username: user.Username, Role: user.Role}
}

func userPayload(currentUser *CurrentUser) gin.H {
	return gin.H{
		jsonKeyID:       currentUser.ID,
		jsonKeyUsername: currentUser.Username,
		jsonKeyEmail:    currentUser.Email,
		jsonKeyRole:     currentUser.Role,
	}
}
