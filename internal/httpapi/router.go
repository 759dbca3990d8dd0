package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

const (
	// DefaultAllowedOrigin is the development origin of the portal front end.
	DefaultAllowedOrigin = "http://localhost:5173"

	minimumSessionSecretLength = 32
	corsHeaderAuthorization    = "Authorization"
	corsHeaderContentType      = "Content-Type"
	corsMaxAge                 = 12 * time.Hour
	healthStatusKey            = "status"
	healthStatusOK             = "ok"
	messagePageNotFound        = "Page not found"
)

var (
	// ErrMissingDatabase indicates PortalConfig has no database.
	ErrMissingDatabase = errors.New("httpapi: database is required")
	// ErrWeakSessionSecret indicates the session secret is too short to sign cookies.
	ErrWeakSessionSecret = errors.New("httpapi: session secret must be at least 32 bytes")

	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
)

// PortalConfig holds the dependencies of the portal router.
type PortalConfig struct {
	Database       *gorm.DB
	Logger         *zap.Logger
	SessionSecret  []byte
	SecureCookies  bool
	AllowedOrigins []string
}

// NewRouter wires every portal route onto a new gin engine.
func NewRouter(config PortalConfig) (*gin.Engine, error) {
	if config.Database == nil {
		return nil, ErrMissingDatabase
	}
	if len(config.SessionSecret) < minimumSessionSecretLength {
		return nil, ErrWeakSessionSecret
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allowedOrigins := config.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{DefaultAllowedOrigin}
	}

	authManager := NewAuthManager(logger, config.SessionSecret, config.SecureCookies)
	renderer, rendererErr := newPageRenderer(logger, authManager)
	if rendererErr != nil {
		return nil, rendererErr
	}

	sessionHandlers := newSessionHandlers(config.Database, logger, authManager, renderer)
	adminHandlers := newAdminHandlers(config.Database, logger, authManager, renderer)
	agentHandlers := newAgentHandlers(config.Database, logger, authManager, renderer)
	staffHandlers := newStaffHandlers(config.Database, logger, renderer)
	apiHandlers := NewAPIHandlers(config.Database, logger)
	tokenResolver := NewDatabaseTokenResolver(config.Database, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	router.GET(RouteHealth, func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{healthStatusKey: healthStatusOK})
	})

	web := router.Group(RouteRoot)
	web.Use(NoStore())
	registerSessionRoutes(web, sessionHandlers)
	registerAdminRoutes(web, authManager, adminHandlers)
	registerAgentRoutes(web, authManager, agentHandlers)
	web.GET(RouteStaffDashboard, authManager.RequireRoleWeb(model.RoleStaff), staffHandlers.Dashboard)

	registerAPIRoutes(router, authManager, apiHandlers, tokenResolver, allowedOrigins)

	router.NoRoute(func(context *gin.Context) {
		authManager.ensureUser(context)
		renderer.render(context, http.StatusNotFound, pageView{
			Name:    pageNotFound,
			Heading: messagePageNotFound,
			Content: notFoundView{Message: messagePageNotFound},
		})
	})
	return router, nil
}

func registerSessionRoutes(group *gin.RouterGroup, handlers *SessionHandlers) {
	group.GET(RouteRoot, handlers.Root)
	group.GET(RouteLogin, handlers.RenderLogin)
	group.POST(RouteLogin, handlers.SubmitLogin)
	group.GET(RouteSignup, handlers.RenderSignup)
	group.POST(RouteSignup, handlers.SubmitSignup)
	group.GET(RouteLogout, handlers.Logout)
	group.POST(RouteLogout, handlers.Logout)
}

func registerAdminRoutes(group *gin.RouterGroup, authManager *AuthManager, handlers *AdminHandlers) {
	admin := group.Group(RouteRoot)
	admin.Use(authManager.RequireRoleWeb(model.RoleMasterAdmin))
	admin.GET(RouteAdminDashboard, handlers.Dashboard)
	admin.GET(RouteAdminUsers, handlers.Users)
	admin.POST(RouteAdminUsersInvite, handlers.InviteUser)
	admin.GET(RouteAdminRoles, handlers.Roles)
	admin.POST(RouteAdminRoles, handlers.SaveRole)
	admin.GET(RouteAdminDisbursements, handlers.Disbursements)
	admin.POST(RouteAdminDisbursements, handlers.CreateDisbursement)
	admin.GET(RouteAdminAudit, handlers.Audit)
	admin.GET(RouteAdminCustomers, handlers.Customers)
	admin.POST(RouteAdminCustomers, handlers.AddCustomer)
	admin.GET(RouteAdminLoanApplications, handlers.LoanApplications)
	admin.POST(RouteAdminLoanApplications, handlers.CreateLoanApplication)
	admin.GET(RouteAdminLoans, handlers.Loans)
	admin.GET(RouteAdminLoanDetail, handlers.LoanDetail)
	admin.POST(RouteAdminLoanApprove, handlers.ApproveLoan)
}

func registerAgentRoutes(group *gin.RouterGroup, authManager *AuthManager, handlers *AgentHandlers) {
	agent := group.Group(RouteRoot)
	agent.Use(authManager.RequireRoleWeb(model.RoleCollectionAgent))
	agent.GET(RouteAgentDashboard, handlers.Dashboard)
	agent.GET(RouteAgentLoans, handlers.Loans)
	agent.POST(RouteAgentCollect, handlers.Collect)
	agent.GET(RouteAgentHistory, handlers.History)
	agent.GET(RouteAgentPerformance, handlers.Performance)
}

func registerAPIRoutes(router *gin.Engine, authManager *AuthManager, handlers *APIHandlers, tokens TokenResolver, allowedOrigins []string) {
	apiGroup := router.Group(RouteAPIPrefix)
	apiGroup.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))
	apiGroup.POST(RouteAPIAuthLogin, handlers.Login)
	apiGroup.POST(RouteAPIAuthSignup, handlers.Signup)
	apiGroup.GET(RouteAPIAuthMe, authManager.RequireAuthenticatedJSON(tokens), handlers.Me)
}
