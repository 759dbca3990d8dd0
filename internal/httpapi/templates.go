package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	layoutTemplateName     = "layout"
	layoutTemplatePath     = "templates/layout.tmpl"
	pageTemplatePathFormat = "templates/%s.tmpl"
	logEventRenderPage     = "render_page"
	logFieldPage           = "page"
	errorMessageRenderPage = "failed to render page"
	moneyFormat            = "%.2f"
)

type pageName string

const (
	pageLogin                 pageName = "login"
	pageSignup                pageName = "signup"
	pageSignupComplete        pageName = "signup_complete"
	pageAdminDashboard        pageName = "admin_dashboard"
	pageAdminUsers            pageName = "admin_users"
	pageAdminRoles            pageName = "admin_roles"
	pageAdminDisbursements    pageName = "admin_disbursements"
	pageAdminAudit            pageName = "admin_audit"
	pageAdminCustomers        pageName = "admin_customers"
	pageAdminLoanApplications pageName = "admin_loan_applications"
	pageAdminLoans            pageName = "admin_loans"
	pageAdminLoanDetail       pageName = "admin_loan_detail"
	pageAgentDashboard        pageName = "agent_dashboard"
	pageAgentLoans            pageName = "agent_loans"
	pageAgentHistory          pageName = "agent_history"
	pageAgentPerformance      pageName = "agent_performance"
	pageStaffDashboard        pageName = "staff_dashboard"
	pageNotFound              pageName = "not_found"
)

var allPages = []pageName{
	pageLogin,
	pageSignup,
	pageSignupComplete,
	pageAdminDashboard,
	pageAdminUsers,
	pageAdminRoles,
	pageAdminDisbursements,
	pageAdminAudit,
	pageAdminCustomers,
	pageAdminLoanApplications,
	pageAdminLoans,
	pageAdminLoanDetail,
	pageAgentDashboard,
	pageAgentLoans,
	pageAgentHistory,
	pageAgentPerformance,
	pageStaffDashboard,
	pageNotFound,
}

var templateFunctions = template.FuncMap{
	"money":      formatMoney,
	"formatTime": formatTime,
	"humanize":   humanize,
}

type navigationLink struct {
	Label  string
	URL    string
	Active bool
}

// pageView describes one page render.
type pageView struct {
	Name         pageName
	Heading      string
	Content      any
	Notice       string
	ErrorMessage string
}

type pageData struct {
	PageTitle    string
	Heading      string
	CurrentUser  *CurrentUser
	Navigation   []navigationLink
	Notice       string
	ErrorMessage string
	FooterHTML   template.HTML
	Content      any
}

type pageRenderer struct {
	logger      *zap.Logger
	authManager *AuthManager
	pages       map[pageName]*template.Template
}

func newPageRenderer(logger *zap.Logger, authManager *AuthManager) (*pageRenderer, error) {
	pages := make(map[pageName]*template.Template, len(allPages))
	for _, page := range allPages {
		parsed, parseErr := template.New(layoutTemplateName).
			Funcs(templateFunctions).
			ParseFS(templatesFS, layoutTemplatePath, fmt.Sprintf(pageTemplatePathFormat, page))
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, parseErr)
		}
		pages[page] = parsed
	}
	return &pageRenderer{logger: logger, authManager: authManager, pages: pages}, nil
}

func (renderer *pageRenderer) render(context *gin.Context, status int, view pageView) {
	currentUser, _ := CurrentUserFromContext(context)
	notice, errorMessage := renderer.authManager.popFlashes(context)
	if view.Notice != "" {
		notice = view.Notice
	}
	if view.ErrorMessage != "" {
		errorMessage = view.ErrorMessage
	}

	footerHTML, footerErr := renderFooterHTML(currentUser)
	if footerErr != nil {
		renderer.logger.Warn(logEventRenderPage, zap.String(logFieldPage, "footer"), zap.Error(footerErr))
		footerHTML = template.HTML("")
	}

	data := pageData{
		PageTitle:    portalPageTitle,
		Heading:      view.Heading,
		CurrentUser:  currentUser,
		Navigation:   navigationFor(currentUser, context.Request.URL.Path),
		Notice:       notice,
		ErrorMessage: errorMessage,
		FooterHTML:   footerHTML,
		Content:      view.Content,
	}

	compiled, found := renderer.pages[view.Name]
	if !found {
		renderer.logger.Error(logEventRenderPage, zap.String(logFieldPage, string(view.Name)))
		context.String(http.StatusInternalServerError, errorMessageRenderPage)
		return
	}

	var buffer bytes.Buffer
	if executeErr := compiled.ExecuteTemplate(&buffer, layoutTemplateName, data); executeErr != nil {
		renderer.logger.Error(logEventRenderPage, zap.String(logFieldPage, string(view.Name)), zap.Error(executeErr))
		context.String(http.StatusInternalServerError, errorMessageRenderPage)
		return
	}
	context.Data(status, contentTypeHTML, buffer.Bytes())
}

func navigationFor(currentUser *CurrentUser, currentPath string) []navigationLink {
	if currentUser == nil {
		return nil
	}
	var links []navigationLink
	switch currentUser.Role {
	case model.RoleMasterAdmin:
		links = []navigationLink{
			{Label: "Dashboard", URL: RouteAdminDashboard},
			{Label: "Users", URL: RouteAdminUsers},
			{Label: "Roles", URL: RouteAdminRoles},
			{Label: "Customers", URL: RouteAdminCustomers},
			{Label: "Applications", URL: RouteAdminLoanApplications},
			{Label: "Loans", URL: RouteAdminLoans},
			{Label: "Disbursements", URL: RouteAdminDisbursements},
			{Label: "Audit Trail", URL: RouteAdminAudit},
		}
	case model.RoleCollectionAgent:
		links = []navigationLink{
			{Label: "Dashboard", URL: RouteAgentDashboard},
			{Label: "My Loans", URL: RouteAgentLoans},
			{Label: "History", URL: RouteAgentHistory},
			{Label: "Performance", URL: RouteAgentPerformance},
		}
	default:
		links = []navigationLink{{Label: "Dashboard", URL: RouteStaffDashboard}}
	}
	for index := range links {
		links[index].Active = links[index].URL == currentPath
	}
	return links
}

func formatMoney(amount float64) string {
	return fmt.Sprintf(moneyFormat, amount)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(displayTimeLayout)
}

// humanize turns identifiers such as "bank_transfer" into "Bank Transfer".
func humanize(identifier string) string {
	words := strings.Fields(strings.ReplaceAll(identifier, "_", " "))
	for index, word := range words {
		words[index] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
