package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	messageUserInvited          = "User invited successfully"
	messageRoleSaved            = "Role created successfully"
	messageLoanDisbursed        = "Loan disbursed successfully"
	messageCustomerAdded        = "Customer added successfully"
	messageApplicationSaved     = "Loan application created successfully"
	messageLoanApproved         = "Loan approved successfully"
	messageInviteInvalid        = "Please provide a valid email and role"
	messageRoleNameRequired     = "Please enter a role name"
	messageRoleExists           = "Role already exists"
	messageLoanRequired         = "Please select a loan"
	messageAmountInvalid        = "Please enter a valid amount"
	messageMethodRequired       = "Please select a method"
	messageCustomerNameRequired = "Please enter the customer's full name"
	messageCustomerRequired     = "Please select a customer"
	messageLoanNotPending       = "Loan is not awaiting approval"
	messageLoanNotFound         = "Loan not found"
	messageSaveFailed           = "Could not save changes. Please try again."
	messageLoadFailed           = "Could not load data. Please try again."
	loanReferenceFormat         = "LN-%d"
	loanReferenceBase           = 1000
	loanLabelFormat             = "%s · %s"
	permissionSeparator         = ","
	auditEntryLimit             = 200
	auditDetailAmountFormat     = "%s %.2f"
	logEventAdminQuery          = "admin_query"
	logEventAdminWrite          = "admin_write"
	logFieldOperation           = "operation"
	logFieldLoanID              = "loan_id"
)

var (
	errInvalidAmount = errors.New("invalid amount")
	errLoanNotFound  = errors.New("loan not found")
)

var (
	disbursementMethods = []string{"bank_transfer", "cash", "cheque", "mobile_money"}
	paymentMethods      = []string{"cash", "bank_transfer", "mobile_money", "cheque"}
	loanTypes           = []string{"personal", "business", "group", "emergency"}
	repaymentModes      = []string{"daily", "weekly", "monthly"}
	rolePermissions     = []string{
		"manage_users",
		"manage_roles",
		"manage_customers",
		"manage_loans",
		"approve_loans",
		"disburse_loans",
		"collect_payments",
		"view_reports",
		"view_audit",
	}
)

// AdminHandlers serves the master administrator pages.
type AdminHandlers struct {
	database *gorm.DB
	logger   *zap.Logger
	auth     *AuthManager
	renderer *pageRenderer
}

func newAdminHandlers(database *gorm.DB, logger *zap.Logger, authManager *AuthManager, renderer *pageRenderer) *AdminHandlers {
	return &AdminHandlers{database: database, logger: logger, auth: authManager, renderer: renderer}
}

type adminDashboardView struct {
	CustomerCount    int64
	ActiveLoanCount  int64
	PendingLoanCount int64
	DisbursedTotal   float64
	RecentActivity   []model.AuditEntry
}

type adminUsersView struct {
	Users       []model.User
	Invitations []model.Invitation
	Roles       []string
}

type adminRolesView struct {
	Roles       []model.Role
	Permissions []string
}

type loanOption struct {
	ID    string
	Label string
}

type disbursementRow struct {
	Reference    string
	CustomerName string
	Amount       float64
	Method       string
	CreatedBy    string
	CreatedAt    time.Time
}

type adminDisbursementsView struct {
	Loans         []loanOption
	Methods       []string
	Disbursements []disbursementRow
}

type adminAuditView struct {
	Entries      []model.AuditEntry
	Users        []string
	SelectedUser string
	SelectedDate string
}

type adminCustomersView struct {
	Customers []model.Customer
}

type applicationRow struct {
	CustomerName  string
	LoanAmount    float64
	TotalDue      float64
	InterestRate  float64
	LoanType      string
	RepaymentMode string
	CreatedBy     string
	CreatedAt     time.Time
}

type adminLoanApplicationsView struct {
	Applications   []applicationRow
	Customers      []model.Customer
	LoanTypes      []string
	RepaymentModes []string
}

type adminLoanRow struct {
	ID           string
	Reference    string
	CustomerName string
	Principal    float64
	TotalDue     float64
	Status       string
	Pending      bool
	DetailURL    string
	ApproveURL   string
}

type adminLoansView struct {
	Loans []adminLoanRow
}

type adminLoanDetailView struct {
	Loan           model.Loan
	Collections    []model.Collection
	CollectedTotal float64
	Outstanding    float64
}

type notFoundView struct {
	Message string
}

func (handlers *AdminHandlers) Dashboard(context *gin.Context) {
	view := adminDashboardView{}
	queryErr := firstError(
		handlers.database.Model(&model.Customer{}).Count(&view.CustomerCount).Error,
		handlers.database.Model(&model.Loan{}).Where("status <> ?", model.LoanStatusPending).Count(&view.ActiveLoanCount).Error,
		handlers.database.Model(&model.Loan{}).Where("status = ?", model.LoanStatusPending).Count(&view.PendingLoanCount).Error,
		handlers.database.Model(&model.Disbursement{}).Select("COALESCE(SUM(amount), 0)").Scan(&view.DisbursedTotal).Error,
		handlers.database.Order("created_at desc").Limit(5).Find(&view.RecentActivity).Error,
	)
	handlers.renderPage(context, pageAdminDashboard, "Admin Dashboard", view, queryErr)
}

func (handlers *AdminHandlers) Users(context *gin.Context) {
	view := adminUsersView{Roles: model.KnownRoles()}
	queryErr := firstError(
		handlers.database.Order("email asc").Find(&view.Users).Error,
		handlers.database.Order("created_at desc").Find(&view.Invitations).Error,
	)
	handlers.renderPage(context, pageAdminUsers, "User Management", view, queryErr)
}

func (handlers *AdminHandlers) InviteUser(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	email := model.NormalizeEmail(context.PostForm(formFieldEmail))
	role := strings.TrimSpace(context.PostForm(formFieldRole))

	if _, parseErr := mail.ParseAddress(email); parseErr != nil || !model.IsKnownRole(role) {
		handlers.redirectWithFlash(context, RouteAdminUsers, flashKindError, messageInviteInvalid)
		return
	}

	invitation := model.Invitation{ID: storage.NewID(), Email: email, Role: role, InvitedBy: currentUser.Email}
	if createErr := handlers.database.Create(&invitation).Error; createErr != nil {
		handlers.writeFailed(context, "invite_user", createErr, RouteAdminUsers)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionInvite, email)
	handlers.redirectWithFlash(context, RouteAdminUsers, flashKindSuccess, messageUserInvited)
}

func (handlers *AdminHandlers) Roles(context *gin.Context) {
	view := adminRolesView{Permissions: rolePermissions}
	queryErr := handlers.database.Order("name asc").Find(&view.Roles).Error
	handlers.renderPage(context, pageAdminRoles, "Roles & Permissions", view, queryErr)
}

func (handlers *AdminHandlers) SaveRole(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	name := normalizeRoleName(context.PostForm(formFieldName))
	if name == "" {
		handlers.redirectWithFlash(context, RouteAdminRoles, flashKindError, messageRoleNameRequired)
		return
	}

	var existing int64
	if countErr := handlers.database.Model(&model.Role{}).Where("name = ?", name).Count(&existing).Error; countErr != nil {
		handlers.writeFailed(context, "save_role", countErr, RouteAdminRoles)
		return
	}
	if existing > 0 {
		handlers.redirectWithFlash(context, RouteAdminRoles, flashKindError, messageRoleExists)
		return
	}

	role := model.Role{
		ID:          storage.NewID(),
		Name:        name,
		Description: strings.TrimSpace(context.PostForm(formFieldDescription)),
		Permissions: strings.Join(knownPermissions(context.PostFormArray(formFieldPermissions)), permissionSeparator),
	}
	if createErr := handlers.database.Create(&role).Error; createErr != nil {
		handlers.writeFailed(context, "save_role", createErr, RouteAdminRoles)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionRoleSaved, name)
	handlers.redirectWithFlash(context, RouteAdminRoles, flashKindSuccess, messageRoleSaved)
}

func (handlers *AdminHandlers) Disbursements(context *gin.Context) {
	view := adminDisbursementsView{Methods: disbursementMethods}

	var loans []model.Loan
	var disbursements []model.Disbursement
	queryErr := firstError(
		handlers.database.Preload("Customer").Order("reference asc").Find(&loans).Error,
		handlers.database.Order("created_at desc").Find(&disbursements).Error,
	)

	loansByID := make(map[string]model.Loan, len(loans))
	for _, loan := range loans {
		loansByID[loan.ID] = loan
		if loan.Status == model.LoanStatusDisbursed {
			continue
		}
		view.Loans = append(view.Loans, loanOption{ID: loan.ID, Label: fmt.Sprintf(loanLabelFormat, loan.Reference, loan.Customer.FullName)})
	}
	for _, disbursement := range disbursements {
		loan := loansByID[disbursement.LoanID]
		view.Disbursements = append(view.Disbursements, disbursementRow{
			Reference:    loan.Reference,
			CustomerName: loan.Customer.FullName,
			Amount:       disbursement.Amount,
			Method:       disbursement.Method,
			CreatedBy:    disbursement.CreatedBy,
			CreatedAt:    disbursement.CreatedAt,
		})
	}
	handlers.renderPage(context, pageAdminDisbursements, "Disbursements", view, queryErr)
}

func (handlers *AdminHandlers) CreateDisbursement(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loanID := strings.TrimSpace(context.PostForm(formFieldLoanID))
	method := strings.TrimSpace(context.PostForm(formFieldMethod))
	if loanID == "" {
		handlers.redirectWithFlash(context, RouteAdminDisbursements, flashKindError, messageLoanRequired)
		return
	}
	amount, amountErr := parseAmount(context.PostForm(formFieldAmount))
	if amountErr != nil {
		handlers.redirectWithFlash(context, RouteAdminDisbursements, flashKindError, messageAmountInvalid)
		return
	}
	if !contains(disbursementMethods, method) {
		handlers.redirectWithFlash(context, RouteAdminDisbursements, flashKindError, messageMethodRequired)
		return
	}

	var reference string
	transactionErr := handlers.database.Transaction(func(transaction *gorm.DB) error {
		var loan model.Loan
		if lookupErr := transaction.First(&loan, "id = ?", loanID).Error; lookupErr != nil {
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return errLoanNotFound
			}
			return lookupErr
		}
		reference = loan.Reference
		disbursement := model.Disbursement{ID: storage.NewID(), LoanID: loan.ID, Amount: amount, Method: method, CreatedBy: currentUser.Email}
		if createErr := transaction.Create(&disbursement).Error; createErr != nil {
			return createErr
		}
		return transaction.Model(&loan).Update("status", model.LoanStatusDisbursed).Error
	})
	if transactionErr != nil {
		if errors.Is(transactionErr, errLoanNotFound) {
			handlers.redirectWithFlash(context, RouteAdminDisbursements, flashKindError, messageLoanNotFound)
			return
		}
		handlers.writeFailed(context, "create_disbursement", transactionErr, RouteAdminDisbursements)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionDisbursement, fmt.Sprintf(auditDetailAmountFormat, reference, amount))
	handlers.redirectWithFlash(context, RouteAdminDisbursements, flashKindSuccess, messageLoanDisbursed)
}

func (handlers *AdminHandlers) Audit(context *gin.Context) {
	view := adminAuditView{
		SelectedUser: strings.TrimSpace(context.Query(queryParameterUser)),
		SelectedDate: strings.TrimSpace(context.Query(queryParameterDate)),
	}

	query := handlers.database.Model(&model.AuditEntry{})
	if view.SelectedUser != "" {
		query = query.Where("actor_email = ?", model.NormalizeEmail(view.SelectedUser))
	}
	if view.SelectedDate != "" {
		since, parseErr := time.ParseInLocation(auditDateLayout, view.SelectedDate, time.Local)
		if parseErr == nil {
			query = query.Where("created_at >= ?", since)
		} else {
			view.SelectedDate = ""
		}
	}

	var userEmails []string
	queryErr := firstError(
		query.Order("created_at desc").Limit(auditEntryLimit).Find(&view.Entries).Error,
		handlers.database.Model(&model.User{}).Pluck("email", &userEmails).Error,
	)
	sort.Strings(userEmails)
	view.Users = userEmails
	handlers.renderPage(context, pageAdminAudit, "Audit Trail", view, queryErr)
}

func (handlers *AdminHandlers) Customers(context *gin.Context) {
	view := adminCustomersView{}
	queryErr := handlers.database.Order("full_name asc").Find(&view.Customers).Error
	handlers.renderPage(context, pageAdminCustomers, "Customers", view, queryErr)
}

func (handlers *AdminHandlers) AddCustomer(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	fullName := strings.TrimSpace(context.PostForm(formFieldFullName))
	if fullName == "" {
		handlers.redirectWithFlash(context, RouteAdminCustomers, flashKindError, messageCustomerNameRequired)
		return
	}
	customer := model.Customer{
		ID:       storage.NewID(),
		FullName: fullName,
		Phone:    strings.TrimSpace(context.PostForm(formFieldPhone)),
		Address:  strings.TrimSpace(context.PostForm(formFieldAddress)),
	}
	if createErr := handlers.database.Create(&customer).Error; createErr != nil {
		handlers.writeFailed(context, "add_customer", createErr, RouteAdminCustomers)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionCustomerAdded, fullName)
	handlers.redirectWithFlash(context, RouteAdminCustomers, flashKindSuccess, messageCustomerAdded)
}

func (handlers *AdminHandlers) LoanApplications(context *gin.Context) {
	view := adminLoanApplicationsView{LoanTypes: loanTypes, RepaymentModes: repaymentModes}

	var applications []model.LoanApplication
	queryErr := firstError(
		handlers.database.Order("created_at desc").Find(&applications).Error,
		handlers.database.Order("full_name asc").Find(&view.Customers).Error,
	)
	customerNames := make(map[string]string, len(view.Customers))
	for _, customer := range view.Customers {
		customerNames[customer.ID] = customer.FullName
	}
	for _, application := range applications {
		view.Applications = append(view.Applications, applicationRow{
			CustomerName:  customerNames[application.CustomerID],
			LoanAmount:    application.LoanAmount,
			TotalDue:      application.TotalDue,
			InterestRate:  application.InterestRate,
			LoanType:      application.LoanType,
			RepaymentMode: application.RepaymentMode,
			CreatedBy:     application.CreatedBy,
			CreatedAt:     application.CreatedAt,
		})
	}
	handlers.renderPage(context, pageAdminLoanApplications, "Loan Applications", view, queryErr)
}

// CreateLoanApplication stores the wizard submission and opens a pending loan
// for it, assigned to the first collection agent.
func (handlers *AdminHandlers) CreateLoanApplication(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	customerID := strings.TrimSpace(context.PostForm(formFieldCustomerID))
	if customerID == "" {
		handlers.redirectWithFlash(context, RouteAdminLoanApplications, flashKindError, messageCustomerRequired)
		return
	}
	loanAmount, loanAmountErr := parseAmount(context.PostForm(formFieldLoanAmount))
	if loanAmountErr != nil {
		handlers.redirectWithFlash(context, RouteAdminLoanApplications, flashKindError, messageAmountInvalid)
		return
	}
	totalDue, totalDueErr := parseAmount(context.PostForm(formFieldTotalDue))
	if totalDueErr != nil {
		totalDue = loanAmount
	}
	interestRate, rateErr := strconv.ParseFloat(strings.TrimSpace(context.PostForm(formFieldInterestRate)), 64)
	if rateErr != nil || interestRate < 0 {
		interestRate = 0
	}
	createdBy := strings.TrimSpace(context.PostForm(formFieldCreatedBy))
	if createdBy == "" {
		createdBy = currentUser.Username
	}
	loanType := pickKnown(loanTypes, context.PostForm(formFieldLoanType))
	repaymentMode := pickKnown(repaymentModes, context.PostForm(formFieldRepaymentMode))

	transactionErr := handlers.database.Transaction(func(transaction *gorm.DB) error {
		var customer model.Customer
		if lookupErr := transaction.First(&customer, "id = ?", customerID).Error; lookupErr != nil {
			return lookupErr
		}
		var agent model.User
		agentErr := transaction.Where("role = ?", model.RoleCollectionAgent).Order("email asc").First(&agent).Error
		if agentErr != nil && !errors.Is(agentErr, gorm.ErrRecordNotFound) {
			return agentErr
		}
		var loanCount int64
		if countErr := transaction.Model(&model.Loan{}).Count(&loanCount).Error; countErr != nil {
			return countErr
		}

		application := model.LoanApplication{
			ID:            storage.NewID(),
			CustomerID:    customer.ID,
			LoanAmount:    loanAmount,
			TotalDue:      totalDue,
			InterestRate:  interestRate,
			LoanType:      loanType,
			RepaymentMode: repaymentMode,
			CreatedBy:     createdBy,
		}
		if createErr := transaction.Create(&application).Error; createErr != nil {
			return createErr
		}
		loan := model.Loan{
			ID:            storage.NewID(),
			Reference:     fmt.Sprintf(loanReferenceFormat, loanReferenceBase+loanCount+1),
			CustomerID:    customer.ID,
			AssignedAgent: agent.Email,
			Principal:     loanAmount,
			TotalDue:      totalDue,
			InterestRate:  interestRate,
			LoanType:      loanType,
			RepaymentMode: repaymentMode,
			Status:        model.LoanStatusPending,
		}
		return transaction.Create(&loan).Error
	})
	if transactionErr != nil {
		if errors.Is(transactionErr, gorm.ErrRecordNotFound) {
			handlers.redirectWithFlash(context, RouteAdminLoanApplications, flashKindError, messageCustomerRequired)
			return
		}
		handlers.writeFailed(context, "create_loan_application", transactionErr, RouteAdminLoanApplications)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionApplicationReceived, formatMoney(loanAmount))
	handlers.redirectWithFlash(context, RouteAdminLoanApplications, flashKindSuccess, messageApplicationSaved)
}

func (handlers *AdminHandlers) Loans(context *gin.Context) {
	var loans []model.Loan
	queryErr := handlers.database.Preload("Customer").Order("reference asc").Find(&loans).Error
	view := adminLoansView{}
	for _, loan := range loans {
		view.Loans = append(view.Loans, adminLoanRow{
			ID:           loan.ID,
			Reference:    loan.Reference,
			CustomerName: loan.Customer.FullName,
			Principal:    loan.Principal,
			TotalDue:     loan.TotalDue,
			Status:       loan.Status,
			Pending:      loan.Status == model.LoanStatusPending,
			DetailURL:    LoanDetailPath(loan.ID),
			ApproveURL:   LoanApprovePath(loan.ID),
		})
	}
	handlers.renderPage(context, pageAdminLoans, "Loans", view, queryErr)
}

func (handlers *AdminHandlers) LoanDetail(context *gin.Context) {
	loan, lookupErr := handlers.findLoan(context.Param("id"))
	if lookupErr != nil {
		handlers.loanLookupFailed(context, lookupErr)
		return
	}

	view := adminLoanDetailView{Loan: loan}
	queryErr := handlers.database.Where("loan_id = ?", loan.ID).Order("created_at desc").Find(&view.Collections).Error
	for _, collection := range view.Collections {
		view.CollectedTotal += collection.Amount
	}
	view.Outstanding = outstanding(loan.TotalDue, view.CollectedTotal)
	handlers.renderPage(context, pageAdminLoanDetail, "Loan Details", view, queryErr)
}

func (handlers *AdminHandlers) ApproveLoan(context *gin.Context) {
	currentUser, _ := CurrentUserFromContext(context)
	loan, lookupErr := handlers.findLoan(context.Param("id"))
	if lookupErr != nil {
		handlers.loanLookupFailed(context, lookupErr)
		return
	}
	if loan.Status != model.LoanStatusPending {
		handlers.redirectWithFlash(context, RouteAdminLoans, flashKindError, messageLoanNotPending)
		return
	}
	if updateErr := handlers.database.Model(&loan).Update("status", model.LoanStatusApproved).Error; updateErr != nil {
		handlers.writeFailed(context, "approve_loan", updateErr, RouteAdminLoans)
		return
	}
	recordAudit(handlers.database, handlers.logger, currentUser.Email, auditActionLoanApproval, loan.Reference)
	handlers.redirectWithFlash(context, RouteAdminLoans, flashKindSuccess, messageLoanApproved)
}

func (handlers *AdminHandlers) findLoan(loanID string) (model.Loan, error) {
	var loan model.Loan
	lookupErr := handlers.database.Preload("Customer").First(&loan, "id = ?", strings.TrimSpace(loanID)).Error
	if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		return model.Loan{}, errLoanNotFound
	}
	return loan, lookupErr
}

func (handlers *AdminHandlers) loanLookupFailed(context *gin.Context, lookupErr error) {
	if errors.Is(lookupErr, errLoanNotFound) {
		handlers.renderer.render(context, http.StatusNotFound, pageView{
			Name:    pageNotFound,
			Heading: messageLoanNotFound,
			Content: notFoundView{Message: messageLoanNotFound},
		})
		return
	}
	handlers.logger.Error(logEventAdminQuery, zap.String(logFieldLoanID, context.Param("id")), zap.Error(lookupErr))
	handlers.redirectWithFlash(context, RouteAdminLoans, flashKindError, messageLoadFailed)
}

func (handlers *AdminHandlers) renderPage(context *gin.Context, page pageName, heading string, content any, queryErr error) {
	renderPageWithQueryError(handlers.renderer, handlers.logger, context, page, heading, content, queryErr)
}

func (handlers *AdminHandlers) redirectWithFlash(context *gin.Context, route string, kind string, message string) {
	handlers.auth.addFlash(context, kind, message)
	context.Redirect(http.StatusSeeOther, route)
}

func (handlers *AdminHandlers) writeFailed(context *gin.Context, operation string, writeErr error, route string) {
	handlers.logger.Error(logEventAdminWrite, zap.String(logFieldOperation, operation), zap.Error(writeErr))
	handlers.redirectWithFlash(context, route, flashKindError, messageSaveFailed)
}

// renderPageWithQueryError renders content, replacing it with an error banner
// when loading it failed.
func renderPageWithQueryError(renderer *pageRenderer, logger *zap.Logger, context *gin.Context, page pageName, heading string, content any, queryErr error) {
	view := pageView{Name: page, Heading: heading, Content: content}
	status := http.StatusOK
	if queryErr != nil {
		logger.Error(logEventAdminQuery, zap.String(logFieldPage, string(page)), zap.Error(queryErr))
		view.ErrorMessage = messageLoadFailed
		status = http.StatusInternalServerError
	}
	renderer.render(context, status, view)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func parseAmount(raw string) (float64, error) {
	amount, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if parseErr != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func outstanding(totalDue float64, collected float64) float64 {
	if collected >= totalDue {
		return 0
	}
	return totalDue - collected
}

// normalizeRoleName turns "Branch Manager" into "branch_manager".
func normalizeRoleName(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}

func knownPermissions(submitted []string) []string {
	var permissions []string
	for _, permission := range rolePermissions {
		if contains(submitted, permission) {
			permissions = append(permissions, permission)
		}
	}
	return permissions
}

// pickKnown returns the submitted value when it is one of options, else the first option.
func pickKnown(options []string, submitted string) string {
	value := strings.TrimSpace(submitted)
	if contains(options, value) {
		return value
	}
	return options[0]
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
