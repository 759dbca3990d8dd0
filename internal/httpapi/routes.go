package httpapi

// Portal routes.
const (
	RouteRoot                  = "/"
	RouteLogin                 = "/login"
	RouteSignup                = "/signup"
	RouteLogout                = "/logout"
	RouteAdminDashboard        = "/admin/dashboard"
	RouteAdminUsers            = "/admin/users"
	RouteAdminUsersInvite      = "/admin/users/invite"
	RouteAdminRoles            = "/admin/roles"
	RouteAdminDisbursements    = "/admin/disbursements"
	RouteAdminAudit            = "/admin/audit"
	RouteAdminCustomers        = "/admin/customers"
	RouteAdminLoanApplications = "/admin/loan-applications"
	RouteAdminLoans            = "/admin/loans"
	RouteAdminLoanDetail       = "/admin/loans/:id"
	RouteAdminLoanApprove      = "/admin/loans/:id/approve"
	RouteAgentDashboard        = "/agent/dashboard"
	RouteAgentLoans            = "/agent/loans"
	RouteAgentCollect          = "/agent/loans/collect"
	RouteAgentHistory          = "/agent/history"
	RouteAgentPerformance      = "/agent/performance"
	RouteStaffDashboard        = "/staff/dashboard"
	RouteHealth                = "/healthz"
	RouteAPIPrefix             = "/api"
	RouteAPIAuthLogin          = "/auth/login/"
	RouteAPIAuthSignup         = "/auth/signup/"
	RouteAPIAuthMe             = "/auth/me/"
	loanDetailPathPrefix       = "/admin/loans/"
	loanApprovePathSuffix      = "/approve"
	contentTypeHTML            = "text/html; charset=utf-8"
	headerCacheControl         = "Cache-Control"
	cacheControlNoStore        = "no-store"
	jsonKeyError               = "error"
	jsonKeyToken               = "token"
	jsonKeyUser                = "user"
	portalPageTitle            = "VelanDev Portal"
	portalBrandName            = "VelanDev"
	portalTagline              = "Secure Access Portal"
	formFieldEmail             = "email"
	formFieldPassword          = "password"
	formFieldConfirmPassword   = "confirmPassword"
	formFieldUsername          = "username"
	formFieldRole              = "role"
	formFieldName              = "name"
	formFieldDescription       = "description"
	formFieldPermissions       = "permissions"
	formFieldLoanID            = "loan_id"
	formFieldAmount            = "amount"
	formFieldMethod            = "method"
	formFieldPaymentMethod     = "payment_method"
	formFieldNotes             = "notes"
	formFieldCustomerID        = "customer_id"
	formFieldLoanAmount        = "loan_amount"
	formFieldTotalDue          = "total_due"
	formFieldInterestRate      = "interest_rate"
	formFieldLoanType          = "loan_type"
	formFieldRepaymentMode     = "repayment_mode"
	formFieldCreatedBy         = "created_by"
	formFieldFullName          = "full_name"
	formFieldPhone             = "phone"
	formFieldAddress           = "address"
	queryParameterDate         = "date"
	queryParameterUser         = "user"
	auditDateLayout            = "2006-01-02"
	displayTimeLayout          = "2006-01-02 15:04"
)

// LoanDetailPath returns the detail route of the loan with id.
func LoanDetailPath(loanID string) string {
	return loanDetailPathPrefix + loanID
}

// LoanApprovePath returns the approval route of the loan with id.
func LoanApprovePath(loanID string) string {
	return loanDetailPathPrefix + loanID + loanApprovePathSuffix
}
