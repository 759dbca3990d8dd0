package httpapi_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

func TestAdminDashboardSummarizesSeedData(t *testing.T) {
	harness := newPortalHarness(t)
	page := harness.loginAsAdmin()

	metrics := page.document.Find(".admin-summary .metric")
	require.Equal(t, 4, metrics.Length())
	require.Equal(t, "3", strings.TrimSpace(metrics.Eq(0).Text()))
	require.Equal(t, "2", strings.TrimSpace(metrics.Eq(1).Text()))
	require.Equal(t, "1", strings.TrimSpace(metrics.Eq(2).Text()))
	require.Contains(t, page.document.Find(".recent-activity").Text(), storage.DefaultAdminEmail)
}

func TestAdminNavigationMarksActivePage(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	page := harness.get(httpapi.RouteAdminRoles)
	active := page.document.Find(".portal-nav a.active")
	require.Equal(t, 1, active.Length())
	require.Equal(t, "Roles", active.Text())
	require.Equal(t, 8, page.document.Find(".portal-nav a").Length())
}

// Scenario assertions search for these lowercase words as element text, so a
// page must not show them until the matching form has been submitted.
func TestAdminPagesHoldConfirmationWordsUntilSubmit(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	routes := []string{
		httpapi.RouteAdminDashboard,
		httpapi.RouteAdminUsers,
		httpapi.RouteAdminRoles,
		httpapi.RouteAdminDisbursements,
		httpapi.RouteAdminCustomers,
		httpapi.RouteAdminLoanApplications,
		httpapi.RouteAdminLoans,
	}
	words := []string{"successfully", "invited", "created", "disbursed", "approved", "collected"}
	for _, route := range routes {
		text := harness.get(route).document.Find("body").Text()
		for _, word := range words {
			require.NotContains(t, text, word, route)
		}
	}
}

func TestAdminInvitesUser(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	page := harness.post(httpapi.RouteAdminUsersInvite, url.Values{"email": {"New.Colleague@example.com"}, "role": {model.RoleStaff}})
	require.Equal(t, httpapi.RouteAdminUsers, page.finalURL.Path)
	require.Equal(t, "User invited successfully", page.notice())
	require.Contains(t, page.document.Find(".invitations-list").Text(), "new.colleague@example.com")

	rejected := harness.post(httpapi.RouteAdminUsersInvite, url.Values{"email": {"nope"}, "role": {model.RoleStaff}})
	require.Equal(t, "Please provide a valid email and role", rejected.errorMessage())
	require.Empty(t, rejected.notice())
}

func TestAdminCreatesRoleOnce(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	form := url.Values{
		"name":        {"Branch Manager"},
		"description": {"Manages a branch"},
		"permissions": {"approve_loans", "manage_loans", "unknown_permission"},
	}
	page := harness.post(httpapi.RouteAdminRoles, form)
	require.Equal(t, "Role created successfully", page.notice())

	var role model.Role
	require.NoError(t, harness.database.First(&role, "name = ?", "branch_manager").Error)
	require.Equal(t, "manage_loans,approve_loans", role.Permissions)
	require.Contains(t, page.document.Find(".roles-list").Text(), "Branch Manager")

	duplicate := harness.post(httpapi.RouteAdminRoles, form)
	require.Equal(t, "Role already exists", duplicate.errorMessage())
}

func TestAdminRecordsDisbursement(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	listing := harness.get(httpapi.RouteAdminDisbursements)
	options := listing.document.Find("select[name='loan_id'] option[value!='']")
	require.Equal(t, 2, options.Length())
	loanID, _ := options.First().Attr("value")

	page := harness.post(httpapi.RouteAdminDisbursements, url.Values{"loan_id": {loanID}, "amount": {"2500"}, "method": {"bank_transfer"}})
	require.Equal(t, "Loan disbursed successfully", page.notice())
	require.Equal(t, 1, page.document.Find("select[name='loan_id'] option[value!='']").Length())

	var loan model.Loan
	require.NoError(t, harness.database.First(&loan, "id = ?", loanID).Error)
	require.Equal(t, model.LoanStatusDisbursed, loan.Status)
}

func TestAdminDisbursementValidation(t *testing.T) {
	testCases := []struct {
		name          string
		form          url.Values
		expectedError string
	}{
		{name: "missing loan", form: url.Values{"amount": {"10"}, "method": {"cash"}}, expectedError: "Please select a loan"},
		{name: "bad amount", form: url.Values{"loan_id": {"x"}, "amount": {"-5"}, "method": {"cash"}}, expectedError: "Please enter a valid amount"},
		{name: "unknown method", form: url.Values{"loan_id": {"x"}, "amount": {"5"}, "method": {"gold"}}, expectedError: "Please select a method"},
		{name: "unknown loan", form: url.Values{"loan_id": {"missing"}, "amount": {"5"}, "method": {"cash"}}, expectedError: "Loan not found"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			harness := newPortalHarness(testingT)
			harness.loginAsAdmin()
			page := harness.post(httpapi.RouteAdminDisbursements, testCase.form)
			require.Equal(testingT, testCase.expectedError, page.errorMessage())
		})
	}
}

func TestAdminAuditFilters(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	all := harness.get(httpapi.RouteAdminAudit)
	require.Equal(t, 1, all.document.Find("table.audit-logs").Length())
	require.Equal(t, "All users", all.document.Find("select[name='user'] option").First().Text())
	require.Equal(t, 1, all.document.Find("input[type='date'][name='date']").Length())

	query := url.Values{"user": {storage.DefaultAgentEmail}}
	filtered := harness.get(httpapi.RouteAdminAudit + "?" + query.Encode())
	filtered.document.Find("table.audit-logs tbody tr").Each(func(_ int, row *goquery.Selection) {
		require.NotContains(t, row.Text(), storage.DefaultAdminEmail)
	})
	require.Equal(t, storage.DefaultAgentEmail, filtered.document.Find("select[name='user'] option[selected]").Text())

	future := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	empty := harness.get(httpapi.RouteAdminAudit + "?date=" + future)
	require.Contains(t, empty.document.Find("table.audit-logs").Text(), "No entries match the filters")
}

func TestAdminAddsAndListsCustomers(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	listing := harness.get(httpapi.RouteAdminCustomers)
	require.Equal(t, 3, listing.document.Find("table.customer-list tr.customer-row").Length())
	require.Equal(t, 1, listing.document.Find("input[type='search']").Length())

	page := harness.post(httpapi.RouteAdminCustomers, url.Values{"full_name": {"Test Customer"}, "phone": {"1234567890"}, "address": {"1 Main St"}})
	require.Equal(t, "Customer added successfully", page.notice())
	require.Equal(t, 4, page.document.Find("tr.customer-row").Length())
	require.Contains(t, page.document.Find("table.customer-list").Text(), "Test Customer")

	rejected := harness.post(httpapi.RouteAdminCustomers, url.Values{"full_name": {"  "}})
	require.Equal(t, "Please enter the customer's full name", rejected.errorMessage())
}

func TestAdminLoanApplicationOpensPendingLoan(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	listing := harness.get(httpapi.RouteAdminLoanApplications)
	customerID, _ := listing.document.Find("select[name='customer_id'] option[value!='']").First().Attr("value")
	require.NotEmpty(t, customerID)

	page := harness.post(httpapi.RouteAdminLoanApplications, url.Values{
		"customer_id":    {customerID},
		"loan_amount":    {"10000"},
		"total_due":      {"11000"},
		"interest_rate":  {"10"},
		"loan_type":      {"personal"},
		"repayment_mode": {"weekly"},
		"created_by":     {"Test Admin"},
	})
	require.Equal(t, "Loan application created successfully", page.notice())
	require.Contains(t, page.document.Find(".applications-list").Text(), "Test Admin")

	var loan model.Loan
	require.NoError(t, harness.database.First(&loan, "reference = ?", "LN-1004").Error)
	require.Equal(t, model.LoanStatusPending, loan.Status)
	require.Equal(t, storage.DefaultAgentEmail, loan.AssignedAgent)
	require.InDelta(t, 11000.0, loan.TotalDue, 0.001)

	missingCustomer := harness.post(httpapi.RouteAdminLoanApplications, url.Values{"loan_amount": {"100"}})
	require.Equal(t, "Please select a customer", missingCustomer.errorMessage())
}

func TestAdminLoanApplicationKeepsWizardValuesVerbatim(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	listing := harness.get(httpapi.RouteAdminLoanApplications)
	customerID, _ := listing.document.Find("select[name='customer_id'] option[value!='']").First().Attr("value")

	page := harness.post(httpapi.RouteAdminLoanApplications, url.Values{
		"customer_id":    {customerID},
		"loan_amount":    {"50000"},
		"total_due":      {"12"},
		"interest_rate":  {"12"},
		"loan_type":      {"personal"},
		"repayment_mode": {"monthly"},
		"created_by":     {"1"},
	})
	require.Equal(t, "Loan application created successfully", page.notice())

	var application model.LoanApplication
	require.NoError(t, harness.database.First(&application, "created_by = ?", "1").Error)
	require.InDelta(t, 12.0, application.TotalDue, 0.001)
	require.InDelta(t, 50000.0, application.LoanAmount, 0.001)
}

func TestAdminApprovesPendingLoan(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	listing := harness.get(httpapi.RouteAdminLoans)
	require.Equal(t, 3, listing.document.Find("tr.clickable-row").Length())
	approveButtons := listing.document.Find("button.approve-btn")
	require.Equal(t, 1, approveButtons.Length())
	action, _ := approveButtons.Attr("data-action")

	page := harness.post(action, url.Values{})
	require.Equal(t, httpapi.RouteAdminLoans, page.finalURL.Path)
	require.Equal(t, "Loan approved successfully", page.notice())
	require.Equal(t, 0, page.document.Find("button.approve-btn").Length())

	again := harness.post(action, url.Values{})
	require.Equal(t, "Loan is not awaiting approval", again.errorMessage())
}

func TestAdminLoanDetail(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAdmin()

	var loan model.Loan
	require.NoError(t, harness.database.First(&loan, "reference = ?", "LN-1003").Error)

	listing := harness.get(httpapi.RouteAdminLoans)
	href := listing.document.Find("tr.clickable-row").Last().AttrOr("data-href", "")
	require.Equal(t, httpapi.LoanDetailPath(loan.ID), href)

	page := harness.get(href)
	require.Equal(t, http.StatusOK, page.status)
	require.Equal(t, 1, page.document.Find("section.loan-details dl.loan-info").Length())
	require.Contains(t, page.document.Find(".loan-details h2").Text(), "LN-1003")

	missing := harness.get(httpapi.LoanDetailPath("does-not-exist"))
	require.Equal(t, http.StatusNotFound, missing.status)
	require.Equal(t, "Loan not found", missing.errorMessage())
}
