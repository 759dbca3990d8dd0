//go:build e2e

package suite_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/e2etest"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
)

const (
	routeAdminDashboard     = "/admin/dashboard"
	routeAdminUsers         = "/admin/users"
	routeAdminRoles         = "/admin/roles"
	routeAdminDisbursements = "/admin/disbursements"
	routeAdminAudit         = "/admin/audit"
	inviteEmailFormat       = "newstaff-%s@example.com"
	inviteRole              = "staff"
	roleNameFormat          = "Test Role %s"
	roleDescription         = "Test role description"
	disbursementAmount      = "50000"
	disbursementMethod      = "bank_transfer"
	auditFromDate           = "2025-01-01"
	auditFilterMarker       = "date="
)

func TestAdminDashboardAccess(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleMasterAdmin)
	fixture.Navigate(routeAdminDashboard)

	source := strings.ToLower(fixture.PageSource())
	e2etest.AnyOf(t, "admin dashboard reachable",
		e2etest.Either("url mentions admin", func() bool { return strings.Contains(fixture.CurrentURL(), "admin") }),
		e2etest.Either("page mentions dashboard", func() bool { return strings.Contains(source, dashboardMarker) }),
		e2etest.Either("page mentions admin", func() bool { return strings.Contains(source, "admin") }),
	)
}

func TestUserManagement(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleMasterAdmin)
	fixture.Navigate(routeAdminUsers)
	fixture.RequireField(locator.FieldAdminUsersList)

	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Invite User")).Strategy)
	email := fixture.RequireVisible(locator.CSS("input[name='email']"))
	fixture.Fill(email.Strategy, fmt.Sprintf(inviteEmailFormat, uniqueSuffix()))
	fixture.SelectValue(locator.CSS("select[name='role']"), inviteRole)
	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Send Invite")).Strategy)

	fixture.RequireTextVisible("invited")
}

func TestRolesPermissions(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleMasterAdmin)
	fixture.Navigate(routeAdminRoles)
	fixture.RequireField(locator.FieldAdminRolesList)

	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Create Role")).Strategy)
	name := fixture.RequireVisible(locator.CSS("input[name='name']"))
	fixture.Fill(name.Strategy, fmt.Sprintf(roleNameFormat, uniqueSuffix()))
	fixture.Fill(locator.CSS("textarea[name='description']"), roleDescription)
	permission := locator.CSS("input[type='checkbox']")
	if fixture.Count(permission) > 0 {
		fixture.Check(permission)
	}
	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Save Role")).Strategy)

	fixture.RequireTextVisible("created")
}

func TestDisbursementsManagement(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleMasterAdmin)
	fixture.Navigate(routeAdminDisbursements)
	fixture.RequireField(locator.FieldAdminDisbursements)

	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Create Disbursement")).Strategy)
	loan := fixture.RequireVisible(locator.CSS("select[name='loan_id']"))
	fixture.SelectIndex(loan.Strategy, 1)
	fixture.Fill(locator.CSS("input[name='amount']"), disbursementAmount)
	fixture.SelectValue(locator.CSS("select[name='method']"), disbursementMethod)
	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Submit")).Strategy)

	fixture.RequireTextVisible("disbursed")
}

func TestAuditTrail(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleMasterAdmin)
	fixture.Navigate(routeAdminAudit)
	auditLog := fixture.RequireField(locator.FieldAdminAuditList)

	fixture.SetValue(fixture.RequirePresent(locator.CSS("input[type='date']")).Strategy, auditFromDate)
	fixture.SelectIndex(locator.CSS("select[name='user']"), 1)
	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Filter")).Strategy)

	fixture.RequireURLContains(auditFilterMarker)
	fixture.RequireVisible(auditLog.Strategy)
}
