//go:build e2e

package suite_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/e2etest"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
)

const (
	routeAgentDashboard   = "/agent/dashboard"
	routeAgentLoans       = "/agent/loans"
	routeAgentHistory     = "/agent/history"
	routeAgentPerformance = "/agent/performance"
	collectionAmount      = "5000"
	collectionMethod      = "cash"
	collectionNotes       = "Collected at the branch"
)

func TestAgentDashboardAccess(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleCollectionAgent)
	fixture.Navigate(routeAgentDashboard)

	fixture.RequireTextVisible("Collection Agent")
	fixture.RequireField(locator.FieldAgentSummary)
	fixture.RequireField(locator.FieldAgentAssignedLoans)
	fixture.RequireField(locator.FieldAgentPendingDues)
}

func TestCollectPayment(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleCollectionAgent)
	fixture.Navigate(routeAgentLoans)

	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Collect")).Strategy)
	amount := fixture.RequireVisible(locator.Parse("input[name='amount']", "input[placeholder*='amount']")...)
	fixture.Fill(amount.Strategy, collectionAmount)
	fixture.SelectValue(locator.CSS("select[name='payment_method']"), collectionMethod)
	fixture.Fill(locator.CSS("textarea[name='notes']"), collectionNotes)
	fixture.Click(fixture.RequireClickable(locator.ButtonWithText("Submit")).Strategy)

	fixture.RequireTextVisible("collected")
}

func TestViewCollectionHistory(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleCollectionAgent)
	fixture.Navigate(routeAgentHistory)

	fixture.RequireField(locator.FieldAgentHistoryList)
	require.Greater(t, fixture.Count(locator.CSS("tr, .history-item")), 1)
}

func TestAgentPerformanceMetrics(t *testing.T) {
	e2etest.SkipInShortMode(t)
	fixture := e2etest.NewFixture(t)
	fixture.LoginAs(authflow.RoleCollectionAgent)
	fixture.Navigate(routeAgentPerformance)

	fixture.RequireField(locator.FieldAgentPerformance)
	fixture.RequireTextVisible("Collection Rate")
	fixture.RequireTextVisible("Target")
}
