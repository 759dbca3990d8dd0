package authflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	testBaseURL          = "http://localhost:5173"
	testAdminIdentifier  = "admin@example.com"
	testAdminSecret      = "password123"
	testDashboardRoute   = "/admin/dashboard"
	testFullLoginMarkup  = `<html><body><form><input type="email" name="email" id="email" class="email-input"><input type="password" name="password"><button type="submit">Login</button></form></body></html>`
	testNoSecretMarkup   = `<html><body><form><input type="email" name="email"><button type="submit">Login</button></form></body></html>`
	testNameOnlyMarkup   = `<html><body><form><input name="email"><input name="password"><input type="submit" value="Go"></form></body></html>`
	testDashboardMarkup  = `<html><body><h1>Dashboard</h1><button>Logout</button></body></html>`
	testSignOutMarkup    = `<html><body><h1>Dashboard</h1><a class="logout-btn" href="/login">Sign Out</a></body></html>`
	testNoControlMarkup  = `<html><body><h1>Dashboard</h1></body></html>`
	testInvalidMarkup    = `<html><body><form><input type="email"><input type="password"><button type="submit">Login</button></form><p class="error-msg">Invalid credentials</p></body></html>`
	interactionFormat    = "%s:%s"
	interactionClear     = "clear"
	interactionType      = "type"
	interactionClick     = "click"
	submitExpression     = "button[type='submit']"
	logoutXPath          = "//button[contains(text(), 'Logout')]"
	signOutLinkXPath     = "//a[contains(text(), 'Sign Out')]"
	testShortWaitTimeout = 200 * time.Millisecond
	testShortWaitPoll    = 10 * time.Millisecond
)

// fakeBrowser serves static markup per route and records interactions.
type fakeBrowser struct {
	mutex        sync.Mutex
	pages        map[string]string
	route        string
	clicks       map[string]func(browser *fakeBrowser)
	interactions []string
	typeErr      error
	navigateErr  error
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{pages: pages, clicks: make(map[string]func(*fakeBrowser))}
}

func (browser *fakeBrowser) finder() (*locator.DocumentFinder, error) {
	browser.mutex.Lock()
	markup := browser.pages[browser.route]
	browser.mutex.Unlock()
	return locator.NewDocumentFinderFromString(markup)
}

func (browser *fakeBrowser) Present(ctx context.Context, strategy locator.Strategy) (bool, error) {
	finder, finderErr := browser.finder()
	if finderErr != nil {
		return false, finderErr
	}
	return finder.Present(ctx, strategy)
}

func (browser *fakeBrowser) Navigate(_ context.Context, route string) error {
	if browser.navigateErr != nil {
		return browser.navigateErr
	}
	browser.mutex.Lock()
	defer browser.mutex.Unlock()
	browser.route = route
	return nil
}

func (browser *fakeBrowser) WaitForDocumentReady(context.Context) error {
	return nil
}

func (browser *fakeBrowser) CurrentURL(context.Context) (string, error) {
	browser.mutex.Lock()
	defer browser.mutex.Unlock()
	return testBaseURL + browser.route, nil
}

func (browser *fakeBrowser) record(kind string, strategy locator.Strategy) {
	browser.mutex.Lock()
	defer browser.mutex.Unlock()
	browser.interactions = append(browser.interactions, fmt.Sprintf(interactionFormat, kind, strategy.Expression))
}

func (browser *fakeBrowser) Clear(_ context.Context, strategy locator.Strategy) error {
	browser.record(interactionClear, strategy)
	return nil
}

func (browser *fakeBrowser) Type(_ context.Context, strategy locator.Strategy, _ string) error {
	if browser.typeErr != nil {
		return browser.typeErr
	}
	browser.record(interactionType, strategy)
	return nil
}

func (browser *fakeBrowser) Click(_ context.Context, strategy locator.Strategy) error {
	browser.record(interactionClick, strategy)
	if handler, found := browser.clicks[strategy.Expression]; found {
		handler(browser)
	}
	return nil
}

func (browser *fakeBrowser) IsClickable(ctx context.Context, strategy locator.Strategy) (bool, error) {
	return browser.Present(ctx, strategy)
}

func (browser *fakeBrowser) IsDisplayed(ctx context.Context, strategy locator.Strategy) (bool, error) {
	return browser.Present(ctx, strategy)
}

func (browser *fakeBrowser) goTo(route string) func(*fakeBrowser) {
	return func(target *fakeBrowser) {
		target.mutex.Lock()
		defer target.mutex.Unlock()
		target.route = route
	}
}

func (browser *fakeBrowser) recorded() []string {
	browser.mutex.Lock()
	defer browser.mutex.Unlock()
	return append([]string(nil), browser.interactions...)
}

func newTestAuthenticator(testingT *testing.T, browser *fakeBrowser) *authflow.Authenticator {
	return authflow.NewAuthenticator(browser, waitpoll.New(testShortWaitTimeout, testShortWaitPoll),
		authflow.WithLogger(zaptest.NewLogger(testingT)),
		authflow.WithAccount(authflow.RoleMasterAdmin, authflow.Credentials{Identifier: testAdminIdentifier, Secret: testAdminSecret}),
	)
}

var testAdminCredentials = authflow.Credentials{Identifier: testAdminIdentifier, Secret: testAdminSecret}

func TestLoginUsesFirstMatchingCandidatePerField(testingT *testing.T) {
	testCases := []struct {
		name                 string
		loginMarkup          string
		expectedInteractions []string
	}{
		{
			name:        "primary selectors",
			loginMarkup: testFullLoginMarkup,
			expectedInteractions: []string{
				"clear:input[type='email']", "type:input[type='email']",
				"clear:input[type='password']", "type:input[type='password']",
				"click:" + submitExpression,
			},
		},
		{
			name:        "fallback selectors",
			loginMarkup: testNameOnlyMarkup,
			expectedInteractions: []string{
				"clear:input[name='email']", "type:input[name='email']",
				"clear:input[name='password']", "type:input[name='password']",
				"click:input[type='submit']",
			},
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			browser := newFakeBrowser(map[string]string{
				authflow.RouteLogin: testCase.loginMarkup,
				testDashboardRoute:  testDashboardMarkup,
			})
			browser.clicks[submitExpression] = browser.goTo(testDashboardRoute)
			browser.clicks["input[type='submit']"] = browser.goTo(testDashboardRoute)

			outcome := newTestAuthenticator(testingT, browser).Login(context.Background(), testAdminCredentials)

			require.True(testingT, outcome.Succeeded)
			require.True(testingT, outcome.Settled)
			require.NoError(testingT, outcome.Err)
			require.Equal(testingT, testBaseURL+testDashboardRoute, outcome.FinalURL)
			require.Equal(testingT, testCase.expectedInteractions, browser.recorded())
		})
	}
}

func TestLoginWithMissingFieldTouchesNothing(testingT *testing.T) {
	browser := newFakeBrowser(map[string]string{authflow.RouteLogin: testNoSecretMarkup})

	outcome := newTestAuthenticator(testingT, browser).Login(context.Background(), testAdminCredentials)

	require.False(testingT, outcome.Succeeded)
	require.Equal(testingT, locator.FieldLoginSecret, outcome.MissingField)
	require.ErrorIs(testingT, outcome.Err, locator.ErrUnresolved)
	require.ErrorIs(testingT, outcome.Err, waitpoll.ErrTimeout)
	require.Empty(testingT, browser.recorded())
}

func TestLoginFailsFastOnFieldMissingFromCatalog(testingT *testing.T) {
	browser := newFakeBrowser(map[string]string{authflow.RouteLogin: testFullLoginMarkup})
	catalog := locator.DefaultCatalog()
	delete(catalog, locator.FieldLoginSecret)
	authenticator := authflow.NewAuthenticator(browser, waitpoll.New(5*time.Second, testShortWaitPoll),
		authflow.WithCatalog(catalog),
		authflow.WithLogger(zaptest.NewLogger(testingT)),
	)

	started := time.Now()
	outcome := authenticator.Login(context.Background(), testAdminCredentials)

	require.Less(testingT, time.Since(started), time.Second)
	require.False(testingT, outcome.Succeeded)
	require.ErrorIs(testingT, outcome.Err, locator.ErrUnknownField)
	require.NotErrorIs(testingT, outcome.Err, waitpoll.ErrTimeout)
	require.Empty(testingT, browser.recorded())
	currentURL, _ := browser.CurrentURL(context.Background())
	require.Equal(testingT, testBaseURL, currentURL)
}

func TestLoginConvertsDriverFailuresIntoOutcome(testingT *testing.T) {
	errDriver := errors.New("websocket closed")

	testCases := []struct {
		name      string
		configure func(browser *fakeBrowser)
	}{
		{
			name:      "navigation failure",
			configure: func(browser *fakeBrowser) { browser.navigateErr = errDriver },
		},
		{
			name:      "typing failure",
			configure: func(browser *fakeBrowser) { browser.typeErr = errDriver },
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			browser := newFakeBrowser(map[string]string{authflow.RouteLogin: testFullLoginMarkup})
			testCase.configure(browser)

			outcome := newTestAuthenticator(testingT, browser).Login(context.Background(), testAdminCredentials)

			require.False(testingT, outcome.Succeeded)
			require.ErrorIs(testingT, outcome.Err, errDriver)
			require.Empty(testingT, outcome.MissingField)
		})
	}
}

func TestLoginSettlesOnErrorIndicator(testingT *testing.T) {
	browser := newFakeBrowser(map[string]string{authflow.RouteLogin: testInvalidMarkup})

	outcome := newTestAuthenticator(testingT, browser).Login(context.Background(), authflow.Credentials{Identifier: "wrong@example.com", Secret: "wrong"})

	require.True(testingT, outcome.Succeeded)
	require.True(testingT, outcome.Settled)
	require.True(testingT, strings.Contains(outcome.FinalURL, authflow.LoginRouteMarker))
}

func TestLoginReportsUnsettledSubmission(testingT *testing.T) {
	browser := newFakeBrowser(map[string]string{authflow.RouteLogin: testFullLoginMarkup})

	outcome := newTestAuthenticator(testingT, browser).Login(context.Background(), testAdminCredentials)

	require.True(testingT, outcome.Succeeded)
	require.False(testingT, outcome.Settled)
}

func TestLoginAs(testingT *testing.T) {
	browser := newFakeBrowser(map[string]string{
		authflow.RouteLogin: testFullLoginMarkup,
		testDashboardRoute:  testDashboardMarkup,
	})
	browser.clicks[submitExpression] = browser.goTo(testDashboardRoute)
	authenticator := newTestAuthenticator(testingT, browser)

	require.True(testingT, authenticator.LoginAs(context.Background(), authflow.RoleMasterAdmin).Succeeded)

	unknownOutcome := authenticator.LoginAs(context.Background(), authflow.RoleStaff)
	require.False(testingT, unknownOutcome.Succeeded)
	require.ErrorIs(testingT, unknownOutcome.Err, authflow.ErrUnknownAccount)
}

func TestLoginThenLogoutReturnsToLoginRoute(testingT *testing.T) {
	testCases := []struct {
		name             string
		dashboardMarkup  string
		logoutExpression string
	}{
		{name: "logout button", dashboardMarkup: testDashboardMarkup, logoutExpression: logoutXPath},
		{name: "sign out link", dashboardMarkup: testSignOutMarkup, logoutExpression: signOutLinkXPath},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			browser := newFakeBrowser(map[string]string{
				authflow.RouteLogin: testFullLoginMarkup,
				testDashboardRoute:  testCase.dashboardMarkup,
			})
			browser.clicks[submitExpression] = browser.goTo(testDashboardRoute)
			browser.clicks[testCase.logoutExpression] = browser.goTo(authflow.RouteLogin)
			authenticator := newTestAuthenticator(testingT, browser)

			require.True(testingT, authenticator.Login(context.Background(), testAdminCredentials).Succeeded)
			require.NoError(testingT, authenticator.Logout(context.Background()))

			onLogin, locationErr := authenticator.IsOnLoginRoute(context.Background())
			require.NoError(testingT, locationErr)
			require.True(testingT, onLogin)
			require.Contains(testingT, browser.recorded(), "click:"+testCase.logoutExpression)
		})
	}
}

func TestLogoutTimesOut(testingT *testing.T) {
	testCases := []struct {
		name                string
		dashboardMarkup     string
		expectedDescription string
	}{
		{name: "no logout control", dashboardMarkup: testNoControlMarkup, expectedDescription: "clickable logout control"},
		{name: "url never changes", dashboardMarkup: testDashboardMarkup, expectedDescription: "url contains login marker"},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			browser := newFakeBrowser(map[string]string{testDashboardRoute: testCase.dashboardMarkup})
			require.NoError(testingT, browser.Navigate(context.Background(), testDashboardRoute))

			logoutErr := newTestAuthenticator(testingT, browser).Logout(context.Background())

			require.ErrorIs(testingT, logoutErr, waitpoll.ErrTimeout)
			var timeoutErr *waitpoll.TimeoutError
			require.ErrorAs(testingT, logoutErr, &timeoutErr)
			require.Equal(testingT, testCase.expectedDescription, timeoutErr.Description)
		})
	}
}

func TestCredentialsNeverPrintSecret(testingT *testing.T) {
	rendered := []string{
		testAdminCredentials.String(),
		fmt.Sprintf("%v", testAdminCredentials),
		fmt.Sprintf("%+v", testAdminCredentials),
		fmt.Sprintf("%#v", testAdminCredentials),
	}
	for _, text := range rendered {
		require.Contains(testingT, text, testAdminIdentifier)
		require.NotContains(testingT, text, testAdminSecret)
	}
}
