package httpapi_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/testutil"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

type portalHarness struct {
	testingT *testing.T
	database *gorm.DB
	server   *httptest.Server
	client   *http.Client
}

type portalPage struct {
	status   int
	finalURL *url.URL
	body     string
	document *goquery.Document
}

func newPortalHarness(testingT *testing.T) *portalHarness {
	testingT.Helper()
	gin.SetMode(gin.TestMode)

	database := testutil.NewSQLiteTestDatabase(testingT).OpenSeededDatabase(testingT)
	router, routerErr := httpapi.NewRouter(httpapi.PortalConfig{
		Database:      database,
		Logger:        zaptest.NewLogger(testingT),
		SessionSecret: []byte(testSessionSecret),
	})
	require.NoError(testingT, routerErr)

	server := httptest.NewServer(router)
	testingT.Cleanup(server.Close)

	harness := &portalHarness{testingT: testingT, database: database, server: server}
	harness.client = harness.newClient()
	return harness
}

func (harness *portalHarness) newClient() *http.Client {
	jar, jarErr := cookiejar.New(nil)
	require.NoError(harness.testingT, jarErr)
	return &http.Client{Jar: jar}
}

func (harness *portalHarness) get(path string) portalPage {
	harness.testingT.Helper()
	response, requestErr := harness.client.Get(harness.server.URL + path)
	require.NoError(harness.testingT, requestErr)
	return harness.readPage(response)
}

func (harness *portalHarness) post(path string, form url.Values) portalPage {
	harness.testingT.Helper()
	response, requestErr := harness.client.PostForm(harness.server.URL+path, form)
	require.NoError(harness.testingT, requestErr)
	return harness.readPage(response)
}

func (harness *portalHarness) readPage(response *http.Response) portalPage {
	harness.testingT.Helper()
	defer response.Body.Close()
	payload, readErr := io.ReadAll(response.Body)
	require.NoError(harness.testingT, readErr)
	document, parseErr := goquery.NewDocumentFromReader(strings.NewReader(string(payload)))
	require.NoError(harness.testingT, parseErr)
	return portalPage{
		status:   response.StatusCode,
		finalURL: response.Request.URL,
		body:     string(payload),
		document: document,
	}
}

func (harness *portalHarness) login(email string, password string) portalPage {
	harness.testingT.Helper()
	return harness.post(httpapi.RouteLogin, url.Values{"email": {email}, "password": {password}})
}

func (harness *portalHarness) loginAsAdmin() portalPage {
	harness.testingT.Helper()
	page := harness.login(storage.DefaultAdminEmail, storage.DefaultSeedPassword)
	require.Equal(harness.testingT, httpapi.RouteAdminDashboard, page.finalURL.Path)
	return page
}

func (harness *portalHarness) loginAsAgent() portalPage {
	harness.testingT.Helper()
	page := harness.login(storage.DefaultAgentEmail, storage.DefaultSeedPassword)
	require.Equal(harness.testingT, httpapi.RouteAgentDashboard, page.finalURL.Path)
	return page
}

func (page portalPage) notice() string {
	return strings.TrimSpace(page.document.Find(".success-msg").Text())
}

func (page portalPage) errorMessage() string {
	return strings.TrimSpace(page.document.Find(".error-msg").First().Text())
}
