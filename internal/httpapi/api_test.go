package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

type apiUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type apiLoginResponse struct {
	Token string  `json:"token"`
	User  apiUser `json:"user"`
	Error string  `json:"error"`
}

func (harness *portalHarness) postJSON(path string, payload any, headers map[string]string) *http.Response {
	harness.testingT.Helper()
	encoded, encodeErr := json.Marshal(payload)
	require.NoError(harness.testingT, encodeErr)
	request, requestErr := http.NewRequest(http.MethodPost, harness.server.URL+path, bytes.NewReader(encoded))
	require.NoError(harness.testingT, requestErr)
	request.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	response, doErr := http.DefaultClient.Do(request)
	require.NoError(harness.testingT, doErr)
	harness.testingT.Cleanup(func() { _ = response.Body.Close() })
	return response
}

func decodeJSON[T any](testingT *testing.T, response *http.Response) T {
	testingT.Helper()
	var decoded T
	require.NoError(testingT, json.NewDecoder(response.Body).Decode(&decoded))
	return decoded
}

func TestAPILoginIssuesUsableToken(t *testing.T) {
	harness := newPortalHarness(t)

	response := harness.postJSON(httpapi.RouteAPIPrefix+httpapi.RouteAPIAuthLogin, map[string]string{
		"email":    storage.DefaultAdminEmail,
		"password": storage.DefaultSeedPassword,
	}, map[string]string{"Origin": httpapi.DefaultAllowedOrigin})
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, httpapi.DefaultAllowedOrigin, response.Header.Get("Access-Control-Allow-Origin"))

	login := decodeJSON[apiLoginResponse](t, response)
	require.NotEmpty(t, login.Token)
	require.Equal(t, model.RoleMasterAdmin, login.User.Role)
	require.Equal(t, storage.DefaultAdminEmail, login.User.Email)

	request, requestErr := http.NewRequest(http.MethodGet, harness.server.URL+httpapi.RouteAPIPrefix+httpapi.RouteAPIAuthMe, nil)
	require.NoError(t, requestErr)
	request.Header.Set("Authorization", "Token "+login.Token)
	meResponse, meErr := http.DefaultClient.Do(request)
	require.NoError(t, meErr)
	defer meResponse.Body.Close()
	require.Equal(t, http.StatusOK, meResponse.StatusCode)
	require.Equal(t, login.User.ID, decodeJSON[apiUser](t, meResponse).ID)
}

func TestAPILoginRejectsInvalidCredentials(t *testing.T) {
	harness := newPortalHarness(t)

	response := harness.postJSON(httpapi.RouteAPIPrefix+httpapi.RouteAPIAuthLogin, map[string]string{
		"email":    storage.DefaultAdminEmail,
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, response.StatusCode)
	require.Equal(t, "Invalid credentials", decodeJSON[apiLoginResponse](t, response).Error)
}

func TestAPIMeRequiresCredential(t *testing.T) {
	testCases := []struct {
		name          string
		authorization string
	}{
		{name: "missing header"},
		{name: "unknown token", authorization: "Token deadbeef"},
		{name: "wrong scheme", authorization: "Bearer deadbeef"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			harness := newPortalHarness(testingT)
			request, requestErr := http.NewRequest(http.MethodGet, harness.server.URL+httpapi.RouteAPIPrefix+httpapi.RouteAPIAuthMe, nil)
			require.NoError(testingT, requestErr)
			if testCase.authorization != "" {
				request.Header.Set("Authorization", testCase.authorization)
			}
			response, doErr := http.DefaultClient.Do(request)
			require.NoError(testingT, doErr)
			defer response.Body.Close()
			require.Equal(testingT, http.StatusUnauthorized, response.StatusCode)
		})
	}
}

func TestAPIMeAcceptsBrowserSession(t *testing.T) {
	harness := newPortalHarness(t)
	harness.loginAsAgent()

	response, requestErr := harness.client.Get(harness.server.URL + httpapi.RouteAPIPrefix + httpapi.RouteAPIAuthMe)
	require.NoError(t, requestErr)
	defer response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, storage.DefaultAgentEmail, decodeJSON[apiUser](t, response).Email)
}

func TestAPISignup(t *testing.T) {
	testCases := []struct {
		name           string
		payload        map[string]string
		expectedStatus int
	}{
		{
			name:           "created",
			payload:        map[string]string{"username": "apiuser", "email": "apiuser@example.com", "password": "password123", "role": model.RoleStaff},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "mismatched confirmation",
			payload:        map[string]string{"username": "apiuser", "email": "apiuser@example.com", "password": "password123", "confirmPassword": "other", "role": model.RoleStaff},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate",
			payload:        map[string]string{"username": "admin", "email": storage.DefaultAdminEmail, "password": "password123", "role": model.RoleStaff},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			harness := newPortalHarness(testingT)
			response := harness.postJSON(httpapi.RouteAPIPrefix+httpapi.RouteAPIAuthSignup, testCase.payload, nil)
			require.Equal(testingT, testCase.expectedStatus, response.StatusCode)
		})
	}
}
