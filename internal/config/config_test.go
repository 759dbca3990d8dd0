package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/config"
)

const (
	testEnvironmentBaseURL     = "E2E_BASE_URL"
	testEnvironmentTarget      = "E2E_TARGET"
	testEnvironmentWaitTimeout = "E2E_WAIT_TIMEOUT"
	testEnvironmentAdminEmail  = "E2E_ADMIN_EMAIL"
	testEnvironmentWindowWidth = "E2E_WINDOW_WIDTH"
	testEnvironmentLogLevel    = "E2E_LOG_LEVEL"
	testOverriddenBaseURL      = "https://portal.example.com/"
	testOverriddenAdminEmail   = "owner@example.com"
)

func TestLoadUsesDefaults(testingT *testing.T) {
	configuration, loadErr := config.Load()
	require.NoError(testingT, loadErr)

	require.Equal(testingT, config.DefaultBaseURL, configuration.BaseURL)
	require.Equal(testingT, config.TargetRemote, configuration.Target)
	require.True(testingT, configuration.Headless)
	require.Equal(testingT, 10*time.Second, configuration.WaitTimeout)
	require.Equal(testingT, config.DefaultWindowWidth, configuration.WindowWidth)
	require.Equal(testingT, config.DefaultAdminEmail, configuration.Admin.Identifier)
	require.Equal(testingT, config.DefaultAccountPassword, configuration.Agent.Secret)
	level, levelErr := configuration.LoggerLevel()
	require.NoError(testingT, levelErr)
	require.Equal(testingT, zapcore.InfoLevel, level)
}

func TestLoadReadsEnvironmentOverrides(testingT *testing.T) {
	testingT.Setenv(testEnvironmentBaseURL, testOverriddenBaseURL)
	testingT.Setenv(testEnvironmentTarget, " STUB ")
	testingT.Setenv(testEnvironmentWaitTimeout, "3s")
	testingT.Setenv(testEnvironmentAdminEmail, testOverriddenAdminEmail)
	testingT.Setenv(testEnvironmentLogLevel, " DEBUG ")

	configuration, loadErr := config.Load()
	require.NoError(testingT, loadErr)

	require.Equal(testingT, "https://portal.example.com", configuration.BaseURL)
	require.Equal(testingT, config.TargetStub, configuration.Target)
	require.Equal(testingT, 3*time.Second, configuration.WaitTimeout)
	require.Equal(testingT, testOverriddenAdminEmail, configuration.Admin.Identifier)
	level, levelErr := configuration.LoggerLevel()
	require.NoError(testingT, levelErr)
	require.Equal(testingT, zapcore.DebugLevel, level)
}

func TestLoadRejectsInvalidSettings(testingT *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		expectedError error
		expectedText  string
	}{
		{
			name:          "unknown target",
			environment:   map[string]string{testEnvironmentTarget: "staging"},
			expectedError: config.ErrInvalidTarget,
			expectedText:  "staging",
		},
		{
			name:          "relative base url",
			environment:   map[string]string{testEnvironmentBaseURL: "localhost:5173"},
			expectedError: config.ErrInvalidConfiguration,
			expectedText:  "base url",
		},
		{
			name:          "zero window width",
			environment:   map[string]string{testEnvironmentWindowWidth: "0"},
			expectedError: config.ErrInvalidConfiguration,
			expectedText:  "window",
		},
		{
			name:          "unknown log level",
			environment:   map[string]string{testEnvironmentLogLevel: "chatty"},
			expectedError: config.ErrInvalidConfiguration,
			expectedText:  "log level",
		},
		{
			name:          "interval longer than timeout",
			environment:   map[string]string{testEnvironmentWaitTimeout: "100ms"},
			expectedError: config.ErrInvalidConfiguration,
			expectedText:  "poll interval",
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			for key, value := range testCase.environment {
				testingT.Setenv(key, value)
			}
			_, loadErr := config.Load()
			require.ErrorIs(testingT, loadErr, testCase.expectedError)
			require.Contains(testingT, loadErr.Error(), testCase.expectedText)
		})
	}
}

func TestResolveURL(testingT *testing.T) {
	testCases := []struct {
		name     string
		baseURL  string
		route    string
		expected string
	}{
		{name: "root relative route", baseURL: config.DefaultBaseURL, route: "/login", expected: "http://localhost:5173/login"},
		{name: "bare route", baseURL: config.DefaultBaseURL, route: "admin/users", expected: "http://localhost:5173/admin/users"},
		{name: "root", baseURL: config.DefaultBaseURL, route: "/", expected: "http://localhost:5173/"},
		{name: "query preserved", baseURL: config.DefaultBaseURL, route: "/admin/audit?user=1", expected: "http://localhost:5173/admin/audit?user=1"},
		{name: "base with path", baseURL: "http://127.0.0.1:8080/portal", route: "/signup", expected: "http://127.0.0.1:8080/portal/signup"},
		{name: "absolute route untouched", baseURL: config.DefaultBaseURL, route: "http://other.example.com/x", expected: "http://other.example.com/x"},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			configuration := config.Default().WithBaseURL(testCase.baseURL)
			resolved, resolveErr := configuration.ResolveURL(testCase.route)
			require.NoError(testingT, resolveErr)
			require.Equal(testingT, testCase.expected, resolved)
		})
	}
}

func TestParseTargetDefaultsToRemote(testingT *testing.T) {
	target, parseErr := config.ParseTarget("")
	require.NoError(testingT, parseErr)
	require.Equal(testingT, config.TargetRemote, target)
}
