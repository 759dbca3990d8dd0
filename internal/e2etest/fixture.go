package e2etest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/browsersession"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/config"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	browserSkipReason          = "headless browser not available"
	browserSkipMessageFormat   = "%s: %v"
	artifactDateLayout         = "2006-01-02"
	artifactDirectoryMode      = 0o755
	screenshotExtension        = ".png"
	failureScreenshotName      = "failure"
	unnamedTest                = "unnamed"
	cleanupTimeout             = 15 * time.Second
	logEventFixtureTeardown    = "fixture_teardown"
	logEventFailureScreenshot  = "failure_screenshot"
	logEventConsoleTranscript  = "browser_console_transcript"
	logEventExceptionsRecorded = "browser_exceptions_recorded"
	logFieldTest               = "test"
	logFieldPath               = "path"
	logFieldFailed             = "failed"
	logFieldMessages           = "messages"
)

// Fixture is one test's browser session plus the helpers that drive it.
// Create it with NewFixture; it is torn down by the test's Cleanup.
type Fixture struct {
	testingT      testing.TB
	environment   *Environment
	session       *browsersession.Session
	authenticator *authflow.Authenticator
	logger        *zap.Logger
}

// NewFixture opens a browser session for testingT. The test is skipped when
// no browser executable can be located and fails when a located browser
// cannot start. The session is closed when the test ends, after a failure
// screenshot has been written when enabled.
func (environment *Environment) NewFixture(testingT testing.TB) *Fixture {
	testingT.Helper()
	if environment.isClosed() {
		testingT.Fatalf("%v", ErrEnvironmentClosed)
	}

	logger := zaptest.NewLogger(testingT).With(zap.String(logFieldTest, testingT.Name()))
	configuration := environment.Config()

	session, openErr := browsersession.Open(context.Background(), configuration, logger)
	if errors.Is(openErr, browsersession.ErrBrowserNotFound) {
		testingT.Skipf(browserSkipMessageFormat, browserSkipReason, openErr)
	}
	require.NoError(testingT, openErr)

	fixture := &Fixture{
		testingT:    testingT,
		environment: environment,
		session:     session,
		logger:      logger,
		authenticator: authflow.NewAuthenticator(session, session.Waiter(),
			authflow.WithCatalog(environment.Catalog()),
			authflow.WithLogger(logger),
			authflow.WithAccount(authflow.RoleMasterAdmin, credentialsFor(configuration.Admin)),
			authflow.WithAccount(authflow.RoleCollectionAgent, credentialsFor(configuration.Agent)),
		),
	}
	testingT.Cleanup(fixture.teardown)
	return fixture
}

func credentialsFor(account config.Account) authflow.Credentials {
	return authflow.Credentials{Identifier: account.Identifier, Secret: account.Secret}
}

// Cleanup runs after the test body has returned, panicked, or called FailNow.
func (fixture *Fixture) teardown() {
	failed := fixture.testingT.Failed()
	cleanupContext, cancelCleanup := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancelCleanup()

	if failed && fixture.environment.Config().ScreenshotOnFailure && !fixture.session.Closed() {
		if screenshotPath, screenshotErr := fixture.writeScreenshot(cleanupContext, failureScreenshotName); screenshotErr != nil {
			fixture.logger.Warn(logEventFailureScreenshot, zap.Error(screenshotErr))
		} else {
			fixture.logger.Info(logEventFailureScreenshot, zap.String(logFieldPath, screenshotPath))
		}
	}

	if failed {
		if messages := fixture.session.ConsoleMessages(); len(messages) > 0 {
			fixture.logger.Info(logEventConsoleTranscript, zap.Strings(logFieldMessages, messages))
		}
	}
	if exceptions := fixture.session.PageExceptions(); len(exceptions) > 0 {
		fixture.logger.Warn(logEventExceptionsRecorded, zap.Strings(logFieldMessages, exceptions))
	}

	closeErr := fixture.session.Close()
	fixture.logger.Debug(logEventFixtureTeardown, zap.Bool(logFieldFailed, failed), zap.Error(closeErr))
	if closeErr != nil {
		fixture.testingT.Errorf("close browser session: %v", closeErr)
	}
}

// Session exposes the underlying browser session.
func (fixture *Fixture) Session() *browsersession.Session {
	return fixture.session
}

// Authenticator exposes the login helper bound to this session.
func (fixture *Fixture) Authenticator() *authflow.Authenticator {
	return fixture.authenticator
}

// Config returns the suite configuration the session was opened with.
func (fixture *Fixture) Config() config.SuiteConfig {
	return fixture.environment.Config()
}

// Catalog returns the selector catalog of the run.
func (fixture *Fixture) Catalog() locator.Catalog {
	return fixture.environment.Catalog()
}

// Logger returns the per-test logger.
func (fixture *Fixture) Logger() *zap.Logger {
	return fixture.logger
}

// Waiter returns the session's bounded wait.
func (fixture *Fixture) Waiter() waitpoll.Waiter {
	return fixture.session.Waiter()
}

// Context is canceled when the test body finishes.
func (fixture *Fixture) Context() context.Context {
	return fixture.testingT.Context()
}

// ArtifactsDirectory returns <results>/<UTC date>/<test name>/, creating it.
func (fixture *Fixture) ArtifactsDirectory() (string, error) {
	return artifactsDirectory(fixture.Config().ResultsDirectory, fixture.testingT.Name(), time.Now())
}

// Screenshot writes <name>.png into the artifacts directory and returns its path.
func (fixture *Fixture) Screenshot(name string) string {
	fixture.testingT.Helper()
	screenshotPath, screenshotErr := fixture.writeScreenshot(fixture.Context(), name)
	require.NoError(fixture.testingT, screenshotErr)
	return screenshotPath
}

func (fixture *Fixture) writeScreenshot(ctx context.Context, name string) (string, error) {
	directory, directoryErr := fixture.ArtifactsDirectory()
	if directoryErr != nil {
		return "", directoryErr
	}
	screenshotPath := filepath.Join(directory, sanitizeTestName(name)+screenshotExtension)
	if captureErr := fixture.session.CaptureScreenshot(ctx, screenshotPath); captureErr != nil {
		return "", captureErr
	}
	return screenshotPath, nil
}

func artifactsDirectory(resultsDirectory string, testName string, moment time.Time) (string, error) {
	rootDirectory, rootErr := resolveResultsRoot(resultsDirectory)
	if rootErr != nil {
		return "", rootErr
	}
	directory := filepath.Join(rootDirectory, moment.UTC().Format(artifactDateLayout), sanitizeTestName(testName))
	if mkdirErr := os.MkdirAll(directory, artifactDirectoryMode); mkdirErr != nil {
		return "", fmt.Errorf("create artifacts directory %s: %w", directory, mkdirErr)
	}
	return directory, nil
}

// Relative results directories are anchored at the module root so every
// package of the suite writes to the same tree.
func resolveResultsRoot(resultsDirectory string) (string, error) {
	if filepath.IsAbs(resultsDirectory) {
		return resultsDirectory, nil
	}
	moduleRoot, rootErr := resolveModuleRoot()
	if rootErr != nil {
		return "", rootErr
	}
	return filepath.Join(moduleRoot, resultsDirectory), nil
}

func resolveModuleRoot() (string, error) {
	if goModPath := strings.TrimSpace(os.Getenv("GOMOD")); goModPath != "" && goModPath != os.DevNull {
		return filepath.Dir(goModPath), nil
	}
	directory, workingErr := os.Getwd()
	if workingErr != nil {
		return "", workingErr
	}
	for {
		if _, statErr := os.Stat(filepath.Join(directory, "go.mod")); statErr == nil {
			return directory, nil
		}
		parent := filepath.Dir(directory)
		if parent == directory {
			return "", fmt.Errorf("go.mod not found above %s", directory)
		}
		directory = parent
	}
}

func sanitizeTestName(name string) string {
	if name == "" {
		return unnamedTest
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for _, character := range name {
		if (character >= 'a' && character <= 'z') ||
			(character >= 'A' && character <= 'Z') ||
			(character >= '0' && character <= '9') ||
			character == '-' || character == '_' {
			builder.WriteRune(character)
			continue
		}
		builder.WriteRune('_')
	}
	return builder.String()
}
