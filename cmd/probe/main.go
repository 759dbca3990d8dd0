package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/browsersession"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/config"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/e2etest"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	commandUseName               = "probe"
	commandShortDescription      = "Inspect what the browser sees on the portal"
	commandLongDescription       = "Open a browser session against the portal, report URL, title and page source size, and write a screenshot"
	subcommandApp                = "app"
	subcommandLoginPage          = "login-page"
	subcommandAfterLogin         = "after-login"
	subcommandAppShort           = "Load the application root"
	subcommandLoginPageShort     = "Load the login page and report which login fields resolve"
	subcommandAfterLoginShort    = "Sign in as the admin account and report the landing page"
	flagNameBaseURL              = "base-url"
	flagNameTarget               = "target"
	flagNameHeadless             = "headless"
	flagNameResultsDirectory     = "results-dir"
	flagNameCatalogPath          = "catalog"
	flagNameBrowserPath          = "browser-path"
	flagNameAdminEmail           = "admin-email"
	flagNameAdminPassword        = "admin-password"
	flagUsageBaseURL             = "portal origin (E2E_BASE_URL)"
	flagUsageTarget              = "remote drives base-url, stub starts the reference portal in process (E2E_TARGET)"
	flagUsageHeadless            = "run the browser without a window (E2E_HEADLESS)"
	flagUsageResultsDirectory    = "directory that receives screenshots (E2E_RESULTS_DIR)"
	flagUsageCatalogPath         = "selector catalog overrides (E2E_CATALOG_PATH)"
	flagUsageBrowserPath         = "browser executable (E2E_BROWSER_PATH)"
	flagUsageAdminEmail          = "admin account for after-login (E2E_ADMIN_EMAIL)"
	flagUsageAdminPassword       = "admin password for after-login (E2E_ADMIN_PASSWORD)"
	flagNotDefinedMessage        = "flag %s not defined"
	commandInitializationFailure = "failed to configure command"
	unexpectedArgumentsMessage   = "unexpected command arguments"
	errorMessageEnvironment      = "prepare target"
	errorMessageOpenBrowser      = "open browser"
	errorMessageInspect          = "inspect page"
	routeRoot                    = "/"
	probeArtifactsDirectory      = "probe"
	artifactDateLayout           = "2006-01-02"
	screenshotExtension          = ".png"
	reportLineFormat             = "%-14s %v\n"
	reportFieldFormat            = "field %-22s %s\n"
	reportLabelURL               = "url:"
	reportLabelTitle             = "title:"
	reportLabelSourceLength      = "source_length:"
	reportLabelScreenshot        = "screenshot:"
	reportLabelLoginSubmitted    = "submitted:"
	reportLabelLoginSettled      = "settled:"
	reportLabelMissingField      = "missing_field:"
	reportLabelError             = "error:"
	reportFieldMissing           = "missing"
	logEventProbeReport          = "probe_report"
	logFieldSubcommand           = "subcommand"
	logFieldURL                  = "url"
	logFieldScreenshot           = "screenshot"
)

// Browser is the subset of a browser session the probe drives.
type Browser interface {
	authflow.Browser
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	CaptureScreenshot(ctx context.Context, path string) error
	Close() error
}

// BrowserOpener opens a Browser for configuration.
type BrowserOpener func(ctx context.Context, configuration config.SuiteConfig, logger *zap.Logger) (Browser, error)

// ProbeApplication constructs and executes the probe command tree.
type ProbeApplication struct {
	configurationLoader *viper.Viper
	browserOpener       BrowserOpener
	logger              *zap.Logger
	clock               func() time.Time
}

// NewProbeApplication creates a ProbeApplication with default dependencies.
func NewProbeApplication() *ProbeApplication {
	return &ProbeApplication{
		configurationLoader: config.NewLoader(),
		browserOpener:       openBrowserSession,
		clock:               time.Now,
	}
}

// WithBrowserOpener overrides the browser dependency.
func (application *ProbeApplication) WithBrowserOpener(browserOpener BrowserOpener) *ProbeApplication {
	application.browserOpener = browserOpener
	return application
}

// WithLogger overrides the production logger.
func (application *ProbeApplication) WithLogger(logger *zap.Logger) *ProbeApplication {
	application.logger = logger
	return application
}

// WithClock overrides the time source used to date the artifacts directory.
func (application *ProbeApplication) WithClock(clock func() time.Time) *ProbeApplication {
	application.clock = clock
	return application
}

// Command builds the Cobra command tree for the probe.
func (application *ProbeApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:           commandUseName,
		Short:         commandShortDescription,
		Long:          commandLongDescription,
		SilenceErrors: true,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	rootCommand.AddCommand(
		application.subcommand(subcommandApp, subcommandAppShort, application.inspectApp),
		application.subcommand(subcommandLoginPage, subcommandLoginPageShort, application.inspectLoginPage),
		application.subcommand(subcommandAfterLogin, subcommandAfterLoginShort, application.inspectAfterLogin),
	)
	return rootCommand, nil
}

func (application *ProbeApplication) configureCommand(command *cobra.Command) error {
	defaults := config.Default()
	commandFlags := command.PersistentFlags()
	commandFlags.String(flagNameBaseURL, defaults.BaseURL, flagUsageBaseURL)
	commandFlags.String(flagNameTarget, string(defaults.Target), flagUsageTarget)
	commandFlags.Bool(flagNameHeadless, defaults.Headless, flagUsageHeadless)
	commandFlags.String(flagNameResultsDirectory, defaults.ResultsDirectory, flagUsageResultsDirectory)
	commandFlags.String(flagNameCatalogPath, "", flagUsageCatalogPath)
	commandFlags.String(flagNameBrowserPath, "", flagUsageBrowserPath)
	commandFlags.String(flagNameAdminEmail, defaults.Admin.Identifier, flagUsageAdminEmail)
	commandFlags.String(flagNameAdminPassword, defaults.Admin.Secret, flagUsageAdminPassword)

	bindings := []struct {
		configurationKey string
		flagName         string
	}{
		{configurationKey: config.KeyBaseURL, flagName: flagNameBaseURL},
		{configurationKey: config.KeyTarget, flagName: flagNameTarget},
		{configurationKey: config.KeyHeadless, flagName: flagNameHeadless},
		{configurationKey: config.KeyResultsDirectory, flagName: flagNameResultsDirectory},
		{configurationKey: config.KeyCatalogPath, flagName: flagNameCatalogPath},
		{configurationKey: config.KeyBrowserPath, flagName: flagNameBrowserPath},
		{configurationKey: config.KeyAdminEmail, flagName: flagNameAdminEmail},
		{configurationKey: config.KeyAdminPassword, flagName: flagNameAdminPassword},
	}
	for _, binding := range bindings {
		if bindErr := application.bindFlag(commandFlags, binding.configurationKey, binding.flagName); bindErr != nil {
			return bindErr
		}
	}
	return nil
}

// Flags win when set; otherwise viper falls back to E2E_* and then the defaults.
func (application *ProbeApplication) bindFlag(flagSet *pflag.FlagSet, configurationKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}
	return application.configurationLoader.BindPFlag(configurationKey, flag)
}

type inspection func(ctx context.Context, probe *probeRun) error

func (application *ProbeApplication) subcommand(name string, short string, inspect inspection) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) > 0 {
				return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
			}
			return application.run(command.Context(), command.OutOrStdout(), name, inspect)
		},
	}
}

// probeRun is one subcommand invocation: the browser, its configuration and
// the report destination.
type probeRun struct {
	name          string
	configuration config.SuiteConfig
	catalog       locator.Catalog
	browser       Browser
	waiter        waitpoll.Waiter
	output        io.Writer
	logger        *zap.Logger
	moment        time.Time
}

func (application *ProbeApplication) run(ctx context.Context, output io.Writer, name string, inspect inspection) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := application.logger
	if logger == nil {
		productionLogger, loggerErr := zap.NewProduction()
		if loggerErr != nil {
			return fmt.Errorf("logger: %w", loggerErr)
		}
		defer func() {
			_ = productionLogger.Sync()
		}()
		logger = productionLogger
	}

	configuration, configErr := config.FromLoader(application.configurationLoader)
	if configErr != nil {
		return configErr
	}

	if configuration.Target == config.TargetStub {
		gin.SetMode(gin.ReleaseMode)
	}
	environment, environmentErr := e2etest.NewEnvironment(ctx, configuration, logger)
	if environmentErr != nil {
		return fmt.Errorf("%s: %w", errorMessageEnvironment, environmentErr)
	}
	defer func() {
		_ = environment.Close()
	}()
	configuration = environment.Config()

	browser, openErr := application.browserOpener(ctx, configuration, logger)
	if openErr != nil {
		return fmt.Errorf("%s: %w", errorMessageOpenBrowser, openErr)
	}
	defer func() {
		_ = browser.Close()
	}()

	probe := &probeRun{
		name:          name,
		configuration: configuration,
		catalog:       environment.Catalog(),
		browser:       browser,
		waiter:        waitpoll.New(configuration.WaitTimeout, configuration.PollInterval),
		output:        output,
		logger:        logger.With(zap.String(logFieldSubcommand, name)),
		moment:        application.clock(),
	}
	if inspectErr := inspect(ctx, probe); inspectErr != nil {
		return fmt.Errorf("%s: %w", errorMessageInspect, inspectErr)
	}
	return nil
}

func (application *ProbeApplication) inspectApp(ctx context.Context, probe *probeRun) error {
	if navigateErr := probe.open(ctx, routeRoot); navigateErr != nil {
		return navigateErr
	}
	return probe.report(ctx)
}

func (application *ProbeApplication) inspectLoginPage(ctx context.Context, probe *probeRun) error {
	if navigateErr := probe.open(ctx, authflow.RouteLogin); navigateErr != nil {
		return navigateErr
	}
	if reportErr := probe.report(ctx); reportErr != nil {
		return reportErr
	}
	return probe.reportFields(ctx, locator.FieldLoginIdentifier, locator.FieldLoginSecret, locator.FieldLoginSubmit, locator.FieldErrorIndicator)
}

func (application *ProbeApplication) inspectAfterLogin(ctx context.Context, probe *probeRun) error {
	admin := probe.configuration.Admin
	authenticator := authflow.NewAuthenticator(probe.browser, probe.waiter,
		authflow.WithCatalog(probe.catalog),
		authflow.WithLogger(probe.logger),
	)
	outcome := authenticator.Login(ctx, authflow.Credentials{Identifier: admin.Identifier, Secret: admin.Secret})
	probe.line(reportLabelLoginSubmitted, outcome.Succeeded)
	probe.line(reportLabelLoginSettled, outcome.Settled)
	if outcome.MissingField != "" {
		probe.line(reportLabelMissingField, outcome.MissingField)
	}
	if outcome.Err != nil {
		probe.line(reportLabelError, outcome.Err)
	}
	if reportErr := probe.report(ctx); reportErr != nil {
		return reportErr
	}
	return probe.reportFields(ctx, locator.FieldLogout, locator.FieldSuccessIndicator, locator.FieldErrorIndicator)
}

func (probe *probeRun) open(ctx context.Context, route string) error {
	if navigateErr := probe.browser.Navigate(ctx, route); navigateErr != nil {
		return navigateErr
	}
	return probe.browser.WaitForDocumentReady(ctx)
}

// report prints URL, title and page source length, then writes the screenshot.
func (probe *probeRun) report(ctx context.Context) error {
	currentURL, locationErr := probe.browser.CurrentURL(ctx)
	if locationErr != nil {
		return locationErr
	}
	title, titleErr := probe.browser.Title(ctx)
	if titleErr != nil {
		return titleErr
	}
	source, sourceErr := probe.browser.PageSource(ctx)
	if sourceErr != nil {
		return sourceErr
	}
	screenshotPath := probe.screenshotPath()
	if captureErr := probe.browser.CaptureScreenshot(ctx, screenshotPath); captureErr != nil {
		return captureErr
	}

	probe.line(reportLabelURL, currentURL)
	probe.line(reportLabelTitle, title)
	probe.line(reportLabelSourceLength, len(source))
	probe.line(reportLabelScreenshot, screenshotPath)
	probe.logger.Info(logEventProbeReport, zap.String(logFieldURL, currentURL), zap.String(logFieldScreenshot, screenshotPath))
	return nil
}

// reportFields resolves fields against a snapshot of the page source, so the
// report reflects the markup as served plus whatever scripts rendered so far.
func (probe *probeRun) reportFields(ctx context.Context, fields ...string) error {
	source, sourceErr := probe.browser.PageSource(ctx)
	if sourceErr != nil {
		return sourceErr
	}
	finder, finderErr := locator.NewDocumentFinderFromString(source)
	if finderErr != nil {
		return finderErr
	}
	for _, field := range fields {
		candidates, lookupErr := probe.catalog.Candidates(field)
		if lookupErr != nil {
			return lookupErr
		}
		resolution, resolveErr := locator.Resolve(ctx, finder, field, candidates)
		if resolveErr != nil {
			_, _ = fmt.Fprintf(probe.output, reportFieldFormat, field, reportFieldMissing)
			continue
		}
		_, _ = fmt.Fprintf(probe.output, reportFieldFormat, field, resolution.Strategy.String())
	}
	return nil
}

func (probe *probeRun) screenshotPath() string {
	return filepath.Join(probe.configuration.ResultsDirectory, probe.moment.UTC().Format(artifactDateLayout), probeArtifactsDirectory, probe.name+screenshotExtension)
}

func (probe *probeRun) line(label string, value any) {
	_, _ = fmt.Fprintf(probe.output, reportLineFormat, label, value)
}

func openBrowserSession(ctx context.Context, configuration config.SuiteConfig, logger *zap.Logger) (Browser, error) {
	session, openErr := browsersession.Open(ctx, configuration, logger)
	if openErr != nil {
		return nil, openErr
	}
	return session, nil
}

func main() {
	application := NewProbeApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandUseName, executeErr)
		os.Exit(1)
	}
}
