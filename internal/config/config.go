package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	// EnvironmentPrefix namespaces every suite environment variable.
	EnvironmentPrefix = "E2E"

	KeyBaseURL             = "base_url"
	KeyTarget              = "target"
	KeyHeadless            = "headless"
	KeyWindowWidth         = "window_width"
	KeyWindowHeight        = "window_height"
	KeyWaitTimeout         = "wait_timeout"
	KeyPollInterval        = "poll_interval"
	KeyLaunchTimeout       = "launch_timeout"
	KeyBrowserPath         = "browser_path"
	KeyResultsDirectory    = "results_dir"
	KeyScreenshotOnFailure = "screenshot_on_failure"
	KeyCatalogPath         = "catalog_path"
	KeyAdminEmail          = "admin_email"
	KeyAdminPassword       = "admin_password"
	KeyAgentEmail          = "agent_email"
	KeyAgentPassword       = "agent_password"
	KeyLogLevel            = "log_level"

	DefaultBaseURL             = "http://localhost:5173"
	DefaultWindowWidth         = 1920
	DefaultWindowHeight        = 1080
	DefaultWaitTimeout         = 10 * time.Second
	DefaultPollInterval        = 250 * time.Millisecond
	DefaultLaunchTimeout       = 30 * time.Second
	DefaultResultsDirectory    = "tests"
	DefaultAdminEmail          = "admin@example.com"
	DefaultAgentEmail          = "agent@example.com"
	DefaultAccountPassword     = "password123"
	DefaultLogLevel            = "info"
	errorMessageInvalidConfig  = "config: invalid configuration"
	errorMessageInvalidTarget  = "config: invalid target"
	errorMessageResolveRoute   = "config: resolve route"
	validationMessageBaseURL   = "base url must be an absolute http(s) url"
	validationMessageWindow    = "window dimensions must be positive"
	validationMessageTimeout   = "wait timeout must be positive"
	validationMessageInterval  = "poll interval must be positive and shorter than the wait timeout"
	validationMessageLaunch    = "launch timeout must be positive"
	validationMessageResults   = "results directory must not be empty"
	validationMessageLogLevel  = "log level must be one of debug, info, warn, error"
	schemeHTTP                 = "http"
	schemeHTTPS                = "https"
	routeSeparator             = "/"
	validationDetailsSeparator = "; "
)

var (
	// ErrInvalidConfiguration indicates at least one suite setting failed validation.
	ErrInvalidConfiguration = errors.New(errorMessageInvalidConfig)
	// ErrInvalidTarget indicates an unknown target mode.
	ErrInvalidTarget = errors.New(errorMessageInvalidTarget)
)

// Target selects what application the suite drives.
type Target string

const (
	// TargetRemote drives an already running application at BaseURL.
	TargetRemote Target = "remote"
	// TargetStub starts the bundled reference portal in-process.
	TargetStub Target = "stub"
)

// ParseTarget normalizes rawInput; empty input means TargetRemote.
func ParseTarget(rawInput string) (Target, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawInput))
	if normalized == "" {
		return TargetRemote, nil
	}

	target := Target(normalized)
	switch target {
	case TargetRemote, TargetStub:
		return target, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, rawInput)
	}
}

// Account is an identifier/secret pair used to sign in.
type Account struct {
	Identifier string
	Secret     string
}

// SuiteConfig captures everything a test session needs.
type SuiteConfig struct {
	BaseURL             string
	Target              Target
	Headless            bool
	WindowWidth         int
	WindowHeight        int
	WaitTimeout         time.Duration
	PollInterval        time.Duration
	LaunchTimeout       time.Duration
	BrowserPath         string
	ResultsDirectory    string
	ScreenshotOnFailure bool
	CatalogPath         string
	Admin               Account
	Agent               Account
	// LogLevel gates the run-wide logger: stub portal lifecycle and request logs.
	LogLevel            string
}

// Default returns the configuration used when nothing is overridden.
func Default() SuiteConfig {
	return SuiteConfig{
		BaseURL:             DefaultBaseURL,
		Target:              TargetRemote,
		Headless:            true,
		WindowWidth:         DefaultWindowWidth,
		WindowHeight:        DefaultWindowHeight,
		WaitTimeout:         DefaultWaitTimeout,
		PollInterval:        DefaultPollInterval,
		LaunchTimeout:       DefaultLaunchTimeout,
		ResultsDirectory:    DefaultResultsDirectory,
		ScreenshotOnFailure: true,
		Admin:               Account{Identifier: DefaultAdminEmail, Secret: DefaultAccountPassword},
		Agent:               Account{Identifier: DefaultAgentEmail, Secret: DefaultAccountPassword},
		LogLevel:            DefaultLogLevel,
	}
}

// NewLoader returns a viper instance with defaults registered and E2E_* environment binding enabled.
func NewLoader() *viper.Viper {
	defaults := Default()
	loader := viper.New()
	loader.SetEnvPrefix(EnvironmentPrefix)
	loader.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	loader.AutomaticEnv()

	loader.SetDefault(KeyBaseURL, defaults.BaseURL)
	loader.SetDefault(KeyTarget, string(defaults.Target))
	loader.SetDefault(KeyHeadless, defaults.Headless)
	loader.SetDefault(KeyWindowWidth, defaults.WindowWidth)
	loader.SetDefault(KeyWindowHeight, defaults.WindowHeight)
	loader.SetDefault(KeyWaitTimeout, defaults.WaitTimeout)
	loader.SetDefault(KeyPollInterval, defaults.PollInterval)
	loader.SetDefault(KeyLaunchTimeout, defaults.LaunchTimeout)
	loader.SetDefault(KeyBrowserPath, "")
	loader.SetDefault(KeyResultsDirectory, defaults.ResultsDirectory)
	loader.SetDefault(KeyScreenshotOnFailure, defaults.ScreenshotOnFailure)
	loader.SetDefault(KeyCatalogPath, "")
	loader.SetDefault(KeyAdminEmail, defaults.Admin.Identifier)
	loader.SetDefault(KeyAdminPassword, defaults.Admin.Secret)
	loader.SetDefault(KeyAgentEmail, defaults.Agent.Identifier)
	loader.SetDefault(KeyAgentPassword, defaults.Agent.Secret)
	loader.SetDefault(KeyLogLevel, defaults.LogLevel)
	return loader
}

// Load reads the suite configuration from the environment.
func Load() (SuiteConfig, error) {
	return FromLoader(NewLoader())
}

// FromLoader builds and validates a SuiteConfig from loader.
func FromLoader(loader *viper.Viper) (SuiteConfig, error) {
	target, targetErr := ParseTarget(loader.GetString(KeyTarget))
	if targetErr != nil {
		return SuiteConfig{}, targetErr
	}

	configuration := SuiteConfig{
		BaseURL:             strings.TrimRight(strings.TrimSpace(loader.GetString(KeyBaseURL)), routeSeparator),
		Target:              target,
		Headless:            loader.GetBool(KeyHeadless),
		WindowWidth:         loader.GetInt(KeyWindowWidth),
		WindowHeight:        loader.GetInt(KeyWindowHeight),
		WaitTimeout:         loader.GetDuration(KeyWaitTimeout),
		PollInterval:        loader.GetDuration(KeyPollInterval),
		LaunchTimeout:       loader.GetDuration(KeyLaunchTimeout),
		BrowserPath:         strings.TrimSpace(loader.GetString(KeyBrowserPath)),
		ResultsDirectory:    strings.TrimSpace(loader.GetString(KeyResultsDirectory)),
		ScreenshotOnFailure: loader.GetBool(KeyScreenshotOnFailure),
		CatalogPath:         strings.TrimSpace(loader.GetString(KeyCatalogPath)),
		Admin: Account{
			Identifier: strings.TrimSpace(loader.GetString(KeyAdminEmail)),
			Secret:     loader.GetString(KeyAdminPassword),
		},
		Agent: Account{
			Identifier: strings.TrimSpace(loader.GetString(KeyAgentEmail)),
			Secret:     loader.GetString(KeyAgentPassword),
		},
		LogLevel: strings.ToLower(strings.TrimSpace(loader.GetString(KeyLogLevel))),
	}

	if validationErr := configuration.Validate(); validationErr != nil {
		return SuiteConfig{}, validationErr
	}
	return configuration, nil
}

// Validate reports every invalid setting at once.
func (configuration SuiteConfig) Validate() error {
	var problems []string

	parsedBaseURL, parseErr := url.Parse(configuration.BaseURL)
	if parseErr != nil || parsedBaseURL.Host == "" || (parsedBaseURL.Scheme != schemeHTTP && parsedBaseURL.Scheme != schemeHTTPS) {
		problems = append(problems, validationMessageBaseURL)
	}
	if configuration.WindowWidth <= 0 || configuration.WindowHeight <= 0 {
		problems = append(problems, validationMessageWindow)
	}
	if configuration.WaitTimeout <= 0 {
		problems = append(problems, validationMessageTimeout)
	}
	if configuration.PollInterval <= 0 || configuration.PollInterval >= configuration.WaitTimeout {
		problems = append(problems, validationMessageInterval)
	}
	if configuration.LaunchTimeout <= 0 {
		problems = append(problems, validationMessageLaunch)
	}
	if configuration.ResultsDirectory == "" {
		problems = append(problems, validationMessageResults)
	}
	if _, levelErr := configuration.LoggerLevel(); levelErr != nil {
		problems = append(problems, validationMessageLogLevel)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(problems, validationDetailsSeparator))
}

// LoggerLevel parses LogLevel; empty means info.
func (configuration SuiteConfig) LoggerLevel() (zapcore.Level, error) {
	if strings.TrimSpace(configuration.LogLevel) == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(configuration.LogLevel)
}

// ResolveURL joins route onto BaseURL. Absolute URLs are returned unchanged.
func (configuration SuiteConfig) ResolveURL(route string) (string, error) {
	trimmedRoute := strings.TrimSpace(route)
	parsedRoute, routeErr := url.Parse(trimmedRoute)
	if routeErr != nil {
		return "", fmt.Errorf("%s %q: %w", errorMessageResolveRoute, route, routeErr)
	}
	if parsedRoute.IsAbs() {
		return trimmedRoute, nil
	}

	baseURL, baseErr := url.Parse(configuration.BaseURL + routeSeparator)
	if baseErr != nil {
		return "", fmt.Errorf("%s %q: %w", errorMessageResolveRoute, route, baseErr)
	}
	return baseURL.ResolveReference(&url.URL{
		Path:     strings.TrimPrefix(parsedRoute.Path, routeSeparator),
		RawQuery: parsedRoute.RawQuery,
		Fragment: parsedRoute.Fragment,
	}).String(), nil
}

// WithBaseURL returns a copy pointed at baseURL.
func (configuration SuiteConfig) WithBaseURL(baseURL string) SuiteConfig {
	configuration.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), routeSeparator)
	return configuration
}
