package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	// RouteLogin is the route serving the sign-in form.
	RouteLogin = "/login"
	// LoginRouteMarker is the URL fragment that identifies the sign-in page.
	LoginRouteMarker = "login"

	redactedSecret              = "[REDACTED]"
	credentialsFormat           = "%s/%s"
	errorMessageUnknownAccount  = "authflow: no credentials configured for role"
	errorMessageLogoutClick     = "authflow: click logout control"
	descriptionLoginFields      = "login form fields"
	descriptionLoginSettled     = "login submission settled"
	descriptionLogoutControl    = "clickable logout control"
	descriptionLogoutRedirect   = "url contains login marker"
	logEventLoginAttempt        = "login_attempt"
	logEventLoginFieldsMissing  = "login_fields_missing"
	logEventLoginFailed         = "login_failed"
	logEventLoginSubmitted      = "login_submitted"
	logEventLoginNotSettled     = "login_not_settled"
	logEventLogoutCompleted     = "logout_completed"
	logFieldIdentifier          = "identifier"
	logFieldField               = "field"
	logFieldStrategy            = "strategy"
	logFieldURL                 = "url"
	logFieldStage               = "stage"
	stageNavigate               = "navigate"
	stageFillIdentifier         = "fill_identifier"
	stageFillSecret             = "fill_secret"
	stageSubmit                 = "submit"
	stageResolve                = "resolve"
)

// ErrUnknownAccount indicates LoginAs was called for a role without credentials.
var ErrUnknownAccount = errors.New(errorMessageUnknownAccount)

var loginFields = []string{locator.FieldLoginIdentifier, locator.FieldLoginSecret, locator.FieldLoginSubmit}

// Role names an account type of the portal.
type Role string

const (
	RoleMasterAdmin     Role = "master_admin"
	RoleCollectionAgent Role = "collection_agent"
	RoleStaff           Role = "staff"
)

// Credentials is an identifier/secret pair. Its String form never shows the secret.
type Credentials struct {
	Identifier string
	Secret     string
}

func (credentials Credentials) String() string {
	return fmt.Sprintf(credentialsFormat, credentials.Identifier, redactedSecret)
}

// GoString keeps %#v from printing the secret.
func (credentials Credentials) GoString() string {
	return credentials.String()
}

// Browser is the subset of a browser session the helper drives.
type Browser interface {
	locator.Finder
	Navigate(ctx context.Context, route string) error
	WaitForDocumentReady(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
	Clear(ctx context.Context, strategy locator.Strategy) error
	Type(ctx context.Context, strategy locator.Strategy, text string) error
	Click(ctx context.Context, strategy locator.Strategy) error
	IsClickable(ctx context.Context, strategy locator.Strategy) (bool, error)
	IsDisplayed(ctx context.Context, strategy locator.Strategy) (bool, error)
}

// LoginOutcome is the result of a best-effort login. Succeeded means the
// form was found, filled, and submitted; it says nothing about whether the
// application accepted the credentials.
type LoginOutcome struct {
	Succeeded    bool
	MissingField string
	Settled      bool
	FinalURL     string
	Err          error
}

// Authenticator signs a browser in and out of the portal.
type Authenticator struct {
	browser  Browser
	catalog  locator.Catalog
	waiter   waitpoll.Waiter
	logger   *zap.Logger
	accounts map[Role]Credentials
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithAccount registers credentials used by LoginAs for role.
func WithAccount(role Role, credentials Credentials) Option {
	return func(authenticator *Authenticator) {
		authenticator.accounts[role] = credentials
	}
}

// WithCatalog replaces the default selector catalog.
func WithCatalog(catalog locator.Catalog) Option {
	return func(authenticator *Authenticator) {
		if catalog != nil {
			authenticator.catalog = catalog
		}
	}
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(authenticator *Authenticator) {
		if logger != nil {
			authenticator.logger = logger
		}
	}
}

// NewAuthenticator builds an Authenticator bound to browser.
func NewAuthenticator(browser Browser, waiter waitpoll.Waiter, options ...Option) *Authenticator {
	authenticator := &Authenticator{
		browser:  browser,
		catalog:  locator.DefaultCatalog(),
		waiter:   waiter,
		logger:   zap.NewNop(),
		accounts: make(map[Role]Credentials),
	}
	for _, option := range options {
		option(authenticator)
	}
	return authenticator
}

// Login submits credentials through the login form. It never returns an
// error: every failure is logged and reported through the outcome. All form
// fields are located before any of them is touched.
func (authenticator *Authenticator) Login(ctx context.Context, credentials Credentials) LoginOutcome {
	logger := authenticator.logger.With(zap.String(logFieldIdentifier, credentials.Identifier))
	logger.Info(logEventLoginAttempt)

	// A field missing from the catalog cannot appear by waiting.
	for _, field := range loginFields {
		if _, lookupErr := authenticator.catalog.Candidates(field); lookupErr != nil {
			return authenticator.failed(logger, stageResolve, lookupErr)
		}
	}

	if navigateErr := authenticator.browser.Navigate(ctx, RouteLogin); navigateErr != nil {
		return authenticator.failed(logger, stageNavigate, navigateErr)
	}
	if readyErr := authenticator.browser.WaitForDocumentReady(ctx); readyErr != nil {
		logger.Debug(logEventLoginNotSettled, zap.String(logFieldStage, stageNavigate), zap.Error(readyErr))
	}

	resolutions, resolveErr := waitpoll.Poll(ctx, authenticator.waiter, descriptionLoginFields, func(pollContext context.Context) ([]locator.Resolution, bool, error) {
		found, findErr := locator.ResolveFields(pollContext, authenticator.browser, authenticator.catalog, loginFields...)
		if findErr != nil {
			return nil, false, findErr
		}
		return found, true, nil
	})
	if resolveErr != nil {
		var unresolvedErr *locator.UnresolvedError
		if errors.As(resolveErr, &unresolvedErr) {
			logger.Warn(logEventLoginFieldsMissing, zap.String(logFieldField, unresolvedErr.Field), zap.Error(resolveErr))
			return LoginOutcome{MissingField: unresolvedErr.Field, Err: resolveErr}
		}
		return authenticator.failed(logger, stageResolve, resolveErr)
	}

	identifierStrategy := resolutions[0].Strategy
	secretStrategy := resolutions[1].Strategy
	submitStrategy := resolutions[2].Strategy

	if fillErr := authenticator.fill(ctx, identifierStrategy, credentials.Identifier); fillErr != nil {
		return authenticator.failed(logger, stageFillIdentifier, fillErr)
	}
	if fillErr := authenticator.fill(ctx, secretStrategy, credentials.Secret); fillErr != nil {
		return authenticator.failed(logger, stageFillSecret, fillErr)
	}
	if clickErr := authenticator.browser.Click(ctx, submitStrategy); clickErr != nil {
		return authenticator.failed(logger, stageSubmit, clickErr)
	}

	outcome := LoginOutcome{Succeeded: true}
	settleErr := authenticator.waiter.Until(ctx, descriptionLoginSettled, authenticator.loginSettled)
	if settleErr != nil {
		logger.Info(logEventLoginNotSettled, zap.Error(settleErr))
	} else {
		outcome.Settled = true
	}
	if finalURL, locationErr := authenticator.browser.CurrentURL(ctx); locationErr == nil {
		outcome.FinalURL = finalURL
	}

	logger.Info(logEventLoginSubmitted,
		zap.String(logFieldStrategy, identifierStrategy.String()),
		zap.String(logFieldURL, outcome.FinalURL),
		zap.Bool("settled", outcome.Settled),
	)
	return outcome
}

// LoginAs signs in with the credentials registered for role.
func (authenticator *Authenticator) LoginAs(ctx context.Context, role Role) LoginOutcome {
	credentials, found := authenticator.accounts[role]
	if !found {
		accountErr := fmt.Errorf("%w: %s", ErrUnknownAccount, role)
		authenticator.logger.Warn(logEventLoginFailed, zap.Error(accountErr))
		return LoginOutcome{Err: accountErr}
	}
	return authenticator.Login(ctx, credentials)
}

// Logout clicks the first clickable logout control and waits for the login
// page. Unlike Login it is strict: an unmet wait returns a *waitpoll.TimeoutError.
func (authenticator *Authenticator) Logout(ctx context.Context) error {
	candidates, lookupErr := authenticator.catalog.Candidates(locator.FieldLogout)
	if lookupErr != nil {
		return lookupErr
	}

	logoutControl, controlErr := waitpoll.Poll(ctx, authenticator.waiter, descriptionLogoutControl, func(pollContext context.Context) (locator.Strategy, bool, error) {
		var lastErr error
		for _, strategy := range candidates {
			clickable, clickableErr := authenticator.browser.IsClickable(pollContext, strategy)
			if clickableErr != nil {
				lastErr = clickableErr
				continue
			}
			if clickable {
				return strategy, true, nil
			}
		}
		return locator.Strategy{}, false, lastErr
	})
	if controlErr != nil {
		return controlErr
	}

	if clickErr := authenticator.browser.Click(ctx, logoutControl); clickErr != nil {
		return fmt.Errorf("%s: %w", errorMessageLogoutClick, clickErr)
	}

	if redirectErr := authenticator.waiter.Until(ctx, descriptionLogoutRedirect, authenticator.onLoginRoute); redirectErr != nil {
		return redirectErr
	}
	authenticator.logger.Info(logEventLogoutCompleted, zap.String(logFieldStrategy, logoutControl.String()))
	return nil
}

// IsOnLoginRoute reports whether the browser currently shows the login page.
func (authenticator *Authenticator) IsOnLoginRoute(ctx context.Context) (bool, error) {
	return authenticator.onLoginRoute(ctx)
}

func (authenticator *Authenticator) onLoginRoute(ctx context.Context) (bool, error) {
	currentURL, locationErr := authenticator.browser.CurrentURL(ctx)
	if locationErr != nil {
		return false, locationErr
	}
	return strings.Contains(currentURL, LoginRouteMarker), nil
}

// The submission has settled once the browser has left the login page or the
// page shows an error indicator.
func (authenticator *Authenticator) loginSettled(ctx context.Context) (bool, error) {
	onLogin, locationErr := authenticator.onLoginRoute(ctx)
	if locationErr != nil {
		return false, locationErr
	}
	if !onLogin {
		return true, nil
	}
	errorCandidates, lookupErr := authenticator.catalog.Candidates(locator.FieldErrorIndicator)
	if lookupErr != nil {
		return false, lookupErr
	}
	for _, strategy := range errorCandidates {
		displayed, displayedErr := authenticator.browser.IsDisplayed(ctx, strategy)
		if displayedErr == nil && displayed {
			return true, nil
		}
	}
	return false, nil
}

func (authenticator *Authenticator) fill(ctx context.Context, strategy locator.Strategy, text string) error {
	if clearErr := authenticator.browser.Clear(ctx, strategy); clearErr != nil {
		return clearErr
	}
	return authenticator.browser.Type(ctx, strategy, text)
}

func (authenticator *Authenticator) failed(logger *zap.Logger, stage string, failure error) LoginOutcome {
	logger.Warn(logEventLoginFailed, zap.String(logFieldStage, stage), zap.Error(failure))
	return LoginOutcome{Err: failure}
}
