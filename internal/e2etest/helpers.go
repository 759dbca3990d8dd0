package e2etest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/authflow"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	shortModeSkipMessage      = "full scenario; skipped in -short mode"
	permissiveTag             = "[permissive]"
	logEventLoginOutcome      = "login_outcome"
	logEventProbe             = "probe"
	logEventAwait             = "await"
	logEventNavigateFailed    = "navigate_failed"
	logFieldRoute             = "route"
	logFieldSucceeded         = "succeeded"
	logFieldSettled           = "settled"
	logFieldMissingField      = "missing_field"
	logFieldURL               = "url"
	logFieldLabel             = "label"
	logFieldStrategy          = "strategy"
	logFieldFound             = "found"
	descriptionVisible        = "visible"
	descriptionClickable      = "clickable"
	descriptionPresent        = "present"
	descriptionURLContains    = "url contains "
	descriptionTextVisible    = "text visible: "
	descriptionSeparator      = " "
	requireFailureFormat      = "%s: %v"
	anyOfFailureFormat        = "%s %s: none of the alternatives held (%s)"
	anyOfSatisfiedFormat      = "%s %s: satisfied by %q"
	anyOfAlternativeSeparator = ", "
)

// SkipInShortMode skips scenario tests outside the smoke subset when the run
// uses -short.
func SkipInShortMode(testingT testing.TB) {
	testingT.Helper()
	if testing.Short() {
		testingT.Skip(shortModeSkipMessage)
	}
}

// Navigate loads route relative to the base URL and waits for the document.
func (fixture *Fixture) Navigate(route string) {
	fixture.testingT.Helper()
	ctx := fixture.Context()
	require.NoError(fixture.testingT, fixture.session.Navigate(ctx, route))
	require.NoError(fixture.testingT, fixture.session.WaitForDocumentReady(ctx))
}

// TryNavigate loads route like Navigate but returns a failed load instead of
// failing the test. The browser stays usable on the error page.
func (fixture *Fixture) TryNavigate(route string) error {
	fixture.testingT.Helper()
	ctx := fixture.Context()
	navigateErr := fixture.session.Navigate(ctx, route)
	if navigateErr == nil {
		navigateErr = fixture.session.WaitForDocumentReady(ctx)
	}
	if navigateErr != nil {
		fixture.logger.Warn(logEventNavigateFailed, zap.String(logFieldRoute, route), zap.Error(navigateErr))
	}
	return navigateErr
}

// Login is the best-effort login: it never fails the test and reports what happened.
func (fixture *Fixture) Login(identifier string, secret string) authflow.LoginOutcome {
	fixture.testingT.Helper()
	outcome := fixture.authenticator.Login(fixture.Context(), authflow.Credentials{Identifier: identifier, Secret: secret})
	fixture.logOutcome(outcome)
	return outcome
}

// LoginAs signs in with the configured account of role, best-effort.
func (fixture *Fixture) LoginAs(role authflow.Role) authflow.LoginOutcome {
	fixture.testingT.Helper()
	outcome := fixture.authenticator.LoginAs(fixture.Context(), role)
	fixture.logOutcome(outcome)
	return outcome
}

func (fixture *Fixture) logOutcome(outcome authflow.LoginOutcome) {
	fixture.logger.Info(logEventLoginOutcome,
		zap.Bool(logFieldSucceeded, outcome.Succeeded),
		zap.Bool(logFieldSettled, outcome.Settled),
		zap.String(logFieldMissingField, outcome.MissingField),
		zap.String(logFieldURL, outcome.FinalURL),
		zap.Error(outcome.Err),
	)
}

// Logout is strict: it fails the test when the logout control or the
// redirect to the login page does not appear in time.
func (fixture *Fixture) Logout() {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.authenticator.Logout(fixture.Context()))
}

// Candidates returns the catalog's list for field, failing the test when it is unknown.
func (fixture *Fixture) Candidates(field string) locator.Candidates {
	fixture.testingT.Helper()
	candidates, lookupErr := fixture.Catalog().Candidates(field)
	require.NoError(fixture.testingT, lookupErr)
	return candidates
}

// RequirePresent waits until one of candidates is in the DOM and returns the
// first one in declared order.
func (fixture *Fixture) RequirePresent(candidates ...locator.Strategy) locator.Resolution {
	fixture.testingT.Helper()
	return fixture.requireFirst(descriptionPresent, candidates, fixture.session.Present)
}

// RequireVisible waits until one of candidates is rendered and visible.
func (fixture *Fixture) RequireVisible(candidates ...locator.Strategy) locator.Resolution {
	fixture.testingT.Helper()
	return fixture.requireFirst(descriptionVisible, candidates, fixture.session.IsDisplayed)
}

// RequireClickable waits until one of candidates is visible and enabled.
func (fixture *Fixture) RequireClickable(candidates ...locator.Strategy) locator.Resolution {
	fixture.testingT.Helper()
	return fixture.requireFirst(descriptionClickable, candidates, fixture.session.IsClickable)
}

// RequireField waits until the catalog field is visible.
func (fixture *Fixture) RequireField(field string) locator.Resolution {
	fixture.testingT.Helper()
	resolution := fixture.RequireVisible(fixture.Candidates(field)...)
	resolution.Field = field
	return resolution
}

// RequireTextVisible waits until an element whose own text contains text is visible.
func (fixture *Fixture) RequireTextVisible(text string) locator.Strategy {
	fixture.testingT.Helper()
	strategy := locator.AnyWithText(text)
	waitErr := fixture.Waiter().Until(fixture.Context(), descriptionTextVisible+text, func(ctx context.Context) (bool, error) {
		return fixture.session.IsDisplayed(ctx, strategy)
	})
	require.NoErrorf(fixture.testingT, waitErr, requireFailureFormat, descriptionTextVisible, text)
	return strategy
}

// RequireURLContains waits until the current URL contains fragment.
func (fixture *Fixture) RequireURLContains(fragment string) string {
	fixture.testingT.Helper()
	location, waitErr := waitpoll.Poll(fixture.Context(), fixture.Waiter(), descriptionURLContains+fragment, func(ctx context.Context) (string, bool, error) {
		current, locationErr := fixture.session.CurrentURL(ctx)
		if locationErr != nil {
			return "", false, locationErr
		}
		return current, strings.Contains(current, fragment), nil
	})
	require.NoError(fixture.testingT, waitErr)
	return location
}

type matcher func(ctx context.Context, strategy locator.Strategy) (bool, error)

func (fixture *Fixture) requireFirst(condition string, candidates locator.Candidates, matches matcher) locator.Resolution {
	fixture.testingT.Helper()
	description := condition + descriptionSeparator + strings.Join(candidates.Expressions(), anyOfAlternativeSeparator)
	resolution, waitErr := waitpoll.Poll(fixture.Context(), fixture.Waiter(), description, func(ctx context.Context) (locator.Resolution, bool, error) {
		found, resolveErr := locator.Resolve(ctx, locator.FinderFunc(matches), condition, candidates)
		if resolveErr != nil {
			return locator.Resolution{}, false, resolveErr
		}
		return found, true, nil
	})
	require.NoError(fixture.testingT, waitErr)
	return resolution
}

// Probe reports, without waiting, the first candidate present right now.
// It never fails the test.
func (fixture *Fixture) Probe(label string, candidates ...locator.Strategy) (locator.Resolution, bool) {
	resolution, resolveErr := locator.Resolve(fixture.Context(), fixture.session, label, candidates)
	found := resolveErr == nil
	fixture.logger.Debug(logEventProbe, zap.String(logFieldLabel, label), zap.Bool(logFieldFound, found), zap.String(logFieldStrategy, resolution.Strategy.String()))
	return resolution, found
}

// Await is Probe with the bounded wait: it returns as soon as a candidate is
// present and reports false once the wait elapses. It never fails the test.
func (fixture *Fixture) Await(label string, candidates ...locator.Strategy) (locator.Resolution, bool) {
	resolution, waitErr := waitpoll.Poll(fixture.Context(), fixture.Waiter(), label, func(ctx context.Context) (locator.Resolution, bool, error) {
		found, resolveErr := locator.Resolve(ctx, fixture.session, label, candidates)
		if resolveErr != nil {
			return locator.Resolution{}, false, nil
		}
		return found, true, nil
	})
	found := waitErr == nil
	fixture.logger.Debug(logEventAwait, zap.String(logFieldLabel, label), zap.Bool(logFieldFound, found), zap.String(logFieldStrategy, resolution.Strategy.String()))
	return resolution, found
}

// Eventually polls condition within the bounded wait and reports whether it
// held. Transient errors count as "not yet". It never fails the test.
func (fixture *Fixture) Eventually(description string, condition func(ctx context.Context) bool) bool {
	waitErr := fixture.Waiter().Until(fixture.Context(), description, func(ctx context.Context) (bool, error) {
		return condition(ctx), nil
	})
	return waitErr == nil
}

// URLContains reports, without failing the test, whether the current URL
// contains fragment within the bounded wait.
func (fixture *Fixture) URLContains(fragment string) bool {
	return fixture.Eventually(descriptionURLContains+fragment, func(ctx context.Context) bool {
		current, locationErr := fixture.session.CurrentURL(ctx)
		return locationErr == nil && strings.Contains(current, fragment)
	})
}

// Click clicks the first match of strategy.
func (fixture *Fixture) Click(strategy locator.Strategy) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.Click(fixture.Context(), strategy))
}

// Fill clears the first match of strategy and types text.
func (fixture *Fixture) Fill(strategy locator.Strategy, text string) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.Fill(fixture.Context(), strategy, text))
}

// Type appends text to the first match of strategy without clearing it.
func (fixture *Fixture) Type(strategy locator.Strategy, text string) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.Type(fixture.Context(), strategy, text))
}

// SetValue assigns value directly, for inputs such as dates.
func (fixture *Fixture) SetValue(strategy locator.Strategy, value string) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.SetValue(fixture.Context(), strategy, value))
}

// SelectValue chooses the option with value in the first matching select.
func (fixture *Fixture) SelectValue(strategy locator.Strategy, value string) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.SelectByValue(fixture.Context(), strategy, value))
}

// SelectIndex chooses the option at index in the first matching select.
func (fixture *Fixture) SelectIndex(strategy locator.Strategy, index int) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.SelectByIndex(fixture.Context(), strategy, index))
}

// Check ticks the first matching checkbox.
func (fixture *Fixture) Check(strategy locator.Strategy) {
	fixture.testingT.Helper()
	require.NoError(fixture.testingT, fixture.session.Check(fixture.Context(), strategy))
}

// Count returns how many elements strategy matches now.
func (fixture *Fixture) Count(strategy locator.Strategy) int {
	fixture.testingT.Helper()
	count, countErr := fixture.session.Count(fixture.Context(), strategy)
	require.NoError(fixture.testingT, countErr)
	return count
}

// IsDisplayed reports whether the first match of strategy is visible now.
func (fixture *Fixture) IsDisplayed(strategy locator.Strategy) bool {
	fixture.testingT.Helper()
	displayed, displayedErr := fixture.session.IsDisplayed(fixture.Context(), strategy)
	require.NoError(fixture.testingT, displayedErr)
	return displayed
}

// CurrentURL returns the page location.
func (fixture *Fixture) CurrentURL() string {
	fixture.testingT.Helper()
	location, locationErr := fixture.session.CurrentURL(fixture.Context())
	require.NoError(fixture.testingT, locationErr)
	return location
}

// Title returns the document title.
func (fixture *Fixture) Title() string {
	fixture.testingT.Helper()
	title, titleErr := fixture.session.Title(fixture.Context())
	require.NoError(fixture.testingT, titleErr)
	return title
}

// PageSource returns the serialized document.
func (fixture *Fixture) PageSource() string {
	fixture.testingT.Helper()
	source, sourceErr := fixture.session.PageSource(fixture.Context())
	require.NoError(fixture.testingT, sourceErr)
	return source
}

// AcceptAlert reports the next JavaScript dialog, best-effort.
func (fixture *Fixture) AcceptAlert() (string, bool) {
	return fixture.session.AcceptAlert(fixture.Context())
}

// Alternative is one acceptable outcome of a permissive assertion.
type Alternative struct {
	Label string
	Holds func() bool
}

// Either builds an Alternative.
func Either(label string, holds func() bool) Alternative {
	return Alternative{Label: label, Holds: holds}
}

// AnyOf passes when at least one alternative holds, evaluated in order. These
// "A or B or C" checks are deliberately weak; each use is tagged in the test
// log so the weak spots of the suite stay visible.
func AnyOf(testingT testing.TB, description string, alternatives ...Alternative) {
	testingT.Helper()
	labels := make([]string, 0, len(alternatives))
	for _, alternative := range alternatives {
		labels = append(labels, alternative.Label)
		if alternative.Holds() {
			testingT.Logf(anyOfSatisfiedFormat, permissiveTag, description, alternative.Label)
			return
		}
	}
	testingT.Fatalf(anyOfFailureFormat, permissiveTag, description, strings.Join(labels, anyOfAlternativeSeparator))
}
