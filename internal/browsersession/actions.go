package browsersession

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	errorMessageNavigate         = "browsersession: navigate"
	errorMessageEvaluate         = "browsersession: evaluate"
	errorMessageInteract         = "browsersession: interact"
	errorMessageScreenshot       = "browsersession: screenshot"
	errorMessageElementNotFound  = "browsersession: element not found"
	errorMessageSelectNoMatch    = "browsersession: select option not applied"
	logEventNavigate             = "browser_navigate"
	logFieldURL                  = "url"
	logFieldPath                 = "path"
	logEventScreenshot           = "browser_screenshot"
	readyStateComplete           = "complete"
	documentRootSelector         = "html"
	screenshotDirectoryMode      = 0o755
	screenshotFileMode           = 0o644
	descriptionDocumentReady     = "document ready"
	descriptionAlertPresent      = "alert present"
	interactionDescriptionFormat = "%s %s"
	firstMatchXPathFormat        = "(%s)[1]"
)

var (
	// ErrElementNotFound indicates a strategy matched nothing when an element was required.
	ErrElementNotFound = errors.New(errorMessageElementNotFound)
	// ErrOptionNotSelected indicates a select element did not accept the requested option.
	ErrOptionNotSelected = errors.New(errorMessageSelectNoMatch)
)

func (session *Session) actionContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if session.Closed() {
		return nil, nil, ErrSessionClosed
	}
	runContext, cancelRun := context.WithTimeout(session.browserContext, session.waiter.Timeout)
	stopAfter := context.AfterFunc(ctx, cancelRun)
	return runContext, func() {
		stopAfter()
		cancelRun()
	}, nil
}

func (session *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runContext, cancelRun, contextErr := session.actionContext(ctx)
	if contextErr != nil {
		return contextErr
	}
	defer cancelRun()
	return chromedp.Run(runContext, actions...)
}

// querySelector returns the selector and options that address the first
// element matched by strategy. DOM search returns every XPath match, so the
// expression is narrowed to its first node.
func querySelector(strategy locator.Strategy) (string, []chromedp.QueryOption) {
	if strategy.Kind == locator.KindXPath {
		return fmt.Sprintf(firstMatchXPathFormat, strategy.Expression), []chromedp.QueryOption{chromedp.BySearch, chromedp.NodeVisible}
	}
	return strategy.Expression, []chromedp.QueryOption{chromedp.ByQuery, chromedp.NodeVisible}
}

// Navigate loads route, resolved against the configured base URL, and waits for the load event.
func (session *Session) Navigate(ctx context.Context, route string) error {
	targetURL, resolveErr := session.configuration.ResolveURL(route)
	if resolveErr != nil {
		return resolveErr
	}
	session.logger.Debug(logEventNavigate, zap.String(logFieldURL, targetURL))
	if navigateErr := session.run(ctx, chromedp.Navigate(targetURL)); navigateErr != nil {
		return fmt.Errorf("%s %s: %w", errorMessageNavigate, targetURL, navigateErr)
	}
	return nil
}

// CurrentURL returns the page location.
func (session *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if locationErr := session.run(ctx, chromedp.Location(&location)); locationErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageEvaluate, locationErr)
	}
	return location, nil
}

// Title returns the document title.
func (session *Session) Title(ctx context.Context) (string, error) {
	var title string
	if titleErr := session.run(ctx, chromedp.Title(&title)); titleErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageEvaluate, titleErr)
	}
	return title, nil
}

// PageSource returns the serialized document.
func (session *Session) PageSource(ctx context.Context) (string, error) {
	var markup string
	if sourceErr := session.run(ctx, chromedp.OuterHTML(documentRootSelector, &markup, chromedp.ByQuery)); sourceErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageEvaluate, sourceErr)
	}
	return markup, nil
}

// BodyText returns the rendered text of the document body.
func (session *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if evaluateErr := session.Evaluate(ctx, bodyTextScript, &text); evaluateErr != nil {
		return "", evaluateErr
	}
	return text, nil
}

// Evaluate runs script in the page and decodes its result into result.
func (session *Session) Evaluate(ctx context.Context, script string, result any) error {
	if evaluateErr := session.run(ctx, chromedp.Evaluate(script, result)); evaluateErr != nil {
		return fmt.Errorf("%s: %w", errorMessageEvaluate, evaluateErr)
	}
	return nil
}

// ReadyState returns document.readyState.
func (session *Session) ReadyState(ctx context.Context) (string, error) {
	var readyState string
	if evaluateErr := session.Evaluate(ctx, scriptReadyState, &readyState); evaluateErr != nil {
		return "", evaluateErr
	}
	return readyState, nil
}

// WaitForDocumentReady waits until the document has finished loading.
func (session *Session) WaitForDocumentReady(ctx context.Context) error {
	return session.waiter.Until(ctx, descriptionDocumentReady, func(pollContext context.Context) (bool, error) {
		readyState, readyErr := session.ReadyState(pollContext)
		if readyErr != nil {
			return false, readyErr
		}
		return readyState == readyStateComplete, nil
	})
}

// Present reports whether strategy matches at least one element.
func (session *Session) Present(ctx context.Context, strategy locator.Strategy) (bool, error) {
	var present bool
	if evaluateErr := session.Evaluate(ctx, presentScript(strategy), &present); evaluateErr != nil {
		return false, evaluateErr
	}
	return present, nil
}

// Count returns how many elements strategy matches.
func (session *Session) Count(ctx context.Context, strategy locator.Strategy) (int, error) {
	var count int
	if evaluateErr := session.Evaluate(ctx, countScript(strategy), &count); evaluateErr != nil {
		return 0, evaluateErr
	}
	return count, nil
}

// IsDisplayed reports whether the first match is rendered and visible.
func (session *Session) IsDisplayed(ctx context.Context, strategy locator.Strategy) (bool, error) {
	var displayed bool
	if evaluateErr := session.Evaluate(ctx, displayedScript(strategy), &displayed); evaluateErr != nil {
		return false, evaluateErr
	}
	return displayed, nil
}

// IsClickable reports whether the first match is visible and enabled.
func (session *Session) IsClickable(ctx context.Context, strategy locator.Strategy) (bool, error) {
	var clickable bool
	if evaluateErr := session.Evaluate(ctx, clickableScript(strategy), &clickable); evaluateErr != nil {
		return false, evaluateErr
	}
	return clickable, nil
}

// Text returns the trimmed visible text of the first match.
func (session *Session) Text(ctx context.Context, strategy locator.Strategy) (string, error) {
	var text *string
	if evaluateErr := session.Evaluate(ctx, textScript(strategy), &text); evaluateErr != nil {
		return "", evaluateErr
	}
	if text == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, strategy)
	}
	return *text, nil
}

// Value returns the value property of the first match.
func (session *Session) Value(ctx context.Context, strategy locator.Strategy) (string, error) {
	var value *string
	if evaluateErr := session.Evaluate(ctx, valueScript(strategy), &value); evaluateErr != nil {
		return "", evaluateErr
	}
	if value == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, strategy)
	}
	return *value, nil
}

// Click waits for the first match to be visible, then clicks it.
func (session *Session) Click(ctx context.Context, strategy locator.Strategy) error {
	selector, options := querySelector(strategy)
	return session.interact(ctx, "click", strategy, chromedp.Click(selector, options...))
}

// Clear empties the first matching input or textarea.
func (session *Session) Clear(ctx context.Context, strategy locator.Strategy) error {
	selector, options := querySelector(strategy)
	return session.interact(ctx, "clear", strategy, chromedp.Clear(selector, options...))
}

// Type sends text as key events to the first match.
func (session *Session) Type(ctx context.Context, strategy locator.Strategy, text string) error {
	selector, options := querySelector(strategy)
	return session.interact(ctx, "type", strategy, chromedp.SendKeys(selector, text, options...))
}

// Fill clears the first match and types text into it.
func (session *Session) Fill(ctx context.Context, strategy locator.Strategy, text string) error {
	if clearErr := session.Clear(ctx, strategy); clearErr != nil {
		return clearErr
	}
	return session.Type(ctx, strategy, text)
}

func (session *Session) interact(ctx context.Context, verb string, strategy locator.Strategy, action chromedp.Action) error {
	if interactErr := session.run(ctx, action); interactErr != nil {
		return fmt.Errorf("%s: %s: %w", errorMessageInteract, fmt.Sprintf(interactionDescriptionFormat, verb, strategy), interactErr)
	}
	return nil
}

// SelectByValue chooses the option whose value equals value.
func (session *Session) SelectByValue(ctx context.Context, strategy locator.Strategy, value string) error {
	return session.applySelection(ctx, strategy, selectByValueScript(strategy, value))
}

// SelectByIndex chooses the option at index.
func (session *Session) SelectByIndex(ctx context.Context, strategy locator.Strategy, index int) error {
	return session.applySelection(ctx, strategy, selectByIndexScript(strategy, index))
}

// SetValue assigns value to the first match and fires input and change
// events. Date and time inputs need it because they ignore typed keys in
// some locales.
func (session *Session) SetValue(ctx context.Context, strategy locator.Strategy, value string) error {
	return session.applySelection(ctx, strategy, setValueScript(strategy, value))
}

// Check ticks the first matching checkbox if it is not already ticked.
func (session *Session) Check(ctx context.Context, strategy locator.Strategy) error {
	return session.applySelection(ctx, strategy, checkScript(strategy))
}

func (session *Session) applySelection(ctx context.Context, strategy locator.Strategy, script string) error {
	var applied bool
	if evaluateErr := session.Evaluate(ctx, script, &applied); evaluateErr != nil {
		return evaluateErr
	}
	if !applied {
		return fmt.Errorf("%w: %s", ErrOptionNotSelected, strategy)
	}
	return nil
}

// AcceptAlert waits for a JavaScript dialog not yet reported by an earlier
// call and returns its message. Dialogs are accepted as soon as they open;
// this only reports them. It returns false when no dialog appears in time.
func (session *Session) AcceptAlert(ctx context.Context) (string, bool) {
	message, pollErr := waitpoll.Poll(ctx, session.waiter, descriptionAlertPresent, func(context.Context) (string, bool, error) {
		session.eventsMutex.Lock()
		defer session.eventsMutex.Unlock()
		if session.consumedDialogs >= len(session.dialogMessages) {
			return "", false, nil
		}
		dialogMessage := session.dialogMessages[session.consumedDialogs]
		session.consumedDialogs++
		return dialogMessage, true, nil
	})
	if pollErr != nil {
		return "", false
	}
	return message, true
}

// CaptureScreenshot writes a PNG of the viewport to path, creating parent directories.
func (session *Session) CaptureScreenshot(ctx context.Context, path string) error {
	var screenshot []byte
	if captureErr := session.run(ctx, chromedp.CaptureScreenshot(&screenshot)); captureErr != nil {
		return fmt.Errorf("%s: %w", errorMessageScreenshot, captureErr)
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(path), screenshotDirectoryMode); mkdirErr != nil {
		return fmt.Errorf("%s: %w", errorMessageScreenshot, mkdirErr)
	}
	if writeErr := os.WriteFile(path, screenshot, screenshotFileMode); writeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageScreenshot, writeErr)
	}
	session.logger.Info(logEventScreenshot, zap.String(logFieldPath, path))
	return nil
}

// URLContains reports whether the current location contains fragment.
func (session *Session) URLContains(ctx context.Context, fragment string) (bool, error) {
	location, locationErr := session.CurrentURL(ctx)
	if locationErr != nil {
		return false, locationErr
	}
	return strings.Contains(location, fragment), nil
}
