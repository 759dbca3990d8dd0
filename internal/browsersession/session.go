package browsersession

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/config"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/waitpoll"
)

const (
	errorMessageBrowserLaunch = "browsersession: launch browser"
	errorMessageLaunchTimeout = "browsersession: browser did not start in time"
	errorMessageCloseSession  = "browsersession: close session"

	logEventSessionOpened  = "browser_session_opened"
	logEventSessionClosed  = "browser_session_closed"
	logEventConsoleMessage = "browser_console"
	logEventPageException  = "browser_exception"
	logEventDialogOpened   = "browser_dialog"
	logEventDialogAccept   = "browser_dialog_accept_failed"
	logFieldExecutable     = "executable"
	logFieldProcessID      = "pid"
	logFieldHeadless       = "headless"
	logFieldWindow         = "window"
	logFieldConsoleCount   = "console_messages"
	logFieldExceptionCount = "page_exceptions"
	logFieldDialogCount    = "dialogs"
	logFieldConsoleAPI     = "api"
	logFieldMessage        = "message"
	windowSizeFormat       = "%dx%d"

	flagHeadless                     = "headless"
	flagHideScrollbars               = "hide-scrollbars"
	flagMuteAudio                    = "mute-audio"
	flagDisableDevShmUsage           = "disable-dev-shm-usage"
	flagDisableBackgroundNetworking  = "disable-background-networking"
	flagDisableSync                  = "disable-sync"
	flagDisableTranslate             = "disable-translate"
	flagDisableExtensions            = "disable-extensions"
	flagDisableFeatures              = "disable-features"
	flagDisableIPCFloodingProtection = "disable-ipc-flooding-protection"
	flagPasswordStore                = "password-store"
	flagUseMockKeychain              = "use-mock-keychain"
	disabledFeatureTranslateUI       = "TranslateUI"
	passwordStoreBasic               = "basic"
)

var (
	// ErrBrowserLaunch indicates that a located browser executable failed to start.
	ErrBrowserLaunch = errors.New(errorMessageBrowserLaunch)
	// ErrSessionClosed indicates an operation on a session that was already closed.
	ErrSessionClosed = errors.New("browsersession: session closed")
)

type launchFlag struct {
	name  string
	value any
}

var fixedLaunchFlags = []launchFlag{
	{name: flagDisableDevShmUsage, value: true},
	{name: flagDisableBackgroundNetworking, value: true},
	{name: flagDisableSync, value: true},
	{name: flagDisableTranslate, value: true},
	{name: flagDisableExtensions, value: true},
	{name: flagDisableFeatures, value: disabledFeatureTranslateUI},
	{name: flagDisableIPCFloodingProtection, value: true},
	{name: flagPasswordStore, value: passwordStoreBasic},
	{name: flagUseMockKeychain, value: true},
}

// AllocatorOptions returns the exec allocator options for one session.
func AllocatorOptions(configuration config.SuiteConfig, executablePath string) []chromedp.ExecAllocatorOption {
	options := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.Flag(flagHeadless, configuration.Headless),
		chromedp.Flag(flagHideScrollbars, configuration.Headless),
		chromedp.Flag(flagMuteAudio, true),
		chromedp.WindowSize(configuration.WindowWidth, configuration.WindowHeight),
	}
	if executablePath != "" {
		options = append(options, chromedp.ExecPath(executablePath))
	}
	for _, flag := range fixedLaunchFlags {
		options = append(options, chromedp.Flag(flag.name, flag.value))
	}
	return options
}

// Session owns one browser process and its bounded-wait settings.
type Session struct {
	configuration   config.SuiteConfig
	logger          *zap.Logger
	waiter          waitpoll.Waiter
	executablePath  string
	allocatorCancel context.CancelFunc
	browserContext  context.Context
	browserCancel   context.CancelFunc
	process         *os.Process

	closeOnce sync.Once
	closeErr  error

	eventsMutex     sync.Mutex
	consoleMessages []string
	pageExceptions  []string
	dialogMessages  []string
	consumedDialogs int
}

// Open locates a browser, launches it, and blocks until it is ready. A missing
// executable yields ErrBrowserNotFound; a failed start yields ErrBrowserLaunch.
// The session stays alive until Close, independent of ctx.
func Open(ctx context.Context, configuration config.SuiteConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	executablePath, locateErr := LocateBrowser(configuration.BrowserPath)
	if locateErr != nil {
		return nil, locateErr
	}

	allocatorContext, allocatorCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), AllocatorOptions(configuration, executablePath)...)
	sugaredLogger := logger.Sugar()
	browserContext, browserCancel := chromedp.NewContext(allocatorContext,
		chromedp.WithLogf(sugaredLogger.Debugf),
		chromedp.WithErrorf(sugaredLogger.Warnf),
	)

	session := &Session{
		configuration:   configuration,
		logger:          logger,
		waiter:          waitpoll.New(configuration.WaitTimeout, configuration.PollInterval),
		executablePath:  executablePath,
		allocatorCancel: allocatorCancel,
		browserContext:  browserContext,
		browserCancel:   browserCancel,
	}
	chromedp.ListenTarget(browserContext, session.handleTargetEvent)

	if launchErr := session.launch(ctx, configuration.LaunchTimeout); launchErr != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("%w: %s: %w", ErrBrowserLaunch, executablePath, launchErr)
	}

	if chromedpContext := chromedp.FromContext(browserContext); chromedpContext != nil && chromedpContext.Browser != nil {
		session.process = chromedpContext.Browser.Process()
	}

	logger.Info(logEventSessionOpened,
		zap.String(logFieldExecutable, executablePath),
		zap.Int(logFieldProcessID, session.ProcessID()),
		zap.Bool(logFieldHeadless, configuration.Headless),
		zap.String(logFieldWindow, fmt.Sprintf(windowSizeFormat, configuration.WindowWidth, configuration.WindowHeight)),
	)
	return session, nil
}

// The first Run allocates the browser; it must not carry a deadline or the
// browser would be torn down when that deadline passes.
func (session *Session) launch(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = config.DefaultLaunchTimeout
	}
	launchResult := make(chan error, 1)
	go func() {
		launchResult <- chromedp.Run(session.browserContext)
	}()

	launchTimer := time.NewTimer(timeout)
	defer launchTimer.Stop()

	select {
	case launchErr := <-launchResult:
		return launchErr
	case <-launchTimer.C:
		return errors.New(errorMessageLaunchTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (session *Session) handleTargetEvent(event any) {
	switch typedEvent := event.(type) {
	case *cdpruntime.EventConsoleAPICalled:
		arguments := make([]string, 0, len(typedEvent.Args))
		for _, argument := range typedEvent.Args {
			if argument.Description != "" {
				arguments = append(arguments, argument.Description)
				continue
			}
			arguments = append(arguments, string(argument.Value))
		}
		message := fmt.Sprintf("console.%s %v", typedEvent.Type, arguments)
		session.eventsMutex.Lock()
		session.consoleMessages = append(session.consoleMessages, message)
		session.eventsMutex.Unlock()
		session.logger.Debug(logEventConsoleMessage, zap.String(logFieldConsoleAPI, typedEvent.Type.String()), zap.Strings(logFieldMessage, arguments))
	case *cdpruntime.EventExceptionThrown:
		message := typedEvent.ExceptionDetails.Error()
		session.eventsMutex.Lock()
		session.pageExceptions = append(session.pageExceptions, message)
		session.eventsMutex.Unlock()
		session.logger.Warn(logEventPageException, zap.String(logFieldMessage, message))
	case *page.EventJavascriptDialogOpening:
		session.eventsMutex.Lock()
		session.dialogMessages = append(session.dialogMessages, typedEvent.Message)
		session.eventsMutex.Unlock()
		session.logger.Info(logEventDialogOpened, zap.String(logFieldMessage, typedEvent.Message))
		// Dialogs block the page until handled; accept them off the event loop.
		go func() {
			if acceptErr := chromedp.Run(session.browserContext, page.HandleJavaScriptDialog(true)); acceptErr != nil {
				session.logger.Debug(logEventDialogAccept, zap.Error(acceptErr))
			}
		}()
	}
}

// Waiter returns the session's bounded-wait settings.
func (session *Session) Waiter() waitpoll.Waiter {
	return session.waiter
}

// Config returns the configuration the session was opened with.
func (session *Session) Config() config.SuiteConfig {
	return session.configuration
}

// Logger returns the session logger.
func (session *Session) Logger() *zap.Logger {
	return session.logger
}

// ExecutablePath returns the browser binary backing the session.
func (session *Session) ExecutablePath() string {
	return session.executablePath
}

// ProcessID returns the browser process id, or 0 when unknown.
func (session *Session) ProcessID() int {
	if session.process == nil {
		return 0
	}
	return session.process.Pid
}

// Alive reports whether the browser process is still running.
func (session *Session) Alive() bool {
	if session.process == nil {
		return false
	}
	return session.process.Signal(syscall.Signal(0)) == nil
}

// ConsoleMessages returns the console calls observed so far.
func (session *Session) ConsoleMessages() []string {
	session.eventsMutex.Lock()
	defer session.eventsMutex.Unlock()
	return append([]string(nil), session.consoleMessages...)
}

// PageExceptions returns the uncaught page exceptions observed so far.
func (session *Session) PageExceptions() []string {
	session.eventsMutex.Lock()
	defer session.eventsMutex.Unlock()
	return append([]string(nil), session.pageExceptions...)
}

// Closed reports whether Close has completed.
func (session *Session) Closed() bool {
	return session.browserContext.Err() != nil
}

// Close terminates the browser process. It is safe to call more than once;
// later calls return the first call's result.
func (session *Session) Close() error {
	session.closeOnce.Do(func() {
		cancelErr := chromedp.Cancel(session.browserContext)
		session.browserCancel()
		session.allocatorCancel()
		if cancelErr != nil && !errors.Is(cancelErr, context.Canceled) {
			session.closeErr = fmt.Errorf("%s: %w", errorMessageCloseSession, cancelErr)
		}

		session.eventsMutex.Lock()
		consoleCount := len(session.consoleMessages)
		exceptionCount := len(session.pageExceptions)
		dialogCount := len(session.dialogMessages)
		session.eventsMutex.Unlock()

		session.logger.Info(logEventSessionClosed,
			zap.Int(logFieldProcessID, session.ProcessID()),
			zap.Int(logFieldConsoleCount, consoleCount),
			zap.Int(logFieldExceptionCount, exceptionCount),
			zap.Int(logFieldDialogCount, dialogCount),
			zap.Error(session.closeErr),
		)
	})
	return session.closeErr
}
