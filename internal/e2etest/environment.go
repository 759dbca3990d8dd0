// Package e2etest is the per-test fixture layer of the end-to-end suite. It
// owns the run-wide Environment (configuration, selector catalog and, for the
// stub target, the in-process portal) and hands every test its own Fixture
// wrapping one browser session.
package e2etest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/config"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	stubListenNetwork         = "tcp"
	stubListenAddress         = "127.0.0.1:0"
	stubBaseURLFormat         = "http://%s"
	stubDataSourceNameFormat  = "file:velan-e2e-%s?mode=memory&cache=shared&_foreign_keys=on"
	stubSessionSecretBytes    = 32
	stubReadHeaderTimeout     = 5 * time.Second
	stubShutdownTimeout       = 5 * time.Second
	errorMessageLoadConfig    = "e2etest: load configuration"
	errorMessageLoadCatalog   = "e2etest: load selector catalog"
	errorMessageBuildLogger   = "e2etest: build run logger"
	errorMessageStartStub     = "e2etest: start stub portal"
	errorMessageStopStub      = "e2etest: stop stub portal"
	logEventStubPortalStarted = "stub_portal_started"
	logEventStubPortalStopped = "stub_portal_stopped"
	logEventEnvironmentReady  = "e2e_environment_ready"
	logFieldBaseURL           = "base_url"
	logFieldTarget            = "target"
	logFieldCatalogFields     = "catalog_fields"
	stubStageOpenDatabase     = "open database"
	stubStageSessionSecret    = "session secret"
	stubStageRouter           = "router"
	stubStageListen           = "listen"
	stubStageFormat           = "%s: %s: %w"
)

// ErrEnvironmentClosed indicates a fixture was requested after Close.
var ErrEnvironmentClosed = errors.New("e2etest: environment closed")

// Environment is shared by every test of one run. It is safe for concurrent use.
type Environment struct {
	configuration config.SuiteConfig
	catalog       locator.Catalog
	logger        *zap.Logger
	portal        *stubPortal

	closeOnce sync.Once
	closeErr  error
	closed    bool
	mutex     sync.RWMutex
}

// LoadEnvironment reads the E2E_* configuration and prepares the target. A
// nil logger is replaced by NewRunLogger at the configured level.
func LoadEnvironment(ctx context.Context, logger *zap.Logger) (*Environment, error) {
	configuration, configErr := config.Load()
	if configErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageLoadConfig, configErr)
	}
	if logger == nil {
		runLogger, loggerErr := NewRunLogger(configuration)
		if loggerErr != nil {
			return nil, fmt.Errorf("%s: %w", errorMessageBuildLogger, loggerErr)
		}
		logger = runLogger
	}
	return NewEnvironment(ctx, configuration, logger)
}

// NewRunLogger builds the run-wide development logger at configuration's level.
func NewRunLogger(configuration config.SuiteConfig) (*zap.Logger, error) {
	level, levelErr := configuration.LoggerLevel()
	if levelErr != nil {
		return nil, levelErr
	}
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.DisableStacktrace = true
	return loggerConfig.Build()
}

// NewEnvironment prepares configuration's target. For config.TargetStub it
// starts the reference portal on a loopback port and points BaseURL at it.
func NewEnvironment(ctx context.Context, configuration config.SuiteConfig, logger *zap.Logger) (*Environment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, catalogErr := locator.LoadCatalog(configuration.CatalogPath)
	if catalogErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageLoadCatalog, catalogErr)
	}

	environment := &Environment{
		configuration: configuration,
		catalog:       catalog,
		logger:        logger,
	}

	if configuration.Target == config.TargetStub {
		portal, startErr := startStubPortal(ctx, logger)
		if startErr != nil {
			return nil, startErr
		}
		environment.portal = portal
		environment.configuration = configuration.WithBaseURL(portal.baseURL)
	}

	logger.Info(logEventEnvironmentReady,
		zap.String(logFieldBaseURL, environment.configuration.BaseURL),
		zap.String(logFieldTarget, string(environment.configuration.Target)),
		zap.Int(logFieldCatalogFields, len(catalog)),
	)
	return environment, nil
}

// Config returns the effective suite configuration.
func (environment *Environment) Config() config.SuiteConfig {
	return environment.configuration
}

// Catalog returns the selector catalog, defaults merged with any overrides.
func (environment *Environment) Catalog() locator.Catalog {
	return environment.catalog
}

// Logger returns the environment logger.
func (environment *Environment) Logger() *zap.Logger {
	return environment.logger
}

// Stubbed reports whether the run drives the in-process portal.
func (environment *Environment) Stubbed() bool {
	return environment.portal != nil
}

// Close stops the stub portal, if any. It is idempotent.
func (environment *Environment) Close() error {
	environment.closeOnce.Do(func() {
		environment.mutex.Lock()
		environment.closed = true
		environment.mutex.Unlock()
		if environment.portal != nil {
			environment.closeErr = environment.portal.stop(environment.logger)
		}
	})
	return environment.closeErr
}

func (environment *Environment) isClosed() bool {
	environment.mutex.RLock()
	defer environment.mutex.RUnlock()
	return environment.closed
}

type stubPortal struct {
	baseURL   string
	server    *http.Server
	database  *gorm.DB
	serveDone chan error
}

func startStubPortal(ctx context.Context, logger *zap.Logger) (*stubPortal, error) {
	database, openErr := storage.OpenPortalDatabase(storage.Config{
		DriverName:     storage.DriverNameSQLite,
		DataSourceName: fmt.Sprintf(stubDataSourceNameFormat, storage.NewID()),
	}, storage.SeedConfig{})
	if openErr != nil {
		return nil, fmt.Errorf(stubStageFormat, errorMessageStartStub, stubStageOpenDatabase, openErr)
	}
	portal := &stubPortal{database: database, serveDone: make(chan error, 1)}

	sessionSecret, secretErr := newSessionSecret()
	if secretErr != nil {
		portal.closeDatabase()
		return nil, fmt.Errorf(stubStageFormat, errorMessageStartStub, stubStageSessionSecret, secretErr)
	}

	router, routerErr := httpapi.NewRouter(httpapi.PortalConfig{
		Database:      database,
		Logger:        logger,
		SessionSecret: sessionSecret,
	})
	if routerErr != nil {
		portal.closeDatabase()
		return nil, fmt.Errorf(stubStageFormat, errorMessageStartStub, stubStageRouter, routerErr)
	}

	var listenConfig net.ListenConfig
	listener, listenErr := listenConfig.Listen(ctx, stubListenNetwork, stubListenAddress)
	if listenErr != nil {
		portal.closeDatabase()
		return nil, fmt.Errorf(stubStageFormat, errorMessageStartStub, stubStageListen, listenErr)
	}

	portal.baseURL = fmt.Sprintf(stubBaseURLFormat, listener.Addr().String())
	portal.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: stubReadHeaderTimeout,
	}
	go func() {
		serveErr := portal.server.Serve(listener)
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
		portal.serveDone <- serveErr
	}()

	logger.Info(logEventStubPortalStarted, zap.String(logFieldBaseURL, portal.baseURL))
	return portal, nil
}

func (portal *stubPortal) stop(logger *zap.Logger) error {
	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), stubShutdownTimeout)
	defer cancelShutdown()

	shutdownErr := portal.server.Shutdown(shutdownContext)
	serveErr := <-portal.serveDone
	portal.closeDatabase()
	logger.Info(logEventStubPortalStopped, zap.String(logFieldBaseURL, portal.baseURL))

	if joinedErr := errors.Join(shutdownErr, serveErr); joinedErr != nil {
		return fmt.Errorf("%s: %w", errorMessageStopStub, joinedErr)
	}
	return nil
}

func (portal *stubPortal) closeDatabase() {
	_ = storage.CloseDatabase(portal.database)
}

func newSessionSecret() ([]byte, error) {
	randomBytes := make([]byte, stubSessionSecretBytes)
	if _, readErr := rand.Read(randomBytes); readErr != nil {
		return nil, readErr
	}
	return []byte(hex.EncodeToString(randomBytes)), nil
}
