package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	commandUseName                   = "server"
	commandShortDescription          = "Run the VelanDev portal"
	commandLongDescription           = "Serve the VelanDev loan portal that the end-to-end suite drives"
	missingConfigurationMessage      = "missing required configuration"
	loggerCreationErrorMessage       = "logger"
	logEventListening                = "listening"
	logFieldAddress                  = "addr"
	flagNameApplicationAddress       = "app-addr"
	flagNameDatabaseDataSourceName   = "db-dsn"
	flagNameSessionSecret            = "session-secret"
	flagNameAllowedOrigins           = "allowed-origins"
	flagNameSecureCookies            = "secure-cookies"
	flagUsageApplicationAddress      = "address for the HTTP server to listen on"
	flagUsageDatabaseDataSourceName  = "SQLite data source name"
	flagUsageSessionSecret           = "secret used to sign session cookies (at least 32 bytes)"
	flagUsageAllowedOrigins          = "comma-separated origins allowed to call the JSON API"
	flagUsageSecureCookies           = "mark session cookies Secure (requires HTTPS)"
	environmentKeyApplicationAddress = "APP_ADDR"
	environmentKeyDatabaseDataSource = "DB_DSN"
	environmentKeySessionSecret      = "SESSION_SECRET"
	environmentKeyAllowedOrigins     = "ALLOWED_ORIGINS"
	environmentKeySecureCookies      = "SECURE_COOKIES"
	defaultApplicationAddress        = ":5173"
	defaultDatabaseDataSourceName    = "file:velan_portal.db?_foreign_keys=on"
	originSeparator                  = ","
	loggerContextOpenDatabase        = "open_db"
	loggerContextAutoMigrate         = "migrate"
	loggerContextSeed                = "seed"
	loggerContextRouter              = "router"
	loggerContextServer              = "server"
	readHeaderTimeoutSeconds         = 5
	unexpectedArgumentsMessage       = "unexpected command arguments"
	commandInitializationFailure     = "failed to configure command"
	flagNotDefinedMessage            = "flag %s not defined"
	environmentConfigurationError    = "failed to apply environment configuration"
)

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	DatabaseDataSourceName string
	SessionSecret          string
	AllowedOrigins         []string
	SecureCookies          bool
}

// DatabaseOpener opens a database connection using the provided data source name.
type DatabaseOpener func(string) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      openSQLite,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.SetDefault(environmentKeyApplicationAddress, defaultApplicationAddress)
	application.configurationLoader.SetDefault(environmentKeyDatabaseDataSource, defaultDatabaseDataSourceName)
	application.configurationLoader.SetDefault(environmentKeySessionSecret, "")
	application.configurationLoader.SetDefault(environmentKeyAllowedOrigins, httpapi.DefaultAllowedOrigin)
	application.configurationLoader.SetDefault(environmentKeySecureCookies, false)
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	commandFlags.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
	commandFlags.String(flagNameDatabaseDataSourceName, defaultDatabaseDataSourceName, flagUsageDatabaseDataSourceName)
	commandFlags.String(flagNameSessionSecret, "", flagUsageSessionSecret)
	commandFlags.String(flagNameAllowedOrigins, httpapi.DefaultAllowedOrigin, flagUsageAllowedOrigins)
	commandFlags.Bool(flagNameSecureCookies, false, flagUsageSecureCookies)

	bindings := []struct {
		environmentKey string
		flagName       string
	}{
		{environmentKey: environmentKeyApplicationAddress, flagName: flagNameApplicationAddress},
		{environmentKey: environmentKeyDatabaseDataSource, flagName: flagNameDatabaseDataSourceName},
		{environmentKey: environmentKeySessionSecret, flagName: flagNameSessionSecret},
		{environmentKey: environmentKeyAllowedOrigins, flagName: flagNameAllowedOrigins},
		{environmentKey: environmentKeySecureCookies, flagName: flagNameSecureCookies},
	}

	for _, binding := range bindings {
		if bindErr := application.bindFlag(commandFlags, binding.environmentKey, binding.flagName); bindErr != nil {
			return bindErr
		}
	}

	for _, binding := range bindings {
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, binding.environmentKey, binding.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	if markErr := command.MarkFlagRequired(flagNameSessionSecret); markErr != nil {
		return markErr
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadServerConfig()
	if validationErr := ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	router, routerErr := application.buildRouter(serverConfig, logger)
	if routerErr != nil {
		logger.Fatal(loggerContextRouter, zap.Error(routerErr))
	}

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ServerApplication) loadServerConfig() ServerConfig {
	var allowedOrigins []string
	for _, origin := range strings.Split(application.configurationLoader.GetString(environmentKeyAllowedOrigins), originSeparator) {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}
	return ServerConfig{
		ApplicationAddress:     application.configurationLoader.GetString(environmentKeyApplicationAddress),
		DatabaseDataSourceName: strings.TrimSpace(application.configurationLoader.GetString(environmentKeyDatabaseDataSource)),
		SessionSecret:          strings.TrimSpace(application.configurationLoader.GetString(environmentKeySessionSecret)),
		AllowedOrigins:         allowedOrigins,
		SecureCookies:          application.configurationLoader.GetBool(environmentKeySecureCookies),
	}
}

// buildRouter opens, migrates, and seeds the database, then wires the portal.
func (application *ServerApplication) buildRouter(serverConfig ServerConfig, logger *zap.Logger) (*gin.Engine, error) {
	database, databaseErr := application.databaseOpener(serverConfig.DatabaseDataSourceName)
	if databaseErr != nil {
		return nil, fmt.Errorf("%s: %w", loggerContextOpenDatabase, databaseErr)
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		return nil, fmt.Errorf("%s: %w", loggerContextAutoMigrate, migrateErr)
	}

	if seedErr := storage.Seed(database, storage.SeedConfig{}); seedErr != nil {
		return nil, fmt.Errorf("%s: %w", loggerContextSeed, seedErr)
	}

	gin.SetMode(gin.ReleaseMode)
	return httpapi.NewRouter(httpapi.PortalConfig{
		Database:       database,
		Logger:         logger,
		SessionSecret:  []byte(serverConfig.SessionSecret),
		SecureCookies:  serverConfig.SecureCookies,
		AllowedOrigins: serverConfig.AllowedOrigins,
	})
}

func ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDataSourceName == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDataSourceName)
	}

	if configuration.SessionSecret == "" {
		missingParameters = append(missingParameters, flagNameSessionSecret)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func openSQLite(dataSourceName string) (*gorm.DB, error) {
	return storage.OpenDatabase(storage.Config{
		DriverName:     storage.DriverNameSQLite,
		DataSourceName: dataSourceName,
	})
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
