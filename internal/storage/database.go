package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
)

const (
	// DriverNameSQLite identifies the SQLite driver implementation.
	DriverNameSQLite = "sqlite"

	errorMessageMissingDatabaseDriverName = "storage: missing database driver name"
	errorMessageUnsupportedDatabaseDriver = "storage: unsupported database driver"
	errorMessageMissingDataSourceName     = "storage: missing database data source name"
	errorMessageOpenDatabase              = "storage: open database"
	errorMessageOpenSQLiteDatabase        = "storage: open sqlite database"
	errorMessageMigrateDatabase           = "storage: migrate portal schema"
	errorMessageSeedDatabase              = "storage: seed portal accounts"
)

var (
	// ErrMissingDatabaseDriverName indicates the database driver name configuration was omitted.
	ErrMissingDatabaseDriverName = errors.New(errorMessageMissingDatabaseDriverName)
	// ErrUnsupportedDatabaseDriver indicates the provided database driver is not supported.
	ErrUnsupportedDatabaseDriver = errors.New(errorMessageUnsupportedDatabaseDriver)
	// ErrMissingDataSourceName indicates the database data source name configuration was omitted.
	ErrMissingDataSourceName = errors.New(errorMessageMissingDataSourceName)
)

type databaseOpener func(Config) (*gorm.DB, error)

var databaseOpeners = map[string]databaseOpener{
	DriverNameSQLite: openSQLiteDatabase,
}

// Config captures database connection configuration.
type Config struct {
	DriverName     string
	DataSourceName string
}

// OpenDatabase opens a database connection using the configured driver and data source name.
func OpenDatabase(configuration Config) (*gorm.DB, error) {
	trimmedDriverName := strings.TrimSpace(configuration.DriverName)
	if trimmedDriverName == "" {
		return nil, ErrMissingDatabaseDriverName
	}

	opener, driverSupported := databaseOpeners[trimmedDriverName]
	if !driverSupported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabaseDriver, trimmedDriverName)
	}

	database, openErr := opener(Config{
		DriverName:     trimmedDriverName,
		DataSourceName: strings.TrimSpace(configuration.DataSourceName),
	})
	if openErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageOpenDatabase, openErr)
	}

	return database, nil
}

func openSQLiteDatabase(configuration Config) (*gorm.DB, error) {
	if configuration.DataSourceName == "" {
		return nil, ErrMissingDataSourceName
	}

	database, openErr := gorm.Open(sqlite.Open(configuration.DataSourceName), &gorm.Config{})
	if openErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageOpenSQLiteDatabase, openErr)
	}

	// SQLite allows a single writer, so requests share one connection.
	sqlDatabase, poolErr := database.DB()
	if poolErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageOpenSQLiteDatabase, poolErr)
	}
	sqlDatabase.SetMaxOpenConns(1)

	return database, nil
}

// AutoMigrate runs database migrations for the portal models.
func AutoMigrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&model.User{},
		&model.Customer{},
		&model.Loan{},
		&model.LoanApplication{},
		&model.Disbursement{},
		&model.Collection{},
		&model.Role{},
		&model.AuditEntry{},
		&model.Invitation{},
		&model.AccessToken{},
	)
}

// OpenPortalDatabase opens the database and brings it to the portal schema
// with the seed accounts and loans. The connection is closed on failure.
func OpenPortalDatabase(configuration Config, seedConfiguration SeedConfig) (*gorm.DB, error) {
	database, openErr := OpenDatabase(configuration)
	if openErr != nil {
		return nil, openErr
	}
	if migrateErr := AutoMigrate(database); migrateErr != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", errorMessageMigrateDatabase, migrateErr), CloseDatabase(database))
	}
	if seedErr := Seed(database, seedConfiguration); seedErr != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", errorMessageSeedDatabase, seedErr), CloseDatabase(database))
	}
	return database, nil
}

// CloseDatabase releases the connection pool behind database.
func CloseDatabase(database *gorm.DB) error {
	sqlDatabase, poolErr := database.DB()
	if poolErr != nil {
		return poolErr
	}
	return sqlDatabase.Close()
}

// NewID generates a new globally unique identifier.
func NewID() string {
	return uuid.NewString()
}
