package testutil

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
)

const (
	sqliteTestDatabaseNamePrefix        = "velan-portal-test-db"
	sqliteInMemoryDataSourceNamePattern = "file:%s?mode=memory&cache=shared&_foreign_keys=on"
)

// SQLiteTestDatabase provides helpers for configuring temporary SQLite databases in tests.
type SQLiteTestDatabase struct {
	configuration storage.Config
}

// zapGormWriter routes gorm's statement log into the test's zap logger.
type zapGormWriter struct {
	logger *zap.Logger
}

func (writer zapGormWriter) Printf(format string, arguments ...interface{}) {
	message := strings.TrimSpace(fmt.Sprintf(format, arguments...))
	if message != "" {
		writer.logger.Warn("gorm", zap.String("statement", message))
	}
}

// NewSQLiteTestDatabase creates a SQLiteTestDatabase with a unique in-memory database configuration.
func NewSQLiteTestDatabase(testingT *testing.T) SQLiteTestDatabase {
	testingT.Helper()

	databaseName := fmt.Sprintf("%s-%s", sqliteTestDatabaseNamePrefix, storage.NewID())

	return SQLiteTestDatabase{
		configuration: storage.Config{
			DriverName:     storage.DriverNameSQLite,
			DataSourceName: fmt.Sprintf(sqliteInMemoryDataSourceNamePattern, databaseName),
		},
	}
}

// Configuration returns the storage configuration for the temporary SQLite database.
func (database SQLiteTestDatabase) Configuration() storage.Config {
	return database.configuration
}

// DataSourceName returns the SQLite data source name for the temporary database.
func (database SQLiteTestDatabase) DataSourceName() string {
	return database.configuration.DataSourceName
}

// ConfigureDatabaseLogger returns a database session that suppresses record-not-found logs during tests.
func ConfigureDatabaseLogger(testingT *testing.T, database *gorm.DB) *gorm.DB {
	testingT.Helper()
	if database == nil {
		testingT.Fatalf("configure database logger: nil database")
	}
	gormLogger := logger.New(
		zapGormWriter{logger: zaptest.NewLogger(testingT)},
		logger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  logger.Error,
		},
	)
	return database.Session(&gorm.Session{Logger: gormLogger})
}

// OpenSeededDatabase opens the temporary database, migrates it, and loads the default seed data.
func (database SQLiteTestDatabase) OpenSeededDatabase(testingT *testing.T) *gorm.DB {
	testingT.Helper()
	gormDatabase, openErr := storage.OpenDatabase(database.configuration)
	if openErr != nil {
		testingT.Fatalf("open test database: %v", openErr)
	}
	gormDatabase = ConfigureDatabaseLogger(testingT, gormDatabase)
	if migrateErr := storage.AutoMigrate(gormDatabase); migrateErr != nil {
		testingT.Fatalf("migrate test database: %v", migrateErr)
	}
	if seedErr := storage.Seed(gormDatabase, storage.SeedConfig{}); seedErr != nil {
		testingT.Fatalf("seed test database: %v", seedErr)
	}
	sqlDatabase, sqlErr := gormDatabase.DB()
	if sqlErr == nil {
		testingT.Cleanup(func() { _ = sqlDatabase.Close() })
	}
	return gormDatabase
}
