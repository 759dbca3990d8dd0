package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/httpapi"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/model"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/storage"
	"github.com/MarkoPoloResearchLab/velan_e2e/internal/testutil"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func TestBuildRouterSeedsDatabase(testingT *testing.T) {
	sqliteDatabase := testutil.NewSQLiteTestDatabase(testingT)
	var openedDatabase *gorm.DB
	application := NewServerApplication().WithDatabaseOpener(func(dataSourceName string) (*gorm.DB, error) {
		database, openErr := openSQLite(dataSourceName)
		openedDatabase = database
		return database, openErr
	})

	router, routerErr := application.buildRouter(ServerConfig{
		DatabaseDataSourceName: sqliteDatabase.DataSourceName(),
		SessionSecret:          testSessionSecret,
	}, zap.NewNop())
	require.NoError(testingT, routerErr)
	testingT.Cleanup(func() {
		if sqlDatabase, sqlErr := openedDatabase.DB(); sqlErr == nil {
			_ = sqlDatabase.Close()
		}
	})

	var users int64
	require.NoError(testingT, openedDatabase.Model(&model.User{}).Count(&users).Error)
	require.Equal(testingT, int64(len(storage.DefaultAccounts())), users)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, httpapi.RouteLogin, nil))
	require.Equal(testingT, http.StatusOK, recorder.Code)
}

func TestBuildRouterReportsOpenFailure(testingT *testing.T) {
	openErr := errors.New("disk unavailable")
	application := NewServerApplication().WithDatabaseOpener(func(string) (*gorm.DB, error) {
		return nil, openErr
	})

	_, routerErr := application.buildRouter(ServerConfig{DatabaseDataSourceName: "ignored", SessionSecret: testSessionSecret}, zap.NewNop())
	require.ErrorIs(testingT, routerErr, openErr)
}

func TestLoadServerConfigSplitsOrigins(testingT *testing.T) {
	testingT.Setenv(environmentKeyAllowedOrigins, "http://a.example, ,http://b.example")
	testingT.Setenv(environmentKeySessionSecret, testSessionSecret)

	application := NewServerApplication()
	_, commandErr := application.Command()
	require.NoError(testingT, commandErr)

	serverConfig := application.loadServerConfig()
	require.Equal(testingT, []string{"http://a.example", "http://b.example"}, serverConfig.AllowedOrigins)
	require.Equal(testingT, defaultApplicationAddress, serverConfig.ApplicationAddress)
	require.Equal(testingT, testSessionSecret, serverConfig.SessionSecret)
	require.NoError(testingT, ensureRequiredConfiguration(serverConfig))
}
