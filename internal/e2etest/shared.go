package e2etest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

const (
	exitCodeSetupFailure = 2
	mainSetupFailure     = "e2e environment setup failed"
	mainTeardownFailure  = "e2e environment teardown failed"
)

var sharedEnvironment struct {
	once        sync.Once
	environment *Environment
	err         error
}

// Shared returns the run-wide Environment, loading it on first use.
func Shared(testingT testing.TB) *Environment {
	testingT.Helper()
	environment, loadErr := loadShared()
	if loadErr != nil {
		testingT.Fatalf("%s: %v", mainSetupFailure, loadErr)
	}
	return environment
}

// NewFixture is Shared(testingT).NewFixture(testingT).
func NewFixture(testingT testing.TB) *Fixture {
	testingT.Helper()
	return Shared(testingT).NewFixture(testingT)
}

func loadShared() (*Environment, error) {
	sharedEnvironment.once.Do(func() {
		gin.SetMode(gin.TestMode)
		sharedEnvironment.environment, sharedEnvironment.err = LoadEnvironment(context.Background(), nil)
	})
	return sharedEnvironment.environment, sharedEnvironment.err
}

// Main is the TestMain of a scenario package: it prepares the shared
// Environment, runs the tests, and stops the stub portal afterwards.
//
//	func TestMain(m *testing.M) { e2etest.Main(m) }
func Main(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	environment, loadErr := loadShared()
	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", mainSetupFailure, loadErr)
		return exitCodeSetupFailure
	}
	code := m.Run()
	if closeErr := environment.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", mainTeardownFailure, closeErr)
	}
	_ = environment.Logger().Sync()
	return code
}
