package browsersession

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/launcher"
)

const (
	// EnvironmentChromedpBrowser names an explicit browser executable.
	EnvironmentChromedpBrowser = "CHROMEDP_BROWSER"
	// EnvironmentChromePath names an explicit browser executable.
	EnvironmentChromePath = "CHROME_PATH"
	// EnvironmentDisableDownload turns off the automatic browser download fallback.
	EnvironmentDisableDownload = "E2E_NO_BROWSER_DOWNLOAD"

	errorMessageLocateBrowser  = "browsersession: locate browser executable"
	errorMessageBrowserMissing = "browsersession: browser executable not found"
	errorMessageEmptyDownload  = "launcher returned empty browser path"
)

// ErrBrowserNotFound indicates that no browser executable could be located.
var ErrBrowserNotFound = errors.New(errorMessageBrowserMissing)

var browserExecutableNames = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
	"headless-shell",
}

var discoveredBrowserCache struct {
	once sync.Once
	path string
	err  error
}

// LocateBrowser returns explicitPath when set, otherwise a discovered
// executable. Discovery runs once per process.
func LocateBrowser(explicitPath string) (string, error) {
	if trimmedPath := strings.TrimSpace(explicitPath); trimmedPath != "" {
		if _, statErr := os.Stat(trimmedPath); statErr != nil {
			return "", fmt.Errorf("%s: %w: %v", errorMessageLocateBrowser, ErrBrowserNotFound, statErr)
		}
		return trimmedPath, nil
	}

	discoveredBrowserCache.once.Do(func() {
		discoveredBrowserCache.path, discoveredBrowserCache.err = discoverBrowserExecutable()
	})
	return discoveredBrowserCache.path, discoveredBrowserCache.err
}

func discoverBrowserExecutable() (string, error) {
	environmentVariableNames := []string{
		EnvironmentChromedpBrowser,
		EnvironmentChromePath,
	}
	for _, environmentVariableName := range environmentVariableNames {
		environmentValue := strings.TrimSpace(os.Getenv(environmentVariableName))
		if environmentValue == "" {
			continue
		}
		return environmentValue, nil
	}

	for _, executableName := range browserExecutableNames {
		executablePath, lookupErr := exec.LookPath(executableName)
		if lookupErr == nil {
			return executablePath, nil
		}
	}

	if installedPath, found := launcher.LookPath(); found {
		return installedPath, nil
	}

	if strings.TrimSpace(os.Getenv(EnvironmentDisableDownload)) != "" {
		return "", fmt.Errorf("%s: %w", errorMessageLocateBrowser, ErrBrowserNotFound)
	}

	downloadedPath, downloadErr := downloadBrowserExecutable()
	if downloadErr != nil {
		return "", fmt.Errorf("%s: %w (auto download failed: %v)", errorMessageLocateBrowser, ErrBrowserNotFound, downloadErr)
	}
	return downloadedPath, nil
}

func downloadBrowserExecutable() (string, error) {
	browser := launcher.NewBrowser()
	path, getErr := browser.Get()
	if getErr != nil {
		return "", getErr
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New(errorMessageEmptyDownload)
	}
	return path, nil
}
