package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/glintlock/glintlock-desktop/internal/constants"
)

// ConfigDirectory returns the directory holding glintlock.conf.
//   - Windows: %APPDATA%\Glintlock
//   - Unix: ~/.config/glintlock
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", errors.New("neither APPDATA nor USERPROFILE environment variable set")
			}
			appData = filepath.Join(userProfile, "AppData", "Roaming")
		}
		return filepath.Join(appData, constants.AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.BinaryName), nil
}

// DefaultConfigPath returns the default path for glintlock.conf.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// LogDirectory returns the log directory used in GUI mode.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Glintlock\logs
//   - Unix: ~/.config/glintlock/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "glintlock-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, constants.AppName, "logs")
	}

	dir, err := ConfigDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), "glintlock-logs")
	}
	return filepath.Join(dir, "logs")
}

// LogFilePath returns the GUI-mode log file path.
func LogFilePath() string {
	return filepath.Join(LogDirectory(), constants.LogFileName)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
