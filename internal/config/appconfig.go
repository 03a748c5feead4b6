// Package config provides configuration management for Glintlock.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/glintlock/glintlock-desktop/internal/constants"
)

// AppConfig is the desktop shell configuration.
//
// Config file location:
//   - Windows: %APPDATA%\Glintlock\glintlock.conf
//   - Unix: ~/.config/glintlock/glintlock.conf
//
// INI format:
//
//	[backend]
//	executable = opencode
//	working_dir = ~/glintlock-opencode
//	hostname = 127.0.0.1
//	port = 0
//	extra_args = --print-logs
//
//	[env]
//	OPENCODE_CONFIG = /path/opencode.json
//
//	[ui]
//	wait_ready = true
//	ready_timeout_secs = 30
type AppConfig struct {
	Backend BackendConfig
	UI      UIConfig

	// Env holds variables added to the backend's environment, one key per
	// entry in the [env] section.
	Env map[string]string
}

// BackendConfig describes how the backend process is launched.
type BackendConfig struct {
	// Executable is resolved on PATH unless it contains a separator.
	// Default: opencode
	Executable string `ini:"executable"`

	// WorkingDir is where the backend runs; the glintlock plugin lives here.
	// A leading ~ is expanded to the user's home directory.
	WorkingDir string `ini:"working_dir"`

	// Hostname is the loopback address the backend listens on.
	// Default: 127.0.0.1
	Hostname string `ini:"hostname"`

	// Port pins the backend port. 0 lets the OS choose a free one.
	Port int `ini:"port"`

	// ExtraArgs are appended after --port, split on whitespace.
	ExtraArgs string `ini:"extra_args"`
}

// UIConfig controls how the shell reports backend availability.
type UIConfig struct {
	// WaitReady runs a background readiness probe after spawn and reports
	// the result to the frontend. It never delays the window.
	WaitReady bool `ini:"wait_ready"`

	// ReadyTimeoutSecs bounds the readiness probe.
	// Minimum: 1, Maximum: 600, Default: 30
	ReadyTimeoutSecs int `ini:"ready_timeout_secs"`
}

// AppConfig validation errors
var (
	ErrMissingExecutable   = errors.New("backend executable is required")
	ErrMissingWorkingDir   = errors.New("backend working_dir is required")
	ErrInvalidHostname     = errors.New("backend hostname must be " + constants.DefaultBackendHostname)
	ErrInvalidPort         = errors.New("backend port must be between 0 and 65535")
	ErrInvalidReadyTimeout = errors.New("ready_timeout_secs must be between 1 and 600")
)

// Environment variables that override the config file.
const (
	EnvWorkingDir = "GLINTLOCK_OPENCODE_DIR"
	EnvExecutable = "GLINTLOCK_OPENCODE_BIN"
	EnvPort       = "GLINTLOCK_PORT"
)

// DefaultWorkingDir returns ~/glintlock-opencode.
func DefaultWorkingDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DefaultBackendDirName
	}
	return filepath.Join(home, constants.DefaultBackendDirName)
}

// NewAppConfig creates a new AppConfig with default values.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			Executable: constants.DefaultBackendExecutable,
			WorkingDir: DefaultWorkingDir(),
			Hostname:   constants.DefaultBackendHostname,
			Port:       0,
		},
		UI: UIConfig{
			WaitReady:        true,
			ReadyTimeoutSecs: int(constants.DefaultReadyTimeout / time.Second),
		},
		Env: map[string]string{},
	}
}

// LoadAppConfig loads configuration from the INI file.
// If path is empty, uses the default path.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", constants.ConfigFileName, err)
	}

	backend := iniFile.Section("backend")
	cfg.Backend.Executable = backend.Key("executable").MustString(constants.DefaultBackendExecutable)
	cfg.Backend.WorkingDir = backend.Key("working_dir").MustString(DefaultWorkingDir())
	cfg.Backend.Hostname = backend.Key("hostname").MustString(constants.DefaultBackendHostname)
	cfg.Backend.Port = backend.Key("port").MustInt(0)
	cfg.Backend.ExtraArgs = backend.Key("extra_args").String()

	for _, key := range iniFile.Section("env").Keys() {
		cfg.Env[key.Name()] = key.String()
	}

	ui := iniFile.Section("ui")
	cfg.UI.WaitReady = ui.Key("wait_ready").MustBool(true)
	cfg.UI.ReadyTimeoutSecs = ui.Key("ready_timeout_secs").MustInt(int(constants.DefaultReadyTimeout / time.Second))

	return cfg, nil
}

// SaveAppConfig saves configuration to the INI file.
// If path is empty, uses the default path.
// Creates parent directories if they don't exist.
func SaveAppConfig(cfg *AppConfig, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	backend, err := iniFile.NewSection("backend")
	if err != nil {
		return fmt.Errorf("failed to create backend section: %w", err)
	}
	backend.Key("executable").SetValue(cfg.Backend.Executable)
	backend.Key("working_dir").SetValue(cfg.Backend.WorkingDir)
	backend.Key("hostname").SetValue(cfg.Backend.Hostname)
	backend.Key("port").SetValue(strconv.Itoa(cfg.Backend.Port))
	backend.Key("extra_args").SetValue(cfg.Backend.ExtraArgs)

	if len(cfg.Env) > 0 {
		env, err := iniFile.NewSection("env")
		if err != nil {
			return fmt.Errorf("failed to create env section: %w", err)
		}
		for _, name := range sortedKeys(cfg.Env) {
			env.Key(name).SetValue(cfg.Env[name])
		}
	}

	ui, err := iniFile.NewSection("ui")
	if err != nil {
		return fmt.Errorf("failed to create ui section: %w", err)
	}
	ui.Key("wait_ready").SetValue(strconv.FormatBool(cfg.UI.WaitReady))
	ui.Key("ready_timeout_secs").SetValue(strconv.Itoa(cfg.UI.ReadyTimeoutSecs))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ApplyEnvOverrides lets the environment win over the config file.
func (cfg *AppConfig) ApplyEnvOverrides() error {
	if dir := os.Getenv(EnvWorkingDir); dir != "" {
		cfg.Backend.WorkingDir = dir
	}
	if bin := os.Getenv(EnvExecutable); bin != "" {
		cfg.Backend.Executable = bin
	}
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, p, err)
		}
		cfg.Backend.Port = port
	}
	return nil
}

// Validate checks if the configuration is valid.
// It does not touch the filesystem; a missing working directory is
// reported when the backend is spawned.
func (cfg *AppConfig) Validate() error {
	if strings.TrimSpace(cfg.Backend.Executable) == "" {
		return ErrMissingExecutable
	}
	if strings.TrimSpace(cfg.Backend.WorkingDir) == "" {
		return ErrMissingWorkingDir
	}
	if cfg.Backend.Hostname != constants.DefaultBackendHostname {
		return ErrInvalidHostname
	}
	if cfg.Backend.Port < 0 || cfg.Backend.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.UI.ReadyTimeoutSecs < 1 || cfg.UI.ReadyTimeoutSecs > 600 {
		return ErrInvalidReadyTimeout
	}
	return nil
}

// ResolvedWorkingDir returns WorkingDir with a leading ~ expanded.
func (cfg *AppConfig) ResolvedWorkingDir() string {
	return ExpandHome(cfg.Backend.WorkingDir)
}

// ExtraArgList returns the extra backend arguments as a slice.
func (cfg *AppConfig) ExtraArgList() []string {
	return strings.Fields(cfg.Backend.ExtraArgs)
}

// EnvList returns the [env] section as KEY=VALUE pairs sorted by key.
func (cfg *AppConfig) EnvList() []string {
	if len(cfg.Env) == 0 {
		return nil
	}
	result := make([]string, 0, len(cfg.Env))
	for _, name := range sortedKeys(cfg.Env) {
		result = append(result, name+"="+cfg.Env[name])
	}
	return result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadyTimeout returns the readiness probe budget.
func (cfg *AppConfig) ReadyTimeout() time.Duration {
	return time.Duration(cfg.UI.ReadyTimeoutSecs) * time.Second
}

// Load is the startup entry point: file, then environment, then validation.
func Load(path string) (*AppConfig, error) {
	cfg, err := LoadAppConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
