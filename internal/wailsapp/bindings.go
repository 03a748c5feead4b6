package wailsapp

import (
	"github.com/glintlock/glintlock-desktop/internal/config"
	"github.com/glintlock/glintlock-desktop/internal/readiness"
	"github.com/glintlock/glintlock-desktop/internal/version"
)

// BackendStatusDTO describes the supervised backend for the frontend.
type BackendStatusDTO struct {
	Port      uint16 `json:"port"`
	URL       string `json:"url"`
	PID       int    `json:"pid"`
	State     string `json:"state"`
	RunID     string `json:"runId"`
	Readiness string `json:"readiness"`
}

// GetOpencodePort returns the port the backend was told to listen on.
// It answers immediately, whether or not the backend is accepting
// connections yet; the frontend is expected to retry its first request.
func (a *App) GetOpencodePort() uint16 {
	return uint16(a.sup.CurrentPort())
}

// GetBackendStatus returns a snapshot of the backend process.
func (a *App) GetBackendStatus() BackendStatusDTO {
	port := uint16(a.sup.CurrentPort())
	return BackendStatusDTO{
		Port:      port,
		URL:       readiness.BaseURL(a.config.Backend.Hostname, port),
		PID:       a.sup.PID(),
		State:     a.sup.State().String(),
		RunID:     a.sup.RunID(),
		Readiness: a.readinessState(),
	}
}

// GetVersion returns the application version.
func (a *App) GetVersion() string {
	return version.Version
}

// GetLogFilePath returns where GUI mode writes its log.
func (a *App) GetLogFilePath() string {
	return config.LogFilePath()
}
