// Package wailsapp provides common error definitions.
package wailsapp

import "errors"

var (
	// ErrNoDisplay is returned when GUI mode starts without a display.
	ErrNoDisplay = errors.New("GUI mode requires a display")

	// ErrNoSupervisor is returned when the backend supervisor is missing.
	ErrNoSupervisor = errors.New("backend supervisor not initialized")
)
