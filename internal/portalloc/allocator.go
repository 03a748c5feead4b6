// Package portalloc picks an unused loopback TCP port for the backend.
//
// The probe binds port 0, reads the port the OS assigned and closes the
// listener again. Another process may grab the port between the probe and
// the backend's own bind; nothing here tries to prevent that.
package portalloc

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/glintlock/glintlock-desktop/internal/constants"
)

// Port is a TCP port number.
type Port uint16

// String returns the decimal form used on the backend command line.
func (p Port) String() string {
	return strconv.Itoa(int(p))
}

// ErrNoPortAvailable is returned when the OS cannot hand out a free port.
// Callers treat it as fatal: there is no retry and no fallback.
var ErrNoPortAvailable = errors.New("no free port available")

// Allocator produces the port the backend will be told to bind.
type Allocator interface {
	Allocate() (Port, error)
}

// LoopbackAllocator asks the OS for an ephemeral port on Host.
type LoopbackAllocator struct {
	// Host is the interface probed. Empty means 127.0.0.1.
	Host string
}

// NewLoopbackAllocator returns an allocator probing host.
func NewLoopbackAllocator(host string) *LoopbackAllocator {
	return &LoopbackAllocator{Host: host}
}

// Allocate binds host:0, records the assigned port and releases it.
func (a *LoopbackAllocator) Allocate() (Port, error) {
	host := a.Host
	if host == "" {
		host = constants.DefaultBackendHostname
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoPortAvailable, err)
	}
	defer listener.Close()

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("%w: listener address is %T, not TCP", ErrNoPortAvailable, listener.Addr())
	}
	if tcpAddr.Port <= 0 || tcpAddr.Port > 65535 {
		return 0, fmt.Errorf("%w: OS returned port %d", ErrNoPortAvailable, tcpAddr.Port)
	}

	return Port(tcpAddr.Port), nil
}

// Allocate is a convenience wrapper around the default loopback allocator.
func Allocate() (Port, error) {
	return NewLoopbackAllocator("").Allocate()
}

// Fixed hands out a configured port, after checking nobody holds it.
type Fixed struct {
	Host string
	Port Port
}

// Allocate returns the pinned port if it is currently free on Host.
func (f Fixed) Allocate() (Port, error) {
	if f.Port == 0 {
		return 0, fmt.Errorf("%w: pinned port is 0", ErrNoPortAvailable)
	}
	host := f.Host
	if host == "" {
		host = constants.DefaultBackendHostname
	}
	if !IsFree(host, f.Port) {
		return 0, fmt.Errorf("%w: port %d is already bound on %s", ErrNoPortAvailable, f.Port, host)
	}
	return f.Port, nil
}

// IsFree reports whether host:port can be bound right now.
func IsFree(host string, port Port) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, port.String()))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// ForConfig picks the allocator matching a configured port: 0 means let
// the OS choose.
func ForConfig(host string, port int) (Allocator, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("configured port %d is outside 0-65535", port)
	}
	if port == 0 {
		return NewLoopbackAllocator(host), nil
	}
	return Fixed{Host: host, Port: Port(port)}, nil
}
