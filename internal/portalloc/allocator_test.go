package portalloc

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllocate_ReturnsUsablePort(t *testing.T) {
	port, err := Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if port == 0 {
		t.Fatal("Allocate returned port 0")
	}

	// The backend must be able to bind what we handed out.
	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port.String()))
	if err != nil {
		t.Fatalf("Could not bind allocated port %d: %v", port, err)
	}
	listener.Close()
}

func TestAllocate_UnassignableHost(t *testing.T) {
	// 192.0.2.0/24 is TEST-NET-1 and is never configured on a local interface.
	_, err := NewLoopbackAllocator("192.0.2.1").Allocate()
	if err == nil {
		t.Fatal("Expected error for unassignable host")
	}
	if !errors.Is(err, ErrNoPortAvailable) {
		t.Errorf("Expected ErrNoPortAvailable, got %v", err)
	}
}

func TestFixed_BoundPortRejected(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	defer listener.Close()
	taken := Port(listener.Addr().(*net.TCPAddr).Port)

	_, err = Fixed{Host: "127.0.0.1", Port: taken}.Allocate()
	if !errors.Is(err, ErrNoPortAvailable) {
		t.Errorf("Expected ErrNoPortAvailable for bound port, got %v", err)
	}
}

func TestFixed_FreePortReturned(t *testing.T) {
	free, err := Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	got, err := Fixed{Port: free}.Allocate()
	if err != nil {
		t.Fatalf("Fixed.Allocate failed: %v", err)
	}
	if got != free {
		t.Errorf("Expected port %d, got %d", free, got)
	}
}

func TestFixed_ZeroPort(t *testing.T) {
	if _, err := (Fixed{}).Allocate(); !errors.Is(err, ErrNoPortAvailable) {
		t.Errorf("Expected ErrNoPortAvailable, got %v", err)
	}
}

func TestForConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     int
		wantErr  bool
		wantType string
	}{
		{name: "zero allocates", port: 0, wantType: "loopback"},
		{name: "pinned", port: 4096, wantType: "fixed"},
		{name: "negative", port: -1, wantErr: true},
		{name: "too large", port: 70000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := ForConfig("127.0.0.1", tt.port)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			switch a := alloc.(type) {
			case *LoopbackAllocator:
				if tt.wantType != "loopback" {
					t.Errorf("Got loopback allocator, want %s", tt.wantType)
				}
			case Fixed:
				if tt.wantType != "fixed" {
					t.Errorf("Got fixed allocator, want %s", tt.wantType)
				}
				if int(a.Port) != tt.port {
					t.Errorf("Fixed port = %d, want %d", a.Port, tt.port)
				}
			default:
				t.Errorf("Unexpected allocator type %T", alloc)
			}
		})
	}
}

func TestPortString(t *testing.T) {
	if got := Port(4096).String(); got != "4096" {
		t.Errorf("Port.String() = %q, want %q", got, "4096")
	}
}

func TestProperty_AllocatedPortInRange(t *testing.T) {
	alloc := NewLoopbackAllocator("127.0.0.1")
	rapid.Check(t, func(rt *rapid.T) {
		port, err := alloc.Allocate()
		require.NoError(rt, err)
		require.GreaterOrEqual(rt, int(port), 1)
		require.LessOrEqual(rt, int(port), 65535)
	})
}
