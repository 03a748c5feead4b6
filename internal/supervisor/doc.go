// Package supervisor owns the lifecycle of the single backend process.
//
// A Supervisor is created with the port the backend will bind. It moves
// through three states:
//
//	NotStarted --Spawn--> Running --Shutdown--> Stopped
//	NotStarted --Shutdown----------------------> Stopped
//
// Stopped is terminal. Spawn succeeds at most once per Supervisor, and
// Shutdown may be called any number of times; only the first call from
// Running sends a kill.
//
// The supervisor never reads the backend's output or exit status. Kill is
// fire-and-forget: a failure to signal is logged and otherwise ignored.
//
// # Startup
//
// Bootstrap runs the whole startup sequence:
//
//	sup, err := supervisor.Bootstrap(cfg, portalloc.NewLoopbackAllocator(""))
//	if err != nil {
//	    // ErrNoPortAvailable or ErrSpawnFailed: do not show a window
//	}
//	defer sup.Shutdown()
//	port := sup.CurrentPort()
//
// A failed Bootstrap returns a nil Supervisor, so no caller can observe a
// port for a backend that never started.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The port is immutable and read
// without locking; the process handle is guarded by a mutex.
package supervisor
