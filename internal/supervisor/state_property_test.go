package supervisor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Random Spawn/Shutdown sequences never launch twice, never kill twice,
// and never leave StateStopped.
func TestSupervisorStateMachine_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		launcher := newFakeLauncher()
		spawnFails := rapid.Bool().Draw(rt, "spawnFails")
		if spawnFails {
			launcher.launchErr = errors.New("exec failed")
		}
		port := rapid.Uint16Range(1, 65535).Draw(rt, "port")
		sup := New(portFrom(port), WithLauncher(launcher))

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"spawn", "shutdown"}), 1, 20).Draw(rt, "ops")

		everStopped := false
		for _, op := range ops {
			before := sup.State()
			switch op {
			case "spawn":
				err := sup.Spawn(Command{Executable: "opencode"})
				switch {
				case before != StateNotStarted:
					require.ErrorIs(rt, err, ErrAlreadyStarted)
				case spawnFails:
					require.ErrorIs(rt, err, ErrSpawnFailed)
					require.Equal(rt, StateNotStarted, sup.State())
				default:
					require.NoError(rt, err)
					require.Equal(rt, StateRunning, sup.State())
				}
			case "shutdown":
				sup.Shutdown()
				require.Equal(rt, StateStopped, sup.State())
				require.Zero(rt, sup.PID())
			}

			if everStopped {
				require.Equal(rt, StateStopped, sup.State(), "stopped is terminal")
			}
			if sup.State() == StateStopped {
				everStopped = true
			}
			require.Equal(rt, portFrom(port), sup.CurrentPort())
		}

		if !spawnFails {
			require.LessOrEqual(rt, launcher.launchCount(), 1)
		}
		require.LessOrEqual(rt, launcher.handle.killCount(), 1)
	})
}
