package supervisor

import (
	"os"

	"github.com/glintlock/glintlock-desktop/internal/portalloc"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("not a directory\n"), 0600)
}

func portFrom(p uint16) portalloc.Port {
	return portalloc.Port(p)
}
