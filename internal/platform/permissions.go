package platform

import (
	"os"
	"runtime"
)

// Chmod sets file permissions. It is a no-op on Windows, which has no
// Unix permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
