//go:build !unix

package segment

import "os"

// durableSync flushes f's data to stable storage. Non-unix targets have
// no fdatasync equivalent exposed portably, so this falls back to a full
// fsync, matching the teacher's own platform split between
// validation_unix.go and validation_windows.go.
func durableSync(f *os.File) error {
	return f.Sync()
}
