//go:build unix

package segment

import (
	"os"

	"golang.org/x/sys/unix"
)

// durableSync flushes f's data to stable storage. On unix targets this
// uses fdatasync, which skips the inode metadata sync fsync performs
// when only file contents (not size or mtime-independent metadata) have
// changed — the common case for an append-only segment write.
func durableSync(f *os.File) error {
	if err := unix.Fdatasync(int(f.Fd())); err != nil {
		return f.Sync() // fall back to a full fsync if fdatasync isn't supported
	}
	return nil
}
