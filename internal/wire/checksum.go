// Package wire implements the binary record framing shared by writer
// segments and reader state files.
package wire

import "github.com/cespare/xxhash/v2"

// checksum returns the 32-bit checksum used to guard a record or header
// against partial writes and bit rot. The low 32 bits of xxhash64 are
// used rather than a dedicated 32-bit variant so the same digest function
// backs every checksum in the package.
func checksum(data []byte) uint32 {
	return uint32(xxhash.Sum64(data)) //nolint:gosec // truncation is intentional, see doc comment
}

func verifyChecksum(data []byte, want uint32) bool {
	return checksum(data) == want
}
