package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SegmentMagic identifies a writer segment file. Reader state files share
// the same header shape but carry ReaderMagic instead, so a misplaced
// file is caught immediately on open.
const (
	SegmentMagic uint32 = 0x4C514A52 // "LQJR" - duraq Journal Record
	ReaderMagic  uint32 = 0x4C514A53 // "LQJS" - duraq Journal State
)

// CurrentVersion is the only wire format version this package emits.
const CurrentVersion uint8 = 1

// HeaderSize is the fixed size of a file header: magic + version + a
// checksum guarding both.
const HeaderSize = 4 + 1 + 4

// Header is the preamble spec.md §4.1 mandates for every segment and
// reader state file: a 4-byte magic plus a 1-byte version, marshalled to
// HeaderSize (9) bytes with a trailing 4-byte checksum.
type Header struct {
	Magic   uint32
	Version uint8
}

// Marshal encodes h with a trailing checksum.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	crc := checksum(buf[:5])
	binary.LittleEndian.PutUint32(buf[5:9], crc)
	return buf
}

// ReadHeader decodes and validates a header against wantMagic.
func ReadHeader(r io.Reader, path string, wantMagic uint32) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: reading header of %s: %w", path, err)
	}

	storedCRC := binary.LittleEndian.Uint32(buf[5:9])
	if !verifyChecksum(buf[:5], storedCRC) {
		return nil, &CorruptionError{Path: path, Offset: 0, Reason: "header checksum mismatch"}
	}

	h := &Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: buf[4],
	}
	if h.Magic != wantMagic {
		return nil, &CorruptionError{Path: path, Offset: 0, Reason: fmt.Sprintf("bad magic %08x, want %08x", h.Magic, wantMagic)}
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return nil, &CorruptionError{Path: path, Offset: 0, Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	return h, nil
}
