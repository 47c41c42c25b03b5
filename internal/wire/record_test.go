package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutRoundTrip(t *testing.T) {
	p := &Put{ID: 42, AddTime: 1000, ExpireTime: 0, Data: []byte("hello world")}
	enc, err := p.Encode()
	require.NoError(t, err)

	rec, n, err := ReadRecord(bytes.NewReader(enc), "seg", 0)
	require.NoError(t, err)
	require.Equal(t, len(enc), n)
	require.Equal(t, TagPut, rec.Tag)
	require.Equal(t, p.ID, rec.Put.ID)
	require.Equal(t, p.AddTime, rec.Put.AddTime)
	require.Equal(t, p.ExpireTime, rec.Put.ExpireTime)
	require.Equal(t, p.Data, rec.Put.Data)
}

func TestPutRejectsOversizedPayload(t *testing.T) {
	p := &Put{ID: 1, AddTime: 1, Data: make([]byte, MaxItemDataLen+1)}
	_, err := p.Encode()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReadHeadRoundTrip(t *testing.T) {
	h := &ReadHead{ID: 7}
	enc := h.Encode()

	rec, _, err := ReadRecord(bytes.NewReader(enc), "reader", 0)
	require.NoError(t, err)
	require.Equal(t, TagReadHead, rec.Tag)
	require.Equal(t, uint64(7), rec.ReadHead.ID)
}

func TestReadDoneRoundTrip(t *testing.T) {
	d := &ReadDone{IDs: []uint64{3, 5, 9}}
	enc, err := d.Encode()
	require.NoError(t, err)

	rec, _, err := ReadRecord(bytes.NewReader(enc), "reader", 0)
	require.NoError(t, err)
	require.Equal(t, TagReadDone, rec.Tag)
	require.Equal(t, d.IDs, rec.ReadDone.IDs)
}

func TestReadDoneEmpty(t *testing.T) {
	d := &ReadDone{}
	enc, err := d.Encode()
	require.NoError(t, err)

	rec, _, err := ReadRecord(bytes.NewReader(enc), "reader", 0)
	require.NoError(t, err)
	require.Empty(t, rec.ReadDone.IDs)
}

func TestReadDoneRejectsUnsortedAndDuplicates(t *testing.T) {
	_, err := (&ReadDone{IDs: []uint64{5, 3}}).Encode()
	require.ErrorIs(t, err, ErrUnsortedDone)

	_, err = (&ReadDone{IDs: []uint64{3, 3}}).Encode()
	require.ErrorIs(t, err, ErrDuplicateDone)
}

func TestReadRecordCleanEOF(t *testing.T) {
	_, _, err := ReadRecord(bytes.NewReader(nil), "seg", 0)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadRecordTruncatedTailIsNotCorruption(t *testing.T) {
	p := &Put{ID: 1, AddTime: 1, Data: []byte("payload")}
	enc, err := p.Encode()
	require.NoError(t, err)

	truncated := enc[:len(enc)-1]
	_, _, err = ReadRecord(bytes.NewReader(truncated), "seg", 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var corrupt *CorruptionError
	require.NotErrorAs(t, err, &corrupt)
}

func TestReadRecordChecksumMismatchIsCorruption(t *testing.T) {
	p := &Put{ID: 1, AddTime: 1, Data: []byte("payload")}
	enc, err := p.Encode()
	require.NoError(t, err)

	enc[len(enc)-1] ^= 0xFF // flip every bit of the checksum's last byte

	_, _, err = ReadRecord(bytes.NewReader(enc), "seg", 123)
	var corrupt *CorruptionError
	require.ErrorAs(t, err, &corrupt)
	require.Equal(t, int64(123), corrupt.Offset)
}

func TestReadRecordUnknownTagIsCorruption(t *testing.T) {
	p := &Put{ID: 1, AddTime: 1}
	enc, err := p.Encode()
	require.NoError(t, err)
	enc[4] = 0x77 // stomp the tag byte, recompute checksum

	body := enc[4 : len(enc)-4]
	crc := checksum(body)
	buf := make([]byte, 4)
	putUint32(buf, crc)
	copy(enc[len(enc)-4:], buf)

	_, _, err = ReadRecord(bytes.NewReader(enc), "seg", 0)
	var corrupt *CorruptionError
	require.ErrorAs(t, err, &corrupt)
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

type failingReader struct {
	after int
	err   error
	n     int
}

func (r *failingReader) Read(p []byte) (int, error) {
	r.n++
	if r.n > r.after {
		return 0, r.err
	}
	return len(p), nil
}

func TestReadRecordPreservesGenuineIOError(t *testing.T) {
	cause := errors.New("disk on fire")
	_, _, err := ReadRecord(&failingReader{after: 0, err: cause}, "seg", 42)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Same(t, cause, ioErr.Cause)
	require.Equal(t, "seg", ioErr.Path)
	require.Equal(t, int64(42), ioErr.Offset)
	require.NotErrorIs(t, err, io.EOF)
	require.NotErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadRecordPreservesGenuineIOErrorMidRecord(t *testing.T) {
	cause := errors.New("disk on fire")
	lenBuf := make([]byte, 4)
	putUint32(lenBuf, 32)
	r := io.MultiReader(bytes.NewReader(lenBuf), &failingReader{after: 0, err: cause})

	_, _, err := ReadRecord(r, "seg", 0)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Same(t, cause, ioErr.Cause)
}

func TestSequentialRecordsDecodeInOrder(t *testing.T) {
	var buf bytes.Buffer
	for i := uint64(1); i <= 5; i++ {
		enc, err := (&Put{ID: i, AddTime: int64(i)}).Encode()
		require.NoError(t, err)
		buf.Write(enc)
	}

	r := bytes.NewReader(buf.Bytes())
	for i := uint64(1); i <= 5; i++ {
		rec, _, err := ReadRecord(r, "seg", 0)
		require.NoError(t, err)
		require.Equal(t, i, rec.Put.ID)
	}
	_, _, err := ReadRecord(r, "seg", 0)
	require.ErrorIs(t, err, io.EOF)
}
