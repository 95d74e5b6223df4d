// Package protocol implements the length-prefixed binary framing and
// field codec shared by every client command and server event.
package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Reader decodes fields from a single command's payload bytes.
// All multi-byte numeric fields are little-endian.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential field decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("%w: need %d, have %d", ErrUnderflow, n, r.Remaining())
	}
	return nil
}

// ReadByte reads a single unsigned byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads a u16 LE.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadInt32 reads an i32 LE.
func (r *Reader) ReadInt32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v, nil
}

// ReadUint32 reads a u32 LE.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadBytes returns a zero-copy slice of the next n bytes. Caller must
// not mutate it; the slice aliases the reader's backing array.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadString reads a u16-LE byte-length prefix followed by UTF-8 bytes.
// maxLen is the field's configured maximum length (e.g. username 20,
// chat 255); a declared length beyond maxLen is a decoding error, not a
// read past the buffer, so it is checked before ReadBytes underflows.
func (r *Reader) ReadString(maxLen int) (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}
	if maxLen > 0 && int(n) > maxLen {
		return "", fmt.Errorf("%w: string length %d exceeds max %d", ErrFieldRange, n, maxLen)
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", fmt.Errorf("reading string body: %w", err)
	}
	return string(b), nil
}

// ReadUTF16String reads a u16-LE char-length prefix followed by that many
// UTF-16LE code units (2 bytes each), as used by fields explicitly
// declared UTF-16LE in the schema.
func (r *Reader) ReadUTF16String(maxLen int) (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", fmt.Errorf("reading utf16 string length: %w", err)
	}
	if maxLen > 0 && int(n) > maxLen {
		return "", fmt.Errorf("%w: string length %d exceeds max %d", ErrFieldRange, n, maxLen)
	}
	units := make([]uint16, n)
	for i := range units {
		u, err := r.ReadUint16()
		if err != nil {
			return "", fmt.Errorf("reading utf16 unit %d: %w", i, err)
		}
		units[i] = u
	}
	return string(utf16.Decode(units)), nil
}
