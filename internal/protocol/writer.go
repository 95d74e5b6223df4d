package protocol

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Writer encodes the fields of a single server event. All multi-byte
// numeric fields are little-endian.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates a Writer with the given initial capacity hint.
func NewWriter(capacity int) *Writer {
	w := &Writer{}
	w.buf.Grow(capacity)
	return w
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf.WriteByte(b)
}

// WriteUint16 writes a u16 LE.
func (w *Writer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteInt32 writes an i32 LE.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint32 writes a u32 LE.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteString writes a u16-LE byte-length prefix followed by UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteUint16(uint16(len(s)))
	w.buf.WriteString(s)
}

// WriteUTF16String writes a u16-LE char-length prefix followed by
// UTF-16LE code units, mirroring Reader.ReadUTF16String.
func (w *Writer) WriteUTF16String(s string) {
	units := utf16.Encode([]rune(s))
	w.WriteUint16(uint16(len(units)))
	for _, u := range units {
		w.WriteUint16(u)
	}
}

// Bytes returns the accumulated payload (opcode not included).
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}
