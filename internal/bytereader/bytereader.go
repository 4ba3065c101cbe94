// Package bytereader implements a little-endian cursor over an in-memory
// byte span.
//
// Every read comes in a checked form, which returns ErrShortRead instead of
// reading past the end of the span, and a Fast form, which assumes the caller
// has already validated the bounds (and panics like a normal slice access if
// it has not).
package bytereader

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortRead is returned when a checked read would go past the end of the
// span.
var ErrShortRead = errors.New("unexpected end of data")

// Reader is a cursor over a byte span. The zero value is an empty reader.
type Reader struct {
	data []byte
	pos  int
}

// New creates a Reader positioned at the start of b.
func New(b []byte) *Reader {
	return &Reader{data: b}
}

// Len returns the total length of the span.
func (r *Reader) Len() int { return len(r.data) }

// Pos returns the cursor position.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of bytes after the cursor.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Data returns the underlying span.
func (r *Reader) Data() []byte { return r.data }

// Seek moves the cursor to an absolute position. Seeking to the end of the
// span is allowed.
func (r *Reader) Seek(pos uint64) error {
	if pos > uint64(len(r.data)) {
		return fmt.Errorf("seek to %d (size %d): %w", pos, len(r.data), ErrShortRead)
	}
	r.pos = int(pos)
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

func (r *Reader) need(n int) error {
	if n < 0 || n > len(r.data)-r.pos {
		return fmt.Errorf("read %d bytes at offset %d (size %d): %w", n, r.pos, len(r.data), ErrShortRead)
	}
	return nil
}

// U8 reads a byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.U8Fast(), nil
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	return r.U16Fast(), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	return r.U32Fast(), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	return r.U64Fast(), nil
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// CString reads a null-terminated string, returning it without the
// terminator. The string aliases the span.
func (r *Reader) CString() ([]byte, error) {
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			b := r.data[r.pos:i:i]
			r.pos = i + 1
			return b, nil
		}
	}
	return nil, fmt.Errorf("read null-terminated string at offset %d: %w", r.pos, ErrShortRead)
}

// U8Fast reads a byte without bounds checking.
func (r *Reader) U8Fast() uint8 {
	v := r.data[r.pos]
	r.pos++
	return v
}

// U16Fast reads a uint16 without bounds checking.
func (r *Reader) U16Fast() uint16 {
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

// U32Fast reads a uint32 without bounds checking.
func (r *Reader) U32Fast() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// U64Fast reads a uint64 without bounds checking.
func (r *Reader) U64Fast() uint64 {
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

func (r *Reader) needAt(off uint64, n int) error {
	if off > uint64(len(r.data)) || uint64(n) > uint64(len(r.data))-off {
		return fmt.Errorf("read %d bytes at offset %d (size %d): %w", n, off, len(r.data), ErrShortRead)
	}
	return nil
}

// U8At reads a byte at an absolute offset.
func (r *Reader) U8At(off uint64) (uint8, error) {
	if err := r.needAt(off, 1); err != nil {
		return 0, err
	}
	return r.data[off], nil
}

// U16At reads a uint16 at an absolute offset.
func (r *Reader) U16At(off uint64) (uint16, error) {
	if err := r.needAt(off, 2); err != nil {
		return 0, err
	}
	return U16(r.data[off:]), nil
}

// U32At reads a uint32 at an absolute offset.
func (r *Reader) U32At(off uint64) (uint32, error) {
	if err := r.needAt(off, 4); err != nil {
		return 0, err
	}
	return U32(r.data[off:]), nil
}

// U64At reads a uint64 at an absolute offset.
func (r *Reader) U64At(off uint64) (uint64, error) {
	if err := r.needAt(off, 8); err != nil {
		return 0, err
	}
	return U64(r.data[off:]), nil
}

// Span returns n bytes at an absolute offset without copying.
func (r *Reader) Span(off uint64, n uint64) ([]byte, error) {
	if off > uint64(len(r.data)) || n > uint64(len(r.data))-off {
		return nil, fmt.Errorf("span of %d bytes at offset %d (size %d): %w", n, off, len(r.data), ErrShortRead)
	}
	return r.data[off : off+n : off+n], nil
}

// U16 decodes a little-endian uint16 from the start of b without advancing
// anything. It is the fast absolute form.
func U16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// U32 decodes a little-endian uint32 from the start of b.
func U32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// U64 decodes a little-endian uint64 from the start of b.
func U64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
