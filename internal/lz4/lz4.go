// Package lz4 decodes LZ4 frames and raw LZ4 blocks into caller-supplied
// buffers.
//
// Frame checksums are skipped, not verified, unless VerifyFrame is used.
package lz4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	pierrec "github.com/pierrec/lz4/v4"
)

// Magic is the little-endian frame magic number.
const Magic = 0x184D2204

// Errors returned by the decoders.
var (
	ErrCorrupt   = errors.New("lz4: corrupt block")
	ErrHeader    = errors.New("lz4: invalid frame header")
	ErrOverflow  = errors.New("lz4: output buffer too small")
	ErrTruncated = errors.New("lz4: unexpected end of input")
	ErrChecksum  = errors.New("lz4: frame verification failed")
)

const (
	flagContentChecksum = 0x04
	flagContentSize     = 0x08
	flagBlockChecksum   = 0x10
)

type reader struct {
	in  []byte
	pos int
}

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.in) {
		return 0, ErrTruncated
	}
	r.pos++
	return r.in[r.pos-1], nil
}

func (r *reader) u32() (uint32, error) {
	if len(r.in)-r.pos < 4 {
		return 0, ErrTruncated
	}
	r.pos += 4
	return binary.LittleEndian.Uint32(r.in[r.pos-4:]), nil
}

func (r *reader) u64() (uint64, error) {
	if len(r.in)-r.pos < 8 {
		return 0, ErrTruncated
	}
	r.pos += 8
	return binary.LittleEndian.Uint64(r.in[r.pos-8:]), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || len(r.in)-r.pos < n {
		return nil, ErrTruncated
	}
	r.pos += n
	return r.in[r.pos-n : r.pos], nil
}

// DecodeFrame decodes an LZ4 frame from in into out, returning the number of
// bytes written. If the frame declares a content size, it must match the
// number of bytes decoded.
func DecodeFrame(out, in []byte) (int, error) {
	r := reader{in: in}

	magic, err := r.u32()
	if err != nil {
		return 0, err
	}
	if magic != Magic {
		return 0, fmt.Errorf("%w: bad magic %08X", ErrHeader, magic)
	}
	flg, err := r.u8()
	if err != nil {
		return 0, err
	}
	if flg&0xC3 != 0x40 {
		return 0, fmt.Errorf("%w: unsupported version or flags %02X", ErrHeader, flg)
	}
	if _, err := r.u8(); err != nil { // block maximum size
		return 0, err
	}
	var contentSize uint64
	if flg&flagContentSize != 0 {
		if contentSize, err = r.u64(); err != nil {
			return 0, err
		}
	}
	if _, err := r.u8(); err != nil { // header checksum
		return 0, err
	}

	var pos int
	for {
		bs, err := r.u32()
		if err != nil {
			return pos, err
		}
		if bs == 0 { // EndMark
			break
		}
		block, err := r.bytes(int(bs & 0x7FFFFFFF))
		if err != nil {
			return pos, err
		}
		if bs&0x80000000 != 0 {
			if len(block) > len(out)-pos {
				return pos, ErrOverflow
			}
			pos += copy(out[pos:], block)
		} else {
			n, err := decodeBlock(out, pos, block)
			pos += n
			if err != nil {
				return pos, err
			}
		}
		if flg&flagBlockChecksum != 0 {
			if _, err := r.u32(); err != nil {
				return pos, err
			}
		}
	}
	if flg&flagContentChecksum != 0 {
		if _, err := r.u32(); err != nil {
			return pos, err
		}
	}
	if flg&flagContentSize != 0 && uint64(pos) != contentSize {
		return pos, fmt.Errorf("%w: decoded %d bytes, frame declares %d", ErrCorrupt, pos, contentSize)
	}
	return pos, nil
}

// DecodeBlock decodes a raw LZ4 block (no frame) from in into out, returning
// the number of bytes written.
func DecodeBlock(out, in []byte) (int, error) {
	return decodeBlock(out, 0, in)
}

// decodeBlock decodes a block into out[pos:]. Matches may reference anything
// in out[:pos], so blocks in a frame can depend on earlier ones.
func decodeBlock(out []byte, pos int, in []byte) (int, error) {
	start := pos
	var i int
	for i < len(in) {
		tok := in[i]
		i++

		lit := int(tok >> 4)
		if lit == 15 {
			for {
				if i >= len(in) {
					return pos - start, ErrCorrupt
				}
				c := in[i]
				i++
				lit += int(c)
				if c != 0xFF {
					break
				}
			}
		}
		if lit > len(in)-i {
			return pos - start, ErrCorrupt
		}
		if lit > len(out)-pos {
			return pos - start, ErrOverflow
		}
		pos += copy(out[pos:], in[i:i+lit])
		i += lit

		ml := int(tok & 0x0F)
		if i == len(in) && ml == 0 {
			break
		}
		if len(in)-i < 2 {
			return pos - start, ErrCorrupt
		}
		off := int(in[i]) | int(in[i+1])<<8
		i += 2
		if off < 1 || off > pos {
			return pos - start, fmt.Errorf("%w: offset %d at output position %d", ErrCorrupt, off, pos)
		}
		if ml == 15 {
			for {
				if i >= len(in) {
					return pos - start, ErrCorrupt
				}
				c := in[i]
				i++
				ml += int(c)
				if c != 0xFF {
					break
				}
			}
		}
		ml += 4
		if ml > len(out)-pos {
			return pos - start, ErrOverflow
		}
		// copy forward, the match may overlap its own output
		src := pos - off
		for j := range ml {
			out[pos+j] = out[src+j]
		}
		pos += ml
	}
	return pos - start, nil
}

// VerifyFrame checks the header, block and content checksums of an LZ4
// frame, and that it decodes to exactly size bytes.
func VerifyFrame(in []byte, size int) error {
	zr := pierrec.NewReader(bytes.NewReader(in))
	n, err := io.Copy(io.Discard, zr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChecksum, err)
	}
	if n != int64(size) {
		return fmt.Errorf("%w: decoded %d bytes, expected %d", ErrChecksum, n, size)
	}
	return nil
}
