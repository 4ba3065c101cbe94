package inflate

import (
	"encoding/binary"
	"math/bits"
)

// bitReader reads DEFLATE's LSB-first bit stream.
//
// sr holds the buffered bits with a single marker bit set just above the
// highest valid one, so the number of buffered bits is bits.Len64(sr)-1 and an
// empty buffer is sr == 1.
type bitReader struct {
	in  []byte
	pos int
	sr  uint64
}

func newBitReader(in []byte) bitReader {
	return bitReader{in: in, sr: 1}
}

// avail returns the number of buffered bits.
func (br *bitReader) avail() uint {
	return uint(bits.Len64(br.sr)) - 1
}

// refill tops up the buffer without ever reading past the end of in.
func (br *bitReader) refill() {
	n := br.avail()
	if n >= 32 {
		return
	}
	sr := br.sr &^ (1 << n)
	if n < 16 && len(br.in)-br.pos >= 8 {
		v := binary.LittleEndian.Uint64(br.in[br.pos:]) & (1<<48 - 1)
		br.sr = sr | v<<n | 1<<(n+48)
		br.pos += 6
		return
	}
	for n+8 < 64 && br.pos < len(br.in) {
		sr |= uint64(br.in[br.pos]) << n
		br.pos++
		n += 8
	}
	br.sr = sr | 1<<n
}

// need ensures at least n (<= 32) bits are buffered.
func (br *bitReader) need(n uint) error {
	if br.avail() < n {
		br.refill()
		if br.avail() < n {
			return ErrTruncated
		}
	}
	return nil
}

// bits reads n (<= 32) bits.
func (br *bitReader) bits(n uint) (uint32, error) {
	if err := br.need(n); err != nil {
		return 0, err
	}
	v := uint32(br.sr & (1<<n - 1))
	br.sr >>= n
	return v, nil
}

// peek returns up to 8 buffered bits without consuming them, along with the
// number of valid bits (which is less than 8 only at the end of the input).
func (br *bitReader) peek8() (uint32, uint) {
	br.refill()
	n := min(br.avail(), 8)
	return uint32(br.sr & (1<<n - 1)), n
}

// drop consumes n already-buffered bits.
func (br *bitReader) drop(n uint) {
	br.sr >>= n
}

// align discards the bits remaining in the current byte.
func (br *bitReader) align() {
	n := br.avail() % 8
	br.sr >>= n
}

// copyBytes copies len(dst) byte-aligned bytes, draining the buffer first.
func (br *bitReader) copyBytes(dst []byte) error {
	for len(dst) > 0 && br.avail() >= 8 {
		dst[0] = byte(br.sr)
		br.sr >>= 8
		dst = dst[1:]
	}
	if len(dst) == 0 {
		return nil
	}
	if len(dst) > len(br.in)-br.pos {
		return ErrTruncated
	}
	br.pos += copy(dst, br.in[br.pos:])
	return nil
}
