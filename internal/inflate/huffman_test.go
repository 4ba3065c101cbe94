package inflate

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitWriter writes DEFLATE's LSB-first bit stream.
type bitWriter struct {
	b    []byte
	acc  uint64
	nacc uint
}

func (w *bitWriter) bits(v uint32, n uint) {
	w.acc |= uint64(v) << w.nacc
	w.nacc += n
	for w.nacc >= 8 {
		w.b = append(w.b, byte(w.acc))
		w.acc >>= 8
		w.nacc -= 8
	}
}

// code writes a Huffman code, which is stored MSB-first.
func (w *bitWriter) code(c uint16, n uint8) {
	w.bits(reverse(uint32(c), uint(n)), uint(n))
}

func (w *bitWriter) bytes() []byte {
	if w.nacc > 0 {
		w.bits(0, 8-w.nacc%8)
	}
	return w.b
}

// canonical assigns canonical codes for lens.
func canonical(lens []uint8) []uint16 {
	var count, next [maxCodeLen + 1]uint16
	for _, l := range lens {
		count[l]++
	}
	count[0] = 0
	var code uint16
	for l := 1; l <= maxCodeLen; l++ {
		code = (code + count[l-1]) << 1
		next[l] = code
	}
	codes := make([]uint16, len(lens))
	for i, l := range lens {
		if l != 0 {
			codes[i] = next[l]
			next[l]++
		}
	}
	return codes
}

func TestHuffmanEveryLength(t *testing.T) {
	// a complete code with one symbol of each length 1..14 and two of 15
	lens := make([]uint8, 16)
	for i := range 15 {
		lens[i] = uint8(i + 1)
	}
	lens[15] = 15
	codes := canonical(lens)

	var h huffman
	require.NoError(t, h.build(lens))
	assert.Equal(t, 16, h.n)

	var w bitWriter
	order := []int{15, 0, 7, 8, 9, 14, 1, 13, 2, 12, 3, 11, 4, 10, 5, 6}
	for _, sym := range order {
		w.code(codes[sym], lens[sym])
	}
	br := newBitReader(w.bytes())
	for _, sym := range order {
		got, err := h.decode(&br)
		require.NoError(t, err, "symbol %d (length %d)", sym, lens[sym])
		assert.Equal(t, sym, got, "length %d", lens[sym])
	}
}

func TestHuffmanBuildErrors(t *testing.T) {
	var h huffman
	assert.ErrorIs(t, h.build([]uint8{1, 1, 1}), ErrCorrupt, "over-subscribed")
	assert.ErrorIs(t, h.build([]uint8{16}), ErrCorrupt, "length too long")
	assert.NoError(t, h.build([]uint8{0, 1}), "single code")
	assert.NoError(t, h.build(make([]uint8, 30)), "empty")

	// incomplete codes build, but unassigned patterns fail to decode
	require.NoError(t, h.build([]uint8{2, 2, 2, 0}))
	br := newBitReader([]byte{0xFF, 0xFF})
	_, err := h.decode(&br)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFixedTables(t *testing.T) {
	assert.Equal(t, 288, fixedLit.n)
	assert.Equal(t, 32, fixedDist.n)

	// 0..143 are 8 bits starting at 00110000
	e := fixedLit.fast[reverse(0x30, 8)]
	assert.Equal(t, uint32(0)<<8|8, e)
	// 256..279 are 7 bits starting at 0000000
	e = fixedLit.fast[0]
	assert.Equal(t, uint32(256)<<8|7, e)
	// 144..255 are 9 bits, so not in the fast table
	assert.Zero(t, fixedLit.fast[reverse(0xC8, 8)])
}

func TestDynamicRLE(t *testing.T) {
	// literal/length code: a-f, end-of-block and length 3, all 3 bits
	litLens := make([]uint8, 258)
	for _, s := range []int{'a', 'b', 'c', 'd', 'e', 'f', 256, 257} {
		litLens[s] = 3
	}
	litCodes := canonical(litLens)
	distLens := []uint8{1}
	distCodes := canonical(distLens)

	// code length code: 0-12 get 4 bits, 13-18 get 5 bits
	clLens := make([]uint8, 19)
	for i := range clLens {
		clLens[i] = 4
		if i >= 13 {
			clLens[i] = 5
		}
	}
	clCodes := canonical(clLens)
	cl := func(w *bitWriter, sym int) { w.code(clCodes[sym], clLens[sym]) }

	var w bitWriter
	w.bits(1, 1)  // final
	w.bits(2, 2)  // dynamic
	w.bits(1, 5)  // 258 literal/length codes
	w.bits(0, 5)  // 1 distance code
	w.bits(15, 4) // 19 code length codes
	for _, i := range clenOrder {
		w.bits(uint32(clLens[i]), 3)
	}
	cl(&w, 18) // 97 zeros
	w.bits(97-11, 7)
	cl(&w, 3)  // a
	cl(&w, 16) // b-f
	w.bits(5-3, 2)
	cl(&w, 18) // 138 zeros
	w.bits(138-11, 7)
	cl(&w, 17) // 10 zeros
	w.bits(10-3, 3)
	cl(&w, 17) // 5 zeros
	w.bits(5-3, 3)
	cl(&w, 3) // 256
	cl(&w, 3) // 257
	cl(&w, 1) // distance 0

	for _, c := range "abcdef" {
		w.code(litCodes[c], 3)
	}
	w.code(litCodes[257], 3) // length 3
	w.code(distCodes[0], 1)  // distance 1
	w.code(litCodes[256], 3)
	raw := w.bytes()

	out := make([]byte, 9)
	n, err := Raw(out, raw)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "abcdeffff", string(out))

	z := append([]byte{0x78, 0x01}, raw...)
	z = binary.BigEndian.AppendUint32(z, Adler32(1, out))
	n, err = Zlib(make([]byte, 9), z)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestDynamicErrors(t *testing.T) {
	for _, x := range []struct {
		Name  string
		Write func(w *bitWriter)
	}{
		{"RepeatFirst", func(w *bitWriter) {
			w.bits(0b101, 3)
			w.bits(0, 5)
			w.bits(0, 5)
			w.bits(15, 4)
			for range 19 {
				w.bits(5, 3) // incomplete, every symbol is 5 bits
			}
			w.code(16, 5) // repeat with nothing before it
			w.bits(0, 2)
		}},
		{"TooManyLengths", func(w *bitWriter) {
			w.bits(0b101, 3)
			w.bits(30, 5) // 287 literal/length codes
			w.bits(0, 5)
			w.bits(0, 4)
		}},
	} {
		t.Run(x.Name, func(t *testing.T) {
			var w bitWriter
			x.Write(&w)
			w.bits(0, 32)
			_, err := Raw(make([]byte, 16), w.bytes())
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestFixedBackReference(t *testing.T) {
	// "ab" then a length 10, distance 2 copy overlapping its own output
	var w bitWriter
	w.bits(1, 1)
	w.bits(1, 2)
	w.code(0x30+'a', 8)
	w.code(0x30+'b', 8)
	w.code(264-256, 7) // length 10
	w.code(1, 5)       // distance 2
	w.code(0, 7)       // end of block
	out := make([]byte, 12)
	n, err := Raw(out, w.bytes())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "abababababab", string(out))

	// distance past the start of the output
	w = bitWriter{}
	w.bits(1, 1)
	w.bits(1, 2)
	w.code(0x30+'a', 8)
	w.code(257-256, 7) // length 3
	w.code(1, 5)       // distance 2
	w.code(0, 7)
	_, err = Raw(make([]byte, 12), w.bytes())
	assert.ErrorIs(t, err, ErrCorrupt)
}
