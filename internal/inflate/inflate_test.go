package inflate

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns compressible data with a mix of literals and repeats.
func sample(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	words := []string{"textures/", "meshes/", "actors/", "armor/", ".dds", ".nif", "_n", "_d", "\x00\x00\x00\x00", "\xff"}
	var b bytes.Buffer
	for b.Len() < n {
		if r.IntN(4) == 0 {
			b.WriteByte(byte(r.Uint32()))
		} else {
			b.WriteString(words[r.IntN(len(words))])
		}
	}
	return b.Bytes()[:n]
}

func zlibCompress(t *testing.T, data []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func flateCompress(t *testing.T, data []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZlibKnownVectors(t *testing.T) {
	for _, x := range []struct {
		Name string
		In   []byte
		Out  string
	}{
		{"a", []byte{0x78, 0x9c, 0x4b, 0x04, 0x00, 0x00, 0x62, 0x00, 0x62}, "a"},
		{"hello", []byte{0x78, 0x9c, 0xcb, 0x48, 0xcd, 0xc9, 0xc9, 0x07, 0x00, 0x06, 0x2c, 0x02, 0x15}, "hello"},
	} {
		t.Run(x.Name, func(t *testing.T) {
			out := make([]byte, len(x.Out))
			n, err := Zlib(out, x.In)
			require.NoError(t, err)
			assert.Equal(t, len(x.Out), n)
			assert.Equal(t, x.Out, string(out))
		})
	}
}

func TestZlibRoundTrip(t *testing.T) {
	for _, x := range []struct {
		Name  string
		Level int
	}{
		{"Stored", flate.NoCompression},
		{"HuffmanOnly", flate.HuffmanOnly},
		{"BestSpeed", flate.BestSpeed},
		{"Default", flate.DefaultCompression},
		{"BestCompression", flate.BestCompression},
	} {
		for _, size := range []int{0, 1, 255, 4096, 70000, 300000} {
			data := sample(size, uint64(size))
			comp := zlibCompress(t, data, x.Level)

			out := make([]byte, size)
			n, err := Zlib(out, comp)
			require.NoError(t, err, "%s/%d", x.Name, size)
			assert.Equal(t, size, n, "%s/%d", x.Name, size)
			assert.True(t, bytes.Equal(data, out), "%s/%d: output differs", x.Name, size)

			raw := flateCompress(t, data, x.Level)
			out = make([]byte, size)
			n, err = Raw(out, raw)
			require.NoError(t, err, "%s/%d raw", x.Name, size)
			assert.Equal(t, size, n)
			assert.True(t, bytes.Equal(data, out), "%s/%d raw: output differs", x.Name, size)
		}
	}
}

func TestZlibShortOutput(t *testing.T) {
	data := sample(1000, 7)
	for _, level := range []int{flate.NoCompression, flate.BestSpeed, flate.BestCompression} {
		comp := zlibCompress(t, data, level)
		_, err := Zlib(make([]byte, 999), comp)
		assert.ErrorIs(t, err, ErrOverflow, "level %d", level)
	}

	// a larger buffer is fine, the caller compares sizes
	comp := zlibCompress(t, data, flate.DefaultCompression)
	n, err := Zlib(make([]byte, 2000), comp)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
}

func TestZlibErrors(t *testing.T) {
	good := zlibCompress(t, sample(5000, 3), flate.DefaultCompression)

	badSum := bytes.Clone(good)
	badSum[len(badSum)-1] ^= 1

	for _, x := range []struct {
		Name string
		In   []byte
		Err  error
	}{
		{"Empty", nil, ErrTruncated},
		{"HeaderOnly", good[:2], ErrTruncated},
		{"Truncated", good[:len(good)/2], ErrTruncated},
		{"NoTrailer", good[:len(good)-4], ErrTruncated},
		{"Checksum", badSum, ErrChecksum},
		{"BadMethod", append([]byte{0x79, 0x9c}, good[2:]...), ErrCorrupt},
		{"PresetDict", []byte{0x78, 0xbb, 0, 0, 0, 0}, ErrCorrupt},
		{"ReservedBlock", []byte{0x78, 0x01, 0x07, 0, 0, 0, 0, 0}, ErrCorrupt},
		{"StoredLength", []byte{0x78, 0x01, 0x01, 0x05, 0x00, 0xfa, 0xfe, 'h', 'e', 'l', 'l', 'o'}, ErrCorrupt},
		{"StoredTruncated", []byte{0x78, 0x01, 0x01, 0x05, 0x00, 0xfa, 0xff, 'h', 'e'}, ErrTruncated},
	} {
		t.Run(x.Name, func(t *testing.T) {
			_, err := Zlib(make([]byte, 5000), x.In)
			assert.ErrorIs(t, err, x.Err)
		})
	}
}

func TestZlibStored(t *testing.T) {
	in := []byte{0x78, 0x01, 0x01, 0x05, 0x00, 0xfa, 0xff, 'h', 'e', 'l', 'l', 'o'}
	in = binary.BigEndian.AppendUint32(in, Adler32(1, []byte("hello")))
	out := make([]byte, 5)
	n, err := Zlib(out, in)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(out))
}

func TestAdler32(t *testing.T) {
	assert.Equal(t, uint32(1), Adler32(1, nil))
	assert.Equal(t, uint32(0x00620062), Adler32(1, []byte("a")))
	assert.Equal(t, uint32(0x11E60398), Adler32(1, []byte("Wikipedia")))

	data := sample(100000, 11)
	whole := Adler32(1, data)
	part := Adler32(Adler32(1, data[:12345]), data[12345:])
	assert.Equal(t, whole, part)

	big := bytes.Repeat([]byte{0xff}, 20000)
	assert.Equal(t, adlerSlow(big), Adler32(1, big))
}

func adlerSlow(b []byte) uint32 {
	s1, s2 := uint32(1), uint32(0)
	for _, c := range b {
		s1 = (s1 + uint32(c)) % adlerMod
		s2 = (s2 + s1) % adlerMod
	}
	return s2<<16 | s1
}
