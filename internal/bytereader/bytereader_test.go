package bytereader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderChecked(t *testing.T) {
	r := New([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 'a', 'b', 0, 'c'})

	v8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v8)

	v16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), v16)

	v32, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x07060504), v32)

	assert.Equal(t, 7, r.Pos())
	require.NoError(t, r.Skip(2))

	s, err := r.CString()
	require.NoError(t, err)
	assert.Equal(t, "ab", string(s))

	_, err = r.CString()
	assert.ErrorIs(t, err, ErrShortRead, "unterminated string")

	_, err = r.U16()
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Equal(t, 12, r.Pos(), "failed reads must not move the cursor")

	_, err = r.U64()
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReaderAbsolute(t *testing.T) {
	r := New([]byte{0xEF, 0xBE, 0xAD, 0xDE, 0x0D, 0xF0, 0xAD, 0xBA})

	v, err := r.U32At(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)

	v64, err := r.U64At(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xBAADF00DDEADBEEF), v64)

	for _, x := range []struct {
		Off uint64
		N   uint64
		OK  bool
	}{
		{0, 8, true},
		{8, 0, true},
		{7, 1, true},
		{7, 2, false},
		{9, 0, false},
		{1 << 63, 1, false},
		{1, 1<<64 - 1, false},
	} {
		_, err := r.Span(x.Off, x.N)
		if x.OK {
			assert.NoError(t, err, "span(%d, %d)", x.Off, x.N)
		} else {
			assert.ErrorIs(t, err, ErrShortRead, "span(%d, %d)", x.Off, x.N)
		}
	}

	_, err = r.U32At(5)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.Error(t, r.Seek(9))
	assert.NoError(t, r.Seek(8))
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderFast(t *testing.T) {
	r := New([]byte{1, 0, 2, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0})
	assert.Equal(t, uint16(1), r.U16Fast())
	assert.Equal(t, uint32(2), r.U32Fast())
	assert.Equal(t, uint64(3), r.U64Fast())
	assert.Panics(t, func() { r.U8Fast() })
}
