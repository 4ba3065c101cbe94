package ba2vfs

import (
	"fmt"

	"github.com/pg9182/ba2vfs/internal/inflate"
	"github.com/pg9182/ba2vfs/internal/lz4"
)

// lz4FrameTag is the first two bytes of an LZ4 frame, read big-endian.
const lz4FrameTag = 0x0422

// DecompressData decompresses a zlib stream or LZ4 frame from in into out,
// returning the number of bytes written. The format is detected from the
// first two bytes.
func DecompressData(out, in []byte) (int, error) {
	if len(in) < 2 {
		return 0, fmt.Errorf("%w: compressed data is too short (%d bytes)", ErrFormat, len(in))
	}
	switch tag := uint16(in[0])<<8 | uint16(in[1]); {
	case tag == lz4FrameTag:
		n, err := lz4.DecodeFrame(out, in)
		if err != nil {
			return n, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return n, nil
	case inflate.ValidZlibHeader(tag):
		n, err := inflate.Zlib(out, in)
		if err != nil {
			return n, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized compressed data header %04X", ErrFormat, tag)
	}
}

// decompress is DecompressData, additionally verifying LZ4 frame checksums
// if enabled.
func (x *Index) decompress(out, in []byte) (int, error) {
	n, err := DecompressData(out, in)
	if err == nil && x.verifyLZ4 && len(in) >= 2 && uint16(in[0])<<8|uint16(in[1]) == lz4FrameTag {
		if err := lz4.VerifyFrame(in, n); err != nil {
			return n, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	return n, err
}
