package inflate

import "errors"

var (
	// ErrCorrupt is returned for malformed DEFLATE or zlib streams.
	ErrCorrupt = errors.New("inflate: corrupt input")

	// ErrChecksum is returned when the Adler-32 trailer does not match the
	// decompressed bytes.
	ErrChecksum = errors.New("inflate: checksum mismatch")

	// ErrOverflow is returned when the stream decodes to more bytes than the
	// output buffer can hold.
	ErrOverflow = errors.New("inflate: output buffer too small")

	// ErrTruncated is returned when the input ends before the final block.
	ErrTruncated = errors.New("inflate: unexpected end of input")
)
