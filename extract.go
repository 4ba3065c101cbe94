package ba2vfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pg9182/ba2vfs/internal/bytereader"
	"github.com/pg9182/ba2vfs/internal/lz4"
)

// Upper bounds on the expansion of a single compressed block.
const (
	maxDeflateRatio = 1032
	maxLZ4Ratio     = 255
)

// grow returns a slice of length n, reusing dst if it is large enough. It
// never returns nil.
func grow(dst []byte, n uint64) []byte {
	if dst != nil && uint64(cap(dst)) >= n {
		return dst[:n]
	}
	return make([]byte, n)
}

// checkUnpacked validates the size of a block before a buffer is allocated for
// it. Stored blocks must be inside data, and compressed ones must not claim to
// expand further than their codec allows.
func checkUnpacked(data []byte, off, unpacked, packed uint64, rawLZ4 bool) error {
	if packed == 0 {
		return checkSpan(off, unpacked, len(data))
	}
	if err := checkSpan(off, packed, len(data)); err != nil {
		return err
	}
	ratio := uint64(maxDeflateRatio)
	if rawLZ4 || (packed >= 2 && uint16(data[off])<<8|uint16(data[off+1]) == lz4FrameTag) {
		ratio = maxLZ4Ratio
	}
	if unpacked > packed*ratio {
		return fmt.Errorf("%w: %d compressed bytes cannot expand to %d bytes", ErrCorrupt, packed, unpacked)
	}
	return nil
}

func (x *Index) archiveData(e *Entry) []byte {
	return x.archives[e.loc.archive].data
}

// SizeOf returns the size of the named file once extracted, or if packed is
// true and the file is compressed, the size of the compressed data.
func (x *Index) SizeOf(name string, packed bool) (int64, error) {
	e, err := x.find("size", name)
	if err != nil {
		return 0, err
	}
	return x.EntrySize(e, packed)
}

// EntrySize is like SizeOf, but takes an entry.
func (x *Index) EntrySize(e *Entry, packed bool) (int64, error) {
	if packed && e.packed != 0 {
		return int64(e.packed), nil
	}
	if e.format == FormatBSA && e.flags != 0 {
		_, size, _, err := x.bsaPayload(e)
		if err != nil {
			return 0, err
		}
		return int64(size), nil
	}
	return int64(e.unpacked), nil
}

// bsaPayload skips the full name prefix and reads the embedded unpacked size of
// a BSA member, returning the data offset, unpacked size, and packed size.
func (x *Index) bsaPayload(e *Entry) (off, unpacked, packed uint64, err error) {
	r := bytereader.New(x.archiveData(e))
	off, unpacked, packed = e.loc.offset, uint64(e.unpacked), uint64(e.packed)
	if e.flags&bsaFullName != 0 {
		n, err := r.U8At(off)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: read %s name prefix: %w", ErrFormat, e.name, err)
		}
		skip := uint64(n) + 1
		off += skip
		if e.flags&bsaCompressed == 0 {
			if skip > unpacked {
				return 0, 0, 0, fmt.Errorf("%w: %s name prefix is larger than the file", ErrFormat, e.name)
			}
			unpacked -= skip
		}
	}
	if e.flags&bsaCompressed != 0 {
		v, err := r.U32At(off)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: read %s unpacked size: %w", ErrFormat, e.name, err)
		}
		off += 4
		unpacked = uint64(v)
		skip := off - e.loc.offset
		if skip > packed {
			return 0, 0, 0, fmt.Errorf("%w: %s prefix is larger than the packed data", ErrFormat, e.name)
		}
		packed -= skip
		if packed == 0 && unpacked != 0 {
			return 0, 0, 0, fmt.Errorf("%w: %s has no compressed data", ErrFormat, e.name)
		}
	}
	return off, unpacked, packed, nil
}

// extractBlock fills out from packed bytes at off, or if packed is zero, from
// len(out) uncompressed bytes at off.
func (x *Index) extractBlock(out, data []byte, off, packed uint64, rawLZ4 bool) error {
	r := bytereader.New(data)
	if packed == 0 {
		src, err := r.Span(off, uint64(len(out)))
		if err != nil {
			return fmt.Errorf("%w: invalid data offset or size: %w", ErrFormat, err)
		}
		copy(out, src)
		return nil
	}
	src, err := r.Span(off, packed)
	if err != nil {
		return fmt.Errorf("%w: invalid packed data offset or size: %w", ErrFormat, err)
	}
	var n int
	if rawLZ4 {
		n, err = lz4.DecodeBlock(out, src)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	} else {
		n, err = x.decompress(out, src)
	}
	if err != nil {
		return err
	}
	if n != len(out) {
		return fmt.Errorf("%w: decompressed %d bytes, expected %d", ErrCorrupt, n, len(out))
	}
	return nil
}

// ReadFile extracts the named file into a new buffer.
func (x *Index) ReadFile(name string) ([]byte, error) {
	e, err := x.find("read", name)
	if err != nil {
		return nil, err
	}
	return x.ExtractEntry(nil, e)
}

// ExtractEntry extracts e, reusing the capacity of dst if possible. The
// returned slice is owned by the caller. Textures are returned as DDS files.
func (x *Index) ExtractEntry(dst []byte, e *Entry) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case e.format == FormatLoose:
		b, err = x.readLoose(dst, e)
	case e.format.IsTexture():
		b, _, err = x.extractTexture(dst, e, 0)
	default:
		b, err = x.extractMember(dst, e)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", e.name, err)
	}
	return b, nil
}

func (x *Index) extractMember(dst []byte, e *Entry) ([]byte, error) {
	off, unpacked, packed := e.loc.offset, uint64(e.unpacked), uint64(e.packed)
	if e.format == FormatBSA && e.flags != 0 {
		var err error
		if off, unpacked, packed, err = x.bsaPayload(e); err != nil {
			return nil, err
		}
	}
	data := x.archiveData(e)
	if err := checkUnpacked(data, off, unpacked, packed, false); err != nil {
		return nil, err
	}
	b := grow(dst, unpacked)
	if unpacked != 0 {
		if err := x.extractBlock(b, data, off, packed, false); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// View returns the contents of the named file. If the file is stored
// uncompressed in an archive, the returned slice points directly into the
// mapped archive and must not be modified or used after the Index is closed.
// Otherwise, it is extracted into buf as with ExtractEntry.
func (x *Index) View(name string, buf []byte) ([]byte, error) {
	e, err := x.find("read", name)
	if err != nil {
		return nil, err
	}
	return x.ViewEntry(e, buf)
}

// ViewEntry is like View, but takes an entry.
func (x *Index) ViewEntry(e *Entry, buf []byte) ([]byte, error) {
	if e.packed != 0 || e.format == FormatLoose || e.format.IsTexture() {
		return x.ExtractEntry(buf, e)
	}
	off, unpacked := e.loc.offset, uint64(e.unpacked)
	if e.format == FormatBSA && e.flags != 0 {
		var err error
		if off, unpacked, _, err = x.bsaPayload(e); err != nil {
			return nil, fmt.Errorf("extract %s: %w", e.name, err)
		}
	}
	b, err := bytereader.New(x.archiveData(e)).Span(off, unpacked)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w: invalid data offset or size: %w", e.name, ErrFormat, err)
	}
	return b, nil
}

// readLoose reads a loose file, checking that its size has not changed.
func (x *Index) readLoose(dst []byte, e *Entry) ([]byte, error) {
	f, err := os.Open(e.loc.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() != int64(e.unpacked) {
		return nil, fmt.Errorf("%w %s (%d != %d)", ErrSizeChanged, e.loc.path, st.Size(), e.unpacked)
	}
	b := grow(dst, uint64(e.unpacked))
	if _, err := io.ReadFull(f, b); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w %s", ErrSizeChanged, e.loc.path)
		}
		return nil, err
	}
	return b, nil
}

// ExtractTexture extracts the named file like ExtractEntry, but for BA2
// textures, skips up to mipSkip of the largest mipmaps where the chunk layout
// allows it, returning the number of mipmaps which could not be skipped. The
// DDS header reflects the remaining mipmaps. Other files are extracted as-is,
// and mipSkip is returned unchanged.
func (x *Index) ExtractTexture(name string, mipSkip int, dst []byte) ([]byte, int, error) {
	e, err := x.find("read", name)
	if err != nil {
		return nil, 0, err
	}
	if !e.format.IsTexture() {
		b, err := x.ExtractEntry(dst, e)
		return b, mipSkip, err
	}
	b, rem, err := x.extractTexture(dst, e, mipSkip)
	if err != nil {
		return nil, 0, fmt.Errorf("extract %s: %w", e.name, err)
	}
	return b, rem, nil
}

// texInfo is a parsed BA2 texture record.
type texInfo struct {
	height, width int
	mips          int
	dxgi          uint8
	cube          bool
	chunks        []byte // 24-byte chunk records
}

func (x *Index) texture(e *Entry) (texInfo, error) {
	r := bytereader.New(x.archiveData(e))
	hdr, err := r.Span(e.loc.offset, ba2TexRecordSize)
	if err != nil {
		return texInfo{}, fmt.Errorf("%w: read texture record: %w", ErrFormat, err)
	}
	chunks, err := r.Span(e.loc.offset+ba2TexRecordSize, uint64(hdr[ba2TexChunkCountAt])*ba2TexChunkSize)
	if err != nil {
		return texInfo{}, fmt.Errorf("%w: read texture chunks: %w", ErrFormat, err)
	}
	return texInfo{
		height: int(bytereader.U16(hdr[16:])),
		width:  int(bytereader.U16(hdr[18:])),
		mips:   int(hdr[20]),
		dxgi:   hdr[21],
		cube:   hdr[22]&1 != 0,
		chunks: chunks,
	}, nil
}

func (x *Index) extractTexture(dst []byte, e *Entry, mipSkip int) ([]byte, int, error) {
	t, err := x.texture(e)
	if err != nil {
		return nil, 0, err
	}

	// skip whole chunks while they fit in mipSkip, always keeping the last
	chunks := t.chunks
	for len(chunks) > ba2TexChunkSize {
		m := int(bytereader.U16(chunks[18:])) + 1 - int(bytereader.U16(chunks[16:]))
		if m <= 0 || m > mipSkip || m >= t.mips {
			break
		}
		mipSkip -= m
		t.mips -= m
		t.width = max(t.width>>m, 1)
		t.height = max(t.height>>m, 1)
		chunks = chunks[ba2TexChunkSize:]
	}

	data := x.archiveData(e)
	size := uint64(ddsHeaderSize)
	for c := chunks; len(c) != 0; c = c[ba2TexChunkSize:] {
		unpacked := uint64(bytereader.U32(c[12:]))
		if err := checkUnpacked(data, bytereader.U64(c), unpacked, uint64(bytereader.U32(c[8:])), e.format == FormatTextureLZ4); err != nil {
			return nil, 0, err
		}
		size += unpacked
	}
	b := grow(dst, size)
	if err := WriteDDSHeader(b, t.dxgi, t.width, t.height, t.mips, t.cube); err != nil {
		return nil, 0, err
	}

	pos := uint64(ddsHeaderSize)
	for c := chunks; len(c) != 0; c = c[ba2TexChunkSize:] {
		off := bytereader.U64(c)
		packed := uint64(bytereader.U32(c[8:]))
		unpacked := uint64(bytereader.U32(c[12:]))
		if err := x.extractBlock(b[pos:pos+unpacked], data, off, packed, e.format == FormatTextureLZ4); err != nil {
			return nil, 0, err
		}
		pos += unpacked
	}
	return b, mipSkip, nil
}
