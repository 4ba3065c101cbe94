package ba2vfs

import (
	"fmt"

	"github.com/pg9182/ba2vfs/internal/bytereader"
)

const (
	ba2RecordSize      = 36
	ba2TexRecordSize   = 24
	ba2TexChunkSize    = 24
	ba2TexMinRecord    = 48
	ddsHeaderSize      = 148
	ba2TexChunkCountAt = 13
)

// readBA2Header reads the file count and name table offset following the
// magic, version and type, and validates them against the record size.
func readBA2Header(r *bytereader.Reader, hdrSize int, recSize uint64) (uint32, uint64, error) {
	if err := r.Seek(12); err != nil {
		return 0, 0, err
	}
	fileCnt, err := r.U32()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read file count: %w", ErrFormat, err)
	}
	nameOffs, err := r.U64()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read name table offset: %w", ErrFormat, err)
	}
	if nameOffs > uint64(r.Len()) || uint64(fileCnt)*recSize+uint64(hdrSize) > nameOffs {
		return 0, 0, fmt.Errorf("%w: invalid BA2 file header (%d files, name table at %#x, size %d)", ErrFormat, fileCnt, nameOffs, r.Len())
	}
	return fileCnt, nameOffs, nil
}

// readBA2Name reads a u16 length-prefixed name from the name table.
func readBA2Name(r *bytereader.Reader) (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", fmt.Errorf("%w: read name length at %#x: %w", ErrFormat, r.Pos(), err)
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", fmt.Errorf("%w: read name at %#x: %w", ErrFormat, r.Pos(), err)
	}
	return string(b), nil
}

// checkSpan validates that n bytes at off are inside an archive of size sz.
func checkSpan(off, n uint64, sz int) error {
	if off > uint64(sz) || n > uint64(sz)-off {
		return fmt.Errorf("%w: data at %#x (%d bytes) is outside the archive (%d bytes)", ErrFormat, off, n, sz)
	}
	return nil
}

func (x *Index) loadBA2General(a *archive, id int) (int, error) {
	r := bytereader.New(a.data)
	fileCnt, nameOffs, err := readBA2Header(r, a.hdrSize, ba2RecordSize)
	if err != nil {
		return 0, err
	}
	r.Seek(nameOffs)

	var n int
	for i := range uint64(fileCnt) {
		name, err := readBA2Name(r)
		if err != nil {
			return n, err
		}

		//  0 u32 crc32 of base name without extension
		//  4 u32 extension
		//  8 u32 crc32 of directory name
		// 12 u32 flags
		// 16 u64 data offset
		// 24 u32 packed size
		// 28 u32 unpacked size
		// 32 u32 0xBAADF00D
		rec := a.data[uint64(a.hdrSize)+i*ba2RecordSize:]
		tmpl := Entry{
			loc:      ArchiveLocation(id, bytereader.U64(rec[16:])),
			packed:   bytereader.U32(rec[24:]),
			unpacked: bytereader.U32(rec[28:]),
			format:   FormatGeneral,
		}
		sz := tmpl.unpacked
		if tmpl.packed != 0 {
			sz = tmpl.packed
		}
		if err := checkSpan(tmpl.loc.offset, uint64(sz), len(a.data)); err != nil {
			return n, fmt.Errorf("file %q: %w", name, err)
		}
		if _, ok := x.insert(name, tmpl); ok {
			n++
		}
	}
	return n, nil
}

func (x *Index) loadBA2Textures(a *archive, id int) (int, error) {
	r := bytereader.New(a.data)
	fileCnt, nameOffs, err := readBA2Header(r, a.hdrSize, ba2TexMinRecord)
	if err != nil {
		return 0, err
	}
	nr := bytereader.New(a.data)
	nr.Seek(nameOffs)
	r.Seek(uint64(a.hdrSize))

	var n int
	for range fileCnt {
		name, err := readBA2Name(nr)
		if err != nil {
			return n, err
		}

		//  0 u32 crc32 of base name without extension
		//  4 u32 extension
		//  8 u32 crc32 of directory name
		// 12 u8  unknown
		// 13 u8  number of chunks
		// 14 u16 chunk header size
		// 16 u16 height
		// 18 u16 width
		// 20 u8  number of mipmaps
		// 21 u8  DXGI format
		// 22 u16 flags (bit 0 is cube map)
		off := uint64(r.Pos())
		hdr, err := r.Span(off, ba2TexRecordSize)
		if err != nil {
			return n, fmt.Errorf("%w: texture record %q: %w", ErrFormat, name, err)
		}
		chunkCnt := uint64(hdr[ba2TexChunkCountAt])
		rec, err := r.Bytes(int((chunkCnt + 1) * ba2TexChunkSize))
		if err != nil {
			return n, fmt.Errorf("%w: texture record %q: %w", ErrFormat, name, err)
		}

		//  0 u64 data offset
		//  8 u32 packed size
		// 12 u32 unpacked size
		// 16 u16 start mip
		// 18 u16 end mip
		// 20 u32 0xBAADF00D
		packed, unpacked := uint64(0), uint64(ddsHeaderSize)
		for c := rec[ba2TexRecordSize:]; len(c) != 0; c = c[ba2TexChunkSize:] {
			cp, cu := bytereader.U32(c[8:]), bytereader.U32(c[12:])
			sz := cu
			if cp != 0 {
				sz = cp
			}
			if err := checkSpan(bytereader.U64(c), uint64(sz), len(a.data)); err != nil {
				return n, fmt.Errorf("texture %q chunk: %w", name, err)
			}
			packed += uint64(cp)
			unpacked += uint64(cu)
		}
		if packed > 0xFFFFFFFF || unpacked > 0xFFFFFFFF {
			return n, fmt.Errorf("%w: texture %q is too large", ErrFormat, name)
		}
		if _, ok := x.insert(name, Entry{
			loc:      ArchiveLocation(id, off),
			packed:   uint32(packed),
			unpacked: uint32(unpacked),
			format:   a.format,
		}); ok {
			n++
		}
	}
	return n, nil
}
