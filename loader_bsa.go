package ba2vfs

import (
	"fmt"
	"strings"

	"github.com/pg9182/ba2vfs/internal/bytereader"
)

// BSA archive flags.
const (
	bsaFlagDirNames        = 0x001
	bsaFlagFileNames       = 0x002
	bsaFlagCompressed      = 0x004
	bsaFlagEmbedNames      = 0x100
	bsaFlagsIgnored        = 0x1BC
	bsaFlagsIgnored103     = 0x700
	bsaSizeCompressedBit   = 0x40000000
	bsaHeaderSize          = 36
	bsaFileRecordSize      = 16
	bsaFolderRecordSize    = 16
	bsaFolderRecordSize105 = 24
)

func (x *Index) loadBSA(a *archive, id int) (int, error) {
	r := bytereader.New(a.data)
	r.Seek(12)

	flags, err := r.U32()
	if err != nil {
		return 0, err
	}
	if a.version < 104 {
		flags &^= bsaFlagsIgnored103
	}
	if flags&^bsaFlagsIgnored != bsaFlagDirNames|bsaFlagFileNames {
		return 0, fmt.Errorf("%w: unsupported BSA flags %#x", ErrFormat, flags)
	}
	folderCnt, err := r.U32()
	if err != nil {
		return 0, err
	}
	fileCnt, err := r.U32()
	if err != nil {
		return 0, err
	}

	// total folder name length, total file name length, file flags, padding
	if err := r.Skip(12); err != nil {
		return 0, err
	}

	stride := uint64(bsaFolderRecordSize)
	if a.version >= 105 {
		stride = bsaFolderRecordSize105
	}
	foldersEnd := bsaHeaderSize + uint64(folderCnt)*stride
	if foldersEnd > uint64(r.Len()) || uint64(fileCnt)*bsaFileRecordSize > uint64(r.Len()) {
		return 0, fmt.Errorf("%w: invalid BSA header (%d folders, %d files, size %d)", ErrFormat, folderCnt, fileCnt, r.Len())
	}

	counts := make([]uint32, folderCnt)
	for i := range counts {
		// u64 hash, u32 count, u32 or u64 offset
		counts[i] = bytereader.U32(a.data[bsaHeaderSize+uint64(i)*stride+8:])
	}

	// folder name, then a (hash, size|offset<<32) pair for each file
	r.Seek(foldersEnd)
	folders := make([]string, folderCnt)
	files := make([]uint64, 0, fileCnt)
	var sb strings.Builder
	for i, cnt := range counts {
		l, err := r.U8()
		if err != nil {
			return 0, fmt.Errorf("%w: read folder name: %w", ErrFormat, err)
		}
		b, err := r.Bytes(int(l))
		if err != nil {
			return 0, fmt.Errorf("%w: read folder name: %w", ErrFormat, err)
		}
		sb.Reset()
		for _, c := range b {
			if sb.Len() == 0 && (c == '.' || c == '/' || c == '\\') {
				continue
			}
			if c != 0 {
				sb.WriteByte(fixNameChar(c))
			}
		}
		if s := sb.String(); s != "" && !strings.HasSuffix(s, "/") {
			sb.WriteByte('/')
		}
		folders[i] = sb.String()

		if uint64(len(files))+uint64(cnt) > uint64(fileCnt) {
			return 0, fmt.Errorf("%w: invalid file count in BSA archive", ErrFormat)
		}
		for range cnt {
			if err := r.Skip(8); err != nil {
				return 0, fmt.Errorf("%w: read file record: %w", ErrFormat, err)
			}
			v, err := r.U64()
			if err != nil {
				return 0, fmt.Errorf("%w: read file record: %w", ErrFormat, err)
			}
			files = append(files, v^uint64(flags&bsaFlagCompressed)<<28)
		}
	}
	if len(files) != int(fileCnt) {
		return 0, fmt.Errorf("%w: invalid file count in BSA archive (%d != %d)", ErrFormat, len(files), fileCnt)
	}

	var efl uint8
	if flags&bsaFlagEmbedNames != 0 {
		efl |= bsaFullName
	}

	var n, k int
	for i, folder := range folders {
		for range counts[i] {
			b, err := r.CString()
			if err != nil {
				return n, fmt.Errorf("%w: read file name: %w", ErrFormat, err)
			}
			sb.Reset()
			sb.WriteString(folder)
			for _, c := range b {
				sb.WriteByte(fixNameChar(c))
			}
			name := sb.String()

			v := files[k]
			k++

			tmpl := Entry{
				loc:      ArchiveLocation(id, v>>32),
				unpacked: uint32(v) & 0x7FFFFFFF,
				format:   FormatBSA,
				version:  uint16(a.version),
				flags:    efl,
			}
			sz := tmpl.unpacked
			if tmpl.unpacked&bsaSizeCompressedBit != 0 {
				tmpl.flags |= bsaCompressed
				tmpl.packed = tmpl.unpacked &^ bsaSizeCompressedBit
				tmpl.unpacked = 0
				sz = tmpl.packed
			}
			if err := checkSpan(tmpl.loc.offset, uint64(sz), len(a.data)); err != nil {
				return n, fmt.Errorf("file %q: %w", name, err)
			}
			if _, ok := x.insert(name, tmpl); ok {
				n++
			}
		}
	}
	return n, nil
}
