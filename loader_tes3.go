package ba2vfs

import (
	"fmt"

	"github.com/pg9182/ba2vfs/internal/bytereader"
)

// loadTES3 loads a Morrowind BSA: a header, (size, offset) pairs, name
// offsets, the name table, a hash table, then the file data.
func (x *Index) loadTES3(a *archive, id int) (int, error) {
	r := bytereader.New(a.data)
	r.Seek(4)

	hashOffs, err := r.U32()
	if err != nil {
		return 0, err
	}
	fileCnt, err := r.U32()
	if err != nil {
		return 0, err
	}
	if uint64(fileCnt)*12 > uint64(r.Remaining()) {
		return 0, fmt.Errorf("%w: invalid Morrowind BSA header (%d files, size %d)", ErrFormat, fileCnt, r.Len())
	}
	dataOffs := uint64(hashOffs) + uint64(fileCnt)*8 + 12

	recs := make([]uint64, fileCnt)
	for i := range recs {
		recs[i] = r.U64Fast()
	}
	nameOffs := make([]uint32, fileCnt)
	for i := range nameOffs {
		nameOffs[i] = r.U32Fast()
	}
	nameTable := uint64(r.Pos())

	var n int
	for i, rec := range recs {
		off := nameTable + uint64(nameOffs[i])
		if off >= uint64(r.Len()) {
			return n, fmt.Errorf("%w: invalid file name offset in Morrowind BSA", ErrFormat)
		}
		r.Seek(off)
		b, err := r.CString()
		if err != nil {
			return n, fmt.Errorf("%w: read file name: %w", ErrFormat, err)
		}
		name := make([]byte, len(b))
		for j, c := range b {
			name[j] = fixNameChar(c)
		}

		doff, dsize := dataOffs+rec>>32, uint32(rec)
		if err := checkSpan(doff, uint64(dsize), r.Len()); err != nil {
			return n, fmt.Errorf("invalid file data offset in Morrowind BSA: file %q: %w", name, err)
		}
		if _, ok := x.insert(string(name), Entry{
			loc:      ArchiveLocation(id, doff),
			unpacked: dsize,
			format:   FormatTES3,
		}); ok {
			n++
		}
	}
	return n, nil
}
