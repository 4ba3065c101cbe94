package ba2vfs

import "fmt"

// Format identifies the physical layout an Entry is stored in, which decides
// how it is extracted.
type Format uint8

const (
	FormatLoose      Format = iota // file on disk
	FormatGeneral                  // BA2 GNRL member
	FormatTexture                  // BA2 DX10 member with zlib chunks
	FormatTextureLZ4               // BA2 DX10 member with raw LZ4 chunks
	FormatBSA                      // BSA 103-105 member
	FormatTES3                     // Morrowind BSA member
)

func (f Format) String() string {
	switch f {
	case FormatLoose:
		return "loose"
	case FormatGeneral:
		return "ba2"
	case FormatTexture:
		return "ba2-dx10"
	case FormatTextureLZ4:
		return "ba2-dx10-lz4"
	case FormatBSA:
		return "bsa"
	case FormatTES3:
		return "tes3"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// IsTexture returns true for BA2 DX10 members.
func (f Format) IsTexture() bool {
	return f == FormatTexture || f == FormatTextureLZ4
}

// BSA member flags.
const (
	bsaFullName   = 1 << 0 // data starts with a length-prefixed copy of the path
	bsaCompressed = 1 << 1 // data is a u32 unpacked size followed by compressed data
)

// LooseArchive is the archive ID of loose files.
const LooseArchive = -1

// Location is where an Entry's bytes live: either an offset into an opened
// archive, or a path on disk.
type Location struct {
	archive int
	offset  uint64
	path    string
}

// ArchiveLocation returns the location of data at offset off in archive id.
func ArchiveLocation(id int, off uint64) Location {
	if id < 0 {
		panic("ba2vfs: negative archive id")
	}
	return Location{archive: id, offset: off}
}

// LooseLocation returns the location of a file on disk.
func LooseLocation(path string) Location {
	return Location{archive: LooseArchive, path: path}
}

// IsLoose returns true if the location is a file on disk.
func (l Location) IsLoose() bool {
	return l.archive == LooseArchive
}

// Archive returns the archive ID, or LooseArchive.
func (l Location) Archive() int {
	return l.archive
}

// ArchiveOffset returns the offset into the archive. It panics for loose
// files.
func (l Location) ArchiveOffset() uint64 {
	if l.IsLoose() {
		panic("ba2vfs: ArchiveOffset of loose file location")
	}
	return l.offset
}

// LoosePath returns the file system path. It panics for archive members.
func (l Location) LoosePath() string {
	if !l.IsLoose() {
		panic("ba2vfs: LoosePath of archive member location")
	}
	return l.path
}

func (l Location) String() string {
	if l.IsLoose() {
		return l.path
	}
	return fmt.Sprintf("archive %d @ %#x", l.archive, l.offset)
}

// Entry is a single indexed file. Entries are owned by the Index, are
// immutable once inserted, and stay valid until the Index is closed.
//
// For textures, the location points to the 24-byte texture record in the
// archive, and the sizes include the synthesized 148-byte DDS header.
type Entry struct {
	name     string
	hash     uint64
	loc      Location
	packed   uint32
	unpacked uint32
	format   Format
	version  uint16 // BSA version (103-105)
	flags    uint8
}

// Name returns the normalized path.
func (e *Entry) Name() string { return e.name }

// Hash returns the hash table key (see HashPath).
func (e *Entry) Hash() uint64 { return e.hash }

// Location returns where the entry's data lives.
func (e *Entry) Location() Location { return e.loc }

// Format returns the storage format.
func (e *Entry) Format() Format { return e.format }

// Archive returns the ID of the archive containing the entry, or LooseArchive.
func (e *Entry) Archive() int { return e.loc.archive }

// PackedSize returns the stored compressed size, or 0 if the data is stored
// uncompressed. For compressed BSA members, this includes the embedded name
// and size prefix.
func (e *Entry) PackedSize() uint32 { return e.packed }

// UnpackedSize returns the stored uncompressed size. It is 0 for compressed
// BSA members, whose size is stored with the data (see Index.SizeOf).
func (e *Entry) UnpackedSize() uint32 { return e.unpacked }

// Compressed returns true if extracting the entry requires decompression.
func (e *Entry) Compressed() bool { return e.packed != 0 }

// BSAVersion returns the BSA version of BSA members, and 0 otherwise.
func (e *Entry) BSAVersion() int { return int(e.version) }

func (e *Entry) String() string {
	return fmt.Sprintf("%s [%s %s packed=%d unpacked=%d]", e.name, e.format, e.loc, e.packed, e.unpacked)
}
