package ba2vfs

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pg9182/ba2vfs/internal/bytereader"
	"github.com/pg9182/ba2vfs/internal/mmap"
)

// dataDirNames are the top-level directories of a game's data directory
// which may contain loose files.
var dataDirNames = []string{
	"geometries", "icons", "interface", "materials", "meshes",
	"particles", "planetdata", "scripts", "shadersfx", "sound",
	"strings", "terrain", "textures", "vis",
}

// looseExts are the extensions of files indexed from a data directory.
var looseExts = []string{
	"ba2", "bsa", "bgem", "bgsm", "bmp", "btd", "bto", "btr", "cdb", "dds",
	"dlstrings", "hdr", "ilstrings", "kf", "mat", "mesh", "nif", "strings", "tga",
}

// gamePrefixes are the base names of base game archives.
var gamePrefixes = []string{
	"oblivion", "fallout", "skyrim", "seventysix", "starfield",
}

func isDataDirName(s string) bool {
	for _, n := range dataDirNames {
		if strings.EqualFold(s, n) {
			return true
		}
	}
	return false
}

// findPrefixLen returns the offset of the last path component of p which is a
// data directory name, or -1 if there isn't one.
func findPrefixLen(p string) int {
	end := len(p)
	for end > 0 {
		start := end
		for start > 0 && !isSep(p[start-1]) {
			start--
		}
		if end > start && isDataDirName(p[start:end]) {
			return start
		}
		end = start - 1
	}
	return -1
}

func isSep(c byte) bool {
	return c == '/' || c == os.PathSeparator
}

// dirItem is a directory entry to be loaded. Size is the loose file size, or
// one of the dirItem constants.
type dirItem struct {
	size int64
	name string
}

const (
	dirItemSubdir int64 = -1 - iota
	dirItemMod
	dirItemDLC
	dirItemGame
)

// classifyArchive ranks an archive by its lower-cased base name.
func classifyArchive(name string) int64 {
	if name == "morrowind.bsa" || slices.ContainsFunc(gamePrefixes, func(p string) bool { return strings.HasPrefix(name, p) }) {
		if strings.Contains(name, "update") || strings.HasSuffix(name, "patch.ba2") {
			return dirItemDLC
		}
		return dirItemGame
	}
	if strings.HasPrefix(name, "dlc") {
		return dirItemDLC
	}
	return dirItemMod
}

// loadPath loads a file or directory. If prefix is non-negative, it is the
// number of bytes to strip from the start of loose file paths.
func (x *Index) loadPath(name string, prefix int) error {
	if name == "" {
		dp := x.dataPath
		if dp == "" {
			var ok bool
			if dp, ok = DefaultDataPath(); !ok {
				return fmt.Errorf("empty path, and %s is not set to a valid data path", DataPathEnv)
			}
		}
		return x.loadDir(dp, findPrefixLen(dp))
	}
	if prefix < 0 {
		prefix = findPrefixLen(name)
	}
	st, err := os.Stat(name)
	if err != nil {
		return fmt.Errorf("open archive file or directory: %w", err)
	}
	if st.IsDir() {
		return x.loadDir(name, prefix)
	}
	if prefix < 0 {
		// key files outside a data directory by their base name
		for prefix = len(name); prefix > 0 && !isSep(name[prefix-1]); prefix-- {
		}
	}
	size := st.Size()
	if size < 12 || !isArchiveExt(name) {
		x.loadLoose(name, prefix, size)
		return nil
	}
	return x.loadArchive(name, prefix, size)
}

func isArchiveExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".ba2" || ext == ".bsa"
}

// loadDir scans a directory, loading sources in precedence order.
func (x *Index) loadDir(dir string, prefix int) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("open archive directory: %w", err)
	}
	base := dir
	if !isSep(base[len(base)-1]) {
		base += string(os.PathSeparator)
	}
	if prefix < 0 {
		prefix = len(base)
	}

	var items []dirItem
	for _, de := range ents {
		name := de.Name()
		st, err := os.Stat(base + name)
		if err != nil {
			continue
		}
		if st.IsDir() {
			if prefix < len(base) || isDataDirName(name) {
				items = append(items, dirItem{dirItemSubdir, name})
			}
			continue
		}
		if st.Size() < 1 {
			continue
		}
		ext := filepath.Ext(name)
		if ext == "" || len(ext) > 10 {
			continue
		}
		ext = strings.ToLower(ext[1:])
		if !slices.Contains(looseExts, ext) {
			continue
		}
		it := dirItem{st.Size(), name}
		if ext == "ba2" || ext == "bsa" {
			it.size = classifyArchive(strings.ToLower(name))
		}
		items = append(items, it)
	}

	// loose files and subdirectories, then mods, then dlc, then the base
	// game, each in descending name order
	slices.SortFunc(items, func(a, b dirItem) int {
		return cmp.Or(
			cmp.Compare(min(b.size, -1), min(a.size, -1)),
			strings.Compare(b.name, a.name),
		)
	})
	for _, it := range items {
		full := base + it.name
		switch {
		case it.size >= 0:
			x.loadLoose(full, prefix, it.size)
		case it.size == dirItemSubdir:
			if err := x.loadDir(full, prefix); err != nil {
				return err
			}
		default:
			if err := x.loadPath(full, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadLoose indexes a file on disk without opening it.
func (x *Index) loadLoose(path string, prefix int, size int64) {
	if size > 0xFFFFFFFF {
		x.log.Warn("skipping loose file larger than 4 GiB", "path", path, "size", size)
		return
	}
	rel := path
	if prefix > 0 && prefix <= len(rel) {
		rel = rel[prefix:]
	}
	e, ok := x.insert(filepath.ToSlash(rel), Entry{
		loc:      LooseLocation(""),
		unpacked: uint32(size),
		format:   FormatLoose,
	})
	if ok {
		e.loc.path = x.names.Copy(path)
	}
}

// detect identifies an archive from its header.
func detect(data []byte, path string) (format Format, version uint32, hdrSize int) {
	if len(data) < 12 {
		return FormatLoose, 0, 0
	}
	hdr1, hdr2, hdr3 := bytereader.U32(data[0:]), bytereader.U32(data[4:]), bytereader.U32(data[8:])
	switch {
	case hdr1 == 0x58445442: // BTDX
		switch hdr2 {
		case 1, 2, 3, 7, 8:
		default:
			return FormatLoose, 0, 0
		}
		hdrSize = 24
		if hdr2 == 2 || hdr2 == 3 {
			hdrSize = 32
		}
		switch hdr3 {
		case 0x4C524E47: // GNRL
			return FormatGeneral, hdr2, hdrSize
		case 0x30315844: // DX10
			if hdr2 == 3 {
				return FormatTextureLZ4, hdr2, 36
			}
			return FormatTexture, hdr2, hdrSize
		}
	case hdr1 == 0x00415342 && hdr3 == 36: // BSA\0
		if hdr2 >= 103 && hdr2 <= 105 {
			return FormatBSA, hdr2, 36
		}
	case hdr1 == 0x00000100 && strings.EqualFold(filepath.Ext(path), ".bsa"):
		return FormatTES3, 0, 12
	}
	return FormatLoose, 0, 0
}

// loadArchive maps and indexes an archive. Unrecognized archives are indexed
// as loose files, and archives without any new files are closed.
func (x *Index) loadArchive(path string, prefix int, size int64) error {
	f, err := mmap.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	data := f.Data()

	format, version, hdrSize := detect(data, path)
	if format == FormatLoose {
		f.Close()
		x.log.Debug("unrecognized archive, indexing as loose file", "path", path)
		x.loadLoose(path, prefix, size)
		return nil
	}

	a := &archive{
		file:    f,
		data:    data,
		format:  format,
		version: version,
		hdrSize: hdrSize,
	}
	id := len(x.archives)

	var n int
	switch format {
	case FormatGeneral:
		n, err = x.loadBA2General(a, id)
	case FormatTexture, FormatTextureLZ4:
		n, err = x.loadBA2Textures(a, id)
	case FormatBSA:
		n, err = x.loadBSA(a, id)
	case FormatTES3:
		n, err = x.loadTES3(a, id)
	default:
		panic("unreachable")
	}
	if err != nil {
		removed := x.rollback(id)
		f.Close()
		x.log.Warn("failed to load archive", "path", path, "archive", id, "removed", removed, "error", err)
		if !errors.Is(err, ErrFormat) {
			err = fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return fmt.Errorf("load %s archive %q: %w", format, path, err)
	}
	if n == 0 {
		f.Close()
		x.log.Debug("no files indexed from archive", "path", path, "format", format)
		return nil
	}
	a.entries = n
	x.archives = append(x.archives, a)
	x.log.Debug("opened archive", "path", path, "archive", id, "format", format, "version", version, "entries", n)
	return nil
}
