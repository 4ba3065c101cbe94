// Package ba2vfs implements a read-only virtual file system over Bethesda
// game archives (BA2, BSA 103-105, Morrowind BSA) and loose data directories.
//
// Sources are indexed into a single hash table keyed by normalized path. When
// more than one source defines a path, the first one indexed wins, and
// directories are scanned so that loose files are indexed before mod
// archives, which are indexed before DLC and base game archives.
package ba2vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/pg9182/ba2vfs/internal/arena"
	"github.com/pg9182/ba2vfs/internal/mmap"
)

const minTableMask = 0xFFF

// Index maps normalized paths to files in archives and on disk.
//
// An Index must not be modified (AddPath, SetFilter, Close) concurrently with
// other calls, but once loaded, it is safe to look up and extract files from
// multiple goroutines.
type Index struct {
	table []*Entry
	mask  uint64
	count int

	entries arena.Objects[Entry]
	names   arena.Strings

	archives []*archive

	filter    func(string) bool
	log       *slog.Logger
	verifyLZ4 bool
	dataPath  string
}

// archive is an opened archive file.
type archive struct {
	file    *mmap.File
	data    []byte
	format  Format
	version uint32
	hdrSize int
	entries int
}

// ArchiveInfo describes an opened archive.
type ArchiveInfo struct {
	ID      int
	Path    string
	Format  Format
	Version int
	Size    int64
	Entries int // number of entries indexed from the archive
}

// New creates an empty Index.
func New(opt ...Option) *Index {
	x := &Index{
		log: slog.New(slog.DiscardHandler),
	}
	for _, o := range opt {
		o(x)
	}
	x.resize(minTableMask)
	return x
}

// Open creates an Index and loads paths, which is a load order: later paths
// take precedence over earlier ones, so mod directories should be listed after
// the base game. An empty path (or no paths at all) loads the data path (see
// WithDataPath). On error, everything opened is closed.
func Open(paths []string, opt ...Option) (*Index, error) {
	x := New(opt...)
	if len(paths) == 0 {
		paths = []string{""}
	}
	for i := len(paths) - 1; i >= 0; i-- {
		if err := x.AddPath(paths[i]); err != nil {
			x.Close()
			return nil, err
		}
	}
	return x, nil
}

// AddPath loads an archive, loose file, or directory. Everything already
// indexed takes precedence over the new files. If an archive fails to load,
// its entries are removed and the error is returned, but the index remains
// usable.
func (x *Index) AddPath(path string) error {
	return x.loadPath(path, -1)
}

// SetFilter replaces the filter used by subsequent AddPath calls (see
// WithFilter).
func (x *Index) SetFilter(fn func(name string) bool) {
	x.filter = fn
}

// insert adds an entry for name based on tmpl. It returns false if the filter
// rejected name or it is already indexed.
func (x *Index) insert(name string, tmpl Entry) (*Entry, bool) {
	name = NormalizePath(name)
	if name == "" {
		return nil, false
	}
	if x.filter != nil && !x.filter(name) {
		return nil, false
	}
	h := HashPath(name)
	i := h & x.mask
	for ; x.table[i] != nil; i = (i + 1) & x.mask {
		if e := x.table[i]; e.hash == h && e.name == name {
			return nil, false
		}
	}
	e := x.entries.New()
	*e = tmpl
	e.name = x.names.Copy(name)
	e.hash = h
	x.table[i] = e
	x.count++
	if uint64(x.count)*3 > x.mask<<1 {
		x.resize(x.mask<<1 | minTableMask) // keep load factor below 2/3
	}
	return e, true
}

// resize rehashes the table into a table with the provided mask.
func (x *Index) resize(mask uint64) {
	t := make([]*Entry, mask+1)
	for _, e := range x.table {
		if e != nil {
			j := e.hash & mask
			for t[j] != nil {
				j = (j + 1) & mask
			}
			t[j] = e
		}
	}
	x.table, x.mask = t, mask
}

// rollback removes all entries pointing into archive id, returning the number
// removed.
func (x *Index) rollback(id int) int {
	var n int
	for i, e := range x.table {
		if e != nil && e.loc.archive == id {
			x.table[i] = nil
			n++
		}
	}
	if n != 0 {
		x.count -= n
		x.resize(x.mask) // removing entries breaks probe sequences
	}
	return n
}

// Find looks up an entry by path. The path is normalized first.
func (x *Index) Find(name string) (*Entry, bool) {
	name = NormalizePath(name)
	h := HashPath(name)
	for i := h & x.mask; x.table[i] != nil; i = (i + 1) & x.mask {
		if e := x.table[i]; e.hash == h && e.name == name {
			return e, true
		}
	}
	return nil, false
}

func (x *Index) find(op, name string) (*Entry, error) {
	e, ok := x.Find(name)
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return e, nil
}

// Len returns the number of indexed files.
func (x *Index) Len() int {
	return x.count
}

// ListFiles returns the paths of all indexed files accepted by filter (which
// may be nil), optionally sorted.
func (x *Index) ListFiles(sorted bool, filter func(name string) bool) []string {
	var names []string
	if filter == nil {
		names = make([]string, 0, x.count)
	}
	for _, e := range x.table {
		if e != nil && (filter == nil || filter(e.name)) {
			names = append(names, e.name)
		}
	}
	if sorted {
		slices.Sort(names)
	}
	return names
}

// Scan calls fn for each entry in unspecified order until it returns true,
// returning true if it did.
func (x *Index) Scan(fn func(e *Entry) bool) bool {
	for _, e := range x.table {
		if e != nil && fn(e) {
			return true
		}
	}
	return false
}

// ArchiveCount returns the number of opened archives.
func (x *Index) ArchiveCount() int {
	return len(x.archives)
}

// Archives describes the opened archives in the order they were loaded.
func (x *Index) Archives() []ArchiveInfo {
	r := make([]ArchiveInfo, len(x.archives))
	for i, a := range x.archives {
		r[i] = ArchiveInfo{
			ID:      i,
			Path:    a.file.Name(),
			Format:  a.format,
			Version: int(a.version),
			Size:    int64(a.file.Len()),
			Entries: a.entries,
		}
	}
	return r
}

// Close unmaps all archives and empties the index. Byte slices returned by
// View must not be used afterwards.
func (x *Index) Close() error {
	var errs []error
	for i, a := range x.archives {
		if err := a.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive %d (%s): %w", i, a.file.Name(), err))
		}
	}
	x.archives = nil
	x.table = nil
	x.count = 0
	x.resize(minTableMask)
	x.entries.Reset()
	x.names.Reset()
	return errors.Join(errs...)
}
