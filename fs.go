package ba2vfs

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"time"
)

// FS returns a read-only fs.FS over the index. The directory tree is built
// on first use, so files added to the index afterwards are only reachable by
// opening them directly.
func (x *Index) FS() fs.FS {
	return &indexFS{x: x}
}

type indexFS struct {
	x    *Index
	once sync.Once
	dirs map[string][]*readerInfo
}

var (
	_ fs.FS          = (*indexFS)(nil)
	_ fs.ReadFileFS  = (*indexFS)(nil)
	_ fs.StatFS      = (*indexFS)(nil)
	_ fs.ReadDirFS   = (*indexFS)(nil)
	_ fs.File        = (*readerFile)(nil)
	_ fs.ReadDirFile = (*readerDir)(nil)
	_ fs.DirEntry    = (*readerInfo)(nil)
	_ fs.FileInfo    = (*readerInfo)(nil)
)

type readerFile struct {
	info readerInfo
	*bytes.Reader
}

func (f *readerFile) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerFile) Close() error {
	return nil
}

type readerDir struct {
	info   readerInfo
	entry  []*readerInfo
	offset int
}

func (f *readerDir) Stat() (fs.FileInfo, error) {
	return &f.info, nil
}

func (f *readerDir) Read(b []byte) (n int, err error) {
	return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrInvalid}
}

func (f *readerDir) Close() error {
	return nil
}

func (d *readerDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entry) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	for i := range list {
		list[i] = d.entry[d.offset+i]
	}
	d.offset += n
	return list, nil
}

type readerInfo struct {
	name  string
	entry *Entry
	size  int64
}

func (i *readerInfo) Info() (fs.FileInfo, error) {
	return i, nil
}

func (i *readerInfo) Type() fs.FileMode {
	return i.Mode().Type()
}

func (i *readerInfo) Name() string {
	return i.name
}

func (i *readerInfo) Size() int64 {
	return i.size
}

func (i *readerInfo) Mode() fs.FileMode {
	if i.IsDir() {
		return 0555 | fs.ModeDir
	}
	return 0444
}

func (i *readerInfo) ModTime() time.Time {
	return time.Time{}
}

func (i *readerInfo) IsDir() bool {
	return i.entry == nil
}

// Sys returns the *Entry for files, and nil for directories.
func (i *readerInfo) Sys() any {
	if i.IsDir() {
		return nil
	}
	return i.entry
}

func (f *indexFS) fileInfo(e *Entry) *readerInfo {
	sz, err := f.x.EntrySize(e, false)
	if err != nil {
		sz = int64(e.unpacked)
	}
	return &readerInfo{path.Base(e.name), e, sz}
}

// build collects the children of each directory.
func (f *indexFS) build() {
	f.once.Do(func() {
		children := map[string]map[string]*readerInfo{".": {}}
		f.x.Scan(func(e *Entry) bool {
			if !fs.ValidPath(e.name) {
				return false
			}
			dir, name := ".", e.name
			for {
				if children[dir] == nil {
					children[dir] = map[string]*readerInfo{}
				}
				rel := name
				if dir != "." {
					rel = name[len(dir)+1:]
				}
				i := strings.IndexByte(rel, '/')
				if i < 0 {
					children[dir][rel] = f.fileInfo(e)
					break
				}
				if _, ok := children[dir][rel[:i]]; !ok {
					children[dir][rel[:i]] = &readerInfo{name: rel[:i]}
				}
				if dir == "." {
					dir = rel[:i]
				} else {
					dir = dir + "/" + rel[:i]
				}
			}
			return false
		})
		f.dirs = make(map[string][]*readerInfo, len(children))
		for dir, m := range children {
			ents := make([]*readerInfo, 0, len(m))
			for _, ri := range m {
				ents = append(ents, ri)
			}
			slices.SortFunc(ents, func(a, b *readerInfo) int {
				return strings.Compare(a.name, b.name)
			})
			f.dirs[dir] = ents
		}
	})
}

// find looks up a file. Names are slash-separated, so backslashes never match
// even though the index would normalize them.
func (f *indexFS) find(name string) (*Entry, bool) {
	if name == "." || strings.IndexByte(name, '\\') >= 0 {
		return nil, false
	}
	return f.x.Find(name)
}

// Open implements fs.FS.
func (f *indexFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := f.find(name); ok {
		b, err := f.x.ViewEntry(e, nil)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &readerFile{*f.fileInfo(e), bytes.NewReader(b)}, nil
	}
	f.build()
	if ents, ok := f.dirs[name]; ok {
		return &readerDir{readerInfo{name: path.Base(name)}, ents, 0}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (f *indexFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := f.find(name)
	if !ok {
		f.build()
		if _, ok := f.dirs[name]; ok {
			return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	b, err := f.x.ExtractEntry(nil, e)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return b, nil
}

// Stat implements fs.StatFS.
func (f *indexFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := f.find(name); ok {
		return f.fileInfo(e), nil
	}
	f.build()
	if _, ok := f.dirs[name]; ok {
		return &readerInfo{name: path.Base(name)}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS.
func (f *indexFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	f.build()
	ents, ok := f.dirs[name]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	list := make([]fs.DirEntry, len(ents))
	for i, ri := range ents {
		list[i] = ri
	}
	return list, nil
}
