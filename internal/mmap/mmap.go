// Package mmap maps files read-only into memory.
package mmap

import (
	"errors"
	"fmt"
	"os"
)

// ErrClosed is returned when using a closed File.
var ErrClosed = errors.New("mmap: file closed")

// File is a read-only view of an entire file.
//
// The bytes returned by Data must not be modified, and must not be used after
// Close.
type File struct {
	name   string
	data   []byte
	unmap  func([]byte) error
	closed bool
}

// Open maps the named file.
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, &os.PathError{Op: "mmap", Path: name, Err: errors.New("is a directory")}
	}
	size := st.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, &os.PathError{Op: "mmap", Path: name, Err: fmt.Errorf("file too large (%d bytes)", size)}
	}
	if size == 0 {
		return &File{name: name}, nil
	}
	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: name, Err: err}
	}
	return &File{name: name, data: data, unmap: unmap}, nil
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Data returns the mapped bytes.
func (f *File) Data() []byte {
	return f.data
}

// Len returns the size of the mapping.
func (f *File) Len() int {
	return len(f.data)
}

// Close unmaps the file.
func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	data := f.data
	f.data = nil
	if f.unmap != nil && data != nil {
		if err := f.unmap(data); err != nil {
			return fmt.Errorf("unmap %q: %w", f.name, err)
		}
	}
	return nil
}
