// Package arena implements bump allocators for objects and strings that live
// exactly as long as their owner.
//
// Nothing allocated from an arena can be freed individually; Reset discards
// everything at once. Pointers and strings handed out stay valid (and never
// move) until then.
package arena

import "unsafe"

// DefaultObjectBlock is the number of objects per block used by a zero
// Objects.
const DefaultObjectBlock = 1024

// DefaultStringBlock is the size in bytes of the string blocks used by a zero
// Strings.
const DefaultStringBlock = 64 << 10

// Objects allocates values of type T in fixed-size blocks. The zero value is
// ready to use.
type Objects[T any] struct {
	BlockSize int

	blocks [][]T
	n      int
}

// New returns a pointer to a new zeroed T.
func (a *Objects[T]) New() *T {
	bs := a.BlockSize
	if bs <= 0 {
		bs = DefaultObjectBlock
	}
	if len(a.blocks) == 0 || len(a.blocks[len(a.blocks)-1]) == cap(a.blocks[len(a.blocks)-1]) {
		a.blocks = append(a.blocks, make([]T, 0, bs))
	}
	b := &a.blocks[len(a.blocks)-1]
	*b = (*b)[:len(*b)+1]
	a.n++
	return &(*b)[len(*b)-1]
}

// Len returns the number of objects allocated since the last Reset.
func (a *Objects[T]) Len() int {
	return a.n
}

// Reset drops every block.
func (a *Objects[T]) Reset() {
	clear(a.blocks)
	a.blocks = a.blocks[:0]
	a.n = 0
}

// Strings stores immutable strings back to back in large byte blocks. The
// zero value is ready to use.
type Strings struct {
	BlockSize int

	blocks [][]byte
	used   int
}

// Copy copies s into the arena and returns a string backed by arena memory.
func (a *Strings) Copy(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := a.alloc(len(s))
	copy(b, s)
	return unsafe.String(&b[0], len(b))
}

func (a *Strings) alloc(n int) []byte {
	bs := a.BlockSize
	if bs <= 0 {
		bs = DefaultStringBlock
	}
	a.used += n
	if n > bs/4 {
		// large strings get a dedicated block so they don't waste the tail
		// of the current one
		b := make([]byte, n)
		if len(a.blocks) == 0 {
			a.blocks = append(a.blocks, b)
		} else {
			// keep the current block last so it continues to be filled
			last := a.blocks[len(a.blocks)-1]
			a.blocks[len(a.blocks)-1] = b
			a.blocks = append(a.blocks, last)
		}
		return b
	}
	if len(a.blocks) == 0 || cap(a.blocks[len(a.blocks)-1])-len(a.blocks[len(a.blocks)-1]) < n {
		a.blocks = append(a.blocks, make([]byte, 0, bs))
	}
	cur := &a.blocks[len(a.blocks)-1]
	off := len(*cur)
	*cur = (*cur)[:off+n]
	return (*cur)[off : off+n : off+n]
}

// Bytes returns the total number of string bytes stored since the last
// Reset.
func (a *Strings) Bytes() int {
	return a.used
}

// Reset drops every block. Strings previously returned must no longer be
// used by anything that outlives the owner.
func (a *Strings) Reset() {
	clear(a.blocks)
	a.blocks = a.blocks[:0]
	a.used = 0
}
