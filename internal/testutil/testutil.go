// Package testutil builds archives and compressed data for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

var words = []string{
	"iron", "dagger", "of", "the", "skeever", "whiterun", "sweetroll", "nuka",
	"cola", "vault", "power", "armor", "dragon", "shout", "mesh", "texture",
}

// Sample returns n bytes of compressible text determined by seed.
func Sample(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[r.IntN(len(words))])
		if r.IntN(8) == 0 {
			b.WriteByte(byte(r.UintN(256)))
		}
		b.WriteByte(' ')
	}
	return b.Bytes()[:n]
}

// Zlib compresses data as a zlib stream.
func Zlib(data []byte, level int) []byte {
	var b bytes.Buffer
	w, err := zlib.NewWriterLevel(&b, level)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return b.Bytes()
}

// LZ4Frame compresses data as an LZ4 frame with the default options.
func LZ4Frame(data []byte, opt ...lz4.Option) []byte {
	var b bytes.Buffer
	w := lz4.NewWriter(&b)
	if err := w.Apply(opt...); err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return b.Bytes()
}

// LZ4Block compresses data as a raw LZ4 block, falling back to a block of
// literals if the data is incompressible.
func LZ4Block(data []byte) []byte {
	var c lz4.Compressor
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := c.CompressBlock(data, buf)
	if err != nil {
		panic(err)
	}
	if n != 0 {
		return buf[:n]
	}
	b := []byte{0}
	if len(data) < 15 {
		b[0] = byte(len(data)) << 4
	} else {
		b[0] = 0xF0
		r := len(data) - 15
		for ; r >= 255; r -= 255 {
			b = append(b, 255)
		}
		b = append(b, byte(r))
	}
	return append(b, data...)
}

// WriteFile writes data to name under dir, creating parent directories, and
// returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0666); err != nil {
		t.Fatal(err)
	}
	return p
}

// File is a file stored in an archive.
type File struct {
	Name     string
	Data     []byte
	Compress bool // BA2 only, BSA compression is archive-wide
}

type writer struct {
	bytes.Buffer
}

func (w *writer) u8(v uint8)   { w.WriteByte(v) }
func (w *writer) u16(v uint16) { w.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (w *writer) u32(v uint32) { w.Write(binary.LittleEndian.AppendUint32(nil, v)) }
func (w *writer) u64(v uint64) { w.Write(binary.LittleEndian.AppendUint64(nil, v)) }

// put32 overwrites a uint32 at off.
func (w *writer) put32(off int, v uint32) { binary.LittleEndian.PutUint32(w.Bytes()[off:], v) }

// put64 overwrites a uint64 at off.
func (w *writer) put64(off int, v uint64) { binary.LittleEndian.PutUint64(w.Bytes()[off:], v) }

func ba2HeaderSize(version uint32, textures bool) int {
	switch {
	case textures && version == 3:
		return 36
	case version == 2 || version == 3:
		return 32
	}
	return 24
}

func ba2Header(w *writer, version uint32, typ string, n int, hdrSize int) {
	w.WriteString("BTDX")
	w.u32(version)
	w.WriteString(typ)
	w.u32(uint32(n))
	w.u64(0) // name table offset, patched later
	for w.Len() < hdrSize {
		w.u8(0)
	}
}

func ba2Names[T any](w *writer, items []T, name func(T) string) {
	w.put64(16, uint64(w.Len()))
	for _, it := range items {
		s := name(it)
		w.u16(uint16(len(s)))
		w.WriteString(s)
	}
}

// BA2General builds a BTDX GNRL archive. Compressed files are stored as zlib
// streams.
func BA2General(version uint32, files []File) []byte {
	var w writer
	hdr := ba2HeaderSize(version, false)
	ba2Header(&w, version, "GNRL", len(files), hdr)

	recs := make([]int, len(files))
	for i := range files {
		recs[i] = w.Len()
		w.u32(0)
		w.WriteString("txt\x00")
		w.u32(0)
		w.u32(0)
		w.u64(0)
		w.u32(0)
		w.u32(0)
		w.u32(0xBAADF00D)
	}
	for i, f := range files {
		data := f.Data
		w.put64(recs[i]+16, uint64(w.Len()))
		if f.Compress {
			data = Zlib(data, zlib.DefaultCompression)
			w.put32(recs[i]+24, uint32(len(data)))
		}
		w.put32(recs[i]+28, uint32(len(f.Data)))
		w.Write(data)
	}
	ba2Names(&w, files, func(f File) string { return f.Name })
	return w.Bytes()
}

// Texture is a texture stored in a BA2 DX10 archive.
type Texture struct {
	Name          string
	Height, Width uint16
	Mips          uint8
	DXGI          uint8
	Cubemap       bool
	Chunks        []Chunk
}

// Chunk is a range of mipmaps of a texture.
type Chunk struct {
	Data     []byte
	StartMip uint16
	EndMip   uint16
	Compress bool
}

// BA2Textures builds a BTDX DX10 archive. Compressed chunks are stored as raw
// LZ4 blocks in version 3 archives, and as zlib streams otherwise.
func BA2Textures(version uint32, textures []Texture) []byte {
	var w writer
	hdr := ba2HeaderSize(version, true)
	ba2Header(&w, version, "DX10", len(textures), hdr)

	var chunks []int
	for _, t := range textures {
		w.u32(0)
		w.WriteString("dds\x00")
		w.u32(0)
		w.u8(0)
		w.u8(uint8(len(t.Chunks)))
		w.u16(24)
		w.u16(t.Height)
		w.u16(t.Width)
		w.u8(t.Mips)
		w.u8(t.DXGI)
		if t.Cubemap {
			w.u16(1)
		} else {
			w.u16(0)
		}
		for _, c := range t.Chunks {
			chunks = append(chunks, w.Len())
			w.u64(0)
			w.u32(0)
			w.u32(uint32(len(c.Data)))
			w.u16(c.StartMip)
			w.u16(c.EndMip)
			w.u32(0xBAADF00D)
		}
	}
	var i int
	for _, t := range textures {
		for _, c := range t.Chunks {
			data := c.Data
			w.put64(chunks[i], uint64(w.Len()))
			if c.Compress {
				if version == 3 {
					data = LZ4Block(data)
				} else {
					data = Zlib(data, zlib.DefaultCompression)
				}
				w.put32(chunks[i]+8, uint32(len(data)))
			}
			w.Write(data)
			i++
		}
	}
	ba2Names(&w, textures, func(t Texture) string { return t.Name })
	return w.Bytes()
}

// splitFolder splits a BSA path at the last separator.
func splitFolder(name string) (string, string) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// BSA builds a Bethesda BSA archive of the specified version (103-105). If
// compressed, every file is stored as a zlib stream (LZ4 frame for 105)
// preceded by its size. If fullNames, each file is preceded by its full path
// (this is ignored by readers of version 103 archives). Files in the same
// folder must be adjacent.
func BSA(version uint32, compressed, fullNames bool, files []File) []byte {
	type folder struct {
		name  string
		files []int
	}
	var folders []folder
	for i, f := range files {
		dir, _ := splitFolder(f.Name)
		if len(folders) == 0 || folders[len(folders)-1].name != dir {
			folders = append(folders, folder{name: dir})
		}
		folders[len(folders)-1].files = append(folders[len(folders)-1].files, i)
	}

	flags := uint32(0x1 | 0x2)
	if compressed {
		flags |= 0x4
	}
	if fullNames {
		flags |= 0x100
	}

	var w writer
	w.WriteString("BSA\x00")
	w.u32(version)
	w.u32(36)
	w.u32(flags)
	w.u32(uint32(len(folders)))
	w.u32(uint32(len(files)))
	w.u32(0)
	w.u32(0)
	w.u16(0)
	w.u16(0)

	for _, d := range folders {
		w.u64(0)
		w.u32(uint32(len(d.files)))
		if version >= 105 {
			w.u32(0)
			w.u64(0)
		} else {
			w.u32(0)
		}
	}
	recs := make([]int, len(files))
	for _, d := range folders {
		w.u8(uint8(len(d.name) + 1))
		w.WriteString(d.name)
		w.u8(0)
		for _, i := range d.files {
			recs[i] = w.Len()
			w.u64(0)
			w.u32(0)
			w.u32(0)
		}
	}
	for _, f := range files {
		_, base := splitFolder(f.Name)
		w.WriteString(base)
		w.u8(0)
	}
	for i, f := range files {
		start := w.Len()
		if fullNames {
			w.u8(uint8(len(f.Name)))
			w.WriteString(f.Name)
		}
		if compressed {
			w.u32(uint32(len(f.Data)))
			if version >= 105 {
				w.Write(LZ4Frame(f.Data))
			} else {
				w.Write(Zlib(f.Data, zlib.DefaultCompression))
			}
		} else {
			w.Write(f.Data)
		}
		w.put32(recs[i]+8, uint32(w.Len()-start))
		w.put32(recs[i]+12, uint32(start))
	}
	return w.Bytes()
}

// TES3 builds a Morrowind BSA archive.
func TES3(files []File) []byte {
	var names writer
	offs := make([]uint32, len(files))
	for i, f := range files {
		offs[i] = uint32(names.Len())
		names.WriteString(f.Name)
		names.u8(0)
	}

	var w writer
	w.u32(0x100)
	w.u32(uint32(len(files)*12 + names.Len()))
	w.u32(uint32(len(files)))
	var pos uint32
	for _, f := range files {
		w.u32(uint32(len(f.Data)))
		w.u32(pos)
		pos += uint32(len(f.Data))
	}
	for _, o := range offs {
		w.u32(o)
	}
	w.Write(names.Bytes())
	for range files {
		w.u64(0)
	}
	for _, f := range files {
		w.Write(f.Data)
	}
	return w.Bytes()
}
