package ba2vfs

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pg9182/ba2vfs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openArchive writes data to name in a new temporary directory and opens it.
func openArchive(t *testing.T, name string, data []byte, opt ...Option) *Index {
	t.Helper()
	p := testutil.WriteFile(t, t.TempDir(), name, data)
	x, err := Open([]string{p}, opt...)
	require.NoError(t, err)
	t.Cleanup(func() { x.Close() })
	return x
}

func TestInsertFirstWins(t *testing.T) {
	x := New()

	e, ok := x.insert(`Meshes\Armor\Helmet.NIF`, Entry{loc: ArchiveLocation(0, 1)})
	require.True(t, ok)
	assert.Equal(t, "meshes/armor/helmet.nif", e.Name())
	assert.Equal(t, HashPath(e.Name()), e.Hash())

	_, ok = x.insert("meshes/armor/helmet.nif", Entry{loc: ArchiveLocation(1, 2)})
	assert.False(t, ok, "duplicate path replaced the existing entry")
	_, ok = x.insert("./meshes//armor/HELMET.nif", Entry{loc: ArchiveLocation(2, 3)})
	assert.False(t, ok, "duplicate path replaced the existing entry")

	_, ok = x.insert("", Entry{})
	assert.False(t, ok, "empty name inserted")
	_, ok = x.insert("./", Entry{})
	assert.False(t, ok, "empty name inserted")

	assert.Equal(t, 1, x.Len())
	e, ok = x.Find(`MESHES\armor\helmet.nif`)
	require.True(t, ok)
	assert.Equal(t, 0, e.Archive())
	assert.Equal(t, uint64(1), e.Location().ArchiveOffset())

	_, ok = x.Find("meshes/armor/boots.nif")
	assert.False(t, ok)
}

func TestInsertFilter(t *testing.T) {
	x := New(WithFilter(func(name string) bool {
		return filepath.Ext(name) == ".nif"
	}))
	_, ok := x.insert("Meshes/A.NIF", Entry{})
	assert.True(t, ok, "the filter must see the normalized name")
	_, ok = x.insert("textures/a.dds", Entry{})
	assert.False(t, ok)

	x.SetFilter(nil)
	_, ok = x.insert("textures/a.dds", Entry{})
	assert.True(t, ok)
	assert.Equal(t, 2, x.Len())
}

func TestTableGrowth(t *testing.T) {
	x := New()
	assert.Equal(t, uint64(minTableMask), x.mask)

	const n = 50000
	for i := range n {
		_, ok := x.insert("textures/"+strconv.Itoa(i)+".dds", Entry{loc: ArchiveLocation(0, uint64(i))})
		require.True(t, ok)
		require.Less(t, uint64(x.count)*3, (x.mask+1)*2, "load factor must stay below 2/3")
	}
	assert.Equal(t, n, x.Len())
	assert.Equal(t, uint64(0), (x.mask+1)&x.mask, "table size must be a power of two")
	for i := range n {
		e, ok := x.Find("Textures/" + strconv.Itoa(i) + ".DDS")
		require.True(t, ok, "entry %d not found after growth", i)
		require.Equal(t, uint64(i), e.Location().ArchiveOffset())
	}
	assert.Len(t, x.ListFiles(false, nil), n)
}

func TestRollback(t *testing.T) {
	x := New()
	for i := range 100 {
		x.insert("a/"+strconv.Itoa(i), Entry{loc: ArchiveLocation(0, 0)})
		x.insert("b/"+strconv.Itoa(i), Entry{loc: ArchiveLocation(1, 0)})
		x.insert("c/"+strconv.Itoa(i), Entry{loc: LooseLocation("c")})
	}
	assert.Equal(t, 100, x.rollback(1))
	assert.Equal(t, 0, x.rollback(1))
	assert.Equal(t, 200, x.Len())
	for i := range 100 {
		_, ok := x.Find("a/" + strconv.Itoa(i))
		assert.True(t, ok)
		_, ok = x.Find("b/" + strconv.Itoa(i))
		assert.False(t, ok)
		_, ok = x.Find("c/" + strconv.Itoa(i))
		assert.True(t, ok)
	}
}

func TestListFilesAndScan(t *testing.T) {
	x := New()
	for _, n := range []string{"meshes/b.nif", "textures/a.dds", "meshes/a.nif"} {
		x.insert(n, Entry{})
	}
	assert.Equal(t, []string{"meshes/a.nif", "meshes/b.nif", "textures/a.dds"}, x.ListFiles(true, nil))
	assert.Equal(t, []string{"meshes/a.nif", "meshes/b.nif"}, x.ListFiles(true, func(name string) bool {
		return filepath.Ext(name) == ".nif"
	}))

	var seen int
	assert.False(t, x.Scan(func(e *Entry) bool {
		seen++
		return false
	}))
	assert.Equal(t, 3, seen)
	assert.True(t, x.Scan(func(e *Entry) bool {
		return e.Name() == "textures/a.dds"
	}))
}

func TestFailedArchiveRollback(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "good.ba2", testutil.BA2General(1, []testutil.File{
		{Name: "shared.txt", Data: []byte("good")},
		{Name: "good.txt", Data: []byte("good")},
	}))

	bad := testutil.BA2General(1, []testutil.File{
		{Name: "shared.txt", Data: []byte("bad")},
		{Name: "bad1.txt", Data: []byte("bad")},
		{Name: "bad2.txt", Data: []byte("bad")},
	})
	copy(bad[24+2*ba2RecordSize+16:], bytes.Repeat([]byte{0xFF}, 8))
	badPath := testutil.WriteFile(t, dir, "bad.ba2", bad)

	x := New()
	defer x.Close()
	require.NoError(t, x.AddPath(good))

	err := x.AddPath(badPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	assert.Equal(t, 2, x.Len())
	assert.Equal(t, 1, x.ArchiveCount())
	_, ok := x.Find("bad1.txt")
	assert.False(t, ok, "entries from the failed archive were not removed")
	b, err := x.ReadFile("shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "good", string(b))

	// the index is still usable
	require.NoError(t, x.AddPath(testutil.WriteFile(t, dir, "more.ba2", testutil.BA2General(1, []testutil.File{
		{Name: "more.txt", Data: []byte("more")},
	}))))
	b, err = x.ReadFile("more.txt")
	require.NoError(t, err)
	assert.Equal(t, "more", string(b))
	assert.Equal(t, 2, x.ArchiveCount())
}

func TestTruncatedArchives(t *testing.T) {
	gnrl := testutil.BA2General(1, []testutil.File{
		{Name: "a.txt", Data: []byte("aaaa")},
		{Name: "b.txt", Data: []byte("bbbb")},
	})
	bsa := testutil.BSA(104, false, false, []testutil.File{
		{Name: `meshes\a.nif`, Data: []byte("aaaa")},
		{Name: `meshes\b.nif`, Data: []byte("bbbb")},
	})
	tes3 := testutil.TES3([]testutil.File{
		{Name: `meshes\a.nif`, Data: []byte("aaaa")},
		{Name: `meshes\b.nif`, Data: []byte("bbbb")},
	})
	for _, x := range []struct {
		Name string
		Data []byte
	}{
		{"gnrl-count.ba2", patch32(gnrl, 12, 1000)},
		{"gnrl-names.ba2", gnrl[:len(gnrl)-3]},
		{"gnrl-nametable.ba2", patch32(gnrl, 16, uint32(len(gnrl)+1))},
		{"bsa-files.bsa", patch32(bsa, 20, 1000)},
		{"bsa-folders.bsa", patch32(bsa, 16, 1000)},
		{"bsa-data.bsa", bsa[:len(bsa)-2]},
		{"bsa-flags.bsa", patch32(bsa, 12, 0x43)},
		{"tes3-count.bsa", patch32(tes3, 8, 1000)},
		{"tes3-data.bsa", tes3[:len(tes3)-1]},
	} {
		t.Run(x.Name, func(t *testing.T) {
			p := testutil.WriteFile(t, t.TempDir(), x.Name, x.Data)
			idx := New()
			defer idx.Close()
			err := idx.AddPath(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
			assert.Equal(t, 0, idx.Len(), "entries left in the index: %v", idx.ListFiles(true, nil))
			assert.Equal(t, 0, idx.ArchiveCount())
		})
	}
}

func patch32(b []byte, off int, v uint32) []byte {
	b = bytes.Clone(b)
	b[off], b[off+1], b[off+2], b[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	return b
}

func TestCloseResets(t *testing.T) {
	x := openArchive(t, "a.ba2", testutil.BA2General(1, []testutil.File{
		{Name: "a.txt", Data: []byte("a")},
	}))
	require.Equal(t, 1, x.Len())
	require.NoError(t, x.Close())
	assert.Equal(t, 0, x.Len())
	assert.Equal(t, 0, x.ArchiveCount())

	_, err := x.ReadFile("a.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	var pe *fs.PathError
	assert.True(t, errors.As(err, &pe))
}
