package ba2util

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pg9182/ba2vfs"
	"github.com/pg9182/ba2vfs/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileList(t *testing.T) {
	names, err := ParseFileList(strings.NewReader("" +
		"Meshes\\Armor\\A.nif\r\n" +
		"  textures/b.dds  \n" +
		"\tnodot\t\n" +
		"sound/\x01fx.wav\n" +
		"\n" +
		"strings/a b.strings\n" +
		"last.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"meshes/armor/a.nif",
		"textures/b.dds",
		"sound/fx.wav",
		"strings/a b.strings",
		"last.txt",
	}, names)
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte("meshes/listed.nif\nmeshes/missing.nif\n"), 0666))

	files := []string{
		"meshes/listed.nif",
		"meshes/armor/helmet.nif",
		"textures/armor/helmet.dds",
		"textures/armor/helmet_n.dds",
		"sound/fx/helmet.wav",
	}
	for _, x := range []struct {
		Name     string
		Args     []string
		Patterns []string
		Want     []string
	}{
		{"Empty", nil, nil, files},
		{"All", nil, []string{"*"}, files},
		{"Match", nil, []string{"HELMET."}, []string{
			"meshes/armor/helmet.nif", "textures/armor/helmet.dds", "sound/fx/helmet.wav",
		}},
		{"MatchFlag", []string{"--match", "_n.dds", "-m", "sound"}, nil, []string{
			"textures/armor/helmet_n.dds", "sound/fx/helmet.wav",
		}},
		{"ListFile", nil, []string{"@" + list}, []string{"meshes/listed.nif"}},
		{"ListFileAndMatch", nil, []string{"@" + list, "wav"}, []string{"meshes/listed.nif", "sound/fx/helmet.wav"}},
		{"Exclude", []string{"-e", "armor"}, nil, []string{"meshes/listed.nif", "sound/fx/helmet.wav"}},
		{"ExcludeAnchored", []string{"--exclude", "/textures", "--exclude", "*.wav"}, nil, []string{
			"meshes/listed.nif", "meshes/armor/helmet.nif",
		}},
		{"ExcludeInclude", []string{"-e", "/textures", "-E", "*_n.dds"}, nil, []string{
			"meshes/listed.nif", "meshes/armor/helmet.nif", "textures/armor/helmet_n.dds", "sound/fx/helmet.wav",
		}},
		{"IncludeOnly", []string{"--include", "*.nif"}, nil, []string{"meshes/listed.nif", "meshes/armor/helmet.nif"}},
		{"MatchExclude", []string{"-e", "meshes"}, []string{"helmet"}, []string{
			"textures/armor/helmet.dds", "textures/armor/helmet_n.dds", "sound/fx/helmet.wav",
		}},
	} {
		t.Run(x.Name, func(t *testing.T) {
			set := pflag.NewFlagSet("test", pflag.ContinueOnError)
			ie := NewCLIIncludeExclude(set, true)
			require.NoError(t, set.Parse(x.Args))

			f, err := ie.Filter(x.Patterns...)
			require.NoError(t, err)

			var got []string
			for _, n := range files {
				if f.Keep(n) {
					got = append(got, n)
				}
			}
			assert.Equal(t, x.Want, got)
			assert.Equal(t, len(x.Want) == len(files), f.Empty())
			if f.Empty() {
				assert.Nil(t, f.Func())
			} else {
				assert.NotNil(t, f.Func())
			}
		})
	}

	t.Run("BadGlob", func(t *testing.T) {
		set := pflag.NewFlagSet("test", pflag.ContinueOnError)
		ie := NewCLIIncludeExclude(set, false)
		require.NoError(t, set.Parse([]string{"--exclude", "["}))
		_, err := ie.Filter()
		assert.Error(t, err)
	})
	t.Run("MissingListFile", func(t *testing.T) {
		_, err := CLIIncludeExclude{}.Filter("@" + filepath.Join(dir, "missing.txt"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("Missing", func(t *testing.T) {
		f, err := CLIIncludeExclude{}.Filter("@" + list)
		require.NoError(t, err)

		p := testutil.WriteFile(t, dir, "a.ba2", testutil.BA2General(1, []testutil.File{
			{Name: "meshes/listed.nif", Data: []byte("x")},
		}))
		x, err := ba2vfs.Open([]string{p}, ba2vfs.WithFilter(f.Keep))
		require.NoError(t, err)
		defer x.Close()
		assert.Equal(t, []string{"meshes/missing.nif"}, f.Missing(x))
	})
}

func TestDirs(t *testing.T) {
	assert.Equal(t, []string{
		"meshes/", "meshes/armor/", "textures/", "textures/armor/", "textures/armor/iron/",
	}, Dirs([]string{
		"meshes/armor/a.nif",
		"textures/armor/iron/a.dds",
		"textures/armor/b.dds",
		"meshes/b.nif",
		"c.txt",
	}))
}

func TestCache(t *testing.T) {
	data := testutil.Sample(5000, 1)
	p := testutil.WriteFile(t, t.TempDir(), "a.ba2", testutil.BA2General(1, []testutil.File{
		{Name: "a.bin", Data: data, Compress: true},
		{Name: "b.bin", Data: []byte("b")},
		{Name: "c.bin", Data: []byte("c")},
	}))
	x, err := ba2vfs.Open([]string{p})
	require.NoError(t, err)
	defer x.Close()

	c, err := NewCache(x, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.ReadFile("A.BIN")
			assert.NoError(t, err)
			assert.Equal(t, data, b)
		}()
	}
	wg.Wait()
	hits, misses := c.Stats()
	assert.GreaterOrEqual(t, misses, uint64(1))
	assert.LessOrEqual(t, hits+misses, uint64(16), "concurrent reads must share extractions")
	assert.Equal(t, 1, c.Len())

	_, err = c.ReadFile("a.bin")
	require.NoError(t, err)
	hits2, misses2 := c.Stats()
	assert.Equal(t, hits+1, hits2)
	assert.Equal(t, misses, misses2)

	for _, n := range []string{"b.bin", "c.bin"} {
		_, err := c.ReadFile(n)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len(), "least recently used file was not evicted")

	_, err = c.ReadFile("missing.bin")
	assert.Error(t, err)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())

	u, err := NewCache(x, 0)
	require.NoError(t, err)
	b, err := u.ReadFile("b.bin")
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
	assert.Equal(t, 0, u.Len())
}
