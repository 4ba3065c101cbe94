package ba2vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	for _, x := range []struct {
		In, Out string
	}{
		{"", ""},
		{"textures/a.dds", "textures/a.dds"},
		{`Textures\Actors\Character\Face.DDS`, "textures/actors/character/face.dds"},
		{"meshes//armor///helmet.nif", "meshes/armor/helmet.nif"},
		{`meshes\\armor`, "meshes/armor"},
		{"./textures/a.dds", "textures/a.dds"},
		{"../../textures/a.dds", "textures/a.dds"},
		{".././textures/a.dds", "textures/a.dds"},
		{".//textures", "textures"},
		{"sound/fx:1.wav", "sound/fx_1.wav"},
		{"strings/\x01\x7f\xc3\xa9.strings", "strings/____.strings"},
		{"/abs/path", "/abs/path"},
		{"a/./b", "a/./b"},
		{"..foo/bar", "..foo/bar"},
	} {
		got := NormalizePath(x.In)
		assert.Equal(t, x.Out, got, "normalize %q", x.In)
		assert.Equal(t, got, NormalizePath(got), "normalize %q is not idempotent", x.In)
		assert.True(t, isNormalized(got), "%q", got)
	}
}

func TestHashPath(t *testing.T) {
	a, b := HashPath("textures/a.dds"), HashPath("textures/b.dds")
	assert.NotEqual(t, a, b)
	assert.Equal(t, uint64(len("textures/a.dds")), a>>32)
	assert.Equal(t, a, HashPath("textures/a.dds"))
	assert.Equal(t, uint64(0), HashPath("")>>32)
}
