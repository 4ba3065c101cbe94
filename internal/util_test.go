package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlobParents(t *testing.T) {
	for _, x := range []struct {
		Pattern string
		Path    string
		Match   bool
		Error   bool
	}{
		{"/", "", true, false},
		{"/", "meshes", true, false},
		{"/", "a/b/c", true, false},
		{"*", "", false, false},
		{"*", "meshes", true, false},
		{"/meshes", "meshes", true, false},
		{"meshes", "meshes", true, false},
		{"meshes", "textures/meshes", true, false},
		{"/meshes", "textures/meshes", false, false},
		{"meshes", "meshes/armor", true, false},
		{"a", "a/b/c", true, false},
		{"b", "a/b/c", true, false},
		{"c", "a/b/c", true, false},
		{"a/b", "a/b/c", true, false},
		{"a/b/c", "a/b/c", true, false},
		{"b/c", "a/b/c", false, false}, // multiple components are treated as anchored
		{"/a/b", "a/b/c", true, false},
		{"/b/c", "a/b/c", false, false},
		{"*x*", "axa/b/c", true, false},
		{"*x*", "a/b/x", true, false},
		{"/*x*", "a/xb/c", false, false},
		{"*.DDS", "textures/a.dds", true, false},
		{`Textures\Armor`, "textures/armor/a.dds", true, false},
		{"textures//armor/", "textures/armor/a.dds", true, false},
		{"*.dds", `Textures\A.DDS`, true, false},
		{"[", "a", false, true},
		{"/[", "a", false, true},
	} {
		m, err := MatchGlobParents(x.Pattern, x.Path)
		if x.Error {
			assert.Error(t, err, "match(%q, %q)", x.Pattern, x.Path)
		} else {
			assert.NoError(t, err, "match(%q, %q)", x.Pattern, x.Path)
		}
		assert.Equal(t, x.Match, m, "match(%q, %q)", x.Pattern, x.Path)
	}
}

func TestFormatBytesSI(t *testing.T) {
	for _, x := range []struct {
		In  int64
		Out string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1500, "1.5 kB"},
		{-1500, "-1.5 kB"},
		{2_500_000, "2.5 MB"},
		{1 << 40, "1.1 TB"},
	} {
		assert.Equal(t, x.Out, FormatBytesSI(x.In), "%d", x.In)
	}
}
