package ba2util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pg9182/ba2vfs"
)

// LoadFileList reads a list of archive paths from a file (see ParseFileList).
func LoadFileList(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("load file list: %w", err)
	}
	defer f.Close()

	names, err := ParseFileList(f)
	if err != nil {
		return nil, fmt.Errorf("load file list %q: %w", name, err)
	}
	return names, nil
}

// ParseFileList parses a list of archive paths separated by tabs or newlines.
// Other control characters and leading and trailing spaces are removed, and
// entries without a slash, backslash or dot are ignored. The returned paths
// are normalized.
func ParseFileList(r io.Reader) ([]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, s := range strings.FieldsFunc(string(buf), func(r rune) bool {
		return r == '\t' || r == '\r' || r == '\n'
	}) {
		s = strings.Map(func(r rune) rune {
			if r < ' ' {
				return -1
			}
			return r
		}, s)
		s = strings.Trim(s, " ")
		if !strings.ContainsAny(s, `/\.`) {
			continue
		}
		if s = ba2vfs.NormalizePath(s); s != "" {
			names = append(names, s)
		}
	}
	return names, nil
}
