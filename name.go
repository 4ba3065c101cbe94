package ba2vfs

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// fixNameChar maps a single byte of an archive path to its normalized form.
func fixNameChar(c byte) byte {
	switch {
	case c >= 'A' && c <= 'Z':
		return c + ('a' - 'A')
	case c < 0x20 || c >= 0x7F || c == ':':
		return '_'
	case c == '\\':
		return '/'
	}
	return c
}

// isNormalized checks whether NormalizePath(s) == s.
func isNormalized(s string) bool {
	if strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if fixNameChar(c) != c {
			return false
		}
		if c == '/' && i > 0 && s[i-1] == '/' {
			return false
		}
	}
	return true
}

// NormalizePath converts a path to the form used as an index key: ASCII
// letters are lower-cased, backslashes become forward slashes, control
// characters, non-ASCII bytes and colons become underscores, repeated slashes
// are collapsed, and leading "./" and "../" elements are removed.
//
// NormalizePath is idempotent.
func NormalizePath(s string) string {
	if isNormalized(s) {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := fixNameChar(s[i])
		if c == '/' && len(b) > 0 && b[len(b)-1] == '/' {
			continue
		}
		b = append(b, c)
	}
	for {
		if len(b) >= 2 && b[0] == '.' && b[1] == '/' {
			b = b[2:]
		} else if len(b) >= 3 && b[0] == '.' && b[1] == '.' && b[2] == '/' {
			b = b[3:]
		} else {
			break
		}
	}
	return string(b)
}

// HashPath returns the hash table key for a normalized path: a 32-bit hash of
// its contents in the low bits, and its length in the high bits.
func HashPath(s string) uint64 {
	return uint64(uint32(xxhash.Sum64String(s))) | uint64(len(s))<<32
}
