package ba2vfs

import (
	"log/slog"
	"os"
	"strings"
)

// DataPathEnv is the environment variable holding the default data path.
const DataPathEnv = "BA2VFS_DATAPATH"

// Option configures an Index.
type Option func(*Index)

// WithFilter sets a predicate deciding whether a normalized path is indexed.
// Rejected paths are silently skipped.
func WithFilter(fn func(name string) bool) Option {
	return func(x *Index) {
		x.filter = fn
	}
}

// WithLogger sets the logger used for archive loading events. By default,
// nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(x *Index) {
		if l != nil {
			x.log = l
		}
	}
}

// WithVerifyLZ4Checksums enables verification of LZ4 frame header, block and
// content checksums during extraction. It is off by default since some
// archives contain frames with checksums which do not match.
func WithVerifyLZ4Checksums(v bool) Option {
	return func(x *Index) {
		x.verifyLZ4 = v
	}
}

// WithDataPath sets the directory loaded in place of an empty path. It
// defaults to DefaultDataPath.
func WithDataPath(p string) Option {
	return func(x *Index) {
		x.dataPath = p
	}
}

// DefaultDataPath returns the data path from the BA2VFS_DATAPATH environment
// variable, with trailing separators removed. It is only used if it is an
// absolute path or starts with a dot.
func DefaultDataPath() (string, bool) {
	s := os.Getenv(DataPathEnv)
	if s == "" {
		return "", false
	}
	if !(s[0] == '.' || s[0] == '/' || s[0] == '\\' || isDriveLetter(s)) {
		return "", false
	}
	s = strings.TrimRight(s, `/\`)
	return s, s != ""
}

func isDriveLetter(s string) bool {
	return len(s) >= 2 && s[1] == ':' && (s[0]|0x20) >= 'a' && (s[0]|0x20) <= 'z'
}
