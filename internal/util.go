// Package internal contains helpers shared by the command-line tools.
package internal

import (
	"fmt"
	"path"
	"strings"
)

// MatchGlobParents is like path.Match, but matches if the pattern matches the
// full path, any parent directory, or (unless the pattern starts with a slash)
// any single component. Backslashes are treated as slashes, and matching is
// case-insensitive, as archive paths are.
func MatchGlobParents(pattern string, name string) (bool, error) {
	pattern, anchor := strings.CutPrefix(cleanSlashes(pattern), "/")
	pattern = strings.Trim(pattern, "/")
	name = strings.Trim(cleanSlashes(name), "/")

	if pattern == "" {
		return anchor, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return false, err
	}
	for name != "" {
		if m, _ := path.Match(pattern, name); m {
			return true, nil
		}
		dir, base := path.Split(name)
		if !anchor {
			if m, _ := path.Match(pattern, base); m {
				return true, nil
			}
		}
		name = strings.TrimSuffix(dir, "/")
	}
	return false, nil
}

// cleanSlashes lower-cases s, converts backslashes, and collapses repeated
// slashes.
func cleanSlashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			c = '/'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		if c == '/' && b.Len() > 0 && b.String()[b.Len()-1] == '/' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// FormatBytesSI formats the provided quantity with SI prefixes.
func FormatBytesSI(b int64) string {
	sign := ""
	if b < 0 {
		sign, b = "-", -b
	}
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%s%d B", sign, b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %cB", sign, float64(b)/float64(div), "kMGTPE"[exp])
}
