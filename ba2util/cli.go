// Package ba2util contains helpers for command-line tools built on ba2vfs.
package ba2util

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/pg9182/ba2vfs"
	"github.com/pg9182/ba2vfs/internal"
	"github.com/spf13/pflag"
)

// CLIIncludeExclude selects archive files using command-line flags.
type CLIIncludeExclude struct {
	Exclude *[]string
	Include *[]string
	Match   *[]string
}

// NewCLIIncludeExclude creates a new CLIIncludeExclude and registers it with
// the provided [pflag.FlagSet].
func NewCLIIncludeExclude(set *pflag.FlagSet, short bool) CLIIncludeExclude {
	const (
		excludeDoc = "excludes files or directories matching the provided glob (anchor to the start with /)"
		includeDoc = "negates --exclude for files or directories matching the provided glob (if only includes are provided, it excludes everything else)"
		matchDoc   = "only selects files with a name including the provided string, or listed in @file"
	)
	if short {
		return CLIIncludeExclude{
			Exclude: set.StringSliceP("exclude", "e", nil, excludeDoc),
			Include: set.StringSliceP("include", "E", nil, includeDoc),
			Match:   set.StringArrayP("match", "m", nil, matchDoc),
		}
	}
	return CLIIncludeExclude{
		Exclude: set.StringSlice("exclude", nil, excludeDoc),
		Include: set.StringSlice("include", nil, includeDoc),
		Match:   set.StringArray("match", nil, matchDoc),
	}
}

// Filter compiles the flags, plus additional match patterns (e.g., from
// positional arguments), into a Filter. A pattern starting with @ names a list
// file (see LoadFileList), and a pattern of * selects everything.
func (ie CLIIncludeExclude) Filter(patterns ...string) (*Filter, error) {
	var f Filter
	if ie.Exclude != nil {
		f.Exclude = append(f.Exclude, *ie.Exclude...)
	}
	if ie.Include != nil {
		f.Include = append(f.Include, *ie.Include...)
	}
	for _, g := range slices.Concat(f.Exclude, f.Include) {
		if _, err := internal.MatchGlobParents(g, ""); err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", g, err)
		}
	}
	var match []string
	if ie.Match != nil {
		match = append(match, *ie.Match...)
	}
	for _, p := range append(match, patterns...) {
		switch {
		case p == "*":
			f.All = true
		case len(p) > 1 && p[0] == '@':
			names, err := LoadFileList(p[1:])
			if err != nil {
				return nil, err
			}
			if f.Names == nil {
				f.Names = map[string]struct{}{}
			}
			for _, n := range names {
				f.Names[n] = struct{}{}
			}
		default:
			if p = ba2vfs.NormalizePath(p); p != "" {
				f.Match = append(f.Match, p)
			}
		}
	}
	return &f, nil
}

// Filter selects normalized archive paths.
type Filter struct {
	All     bool                // select everything, ignoring Names and Match
	Names   map[string]struct{} // exact names
	Match   []string            // substrings
	Exclude []string            // globs
	Include []string            // globs negating Exclude
}

// Keep returns true if name is selected.
func (f *Filter) Keep(name string) bool {
	if !f.All && (len(f.Names) != 0 || len(f.Match) != 0) {
		var ok bool
		if _, ok = f.Names[name]; !ok {
			for _, s := range f.Match {
				if strings.Contains(name, s) {
					ok = true
					break
				}
			}
		}
		if !ok {
			return false
		}
	}
	var excluded bool
	for _, g := range f.Exclude {
		if m, _ := internal.MatchGlobParents(g, name); m {
			excluded = true
			break
		}
	}
	if len(f.Exclude) == 0 && len(f.Include) != 0 {
		excluded = true
	}
	if excluded {
		for _, g := range f.Include {
			if m, _ := internal.MatchGlobParents(g, name); m {
				excluded = false
				break
			}
		}
	}
	return !excluded
}

// Empty returns true if the filter selects everything.
func (f *Filter) Empty() bool {
	return len(f.Names) == 0 && len(f.Match) == 0 && len(f.Exclude) == 0 && len(f.Include) == 0
}

// Func returns Keep, or nil if the filter selects everything.
func (f *Filter) Func() func(name string) bool {
	if f.Empty() {
		return nil
	}
	return f.Keep
}

// Missing returns the sorted names from list files which are not in x.
func (f *Filter) Missing(x *ba2vfs.Index) []string {
	var missing []string
	for n := range f.Names {
		if _, ok := x.Find(n); !ok {
			missing = append(missing, n)
		}
	}
	slices.Sort(missing)
	return missing
}

// Dirs returns the parent directories of the provided paths, with trailing
// slashes, for completion.
func Dirs(names []string) []string {
	seen := map[string]struct{}{}
	var dirs []string
	for _, n := range names {
		for d := path.Dir(n); d != "." && d != "/"; d = path.Dir(d) {
			if _, ok := seen[d]; ok {
				break
			}
			seen[d] = struct{}{}
			dirs = append(dirs, d+"/")
		}
	}
	slices.Sort(dirs)
	return dirs
}
