package list

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pg9182/ba2vfs/ba2util"
	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/pg9182/ba2vfs/internal"
	"github.com/spf13/cobra"
)

var Flags struct {
	Archives       []string
	Patterns       []string
	HumanReadable  bool
	Long           bool
	Sizes          bool
	Packed         bool
	Test           bool
	IncludeExclude ba2util.CLIIncludeExclude
}

var Command = &cobra.Command{
	Use:     "list [archive_path...] [-- pattern...]",
	Short:   "Lists the files in archives and data directories",
	Aliases: []string{"ls"},
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Archives, Flags.Patterns = root.SplitArgs(cmd, args)
		main(cmd)
	},
}

func init() {
	Command.Flags().Bool("help", false, "help for "+Command.Name()) // prevent the default short help flag from being set
	Command.Flags().BoolVarP(&Flags.HumanReadable, "human-readable", "h", false, "show sizes in human-readable form")
	Command.Flags().BoolVarP(&Flags.Long, "long", "l", false, "show detailed file metadata (adds the following columns to the beginning: format source packed_size[bytes] size[bytes] packed_percent)")
	Command.Flags().BoolVarP(&Flags.Sizes, "sizes", "s", false, "show the extracted size of each file after its name")
	Command.Flags().BoolVarP(&Flags.Packed, "packed", "p", false, "with --sizes, show compressed sizes instead")
	Command.Flags().BoolVarP(&Flags.Test, "test", "t", false, "also attempt to extract each file (adds a column with OK/ERR to the end)")
	Flags.IncludeExclude = root.FlagIncludeExclude(Command)
	root.ArgArchives(Command, true)
	root.Command.AddCommand(Command)
}

func main(cmd *cobra.Command) {
	filter, err := root.Filter(cmd, Flags.IncludeExclude, Flags.Patterns)
	if err != nil {
		root.Fatalf("%v", err)
	}

	x, err := root.Open(Flags.Archives, filter.Func())
	if err != nil {
		root.Fatalf("%v", err)
	}
	defer x.Close()

	names := x.ListFiles(true, nil)

	var pathLen int
	for _, n := range names {
		pathLen = max(pathLen, min(len(n), 64))
	}

	var (
		buf          []byte
		testErrCount int
	)
	for _, n := range names {
		e, _ := x.Find(n)

		size, err := x.EntrySize(e, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: entry %q: compute size: %v\n", n, err)
		}
		packed, err := x.EntrySize(e, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: entry %q: compute packed size: %v\n", n, err)
		}

		if Flags.Long {
			src := "-"
			if !e.Location().IsLoose() {
				src = strconv.Itoa(e.Archive())
			}
			var pct float64
			if size != 0 {
				pct = float64(packed) / float64(size) * 100
			}
			fmt.Printf("%-7s %4s %9s %9s %6.2f %%  ", e.Format(), src, formatSize(packed), formatSize(size), pct)
		}
		if Flags.Test || Flags.Sizes {
			fmt.Printf("%*s", -pathLen, n)
		} else {
			fmt.Printf("%s", n)
		}
		if Flags.Sizes {
			if Flags.Packed {
				fmt.Printf("\t%9s bytes", formatSize(packed))
			} else {
				fmt.Printf("\t%9s bytes", formatSize(size))
			}
		}
		if Flags.Test {
			os.Stdout.Sync()
		}

		var testErr error
		if Flags.Test {
			if buf, testErr = x.ExtractEntry(buf, e); testErr != nil {
				testErrCount++
				fmt.Printf(" ERR")
			} else {
				fmt.Printf("  OK")
			}
		}
		fmt.Printf("\n")

		if testErr != nil {
			fmt.Fprintf(os.Stderr, "warning: entry %q: test: %v\n", n, testErr)
		}
	}

	missing := filter.Missing(x)
	for _, n := range missing {
		fmt.Fprintf(os.Stderr, "warning: %q not found in archives\n", n)
	}
	if Flags.Test {
		fmt.Fprintf(os.Stderr, "%d/%d files valid\n", len(names)-testErrCount, len(names))
	}
	if testErrCount != 0 || len(missing) != 0 {
		os.Exit(1)
	}
}

func formatSize(b int64) string {
	if !Flags.HumanReadable {
		return strconv.FormatInt(b, 10)
	}
	s := internal.FormatBytesSI(b)
	s, isB := strings.CutSuffix(s, " B")
	if isB {
		s += "  B"
	}
	return s
}
