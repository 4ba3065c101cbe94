package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	root.Command.AddCommand(Command)
}

func main() {
	var vcs struct {
		revision string
		time     time.Time
		modified bool
	}
	var lz4 string
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				vcs.revision = s.Value
			case "vcs.time":
				if v, err := time.ParseInLocation(time.RFC3339Nano, s.Value, time.UTC); err == nil {
					vcs.time = v
				}
			case "vcs.modified":
				if v, err := strconv.ParseBool(s.Value); err == nil {
					vcs.modified = v
				}
			}
		}
		for _, d := range bi.Deps {
			if d.Path == "github.com/pierrec/lz4/v4" {
				lz4 = d.Version
				if d.Replace != nil {
					lz4 = d.Replace.Path + " " + d.Replace.Version
				}
			}
		}
	}

	version := "ba2vfs "
	if len(vcs.revision) >= 7 {
		version += vcs.revision[:7]
	} else {
		version += "unknown"
	}
	if !vcs.time.IsZero() {
		version += " (" + vcs.time.Format(time.DateOnly) + ")"
	}
	if vcs.modified {
		version += " (modified)"
	}
	fmt.Println(version)

	if lz4 == "" || lz4 == "(devel)" {
		lz4 = "unknown"
	}
	fmt.Println("lz4 " + lz4)
}
