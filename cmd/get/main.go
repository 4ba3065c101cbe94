package get

import (
	"fmt"
	"os"

	"github.com/pg9182/ba2vfs/ba2util"
	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	Archives []string
	Files    []string
}

var Command = &cobra.Command{
	Use:     "get [archive_path...] -- file...",
	Aliases: []string{"cat"},
	Short:   "Reads files from archives to stdout",
	Args: func(cmd *cobra.Command, args []string) error {
		if n := cmd.ArgsLenAtDash(); n < 0 || n == len(args) {
			return fmt.Errorf("at least one file name is required after --")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Archives, Flags.Files = root.SplitArgs(cmd, args)
		main()
	},
}

func init() {
	root.ArgArchives(Command, true)
	root.Command.AddCommand(Command)
}

func main() {
	x, err := root.Open(Flags.Archives, nil)
	if err != nil {
		root.Fatalf("%v", err)
	}
	defer x.Close()

	c, err := ba2util.NewCache(x, root.Flags.CacheSize)
	if err != nil {
		root.Fatalf("%v", err)
	}

	var failed int
	for _, name := range Flags.Files {
		if err := func() error {
			b, err := c.ReadFile(name)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(b)
			return err
		}(); err != nil {
			fmt.Fprintf(os.Stderr, "error: read file %q: %v\n", name, err)
			failed++
		}
	}
	if failed != 0 {
		os.Exit(1)
	}
}
