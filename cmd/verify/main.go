package verify

import (
	"fmt"
	"os"
	"sync"

	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Flags struct {
	Archives []string
}

var Command = &cobra.Command{
	Use:   "verify [archive_path...]",
	Short: "Verifies that every file in archives can be extracted",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Archives = args
		main()
	},
}

func init() {
	root.ArgArchives(Command, false)
	root.Command.AddCommand(Command)
}

func main() {
	x, err := root.Open(Flags.Archives, nil)
	if err != nil {
		root.Fatalf("%v", err)
	}
	defer x.Close()

	var (
		mu      sync.Mutex
		failure int
		bufs    = sync.Pool{New: func() any { return new([]byte) }}
		g       errgroup.Group
	)
	g.SetLimit(root.Flags.Threads)

	names := x.ListFiles(true, nil)
	for _, name := range names {
		g.Go(func() error {
			e, _ := x.Find(name)

			buf := bufs.Get().(*[]byte)
			b, err := x.ExtractEntry(*buf, e)
			if err == nil {
				*buf = b[:0]
			}
			bufs.Put(buf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure++
				if root.Flags.Verbose {
					fmt.Printf("%s: ERROR\n", name)
				}
				fmt.Fprintf(os.Stderr, "%s: ERROR - %v\n", name, err)
			} else if root.Flags.Verbose {
				fmt.Printf("%s: OK\n", name)
			}
			return nil
		})
	}
	g.Wait()

	if failure != 0 {
		fmt.Fprintf(os.Stderr, "%d/%d files failed\n", failure, len(names))
		os.Exit(1)
	}
}
