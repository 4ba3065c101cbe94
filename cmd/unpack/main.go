package unpack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pg9182/ba2vfs"
	"github.com/pg9182/ba2vfs/ba2util"
	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/pg9182/ba2vfs/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var Flags struct {
	Archives       []string
	Patterns       []string
	Path           string
	KeepGoing      bool
	IncludeExclude ba2util.CLIIncludeExclude
}

var Command = &cobra.Command{
	Use:   "unpack -o out_path [archive_path...] [-- pattern...]",
	Short: "Extracts files from archives and data directories",
	Run: func(cmd *cobra.Command, args []string) {
		Flags.Archives, Flags.Patterns = root.SplitArgs(cmd, args)
		main(cmd)
	},
}

func init() {
	Command.Flags().StringVarP(&Flags.Path, "output", "o", "", "output directory")
	Command.Flags().BoolVarP(&Flags.KeepGoing, "keep-going", "k", false, "continue extracting other files after an error")
	Command.MarkFlagRequired("output")
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

	if err := os.Mkdir(Flags.Path, 0777); err != nil && !errors.Is(err, fs.ErrExist) {
		root.Fatalf("create output directory: %v", err)
	}

	var (
		mu     sync.Mutex
		failed int
		done   int
		bufs   = sync.Pool{New: func() any { return new([]byte) }}
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(root.Flags.Threads)

	names := x.ListFiles(true, nil)
	for _, name := range names {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			fmt.Fprintf(os.Stderr, "warning: skipping %q: path is outside the output directory\n", name)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			buf := bufs.Get().(*[]byte)
			defer bufs.Put(buf)

			err := extract(x, name, buf)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "error: extract %q: %v\n", name, err)
				if !Flags.KeepGoing {
					return err
				}
				return nil
			}
			if root.Flags.Verbose {
				fmt.Printf("[%4d/%4d] %s (%s)\n", done, len(names), name, internal.FormatBytesSI(int64(len(*buf))))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		os.Exit(1)
	}

	missing := filter.Missing(x)
	for _, n := range missing {
		fmt.Fprintf(os.Stderr, "warning: %q not found in archives\n", n)
	}
	if failed != 0 || len(missing) != 0 {
		os.Exit(1)
	}
	if root.Flags.Verbose {
		fmt.Printf("\nsuccess (%d files)\n", done)
	}
}

// extract writes name to the output directory via a temporary file, leaving
// the extracted data in buf.
func extract(x *ba2vfs.Index, name string, buf *[]byte) error {
	e, ok := x.Find(name)
	if !ok {
		return fs.ErrNotExist
	}
	b, err := x.ExtractEntry(*buf, e)
	if err != nil {
		return err
	}
	*buf = b

	outPath := filepath.Join(Flags.Path, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(outPath), 0777); err != nil {
		return err
	}

	tf, err := os.CreateTemp(filepath.Dir(outPath), ".ba2vfs*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tf.Name())
	defer tf.Close()

	if _, err := tf.Write(b); err != nil {
		return err
	}
	if err := tf.Close(); err != nil {
		return err
	}
	if err := os.Rename(tf.Name(), outPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
