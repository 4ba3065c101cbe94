package texture

import (
	"fmt"
	"os"

	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/spf13/cobra"
)

var Flags struct {
	Archives []string
	File     string
	Output   string
	MipSkip  int
}

var Command = &cobra.Command{
	Use:   "texture [-m mip_skip] [-o out_path] [archive_path...] -- file",
	Short: "Extracts a texture as a DDS file, optionally skipping the largest mipmaps",
	Args: func(cmd *cobra.Command, args []string) error {
		if n := cmd.ArgsLenAtDash(); n < 0 || len(args)-n != 1 {
			return fmt.Errorf("exactly one file name is required after --")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		var rest []string
		Flags.Archives, rest = root.SplitArgs(cmd, args)
		Flags.File = rest[0]
		main()
	},
}

func init() {
	Command.Flags().IntVarP(&Flags.MipSkip, "mip-skip", "m", 0, "number of mipmaps to skip (only whole chunks are skipped)")
	Command.Flags().StringVarP(&Flags.Output, "output", "o", "", "output file (default is stdout)")
	root.ArgArchives(Command, true)
	root.Command.AddCommand(Command)
}

func main() {
	if Flags.MipSkip < 0 {
		root.Fatalf("mip skip must not be negative")
	}

	x, err := root.Open(Flags.Archives, nil)
	if err != nil {
		root.Fatalf("%v", err)
	}
	defer x.Close()

	b, rem, err := x.ExtractTexture(Flags.File, Flags.MipSkip, nil)
	if err != nil {
		root.Fatalf("read texture %q: %v", Flags.File, err)
	}
	if root.Flags.Verbose {
		fmt.Fprintf(os.Stderr, "skipped %d of %d mipmaps\n", Flags.MipSkip-rem, Flags.MipSkip)
	}

	if Flags.Output == "" {
		if _, err := os.Stdout.Write(b); err != nil {
			root.Fatalf("write texture: %v", err)
		}
		return
	}
	if err := os.WriteFile(Flags.Output, b, 0666); err != nil {
		root.Fatalf("write texture: %v", err)
	}
}
