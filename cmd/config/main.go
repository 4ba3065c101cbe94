package config

import (
	"fmt"
	"os"

	"github.com/pg9182/ba2vfs/cmd/root"
	"github.com/pg9182/ba2vfs/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var Flags struct {
	Init bool
}

var Command = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	Command.Flags().BoolVar(&Flags.Init, "init", false, "write the effective configuration to the config file")
	root.Command.AddCommand(Command)
}

func main() {
	cfg := *root.Config
	cfg.Threads = root.Flags.Threads
	cfg.VerifyLZ4Checksums = root.Flags.VerifyLZ4
	cfg.CacheSize = root.Flags.CacheSize

	if Flags.Init {
		path := root.Flags.Config
		if path == "" {
			var err error
			if path, err = config.Path(); err != nil {
				root.Fatalf("%v", err)
			}
		}
		if err := config.Save(path, &cfg); err != nil {
			root.Fatalf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return
	}
	if err := yaml.NewEncoder(os.Stdout).Encode(&cfg); err != nil {
		root.Fatalf("encode config: %v", err)
	}
}
