package cmd

import (
	"os"

	"github.com/pg9182/ba2vfs/cmd/root"

	_ "github.com/pg9182/ba2vfs/cmd/config"
	_ "github.com/pg9182/ba2vfs/cmd/get"
	_ "github.com/pg9182/ba2vfs/cmd/list"
	_ "github.com/pg9182/ba2vfs/cmd/texture"
	_ "github.com/pg9182/ba2vfs/cmd/unpack"
	_ "github.com/pg9182/ba2vfs/cmd/verify"
	_ "github.com/pg9182/ba2vfs/cmd/version"
)

func Execute() {
	if err := root.Command.Execute(); err != nil {
		os.Exit(1)
	}
}
