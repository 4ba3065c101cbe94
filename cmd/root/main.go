package root

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/pg9182/ba2vfs"
	"github.com/pg9182/ba2vfs/ba2util"
	"github.com/pg9182/ba2vfs/internal/config"
	"github.com/spf13/cobra"
)

var Flags struct {
	Config    string
	Verbose   bool
	Threads   int
	VerifyLZ4 bool
	CacheSize int
}

// Config is the loaded configuration file.
var Config = config.Default()

// Log is the logger passed to the index. It only logs if --verbose is set.
var Log = slog.New(slog.DiscardHandler)

var Command = &cobra.Command{
	Use:          "ba2vfs",
	Short:        "Reads Bethesda BA2 and BSA archives.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(Flags.Config)
		if err != nil {
			return err
		}
		Config = cfg

		if !cmd.Flags().Changed("threads") && cfg.Threads != 0 {
			Flags.Threads = cfg.Threads
		}
		if !cmd.Flags().Changed("verify-lz4") {
			Flags.VerifyLZ4 = cfg.VerifyLZ4Checksums
		}
		if !cmd.Flags().Changed("cache-size") {
			Flags.CacheSize = cfg.CacheSize
		}
		if Flags.Threads <= 0 {
			Flags.Threads = runtime.NumCPU()
		}
		if Flags.Threads > runtime.GOMAXPROCS(0) {
			runtime.GOMAXPROCS(Flags.Threads)
		}
		if Flags.Verbose {
			Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		return nil
	},
}

var GroupArchive = &cobra.Group{
	ID:    "archive",
	Title: "Commands:",
}

func init() {
	Command.AddGroup(GroupArchive)
	Command.PersistentFlags().StringVar(&Flags.Config, "config", "", "config file (default is ba2vfs/config.yaml in the user config directory)")
	Command.PersistentFlags().BoolVarP(&Flags.Verbose, "verbose", "v", false, "display progress and archive loading information")
	Command.PersistentFlags().IntVarP(&Flags.Threads, "threads", "j", runtime.NumCPU(), "number of files to extract in parallel (default is cpu count)")
	Command.PersistentFlags().BoolVar(&Flags.VerifyLZ4, "verify-lz4", false, "verify LZ4 frame checksums")
	Command.PersistentFlags().IntVar(&Flags.CacheSize, "cache-size", 0, "number of extracted files to keep in memory (default from config)")
}

// SplitArgs splits the arguments of cmd into archive paths and the arguments
// after --.
func SplitArgs(cmd *cobra.Command, args []string) (paths, rest []string) {
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		return args[:n], args[n:]
	}
	return args, nil
}

// Open loads the provided archive paths (in load order, so later paths take
// precedence), or the configured data paths if there are none.
func Open(paths []string, filter func(string) bool) (*ba2vfs.Index, error) {
	if len(paths) == 0 {
		paths = Config.DataPaths
	}
	opt := []ba2vfs.Option{
		ba2vfs.WithLogger(Log),
		ba2vfs.WithVerifyLZ4Checksums(Flags.VerifyLZ4),
	}
	if filter != nil {
		opt = append(opt, ba2vfs.WithFilter(filter))
	}
	x, err := ba2vfs.Open(paths, opt...)
	if err != nil {
		return nil, fmt.Errorf("open archives: %w", err)
	}
	return x, nil
}

// FlagIncludeExclude adds the --exclude, --include and --match flags.
func FlagIncludeExclude(cmd *cobra.Command) ba2util.CLIIncludeExclude {
	return ba2util.NewCLIIncludeExclude(cmd.Flags(), true)
}

// Filter builds a filter from the flags and patterns, using the configured
// filters for flags which were not set.
func Filter(cmd *cobra.Command, ie ba2util.CLIIncludeExclude, patterns []string) (*ba2util.Filter, error) {
	for flag, def := range map[string]struct {
		v   *[]string
		cfg []string
	}{
		"exclude": {ie.Exclude, Config.Exclude},
		"include": {ie.Include, Config.Include},
		"match":   {ie.Match, Config.Match},
	} {
		if def.v != nil && !cmd.Flags().Changed(flag) && len(def.cfg) != 0 {
			*def.v = append([]string(nil), def.cfg...)
		}
	}
	f, err := ie.Filter(patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	return f, nil
}

// ArgArchives updates cmd to take archive paths, optionally followed by -- and
// file names, registering completions and setting the command group.
func ArgArchives(cmd *cobra.Command, names bool) {
	cmd.GroupID = GroupArchive.ID

	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if cmd.ArgsLenAtDash() < 0 || !names {
			return []string{"ba2", "bsa"}, cobra.ShellCompDirectiveFilterFileExt
		}
		if strings.HasPrefix(toComplete, "@") {
			return nil, cobra.ShellCompDirectiveDefault
		}
		paths, _ := SplitArgs(cmd, args)
		prefix := ba2vfs.NormalizePath(toComplete)
		x, err := Open(paths, func(name string) bool {
			return strings.HasPrefix(name, prefix)
		})
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer x.Close()

		files := x.ListFiles(true, nil)
		return append(ba2util.Dirs(files), files...), cobra.ShellCompDirectiveNoFileComp
	}
}

// Fatalf prints an error message and exits.
func Fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}
