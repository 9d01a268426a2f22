package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor builds component trees whose state survives rebuilds",
	Long: `Arbor builds component trees from YAML descriptions. Every component owns a
scope handle keyed by its position, so state written to it survives rebuilds,
description edits and, with a snapshot backend, process restarts.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Log level written to stderr: debug, info, warn or error (default: off)")
	flags.String("root-id", "", "Name of the tree in the snapshot store (default: description name)")
	flags.String("snapshots", "", "Directory for file snapshots")
	flags.String("redis", "", "Redis URL for snapshots, e.g. redis://localhost:6379/0 (overrides --snapshots)")
	flags.String("snapshot-key", os.Getenv("ARBOR_SNAPSHOT_KEY"), "Hex encoded AES-256 key for snapshots (env ARBOR_SNAPSHOT_KEY)")
	flags.StringSlice("fallback-key", nil, "Older snapshot keys accepted on load")
	flags.StringSlice("redact", nil, "Position patterns whose state is never persisted")
	flags.Bool("fresh", false, "Discard the stored snapshot instead of restoring it")
}

// optionsFrom reads the persistent flags. The first argument, when present,
// is the description path.
func optionsFrom(cmd *cobra.Command, args []string) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{Path: "."}
	if len(args) > 0 {
		opts.Path = args[0]
	}
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.RootID, _ = flags.GetString("root-id")
	opts.SnapshotDir, _ = flags.GetString("snapshots")
	opts.RedisURL, _ = flags.GetString("redis")
	opts.SnapshotKey, _ = flags.GetString("snapshot-key")
	opts.FallbackKeys, _ = flags.GetStringSlice("fallback-key")
	opts.Redact, _ = flags.GetStringSlice("redact")
	opts.Fresh, _ = flags.GetBool("fresh")
	return opts
}

// terminalRenderer returns a glamour renderer when stdout is a terminal and
// nil otherwise, so piped output stays plain markdown.
func terminalRenderer() func(string) (string, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	render, err := tui.NewRenderer(true)
	if err != nil {
		return nil
	}
	return render
}
