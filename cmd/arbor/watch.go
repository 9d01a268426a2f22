package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild on every state write and description edit",
	Long: `Runs the engine loop and prints each generation. Lines read from stdin in
the form position=value are written to the tree. Editing the description swaps
the root in place and keeps state at every position that survives the edit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")

		tui.PrintBanner(os.Stdout, arbor.Version)

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		err := cli.Watch(sigCtx, optionsFrom(cmd, args), cli.WatchOptions{
			Input:    os.Stdin,
			Debounce: debounce,
			Render:   terminalRenderer(),
		}, os.Stdout)
		if sig := sigCtx.Signal(); sig != nil {
			fmt.Printf("\n>>> Stopped (%v).\n", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("debounce", cli.DefaultWatchDebounce, "Quiet period after a description edit before it is reloaded")
}
