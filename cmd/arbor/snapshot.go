package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage persisted tree state",
}

var snapshotListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored snapshots",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ListSnapshots(cmd.Context(), optionsFrom(cmd, nil), os.Stdout)
	},
}

var snapshotInspectCmd = &cobra.Command{
	Use:   "inspect <root-id>",
	Short: "Print a stored snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.InspectSnapshot(cmd.Context(), optionsFrom(cmd, nil), args[0], os.Stdout)
	},
}

var snapshotRemoveCmd = &cobra.Command{
	Use:     "rm <root-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a stored snapshot",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.DeleteSnapshot(cmd.Context(), optionsFrom(cmd, nil), args[0]); err != nil {
			return err
		}
		fmt.Printf(">>> Snapshot '%s' deleted.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd, snapshotInspectCmd, snapshotRemoveCmd)
}
