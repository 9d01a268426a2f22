package main

import (
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build a description once and print the tree",
	Long: `Loads the description, builds it, applies any --set writes with a second
pass and prints the resulting tree with its state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		format, _ := cmd.Flags().GetString("format")

		bopts := cli.BuildOptions{Sets: sets, Format: format}
		if format == cli.FormatMarkdown {
			bopts.Render = terminalRenderer()
		}
		return cli.Build(cmd.Context(), optionsFrom(cmd, args), bopts, os.Stdout)
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Export the component tree as a Mermaid diagram",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Build(cmd.Context(), optionsFrom(cmd, args), cli.BuildOptions{Format: cli.FormatMermaid}, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd, graphCmd)
	buildCmd.Flags().StringArray("set", nil, "State write applied after the first build, as position=value (repeatable)")
	buildCmd.Flags().StringP("format", "f", cli.FormatMarkdown, "Output format: markdown, json or mermaid")
}
