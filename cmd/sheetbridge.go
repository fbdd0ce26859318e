// Package cmd assembles the sheetbridge root command.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheetbridge/sheetbridge/cli"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetbridge",
		Short:         "Migrate Microsoft Project Online into Smartsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.ImportCmd(),
		cli.ValidateCmd(),
		cli.ConfigCmd(),
		cli.AuthCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return 0
}
