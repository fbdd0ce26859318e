package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AuthCmd returns the auth command group.
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage cached Project Online credentials",
	}
	cmd.AddCommand(authClearCmd())
	return cmd
}

func authClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached tokens, forcing a fresh sign-in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mgr, err := newAuthManager(cmd, cfg)
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			if all {
				if err := mgr.ClearAllCaches(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared all cached tokens")
				return nil
			}
			if err := mgr.ClearCache(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared cached token for the configured tenant and client")
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Clear tokens for every tenant and client, not just the configured pair")
	return cmd
}
