package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheetbridge/sheetbridge/engine/orchestrator"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// ValidateCmd returns the validate command: configuration plus both API
// connections, without writing anything.
func ValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and connectivity to both APIs",
		RunE:  runValidate,
	}
	cmd.Flags().Bool("verbose", false, "Enable debug logging")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "configuration: ok")

	ctx, cancel := runContext(cmd, cfg)
	defer cancel()
	log := logger.FromContext(ctx)

	authMgr, err := newAuthManager(cmd, cfg)
	if err != nil {
		return err
	}
	if !authMgr.TestAuthentication(ctx) {
		return &exitError{
			code: orchestrator.ExitAuth,
			err:  fmt.Errorf("cannot acquire a Project Online access token"),
		}
	}
	fmt.Fprintln(out, "source authentication: ok")

	projects, err := orchestrator.NewSourceExtractor(source.NewClient(cfg, authMgr)).Projects(ctx)
	if err != nil {
		return &exitError{code: codeForError(err), err: err}
	}
	fmt.Fprintf(out, "source feed: ok (%d projects visible)\n", len(projects))

	workspaces, err := target.NewClient(cfg).ListWorkspaces(ctx)
	if err != nil {
		return &exitError{code: codeForError(err), err: err}
	}
	fmt.Fprintf(out, "target API: ok (%d workspaces visible)\n", len(workspaces))

	log.Debug("validation complete", "projects", len(projects), "workspaces", len(workspaces))
	return nil
}
