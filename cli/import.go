package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheetbridge/sheetbridge/engine/orchestrator"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/pkg/config"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// ImportCmd returns the import command, the main migration entry point.
func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Migrate Project Online projects into Smartsheet",
		Long: "Extracts projects, tasks, resources and assignments from Project Online " +
			"and loads them into Smartsheet, one workspace per project. Reruns are " +
			"idempotent: existing workspaces, sheets, columns and rows are reused.",
		RunE: runImport,
	}
	cmd.Flags().StringSlice("source", nil,
		"Project ID to migrate (repeatable), or the source tenant URL; default migrates every project")
	cmd.Flags().Int64("destination", 0,
		"Workspace ID of an existing PMO Standards workspace to adopt")
	cmd.Flags().Bool("dry-run", false, "Log writes instead of performing them")
	cmd.Flags().Bool("verbose", false, "Enable debug logging")
	cmd.Flags().String("since", "", "Reserved for incremental migration")
	cmd.Flags().Bool("incremental", false, "Reserved for incremental migration")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	projectIDs := applySourceFlags(cmd, cfg)
	ctx, cancel := runContext(cmd, cfg)
	defer cancel()
	log := logger.FromContext(ctx)

	authMgr, err := newAuthManager(cmd, cfg)
	if err != nil {
		return err
	}
	extractor := orchestrator.NewSourceExtractor(source.NewClient(cfg, authMgr))
	api := target.NewClient(cfg)
	if cfg.Runtime.DryRun {
		log.Info("dry run: no writes will reach Smartsheet")
	}

	orch := orchestrator.New(extractor, api, &progressPrinter{out: cmd.OutOrStdout()}, orchestrator.Options{
		StandardsWorkspaceID: cfg.Standards.WorkspaceID,
		TemplateWorkspaceID:  cfg.Standards.TemplateWorkspaceID,
		BatchSize:            cfg.Runtime.BatchSize,
		Concurrency:          cfg.Runtime.Concurrency,
		ReportPath:           cfg.Runtime.ReportPath,
	})
	summary, err := orch.Run(ctx, projectIDs)
	if err != nil {
		return &exitError{code: codeForError(err), err: err}
	}
	printSummary(cmd.OutOrStdout(), summary)
	if code := summary.ExitCode(); code != orchestrator.ExitOK {
		return &exitError{code: code, err: fmt.Errorf("%d of %d projects failed",
			summary.Failed(), len(summary.Results))}
	}
	return nil
}

// applySourceFlags folds --source, --destination and --dry-run onto the
// environment configuration. A --source value that looks like a URL
// overrides the tenant root; everything else is a project ID.
func applySourceFlags(cmd *cobra.Command, cfg *config.Config) []string {
	var projectIDs []string
	sources, _ := cmd.Flags().GetStringSlice("source")
	for _, s := range sources {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			cfg.Source.ProjectOnlineURL = s
			continue
		}
		projectIDs = append(projectIDs, s)
	}
	if dest, _ := cmd.Flags().GetInt64("destination"); dest != 0 {
		cfg.Standards.WorkspaceID = dest
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		cfg.Runtime.DryRun = true
	}
	return projectIDs
}
