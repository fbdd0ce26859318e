package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd returns the config command: the effective configuration after
// defaults, .env and environment, with secrets redacted.
func ConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "smartsheet.api_token        %s\n", cfg.Smartsheet.APIToken)
			fmt.Fprintf(out, "source.tenant_id            %s\n", cfg.Source.TenantID)
			fmt.Fprintf(out, "source.client_id            %s\n", cfg.Source.ClientID)
			fmt.Fprintf(out, "source.project_online_url   %s\n", cfg.Source.ProjectOnlineURL)
			fmt.Fprintf(out, "source.rate_limit_per_min   %d\n", cfg.Source.RateLimitPerMin)
			fmt.Fprintf(out, "auth.use_device_code_flow   %t\n", cfg.Auth.UseDeviceCodeFlow)
			fmt.Fprintf(out, "auth.token_cache_dir        %s\n", cfg.Auth.TokenCacheDir)
			fmt.Fprintf(out, "auth.device_code_timeout    %s\n", cfg.Auth.DeviceCodeTimeout)
			fmt.Fprintf(out, "standards.workspace_id      %d\n", cfg.Standards.WorkspaceID)
			fmt.Fprintf(out, "standards.template_id       %d\n", cfg.Standards.TemplateWorkspaceID)
			fmt.Fprintf(out, "runtime.solution_type       %s\n", cfg.Runtime.SolutionType)
			fmt.Fprintf(out, "runtime.log_level           %s\n", cfg.Runtime.LogLevel)
			fmt.Fprintf(out, "runtime.batch_size          %d\n", cfg.Runtime.BatchSize)
			fmt.Fprintf(out, "runtime.max_retries         %d\n", cfg.Runtime.MaxRetries)
			fmt.Fprintf(out, "runtime.retry_delay         %s\n", cfg.Runtime.RetryDelay)
			fmt.Fprintf(out, "runtime.request_timeout     %s\n", cfg.Runtime.RequestTimeout)
			fmt.Fprintf(out, "runtime.dry_run             %t\n", cfg.Runtime.DryRun)
			fmt.Fprintf(out, "runtime.concurrency         %d\n", cfg.Runtime.Concurrency)
			fmt.Fprintf(out, "runtime.report_path         %s\n", cfg.Runtime.ReportPath)
			return nil
		},
	}
}
