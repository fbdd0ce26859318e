// Package cli implements the sheetbridge command surface: import, validate,
// config and auth. Commands wire configuration, authentication and the
// migration engine together; the engine itself never talks to flags or
// terminals.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheetbridge/sheetbridge/engine/auth"
	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/orchestrator"
	"github.com/sheetbridge/sheetbridge/pkg/config"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps a command error to the process exit contract.
func ExitCode(err error) int {
	if err == nil {
		return orchestrator.ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return codeForError(err)
}

func codeForError(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return orchestrator.ExitCancelled
	case core.IsKind(err, core.KindAuth):
		return orchestrator.ExitAuth
	case core.IsKind(err, core.KindConfiguration):
		return orchestrator.ExitConfiguration
	default:
		return orchestrator.ExitValidation
	}
}

// loadConfig reads the environment configuration. Failures are
// configuration errors by definition.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &exitError{code: orchestrator.ExitConfiguration, err: err}
	}
	return cfg, nil
}

// runContext builds the command context: logger at the configured level
// (debug when --verbose) and cancellation on SIGINT/SIGTERM.
func runContext(cmd *cobra.Command, cfg *config.Config) (context.Context, context.CancelFunc) {
	level := logger.LogLevel(levelName(cfg.Runtime.LogLevel))
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.DebugLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:      level,
		Output:     cmd.ErrOrStderr(),
		TimeFormat: "15:04:05",
	})
	ctx := logger.ContextWithLogger(cmd.Context(), log)
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func levelName(configured string) string {
	switch configured {
	case "DEBUG":
		return "debug"
	case "WARN":
		return "warn"
	case "ERROR":
		return "error"
	case "SILENT":
		return "silent"
	default:
		return "info"
	}
}

// newAuthManager assembles the device-code auth manager from configuration.
func newAuthManager(cmd *cobra.Command, cfg *config.Config) (*auth.Manager, error) {
	root, err := tenantRoot(cfg.Source.ProjectOnlineURL)
	if err != nil {
		return nil, err
	}
	mgr, err := auth.NewManager(auth.Options{
		TenantID:    cfg.Source.TenantID,
		ClientID:    cfg.Source.ClientID,
		TenantRoot:  root,
		CacheDir:    cfg.Auth.TokenCacheDir,
		Timeout:     cfg.Auth.DeviceCodeTimeout,
		ForceDevice: cfg.Auth.UseDeviceCodeFlow,
		Display:     &deviceCodePrinter{out: cmd.ErrOrStderr()},
	})
	if err != nil {
		return nil, &exitError{code: orchestrator.ExitConfiguration, err: err}
	}
	return mgr, nil
}

// tenantRoot reduces the source URL to scheme+host, the OAuth resource the
// AllSites scopes attach to.
func tenantRoot(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &exitError{
			code: orchestrator.ExitConfiguration,
			err:  core.NewConfigurationError(fmt.Sprintf("PROJECT_ONLINE_URL %q is not a valid URL", sourceURL)),
		}
	}
	return u.Scheme + "://" + u.Host, nil
}
