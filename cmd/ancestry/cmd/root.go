// Package cmd provides the CLI commands for ancestry.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/logging"
	"github.com/Aman-CERP/ancestry/internal/profiling"
	"github.com/Aman-CERP/ancestry/pkg/version"
)

// Persistent flags shared by every subcommand.
var (
	projectDir     string
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the ancestry CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ancestry",
		Short: "Index entities together with every collection they belong to",
		Long: `ancestry expands hierarchy fields of a search index with the ancestors of
each referenced entity, so a search within a collection also finds items
filed in its sub-collections.

Typical flow:
  ancestry load entities.yaml        # fill the entity database
  ancestry discover                  # list candidate fields and relations
  ancestry configure --enable member_of=Collection-memberOf
  ancestry index                     # build the search index
  ancestry search --field member_of --within <collection-id>`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("ancestry version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Project directory holding .ancestry.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ancestry/logs/")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newConfigureCmd())
	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newAncestorsCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging installs the debug file logger when --debug is
// set and starts any requested profiles.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profileSession = session
	}

	if !debugMode {
		return nil
	}
	cfg := logging.DebugConfig()
	cfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("debug_logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

// stopProfilingAndLogging writes the requested profiles and closes the
// debug log.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profileSession.Stop()
	profileSession = nil

	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err == nil {
		return nil
	}
	slog.Debug("command_failed", slog.Any("error", ancerrors.FormatForLog(err)))
	if _, ok := ancerrors.As(err); ok {
		fmt.Fprintln(os.Stderr, ancerrors.FormatForUser(err, debugMode))
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
