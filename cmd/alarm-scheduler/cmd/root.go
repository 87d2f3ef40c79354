package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/service/server"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

// overrideFlags are the serve flags that map onto configuration keys.
var overrideFlags = []string{
	"grpc-addr",
	"http-addr",
	"journal-path",
	"log-level",
	"log-format",
	"display-interval",
	"max-message-length",
	"timeout",
}

var (
	// configPath to the configuration YAML file.
	configPath string
	// console enables the interactive prompt.
	console bool
	// journalLimit is the number of entries printed by `journal`.
	journalLimit int
	// force allows init-config to overwrite an existing file.
	force bool

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "alarm-scheduler",
		Short: "Schedule alarms and announce them by group.",
		Long: `Runs an in-memory alarm scheduler.

Alarms expire at their due time in earliest-first order. Every group with
pending alarms gets a display worker that announces the group's next alarm
on a fixed interval. Requests arrive over gRPC (alarm-ctl), the REST front
door or the interactive console.`,
		SilenceUsage: true,
	}

	// serveCmd runs the scheduler process.
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and its servers.",
		Long: `Starts the scheduler, the gRPC server and, when http_addr is set, the REST
front door with /metrics. With --console, command lines are read from
standard input:

  Start_Alarm(<id>): Group(<group>) <seconds> <message>
  Change_Alarm(<id>): Group(<group>) <seconds> <message>
  Cancel_Alarm(<id>)
  View_Alarms

Settings come from the configuration file, overridden by ALARM_SCHEDULER_*
variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			overrides, err := config.NewOverrides(cmd.Flags(), overrideFlags...)
			if err != nil {
				return err
			}

			return server.Run(ctx, &server.Options{
				Overrides:  overrides,
				Stdin:      cmd.InOrStdin(),
				Stdout:     cmd.OutOrStdout(),
				ConfigPath: configPath,
				Console:    console,
			})
		},
	}

	// journalCmd prints the event journal.
	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Print the most recent journal entries.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides, err := config.NewOverrides(cmd.Flags(), "journal-path")
			if err != nil {
				return err
			}

			return server.PrintJournal(cmd.Context(), &server.Options{
				Overrides:  overrides,
				Stdout:     cmd.OutOrStdout(),
				ConfigPath: configPath,
			}, journalLimit)
		},
	}

	// initConfigCmd writes a configuration file with defaults.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration file with default settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
			}

			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)

			return nil
		},
	}
)

// Execute runs the alarm-scheduler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	flags := serveCmd.Flags()
	flags.String("grpc-addr", config.DefaultGRPCAddress, "gRPC listen address")
	flags.String("http-addr", "", "REST listen address, empty disables it")
	flags.String("journal-path", "", "sqlite event journal, empty disables it")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.Duration("display-interval", config.DefaultDisplayInterval, "period of group announcements")
	flags.Int("max-message-length", config.DefaultMaxMessageLength, "longest accepted alarm message")
	flags.Duration("timeout", config.DefaultTimeout, "shutdown and request timeout")
	flags.BoolVar(&console, "console", false, "read commands from standard input")

	journalCmd.Flags().String("journal-path", "", "sqlite event journal")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "number of entries to print")

	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(serveCmd, journalCmd, initConfigCmd)
}
