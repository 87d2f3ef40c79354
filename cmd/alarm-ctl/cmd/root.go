package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-scheduler/internal/config"
	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/service/client"
	"github.com/oshokin/alarm-scheduler/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// groupID is the target group of start and change.
	groupID int64
	// kinds filters watch output.
	kinds []string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Control a running alarm scheduler.",
		Long: `Sends requests to an alarm-scheduler over gRPC.

The scheduler address comes from grpc_addr in the configuration file,
ALARM_SCHEDULER_GRPC_ADDR or --grpc-addr.`,
		SilenceUsage: true,
	}

	startCmd = &cobra.Command{
		Use:   "start <alarm-id> <seconds> <message...>",
		Short: "Start a new alarm.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := alarmRequest(alarm.CommandStart, args)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Start(ctx, req)
			})
		},
	}

	changeCmd = &cobra.Command{
		Use:   "change <alarm-id> <seconds> <message...>",
		Short: "Change the group, delay or message of a pending alarm.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := alarmRequest(alarm.CommandChange, args)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Change(ctx, req)
			})
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel <alarm-id>",
		Short: "Cancel a pending alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNonNegative("alarm-id", args[0])
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Cancel(ctx, id)
			})
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List pending alarms in due order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.List(ctx)
			})
		},
	}

	groupsCmd = &cobra.Command{
		Use:   "groups",
		Short: "List active groups and their display workers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Groups(ctx)
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream scheduler events until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Watch(ctx, kinds)
			})
		},
	}

	execCmd = &cobra.Command{
		Use:   "exec <command line...>",
		Short: "Run one console command, e.g. 'Start_Alarm(1): Group(2) 30 tea'.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *client.Session) error {
				return s.Exec(ctx, strings.Join(args, " "))
			})
		},
	}
)

// withSession connects, runs fn and closes the connection. SIGINT and
// SIGTERM cancel the context.
func withSession(cmd *cobra.Command, fn func(context.Context, *client.Session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	overrides, err := config.NewOverrides(cmd.Flags(), "grpc-addr", "timeout", "log-level")
	if err != nil {
		return err
	}

	session, err := client.Open(ctx, &client.Options{
		Overrides:  overrides,
		Out:        cmd.OutOrStdout(),
		ConfigPath: configPath,
	})
	if err != nil {
		return err
	}

	defer func() { _ = session.Close() }()

	return fn(ctx, session)
}

// alarmRequest builds a start or change request from positional arguments.
func alarmRequest(command alarm.Command, args []string) (alarm.Request, error) {
	id, err := parseNonNegative("alarm-id", args[0])
	if err != nil {
		return alarm.Request{}, err
	}

	seconds, err := parseNonNegative("seconds", args[1])
	if err != nil {
		return alarm.Request{}, err
	}

	return alarm.Request{
		Message: strings.Join(args[2:], " "),
		AlarmID: id,
		GroupID: groupID,
		Seconds: seconds,
		Command: command,
	}, nil
}

func parseNonNegative(name, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
	}

	return n, nil
}

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.String("grpc-addr", config.DefaultGRPCAddress, "scheduler gRPC address")
	flags.Duration("timeout", config.DefaultTimeout, "timeout for each request")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")

	for _, c := range []*cobra.Command{startCmd, changeCmd} {
		c.Flags().Int64VarP(&groupID, "group", "g", 0, "target group")
	}

	watchCmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil,
		"event kinds to show (alarm_inserted, alarm_changed, alarm_cancelled, alarm_expired, display_tick, worker_created, worker_terminated)")

	rootCmd.AddCommand(startCmd, changeCmd, cancelCmd, listCmd, groupsCmd, watchCmd, execCmd)
}
