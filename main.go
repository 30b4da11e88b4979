package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"gcm/internal/appConfig"
	"gcm/internal/cloneCommand"
	"gcm/internal/gitrepo"
	logger "gcm/internal/log"
)

const (
	exitOK          = 0
	exitFatal       = 1
	exitIncomplete  = 2
	hostKeysWarning = `Host keys of every GitLab SSH endpoint must be trusted before running unattended,
e.g. with ssh-keyscan into ~/.ssh/known_hosts. A first contact prompt is not answered and
stalls the clone until cloneTimeout kills it.`
)

type rootOptions struct {
	configPath  string
	verbose     bool
	logLevel    string
	logFile     string
	metricsFile string
	parallelism int
	dryRun      bool
	hostName    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(&rootOptions{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Log.Errorf("%v", err)
	}
	os.Exit(exitCode(err))
}

func newRootCommand(options *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "gcm",
		Short: "Mirror GitLab group trees onto local disk",
		Long: `gcm walks GitLab groups and subgroups through the REST API and clones every project
into a directory tree that follows the project namespaces.

` + hostKeysWarning,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&options.configPath, "config", "", "config file (default ./"+appConfig.DefaultConfigFileName+" or ~/"+appConfig.DefaultConfigFileName+")")
	flags.BoolVar(&options.verbose, "verbose", false, "print verbose output")
	flags.StringVar(&options.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&options.logFile, "log-file", "", "write the log to this file and show live progress on the terminal")
	flags.StringVar(&options.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after the run")
	flags.IntVar(&options.parallelism, "parallelism", 0, "number of concurrent clones, overrides the configured value")
	flags.BoolVar(&options.dryRun, "dry-run", false, "list what would be cloned without cloning")

	root.AddCommand(newAllCommand(options), newGroupCommand(options))
	return root
}

func newAllCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Clone every group visible to the access token",
		Long:  "Clone every group visible to the access token on every configured host.\n\n" + hostKeysWarning,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), options, cloneCommand.Target{All: true})
		},
	}
}

func newGroupCommand(options *rootOptions) *cobra.Command {
	command := &cobra.Command{
		Use:   "group <id>...",
		Short: "Clone the subtree of one or more groups",
		Long:  "Clone the projects of the given groups and of all their subgroups.\n\n" + hostKeysWarning,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupIDs, err := parseGroupIDs(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), options, cloneCommand.Target{GroupIDs: groupIDs, HostName: options.hostName})
		},
	}
	command.Flags().StringVar(&options.hostName, "host", "", "host name or API base URL to use when several hosts are configured")
	return command
}

func parseGroupIDs(args []string) ([]int, error) {
	groupIDs := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid group id %q: expected a positive integer", arg)
		}
		groupIDs = append(groupIDs, id)
	}
	return groupIDs, nil
}

func run(ctx context.Context, options *rootOptions, target cloneCommand.Target) (err error) {
	loggerOptions := logger.Options{Verbose: options.verbose, Level: options.logLevel}
	if _, err := logger.InitLogger(loggerOptions); err != nil {
		return err
	}

	config, err := appConfig.LoadConfig(options.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if options.logFile != "" {
		config.LogFile = options.logFile
	}
	if options.metricsFile != "" {
		config.MetricsFile = options.metricsFile
	}

	logFilePath := ""
	if config.LogFile != "" {
		loggerOptions.File = config.LogFile
		var closer io.Closer
		closer, err = logger.InitLogger(loggerOptions)
		if err != nil {
			return err
		}
		defer func() {
			// the run error belongs in the log file too; main reports it again on stderr
			if err != nil {
				logger.Log.Errorf("%v", err)
			}
			_ = closer.Close()
		}()
		logFilePath = logger.GetLogFilePath(config.LogFile)
	}

	_, err = cloneCommand.ExecuteCloneCommand(ctx, config, target, cloneCommand.Options{
		DryRun:      options.dryRun,
		Parallelism: options.parallelism,
		LogFilePath: logFilePath,
	})
	return err
}

// exitCode maps a run error to the process exit code: 2 when the run completed but some
// repositories or branches could not be mirrored, 1 for anything that stopped the run.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitFatal
	case errors.Is(err, gitrepo.ErrCloneFailures), errors.Is(err, cloneCommand.ErrBranchesSkipped):
		return exitIncomplete
	default:
		return exitFatal
	}
}
