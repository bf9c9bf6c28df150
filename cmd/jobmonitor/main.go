package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := newApp(os.Stderr)
	if err := execute(context.Background(), a, buildRoot(a)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs root and then releases whatever setup opened, whether or not the command failed.
func execute(ctx context.Context, a *app, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
	Servers    []string
	Root       string
	Store      string
	LogLevel   string
}

// JobFlags holds the identifiers a job is registered with
type JobFlags struct {
	JobID        string
	JobName      string
	TaskID       string
	ProcessID    string
	ExperimentID string
	Gateway      string
}

// StatusFlags holds flags for the status and process-status commands
type StatusFlags struct {
	JobID     string
	ProcessID string
	State     string
	Value     string
}

// WorkflowFlags holds flags for the workflow commands
type WorkflowFlags struct {
	ProcessID  string
	WorkflowID string
}

// ServeFlags holds flags for serve and health
type ServeFlags struct {
	MetricsAddr string
	GRPCAddr    string
	Addr        string
	Service     string
}

// buildRoot creates the root command and wires every subcommand to a.
func buildRoot(a *app) *cobra.Command {
	globalFlags := &GlobalFlags{}
	jobFlags := &JobFlags{}
	statusFlags := &StatusFlags{}
	workflowFlags := &WorkflowFlags{}
	serveFlags := &ServeFlags{}

	c := command{app: a}

	root := createRootCommand(a, globalFlags)
	root.AddCommand(
		createRegisterCommand(c, jobFlags),
		createWorkflowCommand(c, workflowFlags),
		createCancelCommand(c),
		createRetryCommand(c),
		createStatusCommand(c, statusFlags),
		createProcessStatusCommand(c, statusFlags),
		createShowCommand(c),
		createLookupCommand(c),
		createCleanupCommand(c),
		createServeCommand(c, serveFlags),
		createHealthCommand(c, serveFlags),
	)
	return root
}

// createRootCommand creates the root command with the persistent connection flags
func createRootCommand(a *app, flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "jobmonitor",
		Short: "Job monitoring registry backed by ZooKeeper",
		Long: `jobmonitor records which jobs belong to which tasks, processes and experiments,
tracks job and process status, and cleans the records up once a process is done.

Examples:
  jobmonitor register --job-id=j1 --job-name=sim --task-id=t1 --process-id=p1 --experiment-id=e1 --gateway=gw
  jobmonitor status set --job-id=j1 --state=ACTIVE
  jobmonitor show j1
  jobmonitor cleanup process p1
  jobmonitor serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML/YAML/JSON config file (optional)")
	root.PersistentFlags().StringSliceVar(&flags.Servers, "servers", nil, "ZooKeeper servers as host:port (overrides config)")
	root.PersistentFlags().StringVar(&flags.Root, "root", "", "root znode of the monitoring layout (overrides config)")
	root.PersistentFlags().StringVar(&flags.Store, "store", "", "store backend: zookeeper or memory (overrides config)")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "log level (overrides config)")

	return root
}
