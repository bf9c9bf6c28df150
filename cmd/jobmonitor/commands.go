package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mikekulinski/jobmonitor/pkg/monitoring"
	"github.com/spf13/cobra"
)

// errNotFound is returned when a lookup has nothing to print.
var errNotFound = errors.New("not found")

// command runs registry operations against the store opened by app.
type command struct {
	app *app
}

func (c command) registry() *monitoring.Registry { return c.app.registry }

func (c command) Register(ctx context.Context, f JobFlags) error {
	return c.registry().RegisterJob(ctx, monitoring.JobRegistration{
		JobID:        f.JobID,
		JobName:      f.JobName,
		TaskID:       f.TaskID,
		ProcessID:    f.ProcessID,
		ExperimentID: f.ExperimentID,
		Gateway:      f.Gateway,
	})
}

func (c command) AddWorkflow(ctx context.Context, f WorkflowFlags) error {
	return c.registry().RegisterWorkflow(ctx, f.ProcessID, f.WorkflowID)
}

func (c command) ListWorkflows(ctx context.Context, out io.Writer, processID string) error {
	workflows, found, err := c.registry().WorkflowsOfProcess(ctx, processID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("workflows of process [%s]: %w", processID, errNotFound)
	}
	for _, w := range workflows {
		_, _ = fmt.Fprintln(out, w)
	}
	return nil
}

func (c command) Cancel(ctx context.Context, processID string) error {
	return c.registry().RegisterCancelProcess(ctx, processID)
}

func (c command) RetryCount(ctx context.Context, out io.Writer, taskID string) error {
	count, err := c.registry().TaskRetryCount(ctx, taskID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, count)
	return nil
}

// IncreaseRetryCount reads the current count and stores the next one.
func (c command) IncreaseRetryCount(ctx context.Context, out io.Writer, taskID string) error {
	count, err := c.registry().TaskRetryCount(ctx, taskID)
	if err != nil {
		return err
	}
	if err := c.registry().IncreaseTaskRetryCount(ctx, taskID, count); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, count+1)
	return nil
}

func (c command) JobStatus(ctx context.Context, out io.Writer, jobID string) error {
	state, found, err := c.registry().CurrentJobStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("status of job [%s]: %w", jobID, errNotFound)
	}
	_, _ = fmt.Fprintln(out, state)
	return nil
}

func (c command) SetJobStatus(ctx context.Context, f StatusFlags) error {
	state, err := monitoring.ParseJobState(strings.ToUpper(f.State))
	if err != nil {
		return err
	}
	return c.registry().UpdateJobStatus(ctx, f.JobID, state)
}

func (c command) ProcessStatus(ctx context.Context, out io.Writer, processID string) error {
	status, found, err := c.registry().StatusOfProcess(ctx, processID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("status of process [%s]: %w", processID, errNotFound)
	}
	_, _ = fmt.Fprintln(out, status)
	return nil
}

func (c command) SetProcessStatus(ctx context.Context, f StatusFlags) error {
	return c.registry().SetProcessStatus(ctx, f.ProcessID, monitoring.OtherStatus(f.Value))
}

func (c command) Show(ctx context.Context, out io.Writer, jobID string) error {
	rec, found, err := c.registry().JobRecord(ctx, jobID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("job [%s]: %w", jobID, errNotFound)
	}
	writeRecord(out, rec)
	return nil
}

func writeRecord(out io.Writer, rec *monitoring.JobRecord) {
	line := func(k, v string) { _, _ = fmt.Fprintf(out, "%-15s %s\n", k+":", v) }
	line("job id", rec.JobID)
	line("job name", rec.JobName)
	line("task id", rec.TaskID)
	line("process id", rec.ProcessID)
	line("experiment id", rec.ExperimentID)
	line("gateway", rec.Gateway)
	line("status", string(rec.Status))
	line("retry count", fmt.Sprint(rec.RetryCount))
	if rec.ProcessStatus != nil {
		line("process status", rec.ProcessStatus.String())
	}
	if len(rec.Workflows) > 0 {
		line("workflows", strings.Join(rec.Workflows, ","))
	}
}

// lookup prints the value found by get, or errNotFound.
func (c command) lookup(ctx context.Context, out io.Writer, what, id string, get func(context.Context, string) (string, bool, error)) error {
	value, found, err := get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s [%s]: %w", what, id, errNotFound)
	}
	_, _ = fmt.Fprintln(out, value)
	return nil
}

func (c command) CleanupProcess(ctx context.Context, processID string) error {
	return c.registry().DeleteProcessNodes(ctx, processID)
}

func (c command) CleanupTask(ctx context.Context, taskID string) error {
	return c.registry().DeleteTaskNodes(ctx, taskID)
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

// createRegisterCommand creates the register subcommand
func createRegisterCommand(c command, flags *JobFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a job for monitoring",
		Long: `Register a job by linking its id to its name, task, process, experiment and gateway.

Examples:
  jobmonitor register --job-id=j1 --job-name=sim --task-id=t1 --process-id=p1 --experiment-id=e1 --gateway=gw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Register(cmd.Context(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.JobID, "job-id", "", "job id (required)")
	cmd.Flags().StringVar(&flags.JobName, "job-name", "", "job name (required)")
	cmd.Flags().StringVar(&flags.TaskID, "task-id", "", "task id (required)")
	cmd.Flags().StringVar(&flags.ProcessID, "process-id", "", "process id (required)")
	cmd.Flags().StringVar(&flags.ExperimentID, "experiment-id", "", "experiment id (required)")
	cmd.Flags().StringVar(&flags.Gateway, "gateway", "", "gateway (required)")
	mustMarkRequired(cmd, "job-id", "job-name", "task-id", "process-id", "experiment-id", "gateway")
	return cmd
}

// createWorkflowCommand creates the workflow subcommand group
func createWorkflowCommand(c command, flags *WorkflowFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage the workflows of a process",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Mark a workflow as belonging to a process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.AddWorkflow(cmd.Context(), *flags)
		},
	}
	add.Flags().StringVar(&flags.ProcessID, "process-id", "", "process id (required)")
	add.Flags().StringVar(&flags.WorkflowID, "workflow-id", "", "workflow id (required)")
	mustMarkRequired(add, "process-id", "workflow-id")

	list := &cobra.Command{
		Use:   "list <processId>",
		Short: "List the workflows of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ListWorkflows(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// createCancelCommand creates the cancel subcommand
func createCancelCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <processId>",
		Short: "Mark a process as cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Cancel(cmd.Context(), args[0])
		},
	}
}

// createRetryCommand creates the retry subcommand group
func createRetryCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Read or increase the retry count of a task",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <taskId>",
			Short: "Print the retry count of a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.RetryCount(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "incr <taskId>",
			Short: "Increase the retry count of a task and print the new value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.IncreaseRetryCount(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		},
	)
	return cmd
}

// createStatusCommand creates the job status subcommand group
func createStatusCommand(c command, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read or write the status of a job",
	}

	get := &cobra.Command{
		Use:   "get <jobId>",
		Short: "Print the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.JobStatus(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set the status of a job",
		Long: `Set the status of a job. Valid states are SUBMITTED, QUEUED, ACTIVE, COMPLETE,
CANCELED, FAILED, SUSPENDED, UNKNOWN and NON_CRITICAL_FAIL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.SetJobStatus(cmd.Context(), *flags)
		},
	}
	set.Flags().StringVar(&flags.JobID, "job-id", "", "job id (required)")
	set.Flags().StringVar(&flags.State, "state", "", "new state (required)")
	mustMarkRequired(set, "job-id", "state")

	cmd.AddCommand(get, set)
	return cmd
}

// createProcessStatusCommand creates the process-status subcommand group
func createProcessStatusCommand(c command, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process-status",
		Short: "Read or write the status of a process",
	}

	get := &cobra.Command{
		Use:   "get <processId>",
		Short: "Print the status of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ProcessStatus(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Set the status of a process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.SetProcessStatus(cmd.Context(), *flags)
		},
	}
	set.Flags().StringVar(&flags.ProcessID, "process-id", "", "process id (required)")
	set.Flags().StringVar(&flags.Value, "value", "", "status value, \"cancel\" marks the process cancelled (required)")
	mustMarkRequired(set, "process-id", "value")

	cmd.AddCommand(get, set)
	return cmd
}

// createShowCommand creates the show subcommand
func createShowCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobId>",
		Short: "Print everything recorded for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Show(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

// createLookupCommand creates the lookup subcommand group
func createLookupCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve a job id",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "job-by-name <jobName>",
			Short: "Print the job id registered under a job name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.lookup(cmd.Context(), cmd.OutOrStdout(), "job name", args[0], c.registry().JobIDByJobName)
			},
		},
		&cobra.Command{
			Use:   "job-by-process <processId>",
			Short: "Print the job id registered for a process",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.lookup(cmd.Context(), cmd.OutOrStdout(), "process", args[0], c.registry().JobIDByProcessID)
			},
		},
	)
	return cmd
}

// createCleanupCommand creates the cleanup subcommand group
func createCleanupCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete monitoring records",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "process <processId>",
			Short: "Delete the records of a process and its job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.CleanupProcess(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "task <taskId>",
			Short: "Delete the retry count of a task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.CleanupTask(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}
