package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/rs/zerolog"
)

// DefaultRetryCount is reported for tasks that have never been retried. Retry counts are 1-based.
const DefaultRetryCount = 1

// Registry keeps the cross references between jobs, tasks, processes and experiments that the
// job monitors need, as a fixed layout of znodes (see Paths). Every method is a single-shot
// read or write against the store. Nothing is cached and nothing is retried, so store errors
// come back to the caller wrapped but otherwise unchanged.
//
// Registry is safe for concurrent use when the underlying store is. Writes to the same node from
// different callers are last-writer-wins, and read-modify-write sequences such as retry count
// increments can lose updates.
type Registry struct {
	zk     zookeeper.Zookeeper
	paths  Paths
	logger zerolog.Logger
}

type Option func(*Registry)

// WithRoot changes the root znode of the layout from DefaultRoot.
func WithRoot(root string) Option {
	return func(r *Registry) {
		r.paths = NewPaths(root)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(zk zookeeper.Zookeeper, opts ...Option) *Registry {
	r := &Registry{
		zk:     zk,
		paths:  NewPaths(DefaultRoot),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Paths() Paths { return r.paths }

// JobRegistration holds the identifiers that get linked together when monitoring starts for a job.
type JobRegistration struct {
	JobID        string
	JobName      string
	TaskID       string
	ProcessID    string
	ExperimentID string
	Gateway      string
}

// validate checks the identifiers that become path segments. The task id, experiment id and
// gateway are only stored as node data and are kept as given.
func (j JobRegistration) validate() error {
	return checkIDs(
		namedID{"job id", j.JobID},
		namedID{"job name", j.JobName},
		namedID{"process id", j.ProcessID},
	)
}

// RegisterJob creates the monitoring nodes of a job, the reverse job name mapping and the
// process to job mapping. Missing parents are created. Nodes are created one at a time and
// nothing is rolled back on failure, so calling it again after a partial failure can return
// zookeeper.ErrNodeExists for the nodes that were already written.
func (r *Registry) RegisterJob(ctx context.Context, reg JobRegistration) error {
	if err := reg.validate(); err != nil {
		return err
	}
	r.logger.Info().
		Str("job_id", reg.JobID).
		Str("process_id", reg.ProcessID).
		Str("gateway", reg.Gateway).
		Msg("Creating zookeeper paths for job monitoring")

	nodes := []struct {
		path string
		data []byte
	}{
		{r.paths.Lock(reg.JobID), nil},
		{r.paths.Gateway(reg.JobID), []byte(reg.Gateway)},
		{r.paths.Process(reg.JobID), []byte(reg.ProcessID)},
		{r.paths.Task(reg.JobID), []byte(reg.TaskID)},
		{r.paths.Experiment(reg.JobID), []byte(reg.ExperimentID)},
		{r.paths.JobName(reg.JobID), []byte(reg.JobName)},
		{r.paths.JobIDByName(reg.JobName), []byte(reg.JobID)},
		{r.paths.ProcessJobs(reg.ProcessID), []byte(reg.JobID)},
	}
	for _, n := range nodes {
		if _, err := zookeeper.CreateRecursive(ctx, r.zk, n.path, n.data); err != nil {
			return fmt.Errorf("registering job [%s]: creating [%s]: %w", reg.JobID, n.path, err)
		}
	}
	return nil
}

// RegisterWorkflow marks workflowID as belonging to processID.
func (r *Registry) RegisterWorkflow(ctx context.Context, processID, workflowID string) error {
	if err := checkIDs(namedID{"process id", processID}, namedID{"workflow id", workflowID}); err != nil {
		return err
	}
	path := r.paths.ProcessWorkflow(processID, workflowID)
	if _, err := zookeeper.CreateRecursive(ctx, r.zk, path, nil); err != nil {
		return fmt.Errorf("registering workflow [%s] on process [%s]: %w", workflowID, processID, err)
	}
	return nil
}

// RegisterCancelProcess replaces the status of processID with the cancel marker.
func (r *Registry) RegisterCancelProcess(ctx context.Context, processID string) error {
	return r.SetProcessStatus(ctx, processID, Cancelled())
}

// SetProcessStatus replaces the status of processID.
func (r *Registry) SetProcessStatus(ctx context.Context, processID string, status ProcessStatus) error {
	if err := checkID("process id", processID); err != nil {
		return err
	}
	r.logger.Debug().Str("process_id", processID).Str("status", status.String()).Msg("Updating process status")
	return r.setValue(ctx, r.paths.ProcessStatus(processID), []byte(status.String()))
}

// StatusOfProcess returns the status of processID, or found=false if none was written.
func (r *Registry) StatusOfProcess(ctx context.Context, processID string) (ProcessStatus, bool, error) {
	if err := checkID("process id", processID); err != nil {
		return ProcessStatus{}, false, err
	}
	value, found, err := r.getValue(ctx, r.paths.ProcessStatus(processID))
	if err != nil || !found {
		return ProcessStatus{}, found, err
	}
	return parseProcessStatus(value), true, nil
}

// TaskRetryCount returns the retry count of taskID, or DefaultRetryCount if it was never increased.
func (r *Registry) TaskRetryCount(ctx context.Context, taskID string) (int, error) {
	if err := checkID("task id", taskID); err != nil {
		return 0, err
	}
	path := r.paths.TaskRetry(taskID)
	value, found, err := r.getValue(ctx, path)
	if err != nil {
		return 0, err
	}
	if !found {
		return DefaultRetryCount, nil
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ParseError{Path: path, Value: value, Err: err}
	}
	return count, nil
}

// IncreaseTaskRetryCount stores currentRetryCount+1 as the retry count of taskID. The caller
// passes the count it last read, so two callers increasing concurrently can both write the
// same value.
func (r *Registry) IncreaseTaskRetryCount(ctx context.Context, taskID string, currentRetryCount int) error {
	if err := checkID("task id", taskID); err != nil {
		return err
	}
	next := currentRetryCount + 1
	r.logger.Debug().Str("task_id", taskID).Int("retry_count", next).Msg("Increasing task retry count")
	return r.setValue(ctx, r.paths.TaskRetry(taskID), []byte(strconv.Itoa(next)))
}

func (r *Registry) ExperimentIDByJobID(ctx context.Context, jobID string) (string, bool, error) {
	return r.lookup(ctx, "job id", jobID, r.paths.Experiment)
}

func (r *Registry) TaskIDByJobID(ctx context.Context, jobID string) (string, bool, error) {
	return r.lookup(ctx, "job id", jobID, r.paths.Task)
}

func (r *Registry) ProcessIDByJobID(ctx context.Context, jobID string) (string, bool, error) {
	return r.lookup(ctx, "job id", jobID, r.paths.Process)
}

func (r *Registry) GatewayByJobID(ctx context.Context, jobID string) (string, bool, error) {
	return r.lookup(ctx, "job id", jobID, r.paths.Gateway)
}

func (r *Registry) JobNameByJobID(ctx context.Context, jobID string) (string, bool, error) {
	return r.lookup(ctx, "job id", jobID, r.paths.JobName)
}

func (r *Registry) JobIDByJobName(ctx context.Context, jobName string) (string, bool, error) {
	return r.lookup(ctx, "job name", jobName, r.paths.JobIDByName)
}

func (r *Registry) JobIDByProcessID(ctx context.Context, processID string) (string, bool, error) {
	return r.lookup(ctx, "process id", processID, r.paths.ProcessJobs)
}

// HasMonitoringRegistered reports whether the monitoring subtree of jobID exists.
func (r *Registry) HasMonitoringRegistered(ctx context.Context, jobID string) (bool, error) {
	if err := checkID("job id", jobID); err != nil {
		return false, err
	}
	stat, err := r.zk.Exists(ctx, r.paths.Job(jobID))
	if err != nil {
		return false, fmt.Errorf("checking monitoring of job [%s]: %w", jobID, err)
	}
	return stat != nil, nil
}

// UpdateJobStatus replaces the status of jobID.
func (r *Registry) UpdateJobStatus(ctx context.Context, jobID string, state JobState) error {
	if err := checkID("job id", jobID); err != nil {
		return err
	}
	if _, err := ParseJobState(string(state)); err != nil {
		return err
	}
	r.logger.Debug().Str("job_id", jobID).Str("state", state.String()).Msg("Updating job status")
	return r.setValue(ctx, r.paths.JobStatus(jobID), []byte(state.String()))
}

// CurrentJobStatus returns the last status written for jobID, or found=false if there is none.
func (r *Registry) CurrentJobStatus(ctx context.Context, jobID string) (JobState, bool, error) {
	if err := checkID("job id", jobID); err != nil {
		return "", false, err
	}
	path := r.paths.JobStatus(jobID)
	value, found, err := r.getValue(ctx, path)
	if err != nil || !found {
		return "", found, err
	}
	state, err := ParseJobState(value)
	if err != nil {
		return "", false, &ParseError{Path: path, Value: value, Err: err}
	}
	return state, true, nil
}

// WorkflowsOfProcess returns the ids of the workflows registered on processID. found is false when
// no workflow was ever registered, which is different from an empty result.
func (r *Registry) WorkflowsOfProcess(ctx context.Context, processID string) ([]string, bool, error) {
	if err := checkID("process id", processID); err != nil {
		return nil, false, err
	}
	children, err := r.zk.GetChildren(ctx, r.paths.ProcessWorkflows(processID))
	if errors.Is(err, zookeeper.ErrNoNode) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("listing workflows of process [%s]: %w", processID, err)
	}
	if children == nil {
		children = []string{}
	}
	return children, true, nil
}

// DeleteTaskNodes removes the retry count of taskID. It is a no-op if there is nothing to delete.
func (r *Registry) DeleteTaskNodes(ctx context.Context, taskID string) error {
	if err := checkID("task id", taskID); err != nil {
		return err
	}
	if err := zookeeper.DeleteIfExists(ctx, r.zk, r.paths.TaskRetry(taskID)); err != nil {
		return fmt.Errorf("deleting nodes of task [%s]: %w", taskID, err)
	}
	return r.deleteIfEmpty(ctx, r.paths.TaskRoot(taskID))
}

// DeleteProcessNodes removes everything registered for processID: the monitoring nodes of the job
// registered to it, the reverse job name mapping, and the process registry nodes. Every step is
// skipped when its node is already gone, so calling it again is a no-op.
func (r *Registry) DeleteProcessNodes(ctx context.Context, processID string) error {
	if err := checkID("process id", processID); err != nil {
		return err
	}
	jobID, found, err := r.JobIDByProcessID(ctx, processID)
	if err != nil {
		return err
	}
	if found {
		if err := r.deleteJobNodes(ctx, jobID); err != nil {
			return err
		}
	}

	for _, path := range []string{
		r.paths.ProcessJobs(processID),
		r.paths.ProcessWorkflows(processID),
		r.paths.ProcessStatus(processID),
	} {
		if err := zookeeper.DeleteIfExists(ctx, r.zk, path); err != nil {
			return fmt.Errorf("deleting nodes of process [%s]: %w", processID, err)
		}
	}
	return r.deleteIfEmpty(ctx, r.paths.ProcessRegistry(processID))
}

func (r *Registry) deleteJobNodes(ctx context.Context, jobID string) error {
	if err := checkID("job id", jobID); err != nil {
		// A process can only point at a malformed job id if someone wrote it by hand.
		return fmt.Errorf("process points at job: %w", err)
	}
	r.logger.Info().Str("job_id", jobID).Msg("Deleting zookeeper paths in job monitoring")

	// Read the job name before its node goes away.
	jobName, nameFound, err := r.JobNameByJobID(ctx, jobID)
	if err != nil {
		return err
	}

	for _, path := range []string{
		r.paths.Lock(jobID),
		r.paths.Gateway(jobID),
		r.paths.Process(jobID),
		r.paths.Task(jobID),
		r.paths.Experiment(jobID),
		r.paths.JobName(jobID),
		r.paths.JobStatus(jobID),
	} {
		if err := zookeeper.DeleteIfExists(ctx, r.zk, path); err != nil {
			return fmt.Errorf("deleting monitoring nodes of job [%s]: %w", jobID, err)
		}
	}
	if err := r.deleteIfEmpty(ctx, r.paths.Job(jobID)); err != nil {
		return err
	}

	if nameFound && checkID("job name", jobName) == nil {
		if err := zookeeper.DeleteIfExists(ctx, r.zk, r.paths.JobIDByName(jobName)); err != nil {
			return fmt.Errorf("deleting job name mapping of job [%s]: %w", jobID, err)
		}
		if err := r.deleteIfEmpty(ctx, r.paths.JobNameRoot(jobName)); err != nil {
			return err
		}
	}
	return nil
}

// deleteIfEmpty removes a directory node once its children are gone. A job name can double as
// another job's id, so shared directories are only removed when nothing else lives under them.
func (r *Registry) deleteIfEmpty(ctx context.Context, path string) error {
	err := r.zk.Delete(ctx, path, zookeeper.AnyVersion)
	if err == nil || errors.Is(err, zookeeper.ErrNoNode) || errors.Is(err, zookeeper.ErrNotEmpty) {
		return nil
	}
	return fmt.Errorf("deleting [%s]: %w", path, err)
}

func (r *Registry) lookup(ctx context.Context, kind, id string, path func(string) string) (string, bool, error) {
	if err := checkID(kind, id); err != nil {
		return "", false, err
	}
	return r.getValue(ctx, path(id))
}

// getValue reads a node as a string. A missing node is reported as found=false rather than an error.
func (r *Registry) getValue(ctx context.Context, path string) (string, bool, error) {
	data, _, err := r.zk.GetData(ctx, path)
	if errors.Is(err, zookeeper.ErrNoNode) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading [%s]: %w", path, err)
	}
	return string(data), true, nil
}

// setValue replaces the data of a node in place, creating it and its parents when missing.
func (r *Registry) setValue(ctx context.Context, path string, data []byte) error {
	_, err := r.zk.SetData(ctx, path, data, zookeeper.AnyVersion)
	if errors.Is(err, zookeeper.ErrNoNode) {
		_, err = zookeeper.CreateRecursive(ctx, r.zk, path, data)
		if errors.Is(err, zookeeper.ErrNodeExists) {
			// Another writer created it first. Last writer wins.
			_, err = r.zk.SetData(ctx, path, data, zookeeper.AnyVersion)
		}
	}
	if err != nil {
		return fmt.Errorf("writing [%s]: %w", path, err)
	}
	return nil
}

func checkID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidID, kind)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: %s %q is a relative path", ErrInvalidID, kind, id)
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: %s %q contains '/'", ErrInvalidID, kind, id)
	}
	return nil
}

type namedID struct {
	kind string
	id   string
}

// checkIDs reports the first invalid id, in argument order.
func checkIDs(ids ...namedID) error {
	for _, n := range ids {
		if err := checkID(n.kind, n.id); err != nil {
			return err
		}
	}
	return nil
}
