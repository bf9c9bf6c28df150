package monitoring

import "context"

// JobRecord is everything the registry knows about one job.
type JobRecord struct {
	JobID        string
	JobName      string
	TaskID       string
	ProcessID    string
	ExperimentID string
	Gateway      string
	// Status is empty when no status was ever written.
	Status JobState
	// RetryCount is the retry count of TaskID, when the task is known.
	RetryCount int
	// ProcessStatus and Workflows are only set when ProcessID is known.
	ProcessStatus *ProcessStatus
	Workflows     []string
}

// JobRecord collects every value linked to jobID. found is false when the job has no monitoring
// subtree. Fields whose node is missing are left empty. The reads are not atomic, so a record
// taken while another caller is writing can mix old and new values.
func (r *Registry) JobRecord(ctx context.Context, jobID string) (*JobRecord, bool, error) {
	registered, err := r.HasMonitoringRegistered(ctx, jobID)
	if err != nil || !registered {
		return nil, false, err
	}

	rec := &JobRecord{JobID: jobID}
	fields := []struct {
		get func(context.Context, string) (string, bool, error)
		dst *string
	}{
		{r.JobNameByJobID, &rec.JobName},
		{r.TaskIDByJobID, &rec.TaskID},
		{r.ProcessIDByJobID, &rec.ProcessID},
		{r.ExperimentIDByJobID, &rec.ExperimentID},
		{r.GatewayByJobID, &rec.Gateway},
	}
	for _, f := range fields {
		value, _, err := f.get(ctx, jobID)
		if err != nil {
			return nil, false, err
		}
		*f.dst = value
	}

	if rec.Status, _, err = r.CurrentJobStatus(ctx, jobID); err != nil {
		return nil, false, err
	}
	if rec.TaskID != "" && checkID("task id", rec.TaskID) == nil {
		if rec.RetryCount, err = r.TaskRetryCount(ctx, rec.TaskID); err != nil {
			return nil, false, err
		}
	}
	if rec.ProcessID != "" && checkID("process id", rec.ProcessID) == nil {
		status, found, err := r.StatusOfProcess(ctx, rec.ProcessID)
		if err != nil {
			return nil, false, err
		}
		if found {
			rec.ProcessStatus = &status
		}
		if rec.Workflows, _, err = r.WorkflowsOfProcess(ctx, rec.ProcessID); err != nil {
			return nil, false, err
		}
	}
	return rec, true, nil
}
