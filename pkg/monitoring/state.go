package monitoring

import "fmt"

// JobState is the state of a job on the compute resource. It is stored in ZooKeeper by name.
type JobState string

const (
	JobStateSubmitted       JobState = "SUBMITTED"
	JobStateQueued          JobState = "QUEUED"
	JobStateActive          JobState = "ACTIVE"
	JobStateComplete        JobState = "COMPLETE"
	JobStateCanceled        JobState = "CANCELED"
	JobStateFailed          JobState = "FAILED"
	JobStateSuspended       JobState = "SUSPENDED"
	JobStateUnknown         JobState = "UNKNOWN"
	JobStateNonCriticalFail JobState = "NON_CRITICAL_FAIL"
)

var jobStates = map[JobState]struct{}{
	JobStateSubmitted:       {},
	JobStateQueued:          {},
	JobStateActive:          {},
	JobStateComplete:        {},
	JobStateCanceled:        {},
	JobStateFailed:          {},
	JobStateSuspended:       {},
	JobStateUnknown:         {},
	JobStateNonCriticalFail: {},
}

// ParseJobState converts a stored name back into a JobState. Names are case sensitive.
func ParseJobState(name string) (JobState, error) {
	s := JobState(name)
	if _, ok := jobStates[s]; !ok {
		return "", fmt.Errorf("unknown job state %q", name)
	}
	return s, nil
}

func (s JobState) String() string { return string(s) }

// Terminal reports whether a job in this state will not change state again.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateComplete, JobStateCanceled, JobStateFailed:
		return true
	default:
		return false
	}
}

// CancelMarker is the literal written to a process status node to request cancellation.
const CancelMarker = "cancel"

// ProcessStatus is the value of a process status node. The node is free text, but the
// cancel marker carries a control signal, so it gets its own kind.
type ProcessStatus struct {
	kind  processStatusKind
	value string
}

type processStatusKind int

const (
	processStatusOther processStatusKind = iota
	processStatusCancelled
)

// Cancelled is the status written by RegisterCancelProcess.
func Cancelled() ProcessStatus {
	return ProcessStatus{kind: processStatusCancelled, value: CancelMarker}
}

// OtherStatus wraps any free text status. OtherStatus(CancelMarker) is the same as Cancelled().
func OtherStatus(value string) ProcessStatus {
	return parseProcessStatus(value)
}

func parseProcessStatus(value string) ProcessStatus {
	if value == CancelMarker {
		return Cancelled()
	}
	return ProcessStatus{kind: processStatusOther, value: value}
}

func (s ProcessStatus) IsCancelled() bool { return s.kind == processStatusCancelled }

func (s ProcessStatus) String() string { return s.value }
