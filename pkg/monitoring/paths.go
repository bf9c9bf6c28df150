package monitoring

// DefaultRoot is the znode every monitoring path hangs off.
const DefaultRoot = "/airavata"

const (
	monitoringDir = "/monitoring/"
	registryDir   = "/registry/"
	taskDir       = "/task/"

	lockNode       = "/lock"
	gatewayNode    = "/gateway"
	processNode    = "/process"
	taskNode       = "/task"
	experimentNode = "/experiment"
	jobNameNode    = "/jobName"
	jobIDNode      = "/jobId"
	statusNode     = "/status"
	jobsNode       = "/jobs"
	workflowsNode  = "/workflows"
	retryNode      = "/retry"
)

// Paths builds the znode paths of the monitoring layout under a root:
//
//	{root}/monitoring/{jobId}/{lock,gateway,process,task,experiment,jobName,status}
//	{root}/monitoring/{jobName}/jobId
//	{root}/registry/{processId}/{jobs,status,workflows/{workflowId}}
//	{root}/task/{taskId}/retry
type Paths struct {
	root string
}

func NewPaths(root string) Paths {
	if root == "" {
		root = DefaultRoot
	}
	return Paths{root: root}
}

func (p Paths) Root() string { return p.root }

func (p Paths) monitoring(id, leaf string) string { return p.root + monitoringDir + id + leaf }

func (p Paths) registry(processID, leaf string) string { return p.root + registryDir + processID + leaf }

// Job returns the root of the per-job monitoring subtree.
func (p Paths) Job(jobID string) string { return p.monitoring(jobID, "") }

// Lock is created at registration but never acquired.
func (p Paths) Lock(jobID string) string { return p.monitoring(jobID, lockNode) }

func (p Paths) Gateway(jobID string) string { return p.monitoring(jobID, gatewayNode) }

func (p Paths) Process(jobID string) string { return p.monitoring(jobID, processNode) }

func (p Paths) Task(jobID string) string { return p.monitoring(jobID, taskNode) }

func (p Paths) Experiment(jobID string) string { return p.monitoring(jobID, experimentNode) }

func (p Paths) JobName(jobID string) string { return p.monitoring(jobID, jobNameNode) }

func (p Paths) JobStatus(jobID string) string { return p.monitoring(jobID, statusNode) }

// JobNameRoot is the parent of the reverse job name mapping. It shares the monitoring
// directory with the per-job subtrees.
func (p Paths) JobNameRoot(jobName string) string { return p.monitoring(jobName, "") }

// JobIDByName is the reverse mapping from a job name to its job id.
func (p Paths) JobIDByName(jobName string) string { return p.monitoring(jobName, jobIDNode) }

func (p Paths) ProcessRegistry(processID string) string { return p.registry(processID, "") }

func (p Paths) ProcessJobs(processID string) string { return p.registry(processID, jobsNode) }

func (p Paths) ProcessStatus(processID string) string { return p.registry(processID, statusNode) }

func (p Paths) ProcessWorkflows(processID string) string { return p.registry(processID, workflowsNode) }

func (p Paths) ProcessWorkflow(processID, workflowID string) string {
	return p.registry(processID, workflowsNode+"/"+workflowID)
}

func (p Paths) TaskRoot(taskID string) string { return p.root + taskDir + taskID }

func (p Paths) TaskRetry(taskID string) string { return p.TaskRoot(taskID) + retryNode }
