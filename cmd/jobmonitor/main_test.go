package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mikekulinski/jobmonitor/pkg/config"
	"github.com/mikekulinski/jobmonitor/pkg/health"
	"github.com/mikekulinski/jobmonitor/pkg/metrics"
	"github.com/mikekulinski/jobmonitor/pkg/monitoring"
	"github.com/mikekulinski/jobmonitor/pkg/znode"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// newTestApp returns an app whose commands all share one in-memory tree.
func newTestApp(t *testing.T) (*app, *znode.DB) {
	t.Helper()
	db := znode.NewDB()
	a := newApp(io.Discard)
	a.openStore = func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, wait bool) (zookeeper.Zookeeper, health.Checker, io.Closer, error) {
		return db, alwaysConnected{}, nopCloser{}, nil
	}
	return a, db
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := buildRoot(a)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := execute(context.Background(), a, root)
	return strings.TrimSpace(out.String()), err
}

func registerArgs(jobID, jobName, taskID, processID string) []string {
	return []string{
		"register",
		"--job-id=" + jobID,
		"--job-name=" + jobName,
		"--task-id=" + taskID,
		"--process-id=" + processID,
		"--experiment-id=exp-1",
		"--gateway=gw-1",
	}
}

func TestCLI_RegisterAndLookup(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := run(t, a, registerArgs("job-1", "sim-1", "task-1", "proc-1")...)
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "job by name",
			args:     []string{"lookup", "job-by-name", "sim-1"},
			expected: "job-1",
		},
		{
			name:     "job by process",
			args:     []string{"lookup", "job-by-process", "proc-1"},
			expected: "job-1",
		},
		{
			name:     "retry count defaults to one",
			args:     []string{"retry", "get", "task-1"},
			expected: "1",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := run(t, a, test.args...)
			require.NoError(t, err)
			assert.Equal(t, test.expected, out)
		})
	}
}

func TestCLI_NotFound(t *testing.T) {
	a, _ := newTestApp(t)
	tests := []struct {
		name string
		args []string
	}{
		{name: "job by name", args: []string{"lookup", "job-by-name", "missing"}},
		{name: "job by process", args: []string{"lookup", "job-by-process", "missing"}},
		{name: "job status", args: []string{"status", "get", "missing"}},
		{name: "process status", args: []string{"process-status", "get", "missing"}},
		{name: "workflows", args: []string{"workflow", "list", "missing"}},
		{name: "show", args: []string{"show", "missing"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := run(t, a, test.args...)
			assert.ErrorIs(t, err, errNotFound)
		})
	}
}

func TestCLI_Status(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := run(t, a, registerArgs("job-1", "sim-1", "task-1", "proc-1")...)
	require.NoError(t, err)

	_, err = run(t, a, "status", "set", "--job-id=job-1", "--state=active")
	require.NoError(t, err)
	out, err := run(t, a, "status", "get", "job-1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", out)

	_, err = run(t, a, "status", "set", "--job-id=job-1", "--state=sleeping")
	assert.Error(t, err)
}

func TestCLI_ProcessStatusAndCancel(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := run(t, a, "process-status", "set", "--process-id=proc-1", "--value=running")
	require.NoError(t, err)
	out, err := run(t, a, "process-status", "get", "proc-1")
	require.NoError(t, err)
	assert.Equal(t, "running", out)

	_, err = run(t, a, "cancel", "proc-1")
	require.NoError(t, err)
	out, err = run(t, a, "process-status", "get", "proc-1")
	require.NoError(t, err)
	assert.Equal(t, "cancel", out)
}

func TestCLI_ProcessStatusSetCancel(t *testing.T) {
	a, db := newTestApp(t)

	_, err := run(t, a, "process-status", "set", "--process-id=proc-1", "--value=cancel")
	require.NoError(t, err)

	status, found, err := monitoring.NewRegistry(db).StatusOfProcess(context.Background(), "proc-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, status.IsCancelled())
}

func TestCLI_Retry(t *testing.T) {
	a, _ := newTestApp(t)
	for _, expected := range []string{"2", "3", "4"} {
		out, err := run(t, a, "retry", "incr", "task-1")
		require.NoError(t, err)
		assert.Equal(t, expected, out)
	}
	out, err := run(t, a, "retry", "get", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "4", out)

	_, err = run(t, a, "cleanup", "task", "task-1")
	require.NoError(t, err)
	out, err = run(t, a, "retry", "get", "task-1")
	require.NoError(t, err)
	assert.Equal(t, "1", out)
}

func TestCLI_Workflows(t *testing.T) {
	a, _ := newTestApp(t)
	for _, w := range []string{"wf-b", "wf-a"} {
		_, err := run(t, a, "workflow", "add", "--process-id=proc-1", "--workflow-id="+w)
		require.NoError(t, err)
	}
	out, err := run(t, a, "workflow", "list", "proc-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wf-a", "wf-b"}, strings.Split(out, "\n"))
}

func TestCLI_ShowAndCleanup(t *testing.T) {
	a, db := newTestApp(t)
	jobID := uuid.New().String()
	_, err := run(t, a, registerArgs(jobID, "sim-1", "task-1", "proc-1")...)
	require.NoError(t, err)
	_, err = run(t, a, "status", "set", "--job-id="+jobID, "--state=QUEUED")
	require.NoError(t, err)

	out, err := run(t, a, "show", jobID)
	require.NoError(t, err)
	assert.Contains(t, out, jobID)
	assert.Contains(t, out, "sim-1")
	assert.Contains(t, out, "proc-1")
	assert.Contains(t, out, "QUEUED")

	_, err = run(t, a, "cleanup", "process", "proc-1")
	require.NoError(t, err)
	_, err = run(t, a, "show", jobID)
	assert.ErrorIs(t, err, errNotFound)
	assert.Nil(t, db.Get("/airavata/monitoring/"+jobID))

	// A second cleanup is a no-op.
	_, err = run(t, a, "cleanup", "process", "proc-1")
	assert.NoError(t, err)
}

func TestCLI_RootFlag(t *testing.T) {
	a, db := newTestApp(t)
	_, err := run(t, a, "--root=/custom", "cancel", "proc-1")
	require.NoError(t, err)
	assert.NotNil(t, db.Get("/custom/registry/proc-1/status"))
	assert.Nil(t, db.Get("/airavata"))
}

func TestCLI_InvalidArguments(t *testing.T) {
	a, _ := newTestApp(t)
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing required flag", args: []string{"register", "--job-id=j1"}},
		{name: "missing argument", args: []string{"show"}},
		{name: "invalid id", args: []string{"cancel", "a/b"}},
		{name: "invalid store", args: []string{"--store=etcd", "cancel", "p1"}},
		{name: "invalid root", args: []string{"--root=relative", "cancel", "p1"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := run(t, a, test.args...)
			assert.Error(t, err)
		})
	}
}

func TestServe(t *testing.T) {
	a, _ := newTestApp(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	a.cfg = cfg
	a.checker = alwaysConnected{}
	require.NoError(t, metrics.Register(prometheus.DefaultRegisterer))

	metricsLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- command{app: a}.serve(ctx, metricsLis, grpcLis) }()

	metrics.ObserveOperation("create", metrics.ResultOK, 0.001)
	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + metricsLis.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK &&
			strings.Contains(string(body), "jobmonitor_zookeeper_operations_total")
	}, 5*time.Second, 50*time.Millisecond)

	st, err := health.Check(context.Background(), grpcLis.Addr().String(), "", "test")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	// The health command runs on its own app so it does not touch the serving one.
	b, _ := newTestApp(t)
	out, err := run(t, b, "health", "--addr="+grpcLis.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, "SERVING", out)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestCLI_MemorySnapshotSurvivesRuns(t *testing.T) {
	t.Setenv("JOBMONITOR_MEMORY_SNAPSHOT_DIR", t.TempDir())

	_, err := run(t, newApp(io.Discard), append([]string{"--store=memory"}, registerArgs("job-1", "sim-1", "task-1", "proc-1")...)...)
	require.NoError(t, err)

	out, err := run(t, newApp(io.Discard), "--store=memory", "lookup", "job-by-name", "sim-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", out)
}

func TestCLI_MemorySnapshotSavedAfterFailure(t *testing.T) {
	t.Setenv("JOBMONITOR_MEMORY_SNAPSHOT_DIR", t.TempDir())

	_, err := run(t, newApp(io.Discard), append([]string{"--store=memory"}, registerArgs("job-1", "sim-1", "task-1", "proc-1")...)...)
	require.NoError(t, err)

	// The process mapping of proc-1 already exists, so this fails after the job nodes are written.
	_, err = run(t, newApp(io.Discard), append([]string{"--store=memory"}, registerArgs("job-2", "sim-2", "task-2", "proc-1")...)...)
	require.ErrorIs(t, err, zookeeper.ErrNodeExists)

	out, err := run(t, newApp(io.Discard), "--store=memory", "lookup", "job-by-name", "sim-2")
	require.NoError(t, err)
	assert.Equal(t, "job-2", out)

	_, err = run(t, newApp(io.Discard), append([]string{"--store=memory"}, registerArgs("job-2", "sim-2", "task-2", "proc-2")...)...)
	assert.ErrorIs(t, err, zookeeper.ErrNodeExists)
}

func TestExecute_ClosesOnFailure(t *testing.T) {
	a, _ := newTestApp(t)
	closed := false
	a.openStore = func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, wait bool) (zookeeper.Zookeeper, health.Checker, io.Closer, error) {
		return znode.NewDB(), alwaysConnected{}, closerFunc(func() error {
			closed = true
			return nil
		}), nil
	}

	_, err := run(t, a, "show", "missing")
	require.ErrorIs(t, err, errNotFound)
	assert.True(t, closed)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
