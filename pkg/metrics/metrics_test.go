package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mikekulinski/jobmonitor/pkg/znode"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	testRegistry = prometheus.NewRegistry()
	registerOnce sync.Once
)

// registerForTest registers the collectors once for the whole package. Register only
// succeeds against the first registerer it sees.
func registerForTest(t *testing.T) {
	t.Helper()
	registerOnce.Do(func() {
		require.NoError(t, Register(testRegistry))
	})
}

func count(op, result string) float64 {
	return testutil.ToFloat64(operationsTotal.WithLabelValues(op, result))
}

func TestRegisterIdempotent(t *testing.T) {
	registerForTest(t)
	assert.NoError(t, Register(testRegistry))
	assert.NoError(t, Register(prometheus.NewRegistry()))
}

func TestInstrument(t *testing.T) {
	registerForTest(t)
	ctx := context.Background()
	zk := Instrument(znode.NewDB())

	beforeOK := count("create", ResultOK)
	beforeExists := count("create", ResultExists)
	beforeNotFound := count("get_data", ResultNotFound)

	_, err := zk.Create(ctx, "/a", []byte("v"))
	require.NoError(t, err)
	_, err = zk.Create(ctx, "/a", nil)
	assert.ErrorIs(t, err, zookeeper.ErrNodeExists)
	_, _, err = zk.GetData(ctx, "/missing")
	assert.ErrorIs(t, err, zookeeper.ErrNoNode)

	assert.Equal(t, beforeOK+1, count("create", ResultOK))
	assert.Equal(t, beforeExists+1, count("create", ResultExists))
	assert.Equal(t, beforeNotFound+1, count("get_data", ResultNotFound))
}

func TestInstrument_PassesThrough(t *testing.T) {
	registerForTest(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockZK := mocks.NewMockZookeeper(ctrl)
	zk := Instrument(mockZK)
	boom := errors.New("boom")

	tests := []struct {
		name   string
		op     string
		expect func()
		call   func() error
	}{
		{
			name: "delete",
			op:   "delete",
			expect: func() {
				mockZK.EXPECT().Delete(ctx, "/a", int32(3)).Return(boom)
			},
			call: func() error { return zk.Delete(ctx, "/a", 3) },
		},
		{
			name: "exists",
			op:   "exists",
			expect: func() {
				mockZK.EXPECT().Exists(ctx, "/a").Return(nil, boom)
			},
			call: func() error {
				_, err := zk.Exists(ctx, "/a")
				return err
			},
		},
		{
			name: "set data",
			op:   "set_data",
			expect: func() {
				mockZK.EXPECT().SetData(ctx, "/a", []byte("v"), zookeeper.AnyVersion).Return(nil, boom)
			},
			call: func() error {
				_, err := zk.SetData(ctx, "/a", []byte("v"), zookeeper.AnyVersion)
				return err
			},
		},
		{
			name: "get children",
			op:   "get_children",
			expect: func() {
				mockZK.EXPECT().GetChildren(ctx, "/a").Return(nil, boom)
			},
			call: func() error {
				_, err := zk.GetChildren(ctx, "/a")
				return err
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			before := count(test.op, ResultError)
			test.expect()
			assert.ErrorIs(t, test.call(), boom)
			assert.Equal(t, before+1, count(test.op, ResultError))
		})
	}
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", expected: ResultOK},
		{name: "no node", err: zookeeper.ErrNoNode, expected: ResultNotFound},
		{name: "wrapped no node", err: errors.Join(errors.New("ctx"), zookeeper.ErrNoNode), expected: ResultNotFound},
		{name: "exists", err: zookeeper.ErrNodeExists, expected: ResultExists},
		{name: "other", err: zookeeper.ErrBadVersion, expected: ResultError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, resultOf(test.err))
		})
	}
}

func TestSessionConnected(t *testing.T) {
	registerForTest(t)
	SetSessionConnected(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(sessionConnected))
	SetSessionConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(sessionConnected))
}

func TestHandlerFor(t *testing.T) {
	registerForTest(t)
	ObserveOperation("create", ResultOK, 0.01)

	srv := httptest.NewServer(HandlerFor(testRegistry))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "jobmonitor_zookeeper_operations_total"))
	assert.True(t, strings.Contains(string(body), "jobmonitor_zookeeper_operation_duration_seconds"))
}
