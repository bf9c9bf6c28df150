package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
)

// instrumented records the outcome and latency of every call to the wrapped store.
type instrumented struct {
	next zookeeper.Zookeeper
	now  func() time.Time
}

var _ zookeeper.Zookeeper = (*instrumented)(nil)

// Instrument wraps zk so each operation is counted in operations_total and timed in
// operation_duration_seconds.
func Instrument(zk zookeeper.Zookeeper) zookeeper.Zookeeper {
	return &instrumented{next: zk, now: time.Now}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, zookeeper.ErrNoNode):
		return ResultNotFound
	case errors.Is(err, zookeeper.ErrNodeExists):
		return ResultExists
	}
	return ResultError
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	ObserveOperation(op, resultOf(err), i.now().Sub(start).Seconds())
}

func (i *instrumented) Create(ctx context.Context, path string, data []byte, flags ...zookeeper.Flag) (string, error) {
	start := i.now()
	name, err := i.next.Create(ctx, path, data, flags...)
	i.observe("create", start, err)
	return name, err
}

func (i *instrumented) Delete(ctx context.Context, path string, version int32) error {
	start := i.now()
	err := i.next.Delete(ctx, path, version)
	i.observe("delete", start, err)
	return err
}

func (i *instrumented) Exists(ctx context.Context, path string) (*zookeeper.Stat, error) {
	start := i.now()
	stat, err := i.next.Exists(ctx, path)
	i.observe("exists", start, err)
	return stat, err
}

func (i *instrumented) GetData(ctx context.Context, path string) ([]byte, *zookeeper.Stat, error) {
	start := i.now()
	data, stat, err := i.next.GetData(ctx, path)
	i.observe("get_data", start, err)
	return data, stat, err
}

func (i *instrumented) SetData(ctx context.Context, path string, data []byte, version int32) (*zookeeper.Stat, error) {
	start := i.now()
	stat, err := i.next.SetData(ctx, path, data, version)
	i.observe("set_data", start, err)
	return stat, err
}

func (i *instrumented) GetChildren(ctx context.Context, path string) ([]string, error) {
	start := i.now()
	children, err := i.next.GetChildren(ctx, path)
	i.observe("get_children", start, err)
	return children, err
}
