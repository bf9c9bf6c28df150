package client

import (
	"errors"
	"fmt"

	"github.com/go-zookeeper/zk"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
)

var errTranslations = []struct {
	from error
	to   error
}{
	{zk.ErrNoNode, zookeeper.ErrNoNode},
	{zk.ErrNodeExists, zookeeper.ErrNodeExists},
	{zk.ErrNotEmpty, zookeeper.ErrNotEmpty},
	{zk.ErrBadVersion, zookeeper.ErrBadVersion},
	{zk.ErrNoChildrenForEphemerals, zookeeper.ErrNoChildrenForEphemerals},
	{zk.ErrInvalidPath, zookeeper.ErrInvalidPath},
	{zk.ErrBadArguments, zookeeper.ErrInvalidPath},
	{zk.ErrConnectionClosed, zookeeper.ErrConnectionClosed},
	{zk.ErrClosing, zookeeper.ErrConnectionClosed},
	{zk.ErrSessionExpired, zookeeper.ErrConnectionClosed},
}

// translateErr maps errors from the zk library onto the store sentinels. The original error
// stays in the chain so callers can still match on it.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	for _, t := range errTranslations {
		if errors.Is(err, t.from) {
			return fmt.Errorf("%w: %w", t.to, err)
		}
	}
	return err
}
