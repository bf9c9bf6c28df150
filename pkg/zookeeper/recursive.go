package zookeeper

import (
	"context"
	"errors"
	"fmt"
)

// CreateRecursive creates the node at path, first creating any missing ancestors as empty
// persistent nodes. Flags only apply to the final node.
func CreateRecursive(ctx context.Context, zk Zookeeper, path string, data []byte, flags ...Flag) (string, error) {
	name, err := zk.Create(ctx, path, data, flags...)
	if !errors.Is(err, ErrNoNode) {
		return name, err
	}

	// At least one ancestor is missing. Walk down from the root creating whatever is not there yet.
	names := SplitPath(path)
	for i := 1; i < len(names); i++ {
		ancestor := JoinPath(names[:i]...)
		_, err := zk.Create(ctx, ancestor, nil)
		if err != nil && !errors.Is(err, ErrNodeExists) {
			return "", fmt.Errorf("creating parent [%s]: %w", ancestor, err)
		}
	}
	return zk.Create(ctx, path, data, flags...)
}

// DeleteRecursive deletes the node at path along with all of its descendants, depth first.
// Descendants that disappear while we are deleting are ignored.
func DeleteRecursive(ctx context.Context, zk Zookeeper, path string) error {
	children, err := zk.GetChildren(ctx, path)
	if err != nil {
		return err
	}
	for _, child := range children {
		err := DeleteRecursive(ctx, zk, path+"/"+child)
		if err != nil && !errors.Is(err, ErrNoNode) {
			return err
		}
	}
	return zk.Delete(ctx, path, AnyVersion)
}

// DeleteIfExists recursively deletes the node at path. It is a no-op if the node is absent.
func DeleteIfExists(ctx context.Context, zk Zookeeper, path string) error {
	stat, err := zk.Exists(ctx, path)
	if err != nil {
		return err
	}
	if stat == nil {
		return nil
	}
	err = DeleteRecursive(ctx, zk, path)
	// Someone else got there between the check and the delete.
	if errors.Is(err, ErrNoNode) {
		return nil
	}
	return err
}
