package znode

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/mikekulinski/jobmonitor/pkg/zxid"
)

// DB is an in-memory ZNode tree that behaves like a single ZooKeeper server. It also controls the
// locking mechanism, so it can be abstracted away from the caller. It is safe for concurrent use.
type DB struct {
	root *ZNode
	// lastZxid is the zxid of the most recent change applied to the tree.
	lastZxid zxid.ZXID
	mu       *sync.RWMutex
}

var _ zookeeper.Zookeeper = (*DB)(nil)

func NewDB() *DB {
	return &DB{
		root: NewZNode("", ZNodeType_STANDARD, 0, nil),
		mu:   &sync.RWMutex{},
	}
}

// Get returns the node at path, or nil if there is no such node.
func (d *DB) Get(path string) *ZNode {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return findZNode(d.root, zookeeper.SplitPath(path))
}

// LastZxid returns the zxid of the last change made to the tree.
func (d *DB) LastZxid() zxid.ZXID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastZxid
}

// findZNode will search down to the tree and return the node specified by the names.
// If the node could not be found, then we will return nil.
func findZNode(start *ZNode, names []string) *ZNode {
	node := start
	for _, name := range names {
		z, ok := node.Children[name]
		if !ok {
			return nil
		}
		node = z
	}
	return node
}

// nextZxid must be called with the write lock held.
func (d *DB) nextZxid() zxid.ZXID {
	d.lastZxid = d.lastZxid.Next()
	return d.lastZxid
}

// Create creates a ZNode with path name path, stores data in it, and returns the path of the new ZNode.
func (d *DB) Create(ctx context.Context, path string, data []byte, flags ...zookeeper.Flag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	names := zookeeper.SplitPath(path)
	// Search down the tree until we hit the parent where we'll be creating this new node.
	parent := findZNode(d.root, names[:len(names)-1])
	if parent == nil {
		return "", fmt.Errorf("%w: at least one of the ancestors of [%s] is missing", zookeeper.ErrNoNode, path)
	}
	if parent.NodeType == ZNodeType_EPHEMERAL {
		return "", fmt.Errorf("%w: cannot create [%s]", zookeeper.ErrNoChildrenForEphemerals, path)
	}

	// We are at the parent node of the one we are trying to create. Now let's
	// try to create it.
	newName := names[len(names)-1]
	if slices.Contains(flags, zookeeper.SEQUENTIAL) {
		newName = fmt.Sprintf("%s%010d", newName, parent.NextSequentialNode)
	}
	if _, ok := parent.Children[newName]; ok {
		return "", fmt.Errorf("%w: node [%s] at path [%s]", zookeeper.ErrNodeExists, newName, path)
	}

	nodeType := ZNodeType_STANDARD
	if slices.Contains(flags, zookeeper.EPHEMERAL) {
		nodeType = ZNodeType_EPHEMERAL
	}
	fullName := newFullName(newName, names[:len(names)-1])
	parent.Children[newName] = NewZNode(fullName, nodeType, d.nextZxid(), slices.Clone(data))
	// Make sure to increment the counter so the next sequential node will have the next number.
	parent.NextSequentialNode++
	return fullName, nil
}

func newFullName(nodeName string, ancestorsNames []string) string {
	nodePath := "/" + nodeName
	if len(ancestorsNames) > 0 {
		return zookeeper.JoinPath(ancestorsNames...) + nodePath
	}
	return nodePath
}

// Delete deletes the ZNode at the given path if that ZNode is at the expected version.
func (d *DB) Delete(ctx context.Context, path string, version int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	names := zookeeper.SplitPath(path)
	parent := findZNode(d.root, names[:len(names)-1])
	if parent == nil {
		return fmt.Errorf("%w: [%s]", zookeeper.ErrNoNode, path)
	}
	nameToDelete := names[len(names)-1]
	node, ok := parent.Children[nameToDelete]
	if !ok {
		return fmt.Errorf("%w: [%s]", zookeeper.ErrNoNode, path)
	}
	if !isValidVersion(version, node.Version) {
		return fmt.Errorf("%w: expected [%d], actual [%d]", zookeeper.ErrBadVersion, version, node.Version)
	}
	if len(node.Children) > 0 {
		return fmt.Errorf("%w: only leaf nodes can be deleted, [%s] has %d children", zookeeper.ErrNotEmpty, path, len(node.Children))
	}
	delete(parent.Children, nameToDelete)
	d.nextZxid()
	return nil
}

// Exists returns the metadata of the ZNode at path, or nil if it does not exist.
func (d *DB) Exists(ctx context.Context, path string) (*zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	node := findZNode(d.root, zookeeper.SplitPath(path))
	if node == nil {
		return nil, nil
	}
	return node.Stat(), nil
}

// GetData returns the data and metadata associated with the ZNode.
func (d *DB) GetData(ctx context.Context, path string) ([]byte, *zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return nil, nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	node := findZNode(d.root, zookeeper.SplitPath(path))
	if node == nil {
		return nil, nil, fmt.Errorf("%w: [%s]", zookeeper.ErrNoNode, path)
	}
	return slices.Clone(node.Data), node.Stat(), nil
}

// SetData writes data to the ZNode path if the version number is the current version of the ZNode.
func (d *DB) SetData(ctx context.Context, path string, data []byte, version int32) (*zookeeper.Stat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node := findZNode(d.root, zookeeper.SplitPath(path))
	if node == nil {
		return nil, fmt.Errorf("%w: [%s]", zookeeper.ErrNoNode, path)
	}
	if !isValidVersion(version, node.Version) {
		return nil, fmt.Errorf("%w: expected [%d], actual [%d]", zookeeper.ErrBadVersion, version, node.Version)
	}
	node.Data = slices.Clone(data)
	node.Version++
	node.Mzxid = d.nextZxid()
	return node.Stat(), nil
}

// GetChildren returns the names of the children of a ZNode in lexical order.
func (d *DB) GetChildren(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := zookeeper.ValidatePath(path); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	node := findZNode(d.root, zookeeper.SplitPath(path))
	if node == nil {
		return nil, fmt.Errorf("%w: [%s]", zookeeper.ErrNoNode, path)
	}
	return slices.Sorted(maps.Keys(node.Children)), nil
}

// isValidVersion is used for conditional checks for update/delete operations. If the passed in version
// is -1, then skip the version check. Otherwise, make sure the versions are equal.
func isValidVersion(expected, actual int32) bool {
	return expected == zookeeper.AnyVersion || expected == actual
}
