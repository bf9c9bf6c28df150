package zookeeper

import "context"

//go:generate mockgen -destination=mocks/mock_zookeeper.go -package=mocks github.com/mikekulinski/jobmonitor/pkg/zookeeper Zookeeper

// Zookeeper is the subset of the ZooKeeper API the rest of this module builds on. Both the
// in-memory tree and the network client implement it.
type Zookeeper interface {
	// Create creates a ZNode with path name path, stores data in it, and returns the name of the new ZNode.
	// Flags can also be passed to pick certain attributes you want the ZNode to have. The parent
	// must already exist, see CreateRecursive for creating missing ancestors.
	Create(ctx context.Context, path string, data []byte, flags ...Flag) (string, error)
	// Delete deletes the ZNode at the given path if that ZNode is at the expected version.
	// Only leaf nodes can be deleted.
	Delete(ctx context.Context, path string, version int32) error
	// Exists returns the metadata of the ZNode with path name path, or nil if there is no such ZNode.
	Exists(ctx context.Context, path string) (*Stat, error)
	// GetData returns the data and metadata, such as version information, associated with the ZNode.
	GetData(ctx context.Context, path string) ([]byte, *Stat, error)
	// SetData writes data to the ZNode path if the version number is the current version of the ZNode.
	SetData(ctx context.Context, path string, data []byte, version int32) (*Stat, error)
	// GetChildren returns the set of names of the children of a ZNode.
	GetChildren(ctx context.Context, path string) ([]string, error)
}
