package zookeeper

import "errors"

// AnyVersion skips the version check on Delete and SetData.
const AnyVersion int32 = -1

type Flag int

const (
	// EPHEMERAL indicates that the ZNode to be created should be automatically destroyed once the session
	// has been terminated (either intentionally or on failure).
	EPHEMERAL Flag = iota
	// SEQUENTIAL indicates that the node to be created should have a monotonically increasing counter appended
	// to the end of the provided name.
	SEQUENTIAL
)

// Stat is the metadata ZooKeeper keeps for every ZNode.
type Stat struct {
	// Czxid is the zxid of the change that created this node.
	Czxid int64
	// Mzxid is the zxid of the change that last modified this node.
	Mzxid int64
	// Version is the number of changes to the data of this node.
	Version     int32
	DataLength  int32
	NumChildren int32
	// EphemeralOwner is the session id of the owner if this is an ephemeral node, zero otherwise.
	EphemeralOwner int64
}

var (
	ErrNoNode                  = errors.New("zookeeper: node does not exist")
	ErrNodeExists              = errors.New("zookeeper: node already exists")
	ErrNotEmpty                = errors.New("zookeeper: node has children")
	ErrBadVersion              = errors.New("zookeeper: version conflict")
	ErrNoChildrenForEphemerals = errors.New("zookeeper: ephemeral nodes may not have children")
	ErrInvalidPath             = errors.New("zookeeper: invalid path")
	ErrConnectionClosed        = errors.New("zookeeper: connection closed")
)
