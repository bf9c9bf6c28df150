package znode

import (
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/mikekulinski/jobmonitor/pkg/zxid"
)

type ZNodeType int

const (
	ZNodeType_STANDARD ZNodeType = iota
	ZNodeType_EPHEMERAL
)

type ZNode struct {
	// ZNode metadata.
	Name               string
	Version            int32
	Czxid              zxid.ZXID
	Mzxid              zxid.ZXID
	Children           map[string]*ZNode
	NodeType           ZNodeType
	NextSequentialNode int

	// Data is the data stored here by the client.
	Data []byte
}

func NewZNode(name string, nodeType ZNodeType, created zxid.ZXID, data []byte) *ZNode {
	return &ZNode{
		Name:  name,
		Czxid: created,
		Mzxid: created,
		// Init the children to an empty map instead of nil to avoid panics when writing to
		// a nil map.
		Children: map[string]*ZNode{},
		NodeType: nodeType,
		Data:     data,
	}
}

// Stat returns the metadata of the node in the shape clients expect.
func (z *ZNode) Stat() *zookeeper.Stat {
	stat := &zookeeper.Stat{
		Czxid:       int64(z.Czxid),
		Mzxid:       int64(z.Mzxid),
		Version:     z.Version,
		DataLength:  int32(len(z.Data)),
		NumChildren: int32(len(z.Children)),
	}
	if z.NodeType == ZNodeType_EPHEMERAL {
		// There are no sessions in the in-memory tree, so every ephemeral node belongs to the same owner.
		stat.EphemeralOwner = 1
	}
	return stat
}
