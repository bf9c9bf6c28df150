package znode

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/mikekulinski/jobmonitor/pkg/zxid"
)

// Record is one persistent node of the tree, as written to a snapshot.
type Record struct {
	Path               string    `json:"path"`
	Data               []byte    `json:"data,omitempty"`
	Version            int32     `json:"version"`
	Czxid              zxid.ZXID `json:"czxid"`
	Mzxid              zxid.ZXID `json:"mzxid"`
	NextSequentialNode int       `json:"next_sequential_node,omitempty"`
}

// Records returns every persistent node, parents before children and siblings in name order,
// along with the zxid of the last change. Ephemeral nodes are left out since they die with the
// process that created them.
func (d *DB) Records() ([]Record, zxid.ZXID) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var records []Record
	var walk func(node *ZNode)
	walk = func(node *ZNode) {
		for _, name := range slices.Sorted(maps.Keys(node.Children)) {
			child := node.Children[name]
			if child.NodeType == ZNodeType_EPHEMERAL {
				continue
			}
			records = append(records, Record{
				Path:               child.Name,
				Data:               slices.Clone(child.Data),
				Version:            child.Version,
				Czxid:              child.Czxid,
				Mzxid:              child.Mzxid,
				NextSequentialNode: child.NextSequentialNode,
			})
			walk(child)
		}
	}
	walk(d.root)
	return records, d.lastZxid
}

// Restore rebuilds a tree from records in the order Records returns them. Every parent must come
// before its children.
func Restore(records []Record, lastZxid zxid.ZXID) (*DB, error) {
	root := NewZNode("", ZNodeType_STANDARD, 0, nil)
	for _, r := range records {
		if err := zookeeper.ValidatePath(r.Path); err != nil {
			return nil, err
		}
		names := zookeeper.SplitPath(r.Path)
		parent := findZNode(root, names[:len(names)-1])
		if parent == nil {
			return nil, fmt.Errorf("%w: parent of [%s] is not in the snapshot", zookeeper.ErrNoNode, r.Path)
		}
		name := names[len(names)-1]
		if _, ok := parent.Children[name]; ok {
			return nil, fmt.Errorf("%w: [%s] appears twice in the snapshot", zookeeper.ErrNodeExists, r.Path)
		}
		node := NewZNode(r.Path, ZNodeType_STANDARD, r.Czxid, slices.Clone(r.Data))
		node.Mzxid = r.Mzxid
		node.Version = r.Version
		node.NextSequentialNode = r.NextSequentialNode
		parent.Children[name] = node
		if r.Mzxid > lastZxid {
			lastZxid = r.Mzxid
		}
	}
	return &DB{
		root:     root,
		lastZxid: lastZxid,
		mu:       &sync.RWMutex{},
	}, nil
}
