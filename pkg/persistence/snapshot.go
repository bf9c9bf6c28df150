package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/mikekulinski/jobmonitor/pkg/znode"
	"github.com/mikekulinski/jobmonitor/pkg/zxid"
)

const (
	SnapshotFilePrefix = "snapshot"
	// DefaultKeep is how many snapshots Save leaves on disk.
	DefaultKeep = 2
)

type snapshot struct {
	LastZxid zxid.ZXID      `json:"last_zxid"`
	Nodes    []znode.Record `json:"nodes"`
}

// SnapshotManager saves and restores the in-memory tree. Each snapshot is a new file in the
// directory provided, named after the zxid of the last change it contains:
// "{snapshot_directory}/snapshot_{zxid}"
type SnapshotManager struct {
	// mu protects LastZxid and serialises writes to the directory.
	mu       *sync.Mutex
	dir      string
	keep     int
	LastZxid zxid.ZXID
}

// NewSnapshotManager uses dir for snapshots, creating it when missing.
func NewSnapshotManager(dir string) (*SnapshotManager, error) {
	// Make sure to trim any trailing slashes if the provided path contains one.
	dir = strings.TrimSuffix(dir, "/")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fileInfo, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	// Check if the file is a directory.
	if !fileInfo.IsDir() {
		return nil, fmt.Errorf("snapshot path [%s] is not a directory", dir)
	}
	return &SnapshotManager{
		mu:   &sync.Mutex{},
		dir:  dir,
		keep: DefaultKeep,
	}, nil
}

// Save writes a snapshot of db unless one at the same zxid already exists, then removes all but
// the newest snapshots.
func (s *SnapshotManager) Save(db *znode.DB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, last := db.Records()
	if last <= s.LastZxid {
		return nil
	}
	bytes, err := sonic.Marshal(snapshot{LastZxid: last, Nodes: records})
	if err != nil {
		return fmt.Errorf("error marshalling snapshot: %w", err)
	}

	// Snapshots only appear under their final name once fully written.
	tmp, err := os.CreateTemp(s.dir, "."+SnapshotFilePrefix+"-*")
	if err != nil {
		return fmt.Errorf("error creating snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(last)); err != nil {
		return fmt.Errorf("error renaming snapshot: %w", err)
	}

	s.LastZxid = last
	return s.prune()
}

// Load restores the newest snapshot, or returns an empty tree if there is none.
func (s *SnapshotManager) Load() (*znode.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zxids, err := s.list()
	if err != nil {
		return nil, err
	}
	if len(zxids) == 0 {
		return znode.NewDB(), nil
	}
	newest := zxids[len(zxids)-1]
	bytes, err := os.ReadFile(s.path(newest))
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := sonic.Unmarshal(bytes, &snap); err != nil {
		return nil, fmt.Errorf("error decoding snapshot [%s]: %w", s.path(newest), err)
	}
	db, err := znode.Restore(snap.Nodes, snap.LastZxid)
	if err != nil {
		return nil, fmt.Errorf("error restoring snapshot [%s]: %w", s.path(newest), err)
	}
	s.LastZxid = db.LastZxid()
	return db, nil
}

func (s *SnapshotManager) path(z zxid.ZXID) string {
	return fmt.Sprintf("%s/%s_%d", s.dir, SnapshotFilePrefix, int64(z))
}

// list returns the zxids of the snapshots in the directory, oldest first.
func (s *SnapshotManager) list() ([]zxid.ZXID, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var zxids []zxid.ZXID
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), SnapshotFilePrefix+"_")
		if !ok || e.IsDir() {
			continue
		}
		z, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		zxids = append(zxids, zxid.ZXID(z))
	}
	slices.Sort(zxids)
	return zxids, nil
}

func (s *SnapshotManager) prune() error {
	zxids, err := s.list()
	if err != nil {
		return err
	}
	for len(zxids) > s.keep {
		if err := os.Remove(filepath.Clean(s.path(zxids[0]))); err != nil {
			return err
		}
		zxids = zxids[1:]
	}
	return nil
}
