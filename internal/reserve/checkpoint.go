package reserve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Checkpoint is an on-disk copy of the ready reserves in a store.
type Checkpoint struct {
	UpdatedAt string            `json:"updated_at"`
	Pools     []CheckpointEntry `json:"pools"`
}

// CheckpointEntry holds the reserves of one pool as decimal strings.
type CheckpointEntry struct {
	Pool     common.Address `json:"pool"`
	Reserve0 string         `json:"reserve0"`
	Reserve1 string         `json:"reserve1"`
}

// CheckpointStore persists reserve checkpoints to disk.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: path != ""}
}

// Load restores reserves from the checkpoint into store and returns the
// number of pools restored. Pools the store does not track are ignored.
func (c *CheckpointStore) Load(store *Store) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, fmt.Errorf("parse checkpoint: %w", err)
	}

	restored := 0
	for _, entry := range cp.Pools {
		r0, err := uint256.FromDecimal(entry.Reserve0)
		if err != nil {
			return restored, fmt.Errorf("checkpoint %s reserve0: %w", entry.Pool.Hex(), err)
		}
		r1, err := uint256.FromDecimal(entry.Reserve1)
		if err != nil {
			return restored, fmt.Errorf("checkpoint %s reserve1: %w", entry.Pool.Hex(), err)
		}
		if _, ok := store.Update(entry.Pool, r0, r1); ok {
			restored++
		}
	}
	return restored, nil
}

// Save writes every ready pool of store, replacing the previous file atomically.
func (c *CheckpointStore) Save(store *Store) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	store.Each(func(pool common.Address, pair Pair) {
		if !pair.Ready() {
			return
		}
		cp.Pools = append(cp.Pools, CheckpointEntry{
			Pool:     pool,
			Reserve0: pair.Reserve0.Dec(),
			Reserve1: pair.Reserve1.Dec(),
		})
	})
	sort.Slice(cp.Pools, func(i, j int) bool {
		return cp.Pools[i].Pool.Cmp(cp.Pools[j].Pool) < 0
	})

	data, err := json.Marshal(cp)
	if err != nil {
		return 0, fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return 0, fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return 0, fmt.Errorf("rename checkpoint: %w", err)
	}

	return len(cp.Pools), nil
}
