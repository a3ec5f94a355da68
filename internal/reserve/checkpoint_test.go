package reserve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "reserves.json")
	cps := NewCheckpointStore(path)

	src := NewStore([]common.Address{poolA, poolB})
	large, err := uint256.FromDecimal("123456789012345678901234567890")
	require.NoError(t, err)
	src.Update(poolA, large, uint256.NewInt(7))

	saved, err := cps.Save(src)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	dst := NewStore([]common.Address{poolA, poolB})
	restored, err := cps.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	pair, ok := dst.Snapshot(poolA)
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", pair.Reserve0.Dec())
	assert.Equal(t, uint64(7), pair.Reserve1.Uint64())
	assert.False(t, dst.Ready(poolB))
}

func TestCheckpointIgnoresUntrackedPools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reserves.json")
	cps := NewCheckpointStore(path)

	src := NewStore([]common.Address{poolA, poolB})
	src.Update(poolA, uint256.NewInt(1), uint256.NewInt(2))
	src.Update(poolB, uint256.NewInt(3), uint256.NewInt(4))
	_, err := cps.Save(src)
	require.NoError(t, err)

	dst := NewStore([]common.Address{poolB})
	restored, err := cps.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 1, dst.Len())
}

func TestCheckpointMissingFile(t *testing.T) {
	cps := NewCheckpointStore(filepath.Join(t.TempDir(), "absent.json"))
	restored, err := cps.Load(NewStore([]common.Address{poolA}))
	require.NoError(t, err)
	assert.Zero(t, restored)
}

func TestCheckpointDisabled(t *testing.T) {
	cps := NewCheckpointStore("")
	s := NewStore([]common.Address{poolA})
	s.Update(poolA, uint256.NewInt(1), uint256.NewInt(2))

	saved, err := cps.Save(s)
	require.NoError(t, err)
	assert.Zero(t, saved)
}

func TestCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reserves.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewCheckpointStore(path).Load(NewStore([]common.Address{poolA}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse checkpoint")
}
