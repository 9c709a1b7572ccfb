package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLevelDB(t *testing.T) *LevelDB {
	t.Helper()
	kv, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestLevelDBGetAbsentKey(t *testing.T) {
	kv := openTestLevelDB(t)

	value, err := kv.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestLevelDBPutGetOverwrite(t *testing.T) {
	kv := openTestLevelDB(t)

	require.NoError(t, kv.Put("k", []byte("first")))
	require.NoError(t, kv.Put("k", []byte("second")))

	value, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
}

func TestLevelDBScanPrefixOrdered(t *testing.T) {
	kv := openTestLevelDB(t)

	require.NoError(t, kv.Put(CompositeKey("audit", "P1", "0000000000003"), []byte("third")))
	require.NoError(t, kv.Put(CompositeKey("audit", "P1", "0000000000001"), []byte("first")))
	require.NoError(t, kv.Put(CompositeKey("audit", "P2", "0000000000002"), []byte("other")))
	require.NoError(t, kv.Put(CompositeKey("audit", "P1", "0000000000002"), []byte("second")))

	it := kv.ScanPrefix(CompositeKey("audit", "P1"))
	defer it.Close()

	var values []string
	for it.Next() {
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	assert.Equal(t, []string{"first", "second", "third"}, values)
}

func TestLevelDBIteratorCopiesBuffers(t *testing.T) {
	kv := openTestLevelDB(t)

	require.NoError(t, kv.Put("a", []byte("alpha")))
	require.NoError(t, kv.Put("b", []byte("beta")))

	it := kv.ScanPrefix("")
	defer it.Close()

	require.True(t, it.Next())
	first := it.Value()
	require.True(t, it.Next())

	// Advancing must not clobber previously returned values.
	assert.Equal(t, []byte("alpha"), first)
}
