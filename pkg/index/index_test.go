package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownKindReturnsError(t *testing.T) {
	_, err := New[uint64]("not-a-real-kind", Params{})
	require.Error(t, err)
}

func TestEveryKindBuildsAndLooksUp(t *testing.T) {
	keys := make([]uint64, 0, 200)
	for i := uint64(0); i < 200; i++ {
		keys = append(keys, i*5)
	}

	for _, kind := range AllKinds() {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			idx, err := New[uint64](kind, Params{
				BTreeOrder:           4,
				BPlusTreeOrder:       4,
				FITingTreeEpsilon:    8,
				FITingTreeInsertMode: 0,
				RadixSplineRadixBits: 6,
			})
			require.NoError(t, err)
			assert.Equal(t, kind, idx.Kind())

			idx.Build(keys)

			_, found := idx.Lookup(500)
			assert.True(t, found, "expected to find key 500")

			_, found = idx.Lookup(501)
			assert.False(t, found, "expected key 501 to be absent")

			got := idx.RangeQuery(100, 150)
			assert.Equal(t, []uint64{100, 105, 110, 115, 120, 125, 130, 135, 140, 145, 150}, got)

			assert.Greater(t, idx.MemoryUsage(), int64(0))
		})
	}
}

func TestInserterCapabilitySupportedByThreeEngines(t *testing.T) {
	for _, kind := range []Kind{KindBTree, KindBPlusTree, KindFITingTree} {
		idx, err := New[uint64](kind, Params{BTreeOrder: 4, BPlusTreeOrder: 4, FITingTreeEpsilon: 8})
		require.NoError(t, err)
		idx.Build([]uint64{10, 20, 30})

		inserter, ok := idx.(Inserter[uint64])
		require.True(t, ok, "%s should implement Inserter", kind)
		inserter.Insert(25)

		_, found := idx.Lookup(25)
		assert.True(t, found)
	}
}

func TestDeleterCapabilityOnlySupportedByBTree(t *testing.T) {
	idx, err := New[uint64](KindBTree, Params{BTreeOrder: 4})
	require.NoError(t, err)
	idx.Build([]uint64{1, 2, 3})

	deleter, ok := idx.(Deleter[uint64])
	require.True(t, ok)
	deleter.Delete(2)

	_, found := idx.Lookup(2)
	assert.False(t, found)

	for _, kind := range []Kind{KindBPlusTree, KindRMI, KindFITingTree, KindRadixSpline} {
		idx, err := New[uint64](kind, Params{BPlusTreeOrder: 4, FITingTreeEpsilon: 8, RadixSplineRadixBits: 6})
		require.NoError(t, err)
		_, ok := idx.(Deleter[uint64])
		assert.False(t, ok, "%s should not implement Deleter", kind)
	}
}

func TestRMILoadModelFileFailurePropagates(t *testing.T) {
	_, err := New[uint64](KindRMI, Params{RMIModelPath: "/nonexistent/model.txt"})
	require.Error(t, err)
}
