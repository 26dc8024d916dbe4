package visualizer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrondanini/shard-box/shardbox/cluster/ring"
	"github.com/lrondanini/shard-box/shardbox/storage"
)

func TestRenderRingEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderRing(&buf, nil)
	assert.Contains(t, buf.String(), "Ring is empty.")
}

func TestRenderRingListsEntries(t *testing.T) {
	entries := []ring.Entry{
		{Position: 100, VirtualName: "A#v0", Node: "A"},
		{Position: 200, VirtualName: "B#v0", Node: "B"},
	}

	var buf bytes.Buffer
	RenderRing(&buf, entries)

	out := buf.String()
	assert.Contains(t, out, "A#v0")
	assert.Contains(t, out, "B#v0")
	assert.Contains(t, out, "2 positions")
}

func TestRenderDistributionEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDistribution(&buf, nil, storage.NewMemStore(), 3)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No nodes to show distribution for.")
}

func TestRenderDistributionCountsAndSamples(t *testing.T) {
	store := storage.NewMemStore()
	require.NoError(t, store.CreateContainer("A"))
	require.NoError(t, store.CreateContainer("B"))
	for _, id := range []string{"k1", "k2", "k3", "k4"} {
		require.NoError(t, store.Insert(storage.Record{ID: id}, "A"))
	}

	entries := []ring.Entry{
		{Position: 100, VirtualName: "A#v0", Node: "A"},
		{Position: 200, VirtualName: "B#v0", Node: "B"},
		{Position: 300, VirtualName: "A#v1", Node: "A"},
	}

	var buf bytes.Buffer
	err := RenderDistribution(&buf, entries, store, 2)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "k1, k2")
	assert.NotContains(t, out, "k3", "sample is capped at sampleSize")
}
