package ring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedPositions hashes a handful of known names to chosen positions so
// boundary behavior can be asserted exactly.
func fixedPositions(positions map[string]uint64) HashFunc {
	return func(data []byte) uint64 {
		if p, ok := positions[string(data)]; ok {
			return p
		}
		return Sha256(data)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	r1 := New(32, 150, Sha256)
	r2 := New(32, 150, Sha256)

	keys := []string{"k1", "k2", "some-longer-key", "", "日本語"}
	for _, k := range keys {
		assert.Equal(t, r1.Hash(k), r1.Hash(k), "repeated calls must agree")
		assert.Equal(t, r1.Hash(k), r2.Hash(k), "independent rings must agree")
	}
}

func TestHashStaysInSpace(t *testing.T) {
	r := New(16, 150, Sha256)
	for i := 0; i < 1000; i++ {
		h := r.Hash(fmt.Sprintf("key-%d", i))
		assert.Less(t, h, uint64(1)<<16)
	}
}

func TestMurmur3Selectable(t *testing.T) {
	fn, err := HashFuncByName("murmur3")
	require.NoError(t, err)
	assert.Equal(t, fn([]byte("abc")), Murmur3([]byte("abc")))

	_, err = HashFuncByName("crc32")
	assert.Error(t, err)
}

func TestResolveOnEmptyRing(t *testing.T) {
	r := New(32, 150, nil)
	_, err := r.Resolve(10)
	assert.ErrorIs(t, err, ErrEmptyRing)
	_, err = r.ResolveKey("k")
	assert.ErrorIs(t, err, ErrEmptyRing)
}

func TestResolveBoundaryAndWraparound(t *testing.T) {
	fn := fixedPositions(map[string]uint64{"A": 100, "B": 200, "C": 300})
	r := New(32, 1, fn) // simple mode: entry name is the node name

	require.NoError(t, r.AddNode("A"))
	require.NoError(t, r.AddNode("B"))
	require.NoError(t, r.AddNode("C"))

	cases := []struct {
		position uint64
		owner    string
	}{
		{0, "A"},
		{99, "A"},
		{100, "B"}, // landing exactly on A belongs to the next node clockwise
		{150, "B"},
		{200, "C"},
		{299, "C"},
		{300, "A"}, // past the last entry wraps to the smallest
		{999999, "A"},
	}
	for _, c := range cases {
		owner, err := r.Resolve(c.position)
		require.NoError(t, err)
		assert.Equal(t, c.owner, owner, "position %d", c.position)
	}
}

func TestResolveDefinedEverywhere(t *testing.T) {
	r := New(16, 150, Sha256)
	require.NoError(t, r.AddNode("A"))
	require.NoError(t, r.AddNode("B"))

	for p := uint64(0); p < uint64(1)<<16; p += 111 {
		owner, err := r.Resolve(p)
		require.NoError(t, err)
		assert.Contains(t, []string{"A", "B"}, owner)
	}
}

func TestAddNodeVirtualEntries(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("A"))

	entries := r.Entries()
	require.Len(t, entries, 150)
	seen := make(map[string]bool)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Position, entries[i].Position, "entries must stay sorted")
	}
	for _, e := range entries {
		assert.Equal(t, "A", e.Node)
		assert.False(t, seen[e.VirtualName], "virtual names must be unique")
		seen[e.VirtualName] = true
	}
	assert.True(t, seen["A#v0"])
	assert.True(t, seen["A#v149"])
}

func TestAddNodeSimpleMode(t *testing.T) {
	r := New(32, 1, Sha256)
	require.NoError(t, r.AddNode("A"))

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].VirtualName)
}

func TestDuplicateNodeRejected(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("A"))

	err := r.AddNode("A")
	assert.ErrorIs(t, err, ErrDuplicateNode)
	assert.Equal(t, 150, r.NumEntries(), "failed add must not change the ring")
}

func TestPositionCollisionRejected(t *testing.T) {
	constant := func([]byte) uint64 { return 42 }

	r := New(32, 1, constant)
	require.NoError(t, r.AddNode("A"))
	err := r.AddNode("B")
	assert.ErrorIs(t, err, ErrPositionCollision)
	assert.False(t, r.HasNode("B"))
	assert.Equal(t, 1, r.NumEntries())

	// collision between a node's own candidate entries
	r2 := New(32, 2, constant)
	err = r2.AddNode("A")
	assert.ErrorIs(t, err, ErrPositionCollision)
	assert.False(t, r2.HasNode("A"))
	assert.Equal(t, 0, r2.NumEntries(), "nothing may be inserted on collision")
}

func TestRemoveNode(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("A"))
	require.NoError(t, r.AddNode("B"))

	require.NoError(t, r.RemoveNode("A"))
	assert.False(t, r.HasNode("A"))
	assert.Equal(t, 150, r.NumEntries())
	for _, e := range r.Entries() {
		assert.Equal(t, "B", e.Node)
	}
}

func TestRemoveUnknownNode(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("A"))

	err := r.RemoveNode("X")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestRemoveLastNode(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("A"))

	err := r.RemoveNode("A")
	assert.ErrorIs(t, err, ErrLastNodeRemoval)
	assert.True(t, r.HasNode("A"))
	assert.Equal(t, 150, r.NumEntries())
}

func TestResolutionIndependentOfInsertionOrder(t *testing.T) {
	r1 := New(32, 150, Sha256)
	r2 := New(32, 150, Sha256)

	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, r1.AddNode(n))
	}
	for _, n := range []string{"C", "A", "B"} {
		require.NoError(t, r2.AddNode(n))
	}

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		o1, err := r1.ResolveKey(key)
		require.NoError(t, err)
		o2, err := r2.ResolveKey(key)
		require.NoError(t, err)
		assert.Equal(t, o1, o2, "key %s", key)
	}
}

func TestNodesSorted(t *testing.T) {
	r := New(32, 150, Sha256)
	require.NoError(t, r.AddNode("C"))
	require.NoError(t, r.AddNode("A"))
	require.NoError(t, r.AddNode("B"))
	assert.Equal(t, []string{"A", "B", "C"}, r.Nodes())
}
