package ring

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

const (
	DefaultReplicas  = 150
	DefaultSpaceBits = 32
)

// Entry is a single position on the ring. In virtual mode many entries map
// to the same physical node.
type Entry struct {
	Position    uint64
	VirtualName string
	Node        string
}

// Ring maps hash-space positions to node names. Entries are kept sorted by
// position so lookups are a binary search. The zero value is not usable,
// call New.
//
// Ring is not synchronized: the cluster manager holds a single writer lock
// over topology changes and their rebalance scans.
type Ring struct {
	spaceSize uint64 // 0 means the full uint64 space
	replicas  int
	hashFunc  HashFunc
	entries   []Entry        // sorted by Position
	nodes     map[string]int // physical node -> number of owned entries
}

func New(spaceBits int, replicas int, fn HashFunc) *Ring {
	if spaceBits <= 0 || spaceBits > 64 {
		spaceBits = DefaultSpaceBits
	}
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	if fn == nil {
		fn = Sha256
	}
	var size uint64
	if spaceBits < 64 {
		size = uint64(1) << uint(spaceBits)
	}
	return &Ring{
		spaceSize: size,
		replicas:  replicas,
		hashFunc:  fn,
		nodes:     make(map[string]int),
	}
}

// Hash reduces the UTF-8 bytes of key onto the ring space. Stable across
// processes: no seeding, no per-run state.
func (r *Ring) Hash(key string) uint64 {
	h := r.hashFunc([]byte(key))
	if r.spaceSize != 0 {
		h = h % r.spaceSize
	}
	return h
}

// Resolve returns the node owning the first entry strictly greater than
// position, wrapping to the smallest entry. A key sitting exactly on an
// entry's position belongs to the next entry clockwise.
func (r *Ring) Resolve(position uint64) (string, error) {
	if len(r.entries) == 0 {
		return "", ErrEmptyRing
	}
	idx := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Position > position
	}) % len(r.entries)
	return r.entries[idx].Node, nil
}

// ResolveKey returns the node that owns key under the current topology.
func (r *Ring) ResolveKey(key string) (string, error) {
	return r.Resolve(r.Hash(key))
}

// virtualNames returns the ring entry names for a physical node: the node
// name itself in simple mode, {name}#v{i} otherwise.
func (r *Ring) virtualNames(name string) []string {
	if r.replicas <= 1 {
		return []string{name}
	}
	names := make([]string, 0, r.replicas)
	for i := 0; i < r.replicas; i++ {
		names = append(names, fmt.Sprintf("%s#v%d", name, i))
	}
	return names
}

// AddNode places all of name's entries on the ring. A position collision
// with an existing entry (or between two of the new entries) fails with
// ErrPositionCollision and inserts nothing: silently overwriting would move
// ownership of an existing node's range.
func (r *Ring) AddNode(name string) error {
	if _, ok := r.nodes[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}

	candidates := make([]Entry, 0, r.replicas)
	for _, vn := range r.virtualNames(name) {
		pos := r.Hash(vn)
		if r.positionTaken(pos) || slices.ContainsFunc(candidates, func(e Entry) bool { return e.Position == pos }) {
			return fmt.Errorf("%w: %s at position %d", ErrPositionCollision, vn, pos)
		}
		candidates = append(candidates, Entry{Position: pos, VirtualName: vn, Node: name})
	}

	for _, e := range candidates {
		idx := sort.Search(len(r.entries), func(i int) bool {
			return r.entries[i].Position >= e.Position
		})
		r.entries = slices.Insert(r.entries, idx, e)
	}
	r.nodes[name] = len(candidates)
	return nil
}

// RemoveNode deletes all of name's entries. Removing the last node is
// rejected so resolution never becomes undefined for live data.
func (r *Ring) RemoveNode(name string) error {
	if _, ok := r.nodes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	if len(r.nodes) == 1 {
		return fmt.Errorf("%w: %s", ErrLastNodeRemoval, name)
	}
	kept := make([]Entry, 0, len(r.entries)-r.nodes[name])
	for _, e := range r.entries {
		if e.Node != name {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	delete(r.nodes, name)
	return nil
}

func (r *Ring) positionTaken(pos uint64) bool {
	idx := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Position >= pos
	})
	return idx < len(r.entries) && r.entries[idx].Position == pos
}

// HasNode reports whether name owns any ring entry.
func (r *Ring) HasNode(name string) bool {
	_, ok := r.nodes[name]
	return ok
}

// Nodes returns the physical node names in lexical order.
func (r *Ring) Nodes() []string {
	names := make([]string, 0, len(r.nodes))
	for n := range r.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entries returns a copy of the ring in position order.
func (r *Ring) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// NumEntries returns the number of positions on the ring.
func (r *Ring) NumEntries() int {
	return len(r.entries)
}
