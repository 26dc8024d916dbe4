// Package visualizer renders the ring order and the record distribution
// for human inspection. Pure formatting, no state.
package visualizer

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/lrondanini/shard-box/shardbox/cluster/ring"
	"github.com/lrondanini/shard-box/shardbox/storage"
)

const DefaultSampleSize = 3

// RenderRing prints the ring clockwise: position, virtual node, owner.
func RenderRing(w io.Writer, entries []ring.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Ring is empty.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Position", "Virtual Node", "Node"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Position, e.VirtualName, e.Node})
	}
	t.SetCaption("%d positions\n", len(entries))
	t.Render()
}

// RenderDistribution prints, for every physical node on the ring, how many
// records it holds plus a small sample of ids.
func RenderDistribution(w io.Writer, entries []ring.Entry, store storage.Store, sampleSize int) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No nodes to show distribution for.")
		return nil
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Node", "Records", "Sample Ids"})
	for _, node := range physicalNodes(entries) {
		recs, err := store.GetAll(node)
		if err != nil {
			return err
		}
		samples := make([]string, 0, sampleSize)
		for _, rec := range recs {
			if len(samples) == sampleSize {
				break
			}
			samples = append(samples, rec.ID)
		}
		t.AppendRow(table.Row{node, len(recs), strings.Join(samples, ", ")})
	}
	t.Render()
	return nil
}

// physicalNodes extracts the unique owners from position-ordered entries,
// in ring order of first appearance.
func physicalNodes(entries []ring.Entry) []string {
	seen := make(map[string]bool)
	nodes := []string{}
	for _, e := range entries {
		if !seen[e.Node] {
			seen[e.Node] = true
			nodes = append(nodes, e.Node)
		}
	}
	return nodes
}
