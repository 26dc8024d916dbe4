// Copyright 2023 lucarondanini
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cluster

import (
	"time"

	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/memory"
)

type NodeStats struct {
	Node    string
	Records int
}

type HostStats struct {
	MemoryUsed  uint64
	MemoryFree  uint64
	MemoryTotal uint64
	CPUUser     float64
	CPUSystem   float64
	CPUIdle     float64
}

// NodeStatsSnapshot counts the records held by every node, read-locked so
// the counts are against a stable topology.
func (m *Manager) NodeStatsSnapshot() ([]NodeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := []NodeStats{}
	for _, node := range m.ring.Nodes() {
		recs, err := m.store.GetAll(node)
		if err != nil {
			return nil, err
		}
		stats = append(stats, NodeStats{Node: node, Records: len(recs)})
	}
	return stats, nil
}

// GetHostStats samples host memory and CPU. CPU percentages come from two
// samples half a second apart.
func GetHostStats() (HostStats, error) {
	mem, err := memory.Get()
	if err != nil {
		return HostStats{}, err
	}

	before, err := cpu.Get()
	if err != nil {
		return HostStats{}, err
	}
	time.Sleep(500 * time.Millisecond)
	after, err := cpu.Get()
	if err != nil {
		return HostStats{}, err
	}

	total := float64(after.Total - before.Total)
	stats := HostStats{
		MemoryUsed:  mem.Used,
		MemoryFree:  mem.Free,
		MemoryTotal: mem.Total,
	}
	if total > 0 {
		stats.CPUUser = float64(after.User-before.User) / total * 100
		stats.CPUSystem = float64(after.System-before.System) / total * 100
		stats.CPUIdle = float64(after.Idle-before.Idle) / total * 100
	}
	return stats, nil
}
