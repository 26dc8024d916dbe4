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
	"context"
	"fmt"
	"sync"

	"github.com/lrondanini/shard-box/shardbox/cluster/ring"
	"github.com/lrondanini/shard-box/shardbox/cluster/utils"
	"github.com/lrondanini/shard-box/shardbox/storage"
)

// Manager sequences ring mutation, rebalancing and store I/O. Topology
// changes hold the write lock for their whole duration, rebalance scan
// included: a resolve against a half-updated ring hands records to the
// wrong node. Record operations share the read lock.
type Manager struct {
	mu      sync.RWMutex
	ring    *ring.Ring
	store   storage.Store
	schema  storage.Schema
	journal *storage.Journal
	logger  *utils.Logger
}

// migration is one id moved between containers, every duplicate copy
// included, kept so a cancelled topology change can be undone. Copies move
// as a group because DeleteByID clears all rows for the id at once.
type migration struct {
	id   string
	recs []storage.Record
	from string
	to   string
}

// recordGroup is the rows sharing one id, in container order.
type recordGroup struct {
	id   string
	recs []storage.Record
}

func groupByID(recs []storage.Record) []recordGroup {
	index := make(map[string]int)
	var groups []recordGroup
	for _, rec := range recs {
		i, ok := index[rec.ID]
		if !ok {
			i = len(groups)
			index[rec.ID] = i
			groups = append(groups, recordGroup{id: rec.ID})
		}
		groups[i].recs = append(groups[i].recs, rec)
	}
	return groups
}

// NewManager builds a Manager from the configuration. journal may be nil,
// in which case migrations are not journaled.
func NewManager(conf *utils.Configuration, store storage.Store, journal *storage.Journal) (*Manager, error) {
	fn, err := ring.HashFuncByName(conf.HASH_FUNCTION)
	if err != nil {
		return nil, err
	}
	schema := storage.Schema(conf.SCHEMA)
	if len(schema) == 0 {
		schema = storage.DefaultSchema()
	} else if len(schema) != len(storage.DefaultSchema()) {
		return nil, fmt.Errorf("%w: schema must name exactly %d fields, got %d",
			storage.ErrSchemaMismatch, len(storage.DefaultSchema()), len(schema))
	}
	return &Manager{
		ring:    ring.New(conf.RING_SPACE_BITS, conf.NUMB_VNODES, fn),
		store:   store,
		schema:  schema,
		journal: journal,
		logger:  utils.GetLogger(),
	}, nil
}

// AddNode places name on the ring, provisions its container and pulls in
// every record the new node now owns. All other nodes are scanned: under
// virtual nodes the newcomer carves slices out of many ranges, not just
// its clockwise successor's.
func (m *Manager) AddNode(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.ring.HasNode(name) {
		return fmt.Errorf("%w: %s", ring.ErrDuplicateNode, name)
	}
	if err := m.store.CreateContainer(name); err != nil {
		return err
	}
	if err := m.ring.AddNode(name); err != nil {
		m.store.DeleteContainer(name)
		return err
	}
	if err := m.rebalanceOnAdd(ctx, name); err != nil {
		m.ring.RemoveNode(name)
		m.store.DeleteContainer(name)
		return err
	}
	m.logger.Info("node " + name + " joined the ring")
	return nil
}

// RemoveNode takes name off the ring, migrates every record it held to the
// record's new owner and deletes the container. The scan runs after the
// ring update so each record resolves under the new topology; with virtual
// nodes the departing positions can have different successors, so records
// are re-resolved one by one, never bulk-moved.
func (m *Manager) RemoveNode(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.ring.RemoveNode(name); err != nil {
		return err
	}

	recs, err := m.store.GetAll(name)
	if err != nil {
		m.ring.AddNode(name)
		return err
	}

	var done []migration
	for _, group := range groupByID(recs) {
		if err := ctx.Err(); err != nil {
			m.rollbackRemove(name, done)
			return err
		}
		owner, err := m.ring.ResolveKey(group.id)
		if err != nil {
			m.rollbackRemove(name, done)
			return err
		}
		if err := m.migrate(group, name, owner); err != nil {
			m.rollbackRemove(name, done)
			return err
		}
		done = append(done, migration{id: group.id, recs: group.recs, from: name, to: owner})
	}

	if err := m.store.DeleteContainer(name); err != nil {
		return err
	}
	m.logger.Info("node " + name + " left the ring")
	return nil
}

// Insert validates row against the schema, resolves the owner by the first
// field and appends. Duplicate ids are allowed; readers get every match.
func (m *Manager) Insert(row []string) error {
	rec, err := storage.RecordFromRow(row, m.schema)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, err := m.ring.ResolveKey(rec.ID)
	if err != nil {
		return err
	}
	return m.store.Insert(rec, owner)
}

// Get returns every record stored under id: zero, one or many.
func (m *Manager) Get(id string) ([]storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, err := m.ring.ResolveKey(id)
	if err != nil {
		return nil, err
	}
	return m.store.GetByID(id, owner)
}

// Delete removes every record stored under id. Deleting an id that does
// not exist is a no-op.
func (m *Manager) Delete(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, err := m.ring.ResolveKey(id)
	if err != nil {
		return err
	}
	return m.store.DeleteByID(id, owner)
}

// Locate returns the node that currently owns id, without touching the
// store.
func (m *Manager) Locate(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ring.ResolveKey(id)
}

// Nodes returns the physical nodes currently on the ring.
func (m *Manager) Nodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ring.Nodes()
}

// RingEntries returns the ring in position order, for reporting.
func (m *Manager) RingEntries() []ring.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ring.Entries()
}

func (m *Manager) Schema() storage.Schema {
	return m.schema
}

// Recover retries the delete side of any migration whose source cleanup
// never committed. Safe to run on every start: the deletes are idempotent.
func (m *Manager) Recover() (int, error) {
	if m.journal == nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.journal.Replay(m.store)
	if n > 0 {
		m.logger.Info(fmt.Sprintf("journal replay cleaned up %d interrupted migrations", n))
	}
	return n, err
}

func (m *Manager) Close() error {
	if m.journal == nil {
		return nil
	}
	return m.journal.Close()
}

func (m *Manager) rebalanceOnAdd(ctx context.Context, newNode string) error {
	var done []migration
	for _, other := range m.ring.Nodes() {
		if err := ctx.Err(); err != nil {
			m.undoMigrations(done)
			return err
		}
		if other == newNode {
			continue
		}
		recs, err := m.store.GetAll(other)
		if err != nil {
			m.undoMigrations(done)
			return err
		}
		for _, group := range groupByID(recs) {
			if err := ctx.Err(); err != nil {
				m.undoMigrations(done)
				return err
			}
			owner, err := m.ring.ResolveKey(group.id)
			if err != nil {
				m.undoMigrations(done)
				return err
			}
			if owner != newNode {
				continue
			}
			if err := m.migrate(group, other, newNode); err != nil {
				m.undoMigrations(done)
				return err
			}
			done = append(done, migration{id: group.id, recs: group.recs, from: other, to: newNode})
		}
	}
	return nil
}

// migrate copies every row of the group into the target before deleting
// the id from the source: a crash in between leaves a duplicate, never a
// lost record. A half-copied group is cleared from the target; the target
// holds no other rows for the id since ownership is per id.
func (m *Manager) migrate(group recordGroup, from string, to string) error {
	for _, rec := range group.recs {
		if err := m.store.Insert(rec, to); err != nil {
			m.store.DeleteByID(group.id, to)
			return err
		}
	}
	m.journalCopied(group.id, from, to)
	if err := m.store.DeleteByID(group.id, from); err != nil {
		return err
	}
	m.journalCleaned(group.id, from, to)
	return nil
}

// undoMigrations replays completed migrations in reverse, insert side
// first, so an aborted topology change is invisible to readers. If any
// copy cannot be restored the target rows stay put: a duplicate beats a
// loss.
func (m *Manager) undoMigrations(done []migration) {
	for i := len(done) - 1; i >= 0; i-- {
		mg := done[i]
		restored := true
		for _, rec := range mg.recs {
			if err := m.store.Insert(rec, mg.from); err != nil {
				m.logger.Error(err, "undo: could not restore "+mg.id+" to "+mg.from)
				restored = false
			}
		}
		if !restored {
			continue
		}
		if err := m.store.DeleteByID(mg.id, mg.to); err != nil {
			m.logger.Error(err, "undo: could not remove "+mg.id+" from "+mg.to)
		}
	}
}

func (m *Manager) rollbackRemove(name string, done []migration) {
	m.undoMigrations(done)
	if err := m.ring.AddNode(name); err != nil {
		m.logger.Error(err, "rollback: could not restore ring entries for "+name)
	}
}

func (m *Manager) journalCopied(id string, from string, to string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Copied(id, from, to); err != nil {
		m.logger.Error(err, "journal: copied entry for "+id)
	}
}

func (m *Manager) journalCleaned(id string, from string, to string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Cleaned(id, from, to); err != nil {
		m.logger.Error(err, "journal: cleaned entry for "+id)
	}
}
