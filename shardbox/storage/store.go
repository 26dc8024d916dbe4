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

package storage

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/lrondanini/shard-box/shardbox/cluster/utils"
)

// Store is the per-node record persistence the cluster manager writes
// through. A container is the storage owned by one node identity; only
// rebalancing moves a record across containers.
//
// Read-side misses are soft: GetAll/GetByID on an absent container return
// an empty result and DeleteContainer/DeleteByID on absent targets succeed.
type Store interface {
	CreateContainer(node string) error
	DeleteContainer(node string) error
	GetAll(node string) ([]Record, error)
	GetByID(id string, node string) ([]Record, error)
	Insert(rec Record, node string) error
	DeleteByID(id string, node string) error
}

const keySeparator = byte(0x00)

// BadgerStore keeps one badger database directory per container under a
// data folder. Row keys are id + 0x00 + uuid so repeated inserts of the
// same id coexist as separate rows.
type BadgerStore struct {
	mu         sync.Mutex
	folder     string
	containers map[string]*badger.DB
}

func NewBadgerStore(folder string) *BadgerStore {
	return &BadgerStore{
		folder:     folder,
		containers: make(map[string]*badger.DB),
	}
}

func (s *BadgerStore) CreateContainer(node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[node]; ok {
		return nil
	}

	dir := filepath.Join(s.folder, node)
	options := badger.DefaultOptions(dir)
	options.IndexCacheSize = 100 << 20
	options.Logger = &dbLogger{logger: utils.GetLogger()}

	db, err := badger.Open(options)
	if err != nil {
		return err
	}
	s.containers[node] = db
	return nil
}

func (s *BadgerStore) DeleteContainer(node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.containers[node]
	if !ok {
		utils.GetLogger().Warn("delete of absent container " + node)
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	delete(s.containers, node)
	return os.RemoveAll(filepath.Join(s.folder, node))
}

func (s *BadgerStore) GetAll(node string) ([]Record, error) {
	db, ok := s.container(node)
	if !ok {
		utils.GetLogger().Warn("reading from absent container " + node)
		return []Record{}, nil
	}

	recs := []Record{}
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}

func (s *BadgerStore) GetByID(id string, node string) ([]Record, error) {
	db, ok := s.container(node)
	if !ok {
		return []Record{}, nil
	}

	recs := []Record{}
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rowPrefix(id)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}

func (s *BadgerStore) Insert(rec Record, node string) error {
	db, ok := s.container(node)
	if !ok {
		return ErrContainerNotFound
	}

	value, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(rowKey(rec.ID), value)
	})
}

func (s *BadgerStore) DeleteByID(id string, node string) error {
	db, ok := s.container(node)
	if !ok {
		utils.GetLogger().Warn("delete from absent container " + node)
		return nil
	}

	// collect first, keys cannot be deleted under an open iterator txn
	var keys [][]byte
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = rowPrefix(id)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasContainer reports whether node's container is provisioned.
func (s *BadgerStore) HasContainer(node string) bool {
	_, ok := s.container(node)
	return ok
}

// Containers returns the provisioned container names in lexical order.
func (s *BadgerStore) Containers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.containers))
	for n := range s.containers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *BadgerStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, db := range s.containers {
		db.Close()
	}
	s.containers = make(map[string]*badger.DB)
}

func (s *BadgerStore) container(node string) (*badger.DB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.containers[node]
	return db, ok
}

func rowPrefix(id string) []byte {
	return append([]byte(id), keySeparator)
}

func rowKey(id string) []byte {
	return append(rowPrefix(id), []byte(uuid.New().String())...)
}

func encodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(content []byte, rec *Record) error {
	return gob.NewDecoder(bytes.NewReader(content)).Decode(rec)
}
