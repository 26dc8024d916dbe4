package storage

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/wal"
)

const journalDir = "journal"

// MigrationPhase marks how far a single record migration got. A migration
// is insert-into-target then delete-from-source; a crash in between leaves
// a duplicate, never a loss, and Replay retires the delete side later.
type MigrationPhase uint8

const (
	Copied MigrationPhase = iota
	Cleaned
)

func (p MigrationPhase) String() string {
	switch p {
	case Copied:
		return "copied"
	case Cleaned:
		return "cleaned"
	default:
		return "unknown"
	}
}

type JournalEntry struct {
	RecordID  string
	FromNode  string
	ToNode    string
	Phase     MigrationPhase
	Timestamp int64
}

// Journal is the write-ahead log of rebalance migrations.
type Journal struct {
	mu   sync.Mutex
	log  *wal.Log
	dir  string
	last uint64
}

func OpenJournal(folder string) (*Journal, error) {
	dir := filepath.Join(folder, journalDir)
	log, err := wal.Open(dir, nil)
	if err != nil {
		return nil, err
	}
	last, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, err
	}
	return &Journal{
		log:  log,
		dir:  dir,
		last: last,
	}, nil
}

// Copied records that the target insert for a migration committed.
func (j *Journal) Copied(id string, from string, to string) error {
	return j.append(JournalEntry{RecordID: id, FromNode: from, ToNode: to, Phase: Copied})
}

// Cleaned records that the matching source delete committed.
func (j *Journal) Cleaned(id string, from string, to string) error {
	return j.append(JournalEntry{RecordID: id, FromNode: from, ToNode: to, Phase: Cleaned})
}

func (j *Journal) append(e JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Timestamp = time.Now().UnixNano()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return err
	}
	if err := j.log.Write(j.last+1, buf.Bytes()); err != nil {
		return err
	}
	j.last++
	return nil
}

// Pending returns the copied entries whose delete side never committed.
func (j *Journal) Pending() ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.last == 0 {
		return nil, nil
	}
	first, err := j.log.FirstIndex()
	if err != nil {
		return nil, err
	}

	type migration struct{ id, from, to string }
	open := make(map[migration]JournalEntry)
	var order []migration
	for i := first; i <= j.last; i++ {
		data, err := j.log.Read(i)
		if err != nil {
			return nil, err
		}
		var e JournalEntry
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
			return nil, err
		}
		m := migration{e.RecordID, e.FromNode, e.ToNode}
		switch e.Phase {
		case Copied:
			if _, ok := open[m]; !ok {
				order = append(order, m)
			}
			open[m] = e
		case Cleaned:
			delete(open, m)
		}
	}

	pending := make([]JournalEntry, 0, len(open))
	for _, m := range order {
		if e, ok := open[m]; ok {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Replay retries the delete side of every pending migration. Deletes are
// idempotent so replaying after a clean shutdown is harmless. Returns how
// many deletes were issued.
//
// Replay runs right after a restart, before any container has been opened:
// the source container is provisioned first so the delete reaches the rows
// on disk instead of soft-missing an absent container.
func (j *Journal) Replay(store Store) (int, error) {
	pending, err := j.Pending()
	if err != nil {
		return 0, err
	}
	for _, e := range pending {
		if err := store.CreateContainer(e.FromNode); err != nil {
			return 0, err
		}
		if err := store.DeleteByID(e.RecordID, e.FromNode); err != nil {
			return 0, err
		}
		if err := j.Cleaned(e.RecordID, e.FromNode, e.ToNode); err != nil {
			return 0, err
		}
	}
	if len(pending) > 0 {
		if err := j.Reset(); err != nil {
			return len(pending), err
		}
	}
	return len(pending), nil
}

// Reset drops the journal files and reopens an empty log.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.log.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(j.dir); err != nil {
		return err
	}
	log, err := wal.Open(j.dir, nil)
	if err != nil {
		return err
	}
	j.log = log
	j.last = 0
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.log.Close()
}
