package storage

import "fmt"

// Schema is the ordered list of record field names. It is fixed at cluster
// construction; the first field is always the record key.
type Schema []string

func DefaultSchema() Schema {
	return Schema{"id", "data", "created_at"}
}

// Record is one row of a node's container. Records are never updated in
// place: they are inserted, deleted, or migrated as a whole.
type Record struct {
	ID        string
	Data      string
	CreatedAt string
}

// RecordFromRow validates a raw row against the schema and builds a Record.
// The field count must match exactly; nothing is written on mismatch.
func RecordFromRow(row []string, schema Schema) (Record, error) {
	if len(row) != len(schema) {
		return Record{}, fmt.Errorf("%w: got %d fields, schema has %d", ErrSchemaMismatch, len(row), len(schema))
	}
	return Record{ID: row[0], Data: row[1], CreatedAt: row[2]}, nil
}

// Row returns the record as a raw row in schema order.
func (r Record) Row() []string {
	return []string{r.ID, r.Data, r.CreatedAt}
}
