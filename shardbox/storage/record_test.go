package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFromRow(t *testing.T) {
	rec, err := RecordFromRow([]string{"k1", "hello", "2024-01-01"}, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, Record{ID: "k1", Data: "hello", CreatedAt: "2024-01-01"}, rec)
	assert.Equal(t, []string{"k1", "hello", "2024-01-01"}, rec.Row())
}

func TestRecordFromRowSchemaMismatch(t *testing.T) {
	_, err := RecordFromRow([]string{"k1"}, DefaultSchema())
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = RecordFromRow([]string{"k1", "d", "c", "extra"}, DefaultSchema())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRecordFromRowCustomSchema(t *testing.T) {
	schema := Schema{"id", "payload", "ts"}
	rec, err := RecordFromRow([]string{"k1", "p", "t"}, schema)
	require.NoError(t, err)
	assert.Equal(t, "k1", rec.ID)
}
