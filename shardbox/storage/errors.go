package storage

import "errors"

var (
	ErrSchemaMismatch    = errors.New("record does not match the schema")
	ErrContainerNotFound = errors.New("container not found")
)
