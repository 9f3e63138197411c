// Package table defines the scanning contract every external backend is
// presented through: a declared schema plus a pull-based stream of columnar
// row batches.
package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/fedscan/fedscan/internal/value"
)

// ErrTypeMismatch reports a value that cannot be coerced to its declared
// column type.
var ErrTypeMismatch = errors.New("type mismatch")

// DefaultBatchSize bounds batch row counts when a scan request does not set
// its own.
const DefaultBatchSize = 1024

type Field struct {
	Name     string
	Type     value.Type
	Nullable bool
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func (s Schema) NumFields() int { return len(s.Fields) }

// FieldIndex returns the position of the named field, or -1.
func (s Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Project derives the schema for a projection list and the source column
// index of each projected field. An empty projection selects every field in
// declaration order.
func (s Schema) Project(columns []string) (Schema, []int, error) {
	if len(columns) == 0 {
		indices := make([]int, len(s.Fields))
		for i := range indices {
			indices[i] = i
		}
		return s, indices, nil
	}
	fields := make([]Field, 0, len(columns))
	indices := make([]int, 0, len(columns))
	for _, name := range columns {
		idx := s.FieldIndex(name)
		if idx < 0 {
			return Schema{}, nil, fmt.Errorf("unknown column %q", name)
		}
		fields = append(fields, s.Fields[idx])
		indices = append(indices, idx)
	}
	return Schema{Fields: fields}, indices, nil
}

func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// Batch is a column-oriented chunk of rows. All columns have the same
// length and the layout matches Schema exactly. A returned batch is never
// mutated afterwards.
type Batch struct {
	Schema  Schema
	Columns [][]value.Value
}

func (b Batch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0])
}

func (b Batch) NumColumns() int { return len(b.Columns) }

// Row materializes one row for tests and diagnostics.
func (b Batch) Row(i int) []value.Value {
	row := make([]value.Value, len(b.Columns))
	for c := range b.Columns {
		row[c] = b.Columns[c][i]
	}
	return row
}

// ScanRequest carries projection and filter pushdown plus the batch size
// bound. Projection order is honored in emitted batches.
type ScanRequest struct {
	Projection []string
	Filters    []Filter
	BatchSize  int
}

func (r ScanRequest) EffectiveBatchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}

// BatchReader is the pull side of a scan. Next blocks only inside ctx-aware
// I/O and returns io.EOF after the final batch. Close releases the reader's
// resources and is safe after an error or cancellation.
type BatchReader interface {
	Next(ctx context.Context) (Batch, error)
	Close() error
}

// ScanProvider is the runtime object the engine pulls batches from. A
// provider owns its connection/credential state; Close releases it
// deterministically regardless of scan outcome.
type ScanProvider interface {
	Schema(ctx context.Context) (Schema, error)
	Scan(ctx context.Context, req ScanRequest) (BatchReader, error)
	Close() error
}
